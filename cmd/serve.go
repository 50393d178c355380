package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/docsman/internal/config"
	"github.com/conneroisu/docsman/internal/logging"
	"github.com/conneroisu/docsman/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve [path]",
	Aliases: []string{"s"},
	Short:   "Serve a documentation directory with live reload",
	Long: `Serve every Markdown file below path as HTML. GET / renders index.md.

With auto-reload on, the directory is watched recursively: editing a page
reloads it in every open tab, and adding or removing files refreshes the
navigation legend.

Examples:
  docsman serve ./docs
  docsman serve ./docs --host 127.0.0.1 --port 3000
  docsman serve ./docs --autoreload=false --legend=false`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	PreRunE:      bindServeFlags,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		viper.Set(config.KeyRoot, args[0])
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.LoggerConfig())

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at http://%s\n", cfg.Root, cfg.Addr())

	if err := srv.Start(ctx); err != nil {
		logger.Error(ctx, err, "Server failed")
		return err
	}

	return nil
}
