package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/docsman/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "docsman [path]",
	Short: "Preview a directory of Markdown documentation with live reload",
	Long: `docsman serves a directory tree of Markdown files as HTML and pushes
live-reload notifications to open browser tabs when files change.

Examples:
  docsman ./docs                   # Shorthand for "docsman serve ./docs"
  docsman serve ./docs -p 3000     # Serve on port 3000
  docsman legend ./docs -o json    # Print the navigation legend`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	PreRunE:      bindServeFlags,
	RunE:         runRoot,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .docsman.yml, can also use DOCSMAN_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "log format (text, json)")
	_ = viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLogFormat, rootCmd.PersistentFlags().Lookup("log-format"))

	addServeFlags(rootCmd)
}

// runRoot treats a bare path argument as "serve <path>".
func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !viper.IsSet(config.KeyRoot) {
		return cmd.Help()
	}
	return runServe(cmd, args)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("DOCSMAN_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".docsman")
	}

	viper.SetEnvPrefix("DOCSMAN")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
