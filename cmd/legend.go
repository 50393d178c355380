package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/docsman/internal/config"
	"github.com/conneroisu/docsman/internal/legend"
	"github.com/conneroisu/docsman/internal/sandbox"
)

var legendFormat string

var legendCmd = &cobra.Command{
	Use:     "legend [path]",
	Aliases: []string{"ls"},
	Short:   "List the Markdown files that make up the navigation legend",
	Long: `Print every Markdown file below path, relative to it, as the server's
navigation legend would list them.

Examples:
  docsman legend ./docs
  docsman legend ./docs -o json
  docsman legend ./docs -o yaml`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runLegend,
}

func init() {
	rootCmd.AddCommand(legendCmd)

	legendCmd.Flags().StringVarP(&legendFormat, "output", "o", "text", "Output format (text, json, yaml)")
	AddFlagValidation(legendCmd, "output", ValidateOutputFormat("text", "json", "yaml"))
}

func runLegend(cmd *cobra.Command, args []string) error {
	dir := viper.GetString(config.KeyRoot)
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		return fmt.Errorf("a documentation root path is required")
	}

	root, err := sandbox.NewRoot(dir)
	if err != nil {
		return fmt.Errorf("failed to open documentation root: %w", err)
	}

	entries, err := legend.NewIndexer(root.Path()).List()
	if err != nil {
		return err
	}
	sort.Strings(entries)

	return writeLegend(cmd.OutOrStdout(), entries, legendFormat)
}

func writeLegend(w io.Writer, entries legend.Legend, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode([]string(entries)); err != nil {
			return err
		}
		return encoder.Close()
	case "text", "":
		for _, entry := range entries {
			if _, err := fmt.Fprintln(w, entry); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", format)
	}
}
