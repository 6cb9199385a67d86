package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
	CacheKey   string
	Format     string // text|json
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "graphcachectl",
		Short:         "Inspect and manage a persisted graph cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "TOML config file")
	cmd.PersistentFlags().StringVar(&opts.CacheKey, "key", "", "cache key (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(
		newInspectCommand(opts),
		newGetCommand(opts),
		newRootCallCommand(opts),
		newSetCommand(opts),
		newClearCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

// printer writes command results as text lines or one JSON document.
type printer struct {
	format string
	w      io.Writer
}

func newPrinter(opts *rootOptions, cmd *cobra.Command) printer {
	return printer{format: opts.Format, w: cmd.OutOrStdout()}
}

// print writes v as JSON, or text as-is in text mode.
func (p printer) print(text string, v any) error {
	if p.format == "json" {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(p.w, text)
	return err
}
