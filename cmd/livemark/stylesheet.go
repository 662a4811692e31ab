package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/livemark/livemark/internal/config"
	"github.com/livemark/livemark/internal/render"
	"github.com/livemark/livemark/internal/responder"
)

func newStylesheetCmd() *cobra.Command {
	var (
		output string
		style  string
	)

	cmd := &cobra.Command{
		Use:   "stylesheet",
		Short: "Write a class-based code highlighting stylesheet (pygments.css)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %q: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return render.WriteStylesheet(w, style)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout (e.g. "+responder.StylesheetName+")")
	cmd.Flags().StringVar(&style, "style", config.DefaultStyle, "chroma style name")
	return cmd
}
