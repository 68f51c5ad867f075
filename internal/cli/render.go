package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/graph"
	pkgio "github.com/matzehuels/stratum/pkg/io"
	"github.com/matzehuels/stratum/pkg/pipeline"
)

// renderCommand creates the render command for converting a saved layout.
func (c *CLI) renderCommand() *cobra.Command {
	var output, format string

	cmd := &cobra.Command{
		Use:   "render [layout.json]",
		Short: "Render a computed layout as SVG or positioned DOT",
		Long: `Render a computed layout as SVG or positioned DOT.

The render command takes a layout.json file (produced by 'layout') and
writes it in another format. The layout already holds every position and
route, so nothing is recomputed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], output, format)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: svg (default), dot, json")
	_ = cmd.RegisterFlagCompletionFunc("format", fixedCompletion("svg", "dot", "json"))

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input, output, format string) error {
	l, err := graph.ReadLayoutFile(input)
	if err != nil {
		return err
	}

	f := pkgio.FormatSVG
	if format != "" || output != "" {
		if f, err = outputFormat(output, format); err != nil {
			return err
		}
	}
	if err := pipeline.ValidateOutputFormat(f); err != nil {
		return err
	}

	data, err := pipeline.Export(ctx, l, f)
	if err != nil {
		return err
	}

	if output == "" {
		_, err := c.stdout.Write(data)
		return err
	}
	if err := errors.ValidatePath(output); err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Rendered %s", f)
	printFile(output)
	return nil
}
