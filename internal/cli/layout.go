package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stratum/pkg/errors"
	pkgio "github.com/matzehuels/stratum/pkg/io"
	"github.com/matzehuels/stratum/pkg/layout"
	"github.com/matzehuels/stratum/pkg/pipeline"
	"github.com/matzehuels/stratum/pkg/position"
	"github.com/matzehuels/stratum/pkg/rank"
	"github.com/matzehuels/stratum/pkg/spline"
)

// layoutFlags holds the command-line overrides for one layout run.
type layoutFlags struct {
	output      string
	format      string
	inputFormat string
	noCache     bool
	refresh     bool
	redisURL    string

	engine      string
	rankdir     string
	ranking     string
	positioning string
	splines     string
	ranksep     float64
	nodesep     float64
	parallel    int
	noBalance   bool
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	var f layoutFlags

	cmd := &cobra.Command{
		Use:   "layout [graph.json|graph.dot|-]",
		Short: "Compute a hierarchical layout",
		Long: `Compute a hierarchical layout of a directed graph.

The input is a JSON graph or a Graphviz DOT file; "-" reads stdin (use
--input-format dot for DOT). The output format follows the extension of
-o (.json, .dot, .svg) or --format when writing to stdout.

Layouts are cached, keyed by the graph, the effective options and the
stratum version. Use --no-cache to bypass the cache.`,
		Example: `  stratum layout deps.dot -o deps.svg
  stratum layout graph.json --rankdir LR --positioning priority > layout.json
  cat graph.dot | stratum layout - --input-format dot --format svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "output file (default: stdout)")
	fl.StringVarP(&f.format, "format", "f", "", "output format: json (default), dot, svg")
	fl.StringVar(&f.inputFormat, "input-format", "", "input format: json, dot (default: from extension)")
	fl.BoolVar(&f.noCache, "no-cache", false, "disable the layout cache")
	fl.BoolVar(&f.refresh, "refresh", false, "recompute even if the layout is cached")
	fl.StringVar(&f.redisURL, "redis", "", "use a Redis layout cache at this URL")

	fl.StringVar(&f.engine, "engine", "", "layout engine (default: dot)")
	fl.StringVar(&f.rankdir, "rankdir", "", "rank direction: TB, LR, BT, RL")
	fl.StringVar(&f.ranking, "ranking", "", "ranking: simplex (default), longest-path")
	fl.StringVar(&f.positioning, "positioning", "", "x positioning: simplex (default), priority")
	fl.StringVar(&f.splines, "splines", "", "edge routing: spline (default), polyline, line, none")
	fl.Float64Var(&f.ranksep, "ranksep", 0, "gap between ranks in points")
	fl.Float64Var(&f.nodesep, "nodesep", 0, "gap between nodes in a rank in points")
	fl.IntVar(&f.parallel, "parallel", 0, "lay out up to N sibling clusters concurrently")
	fl.BoolVar(&f.noBalance, "no-balance", false, "skip rank balancing")

	registerLayoutCompletions(cmd)
	return cmd
}

// layoutOptions merges the flags over the configuration's layout section.
func (c *CLI) layoutOptions(f layoutFlags) layout.Options {
	opts := c.Config.LayoutOptions()
	opts.Logger = c.Logger
	if f.engine != "" {
		opts.Engine = f.engine
	}
	if f.rankdir != "" {
		opts.RankDir = position.RankDir(strings.ToUpper(f.rankdir))
	}
	if f.ranking != "" {
		opts.Ranking = rank.Mode(f.ranking)
	}
	if f.positioning != "" {
		opts.Positioning = position.Strategy(f.positioning)
	}
	if f.splines != "" {
		opts.Splines = spline.Mode(f.splines)
	}
	if f.ranksep != 0 {
		opts.RankSep = f.ranksep
	}
	if f.nodesep != 0 {
		opts.NodeSep = f.nodesep
	}
	if f.parallel != 0 {
		opts.Parallel = f.parallel
	}
	if f.noBalance {
		opts.NoBalance = true
	}
	return opts
}

// runLayout reads the input, runs the pipeline and writes the result.
func (c *CLI) runLayout(ctx context.Context, input string, f layoutFlags) error {
	opts := pipeline.Options{
		Layout:  c.layoutOptions(f),
		NoCache: f.noCache,
		Refresh: f.refresh,
		Logger:  c.Logger,
	}

	var err error
	if f.inputFormat != "" {
		if opts.InputFormat, err = pkgio.ParseFormat(f.inputFormat); err != nil {
			return err
		}
	}
	if opts.OutputFormat, err = outputFormat(f.output, f.format); err != nil {
		return err
	}
	if f.redisURL != "" {
		c.Config.Cache.RedisURL = f.redisURL
	}

	runner, err := c.newRunner(ctx, f.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))
	var spin *spinner
	if f.output != "" {
		spin = startSpinner(ctx, statusOut, "Computing layout...")
	}

	var res *pipeline.Result
	if input == "-" {
		opts.Source = "stdin"
		var data []byte
		if data, err = io.ReadAll(c.stdin); err != nil {
			err = errors.Wrap(errors.ErrCodeInvalidInput, err, "read stdin")
		} else {
			res, err = runner.Execute(ctx, data, opts)
		}
	} else {
		res, err = runner.ExecuteFile(ctx, input, opts)
	}

	if err != nil {
		if spin != nil {
			spin.fail("Layout failed")
		}
		return err
	}
	if spin != nil {
		spin.stop()
		if spin.interrupted() {
			return ctx.Err()
		}
	}

	if f.output == "" {
		prog.done("Laid out graph", "nodes", res.Stats.NodeCount, "edges", res.Stats.EdgeCount, "cached", res.CacheInfo.LayoutHit)
		_, err := c.stdout.Write(res.Output)
		return err
	}
	if err := errors.ValidatePath(f.output); err != nil {
		return err
	}
	if err := os.WriteFile(f.output, res.Output, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", f.output, err)
	}

	printSuccess("Layout complete")
	printFile(f.output)
	printStats(res.Stats.NodeCount, res.Stats.EdgeCount, res.CacheInfo.LayoutHit)
	printKeyValue("size", fmt.Sprintf("%.0f x %.0f", res.Layout.Width, res.Layout.Height))
	printKeyValue("crossings", fmt.Sprint(res.Layout.Stats.Crossings))
	if opts.OutputFormat == pkgio.FormatJSON {
		printNewline()
		printNextStep("Render", appName+" render "+f.output+" -o out.svg")
	}
	return nil
}

// outputFormat picks the format from the output file's extension, the
// --format flag, or JSON.
func outputFormat(output, format string) (pkgio.Format, error) {
	if format != "" {
		return pkgio.ParseFormat(format)
	}
	if output != "" {
		return pkgio.DetectFormat(output)
	}
	return pipeline.DefaultOutputFormat, nil
}

// enginesCommand lists the layout engines.
func (c *CLI) enginesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List layout engines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range layout.Engines() {
				status := "not implemented"
				if name == layout.DefaultEngine {
					status = "default"
				}
				fmt.Fprintf(c.stdout, "%-8s %s\n", name, status)
			}
			return nil
		},
	}
}
