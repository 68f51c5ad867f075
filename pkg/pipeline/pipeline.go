// Package pipeline runs the parse → layout → export sequence shared by the
// CLI and the HTTP server.
//
// # Stages
//
//  1. Parse: decode a JSON or DOT input graph
//  2. Layout: apply graph attributes to the options and run the engine,
//     consulting the layout cache first
//  3. Export: encode the finished layout as JSON, positioned DOT or SVG
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, input, pipeline.Options{
//	    InputFormat:  pkgio.FormatDOT,
//	    OutputFormat: pkgio.FormatSVG,
//	})
//	if err != nil {
//	    return err
//	}
//	os.Stdout.Write(result.Output)
//
// Layouts are cached under a key derived from the input graph, the
// validated layout options and the build version (see [cache.DefaultKeyer]),
// so two requests that would produce the same layout share one entry.
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stratum/pkg/buildinfo"
	"github.com/matzehuels/stratum/pkg/cache"
	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/graph"
	pkgio "github.com/matzehuels/stratum/pkg/io"
	"github.com/matzehuels/stratum/pkg/layout"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultInputFormat is assumed when the caller does not name one.
	DefaultInputFormat = pkgio.FormatJSON

	// DefaultOutputFormat is the export format when none is requested.
	DefaultOutputFormat = pkgio.FormatJSON

	// MaxInputBytes bounds the size of an input graph.
	MaxInputBytes = 64 << 20
)

// =============================================================================
// Options
// =============================================================================

// Options configures a pipeline run. It supports JSON for HTTP requests.
type Options struct {
	InputFormat  pkgio.Format `json:"input_format,omitempty"`
	OutputFormat pkgio.Format `json:"output_format,omitempty"`

	// Source names the input in logs and hook events (a path or "stdin").
	Source string `json:"-"`

	// Layout holds explicit engine options. Zero fields are filled from
	// the graph's attributes, then from the engine defaults.
	Layout layout.Options `json:"layout"`

	// NoCache bypasses the cache for reads and writes.
	NoCache bool `json:"no_cache,omitempty"`
	// Refresh skips the cache lookup but stores the fresh result.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks formats and applies defaults. Layout options
// are validated later, once graph attributes have been merged in. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.InputFormat == "" {
		o.InputFormat = DefaultInputFormat
	}
	if o.OutputFormat == "" {
		o.OutputFormat = DefaultOutputFormat
	}
	if err := ValidateInputFormat(o.InputFormat); err != nil {
		return err
	}
	if err := ValidateOutputFormat(o.OutputFormat); err != nil {
		return err
	}
	if o.Source == "" {
		o.Source = "input"
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// ValidateInputFormat accepts the formats a graph can be read from.
func ValidateInputFormat(f pkgio.Format) error {
	switch f {
	case pkgio.FormatJSON, pkgio.FormatDOT:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidFormat, "invalid input format %q (must be json or dot)", f)
}

// ValidateOutputFormat accepts the formats a layout can be written as.
func ValidateOutputFormat(f pkgio.Format) error {
	switch f {
	case pkgio.FormatJSON, pkgio.FormatDOT, pkgio.FormatSVG:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidFormat, "invalid output format %q (must be json, dot or svg)", f)
}

// LayoutKeyOpts returns the cache key options for validated layout options.
func LayoutKeyOpts(opts layout.Options) cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{Version: buildinfo.Version, Options: opts}
}

// =============================================================================
// Result
// =============================================================================

// Result holds the outputs of a pipeline run.
type Result struct {
	// Graph is the parsed input. After a cache miss it also carries the
	// engine's positions and routes.
	Graph *dag.Graph

	// GraphHash is the content hash of the input graph.
	GraphHash string

	// Layout is the exported layout.
	Layout graph.Layout

	// Output is Layout encoded in Options.OutputFormat.
	Output []byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline timings and sizes.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	ParseTime  time.Duration
	LayoutTime time.Duration
	ExportTime time.Duration
}

// CacheInfo records which stages were served from the cache.
type CacheInfo struct {
	LayoutHit bool
}
