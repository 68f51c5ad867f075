package layout

import (
	"context"
	"slices"
	"time"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/geom"
)

// Engine names.
const (
	EngineDot   = "dot"
	EngineNeato = "neato"
	EngineFdp   = "fdp"
	EngineCirco = "circo"
	EngineTwopi = "twopi"
)

// Engine lays out a whole graph. Implementations write positions, routes
// and cluster boxes into g and return a summary.
type Engine interface {
	Name() string
	Layout(ctx context.Context, g *dag.Graph, opts Options) (*Result, error)
}

// Result summarizes a layout run.
type Result struct {
	// RunID identifies the run in logs and hook events.
	RunID string `json:"run_id"`
	// Bounds encloses every node, route and cluster box.
	Bounds geom.Box `json:"bounds"`
	Stats  Stats    `json:"stats"`
}

// Stats aggregates stage results over every level of the cluster tree.
// Ranks is the number of distinct rank lines in the whole drawing.
type Stats struct {
	Levels             int           `json:"levels"`
	Ranks              int           `json:"ranks"`
	Reversed           int           `json:"reversed"`
	VirtualNodes       int           `json:"virtual_nodes"`
	Crossings          int           `json:"crossings"`
	RankIterations     int           `json:"rank_iterations"`
	OrderIterations    int           `json:"order_iterations"`
	PositionIterations int           `json:"position_iterations"`
	Routed             int           `json:"routed"`
	Degenerate         int           `json:"degenerate"`
	Duration           time.Duration `json:"duration"`
}

var engines = map[string]Engine{
	EngineDot:   Hierarchical{},
	EngineNeato: unsupported(EngineNeato),
	EngineFdp:   unsupported(EngineFdp),
	EngineCirco: unsupported(EngineCirco),
	EngineTwopi: unsupported(EngineTwopi),
}

// Lookup returns the engine registered under name.
func Lookup(name string) (Engine, error) {
	if e, ok := engines[name]; ok {
		return e, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown layout engine %q", name)
}

// Engines returns the known engine names in sorted order.
func Engines() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Layout validates opts and dispatches g to the selected engine.
func Layout(ctx context.Context, g *dag.Graph, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	eng, err := Lookup(opts.Engine)
	if err != nil {
		return nil, err
	}
	return eng.Layout(ctx, g, opts)
}

type unsupported string

func (u unsupported) Name() string { return string(u) }

func (u unsupported) Layout(context.Context, *dag.Graph, Options) (*Result, error) {
	return nil, errors.New(errors.ErrCodeUnsupported, "layout engine %q is not implemented", string(u))
}
