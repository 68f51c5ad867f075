package pipeline

import (
	"context"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/graph"
	"github.com/matzehuels/stratum/pkg/layout"
)

// ResolveLayoutOptions merges the graph's own attributes into opts and
// validates the result. Explicit options win over graph attributes.
func ResolveLayoutOptions(g *dag.Graph, opts layout.Options) (layout.Options, error) {
	if err := graph.ApplyAttrs(g, &opts); err != nil {
		return layout.Options{}, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return layout.Options{}, err
	}
	return opts, nil
}

// GenerateLayout runs the engine on g and exports the result. g receives
// the computed positions. The exported rankdir is the effective one, which
// may differ from the graph's attribute.
func GenerateLayout(ctx context.Context, g *dag.Graph, opts layout.Options) (graph.Layout, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return graph.Layout{}, err
	}
	res, err := layout.Layout(ctx, g, opts)
	if err != nil {
		return graph.Layout{}, err
	}
	l := graph.Export(g, res)
	l.RankDir = string(opts.RankDir)
	if err := l.Validate(); err != nil {
		return graph.Layout{}, errors.Wrap(errors.ErrCodeInternal, err, "exported layout")
	}
	return l, nil
}
