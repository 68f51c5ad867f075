package graph

import (
	"strings"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/layout"
	"github.com/matzehuels/stratum/pkg/position"
	"github.com/matzehuels/stratum/pkg/spline"
)

// ParseSplines maps a splines attribute to a routing mode. Besides the mode
// names it accepts dot's boolean spellings: true routes curves, false
// straight lines.
func ParseSplines(s string) (spline.Mode, error) {
	switch strings.ToLower(s) {
	case "", "true", "yes", "spline", "curved":
		return spline.ModeSpline, nil
	case "false", "no", "line":
		return spline.ModeLine, nil
	case "polyline":
		return spline.ModePolyline, nil
	case "none":
		return spline.ModeNone, nil
	case "ortho", "compound":
		return "", errors.New(errors.ErrCodeUnsupported, "splines=%s is not supported", s)
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "invalid splines value %q", s)
}

// ApplyAttrs copies the graph-level attributes of g into opts. Only fields
// still at their zero value are filled, so explicit options win over the
// graph and the graph wins over built-in defaults.
func ApplyAttrs(g *dag.Graph, opts *layout.Options) error {
	m := g.Meta()

	if v, ok := m[AttrRankDir].(string); ok && opts.RankDir == "" {
		dir := position.RankDir(strings.ToUpper(v))
		if !dir.Valid() {
			return errors.New(errors.ErrCodeInvalidInput, "invalid rankdir %q", v)
		}
		opts.RankDir = dir
	}
	if v, ok := m[AttrRankSep].(float64); ok && opts.RankSep == 0 {
		opts.RankSep = v
	}
	if v, ok := m[AttrNodeSep].(float64); ok && opts.NodeSep == 0 {
		opts.NodeSep = v
	}
	if v, ok := m[AttrSplines].(string); ok && opts.Splines == "" {
		mode, err := ParseSplines(v)
		if err != nil {
			return err
		}
		opts.Splines = mode
	}
	return nil
}
