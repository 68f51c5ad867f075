package layout

import (
	"math"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/ordering"
	"github.com/matzehuels/stratum/pkg/position"
	"github.com/matzehuels/stratum/pkg/rank"
	"github.com/matzehuels/stratum/pkg/spline"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultEngine is the hierarchical engine.
	DefaultEngine = EngineDot

	// DefaultRankSep is the gap between adjacent ranks (0.5in at 72/in).
	DefaultRankSep = 36.0

	// DefaultNodeSep is the gap between neighbouring nodes in a rank.
	DefaultNodeSep = 18.0

	// DefaultNodeWidth and DefaultNodeHeight size nodes that carry no
	// explicit dimensions (0.75in x 0.5in).
	DefaultNodeWidth  = 54.0
	DefaultNodeHeight = 36.0

	// DefaultClusterMargin is the padding around a cluster's content.
	DefaultClusterMargin = 8.0
)

// Options configures a layout run. The zero value is valid: every field
// left zero takes its default in ValidateAndSetDefaults.
type Options struct {
	Engine  string           `json:"engine,omitempty"`
	RankDir position.RankDir `json:"rankdir,omitempty"`
	RankSep float64          `json:"ranksep,omitempty"`
	NodeSep float64          `json:"nodesep,omitempty"`

	// Ranking
	Ranking     rank.Mode `json:"ranking,omitempty"`
	RankMaxIter int       `json:"rank_max_iter,omitempty"`
	NoBalance   bool      `json:"no_balance,omitempty"`

	// Ordering
	OrderMaxIter int `json:"order_max_iter,omitempty"`
	OrderMinQuit int `json:"order_min_quit,omitempty"`

	// Positioning
	Positioning        position.Strategy `json:"positioning,omitempty"`
	PositionMaxIter    int               `json:"position_max_iter,omitempty"`
	PriorityIterations int               `json:"priority_iterations,omitempty"`

	// Routing
	Splines   spline.Mode `json:"splines,omitempty"`
	ArrowSize float64     `json:"arrow_size,omitempty"`
	MultiSep  float64     `json:"multisep,omitempty"`
	LoopSize  float64     `json:"loop_size,omitempty"`

	// Parallel is the number of sibling clusters laid out concurrently.
	// Values below 2 lay clusters out one after another.
	Parallel int `json:"parallel,omitempty"`

	// Runtime options (not serialized)
	Logger  *log.Logger      `json:"-"`
	Orderer ordering.Orderer `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks every field and fills in defaults. It is
// idempotent. Errors carry INVALID_CONFIG, or NUMERIC_OVERFLOW for
// separations beyond the supported coordinate range.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if o.Engine == "" {
		o.Engine = DefaultEngine
	}
	if !o.RankDir.Valid() {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid rankdir %q (want TB, LR, BT or RL)", o.RankDir)
	}
	if o.RankDir == "" {
		o.RankDir = position.RankDirTB
	}

	if err := checkDistance("ranksep", &o.RankSep, DefaultRankSep); err != nil {
		return err
	}
	if err := checkDistance("nodesep", &o.NodeSep, DefaultNodeSep); err != nil {
		return err
	}
	if err := checkDistance("arrow size", &o.ArrowSize, spline.DefaultArrowSize); err != nil {
		return err
	}
	if err := checkDistance("multisep", &o.MultiSep, spline.DefaultMultiSep); err != nil {
		return err
	}
	if err := checkDistance("loop size", &o.LoopSize, position.DefaultLoopSize); err != nil {
		return err
	}

	switch o.Ranking {
	case "":
		o.Ranking = rank.ModeSimplex
	case rank.ModeSimplex, rank.ModeLongestPath:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "invalid ranking %q", o.Ranking)
	}

	switch o.Positioning {
	case "":
		o.Positioning = position.StrategySimplex
	case position.StrategySimplex, position.StrategyPriority:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "invalid positioning %q", o.Positioning)
	}

	if !o.Splines.Valid() {
		return errors.New(errors.ErrCodeInvalidConfig, "invalid splines mode %q", o.Splines)
	}
	if o.Splines == "" {
		o.Splines = spline.ModeSpline
	}

	for _, c := range []struct {
		name string
		v    int
	}{
		{"rank_max_iter", o.RankMaxIter},
		{"order_max_iter", o.OrderMaxIter},
		{"order_min_quit", o.OrderMinQuit},
		{"position_max_iter", o.PositionMaxIter},
		{"priority_iterations", o.PriorityIterations},
		{"parallel", o.Parallel},
	} {
		if c.v < 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "%s must not be negative (got %d)", c.name, c.v)
		}
	}

	o.validated = true
	return nil
}

// checkDistance replaces a zero distance with def and rejects negative,
// non-finite or oversized values.
func checkDistance(name string, v *float64, def float64) error {
	switch {
	case math.IsNaN(*v) || math.IsInf(*v, 0) || *v > errors.MaxNodeSize:
		return errors.New(errors.ErrCodeNumericOverflow, "%s %g is out of range", name, *v)
	case *v < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "%s must not be negative (got %g)", name, *v)
	case *v == 0:
		*v = def
	}
	return nil
}

func (o *Options) orderer(logger *log.Logger) ordering.Orderer {
	if o.Orderer != nil {
		return o.Orderer
	}
	return &ordering.Median{MaxIter: o.OrderMaxIter, MinQuit: o.OrderMinQuit, Logger: logger}
}
