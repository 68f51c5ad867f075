package ordering

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/stratum/pkg/dag"
)

// Orderer assigns Node.Order within every rank of a ranked, expanded graph
// so that each rank's orders form a permutation of 0..n-1.
type Orderer interface {
	Order(g *dag.Graph) (*Result, error)
}

// Result summarizes an ordering run.
type Result struct {
	// Initial is the crossing count of the best starting order.
	Initial int
	// Crossings is the crossing count of the committed order.
	Crossings int
	// Iterations is the number of median+transpose steps performed.
	Iterations int
}

// Default limits, taken as the documented tuning constants of the median
// heuristic.
const (
	DefaultMaxIter     = 24
	DefaultMinQuit     = 8
	DefaultConvergence = 0.995

	// initialPassIter bounds the iterations spent polishing each of the two
	// starting orders before the main pass.
	initialPassIter = 4
)

// Median is the median + transpose orderer.
type Median struct {
	// MaxIter bounds the iterations of the main pass (0 = DefaultMaxIter).
	MaxIter int
	// MinQuit stops a pass after this many iterations without a
	// significant improvement (0 = DefaultMinQuit).
	MinQuit int
	// Convergence is the ratio below which an improvement resets the
	// MinQuit counter (0 = DefaultConvergence).
	Convergence float64
	Logger      *log.Logger
}

// New returns a Median orderer with default limits.
func New(logger *log.Logger) *Median {
	return &Median{Logger: logger}
}

func (m *Median) maxIter() int {
	if m.MaxIter > 0 {
		return m.MaxIter
	}
	return DefaultMaxIter
}

func (m *Median) minQuit() int {
	if m.MinQuit > 0 {
		return m.MinQuit
	}
	return DefaultMinQuit
}

func (m *Median) convergence() float64 {
	if m.Convergence > 0 && m.Convergence <= 1 {
		return m.Convergence
	}
	return DefaultConvergence
}
