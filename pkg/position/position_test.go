package position

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/errors"
	"github.com/matzehuels/stratum/pkg/geom"
)

type spec struct {
	name    string
	rank    int
	virtual bool
}

// build creates nodes of 54x36 (virtual nodes 0x0) with ranks and orders
// following the slice order, plus unit-weight edges between named nodes.
func build(t *testing.T, nodes []spec, edges [][2]string) *dag.Graph {
	t.Helper()
	g := dag.New(nil)
	orders := map[int]int{}
	for _, s := range nodes {
		n := dag.Node{Name: s.name, Width: 54, Height: 36}
		if s.virtual {
			n = dag.Node{Name: s.name, Kind: dag.NodeKindVirtual}
		}
		id, err := g.AddNode(n)
		if err != nil {
			t.Fatalf("AddNode(%q) error: %v", s.name, err)
		}
		g.Node(id).Rank = s.rank
		g.Node(id).Order = orders[s.rank]
		orders[s.rank]++
	}
	for _, e := range edges {
		from, _ := g.NodeByName(e[0])
		to, _ := g.NodeByName(e[1])
		if _, err := g.AddEdge(dag.Edge{From: from, To: to, Weight: 1, Minlen: 1, Constraint: true}); err != nil {
			t.Fatalf("AddEdge() error: %v", err)
		}
	}
	return g
}

func node(g *dag.Graph, name string) *dag.Node {
	id, _ := g.NodeByName(name)
	return g.Node(id)
}

var strategies = []Strategy{StrategySimplex, StrategyPriority}

func opts(s Strategy) Options {
	return Options{Strategy: s, RankSep: 36, NodeSep: 18}
}

func TestAssign_TwoNodes(t *testing.T) {
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			g := build(t, []spec{{"a", 0, false}, {"b", 1, false}}, [][2]string{{"a", "b"}})
			if _, err := Assign(g, opts(s)); err != nil {
				t.Fatalf("Assign() error: %v", err)
			}
			a, b := node(g, "a"), node(g, "b")
			if a.X != b.X {
				t.Errorf("a.X = %v, b.X = %v, want equal", a.X, b.X)
			}
			if a.Y != 0 || b.Y != 72 {
				t.Errorf("Y = (%v, %v), want (0, 72)", a.Y, b.Y)
			}
		})
	}
}

func TestAssign_StraightChain(t *testing.T) {
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			g := build(t, []spec{
				{"a", 0, false}, {"x", 0, false},
				{"v1", 1, true}, {"y", 1, false},
				{"v2", 2, true}, {"z", 2, false},
				{"d", 3, false},
			}, [][2]string{
				{"a", "v1"}, {"v1", "v2"}, {"v2", "d"},
				{"x", "y"}, {"y", "z"},
			})
			if _, err := Assign(g, opts(s)); err != nil {
				t.Fatalf("Assign() error: %v", err)
			}
			if v1, v2 := node(g, "v1").X, node(g, "v2").X; v1 != v2 {
				t.Errorf("virtual chain bends: v1.X = %v, v2.X = %v", v1, v2)
			}
		})
	}
}

func TestAssign_Diamond(t *testing.T) {
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			g := build(t, []spec{
				{"a", 0, false}, {"b", 1, false}, {"c", 1, false}, {"d", 2, false},
			}, [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}})
			if _, err := Assign(g, opts(s)); err != nil {
				t.Fatalf("Assign() error: %v", err)
			}
			a, b, c, d := node(g, "a"), node(g, "b"), node(g, "c"), node(g, "d")
			if c.X-b.X < 54+18 {
				t.Errorf("b and c too close: %v", c.X-b.X)
			}
			for _, n := range []*dag.Node{a, d} {
				if n.X < b.X || n.X > c.X {
					t.Errorf("%s.X = %v outside [%v, %v]", n.Name, n.X, b.X, c.X)
				}
			}
		})
	}
}

func TestAssign_SelfLoopWidensRightSide(t *testing.T) {
	g := build(t, []spec{{"a", 0, false}, {"b", 0, false}}, nil)
	if _, err := g.AddEdge(dag.Edge{From: 0, To: 0, Weight: 1, Minlen: 1, Constraint: true}); err != nil {
		t.Fatalf("AddEdge() error: %v", err)
	}
	if _, err := Assign(g, opts(StrategySimplex)); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if d := node(g, "b").X - node(g, "a").X; d < 27+DefaultLoopSize+18+27 {
		t.Errorf("distance = %v, want >= %v", d, 27+DefaultLoopSize+18+27)
	}
}

func TestAssign_RankHeights(t *testing.T) {
	g := build(t, []spec{{"a", 0, false}, {"b", 1, false}, {"c", 2, false}}, [][2]string{{"a", "b"}, {"b", "c"}})
	node(g, "b").Height = 100
	if _, err := Assign(g, opts(StrategySimplex)); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if got, want := node(g, "b").Y, 18.0+36+50; got != want {
		t.Errorf("b.Y = %v, want %v", got, want)
	}
	if got, want := node(g, "c").Y, 18.0+36+50+50+36+18; got != want {
		t.Errorf("c.Y = %v, want %v", got, want)
	}
}

func TestAssign_UnknownStrategy(t *testing.T) {
	g := build(t, []spec{{"a", 0, false}}, nil)
	_, err := Assign(g, Options{Strategy: "spring"})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Assign() error = %v, want INVALID_CONFIG", err)
	}
}

func randomRanked(seed int64) ([]spec, [][2]string) {
	rng := rand.New(rand.NewSource(seed))
	var nodes []spec
	byRank := map[int][]string{}
	for r := 0; r < 4; r++ {
		for i := 0; i < 1+rng.Intn(5); i++ {
			name := fmt.Sprintf("n%d_%d", r, i)
			nodes = append(nodes, spec{name, r, rng.Intn(4) == 0})
			byRank[r] = append(byRank[r], name)
		}
	}
	var edges [][2]string
	for r := 0; r < 3; r++ {
		for _, u := range byRank[r] {
			for _, v := range byRank[r+1] {
				if rng.Intn(2) == 0 {
					edges = append(edges, [2]string{u, v})
				}
			}
		}
	}
	return nodes, edges
}

func TestAssign_SeparationAndDeterminism(t *testing.T) {
	for _, s := range strategies {
		for seed := int64(1); seed <= 20; seed++ {
			t.Run(fmt.Sprintf("%s/seed%d", s, seed), func(t *testing.T) {
				nodes, edges := randomRanked(seed)
				g1 := build(t, nodes, edges)
				if _, err := Assign(g1, opts(s)); err != nil {
					t.Fatalf("Assign() error: %v", err)
				}
				for _, l := range g1.Layers() {
					for i := 0; i+1 < len(l); i++ {
						u, v := g1.Node(l[i]), g1.Node(l[i+1])
						if need := u.Width/2 + v.Width/2 + 18; v.X-u.X < need-1e-6 {
							t.Errorf("%s-%s distance %v < %v", u.Name, v.Name, v.X-u.X, need)
						}
					}
				}

				g2 := build(t, nodes, edges)
				if _, err := Assign(g2, opts(s)); err != nil {
					t.Fatalf("Assign() error: %v", err)
				}
				for i, n := range g1.Nodes() {
					if m := g2.Nodes()[i]; math.Float64bits(n.X) != math.Float64bits(m.X) || n.Y != m.Y {
						t.Fatalf("node %s: (%v,%v) vs (%v,%v)", n.Name, n.X, n.Y, m.X, m.Y)
					}
				}
			})
		}
	}
}

func TestRotate(t *testing.T) {
	tests := []struct {
		dir        RankDir
		wantCenter geom.Point
		wantSize   [2]float64
	}{
		{RankDirTB, geom.Pt(10, 30), [2]float64{20, 40}},
		{RankDirBT, geom.Pt(10, 70), [2]float64{20, 40}},
		{RankDirLR, geom.Pt(30, 10), [2]float64{40, 20}},
		{RankDirRL, geom.Pt(70, 10), [2]float64{40, 20}},
	}
	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			g := dag.New(nil)
			id, _ := g.AddNode(dag.Node{Name: "a", Width: 20, Height: 40})
			n := g.Node(id)
			n.X, n.Y = 10, 30
			bounds := geom.Box{Left: 0, Top: 0, Right: 50, Bottom: 100}

			got := Rotate(g, tt.dir, bounds)
			if n.Center() != tt.wantCenter {
				t.Errorf("center = %v, want %v", n.Center(), tt.wantCenter)
			}
			if n.Width != tt.wantSize[0] || n.Height != tt.wantSize[1] {
				t.Errorf("size = %vx%v, want %vx%v", n.Width, n.Height, tt.wantSize[0], tt.wantSize[1])
			}
			if tt.dir.Transposed() && (got.Width() != 100 || got.Height() != 50) {
				t.Errorf("bounds = %+v, want 100x50", got)
			}
		})
	}
}

func TestRankDir_Valid(t *testing.T) {
	for _, d := range []RankDir{"", RankDirTB, RankDirLR, RankDirBT, RankDirRL} {
		if !d.Valid() {
			t.Errorf("RankDir(%q).Valid() = false", d)
		}
	}
	if RankDir("XY").Valid() {
		t.Error(`RankDir("XY").Valid() = true`)
	}
}
