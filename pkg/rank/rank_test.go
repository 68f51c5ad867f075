package rank

import (
	"math/rand"
	"testing"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/dag/transform"
	"github.com/matzehuels/stratum/pkg/errors"
)

type builder struct {
	t *testing.T
	g *dag.Graph
}

func newBuilder(t *testing.T, names ...string) *builder {
	t.Helper()
	b := &builder{t: t, g: dag.New(nil)}
	for _, n := range names {
		if _, err := b.g.AddNode(dag.Node{Name: n, Width: 54, Height: 36}); err != nil {
			t.Fatal(err)
		}
	}
	return b
}

func (b *builder) id(name string) dag.NodeID {
	id, ok := b.g.NodeByName(name)
	if !ok {
		b.t.Fatalf("unknown node %q", name)
	}
	return id
}

func (b *builder) edge(from, to string, weight, minlen int) dag.EdgeID {
	id, err := b.g.AddEdge(dag.Edge{From: b.id(from), To: b.id(to), Weight: weight, Minlen: minlen, Constraint: true})
	if err != nil {
		b.t.Fatal(err)
	}
	return id
}

func (b *builder) rank(name string) int { return b.g.Node(b.id(name)).Rank }

func checkMinlen(t *testing.T, g *dag.Graph) {
	t.Helper()
	for _, e := range g.Edges() {
		if !e.Constraint || e.IsSelfLoop() {
			continue
		}
		if span := g.Span(e.ID); span < e.Minlen {
			t.Errorf("edge %s spans %d ranks, minlen %d", g.EdgeName(e.ID), span, e.Minlen)
		}
	}
}

func TestAssign_TwoNodes(t *testing.T) {
	b := newBuilder(t, "a", "b")
	b.edge("a", "b", 1, 1)

	res, err := Assign(b.g, Options{})
	if err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if b.rank("a") != 0 || b.rank("b") != 1 {
		t.Errorf("ranks = %d,%d want 0,1", b.rank("a"), b.rank("b"))
	}
	if res.Ranks != 2 {
		t.Errorf("Ranks = %d, want 2", res.Ranks)
	}
}

func TestAssign_ThreeCycle(t *testing.T) {
	b := newBuilder(t, "A", "B", "C")
	b.edge("A", "B", 1, 1)
	b.edge("B", "C", 1, 1)
	b.edge("C", "A", 1, 1)

	if n := transform.Acyclify(b.g); n != 1 {
		t.Fatalf("Acyclify() = %d, want 1", n)
	}
	if _, err := Assign(b.g, Options{}); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	seen := map[int]bool{}
	for _, n := range []string{"A", "B", "C"} {
		seen[b.rank(n)] = true
	}
	if len(seen) != 3 {
		t.Errorf("ranks not distinct: A=%d B=%d C=%d", b.rank("A"), b.rank("B"), b.rank("C"))
	}
	checkMinlen(t, b.g)
}

func TestAssign_Diamond(t *testing.T) {
	b := newBuilder(t, "A", "B", "C", "D")
	b.edge("A", "B", 1, 1)
	b.edge("A", "C", 1, 1)
	b.edge("B", "D", 1, 1)
	b.edge("C", "D", 1, 1)

	if _, err := Assign(b.g, Options{Balance: true}); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if b.rank("B") != b.rank("C") {
		t.Errorf("B=%d C=%d, want equal", b.rank("B"), b.rank("C"))
	}
	if got := b.rank("D") - b.rank("A"); got != 2 {
		t.Errorf("rank(D)-rank(A) = %d, want 2", got)
	}
}

func TestAssign_Infeasible(t *testing.T) {
	b := newBuilder(t, "a", "b")
	b.edge("a", "b", 1, 1)
	b.edge("b", "a", 1, 1)

	_, err := Assign(b.g, Options{})
	if !errors.Is(err, errors.ErrCodeInfeasible) {
		t.Errorf("Assign() error = %v, want INFEASIBLE_CONSTRAINTS", err)
	}
}

func TestAssign_IgnoresNonConstraint(t *testing.T) {
	b := newBuilder(t, "a", "b")
	_, _ = b.g.AddEdge(dag.Edge{From: b.id("a"), To: b.id("b"), Weight: 1, Minlen: 3})

	if _, err := Assign(b.g, Options{}); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if b.rank("a") != 0 || b.rank("b") != 0 {
		t.Errorf("ranks = %d,%d want 0,0", b.rank("a"), b.rank("b"))
	}
}

func TestAssign_MultiEdgeMerge(t *testing.T) {
	b := newBuilder(t, "a", "b")
	b.edge("a", "b", 1, 1)
	b.edge("a", "b", 1, 3)

	if _, err := Assign(b.g, Options{}); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if got := b.rank("b") - b.rank("a"); got != 3 {
		t.Errorf("span = %d, want 3 (largest minlen)", got)
	}
}

func TestAssign_RankConstraints(t *testing.T) {
	tests := []struct {
		name  string
		kind  dag.RankKind
		nodes []string
		check func(b *builder) bool
	}{
		{
			name:  "same",
			kind:  dag.RankSame,
			nodes: []string{"b", "d"},
			check: func(b *builder) bool { return b.rank("b") == b.rank("d") },
		},
		{
			name:  "min",
			kind:  dag.RankMin,
			nodes: []string{"d"},
			check: func(b *builder) bool { return b.rank("d") == 0 },
		},
		{
			name:  "source",
			kind:  dag.RankSource,
			nodes: []string{"d"},
			check: func(b *builder) bool {
				return b.rank("d") == 0 && b.rank("a") > 0 && b.rank("b") > 0 && b.rank("c") > 0
			},
		},
		{
			name:  "max",
			kind:  dag.RankMax,
			nodes: []string{"a"},
			check: func(b *builder) bool {
				return b.rank("a") >= b.rank("b") && b.rank("a") >= b.rank("c") && b.rank("a") >= b.rank("d")
			},
		},
		{
			name:  "sink",
			kind:  dag.RankSink,
			nodes: []string{"b"},
			check: func(b *builder) bool {
				return b.rank("b") > b.rank("a") && b.rank("b") > b.rank("c") && b.rank("b") > b.rank("d")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuilder(t, "a", "b", "c", "d")
			b.edge("a", "b", 1, 1)
			b.edge("b", "c", 1, 1)
			b.edge("c", "d", 1, 1)
			var ids []dag.NodeID
			for _, n := range tt.nodes {
				ids = append(ids, b.id(n))
			}
			_ = b.g.AddRankConstraint(tt.kind, ids)

			transform.Acyclify(b.g)
			if _, err := Assign(b.g, Options{}); err != nil {
				t.Fatalf("Assign() error: %v", err)
			}
			if !tt.check(b) {
				t.Errorf("constraint violated: a=%d b=%d c=%d d=%d",
					b.rank("a"), b.rank("b"), b.rank("c"), b.rank("d"))
			}
		})
	}
}

func TestAssign_LongestPath(t *testing.T) {
	b := newBuilder(t, "a", "b", "c")
	b.edge("b", "c", 1, 1)
	b.edge("a", "c", 1, 2)

	res, err := Assign(b.g, Options{Mode: ModeLongestPath})
	if err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if res.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0", res.Iterations)
	}
	if b.rank("a") != 0 || b.rank("b") != 0 || b.rank("c") != 2 {
		t.Errorf("ranks = %d,%d,%d want 0,0,2", b.rank("a"), b.rank("b"), b.rank("c"))
	}
}

func cost(g *dag.Graph, ranks []int) int64 {
	var c int64
	for _, e := range g.Edges() {
		if e.Constraint && !e.IsSelfLoop() {
			c += int64(e.Weight) * int64(ranks[e.Dst()]-ranks[e.Src()])
		}
	}
	return c
}

func feasible(g *dag.Graph, ranks []int) bool {
	for _, e := range g.Edges() {
		if e.Constraint && !e.IsSelfLoop() && ranks[e.Dst()]-ranks[e.Src()] < e.Minlen {
			return false
		}
	}
	return true
}

func TestAssign_OptimalByExhaustiveSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	names := []string{"a", "b", "c", "d", "e"}
	for trial := 0; trial < 20; trial++ {
		b := newBuilder(t, names...)
		k := 0
		for i := 0; i < 6; i++ {
			u, v := rng.Intn(len(names)), rng.Intn(len(names))
			if u == v {
				continue
			}
			minlen := rng.Intn(2)
			k += minlen
			b.edge(names[u], names[v], rng.Intn(3), minlen)
		}
		transform.Acyclify(b.g)

		if _, err := Assign(b.g, Options{}); err != nil {
			t.Fatalf("trial %d: Assign() error: %v", trial, err)
		}
		checkMinlen(t, b.g)

		got := make([]int, len(names))
		for i := range names {
			got[i] = b.g.Node(dag.NodeID(i)).Rank
		}
		gotCost := cost(b.g, got)

		best := int64(-1)
		ranks := make([]int, len(names))
		var rec func(i int)
		rec = func(i int) {
			if i == len(ranks) {
				if feasible(b.g, ranks) {
					if c := cost(b.g, ranks); best < 0 || c < best {
						best = c
					}
				}
				return
			}
			for r := 0; r <= k; r++ {
				ranks[i] = r
				rec(i + 1)
			}
		}
		rec(0)

		if gotCost != best {
			t.Errorf("trial %d: cost %d, exhaustive optimum %d", trial, gotCost, best)
		}
	}
}
