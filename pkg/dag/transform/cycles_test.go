package transform

import (
	"testing"

	"github.com/matzehuels/stratum/pkg/dag"
)

type testGraph struct {
	t *testing.T
	g *dag.Graph
}

func newTestGraph(t *testing.T, names ...string) *testGraph {
	t.Helper()
	g := dag.New(nil)
	for _, n := range names {
		if _, err := g.AddNode(dag.Node{Name: n, Width: 10, Height: 10}); err != nil {
			t.Fatalf("AddNode(%q): %v", n, err)
		}
	}
	return &testGraph{t: t, g: g}
}

func (tg *testGraph) id(name string) dag.NodeID {
	id, ok := tg.g.NodeByName(name)
	if !ok {
		tg.t.Fatalf("unknown node %q", name)
	}
	return id
}

func (tg *testGraph) edge(from, to string) dag.EdgeID {
	id, err := tg.g.AddEdge(dag.Edge{From: tg.id(from), To: tg.id(to), Weight: 1, Minlen: 1, Constraint: true})
	if err != nil {
		tg.t.Fatalf("AddEdge(%s, %s): %v", from, to, err)
	}
	return id
}

func reversedEdges(g *dag.Graph) []string {
	var res []string
	for _, e := range g.Edges() {
		if e.Reversed {
			res = append(res, g.EdgeName(e.ID))
		}
	}
	return res
}

func TestAcyclify_NoCycles(t *testing.T) {
	tg := newTestGraph(t, "a", "b", "c", "d")
	tg.edge("a", "b")
	tg.edge("a", "c")
	tg.edge("b", "d")
	tg.edge("c", "d")

	if got := Acyclify(tg.g); got != 0 {
		t.Errorf("Acyclify() reversed %d edges, want 0", got)
	}
	if err := tg.g.CheckAcyclic(); err != nil {
		t.Errorf("CheckAcyclic() = %v", err)
	}
}

func TestAcyclify_SimpleCycle(t *testing.T) {
	tg := newTestGraph(t, "a", "b")
	tg.edge("a", "b")
	tg.edge("b", "a")

	if got := Acyclify(tg.g); got != 1 {
		t.Errorf("Acyclify() reversed %d edges, want 1", got)
	}
	if tg.g.EdgeCount() != 2 {
		t.Errorf("EdgeCount() = %d, want 2 (edges are never removed)", tg.g.EdgeCount())
	}
	if got := reversedEdges(tg.g); len(got) != 1 || got[0] != "b->a" {
		t.Errorf("reversed = %v, want [b->a]", got)
	}
}

func TestAcyclify_TriangleCycle(t *testing.T) {
	tg := newTestGraph(t, "a", "b", "c")
	tg.edge("a", "b")
	tg.edge("b", "c")
	tg.edge("c", "a")

	if got := Acyclify(tg.g); got != 1 {
		t.Errorf("Acyclify() reversed %d edges, want 1", got)
	}
	if err := tg.g.CheckAcyclic(); err != nil {
		t.Errorf("CheckAcyclic() = %v", err)
	}
}

func TestAcyclify_SelfLoopAndMultiEdge(t *testing.T) {
	tg := newTestGraph(t, "a", "b")
	tg.edge("a", "a")
	tg.edge("a", "b")
	tg.edge("a", "b")
	tg.edge("b", "a")
	tg.edge("b", "a")

	if got := Acyclify(tg.g); got != 2 {
		t.Errorf("Acyclify() reversed %d edges, want 2", got)
	}
	if tg.g.Edge(0).Reversed {
		t.Error("self-loop must not be reversed")
	}
	if err := tg.g.CheckAcyclic(); err != nil {
		t.Errorf("CheckAcyclic() = %v", err)
	}
}

func TestAcyclify_IgnoresNonConstraint(t *testing.T) {
	tg := newTestGraph(t, "a", "b")
	tg.edge("a", "b")
	_, _ = tg.g.AddEdge(dag.Edge{From: tg.id("b"), To: tg.id("a"), Weight: 1, Minlen: 1})

	if got := Acyclify(tg.g); got != 0 {
		t.Errorf("Acyclify() reversed %d edges, want 0", got)
	}
}

func TestAcyclify_ClearsPreviousFlags(t *testing.T) {
	tg := newTestGraph(t, "a", "b")
	id := tg.edge("a", "b")
	tg.g.Edge(id).Reversed = true

	if got := Acyclify(tg.g); got != 0 {
		t.Errorf("Acyclify() reversed %d edges, want 0", got)
	}
	if tg.g.Edge(id).Reversed {
		t.Error("stale Reversed flag not cleared")
	}
}

func TestAcyclify_Deterministic(t *testing.T) {
	build := func() *dag.Graph {
		tg := newTestGraph(t, "a", "b", "c", "d", "e")
		tg.edge("a", "b")
		tg.edge("b", "c")
		tg.edge("c", "a")
		tg.edge("c", "d")
		tg.edge("d", "e")
		tg.edge("e", "b")
		return tg.g
	}
	g1, g2 := build(), build()
	Acyclify(g1)
	Acyclify(g2)
	r1, r2 := reversedEdges(g1), reversedEdges(g2)
	if len(r1) != len(r2) {
		t.Fatalf("runs differ: %v vs %v", r1, r2)
	}
	for i := range r1 {
		if r1[i] != r2[i] {
			t.Errorf("runs differ: %v vs %v", r1, r2)
		}
	}
}

func TestAcyclify_RankSets(t *testing.T) {
	tests := []struct {
		name string
		kind dag.RankKind
		set  []string
		want []string
	}{
		{"edge into min set", dag.RankMin, []string{"a"}, []string{"b->a"}},
		{"edge into source set", dag.RankSource, []string{"a"}, []string{"b->a"}},
		{"edge out of max set", dag.RankMax, []string{"b"}, []string{"b->a"}},
		{"same set is flat", dag.RankSame, []string{"a", "b"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := newTestGraph(t, "a", "b", "c")
			tg.edge("b", "a")
			tg.edge("c", "b")
			var ids []dag.NodeID
			for _, n := range tt.set {
				ids = append(ids, tg.id(n))
			}
			_ = tg.g.AddRankConstraint(tt.kind, ids)

			Acyclify(tg.g)

			got := reversedEdges(tg.g)
			if tt.kind == dag.RankMax {
				// c->b enters the max set and may stay; only b->a must flip
				got = filter(got, "b->a")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("reversed = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("reversed = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func filter(list []string, keep string) []string {
	var res []string
	for _, s := range list {
		if s == keep {
			res = append(res, s)
		}
	}
	return res
}

func TestRankSets(t *testing.T) {
	tg := newTestGraph(t, "a", "b", "c", "d", "e")
	_ = tg.g.AddRankConstraint(dag.RankSame, []dag.NodeID{tg.id("c"), tg.id("b")})
	_ = tg.g.AddRankConstraint(dag.RankMin, []dag.NodeID{tg.id("d")})
	_ = tg.g.AddRankConstraint(dag.RankSource, []dag.NodeID{tg.id("e")})

	s := NewRankSets(tg.g)
	if s.Find(tg.id("c")) != tg.id("b") {
		t.Errorf("Find(c) = %d, want b", s.Find(tg.id("c")))
	}
	if s.Find(tg.id("e")) != tg.id("d") {
		t.Errorf("min and source sets not merged")
	}
	if got := s.Kind(tg.id("d")); got != dag.RankSource {
		t.Errorf("Kind(min+source) = %q, want source", got)
	}
	if !s.IsMin(tg.id("d")) || s.IsMax(tg.id("d")) {
		t.Error("IsMin/IsMax wrong for merged set")
	}
	if s.Kind(tg.id("a")) != "" {
		t.Errorf("Kind(a) = %q, want empty", s.Kind(tg.id("a")))
	}
	members := s.Members()
	if len(members[tg.id("b")]) != 2 {
		t.Errorf("Members(b) = %v, want 2 nodes", members[tg.id("b")])
	}
}
