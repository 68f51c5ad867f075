package transform_test

import (
	"fmt"

	"github.com/matzehuels/stratum/pkg/dag"
	"github.com/matzehuels/stratum/pkg/dag/transform"
)

func ExampleAcyclify() {
	g := dag.New(nil)
	a, _ := g.AddNode(dag.Node{Name: "a"})
	b, _ := g.AddNode(dag.Node{Name: "b"})
	c, _ := g.AddNode(dag.Node{Name: "c"})
	_, _ = g.AddEdge(dag.Edge{From: a, To: b, Constraint: true})
	_, _ = g.AddEdge(dag.Edge{From: b, To: c, Constraint: true})
	back, _ := g.AddEdge(dag.Edge{From: c, To: a, Constraint: true})

	fmt.Println("reversed:", transform.Acyclify(g))
	fmt.Println("back edge:", g.Edge(back).Reversed)
	// Output:
	// reversed: 1
	// back edge: true
}

func ExampleExpand() {
	g := dag.New(nil)
	app, _ := g.AddNode(dag.Node{Name: "app"})
	core, _ := g.AddNode(dag.Node{Name: "core", Rank: 3})
	id, _ := g.AddEdge(dag.Edge{From: app, To: core, Weight: 1, Minlen: 1, Constraint: true})

	created, _ := transform.Expand(g, transform.ExpandOptions{})
	fmt.Println("virtual nodes:", created)
	fmt.Println("chain length:", len(g.Edge(id).Chain))
	// Output:
	// virtual nodes: 2
	// chain length: 2
}
