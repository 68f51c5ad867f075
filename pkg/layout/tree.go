package layout

import (
	"slices"

	"github.com/matzehuels/stratum/pkg/dag"
)

// tree indexes a validated graph by cluster. Every slice is indexed by
// slot(c) so that the root (dag.NoCluster) has slot 0. All lists are in
// ID order.
type tree struct {
	children [][]dag.ClusterID
	direct   [][]dag.NodeID         // nodes whose innermost cluster is c
	owned    [][]dag.EdgeID         // edges whose endpoints' common cluster is c
	ranks    [][]dag.RankConstraint // constraints whose members' common cluster is c

	// Subtree contents, used to translate a finished cluster.
	nodes    [][]dag.NodeID
	edges    [][]dag.EdgeID
	clusters [][]dag.ClusterID // strict descendants
}

func slot(c dag.ClusterID) int { return int(c) + 1 }

func newTree(g *dag.Graph) *tree {
	n := g.ClusterCount() + 1
	t := &tree{
		children: make([][]dag.ClusterID, n),
		direct:   make([][]dag.NodeID, n),
		owned:    make([][]dag.EdgeID, n),
		ranks:    make([][]dag.RankConstraint, n),
		nodes:    make([][]dag.NodeID, n),
		edges:    make([][]dag.EdgeID, n),
		clusters: make([][]dag.ClusterID, n),
	}

	for _, c := range g.Clusters() {
		t.children[slot(c.Parent)] = append(t.children[slot(c.Parent)], c.ID)
		for a := c.Parent; ; a = g.Cluster(a).Parent {
			t.clusters[slot(a)] = append(t.clusters[slot(a)], c.ID)
			if a == dag.NoCluster {
				break
			}
		}
	}

	for _, nd := range g.Nodes() {
		t.direct[slot(nd.Cluster)] = append(t.direct[slot(nd.Cluster)], nd.ID)
		t.eachAncestor(g, nd.Cluster, func(a dag.ClusterID) {
			t.nodes[slot(a)] = append(t.nodes[slot(a)], nd.ID)
		})
	}

	for _, e := range g.Edges() {
		owner := g.CommonCluster(g.Node(e.From).Cluster, g.Node(e.To).Cluster)
		t.owned[slot(owner)] = append(t.owned[slot(owner)], e.ID)
		t.eachAncestor(g, owner, func(a dag.ClusterID) {
			t.edges[slot(a)] = append(t.edges[slot(a)], e.ID)
		})
	}

	for _, rc := range g.RankConstraints() {
		owner := g.Node(rc.Nodes[0]).Cluster
		for _, id := range rc.Nodes[1:] {
			owner = g.CommonCluster(owner, g.Node(id).Cluster)
		}
		t.ranks[slot(owner)] = append(t.ranks[slot(owner)], rc)
	}
	return t
}

// eachAncestor calls fn for c and every cluster above it, ending with the
// root.
func (t *tree) eachAncestor(g *dag.Graph, c dag.ClusterID, fn func(dag.ClusterID)) {
	for {
		fn(c)
		if c == dag.NoCluster {
			return
		}
		c = g.Cluster(c).Parent
	}
}

// level is the graph laid out for one cluster, together with the mapping
// back to the input graph.
type level struct {
	g       *dag.Graph
	cluster dag.ClusterID
	node    []dag.NodeID // level node -> input node, NoNode for skeletons
	edge    []dag.EdgeID // level edge -> input edge
	rep     map[dag.NodeID]dag.NodeID
	skel    map[dag.ClusterID]dag.NodeID
}

// buildLevel assembles the level graph of c. Child clusters must be laid
// out already: their boxes size the skeleton nodes.
func buildLevel(g *dag.Graph, t *tree, c dag.ClusterID) (*level, error) {
	lv := &level{
		g:       dag.New(nil),
		cluster: c,
		rep:     make(map[dag.NodeID]dag.NodeID),
		skel:    make(map[dag.ClusterID]dag.NodeID),
	}

	for _, id := range t.direct[slot(c)] {
		n := g.Node(id)
		lid, err := lv.g.AddNode(dag.Node{Name: n.Name, Width: n.Width, Height: n.Height, Shape: n.Shape})
		if err != nil {
			return nil, err
		}
		lv.rep[id] = lid
		lv.node = append(lv.node, id)
	}
	for _, k := range t.children[slot(c)] {
		box := g.Cluster(k).Box
		lid, err := lv.g.AddNode(dag.Node{
			Kind:     dag.NodeKindSkeleton,
			Width:    box.Width(),
			Height:   box.Height(),
			Skeleton: k,
		})
		if err != nil {
			return nil, err
		}
		lv.skel[k] = lid
		lv.node = append(lv.node, dag.NoNode)
	}

	for _, id := range t.owned[slot(c)] {
		e := g.Edge(id)
		if _, err := lv.g.AddEdge(dag.Edge{
			From:       lv.resolve(g, e.From),
			To:         lv.resolve(g, e.To),
			Weight:     e.Weight,
			Minlen:     e.Minlen,
			Constraint: e.Constraint,
			Dir:        e.Dir,
		}); err != nil {
			return nil, err
		}
		lv.edge = append(lv.edge, id)
	}

	for _, rc := range t.ranks[slot(c)] {
		var members []dag.NodeID
		for _, id := range rc.Nodes {
			if r := lv.resolve(g, id); !slices.Contains(members, r) {
				members = append(members, r)
			}
		}
		if err := lv.g.AddRankConstraint(rc.Kind, members); err != nil {
			return nil, err
		}
	}
	return lv, nil
}

// resolve returns the level node standing for input node id: the node
// itself when it is a direct member, otherwise the skeleton of the child
// cluster containing it.
func (lv *level) resolve(g *dag.Graph, id dag.NodeID) dag.NodeID {
	cl := g.Node(id).Cluster
	if cl == lv.cluster {
		return lv.rep[id]
	}
	return lv.skel[g.ChildOnPath(lv.cluster, cl)]
}
