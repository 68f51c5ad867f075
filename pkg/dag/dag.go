package dag

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/stratum/pkg/geom"
)

var (
	// ErrInvalidNodeName is returned by [Graph.AddNode] when a real node has
	// an empty name. Virtual and skeleton nodes are named automatically.
	ErrInvalidNodeName = errors.New("node name must not be empty")

	// ErrDuplicateNodeName is returned by [Graph.AddNode] when a node with the
	// same name already exists in the graph.
	ErrDuplicateNodeName = errors.New("duplicate node name")

	// ErrDuplicateCluster is returned by [Graph.AddCluster] when the cluster
	// name is already in use.
	ErrDuplicateCluster = errors.New("duplicate cluster name")

	// ErrUnknownNode is returned when a NodeID does not refer to a node of
	// the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownCluster is returned when a ClusterID does not refer to a
	// cluster of the graph.
	ErrUnknownCluster = errors.New("unknown cluster")

	// ErrClusterCycle is returned by [Graph.Validate] when following parent
	// links from a cluster leads back to the cluster itself.
	ErrClusterCycle = errors.New("cluster contains itself")

	// ErrClusterConflict is returned by [Graph.Validate] when a node was
	// added to two clusters where neither contains the other.
	ErrClusterConflict = errors.New("node belongs to unrelated clusters")

	// ErrNegativeWeight is returned by [Graph.Validate] for an edge with
	// weight < 0.
	ErrNegativeWeight = errors.New("negative edge weight")

	// ErrNegativeMinlen is returned by [Graph.Validate] for an edge with
	// minlen < 0.
	ErrNegativeMinlen = errors.New("negative edge minlen")

	// ErrGraphHasCycle is returned by [Graph.CheckAcyclic] when the
	// layout-oriented constraint edges contain a directed cycle.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Metadata stores arbitrary key-value pairs attached to nodes, edges,
// clusters or the graph. Metadata maps are never nil after insertion.
type Metadata map[string]any

// NodeID, EdgeID and ClusterID are stable indices into the graph's arenas.
type (
	NodeID    int
	EdgeID    int
	ClusterID int
)

const (
	// NoNode is the null NodeID.
	NoNode NodeID = -1
	// NoEdge is the null EdgeID.
	NoEdge EdgeID = -1
	// NoCluster is the root of the cluster tree: a node whose Cluster is
	// NoCluster belongs to no cluster.
	NoCluster ClusterID = -1
)

// NodeKind distinguishes input nodes from nodes synthesized during layout.
type NodeKind int

const (
	// NodeKindReal is a node from the input graph.
	NodeKindReal NodeKind = iota
	// NodeKindVirtual is one rank of a long edge. Its Origin links back to
	// the edge it belongs to.
	NodeKindVirtual
	// NodeKindSkeleton stands in for an already laid-out cluster. Its
	// Skeleton field names the cluster and its size is the cluster's box.
	NodeKindSkeleton
)

func (k NodeKind) String() string {
	switch k {
	case NodeKindReal:
		return "real"
	case NodeKindVirtual:
		return "virtual"
	case NodeKindSkeleton:
		return "skeleton"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is a vertex of the layout graph.
//
// Rank, Order, X and Y are outputs. X and Y are the center of the node.
// During layout Rank and Order index the node's level graph; a finished
// layout leaves Rank numbered across the whole drawing.
type Node struct {
	ID       NodeID
	Name     string
	Kind     NodeKind
	Width    float64
	Height   float64
	Shape    geom.Shape
	Cluster  ClusterID // innermost owning cluster, set by Validate
	Rank     int
	Order    int
	X, Y     float64
	Origin   EdgeID    // virtual nodes: the edge this node belongs to
	Skeleton ClusterID // skeleton nodes: the cluster represented
	Meta     Metadata
}

// IsVirtual reports whether n was inserted for a long edge.
func (n *Node) IsVirtual() bool { return n.Kind == NodeKindVirtual }

// IsSkeleton reports whether n stands in for a cluster.
func (n *Node) IsSkeleton() bool { return n.Kind == NodeKindSkeleton }

// Box returns the node's bounding box at its current position.
func (n *Node) Box() geom.Box { return geom.BoxAt(geom.Pt(n.X, n.Y), n.Width, n.Height) }

// Center returns the node's position.
func (n *Node) Center() geom.Point { return geom.Pt(n.X, n.Y) }

// EdgeKind distinguishes input edges from chain segments.
type EdgeKind int

const (
	// EdgeKindReal is an edge from the input graph.
	EdgeKindReal EdgeKind = iota
	// EdgeKindSegment is a unit-span piece of a long edge's virtual chain.
	EdgeKindSegment
)

// Dir selects which ends of an edge carry an arrowhead.
type Dir string

const (
	DirForward Dir = "forward"
	DirBack    Dir = "back"
	DirBoth    Dir = "both"
	DirNone    Dir = "none"
)

// Edge is a directed edge. From and To keep the input orientation for the
// whole lifetime of the graph; the layout orientation is given by Src and
// Dst, which swap the endpoints of reversed edges.
type Edge struct {
	ID         EdgeID
	From, To   NodeID
	Weight     int
	Minlen     int
	Constraint bool
	Reversed   bool
	Kind       EdgeKind
	Dir        Dir

	// Origin is the input edge a segment belongs to. Real edges are their
	// own origin.
	Origin EdgeID
	// Chain lists the virtual nodes of a long edge in layout order.
	Chain []NodeID

	// Points is the routed spline, 3n+1 control points from tail to head
	// in input orientation.
	Points    []geom.Point
	HeadArrow *geom.Point
	TailArrow *geom.Point

	Meta Metadata
}

// Src returns the tail in layout orientation.
func (e *Edge) Src() NodeID {
	if e.Reversed {
		return e.To
	}
	return e.From
}

// Dst returns the head in layout orientation.
func (e *Edge) Dst() NodeID {
	if e.Reversed {
		return e.From
	}
	return e.To
}

// IsSelfLoop reports whether the edge starts and ends at the same node.
func (e *Edge) IsSelfLoop() bool { return e.From == e.To }

// Other returns the endpoint of e opposite to n.
func (e *Edge) Other(n NodeID) NodeID {
	if e.From == n {
		return e.To
	}
	return e.From
}

// Cluster is a named subgraph. Nodes lists the direct members after
// [Graph.Validate] has resolved memberships.
type Cluster struct {
	ID          ClusterID
	Name        string
	Parent      ClusterID
	Nodes       []NodeID
	Margin      float64
	LabelHeight float64
	Box         geom.Box
	Meta        Metadata
}

// RankKind is the kind of an explicit rank constraint.
type RankKind string

const (
	RankSame   RankKind = "same"
	RankMin    RankKind = "min"
	RankMax    RankKind = "max"
	RankSource RankKind = "source"
	RankSink   RankKind = "sink"
)

// RankConstraint groups nodes that must share a rank. Min and source sets
// additionally sit on the smallest rank, max and sink sets on the largest;
// source and sink sets are exclusive to that rank.
type RankConstraint struct {
	Kind  RankKind
	Nodes []NodeID
}

// Graph is an arena of nodes, edges and clusters addressed by integer IDs.
//
// The zero value is not usable - use New. Graph is not safe for concurrent
// use without external synchronization.
type Graph struct {
	nodes    []*Node
	edges    []*Edge
	clusters []*Cluster
	out      [][]EdgeID // input orientation: From == n
	in       [][]EdgeID // input orientation: To == n
	byName   map[string]NodeID
	clByName map[string]ClusterID
	claims   map[NodeID][]ClusterID
	ranks    []RankConstraint
	meta     Metadata
}

// New creates an empty graph with optional graph-level metadata.
func New(meta Metadata) *Graph {
	if meta == nil {
		meta = Metadata{}
	}
	return &Graph{
		byName:   make(map[string]NodeID),
		clByName: make(map[string]ClusterID),
		claims:   make(map[NodeID][]ClusterID),
		meta:     meta,
	}
}

// Meta returns the graph-level metadata map.
func (g *Graph) Meta() Metadata { return g.meta }

// AddNode appends a node and returns its ID. Real nodes need a unique
// non-empty Name; synthetic nodes get a generated name when none is given.
// Only real nodes are indexed by name, so a synthetic name never collides
// with an input node that happens to look like one. Cluster membership is assigned through [Graph.AddToCluster], never
// through the Cluster field.
func (g *Graph) AddNode(n Node) (NodeID, error) {
	id := NodeID(len(g.nodes))
	if n.Name == "" {
		if n.Kind == NodeKindReal {
			return NoNode, ErrInvalidNodeName
		}
		n.Name = fmt.Sprintf("_%s_%d", n.Kind, id)
	}
	if n.Kind == NodeKindReal {
		if _, exists := g.byName[n.Name]; exists {
			return NoNode, fmt.Errorf("%w: %q", ErrDuplicateNodeName, n.Name)
		}
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	if n.Shape == "" {
		n.Shape = geom.ShapeEllipse
	}
	if n.Kind != NodeKindVirtual {
		n.Origin = NoEdge
	}
	if n.Kind != NodeKindSkeleton {
		n.Skeleton = NoCluster
	}
	n.ID = id
	n.Cluster = NoCluster
	g.nodes = append(g.nodes, &n)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	if n.Kind == NodeKindReal {
		g.byName[n.Name] = id
	}
	return id, nil
}

// AddEdge appends an edge between existing nodes and returns its ID.
// Multi-edges and self-loops are allowed. Weight and Minlen are checked by
// [Graph.Validate], not here.
func (g *Graph) AddEdge(e Edge) (EdgeID, error) {
	if !g.hasNode(e.From) {
		return NoEdge, fmt.Errorf("%w: edge tail %d", ErrUnknownNode, e.From)
	}
	if !g.hasNode(e.To) {
		return NoEdge, fmt.Errorf("%w: edge head %d", ErrUnknownNode, e.To)
	}
	id := EdgeID(len(g.edges))
	e.ID = id
	if e.Kind == EdgeKindReal {
		e.Origin = id
	}
	if e.Dir == "" {
		e.Dir = DirForward
	}
	if e.Meta == nil {
		e.Meta = Metadata{}
	}
	g.edges = append(g.edges, &e)
	g.out[e.From] = append(g.out[e.From], id)
	g.in[e.To] = append(g.in[e.To], id)
	return id, nil
}

// AddCluster creates a top-level cluster. Use [Graph.SetClusterParent] to
// nest it.
func (g *Graph) AddCluster(name string) (ClusterID, error) {
	if name == "" {
		return NoCluster, fmt.Errorf("%w: empty cluster name", ErrUnknownCluster)
	}
	if _, exists := g.clByName[name]; exists {
		return NoCluster, fmt.Errorf("%w: %q", ErrDuplicateCluster, name)
	}
	id := ClusterID(len(g.clusters))
	g.clusters = append(g.clusters, &Cluster{
		ID:     id,
		Name:   name,
		Parent: NoCluster,
		Meta:   Metadata{},
	})
	g.clByName[name] = id
	return id, nil
}

// SetClusterParent nests c inside parent. Cycles are not rejected here;
// [Graph.Validate] reports them.
func (g *Graph) SetClusterParent(c, parent ClusterID) error {
	if !g.hasCluster(c) || (parent != NoCluster && !g.hasCluster(parent)) {
		return ErrUnknownCluster
	}
	g.clusters[c].Parent = parent
	return nil
}

// AddToCluster records that n belongs to c. A node may be added to several
// clusters as long as they are nested; the innermost one wins.
func (g *Graph) AddToCluster(n NodeID, c ClusterID) error {
	if !g.hasNode(n) {
		return ErrUnknownNode
	}
	if !g.hasCluster(c) {
		return ErrUnknownCluster
	}
	if !slices.Contains(g.claims[n], c) {
		g.claims[n] = append(g.claims[n], c)
	}
	return nil
}

// AddRankConstraint records an explicit rank constraint. Empty sets are
// ignored.
func (g *Graph) AddRankConstraint(kind RankKind, nodes []NodeID) error {
	if len(nodes) == 0 {
		return nil
	}
	for _, n := range nodes {
		if !g.hasNode(n) {
			return ErrUnknownNode
		}
	}
	g.ranks = append(g.ranks, RankConstraint{Kind: kind, Nodes: slices.Clone(nodes)})
	return nil
}

func (g *Graph) hasNode(n NodeID) bool       { return n >= 0 && int(n) < len(g.nodes) }
func (g *Graph) hasCluster(c ClusterID) bool { return c >= 0 && int(c) < len(g.clusters) }

// Node returns the node with the given ID. It panics on an invalid ID.
func (g *Graph) Node(id NodeID) *Node { return g.nodes[id] }

// Edge returns the edge with the given ID. It panics on an invalid ID.
func (g *Graph) Edge(id EdgeID) *Edge { return g.edges[id] }

// Cluster returns the cluster with the given ID. It panics on an invalid ID.
func (g *Graph) Cluster(id ClusterID) *Cluster { return g.clusters[id] }

// NodeByName looks up a node by name.
func (g *Graph) NodeByName(name string) (NodeID, bool) {
	id, ok := g.byName[name]
	return id, ok
}

// ClusterByName looks up a cluster by name.
func (g *Graph) ClusterByName(name string) (ClusterID, bool) {
	id, ok := g.clByName[name]
	return id, ok
}

// Nodes returns all nodes in ID order. The pointers refer to the graph's
// own nodes.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Edges returns all edges in ID order.
func (g *Graph) Edges() []*Edge { return g.edges }

// Clusters returns all clusters in ID order.
func (g *Graph) Clusters() []*Cluster { return g.clusters }

// NodeCount returns the number of nodes, including synthetic ones.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges, including segments.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// ClusterCount returns the number of clusters.
func (g *Graph) ClusterCount() int { return len(g.clusters) }

// RankConstraints returns the explicit rank constraints in insertion order.
func (g *Graph) RankConstraints() []RankConstraint { return g.ranks }

// Out returns the edges leaving n in layout orientation, in edge ID order.
func (g *Graph) Out(n NodeID) []EdgeID {
	var res []EdgeID
	for _, id := range g.out[n] {
		if !g.edges[id].Reversed {
			res = append(res, id)
		}
	}
	for _, id := range g.in[n] {
		if g.edges[id].Reversed {
			res = append(res, id)
		}
	}
	slices.Sort(res)
	return res
}

// In returns the edges entering n in layout orientation, in edge ID order.
func (g *Graph) In(n NodeID) []EdgeID {
	var res []EdgeID
	for _, id := range g.in[n] {
		if !g.edges[id].Reversed {
			res = append(res, id)
		}
	}
	for _, id := range g.out[n] {
		if g.edges[id].Reversed {
			res = append(res, id)
		}
	}
	slices.Sort(res)
	return res
}

// Children returns the direct child clusters of c in ID order. Passing
// NoCluster returns the top-level clusters.
func (g *Graph) Children(c ClusterID) []ClusterID {
	var res []ClusterID
	for _, cl := range g.clusters {
		if cl.Parent == c {
			res = append(res, cl.ID)
		}
	}
	return res
}

// IsAncestor reports whether a contains b (a == b counts). NoCluster is an
// ancestor of everything. The cluster tree must be acyclic.
func (g *Graph) IsAncestor(a, b ClusterID) bool {
	for c := b; ; c = g.clusters[c].Parent {
		if c == a {
			return true
		}
		if c == NoCluster {
			return false
		}
	}
}

// Depth returns the nesting depth of c: 0 for NoCluster, 1 for top-level
// clusters.
func (g *Graph) Depth(c ClusterID) int {
	d := 0
	for ; c != NoCluster; c = g.clusters[c].Parent {
		d++
	}
	return d
}

// CommonCluster returns the innermost cluster containing both a and b.
func (g *Graph) CommonCluster(a, b ClusterID) ClusterID {
	da, db := g.Depth(a), g.Depth(b)
	for da > db {
		a = g.clusters[a].Parent
		da--
	}
	for db > da {
		b = g.clusters[b].Parent
		db--
	}
	for a != b {
		a, b = g.clusters[a].Parent, g.clusters[b].Parent
	}
	return a
}

// ChildOnPath returns the child of anc on the path down to c, or NoCluster
// when c == anc. anc must be an ancestor of c.
func (g *Graph) ChildOnPath(anc, c ClusterID) ClusterID {
	if c == anc {
		return NoCluster
	}
	for g.clusters[c].Parent != anc {
		c = g.clusters[c].Parent
	}
	return c
}

// Validate checks the topology and resolves cluster memberships. It
// verifies, in order:
//
//  1. Edge weights and minlens are non-negative
//  2. No cluster contains itself through parent links
//  3. Every node's clusters are nested, so an innermost one exists
//
// On success every node's Cluster field names its innermost cluster and
// every cluster's Nodes lists its direct members in node ID order.
// Validate runs in O(N*D + E + C*D) where D is the nesting depth.
func (g *Graph) Validate() error {
	for _, e := range g.edges {
		if e.Weight < 0 {
			return fmt.Errorf("%w: edge %s", ErrNegativeWeight, g.EdgeName(e.ID))
		}
		if e.Minlen < 0 {
			return fmt.Errorf("%w: edge %s", ErrNegativeMinlen, g.EdgeName(e.ID))
		}
	}
	if err := g.detectClusterCycles(); err != nil {
		return err
	}
	return g.resolveMembership()
}

func (g *Graph) detectClusterCycles() error {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(g.clusters))
	for _, start := range g.clusters {
		if color[start.ID] != white {
			continue
		}
		var path []ClusterID
		c := start.ID
		for c != NoCluster && color[c] == white {
			color[c] = gray
			path = append(path, c)
			c = g.clusters[c].Parent
		}
		if c != NoCluster && color[c] == gray {
			return fmt.Errorf("%w: %q", ErrClusterCycle, g.clusters[c].Name)
		}
		for _, p := range path {
			color[p] = black
		}
	}
	return nil
}

func (g *Graph) resolveMembership() error {
	for _, c := range g.clusters {
		c.Nodes = c.Nodes[:0]
	}
	for _, n := range g.nodes {
		claims := g.claims[n.ID]
		inner := NoCluster
		for _, c := range claims {
			switch {
			case g.IsAncestor(inner, c):
				inner = c
			case g.IsAncestor(c, inner):
			default:
				return fmt.Errorf("%w: %q in %q and %q", ErrClusterConflict,
					n.Name, g.clusters[inner].Name, g.clusters[c].Name)
			}
		}
		n.Cluster = inner
		if inner != NoCluster {
			g.clusters[inner].Nodes = append(g.clusters[inner].Nodes, n.ID)
		}
	}
	return nil
}

// CheckAcyclic reports ErrGraphHasCycle if the constraint edges, taken in
// layout orientation, contain a directed cycle. Self-loops are ignored.
func (g *Graph) CheckAcyclic() error {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(g.nodes))
	var hasCycle bool

	var dfs func(n NodeID)
	dfs = func(n NodeID) {
		color[n] = gray
		for _, id := range g.Out(n) {
			e := g.edges[id]
			if !e.Constraint || e.IsSelfLoop() {
				continue
			}
			switch color[e.Dst()] {
			case white:
				dfs(e.Dst())
			case gray:
				hasCycle = true
			}
			if hasCycle {
				return
			}
		}
		color[n] = black
	}

	for _, n := range g.nodes {
		if color[n.ID] == white {
			dfs(n.ID)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}

// EdgeName formats an edge as "tail->head" using input orientation.
func (g *Graph) EdgeName(id EdgeID) string {
	e := g.edges[id]
	return g.nodes[e.From].Name + "->" + g.nodes[e.To].Name
}
