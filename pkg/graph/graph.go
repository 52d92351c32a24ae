// Package graph implements the promotion graph (spec.md §4.4): a DAG of
// layers, each a set of competing promotions solved by internal/solver,
// wired together by PassThrough/Split routing so an item's discounted
// price from one layer can feed the next.
package graph

import (
	"github.com/google/uuid"

	"github.com/masumrpg/promotion-engine/pkg/errs"
	"github.com/masumrpg/promotion-engine/pkg/promo"
)

// NodeKey is a stable, opaque layer identifier.
type NodeKey uuid.UUID

// NewNodeKey generates a fresh random node key.
func NewNodeKey() NodeKey { return NodeKey(uuid.New()) }

func (k NodeKey) String() string { return uuid.UUID(k).String() }

// OutputMode controls how a node routes tracked items to its successors.
type OutputMode int

const (
	// PassThrough forwards every item along the sole All edge.
	PassThrough OutputMode = iota
	// Split routes items to the Participating or NonParticipating edge
	// depending on whether any promotion in this node's trail touched them.
	Split
)

// EdgeLabel discriminates the purpose of an edge leaving a Split node (All
// is the only label PassThrough nodes may use).
type EdgeLabel int

const (
	All EdgeLabel = iota
	Participating
	NonParticipating
)

// Node holds the promotions competing inside one layer and how it routes
// its output.
type Node struct {
	Key        NodeKey
	Promotions []promo.Promotion
	Mode       OutputMode
}

type edge struct {
	from  NodeKey
	to    NodeKey
	label EdgeLabel
}

// Graph is an immutable, validated promotion DAG. Build it with a Builder;
// the zero value is not usable.
type Graph struct {
	root  NodeKey
	nodes map[NodeKey]Node
	out   map[NodeKey][]edge
}

// Builder accumulates nodes and edges before a single validating Build call
// produces an immutable Graph (spec.md §6: "a builder that adds nodes,
// wires edges, and returns a validated immutable graph").
type Builder struct {
	root    *NodeKey
	nodes   map[NodeKey]Node
	out     map[NodeKey][]edge
	nodeSeq []NodeKey
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{nodes: map[NodeKey]Node{}, out: map[NodeKey][]edge{}}
}

// AddNode registers node. The first node added becomes the graph's root.
func (b *Builder) AddNode(node Node) *Builder {
	if _, exists := b.nodes[node.Key]; !exists {
		b.nodeSeq = append(b.nodeSeq, node.Key)
	}
	b.nodes[node.Key] = node
	if b.root == nil {
		root := node.Key
		b.root = &root
	}
	return b
}

// AddEdge wires from -[label]-> to. Both ends must already be registered
// via AddNode; Build validates label/mode compatibility.
func (b *Builder) AddEdge(from, to NodeKey, label EdgeLabel) *Builder {
	b.out[from] = append(b.out[from], edge{from: from, to: to, label: label})
	return b
}

// Build validates every invariant from spec.md §3 and returns an immutable
// Graph, or one of the named builder errors.
func (b *Builder) Build() (Graph, error) {
	if b.root == nil || len(b.nodes) == 0 {
		return Graph{}, errs.New(errs.GraphValidation, "no-root: graph has no nodes")
	}

	for from, edges := range b.out {
		node, ok := b.nodes[from]
		if !ok {
			return Graph{}, errs.Newf(errs.GraphValidation, "edge references unregistered node %s", from)
		}
		for _, e := range edges {
			if _, ok := b.nodes[e.to]; !ok {
				return Graph{}, errs.Newf(errs.GraphValidation, "edge references unregistered node %s", e.to)
			}
		}
		if err := validateNodeEdges(node, edges); err != nil {
			return Graph{}, err
		}
	}
	for _, key := range b.nodeSeq {
		if _, ok := b.out[key]; !ok {
			if err := validateNodeEdges(b.nodes[key], nil); err != nil {
				return Graph{}, err
			}
		}
	}

	if err := checkAcyclicAndReachable(*b.root, b.nodes, b.out); err != nil {
		return Graph{}, err
	}
	if err := checkPromotionUniqueness(*b.root, b.nodes, b.out); err != nil {
		return Graph{}, err
	}

	nodesCopy := make(map[NodeKey]Node, len(b.nodes))
	for k, v := range b.nodes {
		nodesCopy[k] = v
	}
	outCopy := make(map[NodeKey][]edge, len(b.out))
	for k, v := range b.out {
		cp := make([]edge, len(v))
		copy(cp, v)
		outCopy[k] = cp
	}
	return Graph{root: *b.root, nodes: nodesCopy, out: outCopy}, nil
}

func validateNodeEdges(node Node, edges []edge) error {
	switch node.Mode {
	case PassThrough:
		if len(edges) > 1 {
			return errs.Newf(errs.GraphValidation, "pass-through-multiple-successors: node %s has %d outgoing edges", node.Key, len(edges))
		}
		for _, e := range edges {
			if e.label != All {
				return errs.Newf(errs.GraphValidation, "split-edge-mismatch: pass-through node %s carries a %v edge", node.Key, e.label)
			}
		}
	case Split:
		if len(edges) > 2 {
			return errs.Newf(errs.GraphValidation, "split-edge-mismatch: node %s has %d outgoing edges", node.Key, len(edges))
		}
		seen := map[EdgeLabel]bool{}
		for _, e := range edges {
			if e.label != Participating && e.label != NonParticipating {
				return errs.Newf(errs.GraphValidation, "split-edge-mismatch: split node %s carries an %v edge", node.Key, e.label)
			}
			if seen[e.label] {
				return errs.Newf(errs.GraphValidation, "split-edge-mismatch: node %s repeats edge label %v", node.Key, e.label)
			}
			seen[e.label] = true
		}
	}
	return nil
}

func checkAcyclicAndReachable(root NodeKey, nodes map[NodeKey]Node, out map[NodeKey][]edge) error {
	const (
		white = iota
		gray
		black
	)
	color := map[NodeKey]int{}
	visited := map[NodeKey]bool{}

	var visit func(n NodeKey) error
	visit = func(n NodeKey) error {
		color[n] = gray
		visited[n] = true
		for _, e := range out[n] {
			switch color[e.to] {
			case gray:
				return errs.Newf(errs.GraphValidation, "cycle: node %s reaches itself through %s", n, e.to)
			case white:
				if err := visit(e.to); err != nil {
					return err
				}
			}
		}
		color[n] = black
		return nil
	}
	if err := visit(root); err != nil {
		return err
	}
	for key := range nodes {
		if !visited[key] {
			return errs.Newf(errs.GraphValidation, "unreachable-node: %s is not reachable from root", key)
		}
	}
	return nil
}

func checkPromotionUniqueness(root NodeKey, nodes map[NodeKey]Node, out map[NodeKey][]edge) error {
	var walk func(n NodeKey, seen map[promo.Key]bool) error
	walk = func(n NodeKey, seen map[promo.Key]bool) error {
		local := make(map[promo.Key]bool, len(seen))
		for k := range seen {
			local[k] = true
		}
		for _, p := range nodes[n].Promotions {
			if local[p.Key] {
				return errs.Newf(errs.GraphValidation, "duplicate-promotion-in-path: %s repeats on a root-to-leaf path", p.Key)
			}
			local[p.Key] = true
		}
		for _, e := range out[n] {
			if err := walk(e.to, local); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root, map[promo.Key]bool{})
}
