package memory

import (
	"context"
	"sync"

	"recommender/domain/core/entities"
)

type nodeKey struct {
	kind entities.NodeKind
	id   string
}

type pairKey struct {
	kind entities.EdgeKind
	from string
	to   string
}

type endKey struct {
	kind entities.EdgeKind
	node string
}

// GraphStore keeps the learning graph in process memory.
// It backs local development, tests and the snapshot loader. Safe for concurrent use.
type GraphStore struct {
	mu       sync.RWMutex
	nodes    map[nodeKey]entities.Node
	edges    map[entities.EdgeKind][]entities.Edge
	pairs    map[pairKey]int
	outgoing map[endKey][]int
	incoming map[endKey][]int
}

// NewGraphStore creates an empty store
func NewGraphStore() *GraphStore {
	return &GraphStore{
		nodes:    make(map[nodeKey]entities.Node),
		edges:    make(map[entities.EdgeKind][]entities.Edge),
		pairs:    make(map[pairKey]int),
		outgoing: make(map[endKey][]int),
		incoming: make(map[endKey][]int),
	}
}

// PutNode creates the vertex or merges attrs into the existing one
func (s *GraphStore) PutNode(ctx context.Context, node entities.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := nodeKey{node.Kind, node.ID}
	existing, ok := s.nodes[key]
	if !ok {
		existing = entities.Node{Kind: node.Kind, ID: node.ID, Attrs: make(map[string]any)}
	}
	merged := make(map[string]any, len(existing.Attrs)+len(node.Attrs))
	for k, v := range existing.Attrs {
		merged[k] = v
	}
	for k, v := range node.Attrs {
		merged[k] = v
	}
	existing.Attrs = merged
	s.nodes[key] = existing
	return nil
}

// PutEdges stores a batch. Endpoints are not required to exist as nodes.
func (s *GraphStore) PutEdges(ctx context.Context, edges []entities.Edge) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range edges {
		s.putEdge(e)
	}
	return nil
}

func (s *GraphStore) putEdge(e entities.Edge) {
	spec := e.Kind.MustSpec()
	pk := pairKey{e.Kind, e.From, e.To}

	if !spec.Append {
		if i, ok := s.pairs[pk]; ok {
			s.edges[e.Kind][i] = e
			return
		}
	} else {
		e = e.EnsureID()
	}

	list := s.edges[e.Kind]
	i := len(list)
	s.edges[e.Kind] = append(list, e)
	if !spec.Append {
		s.pairs[pk] = i
	}
	out := endKey{e.Kind, e.From}
	in := endKey{e.Kind, e.To}
	s.outgoing[out] = append(s.outgoing[out], i)
	s.incoming[in] = append(s.incoming[in], i)
}

// Node returns the vertex or nil
func (s *GraphStore) Node(ctx context.Context, kind entities.NodeKind, id string) (*entities.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[nodeKey{kind, id}]
	if !ok {
		return nil, nil
	}
	copied := copyNode(n)
	return &copied, nil
}

// Nodes lists every vertex of a kind, sorted by id
func (s *GraphStore) Nodes(ctx context.Context, kind entities.NodeKind) ([]entities.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]entities.Node, 0)
	for k, n := range s.nodes {
		if k.kind == kind {
			out = append(out, copyNode(n))
		}
	}
	s.mu.RUnlock()

	entities.SortNodes(out)
	return out, nil
}

// Outgoing lists edges of a kind leaving from
func (s *GraphStore) Outgoing(ctx context.Context, kind entities.EdgeKind, from string) ([]entities.Edge, error) {
	return s.indexed(ctx, kind, s.outgoing, from)
}

// Incoming lists edges of a kind arriving at to
func (s *GraphStore) Incoming(ctx context.Context, kind entities.EdgeKind, to string) ([]entities.Edge, error) {
	return s.indexed(ctx, kind, s.incoming, to)
}

// Edges lists every edge of a kind
func (s *GraphStore) Edges(ctx context.Context, kind entities.EdgeKind) ([]entities.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]entities.Edge, len(s.edges[kind]))
	copy(out, s.edges[kind])
	s.mu.RUnlock()

	entities.SortEdges(out)
	return out, nil
}

func (s *GraphStore) indexed(ctx context.Context, kind entities.EdgeKind, index map[endKey][]int, node string) ([]entities.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	positions := index[endKey{kind, node}]
	out := make([]entities.Edge, 0, len(positions))
	for _, i := range positions {
		out = append(out, s.edges[kind][i])
	}
	s.mu.RUnlock()

	entities.SortEdges(out)
	return out, nil
}

// Counts reports the number of nodes and edges held, for readiness output
func (s *GraphStore) Counts() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, list := range s.edges {
		edges += len(list)
	}
	return len(s.nodes), edges
}

func copyNode(n entities.Node) entities.Node {
	attrs := make(map[string]any, len(n.Attrs))
	for k, v := range n.Attrs {
		attrs[k] = v
	}
	n.Attrs = attrs
	return n
}
