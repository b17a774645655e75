package roster

import (
	"fmt"
	"sync"

	"github.com/coder/hnsw"

	"gymgate/internal/database"
)

// HNSW parameters for the roster index. The roster of a single gym is
// small, so the index only pays off past IndexMinSize members; below that
// the linear scan in Cache.Nearest is both simpler and faster.
const (
	// IndexMinSize is the roster size at which the HNSW fast path kicks in.
	IndexMinSize = 256

	// IndexMaxNeighbors (M) is the maximum number of neighbors per node.
	IndexMaxNeighbors = 16
)

// Index is an approximate nearest-neighbor index over member embeddings,
// keyed by email.
type Index struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[string]
	byEmail map[string]*database.Member
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{byEmail: make(map[string]*database.Member)}
}

// Build replaces the index contents with the given members. Members without
// embeddings are skipped.
func (x *Index) Build(members []database.Member) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	g := hnsw.NewGraph[string]()
	g.M = IndexMaxNeighbors
	g.Ml = 1.0 / float64(IndexMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	byEmail := make(map[string]*database.Member, len(members))
	for i := range members {
		m := &members[i]
		if len(m.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(m.Email, m.Embedding))
		byEmail[m.Email] = m
	}
	if len(byEmail) == 0 {
		return fmt.Errorf("no members with embeddings")
	}

	x.graph = g
	x.byEmail = byEmail
	return nil
}

// Nearest returns the member closest to the probe and the exact Euclidean
// distance to it. The reported distance is recomputed from the stored
// embedding so threshold checks are not subject to index approximation.
func (x *Index) Nearest(probe []float32) (*database.Member, float64, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil {
		return nil, 0, false
	}

	neighbors := x.graph.Search(probe, 1)
	if len(neighbors) == 0 {
		return nil, 0, false
	}

	m, ok := x.byEmail[neighbors[0].Key]
	if !ok {
		return nil, 0, false
	}
	return m, database.EuclideanDistance(probe, m.Embedding), true
}

// Len returns the number of indexed members.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byEmail)
}
