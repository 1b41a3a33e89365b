package recognition

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync/atomic"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

// HNSW parameters for per-angle graphs.
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 100

	// hnswCandidates is the number of graph results rescored exactly.
	hnswCandidates = 8

	// exactSearchThreshold is the pool size below which an angle is scanned
	// exhaustively instead of through the graph.
	exactSearchThreshold = 256

	// hnswSeed keeps graph construction reproducible across runs.
	hnswSeed = 42
)

// angleIndex holds one angle's candidate pool. Position i of graph keys,
// vectors and meta always refers to the same enrollment row.
type angleIndex struct {
	graph   *hnsw.Graph[int]
	vectors [][]float32
	meta    []Identity
}

// IdentityIndex is an immutable per-angle nearest neighbour index over
// normalized enrollment embeddings.
type IdentityIndex struct {
	dim    int
	angles [len(angleNames)]*angleIndex
	names  map[string]string
}

// BuildIndex normalizes all embeddings and builds one pool per angle.
// An empty input yields a valid empty index.
func BuildIndex(embeddings []EnrolledEmbedding) (*IdentityIndex, error) {
	idx := &IdentityIndex{names: make(map[string]string)}

	for i := range embeddings {
		e := &embeddings[i]
		if e.Angle < 0 || int(e.Angle) >= len(angleNames) {
			return nil, fmt.Errorf("%w: identity %s has angle %d", ErrUnknownAngle, e.IdentityID, int(e.Angle))
		}
		if idx.dim == 0 {
			idx.dim = len(e.Vector)
		} else if len(e.Vector) != idx.dim {
			return nil, fmt.Errorf("%w: identity %s (%s) has %d dimensions, expected %d",
				ErrDimensionMismatch, e.IdentityID, e.Angle, len(e.Vector), idx.dim)
		}

		vec, err := Normalize(e.Vector)
		if err != nil {
			return nil, fmt.Errorf("identity %s (%s): %w", e.IdentityID, e.Angle, err)
		}

		pool := idx.angles[e.Angle]
		if pool == nil {
			pool = &angleIndex{}
			idx.angles[e.Angle] = pool
		}
		pool.vectors = append(pool.vectors, vec)
		pool.meta = append(pool.meta, Identity{ID: e.IdentityID, DisplayName: e.DisplayName})
		if _, ok := idx.names[e.IdentityID]; !ok {
			idx.names[e.IdentityID] = e.DisplayName
		}
	}

	for _, pool := range idx.angles {
		if pool == nil || len(pool.vectors) < exactSearchThreshold {
			continue
		}
		pool.graph = newGraph()
		for pos, vec := range pool.vectors {
			pool.graph.Add(hnsw.MakeNode(pos, vec))
		}
	}

	return idx, nil
}

func newGraph() *hnsw.Graph[int] {
	g := hnsw.NewGraph[int]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors)
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.CosineDistance
	g.Rng = rand.New(rand.NewSource(hnswSeed)) //nolint:gosec // not security sensitive
	return g
}

// Dim returns the embedding dimensionality, or 0 for an empty index.
func (idx *IdentityIndex) Dim() int {
	if idx == nil {
		return 0
	}
	return idx.dim
}

// Len returns the total number of indexed embeddings across all angles.
func (idx *IdentityIndex) Len() int {
	if idx == nil {
		return 0
	}
	n := 0
	for _, pool := range idx.angles {
		if pool != nil {
			n += len(pool.vectors)
		}
	}
	return n
}

// AngleLen returns the number of embeddings indexed for one angle.
func (idx *IdentityIndex) AngleLen(a Angle) int {
	if idx == nil || a < 0 || int(a) >= len(idx.angles) || idx.angles[a] == nil {
		return 0
	}
	return len(idx.angles[a].vectors)
}

// DisplayName returns the enrolled display name of an identity.
func (idx *IdentityIndex) DisplayName(identityID string) (string, bool) {
	if idx == nil {
		return "", false
	}
	name, ok := idx.names[identityID]
	return name, ok
}

// Identities returns the distinct identities in the index, in first-seen order.
func (idx *IdentityIndex) Identities() []Identity {
	if idx == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []Identity
	for _, a := range Angles {
		pool := idx.angles[a]
		if pool == nil {
			continue
		}
		for _, m := range pool.meta {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// nearest returns the best position and similarity in the pool for a
// normalized query. The first position wins on ties.
func (p *angleIndex) nearest(query []float32) (int, float64) {
	best, bestScore := -1, 0.0

	if p.graph == nil {
		for pos, vec := range p.vectors {
			score := Dot(query, vec)
			if best < 0 || score > bestScore {
				best, bestScore = pos, score
			}
		}
		return best, bestScore
	}

	for _, n := range p.graph.Search(query, hnswCandidates) {
		score := Dot(query, p.vectors[n.Key])
		if best < 0 || score > bestScore || (score == bestScore && n.Key < best) {
			best, bestScore = n.Key, score
		}
	}
	return best, bestScore
}

// EnrollmentSource is the bulk-load side of the persistent store.
type EnrollmentSource interface {
	LoadEnrollments(ctx context.Context) ([]database.EnrollmentRow, error)
}

// LoadIndex bulk-loads enrollment rows and builds an index from them.
// Rows whose blob cannot be decoded are skipped; dimension mismatches,
// unknown angles and degenerate vectors are fatal.
func LoadIndex(ctx context.Context, src EnrollmentSource) (*IdentityIndex, error) {
	rows, err := src.LoadEnrollments(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading enrollments: %w", err)
	}

	embeddings := make([]EnrolledEmbedding, 0, len(rows))
	for _, row := range rows {
		angle, err := ParseAngle(row.Angle)
		if err != nil {
			return nil, fmt.Errorf("identity %s: %w", row.IdentityID, err)
		}
		vec, err := database.DecodeEmbedding(row.Embedding)
		if err != nil {
			log.Printf("[index] skipping %s (%s): %v", row.IdentityID, row.Angle, err)
			continue
		}
		embeddings = append(embeddings, EnrolledEmbedding{
			IdentityID:  row.IdentityID,
			DisplayName: row.DisplayName,
			Angle:       angle,
			Vector:      vec,
		})
	}

	idx, err := BuildIndex(embeddings)
	if err != nil {
		return nil, err
	}
	log.Printf("[index] built with %d embeddings for %d identities", idx.Len(), len(idx.Identities()))
	return idx, nil
}

// IndexHolder publishes the current index. Swap replaces every angle's pool
// at once, so readers never observe a partially rebuilt index.
type IndexHolder struct {
	current atomic.Pointer[IdentityIndex]
}

// NewIndexHolder creates a holder with an initial index.
func NewIndexHolder(idx *IdentityIndex) *IndexHolder {
	h := &IndexHolder{}
	h.Swap(idx)
	return h
}

// Load returns the current index.
func (h *IndexHolder) Load() *IdentityIndex {
	return h.current.Load()
}

// Swap installs a new index.
func (h *IndexHolder) Swap(idx *IdentityIndex) {
	if idx == nil {
		idx = &IdentityIndex{}
	}
	h.current.Store(idx)
	metrics.IndexedEmbeddings.Set(float64(idx.Len()))
}

// Rebuild reloads the enrollment set and swaps it in. The previous index stays
// active if loading fails.
func (h *IndexHolder) Rebuild(ctx context.Context, src EnrollmentSource) (*IdentityIndex, error) {
	idx, err := LoadIndex(ctx, src)
	if err != nil {
		return nil, err
	}
	h.Swap(idx)
	return idx, nil
}
