package database

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/tieubaoca/pdfchat-be/types"
)

type memoryNamespace struct {
	order   []string
	records map[string]types.VectorRecord
}

// MemoryIndex is an in-process VectorIndex using brute-force cosine
// similarity. Used for local runs and tests.
type MemoryIndex struct {
	mu         sync.RWMutex
	dimension  int
	namespaces map[string]*memoryNamespace
}

// NewMemoryIndex creates an index. A zero dimension is fixed by the first write.
func NewMemoryIndex(dimension int) *MemoryIndex {
	return &MemoryIndex{
		dimension:  dimension,
		namespaces: make(map[string]*memoryNamespace),
	}
}

func (m *MemoryIndex) Init(ctx context.Context) error {
	return nil
}

func (m *MemoryIndex) Upsert(ctx context.Context, namespace string, records []types.VectorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	dimension := m.dimension
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record without id")
		}
		if dimension == 0 {
			dimension = len(r.Vector)
		}
		if len(r.Vector) != dimension {
			return fmt.Errorf("%w: record %s has %d, want %d", ErrDimensionMismatch, r.ID, len(r.Vector), dimension)
		}
	}
	m.dimension = dimension

	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = &memoryNamespace{records: make(map[string]types.VectorRecord)}
		m.namespaces[namespace] = ns
	}
	for _, r := range records {
		if _, exists := ns.records[r.ID]; !exists {
			ns.order = append(ns.order, r.ID)
		}
		r.Vector = append([]float32(nil), r.Vector...)
		ns.records[r.ID] = r
	}
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, namespace string, vector []float32, topK int, includeMetadata bool) ([]types.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns, ok := m.namespaces[namespace]
	if !ok || topK <= 0 {
		return nil, nil
	}
	if m.dimension != 0 && len(vector) != m.dimension {
		return nil, fmt.Errorf("%w: query has %d, want %d", ErrDimensionMismatch, len(vector), m.dimension)
	}

	matches := make([]types.Match, 0, len(ns.order))
	for _, id := range ns.order {
		r := ns.records[id]
		match := types.Match{ID: id, Score: cosine(vector, r.Vector)}
		if includeMetadata {
			meta := r.Metadata
			match.Metadata = &meta
		}
		matches = append(matches, match)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.namespaces, namespace)
	return nil
}

// Count reports how many records a namespace holds.
func (m *MemoryIndex) Count(namespace string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ns, ok := m.namespaces[namespace]; ok {
		return len(ns.records)
	}
	return 0
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
