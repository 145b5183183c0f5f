package index

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/futig/uiprime-backend/internal/entity"
	"github.com/futig/uiprime-backend/internal/pkg/lazy"
)

// Embedder fills in vectors for seed documents that were stored without one.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Memory is an in-process index scanned with cosine similarity. It suits
// small knowledge bases and tests.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]entity.IndexedDocument

	// pending embeds seed documents stored without a vector.
	pending *lazy.Value[struct{}]
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]entity.IndexedDocument),
	}
}

// Upsert stores documents by ID, replacing existing ones.
func (m *Memory) Upsert(docs ...entity.IndexedDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, doc := range docs {
		m.docs[doc.ID] = doc
	}
}

// NewSeededMemory loads a JSON array of documents from path. Documents that
// carry an embedding are indexed at once. The rest are embedded with e on the
// first Query, so an embedding outage at startup only degrades retrieval.
func NewSeededMemory(path string, e Embedder) (*Memory, error) {
	docs, err := readSeedFile(path)
	if err != nil {
		return nil, err
	}

	m := NewMemory()
	var pending []entity.IndexedDocument
	for _, doc := range docs {
		if len(doc.Embedding) > 0 {
			m.Upsert(doc)
			continue
		}
		pending = append(pending, doc)
	}

	if len(pending) > 0 {
		m.pending = lazy.New(func(ctx context.Context) (struct{}, error) {
			return struct{}{}, m.embedPending(ctx, pending, e)
		})
	}
	return m, nil
}

// Len returns the number of documents ready to be queried.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *Memory) Query(ctx context.Context, vector []float32, topK int) ([]entity.RetrievedDocument, error) {
	if m.pending != nil {
		if _, err := m.pending.Get(ctx); err != nil {
			return nil, fmt.Errorf("seed memory index: %w", err)
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]entity.RetrievedDocument, 0, len(m.docs))
	for _, doc := range m.docs {
		metadata := make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		docs = append(docs, entity.RetrievedDocument{
			ID:       doc.ID,
			Text:     doc.Text,
			Score:    float32(cosineSimilarity(vector, doc.Embedding)),
			Metadata: metadata,
		})
	}

	return rank(docs, topK), nil
}

func readSeedFile(path string) ([]entity.IndexedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var docs []entity.IndexedDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = fmt.Sprintf("seed-%d", i)
		}
	}
	return docs, nil
}

// embedPending indexes nothing unless every document was embedded, so a
// failed attempt is retried in full by the next Query.
func (m *Memory) embedPending(ctx context.Context, pending []entity.IndexedDocument, e Embedder) error {
	embedded := make([]entity.IndexedDocument, len(pending))
	for i, doc := range pending {
		vector, err := e.EmbedQuery(ctx, doc.Text)
		if err != nil {
			return fmt.Errorf("embed seed document %q: %w", doc.ID, err)
		}
		doc.Embedding = vector
		embedded[i] = doc
	}

	m.Upsert(embedded...)
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
