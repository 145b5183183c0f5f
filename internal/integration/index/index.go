// Package index queries similarity indexes for documents close to a query
// vector. Every implementation returns hits best match first and tolerates
// missing metadata by leaving the field empty. Score semantics follow the
// backend: cosine similarity for Memory and Pinecone, the collection metric
// for Milvus.
package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/futig/uiprime-backend/internal/entity"
)

// Querier returns up to topK stored documents nearest to vector.
type Querier interface {
	Query(ctx context.Context, vector []float32, topK int) ([]entity.RetrievedDocument, error)
}

// rank orders similarity scores, higher first, and keeps topK.
func rank(docs []entity.RetrievedDocument, topK int) []entity.RetrievedDocument {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})
	return truncate(docs, topK)
}

// truncate keeps the first topK documents in their existing order.
func truncate(docs []entity.RetrievedDocument, topK int) []entity.RetrievedDocument {
	if topK > 0 && len(docs) > topK {
		docs = docs[:topK]
	}
	return docs
}

// stringify renders an arbitrary metadata value. nil becomes "".
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
