package index

import (
	"context"
	"testing"

	"github.com/futig/uiprime-backend/internal/config"
	"github.com/futig/uiprime-backend/internal/entity"
	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMilvus_CloseBeforeConnect(t *testing.T) {
	assert.NoError(t, NewMilvus(defaultMilvusConfig(), nil).Close(context.Background()))
}

func TestMilvus_DocumentsKeepServerOrder(t *testing.T) {
	m := NewMilvus(defaultMilvusConfig(), nil)

	// L2 distances: the nearest hit has the smallest score.
	rs := milvusclient.ResultSet{
		ResultCount: 3,
		IDs:         column.NewColumnInt64("id", []int64{7, 3, 9}),
		Scores:      []float32{0.12, 0.58, 1.9},
		Fields: milvusclient.DataSet{
			column.NewColumnVarChar("text", []string{"Landing pages from €50.", "SEO audits.", "Hosting."}),
			column.NewColumnVarChar("source", []string{"pricing", "services", "faq"}),
		},
	}

	docs := truncate(m.documents(rs), 2)

	require.Len(t, docs, 2)
	assert.Equal(t, "7", docs[0].ID)
	assert.Equal(t, "Landing pages from €50.", docs[0].Text)
	assert.Equal(t, "pricing", docs[0].Metadata["source"])
	assert.Equal(t, "3", docs[1].ID)
	assert.InDelta(t, 0.12, docs[0].Score, 1e-6)
}

func TestRank_SortsSimilarityDescending(t *testing.T) {
	docs := rank([]entity.RetrievedDocument{{ID: "a", Score: 0.2}, {ID: "b", Score: 0.9}, {ID: "c", Score: 0.5}}, 2)

	require.Len(t, docs, 2)
	assert.InDelta(t, 0.9, docs[0].Score, 1e-6)
	assert.InDelta(t, 0.5, docs[1].Score, 1e-6)
}

func defaultMilvusConfig() config.MilvusConfig {
	return config.MilvusConfig{Address: "localhost:19530", Collection: "uiprime_docs", VectorField: "embedding", TextField: "text"}
}
