package index

import (
	"context"
	"fmt"

	"github.com/futig/uiprime-backend/internal/config"
	"github.com/futig/uiprime-backend/internal/entity"
	"github.com/futig/uiprime-backend/internal/pkg/lazy"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/milvus-io/milvus/client/v2/column"
	milvusentity "github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"go.uber.org/zap"
)

// Milvus queries a self-hosted Milvus collection. The connection is opened
// and the collection loaded on the first query.
type Milvus struct {
	config config.MilvusConfig
	client *lazy.Value[*milvusclient.Client]
	logger *zap.Logger
}

func NewMilvus(cfg config.MilvusConfig, logger *zap.Logger) *Milvus {
	m := &Milvus{
		config: cfg,
		logger: logger,
	}
	m.client = lazy.New(m.connect)
	return m
}

func (m *Milvus) connect(ctx context.Context) (*milvusclient.Client, error) {
	ctxzap.Info(ctx, "connecting to milvus",
		zap.String("address", m.config.Address),
		zap.String("collection", m.config.Collection),
	)

	connCtx, cancel := context.WithTimeout(ctx, m.config.ConnTimeout)
	defer cancel()

	client, err := milvusclient.New(connCtx, &milvusclient.ClientConfig{
		Address:  m.config.Address,
		Username: m.config.Username,
		Password: m.config.Password,
		DBName:   m.config.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	loadTask, err := client.LoadCollection(connCtx, milvusclient.NewLoadCollectionOption(m.config.Collection))
	if err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(connCtx); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("failed to wait for collection loading: %w", err)
	}

	return client, nil
}

func (m *Milvus) Query(ctx context.Context, vector []float32, topK int) ([]entity.RetrievedDocument, error) {
	client, err := m.client.Get(ctx)
	if err != nil {
		return nil, err
	}

	outputFields := append([]string{m.config.TextField}, m.config.OutputFields...)

	results, err := client.Search(ctx, milvusclient.NewSearchOption(
		m.config.Collection,
		topK,
		[]milvusentity.Vector{milvusentity.FloatVector(vector)},
	).WithANNSField(m.config.VectorField).
		WithOutputFields(outputFields...))
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}

	if len(results) == 0 {
		return []entity.RetrievedDocument{}, nil
	}

	docs := m.documents(results[0])

	ctxzap.Info(ctx, "milvus search completed", zap.Int("matches", len(docs)))

	return truncate(docs, topK), nil
}

// documents converts a result set in server order. Milvus already ranks hits
// by the collection metric, where a lower L2 distance is closer, so the
// scores are not re-sorted here.
func (m *Milvus) documents(rs milvusclient.ResultSet) []entity.RetrievedDocument {
	docs := make([]entity.RetrievedDocument, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		doc := entity.RetrievedDocument{Metadata: map[string]string{}}
		if i < len(rs.Scores) {
			doc.Score = rs.Scores[i]
		}

		switch ids := rs.IDs.(type) {
		case *column.ColumnInt64:
			if i < len(ids.Data()) {
				doc.ID = fmt.Sprint(ids.Data()[i])
			}
		case *column.ColumnVarChar:
			if i < len(ids.Data()) {
				doc.ID = ids.Data()[i]
			}
		}

		for _, field := range rs.Fields {
			value, ok := columnValue(field, i)
			if !ok {
				continue
			}
			if field.Name() == m.config.TextField {
				doc.Text = value
				continue
			}
			doc.Metadata[field.Name()] = value
		}

		docs = append(docs, doc)
	}
	return docs
}

func columnValue(col column.Column, i int) (string, bool) {
	switch c := col.(type) {
	case *column.ColumnVarChar:
		if i < len(c.Data()) {
			return c.Data()[i], true
		}
	case *column.ColumnInt64:
		if i < len(c.Data()) {
			return fmt.Sprint(c.Data()[i]), true
		}
	}
	return "", false
}

// Close releases the connection if it was opened.
func (m *Milvus) Close(ctx context.Context) error {
	client, ok := m.client.Peek()
	if !ok {
		return nil
	}
	return client.Close(ctx)
}
