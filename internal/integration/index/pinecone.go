package index

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/futig/uiprime-backend/internal/config"
	"github.com/futig/uiprime-backend/internal/entity"
	"github.com/futig/uiprime-backend/internal/integration/common"
	"github.com/futig/uiprime-backend/internal/pkg/lazy"
	pkghttp "github.com/futig/uiprime-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// textMetadataKey is the metadata field holding the document text.
const textMetadataKey = "text"

type pineconeQueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
	IncludeValues   bool      `json:"includeValues"`
	Namespace       string    `json:"namespace,omitempty"`
}

type pineconeMatch struct {
	ID       string         `json:"id"`
	Score    *float32       `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type pineconeQueryResponse struct {
	Matches   []pineconeMatch `json:"matches"`
	Namespace string          `json:"namespace"`
}

type pineconeDescribeResponse struct {
	Name string `json:"name"`
	Host string `json:"host"`
}

// Pinecone queries a Pinecone serverless index over its REST API. The data
// plane host is taken from configuration or, when absent, resolved once from
// the control plane by index name.
type Pinecone struct {
	config    config.PineconeConfig
	connector *pkghttp.Connector
	host      *lazy.Value[string]
	logger    *zap.Logger
}

func NewPinecone(cfg config.PineconeConfig, logger *zap.Logger) *Pinecone {
	p := &Pinecone{
		config: cfg,
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger,
			pkghttp.WithAuthHeader("Api-Key", "", cfg.Token),
		),
		logger: logger,
	}
	p.host = lazy.New(p.resolveHost)
	return p
}

func (p *Pinecone) Query(ctx context.Context, vector []float32, topK int) ([]entity.RetrievedDocument, error) {
	host, err := p.host.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve pinecone host: %w", err)
	}

	ctxzap.Info(ctx, "querying pinecone index",
		zap.String("index", p.config.IndexName),
		zap.Int("top_k", topK),
	)

	req := pineconeQueryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
		Namespace:       p.config.Namespace,
	}

	var resp pineconeQueryResponse
	err = p.connector.DoRequest(ctx, http.MethodPost, "", req, &resp,
		pkghttp.WithURL(host+"/query"),
		pkghttp.WithHeader("X-Pinecone-API-Version", p.config.APIVersion),
	)
	if err != nil {
		return nil, fmt.Errorf("pinecone query: %w", err)
	}

	docs := make([]entity.RetrievedDocument, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		docs = append(docs, matchToDocument(m))
	}

	ctxzap.Info(ctx, "pinecone query completed", zap.Int("matches", len(docs)))

	return rank(docs, topK), nil
}

func matchToDocument(m pineconeMatch) entity.RetrievedDocument {
	doc := entity.RetrievedDocument{
		ID:       m.ID,
		Metadata: make(map[string]string, len(m.Metadata)),
	}
	if m.Score != nil {
		doc.Score = *m.Score
	}
	for key, value := range m.Metadata {
		if key == textMetadataKey {
			doc.Text = stringify(value)
			continue
		}
		doc.Metadata[key] = stringify(value)
	}
	return doc
}

func (p *Pinecone) resolveHost(ctx context.Context) (string, error) {
	if p.config.Url != "" {
		return normalizeHost(p.config.Url), nil
	}

	ctxzap.Info(ctx, "resolving pinecone index host", zap.String("index", p.config.IndexName))

	endpoint := strings.TrimRight(p.config.ControlURL, "/") + "/indexes/" + url.PathEscape(p.config.IndexName)

	var resp pineconeDescribeResponse
	err := p.connector.DoRequest(ctx, http.MethodGet, "", nil, &resp,
		pkghttp.WithURL(endpoint),
		pkghttp.WithHeader("X-Pinecone-API-Version", p.config.APIVersion),
	)
	if err != nil {
		return "", fmt.Errorf("describe index %q: %w", p.config.IndexName, err)
	}

	if resp.Host == "" {
		return "", fmt.Errorf("describe index %q: empty host", p.config.IndexName)
	}

	return normalizeHost(resp.Host), nil
}

func normalizeHost(host string) string {
	host = strings.TrimRight(host, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return host
}
