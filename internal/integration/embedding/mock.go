package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockDimensions is the vector size produced by MockConnector.
const MockDimensions = 64

// MockConnector hashes words into a fixed-size bag-of-words vector, so texts
// sharing words are close under cosine similarity. Used with ENABLE_MOCKS.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	ctxzap.Debug(ctx, "[MOCK] embedding query")
	return HashVector(text), nil
}

// HashVector is the deterministic embedding used by the mock.
func HashVector(text string) []float32 {
	vector := make([]float32, MockDimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, word := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vector[h.Sum32()%MockDimensions]++
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vector[0] = 1
		return vector
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vector {
		vector[i] *= scale
	}
	return vector
}
