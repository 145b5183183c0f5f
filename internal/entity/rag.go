package entity

// RetrievedDocument is a similarity-index hit. It lives for one request only.
type RetrievedDocument struct {
	ID       string
	Text     string
	Score    float32
	Metadata map[string]string
}

// IndexedDocument is a document stored in the in-memory index.
type IndexedDocument struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Embedding []float32         `json:"embedding,omitempty"`
}
