package entity

// Stage is a state of the chat pipeline.
type Stage string

const (
	StageReceived   Stage = "RECEIVED"
	StageValidated  Stage = "VALIDATED"
	StageRetrieving Stage = "RETRIEVING"
	StageComposing  Stage = "COMPOSING"
	StageGenerating Stage = "GENERATING"
	StageResponded  Stage = "RESPONDED"
	StageFailed     Stage = "FAILED"
)

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Query    string `json:"query" validate:"required"`
	Language string `json:"language,omitempty"`

	// ClientIdentity is derived from the caller, never read from the body.
	ClientIdentity string `json:"-"`
}

// LanguageSource tells how the response language was chosen.
type LanguageSource string

const (
	LanguageExplicit LanguageSource = "explicit"
	LanguageDetected LanguageSource = "detected"
	LanguageFallback LanguageSource = "fallback"
)

// ComposedPrompt is built once per request and not modified afterwards.
type ComposedPrompt struct {
	SystemInstruction string
	UserMessage       string
	Language          string
}

// ChatAnswer is the successful outcome of a pipeline run.
type ChatAnswer struct {
	Query          string
	Answer         string
	Language       string
	LanguageSource LanguageSource
	Documents      int
	// Degraded is set when retrieval failed and the answer was generated
	// without grounding documents.
	Degraded bool
}

// ChatResponse is the body returned by POST /api/v1/chat on success.
type ChatResponse struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}
