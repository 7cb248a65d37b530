package llm

import "context"

// Usage is the provider-reported token accounting for one call. The true
// sizes are unknown until the provider responds; estimates only gate the
// call plan, usage records what actually happened.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the common shape of both call kinds.
type Response struct {
	ContentText string
	Usage       Usage
}

// DocumentRequest is a document-understanding call: raw document bytes plus
// instructions. Used for single-pass extraction and for plain-text
// acquisition in batch mode.
type DocumentRequest struct {
	Instructions    string
	FileName        string
	DocumentBytes   []byte
	MaxOutputTokens int
}

// TextRequest is a text-completion call: already-acquired plain text plus
// instructions. Used for per-batch extraction.
type TextRequest struct {
	Instructions    string
	Text            string
	MaxOutputTokens int
}

// DocumentReader is the document-understanding capability.
type DocumentReader interface {
	ReadDocument(ctx context.Context, req DocumentRequest) (Response, error)
}

// TextCompleter is the text-completion capability.
type TextCompleter interface {
	CompleteText(ctx context.Context, req TextRequest) (Response, error)
}

// Provider is a named implementation of both call shapes, chosen once at
// startup via configuration rather than branched on at call sites.
type Provider interface {
	DocumentReader
	TextCompleter
	Name() string
}
