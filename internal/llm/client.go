package llm

import "context"

// Message roles used by the generation backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the ordered sequence sent to the generation
// backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Embedder turns text into a fixed-length vector via an external embedding
// service. One service call per invocation; cancellation and deadlines are
// honoured through ctx. Retry policy belongs to the caller.
type Embedder interface {
	GetEmbedding(ctx context.Context, input string) ([]float32, error)
}

// Completer generates an answer from an ordered message sequence. There is no
// fallback for the primary answer, so failures here are surfaced to the
// caller.
type Completer interface {
	ChatCompletion(ctx context.Context, messages []Message) (string, error)
}
