package models

import "time"

// Document describes one ingested PDF. Identity is Name (plus Year when
// present); documents are created at ingestion and removed only by an
// explicit name-scoped delete.
type Document struct {
	Name       string `json:"pdf_name"`
	Year       string `json:"pdf_year,omitempty"`
	TotalPages int    `json:"total_pages"`
}

// Chunk is one bounded, overlapping slice of a document's extracted text.
// ChunkIndex values within a document are contiguous starting at 0, in
// source-text order. PageNumber is estimated, not derived from real page
// boundaries.
type Chunk struct {
	Text       string    `json:"chunk_text"`
	ChunkIndex int       `json:"chunk_index"`
	PageNumber int       `json:"page_number"`
	Embedding  []float32 `json:"-"`
}

// RetrievalResult is one row returned by a similarity search. Ephemeral;
// produced per query and never persisted.
type RetrievalResult struct {
	Text         string         `json:"text"`
	DocumentName string         `json:"pdf_name"`
	DocumentYear string         `json:"pdf_year,omitempty"`
	PageNumber   int            `json:"page_number"`
	ChunkIndex   int            `json:"chunk_index"`
	Similarity   float64        `json:"similarity"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ConversationTurn is one prior question/answer pair supplied by the client.
type ConversationTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Source types.
const (
	SourceTypeKnowledgeBase = "knowledge_base"
	SourceTypeOfficial      = "official"
)

// Source is a citable reference surfaced alongside an answer. Two variants
// share the struct: knowledge-base sources carry Page and Similarity,
// official references carry URL.
type Source struct {
	Type       string  `json:"type"`
	Title      string  `json:"title"`
	Page       int     `json:"page,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
	URL        string  `json:"url,omitempty"`
}

// UsageStatus is the usage gate's decision for one user.
type UsageStatus struct {
	Allowed      bool `json:"allowed"`
	CurrentCount int  `json:"currentCount"`
	Remaining    int  `json:"remaining"`
	MaxQueries   int  `json:"maxQueries"`
}

// ChatRecord is one answered query as persisted in the chat history store.
type ChatRecord struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Sources   []Source  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserUsage is one row of the per-user monthly usage report.
type UserUsage struct {
	UserID   string    `json:"userId"`
	Count    int       `json:"count"`
	LastUsed time.Time `json:"lastUsed"`
}
