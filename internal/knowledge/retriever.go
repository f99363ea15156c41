package knowledge

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/ymatsuzawa/nenchobot/internal/llm"
	"github.com/ymatsuzawa/nenchobot/internal/models"
)

// Retrieval defaults, matching the knowledge-search contract.
const (
	DefaultLimit     = 5
	DefaultThreshold = 0.6
	DefaultTimeout   = 3 * time.Second
)

// Retriever embeds a query and runs a similarity search against the knowledge
// store, both under a single deadline. Retrieval is advisory: every failure
// mode (deadline, embedding error, store error, search not provisioned)
// collapses to an empty result list so the caller can still build a
// non-augmented prompt. Failures are logged, never returned.
type Retriever struct {
	Embedder  llm.Embedder
	Store     SearchStore
	Limit     int
	Threshold float64
	Timeout   time.Duration
	Logger    *slog.Logger
}

// NewRetriever wires a retriever with the default limit, threshold and
// timeout.
func NewRetriever(embedder llm.Embedder, store SearchStore, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		Embedder:  embedder,
		Store:     store,
		Limit:     DefaultLimit,
		Threshold: DefaultThreshold,
		Timeout:   DefaultTimeout,
		Logger:    logger,
	}
}

// Retrieve returns the chunks most similar to query, ordered by descending
// similarity, or an empty slice when retrieval cannot complete in time.
func (r *Retriever) Retrieve(ctx context.Context, query string) []models.RetrievalResult {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	queryVector, err := r.Embedder.GetEmbedding(ctx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			r.Logger.Warn("retrieval timed out while embedding query", "timeout", r.Timeout)
		} else {
			r.Logger.Warn("query embedding failed, continuing without knowledge", "error", err)
		}
		return nil
	}

	results, err := r.Store.SimilaritySearch(ctx, queryVector, r.Threshold, r.Limit)
	if err != nil {
		switch {
		case errors.Is(err, ErrSearchUnavailable):
			r.Logger.Warn("similarity search not provisioned, returning empty results")
		case errors.Is(err, context.DeadlineExceeded):
			r.Logger.Warn("retrieval timed out while searching", "timeout", r.Timeout)
		default:
			r.Logger.Warn("similarity search failed, continuing without knowledge", "error", err)
		}
		return nil
	}

	// The store contract already orders rows, but the guarantee should not
	// depend on the backend: re-sort (stable, so store order breaks ties)
	// and clamp to the limit.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if r.Limit > 0 && len(results) > r.Limit {
		results = results[:r.Limit]
	}

	r.Logger.Info("knowledge retrieved", "query_len", len(query), "results", len(results))
	return results
}
