// Package ingest drives the batch path: PDF text extraction, chunking,
// per-chunk embedding and storage, and the inverse deletion path.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ymatsuzawa/nenchobot/internal/knowledge"
	"github.com/ymatsuzawa/nenchobot/internal/llm"
	"github.com/ymatsuzawa/nenchobot/internal/models"
	"github.com/ymatsuzawa/nenchobot/internal/parsing"
)

// DefaultChunkDelay spaces out embedding calls so a whole document does not
// slam the embedding service's rate limit. Ingestion is deliberately
// serialized per chunk for the same reason.
const DefaultChunkDelay = 200 * time.Millisecond

// Report summarizes one ingestion run. SavedCount < TotalChunks means some
// chunks failed and were skipped; the document is partially ingested, which
// is an accepted degraded outcome.
type Report struct {
	Document    models.Document
	TotalChunks int
	SavedCount  int
}

// Pipeline wires the chunker, the embedding client and the chunk store into
// the one-shot batch tool.
type Pipeline struct {
	Chunker    *knowledge.Chunker
	Embedder   llm.Embedder
	Store      knowledge.ChunkStore
	Lister     knowledge.DocumentLister
	ChunkDelay time.Duration
	Logger     *slog.Logger
}

// NewPipeline builds a pipeline with the default chunker (800/100) and
// inter-chunk delay.
func NewPipeline(embedder llm.Embedder, store knowledge.ChunkStore, lister knowledge.DocumentLister, logger *slog.Logger) (*Pipeline, error) {
	chunker, err := knowledge.NewChunker(knowledge.DefaultChunkSize, knowledge.DefaultOverlap)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Chunker:    chunker,
		Embedder:   embedder,
		Store:      store,
		Lister:     lister,
		ChunkDelay: DefaultChunkDelay,
		Logger:     logger,
	}, nil
}

// IngestPDF extracts the PDF's text and hands it to IngestText.
func (p *Pipeline) IngestPDF(ctx context.Context, pdfPath, year string) (Report, error) {
	if !parsing.IsPDF(pdfPath) {
		return Report{}, fmt.Errorf("not a PDF file: %s", pdfPath)
	}

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return Report{}, fmt.Errorf("could not read %s: %w", pdfPath, err)
	}

	text, totalPages, err := parsing.ExtractTextFromPDF(data)
	if err != nil {
		return Report{}, fmt.Errorf("could not extract text from %s: %w", pdfPath, err)
	}

	doc := models.Document{
		Name:       filepath.Base(pdfPath),
		Year:       year,
		TotalPages: totalPages,
	}

	return p.IngestText(ctx, doc, text)
}

// IngestText chunks the already-extracted text and stores each chunk with its
// embedding. Chunks are processed sequentially with ChunkDelay between
// embedding calls. A failing chunk is logged and skipped; the run reports
// savedCount/totalCount instead of failing outright.
func (p *Pipeline) IngestText(ctx context.Context, doc models.Document, text string) (Report, error) {
	texts := p.Chunker.Split(text)
	p.Logger.Info("document chunked", "pdf", doc.Name, "pages", doc.TotalPages, "chunks", len(texts), "text_runes", len([]rune(text)))

	report := Report{Document: doc, TotalChunks: len(texts)}
	for i, chunkText := range texts {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		chunk := models.Chunk{
			Text:       chunkText,
			ChunkIndex: i,
			PageNumber: knowledge.EstimatePage(i),
		}

		embedding, err := p.Embedder.GetEmbedding(ctx, chunk.Text)
		if err != nil {
			p.Logger.Warn("skipping chunk: embedding failed", "pdf", doc.Name, "chunk_index", i, "error", err)
			continue
		}
		chunk.Embedding = embedding

		if err := p.Store.UpsertChunk(ctx, doc, chunk); err != nil {
			p.Logger.Warn("skipping chunk: store failed", "pdf", doc.Name, "chunk_index", i, "error", err)
			continue
		}

		report.SavedCount++

		if p.ChunkDelay > 0 && i < len(texts)-1 {
			select {
			case <-time.After(p.ChunkDelay):
			case <-ctx.Done():
				return report, ctx.Err()
			}
		}
	}

	p.Logger.Info("ingestion finished", "pdf", doc.Name, "saved", report.SavedCount, "total", report.TotalChunks)
	return report, nil
}

// Delete removes every stored chunk of the named document and returns the
// count removed.
func (p *Pipeline) Delete(ctx context.Context, documentName string) (int, error) {
	count, err := p.Store.DeleteByDocumentName(ctx, documentName)
	if err != nil {
		return 0, err
	}
	p.Logger.Info("knowledge deleted", "pdf", documentName, "chunks", count)
	return count, nil
}

// Stats lists the stored documents with their chunk counts.
func (p *Pipeline) Stats(ctx context.Context) ([]knowledge.DocumentStats, error) {
	return p.Lister.ListDocuments(ctx)
}
