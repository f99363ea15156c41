package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/ymatsuzawa/nenchobot/internal/knowledge"
	"github.com/ymatsuzawa/nenchobot/internal/models"
)

// Interface checks.
var (
	_ knowledge.SearchStore    = (*PostgresDB)(nil)
	_ knowledge.ChunkStore     = (*PostgresDB)(nil)
	_ knowledge.DocumentLister = (*PostgresDB)(nil)
	_ HistoryStore             = (*PostgresDB)(nil)
)

// Postgres error codes that mean the similarity search path is simply not
// provisioned yet (pgvector extension, knowledge_base table or
// match_knowledge function missing).
const (
	pqUndefinedFunction = "42883"
	pqUndefinedTable    = "42P01"
	pqUndefinedObject   = "42704"
)

// PostgresDB backs both the knowledge base (pgvector) and the chat history /
// usage reads.
type PostgresDB struct {
	db *sql.DB
}

// NewPostgresDB opens a pooled connection and verifies it with a ping.
func NewPostgresDB(connString string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("unable to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return &PostgresDB{db: db}, nil
}

// UpsertChunk stores one embedded chunk with its document metadata, keyed by
// (pdf_name, chunk_index). Re-ingesting a document overwrites its chunks in
// place.
func (pg *PostgresDB) UpsertChunk(ctx context.Context, doc models.Document, chunk models.Chunk) error {
	if len(chunk.Embedding) == 0 {
		return errors.New("embedding cannot be empty")
	}

	metadata, err := json.Marshal(map[string]any{
		"total_pages": doc.TotalPages,
		"text_length": len([]rune(chunk.Text)),
	})
	if err != nil {
		return err
	}

	query := `
		INSERT INTO knowledge_base (pdf_name, pdf_year, page_number, chunk_index, chunk_text, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (pdf_name, chunk_index) DO UPDATE SET
			pdf_year = EXCLUDED.pdf_year,
			page_number = EXCLUDED.page_number,
			chunk_text = EXCLUDED.chunk_text,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata
	`

	_, err = pg.db.ExecContext(ctx, query,
		doc.Name,
		nullString(doc.Year),
		chunk.PageNumber,
		chunk.ChunkIndex,
		chunk.Text,
		pgvector.NewVector(chunk.Embedding),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk %d of %s: %w", chunk.ChunkIndex, doc.Name, err)
	}
	return nil
}

// DeleteByDocumentName removes every chunk of the named document and returns
// how many rows went away.
func (pg *PostgresDB) DeleteByDocumentName(ctx context.Context, name string) (int, error) {
	result, err := pg.db.ExecContext(ctx, `DELETE FROM knowledge_base WHERE pdf_name = $1`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to delete knowledge for %s: %w", name, err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// SimilaritySearch runs the match_knowledge function: cosine similarity,
// descending, rows at or above threshold, at most limit rows. A missing
// function/table/extension maps to knowledge.ErrSearchUnavailable.
func (pg *PostgresDB) SimilaritySearch(ctx context.Context, queryVector []float32, threshold float64, limit int) ([]models.RetrievalResult, error) {
	if len(queryVector) == 0 {
		return nil, errors.New("query vector cannot be empty")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be greater than zero")
	}

	query := `
		SELECT chunk_text, pdf_name, pdf_year, page_number, chunk_index, similarity, metadata
		FROM match_knowledge($1, $2, $3)
	`

	rows, err := pg.db.QueryContext(ctx, query, pgvector.NewVector(queryVector), threshold, limit)
	if err != nil {
		if isUndefinedErr(err) {
			return nil, knowledge.ErrSearchUnavailable
		}
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var results []models.RetrievalResult
	for rows.Next() {
		var (
			result   models.RetrievalResult
			year     sql.NullString
			metadata []byte
		)
		if err := rows.Scan(&result.Text, &result.DocumentName, &year, &result.PageNumber, &result.ChunkIndex, &result.Similarity, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan retrieval result: %w", err)
		}
		result.DocumentYear = year.String
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &result.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode chunk metadata: %w", err)
			}
		}
		results = append(results, result)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating retrieval results: %w", rows.Err())
	}

	return results, nil
}

// ListDocuments aggregates stored chunks per document.
func (pg *PostgresDB) ListDocuments(ctx context.Context) ([]knowledge.DocumentStats, error) {
	query := `
		SELECT pdf_name, COALESCE(pdf_year, ''), COUNT(*),
		       COALESCE(MAX((metadata->>'total_pages')::int), 0)
		FROM knowledge_base
		GROUP BY pdf_name, pdf_year
		ORDER BY pdf_name, pdf_year
	`

	rows, err := pg.db.QueryContext(ctx, query)
	if err != nil {
		if isUndefinedErr(err) {
			return nil, knowledge.ErrSearchUnavailable
		}
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var stats []knowledge.DocumentStats
	for rows.Next() {
		var s knowledge.DocumentStats
		if err := rows.Scan(&s.Document.Name, &s.Document.Year, &s.ChunkCount, &s.Document.TotalPages); err != nil {
			return nil, fmt.Errorf("failed to scan document stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// SaveChat records one answered query.
func (pg *PostgresDB) SaveChat(ctx context.Context, record models.ChatRecord) error {
	sources, err := json.Marshal(record.Sources)
	if err != nil {
		return err
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO chat_history (user_id, question, answer, sources, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := pg.db.ExecContext(ctx, query, record.UserID, record.Question, record.Answer, sources, createdAt); err != nil {
		return fmt.Errorf("failed to save chat history: %w", err)
	}
	return nil
}

// GetHistory returns the user's most recent records, newest first.
func (pg *PostgresDB) GetHistory(ctx context.Context, userID string, limit int) ([]models.ChatRecord, error) {
	query := `
		SELECT id, user_id, question, answer, sources, created_at
		FROM chat_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := pg.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat history: %w", err)
	}
	defer rows.Close()

	return scanChatRecords(rows)
}

// CountSince returns how many queries the user has had answered since the
// given instant.
func (pg *PostgresDB) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM chat_history WHERE user_id = $1 AND created_at >= $2`
	if err := pg.db.QueryRowContext(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return count, nil
}

// UsageStats aggregates query counts per user since the given instant,
// busiest users first.
func (pg *PostgresDB) UsageStats(ctx context.Context, since time.Time) ([]models.UserUsage, error) {
	query := `
		SELECT user_id, COUNT(*), MAX(created_at)
		FROM chat_history
		WHERE created_at >= $1
		GROUP BY user_id
		ORDER BY COUNT(*) DESC
	`

	rows, err := pg.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch usage stats: %w", err)
	}
	defer rows.Close()

	var stats []models.UserUsage
	for rows.Next() {
		var u models.UserUsage
		if err := rows.Scan(&u.UserID, &u.Count, &u.LastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan usage stats: %w", err)
		}
		stats = append(stats, u)
	}
	return stats, rows.Err()
}

// RecentQuestions returns the latest answered queries across all users.
func (pg *PostgresDB) RecentQuestions(ctx context.Context, limit int) ([]models.ChatRecord, error) {
	query := `
		SELECT id, user_id, question, answer, sources, created_at
		FROM chat_history
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := pg.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent questions: %w", err)
	}
	defer rows.Close()

	return scanChatRecords(rows)
}

// Close releases the connection pool.
func (pg *PostgresDB) Close() error {
	return pg.db.Close()
}

func scanChatRecords(rows *sql.Rows) ([]models.ChatRecord, error) {
	var records []models.ChatRecord
	for rows.Next() {
		var (
			record  models.ChatRecord
			sources []byte
		)
		if err := rows.Scan(&record.ID, &record.UserID, &record.Question, &record.Answer, &sources, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat record: %w", err)
		}
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &record.Sources); err != nil {
				return nil, fmt.Errorf("failed to decode chat sources: %w", err)
			}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func isUndefinedErr(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case pqUndefinedFunction, pqUndefinedTable, pqUndefinedObject:
		return true
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
