package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ymatsuzawa/nenchobot/internal/models"
	_ "modernc.org/sqlite"
)

var _ HistoryStore = (*SQLiteDB)(nil)

// SQLiteDB is the chat-history and usage store for local setups without
// Postgres. It does not carry the knowledge base: similarity search needs
// pgvector, so a SQLite-backed process runs with retrieval degraded (see
// NoopSearchStore).
//
// Timestamps are stored as fixed-width RFC3339 strings in UTC so range
// comparisons and ORDER BY work as plain string comparisons.
type SQLiteDB struct {
	conn *sql.DB
}

// sqliteTimeLayout pads fractional seconds to nine digits. Variable-length
// fractions would break lexicographic ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// NewSQLiteDB opens (and if necessary creates) the history database.
func NewSQLiteDB(dataSourceName string) (*SQLiteDB, error) {
	conn, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, err
	}

	schema := `CREATE TABLE IF NOT EXISTS chat_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		sources TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_history_user ON chat_history(user_id, created_at);`

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}

	return &SQLiteDB{conn: conn}, nil
}

func (s *SQLiteDB) SaveChat(ctx context.Context, record models.ChatRecord) error {
	sources, err := json.Marshal(record.Sources)
	if err != nil {
		return err
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `INSERT INTO chat_history (user_id, question, answer, sources, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err = s.conn.ExecContext(ctx, query, record.UserID, record.Question, record.Answer, string(sources), createdAt.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("failed to save chat history: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetHistory(ctx context.Context, userID string, limit int) ([]models.ChatRecord, error) {
	query := `
		SELECT id, user_id, question, answer, sources, created_at
		FROM chat_history
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.conn.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat history: %w", err)
	}
	defer rows.Close()

	return scanSQLiteChatRecords(rows)
}

func (s *SQLiteDB) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM chat_history WHERE user_id = ? AND created_at >= ?`
	if err := s.conn.QueryRowContext(ctx, query, userID, since.UTC().Format(sqliteTimeLayout)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return count, nil
}

func (s *SQLiteDB) UsageStats(ctx context.Context, since time.Time) ([]models.UserUsage, error) {
	query := `
		SELECT user_id, COUNT(*), MAX(created_at)
		FROM chat_history
		WHERE created_at >= ?
		GROUP BY user_id
		ORDER BY COUNT(*) DESC
	`
	rows, err := s.conn.QueryContext(ctx, query, since.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch usage stats: %w", err)
	}
	defer rows.Close()

	var stats []models.UserUsage
	for rows.Next() {
		var (
			u        models.UserUsage
			lastUsed string
		)
		if err := rows.Scan(&u.UserID, &u.Count, &lastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan usage stats: %w", err)
		}
		u.LastUsed, err = time.Parse(sqliteTimeLayout, lastUsed)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last-used timestamp: %w", err)
		}
		stats = append(stats, u)
	}
	return stats, rows.Err()
}

func (s *SQLiteDB) RecentQuestions(ctx context.Context, limit int) ([]models.ChatRecord, error) {
	query := `
		SELECT id, user_id, question, answer, sources, created_at
		FROM chat_history
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent questions: %w", err)
	}
	defer rows.Close()

	return scanSQLiteChatRecords(rows)
}

// Close releases the database handle.
func (s *SQLiteDB) Close() error {
	return s.conn.Close()
}

func scanSQLiteChatRecords(rows *sql.Rows) ([]models.ChatRecord, error) {
	var records []models.ChatRecord
	for rows.Next() {
		var (
			record    models.ChatRecord
			sources   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&record.ID, &record.UserID, &record.Question, &record.Answer, &sources, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat record: %w", err)
		}
		if sources.String != "" {
			if err := json.Unmarshal([]byte(sources.String), &record.Sources); err != nil {
				return nil, fmt.Errorf("failed to decode chat sources: %w", err)
			}
		}
		parsed, err := time.Parse(sqliteTimeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse chat timestamp: %w", err)
		}
		record.CreatedAt = parsed
		records = append(records, record)
	}
	return records, rows.Err()
}
