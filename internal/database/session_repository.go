package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/vocabulario/pkg/models"
)

// SessionRepository handles database operations for finished sessions
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new repository instance.
// A nil db uses the global connection.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) conn() *sqlx.DB {
	if r.db != nil {
		return r.db
	}
	return DB
}

// Create inserts a session result and fills in its ID
func (r *SessionRepository) Create(ctx context.Context, result *models.SessionResult) error {
	db := r.conn()
	if result.FinishedAt.IsZero() {
		result.FinishedAt = time.Now().UTC()
	}
	if result.StartedAt.IsZero() {
		result.StartedAt = result.FinishedAt
	}

	args := []interface{}{
		result.Items,
		result.Completed,
		result.Answers,
		result.Correct,
		result.StartedAt,
		result.FinishedAt,
	}

	if isPostgres(db) {
		query := `
			INSERT INTO session_results (items, completed, answers, correct, started_at, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		return errors.Wrap(db.QueryRowContext(ctx, query, args...).Scan(&result.ID), "failed to create session result")
	}

	// SQLite (без RETURNING)
	res, err := db.ExecContext(ctx, `
		INSERT INTO session_results (items, completed, answers, correct, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return errors.Wrap(err, "failed to create session result")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to get last insert ID")
	}
	result.ID = id
	return nil
}

// ListRecent returns the latest session results, newest first
func (r *SessionRepository) ListRecent(ctx context.Context, limit int) ([]models.SessionResult, error) {
	if limit <= 0 {
		limit = 10
	}
	db := r.conn()
	results := []models.SessionResult{}
	query := db.Rebind("SELECT * FROM session_results ORDER BY finished_at DESC, id DESC LIMIT ?")
	if err := db.SelectContext(ctx, &results, query, limit); err != nil {
		return nil, errors.Wrap(err, "failed to list session results")
	}
	return results, nil
}
