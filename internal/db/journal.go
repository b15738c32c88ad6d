package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}

// Queries runs journal statements.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Activation is one journaled activation attempt.
type Activation struct {
	ID                string
	PID               int64
	Platform          string
	Success           bool
	Mechanism         string
	Message           string
	FilterFingerprint string
	CreatedAt         time.Time
}

const recordActivation = `-- name: RecordActivation :exec
INSERT INTO activations (
    id, pid, platform, success, mechanism, message, filter_fingerprint, created_at
) VALUES (
    ?, ?, ?, ?, ?, ?, ?, ?
)
`

// RecordActivation stores a, assigning its ID and timestamp when unset.
func (q *Queries) RecordActivation(ctx context.Context, a Activation) (Activation, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := q.db.ExecContext(ctx, recordActivation,
		a.ID,
		a.PID,
		a.Platform,
		a.Success,
		a.Mechanism,
		a.Message,
		a.FilterFingerprint,
		a.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Activation{}, fmt.Errorf("failed to record activation: %w", err)
	}
	return a, nil
}

const listActivations = `-- name: ListActivations :many
SELECT id, pid, platform, success, mechanism, message, filter_fingerprint, created_at
FROM activations
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`

// ListActivations returns the most recent activations first.
func (q *Queries) ListActivations(ctx context.Context, limit int) ([]Activation, error) {
	rows, err := q.db.QueryContext(ctx, listActivations, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activations: %w", err)
	}
	defer rows.Close()

	var items []Activation
	for rows.Next() {
		var (
			i         Activation
			createdAt int64
		)
		if err := rows.Scan(
			&i.ID,
			&i.PID,
			&i.Platform,
			&i.Success,
			&i.Mechanism,
			&i.Message,
			&i.FilterFingerprint,
			&createdAt,
		); err != nil {
			return nil, err
		}
		i.CreatedAt = time.UnixMilli(createdAt)
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
