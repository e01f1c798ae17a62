// Package history persists conversation turns so the response pipeline can
// carry context across messages from the same sender.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Entity is one extracted (name, value) pair. Entities keep their extraction
// order, so they are stored as a slice, not a map.
type Entity struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Turn is a single conversation turn, user or assistant.
type Turn struct {
	SenderID  string
	Text      string
	IsUser    bool
	Intent    string
	Entities  []Entity
	CreatedAt time.Time
}

// Store persists and reads back conversation turns.
type Store interface {
	Append(ctx context.Context, turn Turn) error
	Recent(ctx context.Context, senderID string, limit int) ([]Turn, error)
}

// PostgresStore keeps turns in the conversation_history table.
type PostgresStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewPostgresStore creates a Store over the supplied database handle.
func NewPostgresStore(db *sql.DB, tracer trace.Tracer) *PostgresStore {
	if db == nil {
		panic("history: db cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("drai.internal.history")
	}
	return &PostgresStore{db: db, tracer: tracer}
}

// Append stores one turn.
func (s *PostgresStore) Append(ctx context.Context, turn Turn) error {
	ctx, span := s.tracer.Start(ctx, "history.append")
	defer span.End()

	entities, err := json.Marshal(turn.Entities)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("history: failed to marshal entities: %w", err)
	}

	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO conversation_history
		(sender_id, message_text, is_user, intent, entities, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		turn.SenderID, turn.Text, turn.IsUser, turn.Intent, entities, createdAt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("history: failed to append turn: %w", err)
	}
	return nil
}

// Recent returns up to limit turns for a sender, oldest first.
func (s *PostgresStore) Recent(ctx context.Context, senderID string, limit int) ([]Turn, error) {
	ctx, span := s.tracer.Start(ctx, "history.recent")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `SELECT sender_id, message_text, is_user,
		COALESCE(intent, ''), COALESCE(entities, '[]'), created_at
		FROM conversation_history
		WHERE sender_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, senderID, limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("history: failed to load turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var turn Turn
		var entities []byte
		if err := rows.Scan(&turn.SenderID, &turn.Text, &turn.IsUser, &turn.Intent, &entities, &turn.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("history: failed to scan turn: %w", err)
		}
		if err := json.Unmarshal(entities, &turn.Entities); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("history: failed to decode entities: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("history: failed to read turns: %w", err)
	}

	// The query walks the index newest-first; callers want chat order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
