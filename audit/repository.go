package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the append-only trails written by the domain stores.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListForIssue returns the issue's timeline in insertion order.
func (r *Repository) ListForIssue(ctx context.Context, issueID string) ([]TimelineEvent, error) {
	const listSQL = `
        SELECT id, issue_id, type, actor_id, payload, created_at
        FROM timeline_events
        WHERE issue_id = $1
        ORDER BY id ASC
    `

	rows, err := r.pool.Query(ctx, listSQL, issueID)
	if err != nil {
		return nil, fmt.Errorf("audit: list timeline: %w", err)
	}
	defer rows.Close()

	out := make([]TimelineEvent, 0, 16)
	for rows.Next() {
		var ev TimelineEvent
		if err := rows.Scan(&ev.ID, &ev.IssueID, &ev.Type, &ev.ActorID, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan timeline: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate timeline: %w", err)
	}
	return out, nil
}

// PGQueue is the Postgres-backed outbox queue consumed by the Dispatcher.
type PGQueue struct {
	pool *pgxpool.Pool
}

func NewQueue(pool *pgxpool.Pool) *PGQueue {
	return &PGQueue{pool: pool}
}

// reclaimWindow is how long a claimed message may sit unacknowledged before
// it is handed out again. Covers dispatchers that die between claim and mark.
const reclaimWindow = "1 minute"

// Due claims up to limit deliverable messages. Rows are flipped to claimed in
// the same statement that selects them, so a concurrent dispatcher calling Due
// cannot see them as pending once the claim commits. SKIP LOCKED keeps two
// simultaneous claim statements off the same rows.
func (q *PGQueue) Due(ctx context.Context, limit int) ([]OutboxMessage, error) {
	const claimSQL = `
        WITH due AS (
            SELECT id
            FROM outbox
            WHERE status = 'pending'
               OR (status = 'claimed' AND claimed_at < now() - $2::interval)
            ORDER BY created_at ASC
            LIMIT $1
            FOR UPDATE SKIP LOCKED
        )
        UPDATE outbox o
        SET status = 'claimed', claimed_at = now()
        FROM due
        WHERE o.id = due.id
        RETURNING o.id, o.topic, o.payload, o.status, o.attempts, o.created_at
    `

	rows, err := q.pool.Query(ctx, claimSQL, limit, reclaimWindow)
	if err != nil {
		return nil, fmt.Errorf("audit: claim outbox: %w", err)
	}
	defer rows.Close()

	out := make([]OutboxMessage, 0, limit)
	for rows.Next() {
		var msg OutboxMessage
		if err := rows.Scan(&msg.ID, &msg.Topic, &msg.Payload, &msg.Status, &msg.Attempts, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan outbox: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate outbox: %w", err)
	}
	return out, nil
}

// MarkProcessed records a successful delivery.
func (q *PGQueue) MarkProcessed(ctx context.Context, id int64) error {
	const updateSQL = `UPDATE outbox SET status = 'processed', attempts = attempts + 1, claimed_at = NULL WHERE id = $1`
	if _, err := q.pool.Exec(ctx, updateSQL, id); err != nil {
		return fmt.Errorf("audit: mark processed: %w", err)
	}
	return nil
}

// MarkFailed bumps the attempt counter, moving the message to dead once the
// dispatcher gives up on it.
func (q *PGQueue) MarkFailed(ctx context.Context, id int64, dead bool) error {
	status := OutboxPending
	if dead {
		status = OutboxDead
	}
	const updateSQL = `UPDATE outbox SET status = $1, attempts = attempts + 1, claimed_at = NULL WHERE id = $2`
	if _, err := q.pool.Exec(ctx, updateSQL, status, id); err != nil {
		return fmt.Errorf("audit: mark failed: %w", err)
	}
	return nil
}
