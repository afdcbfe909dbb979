package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Juror repeatedly casts a ballot for one juror on one issue. The primary key
// on (issue_id, juror_id) makes every cast after the first a unique violation,
// which is the expected outcome under contention.
func Juror(ctx context.Context, pool *pgxpool.Pool, issueID, jurorID string, stop <-chan struct{}) error {
	choices := []string{"favor_tenant", "favor_landlord", "abstain"}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		choice := choices[rand.Intn(len(choices))]
		_, err := pool.Exec(ctx, `INSERT INTO votes (issue_id, juror_id, choice)
                                   SELECT i.id, $2, $3::vote_choice FROM issues i
                                   WHERE i.id = $1 AND i.status = 'dao_review'`, issueID, jurorID, choice)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				// already voted
			} else {
				return fmt.Errorf("juror insert: %w", err)
			}
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Concluder tallies the ledger and, once the threshold is crossed, races the
// other concluders to move the issue out of review. The status guard on the
// UPDATE lets exactly one racer through; losers observe zero rows and find
// the review already concluded on the next read.
func Concluder(ctx context.Context, pool *pgxpool.Pool, issueID string, threshold int, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		var tenant, landlord, total int
		err := pool.QueryRow(ctx, `SELECT
                COUNT(*) FILTER (WHERE choice = 'favor_tenant'),
                COUNT(*) FILTER (WHERE choice = 'favor_landlord'),
                COUNT(*)
            FROM votes WHERE issue_id = $1`, issueID).Scan(&tenant, &landlord, &total)
		if err != nil {
			return fmt.Errorf("concluder tally: %w", err)
		}

		if total >= threshold {
			verdict := "no_quorum"
			target := "escalated_to_admin"
			switch {
			case tenant > landlord:
				verdict = "favor_tenant"
				target = "dao_verdict"
			case landlord > tenant:
				verdict = "favor_landlord"
				target = "dao_verdict"
			}

			tx, err := pool.Begin(ctx)
			if err != nil {
				return err
			}
			tag, err := tx.Exec(ctx, `UPDATE issues
                    SET status = $1::issue_status, verdict = $2::issue_verdict, updated_at = now()
                    WHERE id = $3 AND status = 'dao_review'`, target, verdict, issueID)
			if err == nil && tag.RowsAffected() == 1 {
				_, _ = tx.Exec(ctx, `INSERT INTO timeline_events (issue_id, type, payload)
                        VALUES ($1, 'QUORUM_REACHED', jsonb_build_object('verdict', $2::text, 'total', $3::int))`,
					issueID, verdict, total)
				_, _ = tx.Exec(ctx, `INSERT INTO outbox (topic, payload)
                        VALUES ('issue.status_changed', jsonb_build_object('issue_id', $1::text, 'to_status', $2::text))`,
					issueID, target)
				_ = tx.Commit(ctx)
			} else {
				_ = tx.Rollback(ctx)
			}
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// Responder keeps resubmitting the landlord response. The upsert must never
// produce a second row for the issue.
func Responder(ctx context.Context, pool *pgxpool.Pool, issueID string, stop <-chan struct{}) error {
	n := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		n++
		_, err := pool.Exec(ctx, `INSERT INTO landlord_responses (issue_id, text)
                VALUES ($1, $2)
                ON CONFLICT (issue_id) DO UPDATE SET text = EXCLUDED.text, submitted_at = now()`,
			issueID, fmt.Sprintf("revision %d", n))
		if err != nil {
			return fmt.Errorf("responder upsert: %w", err)
		}
		time.Sleep(time.Duration(40+rand.Intn(60)) * time.Millisecond)
	}
}

// ProgressReader polls the tally the way the progress endpoint would,
// exercising concurrent reads against the vote inserts.
func ProgressReader(ctx context.Context, pool *pgxpool.Pool, issueID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var total int
		if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM votes WHERE issue_id = $1`, issueID).Scan(&total); err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("progress read: %w", err)
			}
		}
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}

// OutboxWorker drains pending outbox rows with SKIP LOCKED, simulating the
// occasional delivery failure so the attempts counter gets exercised.
func OutboxWorker(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, `SELECT id FROM outbox WHERE status='pending' ORDER BY created_at FOR UPDATE SKIP LOCKED LIMIT 10`)
		if err != nil {
			_ = tx.Rollback(ctx)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		ids := make([]int64, 0, 10)
		for rows.Next() {
			var id int64
			_ = rows.Scan(&id)
			ids = append(ids, id)
		}
		rows.Close()
		for _, id := range ids {
			if rand.Intn(10) == 0 {
				_, _ = tx.Exec(ctx, `UPDATE outbox SET attempts=attempts+1 WHERE id=$1`, id)
				continue
			}
			_, _ = tx.Exec(ctx, `UPDATE outbox SET status='processed', attempts=attempts+1 WHERE id=$1`, id)
		}
		_ = tx.Commit(ctx)
		time.Sleep(100 * time.Millisecond)
	}
}
