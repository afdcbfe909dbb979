package vote

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrDuplicateVote signals the (issue, juror) pair already voted. A
	// repeat cast is rejected, never treated as an idempotent no-op.
	ErrDuplicateVote = errors.New("vote: juror already voted on this issue")
	// ErrIssueNotInReview is returned when the target issue is not in DAO
	// review, including when it does not exist from the ledger's view.
	ErrIssueNotInReview = errors.New("vote: issue is not in dao review")
)

// Ledger is the vote persistence contract.
type Ledger interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	Tally(ctx context.Context, issueID string) (Tally, error)
	ListForIssue(ctx context.Context, issueID string) ([]Record, error)
}

// PGLedger implements Ledger backed by PostgreSQL.
type PGLedger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *PGLedger {
	return &PGLedger{pool: pool}
}

// Insert records one vote. The INSERT..SELECT guards on the issue being in
// dao_review inside the same statement, and the primary key on
// (issue_id, juror_id) turns a repeat cast into ErrDuplicateVote.
func (l *PGLedger) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.IssueID == "" || rec.JurorID == "" {
		return Record{}, fmt.Errorf("vote: issue and juror ids required")
	}
	if !rec.Choice.Valid() {
		return Record{}, fmt.Errorf("vote: invalid choice %q", rec.Choice)
	}

	const insertSQL = `
        INSERT INTO votes (issue_id, juror_id, choice, reasoning)
        SELECT i.id, $2, $3::vote_choice, $4
        FROM issues i
        WHERE i.id = $1 AND i.status = 'dao_review'
        RETURNING issue_id, juror_id, choice::text, reasoning, cast_at
    `

	var out Record
	err := l.pool.QueryRow(ctx, insertSQL, rec.IssueID, rec.JurorID, rec.Choice, rec.Reasoning).
		Scan(&out.IssueID, &out.JurorID, &out.Choice, &out.Reasoning, &out.CastAt)
	if err == nil {
		return out, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Record{}, ErrDuplicateVote
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrIssueNotInReview
	}
	return Record{}, fmt.Errorf("vote: insert: %w", err)
}

// Tally counts votes from a consistent snapshot. Reads see every vote whose
// insert has been acknowledged; votes are commutative for tally purposes so
// no cross-juror ordering is needed.
func (l *PGLedger) Tally(ctx context.Context, issueID string) (Tally, error) {
	const tallySQL = `
        SELECT
            COUNT(*) FILTER (WHERE choice = 'favor_tenant'),
            COUNT(*) FILTER (WHERE choice = 'favor_landlord'),
            COUNT(*) FILTER (WHERE choice = 'abstain'),
            COUNT(*)
        FROM votes
        WHERE issue_id = $1
    `

	var t Tally
	if err := l.pool.QueryRow(ctx, tallySQL, issueID).Scan(&t.FavorTenant, &t.FavorLandlord, &t.Abstain, &t.Total); err != nil {
		return Tally{}, fmt.Errorf("vote: tally: %w", err)
	}
	return t, nil
}

func (l *PGLedger) ListForIssue(ctx context.Context, issueID string) ([]Record, error) {
	const listSQL = `
        SELECT issue_id, juror_id, choice::text, reasoning, cast_at
        FROM votes
        WHERE issue_id = $1
        ORDER BY cast_at ASC
    `

	rows, err := l.pool.Query(ctx, listSQL, issueID)
	if err != nil {
		return nil, fmt.Errorf("vote: list: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 16)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.IssueID, &rec.JurorID, &rec.Choice, &rec.Reasoning, &rec.CastAt); err != nil {
			return nil, fmt.Errorf("vote: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vote: iterate: %w", err)
	}
	return out, nil
}
