package issue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no issue row exists for the identifier.
	ErrNotFound = errors.New("issue: not found")
	// ErrConflict signals the compare-and-swap observed-status check failed:
	// the stored status differs from the one the caller supplied. Callers
	// must re-read before deciding whether to issue a new command.
	ErrConflict = errors.New("issue: status changed concurrently")
	// ErrNoResponse is returned when an issue has no landlord response yet.
	ErrNoResponse = errors.New("issue: no landlord response")
)

// Store is the persistence contract the lifecycle service depends on.
type Store interface {
	Create(ctx context.Context, params CreateParams) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Transition(ctx context.Context, params TransitionParams) (Record, error)
	SetClassification(ctx context.Context, id string, annotation json.RawMessage) error
	SetCaseAnalysis(ctx context.Context, id string, annotation json.RawMessage) error
	GetResponse(ctx context.Context, issueID string) (LandlordResponse, error)
}

// PGStore implements Store backed by PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const recordColumns = `id, tenant_id, landlord_id, property_id, description, status::text, verdict::text, classification, case_analysis, created_at, updated_at`

// Create inserts the issue in Reported state and appends the creation
// timeline event plus an outbox message in the same transaction.
func (s *PGStore) Create(ctx context.Context, params CreateParams) (Record, error) {
	if params.TenantID == "" || params.LandlordID == "" || params.PropertyID == "" {
		return Record{}, fmt.Errorf("issue: tenant, landlord and property ids required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("issue: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertSQL = `
        INSERT INTO issues (tenant_id, landlord_id, property_id, description, status)
        VALUES ($1, $2, $3, $4, 'reported')
        RETURNING ` + recordColumns

	rec, err := scanRecord(tx.QueryRow(ctx, insertSQL,
		params.TenantID, params.LandlordID, params.PropertyID, params.Description))
	if err != nil {
		return Record{}, fmt.Errorf("issue: insert: %w", err)
	}

	payload := map[string]any{
		"issue_id":    rec.ID,
		"tenant_id":   rec.TenantID,
		"landlord_id": rec.LandlordID,
		"property_id": rec.PropertyID,
	}
	if err := appendTimelineEvent(ctx, tx, rec.ID, "ISSUE_REPORTED", &params.TenantID, payload); err != nil {
		return Record{}, err
	}
	if err := enqueueOutbox(ctx, tx, "issue.reported", payload); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("issue: commit: %w", err)
	}
	return rec, nil
}

func (s *PGStore) Get(ctx context.Context, id string) (Record, error) {
	const selectSQL = `SELECT ` + recordColumns + ` FROM issues WHERE id = $1`

	rec, err := scanRecord(s.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("issue: get: %w", err)
	}
	return rec, nil
}

// Transition applies one compare-and-swap status move. The UPDATE is guarded
// by the observed status; zero rows means either the issue is gone or another
// transition won the race, and the two are told apart by a follow-up read.
// The timeline event and the outbox message ride in the same transaction so
// an accepted transition is always audited.
func (s *PGStore) Transition(ctx context.Context, params TransitionParams) (Record, error) {
	if params.IssueID == "" {
		return Record{}, fmt.Errorf("issue: transition missing issue id")
	}
	if params.From == params.To {
		return Record{}, fmt.Errorf("issue: transition %s -> %s is a no-op", params.From, params.To)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("issue: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const updateSQL = `
        UPDATE issues
        SET status = $1::issue_status,
            verdict = COALESCE($2::issue_verdict, verdict),
            updated_at = now()
        WHERE id = $3 AND status = $4::issue_status
        RETURNING ` + recordColumns

	var verdict *string
	if params.Verdict != nil {
		v := string(*params.Verdict)
		verdict = &v
	}

	rec, err := scanRecord(tx.QueryRow(ctx, updateSQL, params.To, verdict, params.IssueID, params.From))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return Record{}, fmt.Errorf("issue: transition update: %w", err)
		}
		var current string
		if err := tx.QueryRow(ctx, `SELECT status::text FROM issues WHERE id = $1`, params.IssueID).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return Record{}, ErrNotFound
			}
			return Record{}, fmt.Errorf("issue: transition fetch: %w", err)
		}
		return Record{}, fmt.Errorf("%w: expected %s, found %s", ErrConflict, params.From, current)
	}

	if params.ResponseText != nil {
		const upsertSQL = `
            INSERT INTO landlord_responses (issue_id, text, submitted_at)
            VALUES ($1, $2, now())
            ON CONFLICT (issue_id) DO UPDATE SET text = EXCLUDED.text, submitted_at = now()
        `
		if _, err := tx.Exec(ctx, upsertSQL, params.IssueID, *params.ResponseText); err != nil {
			return Record{}, fmt.Errorf("issue: upsert response: %w", err)
		}
	}

	payload := map[string]any{
		"previous_status": string(params.From),
		"next_status":     string(params.To),
	}
	for k, v := range params.Payload {
		payload[k] = v
	}
	if params.Verdict != nil {
		payload["verdict"] = string(*params.Verdict)
	}

	eventType := params.Event
	if eventType == "" {
		eventType = "ISSUE_STATUS_CHANGED"
	}
	if err := appendTimelineEvent(ctx, tx, params.IssueID, eventType, params.ActorID, payload); err != nil {
		return Record{}, err
	}

	outboxPayload := map[string]any{
		"issue_id":    params.IssueID,
		"from_status": string(params.From),
		"to_status":   string(params.To),
		"timestamp":   rec.UpdatedAt.UTC(),
	}
	if params.ActorID != nil {
		outboxPayload["actor"] = *params.ActorID
	}
	if err := enqueueOutbox(ctx, tx, "issue.status_changed", outboxPayload); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("issue: commit transition: %w", err)
	}
	return rec, nil
}

// SetClassification stores the external classifier's annotation. It rides
// outside the lifecycle transaction on purpose: annotations never gate a
// transition.
func (s *PGStore) SetClassification(ctx context.Context, id string, annotation json.RawMessage) error {
	return s.setAnnotation(ctx, id, "classification", annotation)
}

// SetCaseAnalysis stores the external case-analysis annotation.
func (s *PGStore) SetCaseAnalysis(ctx context.Context, id string, annotation json.RawMessage) error {
	return s.setAnnotation(ctx, id, "case_analysis", annotation)
}

func (s *PGStore) setAnnotation(ctx context.Context, id, column string, annotation json.RawMessage) error {
	query := fmt.Sprintf(`UPDATE issues SET %s = $1::jsonb WHERE id = $2`, column)
	tag, err := s.pool.Exec(ctx, query, []byte(annotation), id)
	if err != nil {
		return fmt.Errorf("issue: set %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) GetResponse(ctx context.Context, issueID string) (LandlordResponse, error) {
	const selectSQL = `SELECT issue_id, text, submitted_at FROM landlord_responses WHERE issue_id = $1`

	var resp LandlordResponse
	err := s.pool.QueryRow(ctx, selectSQL, issueID).Scan(&resp.IssueID, &resp.Text, &resp.SubmittedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LandlordResponse{}, ErrNoResponse
		}
		return LandlordResponse{}, fmt.Errorf("issue: get response: %w", err)
	}
	return resp, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec            Record
		verdict        *string
		classification []byte
		caseAnalysis   []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.TenantID,
		&rec.LandlordID,
		&rec.PropertyID,
		&rec.Description,
		&rec.Status,
		&verdict,
		&classification,
		&caseAnalysis,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	if verdict != nil {
		v := Verdict(*verdict)
		rec.Verdict = &v
	}
	rec.Classification = json.RawMessage(classification)
	rec.CaseAnalysis = json.RawMessage(caseAnalysis)
	return rec, nil
}

func appendTimelineEvent(ctx context.Context, tx pgx.Tx, issueID, eventType string, actorID *string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("issue: marshal timeline payload: %w", err)
	}
	var actor any
	if actorID != nil && *actorID != "" {
		actor = *actorID
	}
	const insertSQL = `
        INSERT INTO timeline_events (issue_id, type, payload, actor_id)
        VALUES ($1, $2, $3::jsonb, $4)
    `
	if _, err := tx.Exec(ctx, insertSQL, issueID, eventType, body, actor); err != nil {
		return fmt.Errorf("issue: insert timeline event: %w", err)
	}
	return nil
}

func enqueueOutbox(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("issue: marshal outbox payload: %w", err)
	}
	const insertSQL = `INSERT INTO outbox (topic, payload) VALUES ($1, $2::jsonb)`
	if _, err := tx.Exec(ctx, insertSQL, topic, body); err != nil {
		return fmt.Errorf("issue: enqueue outbox: %w", err)
	}
	return nil
}
