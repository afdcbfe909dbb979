package issue

import (
	"encoding/json"
	"time"
)

// Status represents the lifecycle position of a filed issue.
type Status string

const (
	StatusReported                 Status = "reported"
	StatusAwaitingLandlordResponse Status = "awaiting_landlord_response"
	StatusDaoReview                Status = "dao_review"
	StatusDaoVerdict               Status = "dao_verdict"
	StatusResolved                 Status = "resolved"
	StatusEscalatedToAdmin         Status = "escalated_to_admin"
	StatusClosed                   Status = "closed"
)

// Verdict is the DAO's concluded decision. It is set exactly once, when the
// vote tally crosses the quorum threshold, and never cleared afterwards.
type Verdict string

const (
	VerdictFavorTenant   Verdict = "favor_tenant"
	VerdictFavorLandlord Verdict = "favor_landlord"
	VerdictNoQuorum      Verdict = "no_quorum"
)

// Record mirrors the issues table. Tenant, landlord and property references
// are immutable after creation; only Status, Verdict, the annotations and
// UpdatedAt move.
type Record struct {
	ID             string
	TenantID       string
	LandlordID     string
	PropertyID     string
	Description    string
	Status         Status
	Verdict        *Verdict
	Classification json.RawMessage
	CaseAnalysis   json.RawMessage
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LandlordResponse is the landlord's reply to a filed issue. At most one per
// issue; a resubmission replaces the pending response rather than appending.
type LandlordResponse struct {
	IssueID     string
	Text        string
	SubmittedAt time.Time
}

// CreateParams contains the immutable references captured when a tenant
// files a report.
type CreateParams struct {
	TenantID    string
	LandlordID  string
	PropertyID  string
	Description string
}

// TransitionParams describes one compare-and-swap status move. From is the
// status the caller observed; the store rejects the update with ErrConflict
// if the row no longer carries it.
type TransitionParams struct {
	IssueID string
	From    Status
	To      Status
	Event   string
	ActorID *string
	// Verdict, when non-nil, is recorded together with the status change.
	Verdict *Verdict
	// ResponseText, when non-nil, upserts the landlord response in the same
	// transaction as the status change.
	ResponseText *string
	Payload      map[string]any
}
