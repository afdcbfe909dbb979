package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rentshield/auth"
	"rentshield/issue"
	"rentshield/property"
	"rentshield/vote"
)

var (
	// ErrEmptyDescription rejects a report with no complaint text.
	ErrEmptyDescription = errors.New("lifecycle: description must not be empty")
	// ErrEmptyResponse rejects a landlord response with no text.
	ErrEmptyResponse = errors.New("lifecycle: response text must not be empty")
	// ErrEmptyAdminNotes rejects an admin action without notes.
	ErrEmptyAdminNotes = errors.New("lifecycle: admin notes must not be empty")
	// ErrNotIssueTenant signals the actor is not the issue's tenant.
	ErrNotIssueTenant = errors.New("lifecycle: actor is not the issue tenant")
	// ErrNotIssueLandlord signals the actor is not the issue's landlord.
	ErrNotIssueLandlord = errors.New("lifecycle: actor is not the issue landlord")
	// ErrVotesSealed gates individual votes until the issue leaves review.
	ErrVotesSealed = errors.New("lifecycle: votes are sealed until quorum is reached")
)

// Directory resolves actors referenced by commands.
type Directory interface {
	FindLandlordByEmail(ctx context.Context, email string) (auth.User, error)
}

// Properties finds or registers the property a report targets and backs the
// landlord portfolio reads.
type Properties interface {
	ResolveOrCreate(ctx context.Context, landlordID, address string) (property.Record, error)
	GetByID(ctx context.Context, id string) (property.Record, error)
	ListForLandlord(ctx context.Context, landlordID string) ([]property.Record, error)
}

// Classifier is the external AI analysis engine. Its results annotate the
// issue but never gate a transition.
type Classifier interface {
	ClassifyIssue(ctx context.Context, description string, evidenceCount int) (json.RawMessage, error)
	AnalyzeCase(ctx context.Context, issueID, complaint, response string) (json.RawMessage, error)
}

// Service is the lifecycle authority: it validates commands against the
// current status, delegates vote commands to the ledger and quorum
// evaluator, and applies transitions through the store's compare-and-swap.
type Service struct {
	store      issue.Store
	ledger     vote.Ledger
	directory  Directory
	properties Properties
	classifier Classifier
	quorum     vote.QuorumConfig
	log        *zap.Logger
	now        func() time.Time
}

func NewService(store issue.Store, ledger vote.Ledger, directory Directory, properties Properties, classifier Classifier, quorum vote.QuorumConfig, log *zap.Logger) *Service {
	if quorum.Threshold <= 0 {
		quorum = vote.DefaultQuorumConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:      store,
		ledger:     ledger,
		directory:  directory,
		properties: properties,
		classifier: classifier,
		quorum:     quorum,
		log:        log,
		now:        time.Now,
	}
}

// FileReportParams carries a tenant's report command.
type FileReportParams struct {
	TenantID        string
	LandlordEmail   string
	PropertyAddress string
	Description     string
	EvidenceCount   int
}

// FileReport creates the issue in Reported state, runs the external
// classification (non-fatal), and advances it to AwaitingLandlordResponse.
func (s *Service) FileReport(ctx context.Context, params FileReportParams) (issue.Record, error) {
	description := strings.TrimSpace(params.Description)
	if description == "" {
		return issue.Record{}, ErrEmptyDescription
	}
	if params.TenantID == "" {
		return issue.Record{}, fmt.Errorf("lifecycle: tenant id required")
	}

	landlord, err := s.directory.FindLandlordByEmail(ctx, params.LandlordEmail)
	if err != nil {
		return issue.Record{}, err
	}

	prop, err := s.properties.ResolveOrCreate(ctx, landlord.ID, params.PropertyAddress)
	if err != nil {
		return issue.Record{}, err
	}

	rec, err := s.store.Create(ctx, issue.CreateParams{
		TenantID:    params.TenantID,
		LandlordID:  landlord.ID,
		PropertyID:  prop.ID,
		Description: description,
	})
	if err != nil {
		return issue.Record{}, err
	}

	s.classifyReport(ctx, rec.ID, description, params.EvidenceCount)

	next, err := Next(rec.Status, EventEvidenceProcessed)
	if err != nil {
		return issue.Record{}, err
	}
	return s.store.Transition(ctx, issue.TransitionParams{
		IssueID: rec.ID,
		From:    rec.Status,
		To:      next,
		Event:   string(EventEvidenceProcessed),
	})
}

// SubmitLandlordResponse records the landlord's reply and moves the issue
// into DAO review. Resubmitting replaces the pending response; it never
// duplicates it.
func (s *Service) SubmitLandlordResponse(ctx context.Context, issueID, landlordID, text string) (issue.Record, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return issue.Record{}, ErrEmptyResponse
	}

	rec, err := s.store.Get(ctx, issueID)
	if err != nil {
		return issue.Record{}, err
	}
	if rec.LandlordID != landlordID {
		return issue.Record{}, ErrNotIssueLandlord
	}

	next, err := Next(rec.Status, EventLandlordResponded)
	if err != nil {
		return issue.Record{}, err
	}

	updated, err := s.store.Transition(ctx, issue.TransitionParams{
		IssueID:      issueID,
		From:         rec.Status,
		To:           next,
		Event:        string(EventLandlordResponded),
		ActorID:      &landlordID,
		ResponseText: &trimmed,
	})
	if err != nil {
		return issue.Record{}, err
	}

	s.analyzeCase(ctx, updated.ID, updated.Description, trimmed)
	return updated, nil
}

// CastVoteParams carries a juror's ballot.
type CastVoteParams struct {
	IssueID   string
	JurorID   string
	Choice    vote.Choice
	Reasoning string
}

// CastVote records one juror's vote and, when the tally crosses the quorum
// threshold, concludes the review. If two concurrent casts both observe the
// threshold, the store's compare-and-swap lets exactly one conclude; the
// loser sees the conflict and stops, because the transition already
// happened.
func (s *Service) CastVote(ctx context.Context, params CastVoteParams) (vote.Tally, error) {
	if !params.Choice.Valid() {
		return vote.Tally{}, fmt.Errorf("lifecycle: invalid vote choice %q", params.Choice)
	}
	if params.JurorID == "" {
		return vote.Tally{}, fmt.Errorf("lifecycle: juror id required")
	}

	rec, err := s.store.Get(ctx, params.IssueID)
	if err != nil {
		return vote.Tally{}, err
	}
	if rec.Status != issue.StatusDaoReview {
		return vote.Tally{}, vote.ErrIssueNotInReview
	}

	// Reasoning stays a distinct, optional field. An empty reasoning is
	// never coerced into an abstain.
	var reasoning *string
	if trimmed := strings.TrimSpace(params.Reasoning); trimmed != "" {
		reasoning = &trimmed
	}

	if _, err := s.ledger.Insert(ctx, vote.Record{
		IssueID:   params.IssueID,
		JurorID:   params.JurorID,
		Choice:    params.Choice,
		Reasoning: reasoning,
	}); err != nil {
		return vote.Tally{}, err
	}

	tally, err := s.ledger.Tally(ctx, params.IssueID)
	if err != nil {
		return vote.Tally{}, err
	}

	outcome := vote.EvaluateQuorum(tally, s.quorum)
	if !outcome.Reached {
		return tally, nil
	}

	verdict := outcome.Verdict
	_, err = s.store.Transition(ctx, issue.TransitionParams{
		IssueID: params.IssueID,
		From:    issue.StatusDaoReview,
		To:      QuorumTarget(verdict),
		Event:   string(EventQuorumReached),
		Verdict: &verdict,
		Payload: map[string]any{
			"favor_tenant":   tally.FavorTenant,
			"favor_landlord": tally.FavorLandlord,
			"abstain":        tally.Abstain,
			"total":          tally.Total,
		},
	})
	if err != nil {
		if errors.Is(err, issue.ErrConflict) {
			// A concurrent cast already concluded the review.
			return tally, nil
		}
		return vote.Tally{}, err
	}
	return tally, nil
}

// ConfirmCompliance is the tenant accepting that the verdict was honored.
func (s *Service) ConfirmCompliance(ctx context.Context, issueID, tenantID string) (issue.Record, error) {
	return s.tenantFollowUp(ctx, issueID, tenantID, EventTenantConfirmsCompliance)
}

// ReportNonCompliance is the tenant disputing the verdict outcome, routing
// the issue to admin review.
func (s *Service) ReportNonCompliance(ctx context.Context, issueID, tenantID string) (issue.Record, error) {
	return s.tenantFollowUp(ctx, issueID, tenantID, EventTenantReportsNonCompliance)
}

func (s *Service) tenantFollowUp(ctx context.Context, issueID, tenantID string, ev Event) (issue.Record, error) {
	rec, err := s.store.Get(ctx, issueID)
	if err != nil {
		return issue.Record{}, err
	}
	if rec.TenantID != tenantID {
		return issue.Record{}, ErrNotIssueTenant
	}

	next, err := Next(rec.Status, ev)
	if err != nil {
		return issue.Record{}, err
	}
	return s.store.Transition(ctx, issue.TransitionParams{
		IssueID: issueID,
		From:    rec.Status,
		To:      next,
		Event:   string(ev),
		ActorID: &tenantID,
	})
}

// AdminResolve closes out an escalated issue as resolved. Notes are
// mandatory; they become part of the audit trail.
func (s *Service) AdminResolve(ctx context.Context, issueID, adminID, notes string) (issue.Record, error) {
	return s.adminAction(ctx, issueID, adminID, notes, EventAdminResolves)
}

// AdminClose closes an escalated issue without resolution.
func (s *Service) AdminClose(ctx context.Context, issueID, adminID, notes string) (issue.Record, error) {
	return s.adminAction(ctx, issueID, adminID, notes, EventAdminCloses)
}

func (s *Service) adminAction(ctx context.Context, issueID, adminID, notes string, ev Event) (issue.Record, error) {
	trimmed := strings.TrimSpace(notes)
	if trimmed == "" {
		return issue.Record{}, ErrEmptyAdminNotes
	}
	if adminID == "" {
		return issue.Record{}, fmt.Errorf("lifecycle: admin id required")
	}

	rec, err := s.store.Get(ctx, issueID)
	if err != nil {
		return issue.Record{}, err
	}

	next, err := Next(rec.Status, ev)
	if err != nil {
		return issue.Record{}, err
	}
	return s.store.Transition(ctx, issue.TransitionParams{
		IssueID: issueID,
		From:    rec.Status,
		To:      next,
		Event:   string(ev),
		ActorID: &adminID,
		Payload: map[string]any{"admin_notes": trimmed},
	})
}

// GetIssue returns the current issue record.
func (s *Service) GetIssue(ctx context.Context, id string) (issue.Record, error) {
	return s.store.Get(ctx, id)
}

// Progress is the only vote aggregate readable while the review is open.
type Progress struct {
	Total     int
	Threshold int
}

// VoteProgress exposes how close the review is to quorum without revealing
// any ballot.
func (s *Service) VoteProgress(ctx context.Context, issueID string) (Progress, error) {
	if _, err := s.store.Get(ctx, issueID); err != nil {
		return Progress{}, err
	}
	tally, err := s.ledger.Tally(ctx, issueID)
	if err != nil {
		return Progress{}, err
	}
	return Progress{Total: tally.Total, Threshold: s.quorum.Threshold}, nil
}

// Votes lists the ballots for an issue once the review has concluded.
// While the issue is still on its way to quorum the ballots stay sealed.
func (s *Service) Votes(ctx context.Context, issueID string) ([]vote.Record, error) {
	rec, err := s.store.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	switch rec.Status {
	case issue.StatusReported, issue.StatusAwaitingLandlordResponse, issue.StatusDaoReview:
		return nil, ErrVotesSealed
	}
	return s.ledger.ListForIssue(ctx, issueID)
}

// LandlordResponse returns the pending response for an issue.
func (s *Service) LandlordResponse(ctx context.Context, issueID string) (issue.LandlordResponse, error) {
	return s.store.GetResponse(ctx, issueID)
}

// LandlordProperties lists the properties registered under the landlord.
func (s *Service) LandlordProperties(ctx context.Context, landlordID string) ([]property.Record, error) {
	return s.properties.ListForLandlord(ctx, landlordID)
}

// Property returns one registered property. Landlords resolve only their own
// rows; admins resolve any. Foreign rows read as not found.
func (s *Service) Property(ctx context.Context, propertyID, actorID string, role auth.Role) (property.Record, error) {
	rec, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return property.Record{}, err
	}
	if role != auth.RoleAdmin && rec.LandlordID != actorID {
		return property.Record{}, property.ErrNotFound
	}
	return rec, nil
}

func (s *Service) classifyReport(ctx context.Context, issueID, description string, evidenceCount int) {
	if s.classifier == nil {
		return
	}
	annotation, err := s.classifier.ClassifyIssue(ctx, description, evidenceCount)
	if err != nil {
		s.log.Warn("issue classification unavailable, proceeding without annotation",
			zap.String("issue_id", issueID), zap.Error(err))
		return
	}
	if err := s.store.SetClassification(ctx, issueID, annotation); err != nil {
		s.log.Warn("storing classification annotation failed",
			zap.String("issue_id", issueID), zap.Error(err))
	}
}

func (s *Service) analyzeCase(ctx context.Context, issueID, complaint, response string) {
	if s.classifier == nil {
		return
	}
	annotation, err := s.classifier.AnalyzeCase(ctx, issueID, complaint, response)
	if err != nil {
		s.log.Warn("case analysis unavailable, proceeding without annotation",
			zap.String("issue_id", issueID), zap.Error(err))
		return
	}
	if err := s.store.SetCaseAnalysis(ctx, issueID, annotation); err != nil {
		s.log.Warn("storing case analysis annotation failed",
			zap.String("issue_id", issueID), zap.Error(err))
	}
}
