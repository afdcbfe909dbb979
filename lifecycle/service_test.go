package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"rentshield/auth"
	"rentshield/issue"
	"rentshield/property"
	"rentshield/vote"
)

type fakeStore struct {
	record       issue.Record
	getErr       error
	createErr    error
	transitions  []issue.TransitionParams
	transitionFn func(issue.TransitionParams) (issue.Record, error)

	classification json.RawMessage
	caseAnalysis   json.RawMessage
	response       *issue.LandlordResponse
}

func (f *fakeStore) Create(_ context.Context, params issue.CreateParams) (issue.Record, error) {
	if f.createErr != nil {
		return issue.Record{}, f.createErr
	}
	f.record = issue.Record{
		ID:          "iss-1",
		TenantID:    params.TenantID,
		LandlordID:  params.LandlordID,
		PropertyID:  params.PropertyID,
		Description: params.Description,
		Status:      issue.StatusReported,
	}
	return f.record, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (issue.Record, error) {
	if f.getErr != nil {
		return issue.Record{}, f.getErr
	}
	if f.record.ID != id {
		return issue.Record{}, issue.ErrNotFound
	}
	return f.record, nil
}

func (f *fakeStore) Transition(_ context.Context, params issue.TransitionParams) (issue.Record, error) {
	f.transitions = append(f.transitions, params)
	if f.transitionFn != nil {
		return f.transitionFn(params)
	}
	f.record.Status = params.To
	if params.Verdict != nil {
		v := *params.Verdict
		f.record.Verdict = &v
	}
	if params.ResponseText != nil {
		f.response = &issue.LandlordResponse{IssueID: params.IssueID, Text: *params.ResponseText}
	}
	return f.record, nil
}

func (f *fakeStore) SetClassification(_ context.Context, _ string, annotation json.RawMessage) error {
	f.classification = annotation
	return nil
}

func (f *fakeStore) SetCaseAnalysis(_ context.Context, _ string, annotation json.RawMessage) error {
	f.caseAnalysis = annotation
	return nil
}

func (f *fakeStore) GetResponse(_ context.Context, issueID string) (issue.LandlordResponse, error) {
	if f.response == nil {
		return issue.LandlordResponse{}, issue.ErrNoResponse
	}
	return *f.response, nil
}

type fakeLedger struct {
	votes     []vote.Record
	insertErr error
	tally     vote.Tally
	tallyErr  error
}

func (f *fakeLedger) Insert(_ context.Context, rec vote.Record) (vote.Record, error) {
	if f.insertErr != nil {
		return vote.Record{}, f.insertErr
	}
	f.votes = append(f.votes, rec)
	return rec, nil
}

func (f *fakeLedger) Tally(_ context.Context, _ string) (vote.Tally, error) {
	return f.tally, f.tallyErr
}

func (f *fakeLedger) ListForIssue(_ context.Context, _ string) ([]vote.Record, error) {
	return f.votes, nil
}

type fakeDirectory struct {
	landlord auth.User
	err      error
}

func (f *fakeDirectory) FindLandlordByEmail(_ context.Context, _ string) (auth.User, error) {
	return f.landlord, f.err
}

type fakeProperties struct {
	record  property.Record
	listing []property.Record
	err     error
}

func (f *fakeProperties) ResolveOrCreate(_ context.Context, landlordID, address string) (property.Record, error) {
	if f.err != nil {
		return property.Record{}, f.err
	}
	f.record = property.Record{ID: "prop-1", LandlordID: landlordID, Address: address}
	return f.record, nil
}

func (f *fakeProperties) GetByID(_ context.Context, id string) (property.Record, error) {
	if f.err != nil {
		return property.Record{}, f.err
	}
	if f.record.ID != id {
		return property.Record{}, property.ErrNotFound
	}
	return f.record, nil
}

func (f *fakeProperties) ListForLandlord(_ context.Context, landlordID string) ([]property.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]property.Record, 0, len(f.listing))
	for _, rec := range f.listing {
		if rec.LandlordID == landlordID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeClassifier struct {
	classifyResult json.RawMessage
	classifyErr    error
	analyzeResult  json.RawMessage
	analyzeErr     error
	analyzeCalls   int
}

func (f *fakeClassifier) ClassifyIssue(_ context.Context, _ string, _ int) (json.RawMessage, error) {
	return f.classifyResult, f.classifyErr
}

func (f *fakeClassifier) AnalyzeCase(_ context.Context, _, _, _ string) (json.RawMessage, error) {
	f.analyzeCalls++
	return f.analyzeResult, f.analyzeErr
}

func newTestService(store *fakeStore, ledger *fakeLedger, classifier Classifier) *Service {
	return NewService(
		store,
		ledger,
		&fakeDirectory{landlord: auth.User{ID: "ll-1", Email: "owner@example.com", Role: auth.RoleLandlord}},
		&fakeProperties{},
		classifier,
		vote.QuorumConfig{Threshold: 10, TieBreak: issue.VerdictNoQuorum},
		nil,
	)
}

func TestFileReport_Success(t *testing.T) {
	store := &fakeStore{}
	classifier := &fakeClassifier{classifyResult: json.RawMessage(`{"category":"mold"}`)}
	svc := newTestService(store, &fakeLedger{}, classifier)

	rec, err := svc.FileReport(context.Background(), FileReportParams{
		TenantID:        "t-1",
		LandlordEmail:   "owner@example.com",
		PropertyAddress: "12 Main St",
		Description:     "mold in bathroom",
		EvidenceCount:   2,
	})
	if err != nil {
		t.Fatalf("FileReport: %v", err)
	}
	if rec.Status != issue.StatusAwaitingLandlordResponse {
		t.Fatalf("expected status %s, got %s", issue.StatusAwaitingLandlordResponse, rec.Status)
	}
	if string(store.classification) != `{"category":"mold"}` {
		t.Fatalf("classification not stored: %q", store.classification)
	}
	if len(store.transitions) != 1 || store.transitions[0].Event != string(EventEvidenceProcessed) {
		t.Fatalf("unexpected transitions: %+v", store.transitions)
	}
}

func TestFileReport_EmptyDescription(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeLedger{}, nil)

	if _, err := svc.FileReport(context.Background(), FileReportParams{
		TenantID:      "t-1",
		LandlordEmail: "owner@example.com",
		Description:   "   ",
	}); !errors.Is(err, ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}
}

func TestFileReport_LandlordNotFound(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeLedger{},
		&fakeDirectory{err: auth.ErrNotLandlord},
		&fakeProperties{}, nil, vote.DefaultQuorumConfig(), nil)

	if _, err := svc.FileReport(context.Background(), FileReportParams{
		TenantID:      "t-1",
		LandlordEmail: "tenant@example.com",
		Description:   "broken heater",
	}); !errors.Is(err, auth.ErrNotLandlord) {
		t.Fatalf("expected ErrNotLandlord, got %v", err)
	}
	if len(store.transitions) != 0 {
		t.Fatalf("no transition expected, got %+v", store.transitions)
	}
}

func TestFileReport_ClassifierFailureIsNonFatal(t *testing.T) {
	store := &fakeStore{}
	classifier := &fakeClassifier{classifyErr: errors.New("service unavailable")}
	svc := newTestService(store, &fakeLedger{}, classifier)

	rec, err := svc.FileReport(context.Background(), FileReportParams{
		TenantID:      "t-1",
		LandlordEmail: "owner@example.com",
		Description:   "no hot water",
	})
	if err != nil {
		t.Fatalf("FileReport should survive classifier outage: %v", err)
	}
	if rec.Status != issue.StatusAwaitingLandlordResponse {
		t.Fatalf("expected status %s, got %s", issue.StatusAwaitingLandlordResponse, rec.Status)
	}
	if store.classification != nil {
		t.Fatalf("no annotation expected, got %q", store.classification)
	}
}

func TestSubmitLandlordResponse_Success(t *testing.T) {
	store := &fakeStore{record: issue.Record{
		ID: "iss-1", TenantID: "t-1", LandlordID: "ll-1",
		Description: "mold in bathroom",
		Status:      issue.StatusAwaitingLandlordResponse,
	}}
	classifier := &fakeClassifier{analyzeResult: json.RawMessage(`{"summary":"disputed"}`)}
	svc := newTestService(store, &fakeLedger{}, classifier)

	rec, err := svc.SubmitLandlordResponse(context.Background(), "iss-1", "ll-1", "  scheduled repairs  ")
	if err != nil {
		t.Fatalf("SubmitLandlordResponse: %v", err)
	}
	if rec.Status != issue.StatusDaoReview {
		t.Fatalf("expected status %s, got %s", issue.StatusDaoReview, rec.Status)
	}
	if store.response == nil || store.response.Text != "scheduled repairs" {
		t.Fatalf("response not recorded trimmed: %+v", store.response)
	}
	if classifier.analyzeCalls != 1 {
		t.Fatalf("expected one case analysis call, got %d", classifier.analyzeCalls)
	}
	if string(store.caseAnalysis) != `{"summary":"disputed"}` {
		t.Fatalf("analysis not stored: %q", store.caseAnalysis)
	}
}

func TestSubmitLandlordResponse_WrongLandlord(t *testing.T) {
	store := &fakeStore{record: issue.Record{
		ID: "iss-1", LandlordID: "ll-1",
		Status: issue.StatusAwaitingLandlordResponse,
	}}
	svc := newTestService(store, &fakeLedger{}, nil)

	if _, err := svc.SubmitLandlordResponse(context.Background(), "iss-1", "ll-2", "not mine"); !errors.Is(err, ErrNotIssueLandlord) {
		t.Fatalf("expected ErrNotIssueLandlord, got %v", err)
	}
}

func TestSubmitLandlordResponse_EmptyText(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeLedger{}, nil)

	if _, err := svc.SubmitLandlordResponse(context.Background(), "iss-1", "ll-1", " "); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestSubmitLandlordResponse_WrongStatus(t *testing.T) {
	store := &fakeStore{record: issue.Record{
		ID: "iss-1", LandlordID: "ll-1",
		Status: issue.StatusDaoReview,
	}}
	svc := newTestService(store, &fakeLedger{}, nil)

	if _, err := svc.SubmitLandlordResponse(context.Background(), "iss-1", "ll-1", "again"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCastVote_BelowThresholdKeepsReviewOpen(t *testing.T) {
	store := &fakeStore{record: issue.Record{ID: "iss-1", Status: issue.StatusDaoReview}}
	ledger := &fakeLedger{tally: vote.Tally{FavorTenant: 3, FavorLandlord: 1, Total: 4}}
	svc := newTestService(store, ledger, nil)

	tally, err := svc.CastVote(context.Background(), CastVoteParams{
		IssueID: "iss-1", JurorID: "j-1", Choice: vote.ChoiceFavorTenant,
	})
	if err != nil {
		t.Fatalf("CastVote: %v", err)
	}
	if tally.Total != 4 {
		t.Fatalf("expected total 4, got %d", tally.Total)
	}
	if len(store.transitions) != 0 {
		t.Fatalf("review should stay open, got transitions %+v", store.transitions)
	}
}

func TestCastVote_DecisiveQuorumConcludesReview(t *testing.T) {
	store := &fakeStore{record: issue.Record{ID: "iss-1", Status: issue.StatusDaoReview}}
	ledger := &fakeLedger{tally: vote.Tally{FavorTenant: 6, FavorLandlord: 3, Abstain: 1, Total: 10}}
	svc := newTestService(store, ledger, nil)

	if _, err := svc.CastVote(context.Background(), CastVoteParams{
		IssueID: "iss-1", JurorID: "j-10", Choice: vote.ChoiceFavorTenant,
	}); err != nil {
		t.Fatalf("CastVote: %v", err)
	}

	if len(store.transitions) != 1 {
		t.Fatalf("expected one transition, got %d", len(store.transitions))
	}
	tr := store.transitions[0]
	if tr.To != issue.StatusDaoVerdict || tr.Event != string(EventQuorumReached) {
		t.Fatalf("unexpected transition: %+v", tr)
	}
	if tr.Verdict == nil || *tr.Verdict != issue.VerdictFavorTenant {
		t.Fatalf("expected favor_tenant verdict, got %+v", tr.Verdict)
	}
	if tr.Payload["total"] != 10 {
		t.Fatalf("tally payload missing: %+v", tr.Payload)
	}
}

func TestCastVote_TieEscalatesToAdmin(t *testing.T) {
	store := &fakeStore{record: issue.Record{ID: "iss-1", Status: issue.StatusDaoReview}}
	ledger := &fakeLedger{tally: vote.Tally{FavorTenant: 5, FavorLandlord: 5, Total: 10}}
	svc := newTestService(store, ledger, nil)

	if _, err := svc.CastVote(context.Background(), CastVoteParams{
		IssueID: "iss-1", JurorID: "j-10", Choice: vote.ChoiceFavorLandlord,
	}); err != nil {
		t.Fatalf("CastVote: %v", err)
	}

	if len(store.transitions) != 1 {
		t.Fatalf("expected one transition, got %d", len(store.transitions))
	}
	tr := store.transitions[0]
	if tr.To != issue.StatusEscalatedToAdmin {
		t.Fatalf("tie should escalate, went to %s", tr.To)
	}
	if tr.Verdict == nil || *tr.Verdict != issue.VerdictNoQuorum {
		t.Fatalf("expected no_quorum verdict, got %+v", tr.Verdict)
	}
}

func TestCastVote_ConcurrentConclusionIsSwallowed(t *testing.T) {
	store := &fakeStore{
		record: issue.Record{ID: "iss-1", Status: issue.StatusDaoReview},
		transitionFn: func(issue.TransitionParams) (issue.Record, error) {
			return issue.Record{}, issue.ErrConflict
		},
	}
	ledger := &fakeLedger{tally: vote.Tally{FavorTenant: 7, FavorLandlord: 3, Total: 10}}
	svc := newTestService(store, ledger, nil)

	tally, err := svc.CastVote(context.Background(), CastVoteParams{
		IssueID: "iss-1", JurorID: "j-10", Choice: vote.ChoiceFavorTenant,
	})
	if err != nil {
		t.Fatalf("losing the conclude race must not fail the cast: %v", err)
	}
	if tally.Total != 10 {
		t.Fatalf("expected tally 10, got %d", tally.Total)
	}
}

func TestCastVote_DuplicateRejected(t *testing.T) {
	store := &fakeStore{record: issue.Record{ID: "iss-1", Status: issue.StatusDaoReview}}
	ledger := &fakeLedger{insertErr: vote.ErrDuplicateVote}
	svc := newTestService(store, ledger, nil)

	if _, err := svc.CastVote(context.Background(), CastVoteParams{
		IssueID: "iss-1", JurorID: "j-1", Choice: vote.ChoiceAbstain,
	}); !errors.Is(err, vote.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}
}

func TestCastVote_NotInReview(t *testing.T) {
	store := &fakeStore{record: issue.Record{ID: "iss-1", Status: issue.StatusDaoVerdict}}
	svc := newTestService(store, &fakeLedger{}, nil)

	if _, err := svc.CastVote(context.Background(), CastVoteParams{
		IssueID: "iss-1", JurorID: "j-1", Choice: vote.ChoiceFavorTenant,
	}); !errors.Is(err, vote.ErrIssueNotInReview) {
		t.Fatalf("expected ErrIssueNotInReview, got %v", err)
	}
}

func TestCastVote_InvalidChoice(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeLedger{}, nil)

	if _, err := svc.CastVote(context.Background(), CastVoteParams{
		IssueID: "iss-1", JurorID: "j-1", Choice: "maybe",
	}); err == nil {
		t.Fatal("expected error for invalid choice")
	}
}

func TestConfirmCompliance_Success(t *testing.T) {
	store := &fakeStore{record: issue.Record{
		ID: "iss-1", TenantID: "t-1",
		Status: issue.StatusDaoVerdict,
	}}
	svc := newTestService(store, &fakeLedger{}, nil)

	rec, err := svc.ConfirmCompliance(context.Background(), "iss-1", "t-1")
	if err != nil {
		t.Fatalf("ConfirmCompliance: %v", err)
	}
	if rec.Status != issue.StatusResolved {
		t.Fatalf("expected resolved, got %s", rec.Status)
	}
}

func TestConfirmCompliance_WrongTenant(t *testing.T) {
	store := &fakeStore{record: issue.Record{
		ID: "iss-1", TenantID: "t-1",
		Status: issue.StatusDaoVerdict,
	}}
	svc := newTestService(store, &fakeLedger{}, nil)

	if _, err := svc.ConfirmCompliance(context.Background(), "iss-1", "t-2"); !errors.Is(err, ErrNotIssueTenant) {
		t.Fatalf("expected ErrNotIssueTenant, got %v", err)
	}
}

func TestConfirmCompliance_RejectedAfterEscalation(t *testing.T) {
	store := &fakeStore{record: issue.Record{
		ID: "iss-1", TenantID: "t-1",
		Status: issue.StatusEscalatedToAdmin,
	}}
	svc := newTestService(store, &fakeLedger{}, nil)

	if _, err := svc.ConfirmCompliance(context.Background(), "iss-1", "t-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestReportNonCompliance_EscalatesAndKeepsVerdict(t *testing.T) {
	verdict := issue.VerdictFavorLandlord
	store := &fakeStore{record: issue.Record{
		ID: "iss-1", TenantID: "t-1",
		Status:  issue.StatusDaoVerdict,
		Verdict: &verdict,
	}}
	svc := newTestService(store, &fakeLedger{}, nil)

	rec, err := svc.ReportNonCompliance(context.Background(), "iss-1", "t-1")
	if err != nil {
		t.Fatalf("ReportNonCompliance: %v", err)
	}
	if rec.Status != issue.StatusEscalatedToAdmin {
		t.Fatalf("expected escalated_to_admin, got %s", rec.Status)
	}
	if rec.Verdict == nil || *rec.Verdict != issue.VerdictFavorLandlord {
		t.Fatalf("escalation must not clear the verdict: %+v", rec.Verdict)
	}
}

func TestAdminResolve_Success(t *testing.T) {
	store := &fakeStore{record: issue.Record{
		ID:     "iss-1",
		Status: issue.StatusEscalatedToAdmin,
	}}
	svc := newTestService(store, &fakeLedger{}, nil)

	rec, err := svc.AdminResolve(context.Background(), "iss-1", "adm-1", "landlord completed repairs")
	if err != nil {
		t.Fatalf("AdminResolve: %v", err)
	}
	if rec.Status != issue.StatusResolved {
		t.Fatalf("expected resolved, got %s", rec.Status)
	}
	tr := store.transitions[0]
	if tr.Payload["admin_notes"] != "landlord completed repairs" {
		t.Fatalf("admin notes missing from payload: %+v", tr.Payload)
	}
	if tr.ActorID == nil || *tr.ActorID != "adm-1" {
		t.Fatalf("actor not recorded: %+v", tr.ActorID)
	}
}

func TestAdminClose_EmptyNotes(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeLedger{}, nil)

	if _, err := svc.AdminClose(context.Background(), "iss-1", "adm-1", "  "); !errors.Is(err, ErrEmptyAdminNotes) {
		t.Fatalf("expected ErrEmptyAdminNotes, got %v", err)
	}
}

func TestAdminClose_FromVerdictRejected(t *testing.T) {
	store := &fakeStore{record: issue.Record{
		ID:     "iss-1",
		Status: issue.StatusDaoVerdict,
	}}
	svc := newTestService(store, &fakeLedger{}, nil)

	if _, err := svc.AdminClose(context.Background(), "iss-1", "adm-1", "skipping DAO outcome"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestVotes_SealedDuringReview(t *testing.T) {
	store := &fakeStore{record: issue.Record{ID: "iss-1", Status: issue.StatusDaoReview}}
	ledger := &fakeLedger{votes: []vote.Record{{IssueID: "iss-1", JurorID: "j-1", Choice: vote.ChoiceFavorTenant}}}
	svc := newTestService(store, ledger, nil)

	if _, err := svc.Votes(context.Background(), "iss-1"); !errors.Is(err, ErrVotesSealed) {
		t.Fatalf("expected ErrVotesSealed, got %v", err)
	}
}

func TestVotes_ReadableAfterVerdict(t *testing.T) {
	store := &fakeStore{record: issue.Record{ID: "iss-1", Status: issue.StatusDaoVerdict}}
	ledger := &fakeLedger{votes: []vote.Record{
		{IssueID: "iss-1", JurorID: "j-1", Choice: vote.ChoiceFavorTenant},
		{IssueID: "iss-1", JurorID: "j-2", Choice: vote.ChoiceAbstain},
	}}
	svc := newTestService(store, ledger, nil)

	votes, err := svc.Votes(context.Background(), "iss-1")
	if err != nil {
		t.Fatalf("Votes: %v", err)
	}
	if len(votes) != 2 {
		t.Fatalf("expected 2 votes, got %d", len(votes))
	}
}

func TestVoteProgress_RevealsOnlyCounts(t *testing.T) {
	store := &fakeStore{record: issue.Record{ID: "iss-1", Status: issue.StatusDaoReview}}
	ledger := &fakeLedger{tally: vote.Tally{FavorTenant: 4, FavorLandlord: 2, Abstain: 1, Total: 7}}
	svc := newTestService(store, ledger, nil)

	progress, err := svc.VoteProgress(context.Background(), "iss-1")
	if err != nil {
		t.Fatalf("VoteProgress: %v", err)
	}
	if progress.Total != 7 || progress.Threshold != 10 {
		t.Fatalf("unexpected progress: %+v", progress)
	}
}

func newPropertyTestService(props *fakeProperties) *Service {
	return NewService(
		&fakeStore{},
		&fakeLedger{},
		&fakeDirectory{},
		props,
		nil,
		vote.QuorumConfig{Threshold: 10, TieBreak: issue.VerdictNoQuorum},
		nil,
	)
}

func TestLandlordProperties_ScopedToLandlord(t *testing.T) {
	props := &fakeProperties{listing: []property.Record{
		{ID: "prop-1", LandlordID: "ll-1", Address: "12 Main St"},
		{ID: "prop-2", LandlordID: "ll-1", Address: "14 Main St"},
		{ID: "prop-3", LandlordID: "ll-2", Address: "9 Oak Ave"},
	}}
	svc := newPropertyTestService(props)

	recs, err := svc.LandlordProperties(context.Background(), "ll-1")
	if err != nil {
		t.Fatalf("LandlordProperties: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 properties, got %d", len(recs))
	}
	for _, rec := range recs {
		if rec.LandlordID != "ll-1" {
			t.Fatalf("foreign property %s leaked into listing", rec.ID)
		}
	}
}

func TestProperty_OwnershipGuard(t *testing.T) {
	props := &fakeProperties{record: property.Record{ID: "prop-1", LandlordID: "ll-1", Address: "12 Main St"}}
	svc := newPropertyTestService(props)
	ctx := context.Background()

	rec, err := svc.Property(ctx, "prop-1", "ll-1", auth.RoleLandlord)
	if err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if rec.ID != "prop-1" {
		t.Fatalf("expected prop-1, got %s", rec.ID)
	}

	if _, err := svc.Property(ctx, "prop-1", "ll-2", auth.RoleLandlord); !errors.Is(err, property.ErrNotFound) {
		t.Fatalf("foreign landlord: expected ErrNotFound, got %v", err)
	}

	if _, err := svc.Property(ctx, "prop-1", "admin-1", auth.RoleAdmin); err != nil {
		t.Fatalf("admin read: %v", err)
	}

	if _, err := svc.Property(ctx, "prop-missing", "ll-1", auth.RoleLandlord); !errors.Is(err, property.ErrNotFound) {
		t.Fatalf("missing property: expected ErrNotFound, got %v", err)
	}
}
