package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rentshield/audit"
	"rentshield/auth"
	"rentshield/authz"
	"rentshield/issue"
	"rentshield/lifecycle"
	"rentshield/property"
	"rentshield/vote"
)

// Lifecycle is the command/read surface the handlers call into.
type Lifecycle interface {
	FileReport(ctx context.Context, params lifecycle.FileReportParams) (issue.Record, error)
	SubmitLandlordResponse(ctx context.Context, issueID, landlordID, text string) (issue.Record, error)
	CastVote(ctx context.Context, params lifecycle.CastVoteParams) (vote.Tally, error)
	ConfirmCompliance(ctx context.Context, issueID, tenantID string) (issue.Record, error)
	ReportNonCompliance(ctx context.Context, issueID, tenantID string) (issue.Record, error)
	AdminResolve(ctx context.Context, issueID, adminID, notes string) (issue.Record, error)
	AdminClose(ctx context.Context, issueID, adminID, notes string) (issue.Record, error)
	GetIssue(ctx context.Context, id string) (issue.Record, error)
	VoteProgress(ctx context.Context, issueID string) (lifecycle.Progress, error)
	Votes(ctx context.Context, issueID string) ([]vote.Record, error)
	LandlordResponse(ctx context.Context, issueID string) (issue.LandlordResponse, error)
	LandlordProperties(ctx context.Context, landlordID string) ([]property.Record, error)
	Property(ctx context.Context, propertyID, actorID string, role auth.Role) (property.Record, error)
}

// Accounts is the slice of the auth service the API needs.
type Accounts interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	VerifyToken(token string) (string, auth.Role, error)
}

// Timeline reads the audit trail for an issue.
type Timeline interface {
	ListForIssue(ctx context.Context, issueID string) ([]audit.TimelineEvent, error)
}

// Server wires the lifecycle service to an HTTP surface: one endpoint per
// command, one per read.
type Server struct {
	lifecycle  Lifecycle
	accounts   Accounts
	timeline   Timeline
	authorizer *authz.Authorizer
	healthy    func(ctx context.Context) bool
	log        *zap.Logger
}

func NewServer(lc Lifecycle, accounts Accounts, timeline Timeline, authorizer *authz.Authorizer, healthy func(ctx context.Context) bool, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		lifecycle:  lc,
		accounts:   accounts,
		timeline:   timeline,
		authorizer: authorizer,
		healthy:    healthy,
		log:        log,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)

	mux.Handle("POST /api/v1/issues", s.requireRole(authz.ObjectIssue, authz.ActionFile, s.handleFileReport))
	mux.Handle("GET /api/v1/issues/{id}", s.requireRole(authz.ObjectIssue, authz.ActionRead, s.handleGetIssue))
	mux.Handle("POST /api/v1/issues/{id}/response", s.requireRole(authz.ObjectIssue, authz.ActionRespond, s.handleSubmitResponse))
	mux.Handle("GET /api/v1/issues/{id}/response", s.requireRole(authz.ObjectIssue, authz.ActionRead, s.handleGetResponse))
	mux.Handle("POST /api/v1/issues/{id}/votes", s.requireRole(authz.ObjectIssue, authz.ActionVote, s.handleCastVote))
	mux.Handle("GET /api/v1/issues/{id}/votes", s.requireRole(authz.ObjectVotes, authz.ActionRead, s.handleListVotes))
	mux.Handle("GET /api/v1/issues/{id}/progress", s.requireRole(authz.ObjectIssue, authz.ActionRead, s.handleProgress))
	mux.Handle("GET /api/v1/issues/{id}/timeline", s.requireRole(authz.ObjectIssue, authz.ActionRead, s.handleTimeline))
	mux.Handle("POST /api/v1/issues/{id}/confirm-compliance", s.requireRole(authz.ObjectIssue, authz.ActionConfirmCompliance, s.handleConfirmCompliance))
	mux.Handle("POST /api/v1/issues/{id}/report-non-compliance", s.requireRole(authz.ObjectIssue, authz.ActionReportNonCompliance, s.handleReportNonCompliance))
	mux.Handle("POST /api/v1/issues/{id}/resolve", s.requireRole(authz.ObjectIssue, authz.ActionResolve, s.handleAdminResolve))
	mux.Handle("POST /api/v1/issues/{id}/close", s.requireRole(authz.ObjectIssue, authz.ActionClose, s.handleAdminClose))

	mux.Handle("GET /api/v1/properties", s.requireRole(authz.ObjectProperty, authz.ActionRead, s.handleListProperties))
	mux.Handle("GET /api/v1/properties/{id}", s.requireRole(authz.ObjectProperty, authz.ActionRead, s.handleGetProperty))

	return s.withRequestID(mux)
}

// withRequestID tags every request so a failing command can be correlated
// across the access log and the error log.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		s.log.Debug("request",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

type actorKey struct{}

type actor struct {
	UserID string
	Role   auth.Role
}

func actorFrom(ctx context.Context) actor {
	a, _ := ctx.Value(actorKey{}).(actor)
	return a
}

// requireRole authenticates the bearer token and checks the role policy.
// Per-issue ownership checks stay in the lifecycle service.
func (s *Server) requireRole(object, action string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		userID, role, err := s.accounts.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		allowed, err := s.authorizer.Authorize(string(role), object, action)
		if err != nil {
			s.log.Error("authorization check failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "authorization unavailable")
			return
		}
		if !allowed {
			writeError(w, http.StatusForbidden, "forbidden", "role not permitted for this action")
			return
		}

		ctx := context.WithValue(r.Context(), actorKey{}, actor{UserID: userID, Role: role})
		next(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	engineUp := true
	if s.healthy != nil && !s.healthy(r.Context()) {
		status = "degraded"
		engineUp = false
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           status,
		"engine_connected": engineUp,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := s.accounts.Register(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userView(*user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := s.accounts.Login(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"user":  userView(result.User),
	})
}

type fileReportRequest struct {
	LandlordEmail   string `json:"landlord_email"`
	PropertyAddress string `json:"property_address"`
	Description     string `json:"description"`
	EvidenceCount   int    `json:"evidence_count"`
}

func (s *Server) handleFileReport(w http.ResponseWriter, r *http.Request) {
	var req fileReportRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := s.lifecycle.FileReport(r.Context(), lifecycle.FileReportParams{
		TenantID:        actorFrom(r.Context()).UserID,
		LandlordEmail:   req.LandlordEmail,
		PropertyAddress: req.PropertyAddress,
		Description:     req.Description,
		EvidenceCount:   req.EvidenceCount,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, issueView(rec))
}

func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lifecycle.GetIssue(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issueView(rec))
}

type respondRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := s.lifecycle.SubmitLandlordResponse(r.Context(), r.PathValue("id"), actorFrom(r.Context()).UserID, req.Text)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issueView(rec))
}

func (s *Server) handleGetResponse(w http.ResponseWriter, r *http.Request) {
	resp, err := s.lifecycle.LandlordResponse(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"issue_id":     resp.IssueID,
		"text":         resp.Text,
		"submitted_at": resp.SubmittedAt,
	})
}

type castVoteRequest struct {
	Choice    string `json:"choice"`
	Reasoning string `json:"reasoning"`
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req castVoteRequest
	if !decode(w, r, &req) {
		return
	}
	tally, err := s.lifecycle.CastVote(r.Context(), lifecycle.CastVoteParams{
		IssueID:   r.PathValue("id"),
		JurorID:   actorFrom(r.Context()).UserID,
		Choice:    vote.Choice(req.Choice),
		Reasoning: req.Reasoning,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"total": tally.Total})
}

func (s *Server) handleListVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := s.lifecycle.Votes(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(votes))
	for _, v := range votes {
		entry := map[string]any{
			"juror_id": v.JurorID,
			"choice":   string(v.Choice),
			"cast_at":  v.CastAt,
		}
		if v.Reasoning != nil {
			entry["reasoning"] = *v.Reasoning
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"votes": out})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.lifecycle.VoteProgress(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":     progress.Total,
		"threshold": progress.Threshold,
	})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	events, err := s.timeline.ListForIssue(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		entry := map[string]any{
			"type":       ev.Type,
			"payload":    json.RawMessage(ev.Payload),
			"created_at": ev.CreatedAt,
		}
		if ev.ActorID != nil {
			entry["actor_id"] = *ev.ActorID
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (s *Server) handleConfirmCompliance(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lifecycle.ConfirmCompliance(r.Context(), r.PathValue("id"), actorFrom(r.Context()).UserID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issueView(rec))
}

func (s *Server) handleReportNonCompliance(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lifecycle.ReportNonCompliance(r.Context(), r.PathValue("id"), actorFrom(r.Context()).UserID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issueView(rec))
}

type adminActionRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) handleAdminResolve(w http.ResponseWriter, r *http.Request) {
	var req adminActionRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := s.lifecycle.AdminResolve(r.Context(), r.PathValue("id"), actorFrom(r.Context()).UserID, req.Notes)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issueView(rec))
}

func (s *Server) handleAdminClose(w http.ResponseWriter, r *http.Request) {
	var req adminActionRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := s.lifecycle.AdminClose(r.Context(), r.PathValue("id"), actorFrom(r.Context()).UserID, req.Notes)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issueView(rec))
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	recs, err := s.lifecycle.LandlordProperties(r.Context(), actorFrom(r.Context()).UserID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		out = append(out, propertyView(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"properties": out})
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	a := actorFrom(r.Context())
	rec, err := s.lifecycle.Property(r.Context(), r.PathValue("id"), a.UserID, a.Role)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, propertyView(rec))
}

func userView(u auth.User) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"email":     u.Email,
		"full_name": u.FullName,
		"role":      string(u.Role),
	}
}

func issueView(rec issue.Record) map[string]any {
	out := map[string]any{
		"id":          rec.ID,
		"tenant_id":   rec.TenantID,
		"landlord_id": rec.LandlordID,
		"property_id": rec.PropertyID,
		"description": rec.Description,
		"status":      string(rec.Status),
		"created_at":  rec.CreatedAt,
		"updated_at":  rec.UpdatedAt,
	}
	if rec.Verdict != nil {
		out["verdict"] = string(*rec.Verdict)
	}
	if len(rec.Classification) > 0 {
		out["classification"] = json.RawMessage(rec.Classification)
	}
	if len(rec.CaseAnalysis) > 0 {
		out["case_analysis"] = json.RawMessage(rec.CaseAnalysis)
	}
	return out
}

func propertyView(rec property.Record) map[string]any {
	return map[string]any{
		"id":          rec.ID,
		"landlord_id": rec.LandlordID,
		"address":     rec.Address,
		"created_at":  rec.CreatedAt,
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed json body")
		return false
	}
	return true
}

// writeDomainError maps each error kind to a distinct HTTP response so the
// UI can present an actionable message instead of a generic failure.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, issue.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, property.ErrNotFound),
		errors.Is(err, issue.ErrNoResponse):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, issue.ErrConflict):
		writeError(w, http.StatusConflict, "status_conflict", err.Error())
	case errors.Is(err, vote.ErrDuplicateVote):
		writeError(w, http.StatusConflict, "duplicate_vote", err.Error())
	case errors.Is(err, vote.ErrIssueNotInReview):
		writeError(w, http.StatusConflict, "issue_not_in_review", err.Error())
	case errors.Is(err, lifecycle.ErrVotesSealed):
		writeError(w, http.StatusForbidden, "votes_sealed", err.Error())
	case errors.Is(err, lifecycle.ErrNotIssueTenant),
		errors.Is(err, lifecycle.ErrNotIssueLandlord):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, lifecycle.ErrEmptyDescription),
		errors.Is(err, lifecycle.ErrEmptyResponse),
		errors.Is(err, lifecycle.ErrEmptyAdminNotes),
		errors.Is(err, auth.ErrNotLandlord),
		errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, auth.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "duplicate_email", err.Error())
	default:
		s.log.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected failure")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error":   code,
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
