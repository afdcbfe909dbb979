package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrUnavailable wraps any transport or server failure from the analysis
// engine. Callers treat it as a non-fatal enrichment failure: the lifecycle
// proceeds and the annotation is simply omitted.
var ErrUnavailable = errors.New("evidence: analysis engine unavailable")

// Client talks to the external AI analysis engine. Responses are stored as
// opaque annotations; nothing here ever gates a lifecycle transition.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	retryInterval time.Duration
	maxElapsed    time.Duration
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		retryInterval: 500 * time.Millisecond,
		maxElapsed:    30 * time.Second,
	}
}

type classifyRequest struct {
	Description   string `json:"description"`
	EvidenceCount int    `json:"evidence_count"`
}

type analyzeCaseRequest struct {
	IssueID          string `json:"issue_id"`
	TenantComplaint  string `json:"tenant_complaint"`
	LandlordResponse string `json:"landlord_response"`
}

// ClassifyIssue asks the engine for category, severity, urgency and
// confidence for a freshly filed report.
func (c *Client) ClassifyIssue(ctx context.Context, description string, evidenceCount int) (json.RawMessage, error) {
	return c.post(ctx, "/api/v1/classify-issue", classifyRequest{
		Description:   description,
		EvidenceCount: evidenceCount,
	})
}

// AnalyzeCase asks the engine for a DAO recommendation once both sides of a
// dispute are on record.
func (c *Client) AnalyzeCase(ctx context.Context, issueID, complaint, response string) (json.RawMessage, error) {
	return c.post(ctx, "/api/v1/analyze-case", analyzeCaseRequest{
		IssueID:          issueID,
		TenantComplaint:  complaint,
		LandlordResponse: response,
	})
}

// Healthy probes the engine's health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("evidence: marshal request: %w", err)
	}

	var out json.RawMessage
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxElapsedTime = c.maxElapsed

	err = backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if !json.Valid(data) {
				return backoff.Permanent(fmt.Errorf("%w: invalid json response", ErrUnavailable))
			}
			out = json.RawMessage(data)
			return nil
		case resp.StatusCode >= 500:
			// Engine-side failure, worth another attempt.
			return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode))
		}
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, err
	}
	return out, nil
}
