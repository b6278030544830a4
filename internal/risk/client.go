package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"degree_planner/internal/catalog"
	"degree_planner/internal/logging"
	"degree_planner/internal/metrics"
	"degree_planner/internal/recommender"
)

// ErrIncompleteScores is returned when the model omits a queried course.
var ErrIncompleteScores = errors.New("risk: model response is missing courses")

// Client calls a remote risk model service.
//
//	GET  {BaseURL}/health   -> {"trained": bool}
//	POST {BaseURL}/predict  -> {"trained": bool, "risk_scores": {code: score}}
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
	Retry      RetryPolicy

	trained atomic.Bool
}

// NewClient returns a client for baseURL.
func NewClient(baseURL, token string, timeout time.Duration, retry RetryPolicy) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Token:      token,
		Retry:      retry,
	}
}

type predictRequest struct {
	StudentID      string     `json:"student_id"`
	TargetSemester int        `json:"target_semester"`
	Courses        []Features `json:"courses"`
}

type predictResponse struct {
	Trained    bool               `json:"trained"`
	RiskScores map[string]float64 `json:"risk_scores"`
}

type healthResponse struct {
	Trained bool `json:"trained"`
}

// Trained reports what the service said on its last successful response.
func (c *Client) Trained() bool {
	return c.trained.Load()
}

// Refresh asks the service whether its model is trained.
func (c *Client) Refresh(ctx context.Context) error {
	var health healthResponse
	if err := c.makeRequest(ctx, http.MethodGet, c.BaseURL+"/health", nil, &health); err != nil {
		return fmt.Errorf("failed to fetch model health: %w", err)
	}
	c.trained.Store(health.Trained)
	return nil
}

// PredictBatch scores every course. Scores are clipped to [0,1]; a response
// missing any queried course fails with ErrIncompleteScores.
func (c *Client) PredictBatch(ctx context.Context, courses []catalog.Course, p *recommender.StudentProfile, graph *catalog.PrerequisiteGraph, target int) (recommender.RiskScores, error) {
	logger := logr.FromContextOrDiscard(ctx)
	req := predictRequest{
		StudentID:      p.StudentID,
		TargetSemester: target,
		Courses:        make([]Features, 0, len(courses)),
	}
	for _, course := range courses {
		req.Courses = append(req.Courses, BuildFeatures(course, p, graph, target))
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction request: %w", err)
	}

	var resp predictResponse
	err = c.Retry.Do(ctx, func(attempt int) error {
		if attempt > 0 {
			logger.V(logging.DEBUG).Info("Retrying risk prediction", "student", p.StudentID, "attempt", attempt)
		}
		return c.makeRequest(ctx, http.MethodPost, c.BaseURL+"/predict", body, &resp)
	})
	if err != nil {
		metrics.RiskRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to predict risk for %s: %w", p.StudentID, err)
	}
	metrics.RiskRequests.WithLabelValues("success").Inc()
	c.trained.Store(resp.Trained)

	out := make(recommender.RiskScores, len(courses))
	var missing []string
	for _, course := range courses {
		v, ok := resp.RiskScores[course.Code]
		if !ok {
			missing = append(missing, course.Code)
			continue
		}
		out[course.Code] = clip(v)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrIncompleteScores, strings.Join(missing, ", "))
	}
	return out, nil
}

// Generic HTTP request handler. Server errors and throttling are retryable;
// other non-200 responses are not.
func (c *Client) makeRequest(ctx context.Context, method, url string, payload []byte, result any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return permanent(fmt.Errorf("failed to create request: %w", err))
	}

	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "degree-planner/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return permanent(fmt.Errorf("request failed: %w", err))
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return err
		}
		return permanent(err)
	}
	if err := json.Unmarshal(body, result); err != nil {
		return permanent(fmt.Errorf("failed to parse response: %w", err))
	}
	return nil
}
