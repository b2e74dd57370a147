// Package client provides an HTTP client for the hybrid job daemon API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hybridq/hybrid-core/pkg/models"
	"github.com/hybridq/hybrid-core/pkg/utils"
)

// DefaultPollInterval is the delay between polls while waiting for a job
// to reach a terminal state.
const DefaultPollInterval = 250 * time.Millisecond

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// MetricPoint is one recorded metric value as reported by the daemon.
type MetricPoint struct {
	Timestamp       time.Time         `json:"timestamp"`
	Metric          string            `json:"metric"`
	IterationNumber int               `json:"iteration_number"`
	Value           float64           `json:"value"`
	Labels          map[string]string `json:"labels,omitempty"`
}

// MetricsReport is the response of the job metrics endpoint.
type MetricsReport struct {
	JobID       string              `json:"job_id"`
	Points      []MetricPoint       `json:"points"`
	Aggregation *models.Aggregation `json:"aggregation,omitempty"`
}

// Client talks to a hybrid job daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
	backoff    utils.BackoffStrategy
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPollBackoff replaces the backoff used between Wait polls.
func WithPollBackoff(b utils.BackoffStrategy) Option {
	return func(c *Client) { c.backoff = b }
}

// New creates a client for the daemon at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		backoff:    utils.NewConstantBackoff(DefaultPollInterval),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks the daemon health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// CreateJob submits a job for execution. An empty jobID lets the daemon
// generate one.
func (c *Client) CreateJob(ctx context.Context, jobID string, spec models.JobSpec) (models.Job, error) {
	req := map[string]any{"spec": spec}
	if jobID != "" {
		req["job_id"] = jobID
	}

	var resp struct {
		Job models.Job `json:"job"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/jobs", req, &resp); err != nil {
		return models.Job{}, err
	}
	return resp.Job, nil
}

// GetJob fetches a job by ID.
func (c *Client) GetJob(ctx context.Context, jobID string) (models.Job, error) {
	var resp struct {
		Job models.Job `json:"job"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+url.PathEscape(jobID), nil, &resp); err != nil {
		return models.Job{}, err
	}
	return resp.Job, nil
}

// ListJobs fetches jobs, newest first. A zero limit uses the daemon
// default. An empty status fetches all jobs.
func (c *Client) ListJobs(ctx context.Context, limit, offset int, status models.JobStatus) ([]models.Job, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if status != "" {
		q.Set("status", string(status))
	}
	path := "/v1/jobs"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp struct {
		Jobs []models.Job `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// CancelJob requests cancellation of a job.
func (c *Client) CancelJob(ctx context.Context, jobID string) (models.Job, error) {
	var resp struct {
		Job models.Job `json:"job"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/jobs/"+url.PathEscape(jobID)+":cancel", nil, &resp); err != nil {
		return models.Job{}, err
	}
	return resp.Job, nil
}

// Metrics fetches the recorded metric points of a job.
func (c *Client) Metrics(ctx context.Context, jobID string) (MetricsReport, error) {
	var resp MetricsReport
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+url.PathEscape(jobID)+"/metrics", nil, &resp); err != nil {
		return MetricsReport{}, err
	}
	return resp, nil
}

// Result fetches the final result of a completed job.
func (c *Client) Result(ctx context.Context, jobID string) (models.JobResult, error) {
	var resp struct {
		Result models.JobResult `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+url.PathEscape(jobID)+"/result", nil, &resp); err != nil {
		return models.JobResult{}, err
	}
	return resp.Result, nil
}

// Wait polls until the job reaches a terminal state or the context is
// cancelled.
func (c *Client) Wait(ctx context.Context, jobID string) (models.Job, error) {
	for attempt := 0; ; attempt++ {
		job, err := c.GetJob(ctx, jobID)
		if err != nil {
			return models.Job{}, err
		}
		if job.Status.IsTerminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return models.Job{}, ctx.Err()
		case <-time.After(c.backoff.NextDelay(attempt)):
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body *bytes.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
