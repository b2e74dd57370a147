package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hybridq/hybrid-core/pkg/logger"
	"github.com/hybridq/hybrid-core/pkg/models"
	"github.com/hybridq/hybrid-core/pkg/utils"
)

// NotificationPayload is the JSON body sent to a job's callback URL when
// the job reaches a terminal state.
type NotificationPayload struct {
	JobID         string            `json:"job_id"`
	Status        models.JobStatus  `json:"status"`
	EndedAtUnixMs int64             `json:"ended_at_unix_ms,omitempty"`
	Error         string            `json:"error,omitempty"`
	Result        *models.JobResult `json:"result,omitempty"`
	Timestamp     int64             `json:"timestamp"`
}

// Notifier delivers completion notifications with retries.
type Notifier struct {
	httpClient *http.Client
	maxRetries int
	backoff    utils.BackoffStrategy
}

// NewNotifier creates a notifier with default timeouts and exponential
// backoff between delivery attempts.
func NewNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		backoff:    utils.NewExponentialBackoff(time.Second, 10*time.Second, 2.0),
	}
}

// Notify sends the notification asynchronously. Delivery is best-effort:
// failures after all retries are logged and dropped.
func (n *Notifier) Notify(callbackURL, callbackSecret string, job models.Job) {
	if callbackURL == "" {
		return
	}

	payload := NotificationPayload{
		JobID:         job.ID,
		Status:        job.Status,
		EndedAtUnixMs: job.EndedAtUnixMs,
		Error:         job.Error,
		Result:        job.Result,
		Timestamp:     nowUnixMs(),
	}

	go n.deliver(callbackURL, callbackSecret, payload)
}

func (n *Notifier) deliver(callbackURL, callbackSecret string, payload NotificationPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to encode notification", "job_id", payload.JobID, "error", err)
		return
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(n.backoff.NextDelay(attempt - 1))
		}

		lastErr = n.post(callbackURL, callbackSecret, body)
		if lastErr == nil {
			logger.Debug("notification delivered", "job_id", payload.JobID, "url", callbackURL)
			return
		}
	}

	logger.Error("notification delivery failed", "job_id", payload.JobID,
		"url", callbackURL, "attempts", n.maxRetries+1, "error", lastErr)
}

func (n *Notifier) post(callbackURL, callbackSecret string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if callbackSecret != "" {
		req.Header.Set("Authorization", "Bearer "+callbackSecret)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("callback returned status %d", resp.StatusCode)
}
