package jobs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hybridq/hybrid-core/pkg/models"
	"github.com/hybridq/hybrid-core/pkg/utils"
)

func newFastNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{Timeout: time.Second},
		maxRetries: 3,
		backoff:    utils.NewConstantBackoff(time.Millisecond),
	}
}

func TestNotifierDelivers(t *testing.T) {
	received := make(chan NotificationPayload, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer s3cret" {
			t.Errorf("expected bearer token, got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected JSON content type, got %q", got)
		}
		var payload NotificationPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		received <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	job := models.Job{
		ID:            "job-1",
		Status:        models.JobStatusCompleted,
		EndedAtUnixMs: 1234,
		Result:        &models.JobResult{Expval: -0.5, Iterations: 5},
	}
	newFastNotifier().Notify(ts.URL, "s3cret", job)

	select {
	case payload := <-received:
		if payload.JobID != "job-1" {
			t.Fatalf("expected job-1, got %s", payload.JobID)
		}
		if payload.Status != models.JobStatusCompleted {
			t.Fatalf("expected COMPLETED, got %s", payload.Status)
		}
		if payload.Result == nil || payload.Result.Iterations != 5 {
			t.Fatalf("expected result with 5 iterations, got %+v", payload.Result)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestNotifierRetriesOnFailure(t *testing.T) {
	var attempts atomic.Int32
	done := make(chan struct{}, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		done <- struct{}{}
	}))
	defer ts.Close()

	newFastNotifier().Notify(ts.URL, "", models.Job{ID: "job-1", Status: models.JobStatusFailed})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("notification not delivered after retries")
	}
	if got := attempts.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestNotifierSkipsEmptyURL(t *testing.T) {
	// Must not panic or block.
	newFastNotifier().Notify("", "", models.Job{ID: "job-1"})
}
