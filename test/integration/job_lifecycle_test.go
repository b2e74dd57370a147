//go:build integration
// +build integration

package integration_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hybridq/hybrid-core/internal/client"
	"github.com/hybridq/hybrid-core/internal/jobs"
	"github.com/hybridq/hybrid-core/internal/quantum"
	"github.com/hybridq/hybrid-core/pkg/config"
	"github.com/hybridq/hybrid-core/pkg/models"
	"github.com/hybridq/hybrid-core/pkg/utils"
)

func newDaemon(t *testing.T, opts ...func(*jobs.Executor) *jobs.Executor) (*httptest.Server, *client.Client) {
	t.Helper()
	store := jobs.NewStore()
	registry, err := quantum.NewRegistryFromConfig(config.Default().Devices)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	executor := jobs.NewExecutor(store, registry, config.Default().JobDefaults)
	for _, opt := range opts {
		executor = opt(executor)
	}
	ts := httptest.NewServer(jobs.NewHTTPServer(store, executor).Handler())
	t.Cleanup(ts.Close)

	c := client.New(ts.URL, client.WithPollBackoff(utils.NewConstantBackoff(5*time.Millisecond)))
	return ts, c
}

func TestIntegration_JobLifecycle_SubmitWaitResult(t *testing.T) {
	_, c := newDaemon(t)
	ctx := context.Background()

	job, err := c.CreateJob(ctx, "", models.JobSpec{Steps: 5, Stepsize: 0.5})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected job ID")
	}

	done, err := c.Wait(ctx, job.ID)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if done.Status != models.JobStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s (%s)", done.Status, done.Error)
	}

	result, err := c.Result(ctx, job.ID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.Iterations != 5 {
		t.Fatalf("expected 5 iterations, got %d", result.Iterations)
	}
	wantParams := []float64{0.6767967215302757, 2.3260934173312657}
	for i, want := range wantParams {
		if math.Abs(result.Params[i]-want) > 1e-9 {
			t.Fatalf("param %d: expected %v, got %v", i, want, result.Params[i])
		}
	}
	if math.Abs(result.Expval-(-0.5344079938678081)) > 1e-9 {
		t.Fatalf("unexpected final expval: %v", result.Expval)
	}

	report, err := c.Metrics(ctx, job.ID)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if len(report.Points) != 5 {
		t.Fatalf("expected 5 metric points, got %d", len(report.Points))
	}
	for i, p := range report.Points {
		if p.IterationNumber != i {
			t.Fatalf("expected contiguous iterations, got %d at index %d", p.IterationNumber, i)
		}
	}
	prev := math.Inf(1)
	for _, p := range report.Points {
		if p.Value >= prev {
			t.Fatalf("expected strictly decreasing expval, got %v after %v", p.Value, prev)
		}
		prev = p.Value
	}
}

func TestIntegration_JobLifecycle_ListAndCancel(t *testing.T) {
	_, c := newDaemon(t)
	ctx := context.Background()

	job, err := c.CreateJob(ctx, "", models.JobSpec{Steps: 3, Stepsize: 0.5})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := c.Wait(ctx, job.ID); err != nil {
		t.Fatalf("wait: %v", err)
	}

	listed, err := c.ListJobs(ctx, 10, 0, models.JobStatusCompleted)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != job.ID {
		t.Fatalf("expected the completed job in listing, got %+v", listed)
	}

	// Cancelling a completed job conflicts.
	_, err = c.CancelJob(ctx, job.ID)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 API error, got %v", err)
	}
}

func TestIntegration_JobLifecycle_CallbackNotification(t *testing.T) {
	received := make(chan jobs.NotificationPayload, 1)
	callback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload jobs.NotificationPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		received <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer callback.Close()

	_, c := newDaemon(t, func(e *jobs.Executor) *jobs.Executor {
		return e.WithNotifier(jobs.NewNotifier())
	})
	ctx := context.Background()

	job, err := c.CreateJob(ctx, "", models.JobSpec{
		Steps:       2,
		Stepsize:    0.5,
		CallbackURL: callback.URL,
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	select {
	case payload := <-received:
		if payload.JobID != job.ID {
			t.Fatalf("expected %s, got %s", job.ID, payload.JobID)
		}
		if payload.Status != models.JobStatusCompleted {
			t.Fatalf("expected COMPLETED, got %s", payload.Status)
		}
		if payload.Result == nil || payload.Result.Iterations != 2 {
			t.Fatalf("expected result with 2 iterations, got %+v", payload.Result)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("callback not delivered")
	}
}
