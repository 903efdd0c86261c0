//go:build integration

package recommend

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
	"github.com/FieldmateAI/fieldmate-mvp/pkg/natsutil"
)

func natsURL() string {
	if v := os.Getenv("NATS_URL"); v != "" {
		return v
	}
	return nats.DefaultURL
}

func connectNATS(t *testing.T) *nats.Conn {
	t.Helper()
	nc, err := nats.Connect(natsURL())
	if err != nil {
		t.Fatalf("nats connect: %v", err)
	}
	t.Cleanup(func() { nc.Close() })
	return nc
}

func validJob(id string) Job {
	return Job{
		RequestID: id,
		Request: domain.RecommendationRequest{
			UserIssue:     "hydraulic oil leak from quick coupler",
			MachineSeries: "L3901",
		},
	}
}

func TestConsumer_RoundTrip(t *testing.T) {
	nc := connectNATS(t)

	svc := testService(&fakeSearcher{cases: scenarioCases()}, newFakeStore())
	sub, err := StartConsumer(nc, ConsumerDeps{Service: svc})
	if err != nil {
		t.Fatalf("StartConsumer: %v", err)
	}
	defer sub.Unsubscribe()

	results := make(chan JobResult, 1)
	resSub, err := natsutil.Subscribe(nc, ResultSubject, func(_ context.Context, r JobResult) {
		results <- r
	})
	if err != nil {
		t.Fatalf("Subscribe result: %v", err)
	}
	defer resSub.Unsubscribe()

	if err := natsutil.Publish(context.Background(), nc, RequestSubject, validJob("req-1")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-results:
		if got.RequestID != "req-1" {
			t.Errorf("expected request_id req-1, got %q", got.RequestID)
		}
		if got.Response == nil || !got.Response.Success {
			t.Fatalf("expected successful response, got %+v", got.Response)
		}
		if got.Response.SearchMethod != MethodPipeline {
			t.Errorf("expected method %q, got %q", MethodPipeline, got.Response.SearchMethod)
		}
		if len(got.Response.RecommendedParts) != 2 {
			t.Errorf("expected 2 parts, got %d", len(got.Response.RecommendedParts))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for job result")
	}
}

func TestConsumer_ReplyInbox(t *testing.T) {
	nc := connectNATS(t)

	svc := testService(&fakeSearcher{cases: scenarioCases()}, newFakeStore())
	sub, err := StartConsumer(nc, ConsumerDeps{Service: svc})
	if err != nil {
		t.Fatalf("StartConsumer: %v", err)
	}
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := natsutil.Request[Job, JobResult](ctx, nc, RequestSubject, validJob("req-reply"))
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if got.RequestID != "req-reply" {
		t.Errorf("expected request_id req-reply, got %q", got.RequestID)
	}
	if got.Response == nil || !got.Response.Success {
		t.Fatalf("expected successful response, got %+v", got.Response)
	}
}

func TestConsumer_ValidationFailureGoesStraightToDLQ(t *testing.T) {
	nc := connectNATS(t)

	outcomes := make(chan string, 4)
	svc := testService(&fakeSearcher{}, nil)
	sub, err := StartConsumer(nc, ConsumerDeps{
		Service: svc,
		OnDone:  func(outcome string, _ time.Duration) { outcomes <- outcome },
	})
	if err != nil {
		t.Fatalf("StartConsumer: %v", err)
	}
	defer sub.Unsubscribe()

	dlq := make(chan dlqJob, 1)
	dlqSub, err := natsutil.Subscribe(nc, DLQSubject, func(_ context.Context, d dlqJob) {
		dlq <- d
	})
	if err != nil {
		t.Fatalf("Subscribe DLQ: %v", err)
	}
	defer dlqSub.Unsubscribe()

	job := Job{RequestID: "req-bad", Request: domain.RecommendationRequest{UserIssue: "bad"}}
	if err := natsutil.Publish(context.Background(), nc, RequestSubject, job); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case d := <-dlq:
		if d.Job.RequestID != "req-bad" {
			t.Errorf("expected request_id req-bad, got %q", d.Job.RequestID)
		}
		if d.Error == "" {
			t.Error("expected error message on DLQ entry")
		}
		if d.Retries != 0 {
			t.Errorf("validation failures should not be retried, got %d retries", d.Retries)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for DLQ entry")
	}

	select {
	case o := <-outcomes:
		if o != OutcomeInvalid {
			t.Errorf("expected outcome %q, got %q", OutcomeInvalid, o)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for outcome")
	}
}

func TestConsumer_DegradedRunStillPublishesResult(t *testing.T) {
	nc := connectNATS(t)

	// A failing search engine is contained inside the pipeline: the job
	// still completes with the failure recorded inline, so the requester
	// gets a response instead of a retry storm.
	svc := testService(&fakeSearcher{err: domain.ErrSearchUnavailable}, nil)
	sub, err := StartConsumer(nc, ConsumerDeps{Service: svc})
	if err != nil {
		t.Fatalf("StartConsumer: %v", err)
	}
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := natsutil.Request[Job, JobResult](ctx, nc, RequestSubject, validJob("req-degraded"))
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if got.Response == nil || !got.Response.Success {
		t.Fatalf("expected contained failure, got %+v", got.Response)
	}
	if got.Response.ErrorMessage == "" {
		t.Error("expected error message recorded on degraded run")
	}
	if len(got.Response.RecommendedParts) != 0 {
		t.Errorf("expected no parts, got %d", len(got.Response.RecommendedParts))
	}
	if got.Response.SearchMethod != MethodNoResults {
		t.Errorf("expected method %q, got %q", MethodNoResults, got.Response.SearchMethod)
	}
}

func TestConsumer_TimeoutRetriesThenDLQ(t *testing.T) {
	nc := connectNATS(t)

	outcomes := make(chan string, 8)
	svc := testService(&fakeSearcher{cases: scenarioCases()}, nil)
	sub, err := StartConsumer(nc, ConsumerDeps{
		Service: svc,
		// An already-expired job context makes every attempt time out.
		Timeout: time.Nanosecond,
		OnDone:  func(outcome string, _ time.Duration) { outcomes <- outcome },
	})
	if err != nil {
		t.Fatalf("StartConsumer: %v", err)
	}
	defer sub.Unsubscribe()

	dlq := make(chan dlqJob, 1)
	dlqSub, err := natsutil.Subscribe(nc, DLQSubject, func(_ context.Context, d dlqJob) {
		dlq <- d
	})
	if err != nil {
		t.Fatalf("Subscribe DLQ: %v", err)
	}
	defer dlqSub.Unsubscribe()

	if err := natsutil.Publish(context.Background(), nc, RequestSubject, validJob("req-slow")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case d := <-dlq:
		if d.Job.RequestID != "req-slow" {
			t.Errorf("expected request_id req-slow, got %q", d.Job.RequestID)
		}
		if d.Retries != MaxRetries {
			t.Errorf("expected %d retries, got %d", MaxRetries, d.Retries)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for DLQ entry")
	}

	want := []string{OutcomeRetry, OutcomeRetry, OutcomeDLQ}
	for i, w := range want {
		select {
		case o := <-outcomes:
			if o != w {
				t.Errorf("outcome %d: expected %q, got %q", i, w, o)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for outcome %d", i)
		}
	}
}

func TestConsumer_MalformedPayloadDropped(t *testing.T) {
	nc := connectNATS(t)

	outcomes := make(chan string, 1)
	svc := testService(&fakeSearcher{cases: scenarioCases()}, nil)
	sub, err := StartConsumer(nc, ConsumerDeps{
		Service: svc,
		OnDone:  func(outcome string, _ time.Duration) { outcomes <- outcome },
	})
	if err != nil {
		t.Fatalf("StartConsumer: %v", err)
	}
	defer sub.Unsubscribe()

	dlq := make(chan dlqJob, 1)
	dlqSub, err := natsutil.Subscribe(nc, DLQSubject, func(_ context.Context, d dlqJob) {
		dlq <- d
	})
	if err != nil {
		t.Fatalf("Subscribe DLQ: %v", err)
	}
	defer dlqSub.Unsubscribe()

	if err := nc.Publish(RequestSubject, []byte("{not json")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case o := <-outcomes:
		if o != OutcomeInvalid {
			t.Errorf("expected outcome %q, got %q", OutcomeInvalid, o)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for outcome")
	}

	select {
	case d := <-dlq:
		t.Fatalf("unexpected DLQ entry for malformed payload: %+v", d)
	case <-time.After(200 * time.Millisecond):
	}
}
