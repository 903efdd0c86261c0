package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
	"github.com/FieldmateAI/fieldmate-mvp/pkg/natsutil"
	"github.com/FieldmateAI/fieldmate-mvp/pkg/resilience"
)

const (
	// RequestSubject carries queued recommendation jobs.
	RequestSubject = "fieldmate.recommend.request"
	// ResultSubject receives results for jobs without a reply inbox.
	ResultSubject = "fieldmate.recommend.result"
	// DLQSubject is the dead letter queue for jobs that keep failing.
	DLQSubject = "fieldmate.recommend.dlq"
	// QueueGroup load-balances jobs across worker processes.
	QueueGroup = "fieldmate-workers"
	// MaxRetries before a failing job goes to the DLQ.
	MaxRetries = 3
	// jobTimeout bounds one pipeline run in the worker.
	jobTimeout = 2 * time.Minute
)

// Job is one queued recommendation request.
type Job struct {
	RequestID string                       `json:"request_id"`
	Request   domain.RecommendationRequest `json:"request"`
}

// JobResult pairs a finished job with its response.
type JobResult struct {
	RequestID string                  `json:"request_id"`
	Response  *RecommendationResponse `json:"response"`
}

// dlqJob is published to the DLQ on permanent failure.
type dlqJob struct {
	Job     Job    `json:"job"`
	Error   string `json:"error"`
	Retries int    `json:"retries"`
}

// Outcome labels reported to ConsumerDeps.OnDone.
const (
	OutcomeOK      = "ok"
	OutcomeRetry   = "retry"
	OutcomeDLQ     = "dlq"
	OutcomeInvalid = "invalid"
)

// ConsumerDeps wires the worker-side consumer.
type ConsumerDeps struct {
	Service *Service
	// Limiter, when set, paces job intake to protect the embedding backend.
	Limiter *resilience.Limiter
	Logger  *slog.Logger
	// Timeout bounds one job run; zero means the two minute default.
	Timeout time.Duration
	// OnDone, when set, is called once per message with the outcome label
	// and processing duration.
	OnDone func(outcome string, took time.Duration)
}

// StartConsumer subscribes to RequestSubject in the worker queue group and
// runs each job through the recommendation service. Results go to the
// message's reply inbox when present, otherwise to ResultSubject.
// Transient failures are republished with an incremented X-Retry-Count
// header until MaxRetries, then land on the DLQ. Validation failures are
// deterministic, so they skip the retry loop and go to the DLQ directly.
func StartConsumer(nc *nats.Conn, deps ConsumerDeps) (*nats.Subscription, error) {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	done := deps.OnDone
	if done == nil {
		done = func(string, time.Duration) {}
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = jobTimeout
	}

	return nc.QueueSubscribe(RequestSubject, QueueGroup, func(msg *nats.Msg) {
		start := time.Now()

		var job Job
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			log.Error("worker: unmarshal failed", "error", err)
			done(OutcomeInvalid, time.Since(start))
			return
		}

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get("X-Retry-Count"); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		// Retry by republishing with a bumped count; the reply inbox is
		// carried along so the requester still gets the eventual result.
		retryOrDLQ := func(errMsg string) {
			retries++
			if retries >= MaxRetries {
				publishDLQ(nc, log, job, errMsg, retries)
				done(OutcomeDLQ, time.Since(start))
				return
			}
			retryMsg := nats.NewMsg(RequestSubject)
			retryMsg.Data = msg.Data
			retryMsg.Reply = msg.Reply
			retryMsg.Header = nats.Header{}
			retryMsg.Header.Set("X-Retry-Count", fmt.Sprintf("%d", retries))
			if err := nc.PublishMsg(retryMsg); err != nil {
				log.Error("worker: retry publish failed", "error", err)
			}
			done(OutcomeRetry, time.Since(start))
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if deps.Limiter != nil {
			if err := deps.Limiter.Wait(ctx); err != nil {
				log.Warn("worker: rate limit wait expired", "request_id", job.RequestID, "error", err)
				retryOrDLQ(err.Error())
				return
			}
		}

		resp, err := deps.Service.Recommend(ctx, job.Request)
		if err != nil {
			log.Error("worker: invalid job", "request_id", job.RequestID, "error", err)
			publishDLQ(nc, log, job, err.Error(), retries)
			done(OutcomeInvalid, time.Since(start))
			return
		}
		if !resp.Success {
			log.Error("worker: job failed",
				"request_id", job.RequestID,
				"error", resp.ErrorMessage,
				"retry", retries+1,
			)
			retryOrDLQ(resp.ErrorMessage)
			return
		}

		subject := ResultSubject
		if msg.Reply != "" {
			subject = msg.Reply
		}
		if err := natsutil.Publish(ctx, nc, subject, JobResult{RequestID: job.RequestID, Response: resp}); err != nil {
			log.Error("worker: result publish failed", "request_id", job.RequestID, "error", err)
		}

		log.Info("worker: job completed",
			"request_id", job.RequestID,
			"method", resp.SearchMethod,
			"parts", len(resp.RecommendedParts),
		)
		done(OutcomeOK, time.Since(start))
	})
}

func publishDLQ(nc *nats.Conn, log *slog.Logger, job Job, errMsg string, retries int) {
	data, _ := json.Marshal(dlqJob{Job: job, Error: errMsg, Retries: retries})
	if err := nc.Publish(DLQSubject, data); err != nil {
		log.Error("worker: DLQ publish failed", "error", err)
	}
}
