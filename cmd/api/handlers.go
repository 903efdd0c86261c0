package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/FieldmateAI/fieldmate-mvp/engine/domain"
	"github.com/FieldmateAI/fieldmate-mvp/engine/recommend"
	"github.com/FieldmateAI/fieldmate-mvp/engine/symptoms"
	"github.com/FieldmateAI/fieldmate-mvp/pkg/machinenlp"
	"github.com/FieldmateAI/fieldmate-mvp/pkg/natsutil"
	"github.com/FieldmateAI/fieldmate-mvp/pkg/repo"
)

// pinger is the store surface the health check consumes.
type pinger interface {
	Ping(ctx context.Context) error
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps validation failures to 400 and everything else to 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, endpoint string, err error) {
	mErrors(endpoint).Inc()
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error()})
		return
	}
	logger.Error(endpoint+" failed", "err", err)
	http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
}

// inferSeries fills an empty series hint from model codes mentioned in the
// issue text, so "my L3901 leaks oil" filters like an explicit hint.
func inferSeries(req *domain.RecommendationRequest) {
	if req.MachineSeries != "" {
		return
	}
	if m := machinenlp.ExtractBest(req.UserIssue); m != nil && m.Model != "" {
		req.MachineSeries = m.Model
		mSeriesExtracted.Inc()
	}
}

func handleHealth(db pinger, nc *nats.Conn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mRequests("health").Inc()
		components := map[string]bool{
			"database": db != nil && db.Ping(r.Context()) == nil,
			"queue":    nc != nil && nc.Status() == nats.CONNECTED,
		}
		status := "ok"
		if !components["database"] {
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": status, "components": components})
	}
}

func handleRecommend(svc *recommend.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mRequests("recommend").Inc()

		var req domain.RecommendationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			mErrors("recommend").Inc()
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		inferSeries(&req)

		start := time.Now()
		resp, err := svc.Recommend(r.Context(), req)
		mRecommendDur.Since(start)
		if err != nil {
			writeError(w, logger, "recommend", err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleQuick(svc *recommend.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mRequests("quick").Inc()

		q := r.URL.Query()
		issue := q.Get("issue")
		if issue == "" {
			mErrors("quick").Inc()
			http.Error(w, `{"error":"issue is required"}`, http.StatusBadRequest)
			return
		}
		maxParts := 5
		if v := q.Get("max_parts"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				mErrors("quick").Inc()
				http.Error(w, `{"error":"max_parts must be an integer"}`, http.StatusBadRequest)
				return
			}
			maxParts = n
		}
		req := domain.RecommendationRequest{UserIssue: issue, MachineSeries: q.Get("series")}
		inferSeries(&req)

		resp, err := svc.QuickRecommend(r.Context(), issue, req.MachineSeries, maxParts)
		if err != nil {
			writeError(w, logger, "quick", err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAsync(nc *nats.Conn, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mRequests("async").Inc()

		var req domain.RecommendationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			mErrors("async").Inc()
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		// Reject bad requests here; the worker would only dead-letter them.
		if err := domain.ValidateRequest(req); err != nil {
			writeError(w, logger, "async", err)
			return
		}
		if nc == nil {
			mErrors("async").Inc()
			http.Error(w, `{"error":"async processing unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		inferSeries(&req)

		job := recommend.Job{RequestID: uuid.NewString(), Request: req}
		if err := natsutil.Publish(r.Context(), nc, recommend.RequestSubject, job); err != nil {
			logger.Error("async enqueue failed", "err", err)
			mErrors("async").Inc()
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		mAsyncQueued.Inc()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"request_id":     job.RequestID,
			"status":         "queued",
			"result_subject": recommend.ResultSubject,
		})
	}
}

func handleSearch(svc *recommend.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mRequests("search").Inc()

		var req domain.SimilaritySearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			mErrors("search").Inc()
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		start := time.Now()
		resp, err := svc.SimilaritySearch(r.Context(), req)
		mSearchDur.Since(start)
		if err != nil {
			writeError(w, logger, "search", err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleSuggest(svc *symptoms.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mRequests("suggest").Inc()

		q := r.URL.Query()
		symptom := q.Get("symptom")
		if symptom == "" {
			mErrors("suggest").Inc()
			http.Error(w, `{"error":"symptom is required"}`, http.StatusBadRequest)
			return
		}
		machineType := q.Get("machine_type")

		suggestions := svc.Suggest(r.Context(), symptom, machineType)
		writeJSON(w, http.StatusOK, map[string]any{
			"symptom":      symptom,
			"machine_type": machineType,
			"suggestions":  suggestions,
			"total":        len(suggestions),
		})
	}
}

func handleStatus(svc *recommend.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mRequests("status").Inc()
		writeJSON(w, http.StatusOK, svc.Status(r.Context()))
	}
}

func handleCase(cases repo.Reader[domain.HistoricalCase, string], logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mRequests("case").Inc()

		c, err := cases.Get(r.Context(), r.PathValue("id"))
		if errors.Is(err, domain.ErrNotFound) {
			mErrors("case").Inc()
			http.Error(w, `{"error":"case not found"}`, http.StatusNotFound)
			return
		}
		if err != nil {
			writeError(w, logger, "case", err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func handleCases(cases repo.Reader[domain.HistoricalCase, string], logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mRequests("cases").Inc()

		q := r.URL.Query()
		opts := repo.ListOpts{Filter: map[string]any{}}
		for _, key := range []string{"series", "sub_assembly"} {
			if v := q.Get(key); v != "" {
				opts.Filter[key] = v
			}
		}
		for key, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
			if v := q.Get(key); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					mErrors("cases").Inc()
					http.Error(w, `{"error":"`+key+` must be a non-negative integer"}`, http.StatusBadRequest)
					return
				}
				*dst = n
			}
		}

		list, err := cases.List(r.Context(), opts)
		if err != nil {
			writeError(w, logger, "cases", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cases": list, "total": len(list)})
	}
}
