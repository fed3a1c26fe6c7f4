package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bloco/wallethub/libs/httpx"
	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
)

const (
	defaultBacklogAge   = time.Minute
	defaultBacklogLimit = 100
	maxBacklogLimit     = 1000
)

// OutboxHandler exposes the outbox backlog to operators.
type OutboxHandler struct {
	store  outbox.BacklogStore
	logger *slog.Logger
	now    func() time.Time
}

func NewOutboxHandler(store outbox.BacklogStore, logger *slog.Logger) *OutboxHandler {
	return &OutboxHandler{store: store, logger: logger, now: time.Now}
}

func (h *OutboxHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/outbox/backlog", h.Backlog)
	mux.HandleFunc("/api/v1/outbox/requeue", h.Requeue)
}

type backlogRecord struct {
	ID            int64     `json:"id"`
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	Channel       string    `json:"channel"`
	AggregateType string    `json:"aggregate_type,omitempty"`
	AggregateID   string    `json:"aggregate_id,omitempty"`
	CorrelationID string    `json:"correlation_id"`
	Attempts      int       `json:"attempts"`
	LastError     string    `json:"last_error,omitempty"`
	NextAttemptAt time.Time `json:"next_attempt_at"`
	Parked        bool      `json:"parked"`
	CreatedAt     time.Time `json:"created_at"`
	AgeSeconds    int64     `json:"age_seconds"`
}

type backlogResponse struct {
	OlderThan string          `json:"older_than"`
	Count     int             `json:"count"`
	Records   []backlogRecord `json:"records"`
}

// Backlog lists unsent records created more than older_than ago.
func (h *OutboxHandler) Backlog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	olderThan := defaultBacklogAge
	if raw := strings.TrimSpace(r.URL.Query().Get("older_than")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			http.Error(w, "older_than must be a non-negative duration", http.StatusBadRequest)
			return
		}
		olderThan = d
	}
	limit := defaultBacklogLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxBacklogLimit)
	}

	now := h.now()
	records, err := h.store.ListStale(r.Context(), now.Add(-olderThan), limit)
	if err != nil {
		h.logger.Error("list outbox backlog failed", "err", err, "correlation_id", httpx.CorrelationIDFromContext(r.Context()))
		http.Error(w, "failed to list backlog", http.StatusInternalServerError)
		return
	}

	resp := backlogResponse{
		OlderThan: olderThan.String(),
		Count:     len(records),
		Records:   make([]backlogRecord, 0, len(records)),
	}
	for _, rec := range records {
		resp.Records = append(resp.Records, backlogRecord{
			ID:            rec.ID,
			EventID:       rec.EventID.String(),
			EventType:     rec.EventType,
			Channel:       outbox.ChannelFor(rec.EventType),
			AggregateType: rec.AggregateType,
			AggregateID:   rec.AggregateID,
			CorrelationID: rec.CorrelationID,
			Attempts:      rec.Attempts,
			LastError:     rec.LastError,
			NextAttemptAt: rec.NextAttemptAt.UTC(),
			Parked:        rec.Parked,
			CreatedAt:     rec.CreatedAt.UTC(),
			AgeSeconds:    int64(now.Sub(rec.CreatedAt).Seconds()),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Requeue makes an unsent record due on the next dispatch cycle, clearing its
// parked flag and any backoff.
func (h *OutboxHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("id")), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "id must be a positive integer", http.StatusBadRequest)
		return
	}

	ok, err := h.store.Requeue(r.Context(), id)
	if err != nil {
		h.logger.Error("requeue outbox record failed", "err", err, "record_id", id)
		http.Error(w, "failed to requeue record", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "record not found or already sent", http.StatusNotFound)
		return
	}
	h.logger.Info("outbox record requeued",
		"record_id", id,
		"correlation_id", httpx.CorrelationIDFromContext(r.Context()),
	)
	writeJSON(w, http.StatusOK, map[string]any{"status": "requeued", "id": id})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
