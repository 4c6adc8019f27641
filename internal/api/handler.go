package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/safepay-ai/safepay/internal/domain"
	"github.com/safepay-ai/safepay/internal/engine"
	"github.com/safepay-ai/safepay/internal/profile"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	engine   *engine.Engine
	resolver *profile.Resolver
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, eng *engine.Engine, resolver *profile.Resolver, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		engine:   eng,
		resolver: resolver,
		version:  version,
	}
}

// ScoreRequest is the request body for POST /transactions/score.
type ScoreRequest struct {
	SenderUPIID   string  `json:"senderUpiId"`
	ReceiverUPIID string  `json:"receiverUpiId"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency,omitempty"`
	Description   string  `json:"description,omitempty"`
	Hour          *int    `json:"hour,omitempty"`
}

// ScoreResponse is the response for POST /transactions/score.
type ScoreResponse struct {
	TransactionRef string   `json:"transactionRef"`
	Status         string   `json:"status"`
	IsFraud        bool     `json:"isFraud"`
	FraudScore     float64  `json:"fraudScore"`
	RiskLevel      string   `json:"riskLevel"`
	RiskFactors    []string `json:"riskFactors,omitempty"`
	ProfileSource  string   `json:"profileSource"`
	Metadata       struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// ScoreTransaction handles POST /transactions/score: score the transaction,
// persist it as completed or blocked, and publish the scored event.
func (h *Handler) ScoreTransaction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.SenderUPIID == "" {
		req.SenderUPIID = r.Header.Get("X-Sender-ID")
	}
	if req.SenderUPIID == "" || req.ReceiverUPIID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "senderUpiId and receiverUpiId are required",
		})
		return
	}

	now := time.Now().UTC()
	result, err := h.engine.Score(ctx, engine.Request{
		ReceiverUPIID: req.ReceiverUPIID,
		Amount:        req.Amount,
		Hour:          hourOrNow(req.Hour, now),
		Source:        profile.SourceLivePreferred,
		Now:           now,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	tx := &domain.Transaction{
		Ref:           uuid.New().String(),
		SenderUPIID:   req.SenderUPIID,
		ReceiverUPIID: req.ReceiverUPIID,
		Amount:        req.Amount,
		Currency:      currencyOrDefault(req.Currency),
		Description:   req.Description,
		Status:        domain.StatusCompleted,
		FraudScore:    result.RiskScore(),
		IsFraud:       result.IsFraud,
		RiskFactors:   result.RiskFactors,
		CreatedAt:     now,
		ProcessedAt:   &now,
	}
	if result.IsFraud {
		tx.Status = domain.StatusBlocked
		tx.FailureReason = "blocked by fraud screening"
	}

	if err := h.repo.SaveTransaction(ctx, tx); err != nil {
		slog.Error("failed to save transaction", "ref", tx.Ref, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save transaction",
		})
		return
	}

	h.publishScored(ctx, tx, result.FraudProbability)

	resp := ScoreResponse{
		TransactionRef: tx.Ref,
		Status:         string(tx.Status),
		IsFraud:        result.IsFraud,
		FraudScore:     result.RiskScore(),
		RiskLevel:      result.RiskLevel(),
		RiskFactors:    result.RiskFactors,
		ProfileSource:  string(result.Profile.Source),
	}
	resp.Metadata.TraceID = traceID
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// PredictRequest is the request body for POST /predict/transaction.
type PredictRequest struct {
	ReceiverUPIID string  `json:"receiverUpiId"`
	Amount        float64 `json:"amount"`
	Hour          *int    `json:"hour,omitempty"`
}

// PredictResponse is the response for the prediction-only endpoints.
type PredictResponse struct {
	IsFraud          bool          `json:"isFraud"`
	FraudProbability float64       `json:"fraudProbability"`
	RiskScore        float64       `json:"riskScore"`
	RiskLevel        string        `json:"riskLevel"`
	RiskFactors      []string      `json:"riskFactors,omitempty"`
	Receiver         *ReceiverInfo `json:"receiver,omitempty"`
}

// ReceiverInfo is the recipient summary attached to directory predictions.
type ReceiverInfo struct {
	UPIID       string  `json:"upiId"`
	DisplayName string  `json:"displayName"`
	TrustScore  float64 `json:"trustScore"`
	Blacklisted bool    `json:"blacklisted"`
}

// PredictTransaction handles POST /predict/transaction: score against the
// historical directory only, without touching the ledger. Risk factors are
// only disclosed when the transaction is flagged.
func (h *Handler) PredictTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	now := time.Now().UTC()
	result, err := h.engine.Score(ctx, engine.Request{
		ReceiverUPIID: req.ReceiverUPIID,
		Amount:        req.Amount,
		Hour:          hourOrNow(req.Hour, now),
		Source:        profile.SourceDirectoryOnly,
		Now:           now,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := PredictResponse{
		IsFraud:          result.IsFraud,
		FraudProbability: result.FraudProbability,
		RiskScore:        result.RiskScore(),
		RiskLevel:        result.RiskLevel(),
		Receiver: &ReceiverInfo{
			UPIID:       result.Profile.UPIID,
			DisplayName: result.Profile.DisplayName,
			TrustScore:  result.Profile.TrustScore,
			Blacklisted: result.Profile.Blacklisted,
		},
	}
	if result.IsFraud {
		resp.RiskFactors = result.RiskFactors
	}

	writeJSON(w, http.StatusOK, resp)
}

// RawPredictRequest is the request body for POST /predict.
type RawPredictRequest struct {
	Features []float64 `json:"features"`
}

// Predict handles POST /predict: score a caller-supplied feature vector.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RawPredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	result, err := h.engine.ScoreVector(ctx, domain.FeatureVector(req.Features))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PredictResponse{
		IsFraud:          result.IsFraud,
		FraudProbability: result.FraudProbability,
		RiskScore:        result.RiskScore(),
		RiskLevel:        result.RiskLevel(),
		RiskFactors:      result.RiskFactors,
	})
}

// GetRecipient returns the resolved risk profile for a UPI ID, live store
// first with directory fallback.
func (h *Handler) GetRecipient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	upiID := chi.URLParam(r, "upiID")

	if upiID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "upi id is required",
		})
		return
	}

	prof, err := h.resolver.Resolve(ctx, upiID, profile.SourceLivePreferred)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "recipient not found",
			})
			return
		}
		slog.Error("failed to resolve recipient", "upi_id", upiID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get recipient",
		})
		return
	}

	writeJSON(w, http.StatusOK, prof)
}

// SearchRecipients searches the directory by UPI ID or display name prefix.
func (h *Handler) SearchRecipients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "q query parameter is required",
		})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be an integer in [1,100]",
			})
			return
		}
		limit = n
	}

	entries, err := h.repo.SearchDirectory(ctx, query, limit)
	if err != nil {
		slog.Error("directory search failed", "query", query, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "search failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recipients": entries,
		"count":      len(entries),
	})
}

// ListAlerts returns the most recent fraud alerts, newest first.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be an integer in [1,500]",
			})
			return
		}
		limit = n
	}

	alerts, err := h.repo.ListAlerts(ctx, limit)
	if err != nil {
		slog.Error("failed to list alerts", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list alerts",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// GetTransaction retrieves a transaction by reference.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref := chi.URLParam(r, "ref")

	if ref == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "transaction ref is required",
		})
		return
	}

	tx, err := h.repo.GetTransactionByRef(ctx, ref)
	if err != nil {
		if domain.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "transaction not found",
			})
			return
		}
		slog.Error("failed to get transaction", "ref", ref, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get transaction",
		})
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"ready": "false",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func (h *Handler) publishScored(ctx context.Context, tx *domain.Transaction, probability float64) {
	if h.bus == nil {
		return
	}
	event := domain.ScoredEvent{
		TransactionRef:   tx.Ref,
		SenderUPIID:      tx.SenderUPIID,
		ReceiverUPIID:    tx.ReceiverUPIID,
		Amount:           tx.Amount,
		IsFraud:          tx.IsFraud,
		FraudProbability: probability,
		RiskFactors:      tx.RiskFactors,
		Timestamp:        time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal scored event", "ref", tx.Ref, "error", err)
		return
	}
	if err := h.bus.Publish(ctx, domain.TopicTransactionScored, payload); err != nil {
		slog.Error("failed to publish scored event", "ref", tx.Ref, "error", err)
	}
}

// writeError maps pipeline errors to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrProfileNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrModelUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scoring model unavailable"})
	default:
		slog.Error("scoring failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func hourOrNow(hour *int, now time.Time) int {
	if hour != nil {
		return *hour
	}
	return now.Hour()
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "INR"
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
