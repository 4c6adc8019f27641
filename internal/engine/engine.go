// Package engine runs the synchronous scoring pipeline: resolve the
// recipient, aggregate activity, build the feature vector, score it, and
// apply the decision policy.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/safepay-ai/safepay/internal/domain"
	"github.com/safepay-ai/safepay/internal/features"
	"github.com/safepay-ai/safepay/internal/policy"
	"github.com/safepay-ai/safepay/internal/profile"
)

// Engine scores transactions. All collaborators are required except
// metrics, which may be nil.
type Engine struct {
	resolver   *profile.Resolver
	activity   *profile.ActivityService
	builder    *features.Builder
	classifier domain.Classifier
	policy     *policy.Policy
	logger     *slog.Logger
	metrics    *Metrics
}

// New assembles the scoring pipeline.
func New(
	resolver *profile.Resolver,
	activity *profile.ActivityService,
	builder *features.Builder,
	classifier domain.Classifier,
	pol *policy.Policy,
	logger *slog.Logger,
	metrics *Metrics,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		resolver:   resolver,
		activity:   activity,
		builder:    builder,
		classifier: classifier,
		policy:     pol,
		logger:     logger,
		metrics:    metrics,
	}
}

// Request is a transaction to score.
type Request struct {
	ReceiverUPIID string
	Amount        float64
	Hour          int
	Source        profile.Source
	Now           time.Time
}

// Result is the scoring outcome with the intermediate state callers
// report on.
type Result struct {
	domain.ScoringResult
	Profile   *domain.PartyProfile
	Activity  domain.ActivitySignal
	Features  domain.FeatureVector
	ElapsedMs int64
}

// Score runs the full pipeline for one transaction.
func (e *Engine) Score(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if err := e.validate(req); err != nil {
		e.metrics.observeError("validate")
		return nil, err
	}
	if req.Now.IsZero() {
		req.Now = time.Now().UTC()
	}

	prof, err := e.resolver.Resolve(ctx, req.ReceiverUPIID, req.Source)
	if err != nil {
		e.metrics.observeError("resolve")
		return nil, err
	}

	activity, err := e.activity.Signal(ctx, req.ReceiverUPIID, req.Now)
	if err != nil {
		e.metrics.observeError("activity")
		return nil, err
	}

	vector, err := e.builder.Build(features.Input{
		Amount:   req.Amount,
		Hour:     req.Hour,
		Profile:  prof,
		Activity: activity,
	})
	if err != nil {
		e.metrics.observeError("features")
		return nil, err
	}

	pred, err := e.classifier.Score(vector)
	if err != nil {
		e.metrics.observeError("model")
		return nil, err
	}

	verdict := e.policy.Decide(policy.Input{
		Profile:    prof,
		Amount:     req.Amount,
		Hour:       req.Hour,
		Prediction: pred,
	})

	elapsed := time.Since(start)
	e.metrics.observeScore(verdict.IsFraud, elapsed.Seconds())
	e.logger.Info("transaction scored",
		"receiver", req.ReceiverUPIID,
		"amount", req.Amount,
		"is_fraud", verdict.IsFraud,
		"probability", verdict.FraudProbability,
		"profile_source", prof.Source,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return &Result{
		ScoringResult: verdict,
		Profile:       prof,
		Activity:      activity,
		Features:      vector,
		ElapsedMs:     elapsed.Milliseconds(),
	}, nil
}

// ScoreVector scores a caller-supplied feature vector directly, skipping
// resolution and feature building. Without a profile there is nothing
// for the decision policy to weigh, so the classifier's own label is
// the verdict.
func (e *Engine) ScoreVector(ctx context.Context, v domain.FeatureVector) (*domain.ScoringResult, error) {
	if err := v.Validate(); err != nil {
		e.metrics.observeError("validate")
		return nil, err
	}

	pred, err := e.classifier.Score(v)
	if err != nil {
		e.metrics.observeError("model")
		return nil, err
	}

	res := &domain.ScoringResult{
		IsFraud:          pred.Label,
		FraudProbability: pred.Probability,
	}
	if res.IsFraud {
		res.RiskFactors = []string{fmt.Sprintf("ML model flagged with %.1f%% probability", pred.Probability*100)}
	}
	e.metrics.observeScore(res.IsFraud, 0)
	return res, nil
}

func (e *Engine) validate(req Request) error {
	if req.ReceiverUPIID == "" {
		return fmt.Errorf("%w: receiver_upi_id is required", domain.ErrValidation)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %v", domain.ErrValidation, req.Amount)
	}
	if req.Hour < 0 || req.Hour > 23 {
		return fmt.Errorf("%w: hour must be in [0,23], got %d", domain.ErrValidation, req.Hour)
	}
	return nil
}
