package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/safepay-ai/safepay/internal/domain"
	"github.com/safepay-ai/safepay/internal/features"
	"github.com/safepay-ai/safepay/internal/policy"
	"github.com/safepay-ai/safepay/internal/profile"
)

// stubClassifier returns a fixed prediction.
type stubClassifier struct {
	pred domain.Prediction
	err  error
}

func (s stubClassifier) Score(v domain.FeatureVector) (domain.Prediction, error) {
	if s.err != nil {
		return domain.Prediction{}, s.err
	}
	if err := v.Validate(); err != nil {
		return domain.Prediction{}, err
	}
	return s.pred, nil
}

// stubRepo serves one directory entry and empty activity.
type stubRepo struct {
	entry *domain.DirectoryEntry
}

func (s *stubRepo) SaveUser(context.Context, *domain.User) error { return nil }
func (s *stubRepo) GetUserByUPI(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}
func (s *stubRepo) SaveRiskProfile(context.Context, *domain.RiskProfile) error { return nil }
func (s *stubRepo) GetRiskProfile(context.Context, string) (*domain.RiskProfile, error) {
	return nil, domain.ErrNotFound
}
func (s *stubRepo) SaveTransaction(context.Context, *domain.Transaction) error { return nil }
func (s *stubRepo) GetTransactionByRef(context.Context, string) (*domain.Transaction, error) {
	return nil, domain.ErrNotFound
}
func (s *stubRepo) CountTransactionsSince(context.Context, string, time.Time) (int64, error) {
	return 0, nil
}
func (s *stubRepo) LastTransactionAt(context.Context, string) (*time.Time, error) { return nil, nil }
func (s *stubRepo) SaveDirectoryEntry(context.Context, *domain.DirectoryEntry) error {
	return nil
}
func (s *stubRepo) GetDirectoryEntry(_ context.Context, upiID string) (*domain.DirectoryEntry, error) {
	if s.entry != nil && s.entry.UPIID == upiID {
		return s.entry, nil
	}
	return nil, domain.ErrNotFound
}
func (s *stubRepo) SearchDirectory(context.Context, string, int) ([]*domain.DirectoryEntry, error) {
	return nil, nil
}
func (s *stubRepo) SaveHistoryRecord(context.Context, *domain.HistoryRecord) error { return nil }
func (s *stubRepo) CountHistorySince(context.Context, string, time.Time) (int64, error) {
	return 0, nil
}
func (s *stubRepo) LastHistoryAt(context.Context, string) (*time.Time, error) { return nil, nil }
func (s *stubRepo) SaveAlert(context.Context, *domain.Alert) error            { return nil }
func (s *stubRepo) ListAlerts(context.Context, int) ([]*domain.Alert, error)  { return nil, nil }
func (s *stubRepo) Ping(context.Context) error                                { return nil }
func (s *stubRepo) Close() error                                              { return nil }

func newTestEngine(t *testing.T, repo domain.Repository, clf domain.Classifier) *Engine {
	t.Helper()
	return New(
		profile.NewResolver(repo, nil, nil),
		profile.NewActivityService(repo, nil),
		features.NewBuilder(features.DefaultFixedTelemetry()),
		clf,
		policy.MustDefault(),
		nil,
		NewMetrics(prometheus.NewRegistry()),
	)
}

func cleanEntry() *domain.DirectoryEntry {
	return &domain.DirectoryEntry{
		UPIID:              "shop@safepay",
		TrustScore:         85,
		AccountAgeMonths:   36,
		GeoFlag:            domain.GeoNormal,
		VerificationStatus: domain.VerificationVerified,
	}
}

func TestScoreLegitimateTransaction(t *testing.T) {
	e := newTestEngine(t, &stubRepo{entry: cleanEntry()}, stubClassifier{pred: domain.Prediction{Probability: 0.04}})

	res, err := e.Score(context.Background(), Request{
		ReceiverUPIID: "shop@safepay",
		Amount:        1200,
		Hour:          14,
	})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if res.IsFraud {
		t.Error("clean transaction flagged as fraud")
	}
	if res.FraudProbability != 0.04 {
		t.Errorf("FraudProbability = %v, want 0.04", res.FraudProbability)
	}
	if len(res.Features) != domain.FeatureCount {
		t.Errorf("feature vector length = %d, want %d", len(res.Features), domain.FeatureCount)
	}
	if res.Profile == nil || res.Profile.Source != domain.SourceDirectory {
		t.Errorf("expected directory-sourced profile, got %+v", res.Profile)
	}
	if res.Activity.HoursSinceLast != 24 {
		t.Errorf("HoursSinceLast = %v, want default 24", res.Activity.HoursSinceLast)
	}
}

func TestScoreBlacklistOverridesModel(t *testing.T) {
	entry := cleanEntry()
	entry.Blacklisted = true
	e := newTestEngine(t, &stubRepo{entry: entry}, stubClassifier{pred: domain.Prediction{Probability: 0.01}})

	res, err := e.Score(context.Background(), Request{ReceiverUPIID: "shop@safepay", Amount: 100, Hour: 12})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if !res.IsFraud {
		t.Error("blacklisted recipient must always be fraud")
	}
	if len(res.RiskFactors) == 0 || res.RiskFactors[0] != "Recipient is on blacklist" {
		t.Errorf("expected blacklist as first factor, got %v", res.RiskFactors)
	}
}

func TestScoreThresholdVerdict(t *testing.T) {
	for _, tt := range []struct {
		proba float64
		want  bool
	}{
		{0.29, false},
		{0.30, true},
		{0.95, true},
	} {
		e := newTestEngine(t, &stubRepo{entry: cleanEntry()}, stubClassifier{pred: domain.Prediction{Probability: tt.proba}})
		res, err := e.Score(context.Background(), Request{ReceiverUPIID: "shop@safepay", Amount: 100, Hour: 12})
		if err != nil {
			t.Fatalf("Score failed: %v", err)
		}
		if res.IsFraud != tt.want {
			t.Errorf("proba %v: IsFraud = %v, want %v", tt.proba, res.IsFraud, tt.want)
		}
	}
}

func TestScoreValidation(t *testing.T) {
	e := newTestEngine(t, &stubRepo{entry: cleanEntry()}, stubClassifier{})

	tests := []struct {
		name string
		req  Request
	}{
		{"missing receiver", Request{Amount: 100, Hour: 12}},
		{"zero amount", Request{ReceiverUPIID: "shop@safepay", Amount: 0, Hour: 12}},
		{"negative amount", Request{ReceiverUPIID: "shop@safepay", Amount: -5, Hour: 12}},
		{"hour too large", Request{ReceiverUPIID: "shop@safepay", Amount: 100, Hour: 24}},
		{"negative hour", Request{ReceiverUPIID: "shop@safepay", Amount: 100, Hour: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Score(context.Background(), tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestScoreUnknownRecipient(t *testing.T) {
	e := newTestEngine(t, &stubRepo{}, stubClassifier{})

	_, err := e.Score(context.Background(), Request{ReceiverUPIID: "ghost@nowhere", Amount: 100, Hour: 12})
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestScoreModelUnavailable(t *testing.T) {
	e := newTestEngine(t, &stubRepo{entry: cleanEntry()}, stubClassifier{err: domain.ErrModelUnavailable})

	_, err := e.Score(context.Background(), Request{ReceiverUPIID: "shop@safepay", Amount: 100, Hour: 12})
	if !errors.Is(err, domain.ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestScoreVector(t *testing.T) {
	e := newTestEngine(t, &stubRepo{}, stubClassifier{pred: domain.Prediction{Probability: 0.8, Label: true}})

	v := make(domain.FeatureVector, domain.FeatureCount)
	res, err := e.ScoreVector(context.Background(), v)
	if err != nil {
		t.Fatalf("ScoreVector failed: %v", err)
	}
	if !res.IsFraud {
		t.Error("probability 0.8 should be fraud")
	}

	if _, err := e.ScoreVector(context.Background(), make(domain.FeatureVector, 3)); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for short vector, got %v", err)
	}
}

func TestScoreVectorUsesClassifierLabel(t *testing.T) {
	// The raw path has no profile for the policy to weigh, so a
	// probability above the policy threshold but below the model's own
	// cutoff stays legitimate.
	e := newTestEngine(t, &stubRepo{}, stubClassifier{pred: domain.Prediction{Probability: 0.35, Label: false}})

	res, err := e.ScoreVector(context.Background(), make(domain.FeatureVector, domain.FeatureCount))
	if err != nil {
		t.Fatalf("ScoreVector failed: %v", err)
	}
	if res.IsFraud {
		t.Errorf("IsFraud = true at probability 0.35 with negative label, want false")
	}
	if len(res.RiskFactors) != 0 {
		t.Errorf("RiskFactors = %v, want none for a legitimate verdict", res.RiskFactors)
	}
}
