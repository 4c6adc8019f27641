package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// FeatureCount is the dimensionality of the classifier's input vector.
// The ordering of positions is a wire contract with the trained model and
// must never change without retraining.
const FeatureCount = 22

// FeatureVector is the fixed-order numeric input to the classifier.
type FeatureVector []float64

// Validate checks the classifier contract: exactly FeatureCount values,
// all finite.
func (v FeatureVector) Validate() error {
	if len(v) != FeatureCount {
		return fmt.Errorf("%w: expected %d features, got %d", ErrValidation, FeatureCount, len(v))
	}
	for i, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: feature %d is not finite", ErrValidation, i)
		}
	}
	return nil
}

// Prediction is the classifier's raw output for one vector.
type Prediction struct {
	Label       bool    `json:"label"`
	Probability float64 `json:"probability"`
}

// Classifier is the capability contract for the trained model.
type Classifier interface {
	Score(vector FeatureVector) (Prediction, error)
}

// ScoringResult is the engine's verdict for one transaction.
type ScoringResult struct {
	IsFraud          bool     `json:"isFraud"`
	FraudProbability float64  `json:"fraudProbability"`
	RiskFactors      []string `json:"riskFactors"`
}

// RiskScore expresses the probability as a 0-100 score rounded to two
// decimal places.
func (r *ScoringResult) RiskScore() float64 {
	return math.Round(r.FraudProbability*10000) / 100
}

// RiskLevel buckets the probability for display.
func (r *ScoringResult) RiskLevel() string {
	switch {
	case r.FraudProbability >= 0.7:
		return "HIGH"
	case r.FraudProbability >= 0.4:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// Transaction status values.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusBlocked   TransactionStatus = "blocked"
)

// Transaction is a live ledger record.
type Transaction struct {
	Ref           string            `json:"ref"`
	SenderUPIID   string            `json:"senderUpiId"`
	ReceiverUPIID string            `json:"receiverUpiId"`
	Amount        float64           `json:"amount"`
	Currency      string            `json:"currency"`
	Description   string            `json:"description,omitempty"`
	Status        TransactionStatus `json:"status"`
	FraudScore    float64           `json:"fraudScore"`
	IsFraud       bool              `json:"isFraud"`
	RiskFactors   []string          `json:"riskFactors,omitempty"`
	FailureReason string            `json:"failureReason,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	ProcessedAt   *time.Time        `json:"processedAt,omitempty"`
}

// HistoryRecord is one row of the historical batch transaction log.
type HistoryRecord struct {
	ID            int64     `json:"id"`
	SenderUPIID   string    `json:"senderUpiId"`
	ReceiverUPIID string    `json:"receiverUpiId"`
	Amount        float64   `json:"amount"`
	Timestamp     time.Time `json:"timestamp"`
}

// AlertSeverity grades a fraud alert.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is a fraud alert raised for a blocked transaction. Review workflows
// live outside this service; alerts are only written here.
type Alert struct {
	ID             string        `json:"id"`
	TransactionRef string        `json:"transactionRef"`
	AlertType      string        `json:"alertType"`
	Severity       AlertSeverity `json:"severity"`
	Description    string        `json:"description"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// Error taxonomy for the scoring pipeline. ErrValidation and
// ErrProfileNotFound are request-scoped; ErrModelUnavailable is fatal for
// the process since the decision policy cannot run without a probability.
var (
	ErrValidation       = errors.New("validation failed")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrNotFound is returned by stores for missing records.
	ErrNotFound = errors.New("record not found")
)

// IsNotFound reports whether err is a missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
