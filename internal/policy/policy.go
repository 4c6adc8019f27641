package policy

import (
	"fmt"

	"github.com/safepay-ai/safepay/internal/domain"
	"github.com/safepay-ai/safepay/internal/features"
)

const (
	// DefaultFraudThreshold is the model probability at or above which a
	// transaction is called fraud absent any override.
	DefaultFraudThreshold = 0.30

	// Profile thresholds used for risk-factor reporting. These are looser
	// than the override conditions: they annotate, they don't block.
	complaintFactorMin = 2
	lowTrustFactor     = 30.0
	youngAccountYears  = 0.25
)

// Policy produces the final verdict from a model prediction and the
// resolved recipient profile.
type Policy struct {
	threshold float64
	overrides []compiledOverride
}

// New compiles the given overrides into a decision policy. A threshold
// <= 0 falls back to DefaultFraudThreshold.
func New(threshold float64, overrides []Override) (*Policy, error) {
	if threshold <= 0 {
		threshold = DefaultFraudThreshold
	}
	compiled, err := compileOverrides(overrides)
	if err != nil {
		return nil, err
	}
	return &Policy{threshold: threshold, overrides: compiled}, nil
}

// MustDefault builds a policy with the stock threshold and overrides,
// panicking on compile failure. The defaults are static expressions, so
// a failure here is a programming error.
func MustDefault() *Policy {
	p, err := New(DefaultFraudThreshold, DefaultOverrides())
	if err != nil {
		panic(fmt.Sprintf("compiling default policy: %v", err))
	}
	return p
}

// Input carries everything Decide needs.
type Input struct {
	Profile    *domain.PartyProfile
	Amount     float64
	Hour       int
	Prediction domain.Prediction
}

// Decide applies hard overrides, the probability threshold, and the
// model label, then assembles the ordered risk-factor list.
func (p *Policy) Decide(in Input) domain.ScoringResult {
	activation := overrideActivation(in.Profile, in.Amount, in.Hour)
	fired := evaluateOverrides(p.overrides, activation)
	forced := len(fired) > 0

	isFraud := forced || in.Prediction.Probability >= p.threshold || in.Prediction.Label

	return domain.ScoringResult{
		IsFraud:          isFraud,
		FraudProbability: in.Prediction.Probability,
		RiskFactors:      p.riskFactors(in),
	}
}

// riskFactors lists the recipient and transaction attributes that
// contributed to suspicion, most severe first. The model's own signal
// always comes last.
func (p *Policy) riskFactors(in Input) []string {
	prof := in.Profile
	var factors []string

	if prof.Blacklisted {
		factors = append(factors, "Recipient is on blacklist")
	}
	if prof.VerificationStatus.Suspicious() {
		factors = append(factors, "Recipient has suspicious status")
	}
	if prof.FraudFlags > 0 {
		factors = append(factors, "Recipient has past fraud flags")
	}
	if prof.FraudComplaints >= complaintFactorMin {
		factors = append(factors, fmt.Sprintf("Recipient has %d fraud complaints", prof.FraudComplaints))
	}
	if features.HighRiskHour(in.Hour) {
		factors = append(factors, "Transaction at high-risk hours")
	}
	if in.Amount > features.HighValueAmount {
		factors = append(factors, "High transaction amount")
	}
	if prof.AccountAgeYears < youngAccountYears {
		factors = append(factors, "Recipient account is recently created")
	}
	if prof.TrustScore < lowTrustFactor {
		factors = append(factors, "Recipient has low trust score")
	}
	if in.Prediction.Label || in.Prediction.Probability >= p.threshold {
		factors = append(factors, fmt.Sprintf("ML model flagged with %.1f%% probability", in.Prediction.Probability*100))
	}

	return factors
}
