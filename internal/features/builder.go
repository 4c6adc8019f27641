package features

import (
	"fmt"

	"github.com/safepay-ai/safepay/internal/domain"
)

// Feature vector positions. The order is the wire contract with the trained
// classifier (domain.FeatureCount positions) and must never be reordered.
const (
	IdxAmount           = iota // normalized transaction amount
	IdxFrequency               // normalized 24h transaction frequency
	IdxBlacklist               // blacklist flag (0/1)
	IdxDeviceMismatch          // device-fingerprint mismatch (0/1)
	IdxVPN                     // VPN/proxy flag (0/1)
	IdxBiometrics              // normalized behavioral-biometric proxy
	IdxHoursSinceLast          // normalized hours since last transaction
	IdxTrustScore              // normalized trust score
	IdxAccountAge              // normalized account age in years
	IdxHighRiskHour            // high-risk hour flag (0/1)
	IdxPastFraud               // past-fraud-flag present (0/1)
	IdxLocationMismatch        // location-inconsistent flag (0/1)
	IdxCappedAmount            // normalized amount/5000 capped at 1.26
	IdxContextAnomaly          // normalized context-anomaly proxy
	IdxComplaints              // normalized complaint count
	IdxMerchantMismatch        // merchant-category mismatch flag (0/1)
	IdxAboveLimit              // amount > 100,000 flag (0/1)
	IdxHighValue               // amount > 50,000 flag (0/1)
	IdxSuspicious              // verification suspicious/suspended indicator
	IdxVerified                // verification verified indicator
	IdxGeoNormal               // geo normal indicator
	IdxGeoUnusual              // geo unusual indicator
)

// Amount thresholds shared between the feature vector and the risk-factor
// predicates (currency-agnostic).
const (
	HighValueAmount  = 50000.0
	LimitAmount      = 100000.0
	LowTrustScore    = 30.0
	YoungAccountAge  = 0.25 // years
	CappedAmountBase = 5000.0
	CappedAmountMax  = 1.26
)

// HighRiskHour reports whether the hour of day falls in the 23:00-05:59
// window.
func HighRiskHour(hour int) bool {
	return hour >= 23 || hour <= 5
}

// Input holds the per-transaction data the builder consumes.
type Input struct {
	Amount   float64
	Hour     int // 0-23
	Profile  *domain.PartyProfile
	Activity domain.ActivitySignal
}

// Builder assembles the fixed-order feature vector. Both scoring call sites
// share one builder so the numeric contract cannot drift between them; only
// the profile's data source differs.
type Builder struct {
	telemetry TelemetryProvider
}

// NewBuilder creates a feature builder with the given telemetry provider.
func NewBuilder(telemetry TelemetryProvider) *Builder {
	if telemetry == nil {
		telemetry = RandomTelemetry{}
	}
	return &Builder{telemetry: telemetry}
}

// Build produces the feature vector for one transaction. Everything except
// the two telemetry positions is a deterministic function of the inputs.
func (b *Builder) Build(in Input) (domain.FeatureVector, error) {
	if in.Profile == nil {
		return nil, fmt.Errorf("%w: profile is required", domain.ErrValidation)
	}
	if in.Hour < 0 || in.Hour > 23 {
		return nil, fmt.Errorf("%w: hour %d out of range [0,23]", domain.ErrValidation, in.Hour)
	}

	p := in.Profile
	tel := b.telemetry.Sample()

	v := make(domain.FeatureVector, domain.FeatureCount)
	v[IdxAmount] = Normalize(in.Amount, rangeAmount)
	v[IdxFrequency] = Normalize(float64(in.Activity.Frequency24h), rangeFrequency)
	v[IdxBlacklist] = boolFlag(p.Blacklisted)
	v[IdxDeviceMismatch] = 0 // no device telemetry yet
	v[IdxVPN] = 0            // no network telemetry yet
	v[IdxBiometrics] = Normalize(tel.Biometrics, rangeBiometrics)
	v[IdxHoursSinceLast] = Normalize(in.Activity.HoursSinceLast, rangeTimeSince)
	v[IdxTrustScore] = Normalize(p.TrustScore, rangeTrustScore)
	v[IdxAccountAge] = Normalize(p.AccountAgeYears, rangeAccountAge)
	v[IdxHighRiskHour] = boolFlag(HighRiskHour(in.Hour))
	v[IdxPastFraud] = boolFlag(p.FraudFlags > 0)
	v[IdxLocationMismatch] = boolFlag(p.GeoFlag == domain.GeoUnusual)
	v[IdxCappedAmount] = Normalize(cappedAmount(in.Amount), rangeCappedAmount)
	v[IdxContextAnomaly] = Normalize(tel.ContextAnomaly, rangeContext)
	v[IdxComplaints] = Normalize(float64(p.FraudComplaints), rangeComplaints)
	v[IdxMerchantMismatch] = boolFlag(p.MerchantMismatch)
	v[IdxAboveLimit] = boolFlag(in.Amount > LimitAmount)
	v[IdxHighValue] = boolFlag(in.Amount > HighValueAmount)
	v[IdxSuspicious] = boolFlag(p.VerificationStatus.Suspicious())
	v[IdxVerified] = boolFlag(p.VerificationStatus == domain.VerificationVerified)
	v[IdxGeoNormal] = boolFlag(p.GeoFlag == domain.GeoNormal)
	v[IdxGeoUnusual] = boolFlag(p.GeoFlag == domain.GeoUnusual)

	return v, nil
}

func cappedAmount(amount float64) float64 {
	raw := amount / CappedAmountBase
	if raw > CappedAmountMax {
		return CappedAmountMax
	}
	return raw
}

func boolFlag(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
