package features

import (
	"math/rand"
)

// Telemetry carries the two behavioral signals that the platform cannot
// measure yet: a behavioral-biometric proxy and a context-anomaly proxy.
type Telemetry struct {
	Biometrics     float64
	ContextAnomaly float64
}

// TelemetryProvider supplies telemetry for one scoring call. The default
// provider samples from bounded random distributions; this is intentional
// degraded-mode behavior standing in for missing device/behavioral sensors,
// and it makes repeated scoring of the same transaction non-idempotent near
// the decision boundary.
type TelemetryProvider interface {
	Sample() Telemetry
}

// RandomTelemetry is the degraded-mode default: uniform draws within the
// ranges a benign session would produce.
type RandomTelemetry struct{}

func (RandomTelemetry) Sample() Telemetry {
	return Telemetry{
		Biometrics:     0.1 + rand.Float64()*0.9, // uniform [0.1, 1.0)
		ContextAnomaly: rand.Float64(),           // uniform [0, 1.0)
	}
}

// FixedTelemetry pins both signals so feature vectors are reproducible.
// Used by tests and when deterministic scoring is configured.
type FixedTelemetry struct {
	Biometrics     float64
	ContextAnomaly float64
}

func (t FixedTelemetry) Sample() Telemetry {
	return Telemetry{Biometrics: t.Biometrics, ContextAnomaly: t.ContextAnomaly}
}

// DefaultFixedTelemetry returns midpoint values of the degraded-mode ranges.
func DefaultFixedTelemetry() FixedTelemetry {
	return FixedTelemetry{Biometrics: 0.55, ContextAnomaly: 0.5}
}
