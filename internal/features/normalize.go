// Package features builds the fixed-order feature vector consumed by the
// fraud classifier.
package features

// NormRange holds the (min, max) bounds captured from training data for one
// continuous feature. Loaded once at process start, never mutated.
type NormRange struct {
	Min float64
	Max float64
}

// Training-time normalization ranges. These values are part of the model
// contract: changing them without retraining skews every prediction.
var (
	rangeAmount       = NormRange{Min: 0.005817, Max: 4747.858107}
	rangeFrequency    = NormRange{Min: 0, Max: 13}
	rangeBiometrics   = NormRange{Min: 0.00004, Max: 3.0}
	rangeTimeSince    = NormRange{Min: 0.000168, Max: 29.997497}
	rangeTrustScore   = NormRange{Min: 0.012724, Max: 99.987487}
	rangeAccountAge   = NormRange{Min: 0.000975, Max: 4.999239}
	rangeCappedAmount = NormRange{Min: 0.000421, Max: 1.256827}
	rangeContext      = NormRange{Min: 0.000095, Max: 3.997015}
	rangeComplaints   = NormRange{Min: 0, Max: 5}
)

// Normalize rescales v into [0,1] against r, clamping at both ends.
// A degenerate range (min == max) yields 0 to avoid division by zero.
func Normalize(v float64, r NormRange) float64 {
	if r.Max == r.Min {
		return 0.0
	}
	n := (v - r.Min) / (r.Max - r.Min)
	if n < 0 {
		return 0.0
	}
	if n > 1 {
		return 1.0
	}
	return n
}
