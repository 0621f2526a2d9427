// Package rank converts raw similarity scores into calibrated, query-relative
// percentages and qualitative labels.
//
// Calibration is deliberately relative to the candidate set of a single
// query: raw similarity magnitudes are not comparable across embedding
// models or query lengths, so the same raw score may map to different
// percentages for different queries. That is the contract, not a bug.
package rank

import "math"

// Label is a qualitative match quality bucket.
type Label string

const (
	LabelExcellent Label = "excellent"
	LabelGood      Label = "good"
	LabelFair      Label = "fair"
	LabelWeak      Label = "weak"
)

// Calibration holds the z-score thresholds for the label buckets and is a
// product tuning knob, not a correctness contract.
type Calibration struct {
	// ExcellentZ is the minimum z-score for LabelExcellent.
	ExcellentZ float64
	// GoodZ is the minimum z-score for LabelGood.
	GoodZ float64
	// FairZ is the minimum z-score for LabelFair; below it is LabelWeak.
	FairZ float64
}

// DefaultCalibration is the default label mapping.
var DefaultCalibration = Calibration{
	ExcellentZ: 1.0,
	GoodZ:      0.25,
	FairZ:      -0.5,
}

// Score is the calibrated form of one raw similarity score.
type Score struct {
	// Raw is the input similarity score, unchanged.
	Raw float64
	// Z is the z-score of Raw within the candidate set.
	Z float64
	// Percent is a bounded match percentage in [0,100].
	Percent float64
	// Label is the qualitative bucket for Z.
	Label Label
}

// Label maps a z-score to its qualitative bucket.
func (c Calibration) Label(z float64) Label {
	switch {
	case z >= c.ExcellentZ:
		return LabelExcellent
	case z >= c.GoodZ:
		return LabelGood
	case z >= c.FairZ:
		return LabelFair
	default:
		return LabelWeak
	}
}

// Calibrate computes per-candidate z-scores over the given raw scores and
// maps them to bounded percentages and labels.
//
// Statistics are derived from exactly this candidate set and never shared
// across queries. A zero standard deviation (all candidates equal) defines
// every z-score as 0 rather than dividing by zero.
func Calibrate(raw []float64, c Calibration) []Score {
	if len(raw) == 0 {
		return nil
	}

	var sum float64
	for _, s := range raw {
		sum += s
	}
	mean := sum / float64(len(raw))

	var varSum float64
	for _, s := range raw {
		d := s - mean
		varSum += d * d
	}
	stddev := math.Sqrt(varSum / float64(len(raw)))

	scores := make([]Score, len(raw))
	for i, s := range raw {
		var z float64
		if stddev > 0 {
			z = (s - mean) / stddev
		}
		scores[i] = Score{
			Raw:     s,
			Z:       z,
			Percent: logistic(z) * 100,
			Label:   c.Label(z),
		}
	}
	return scores
}

// logistic squashes z into (0,1), centered at 0.5 for z=0.
func logistic(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
