package logic

import (
	"math"
	"time"

	"github.com/fightsim/fightsim-api/internal/models"
)

// PenaltyWeights scale and weight the physical differences that make up the
// mismatch penalty.
type PenaltyWeights struct {
	WeightScale float64
	HeightScale float64
	ReachScale  float64
	WeightCoef  float64
	HeightCoef  float64
	ReachCoef   float64
}

// DefaultPenaltyWeights: 100 lb, 10 in and 15 in scales weighted 0.5/0.3/0.2
var DefaultPenaltyWeights = PenaltyWeights{
	WeightScale: 100,
	HeightScale: 10,
	ReachScale:  15,
	WeightCoef:  0.5,
	HeightCoef:  0.3,
	ReachCoef:   0.2,
}

// ComputeDiffs returns A-minus-B differences for each physical attribute
// known on both profiles. Age is measured at now.
func ComputeDiffs(a, b *models.FighterProfile, now time.Time) models.AttributeDiffs {
	return models.AttributeDiffs{
		WeightDiff: diff(a.WeightLb, b.WeightLb),
		HeightDiff: diff(a.HeightIn, b.HeightIn),
		ReachDiff:  diff(a.ReachIn, b.ReachIn),
		AgeDiff:    diff(a.AgeAt(now), b.AgeAt(now)),
	}
}

func diff(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	d := *a - *b
	return &d
}

// MismatchPenalty scores physical disparity in [0,1]. Unknown differences
// contribute nothing.
func MismatchPenalty(d models.AttributeDiffs, w PenaltyWeights) float64 {
	score := absOrZero(d.WeightDiff)/w.WeightScale*w.WeightCoef +
		absOrZero(d.HeightDiff)/w.HeightScale*w.HeightCoef +
		absOrZero(d.ReachDiff)/w.ReachScale*w.ReachCoef
	return math.Min(1.0, score)
}

func absOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return math.Abs(*v)
}

// AdjustForMismatch scales the heavier fighter's classifier probability by
// (1 + penalty) and renormalises. pA is unchanged when the weight
// difference is unknown or zero.
func AdjustForMismatch(pA float64, weightDiff *float64, penalty float64) float64 {
	if weightDiff == nil || *weightDiff == 0 || penalty <= 0 {
		return pA
	}
	pB := 1 - pA
	if *weightDiff > 0 {
		pA *= 1 + penalty
	} else {
		pB *= 1 + penalty
	}
	total := pA + pB
	if total == 0 {
		return 0.5
	}
	return pA / total
}
