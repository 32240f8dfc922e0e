package models

import (
	"fmt"
	"strings"
	"time"
)

// PredictionMode selects which predictor produces the final probability
type PredictionMode string

const (
	ModeClassifier PredictionMode = "classifier"
	ModeSimulator  PredictionMode = "simulator"
	ModeBlended    PredictionMode = "blended"
)

// DrawLabel is the outcome key for drawn simulations
const DrawLabel = "Draw"

// ParseMode accepts the canonical mode names and the legacy API aliases
// ("ml", "sim", "ensemble"). An empty string selects blended.
func ParseMode(s string) (PredictionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "blended", "ensemble":
		return ModeBlended, nil
	case "classifier", "ml":
		return ModeClassifier, nil
	case "simulator", "sim":
		return ModeSimulator, nil
	}
	return "", fmt.Errorf("unknown prediction mode %q", s)
}

// ExchangeDistribution is the probability of each exchange outcome
type ExchangeDistribution struct {
	PA       float64 `json:"P_A"`
	PB       float64 `json:"P_B"`
	PNeutral float64 `json:"P_neutral"`
}

// Sum returns PA + PB + PNeutral
func (d ExchangeDistribution) Sum() float64 {
	return d.PA + d.PB + d.PNeutral
}

// SimulationOutcome holds the win/draw percentages of a simulation batch
type SimulationOutcome struct {
	LabelA string  `json:"label_a"`
	LabelB string  `json:"label_b"`
	WinA   float64 `json:"win_a"`
	WinB   float64 `json:"win_b"`
	Draw   float64 `json:"draw"`
	Trials int     `json:"trials"`
}

// AsMap renders the outcome keyed by fighter label and "Draw". When both
// labels are equal the second label is suffixed so no bucket is lost.
func (o *SimulationOutcome) AsMap() map[string]float64 {
	labelB := o.LabelB
	if labelB == o.LabelA {
		labelB += " (B)"
	}
	return map[string]float64{
		o.LabelA:  o.WinA,
		labelB:    o.WinB,
		DrawLabel: o.Draw,
	}
}

// AttributeDiffs are signed physical differences (fighter A minus B)
type AttributeDiffs struct {
	WeightDiff *float64 `json:"weight_diff"`
	HeightDiff *float64 `json:"height_diff"`
	ReachDiff  *float64 `json:"reach_diff"`
	AgeDiff    *float64 `json:"age_diff"`
}

// EnsembleResult is the output of one prediction call. Probabilities are
// percentages.
type EnsembleResult struct {
	FighterA          string                `json:"fighter_a"`
	FighterB          string                `json:"fighter_b"`
	Mode              PredictionMode        `json:"model"`
	FighterAWinProb   float64               `json:"fighter_a_win_prob"`
	FighterBWinProb   float64               `json:"fighter_b_win_prob"`
	ClassifierWinProb float64               `json:"classifier_win_prob"`
	SimulatorWinProb  float64               `json:"simulator_win_prob"`
	PredictedWinner   string                `json:"predicted_winner"`
	PenaltyScore      *float64              `json:"penalty_score"`
	Diffs             *AttributeDiffs       `json:"diffs"`
	Probabilities     *ExchangeDistribution `json:"probabilities,omitempty"`
	Degraded          bool                  `json:"degraded"`
	// Cached is set when the result was served from the prediction cache
	Cached            bool                  `json:"cached"`
	ModelVersion      string                `json:"model_version,omitempty"`
}

// PredictionRecord is a logged prediction, later scored against the
// actual fight result.
type PredictionRecord struct {
	ID              string         `json:"id"`
	FighterA        string         `json:"fighter_a"`
	FighterB        string         `json:"fighter_b"`
	Mode            PredictionMode `json:"model"`
	PredictedWinner string         `json:"predicted_winner"`
	ActualWinner    *string        `json:"actual_winner"`
	Correct         *bool          `json:"correct"`
	FighterAProb    float64        `json:"fighter_a_prob"`
	FighterBProb    float64        `json:"fighter_b_prob"`
	PenaltyScore    *float64       `json:"penalty_score"`
	Event           string         `json:"event,omitempty"`
	ModelVersion    string         `json:"model_version,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// HasResult reports whether the fight has been decided
func (r *PredictionRecord) HasResult() bool {
	return r.ActualWinner != nil
}

// ModeBreakdown is the per-mode slice of ModelPerformance
type ModeBreakdown struct {
	Total            int     `json:"total"`
	TotalWithResults int     `json:"total_with_results"`
	Correct          int     `json:"correct"`
	Accuracy         float64 `json:"accuracy"`
}

// ModelPerformance summarises prediction accuracy
type ModelPerformance struct {
	OverallAccuracy        float64                          `json:"overall_accuracy"`
	TotalPredictions       int                              `json:"total_predictions"`
	PredictionsWithResults int                              `json:"predictions_with_results"`
	CorrectPredictions     int                              `json:"correct_predictions"`
	RecentAccuracy         float64                          `json:"recent_accuracy"`
	RecentPredictionsCount int                              `json:"recent_predictions_count"`
	BestModel              PredictionMode                   `json:"best_model"`
	BestModelAccuracy      float64                          `json:"best_model_accuracy"`
	AvgConfidence          float64                          `json:"avg_confidence"`
	ConfidenceStdDev       float64                          `json:"confidence_std_dev"`
	ModelBreakdown         map[PredictionMode]ModeBreakdown `json:"model_breakdown"`
	GeneratedAt            time.Time                        `json:"generated_at"`
}
