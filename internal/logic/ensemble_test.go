package logic

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fightsim/fightsim-api/internal/models"
)

func newTestEnsemble(clf Classifier, adjust bool, profiles ...*models.FighterProfile) *Ensemble {
	lookup := &MockLookup{Profiles: map[string]*models.FighterProfile{}}
	for _, p := range profiles {
		lookup.Profiles[strings.ToLower(p.Name)] = p
	}
	return NewEnsemble(EnsembleConfig{
		Lookup:                  lookup,
		Classifier:              clf,
		Simulator:               NewSimulator(SimulationOptions{Trials: 500, Seed: 3, Workers: 2}, zap.NewNop()),
		ApplyMismatchAdjustment: adjust,
		Logger:                  zap.NewNop(),
		Now:                     func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
}

func TestPickWinner_TieGoesToB(t *testing.T) {
	assert.Equal(t, "B", PickWinner(0.5, "A", "B"))
	assert.Equal(t, "A", PickWinner(0.5000001, "A", "B"))
	assert.Equal(t, "B", PickWinner(0.2, "A", "B"))
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.0, Confidence(0.5))
	assert.Equal(t, 1.0, Confidence(0))
	assert.Equal(t, 1.0, Confidence(1))
	assert.InDelta(t, 0.6, Confidence(0.8), 1e-12)
}

func TestBlend(t *testing.T) {
	w := DefaultBlendWeights

	assert.Equal(t, 0.5, Blend(0.5, 0.5, w))
	// a neutral simulator carries no weight
	assert.InDelta(t, 0.8, Blend(0.8, 0.5, w), 1e-12)
	assert.InDelta(t, 0.3, Blend(0.5, 0.3, w), 1e-12)

	// wc = 0.6*0.6 = 0.36, ws = 0.4*0.4 = 0.16
	assert.InDelta(t, (0.36*0.8+0.16*0.3)/0.52, Blend(0.8, 0.3, w), 1e-12)

	for _, pair := range [][2]float64{{0, 1}, {0.9, 0.1}, {0.2, 0.7}, {1, 1}} {
		p := Blend(pair[0], pair[1], w)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestMismatchPenalty(t *testing.T) {
	w := DefaultPenaltyWeights

	assert.Zero(t, MismatchPenalty(models.AttributeDiffs{}, w))

	d := models.AttributeDiffs{
		WeightDiff: models.Float(-20),
		HeightDiff: models.Float(2),
		ReachDiff:  models.Float(3),
	}
	assert.InDelta(t, 0.1+0.06+0.04, MismatchPenalty(d, w), 1e-12)

	huge := models.AttributeDiffs{WeightDiff: models.Float(400), HeightDiff: models.Float(30)}
	assert.Equal(t, 1.0, MismatchPenalty(huge, w))
}

func TestAdjustForMismatch(t *testing.T) {
	assert.Equal(t, 0.6, AdjustForMismatch(0.6, nil, 0.2))
	assert.Equal(t, 0.6, AdjustForMismatch(0.6, models.Float(0), 0.2))
	assert.Equal(t, 0.6, AdjustForMismatch(0.6, models.Float(15), 0))

	assert.InDelta(t, 0.72/1.12, AdjustForMismatch(0.6, models.Float(10), 0.2), 1e-12)
	assert.InDelta(t, 0.6/1.08, AdjustForMismatch(0.6, models.Float(-10), 0.2), 1e-12)
}

func TestComputeDiffs(t *testing.T) {
	dobA := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &models.FighterProfile{WeightLb: models.Float(205), HeightIn: models.Float(76), DOB: &dobA}
	b := &models.FighterProfile{WeightLb: models.Float(185), ReachIn: models.Float(74)}

	d := ComputeDiffs(a, b, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NotNil(t, d.WeightDiff)
	assert.Equal(t, 20.0, *d.WeightDiff)
	assert.Nil(t, d.HeightDiff)
	assert.Nil(t, d.ReachDiff)
	assert.Nil(t, d.AgeDiff)
}

func TestEnsemble_ClassifierMode(t *testing.T) {
	clf := &MockClassifier{P: 0.66666, Release: "v7"}
	e := newTestEnsemble(clf, false, strikerProfile(), grapplerProfile())

	res, err := e.Predict(context.Background(), "Striker", "Grappler", models.ModeClassifier)
	require.NoError(t, err)

	assert.Equal(t, 66.7, res.FighterAWinProb)
	assert.Equal(t, 33.3, res.FighterBWinProb)
	assert.Equal(t, 66.7, res.ClassifierWinProb)
	assert.Equal(t, "Striker", res.PredictedWinner)
	assert.Equal(t, "v7", res.ModelVersion)
	assert.Equal(t, "v7", e.ModelVersion())
	assert.False(t, res.Degraded)
	require.NotNil(t, res.Probabilities)
	assert.InDelta(t, 1.0, res.Probabilities.Sum(), 1e-9)
	require.NotNil(t, res.PenaltyScore)
}

func TestEnsemble_ExactTieGoesToB(t *testing.T) {
	e := newTestEnsemble(&MockClassifier{P: 0.5}, false, strikerProfile(), grapplerProfile())

	res, err := e.Predict(context.Background(), "Striker", "Grappler", models.ModeClassifier)
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.FighterAWinProb)
	assert.Equal(t, "Grappler", res.PredictedWinner)
}

func TestEnsemble_WinnerFollowsDisplayedProbability(t *testing.T) {
	e := newTestEnsemble(&MockClassifier{P: 0.50004}, false, strikerProfile(), grapplerProfile())

	res, err := e.Predict(context.Background(), "Striker", "Grappler", models.ModeClassifier)
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.FighterAWinProb)
	assert.Equal(t, 50.0, res.FighterBWinProb)
	assert.Equal(t, "Grappler", res.PredictedWinner)

	e = newTestEnsemble(&MockClassifier{P: 0.5006}, false, strikerProfile(), grapplerProfile())
	res, err = e.Predict(context.Background(), "Striker", "Grappler", models.ModeClassifier)
	require.NoError(t, err)
	assert.Equal(t, 50.1, res.FighterAWinProb)
	assert.Equal(t, "Striker", res.PredictedWinner)
}

func TestEnsemble_UsesStoredNames(t *testing.T) {
	e := newTestEnsemble(&MockClassifier{P: 0.3}, false, strikerProfile(), grapplerProfile())

	res, err := e.Predict(context.Background(), "striker", "GRAPPLER", models.ModeClassifier)
	require.NoError(t, err)
	assert.Equal(t, "Striker", res.FighterA)
	assert.Equal(t, "Grappler", res.FighterB)
	assert.Equal(t, "Grappler", res.PredictedWinner)

	// unresolved fighters keep the requested name
	res, err = e.Predict(context.Background(), "striker", "newcomer", models.ModeSimulator)
	require.NoError(t, err)
	assert.Equal(t, "Striker", res.FighterA)
	assert.Equal(t, "newcomer", res.FighterB)
}

func TestEnsemble_BlendedMode(t *testing.T) {
	clf := &MockClassifier{P: 0.8}
	e := newTestEnsemble(clf, false, strikerProfile(), grapplerProfile())

	res, err := e.Predict(context.Background(), "Striker", "Grappler", models.ModeBlended)
	require.NoError(t, err)

	want := Blend(0.8, res.SimulatorWinProb/100, DefaultBlendWeights) * 100
	assert.InDelta(t, want, res.FighterAWinProb, 0.2)
	assert.InDelta(t, 100.0, res.FighterAWinProb+res.FighterBWinProb, 1e-9)
	assert.Equal(t, 1, clf.CallCount())
}

func TestEnsemble_SimulatorModeToleratesClassifierFailure(t *testing.T) {
	clf := &MockClassifier{Err: errors.New("artifact corrupt")}
	e := newTestEnsemble(clf, false, strikerProfile(), grapplerProfile())

	res, err := e.Predict(context.Background(), "Striker", "Grappler", models.ModeSimulator)
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.ClassifierWinProb)
	assert.Equal(t, res.SimulatorWinProb, res.FighterAWinProb)
	assert.Greater(t, res.FighterAWinProb, 50.0)
	assert.Equal(t, "Striker", res.PredictedWinner)
}

func TestEnsemble_ClassifierFailureIsFatalOtherwise(t *testing.T) {
	for _, mode := range []models.PredictionMode{models.ModeClassifier, models.ModeBlended} {
		e := newTestEnsemble(&MockClassifier{Err: errors.New("boom")}, false, strikerProfile(), grapplerProfile())
		_, err := e.Predict(context.Background(), "Striker", "Grappler", mode)
		assert.True(t, errors.Is(err, ErrClassifierUnavailable), "mode %s: %v", mode, err)
	}

	e := newTestEnsemble(nil, false, strikerProfile(), grapplerProfile())
	_, err := e.Predict(context.Background(), "Striker", "Grappler", models.ModeBlended)
	assert.True(t, errors.Is(err, ErrClassifierUnavailable))

	e = newTestEnsemble(&MockClassifier{P: 1.5}, false, strikerProfile(), grapplerProfile())
	_, err = e.Predict(context.Background(), "Striker", "Grappler", models.ModeClassifier)
	assert.True(t, errors.Is(err, ErrClassifierUnavailable))
}

func TestEnsemble_DegradedWhenFighterMissing(t *testing.T) {
	clf := &MockClassifier{P: 0.9}
	e := newTestEnsemble(clf, false, strikerProfile())

	res, err := e.Predict(context.Background(), "Striker", "Unknown", models.ModeSimulator)
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, 50.0, res.SimulatorWinProb)
	assert.Equal(t, 50.0, res.FighterAWinProb)
	assert.Equal(t, "Unknown", res.PredictedWinner)
	assert.Nil(t, res.PenaltyScore)
	assert.Nil(t, res.Probabilities)
	assert.Zero(t, clf.CallCount())

	_, err = e.Predict(context.Background(), "Striker", "Unknown", models.ModeClassifier)
	assert.True(t, errors.Is(err, models.ErrFighterNotFound))
	assert.True(t, errors.Is(err, ErrClassifierUnavailable))
}

func TestEnsemble_LookupFailure(t *testing.T) {
	e := NewEnsemble(EnsembleConfig{
		Lookup:     &MockLookup{Err: errors.New("connection reset")},
		Classifier: &MockClassifier{P: 0.6},
		Logger:     zap.NewNop(),
	})
	_, err := e.Predict(context.Background(), "A", "B", models.ModeBlended)
	require.Error(t, err)
	assert.False(t, errors.Is(err, models.ErrFighterNotFound))
}

func TestEnsemble_InvalidProfile(t *testing.T) {
	incomplete := grapplerProfile()
	incomplete.SubAvg = nil
	e := newTestEnsemble(&MockClassifier{P: 0.6}, false, strikerProfile(), incomplete)

	_, err := e.Predict(context.Background(), "Striker", "Grappler", models.ModeSimulator)
	var invalid *models.InvalidProfileError
	assert.True(t, errors.As(err, &invalid))
}

func TestEnsemble_UnknownMode(t *testing.T) {
	e := newTestEnsemble(&MockClassifier{P: 0.6}, false, strikerProfile(), grapplerProfile())
	_, err := e.Predict(context.Background(), "Striker", "Grappler", models.PredictionMode("coinflip"))
	assert.True(t, errors.Is(err, ErrUnknownMode))
}

func TestEnsemble_MismatchAdjustment(t *testing.T) {
	heavy := strikerProfile()
	heavy.WeightLb = models.Float(205)
	light := grapplerProfile()
	light.WeightLb = models.Float(185)

	plain := newTestEnsemble(&MockClassifier{P: 0.6}, false, heavy, light)
	res, err := plain.Predict(context.Background(), "Striker", "Grappler", models.ModeClassifier)
	require.NoError(t, err)
	assert.Equal(t, 60.0, res.FighterAWinProb)
	require.NotNil(t, res.PenaltyScore)
	assert.InDelta(t, 0.1, *res.PenaltyScore, 1e-12)
	require.NotNil(t, res.Diffs.WeightDiff)
	assert.Equal(t, 20.0, *res.Diffs.WeightDiff)

	adjusted := newTestEnsemble(&MockClassifier{P: 0.6}, true, heavy, light)
	res, err = adjusted.Predict(context.Background(), "Striker", "Grappler", models.ModeClassifier)
	require.NoError(t, err)
	// 0.66 / (0.66 + 0.4)
	assert.Equal(t, 62.3, res.FighterAWinProb)
	assert.Equal(t, 37.7, res.FighterBWinProb)
}

func TestEnsemble_ProbabilitiesAlwaysSumTo100(t *testing.T) {
	for _, p := range []float64{0, 0.05, 0.333, 0.4449, 0.5551, 0.999, 1} {
		e := newTestEnsemble(&MockClassifier{P: p}, false, strikerProfile(), grapplerProfile())
		for _, mode := range []models.PredictionMode{models.ModeClassifier, models.ModeBlended, models.ModeSimulator} {
			res, err := e.Predict(context.Background(), "Striker", "Grappler", mode)
			require.NoError(t, err)
			assert.InDelta(t, 100.0, res.FighterAWinProb+res.FighterBWinProb, 1e-9)
			assert.GreaterOrEqual(t, res.FighterAWinProb, 0.0)
			assert.LessOrEqual(t, res.FighterAWinProb, 100.0)
		}
	}
}
