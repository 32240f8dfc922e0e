package logic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/fightsim/fightsim-api/internal/models"
)

var (
	// ErrClassifierUnavailable wraps any failure to obtain a classifier
	// probability. It is fatal in classifier and blended modes.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrDegradedSimulation marks a prediction whose simulator component
	// fell back to 0.5 because a profile could not be resolved. It is
	// logged, never returned.
	ErrDegradedSimulation = errors.New("fighter profile unresolved, simulator degraded to neutral")

	ErrUnknownMode = errors.New("unknown prediction mode")
)

// FighterLookup resolves a fighter name to a profile. A missing fighter is
// reported as models.ErrFighterNotFound.
type FighterLookup interface {
	Resolve(ctx context.Context, name string) (*models.FighterProfile, error)
}

// Classifier returns the probability that fighter A beats fighter B
type Classifier interface {
	Classify(ctx context.Context, a, b *models.FighterProfile) (float64, error)
}

// versioned is implemented by classifiers that can report their artifact version
type versioned interface {
	Version() string
}

// BlendWeights are the base weights of the blended mode before confidence
// weighting.
type BlendWeights struct {
	Classifier float64
	Simulator  float64
}

// DefaultBlendWeights favour the classifier 60/40
var DefaultBlendWeights = BlendWeights{Classifier: 0.6, Simulator: 0.4}

type EnsembleConfig struct {
	Lookup     FighterLookup
	Classifier Classifier
	Simulator  *Simulator
	Exchange   ExchangeWeights
	Blend      BlendWeights
	Penalty    PenaltyWeights
	// ApplyMismatchAdjustment rescales classifier output toward the
	// heavier fighter before blending.
	ApplyMismatchAdjustment bool
	Logger                  *zap.Logger
	Now                     func() time.Time
}

// Ensemble combines the classifier and the round simulator
type Ensemble struct {
	lookup     FighterLookup
	classifier Classifier
	simulator  *Simulator
	exchange   ExchangeWeights
	blend      BlendWeights
	penalty    PenaltyWeights
	adjust     bool
	logger     *zap.SugaredLogger
	now        func() time.Time
}

func NewEnsemble(cfg EnsembleConfig) *Ensemble {
	if cfg.Exchange == (ExchangeWeights{}) {
		cfg.Exchange = DefaultExchangeWeights
	}
	if cfg.Blend == (BlendWeights{}) {
		cfg.Blend = DefaultBlendWeights
	}
	if cfg.Penalty == (PenaltyWeights{}) {
		cfg.Penalty = DefaultPenaltyWeights
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Simulator == nil {
		cfg.Simulator = NewSimulator(DefaultSimulationOptions, cfg.Logger)
	}
	return &Ensemble{
		lookup:     cfg.Lookup,
		classifier: cfg.Classifier,
		simulator:  cfg.Simulator,
		exchange:   cfg.Exchange,
		blend:      cfg.Blend,
		penalty:    cfg.Penalty,
		adjust:     cfg.ApplyMismatchAdjustment,
		logger:     cfg.Logger.Sugar(),
		now:        cfg.Now,
	}
}

// ModelVersion reports the classifier artifact version, if known
func (e *Ensemble) ModelVersion() string {
	if v, ok := e.classifier.(versioned); ok {
		return v.Version()
	}
	return ""
}

// Predict resolves both fighters and runs PredictProfiles. Fighters that
// cannot be found are passed on as nil profiles.
func (e *Ensemble) Predict(ctx context.Context, nameA, nameB string, mode models.PredictionMode) (*models.EnsembleResult, error) {
	a, err := e.resolve(ctx, nameA)
	if err != nil {
		return nil, err
	}
	b, err := e.resolve(ctx, nameB)
	if err != nil {
		return nil, err
	}
	return e.PredictProfiles(ctx, a, b, nameA, nameB, mode)
}

func (e *Ensemble) resolve(ctx context.Context, name string) (*models.FighterProfile, error) {
	if e.lookup == nil {
		return nil, nil
	}
	p, err := e.lookup.Resolve(ctx, name)
	if errors.Is(err, models.ErrFighterNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve fighter %q: %w", name, err)
	}
	return p, nil
}

// PredictProfiles produces an EnsembleResult for two (possibly nil)
// profiles. Resolved fighters are reported under their stored names. The
// predicted winner is fighter A only when the rounded probability is
// strictly above 50; a displayed 50.0/50.0 goes to fighter B.
func (e *Ensemble) PredictProfiles(ctx context.Context, a, b *models.FighterProfile, nameA, nameB string, mode models.PredictionMode) (*models.EnsembleResult, error) {
	switch mode {
	case models.ModeClassifier, models.ModeSimulator, models.ModeBlended:
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownMode, mode)
	}
	if a != nil && a.Name != "" {
		nameA = a.Name
	}
	if b != nil && b.Name != "" {
		nameB = b.Name
	}

	pClassifier, err := e.classify(ctx, a, b)
	if err != nil {
		classifierFailures.Inc()
		if mode != models.ModeSimulator {
			return nil, err
		}
		e.logger.Warnw("Classifier failed, reporting neutral probability", "error", err,
			"fighterA", nameA, "fighterB", nameB)
		pClassifier = 0.5
	}

	result := &models.EnsembleResult{
		FighterA:     nameA,
		FighterB:     nameB,
		Mode:         mode,
		ModelVersion: e.ModelVersion(),
	}

	pSimulator := 0.5
	if a != nil && b != nil {
		dist, err := ComputeExchange(a, b, e.exchange)
		if err != nil {
			return nil, err
		}
		outcome, err := e.simulator.Simulate(ctx, dist, nameA, nameB, SimulationOptions{})
		if err != nil {
			return nil, fmt.Errorf("simulate %s vs %s: %w", nameA, nameB, err)
		}
		pSimulator = outcome.WinA / 100

		diffs := ComputeDiffs(a, b, e.now())
		penalty := MismatchPenalty(diffs, e.penalty)
		result.Diffs = &diffs
		result.PenaltyScore = &penalty
		result.Probabilities = &dist

		if e.adjust {
			pClassifier = AdjustForMismatch(pClassifier, diffs.WeightDiff, penalty)
		}
	} else {
		result.Degraded = true
		degradedPredictions.Inc()
		e.logger.Warnw("Prediction degraded", "error", ErrDegradedSimulation,
			"fighterA", nameA, "fighterB", nameB,
			"resolvedA", a != nil, "resolvedB", b != nil)
	}

	var final float64
	switch mode {
	case models.ModeClassifier:
		final = pClassifier
	case models.ModeSimulator:
		final = pSimulator
	default:
		final = Blend(pClassifier, pSimulator, e.blend)
	}

	result.FighterAWinProb = round1(final * 100)
	result.FighterBWinProb = round1(100 - result.FighterAWinProb)
	result.ClassifierWinProb = round1(pClassifier * 100)
	result.SimulatorWinProb = round1(pSimulator * 100)
	result.PredictedWinner = PickWinner(result.FighterAWinProb/100, nameA, nameB)

	predictionsServed.WithLabelValues(string(mode)).Inc()
	return result, nil
}

func (e *Ensemble) classify(ctx context.Context, a, b *models.FighterProfile) (float64, error) {
	if e.classifier == nil {
		return 0, fmt.Errorf("%w: no classifier configured", ErrClassifierUnavailable)
	}
	if a == nil || b == nil {
		return 0, fmt.Errorf("%w: %w", ErrClassifierUnavailable, models.ErrFighterNotFound)
	}
	p, err := e.classifier.Classify(ctx, a, b)
	if err != nil {
		if errors.Is(err, ErrClassifierUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: probability %v out of range", ErrClassifierUnavailable, p)
	}
	return p, nil
}

// Confidence maps a probability to [0,1]: 0 at 0.5, 1 at 0 or 1
func Confidence(p float64) float64 {
	return math.Abs(p-0.5) * 2
}

// Blend mixes the classifier and simulator probabilities. Each base weight
// is scaled by its component's confidence and the pair is normalised;
// when neither component is confident the result is 0.5.
func Blend(pClassifier, pSimulator float64, w BlendWeights) float64 {
	wc := w.Classifier * Confidence(pClassifier)
	ws := w.Simulator * Confidence(pSimulator)
	total := wc + ws
	if total == 0 {
		return 0.5
	}
	return (wc*pClassifier + ws*pSimulator) / total
}

// PickWinner returns nameA when final > 0.5, otherwise nameB
func PickWinner(final float64, nameA, nameB string) string {
	if final > 0.5 {
		return nameA
	}
	return nameB
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
