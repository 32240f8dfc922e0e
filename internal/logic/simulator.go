package logic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fightsim/fightsim-api/internal/models"
)

// ErrInvalidSimulation is returned for non-positive rounds, trials or
// exchanges, or a distribution that does not sum to one.
var ErrInvalidSimulation = errors.New("invalid simulation parameters")

const distributionTolerance = 1e-6

// TrialOutcome is the result of one simulated fight
type TrialOutcome int

const (
	TrialDraw TrialOutcome = iota
	TrialWinA
	TrialWinB
)

// TrialStrategy simulates a single fight. Implementations must only use
// the supplied rng so that trials stay independent across workers.
type TrialStrategy interface {
	Name() string
	RunTrial(rng *rand.Rand, dist models.ExchangeDistribution, rounds, exchanges int) TrialOutcome
}

// SimulationOptions controls a simulation batch. Zero values fall back to
// the simulator defaults.
type SimulationOptions struct {
	Rounds            int
	Trials            int
	ExchangesPerRound int
	Workers           int
	// Seed makes a run reproducible for a given worker count. Zero draws a
	// fresh seed from the process-wide source.
	Seed     uint64
	Strategy TrialStrategy
}

// DefaultSimulationOptions are five rounds of ten exchanges, 1000 trials
var DefaultSimulationOptions = SimulationOptions{
	Rounds:            5,
	Trials:            1000,
	ExchangesPerRound: 10,
	Workers:           1,
	Strategy:          StandardStrategy{},
}

// Simulator runs Monte-Carlo fight simulations
type Simulator struct {
	defaults SimulationOptions
	logger   *zap.SugaredLogger
}

// NewSimulator creates a simulator. Unset fields in defaults are taken
// from DefaultSimulationOptions.
func NewSimulator(defaults SimulationOptions, logger *zap.Logger) *Simulator {
	return &Simulator{
		defaults: mergeOptions(defaults, DefaultSimulationOptions),
		logger:   logger.Sugar(),
	}
}

// Defaults returns the options used when a call leaves fields unset
func (s *Simulator) Defaults() SimulationOptions {
	return s.defaults
}

func mergeOptions(opts, base SimulationOptions) SimulationOptions {
	if opts.Rounds == 0 {
		opts.Rounds = base.Rounds
	}
	if opts.Trials == 0 {
		opts.Trials = base.Trials
	}
	if opts.ExchangesPerRound == 0 {
		opts.ExchangesPerRound = base.ExchangesPerRound
	}
	if opts.Workers <= 0 {
		opts.Workers = base.Workers
	}
	if opts.Seed == 0 {
		opts.Seed = base.Seed
	}
	if opts.Strategy == nil {
		opts.Strategy = base.Strategy
	}
	return opts
}

// Simulate runs opts.Trials independent fights between A and B and
// returns the percentage of wins for each fighter and of draws.
func (s *Simulator) Simulate(ctx context.Context, dist models.ExchangeDistribution, labelA, labelB string, opts SimulationOptions) (*models.SimulationOutcome, error) {
	opts = mergeOptions(opts, s.defaults)
	if opts.Rounds < 1 || opts.Trials < 1 || opts.ExchangesPerRound < 1 {
		return nil, fmt.Errorf("%w: rounds=%d trials=%d exchanges=%d",
			ErrInvalidSimulation, opts.Rounds, opts.Trials, opts.ExchangesPerRound)
	}
	if dist.PA < 0 || dist.PB < 0 || dist.PNeutral < 0 || math.Abs(dist.Sum()-1) > distributionTolerance {
		return nil, fmt.Errorf("%w: distribution %+v does not sum to 1", ErrInvalidSimulation, dist)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	workers := opts.Workers
	if workers > opts.Trials {
		workers = opts.Trials
	}

	start := time.Now()
	counts := make([][3]int, workers)

	g, gctx := errgroup.WithContext(ctx)
	per := opts.Trials / workers
	extra := opts.Trials % workers
	for i := 0; i < workers; i++ {
		n := per
		if i < extra {
			n++
		}
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seed, uint64(i)))
			local := &counts[i]
			for t := 0; t < n; t++ {
				if t%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				local[opts.Strategy.RunTrial(rng, dist, opts.Rounds, opts.ExchangesPerRound)]++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulation aborted: %w", err)
	}

	var total [3]int
	for _, c := range counts {
		for k := range c {
			total[k] += c[k]
		}
	}

	simulationsRun.WithLabelValues(opts.Strategy.Name()).Inc()
	simulationDuration.Observe(time.Since(start).Seconds())

	trials := float64(opts.Trials)
	out := &models.SimulationOutcome{
		LabelA: labelA,
		LabelB: labelB,
		WinA:   float64(total[TrialWinA]) * 100 / trials,
		WinB:   float64(total[TrialWinB]) * 100 / trials,
		Draw:   float64(total[TrialDraw]) * 100 / trials,
		Trials: opts.Trials,
	}

	s.logger.Debugw("Simulation complete",
		"fighterA", labelA,
		"fighterB", labelB,
		"strategy", opts.Strategy.Name(),
		"trials", opts.Trials,
		"workers", workers,
		"winA", out.WinA,
		"winB", out.WinB,
		"draw", out.Draw,
		"duration", time.Since(start),
	)
	return out, nil
}

// scoreRound applies 10-point-must scoring to a round's exchange delta
func scoreRound(delta int) (int, int) {
	switch {
	case delta > 0:
		return 10, 9
	case delta < 0:
		return 9, 10
	default:
		return 10, 10
	}
}

// exchangeDelta draws one exchange: +1 for A, -1 for B, 0 for neutral
func exchangeDelta(rng *rand.Rand, pA, pNeutral float64) int {
	u := rng.Float64()
	switch {
	case u < pA:
		return 1
	case u < pA+pNeutral:
		return 0
	default:
		return -1
	}
}

func decide(scoreA, scoreB int) TrialOutcome {
	switch {
	case scoreA > scoreB:
		return TrialWinA
	case scoreB > scoreA:
		return TrialWinB
	default:
		return TrialDraw
	}
}

// StandardStrategy uses the same exchange distribution for every round
type StandardStrategy struct{}

func (StandardStrategy) Name() string { return "standard" }

func (StandardStrategy) RunTrial(rng *rand.Rand, dist models.ExchangeDistribution, rounds, exchanges int) TrialOutcome {
	var scoreA, scoreB int
	for r := 0; r < rounds; r++ {
		delta := 0
		for e := 0; e < exchanges; e++ {
			delta += exchangeDelta(rng, dist.PA, dist.PNeutral)
		}
		a, b := scoreRound(delta)
		scoreA += a
		scoreB += b
	}
	return decide(scoreA, scoreB)
}

// FatigueMomentumStrategy decays both fighters' exchange-win probability
// each round (the lost mass becomes neutral) and boosts the fighter on a
// round-winning streak while dampening the opponent.
type FatigueMomentumStrategy struct {
	DecayPerRound      float64
	MomentumStep       float64
	MomentumMaxBoost   float64
	MomentumMaxPenalty float64
}

// DefaultFatigueMomentum uses 5%/round decay, 10% per streak round, capped
// at +30% / -20%.
var DefaultFatigueMomentum = FatigueMomentumStrategy{
	DecayPerRound:      0.05,
	MomentumStep:       0.1,
	MomentumMaxBoost:   0.3,
	MomentumMaxPenalty: 0.2,
}

func (FatigueMomentumStrategy) Name() string { return "fatigue" }

func (f FatigueMomentumStrategy) RunTrial(rng *rand.Rand, dist models.ExchangeDistribution, rounds, exchanges int) TrialOutcome {
	var scoreA, scoreB int
	streak := 0 // >0: A's consecutive rounds, <0: B's
	fatigue := 1.0
	for r := 0; r < rounds; r++ {
		pA, pB := f.roundProbabilities(dist, fatigue, streak)

		delta := 0
		for e := 0; e < exchanges; e++ {
			delta += exchangeDelta(rng, pA, 1-pA-pB)
		}
		a, b := scoreRound(delta)
		scoreA += a
		scoreB += b

		switch {
		case delta > 0:
			streak = max(streak, 0) + 1
		case delta < 0:
			streak = min(streak, 0) - 1
		default:
			streak = 0
		}
		fatigue *= 1 - f.DecayPerRound
	}
	return decide(scoreA, scoreB)
}

// roundProbabilities returns the A and B exchange probabilities for a
// round. Their sum never exceeds one.
func (f FatigueMomentumStrategy) roundProbabilities(dist models.ExchangeDistribution, fatigue float64, streak int) (float64, float64) {
	pA := dist.PA * fatigue
	pB := dist.PB * fatigue

	if streak != 0 {
		n := float64(streak)
		if n < 0 {
			n = -n
		}
		boost := min(f.MomentumStep*n, f.MomentumMaxBoost)
		penalty := min(f.MomentumStep*n, f.MomentumMaxPenalty)
		if streak > 0 {
			pA *= 1 + boost
			pB *= 1 - penalty
		} else {
			pB *= 1 + boost
			pA *= 1 - penalty
		}
	}

	if sum := pA + pB; sum > 1 {
		pA /= sum
		pB /= sum
	}
	return pA, pB
}
