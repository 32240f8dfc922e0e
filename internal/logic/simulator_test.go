package logic

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fightsim/fightsim-api/internal/models"
)

var evenDist = models.ExchangeDistribution{PA: 0.3, PB: 0.3, PNeutral: 0.4}

func newTestSimulator() *Simulator {
	return NewSimulator(SimulationOptions{Workers: 4}, zap.NewNop())
}

func TestSimulate_Closure(t *testing.T) {
	sim := newTestSimulator()
	dist, err := ComputeExchange(strikerProfile(), grapplerProfile(), DefaultExchangeWeights)
	require.NoError(t, err)

	for _, strategy := range []TrialStrategy{StandardStrategy{}, DefaultFatigueMomentum} {
		out, err := sim.Simulate(context.Background(), dist, "Striker", "Grappler",
			SimulationOptions{Trials: 400, Seed: 11, Strategy: strategy})
		require.NoError(t, err)

		assert.InDelta(t, 100.0, out.WinA+out.WinB+out.Draw, 1e-9, strategy.Name())
		assert.Equal(t, 400, out.Trials)
		for _, pct := range []float64{out.WinA, out.WinB, out.Draw} {
			// every percentage is a multiple of 100/400
			units := pct * 400 / 100
			assert.InDelta(t, math.Round(units), units, 1e-9)
		}
	}
}

func TestSimulate_DeterministicDistributions(t *testing.T) {
	sim := newTestSimulator()
	tests := []struct {
		name string
		dist models.ExchangeDistribution
		winA float64
		winB float64
		draw float64
	}{
		{"A wins every exchange", models.ExchangeDistribution{PA: 1}, 100, 0, 0},
		{"B wins every exchange", models.ExchangeDistribution{PB: 1}, 0, 100, 0},
		{"Every exchange neutral", models.ExchangeDistribution{PNeutral: 1}, 0, 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, strategy := range []TrialStrategy{StandardStrategy{}, DefaultFatigueMomentum} {
				out, err := sim.Simulate(context.Background(), tt.dist, "A", "B",
					SimulationOptions{Trials: 50, Strategy: strategy})
				require.NoError(t, err)
				assert.Equal(t, tt.winA, out.WinA, strategy.Name())
				assert.Equal(t, tt.winB, out.WinB, strategy.Name())
				assert.Equal(t, tt.draw, out.Draw, strategy.Name())
			}
		})
	}
}

func TestSimulate_SeedReproducible(t *testing.T) {
	sim := newTestSimulator()
	opts := SimulationOptions{Trials: 1000, Seed: 42}

	first, err := sim.Simulate(context.Background(), evenDist, "A", "B", opts)
	require.NoError(t, err)
	second, err := sim.Simulate(context.Background(), evenDist, "A", "B", opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSimulate_SymmetricFighters(t *testing.T) {
	sim := newTestSimulator()
	out, err := sim.Simulate(context.Background(), evenDist, "A", "B",
		SimulationOptions{Trials: 20000, Seed: 5, Rounds: 3})
	require.NoError(t, err)

	assert.InDelta(t, out.WinA, out.WinB, 2.5)
	assert.Greater(t, out.Draw, 0.0)
}

func TestSimulate_StrongerFighterWinsMore(t *testing.T) {
	sim := newTestSimulator()
	dist, err := ComputeExchange(strikerProfile(), grapplerProfile(), DefaultExchangeWeights)
	require.NoError(t, err)

	out, err := sim.Simulate(context.Background(), dist, "Striker", "Grappler",
		SimulationOptions{Trials: 5000, Seed: 9})
	require.NoError(t, err)
	assert.Greater(t, out.WinA, out.WinB)
}

func TestSimulate_ReferenceFighters(t *testing.T) {
	a := fullProfile("Reference A", 5.0, 0.5, 0.6, 1.0, 0.4, 0.75, 0.5)
	b := fullProfile("Reference B", 3.0, 0.45, 0.55, 0.8, 0.35, 0.65, 0.2)

	dist, err := ComputeExchange(a, b, DefaultExchangeWeights)
	require.NoError(t, err)
	assert.Equal(t, 0.4, dist.PNeutral)
	assert.Greater(t, dist.PA, dist.PB)

	sim := newTestSimulator()
	for seed := uint64(1); seed <= 5; seed++ {
		out, err := sim.Simulate(context.Background(), dist, a.Name, b.Name,
			SimulationOptions{Rounds: 3, Trials: 1000, Seed: seed})
		require.NoError(t, err)
		assert.Greater(t, out.WinA, out.WinB, "seed %d", seed)
		assert.Greater(t, out.Draw, 0.0, "seed %d", seed)
		assert.InDelta(t, 100.0, out.WinA+out.WinB+out.Draw, 1e-9)
	}
}

func TestSimulate_InvalidOptions(t *testing.T) {
	sim := newTestSimulator()
	tests := []struct {
		name string
		dist models.ExchangeDistribution
		opts SimulationOptions
	}{
		{"negative rounds", evenDist, SimulationOptions{Rounds: -1}},
		{"negative trials", evenDist, SimulationOptions{Trials: -5}},
		{"negative exchanges", evenDist, SimulationOptions{ExchangesPerRound: -1}},
		{"distribution over one", models.ExchangeDistribution{PA: 0.5, PB: 0.5, PNeutral: 0.4}, SimulationOptions{}},
		{"negative probability", models.ExchangeDistribution{PA: 1.2, PB: -0.2}, SimulationOptions{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Simulate(context.Background(), tt.dist, "A", "B", tt.opts)
			assert.True(t, errors.Is(err, ErrInvalidSimulation), "got %v", err)
		})
	}
}

func TestSimulate_Cancelled(t *testing.T) {
	sim := newTestSimulator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Simulate(ctx, evenDist, "A", "B", SimulationOptions{Trials: 1000})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSimulate_MoreWorkersThanTrials(t *testing.T) {
	sim := NewSimulator(SimulationOptions{Workers: 16}, zap.NewNop())
	out, err := sim.Simulate(context.Background(), evenDist, "A", "B", SimulationOptions{Trials: 3, Seed: 1})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, out.WinA+out.WinB+out.Draw, 1e-9)
}

func TestSimulator_Defaults(t *testing.T) {
	sim := NewSimulator(SimulationOptions{Trials: 250}, zap.NewNop())
	d := sim.Defaults()
	assert.Equal(t, 250, d.Trials)
	assert.Equal(t, 5, d.Rounds)
	assert.Equal(t, 10, d.ExchangesPerRound)
	assert.Equal(t, "standard", d.Strategy.Name())
}

func TestScoreRound(t *testing.T) {
	tests := []struct {
		delta      int
		wantA      int
		wantB      int
		wantWinner TrialOutcome
	}{
		{3, 10, 9, TrialWinA},
		{-1, 9, 10, TrialWinB},
		{0, 10, 10, TrialDraw},
	}
	for _, tt := range tests {
		a, b := scoreRound(tt.delta)
		assert.Equal(t, tt.wantA, a)
		assert.Equal(t, tt.wantB, b)
		assert.Equal(t, tt.wantWinner, decide(a, b))
	}
}

func TestFatigueMomentum_RoundProbabilities(t *testing.T) {
	f := DefaultFatigueMomentum

	pA, pB := f.roundProbabilities(evenDist, 1, 0)
	assert.InDelta(t, 0.3, pA, 1e-12)
	assert.InDelta(t, 0.3, pB, 1e-12)

	pA, pB = f.roundProbabilities(evenDist, 1, 2)
	assert.InDelta(t, 0.36, pA, 1e-12)
	assert.InDelta(t, 0.24, pB, 1e-12)

	// streak of 5 hits the +30% / -20% caps
	pA, pB = f.roundProbabilities(evenDist, 1, -5)
	assert.InDelta(t, 0.24, pA, 1e-12)
	assert.InDelta(t, 0.39, pB, 1e-12)

	pA, pB = f.roundProbabilities(evenDist, 0.9, 0)
	assert.InDelta(t, 0.27, pA, 1e-12)
	assert.InDelta(t, 0.27, pB, 1e-12)

	pA, pB = f.roundProbabilities(models.ExchangeDistribution{PA: 0.9, PB: 0.1}, 1, 3)
	assert.LessOrEqual(t, pA+pB, 1.0+1e-12)
}
