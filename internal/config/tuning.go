package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/fightsim/fightsim-api/internal/logic"
)

// Tuning holds the empirically chosen model constants. An optional YAML
// file may override any of them.
type Tuning struct {
	Exchange ExchangeTuning `mapstructure:"exchange"`
	Ensemble EnsembleTuning `mapstructure:"ensemble"`
	Penalty  PenaltyTuning  `mapstructure:"penalty"`
	Fatigue  FatigueTuning  `mapstructure:"fatigue"`
}

type ExchangeTuning struct {
	NeutralMass      float64 `mapstructure:"neutral_mass"`
	TakedownWeight   float64 `mapstructure:"takedown_weight"`
	SubmissionWeight float64 `mapstructure:"submission_weight"`
}

type EnsembleTuning struct {
	ClassifierWeight float64 `mapstructure:"classifier_weight"`
	SimulatorWeight  float64 `mapstructure:"simulator_weight"`
}

type PenaltyTuning struct {
	WeightScale float64 `mapstructure:"weight_scale"`
	HeightScale float64 `mapstructure:"height_scale"`
	ReachScale  float64 `mapstructure:"reach_scale"`
	WeightCoef  float64 `mapstructure:"weight_coef"`
	HeightCoef  float64 `mapstructure:"height_coef"`
	ReachCoef   float64 `mapstructure:"reach_coef"`
}

type FatigueTuning struct {
	DecayPerRound      float64 `mapstructure:"decay_per_round"`
	MomentumStep       float64 `mapstructure:"momentum_step"`
	MomentumMaxBoost   float64 `mapstructure:"momentum_max_boost"`
	MomentumMaxPenalty float64 `mapstructure:"momentum_max_penalty"`
}

var tuningDefaults = map[string]float64{
	"exchange.neutral_mass":        0.4,
	"exchange.takedown_weight":     0.3,
	"exchange.submission_weight":   0.2,
	"ensemble.classifier_weight":   0.6,
	"ensemble.simulator_weight":    0.4,
	"penalty.weight_scale":         100,
	"penalty.height_scale":         10,
	"penalty.reach_scale":          15,
	"penalty.weight_coef":          0.5,
	"penalty.height_coef":          0.3,
	"penalty.reach_coef":           0.2,
	"fatigue.decay_per_round":      0.05,
	"fatigue.momentum_step":        0.1,
	"fatigue.momentum_max_boost":   0.3,
	"fatigue.momentum_max_penalty": 0.2,
}

// DefaultTuning returns the built-in constants
func DefaultTuning() Tuning {
	t, _ := LoadTuning("")
	return t
}

// LoadTuning reads tuning overrides from path (YAML, JSON or TOML, by
// extension). An empty path yields the defaults. Values can also be
// overridden with TUNING_<SECTION>_<KEY> environment variables.
func LoadTuning(path string) (Tuning, error) {
	v := viper.New()
	for key, val := range tuningDefaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix("tuning")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Tuning{}, fmt.Errorf("read tuning file %s: %w", path, err)
		}
	}

	var t Tuning
	if err := v.Unmarshal(&t); err != nil {
		return Tuning{}, fmt.Errorf("unmarshal tuning: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, fmt.Errorf("invalid tuning: %w", err)
	}
	return t, nil
}

// Validate checks that the constants describe usable distributions
func (t Tuning) Validate() error {
	if t.Exchange.NeutralMass < 0 || t.Exchange.NeutralMass >= 1 {
		return fmt.Errorf("exchange.neutral_mass must be in [0,1), got %v", t.Exchange.NeutralMass)
	}
	if t.Exchange.TakedownWeight < 0 || t.Exchange.SubmissionWeight < 0 {
		return fmt.Errorf("exchange grappling weights must be non-negative")
	}
	if t.Ensemble.ClassifierWeight < 0 || t.Ensemble.SimulatorWeight < 0 ||
		t.Ensemble.ClassifierWeight+t.Ensemble.SimulatorWeight == 0 {
		return fmt.Errorf("ensemble weights must be non-negative with a positive sum")
	}
	if t.Penalty.WeightScale <= 0 || t.Penalty.HeightScale <= 0 || t.Penalty.ReachScale <= 0 {
		return fmt.Errorf("penalty scales must be positive")
	}
	if t.Fatigue.DecayPerRound < 0 || t.Fatigue.DecayPerRound >= 1 {
		return fmt.Errorf("fatigue.decay_per_round must be in [0,1), got %v", t.Fatigue.DecayPerRound)
	}
	return nil
}

func (t Tuning) ExchangeWeights() logic.ExchangeWeights {
	return logic.ExchangeWeights{
		Takedown:    t.Exchange.TakedownWeight,
		Submission:  t.Exchange.SubmissionWeight,
		NeutralMass: t.Exchange.NeutralMass,
	}
}

func (t Tuning) BlendWeights() logic.BlendWeights {
	return logic.BlendWeights{
		Classifier: t.Ensemble.ClassifierWeight,
		Simulator:  t.Ensemble.SimulatorWeight,
	}
}

func (t Tuning) PenaltyWeights() logic.PenaltyWeights {
	return logic.PenaltyWeights{
		WeightScale: t.Penalty.WeightScale,
		HeightScale: t.Penalty.HeightScale,
		ReachScale:  t.Penalty.ReachScale,
		WeightCoef:  t.Penalty.WeightCoef,
		HeightCoef:  t.Penalty.HeightCoef,
		ReachCoef:   t.Penalty.ReachCoef,
	}
}

// FatigueStrategy returns the fatigue/momentum trial strategy
func (t Tuning) FatigueStrategy() logic.FatigueMomentumStrategy {
	return logic.FatigueMomentumStrategy{
		DecayPerRound:      t.Fatigue.DecayPerRound,
		MomentumStep:       t.Fatigue.MomentumStep,
		MomentumMaxBoost:   t.Fatigue.MomentumMaxBoost,
		MomentumMaxPenalty: t.Fatigue.MomentumMaxPenalty,
	}
}
