package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fightsim/fightsim-api/internal/classifier"
	"github.com/fightsim/fightsim-api/internal/config"
	"github.com/fightsim/fightsim-api/internal/logic"
	"github.com/fightsim/fightsim-api/internal/models"
)

type matchupFlags struct {
	fighters   string
	fighterA   string
	fighterB   string
	tuningFile string
	asJSON     bool
}

func (f *matchupFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.fighters, "fighters", "f", "fighters.json", "JSON array of fighter profiles, - for stdin")
	cmd.Flags().StringVarP(&f.fighterA, "fighter-a", "a", "", "Fighter A name")
	cmd.Flags().StringVarP(&f.fighterB, "fighter-b", "b", "", "Fighter B name")
	cmd.Flags().StringVar(&f.tuningFile, "tuning", "", "Optional tuning file (YAML, JSON or TOML)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print JSON instead of a table")
	_ = cmd.MarkFlagRequired("fighter-a")
	_ = cmd.MarkFlagRequired("fighter-b")
}

type simulateParams struct {
	Rounds    int
	Trials    int
	Exchanges int
	Workers   int
	Seed      uint64
	Strategy  string
}

func newSimulateCmd(logger func() *zap.Logger) *cobra.Command {
	var mf matchupFlags
	var p simulateParams

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a Monte Carlo round-by-round simulation",
		Long: `Simulate a fight between two profiles from the fighters file.

Example: fightsim simulate -f fighters.json -a "Jon Jones" -b "Stipe Miocic" --rounds 5 --trials 10000 --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := loadProfiles(mf.fighters)
			if err != nil {
				return err
			}
			tuning, err := config.LoadTuning(mf.tuningFile)
			if err != nil {
				return err
			}
			resp, err := runSimulate(cmd.Context(), set, mf.fighterA, mf.fighterB, p, tuning, logger())
			if err != nil {
				return err
			}
			if mf.asJSON {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			return printSimulation(cmd.OutOrStdout(), resp)
		},
	}

	mf.register(cmd)
	cmd.Flags().IntVar(&p.Rounds, "rounds", 5, "Rounds per fight")
	cmd.Flags().IntVar(&p.Trials, "trials", 1000, "Number of simulated fights")
	cmd.Flags().IntVar(&p.Exchanges, "exchanges", 10, "Exchanges per round")
	cmd.Flags().IntVar(&p.Workers, "workers", 4, "Parallel simulation workers")
	cmd.Flags().Uint64Var(&p.Seed, "seed", 0, "Random seed, 0 for a fresh one")
	cmd.Flags().StringVar(&p.Strategy, "strategy", "standard", "Trial strategy: standard or fatigue")

	return cmd
}

func runSimulate(ctx context.Context, set profileSet, nameA, nameB string, p simulateParams, tuning config.Tuning, logger *zap.Logger) (*models.SimulateResponse, error) {
	a, err := set.Resolve(ctx, nameA)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", nameA, err)
	}
	b, err := set.Resolve(ctx, nameB)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", nameB, err)
	}

	var strategy logic.TrialStrategy
	switch p.Strategy {
	case "standard":
		strategy = logic.StandardStrategy{}
	case "fatigue":
		strategy = tuning.FatigueStrategy()
	default:
		return nil, fmt.Errorf("unknown strategy %q: want standard or fatigue", p.Strategy)
	}

	dist, err := logic.ComputeExchange(a, b, tuning.ExchangeWeights())
	if err != nil {
		return nil, err
	}

	sim := logic.NewSimulator(logic.DefaultSimulationOptions, logger)
	outcome, err := sim.Simulate(ctx, dist, a.Name, b.Name, logic.SimulationOptions{
		Rounds:            p.Rounds,
		Trials:            p.Trials,
		ExchangesPerRound: p.Exchanges,
		Workers:           p.Workers,
		Seed:              p.Seed,
		Strategy:          strategy,
	})
	if err != nil {
		return nil, err
	}

	return &models.SimulateResponse{
		Fighters: []models.FighterSummary{
			{Name: a.Name, Image: a.ImageURL},
			{Name: b.Name, Image: b.ImageURL},
		},
		Probabilities: dist,
		Results:       outcome.AsMap(),
		Rounds:        p.Rounds,
		Trials:        outcome.Trials,
		Strategy:      strategy.Name(),
	}, nil
}

func printSimulation(w io.Writer, resp *models.SimulateResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Exchange\tP_A\tP_B\tP_neutral\n")
	fmt.Fprintf(tw, "\t%.3f\t%.3f\t%.3f\n", resp.Probabilities.PA, resp.Probabilities.PB, resp.Probabilities.PNeutral)
	fmt.Fprintf(tw, "\n")
	fmt.Fprintf(tw, "Outcome (%d trials, %d rounds, %s)\tPercent\n", resp.Trials, resp.Rounds, resp.Strategy)
	for i, f := range resp.Fighters {
		label := f.Name
		if i == 1 && label == resp.Fighters[0].Name {
			label += " (B)"
		}
		fmt.Fprintf(tw, "%s\t%.1f\n", label, resp.Results[label])
	}
	fmt.Fprintf(tw, "%s\t%.1f\n", models.DrawLabel, resp.Results[models.DrawLabel])
	return tw.Flush()
}

type predictFlags struct {
	modelPath string
	mode      string
	adjust    bool
	seed      uint64
}

func newPredictCmd(logger func() *zap.Logger) *cobra.Command {
	var mf matchupFlags
	var pf predictFlags

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict a fight with the classifier, the simulator or both",
		Long: `Predict a fight between two profiles from the fighters file.

Without --model only simulator mode is available.

Example: fightsim predict -f fighters.json -a "Jon Jones" -b "Stipe Miocic" --model model.json --mode blended`,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := loadProfiles(mf.fighters)
			if err != nil {
				return err
			}
			tuning, err := config.LoadTuning(mf.tuningFile)
			if err != nil {
				return err
			}
			mode, err := models.ParseMode(pf.mode)
			if err != nil {
				return err
			}

			log := logger()
			var clf logic.Classifier
			if pf.modelPath != "" {
				svc := classifier.NewService(classifier.Config{Path: pf.modelPath, Logger: log})
				if err := svc.Reload(); err != nil {
					return err
				}
				clf = svc
			}

			res, err := runPredict(cmd.Context(), set, clf, mf.fighterA, mf.fighterB, mode, pf, tuning, log)
			if err != nil {
				return err
			}
			if mf.asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return printPrediction(cmd.OutOrStdout(), res)
		},
	}

	mf.register(cmd)
	cmd.Flags().StringVar(&pf.modelPath, "model", "", "Classifier artifact (JSON)")
	cmd.Flags().StringVar(&pf.mode, "mode", "simulator", "classifier, simulator or blended")
	cmd.Flags().BoolVar(&pf.adjust, "adjust", false, "Apply the weight-mismatch adjustment to the classifier")
	cmd.Flags().Uint64Var(&pf.seed, "seed", 0, "Simulation seed, 0 for a fresh one")

	return cmd
}

func runPredict(ctx context.Context, set profileSet, clf logic.Classifier, nameA, nameB string, mode models.PredictionMode, pf predictFlags, tuning config.Tuning, logger *zap.Logger) (*models.EnsembleResult, error) {
	opts := logic.DefaultSimulationOptions
	opts.Seed = pf.seed

	ensemble := logic.NewEnsemble(logic.EnsembleConfig{
		Lookup:                  set,
		Classifier:              clf,
		Simulator:               logic.NewSimulator(opts, logger),
		Exchange:                tuning.ExchangeWeights(),
		Blend:                   tuning.BlendWeights(),
		Penalty:                 tuning.PenaltyWeights(),
		ApplyMismatchAdjustment: pf.adjust,
		Logger:                  logger,
	})
	return ensemble.Predict(ctx, nameA, nameB, mode)
}

func printPrediction(w io.Writer, res *models.EnsembleResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Mode\t%s\n", res.Mode)
	if res.ModelVersion != "" {
		fmt.Fprintf(tw, "Model\t%s\n", res.ModelVersion)
	}
	fmt.Fprintf(tw, "%s\t%.1f%%\n", res.FighterA, res.FighterAWinProb)
	fmt.Fprintf(tw, "%s\t%.1f%%\n", res.FighterB, res.FighterBWinProb)
	fmt.Fprintf(tw, "Classifier\t%.1f%%\n", res.ClassifierWinProb)
	fmt.Fprintf(tw, "Simulator\t%.1f%%\n", res.SimulatorWinProb)
	if res.PenaltyScore != nil {
		fmt.Fprintf(tw, "Mismatch penalty\t%.3f\n", *res.PenaltyScore)
	}
	if res.Degraded {
		fmt.Fprintf(tw, "Degraded\ta fighter could not be resolved\n")
	}
	fmt.Fprintf(tw, "Predicted winner\t%s\n", res.PredictedWinner)
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
