package logic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fightsim/fightsim-api/internal/models"
)

type PredictionServiceConfig struct {
	Ensemble  *Ensemble
	Lookup    FighterLookup
	Simulator *Simulator
	Exchange  ExchangeWeights
	// Fatigue is used when a custom simulation asks for the fatigue strategy
	Fatigue  FatigueMomentumStrategy
	Cache    RedisClient
	CacheTTL time.Duration
	Logger   *zap.Logger
}

type predictionService struct {
	ensemble  *Ensemble
	lookup    FighterLookup
	simulator *Simulator
	exchange  ExchangeWeights
	fatigue   FatigueMomentumStrategy
	cache     RedisClient
	cacheTTL  time.Duration
	logger    *zap.SugaredLogger
}

func NewPredictionService(cfg PredictionServiceConfig) PredictionService {
	if cfg.Exchange == (ExchangeWeights{}) {
		cfg.Exchange = DefaultExchangeWeights
	}
	if cfg.Fatigue == (FatigueMomentumStrategy{}) {
		cfg.Fatigue = DefaultFatigueMomentum
	}
	return &predictionService{
		ensemble:  cfg.Ensemble,
		lookup:    cfg.Lookup,
		simulator: cfg.Simulator,
		exchange:  cfg.Exchange,
		fatigue:   cfg.Fatigue,
		cache:     cfg.Cache,
		cacheTTL:  cfg.CacheTTL,
		logger:    cfg.Logger.Sugar(),
	}
}

func (s *predictionService) ModelVersion() string {
	return s.ensemble.ModelVersion()
}

// Predict serves from the cache when a result for the same fighters, mode
// and classifier version is still fresh.
func (s *predictionService) Predict(ctx context.Context, nameA, nameB string, mode models.PredictionMode) (*models.EnsembleResult, error) {
	nameA = strings.TrimSpace(nameA)
	nameB = strings.TrimSpace(nameB)
	key := s.cacheKey(nameA, nameB, mode)

	if cached := s.fromCache(ctx, key); cached != nil {
		predictionCacheHits.Inc()
		return cached, nil
	}

	result, err := s.ensemble.Predict(ctx, nameA, nameB, mode)
	if err != nil {
		return nil, err
	}

	// Degraded results are not cached so a newly added fighter is picked up
	if !result.Degraded {
		s.toCache(ctx, key, result)
	}
	return result, nil
}

func (s *predictionService) cacheKey(nameA, nameB string, mode models.PredictionMode) string {
	return fmt.Sprintf("prediction:%s:%s:%s|%s", s.ModelVersion(), mode,
		strings.ToLower(nameA), strings.ToLower(nameB))
}

func (s *predictionService) fromCache(ctx context.Context, key string) *models.EnsembleResult {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warnw("Prediction cache read failed", "error", err, "key", key)
		}
		return nil
	}
	var result models.EnsembleResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		s.logger.Warnw("Discarding corrupt cached prediction", "error", err, "key", key)
		return nil
	}
	result.Cached = true
	return &result
}

func (s *predictionService) toCache(ctx context.Context, key string, result *models.EnsembleResult) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warnw("Prediction cache write failed", "error", err, "key", key)
	}
}

// Simulate runs a custom simulation between two stored fighters
func (s *predictionService) Simulate(ctx context.Context, req models.SimulateRequest) (*models.SimulateResponse, error) {
	nameA := strings.TrimSpace(req.FighterA)
	nameB := strings.TrimSpace(req.FighterB)

	a, err := s.lookup.Resolve(ctx, nameA)
	if err != nil {
		return nil, fmt.Errorf("resolve fighter %q: %w", nameA, err)
	}
	b, err := s.lookup.Resolve(ctx, nameB)
	if err != nil {
		return nil, fmt.Errorf("resolve fighter %q: %w", nameB, err)
	}

	dist, err := ComputeExchange(a, b, s.exchange)
	if err != nil {
		return nil, err
	}

	opts := SimulationOptions{
		Rounds: req.Rounds,
		Trials: req.Trials,
		Seed:   req.Seed,
	}
	switch req.Strategy {
	case "fatigue":
		opts.Strategy = s.fatigue
	case "standard":
		opts.Strategy = StandardStrategy{}
	}
	opts = mergeOptions(opts, s.simulator.Defaults())

	outcome, err := s.simulator.Simulate(ctx, dist, nameA, nameB, opts)
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
		Rounds:        opts.Rounds,
		Trials:        outcome.Trials,
		Strategy:      opts.Strategy.Name(),
	}, nil
}
