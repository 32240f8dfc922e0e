package logic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fightsim/fightsim-api/internal/models"
)

const (
	performanceCacheKey = "model_performance"
	recentWindow        = 10
	minResultsForBest   = 3
)

var trackedModes = []models.PredictionMode{models.ModeClassifier, models.ModeBlended, models.ModeSimulator}

type performanceService struct {
	predictions PredictionLister
	cache       RedisClient
	cacheTTL    time.Duration
	logger      *zap.SugaredLogger
	now         func() time.Time
}

func NewPerformanceService(predictions PredictionLister, cache RedisClient, cacheTTL time.Duration, logger *zap.Logger) PerformanceService {
	return &performanceService{
		predictions: predictions,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.Sugar(),
		now:         time.Now,
	}
}

// GetPerformance returns the cached summary when present, computing and
// caching it otherwise.
func (s *performanceService) GetPerformance(ctx context.Context) (*models.ModelPerformance, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, performanceCacheKey).Result()
		if err == nil {
			var perf models.ModelPerformance
			if err := json.Unmarshal([]byte(raw), &perf); err == nil {
				return &perf, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warnw("Performance cache read failed", "error", err)
		}
	}
	return s.Refresh(ctx)
}

// Refresh recomputes the summary from the prediction log and caches it
func (s *performanceService) Refresh(ctx context.Context) (*models.ModelPerformance, error) {
	records, err := s.predictions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}

	perf := SummarizePerformance(records)
	perf.GeneratedAt = s.now().UTC()

	if s.cache != nil {
		if payload, err := json.Marshal(perf); err == nil {
			if err := s.cache.Set(ctx, performanceCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warnw("Performance cache write failed", "error", err)
			}
		}
	}
	return perf, nil
}

func (s *performanceService) GetDetailed(ctx context.Context) ([]models.PredictionRecord, error) {
	records, err := s.predictions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	sortNewestFirst(records)
	return records, nil
}

// SummarizePerformance computes accuracy figures over a prediction log.
// Percentages are rounded to one decimal.
func SummarizePerformance(records []models.PredictionRecord) *models.ModelPerformance {
	sorted := make([]models.PredictionRecord, len(records))
	copy(sorted, records)
	sortNewestFirst(sorted)

	perf := &models.ModelPerformance{
		TotalPredictions: len(sorted),
		BestModel:        models.ModeBlended,
		ModelBreakdown:   make(map[models.PredictionMode]models.ModeBreakdown, len(trackedModes)),
	}

	var resolved []models.PredictionRecord
	var confidences []float64
	for _, r := range sorted {
		if r.HasResult() {
			resolved = append(resolved, r)
		}
		confidences = append(confidences, math.Max(r.FighterAProb, r.FighterBProb))
	}

	correct := countCorrect(resolved)
	perf.PredictionsWithResults = len(resolved)
	perf.CorrectPredictions = correct
	perf.OverallAccuracy = percentage(correct, len(resolved))

	recent := resolved
	if len(recent) > recentWindow {
		recent = recent[:recentWindow]
	}
	perf.RecentPredictionsCount = len(recent)
	perf.RecentAccuracy = percentage(countCorrect(recent), len(recent))

	if len(confidences) > 0 {
		mean, _ := stats.Mean(confidences)
		stdDev, _ := stats.StandardDeviation(confidences)
		perf.AvgConfidence = round1(mean)
		perf.ConfidenceStdDev = round1(stdDev)
	}

	for _, mode := range trackedModes {
		var b models.ModeBreakdown
		var modeResolved []models.PredictionRecord
		for _, r := range sorted {
			if r.Mode != mode {
				continue
			}
			b.Total++
			if r.HasResult() {
				modeResolved = append(modeResolved, r)
			}
		}
		b.TotalWithResults = len(modeResolved)
		b.Correct = countCorrect(modeResolved)
		b.Accuracy = percentage(b.Correct, b.TotalWithResults)
		perf.ModelBreakdown[mode] = b

		if b.TotalWithResults >= minResultsForBest && b.Accuracy > perf.BestModelAccuracy {
			perf.BestModel = mode
			perf.BestModelAccuracy = b.Accuracy
		}
	}

	return perf
}

func countCorrect(records []models.PredictionRecord) int {
	n := 0
	for _, r := range records {
		if r.Correct != nil && *r.Correct {
			n++
		}
	}
	return n
}

func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round1(float64(part) / float64(whole) * 100)
}

func sortNewestFirst(records []models.PredictionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}
