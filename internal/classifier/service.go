package classifier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/fightsim/fightsim-api/internal/models"
)

// ErrNotLoaded is returned by Classify before any artifact has loaded
var ErrNotLoaded = errors.New("classifier model not loaded")

var modelReloads = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fightsim_model_reloads_total",
	Help: "Classifier artifact reload attempts by result",
}, []string{"result"})

type Config struct {
	Path   string
	Logger *zap.Logger
	Now    func() time.Time
}

// Service holds the active classifier. Reload swaps the model under a
// write lock, so in-flight Classify calls finish on the model they started
// with.
type Service struct {
	path   string
	logger *zap.SugaredLogger
	now    func() time.Time

	mu      sync.RWMutex
	model   Model
	schema  FeatureSchema
	version string
	modTime time.Time
}

func NewService(cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		path:   cfg.Path,
		logger: cfg.Logger.Sugar(),
		now:    cfg.Now,
	}
}

// Reload reads the artifact at the configured path. On failure the
// previously loaded model stays active.
func (s *Service) Reload() error {
	info, err := os.Stat(s.path)
	if err != nil {
		modelReloads.WithLabelValues("error").Inc()
		return fmt.Errorf("stat model artifact: %w", err)
	}
	return s.load(info.ModTime())
}

// ReloadIfChanged reloads only when the artifact's modification time
// differs from the loaded one. It reports whether a reload happened.
func (s *Service) ReloadIfChanged() (bool, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		modelReloads.WithLabelValues("error").Inc()
		return false, fmt.Errorf("stat model artifact: %w", err)
	}
	s.mu.RLock()
	unchanged := s.model != nil && info.ModTime().Equal(s.modTime)
	s.mu.RUnlock()
	if unchanged {
		return false, nil
	}
	if err := s.load(info.ModTime()); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) load(modTime time.Time) error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		modelReloads.WithLabelValues("error").Inc()
		return fmt.Errorf("read model artifact: %w", err)
	}
	artifact, err := ParseArtifact(raw)
	if err != nil {
		modelReloads.WithLabelValues("error").Inc()
		return err
	}
	model, schema, err := artifact.Build()
	if err != nil {
		modelReloads.WithLabelValues("error").Inc()
		return fmt.Errorf("build model %s: %w", artifact.Version, err)
	}

	s.mu.Lock()
	previous := s.version
	s.model = model
	s.schema = schema
	s.version = artifact.Version
	s.modTime = modTime
	s.mu.Unlock()

	modelReloads.WithLabelValues("ok").Inc()
	s.logger.Infow("Classifier loaded",
		"version", artifact.Version,
		"previous", previous,
		"kind", artifact.Kind,
		"schema", schema.Version,
		"features", schema.Len(),
	)
	return nil
}

// Classify returns P(A beats B) from the active model
func (s *Service) Classify(ctx context.Context, a, b *models.FighterProfile) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	model, schema := s.model, s.schema
	s.mu.RUnlock()
	if model == nil {
		return 0, ErrNotLoaded
	}

	x, err := schema.Vector(a, b, s.now())
	if err != nil {
		return 0, err
	}
	return model.Predict(x), nil
}

func (s *Service) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil
}

// SchemaVersion reports the feature schema of the active model
func (s *Service) SchemaVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema.Version
}
