// Command seeder loads fighter profiles from a JSON file into PostgreSQL.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/fightsim/fightsim-api/internal/models"
	"github.com/fightsim/fightsim-api/internal/store"
)

// FighterUpserter writes one profile
type FighterUpserter interface {
	Upsert(ctx context.Context, p *models.FighterProfile) error
}

type seedResult struct {
	Loaded  int
	Skipped int
}

// seed upserts every named profile from r. Profiles without a name are
// skipped; the first write error aborts.
func seed(ctx context.Context, r io.Reader, repo FighterUpserter, now time.Time, log *zap.SugaredLogger) (seedResult, error) {
	var res seedResult

	var profiles []models.FighterProfile
	if err := json.NewDecoder(r).Decode(&profiles); err != nil {
		return res, fmt.Errorf("decode profiles: %w", err)
	}

	for i := range profiles {
		p := &profiles[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			log.Warnw("Skipping profile without name", "index", i)
			res.Skipped++
			continue
		}
		if _, err := p.CoreStats(); err != nil {
			// Incomplete profiles are still stored; predictions report them
			log.Infow("Profile is incomplete", "fighter", p.Name, "error", err)
		}
		if p.LastUpdated.IsZero() {
			p.LastUpdated = now
		}
		if err := repo.Upsert(ctx, p); err != nil {
			return res, fmt.Errorf("upsert %q: %w", p.Name, err)
		}
		res.Loaded++
	}
	return res, nil
}

func main() {
	_ = godotenv.Load()

	file := flag.StringP("file", "f", "fighters.json", "JSON array of fighter profiles")
	dsn := flag.String("postgres-url", os.Getenv("POSTGRES_URL"), "PostgreSQL connection URL")
	migrate := flag.Bool("migrate", true, "Create tables before loading")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	if *dsn == "" {
		log.Fatal("POSTGRES_URL or --postgres-url is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pg, err := pgxpool.New(ctx, *dsn)
	if err != nil {
		log.Fatalw("Failed to connect to PostgreSQL", "error", err)
	}
	defer pg.Close()

	if *migrate {
		if err := store.Migrate(ctx, pg); err != nil {
			log.Fatalw("Migration failed", "error", err)
		}
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalw("Failed to open profiles", "file", *file, "error", err)
	}
	defer f.Close()

	res, err := seed(ctx, f, store.NewFighterRepository(pg), time.Now().UTC(), log)
	if err != nil {
		log.Fatalw("Seeding failed", "loaded", res.Loaded, "error", err)
	}
	log.Infow("Seeding complete", "loaded", res.Loaded, "skipped", res.Skipped)
}
