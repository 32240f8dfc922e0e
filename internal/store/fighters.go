package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fightsim/fightsim-api/internal/models"
)

const fighterColumns = `name, profile_url, image_url, slpm, str_acc, str_def, td_avg, td_acc, td_def,
	sub_avg, height_in, weight_lb, reach_in, stance, dob, last_updated`

type FighterRepository struct {
	db DB
}

func NewFighterRepository(db DB) *FighterRepository {
	return &FighterRepository{db: db}
}

// Resolve looks a fighter up by case-insensitive name
func (r *FighterRepository) Resolve(ctx context.Context, name string) (*models.FighterProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.ErrFighterNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+fighterColumns+` FROM fighters WHERE lower(name) = lower($1)`, name)
	p, err := scanFighter(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrFighterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query fighter %q: %w", name, err)
	}
	return p, nil
}

// List returns name and image for every fighter, sorted by name
func (r *FighterRepository) List(ctx context.Context) ([]models.FighterSummary, error) {
	rows, err := r.db.Query(ctx, `SELECT name, image_url FROM fighters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list fighters: %w", err)
	}
	defer rows.Close()

	fighters := make([]models.FighterSummary, 0)
	for rows.Next() {
		var f models.FighterSummary
		if err := rows.Scan(&f.Name, &f.Image); err != nil {
			return nil, fmt.Errorf("scan fighter: %w", err)
		}
		fighters = append(fighters, f)
	}
	return fighters, rows.Err()
}

// Upsert inserts or replaces a fighter profile keyed by name
func (r *FighterRepository) Upsert(ctx context.Context, p *models.FighterProfile) error {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("upsert fighter: name is required")
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO fighters (`+fighterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now())
		ON CONFLICT (name) DO UPDATE SET
			profile_url = EXCLUDED.profile_url,
			image_url = EXCLUDED.image_url,
			slpm = EXCLUDED.slpm,
			str_acc = EXCLUDED.str_acc,
			str_def = EXCLUDED.str_def,
			td_avg = EXCLUDED.td_avg,
			td_acc = EXCLUDED.td_acc,
			td_def = EXCLUDED.td_def,
			sub_avg = EXCLUDED.sub_avg,
			height_in = EXCLUDED.height_in,
			weight_lb = EXCLUDED.weight_lb,
			reach_in = EXCLUDED.reach_in,
			stance = EXCLUDED.stance,
			dob = EXCLUDED.dob,
			last_updated = now()`,
		strings.TrimSpace(p.Name), p.ProfileURL, p.ImageURL,
		p.SLpM, p.StrAcc, p.StrDef, p.TDAvg, p.TDAcc, p.TDDef, p.SubAvg,
		p.HeightIn, p.WeightLb, p.ReachIn, p.Stance, p.DOB,
	)
	if err != nil {
		return fmt.Errorf("upsert fighter %q: %w", p.Name, err)
	}
	return nil
}

func scanFighter(row pgx.Row) (*models.FighterProfile, error) {
	var p models.FighterProfile
	err := row.Scan(
		&p.Name, &p.ProfileURL, &p.ImageURL,
		&p.SLpM, &p.StrAcc, &p.StrDef, &p.TDAvg, &p.TDAcc, &p.TDDef, &p.SubAvg,
		&p.HeightIn, &p.WeightLb, &p.ReachIn, &p.Stance, &p.DOB, &p.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
