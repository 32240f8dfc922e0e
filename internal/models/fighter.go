package models

import (
	"fmt"
	"strings"
	"time"
)

// Stance values recognised by the feature schema
const (
	StanceOrthodox = "orthodox"
	StanceSouthpaw = "southpaw"
	StanceSwitch   = "switch"
)

// FighterProfile is one fighter's statistical snapshot as stored by the
// persistence layer. Core stats are nullable because scraped profiles are
// often incomplete; use CoreStats to obtain a fully populated view.
type FighterProfile struct {
	Name       string `json:"name"`
	ProfileURL string `json:"profile_url,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`

	SLpM   *float64 `json:"slpm" flex:"number"`
	StrAcc *float64 `json:"str_acc" flex:"percent"`
	StrDef *float64 `json:"str_def" flex:"percent"`
	TDAvg  *float64 `json:"td_avg" flex:"number"`
	TDAcc  *float64 `json:"td_acc" flex:"percent"`
	TDDef  *float64 `json:"td_def" flex:"percent"`
	SubAvg *float64 `json:"sub_avg" flex:"number"`

	HeightIn *float64   `json:"height,omitempty" flex:"height"`
	WeightLb *float64   `json:"weight,omitempty" flex:"number"`
	ReachIn  *float64   `json:"reach,omitempty" flex:"number"`
	Stance   *string    `json:"stance,omitempty"`
	DOB      *time.Time `json:"dob,omitempty" flex:"date"`

	LastUpdated time.Time `json:"last_updated,omitempty"`
}

// CoreStats is the fully populated set of statistics the prediction
// models need.
type CoreStats struct {
	SLpM   float64
	StrAcc float64
	StrDef float64
	TDAvg  float64
	TDAcc  float64
	TDDef  float64
	SubAvg float64
}

// InvalidProfileError reports a required statistic missing from a profile.
type InvalidProfileError struct {
	Fighter string
	Field   string
}

func (e *InvalidProfileError) Error() string {
	if e.Fighter == "" {
		return fmt.Sprintf("invalid fighter profile: missing %s", e.Field)
	}
	return fmt.Sprintf("invalid fighter profile %q: missing %s", e.Fighter, e.Field)
}

// CoreStats returns the seven core statistics or an *InvalidProfileError
// naming the first absent field.
func (p *FighterProfile) CoreStats() (CoreStats, error) {
	if p == nil {
		return CoreStats{}, &InvalidProfileError{Field: "profile"}
	}
	type field struct {
		name string
		val  *float64
		dst  *float64
	}
	var cs CoreStats
	fields := []field{
		{"slpm", p.SLpM, &cs.SLpM},
		{"str_acc", p.StrAcc, &cs.StrAcc},
		{"str_def", p.StrDef, &cs.StrDef},
		{"td_avg", p.TDAvg, &cs.TDAvg},
		{"td_acc", p.TDAcc, &cs.TDAcc},
		{"td_def", p.TDDef, &cs.TDDef},
		{"sub_avg", p.SubAvg, &cs.SubAvg},
	}
	for _, f := range fields {
		if f.val == nil {
			return CoreStats{}, &InvalidProfileError{Fighter: p.Name, Field: f.name}
		}
		*f.dst = *f.val
	}
	return cs, nil
}

// AgeAt returns the fighter's age in years at t, or nil when the date of
// birth is unknown.
func (p *FighterProfile) AgeAt(t time.Time) *float64 {
	if p == nil || p.DOB == nil || p.DOB.IsZero() {
		return nil
	}
	years := t.Sub(*p.DOB).Hours() / 24 / 365.25
	return &years
}

// NormalizedStance lower-cases the stance, returning "" when unknown.
func (p *FighterProfile) NormalizedStance() string {
	if p == nil || p.Stance == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*p.Stance))
}

// FighterSummary is the list view of a fighter
type FighterSummary struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Float returns a pointer to v. Handy for building profiles in code.
func Float(v float64) *float64 {
	return &v
}
