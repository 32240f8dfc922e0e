package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fightsim/fightsim-api/internal/models"
)

// profileSet is an in-memory fighter lookup keyed by lower-cased name
type profileSet map[string]*models.FighterProfile

func (s profileSet) Resolve(ctx context.Context, name string) (*models.FighterProfile, error) {
	p, ok := s[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, models.ErrFighterNotFound
	}
	return p, nil
}

// readProfiles decodes a JSON array of fighter profiles. Stat pages'
// string renderings ("45%", `5' 11"`) are accepted.
func readProfiles(r io.Reader) (profileSet, error) {
	var list []models.FighterProfile
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	set := make(profileSet, len(list))
	for i := range list {
		name := strings.ToLower(strings.TrimSpace(list[i].Name))
		if name == "" {
			return nil, fmt.Errorf("profile %d has no name", i)
		}
		set[name] = &list[i]
	}
	return set, nil
}

func loadProfiles(path string) (profileSet, error) {
	if path == "-" {
		return readProfiles(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readProfiles(f)
}
