package classifier

import (
	"fmt"
	"time"

	"github.com/fightsim/fightsim-api/internal/models"
)

// FeatureSchema is the ordered list of inputs a trained model expects.
// The training pipeline writes the schema version into the artifact and
// the service refuses artifacts whose version it does not know.
type FeatureSchema struct {
	Version string
	Names   []string
	build   func(a, b *models.FighterProfile, sa, sb models.CoreStats, now time.Time) []float64
}

// Len returns the number of features
func (s FeatureSchema) Len() int {
	return len(s.Names)
}

// Vector builds the feature vector for A vs B. Missing core stats return
// a *models.InvalidProfileError.
func (s FeatureSchema) Vector(a, b *models.FighterProfile, now time.Time) ([]float64, error) {
	sa, err := a.CoreStats()
	if err != nil {
		return nil, err
	}
	sb, err := b.CoreStats()
	if err != nil {
		return nil, err
	}
	x := s.build(a, b, sa, sb, now)
	if len(x) != len(s.Names) {
		return nil, fmt.Errorf("schema %s built %d features, want %d", s.Version, len(x), len(s.Names))
	}
	return x, nil
}

var statNames = []string{"slpm", "str_acc", "str_def", "td_avg", "td_acc", "td_def", "sub_avg"}

var stances = []string{models.StanceOrthodox, models.StanceSouthpaw, models.StanceSwitch}

// SchemaV1 is the 14 core stats of A followed by those of B
var SchemaV1 = FeatureSchema{
	Version: "v1",
	Names:   append(prefixed("a_", statNames), prefixed("b_", statNames)...),
	build: func(_, _ *models.FighterProfile, sa, sb models.CoreStats, _ time.Time) []float64 {
		return append(statVector(sa), statVector(sb)...)
	},
}

// SchemaV2 extends v1 with physical differences and one-hot stances.
// Unknown attributes encode as zero.
var SchemaV2 = FeatureSchema{
	Version: "v2",
	Names: concat(
		SchemaV1.Names,
		[]string{"weight_diff", "height_diff", "reach_diff", "age_diff"},
		prefixed("a_stance_", stances),
		prefixed("b_stance_", stances),
	),
	build: func(a, b *models.FighterProfile, sa, sb models.CoreStats, now time.Time) []float64 {
		x := append(statVector(sa), statVector(sb)...)
		x = append(x,
			diffOrZero(a.WeightLb, b.WeightLb),
			diffOrZero(a.HeightIn, b.HeightIn),
			diffOrZero(a.ReachIn, b.ReachIn),
			diffOrZero(a.AgeAt(now), b.AgeAt(now)),
		)
		x = append(x, oneHotStance(a)...)
		return append(x, oneHotStance(b)...)
	},
}

var schemas = map[string]FeatureSchema{
	SchemaV1.Version: SchemaV1,
	SchemaV2.Version: SchemaV2,
}

// LookupSchema returns the schema registered under version
func LookupSchema(version string) (FeatureSchema, error) {
	s, ok := schemas[version]
	if !ok {
		return FeatureSchema{}, fmt.Errorf("unknown feature schema version %q", version)
	}
	return s, nil
}

func statVector(s models.CoreStats) []float64 {
	return []float64{s.SLpM, s.StrAcc, s.StrDef, s.TDAvg, s.TDAcc, s.TDDef, s.SubAvg}
}

func oneHotStance(p *models.FighterProfile) []float64 {
	x := make([]float64, len(stances))
	stance := p.NormalizedStance()
	for i, s := range stances {
		if stance == s {
			x[i] = 1
		}
	}
	return x
}

func diffOrZero(a, b *float64) float64 {
	if a == nil || b == nil {
		return 0
	}
	return *a - *b
}

func prefixed(prefix string, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = prefix + n
	}
	return out
}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
