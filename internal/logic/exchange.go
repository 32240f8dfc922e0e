package logic

import (
	"github.com/fightsim/fightsim-api/internal/models"
)

// ExchangeWeights are the tunable constants of the exchange model
type ExchangeWeights struct {
	Takedown    float64
	Submission  float64
	NeutralMass float64
}

// DefaultExchangeWeights are the production model constants.
// They were chosen empirically.
var DefaultExchangeWeights = ExchangeWeights{
	Takedown:    0.3,
	Submission:  0.2,
	NeutralMass: 0.4,
}

// ComputeExchange converts two fighters' statistics into the probability
// that a single exchange is won by A, won by B, or neutral.
//
// Both profiles must carry all seven core statistics; otherwise a
// *models.InvalidProfileError is returned.
func ComputeExchange(a, b *models.FighterProfile, w ExchangeWeights) (models.ExchangeDistribution, error) {
	sa, err := a.CoreStats()
	if err != nil {
		return models.ExchangeDistribution{}, err
	}
	sb, err := b.CoreStats()
	if err != nil {
		return models.ExchangeDistribution{}, err
	}

	eA := effectiveness(sa, sb, w)
	eB := effectiveness(sb, sa, w)

	rawA := 0.5
	if total := eA + eB; total != 0 {
		rawA = eA / total
	}
	rawB := 1 - rawA

	active := 1 - w.NeutralMass
	return models.ExchangeDistribution{
		PA:       rawA * active,
		PB:       rawB * active,
		PNeutral: w.NeutralMass,
	}, nil
}

// effectiveness is striking output that gets past the opponent's defense
// plus weighted grappling output.
func effectiveness(own, opp models.CoreStats, w ExchangeWeights) float64 {
	striking := own.SLpM * own.StrAcc * (1 - opp.StrDef)
	takedowns := own.TDAvg * own.TDAcc * (1 - opp.TDDef)
	grappling := w.Takedown*takedowns + w.Submission*own.SubAvg
	return striking + grappling
}
