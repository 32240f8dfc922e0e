package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

type logistic struct {
	intercept float64
	weights   []float64
	means     []float64
	scales    []float64
}

func newLogistic(p LogisticParams, n int) (*logistic, error) {
	if len(p.Weights) != n {
		return nil, fmt.Errorf("logistic model has %d weights, schema needs %d", len(p.Weights), n)
	}
	means := p.Means
	if len(means) == 0 {
		means = make([]float64, n)
	}
	scales := p.Scales
	if len(scales) == 0 {
		scales = make([]float64, n)
		for i := range scales {
			scales[i] = 1
		}
	}
	if len(means) != n || len(scales) != n {
		return nil, fmt.Errorf("logistic scaler has %d means and %d scales, schema needs %d", len(means), len(scales), n)
	}
	for i, s := range scales {
		if s == 0 {
			return nil, fmt.Errorf("logistic scale for feature %d is zero", i)
		}
	}
	return &logistic{
		intercept: p.Intercept,
		weights:   p.Weights,
		means:     means,
		scales:    scales,
	}, nil
}

func (m *logistic) Predict(x []float64) float64 {
	z := make([]float64, len(x))
	floats.SubTo(z, x, m.means)
	floats.Div(z, m.scales)
	return sigmoid(m.intercept + floats.Dot(m.weights, z))
}

// sigmoid clamps its input so exp never overflows
func sigmoid(z float64) float64 {
	if z > 35 {
		z = 35
	} else if z < -35 {
		z = -35
	}
	return 1 / (1 + math.Exp(-z))
}
