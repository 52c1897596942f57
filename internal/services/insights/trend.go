package insights

import "fininsight/internal/models"

// FitTrend computes an ordinary least squares fit of values against their
// index positions 0..n-1. Degenerate series (fewer than two points, or zero
// variance in y) produce R² = 0 rather than NaN.
func FitTrend(values []float64) models.TrendModel {
	n := float64(len(values))
	model := models.TrendModel{Samples: len(values)}
	if len(values) == 0 {
		return model
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		// single sample: flat line through the only value
		model.Intercept = sumY / n
		return model
	}

	model.Slope = (n*sumXY - sumX*sumY) / denom
	model.Intercept = (sumY - model.Slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for i, y := range values {
		predicted := model.Predict(float64(i))
		ssRes += (y - predicted) * (y - predicted)
		ssTot += (y - meanY) * (y - meanY)
	}
	if ssTot > 0 {
		model.RSquared = 1 - ssRes/ssTot
	}
	return model
}
