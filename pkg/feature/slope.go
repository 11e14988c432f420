package feature

// Slope fits an ordinary least squares line through the price series,
// normalized to percent change from its first value so slopes compare
// across price levels, and returns the fitted gradient. Series shorter
// than two points, and degenerate fits, yield 0.
func Slope(prices []float64) float64 {
	n := float64(len(prices))
	if n < 2 {
		return 0
	}

	base := prices[0]
	if base == 0 {
		base = Epsilon
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, p := range prices {
		x := float64(i)
		y := (p - base) / base
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denominator := n*sumX2 - sumX*sumX
	if denominator == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denominator
}
