package analysis

import "math"

// acf calculates the autocorrelation function for lags 0..maxLag.
func acf(values []float64, maxLag int) []float64 {
	n := len(values)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	m := meanOf(values)
	variance := 0.0
	for _, v := range values {
		d := v - m
		variance += d * d
	}
	if variance == 0 {
		return nil
	}

	out := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (values[i] - m) * (values[i-k] - m)
		}
		out[k] = sum / variance
	}
	return out
}

// pacf calculates the partial autocorrelation function for lags 0..maxLag
// using the Durbin-Levinson recursion.
func pacf(values []float64, maxLag int) []float64 {
	n := len(values)
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 1 {
		return nil
	}

	r := acf(values, maxLag)
	if r == nil {
		return nil
	}

	out := make([]float64, maxLag+1)
	out[0] = 1.0

	phi := make([][]float64, maxLag+1)
	for i := range phi {
		phi[i] = make([]float64, maxLag+1)
	}

	phi[1][1] = r[1]
	out[1] = r[1]

	for k := 2; k <= maxLag; k++ {
		num := r[k]
		den := 1.0
		for j := 1; j < k; j++ {
			num -= phi[k-1][j] * r[k-j]
			den -= phi[k-1][j] * r[j]
		}
		if den == 0 {
			out[k] = 0
			continue
		}
		phi[k][k] = num / den
		out[k] = phi[k][k]
		for j := 1; j < k; j++ {
			phi[k][j] = phi[k-1][j] - phi[k][k]*phi[k-1][k-j]
		}
	}
	return out
}

// confidenceBound returns the 95% confidence bound for sample
// autocorrelations of a white-noise series of length n.
func confidenceBound(n int) float64 {
	if n <= 0 {
		return 0
	}
	return 1.96 / math.Sqrt(float64(n))
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
