package analysis

import (
	"math"

	"github.com/meridian-desktop/volatility-backend/pkg/types"
)

// ljungBox computes the Ljung-Box Q statistic and its chi-squared p-value
// for each lag 1..maxLag. Small p-values indicate autocorrelation remaining
// in the series.
func ljungBox(values []float64, maxLag int) []types.LjungBoxRow {
	n := len(values)
	if n < 3 {
		return nil
	}
	if maxLag >= n {
		maxLag = n - 1
	}

	r := acf(values, maxLag)
	if r == nil {
		return nil
	}

	rows := make([]types.LjungBoxRow, 0, maxLag)
	q := 0.0
	nf := float64(n)
	for lag := 1; lag <= maxLag; lag++ {
		q += r[lag] * r[lag] / (nf - float64(lag))
		stat := nf * (nf + 2) * q
		rows = append(rows, types.LjungBoxRow{
			Lag:       lag,
			Statistic: stat,
			PValue:    chiSquareSurvival(stat, float64(lag)),
		})
	}
	return rows
}

// chiSquareSurvival returns P(X > x) for a chi-squared distribution with k
// degrees of freedom, via the regularized upper incomplete gamma function.
func chiSquareSurvival(x, k float64) float64 {
	if x <= 0 {
		return 1
	}
	return gammaIncUpper(k/2, x/2)
}

// gammaIncUpper computes the regularized upper incomplete gamma function
// Q(a, x), switching between the series and continued-fraction expansions
// for numerical stability.
func gammaIncUpper(a, x float64) float64 {
	if x < 0 || a <= 0 {
		return math.NaN()
	}
	if x == 0 {
		return 1
	}
	if x < a+1 {
		return 1 - gammaSeriesP(a, x)
	}
	return gammaContinuedQ(a, x)
}

// gammaSeriesP evaluates the lower regularized gamma P(a, x) by its series
// representation, valid for x < a+1.
func gammaSeriesP(a, x float64) float64 {
	const (
		maxIter = 200
		eps     = 3e-14
	)
	lg, _ := math.Lgamma(a)
	ap := a
	sum := 1.0 / a
	del := sum
	for i := 0; i < maxIter; i++ {
		ap++
		del *= x / ap
		sum += del
		if math.Abs(del) < math.Abs(sum)*eps {
			break
		}
	}
	return sum * math.Exp(-x+a*math.Log(x)-lg)
}

// gammaContinuedQ evaluates the upper regularized gamma Q(a, x) by its
// continued-fraction representation, valid for x >= a+1.
func gammaContinuedQ(a, x float64) float64 {
	const (
		maxIter = 200
		eps     = 3e-14
		fpmin   = 1e-300
	)
	lg, _ := math.Lgamma(a)
	b := x + 1 - a
	c := 1 / fpmin
	d := 1 / b
	h := d
	for i := 1; i <= maxIter; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < fpmin {
			d = fpmin
		}
		c = b + an/c
		if math.Abs(c) < fpmin {
			c = fpmin
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < eps {
			break
		}
	}
	return math.Exp(-x+a*math.Log(x)-lg) * h
}
