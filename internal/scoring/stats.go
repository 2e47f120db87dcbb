package scoring

import "math"

// z95 is the two-sided 95% normal quantile used for Wald intervals.
const z95 = 1.959963984540054

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleVariance uses the n-1 denominator. Fewer than two values yield 0.
func sampleVariance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return ss / float64(len(xs)-1)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// rescale maps a 1-7 value onto 0-100.
func rescale(v float64) float64 {
	return (v - 1) / 6 * 100
}

// waldInterval returns a 95% interval around m for n observations with the
// given sample variance, clamped to [0, 100].
func waldInterval(m, variance float64, n int) (float64, float64) {
	se := math.Sqrt(variance / float64(n))
	half := z95 * se
	return clamp(m-half, 0, 100), clamp(m+half, 0, 100)
}

// CronbachAlpha computes alpha for a rows x items matrix (rows are
// observations). It returns false when alpha is undefined: fewer than two
// rows or items, ragged rows, or zero total variance.
func CronbachAlpha(matrix [][]float64) (float64, bool) {
	n := len(matrix)
	if n < 2 {
		return 0, false
	}
	k := len(matrix[0])
	if k < 2 {
		return 0, false
	}

	totals := make([]float64, n)
	var itemVarSum float64
	col := make([]float64, n)
	for j := 0; j < k; j++ {
		for i, row := range matrix {
			if len(row) != k {
				return 0, false
			}
			col[i] = row[j]
			totals[i] += row[j]
		}
		itemVarSum += sampleVariance(col)
	}

	totalVar := sampleVariance(totals)
	if totalVar == 0 {
		return 0, false
	}
	kf := float64(k)
	return kf / (kf - 1) * (1 - itemVarSum/totalVar), true
}
