package sim

import (
	"math"
	"math/rand"
)

// Poisson samples a Poisson-distributed count with the given mean using
// Knuth's algorithm, switching to a normal approximation for large means
// where the multiplicative form underflows.
func Poisson(rng *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	if mean > 30 {
		std := math.Sqrt(mean)
		val := int(math.Round(rng.NormFloat64()*std + mean))
		if val < 0 {
			return 0
		}
		return val
	}
	l := math.Exp(-mean)
	k := 0
	p := 1.0
	for p > l {
		k++
		p *= rng.Float64()
	}
	return k - 1
}
