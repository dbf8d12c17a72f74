package sim

import (
	"math"
	"math/rand"
	"testing"
)

func TestPoissonZeroAndNegativeMean(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if got := Poisson(rng, 0); got != 0 {
		t.Fatalf("mean 0 produced %d", got)
	}
	if got := Poisson(rng, -3); got != 0 {
		t.Fatalf("negative mean produced %d", got)
	}
}

func TestPoissonSampleStatistics(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	const draws = 20000
	const mean = 75.0

	var sum, sumSq float64
	for i := 0; i < draws; i++ {
		v := Poisson(rng, mean)
		if v < 0 {
			t.Fatalf("negative sample %d", v)
		}
		f := float64(v)
		sum += f
		sumSq += f * f
	}

	sampleMean := sum / draws
	sampleVar := sumSq/draws - sampleMean*sampleMean

	if sampleMean < 73 || sampleMean > 77 {
		t.Fatalf("sample mean = %.2f, want within [73, 77]", sampleMean)
	}
	// For Poisson, variance equals the mean; at this draw count the
	// ratio estimator has a standard error around 1%.
	ratio := sampleVar / sampleMean
	if ratio < 0.95 || ratio > 1.05 {
		t.Fatalf("variance/mean = %.3f, want within [0.95, 1.05]", ratio)
	}
}

func TestPoissonSmallMeanStatistics(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	const draws = 5000
	const mean = 2.5

	var sum float64
	for i := 0; i < draws; i++ {
		sum += float64(Poisson(rng, mean))
	}

	sampleMean := sum / draws
	if math.Abs(sampleMean-mean) > 0.15 {
		t.Fatalf("sample mean = %.3f, want ~%.1f", sampleMean, mean)
	}
}

// Sums of independent Poisson draws behave like a single draw with the
// summed rate, which is what lets route totals decompose per feature.
func TestPoissonAdditiveDecomposition(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	const draws = 5000
	rates := []float64{4, 7, 9} // total 20

	var sum, sumSq float64
	for i := 0; i < draws; i++ {
		total := 0
		for _, r := range rates {
			total += Poisson(rng, r)
		}
		f := float64(total)
		sum += f
		sumSq += f * f
	}

	sampleMean := sum / draws
	if math.Abs(sampleMean-20) > 0.6 {
		t.Fatalf("summed sample mean = %.3f, want ~20", sampleMean)
	}
	// The sum must stay Poisson-shaped, not just land on the right mean.
	sampleVar := sumSq/draws - sampleMean*sampleMean
	ratio := sampleVar / sampleMean
	if ratio < 0.9 || ratio > 1.1 {
		t.Fatalf("variance/mean of summed draws = %.3f, want within [0.9, 1.1]", ratio)
	}
}

func TestPoissonDeterministicForSeed(t *testing.T) {
	a := rand.New(rand.NewSource(99))
	b := rand.New(rand.NewSource(99))

	for i := 0; i < 50; i++ {
		va, vb := Poisson(a, 5.0), Poisson(b, 5.0)
		if va != vb {
			t.Fatalf("draw %d differs for identical seeds: %d vs %d", i, va, vb)
		}
	}
}
