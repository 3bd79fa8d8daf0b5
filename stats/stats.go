/*
Package stats merges the predictions of several decision tree leaves into a
single one, weighting each leaf by the number of samples it was built on.
*/
package stats

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoSamples is returned when every merged leaf holds zero samples.
var ErrNoSamples = errors.New("no samples to aggregate")

// Summary is the merge of several continuous predictions.
type Summary struct {
	Mean float64
	Size float64
	// StandardDeviation is nil when no deviations were merged.
	StandardDeviation *float64
}

/*
MeanValues takes the means, sample sizes and optionally the standard
deviations of several groups and returns their pooled mean, total size and
pooled standard deviation. Groups with a size of 0 are ignored.

The pooled variance sums the within-group and between-group variances, both
with Bessel's correction:

	((Σ (size_i - 1)·std_i²) + Σ size_i·(mean_i - mean)²) / (size - 1)

A nil stds slice yields a Summary without standard deviation. ErrNoSamples
is returned if the total size is 0.
*/
func MeanValues(means, sizes, stds []float64) (Summary, error) {
	if len(means) != len(sizes) || (stds != nil && len(stds) != len(sizes)) {
		return Summary{}, fmt.Errorf("merging values: got %d means, %d sizes and %d deviations", len(means), len(sizes), len(stds))
	}
	var total, weighted float64
	for i, size := range sizes {
		if size == 0 {
			continue
		}
		total += size
		weighted += size * means[i]
	}
	if total == 0 {
		return Summary{}, ErrNoSamples
	}
	s := Summary{Mean: weighted / total, Size: total}
	if stds == nil {
		return s, nil
	}
	var within, between float64
	var last float64
	for i, size := range sizes {
		if size == 0 {
			continue
		}
		within += (size - 1) * stds[i] * stds[i]
		between += size * (means[i] - s.Mean) * (means[i] - s.Mean)
		last = stds[i]
	}
	std := last
	if total > 1 {
		std = math.Sqrt((within + between) / (total - 1))
	}
	s.StandardDeviation = &std
	return s, nil
}

/*
MeanDistributions takes the class probability distributions and sample sizes
of several groups and returns their weighted mean distribution and total
size. Distributions shorter than the longest one are padded with zero
probabilities. ErrNoSamples is returned if the total size is 0.
*/
func MeanDistributions(distributions [][]float64, sizes []float64) ([]float64, float64, error) {
	if len(distributions) != len(sizes) {
		return nil, 0, fmt.Errorf("merging distributions: got %d distributions and %d sizes", len(distributions), len(sizes))
	}
	classes := 0
	for _, d := range distributions {
		if len(d) > classes {
			classes = len(d)
		}
	}
	merged := make([]float64, classes)
	var total float64
	for i, d := range distributions {
		if sizes[i] == 0 {
			continue
		}
		total += sizes[i]
		for c, p := range d {
			merged[c] += sizes[i] * p
		}
	}
	if total == 0 {
		return nil, 0, ErrNoSamples
	}
	for c := range merged {
		merged[c] /= total
	}
	return merged, total, nil
}

/*
ArgMax returns the index of the highest probability of the distribution,
the lowest such index on ties, or -1 for an empty distribution.
*/
func ArgMax(distribution []float64) int {
	best := -1
	for i, p := range distribution {
		if best < 0 || p > distribution[best] {
			best = i
		}
	}
	return best
}
