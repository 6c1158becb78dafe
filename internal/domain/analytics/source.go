package analytics

import (
	"math/rand"
	"time"
)

// Source supplies the random draws used by the reports.
type Source interface {
	Float64() float64
	NormFloat64() float64
}

// NewSource returns a Source seeded with seed, or with the current time
// when seed is 0.
func NewSource(seed int64) Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func uniform(src Source, lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}

func normal(src Source, mean, sd float64) float64 {
	return mean + sd*src.NormFloat64()
}
