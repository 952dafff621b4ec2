package simulation

import "math/rand/v2"

// categorical samples item values 0..n-1 from fixed weights.
type categorical struct {
	cumulative []float64
	last       int // highest value with non-zero weight
}

func newCategorical(weights []float64) categorical {
	c := categorical{cumulative: make([]float64, len(weights))}
	sum := 0.0
	for i, w := range weights {
		sum += w
		c.cumulative[i] = sum
		if w > 0 {
			c.last = i
		}
	}
	return c
}

// draw consumes exactly one Float64 from rng.
func (c categorical) draw(rng *rand.Rand) int {
	u := rng.Float64()
	for v, edge := range c.cumulative {
		if u < edge {
			return v
		}
	}
	// Only reachable when the weights sum to slightly less than 1.
	return c.last
}
