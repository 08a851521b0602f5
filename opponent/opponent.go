// Package opponent simulates the "AI" player's score.
package opponent

import (
	"math/rand"
)

const (
	minFactor = 0.4
	maxFactor = 1.4

	maxOffset = 20

	// MinScore is the lowest score the AI ever reports.
	MinScore = 10
)

// Random provides random numbers and can be replaced in tests.
type Random interface {
	// Float64 returns a number in [0.0, 1.0)
	Float64() float64

	// IntN returns a number in [0, n)
	IntN(n int) int
}

type mathRandom struct{}

func (mathRandom) Float64() float64 { return rand.Float64() }
func (mathRandom) IntN(n int) int   { return rand.Intn(n) }

// Simulator derives an AI score from the human's score. The calibration has
// humans winning roughly 60% of rounds.
type Simulator struct {
	rnd Random
}

// New creates a Simulator backed by math/rand/v2. Pass a Random to control it.
func New(rnd Random) *Simulator {
	if rnd == nil {
		rnd = mathRandom{}
	}
	return &Simulator{rnd: rnd}
}

// Score multiplies humanScore by a factor in [0.4, 1.4), truncates, adds an
// offset in [-20, 20] and never returns less than MinScore.
func (s *Simulator) Score(humanScore int) int {
	factor := minFactor + s.rnd.Float64()*(maxFactor-minFactor)
	score := int(float64(humanScore) * factor)
	score += s.rnd.IntN(2*maxOffset+1) - maxOffset
	return max(MinScore, score)
}
