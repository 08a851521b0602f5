package opponent

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockRandom returns queued values, then zero.
type mockRandom struct {
	floats []float64
	ints   []int
}

func (r *mockRandom) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *mockRandom) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v
}

func TestScore_Formula(t *testing.T) {
	tests := []struct {
		name   string
		human  int
		factor float64
		offset int // raw IntN(41) result
		want   int
	}{
		{"lowest factor, lowest offset", 200, 0.0, 0, 60}, // 200*0.4=80, -20
		{"mid factor, no offset", 150, 0.5, 20, 135},      // 150*0.9=135
		{"highest offset", 100, 0.0, 40, 60},              // 100*0.4=40, +20
		{"truncates toward zero", 7, 0.25, 20, 10},        // 7*0.65=4.55 -> 4, clamped
		{"clamped to minimum", 0, 0.99, 0, MinScore},      // 0 - 20
		{"large score", 1000, 0.5, 40, 920},               // 1000*0.9=900, +20
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := New(&mockRandom{floats: []float64{tt.factor}, ints: []int{tt.offset}})
			assert.Equal(t, tt.want, sim.Score(tt.human))
		})
	}
}

func TestScore_Bounds(t *testing.T) {
	sim := New(nil)

	for _, human := range []int{0, 1, 10, 50, 150, 999, 5000} {
		for i := 0; i < 2000; i++ {
			got := sim.Score(human)
			assert.GreaterOrEqual(t, got, MinScore)
			assert.LessOrEqual(t, got, max(MinScore, int(float64(human)*maxFactor)+maxOffset))
		}
	}
}

func TestScore_LargestAcceptedScore(t *testing.T) {
	sim := New(&mockRandom{floats: []float64{0.99}, ints: []int{40}})

	got := sim.Score(math.MaxInt32)
	assert.Greater(t, got, math.MaxInt32)
}

func TestScore_HumansWinMostRounds(t *testing.T) {
	sim := New(nil)

	wins := 0
	const rounds = 20000
	for i := 0; i < rounds; i++ {
		if 500 > sim.Score(500) {
			wins++
		}
	}

	rate := float64(wins) / rounds
	assert.InDelta(t, 0.6, rate, 0.05)
}
