package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"glacier/model"
)

func TestMelt(t *testing.T) {
	tests := []struct {
		name string
		t, m float64
		want float64
	}{
		{"above freezing", 10, 1.0, 10},
		{"below freezing", -5, 1.0, 0},
		{"half factor", 20, 0.5, 10},
		{"at freezing", 0, 2.0, 0},
		{"negative factor is accepted", 4, -1.0, -4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Melt(tt.t, tt.m))
		})
	}
}

func TestMelt_LinearAboveFreezing(t *testing.T) {
	for _, m := range []float64{0, 0.005, 1, 3.7} {
		for _, temp := range []float64{0, 0.1, 1, 12.5, 40} {
			assert.Equal(t, m*temp, Melt(temp, m))
		}
		for _, temp := range []float64{-0.001, -1, -30} {
			assert.Zero(t, Melt(temp, m))
		}
	}
}

func TestAccumulate(t *testing.T) {
	assert.Equal(t, 10.0, Accumulate(-5, 10, 0))
	assert.Equal(t, 0.0, Accumulate(5, 10, 0))
	assert.Equal(t, 10.0, Accumulate(0, 10, 0), "threshold is inclusive")
	assert.Equal(t, 5.0, Accumulate(-1, 5, -1))
	assert.Equal(t, 0.0, Accumulate(1, 5, -1))
}

func TestBalanceRate_BothActiveBelowPositiveThreshold(t *testing.T) {
	p := model.Params{MeltFactor: 0.5, TThreshold: 4}
	// 2 degrees: melt 1.0 and 0.3 accumulation at once
	assert.InDelta(t, -0.7, BalanceRate(2, 0.3, p), 1e-12)
	// above threshold only melt
	assert.InDelta(t, -2.5, BalanceRate(5, 0.3, p), 1e-12)
	// below freezing only accumulation
	assert.InDelta(t, 0.3, BalanceRate(-1, 0.3, p), 1e-12)
}

func TestLapse(t *testing.T) {
	assert.InDelta(t, 3.5, Lapse(10, 1000, -0.0065), 1e-9)
	assert.InDelta(t, -18, Lapse(-5, 2000, -0.0065), 1e-9)
}

func TestLapse_AffineInDz(t *testing.T) {
	for _, r := range []float64{-0.0065, -0.006, 0.001} {
		for _, dz := range []float64{-500, 0, 250, 1000} {
			assert.InDelta(t, r*dz, Lapse(2.5, dz, r)-Lapse(2.5, 0, r), 1e-12)
		}
	}
}

func TestLapseSeries(t *testing.T) {
	ts := []float64{-5, 0, 5}
	out := LapseSeries(ts, 1000, -0.006)
	assert.InDeltaSlice(t, []float64{-11, -6, -1}, out, 1e-12)
	assert.Equal(t, []float64{-5, 0, 5}, ts, "input must stay untouched")
}
