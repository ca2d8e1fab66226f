package calculator

import "glacier/model"

// Melt is the degree-day melt rate. No melt below freezing.
func Melt(t, meltFactor float64) float64 {
	if t >= 0 {
		return meltFactor * t
	}
	return 0
}

// Accumulate is the solid precipitation rate; T == threshold still accumulates.
func Accumulate(t, p, tThreshold float64) float64 {
	if t <= tThreshold {
		return p
	}
	return 0
}

// BalanceRate combines melt and accumulation at one sample. Between 0 and a
// positive threshold both are active.
func BalanceRate(t, p float64, params model.Params) float64 {
	return -Melt(t, params.MeltFactor) + Accumulate(t, p, params.TThreshold)
}

// Lapse moves a station temperature dz meters up (negative dz is down).
func Lapse(t, dz, lapseRate float64) float64 {
	return lapseRate*dz + t
}

// LapseSeries lapses every sample by the same dz into a new slice.
func LapseSeries(ts []float64, dz, lapseRate float64) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = Lapse(t, dz, lapseRate)
	}
	return out
}
