// Package forcing builds the temperature and precipitation series that drive
// the mass-balance engine, either synthetically or from logger files.
package forcing

import (
	"math"

	"glacier/model"
)

// SyntheticPrecipitation is the constant precipitation rate of the synthetic
// climate, m w.e. per day.
const SyntheticPrecipitation = 8e-3

// Range returns start, start+step, ... up to but excluding stop.
func Range(start, stop, step float64) []float64 {
	if step <= 0 || stop <= start {
		return nil
	}
	n := int(math.Ceil((stop - start) / step))
	ts := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		t := start + float64(i)*step
		if t >= stop {
			break
		}
		ts = append(ts, t)
	}
	return ts
}

// SyntheticTemperature is a yearly cycle with a daily cycle on top, t in days.
func SyntheticTemperature(t float64) float64 {
	return -10*math.Cos(2*math.Pi/364*t) - 8*math.Cos(2*math.Pi*t) + 5
}

// Synthetic evaluates the synthetic climate at every time in ts.
func Synthetic(ts []float64) model.Forcing {
	f := model.Forcing{
		Time:          append([]float64(nil), ts...),
		Temperature:   make([]float64, len(ts)),
		Precipitation: ConstantPrecipitation(len(ts), SyntheticPrecipitation),
	}
	for i, t := range ts {
		f.Temperature[i] = SyntheticTemperature(t)
	}
	return f
}

func ConstantPrecipitation(n int, rate float64) []float64 {
	if n <= 0 {
		return []float64{}
	}
	ps := make([]float64, n)
	for i := range ps {
		ps[i] = rate
	}
	return ps
}
