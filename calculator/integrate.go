package calculator

import (
	"fmt"

	"glacier/model"
)

// NetBalance integrates the balance rate of one point over the series with a
// left rectangle rule. dt is applied to every sample regardless of the real
// spacing.
func NetBalance(dt float64, ts, ps []float64, params model.Params) (float64, error) {
	if err := checkSeries("net balance", ts, ps); err != nil {
		return 0, err
	}
	total := 0.0
	for i, t := range ts {
		total += BalanceRate(t, ps[i], params) * dt
	}
	return total, nil
}

// CumulativeBalance returns the running net balance: element i covers samples
// 0..i, so the last element equals NetBalance.
func CumulativeBalance(dt float64, ts, ps []float64, params model.Params) ([]float64, error) {
	if err := checkSeries("cumulative balance", ts, ps); err != nil {
		return nil, err
	}
	out := make([]float64, len(ts))
	total := 0.0
	for i := range ts {
		total += BalanceRate(ts[i], ps[i], params) * dt
		out[i] = total
	}
	return out, nil
}

// ValidateForcing checks a forcing record before it is handed to the engine.
func ValidateForcing(f model.Forcing) error {
	if err := checkSeries("forcing", f.Temperature, f.Precipitation); err != nil {
		return err
	}
	if f.Time != nil && len(f.Time) != len(f.Temperature) {
		return &ShapeError{
			Op:   "forcing",
			Want: fmt.Sprintf("%d times", len(f.Temperature)),
			Got:  fmt.Sprintf("%d", len(f.Time)),
			Err:  ErrInputShape,
		}
	}
	if f.Len() == 0 {
		return ErrEmptyForcing
	}
	return nil
}

// netBalanceAt integrates the series lapsed by dz. ts and ps must have equal length.
func netBalanceAt(dt float64, ts, ps []float64, dz float64, params model.Params) float64 {
	total := 0.0
	for i, t := range LapseSeries(ts, dz, params.LapseRate) {
		total += BalanceRate(t, ps[i], params) * dt
	}
	return total
}

func checkSeries(op string, ts, ps []float64) error {
	if len(ts) != len(ps) {
		return &ShapeError{
			Op:   op,
			Want: fmt.Sprintf("%d precipitation samples", len(ts)),
			Got:  fmt.Sprintf("%d", len(ps)),
			Err:  ErrInputShape,
		}
	}
	return nil
}
