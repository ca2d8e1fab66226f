package calculator

import (
	"context"

	"gonum.org/v1/gonum/floats"

	"glacier/model"
)

// DefaultOffsets are the whole degrees -4..4.
func DefaultOffsets() []float64 {
	offsets := make([]float64, 0, 9)
	for d := -4; d <= 4; d++ {
		offsets = append(offsets, float64(d))
	}
	return offsets
}

// Sweep reruns GlacierBalance with every temperature shifted by each offset
// and keeps only the glacier balance. Offsets are evaluated independently.
func Sweep(domain Domain, dt float64, ts, ps []float64, params model.Params, offsets []float64) (model.Curve, error) {
	if err := checkSweep(domain, ts, ps); err != nil {
		return nil, err
	}
	curve := make(model.Curve, len(offsets))
	for k, d := range offsets {
		balance, err := sweepPoint(context.Background(), domain, dt, ts, ps, params, d)
		if err != nil {
			return nil, err
		}
		curve[k] = model.CurvePoint{Offset: d, Balance: balance}
	}
	return curve, nil
}

func sweepPoint(ctx context.Context, domain Domain, dt float64, ts, ps []float64, params model.Params, d float64) (float64, error) {
	shifted := shift(ts, d)
	balance, _, err := aggregate(ctx, nil, domain, dt, shifted, ps, params)
	return balance, err
}

func checkSweep(domain Domain, ts, ps []float64) error {
	if err := checkSeries("sweep", ts, ps); err != nil {
		return err
	}
	return domain.check()
}

// shift copies ts and adds d to every element.
func shift(ts []float64, d float64) []float64 {
	out := make([]float64, len(ts))
	copy(out, ts)
	floats.AddConst(d, out)
	return out
}
