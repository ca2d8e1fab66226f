package calculator

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"glacier/model"
)

// GlacierBalance lapses the forcing to every elevation of the domain,
// integrates each point, and returns the mean over the domain together with
// the per-point field in domain order. The mean is not area-weighted.
func GlacierBalance(domain Domain, dt float64, ts, ps []float64, params model.Params) (float64, []float64, error) {
	return aggregate(context.Background(), nil, domain, dt, ts, ps, params)
}

// GlacierBalanceRaster runs GlacierBalance on the masked cells of r. The field
// keeps r's shape, cells outside the mask hold NoData.
func GlacierBalanceRaster(r Raster, dt float64, ts, ps []float64, params model.Params) (float64, *mat.Dense, error) {
	return aggregateRaster(context.Background(), nil, r, dt, ts, ps, params)
}

func aggregateRaster(ctx context.Context, e *executor, r Raster, dt float64, ts, ps []float64, params model.Params) (float64, *mat.Dense, error) {
	domain, cells, err := r.Domain()
	if err != nil {
		return 0, nil, err
	}
	balance, field, err := aggregate(ctx, e, domain, dt, ts, ps, params)
	if err != nil {
		return 0, nil, err
	}
	return balance, r.Scatter(field, cells), nil
}

// aggregate evaluates every domain member, on e's workers when e is not nil.
func aggregate(ctx context.Context, e *executor, domain Domain, dt float64, ts, ps []float64, params model.Params) (float64, []float64, error) {
	if err := checkSeries("glacier balance", ts, ps); err != nil {
		return 0, nil, err
	}
	if err := domain.check(); err != nil {
		return 0, nil, err
	}

	field := make([]float64, domain.Len())
	run := func(t task) {
		for i := t.start; i < t.end; i++ {
			field[i] = netBalanceAt(dt, ts, ps, domain.Elevations[i], params)
		}
	}
	if e == nil {
		run(task{start: 0, end: len(field)})
	} else if _, err := e.dispatch(ctx, len(field), run); err != nil {
		return 0, nil, err
	}

	balance, err := mean(field, domain.Weights)
	if err != nil {
		return 0, nil, err
	}
	return balance, field, nil
}

func mean(field, weights []float64) (float64, error) {
	if weights != nil && floats.Sum(weights) == 0 {
		return 0, fmt.Errorf("%w: weights sum to zero", ErrEmptyDomain)
	}
	return stat.Mean(field, weights), nil
}
