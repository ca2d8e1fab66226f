/*
Package calculator is the degree-day mass-balance engine.

A point balance is the left-rectangle sum of melt and accumulation over the
forcing, after the station temperature is lapsed to the point elevation.
The glacier balance is the mean of the point balances over a domain: a list
of elevation offsets, or the masked cells of a DEM, scattered back into a
grid with NaN outside the glacier.

Domain members are spread over a fixed pool of goroutines, sweep offsets
over an errgroup. Results do not depend on the pool size.
*/
package calculator

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"glacier/model"
)

// Calculator evaluates domains with one parameter set on a worker pool. It
// holds no state between calls and is safe for concurrent use.
type Calculator struct {
	params model.Params
	e      *executor
}

func NewCalculator(params model.Params, workers int) *Calculator {
	for _, w := range params.Validate() {
		log.WithField("params", params).Warn(w)
	}
	return &Calculator{
		params: params,
		e:      newExecutor(workers),
	}
}

func (c *Calculator) Params() model.Params {
	return c.params
}

func (c *Calculator) Workers() int {
	return c.e.workers
}

// WithParams returns a calculator sharing c's pool size with other parameters.
func (c *Calculator) WithParams(params model.Params) *Calculator {
	return NewCalculator(params, c.e.workers)
}

// Run computes the glacier balance and the field of an elevation domain.
func (c *Calculator) Run(ctx context.Context, domain Domain, dt float64, f model.Forcing) (model.Result, error) {
	start := time.Now()
	balance, field, err := aggregate(ctx, c.e, domain, dt, f.Temperature, f.Precipitation, c.params)
	if err != nil {
		return model.Result{}, err
	}
	log.WithFields(log.Fields{
		"points":  domain.Len(),
		"samples": f.Len(),
		"balance": balance,
		"cost":    time.Since(start),
	}).Debug("glacier balance computed")
	return model.Result{GlacierBalance: balance, Field: field}, nil
}

// RunRaster computes the glacier balance of the masked cells of r and the
// field in r's shape.
func (c *Calculator) RunRaster(ctx context.Context, r Raster, dt float64, f model.Forcing) (float64, *mat.Dense, error) {
	start := time.Now()
	balance, field, err := aggregateRaster(ctx, c.e, r, dt, f.Temperature, f.Precipitation, c.params)
	if err != nil {
		return 0, nil, err
	}
	rows, cols := r.Dims()
	log.WithFields(log.Fields{
		"rows":    rows,
		"cols":    cols,
		"samples": f.Len(),
		"balance": balance,
		"cost":    time.Since(start),
	}).Debug("raster glacier balance computed")
	return balance, field, nil
}

// Sweep evaluates the offsets concurrently, at most Workers at a time. The
// curve follows the order of offsets. Any error discards the whole curve.
func (c *Calculator) Sweep(ctx context.Context, domain Domain, dt float64, f model.Forcing, offsets []float64) (model.Curve, error) {
	if err := checkSweep(domain, f.Temperature, f.Precipitation); err != nil {
		return nil, err
	}
	start := time.Now()
	curve := make(model.Curve, len(offsets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.e.workers)
	for k, d := range offsets {
		k, d := k, d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			balance, err := sweepPoint(gctx, domain, dt, f.Temperature, f.Precipitation, c.params, d)
			if err != nil {
				return err
			}
			curve[k] = model.CurvePoint{Offset: d, Balance: balance}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"offsets": len(offsets),
		"points":  domain.Len(),
		"cost":    time.Since(start),
	}).Debug("sensitivity sweep computed")
	return curve, nil
}
