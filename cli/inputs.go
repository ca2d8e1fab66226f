package cli

import (
	"glacier/calculator"
	"glacier/conf"
	"glacier/forcing"
	"glacier/model"
	"glacier/raster"
	"glacier/site"
)

// loadForcing returns the configured forcing and its time step in days.
func loadForcing(cfg *conf.Config, s *site.Site) (model.Forcing, float64, error) {
	var (
		f  model.Forcing
		dt float64
	)
	switch cfg.Forcing.Source {
	case conf.SourceCampbell:
		rec, err := forcing.OpenCampbell(cfg.Forcing.Path, s.Year)
		if err != nil {
			return model.Forcing{}, 0, err
		}
		f, dt = rec.Forcing(s.Precipitation), rec.Step
	default:
		f = forcing.Synthetic(forcing.Range(cfg.Forcing.Start, cfg.Forcing.Stop, cfg.Forcing.Step))
		dt = cfg.Forcing.Step
	}
	if cfg.Forcing.Dt > 0 {
		dt = cfg.Forcing.Dt
	}
	return f, dt, calculator.ValidateForcing(f)
}

// target is the surface a command evaluates. raster and grid are set in
// raster mode only.
type target struct {
	domain calculator.Domain
	raster *calculator.Raster
	grid   *raster.Grid
}

func loadTarget(cfg *conf.Config, s *site.Site) (target, error) {
	switch cfg.Domain.Source {
	case conf.SourceRaster:
		dem, err := raster.Open(cfg.Domain.DEM)
		if err != nil {
			return target{}, err
		}
		outline, err := raster.Open(cfg.Domain.Mask)
		if err != nil {
			return target{}, err
		}
		r, err := s.Raster(dem, outline)
		if err != nil {
			return target{}, err
		}
		d, _, err := r.Domain()
		if err != nil {
			return target{}, err
		}
		return target{domain: d, raster: &r, grid: dem}, nil
	case conf.SourceElevations:
		return target{domain: calculator.Elevations(cfg.Domain.Elevations...)}, nil
	default:
		_, d := s.Transect(cfg.Domain.TransectLength, cfg.Domain.TransectSpacing)
		return target{domain: d}, nil
	}
}
