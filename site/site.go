// Package site describes where the model runs: the weather station the
// forcing was measured at and the glacier surface the balance is evaluated on.
package site

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"glacier/calculator"
	"glacier/model"
	"glacier/raster"
)

// Demo transect: a 5 km glacier rising one metre every five, surface
// elevation x/5 + TransectBase at distance x from the terminus.
const (
	TransectLength  = 5000.0
	TransectSpacing = 500.0
	TransectBase    = 1400.0

	DemoStationElevation = 1500.0
)

type Site struct {
	Name string

	// metres above sea level
	StationElevation float64

	// constant precipitation rate used when the record has none, m w.e./day
	Precipitation float64

	// logger year expected in the weather record
	Year int
}

// Breithorn is the measured site: station at 2650 m, 2007 logger record.
func Breithorn() *Site {
	return &Site{
		Name:             "breithorn",
		StationElevation: model.DefaultStationElevation,
		Precipitation:    model.DefaultPrecipitation,
		Year:             2007,
	}
}

// Demo is the synthetic transect site.
func Demo() *Site {
	return &Site{
		Name:             "demo",
		StationElevation: DemoStationElevation,
		Precipitation:    model.DefaultPrecipitation,
		Year:             2007,
	}
}

// ByName returns the known site called name. Other names start from the demo
// site under their own name.
func ByName(name string) *Site {
	switch name {
	case "breithorn":
		return Breithorn()
	case "", "demo":
		return Demo()
	}
	s := Demo()
	s.Name = name
	return s
}

func (s *Site) SetStationElevation(z float64) {
	s.StationElevation = z
	log.WithFields(log.Fields{
		"site":             s.Name,
		"stationElevation": z,
	}).Info("station elevation set")
}

func (s *Site) SetPrecipitation(p float64) {
	s.Precipitation = p
	log.WithFields(log.Fields{
		"site":          s.Name,
		"precipitation": p,
	}).Info("precipitation set")
}

func (s *Site) SetYear(year int) {
	s.Year = year
	log.WithFields(log.Fields{
		"site": s.Name,
		"year": year,
	}).Info("logger year set")
}

// Elevations returns a domain of absolute elevations relative to the station.
func (s *Site) Elevations(zs ...float64) calculator.Domain {
	return calculator.Offsets(zs, s.StationElevation)
}

// Transect samples the demo glacier every spacing metres over length.
func (s *Site) Transect(length, spacing float64) (xs []float64, d calculator.Domain) {
	for x := 0.0; x < length; x += spacing {
		xs = append(xs, x)
	}
	zs := make([]float64, len(xs))
	for i, x := range xs {
		zs[i] = x/5 + TransectBase
	}
	return xs, s.Elevations(zs...)
}

// Raster pairs a DEM with a glacier outline grid, cells equal to 1 belong
// to the glacier.
func (s *Site) Raster(dem, outline *raster.Grid) (calculator.Raster, error) {
	if dem.NRows != outline.NRows || dem.NCols != outline.NCols {
		return calculator.Raster{}, &calculator.ShapeError{
			Op:   "site.Raster",
			Want: fmt.Sprintf("%dx%d", dem.NRows, dem.NCols),
			Got:  fmt.Sprintf("%dx%d", outline.NRows, outline.NCols),
			Err:  calculator.ErrShapeMismatch,
		}
	}
	if dem.CellSize != outline.CellSize || dem.XLL != outline.XLL || dem.YLL != outline.YLL {
		log.WithFields(log.Fields{
			"site":         s.Name,
			"demCellSize":  dem.CellSize,
			"maskCellSize": outline.CellSize,
		}).Warn("dem and outline georeference differ, assuming co-registered grids")
	}
	return calculator.Raster{
		Elevation: dem.Data,
		Mask:      raster.Mask(outline),
		Reference: s.StationElevation,
	}, nil
}
