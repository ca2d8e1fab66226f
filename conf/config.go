// Package conf loads the ini configuration shared by every command.
package conf

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"glacier/model"
	"glacier/site"
)

const (
	SourceSynthetic = "synthetic"
	SourceCampbell  = "campbell"

	SourceElevations = "elevations"
	SourceTransect   = "transect"
	SourceRaster     = "raster"
)

type Config struct {
	Model   model.Params
	Site    Site
	Forcing Forcing
	Domain  Domain
	Sweep   Sweep
	Server  Server
	Log     Log

	Workers int
}

type Site struct {
	Name             string
	StationElevation float64
	Precipitation    float64
	Year             int
}

type Forcing struct {
	Source string
	Path   string

	// synthetic time axis, days
	Start, Stop, Step float64

	// Dt overrides the derived time step when positive, days
	Dt float64
}

type Domain struct {
	Source     string
	Elevations []float64

	DEM, Mask string

	TransectLength, TransectSpacing float64

	// FieldOutput receives the balance field as an ascii grid in raster mode
	FieldOutput string

	// HistoryOutput receives the running station balance as CSV
	HistoryOutput string
}

type Sweep struct {
	Offsets []float64
	Output  string
}

type Server struct {
	Addr   string
	Window int
}

type Log struct {
	Level  string
	Format string
}

// Default is the configuration of an empty file.
func Default() *Config {
	cfg, err := parse(ini.Empty())
	if err != nil {
		panic(fmt.Sprintf("conf: invalid defaults: %v", err))
	}
	return cfg
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.WithFields(log.Fields{
			"path": path,
		}).Warn("config file not found, using defaults")
		return Default(), nil
	}
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("conf: %w", err)
	}
	return parse(file)
}

func parse(file *ini.File) (*Config, error) {
	def := model.DefaultParams()

	m := file.Section("model")
	s := file.Section("site")
	f := file.Section("forcing")
	d := file.Section("domain")
	sw := file.Section("sweep")
	srv := file.Section("server")
	lg := file.Section("log")

	base := site.ByName(s.Key("name").MustString("demo"))

	cfg := &Config{
		Model: model.Params{
			MeltFactor: m.Key("melt_factor").MustFloat64(def.MeltFactor),
			TThreshold: m.Key("t_threshold").MustFloat64(def.TThreshold),
			LapseRate:  m.Key("lapse_rate").MustFloat64(def.LapseRate),
		},
		Site: Site{
			Name:             base.Name,
			StationElevation: s.Key("station_elevation").MustFloat64(base.StationElevation),
			Precipitation:    s.Key("precipitation").MustFloat64(base.Precipitation),
			Year:             s.Key("year").MustInt(base.Year),
		},
		Forcing: Forcing{
			Source: f.Key("source").In(SourceSynthetic, []string{SourceSynthetic, SourceCampbell}),
			Path:   f.Key("path").String(),
			Start:  f.Key("start").MustFloat64(0),
			Stop:   f.Key("stop").MustFloat64(365),
			Step:   f.Key("step").MustFloat64(1.24),
			Dt:     f.Key("dt").MustFloat64(0),
		},
		Domain: Domain{
			Source:          d.Key("source").In(SourceTransect, []string{SourceElevations, SourceTransect, SourceRaster}),
			DEM:             d.Key("dem").String(),
			Mask:            d.Key("mask").String(),
			TransectLength:  d.Key("transect_length").MustFloat64(site.TransectLength),
			TransectSpacing: d.Key("transect_spacing").MustFloat64(site.TransectSpacing),
			FieldOutput:     d.Key("field_output").String(),
			HistoryOutput:   d.Key("history_output").String(),
		},
		Sweep: Sweep{
			Output: sw.Key("output").String(),
		},
		Server: Server{
			Addr:   srv.Key("addr").MustString(":8080"),
			Window: srv.Key("window").MustInt(8760),
		},
		Log: Log{
			Level:  lg.Key("level").In("info", []string{"trace", "debug", "info", "warn", "error"}),
			Format: lg.Key("format").In("text", []string{"text", "json"}),
		},
		Workers: file.Section("").Key("workers").MustInt(1),
	}

	var err error
	if d.HasKey("elevations") {
		if cfg.Domain.Elevations, err = floatList(d.Key("elevations")); err != nil {
			return nil, err
		}
	}
	cfg.Sweep.Offsets = []float64{-4, -3, -2, -1, 0, 1, 2, 3, 4}
	if sw.HasKey("offsets") {
		if cfg.Sweep.Offsets, err = floatList(sw.Key("offsets")); err != nil {
			return nil, err
		}
	}

	return cfg, cfg.Validate()
}

func floatList(k *ini.Key) ([]float64, error) {
	vals, err := k.StrictFloat64s(",")
	if err != nil {
		return nil, fmt.Errorf("conf: %s: %w", k.Name(), err)
	}
	return vals, nil
}

// Validate checks the settings that depend on each other.
func (c *Config) Validate() error {
	switch {
	case c.Forcing.Source == SourceCampbell && c.Forcing.Path == "":
		return errors.New("conf: forcing.path is required for campbell forcing")
	case c.Forcing.Source == SourceSynthetic && c.Forcing.Step <= 0:
		return fmt.Errorf("conf: forcing.step must be positive, got %v", c.Forcing.Step)
	case c.Domain.Source == SourceElevations && len(c.Domain.Elevations) == 0:
		return errors.New("conf: domain.elevations is required for an elevation domain")
	case c.Domain.Source == SourceRaster && (c.Domain.DEM == "" || c.Domain.Mask == ""):
		return errors.New("conf: domain.dem and domain.mask are required for a raster domain")
	case c.Server.Window < 1:
		return fmt.Errorf("conf: server.window must be at least 1, got %d", c.Server.Window)
	}
	return nil
}

// NewSite starts from the site named in the configuration and applies the
// settings that differ from it.
func (c *Config) NewSite() *site.Site {
	s := site.ByName(c.Site.Name)
	if c.Site.StationElevation != s.StationElevation {
		s.SetStationElevation(c.Site.StationElevation)
	}
	if c.Site.Precipitation != s.Precipitation {
		s.SetPrecipitation(c.Site.Precipitation)
	}
	if c.Site.Year != s.Year {
		s.SetYear(c.Site.Year)
	}
	return s
}

func (c *Config) Fields() log.Fields {
	return log.Fields{
		"meltFactor":       c.Model.MeltFactor,
		"tThreshold":       c.Model.TThreshold,
		"lapseRate":        c.Model.LapseRate,
		"site":             c.Site.Name,
		"stationElevation": c.Site.StationElevation,
		"forcing":          c.Forcing.Source,
		"domain":           c.Domain.Source,
		"workers":          c.Workers,
	}
}
