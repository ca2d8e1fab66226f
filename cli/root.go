// Package cli is the glacier command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"glacier/conf"
)

// Version is set at build time with -ldflags "-X glacier/cli.Version=...".
var Version = "dev"

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
}

// app carries the configuration from the root's pre-run to the subcommands.
type app struct {
	cfg *conf.Config
}

var (
	rootOptions = []option{
		{name: "config", shorthand: "c", usage: "ini configuration file", defaultVal: ""},
		{name: "log-level", usage: "trace, debug, info, warn or error", defaultVal: "info"},
		{name: "log-format", usage: "text or json", defaultVal: "text"},
		{name: "workers", shorthand: "w", usage: "worker goroutines for domain members and sweep offsets", defaultVal: 1},
	}

	modelOptions = []option{
		{name: "melt-factor", usage: "melt per degree above zero per unit time, m w.e.", defaultVal: 0.0},
		{name: "t-threshold", usage: "temperature at or below which precipitation accumulates, degrees C", defaultVal: 0.0},
		{name: "lapse-rate", usage: "temperature change per metre of elevation, degrees C/m", defaultVal: 0.0},
		{name: "station-elevation", usage: "weather station elevation, m", defaultVal: 0.0},
		{name: "forcing", usage: "forcing source: synthetic or campbell", defaultVal: ""},
		{name: "weather", usage: "campbell logger file", defaultVal: ""},
		{name: "dt", usage: "time step in days, overrides the step of the forcing", defaultVal: 0.0},
		{name: "domain", usage: "domain source: elevations, transect or raster", defaultVal: ""},
		{name: "elevations", usage: "elevation offsets from the station, m", defaultVal: []float64{}},
		{name: "dem", usage: "elevation grid, ESRI ascii", defaultVal: ""},
		{name: "mask", usage: "glacier outline grid, ESRI ascii, 1 on the glacier", defaultVal: ""},
	}
)

func addOptions(set *pflag.FlagSet, options []option) {
	for _, o := range options {
		switch v := o.defaultVal.(type) {
		case string:
			set.StringP(o.name, o.shorthand, v, o.usage)
		case int:
			set.IntP(o.name, o.shorthand, v, o.usage)
		case float64:
			set.Float64P(o.name, o.shorthand, v, o.usage)
		case []float64:
			set.Float64SliceP(o.name, o.shorthand, v, o.usage)
		default:
			panic(fmt.Sprintf("cli: option %s has unsupported type %T", o.name, v))
		}
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "glacier",
		Short: "Temperature-index glacier mass balance",
		Long: `glacier computes the surface mass balance of a glacier from station
temperature and precipitation with a degree-day model, lapsing the station
temperature to every point of the glacier surface.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.Flags())
		},
	}
	addOptions(root.PersistentFlags(), rootOptions)

	root.AddCommand(
		a.runCmd(),
		a.sweepCmd(),
		a.serveCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) load(flags *pflag.FlagSet) error {
	path, err := flags.GetString("config")
	if err != nil {
		return err
	}
	cfg, err := conf.Load(path)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, flags); err != nil {
		return err
	}
	if err := setupLogging(cfg.Log); err != nil {
		return err
	}
	a.cfg = cfg
	log.WithFields(cfg.Fields()).Debug("configuration loaded")
	return nil
}

// applyFlags overrides configuration values with the flags set on the
// command line.
func applyFlags(cfg *conf.Config, flags *pflag.FlagSet) error {
	var err error
	set := func(name string, fn func() error) {
		if err != nil || flags.Lookup(name) == nil || !flags.Changed(name) {
			return
		}
		err = fn()
	}

	set("log-level", func() (e error) { cfg.Log.Level, e = flags.GetString("log-level"); return })
	set("log-format", func() (e error) { cfg.Log.Format, e = flags.GetString("log-format"); return })
	set("workers", func() (e error) { cfg.Workers, e = flags.GetInt("workers"); return })

	set("melt-factor", func() (e error) { cfg.Model.MeltFactor, e = flags.GetFloat64("melt-factor"); return })
	set("t-threshold", func() (e error) { cfg.Model.TThreshold, e = flags.GetFloat64("t-threshold"); return })
	set("lapse-rate", func() (e error) { cfg.Model.LapseRate, e = flags.GetFloat64("lapse-rate"); return })
	set("station-elevation", func() (e error) {
		cfg.Site.StationElevation, e = flags.GetFloat64("station-elevation")
		return
	})
	set("forcing", func() (e error) { cfg.Forcing.Source, e = flags.GetString("forcing"); return })
	set("weather", func() (e error) { cfg.Forcing.Path, e = flags.GetString("weather"); return })
	set("dt", func() (e error) { cfg.Forcing.Dt, e = flags.GetFloat64("dt"); return })
	set("domain", func() (e error) { cfg.Domain.Source, e = flags.GetString("domain"); return })
	set("elevations", func() (e error) { cfg.Domain.Elevations, e = flags.GetFloat64Slice("elevations"); return })
	set("dem", func() (e error) { cfg.Domain.DEM, e = flags.GetString("dem"); return })
	set("mask", func() (e error) { cfg.Domain.Mask, e = flags.GetString("mask"); return })
	set("field-output", func() (e error) { cfg.Domain.FieldOutput, e = flags.GetString("field-output"); return })
	set("history", func() (e error) { cfg.Domain.HistoryOutput, e = flags.GetString("history"); return })

	set("offsets", func() (e error) { cfg.Sweep.Offsets, e = flags.GetFloat64Slice("offsets"); return })
	set("output", func() (e error) { cfg.Sweep.Output, e = flags.GetString("output"); return })

	set("addr", func() (e error) { cfg.Server.Addr, e = flags.GetString("addr"); return })
	set("window", func() (e error) { cfg.Server.Window, e = flags.GetInt("window"); return })

	if err != nil {
		return err
	}
	switch cfg.Forcing.Source {
	case conf.SourceSynthetic, conf.SourceCampbell:
	default:
		return fmt.Errorf("cli: unknown forcing source %q", cfg.Forcing.Source)
	}
	switch cfg.Domain.Source {
	case conf.SourceElevations, conf.SourceTransect, conf.SourceRaster:
	default:
		return fmt.Errorf("cli: unknown domain source %q", cfg.Domain.Source)
	}
	return cfg.Validate()
}

func setupLogging(l conf.Log) error {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	switch l.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("cli: unknown log format %q", l.Format)
	}
	return nil
}

// Execute runs the command tree until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("glacier failed")
		stop()
		os.Exit(1)
	}
}
