package cli

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"glacier/calculator"
	"glacier/model"
	"glacier/raster"
	"glacier/report"
)

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute the glacier-wide and point mass balance",
		Long: `run computes the net balance of every point of the domain and their
mean, and prints a run envelope as JSON. With field_output set the point
balances are written as an ascii grid (raster domain) or a CSV table. With
history set the running balance at the station is written as t,balance.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd)
		},
	}
	addOptions(cmd.Flags(), modelOptions)
	cmd.Flags().String("field-output", "", "file receiving the point balances")
	cmd.Flags().String("history", "", "CSV file receiving the running balance at the station")
	return cmd
}

func (a *app) run(cmd *cobra.Command) error {
	cfg := a.cfg
	s := cfg.NewSite()
	f, dt, err := loadForcing(cfg, s)
	if err != nil {
		return err
	}
	tgt, err := loadTarget(cfg, s)
	if err != nil {
		return err
	}

	c := calculator.NewCalculator(cfg.Model, cfg.Workers)
	env := report.NewEnvelope(s.Name, cfg.Model, dt, f.Len(), tgt.domain.Len())

	if tgt.raster != nil {
		balance, field, err := c.RunRaster(cmd.Context(), *tgt.raster, dt, f)
		if err != nil {
			return err
		}
		env.GlacierBalance = balance
		if cfg.Domain.FieldOutput != "" {
			if err := raster.Create(cfg.Domain.FieldOutput, tgt.grid.Like(field)); err != nil {
				return err
			}
		}
	} else {
		res, err := c.Run(cmd.Context(), tgt.domain, dt, f)
		if err != nil {
			return err
		}
		env.GlacierBalance = res.GlacierBalance
		if cfg.Domain.FieldOutput != "" {
			if err := writeFieldCSV(cfg.Domain.FieldOutput, tgt.domain.Elevations, res.Field); err != nil {
				return err
			}
		}
	}
	env.Finish()

	if cfg.Domain.HistoryOutput != "" {
		if err := writeHistoryCSV(cfg.Domain.HistoryOutput, dt, f, cfg.Model); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{
		"runID":   env.RunID,
		"balance": env.GlacierBalance,
		"members": env.Members,
		"samples": env.Samples,
		"elapsed": env.Elapsed,
	}).Info("run finished")
	return env.WriteJSON(cmd.OutOrStdout())
}

// writeHistoryCSV writes the cumulative balance at the station elevation.
// Samples without a time axis are placed every dt.
func writeHistoryCSV(path string, dt float64, f model.Forcing, params model.Params) error {
	history, err := calculator.CumulativeBalance(dt, f.Temperature, f.Precipitation, params)
	if err != nil {
		return err
	}
	times := f.Time
	if times == nil {
		times = make([]float64, len(history))
		for i := range times {
			times[i] = float64(i) * dt
		}
	}
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteHistoryCSV(fp, times, history); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}

func writeFieldCSV(path string, elevations, field []float64) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteFieldCSV(fp, elevations, field); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}
