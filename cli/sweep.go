package cli

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"glacier/calculator"
	"glacier/report"
)

func (a *app) sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Tabulate the glacier balance against uniform temperature offsets",
		Long: `sweep adds each offset to every station temperature, recomputes the
glacier-wide balance and writes the table dT,massbalance to the output file
or to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.sweep(cmd)
		},
	}
	addOptions(cmd.Flags(), modelOptions)
	cmd.Flags().Float64Slice("offsets", calculator.DefaultOffsets(), "temperature offsets, degrees C")
	cmd.Flags().StringP("output", "o", "", "CSV file, stdout when empty")
	return cmd
}

func (a *app) sweep(cmd *cobra.Command) error {
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
	curve, err := c.Sweep(cmd.Context(), tgt.domain, dt, f, cfg.Sweep.Offsets)
	if err != nil {
		return err
	}
	env.Curve = curve
	env.Finish()

	log.WithFields(log.Fields{
		"runID":   env.RunID,
		"offsets": len(curve),
		"members": env.Members,
		"elapsed": env.Elapsed,
	}).Info("sweep finished")

	if cfg.Sweep.Output == "" {
		return report.WriteCurveCSV(cmd.OutOrStdout(), curve)
	}
	return report.CreateCurveCSV(cfg.Sweep.Output, curve)
}
