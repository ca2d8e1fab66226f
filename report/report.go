// Package report writes model results: the sensitivity table, the balance
// field of an elevation domain and the run envelope that identifies a run.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"glacier/model"
)

// Envelope identifies one model run and carries its scalar outputs.
type Envelope struct {
	RunID      string    `json:"run_id"`
	ComputedAt time.Time `json:"computed_at"`

	Site    string       `json:"site"`
	Params  model.Params `json:"params"`
	Dt      float64      `json:"dt"`
	Samples int          `json:"samples"`
	Members int          `json:"members"`

	GlacierBalance float64     `json:"glacier_balance"`
	Curve          model.Curve `json:"curve,omitempty"`

	// Elapsed is the engine time, milliseconds.
	Elapsed int64 `json:"elapsed_ms"`
}

func NewEnvelope(site string, params model.Params, dt float64, samples, members int) *Envelope {
	return &Envelope{
		RunID:      uuid.NewString(),
		ComputedAt: clock.Now().UTC(),
		Site:       site,
		Params:     params,
		Dt:         dt,
		Samples:    samples,
		Members:    members,
	}
}

// Finish records the time elapsed since the envelope was created.
func (e *Envelope) Finish() {
	e.Elapsed = clock.Since(e.ComputedAt).Milliseconds()
}

func (e *Envelope) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCurveCSV writes the sensitivity table with header dT,massbalance.
func WriteCurveCSV(w io.Writer, curve model.Curve) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"dT", "massbalance"}); err != nil {
		return err
	}
	for _, pt := range curve {
		if err := cw.Write([]string{formatFloat(pt.Offset), formatFloat(pt.Balance)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFieldCSV writes the point balance of every domain member next to its
// elevation offset.
func WriteFieldCSV(w io.Writer, elevations, field []float64) error {
	if len(elevations) != len(field) {
		return fmt.Errorf("report: %d elevations, %d field values", len(elevations), len(field))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"dz", "massbalance"}); err != nil {
		return err
	}
	for i, z := range elevations {
		if err := cw.Write([]string{formatFloat(z), formatFloat(field[i])}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHistoryCSV writes the running balance after each sample with header
// t,balance.
func WriteHistoryCSV(w io.Writer, times, balances []float64) error {
	if len(times) != len(balances) {
		return fmt.Errorf("report: %d times, %d balances", len(times), len(balances))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"t", "balance"}); err != nil {
		return err
	}
	for i, t := range times {
		if err := cw.Write([]string{formatFloat(t), formatFloat(balances[i])}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CreateCurveCSV writes the sensitivity table to path.
func CreateCurveCSV(path string, curve model.Curve) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCurveCSV(fp, curve); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}
