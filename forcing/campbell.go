package forcing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"glacier/model"
)

// Campbell logger columns: id, year, day of year, HHMM, rel. humidity,
// air temperature, precipitation, battery voltage, internal temperature.
const (
	colYear = 1
	colDay  = 2
	colHHMM = 3
	colTemp = 5

	minColumns = colTemp + 1
)

var (
	ErrWrongYear = errors.New("forcing: record from unexpected year")
	ErrTooShort  = errors.New("forcing: need at least two samples to derive the time step")
)

// Record is a temperature series read from a logger file.
type Record struct {
	Time        []time.Time
	Temperature []float64

	// Step between consecutive samples, in days.
	Step float64
}

func (r Record) Len() int {
	return len(r.Temperature)
}

// Forcing converts the record to model form. Time is expressed in days
// since the first sample, precipitation is the constant rate.
func (r Record) Forcing(precipitation float64) model.Forcing {
	f := model.Forcing{
		Time:          make([]float64, len(r.Time)),
		Temperature:   append([]float64(nil), r.Temperature...),
		Precipitation: ConstantPrecipitation(len(r.Temperature), precipitation),
	}
	for i, t := range r.Time {
		f.Time[i] = t.Sub(r.Time[0]).Hours() / 24
	}
	return f
}

// CampbellTime parses the logger timestamp (year, day of year, HHMM).
func CampbellTime(year, day, hhmm int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, day-1).
		Add(time.Duration(hhmm/100)*time.Hour + time.Duration(hhmm%100)*time.Minute)
}

// ReadCampbell reads a half-hourly Campbell logger file and keeps every other
// row, giving an hourly series. Rows from a year other than year are rejected.
func ReadCampbell(r io.Reader, year int) (Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var rec Record
	for line := 0; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Record{}, fmt.Errorf("forcing: campbell: %w", err)
		}
		if line%2 == 1 {
			continue
		}
		if len(row) < minColumns {
			return Record{}, fmt.Errorf("forcing: campbell line %d: %d columns, want at least %d", line+1, len(row), minColumns)
		}

		ints := make([]int, 3)
		for k, col := range []int{colYear, colDay, colHHMM} {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
			if err != nil {
				return Record{}, fmt.Errorf("forcing: campbell line %d column %d: %w", line+1, col+1, err)
			}
			ints[k] = int(v)
		}
		if ints[0] != year {
			return Record{}, fmt.Errorf("%w: line %d has %d, want %d", ErrWrongYear, line+1, ints[0], year)
		}
		temp, err := strconv.ParseFloat(strings.TrimSpace(row[colTemp]), 64)
		if err != nil {
			return Record{}, fmt.Errorf("forcing: campbell line %d column %d: %w", line+1, colTemp+1, err)
		}

		rec.Time = append(rec.Time, CampbellTime(ints[0], ints[1], ints[2]))
		rec.Temperature = append(rec.Temperature, temp)
	}

	if rec.Len() < 2 {
		return Record{}, ErrTooShort
	}
	rec.Step = rec.Time[1].Sub(rec.Time[0]).Hours() / 24
	return rec, nil
}

// OpenCampbell reads a Campbell logger file from disk.
func OpenCampbell(path string, year int) (Record, error) {
	fp, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer fp.Close()

	rec, err := ReadCampbell(fp, year)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	log.WithFields(log.Fields{
		"path":    path,
		"samples": rec.Len(),
		"step":    rec.Step,
		"first":   rec.Time[0],
	}).Info("weather record loaded")
	return rec, nil
}
