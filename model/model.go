package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// Units
// 1. temperature in degrees Celsius
// 2. elevation in meters, lapse rate in degrees per meter
// 3. precipitation in meters water equivalent per unit time, the same unit
//    of time as the integration step dt
// 4. balance in meters water equivalent

// Params are the degree-day model parameters.
type Params struct {
	MeltFactor float64 `json:"melt_factor"` // melt per degree per unit time
	TThreshold float64 `json:"t_threshold"` // accumulation cutoff
	LapseRate  float64 `json:"lapse_rate"`  // usually negative
}

// Validate lists parameter values that are accepted by the model but are
// almost certainly a mistake.
func (p Params) Validate() []string {
	var warnings []string
	names := []string{"melt_factor", "t_threshold", "lapse_rate"}
	for i, v := range []float64{p.MeltFactor, p.TThreshold, p.LapseRate} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			warnings = append(warnings, fmt.Sprintf("%s is not finite", names[i]))
		}
	}
	if p.MeltFactor < 0 {
		warnings = append(warnings, "melt_factor is negative, melt will add mass")
	}
	if p.LapseRate > 0 {
		warnings = append(warnings, "lapse_rate is positive, temperature rises with elevation")
	}
	return warnings
}

// Forcing is the station series. Time is optional metadata.
type Forcing struct {
	Time          []float64 `json:"time,omitempty"`
	Temperature   []float64 `json:"temperature"`
	Precipitation []float64 `json:"precipitation"`
}

func (f Forcing) Len() int {
	return len(f.Temperature)
}

// Sample is one forcing record.
type Sample struct {
	Time          float64 `json:"time"`
	Temperature   float64 `json:"temperature"`
	Precipitation float64 `json:"precipitation"`
}

// CurvePoint is the glacier balance under one uniform temperature offset.
type CurvePoint struct {
	Offset  float64 `json:"dT"`
	Balance float64 `json:"massbalance"`
}

type Curve []CurvePoint

func (c Curve) Offsets() []float64 {
	out := make([]float64, len(c))
	for i, p := range c {
		out[i] = p.Offset
	}
	return out
}

func (c Curve) Balances() []float64 {
	out := make([]float64, len(c))
	for i, p := range c {
		out[i] = p.Balance
	}
	return out
}

// RunRequest carries everything a client has to send for a run or a sweep.
// Nil fields fall back to what the hub already holds.
type RunRequest struct {
	Params     *Params   `json:"params,omitempty"`
	Dt         float64   `json:"dt,omitempty"`
	Elevations []float64 `json:"elevations,omitempty"`
	Weights    []float64 `json:"weights,omitempty"`
	Forcing    *Forcing  `json:"forcing,omitempty"`
	Offsets    []float64 `json:"offsets,omitempty"`

	// Last limits a window run to the newest samples, 0 takes them all
	Last int `json:"last,omitempty"`
}

// Result is the outcome of one aggregation over an elevation list.
type Result struct {
	GlacierBalance float64   `json:"glacier_balance"`
	Field          []float64 `json:"field"`
}

// Msg is a request from a websocket client.
type Msg struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

// Reply is sent back to the client.
type Reply struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content,omitempty"`
}
