package model

// Defaults of the Breithorn setup.
const (
	DefaultMeltFactor = 0.005
	DefaultTThreshold = 4.0
	DefaultLapseRate  = -0.6 / 100

	DefaultStationElevation = 2650.0 // m a.s.l.
	DefaultPrecipitation    = 0.005  // m/d
)

func DefaultParams() Params {
	return Params{
		MeltFactor: DefaultMeltFactor,
		TThreshold: DefaultTThreshold,
		LapseRate:  DefaultLapseRate,
	}
}
