package core

import (
	"time"
)

// Dataframe is a read-only, time-indexed OHLCV container shared by all
// concurrent evaluations of a run. The engine never interprets its columns;
// it is handed to evaluators unmodified.
type Dataframe struct {
	Symbol string

	Open   Series[float64]
	High   Series[float64]
	Low    Series[float64]
	Close  Series[float64]
	Volume Series[float64]

	Time []time.Time

	// Metadata holds custom derived series keyed by name.
	Metadata map[string]Series[float64]
}

// Len returns the number of rows.
func (df *Dataframe) Len() int {
	return len(df.Time)
}

// Sample returns a window over the trailing 'positions' rows. The window
// shares backing arrays with the parent; callers must treat it as read-only.
func (df *Dataframe) Sample(positions int) Dataframe {
	start := len(df.Time) - positions
	if start <= 0 {
		return *df
	}

	sample := Dataframe{
		Symbol:   df.Symbol,
		Open:     df.Open.LastValues(positions),
		High:     df.High.LastValues(positions),
		Low:      df.Low.LastValues(positions),
		Close:    df.Close.LastValues(positions),
		Volume:   df.Volume.LastValues(positions),
		Time:     df.Time[start:],
		Metadata: make(map[string]Series[float64], len(df.Metadata)),
	}
	for key := range df.Metadata {
		sample.Metadata[key] = df.Metadata[key].LastValues(positions)
	}
	return sample
}
