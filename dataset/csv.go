// Package dataset loads time-indexed OHLCV price series from CSV files into
// a read-only Dataframe. The engine never interprets the data; it is handed
// to evaluators unmodified.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/backtune/backtune/core"
)

// ErrEmptyDataset is returned when a CSV file holds no data rows.
var ErrEmptyDataset = errors.New("dataset holds no rows")

// defaultHeaderMap is the column layout assumed for headerless files.
var defaultHeaderMap = map[string]int{
	"time": 0, "open": 1, "close": 2, "low": 3, "high": 4, "volume": 5,
}

var requiredColumns = []string{"time", "open", "close", "low", "high", "volume"}

// timeLayouts are tried in order when the time column is not a unix epoch.
var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// Load reads an OHLCV CSV file into a Dataframe. Files may carry a header
// row naming the columns; headerless files are assumed to follow the
// default layout time,open,close,low,high,volume. Columns beyond the
// required six become metadata series keyed by header name.
func Load(path, symbol string) (*core.Dataframe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}

	headerMap, extra, hasHeader := parseHeader(rows[0])
	if hasHeader {
		rows = rows[1:]
	}
	if missing, ok := lo.Find(requiredColumns, func(name string) bool {
		_, found := headerMap[name]
		return !found
	}); ok {
		return nil, fmt.Errorf("dataset %s: missing column %q", path, missing)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}

	df := &core.Dataframe{
		Symbol:   symbol,
		Metadata: make(map[string]core.Series[float64], len(extra)),
	}

	for i, row := range rows {
		if err := appendRow(df, row, headerMap, extra); err != nil {
			return nil, fmt.Errorf("dataset %s: row %d: %w", path, i+1, err)
		}
	}
	return df, nil
}

// parseHeader detects an optional header row. A first cell that parses as a
// number means the file is headerless and the default layout applies.
func parseHeader(cells []string) (headerMap map[string]int, extra []string, hasHeader bool) {
	if _, err := strconv.ParseFloat(cells[0], 64); err == nil {
		return defaultHeaderMap, nil, false
	}

	headerMap = make(map[string]int, len(cells))
	for index, name := range cells {
		headerMap[name] = index
		if !lo.Contains(requiredColumns, name) {
			extra = append(extra, name)
		}
	}
	return headerMap, extra, true
}

func appendRow(df *core.Dataframe, row []string, headerMap map[string]int, extra []string) error {
	at, err := parseTime(row[headerMap["time"]])
	if err != nil {
		return err
	}
	df.Time = append(df.Time, at)

	columns := []struct {
		name   string
		series *core.Series[float64]
	}{
		{"open", &df.Open},
		{"close", &df.Close},
		{"low", &df.Low},
		{"high", &df.High},
		{"volume", &df.Volume},
	}
	for _, col := range columns {
		v, err := strconv.ParseFloat(row[headerMap[col.name]], 64)
		if err != nil {
			return fmt.Errorf("column %q: %w", col.name, err)
		}
		*col.series = append(*col.series, v)
	}

	for _, name := range extra {
		v, err := strconv.ParseFloat(row[headerMap[name]], 64)
		if err != nil {
			return fmt.Errorf("column %q: %w", name, err)
		}
		df.Metadata[name] = append(df.Metadata[name], v)
	}
	return nil
}

// parseTime accepts unix epoch seconds or one of the known layouts.
func parseTime(cell string) (time.Time, error) {
	if epoch, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return time.Unix(epoch, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", cell)
}
