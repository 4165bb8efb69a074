package optimizer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/jpillora/backoff"

	"github.com/backtune/backtune/core"
)

const (
	// HistoryFileName is the per-evaluation table artifact.
	HistoryFileName = "history.csv"
	// BestFileName is the best-result artifact.
	BestFileName = "best.json"

	writeAttempts = 3
)

// fixedColumns lead and trail the parameter columns in history.csv. The
// parameter columns are sorted by name so the layout is stable across runs
// with the same space.
var historyLeadColumns = []string{"eval", "timestamp"}
var historyTailColumns = []string{"fitness", "feasible", "diagnostic"}

// WriteResult writes the frozen result to dir: the full history as an
// ordered CSV table and the best record as JSON. Transient write failures
// are retried with backoff; a final failure is a PersistenceError.
func WriteResult(result *core.OptimizationResult, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &core.PersistenceError{Path: dir, Err: err}
	}

	if err := writeWithRetry(filepath.Join(dir, HistoryFileName), func(f *os.File) error {
		return writeHistory(f, result.History)
	}); err != nil {
		return err
	}

	return writeWithRetry(filepath.Join(dir, BestFileName), func(f *os.File) error {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		_, err = f.Write(data)
		return err
	})
}

func writeWithRetry(path string, write func(*os.File) error) error {
	b := &backoff.Backoff{Min: 100 * time.Millisecond, Max: time.Second}

	var lastErr error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		if lastErr != nil {
			time.Sleep(b.Duration())
		}
		lastErr = func() error {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			return write(f)
		}()
		if lastErr == nil {
			return nil
		}
	}
	return &core.PersistenceError{Path: path, Err: lastErr}
}

// parameterColumns collects the union of parameter names across the
// history, sorted for a stable layout.
func parameterColumns(history []core.EvaluationRecord) []string {
	seen := make(map[string]bool)
	for _, rec := range history {
		for name := range rec.Assignment {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeHistory(f *os.File, history []core.EvaluationRecord) error {
	w := csv.NewWriter(f)
	defer w.Flush()

	params := parameterColumns(history)
	header := append(append(append([]string{}, historyLeadColumns...), params...), historyTailColumns...)
	if err := w.Write(header); err != nil {
		return err
	}

	for i, rec := range history {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(i), rec.At.Format(time.RFC3339Nano))
		for _, name := range params {
			row = append(row, formatValue(rec.Assignment[name]))
		}
		row = append(row,
			strconv.FormatFloat(rec.Fitness, 'g', -1, 64),
			strconv.FormatBool(rec.Feasible),
			rec.Diagnostic,
		)
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatValue(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	case int:
		return strconv.Itoa(n)
	case bool:
		return strconv.FormatBool(n)
	case string:
		return n
	default:
		return fmt.Sprintf("%v", n)
	}
}

// LoadResult reads a result previously written by WriteResult. A non-nil
// space coerces parameter values back to their canonical types so a round
// trip reproduces the in-memory result exactly.
func LoadResult(dir string, space *core.Space) (*core.OptimizationResult, error) {
	data, err := os.ReadFile(filepath.Join(dir, BestFileName))
	if err != nil {
		return nil, &core.PersistenceError{Path: filepath.Join(dir, BestFileName), Err: err}
	}
	var result core.OptimizationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &core.PersistenceError{Path: filepath.Join(dir, BestFileName), Err: err}
	}
	if result.Best != nil && space != nil {
		a, err := space.NewAssignment(result.Best.Assignment)
		if err != nil {
			return nil, err
		}
		result.Best.Assignment = a
	}

	history, err := loadHistory(filepath.Join(dir, HistoryFileName), space)
	if err != nil {
		return nil, err
	}
	result.History = history
	return &result, nil
}

func loadHistory(path string, space *core.Space) ([]core.EvaluationRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.PersistenceError{Path: path, Err: err}
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, &core.PersistenceError{Path: path, Err: err}
	}
	if len(rows) == 0 {
		return nil, &core.PersistenceError{Path: path, Err: fmt.Errorf("missing header row")}
	}

	header := rows[0]
	if len(header) < len(historyLeadColumns)+len(historyTailColumns) {
		return nil, &core.PersistenceError{Path: path, Err: fmt.Errorf("malformed header: %v", header)}
	}
	params := header[len(historyLeadColumns) : len(header)-len(historyTailColumns)]

	history := make([]core.EvaluationRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec, err := parseHistoryRow(row, params, space)
		if err != nil {
			return nil, &core.PersistenceError{Path: path, Err: err}
		}
		history = append(history, rec)
	}
	return history, nil
}

func parseHistoryRow(row, params []string, space *core.Space) (core.EvaluationRecord, error) {
	var rec core.EvaluationRecord
	if len(row) != len(historyLeadColumns)+len(params)+len(historyTailColumns) {
		return rec, fmt.Errorf("malformed row: %v", row)
	}

	at, err := time.Parse(time.RFC3339Nano, row[1])
	if err != nil {
		return rec, err
	}

	raw := make(map[string]any, len(params))
	for i, name := range params {
		raw[name] = row[len(historyLeadColumns)+i]
	}
	assignment := core.Assignment(raw)
	if space != nil {
		assignment, err = space.NewAssignment(raw)
		if err != nil {
			return rec, err
		}
	}

	tail := row[len(row)-len(historyTailColumns):]
	fitness, err := strconv.ParseFloat(tail[0], 64)
	if err != nil {
		return rec, err
	}
	feasible, err := strconv.ParseBool(tail[1])
	if err != nil {
		return rec, err
	}

	return core.EvaluationRecord{
		Assignment: assignment,
		Fitness:    fitness,
		Feasible:   feasible,
		Diagnostic: tail[2],
		At:         at,
	}, nil
}
