package core

import (
	"encoding/json"
	"strconv"
	"time"
)

// ResultSchemaVersion tags persisted results so downstream consumers can
// detect format changes across releases.
const ResultSchemaVersion = 1

// EvaluationRecord is the outcome of scoring one assignment. Infeasible
// records (evaluator fault, timeout, non-finite fitness) stay in the history
// for auditability but never win best-candidate selection.
type EvaluationRecord struct {
	Assignment Assignment
	Fitness    float64
	Feasible   bool
	Diagnostic string
	At         time.Time
}

// evaluationRecordJSON carries the fitness as a string so that -Inf and NaN
// survive a JSON round trip, which encoding/json rejects as numbers.
type evaluationRecordJSON struct {
	Assignment Assignment `json:"assignment"`
	Fitness    string     `json:"fitness"`
	Feasible   bool       `json:"feasible"`
	Diagnostic string     `json:"diagnostic,omitempty"`
	At         time.Time  `json:"at"`
}

func (r EvaluationRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(evaluationRecordJSON{
		Assignment: r.Assignment,
		Fitness:    strconv.FormatFloat(r.Fitness, 'g', -1, 64),
		Feasible:   r.Feasible,
		Diagnostic: r.Diagnostic,
		At:         r.At,
	})
}

func (r *EvaluationRecord) UnmarshalJSON(data []byte) error {
	var raw evaluationRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fitness, err := strconv.ParseFloat(raw.Fitness, 64)
	if err != nil {
		return err
	}
	*r = EvaluationRecord{
		Assignment: raw.Assignment,
		Fitness:    fitness,
		Feasible:   raw.Feasible,
		Diagnostic: raw.Diagnostic,
		At:         raw.At,
	}
	return nil
}

// OptimizationResult is the frozen outcome of one run: the best feasible
// record, the full history in completion order, and run accounting.
type OptimizationResult struct {
	SchemaVersion int                `json:"schema_version"`
	Engine        string             `json:"engine"`
	Best          *EvaluationRecord  `json:"best"`
	History       []EvaluationRecord `json:"-"`
	Evaluations   int                `json:"evaluations"`
	Elapsed       time.Duration      `json:"elapsed"`
}

// BestParameters returns the winning assignment, nil when every evaluation
// was infeasible.
func (r *OptimizationResult) BestParameters() Assignment {
	if r.Best == nil {
		return nil
	}
	return r.Best.Assignment
}
