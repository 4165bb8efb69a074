package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/backtune/backtune/core"
)

// SQLStorage implements core.RunStorage on a SQL database via GORM. It is
// meant as a durable archive of finished runs for comparison across runs.
type SQLStorage struct {
	db *gorm.DB
}

// SQLConfig holds connection pool settings.
type SQLConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultSQLConfig returns sensible pool defaults.
func DefaultSQLConfig() SQLConfig {
	return SQLConfig{
		MaxIdleConns:    5,
		MaxOpenConns:    10,
		ConnMaxLifetime: time.Hour,
	}
}

// runModel is one archived run.
type runModel struct {
	ID          uint   `gorm:"primaryKey"`
	RunID       string `gorm:"uniqueIndex"`
	Engine      string
	Evaluations int
	ElapsedNs   int64
	BestJSON    string
	CreatedAt   time.Time
}

func (runModel) TableName() string { return "runs" }

// evaluationModel is one archived evaluation record.
type evaluationModel struct {
	ID             uint   `gorm:"primaryKey"`
	RunID          string `gorm:"index"`
	Seq            int
	AssignmentJSON string
	Fitness        string
	Feasible       bool
	Diagnostic     string
	At             time.Time
}

func (evaluationModel) TableName() string { return "evaluations" }

// NewSQLFromSQLite opens (or creates) a SQLite-backed run archive.
func NewSQLFromSQLite(dbPath string, config SQLConfig, opts ...gorm.Option) (*SQLStorage, error) {
	return newSQL(sqlite.Open(dbPath), config, opts...)
}

func newSQL(dialect gorm.Dialector, config SQLConfig, opts ...gorm.Option) (*SQLStorage, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	if err := db.AutoMigrate(&runModel{}, &evaluationModel{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLStorage{db: db}, nil
}

// SaveRecord archives one evaluation record.
func (s *SQLStorage) SaveRecord(ctx context.Context, runID string, seq int, rec core.EvaluationRecord) error {
	assignment, err := json.Marshal(rec.Assignment)
	if err != nil {
		return fmt.Errorf("failed to marshal assignment: %w", err)
	}
	model := evaluationModel{
		RunID:          runID,
		Seq:            seq,
		AssignmentJSON: string(assignment),
		Fitness:        formatFitness(rec.Fitness),
		Feasible:       rec.Feasible,
		Diagnostic:     rec.Diagnostic,
		At:             rec.At,
	}
	if result := s.db.WithContext(ctx).Create(&model); result.Error != nil {
		return fmt.Errorf("failed to save record: %w", result.Error)
	}
	return nil
}

// SaveResult archives the frozen result of a finished run.
func (s *SQLStorage) SaveResult(ctx context.Context, runID string, result *core.OptimizationResult) error {
	best := ""
	if result.Best != nil {
		data, err := json.Marshal(result.Best)
		if err != nil {
			return fmt.Errorf("failed to marshal best record: %w", err)
		}
		best = string(data)
	}
	model := runModel{
		RunID:       runID,
		Engine:      result.Engine,
		Evaluations: result.Evaluations,
		ElapsedNs:   int64(result.Elapsed),
		BestJSON:    best,
	}
	if res := s.db.WithContext(ctx).Create(&model); res.Error != nil {
		return fmt.Errorf("failed to save run: %w", res.Error)
	}
	return nil
}

// LoadResult reads back an archived run with its history in sequence order.
func (s *SQLStorage) LoadResult(ctx context.Context, runID string) (*core.OptimizationResult, error) {
	var run runModel
	if res := s.db.WithContext(ctx).Where("run_id = ?", runID).First(&run); res.Error != nil {
		return nil, fmt.Errorf("run %s not found: %w", runID, res.Error)
	}

	result := &core.OptimizationResult{
		SchemaVersion: core.ResultSchemaVersion,
		Engine:        run.Engine,
		Evaluations:   run.Evaluations,
		Elapsed:       time.Duration(run.ElapsedNs),
	}
	if run.BestJSON != "" {
		var best core.EvaluationRecord
		if err := json.Unmarshal([]byte(run.BestJSON), &best); err != nil {
			return nil, fmt.Errorf("failed to unmarshal best record: %w", err)
		}
		result.Best = &best
	}

	var models []evaluationModel
	if res := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("seq").Find(&models); res.Error != nil {
		return nil, fmt.Errorf("failed to load history: %w", res.Error)
	}
	history := make([]core.EvaluationRecord, 0, len(models))
	for _, m := range models {
		var assignment core.Assignment
		if err := json.Unmarshal([]byte(m.AssignmentJSON), &assignment); err != nil {
			return nil, fmt.Errorf("failed to unmarshal assignment: %w", err)
		}
		fitness, err := parseFitness(m.Fitness)
		if err != nil {
			return nil, err
		}
		history = append(history, core.EvaluationRecord{
			Assignment: assignment,
			Fitness:    fitness,
			Feasible:   m.Feasible,
			Diagnostic: m.Diagnostic,
			At:         m.At,
		})
	}
	result.History = history
	return result, nil
}

// Close releases the underlying connection pool.
func (s *SQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
