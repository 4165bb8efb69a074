// Package storage provides RunStorage backends for optimization runs: an
// embedded BuntDB store for live progress inspection and a SQL archive for
// cross-run comparison.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/buntdb"

	"github.com/backtune/backtune/core"
)

const recordIndexName = "record_at"

// BuntStorage implements core.RunStorage on an embedded BuntDB database.
// Records are kept under run-scoped keys with a timestamp index so a live
// run can be inspected while it progresses.
type BuntStorage struct {
	db *buntdb.DB
}

// NewBuntFromMemory creates an in-memory run store.
func NewBuntFromMemory() (*BuntStorage, error) {
	return NewBunt(":memory:")
}

// NewBunt creates a file-backed run store.
func NewBunt(sourceFile string) (*BuntStorage, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	if err := db.SetConfig(buntdb.Config{SyncPolicy: buntdb.Never}); err != nil {
		return nil, fmt.Errorf("failed to configure buntdb: %w", err)
	}
	if err := db.CreateIndex(recordIndexName, "run:*:record:*", buntdb.IndexJSON("at")); err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &BuntStorage{db: db}, nil
}

func recordKey(runID string, seq int) string {
	return fmt.Sprintf("run:%s:record:%012d", runID, seq)
}

func resultKey(runID string) string {
	return fmt.Sprintf("run:%s:result", runID)
}

// SaveRecord stores one evaluation record under a run-scoped, sequence
// ordered key.
func (b *BuntStorage) SaveRecord(_ context.Context, runID string, seq int, rec core.EvaluationRecord) error {
	content, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return b.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(recordKey(runID, seq), string(content), nil)
		return err
	})
}

// SaveResult stores the frozen result of a finished run.
func (b *BuntStorage) SaveResult(_ context.Context, runID string, result *core.OptimizationResult) error {
	content, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return b.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(resultKey(runID), string(content), nil)
		return err
	})
}

// LoadResult reads back a stored run: the frozen result plus its full
// history in sequence order.
func (b *BuntStorage) LoadResult(_ context.Context, runID string) (*core.OptimizationResult, error) {
	var result core.OptimizationResult
	var history []core.EvaluationRecord
	prefix := fmt.Sprintf("run:%s:record:", runID)

	err := b.db.View(func(tx *buntdb.Tx) error {
		content, err := tx.Get(resultKey(runID))
		if err != nil {
			return fmt.Errorf("run %s not found: %w", runID, err)
		}
		if err := json.Unmarshal([]byte(content), &result); err != nil {
			return fmt.Errorf("failed to unmarshal result: %w", err)
		}

		return tx.AscendKeys(prefix+"*", func(key, value string) bool {
			if !strings.HasPrefix(key, prefix) {
				return true
			}
			var rec core.EvaluationRecord
			if err := json.Unmarshal([]byte(value), &rec); err != nil {
				return true
			}
			history = append(history, rec)
			return true
		})
	})
	if err != nil {
		return nil, err
	}

	result.History = history
	return &result, nil
}

// Close releases the underlying database.
func (b *BuntStorage) Close() error {
	return b.db.Close()
}
