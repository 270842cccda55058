package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/makeasinger/samples/internal/model"
)

// Summarize counts outcomes and collects one entry per failed file
func Summarize(results []model.IngestionResult, elapsed time.Duration) model.BatchSummary {
	s := model.BatchSummary{Total: len(results), Elapsed: elapsed}
	for _, r := range results {
		if r.Success {
			s.Successful++
			continue
		}
		s.Failed++
		if s.ByKind == nil {
			s.ByKind = make(map[string]int)
		}
		entry := model.FailureEntry{Filename: r.Filename, Error: "unknown error"}
		if r.Error != nil {
			entry.Kind = r.Error.Kind
			entry.Stage = r.Error.Stage
			entry.Error = r.Error.Err.Error()
		}
		s.ByKind[string(entry.Kind)]++
		s.Failures = append(s.Failures, entry)
	}
	return s
}

// WriteFailureLog writes failures as a JSON array. Nothing is written when
// there are no failures.
func WriteFailureLog(path string, failures []model.FailureEntry) error {
	if len(failures) == 0 || path == "" {
		return nil
	}
	data, err := json.MarshalIndent(failures, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create failure log directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write failure log: %w", err)
	}
	return nil
}
