// Package telemetry persists operational records as Parquet files for
// offline analysis: scan statistics from the detection engine and
// error-level log records.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/storyweave/continuity/pkg/engine"
)

// ScanRecord is the Parquet schema for one consistency scan.
type ScanRecord struct {
	ID                  string    `parquet:"id"`
	StoryID             string    `parquet:"story_id"`
	TotalContradictions int       `parquet:"total_contradictions"`
	RulesFailed         int       `parquet:"rules_failed"`
	ScanDurationMs      int64     `parquet:"scan_duration_ms"`
	Timestamp           time.Time `parquet:"timestamp"`
}

// ParquetScanSink buffers scan statistics and flushes them to a new
// Parquet file once the batch fills. Close flushes the remainder.
type ParquetScanSink struct {
	outputDir string
	batchSize int

	mu     sync.Mutex
	buffer []ScanRecord
}

// NewParquetScanSink creates a sink writing under outputDir.
func NewParquetScanSink(outputDir string, batchSize int) (*ParquetScanSink, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ParquetScanSink{
		outputDir: outputDir,
		batchSize: batchSize,
		buffer:    make([]ScanRecord, 0, batchSize),
	}, nil
}

// RecordScan implements engine.ScanSink.
func (s *ParquetScanSink) RecordScan(stat engine.ScanStat) error {
	rec := ScanRecord{
		ID:                  uuid.New().String(),
		StoryID:             stat.StoryID,
		TotalContradictions: stat.TotalContradictions,
		RulesFailed:         stat.RulesFailed,
		ScanDurationMs:      stat.ScanDuration.Milliseconds(),
		Timestamp:           stat.At.UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer = append(s.buffer, rec)
	if len(s.buffer) >= s.batchSize {
		return s.flush()
	}
	return nil
}

// Close flushes any buffered records.
func (s *ParquetScanSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

// flush writes the buffer to a fresh file. Caller must hold the lock.
func (s *ParquetScanSink) flush() error {
	if len(s.buffer) == 0 {
		return nil
	}

	filename := fmt.Sprintf("consistency_scans_%s_%d.parquet",
		time.Now().Format("20060102_150405"), time.Now().UnixNano())
	path := filepath.Join(s.outputDir, filename)

	if err := parquet.WriteFile(path, s.buffer); err != nil {
		return fmt.Errorf("failed to write scan telemetry: %w", err)
	}

	s.buffer = s.buffer[:0]
	return nil
}

var _ engine.ScanSink = (*ParquetScanSink)(nil)
