// Package output writes normalized rows to per-partition CSV files.
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dtnitsch/funnelx/internal/common"
	"github.com/dtnitsch/funnelx/models"
)

// StampLayout formats the run timestamp embedded in file names.
const StampLayout = "20060102_150405"

// Partition names one output file of a funnel run.
type Partition string

const (
	PartitionAll      Partition = "all"
	PartitionComplete Partition = "complete"
	PartitionPartial  Partition = "partial"
)

// FileStats describes a written partition file.
type FileStats struct {
	Partition Partition `yaml:"partition"`
	Path      string    `yaml:"path"`
	Rows      int       `yaml:"rows"`
	SizeBytes int64     `yaml:"size_bytes"`
	Hash      string    `yaml:"sha256"`
}

// Writer saves partitions under Dir.
type Writer struct {
	Dir string
}

// FileName returns {funnelKey}_{stamp}_{partition}.csv.
func FileName(funnelKey string, stamp time.Time, p Partition) string {
	return fmt.Sprintf("%s_%s_%s.csv", funnelKey, stamp.Format(StampLayout), p)
}

// WritePartition writes rows with a header line, replacing any existing
// file. An empty rows slice still produces a header-only file.
func (w *Writer) WritePartition(funnelKey string, stamp time.Time, p Partition, rows []models.NormalizedRow) (*FileStats, error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating output directory: %w", err)
	}

	content, err := Encode(rows)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(w.Dir, FileName(funnelKey, stamp, p))
	if err := SaveFile(path, content); err != nil {
		return nil, err
	}

	return &FileStats{
		Partition: p,
		Path:      path,
		Rows:      len(rows),
		SizeBytes: int64(len(content)),
		Hash:      common.ContentHash(content),
	}, nil
}

// Encode renders rows as CSV with the fixed header.
func Encode(rows []models.NormalizedRow) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(models.Header()); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}
	for i := range rows {
		if err := cw.Write(rows[i].Record()); err != nil {
			return nil, fmt.Errorf("error writing row %s: %w", rows[i].EntryID(), err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("error flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveFile writes content to filePath, truncating any previous file.
func SaveFile(filePath string, content []byte) error {
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return fmt.Errorf("error saving file: %w", err)
	}
	return nil
}
