// Package summary writes per-funnel run summaries and the run index.
package summary

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/funnelx/models"
	"github.com/dtnitsch/funnelx/pkg/dropoff"
	"github.com/dtnitsch/funnelx/pkg/output"
)

// MaxIndexedRuns caps the number of runs kept in index.yaml.
const MaxIndexedRuns = 50

// Counts are the per-stage entry counts of one funnel run.
type Counts struct {
	Fetched    int `yaml:"fetched"`
	Excluded   int `yaml:"excluded"`
	Duplicates int `yaml:"duplicates,omitempty"`
	Normalized int `yaml:"normalized"`
	Complete   int `yaml:"complete"`
	Partial    int `yaml:"partial"`
}

// FunnelSummary describes one funnel of a run.
type FunnelSummary struct {
	RunID        string             `yaml:"run_id"`
	FunnelKey    string             `yaml:"funnel_key"`
	FunnelName   string             `yaml:"funnel_name"`
	EmbeddableID string             `yaml:"embeddable_id"`
	Started      time.Time          `yaml:"started"`
	Finished     time.Time          `yaml:"finished"`
	CheckoutOnly bool               `yaml:"checkout_only,omitempty"`
	Window       models.TimeWindow  `yaml:"window,omitempty"`
	Counts       Counts             `yaml:"counts"`
	APICalls     int                `yaml:"api_calls"`
	StopReason   string             `yaml:"stop_reason"`
	Error        string             `yaml:"error,omitempty"`
	Files        []output.FileStats `yaml:"files,omitempty"`
	Dropoff      []dropoff.Bucket   `yaml:"dropoff,omitempty"`
}

// RunInfo is one entry of index.yaml.
type RunInfo struct {
	RunID    string    `yaml:"run_id"`
	Started  time.Time `yaml:"started"`
	Funnels  []string  `yaml:"funnels"`
	Complete int       `yaml:"complete"`
	Partial  int       `yaml:"partial"`
	Failed   []string  `yaml:"failed,omitempty"`
}

// RunIndex is the output directory's index.yaml.
type RunIndex struct {
	Runs []RunInfo `yaml:"runs"`
}

// FileName returns {funnelKey}_{stamp}_summary.yaml.
func FileName(funnelKey string, stamp time.Time) string {
	return fmt.Sprintf("%s_%s_summary.yaml", funnelKey, stamp.Format(output.StampLayout))
}

// IndexPath returns the path of the run index under dir.
func IndexPath(dir string) string {
	return filepath.Join(dir, "index.yaml")
}

// Write saves s next to the funnel's CSV files and returns its path.
func Write(dir string, stamp time.Time, s *FunnelSummary) (string, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, FileName(s.FunnelKey, stamp))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}
	return path, nil
}

// Read loads a summary written by Write.
func Read(path string) (*FunnelSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	var s FunnelSummary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return &s, nil
}

// ReadIndex loads index.yaml; a missing file is an empty index.
func ReadIndex(dir string) (*RunIndex, error) {
	var index RunIndex
	data, err := os.ReadFile(IndexPath(dir))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read run index: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &index); err != nil {
			return nil, fmt.Errorf("failed to parse run index: %w", err)
		}
	}
	return &index, nil
}

// UpdateIndex adds or replaces info in index.yaml, newest first, keeping
// at most MaxIndexedRuns entries.
func UpdateIndex(dir string, info RunInfo) error {
	index, err := ReadIndex(dir)
	if err != nil {
		return err
	}

	found := false
	for i, r := range index.Runs {
		if r.RunID == info.RunID {
			index.Runs[i] = info
			found = true
			break
		}
	}
	if !found {
		index.Runs = append(index.Runs, info)
	}

	sort.SliceStable(index.Runs, func(i, j int) bool {
		return index.Runs[i].Started.After(index.Runs[j].Started)
	})
	if len(index.Runs) > MaxIndexedRuns {
		index.Runs = index.Runs[:MaxIndexedRuns]
	}

	out, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal run index: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(IndexPath(dir), out, 0644); err != nil {
		return fmt.Errorf("failed to write run index: %w", err)
	}
	return nil
}

type columnsReference struct {
	Columns    []string `yaml:"columns"`
	Partitions []string `yaml:"partitions"`
	Notes      []string `yaml:"notes"`
}

// GenerateColumnsReference writes COLUMNS.yaml describing the CSV layout
// unless it already exists.
func GenerateColumnsReference(dir string) error {
	path := filepath.Join(dir, "COLUMNS.yaml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	ref := columnsReference{
		Columns: models.Header(),
		Partitions: []string{
			string(output.PartitionAll),
			string(output.PartitionComplete),
			string(output.PartitionPartial),
		},
		Notes: []string{
			"Missing values are empty strings.",
			"Female Questions is NA unless Sex Assigned at Birth is female.",
			"Furthest Page Index is empty when the page is not in the catalog.",
			"complete holds rows whose Furthest Page Reached is the terminal page.",
		},
	}
	data, err := yaml.Marshal(&ref)
	if err != nil {
		return fmt.Errorf("failed to marshal COLUMNS.yaml: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write COLUMNS.yaml: %w", err)
	}
	return nil
}
