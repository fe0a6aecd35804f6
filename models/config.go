// Package models defines data structures for configuration and extraction.
package models

import "time"

// ExtractConfig holds runtime configuration for extract operations.
// Values come from CLI flags, environment variables and .env.
type ExtractConfig struct {
	APIKey         string
	ProjectID      string
	BaseURL        string
	OutputDir      string
	ExclusionsFile string
	FunnelsFile    string

	Funnel       string // "all" or a funnel key
	MaxRecords   int
	Window       TimeWindow
	CheckoutOnly bool

	WorkerCount  int
	RequestDelay time.Duration
	CacheTTL     time.Duration
}

// TimeWindow bounds entries by their updated_at timestamp. Empty strings
// leave that side open. Values are passed to the API verbatim (ISO-8601).
type TimeWindow struct {
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`
}

// IsZero reports whether neither bound is set.
func (w TimeWindow) IsZero() bool {
	return w.From == "" && w.To == ""
}
