// Package dropoff summarizes where respondents stopped in a funnel.
package dropoff

import (
	"fmt"
	"io"
	"sort"

	"github.com/dtnitsch/funnelx/models"
	"github.com/dtnitsch/funnelx/pkg/progression"
)

// UnknownPage buckets rows with no furthest page key.
const UnknownPage = "(unknown)"

// Bucket is the number of rows whose furthest page is PageKey.
type Bucket struct {
	PageKey   string  `yaml:"page_key"`
	PageIndex int     `yaml:"page_index"`
	Count     int     `yaml:"count"`
	Percent   float64 `yaml:"percent"`
}

// Map counts rows per furthest page key.
func Map(rows []models.NormalizedRow) map[string]int {
	counts := make(map[string]int)
	for i := range rows {
		key := rows[i].Furthest.Key
		if key == "" {
			key = UnknownPage
		}
		counts[key]++
	}
	return counts
}

// Reduce merges per-funnel counts into one map.
func Reduce(intermediate []map[string]int) map[string]int {
	finalResults := make(map[string]int)

	for _, counts := range intermediate {
		for key, count := range counts {
			finalResults[key] += count
		}
	}

	return finalResults
}

// Distribution turns counts into buckets sorted by count descending, then
// by catalog position. Keys outside the catalog sort last among equals.
func Distribution(counts map[string]int, catalog *progression.Catalog) []Bucket {
	total := 0
	for _, c := range counts {
		total += c
	}

	buckets := make([]Bucket, 0, len(counts))
	for key, count := range counts {
		b := Bucket{PageKey: key, PageIndex: models.UnknownPageIndex, Count: count}
		if p, ok := catalog.ByKey(key); ok {
			b.PageIndex = p.Index
		}
		if total > 0 {
			b.Percent = float64(count) / float64(total) * 100
		}
		buckets = append(buckets, b)
	}

	sort.Slice(buckets, func(i, j int) bool {
		a, b := buckets[i], buckets[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.PageIndex != b.PageIndex {
			if a.PageIndex < 0 {
				return false
			}
			if b.PageIndex < 0 {
				return true
			}
			return a.PageIndex < b.PageIndex
		}
		return a.PageKey < b.PageKey
	})
	return buckets
}

// Print writes one line per bucket, limited to the top n when n > 0.
func Print(w io.Writer, buckets []Bucket, n int) {
	limit := len(buckets)
	if n > 0 && n < limit {
		limit = n
	}
	for i := 0; i < limit; i++ {
		b := buckets[i]
		fmt.Fprintf(w, "  %s: %d (%.1f%%)\n", b.PageKey, b.Count, b.Percent)
	}
}
