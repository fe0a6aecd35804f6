package models

import "fmt"

// PageDescriptor is one step of the shared page-progression catalog.
type PageDescriptor struct {
	Index          int      `yaml:"index"`
	ID             string   `yaml:"id"`
	Key            string   `yaml:"key"`
	RequiredFields []string `yaml:"required_fields,omitempty"` // empty for interstitial/conditional pages
}

// UnknownPageIndex marks a furthest page that does not match the catalog.
const UnknownPageIndex = -1

// FurthestPage is the high-water mark a respondent reached.
type FurthestPage struct {
	Key   string `yaml:"key"`
	ID    string `yaml:"id"`
	Index int    `yaml:"index"`
}

// Known reports whether the index names a real catalog page.
func (f FurthestPage) Known() bool {
	return f.Index > UnknownPageIndex
}

// IndexString renders the index for CSV output; unknown indexes are empty.
func (f FurthestPage) IndexString() string {
	if !f.Known() {
		return ""
	}
	return fmt.Sprintf("%d", f.Index)
}
