// Package progression holds the page-progression catalog shared by all
// funnels and derives the furthest page an entry reached.
package progression

import (
	"fmt"

	"github.com/dtnitsch/funnelx/models"
	"github.com/dtnitsch/funnelx/pkg/payload"
)

// Payload keys written by the form backend.
const (
	keyHighestPageKey   = "highest_page_reached_key"
	keyHighestPageID    = "highest_page_reached_id"
	keyHighestPageIndex = "highest_page_reached_index"
	keyCurrentPageKey   = "current_page_key"
	keyCurrentPageID    = "current_page_id"
	keyCurrentPageIndex = "current_page_index"
)

// Catalog is an ordered, read-only list of pages. Build it with New.
type Catalog struct {
	pages   []models.PageDescriptor
	byIndex map[int]int
	byKey   map[string]int
}

// New validates pages and returns a Catalog. Each page's Index must equal
// its position, and IDs and keys must be unique.
func New(pages []models.PageDescriptor) (*Catalog, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("catalog has no pages")
	}

	c := &Catalog{
		pages:   make([]models.PageDescriptor, len(pages)),
		byIndex: make(map[int]int, len(pages)),
		byKey:   make(map[string]int, len(pages)),
	}
	ids := make(map[string]bool, len(pages))

	for pos, p := range pages {
		if p.Index != pos {
			return nil, fmt.Errorf("page %q has index %d at position %d", p.Key, p.Index, pos)
		}
		if p.Key == "" || p.ID == "" {
			return nil, fmt.Errorf("page at position %d is missing key or id", pos)
		}
		if _, dup := c.byKey[p.Key]; dup {
			return nil, fmt.Errorf("duplicate page key %q", p.Key)
		}
		if ids[p.ID] {
			return nil, fmt.Errorf("duplicate page id %q", p.ID)
		}
		ids[p.ID] = true

		fields := make([]string, len(p.RequiredFields))
		copy(fields, p.RequiredFields)
		p.RequiredFields = fields

		c.pages[pos] = p
		c.byIndex[p.Index] = pos
		c.byKey[p.Key] = pos
	}
	return c, nil
}

// MustNew is New for package-level catalogs known to be valid.
func MustNew(pages []models.PageDescriptor) *Catalog {
	c, err := New(pages)
	if err != nil {
		panic(err)
	}
	return c
}

// Pages returns a copy of the catalog in order.
func (c *Catalog) Pages() []models.PageDescriptor {
	out := make([]models.PageDescriptor, len(c.pages))
	copy(out, c.pages)
	return out
}

// Len is the number of pages.
func (c *Catalog) Len() int {
	return len(c.pages)
}

// Terminal is the last page; reaching it marks an entry complete.
func (c *Catalog) Terminal() models.PageDescriptor {
	return c.pages[len(c.pages)-1]
}

// ByIndex looks a page up by its ordinal index.
func (c *Catalog) ByIndex(i int) (models.PageDescriptor, bool) {
	pos, ok := c.byIndex[i]
	if !ok {
		return models.PageDescriptor{}, false
	}
	return c.pages[pos], true
}

// ByKey looks a page up by its semantic key.
func (c *Catalog) ByKey(key string) (models.PageDescriptor, bool) {
	pos, ok := c.byKey[key]
	if !ok {
		return models.PageDescriptor{}, false
	}
	return c.pages[pos], true
}

// IsComplete reports whether the furthest page is the terminal page.
func (c *Catalog) IsComplete(f models.FurthestPage) bool {
	return f.Key == c.Terminal().Key
}

// Furthest reads the vendor-computed high-water mark from the payload.
// When highest_page_reached_key is empty the current_page_* fields are used
// instead. The index is coerced to an int; anything that does not parse or
// does not name a catalog page becomes models.UnknownPageIndex.
func (c *Catalog) Furthest(data payload.Object) models.FurthestPage {
	keyField, idField, indexField := keyHighestPageKey, keyHighestPageID, keyHighestPageIndex
	if data.Get(keyHighestPageKey).IsEmpty() {
		keyField, idField, indexField = keyCurrentPageKey, keyCurrentPageID, keyCurrentPageIndex
	}

	f := models.FurthestPage{
		Key:   stringOf(data.Get(keyField)),
		ID:    stringOf(data.Get(idField)),
		Index: models.UnknownPageIndex,
	}

	if i, ok := data.Get(indexField).Int(); ok {
		if _, known := c.ByIndex(i); known {
			f.Index = i
		}
	}
	return f
}

// Reached recomputes the furthest page locally: the highest-index page whose
// required fields are all present. Pages without required fields never
// advance the mark. Returns false when no page qualifies.
//
// The vendor value from Furthest stays authoritative; this is only used to
// flag disagreements.
func (c *Catalog) Reached(data payload.Object) (models.PageDescriptor, bool) {
	var best models.PageDescriptor
	found := false
	for _, p := range c.pages {
		if len(p.RequiredFields) == 0 {
			continue
		}
		complete := true
		for _, field := range p.RequiredFields {
			if !data.Has(field) {
				complete = false
				break
			}
		}
		if complete {
			best = p
			found = true
		}
	}
	return best, found
}

func stringOf(v payload.Value) string {
	switch v.Kind {
	case payload.KindString:
		return v.Str
	case payload.KindNumber:
		return v.Num.String()
	default:
		return ""
	}
}
