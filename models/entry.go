package models

import "encoding/json"

// RawEntry is one record as returned by the entries endpoint.
// EntryData is left undecoded: the API sends it either as a JSON-encoded
// string or as an object, and its shape is not under our control.
type RawEntry struct {
	EntryID      string          `json:"entry_id"`
	EmbeddableID string          `json:"embeddable_id"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
	EntryData    json.RawMessage `json:"entry_data"`
}
