// package models defines the data model for the finance API client
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Entity is any record type addressable by a unique identifier.
type Entity interface {
	GetID() string // GetID returns the entity's identifier, empty when unsaved
	Validate() error
}

// ID is an entity identifier. Backends may send ids as JSON strings or numbers; both decode to the same value.
type ID string

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the id as a plain string.
func (id ID) String() string { return string(id) }

// Page is the envelope returned by list endpoints.
type Page[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pages returns the number of pages needed to hold Total records at Limit per page.
func (p Page[T]) Pages() int {
	if p.Limit <= 0 {
		return 1
	}
	n := (p.Total + p.Limit - 1) / p.Limit
	if n < 1 {
		return 1
	}
	return n
}

// ProbeID extracts the "id" member of a JSON object, returning "" for null, empty or non-object input.
func ProbeID(data []byte) string {
	var probe struct {
		ID ID `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ""
	}
	return probe.ID.String()
}
