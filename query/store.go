// Package query holds the applied search and filter chips and the draft the
// user is editing before applying them.
package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultOperator is used when a filter names no operator.
const DefaultOperator = "=="

// Kind of an applied chip.
type Kind string

const (
	KindSearch Kind = "search"
	KindFilter Kind = "filter"
)

// Payload is what a chip was applied with. Search chips use SearchText,
// filter chips the other three fields.
type Payload struct {
	SearchText string `json:"searchText,omitempty"`
	Attribute  string `json:"attribute,omitempty"`
	Operator   string `json:"operator,omitempty"`
	Value      string `json:"value,omitempty"`
}

// Chip is one applied query.
type Chip struct {
	ID      int     `json:"id"`
	Label   string  `json:"label"`
	Kind    Kind    `json:"kind"`
	Payload Payload `json:"payload"`
}

// Filter is the typed form of a filter chip sent to the backend.
type Filter struct {
	Key   string      `json:"key"`
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
}

// Store owns the chip list. Chip ids increase strictly and are only reused
// after Reset.
type Store struct {
	chips  []Chip
	nextID int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{nextID: 1}
}

// Add appends a chip and returns it.
func (s *Store) Add(label string, kind Kind, payload Payload) Chip {
	c := Chip{ID: s.nextID, Label: label, Kind: kind, Payload: payload}
	s.nextID++
	s.chips = append(s.chips, c)
	return c
}

// Remove deletes the chip with id. It reports whether one was removed.
func (s *Store) Remove(id int) bool {
	for i, c := range s.chips {
		if c.ID == id {
			s.chips = append(s.chips[:i:i], s.chips[i+1:]...)
			return true
		}
	}
	return false
}

// Chips returns the applied chips in application order.
func (s *Store) Chips() []Chip {
	return append([]Chip(nil), s.chips...)
}

// Len returns the number of applied chips.
func (s *Store) Len() int {
	return len(s.chips)
}

// CountLabel is the "N applied" summary.
func (s *Store) CountLabel() string {
	return fmt.Sprintf("%d applied", len(s.chips))
}

// Reset drops every chip and restarts ids at 1.
func (s *Store) Reset() {
	s.chips = nil
	s.nextID = 1
}

// Apply turns the draft into chips: one search chip when it has search text,
// one filter chip when attribute, operator and value are all set.
func (s *Store) Apply(d Draft) []Chip {
	d = d.Trimmed()
	var added []Chip
	if d.HasSearch() {
		added = append(added, s.Add("search: "+d.SearchText, KindSearch, Payload{SearchText: d.SearchText}))
	}
	if d.HasFilter() {
		added = append(added, s.Add(
			fmt.Sprintf("%s %s %s", d.Attribute, d.Operator, d.Value),
			KindFilter,
			Payload{Attribute: d.Attribute, Operator: d.Operator, Value: d.Value},
		))
	}
	return added
}

// FilterPayloads returns the typed filters of all filter chips. Entries whose
// key or operator is blank after defaulting are dropped.
func (s *Store) FilterPayloads() []Filter {
	filters := make([]Filter, 0, len(s.chips))
	for _, c := range s.chips {
		if c.Kind != KindFilter {
			continue
		}
		op := c.Payload.Operator
		if op == "" {
			op = DefaultOperator
		}
		f := Filter{Key: c.Payload.Attribute, Op: op, Value: ParseFilterValue(c.Payload.Value)}
		if strings.TrimSpace(f.Key) == "" || strings.TrimSpace(f.Op) == "" {
			continue
		}
		filters = append(filters, f)
	}
	return filters
}

// ParseFilterValue coerces "true" and "false" to bool and finite numbers to
// float64; anything else stays the raw string.
func ParseFilterValue(raw string) interface{} {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}
	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return raw
	}
	return n
}
