package models

import (
	"fmt"
	"strings"
	"time"
)

// ReadingType is the utility category of a meter's measurements
type ReadingType string

const (
	Electric ReadingType = "Electric"
	Gas      ReadingType = "Gas"
)

// ParseReadingType maps an export's Type column to a ReadingType
func ParseReadingType(s string) (ReadingType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "electric":
		return Electric, nil
	case "gas":
		return Gas, nil
	default:
		return "", fmt.Errorf("unknown reading type: %q", s)
	}
}

// RawReading is one data row from a utility usage export
type RawReading struct {
	Date        string  `json:"date"`       // Calendar date as exported
	StartTime   string  `json:"start_time"` // Local time of day as exported
	Type        string  `json:"type"`
	MeterNumber string  `json:"meter"`
	UsageUnit   string  `json:"usage_unit"`
	Usage       float64 `json:"usage"`
}

// HourlyRecord is the summed usage of one meter for one hour
type HourlyRecord struct {
	Timestamp time.Time   `json:"timestamp"` // Start of the hour
	Type      ReadingType `json:"type"`
	UsageUnit string      `json:"usage_unit"`
	Usage     float64     `json:"usage"`
}

// AnnotatedRecord is an HourlyRecord stamped with its building metadata
type AnnotatedRecord struct {
	HourlyRecord
	Building  string `json:"building"`
	Occupancy int    `json:"occupancy"`
}

// AggregateKey identifies one row of the consolidated dataset.
// Timestamp is always in UTC so keys built from the same instant compare equal.
type AggregateKey struct {
	Building  string
	Timestamp time.Time
	Type      ReadingType
}

// NewAggregateKey builds the key for building, hour and type
func NewAggregateKey(building string, hour time.Time, typ ReadingType) AggregateKey {
	return AggregateKey{Building: building, Timestamp: hour.UTC(), Type: typ}
}

// Key returns the group this record aggregates into
func (r AnnotatedRecord) Key() AggregateKey {
	return NewAggregateKey(r.Building, r.Timestamp, r.Type)
}

// AggregatedRecord is the combined usage of a building for one hour and reading type
type AggregatedRecord struct {
	ID        int         `json:"id,omitempty"` // Set when loaded from the database
	Building  string      `json:"building"`
	Timestamp time.Time   `json:"datetime"`
	Type      ReadingType `json:"type"`
	UsageUnit string      `json:"usage_unit"`
	Usage     float64     `json:"usage"`
	Occupancy int         `json:"occupancy"`
}

// Key returns the grouping key of the record
func (r AggregatedRecord) Key() AggregateKey {
	return NewAggregateKey(r.Building, r.Timestamp, r.Type)
}
