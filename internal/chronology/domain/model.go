// Package domain contains the merged meter-reading event sequence used for
// chronology validation.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// EventSource tags which ledger a reading event came from.
type EventSource string

const (
	SourcePurchase     EventSource = "purchase"
	SourceContribution EventSource = "contribution"
	SourceMeterReading EventSource = "meter_reading"
)

// ReadingEvent is one point in the merged meter timeline. Every purchase,
// contribution and standalone reading contributes exactly one event.
type ReadingEvent struct {
	Source   EventSource  `json:"source"`
	RecordID snowflake.ID `json:"record_id"`
	Reading  float64      `json:"reading"`
	Date     time.Time    `json:"date"`
}

// Exclusion removes one record from a query, for edit flows where the row
// being changed must not validate against itself.
type Exclusion struct {
	Source   EventSource
	RecordID snowflake.ID
}

// Result is a validation outcome. Invalid is not an error; the result names
// the conflicting event and the smallest acceptable reading.
type Result struct {
	Valid            bool          `json:"valid"`
	Message          string        `json:"message,omitempty"`
	SuggestedMinimum *float64      `json:"suggested_minimum,omitempty"`
	Conflict         *ReadingEvent `json:"conflict,omitempty"`
}

// Ok is the passing result.
func Ok() Result { return Result{Valid: true} }
