// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// Field limits inherited from the asin_data table.
const (
	MaxASINLength         = 10
	MaxCategoryNameLength = 50

	// MaxRank is the largest rank every backend's INTEGER column can hold.
	MaxRank = math.MaxInt32
)

// Slot identifies one of the two parallel ranking taxonomies of an observation.
type Slot int

// Category slots.
const (
	Slot1 Slot = 1
	Slot2 Slot = 2
)

// Slots lists the slots in chart order.
var Slots = [...]Slot{Slot1, Slot2}

// String returns the slot's wire prefix, e.g. "category1".
func (s Slot) String() string {
	switch s {
	case Slot1:
		return "category1"
	case Slot2:
		return "category2"
	default:
		return "category?"
	}
}

// Category is one (name, rank) pair. A nil Rank means the rank was not reported.
type Category struct {
	Name string
	Rank *int
}

// HasName reports whether the slot carries a category name.
func (c Category) HasName() bool { return c.Name != "" }

// RankObservation is one immutable ranking fact for an ASIN.
type RankObservation struct {
	ID        int64     // store-assigned, increasing
	ASIN      string    // opaque product identifier, exact-case
	Category1 Category  // first taxonomy
	Category2 Category  // second taxonomy
	Timestamp time.Time // ingestion time, UTC
}

// Category returns the pair stored in slot s.
func (o RankObservation) Category(s Slot) Category {
	if s == Slot2 {
		return o.Category2
	}
	return o.Category1
}

// HasInput reports whether the observation carries anything worth storing:
// an ASIN or at least one category name.
func (o RankObservation) HasInput() bool {
	return o.ASIN != "" || o.Category1.HasName() || o.Category2.HasName()
}

// RankOf is a convenience for building optional ranks.
func RankOf(v int) *int { return &v }
