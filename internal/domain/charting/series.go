// Package charting reshapes stored rank observations into per-category
// time series and renders them as embeddable chart fragments.
package charting

import (
	"fmt"
	"time"

	"github.com/okian/asinrank/internal/domain/model"
)

// DayLayout formats the day bucket of an observation, e.g. "January 05, 2024".
const DayLayout = "January 02, 2006"

// DefaultTitleMaxLen caps chart titles when no explicit limit is configured.
const DefaultTitleMaxLen = 75

// Point is one observation projected onto a category slot.
type Point struct {
	Day  string // calendar day of the observation
	Rank *int   // nil when the observation carried no rank for the slot
}

// Series is the plottable history of one category slot for an ASIN.
type Series struct {
	Slot   model.Slot
	Title  string
	Points []Point
}

// DayBucket truncates t to its calendar day in UTC and formats it with DayLayout.
func DayBucket(t time.Time) string {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Format(DayLayout)
}

// SlotsWithData returns the slots for which at least one observation has a
// non-empty category name, in slot order.
func SlotsWithData(observations []model.RankObservation) []model.Slot {
	var out []model.Slot
	for _, slot := range model.Slots {
		for _, o := range observations {
			if o.Category(slot).HasName() {
				out = append(out, slot)
				break
			}
		}
	}
	return out
}

// Title builds "<asin> - <name> " and cuts it to maxLen characters.
func Title(asin, categoryName string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultTitleMaxLen
	}
	title := []rune(fmt.Sprintf("%s - %s ", asin, categoryName))
	if len(title) > maxLen {
		title = title[:maxLen]
	}
	return string(title)
}

// BuildSeries projects observations, given in arrival order, onto every slot
// that has data. Same-day observations stay distinct points.
func BuildSeries(asin string, observations []model.RankObservation, titleMaxLen int) []Series {
	slots := SlotsWithData(observations)
	out := make([]Series, 0, len(slots))
	for _, slot := range slots {
		s := Series{Slot: slot, Points: make([]Point, 0, len(observations))}
		name := ""
		for _, o := range observations {
			c := o.Category(slot)
			if name == "" {
				name = c.Name
			}
			s.Points = append(s.Points, Point{Day: DayBucket(o.Timestamp), Rank: c.Rank})
		}
		s.Title = Title(asin, name, titleMaxLen)
		out = append(out, s)
	}
	return out
}
