package timeline

import (
	"time"

	"vuorokal/internal/model"
)

// Labels carried by synthesized free-time events.
const (
	FreeTimeTitle     = "(vapaa aika)"
	FreeTimeName      = "Vapaa aika"
	FreeTimeService   = "Muu toiminta"
	FreeTimeServiceID = 66
)

// minGap is the smallest uncovered interval worth surfacing as free
// time; anything at or below it is rounding noise between back-to-back
// bookings.
const minGap = 1000 * time.Millisecond

// FillGaps inserts a synthetic free-time event into every uncovered
// same-day interval between consecutive events.
//
// The input must be sorted ascending by Start (Normalize guarantees
// this) and scoped to one fetch, i.e. one service/location/resource
// combination requested together. Gaps are never inserted across a
// date boundary, so the stretch from midnight to a day's first event
// stays implicit.
func FillGaps(events []model.Event) []model.Event {
	if len(events) < 2 {
		return events
	}

	out := make([]model.Event, 0, len(events))
	out = append(out, events[0])
	for i := 1; i < len(events); i++ {
		prev, ev := events[i-1], events[i]
		if prev.Date == ev.Date && ev.Start.Sub(prev.End) > minGap {
			out = append(out, gapBetween(prev, ev))
		}
		out = append(out, ev)
	}
	return out
}

// gapBetween builds the free-time event covering [prev.End, next.Start).
func gapBetween(prev, next model.Event) model.Event {
	return model.Event{
		ReservationTypeID:    0,
		ReservationTypeName:  FreeTimeName,
		ReservationGroupName: FreeTimeName,
		ResourceID:           next.ResourceID,
		LocationID:           next.LocationID,
		ServiceID:            FreeTimeServiceID,
		Service:              FreeTimeService,
		Title:                FreeTimeTitle,
		Date:                 next.Date,
		Start:                prev.End,
		End:                  next.Start,
		Starttime:            prev.Endtime,
		Endtime:              next.Starttime,
		Available:            true,
	}
}
