// Package timeline turns raw upstream reservation records into the
// canonical, time-ordered event timeline, including the synthesized
// free-time events the upstream API does not provide.
package timeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"vuorokal/internal/liikunta"
	"vuorokal/internal/model"
)

// rawTimeLayout is the local timestamp format used by the upstream API.
const rawTimeLayout = "2006-01-02 15:04:05"

// Normalize converts raw reservation records into canonical events.
//
// Records without a type and records carrying the upstream "Fake Event"
// sentinel are discarded. The result is stably sorted ascending by
// start time, which FillGaps relies on.
func Normalize(raw []liikunta.RawEvent, loc *time.Location) ([]model.Event, error) {
	events := make([]model.Event, 0, len(raw))
	for _, rec := range raw {
		if !rec.HasType() || rec.ReservationTypeName == "Fake Event" {
			continue
		}
		ev, err := normalizeOne(rec, loc)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

func normalizeOne(rec liikunta.RawEvent, loc *time.Location) (model.Event, error) {
	start, err := time.ParseInLocation(rawTimeLayout, rec.Start, loc)
	if err != nil {
		return model.Event{}, fmt.Errorf("timeline: malformed event start %q: %w", rec.Start, err)
	}
	end, err := time.ParseInLocation(rawTimeLayout, rec.End, loc)
	if err != nil {
		return model.Event{}, fmt.Errorf("timeline: malformed event end %q: %w", rec.End, err)
	}

	date, startClock, _ := strings.Cut(rec.Start, " ")
	_, endClock, _ := strings.Cut(rec.End, " ")

	return model.Event{
		ReservationTypeID:    rec.ReservationTypeID,
		ReservationTypeName:  strings.TrimSpace(rec.ReservationTypeName),
		ReservationGroupName: strings.TrimSpace(rec.ReservationGroupName),
		ResourceID:           rec.ResourceID,
		LocationID:           rec.LocationID,
		ServiceID:            rec.ServiceID,
		Service:              rec.Service,
		Title:                composeTitle(rec.Title, rec.ShowTitle),
		Date:                 date,
		Start:                start,
		End:                  end,
		Starttime:            trimSeconds(startClock),
		Endtime:              trimSeconds(endClock),
		Available:            available(rec),
	}, nil
}

// available derives the bookability flag: a public slot (type 4 /
// "Yleisövuoro") that is not closed or under maintenance. It evaluates
// the upstream fields as-is, before trimming.
func available(rec liikunta.RawEvent) bool {
	if rec.ReservationGroupName == "Suljettu" || rec.ReservationGroupName == "Kunnostus" {
		return false
	}
	return rec.ReservationTypeID == 4 || rec.ReservationTypeName == "Yleisövuoro"
}

// composeTitle joins the non-empty parts with " / ".
func composeTitle(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " / ")
}

// trimSeconds strips a literal trailing ":00" from a clock string, so
// "19:00:00" becomes "19:00" but "19:05:30" keeps its seconds.
func trimSeconds(clock string) string {
	return strings.TrimSuffix(clock, ":00")
}
