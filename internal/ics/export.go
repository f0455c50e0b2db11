// Package ics serializes category timelines into subscribable ICS
// calendar files.
package ics

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "vuorokal/internal/log"
	"vuorokal/internal/model"
)

// floatingLayout is the local (floating) ICS date-time form; calendar
// clients interpret it in their own timezone, which matches how the
// venues publish their schedules.
const floatingLayout = "20060102T150405"

var slugReplacer = strings.NewReplacer("ä", "a", "å", "a", "ö", "o")

// FileName derives the calendar file name for a category:
// "calendar-<slug>.ics" with the name lowercased and ä/å/ö flattened.
// No other transliteration is applied.
func FileName(name string) string {
	slug := slugReplacer.Replace(strings.ToLower(name))
	return "calendar-" + slug + ".ics"
}

// Export serializes one category's available events into an ICS
// payload. Unavailable (blocked/closed) events never appear; a
// category with none leaves a valid empty calendar.
//
// Serialization is checked both ways: an encoding error is fatal, and
// so is a "successful" serialization that produced no bytes.
func Export(name string, events []model.Event, resources []model.Resource, locations []model.Location) ([]byte, error) {
	resourceNames := make(map[int]string, len(resources))
	for _, res := range resources {
		resourceNames[res.ID] = res.Name
	}
	locationNames := make(map[int]string, len(locations))
	for _, loc := range locations {
		locationNames[loc.ID] = loc.Name
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName(name)

	now := time.Now()
	count := 0
	for _, ev := range events {
		if !ev.Available {
			continue
		}
		count++

		entry := cal.AddEvent(uuid.NewString())
		entry.SetCreatedTime(now)
		entry.SetModifiedAt(now)
		entry.SetSummary(ev.Title)
		if loc := venue(ev, resourceNames, locationNames); loc != "" {
			entry.SetLocation(loc)
		}
		entry.SetProperty(ics.ComponentPropertyDtStart, ev.Start.Format(floatingLayout))

		hours, minutes := durationParts(ev)
		entry.SetProperty(ics.ComponentProperty("DURATION"), fmt.Sprintf("PT%dH%dM", hours, minutes))
	}

	var buf bytes.Buffer
	if err := cal.SerializeTo(&buf); err != nil {
		return nil, fmt.Errorf("ics: serialize calendar %q: %w", name, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("ics: serializing calendar %q produced no output", name)
	}

	appLog.Info("ics calendar serialized", "name", name, "entries", count)
	return buf.Bytes(), nil
}

// WriteFile exports the category and writes its calendar file under
// dir, returning the file name.
func WriteFile(dir, name string, events []model.Event, resources []model.Resource, locations []model.Location) (string, error) {
	payload, err := Export(name, events, resources, locations)
	if err != nil {
		return "", err
	}

	fileName := FileName(name)
	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("ics: write %s: %w", path, err)
	}
	return fileName, nil
}

// venue composes the VEVENT location string: the resource name first,
// then the location name, joined with ", ". A failed id lookup omits
// that part rather than failing the export.
func venue(ev model.Event, resourceNames, locationNames map[int]string) string {
	parts := make([]string, 0, 2)
	if name := resourceNames[ev.ResourceID]; name != "" {
		parts = append(parts, name)
	}
	if name := locationNames[ev.LocationID]; name != "" {
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}

// durationParts splits the event duration into whole hours and
// remaining minutes, flooring; the calendar format wants a start time
// plus a duration rather than an end timestamp.
func durationParts(ev model.Event) (hours, minutes int) {
	total := int(ev.End.Sub(ev.Start).Minutes())
	return total / 60, total % 60
}
