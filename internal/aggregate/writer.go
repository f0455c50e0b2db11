package aggregate

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"

	"vuorokal/internal/fsutil"
	appLog "vuorokal/internal/log"
	"vuorokal/internal/model"
)

// Category is one entry of the JSON aggregate: a generated calendar
// with its display name, its ICS file name, and the full merged event
// timeline.
type Category struct {
	Name     string        `json:"name"`
	FileName string        `json:"fileName"`
	Events   []model.Event `json:"events"`
}

// Write serializes all categories, in order, into the single aggregate
// document the static-site loader reads. Callers must only invoke it
// after every category has been generated successfully; there is no
// partial-success output mode.
func Write(path string, categories []Category) error {
	if _, err := fsutil.Mkdir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("aggregate: prepare output directory: %w", err)
	}

	data, err := sonic.MarshalIndent(categories, "", "  ")
	if err != nil {
		return fmt.Errorf("aggregate: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("aggregate: write %s: %w", path, err)
	}

	for _, cat := range categories {
		digest, err := Fingerprint(cat)
		if err != nil {
			return err
		}
		appLog.Info("aggregated category",
			"name", cat.Name,
			"file", cat.FileName,
			"events", len(cat.Events),
			"digest", digest,
		)
	}
	return nil
}

// Fingerprint computes the per-category content digest the downstream
// site loader uses to decide whether a category needs re-rendering.
func Fingerprint(c Category) (string, error) {
	data, err := sonic.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("aggregate: fingerprint %q: %w", c.Name, err)
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// TitleDescription derives the consumer-facing title/description pair
// for an event: the first two distinct values among the event title,
// the reservation type name and the reservation group name, in order
// of first occurrence. Empty strings count as values; the description
// is empty when fewer than two distinct values exist.
func TitleDescription(ev model.Event) (title, description string) {
	candidates := []string{ev.Title, ev.ReservationTypeName, ev.ReservationGroupName}

	distinct := candidates[:0:0]
	seen := make(map[string]bool, len(candidates))
	for _, s := range candidates {
		if seen[s] {
			continue
		}
		seen[s] = true
		distinct = append(distinct, s)
	}

	title = distinct[0]
	if len(distinct) > 1 {
		description = distinct[1]
	}
	return title, description
}
