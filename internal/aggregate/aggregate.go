// Package aggregate orchestrates the per-category fetch pipeline and
// produces the JSON aggregate consumed by the static site.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"vuorokal/internal/config"
	"vuorokal/internal/liikunta"
	appLog "vuorokal/internal/log"
	"vuorokal/internal/model"
	"vuorokal/internal/timeline"
)

// Source is the upstream reservation API at its interface boundary.
// *liikunta.Client implements it.
type Source interface {
	Services(ctx context.Context) ([]model.Service, error)
	LocationsAndResources(ctx context.Context, serviceID int, locationIDs []int) (liikunta.Catalog, error)
	ReservationEvents(ctx context.Context, q liikunta.EventQuery) ([]liikunta.RawEvent, error)
}

// Result is one category's merged output: the flat event timeline plus
// the locations and resources it references. Merging is concatenation;
// a location or resource serving two services appears twice.
type Result struct {
	Events    []model.Event
	Resources []model.Resource
	Locations []model.Location
}

// Aggregator generates per-category results from a Source.
type Aggregator struct {
	src       Source
	loc       *time.Location
	dateRange string
}

// New creates an Aggregator. loc is the timezone upstream timestamps
// are parsed in; dateRange, if non-empty, overrides the default window
// of this ISO week through next week.
func New(src Source, loc *time.Location, dateRange string) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{src: src, loc: loc, dateRange: dateRange}
}

// Generate fetches, normalizes and merges one category.
//
// Per-service fetches run concurrently, but results are merged in
// catalog order, never completion order. Any service failure aborts
// the whole category.
func (a *Aggregator) Generate(ctx context.Context, cat config.Category) (Result, error) {
	services, err := a.src.Services(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("aggregate %q: fetch services: %w", cat.Name, err)
	}
	appLog.Info("fetched service catalog", "category", cat.Name, "service_count", len(services))

	relevant := make([]model.Service, 0, len(cat.Services))
	known := make(map[string]bool, len(cat.Services))
	for _, svc := range services {
		if _, ok := cat.Services[svc.Name]; ok {
			relevant = append(relevant, svc)
			known[svc.Name] = true
		}
	}

	// Configured service names that the upstream catalog does not know
	// are configuration errors, not silent no-ops.
	var missing []string
	for name := range cat.Services {
		if !known[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Result{}, fmt.Errorf("aggregate %q: configured services not in upstream catalog: %s",
			cat.Name, strings.Join(missing, ", "))
	}

	results := make([]Result, len(relevant))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, svc := range relevant {
		i, svc := i, svc
		eg.Go(func() error {
			res, err := a.generateService(egCtx, svc, cat.Services[svc.Name])
			if err != nil {
				return fmt.Errorf("aggregate %q: service %q: %w", cat.Name, svc.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, err
	}

	var merged Result
	for _, res := range results {
		merged.Events = append(merged.Events, res.Events...)
		merged.Resources = append(merged.Resources, res.Resources...)
		merged.Locations = append(merged.Locations, res.Locations...)
	}
	return merged, nil
}

// generateService runs one fetch scope: catalog filtering, event fetch,
// normalization and gap synthesis for a single relevant service.
func (a *Aggregator) generateService(ctx context.Context, svc model.Service, locationNames []string) (Result, error) {
	catalog, err := a.src.LocationsAndResources(ctx, svc.ID, nil)
	if err != nil {
		return Result{}, fmt.Errorf("fetch locations and resources: %w", err)
	}

	wanted := make(map[string]bool, len(locationNames))
	for _, name := range locationNames {
		wanted[name] = true
	}

	locations := make([]model.Location, 0, len(locationNames))
	locationIDs := make([]int, 0, len(locationNames))
	found := make(map[string]bool, len(locationNames))
	for _, loc := range catalog.Locations {
		if !wanted[loc.Name] {
			continue
		}
		locations = append(locations, loc)
		locationIDs = append(locationIDs, loc.ID)
		found[loc.Name] = true
	}

	var missing []string
	for _, name := range locationNames {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Result{}, fmt.Errorf("configured locations not offered for this service: %s",
			strings.Join(missing, ", "))
	}

	inLocation := make(map[int]bool, len(locationIDs))
	for _, id := range locationIDs {
		inLocation[id] = true
	}
	resources := make([]model.Resource, 0, len(catalog.Resources))
	resourceIDs := make([]int, 0, len(catalog.Resources))
	for _, res := range catalog.Resources {
		if !inLocation[res.Location] {
			continue
		}
		resources = append(resources, res)
		resourceIDs = append(resourceIDs, res.ID)
	}
	appLog.Info("filtered catalog",
		"service", svc.Name,
		"locations", len(locations),
		"resources", len(resources),
	)

	raw, err := a.src.ReservationEvents(ctx, liikunta.EventQuery{
		ServiceID:   svc.ID,
		LocationIDs: locationIDs,
		ResourceIDs: resourceIDs,
		DateRange:   a.dateRange,
	})
	if err != nil {
		return Result{}, fmt.Errorf("fetch reservation events: %w", err)
	}

	events, err := timeline.Normalize(raw, a.loc)
	if err != nil {
		return Result{}, err
	}
	events = timeline.FillGaps(events)

	return Result{Events: events, Resources: resources, Locations: locations}, nil
}
