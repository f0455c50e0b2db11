// Package liikunta talks to the Helsinki sports-facility reservation
// API ("liikuntakauppa"). It returns typed raw records; normalization
// into the canonical event model happens in internal/timeline.
package liikunta

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"

	"vuorokal/internal/dates"
	"vuorokal/internal/fsutil"
	appLog "vuorokal/internal/log"
	"vuorokal/internal/model"
)

const (
	servicesEndpoint = "getreservationservices"
	catalogEndpoint  = "getcalendarregionlocationresourcebyservice"
	eventsEndpoint   = "getreservationevents"
)

// Client fetches reservation data from the upstream API.
type Client struct {
	httpClient *http.Client
	baseURL    string

	// rawDir, when non-empty, receives a dump of every raw response
	// body for debugging. The directory is created on demand.
	rawDir string

	// maxRetries bounds the retry loop around each request. 0 means a
	// single attempt.
	maxRetries int
}

// NewClient creates a new upstream API client.
//
// baseURL is the API root, e.g. "https://liikuntakauppa.hel.fi/helsinginkaupunki".
func NewClient(baseURL, rawDir string, maxRetries int) *Client {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		rawDir:     rawDir,
		maxRetries: maxRetries,
	}
}

// Services returns the full service catalog. Placeholder entries
// without a numeric service id are dropped.
func (c *Client) Services(ctx context.Context) ([]model.Service, error) {
	body, err := c.post(ctx, servicesEndpoint, []any{})
	if err != nil {
		return nil, err
	}
	c.dumpRaw(body, "services.json")

	var resp servicesResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("liikunta: unexpected services response shape: %w", err)
	}

	services := make([]model.Service, 0, len(resp.Result))
	for _, rec := range resp.Result {
		if rec.ServiceID == nil {
			continue
		}
		services = append(services, model.Service{ID: *rec.ServiceID, Name: rec.Name})
	}
	return services, nil
}

// LocationsAndResources returns the locations and resources where the
// given service is available, optionally restricted to a location-id
// set. Only leaf resources (no children) belonging to the service are
// returned.
func (c *Client) LocationsAndResources(ctx context.Context, serviceID int, locationIDs []int) (Catalog, error) {
	if serviceID == 0 {
		return Catalog{}, errors.New("liikunta: serviceID is a required parameter for LocationsAndResources")
	}

	content := []map[string]int{{"service_id": serviceID}}
	body, err := c.post(ctx, catalogEndpoint, content)
	if err != nil {
		return Catalog{}, err
	}
	c.dumpRaw(body, strconv.Itoa(serviceID), "locations-and-resources.json")

	var resp catalogResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return Catalog{}, fmt.Errorf("liikunta: unexpected catalog response shape: %w", err)
	}

	wanted := make(map[int]bool, len(locationIDs))
	for _, id := range locationIDs {
		wanted[id] = true
	}
	keep := func(locationID int) bool {
		return len(wanted) == 0 || wanted[locationID]
	}

	var catalog Catalog
	for _, loc := range resp.Result.Locations {
		if !keep(loc.ID) {
			continue
		}
		catalog.Locations = append(catalog.Locations, model.Location{ID: loc.ID, Name: loc.ItemName})
	}
	for _, res := range resp.Result.Resources {
		if !keep(res.LocationID) {
			continue
		}
		if res.ServiceID != serviceID {
			continue
		}
		// Leaf resources only; aggregates carry a children list.
		if res.Children != nil {
			continue
		}
		catalog.Resources = append(catalog.Resources, model.Resource{
			ID:       res.ID,
			Name:     res.ItemName,
			Location: res.LocationID,
		})
	}
	return catalog, nil
}

// ReservationEvents returns the raw reservation records for the query.
func (c *Client) ReservationEvents(ctx context.Context, q EventQuery) ([]RawEvent, error) {
	if q.ServiceID == 0 {
		return nil, errors.New("liikunta: ServiceID is a required parameter for ReservationEvents")
	}

	dateRange := q.DateRange
	if dateRange == "" {
		dateRange = dates.DefaultRange(time.Now())
	}

	content := []map[string]any{{
		"service_id":          q.ServiceID,
		"location_id":         joinIDs(q.LocationIDs),
		"resource_id":         joinIDs(q.ResourceIDs),
		"date":                dateRange,
		"skip_related_events": true,
	}}

	appLog.Info("fetching reservation events",
		"service_id", q.ServiceID,
		"locations", len(q.LocationIDs),
		"resources", len(q.ResourceIDs),
		"date_range", dateRange,
	)

	body, err := c.post(ctx, eventsEndpoint, content)
	if err != nil {
		return nil, err
	}

	var resp eventsResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("liikunta: unexpected events response shape: %w", err)
	}
	return resp.Result, nil
}

// post sends one form-encoded API call and returns the response body.
func (c *Client) post(ctx context.Context, endpoint string, content any) ([]byte, error) {
	payload, err := sonic.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("liikunta: marshal content for %s: %w", endpoint, err)
	}

	form := url.Values{}
	form.Set("input_format", "json")
	form.Set("output_format", "json")
	form.Set("_normalize", "true")
	form.Set("content", string(payload))
	reqBody := form.Encode()

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/call/asiointi/"+endpoint, strings.NewReader(reqBody))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json, text/plain, */*")
		req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("liikunta: %s: %w", endpoint, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("liikunta: %s: status code error: %d %s", endpoint, resp.StatusCode, resp.Status)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("liikunta: %s: read body: %w", endpoint, err)
		}
		return nil
	}

	err = backoff.Retry(
		operation,
		backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewConstantBackOff(500*time.Millisecond), uint64(c.maxRetries)),
			ctx,
		),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// dumpRaw writes a raw response body under the raw-files directory.
// Dump failures are logged, never fatal.
func (c *Client) dumpRaw(body []byte, pathElements ...string) {
	if c.rawDir == "" {
		return
	}

	elements := append([]string{c.rawDir}, pathElements[:len(pathElements)-1]...)
	dir, err := fsutil.Mkdir(elements...)
	if err != nil {
		appLog.Error("raw dump directory creation failed", err, "dir", filepath.Join(elements...))
		return
	}

	target := filepath.Join(dir, pathElements[len(pathElements)-1])
	if err := os.WriteFile(target, body, 0o644); err != nil {
		appLog.Error("raw dump write failed", err, "path", target)
	}
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
