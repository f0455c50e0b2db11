package liikunta

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const servicesPayload = `{
  "result": [
    { "name": "---" },
    { "service_id": 66, "name": "Muu toiminta" },
    { "service_id": 73, "name": "Koripallo" }
  ]
}`

const catalogPayload = `{
  "result": {
    "locations": [
      { "id": 10, "itemName": "Töölön kisahalli", "region_name": "Länsi", "region_id": 4 },
      { "id": 11, "itemName": "Liikuntamylly", "region_name": "Itä", "region_id": 3 }
    ],
    "regions": [
      { "id": 4, "itemName": "Länsi", "location_id": 46 }
    ],
    "resources": [
      { "location_id": 10, "service_id": 73, "parents": null, "children": "158,159", "id": 641, "itemName": "Töölön kisahalli" },
      { "location_id": 10, "service_id": 73, "parents": "641", "children": null, "id": 158, "itemName": "Kisahalli A koripallokenttä" },
      { "location_id": 10, "service_id": 73, "parents": "641", "children": null, "id": 159, "itemName": "Kisahalli B koripallokenttä" },
      { "location_id": 10, "service_id": 66, "parents": "641", "children": null, "id": 160, "itemName": "Kisahalli kuntosali" },
      { "location_id": 11, "service_id": 73, "parents": null, "children": null, "id": 200, "itemName": "Myllysali" }
    ]
  }
}`

const eventsPayload = `{
  "result": [
    {
      "type": "reservation",
      "reservation_type_id": 3,
      "service_id": 73,
      "location_id": 10,
      "reservation_type_name": "Vakiovuoro",
      "reservation_group_name": "Aikuiset (yli 20-vuotiaat)",
      "resource_id": 158,
      "showtitle": "Aikuiset (yli 20-vuotiaat)",
      "title": "Police Basket ry",
      "service": "Koripallo",
      "start": "2024-12-09 19:00:00",
      "end": "2024-12-09 20:30:00",
      "status": "blocked"
    }
  ]
}`

// fakeAPI asserts the request envelope and returns the payload mapped
// to the endpoint path.
func fakeAPI(t *testing.T, payloads map[string]string, content *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("bad form body: %v", err)
		}
		for key, want := range map[string]string{
			"input_format":  "json",
			"output_format": "json",
			"_normalize":    "true",
		} {
			if got := r.PostFormValue(key); got != want {
				t.Errorf("form %s = %q, expected %q", key, got, want)
			}
		}
		if content != nil {
			*content = r.PostFormValue("content")
		}

		payload, ok := payloads[filepath.Base(r.URL.Path)]
		if !ok {
			t.Errorf("unexpected endpoint %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
}

func TestServices(t *testing.T) {
	var content string
	srv := fakeAPI(t, map[string]string{servicesEndpoint: servicesPayload}, &content)
	defer srv.Close()

	client := NewClient(srv.URL, "", 0)
	services, err := client.Services(context.Background())
	if err != nil {
		t.Fatalf("Services failed: %v", err)
	}

	if content != "[]" {
		t.Errorf("content = %q, expected empty JSON array", content)
	}

	// The "---" placeholder has no id and must be dropped.
	if len(services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(services))
	}
	if services[0].ID != 66 || services[0].Name != "Muu toiminta" {
		t.Errorf("unexpected first service: %+v", services[0])
	}
	if services[1].ID != 73 || services[1].Name != "Koripallo" {
		t.Errorf("unexpected second service: %+v", services[1])
	}
}

func TestLocationsAndResources(t *testing.T) {
	t.Run("requires a service id", func(t *testing.T) {
		client := NewClient("http://unused.invalid", "", 0)
		if _, err := client.LocationsAndResources(context.Background(), 0, nil); err == nil {
			t.Error("expected an error for a missing service id")
		}
	})

	t.Run("keeps leaf resources of the service", func(t *testing.T) {
		var content string
		srv := fakeAPI(t, map[string]string{catalogEndpoint: catalogPayload}, &content)
		defer srv.Close()

		client := NewClient(srv.URL, "", 0)
		catalog, err := client.LocationsAndResources(context.Background(), 73, nil)
		if err != nil {
			t.Fatalf("LocationsAndResources failed: %v", err)
		}

		if content != `[{"service_id":73}]` {
			t.Errorf("content = %q", content)
		}
		if len(catalog.Locations) != 2 {
			t.Errorf("expected 2 locations, got %d", len(catalog.Locations))
		}
		// 641 is an aggregate (has children), 160 belongs to service 66.
		if len(catalog.Resources) != 3 {
			t.Fatalf("expected 3 resources, got %d: %+v", len(catalog.Resources), catalog.Resources)
		}
		for _, res := range catalog.Resources {
			if res.ID == 641 {
				t.Error("aggregate resource 641 must be excluded")
			}
			if res.ID == 160 {
				t.Error("resource 160 belongs to another service")
			}
		}
	})

	t.Run("restricts to a location id set", func(t *testing.T) {
		srv := fakeAPI(t, map[string]string{catalogEndpoint: catalogPayload}, nil)
		defer srv.Close()

		client := NewClient(srv.URL, "", 0)
		catalog, err := client.LocationsAndResources(context.Background(), 73, []int{11})
		if err != nil {
			t.Fatalf("LocationsAndResources failed: %v", err)
		}
		if len(catalog.Locations) != 1 || catalog.Locations[0].ID != 11 {
			t.Errorf("locations = %+v", catalog.Locations)
		}
		if len(catalog.Resources) != 1 || catalog.Resources[0].ID != 200 {
			t.Errorf("resources = %+v", catalog.Resources)
		}
	})
}

func TestReservationEvents(t *testing.T) {
	var content string
	srv := fakeAPI(t, map[string]string{eventsEndpoint: eventsPayload}, &content)
	defer srv.Close()

	client := NewClient(srv.URL, "", 0)
	events, err := client.ReservationEvents(context.Background(), EventQuery{
		ServiceID:   73,
		LocationIDs: []int{10},
		ResourceIDs: []int{158, 159},
		DateRange:   "2024-W50--2024-W51",
	})
	if err != nil {
		t.Fatalf("ReservationEvents failed: %v", err)
	}

	var query []map[string]any
	if err := json.Unmarshal([]byte(content), &query); err != nil || len(query) != 1 {
		t.Fatalf("content is not a single-element JSON array: %q (%v)", content, err)
	}
	q := query[0]
	if q["location_id"] != "10" || q["resource_id"] != "158,159" {
		t.Errorf("id sets = %v, %v", q["location_id"], q["resource_id"])
	}
	if q["date"] != "2024-W50--2024-W51" {
		t.Errorf("date = %v", q["date"])
	}
	if q["skip_related_events"] != true {
		t.Errorf("skip_related_events = %v", q["skip_related_events"])
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 raw event, got %d", len(events))
	}
	ev := events[0]
	if !ev.HasType() {
		t.Error("expected the type field to be truthy")
	}
	if ev.Title != "Police Basket ry" || ev.ShowTitle != "Aikuiset (yli 20-vuotiaat)" {
		t.Errorf("unexpected titles: %q / %q", ev.Title, ev.ShowTitle)
	}
	if ev.Start != "2024-12-09 19:00:00" {
		t.Errorf("start = %q", ev.Start)
	}
}

func TestPostFailures(t *testing.T) {
	t.Run("non-200 status is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "", 0)
		if _, err := client.Services(context.Background()); err == nil {
			t.Error("expected an error for a 502 response")
		}
	})

	t.Run("retries are bounded by max_retries", func(t *testing.T) {
		attempts := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts == 1 {
				http.Error(w, "flaky", http.StatusInternalServerError)
				return
			}
			w.Write([]byte(servicesPayload))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "", 1)
		if _, err := client.Services(context.Background()); err != nil {
			t.Fatalf("expected the retry to succeed: %v", err)
		}
		if attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", attempts)
		}
	})

	t.Run("zero retries means a single attempt", func(t *testing.T) {
		attempts := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			http.Error(w, "down", http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "", 0)
		if _, err := client.Services(context.Background()); err == nil {
			t.Error("expected the single attempt to fail")
		}
		if attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", attempts)
		}
	})

	t.Run("non-JSON response is a shape error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>maintenance</html>"))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "", 0)
		if _, err := client.Services(context.Background()); err == nil {
			t.Error("expected an error for a non-JSON body")
		}
	})
}

func TestRawDumps(t *testing.T) {
	srv := fakeAPI(t, map[string]string{
		servicesEndpoint: servicesPayload,
		catalogEndpoint:  catalogPayload,
	}, nil)
	defer srv.Close()

	rawDir := filepath.Join(t.TempDir(), "raw")
	client := NewClient(srv.URL, rawDir, 0)

	if _, err := client.Services(context.Background()); err != nil {
		t.Fatalf("Services failed: %v", err)
	}
	if _, err := client.LocationsAndResources(context.Background(), 73, nil); err != nil {
		t.Fatalf("LocationsAndResources failed: %v", err)
	}

	for _, path := range []string{
		filepath.Join(rawDir, "services.json"),
		filepath.Join(rawDir, "73", "locations-and-resources.json"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected raw dump at %s: %v", path, err)
		}
	}
}
