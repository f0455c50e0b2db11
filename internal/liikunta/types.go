package liikunta

import (
	"bytes"
	"encoding/json"

	"vuorokal/internal/model"
)

// Catalog is the location/resource listing returned for one service.
type Catalog struct {
	Locations []model.Location
	Resources []model.Resource
}

// EventQuery scopes a reservation-event fetch to one service and a set
// of locations and resources over an ISO-week date range.
type EventQuery struct {
	ServiceID   int
	LocationIDs []int
	ResourceIDs []int

	// DateRange is an ISO-week span such as "2024-W50--2024-W51". If
	// empty, the default window of this week through next week is used.
	DateRange string
}

// RawEvent is one reservation record as returned by the upstream API,
// before normalization. Start and End are local timestamp strings in
// the form "2006-01-02 15:04:05".
type RawEvent struct {
	Type                 json.RawMessage `json:"type"`
	ReservationTypeID    int             `json:"reservation_type_id"`
	ReservationTypeName  string          `json:"reservation_type_name"`
	ReservationGroupName string          `json:"reservation_group_name"`
	ResourceID           int             `json:"resource_id"`
	LocationID           int             `json:"location_id"`
	ServiceID            int             `json:"service_id"`
	Service              string          `json:"service"`
	Title                string          `json:"title"`
	ShowTitle            string          `json:"showtitle"`
	Start                string          `json:"start"`
	End                  string          `json:"end"`
}

// HasType reports whether the record's type field is set to a truthy
// value. The upstream payload is loosely shaped here, so absent, null,
// empty-string, zero and false all count as unset.
func (e RawEvent) HasType() bool {
	v := bytes.TrimSpace(e.Type)
	switch {
	case len(v) == 0:
		return false
	case bytes.Equal(v, []byte("null")),
		bytes.Equal(v, []byte(`""`)),
		bytes.Equal(v, []byte("0")),
		bytes.Equal(v, []byte("false")):
		return false
	}
	return true
}

// Wire shapes for the three upstream responses.

type servicesResponse struct {
	Result []serviceRecord `json:"result"`
}

type serviceRecord struct {
	// ServiceID is a pointer because the catalog contains a "---"
	// placeholder entry without an id.
	ServiceID *int   `json:"service_id"`
	Name      string `json:"name"`
}

type catalogResponse struct {
	Result catalogRecord `json:"result"`
}

type catalogRecord struct {
	Locations []locationRecord `json:"locations"`
	Resources []resourceRecord `json:"resources"`
}

type locationRecord struct {
	ID       int    `json:"id"`
	ItemName string `json:"itemName"`
}

type resourceRecord struct {
	ID         int     `json:"id"`
	ItemName   string  `json:"itemName"`
	LocationID int     `json:"location_id"`
	ServiceID  int     `json:"service_id"`
	Parents    *string `json:"parents"`
	Children   *string `json:"children"`
}

type eventsResponse struct {
	Result []RawEvent `json:"result"`
}
