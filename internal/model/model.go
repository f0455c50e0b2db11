package model

import "time"

// Service identifies a bookable activity category in the upstream
// reservation system (e.g. "Koripallo"). Fetched fresh on every run.
type Service struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Location is a physical venue (e.g. "Töölön kisahalli").
type Location struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Resource is a specific bookable unit (a court, a rink) within a
// location. Only leaf resources are ever retained; aggregate/parent
// resources are excluded at fetch time.
type Resource struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Location int    `json:"location"`
}

// Event is the canonical unit of the timeline: one reservation, block,
// or synthesized free-time interval on a single resource.
//
// Date, Starttime and Endtime are display strings derived from the raw
// upstream timestamps; a literal trailing ":00" seconds component is
// stripped from the time strings ("19:00:00" becomes "19:00").
type Event struct {
	ReservationTypeID    int    `json:"reservation_type_id"`
	ReservationTypeName  string `json:"reservation_type_name"`
	ReservationGroupName string `json:"reservation_group_name"`

	ResourceID int    `json:"resource_id"`
	LocationID int    `json:"location_id"`
	ServiceID  int    `json:"service_id"`
	Service    string `json:"service"`

	Title string `json:"title"`

	Date      string    `json:"date"` // YYYY-MM-DD
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Starttime string    `json:"starttime"` // HH:MM
	Endtime   string    `json:"endtime"`   // HH:MM

	// Available is derived, not upstream-provided: a public, bookable
	// slot that is not closed or under maintenance.
	Available bool `json:"available"`
}
