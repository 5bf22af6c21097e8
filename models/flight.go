package models

import "time"

// Query is one (date, departure, arrival) combination searched on the site.
type Query struct {
	Date      string
	Departure string
	Arrival   string
}

func (q Query) String() string {
	return q.Date + " " + q.Departure + "→" + q.Arrival
}

// RawRow is a single listing row as read off the results page, before any
// normalization. Times are already in canonical clock form.
type RawRow struct {
	DepartTime  string
	ArriveTime  string
	DurationRaw string
	Prices      []int
}

// ItineraryKey identifies a scheduled flight offer independent of price.
type ItineraryKey struct {
	Date       string
	DepartCity string
	ArriveCity string
	DepartTime string
	ArriveTime string
	Duration   string
}

// Observation is an itinerary key with the best fare seen for it.
type Observation struct {
	ItineraryKey
	BestPrice int
}

// PriceDrop is a batch observation priced strictly below every price ever
// logged for its key.
type PriceDrop struct {
	Observation
	PreviousBest int
	LastSeen     int
}

// Report summarises one full pass over a trip config.
type Report struct {
	Trip          string
	LogPath       string
	StartedAt     time.Time
	FinishedAt    time.Time
	Queries       int
	QueriesEmpty  int
	QueriesFailed int
	RowsDropped   int
	BatchSize     int
	LogSize       int
	NewEntries    []Observation
	NewLows       []PriceDrop
}

// HasNews reports whether the pass found anything worth notifying about.
func (r *Report) HasNews() bool {
	return len(r.NewEntries) > 0 || len(r.NewLows) > 0
}
