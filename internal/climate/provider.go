package climate

import (
	"context"
	"time"
)

// StatusOK is the provider status code for a successful response.
const StatusOK = 200

// DateLayout is the provider date format.
const DateLayout = "20060102"

// DefaultWindow is the trailing range queried when no bounds are given.
const DefaultWindow = 7 * 24 * time.Hour

// DateRange bounds a provider query, inclusive on both ends.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// TrailingWindow returns the range of the last DefaultWindow ending at now.
func TrailingWindow(now time.Time) DateRange {
	now = now.UTC()
	return DateRange{Start: now.Add(-DefaultWindow), End: now}
}

// Query is one provider request.
type Query struct {
	Location Location
	Range    DateRange
}

// Parameter is one variable with its per-date values (keyed YYYYMMDD).
type Parameter struct {
	Variable Variable           `json:"variable"`
	Values   map[string]float64 `json:"values"`
}

// Payload is the data part of a provider response.
type Payload struct {
	Coordinates struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	} `json:"coordinates"`
	Range struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"range"`
	Parameters []Parameter `json:"parameters"`
}

// Response is the raw provider answer. Only Code == StatusOK with a non-nil
// Data counts as success.
type Response struct {
	Code        int      `json:"code"`
	Description string   `json:"description"`
	Data        *Payload `json:"data"`
}

// Provider abstracts a climate data source.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, q Query) (*Response, error)
}
