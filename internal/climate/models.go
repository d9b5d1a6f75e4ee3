package climate

import (
	"fmt"
	"time"
)

// Variable is a provider variable code.
type Variable string

const (
	VarTemperature    Variable = "T2M"
	VarMaxTemperature Variable = "T2M_MAX"
	VarMinTemperature Variable = "T2M_MIN"
	VarHumidity       Variable = "RH2M"
	VarWindSpeed      Variable = "WS2M"
	VarPressure       Variable = "PS"
	VarSolarRadiation Variable = "ALLSKY_SFC_SW_DWN"
	VarPrecipitation  Variable = "PRECTOTCORR"
)

// ScalarVariables are the variables every usable snapshot must carry.
var ScalarVariables = []Variable{
	VarTemperature,
	VarHumidity,
	VarWindSpeed,
	VarPressure,
	VarSolarRadiation,
	VarMaxTemperature,
	VarMinTemperature,
}

// SeriesVariables are materialized as time series for trend questions.
var SeriesVariables = []Variable{
	VarTemperature,
	VarHumidity,
	VarWindSpeed,
	VarPrecipitation,
}

// Location is a point on the map.
type Location struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Key returns the location rounded to roughly 100 m, used to index stores.
func (l Location) Key() string {
	return fmt.Sprintf("%.3f:%.3f", l.Lat, l.Lon)
}

// Sample is one dated reading.
type Sample struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a date-ascending, non-empty list of samples.
type Series []Sample

// First returns the oldest sample.
func (s Series) First() Sample { return s[0] }

// Last returns the newest sample.
func (s Series) Last() Sample { return s[len(s)-1] }

// Snapshot is a normalized climate reading for a location. All scalar fields
// are finite; Series entries are optional.
type Snapshot struct {
	Location       Location  `json:"location"`
	ResolvedAt     time.Time `json:"resolvedAt"`
	Temperature    float64   `json:"temperature"`    // °C
	Humidity       float64   `json:"humidity"`       // %
	WindSpeed      float64   `json:"windSpeed"`      // m/s
	Pressure       float64   `json:"pressure"`       // kPa
	SolarRadiation float64   `json:"solarRadiation"` // kWh/m²/day
	MaxTemp        float64   `json:"maxTemp"`        // °C
	MinTemp        float64   `json:"minTemp"`        // °C

	Series map[Variable]Series `json:"series,omitempty"`
}

// SeriesFor returns the series for v and whether it holds at least min samples.
func (s Snapshot) SeriesFor(v Variable, min int) (Series, bool) {
	series, ok := s.Series[v]
	if !ok || len(series) < min {
		return nil, false
	}
	return series, true
}

// Clone returns a deep copy so consumers never share series backing arrays.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Series != nil {
		out.Series = make(map[Variable]Series, len(s.Series))
		for k, v := range s.Series {
			out.Series[k] = append(Series(nil), v...)
		}
	}
	return out
}
