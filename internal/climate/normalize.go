package climate

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// fillValue marks a missing reading in NASA POWER data.
const fillValue = -999

// Normalize validates a provider response and turns it into a Snapshot.
// Scalars take the value of the newest valid date; tracked variables are also
// materialized as date-ascending series. A missing scalar fails the whole
// response rather than defaulting to zero.
func Normalize(loc Location, resp *Response, now time.Time) (Snapshot, error) {
	if err := checkResponse(resp); err != nil {
		return Snapshot{}, err
	}

	params := make(map[Variable]Series, len(resp.Data.Parameters))
	for _, p := range resp.Data.Parameters {
		if s := toSeries(p.Values); len(s) > 0 {
			params[p.Variable] = s
		}
	}

	latest := func(v Variable) (float64, error) {
		s, ok := params[v]
		if !ok {
			return 0, logicalError{fmt.Errorf("%w: %s missing", ErrIncompleteSnapshot, v)}
		}
		return s.Last().Value, nil
	}

	snap := Snapshot{Location: loc, ResolvedAt: now.UTC()}
	targets := map[Variable]*float64{
		VarTemperature:    &snap.Temperature,
		VarHumidity:       &snap.Humidity,
		VarWindSpeed:      &snap.WindSpeed,
		VarPressure:       &snap.Pressure,
		VarSolarRadiation: &snap.SolarRadiation,
		VarMaxTemperature: &snap.MaxTemp,
		VarMinTemperature: &snap.MinTemp,
	}
	for _, v := range ScalarVariables {
		val, err := latest(v)
		if err != nil {
			return Snapshot{}, err
		}
		*targets[v] = val
	}

	for _, v := range SeriesVariables {
		if s, ok := params[v]; ok {
			if snap.Series == nil {
				snap.Series = make(map[Variable]Series)
			}
			snap.Series[v] = s
		}
	}

	return snap, nil
}

func checkResponse(resp *Response) error {
	if resp == nil {
		return logicalError{ErrEmptyPayload}
	}
	if resp.Code != StatusOK {
		return logicalError{fmt.Errorf("%w: %d %s", ErrBadStatus, resp.Code, resp.Description)}
	}
	if resp.Data == nil {
		return logicalError{ErrEmptyPayload}
	}
	return nil
}

// toSeries sorts dated values ascending, dropping unparsable dates, fill
// values and non-finite numbers.
func toSeries(values map[string]float64) Series {
	out := make(Series, 0, len(values))
	for key, v := range values {
		if v == fillValue || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		d, err := time.Parse(DateLayout, key)
		if err != nil {
			continue
		}
		out = append(out, Sample{Date: d, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
