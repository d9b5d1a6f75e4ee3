package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/climate-quest/internal/climate"
)

// DefaultPowerURL is the public NASA POWER daily point endpoint.
const DefaultPowerURL = "https://power.larc.nasa.gov/api/temporal/daily/point"

var powerParameters = []climate.Variable{
	climate.VarTemperature,
	climate.VarMaxTemperature,
	climate.VarMinTemperature,
	climate.VarHumidity,
	climate.VarWindSpeed,
	climate.VarPressure,
	climate.VarSolarRadiation,
	climate.VarPrecipitation,
}

// PowerProvider queries NASA POWER directly and adapts its GeoJSON answer to
// the provider envelope.
type PowerProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewPowerProvider(client *http.Client, baseURL string) *PowerProvider {
	if baseURL == "" {
		baseURL = DefaultPowerURL
	}
	return &PowerProvider{
		name:    "nasa-power",
		baseURL: baseURL,
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("nasa-power"),
	}
}

func (p *PowerProvider) Name() string {
	return p.name
}

func (p *PowerProvider) Fetch(ctx context.Context, q climate.Query) (*climate.Response, error) {
	names := make([]string, len(powerParameters))
	for i, v := range powerParameters {
		names[i] = string(v)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("parameters", strings.Join(names, ","))
		values.Set("community", "RE")
		values.Set("latitude", strconv.FormatFloat(q.Location.Lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(q.Location.Lon, 'f', -1, 64))
		values.Set("start", q.Range.Start.UTC().Format(climate.DateLayout))
		values.Set("end", q.Range.End.UTC().Format(climate.DateLayout))
		values.Set("format", "JSON")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Parameter map[string]map[string]float64 `json:"parameter"`
		} `json:"properties"`
		Messages []string `json:"messages"`
	}
	if err := decodeJSON(resp, &payload); err != nil {
		return nil, err
	}

	if len(payload.Properties.Parameter) == 0 {
		return &climate.Response{
			Code:        http.StatusNoContent,
			Description: strings.Join(payload.Messages, "; "),
		}, nil
	}

	data := &climate.Payload{}
	data.Coordinates.Lat = strconv.FormatFloat(q.Location.Lat, 'f', -1, 64)
	data.Coordinates.Lon = strconv.FormatFloat(q.Location.Lon, 'f', -1, 64)
	data.Range.Start = q.Range.Start.UTC().Format(climate.DateLayout)
	data.Range.End = q.Range.End.UTC().Format(climate.DateLayout)
	for _, v := range powerParameters {
		values, ok := payload.Properties.Parameter[string(v)]
		if !ok {
			continue
		}
		data.Parameters = append(data.Parameters, climate.Parameter{Variable: v, Values: values})
	}

	return &climate.Response{Code: climate.StatusOK, Description: "OK", Data: data}, nil
}
