package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/i474232898/climate-quest/internal/climate"
)

// DefaultMiddlewareURL is the hosted NASA POWER middleware.
const DefaultMiddlewareURL = "https://nasa-middleware-n13t.vercel.app/api/nasa-data.js"

// MiddlewareProvider queries the NASA POWER middleware, which already
// answers in the {code, description, data} envelope.
type MiddlewareProvider struct {
	name    string
	baseURL string
	grid    bool
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewMiddlewareProvider builds a provider for baseURL (DefaultMiddlewareURL
// when empty). grid asks the middleware for gridded values.
func NewMiddlewareProvider(client *http.Client, baseURL string, grid bool) *MiddlewareProvider {
	if baseURL == "" {
		baseURL = DefaultMiddlewareURL
	}
	return &MiddlewareProvider{
		name:    "nasa-middleware",
		baseURL: baseURL,
		grid:    grid,
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("nasa-middleware"),
	}
}

func (p *MiddlewareProvider) Name() string {
	return p.name
}

func (p *MiddlewareProvider) Fetch(ctx context.Context, q climate.Query) (*climate.Response, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(q.Location.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(q.Location.Lon, 'f', -1, 64))
		values.Set("start", q.Range.Start.UTC().Format(climate.DateLayout))
		values.Set("end", q.Range.End.UTC().Format(climate.DateLayout))
		if p.grid {
			values.Set("grid", "1")
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}

	var payload climate.Response
	if err := decodeJSON(resp, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
