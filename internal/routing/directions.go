package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fibermap/editor-go/internal/geo"
)

// ModeWalking is the travel mode splitter drops are routed with.
const ModeWalking = "walking"

// ErrNoRoute is returned when the directions service finds no route.
var ErrNoRoute = errors.New("routing: no route found")

// Directions talks to a Google Directions compatible endpoint.
type Directions struct {
	log     zerolog.Logger
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewDirections(log zerolog.Logger, baseURL, apiKey string, timeout time.Duration) *Directions {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Directions{
		log:     log,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
	} `json:"routes"`
}

// Route returns the overview path of the first route between origin and
// destination.
func (d *Directions) Route(ctx context.Context, origin, destination geo.Coordinate, mode string) ([]geo.Coordinate, error) {
	if d.baseURL == "" {
		return nil, errors.New("routing: directions url not configured")
	}
	if mode == "" {
		mode = ModeWalking
	}

	q := url.Values{}
	q.Set("origin", origin.String())
	q.Set("destination", destination.String())
	q.Set("mode", mode)
	if d.apiKey != "" {
		q.Set("key", d.apiKey)
	}
	endpoint := d.baseURL + "/maps/api/directions/json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("routing: directions request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routing: directions returned http %d", resp.StatusCode)
	}

	var body directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("routing: decode directions: %w", err)
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, ErrNoRoute
	default:
		d.log.Warn().Str("status", body.Status).Str("message", body.ErrorMessage).Msg("directions request rejected")
		return nil, fmt.Errorf("routing: directions status %s", body.Status)
	}
	if len(body.Routes) == 0 {
		return nil, ErrNoRoute
	}

	path, err := geo.DecodePolyline(body.Routes[0].OverviewPolyline.Points)
	if err != nil {
		return nil, fmt.Errorf("routing: %w", err)
	}
	if len(path) == 0 {
		return nil, ErrNoRoute
	}
	return path, nil
}
