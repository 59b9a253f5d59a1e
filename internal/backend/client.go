// Package backend is the HTTP client for the network element store. It is the
// only place where the store's [lng,lat] pairs are converted.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fibermap/editor-go/internal/geo"
	"fibermap/editor-go/internal/network"
)

var (
	// ErrNotFound is returned when the store has no matching element.
	ErrNotFound = errors.New("backend: element not found")
	// ErrMalformed wraps a 2xx answer whose body could not be decoded.
	ErrMalformed = errors.New("backend: malformed response")
)

// APIError is a non-2xx answer from the store.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: http %d", e.Status)
	}
	return fmt.Sprintf("backend: http %d: %s", e.Status, e.Message)
}

// Nearest is the element a nearby lookup resolved to.
type Nearest struct {
	ID          string
	Coordinates []geo.Coordinate
}

type Client struct {
	log     zerolog.Logger
	baseURL string
	http    *http.Client
}

func New(log zerolog.Logger, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		log:     log,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// NearestPointToPoint resolves the point-to-point line closest to target.
func (c *Client) NearestPointToPoint(ctx context.Context, target geo.Coordinate) (Nearest, error) {
	var body ptpLookup
	if err := c.get(ctx, "/ptp-connection", coordinatesQuery(target), &body); err != nil {
		return Nearest{}, err
	}
	loc := body.Data.Location
	if loc == nil {
		return Nearest{}, nil
	}
	return Nearest{ID: string(loc.ID), Coordinates: geo.FromLngLats(loc.Coordinates)}, nil
}

// NearestSplitter resolves the splitter whose last point is closest to target.
func (c *Client) NearestSplitter(ctx context.Context, target geo.Coordinate) (Nearest, error) {
	var body splitterLookup
	if err := c.get(ctx, "/splitter-connection", coordinatesQuery(target), &body); err != nil {
		return Nearest{}, err
	}
	lp := body.Data.LastPoint
	if lp == nil {
		return Nearest{}, nil
	}
	n := Nearest{ID: string(lp.ID)}
	if lp.Coordinates != nil {
		n.Coordinates = []geo.Coordinate{geo.Coordinate(*lp.Coordinates)}
	}
	return n, nil
}

// ListElements fetches every stored element.
func (c *Client) ListElements(ctx context.Context) ([]network.Element, error) {
	var body struct {
		Data []wireElement `json:"data"`
	}
	if err := c.get(ctx, "/getAllConnection", nil, &body); err != nil {
		return nil, err
	}
	out := make([]network.Element, 0, len(body.Data))
	for _, w := range body.Data {
		out = append(out, w.toElement())
	}
	return out, nil
}

// CreateElement posts a new element and returns the stored record.
func (c *Client) CreateElement(ctx context.Context, p network.Payload) (network.Element, error) {
	spec, ok := network.SpecFor(p.Kind)
	if !ok {
		return network.Element{}, fmt.Errorf("backend: unknown kind %q", p.Kind)
	}
	payload, err := payloadBody(p)
	if err != nil {
		return network.Element{}, err
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return network.Element{}, err
	}

	var body struct {
		Data *wireElement `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/"+spec.Endpoint+"-connection", nil, bytes.NewReader(b), &body); err != nil {
		return network.Element{}, err
	}
	if body.Data == nil {
		return network.Element{}, errors.New("backend: create response carried no element")
	}
	e := body.Data.toElement()
	if e.Kind == "" {
		e.Kind = p.Kind
	}
	if len(e.Coordinates) == 0 {
		e.Coordinates = geo.Clone(p.Coordinates)
	}
	return e, nil
}

// DeleteElement removes an element by id.
func (c *Client) DeleteElement(ctx context.Context, kind network.Kind, id string) error {
	spec, ok := network.SpecFor(kind)
	if !ok {
		return fmt.Errorf("backend: unknown kind %q", kind)
	}
	q := url.Values{}
	q.Set("id", id)
	return c.do(ctx, http.MethodDelete, "/"+spec.Endpoint+"-connection", q, nil, nil)
}

func coordinatesQuery(target geo.Coordinate) url.Values {
	b, _ := json.Marshal(target)
	q := url.Values{}
	q.Set("coordinates", string(b))
	return q
}

func (c *Client) get(ctx context.Context, path string, q url.Values, dst any) error {
	return c.do(ctx, http.MethodGet, path, q, nil, dst)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body io.Reader, dst any) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("backend_request")

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if dst == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", ErrMalformed, method, path, err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(b) == 0 {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(b, &body); err != nil {
		return ""
	}
	if len(body.Errors) > 0 && body.Errors[0].Msg != "" {
		return body.Errors[0].Msg
	}
	return body.Message
}
