// Package geocode resolves free-text place names to coordinates.
// It is used when newly inserted chapters are committed; a place that cannot
// be resolved aborts the whole commit.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkordes/tripline/internal/domain"
)

// Geocoder resolves a place name to a point.
// Implementations return a *domain.LocationError wrapping domain.ErrGeocoding
// when the place does not resolve; other errors are infrastructure failures.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (domain.Point, error)
}

// Nominatim is a Geocoder backed by the OpenStreetMap Nominatim search API.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNominatim constructs a Nominatim client for baseURL (e.g.
// "https://nominatim.openstreetmap.org"). The usage policy requires an
// identifying userAgent. A nil client gets a 10 second timeout.
func NewNominatim(baseURL, userAgent string, client *http.Client) *Nominatim {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Nominatim{baseURL: strings.TrimRight(baseURL, "/"), userAgent: userAgent, client: client}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode returns the best match for place.
func (n *Nominatim) Geocode(ctx context.Context, place string) (domain.Point, error) {
	q := url.Values{}
	q.Set("q", place)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return domain.Point{}, fmt.Errorf("geocode.Nominatim.Geocode: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return domain.Point{}, fmt.Errorf("geocode.Nominatim.Geocode: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return domain.Point{}, fmt.Errorf("geocode.Nominatim.Geocode: upstream status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return domain.Point{}, locationError(place, fmt.Errorf("%w: status %d", domain.ErrGeocoding, resp.StatusCode))
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.Point{}, fmt.Errorf("geocode.Nominatim.Geocode: decode: %w", err)
	}
	if len(results) == 0 {
		return domain.Point{}, locationError(place, fmt.Errorf("%w: no match", domain.ErrGeocoding))
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lng, errLng := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLng != nil {
		return domain.Point{}, fmt.Errorf("geocode.Nominatim.Geocode: malformed coordinates %q,%q", results[0].Lat, results[0].Lon)
	}
	return domain.Point{Lat: lat, Lng: lng}, nil
}

func locationError(place string, err error) error {
	return fmt.Errorf("geocode.Nominatim.Geocode: %w", &domain.LocationError{Location: place, Err: err})
}

// Cached wraps g so each place name is resolved at most once per process.
// Only successful lookups are remembered.
func Cached(g Geocoder) Geocoder {
	return &cached{next: g}
}

type cached struct {
	next Geocoder
	hits sync.Map // normalised place -> domain.Point
}

func (c *cached) Geocode(ctx context.Context, place string) (domain.Point, error) {
	key := strings.ToLower(strings.TrimSpace(place))
	if p, ok := c.hits.Load(key); ok {
		return p.(domain.Point), nil
	}
	p, err := c.next.Geocode(ctx, place)
	if err != nil {
		return domain.Point{}, err
	}
	c.hits.Store(key, p)
	return p, nil
}
