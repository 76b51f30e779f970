// Package geocode looks up free-text place names against a public
// Nominatim-compatible service. It is a read-only convenience for centering
// the map and carries no consistency requirement with report data.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// MinQueryLength is the minimum input before any lookup is issued.
const MinQueryLength = 3

// maxResults caps candidate places per lookup.
const maxResults = 5

// Place is one candidate returned by the geocoder.
type Place struct {
	PlaceID     json.Number `json:"place_id"`
	DisplayName string      `json:"display_name"`
	Lat         string      `json:"lat"`
	Lon         string      `json:"lon"`
}

// Coordinates parses the place's latitude and longitude.
func (p Place) Coordinates() (lat, lon float64, err error) {
	lat, err = strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err = strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	return lat, lon, nil
}

// Client queries the geocoding service, memoizing recent lookups so repeated
// keystroke patterns don't hammer the third party.
type Client struct {
	baseURL     string
	countryCode string
	http        *http.Client
	logger      *zap.SugaredLogger

	mu    sync.Mutex
	cache map[string]cacheEntry
	ttl   time.Duration
	clock func() time.Time
}

type cacheEntry struct {
	places  []Place
	expires time.Time
}

// New creates a geocoder client. countryCode restricts results, e.g. "gh".
func New(baseURL, countryCode string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	return &Client{
		baseURL:     baseURL,
		countryCode: countryCode,
		http:        &http.Client{Timeout: timeout},
		logger:      logger,
		cache:       map[string]cacheEntry{},
		ttl:         time.Minute,
		clock:       time.Now,
	}
}

// Search returns up to 5 candidate places for the query. Queries shorter
// than MinQueryLength yield an empty result without touching the network.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []Place{}, nil
	}

	if places, ok := c.cached(query); ok {
		return places, nil
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(maxResults))
	if c.countryCode != "" {
		q.Set("countrycodes", c.countryCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}
	req.Header.Set("Accept-Language", "en")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	var places []Place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("geocode: decode: %w", err)
	}
	if len(places) > maxResults {
		places = places[:maxResults]
	}

	c.store(query, places)
	return places, nil
}

func (c *Client) cached(query string) ([]Place, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[query]
	if !ok || c.clock().After(entry.expires) {
		delete(c.cache, query)
		return nil, false
	}
	return entry.places, true
}

func (c *Client) store(query string, places []Place) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[query] = cacheEntry{places: places, expires: c.clock().Add(c.ttl)}
}
