package handlers

import (
	"context"
	"net/http"
	"sync"
	"unicode/utf8"

	"github.com/civictide/civicweb/internal/geocode"
	"github.com/civictide/civicweb/internal/session"
	"go.uber.org/zap"
)

// GeocodeHandler answers location search requests. Each session gets its own
// debouncer, so a typing burst from one page collapses into a single upstream
// lookup while the earlier requests are answered as superseded.
type GeocodeHandler struct {
	geocoder *geocode.Client
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	waiters map[string]*geoWaiter
}

type lookupResult struct {
	query  string
	places []geocode.Place
	err    error
}

type geoWaiter struct {
	owner     *GeocodeHandler
	key       string
	debouncer *geocode.Debouncer

	mu      sync.Mutex
	pending chan lookupResult
}

// NewGeocodeHandler creates a geocode handler.
func NewGeocodeHandler(geocoder *geocode.Client, logger *zap.SugaredLogger) *GeocodeHandler {
	return &GeocodeHandler{
		geocoder: geocoder,
		logger:   logger,
		waiters:  map[string]*geoWaiter{},
	}
}

func (h *GeocodeHandler) waiter(key string) *geoWaiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.waiters[key]
	if !ok {
		w = &geoWaiter{owner: h, key: key}
		w.debouncer = geocode.NewDebouncer(h.geocoder, geocode.DefaultQuietPeriod, w.deliver)
		h.waiters[key] = w
	}
	return w
}

// release evicts the waiter once no request is pending on it, so the map
// stays bounded by in-flight sessions rather than growing for the process
// lifetime. A waiter evicted while a lookup is still timed delivers into an
// empty pending slot, which drops the result harmlessly.
func (h *GeocodeHandler) release(key string, w *geoWaiter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.waiters[key] != w {
		return
	}
	w.mu.Lock()
	idle := w.pending == nil
	w.mu.Unlock()
	if idle {
		delete(h.waiters, key)
	}
}

// arm registers the caller as the one waiting request for this session. A
// previously armed request is released empty-handed.
func (w *geoWaiter) arm() chan lookupResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		close(w.pending)
	}
	ch := make(chan lookupResult, 1)
	w.pending = ch
	return ch
}

func (w *geoWaiter) deliver(query string, places []geocode.Place, err error) {
	w.mu.Lock()
	if w.pending != nil {
		w.pending <- lookupResult{query: query, places: places, err: err}
		close(w.pending)
		w.pending = nil
	}
	w.mu.Unlock()
	w.owner.release(w.key, w)
}

// Search handles GET /api/geocode?q=. Queries below the minimum length are
// answered immediately; anything longer is held until the session's input
// goes quiet, then resolved against the geocoder.
func (h *GeocodeHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if utf8.RuneCountInString(query) < geocode.MinQueryLength {
		respondJSON(w, http.StatusOK, map[string]any{"places": []geocode.Place{}})
		return
	}

	key := session.ID(r)
	if key == "" {
		key = r.RemoteAddr
	}

	wt := h.waiter(key)
	defer h.release(key, wt)
	ch := wt.arm()
	// The lookup may fire after this request has been superseded, so it
	// must not ride on the request context.
	wt.debouncer.Push(context.Background(), query)

	select {
	case result, ok := <-ch:
		if !ok {
			respondJSON(w, http.StatusOK, map[string]any{
				"superseded": true,
				"places":     []geocode.Place{},
			})
			return
		}
		if result.err != nil {
			h.logger.Warnw("geocode lookup failed", "query", result.query, "error", result.err)
			respondError(w, http.StatusBadGateway, "Location search is unavailable right now.")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"query":  result.query,
			"places": result.places,
		})
	case <-r.Context().Done():
	}
}
