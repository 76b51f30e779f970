package geocode

import (
	"context"
	"sync"
	"time"
)

// DefaultQuietPeriod is how long input must be stable before a lookup fires.
const DefaultQuietPeriod = 400 * time.Millisecond

// Debouncer coalesces a burst of queries into at most one outbound lookup
// per quiet period. Each Push resets the timer; when the input finally goes
// quiet, the latest query is searched and delivered to the callback.
type Debouncer struct {
	client *Client
	delay  time.Duration
	emit   func(query string, places []Place, err error)

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer wraps a geocoder client. emit receives the result of the
// lookup that eventually fires; intermediate queries are dropped silently.
func NewDebouncer(client *Client, delay time.Duration, emit func(query string, places []Place, err error)) *Debouncer {
	if delay <= 0 {
		delay = DefaultQuietPeriod
	}
	return &Debouncer{client: client, delay: delay, emit: emit}
}

// Push records the latest input. The lookup fires only once the input has
// been stable for the configured delay.
func (d *Debouncer) Push(ctx context.Context, query string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		places, err := d.client.Search(ctx, query)
		d.emit(query, places, err)
	})
}

// Stop cancels any pending lookup.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
