// Package directory fetches and presents the report collection: filtered
// listing, client-side free-text search, map markers, and the single-report
// detail view. Each directory owns its own fetched snapshot; nothing here is
// shared with other components.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/civictide/civicweb/internal/backend"
	"github.com/civictide/civicweb/internal/models"
	"github.com/civictide/civicweb/internal/workflow"
	"go.uber.org/zap"
)

// Directory holds the most recently applied listing snapshot. Concurrent
// fetches are fenced per filter context: within one context only the newest
// issued fetch may update the snapshot, so a slow response for an old query
// can never clobber a newer one. Fetches for different filter contexts never
// fence each other out.
type Directory struct {
	backend *backend.Client
	logger  *zap.SugaredLogger

	mu       sync.Mutex
	fences   map[backend.ReportFilter]*fence
	snapshot *models.ReportList
	filter   backend.ReportFilter
}

// fence tracks issue/apply sequence numbers for one filter context.
type fence struct {
	issued  uint64
	applied uint64
}

// New creates an empty directory.
func New(client *backend.Client, logger *zap.SugaredLogger) *Directory {
	return &Directory{
		backend: client,
		logger:  logger,
		fences:  map[backend.ReportFilter]*fence{},
	}
}

// Fetch requests the full matching set for the filter. The caller always
// receives its own fetched list; the returned flag only reports whether the
// result was also applied as the shared snapshot. A response superseded by a
// newer fetch in the same filter context leaves the snapshot alone, and a
// discarded stale result is not an error.
func (d *Directory) Fetch(ctx context.Context, filter backend.ReportFilter) (*models.ReportList, bool, error) {
	d.mu.Lock()
	f := d.fences[filter]
	if f == nil {
		f = &fence{}
		d.fences[filter] = f
	}
	f.issued++
	seq := f.issued
	d.mu.Unlock()

	list, err := d.backend.ListReports(ctx, filter)
	if err != nil {
		return nil, false, fmt.Errorf("directory fetch: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if seq != f.issued || seq <= f.applied {
		d.logger.Debugw("discarding stale listing response", "seq", seq, "issued", f.issued)
		return list, false, nil
	}
	f.applied = seq
	d.snapshot = list
	d.filter = filter
	return list, true, nil
}

// Snapshot returns the currently applied listing and its filter, or nil when
// nothing has been fetched yet.
func (d *Directory) Snapshot() (*models.ReportList, backend.ReportFilter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot, d.filter
}

// Client-side search

// MatchesSearch reports whether the report's title or description contains
// the query, case-insensitively. An empty query matches everything.
func MatchesSearch(r models.Report, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(r.Title), q) ||
		strings.Contains(strings.ToLower(r.Description), q)
}

// FilterBySearch applies MatchesSearch over the already-fetched page. The
// result is never nil; zero matches is a distinct "no results" display, not
// an absent one.
func FilterBySearch(reports []models.Report, query string) []models.Report {
	out := []models.Report{}
	for _, r := range reports {
		if MatchesSearch(r, query) {
			out = append(out, r)
		}
	}
	return out
}

// Detail view

// DetailState distinguishes the terminal display states of the detail view.
type DetailState string

const (
	DetailLoaded   DetailState = "loaded"
	DetailNotFound DetailState = "not_found"
)

// Detail is the single-report view model.
type Detail struct {
	State        DetailState     `json:"state"`
	Report       *models.Report  `json:"report,omitempty"`
	Steps        []workflow.Step `json:"progress_steps,omitempty"`
	Fill         float64         `json:"progress_fill"`
	Submitted    string          `json:"submitted,omitempty"`
	SubmittedAgo string          `json:"submitted_ago,omitempty"`
}

// FetchDetail loads one report by id. Not-found is returned as a view state;
// only transport failures surface as errors.
func (d *Directory) FetchDetail(ctx context.Context, id int) (*Detail, error) {
	report, err := d.backend.GetReport(ctx, id)
	if errors.Is(err, backend.ErrNotFound) {
		return &Detail{State: DetailNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("directory detail: %w", err)
	}

	detail := &Detail{
		State:        DetailLoaded,
		Report:       report,
		Submitted:    FormatDate(report.CreatedAt),
		SubmittedAgo: FormatRelative(report.CreatedAt, time.Now()),
	}
	detail.Steps = workflow.ProgressSteps(report.Status)
	if fill, ok := workflow.FillProportion(report.Status); ok {
		detail.Fill = fill
	}
	return detail, nil
}

// Map view

// Marker is one plotted report; its color is a pure function of category.
type Marker struct {
	ReportID int     `json:"report_id"`
	Title    string  `json:"title"`
	Status   string  `json:"status"`
	Category string  `json:"category"`
	Color    string  `json:"color"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// LatLng is a coordinate pair, used for the optional fly-to target.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MapView is the map page's view model.
type MapView struct {
	Markers []Marker `json:"markers"`
	FlyTo   *LatLng  `json:"fly_to,omitempty"`
}

// BuildMapView plots one marker per report at its stored coordinates.
func BuildMapView(reports []models.Report, flyTo *LatLng) MapView {
	markers := make([]Marker, 0, len(reports))
	for _, r := range reports {
		markers = append(markers, Marker{
			ReportID: r.ID,
			Title:    r.Title,
			Status:   workflow.StatusLabel(r.Status),
			Category: workflow.CategoryLabel(r.Category),
			Color:    workflow.MarkerColor(r.Category),
			Lat:      r.Latitude,
			Lng:      r.Longitude,
		})
	}
	return MapView{Markers: markers, FlyTo: flyTo}
}
