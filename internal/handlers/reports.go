package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/civictide/civicweb/internal/backend"
	"github.com/civictide/civicweb/internal/directory"
	"github.com/civictide/civicweb/internal/middleware"
	"github.com/civictide/civicweb/internal/models"
	"github.com/civictide/civicweb/internal/session"
	"github.com/civictide/civicweb/internal/workflow"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxUploadSize caps report photo uploads.
const maxUploadSize = 10 << 20

// ReportsHandler serves the directory pages and report submission.
type ReportsHandler struct {
	backend  *backend.Client
	dir      *directory.Directory
	store    *session.Store
	validate *validator.Validate
	logger   *zap.SugaredLogger
}

// NewReportsHandler creates a reports handler.
func NewReportsHandler(client *backend.Client, dir *directory.Directory, store *session.Store, logger *zap.SugaredLogger) *ReportsHandler {
	return &ReportsHandler{
		backend:  client,
		dir:      dir,
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

// authFailed handles a backend 401 on an authenticated call: the session is
// cleared exactly as an explicit logout, and the caller is prompted to sign
// in again.
func (h *ReportsHandler) authFailed(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, backend.ErrUnauthorized) {
		return false
	}
	if sid := session.ID(r); sid != "" {
		_ = h.store.Logout(r.Context(), sid)
	}
	session.Clear(w)
	respondError(w, http.StatusUnauthorized, "Please sign in to continue.")
	return true
}

// List handles GET /reports. Category and status narrow the backend query;
// the free-text q is applied client-side over the fetched page.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}

	// Each request is answered from its own fetch; the fence only governs
	// whether the shared snapshot advances.
	list, _, err := h.dir.Fetch(r.Context(), filter)
	if err != nil {
		respondBackendError(w, err, "Failed to load reports.")
		return
	}

	query := r.URL.Query().Get("q")
	matched := directory.FilterBySearch(list.Reports, query)
	respondJSON(w, http.StatusOK, map[string]any{
		"total":      len(matched),
		"reports":    matched,
		"no_results": len(matched) == 0,
	})
}

// Detail handles GET /reports/{id}. Not-found is its own terminal view
// state, distinct from loading and from loaded.
func (h *ReportsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	detail, err := h.dir.FetchDetail(r.Context(), id)
	if err != nil {
		respondBackendError(w, err, "Failed to load report.")
		return
	}
	if detail.State == directory.DetailNotFound {
		respondJSON(w, http.StatusNotFound, map[string]any{"state": detail.State})
		return
	}

	// Comments are part of the detail page but not of the report refresh
	// cycle; a comment failure does not take the page down.
	comments, err := h.backend.Comments(r.Context(), id)
	if err != nil {
		h.logger.Warnw("comments unavailable", "report_id", id, "error", err)
		comments = []models.Comment{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"state":          detail.State,
		"report":         detail.Report,
		"progress_steps": detail.Steps,
		"progress_fill":  detail.Fill,
		"submitted":      detail.Submitted,
		"submitted_ago":  detail.SubmittedAgo,
		"comments":       comments,
	})
}

// MapData handles GET /map. Optional fly_lat/fly_lng center the map after a
// geocoder selection.
func (h *ReportsHandler) MapData(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	list, err := h.backend.ListReports(r.Context(), filter)
	if err != nil {
		respondBackendError(w, err, "Failed to load the map.")
		return
	}

	var flyTo *directory.LatLng
	q := r.URL.Query()
	if q.Get("fly_lat") != "" && q.Get("fly_lng") != "" {
		lat, latErr := strconv.ParseFloat(q.Get("fly_lat"), 64)
		lng, lngErr := strconv.ParseFloat(q.Get("fly_lng"), 64)
		if latErr == nil && lngErr == nil {
			flyTo = &directory.LatLng{Lat: lat, Lng: lng}
		}
	}

	respondJSON(w, http.StatusOK, directory.BuildMapView(list.Reports, flyTo))
}

// Dashboard handles GET /dashboard: the signed-in user's own reports.
func (h *ReportsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFrom(r)
	list, err := h.backend.MyReports(r.Context(), sess.Token)
	if err != nil {
		if h.authFailed(w, r, err) {
			return
		}
		respondBackendError(w, err, "Failed to load your reports.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user":    sess.User,
		"total":   list.Total,
		"reports": list.Reports,
	})
}

// Submit handles POST /submit (multipart). Validation failures never reach
// the backend; coordinates must both be present before creation completes.
func (h *ReportsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form submission")
		return
	}

	form, ok := h.parseReportForm(w, r)
	if !ok {
		return
	}

	var image multipart.File
	imageName := ""
	if file, header, err := r.FormFile("image"); err == nil {
		image = file
		imageName = header.Filename
		defer file.Close()
	}

	sess := middleware.SessionFrom(r)
	var report *models.Report
	var err error
	if image != nil {
		report, err = h.backend.CreateReport(r.Context(), sess.Token, form, image, imageName)
	} else {
		report, err = h.backend.CreateReport(r.Context(), sess.Token, form, nil, "")
	}
	if err != nil {
		if h.authFailed(w, r, err) {
			return
		}
		respondBackendError(w, err, "Failed to submit report.")
		return
	}

	h.logger.Infow("report submitted", "report_id", report.ID, "category", report.Category)
	respondJSON(w, http.StatusCreated, map[string]any{
		"report":   report,
		"message":  "Report submitted successfully!",
		"redirect": fmt.Sprintf("/reports/%d", report.ID),
	})
}

func (h *ReportsHandler) parseReportForm(w http.ResponseWriter, r *http.Request) (models.ReportForm, bool) {
	form := models.ReportForm{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Address:     r.FormValue("address"),
	}

	lat, latErr := strconv.ParseFloat(r.FormValue("latitude"), 64)
	lng, lngErr := strconv.ParseFloat(r.FormValue("longitude"), 64)
	if latErr != nil || lngErr != nil {
		respondError(w, http.StatusBadRequest, "Please set your location before submitting.")
		return form, false
	}
	form.Latitude = lat
	form.Longitude = lng

	if !workflow.ValidCategory(workflow.Category(form.Category)) {
		respondError(w, http.StatusBadRequest, "Please select a valid category.")
		return form, false
	}
	if err := h.validate.Struct(form); err != nil {
		respondValidationError(w, err)
		return form, false
	}
	return form, true
}

// parseFilter validates the optional category/status query parameters.
func parseFilter(w http.ResponseWriter, r *http.Request) (backend.ReportFilter, bool) {
	var filter backend.ReportFilter
	q := r.URL.Query()

	if c := q.Get("category"); c != "" {
		if !workflow.ValidCategory(workflow.Category(c)) {
			respondError(w, http.StatusBadRequest, "unknown category")
			return filter, false
		}
		filter.Category = workflow.Category(c)
	}
	if s := q.Get("status"); s != "" {
		if !workflow.ValidStatus(workflow.Status(s)) {
			respondError(w, http.StatusBadRequest, "unknown status")
			return filter, false
		}
		filter.Status = workflow.Status(s)
	}
	return filter, true
}
