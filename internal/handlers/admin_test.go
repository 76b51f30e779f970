package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/civictide/civicweb/internal/models"
	"github.com/civictide/civicweb/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// adminBackend is a mutable report set behind the admin endpoints.
func adminBackend() http.HandlerFunc {
	var mu sync.Mutex
	reports := map[int]*models.Report{
		1: {ID: 1, Title: "Pothole", Status: workflow.StatusReported},
		2: {ID: 2, Title: "Flooded drain", Status: workflow.StatusReported},
		3: {ID: 3, Title: "Broken streetlight", Status: workflow.StatusRejected},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/admin/stats":
			json.NewEncoder(w).Encode(models.DashboardStats{TotalReports: len(reports)})
		case r.Method == http.MethodGet && r.URL.Path == "/reports/":
			status := workflow.Status(r.URL.Query().Get("status"))
			list := models.ReportList{Reports: []models.Report{}}
			for _, rep := range reports {
				if status == "" || rep.Status == status {
					list.Reports = append(list.Reports, *rep)
				}
			}
			list.Total = len(list.Reports)
			json.NewEncoder(w).Encode(list)
		case r.Method == http.MethodPatch && strings.HasSuffix(r.URL.Path, "/status"):
			var update models.StatusUpdate
			json.NewDecoder(r.Body).Decode(&update)
			rep := reports[2]
			rep.Status = update.Status
			json.NewEncoder(w).Encode(rep)
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/reports/"):
			id := 0
			json.Unmarshal([]byte(strings.TrimPrefix(r.URL.Path, "/reports/")), &id)
			delete(reports, id)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Not found"})
		}
	}
}

func bucketCount(t *testing.T, overview map[string]any, status string) int {
	t.Helper()
	for _, b := range overview["buckets"].([]any) {
		bucket := b.(map[string]any)
		if bucket["status"] == status {
			return len(bucket["items"].([]any))
		}
	}
	t.Fatalf("no bucket for status %q", status)
	return 0
}

func TestAdminRedirectsNonAdminToDashboard(t *testing.T) {
	e := newEnv(t, adminBackend())
	cookie := e.signIn(t, models.User{ID: 7}, "token-7")

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	req.AddCookie(cookie)
	rec := e.do(req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestAdminOverviewGroupsByStatus(t *testing.T) {
	e := newEnv(t, adminBackend())
	cookie := e.signIn(t, models.User{ID: 1, IsAdmin: true}, "token-admin")

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	req.AddCookie(cookie)
	rec := e.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	overview := decodeBody(t, rec)
	assert.Equal(t, float64(3), overview["total"])
	assert.Equal(t, 2, bucketCount(t, overview, "reported"))
	assert.Equal(t, 1, bucketCount(t, overview, "rejected"))
}

func TestAdminTransitionReturnsRefreshedOverview(t *testing.T) {
	e := newEnv(t, adminBackend())
	cookie := e.signIn(t, models.User{ID: 1, IsAdmin: true}, "token-admin")

	req := httptest.NewRequest(http.MethodPatch, "/admin/reports/2/status",
		strings.NewReader(`{"status":"resolved","resolution_notes":"Drain cleared"}`))
	req.AddCookie(cookie)
	rec := e.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Status updated!", body["message"])
	overview := body["overview"].(map[string]any)
	assert.Equal(t, 1, bucketCount(t, overview, "reported"))
	assert.Equal(t, 1, bucketCount(t, overview, "resolved"))
}

func TestAdminClearBucket(t *testing.T) {
	e := newEnv(t, adminBackend())
	cookie := e.signIn(t, models.User{ID: 1, IsAdmin: true}, "token-admin")

	req := httptest.NewRequest(http.MethodDelete, "/admin/buckets/rejected", nil)
	req.AddCookie(cookie)
	rec := e.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Rejected reports cleared", body["message"])
	assert.Equal(t, float64(1), body["deleted"])
	overview := body["overview"].(map[string]any)
	assert.Equal(t, 0, bucketCount(t, overview, "rejected"))
}
