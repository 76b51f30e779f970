package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/civictide/civicweb/internal/models"
	"github.com/civictide/civicweb/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, zap.NewNop().Sugar())
}

func TestListReportsFilters(t *testing.T) {
	var gotQuery string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(models.ReportList{Total: 1, Reports: []models.Report{{ID: 7, Title: "Burst pipe"}}})
	})

	list, err := c.ListReports(context.Background(), ReportFilter{
		Category: workflow.CategoryWaterSupply,
		Status:   workflow.StatusReported,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, "Burst pipe", list.Reports[0].Title)
	assert.Contains(t, gotQuery, "category=water_supply")
	assert.Contains(t, gotQuery, "status=reported")
}

func TestListReportsNoFilterHasNoQuery(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		json.NewEncoder(w).Encode(models.ReportList{})
	})
	_, err := c.ListReports(context.Background(), ReportFilter{})
	require.NoError(t, err)
}

func TestBearerTokenAttached(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(models.User{ID: 1, FullName: "Ama Mensah"})
	})

	user, err := c.Me(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "Ama Mensah", user.FullName)
}

func TestNotFoundSentinel(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Report not found"})
	})

	_, err := c.GetReport(context.Background(), 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Report not found", Message(err, "fallback"))
}

func TestUnauthorizedSentinel(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Could not validate credentials"})
	})

	_, err := c.MyReports(context.Background(), "expired")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestMessageFallback(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream blew up"))
	})

	_, err := c.Stats(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, "Something went wrong", Message(err, "Something went wrong"))
	assert.Equal(t, "plain failure", Message(errors.New("dial tcp: refused"), "plain failure"))
}

func TestCreateReportMultipart(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Pothole on Liberation Rd", r.FormValue("title"))
		assert.Equal(t, "road_damage", r.FormValue("category"))
		assert.Equal(t, "5.6", r.FormValue("latitude"))
		assert.Equal(t, "-0.19", r.FormValue("longitude"))
		assert.Empty(t, r.FormValue("address"))
		_, _, err := r.FormFile("image")
		assert.Error(t, err, "no image part when none was supplied")

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.Report{ID: 42, Status: workflow.StatusReported})
	})

	report, err := c.CreateReport(context.Background(), "tok", models.ReportForm{
		Title:       "Pothole on Liberation Rd",
		Description: "Deep pothole near the junction",
		Category:    "road_damage",
		Latitude:    5.60,
		Longitude:   -0.19,
	}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 42, report.ID)
	assert.Equal(t, workflow.StatusReported, report.Status)
}

func TestCreateReportWithImage(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("image")
		require.NoError(t, err)
		assert.Equal(t, "pothole.jpg", header.Filename)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.Report{ID: 43})
	})

	_, err := c.CreateReport(context.Background(), "tok", models.ReportForm{
		Title: "t", Description: "d", Category: "other", Latitude: 5.6, Longitude: -0.19,
	}, strings.NewReader("jpegbytes"), "pothole.jpg")
	require.NoError(t, err)
}

// Toggling twice with a cooperating server returns the aggregate to its
// original state.
func TestVoteToggleRoundTrip(t *testing.T) {
	voted := false
	count := 4
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if voted {
				voted, count = false, count-1
			} else {
				voted, count = true, count+1
			}
		}
		json.NewEncoder(w).Encode(models.VoteState{ReportID: 5, VoteCount: count, UserHasVoted: voted})
	})

	before, err := c.Votes(context.Background(), "tok", 5)
	require.NoError(t, err)

	_, err = c.ToggleVote(context.Background(), "tok", 5)
	require.NoError(t, err)
	after, err := c.ToggleVote(context.Background(), "tok", 5)
	require.NoError(t, err)

	assert.Equal(t, before.VoteCount, after.VoteCount)
	assert.Equal(t, before.UserHasVoted, after.UserHasVoted)
}

func TestDeleteReportNoContent(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/reports/9", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.DeleteReport(context.Background(), "tok", 9))
}

func TestStatusUpdatePayload(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var got models.StatusUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, workflow.StatusResolved, got.Status)
		assert.Equal(t, "Patched by road crew", got.ResolutionNotes)
		json.NewEncoder(w).Encode(models.Report{ID: 3, Status: got.Status, ResolutionNotes: got.ResolutionNotes})
	})

	report, err := c.UpdateStatus(context.Background(), "tok", 3, models.StatusUpdate{
		Status:          workflow.StatusResolved,
		ResolutionNotes: "Patched by road crew",
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusResolved, report.Status)
}
