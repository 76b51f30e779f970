// Package triage implements the privileged status-transition workflow: the
// grouped overview, single transitions, and bulk clearing of a status bucket.
//
// Mutations never patch local state optimistically. After every successful
// mutation the full report set is refetched, so the view always re-derives
// from server truth and cannot drift from server-computed aggregates.
package triage

import (
	"context"
	"fmt"

	"github.com/civictide/civicweb/internal/backend"
	"github.com/civictide/civicweb/internal/models"
	"github.com/civictide/civicweb/internal/workflow"
	"go.uber.org/zap"
)

// Service drives the admin triage view.
type Service struct {
	backend *backend.Client
	logger  *zap.SugaredLogger
}

// New creates a triage service.
func New(client *backend.Client, logger *zap.SugaredLogger) *Service {
	return &Service{backend: client, logger: logger}
}

// Overview is the triage view model: dashboard aggregates plus every report
// partitioned into one collapsible bucket per status, in fixed order.
type Overview struct {
	Stats   *models.DashboardStats           `json:"stats"`
	Total   int                              `json:"total"`
	Buckets []workflow.Bucket[models.Report] `json:"buckets"`
}

// Load fetches stats and the full report set and groups the reports.
func (s *Service) Load(ctx context.Context, token string) (*Overview, error) {
	stats, err := s.backend.Stats(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("triage overview: %w", err)
	}
	list, err := s.backend.ListReports(ctx, backend.ReportFilter{})
	if err != nil {
		return nil, fmt.Errorf("triage overview: %w", err)
	}
	return &Overview{
		Stats:   stats,
		Total:   list.Total,
		Buckets: workflow.Group(list.Reports, func(r models.Report) workflow.Status { return r.Status }),
	}, nil
}

// Transition moves one report to the target status, optionally attaching
// resolution notes, then reloads the overview from the backend. Every status
// is reachable from every other status for a privileged actor; only the
// vocabulary itself is checked here.
func (s *Service) Transition(ctx context.Context, token string, id int, update models.StatusUpdate) (*Overview, error) {
	if !workflow.ValidStatus(update.Status) {
		return nil, fmt.Errorf("triage: unknown status %q", update.Status)
	}
	if _, err := s.backend.UpdateStatus(ctx, token, id, update); err != nil {
		return nil, fmt.Errorf("triage transition: %w", err)
	}
	s.logger.Infow("report status updated", "report_id", id, "status", update.Status)
	return s.Load(ctx, token)
}

// ClearBucket deletes every report currently in the given status bucket.
// The operation is not atomic: deletions proceed sequentially, a mid-batch
// failure stops nothing and rolls nothing back, and one aggregate error is
// reported at the end. The overview is refreshed afterwards regardless, so
// the caller always sees true server state.
func (s *Service) ClearBucket(ctx context.Context, token string, status workflow.Status) (deleted int, view *Overview, err error) {
	if !workflow.ValidStatus(status) {
		return 0, nil, fmt.Errorf("triage: unknown status %q", status)
	}

	list, err := s.backend.ListReports(ctx, backend.ReportFilter{Status: status})
	if err != nil {
		return 0, nil, fmt.Errorf("triage clear %s: %w", status, err)
	}

	var firstErr error
	for _, r := range list.Reports {
		if delErr := s.backend.DeleteReport(ctx, token, r.ID); delErr != nil {
			s.logger.Warnw("bulk clear: delete failed", "report_id", r.ID, "error", delErr)
			if firstErr == nil {
				firstErr = delErr
			}
			continue
		}
		deleted++
	}

	view, loadErr := s.Load(ctx, token)
	if loadErr != nil {
		s.logger.Warnw("bulk clear: refresh failed", "error", loadErr)
	}

	if firstErr != nil {
		return deleted, view, fmt.Errorf("triage clear %s: %d of %d deleted: %w",
			status, deleted, len(list.Reports), firstErr)
	}
	if loadErr != nil {
		return deleted, nil, fmt.Errorf("triage clear %s: refresh: %w", status, loadErr)
	}
	s.logger.Infow("bucket cleared", "status", status, "deleted", deleted)
	return deleted, view, nil
}
