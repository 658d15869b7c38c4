package services

import (
	"context"
	"math"
	"time"

	"journal-api/models"
	"journal-api/repository"
)

// staleAfter is how long a submission may wait for a first editorial step
// before the dashboard flags it.
const staleAfter = 14 * 24 * time.Hour

type OverdueAssignment struct {
	AssignmentID int       `json:"assignmentId"`
	ManuscriptID int       `json:"manuscriptId"`
	ReviewerID   int       `json:"reviewerId"`
	Reviewer     string    `json:"reviewer"`
	Round        int       `json:"round"`
	DueDate      time.Time `json:"dueDate"`
	DaysOverdue  int       `json:"daysOverdue"`
}

type StaleManuscript struct {
	ManuscriptID int       `json:"manuscriptId"`
	Title        string    `json:"title"`
	SubmittedAt  time.Time `json:"submittedAt"`
	DaysWaiting  int       `json:"daysWaiting"`
}

type DashboardStats struct {
	TotalManuscripts   int64                   `json:"totalManuscripts"`
	ByStatus           map[models.Status]int64 `json:"byStatus"`
	ByStage            map[models.Stage]int64  `json:"byWorkflowStatus"`
	Selected           int64                   `json:"selected"`
	PendingAssignments int                     `json:"pendingAssignments"`
	ActiveAssignments  int                     `json:"activeAssignments"`
	Overdue            []OverdueAssignment     `json:"overdueAssignments"`
	Stale              []StaleManuscript       `json:"staleSubmissions"`
	PaidTotals         map[string]float64      `json:"paidTotals"`
	PendingQueries     int                     `json:"pendingQueries"`
	GeneratedAt        time.Time               `json:"generatedAt"`
}

type DashboardService struct {
	Deps
}

func NewDashboardService(deps Deps) *DashboardService {
	return &DashboardService{Deps: deps.withDefaults()}
}

func (s *DashboardService) Stats(ctx context.Context, actor *models.User) (*DashboardStats, error) {
	if err := RequireRole(actor, models.RoleEditorInChief); err != nil {
		return nil, err
	}
	now := s.Now()
	stats := &DashboardStats{
		ByStatus:    map[models.Status]int64{},
		ByStage:     map[models.Stage]int64{},
		PaidTotals:  map[string]float64{},
		Overdue:     []OverdueAssignment{},
		Stale:       []StaleManuscript{},
		GeneratedAt: now,
	}

	byStage, err := s.Store.Manuscripts().CountByStage(ctx)
	if err != nil {
		return nil, storeErr(err, "manuscript")
	}
	for stage, n := range byStage {
		stats.ByStage[stage] = n
		stats.ByStatus[stage.Status()] += n
		stats.TotalManuscripts += n
	}

	selected := true
	if _, total, err := s.Store.Manuscripts().List(ctx, repository.ManuscriptFilter{Selected: &selected, Limit: 1}); err == nil {
		stats.Selected = total
	} else {
		return nil, storeErr(err, "manuscript")
	}

	open, err := s.Store.Assignments().List(ctx, repository.AssignmentFilter{
		Statuses: []string{models.AssignmentPending, models.AssignmentAccepted},
	})
	if err != nil {
		return nil, storeErr(err, "assignment")
	}
	for _, a := range open {
		if a.Status == models.AssignmentPending {
			stats.PendingAssignments++
		} else {
			stats.ActiveAssignments++
		}
		if !a.Overdue(now) {
			continue
		}
		entry := OverdueAssignment{
			AssignmentID: a.AssignmentID,
			ManuscriptID: a.ManuscriptID,
			ReviewerID:   a.ReviewerID,
			Round:        a.Round,
			DueDate:      a.DueDate,
			DaysOverdue:  int(now.Sub(a.DueDate).Hours() / 24),
		}
		if a.Reviewer != nil {
			entry.Reviewer = a.Reviewer.DisplayName()
		}
		stats.Overdue = append(stats.Overdue, entry)
	}

	cutoff := now.Add(-staleAfter).Add(time.Nanosecond)
	filter := repository.ManuscriptFilter{
		Stages:          []models.Stage{models.StageSubmitted},
		SubmittedBefore: &cutoff,
		OldestFirst:     true,
		Limit:           100,
	}
	for filter.Page = 1; ; filter.Page++ {
		waiting, total, err := s.Store.Manuscripts().List(ctx, filter)
		if err != nil {
			return nil, storeErr(err, "manuscript")
		}
		for _, m := range waiting {
			age := now.Sub(m.SubmittedAt)
			stats.Stale = append(stats.Stale, StaleManuscript{
				ManuscriptID: m.ManuscriptID,
				Title:        m.Title,
				SubmittedAt:  m.SubmittedAt,
				DaysWaiting:  int(age.Hours() / 24),
			})
		}
		if len(waiting) < filter.Limit || int64(len(stats.Stale)) >= total {
			break
		}
	}

	paid, err := s.Store.Manuscripts().PaymentTotals(ctx, models.PaymentSuccess)
	if err != nil {
		return nil, storeErr(err, "payment")
	}
	for currency, total := range paid {
		stats.PaidTotals[currency] = math.Round(total*100) / 100
	}

	queries, err := s.Store.Queries().List(ctx, repository.QueryFilter{Status: models.QueryPending})
	if err != nil {
		return nil, storeErr(err, "query")
	}
	stats.PendingQueries = len(queries)
	return stats, nil
}
