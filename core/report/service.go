package report

import (
	"context"
	"math"

	"github.com/passify/backend/core"
	"github.com/passify/backend/core/user"
)

type (
	// StatusCounts is the raw status breakdown from the store.
	StatusCounts struct {
		Total    int
		Approved int
		Pending  int
		Rejected int
	}

	// GroupCount is one aggregation bucket (time slot or reason).
	GroupCount struct {
		Key      string
		Count    int
		Approved int
	}

	Repository interface {
		CountRequestsByStatus(ctx context.Context) (StatusCounts, error)
		// CountRequestsByTimeSlot groups by time-of-day, ordered by time ascending.
		CountRequestsByTimeSlot(ctx context.Context) ([]GroupCount, error)
		// CountRequestsByReason groups by reason, ordered by count descending.
		CountRequestsByReason(ctx context.Context) ([]GroupCount, error)
	}

	Overview struct {
		TotalRequests    int     `json:"total_requests"`
		ApprovedRequests int     `json:"approved_requests"`
		PendingRequests  int     `json:"pending_requests"`
		RejectedRequests int     `json:"rejected_requests"`
		ApprovalRate     float64 `json:"approval_rate"`
	}

	TimeSlotStat struct {
		Time         string  `json:"time"`
		Requests     int     `json:"requests"`
		ApprovalRate float64 `json:"approval_rate"`
	}

	ReasonStat struct {
		Reason       string  `json:"reason"`
		Count        int     `json:"count"`
		ApprovalRate float64 `json:"approval_rate"`
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Overview returns the global request counts and approval rate. Admin only.
func (svc *Service) Overview(ctx context.Context, caller user.User) (Overview, error) {
	if !caller.IsAdmin() {
		return Overview{}, core.ErrPermissionDenied
	}

	counts, err := svc.repo.CountRequestsByStatus(ctx)
	if err != nil {
		return Overview{}, err
	}
	return Overview{
		TotalRequests:    counts.Total,
		ApprovedRequests: counts.Approved,
		PendingRequests:  counts.Pending,
		RejectedRequests: counts.Rejected,
		ApprovalRate:     approvalRate(counts.Approved, counts.Total),
	}, nil
}

// ByTimeSlot returns per-time-slot counts and approval rates, ordered by
// time-of-day ascending. Admin only.
func (svc *Service) ByTimeSlot(ctx context.Context, caller user.User) ([]TimeSlotStat, error) {
	if !caller.IsAdmin() {
		return nil, core.ErrPermissionDenied
	}

	groups, err := svc.repo.CountRequestsByTimeSlot(ctx)
	if err != nil {
		return nil, err
	}
	stats := make([]TimeSlotStat, 0, len(groups))
	for _, g := range groups {
		stats = append(stats, TimeSlotStat{
			Time:         g.Key,
			Requests:     g.Count,
			ApprovalRate: approvalRate(g.Approved, g.Count),
		})
	}
	return stats, nil
}

// ByReason returns per-reason counts and approval rates, ordered by count
// descending. Admin only.
func (svc *Service) ByReason(ctx context.Context, caller user.User) ([]ReasonStat, error) {
	if !caller.IsAdmin() {
		return nil, core.ErrPermissionDenied
	}

	groups, err := svc.repo.CountRequestsByReason(ctx)
	if err != nil {
		return nil, err
	}
	stats := make([]ReasonStat, 0, len(groups))
	for _, g := range groups {
		stats = append(stats, ReasonStat{
			Reason:       g.Key,
			Count:        g.Count,
			ApprovalRate: approvalRate(g.Approved, g.Count),
		})
	}
	return stats, nil
}

// approvalRate returns approved/total as a percentage rounded to 2 decimal
// places; 0 when total is 0.
func approvalRate(approved, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(approved)/float64(total)*100*100) / 100
}
