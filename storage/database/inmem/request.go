package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/passify/backend/core/report"
	"github.com/passify/backend/core/request"
)

type requestRepository struct {
	db *requestTable
}

// interface compliance checks
var (
	_ request.Repository = (*requestRepository)(nil)
	_ report.Repository  = (*requestRepository)(nil)
)

func NewRequestRepository(db *DB) *requestRepository {
	return &requestRepository{db: db.request}
}

// query returns all requests, newest-submission-first.
func (repo *requestRepository) query() []request.Request {
	reqs := make([]request.Request, 0, len(repo.db.table))
	for _, r := range repo.db.table {
		reqs = append(reqs, *r)
	}
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].SubmittedAt.Equal(reqs[j].SubmittedAt) {
			return repo.db.seq[reqs[i].ID] > repo.db.seq[reqs[j].ID]
		}
		return reqs[i].SubmittedAt.After(reqs[j].SubmittedAt)
	})
	return reqs
}

func (repo *requestRepository) CreateRequest(ctx context.Context, req request.Request) (request.Request, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	req.ID = uuid.New().String()
	repo.db.next++
	repo.db.seq[req.ID] = repo.db.next
	repo.db.table[req.ID] = &req
	return req, nil
}

func (repo *requestRepository) GetRequestByID(ctx context.Context, id string) (request.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if req, ok := repo.db.table[id]; ok {
		return *req, nil
	}
	return request.Request{}, request.ErrNotFound
}

func (repo *requestRepository) QueryRequestsByOwner(ctx context.Context, studentID string) ([]request.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reqs := make([]request.Request, 0)
	for _, req := range repo.query() {
		if req.StudentID == studentID {
			reqs = append(reqs, req)
		}
	}
	return reqs, nil
}

func (repo *requestRepository) FilterRequests(ctx context.Context, filter *request.QueryFilter) ([]request.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reqs := make([]request.Request, 0)
	for _, req := range repo.query() {
		if filter != nil && !matches(req, filter) {
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func matches(req request.Request, filter *request.QueryFilter) bool {
	if filter.Status != "" && req.Status != filter.Status {
		return false
	}
	if filter.Search != "" {
		kw := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(req.StudentName), kw) &&
			!strings.Contains(strings.ToLower(req.StudentID), kw) {
			return false
		}
	}
	return true
}

func (repo *requestRepository) UpdateRequestDisposition(
	ctx context.Context,
	id string,
	d request.Disposition,
	processedBy string,
	processedAt time.Time,
) (request.Request, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	req, ok := repo.db.table[id]
	if !ok {
		return request.Request{}, request.ErrNotFound
	}
	req.Status = d.Status
	req.AdminFeedback = d.AdminFeedback
	req.ProcessedAt = processedAt
	req.ProcessedBy = processedBy
	return *req, nil
}

func (repo *requestRepository) CountRequestsByStatus(ctx context.Context) (report.StatusCounts, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var counts report.StatusCounts
	for _, req := range repo.db.table {
		counts.Total++
		switch req.Status {
		case request.StatusApproved:
			counts.Approved++
		case request.StatusPending:
			counts.Pending++
		case request.StatusRejected:
			counts.Rejected++
		}
	}
	return counts, nil
}

func (repo *requestRepository) CountRequestsByTimeSlot(ctx context.Context) ([]report.GroupCount, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	groups := repo.groupBy(func(req *request.Request) string { return req.Time })
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups, nil
}

func (repo *requestRepository) CountRequestsByReason(ctx context.Context) ([]report.GroupCount, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	groups := repo.groupBy(func(req *request.Request) string { return req.Reason })
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count == groups[j].Count {
			return groups[i].Key < groups[j].Key
		}
		return groups[i].Count > groups[j].Count
	})
	return groups, nil
}

func (repo *requestRepository) groupBy(key func(*request.Request) string) []report.GroupCount {
	byKey := make(map[string]*report.GroupCount)
	for _, req := range repo.db.table {
		k := key(req)
		g, ok := byKey[k]
		if !ok {
			g = &report.GroupCount{Key: k}
			byKey[k] = g
		}
		g.Count++
		if req.Status == request.StatusApproved {
			g.Approved++
		}
	}
	groups := make([]report.GroupCount, 0, len(byKey))
	for _, g := range byKey {
		groups = append(groups, *g)
	}
	return groups
}
