package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/passify/backend/core"
	"github.com/passify/backend/core/report"
	"github.com/passify/backend/core/request"
)

type dbRequest struct {
	ID             string      `db:"id"`
	StudentID      string      `db:"student_id"`
	StudentName    string      `db:"student_name"`
	Kind           string      `db:"type"`
	Reason         string      `db:"reason"`
	Date           time.Time   `db:"date"`
	Time           string      `db:"time"`
	Destination    null.String `db:"destination"`
	Duration       null.String `db:"duration"`
	AdditionalInfo null.String `db:"additional_info"`
	Status         string      `db:"status"`
	Score          int         `db:"ai_score"`
	RiskLevel      string      `db:"risk_level"`
	AdminFeedback  null.String `db:"admin_feedback"`
	SubmittedAt    time.Time   `db:"submitted_at"`
	ProcessedAt    null.Time   `db:"processed_at"`
	ProcessedBy    null.String `db:"processed_by"`
}

type requestRepository struct {
	db *sqlx.DB
}

// interface compliance checks
var (
	_ request.Repository = (*requestRepository)(nil)
	_ report.Repository  = (*requestRepository)(nil)
)

func NewRequestRepository(db *sqlx.DB) *requestRepository {
	return &requestRepository{db: db}
}

func (repo requestRepository) pack(req request.Request) dbRequest {
	return dbRequest{
		ID:             req.ID,
		StudentID:      req.StudentID,
		StudentName:    req.StudentName,
		Kind:           req.Kind,
		Reason:         req.Reason,
		Date:           req.Date.UTC(),
		Time:           req.Time,
		Destination:    null.NewString(req.Destination, req.Destination != ""),
		Duration:       null.NewString(req.Duration, req.Duration != ""),
		AdditionalInfo: null.NewString(req.AdditionalInfo, req.AdditionalInfo != ""),
		Status:         req.Status,
		Score:          req.Score,
		RiskLevel:      req.RiskLevel,
		AdminFeedback:  null.NewString(req.AdminFeedback, req.AdminFeedback != ""),
		SubmittedAt:    req.SubmittedAt.UTC(),
		ProcessedAt:    null.NewTime(req.ProcessedAt.UTC(), !req.ProcessedAt.IsZero()),
		ProcessedBy:    null.NewString(req.ProcessedBy, req.ProcessedBy != ""),
	}
}

func (repo requestRepository) unpack(r dbRequest) request.Request {
	return request.Request{
		ID:             r.ID,
		StudentID:      r.StudentID,
		StudentName:    r.StudentName,
		Kind:           r.Kind,
		Reason:         r.Reason,
		Date:           r.Date,
		Time:           r.Time,
		Destination:    r.Destination.String,
		Duration:       r.Duration.String,
		AdditionalInfo: r.AdditionalInfo.String,
		Status:         r.Status,
		Score:          r.Score,
		RiskLevel:      r.RiskLevel,
		AdminFeedback:  r.AdminFeedback.String,
		SubmittedAt:    r.SubmittedAt,
		ProcessedAt:    r.ProcessedAt.Time,
		ProcessedBy:    r.ProcessedBy.String,
	}
}

func (repo requestRepository) unpackSlice(rows []dbRequest) []request.Request {
	reqs := make([]request.Request, 0, len(rows))
	for _, r := range rows {
		reqs = append(reqs, repo.unpack(r))
	}
	return reqs
}

// trapNoRowsErr maps psql "no rows" err to request.ErrNotFound
func (repo requestRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return request.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo requestRepository) CreateRequest(ctx context.Context, req request.Request) (request.Request, error) {
	req.ID = uuid.New().String()
	r := repo.pack(req)

	q := `
	INSERT INTO request (
		id, student_id, student_name, type, reason, date, "time", destination,
		duration, additional_info, status, ai_score, risk_level, admin_feedback,
		submitted_at, processed_at, processed_by
	)
	VALUES (
		:id, :student_id, :student_name, :type, :reason, :date, :time, :destination,
		:duration, :additional_info, :status, :ai_score, :risk_level, :admin_feedback,
		:submitted_at, :processed_at, :processed_by
	)`
	if _, err := repo.db.NamedExecContext(ctx, q, r); err != nil {
		return request.Request{}, errors.Wrap(err, "inserting request")
	}
	return repo.unpack(r), nil
}

func (repo requestRepository) GetRequestByID(ctx context.Context, id string) (request.Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return request.Request{}, request.ErrNotFound
	}

	var r dbRequest
	q := `SELECT * FROM request WHERE id = $1`
	if err := repo.db.GetContext(ctx, &r, q, id); err != nil {
		return request.Request{}, repo.trapNoRowsErr(err, "finding request by ID")
	}
	return repo.unpack(r), nil
}

func (repo requestRepository) QueryRequestsByOwner(ctx context.Context, studentID string) ([]request.Request, error) {
	var rows []dbRequest
	q := fmt.Sprintf(
		`SELECT * FROM request WHERE student_id = $1 ORDER BY %s`,
		core.DBOrdering{Field: "submitted_at"}.String(),
	)
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying requests by owner")
	}
	return repo.unpackSlice(rows), nil
}

func (repo requestRepository) FilterRequests(ctx context.Context, filter *request.QueryFilter) ([]request.Request, error) {
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Status != "" {
			args = append(args, filter.Status)
			conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
		}
		// requests with StudentName or StudentID matching the search keyword
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			conds = append(conds, fmt.Sprintf("(student_name ILIKE $%d OR student_id ILIKE $%d)", len(args), len(args)))
		}
	}

	q := `SELECT * FROM request`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += fmt.Sprintf(" ORDER BY %s", core.DBOrdering{Field: "submitted_at"}.String())

	var rows []dbRequest
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering requests")
	}
	return repo.unpackSlice(rows), nil
}

func (repo requestRepository) UpdateRequestDisposition(
	ctx context.Context,
	id string,
	d request.Disposition,
	processedBy string,
	processedAt time.Time,
) (request.Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return request.Request{}, request.ErrNotFound
	}

	var r dbRequest
	q := `
	UPDATE request
	SET status = $2, admin_feedback = $3, processed_at = $4, processed_by = $5
	WHERE id = $1
	RETURNING *`
	err := repo.db.QueryRowxContext(ctx, q,
		id,
		d.Status,
		null.NewString(d.AdminFeedback, d.AdminFeedback != ""),
		processedAt.UTC(),
		processedBy,
	).StructScan(&r)
	if err != nil {
		return request.Request{}, repo.trapNoRowsErr(err, "updating request disposition")
	}
	return repo.unpack(r), nil
}

func (repo requestRepository) CountRequestsByStatus(ctx context.Context) (report.StatusCounts, error) {
	var counts report.StatusCounts
	q := `
	SELECT count(*) AS total,
	       count(*) FILTER (WHERE status = 'approved') AS approved,
	       count(*) FILTER (WHERE status = 'pending')  AS pending,
	       count(*) FILTER (WHERE status = 'rejected') AS rejected
	FROM request`
	if err := repo.db.GetContext(ctx, &counts, q); err != nil {
		return report.StatusCounts{}, errors.Wrap(err, "counting requests by status")
	}
	return counts, nil
}

func (repo requestRepository) CountRequestsByTimeSlot(ctx context.Context) ([]report.GroupCount, error) {
	var groups []report.GroupCount
	q := `
	SELECT "time" AS key,
	       count(*) AS count,
	       count(*) FILTER (WHERE status = 'approved') AS approved
	FROM request
	GROUP BY "time"
	ORDER BY "time" ASC`
	if err := repo.db.SelectContext(ctx, &groups, q); err != nil {
		return nil, errors.Wrap(err, "counting requests by time slot")
	}
	return groups, nil
}

func (repo requestRepository) CountRequestsByReason(ctx context.Context) ([]report.GroupCount, error) {
	var groups []report.GroupCount
	q := `
	SELECT reason AS key,
	       count(*) AS count,
	       count(*) FILTER (WHERE status = 'approved') AS approved
	FROM request
	GROUP BY reason
	ORDER BY count DESC, reason ASC`
	if err := repo.db.SelectContext(ctx, &groups, q); err != nil {
		return nil, errors.Wrap(err, "counting requests by reason")
	}
	return groups, nil
}
