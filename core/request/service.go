package request

import (
	"context"
	"fmt"
	"math/rand"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/passify/backend/core"
	"github.com/passify/backend/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("request not found")

	NowFunc  = time.Now  // mockable
	RandIntn = rand.Intn // mockable
)

type (
	Repository interface {
		CreateRequest(ctx context.Context, req Request) (Request, error)
		GetRequestByID(ctx context.Context, id string) (Request, error)
		// QueryRequestsByOwner returns the owner's requests, newest-submission-first.
		QueryRequestsByOwner(ctx context.Context, studentID string) ([]Request, error)
		// FilterRequests applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of
		// Request.StudentName or Request.StudentID. Newest-submission-first.
		FilterRequests(ctx context.Context, filter *QueryFilter) ([]Request, error)
		// UpdateRequestDisposition atomically applies the disposition to the
		// stored record and returns the updated value, or ErrNotFound.
		UpdateRequestDisposition(ctx context.Context, id string, d Disposition, processedBy string, processedAt time.Time) (Request, error)
	}

	Service struct {
		repo      Repository
		usrRepo   user.Repository
		predictor Predictor
		mailSvc   core.EmailService
		metrics   core.MetricsCollector
		logger    core.Logger
	}
)

func NewService(
	repo Repository,
	usrRepo user.Repository,
	predictor Predictor,
	mailSvc core.EmailService,
	metrics core.MetricsCollector,
	logger core.Logger,
) *Service {
	return &Service{
		repo:      repo,
		usrRepo:   usrRepo,
		predictor: predictor,
		mailSvc:   mailSvc,
		metrics:   metrics,
		logger:    logger,
	}
}

// Create persists a new pending request for the caller, enriched with the
// predictor's score. Predictor failure is never fatal: the configured defaults
// are stored instead and the caller cannot tell the difference.
func (svc *Service) Create(ctx context.Context, caller user.User, nr NewRequest) (Request, Hint, error) {
	// re-resolve the owner; the claims may outlive the identity record
	owner, err := svc.usrRepo.GetUserByID(ctx, caller.ID)
	if err != nil {
		return Request{}, Hint{}, errors.Wrap(err, "finding owner")
	}

	pred := svc.predict(ctx, Intake{
		Reason:    nr.Reason,
		Kind:      nr.Kind,
		Time:      nr.Time,
		StudentID: owner.StudentID,
	})

	req := Request{
		StudentID:      owner.StudentID,
		StudentName:    owner.Name,
		Kind:           nr.Kind,
		Reason:         nr.Reason,
		Date:           nr.Date,
		Time:           nr.Time,
		Destination:    nr.Destination,
		Duration:       nr.Duration,
		AdditionalInfo: nr.AdditionalInfo,
		Status:         StatusPending,
		Score:          pred.Score,
		RiskLevel:      pred.RiskLevel,
		SubmittedAt:    NowFunc().UTC(),
	}
	req, err = svc.repo.CreateRequest(ctx, req)
	if err != nil {
		return Request{}, Hint{}, errors.Wrap(err, "creating request")
	}
	svc.metrics.RequestCreated()

	// the response-time estimate is cosmetic; nothing stored depends on it
	hint := Hint{
		Likelihood:   pred.Score,
		ResponseTime: fmt.Sprintf("%d hours", RandIntn(4)+1),
	}
	return req, hint, nil
}

func (svc *Service) predict(ctx context.Context, in Intake) Prediction {
	pred, err := svc.predictor.Predict(ctx, in)
	if err != nil {
		if errors.Cause(err) != ErrScoringUnavailable {
			// unexpected failure class; absorbed all the same, but worth a look
			svc.logger.Error(fmt.Sprintf("predictor: %v", err), err)
		}
		svc.metrics.ScoringFallback()
		return svc.predictor.Defaults()
	}
	if !pred.Valid() {
		svc.metrics.ScoringFallback()
		return svc.predictor.Defaults()
	}
	return pred
}

// ListOwn returns the caller's requests, newest first.
func (svc *Service) ListOwn(ctx context.Context, caller user.User) ([]Request, error) {
	return svc.repo.QueryRequestsByOwner(ctx, caller.StudentID)
}

// ListAll returns requests matching the filter, newest first. Admin only.
func (svc *Service) ListAll(ctx context.Context, caller user.User, filter *QueryFilter) ([]Request, error) {
	if !caller.IsAdmin() {
		return nil, core.ErrPermissionDenied
	}
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Clean()
	return svc.repo.FilterRequests(ctx, filter)
}

// Disposition sets the request's terminal status, feedback and audit stamps in
// one atomic update. Admin only. Re-disposing an already-terminal request goes
// through the same path and overwrites the previous disposition.
func (svc *Service) Disposition(ctx context.Context, caller user.User, id string, d Disposition) (Request, error) {
	if !caller.IsAdmin() {
		return Request{}, core.ErrPermissionDenied
	}

	req, err := svc.repo.UpdateRequestDisposition(ctx, id, d, caller.Name, NowFunc().UTC())
	if err != nil {
		return Request{}, errors.Wrap(err, "updating request")
	}
	svc.metrics.RequestDisposed(req.Status)

	svc.notifyOwner(ctx, req)
	return req, nil
}

// notifyOwner emails the owner about the disposition; best-effort.
func (svc *Service) notifyOwner(ctx context.Context, req Request) {
	if svc.mailSvc == nil {
		return
	}
	owner, err := svc.usrRepo.GetUserByStudentID(ctx, req.StudentID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("notifying owner of request %s: %v", req.ID, err), err)
		return
	}

	body := fmt.Sprintf("Hi %s,\n\nYour %s request submitted on %s has been %s.",
		owner.Name, req.Kind, req.SubmittedAt.Format("Jan 2, 2006"), req.Status)
	if req.AdminFeedback != "" {
		body += fmt.Sprintf("\n\nFeedback: %s", req.AdminFeedback)
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: owner.Name, Address: owner.Email}},
		Subject: fmt.Sprintf("Your %s request has been %s", req.Kind, req.Status),
		Body:    body,
	})
}
