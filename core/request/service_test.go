package request_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/passify/backend/core"
	"github.com/passify/backend/core/request"
	"github.com/passify/backend/core/user"
	emailsvc "github.com/passify/backend/services/email"
	inmemdb "github.com/passify/backend/storage/database/inmem"
	testutil "github.com/passify/backend/tests"
)

// predictorStub returns a canned prediction or error.
type predictorStub struct {
	pred request.Prediction
	err  error
}

func (p predictorStub) Predict(ctx context.Context, in request.Intake) (request.Prediction, error) {
	return p.pred, p.err
}

func (p predictorStub) Defaults() request.Prediction {
	return request.Prediction{Score: 75, RiskLevel: request.RiskMedium}
}

type testEnv struct {
	svc     *request.Service
	repo    request.Repository
	usrRepo user.Repository
}

func setup(t *testing.T, predictor request.Predictor) testEnv {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	repo := inmemdb.NewRequestRepository(db)
	usrRepo := inmemdb.NewUserRepository(db)

	emailsvc.ClearSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(testutil.NewConfig())

	svc := request.NewService(repo, usrRepo, predictor, mailSvc, core.NopMetrics{}, testutil.NewLogger())
	return testEnv{svc: svc, repo: repo, usrRepo: usrRepo}
}

func Test_Service_Create(t *testing.T) {
	ctx := context.Background()

	now := time.Date(2021, 3, 14, 10, 0, 0, 0, time.UTC)
	request.NowFunc = func() time.Time { return now }
	request.RandIntn = func(n int) int { return 2 }
	defer func() {
		request.NowFunc = time.Now
		request.RandIntn = rand.Intn
	}()

	t.Run("prediction stored on the pending request", func(t *testing.T) {
		env := setup(t, predictorStub{pred: request.Prediction{Score: 88, RiskLevel: request.RiskLow}})
		owner := testutil.CreateUser(t, env.usrRepo, "Awe", "awe@test.cd", user.RoleStudent, "ST001")

		req, hint, err := env.svc.Create(ctx, owner, request.NewRequest{
			Kind:   request.KindGatePass,
			Reason: "Medical",
			Date:   now,
			Time:   "10:30",
		})
		if err != nil {
			t.Fatalf("Create(): %v", err)
		}
		if req.ID == "" {
			t.Error("Create() did not assign an ID")
		}
		if req.Status != request.StatusPending {
			t.Errorf("Status = %q; want %q", req.Status, request.StatusPending)
		}
		if req.Score != 88 || req.RiskLevel != request.RiskLow {
			t.Errorf("Score/RiskLevel = %d/%q; want 88/%q", req.Score, req.RiskLevel, request.RiskLow)
		}
		if req.StudentID != owner.StudentID || req.StudentName != owner.Name {
			t.Errorf("owner fields = %q/%q; want %q/%q", req.StudentID, req.StudentName, owner.StudentID, owner.Name)
		}
		if !req.SubmittedAt.Equal(now) {
			t.Errorf("SubmittedAt = %v; want %v", req.SubmittedAt, now)
		}
		if !req.ProcessedAt.IsZero() || req.ProcessedBy != "" {
			t.Error("audit stamps must be empty while pending")
		}
		if hint.Likelihood != 88 {
			t.Errorf("hint.Likelihood = %d; want 88", hint.Likelihood)
		}
		if hint.ResponseTime != "3 hours" {
			t.Errorf("hint.ResponseTime = %q; want %q", hint.ResponseTime, "3 hours")
		}
	})

	t.Run("predictor failure falls back to defaults", func(t *testing.T) {
		env := setup(t, predictorStub{err: request.ErrScoringUnavailable})
		owner := testutil.CreateUser(t, env.usrRepo, "Awe", "awe@test.cd", user.RoleStudent, "ST001")

		req, hint, err := env.svc.Create(ctx, owner, request.NewRequest{
			Kind:   request.KindAppointment,
			Reason: "Family",
			Date:   now,
			Time:   "14:00",
		})
		if err != nil {
			t.Fatalf("Create(): %v", err)
		}
		if req.Score != 75 || req.RiskLevel != request.RiskMedium {
			t.Errorf("Score/RiskLevel = %d/%q; want defaults 75/%q", req.Score, req.RiskLevel, request.RiskMedium)
		}
		if hint.Likelihood != 75 {
			t.Errorf("hint.Likelihood = %d; want 75", hint.Likelihood)
		}
	})

	t.Run("out-of-range prediction falls back to defaults", func(t *testing.T) {
		env := setup(t, predictorStub{pred: request.Prediction{Score: 120, RiskLevel: request.RiskLow}})
		owner := testutil.CreateUser(t, env.usrRepo, "Awe", "awe@test.cd", user.RoleStudent, "ST001")

		req, _, err := env.svc.Create(ctx, owner, request.NewRequest{
			Kind:   request.KindGatePass,
			Reason: "Medical",
			Date:   now,
			Time:   "10:30",
		})
		if err != nil {
			t.Fatalf("Create(): %v", err)
		}
		if req.Score != 75 || req.RiskLevel != request.RiskMedium {
			t.Errorf("Score/RiskLevel = %d/%q; want defaults 75/%q", req.Score, req.RiskLevel, request.RiskMedium)
		}
	})

	t.Run("unknown owner fails", func(t *testing.T) {
		env := setup(t, predictorStub{})
		ghost := user.User{ID: "not-there", StudentID: "ST999"}

		if _, _, err := env.svc.Create(ctx, ghost, request.NewRequest{
			Kind:   request.KindGatePass,
			Reason: "Medical",
			Date:   now,
			Time:   "10:30",
		}); errors.Cause(err) != user.ErrNotFound {
			t.Errorf("Create() error = %v; want user.ErrNotFound", err)
		}
	})
}

func Test_Service_ListOwn(t *testing.T) {
	ctx := context.Background()
	env := setup(t, predictorStub{})

	now := time.Now().UTC()
	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice@test.cd", user.RoleStudent, "ST001")
	bob := testutil.CreateUser(t, env.usrRepo, "Bob", "bob@test.cd", user.RoleStudent, "ST002")

	old := testutil.CreateRequest(t, env.repo, alice, request.KindGatePass, "Medical", "10:30", request.StatusPending, now.Add(-time.Hour))
	recent := testutil.CreateRequest(t, env.repo, alice, request.KindGatePass, "Family", "14:00", request.StatusPending, now)
	testutil.CreateRequest(t, env.repo, bob, request.KindAppointment, "Library", "09:00", request.StatusPending, now)

	reqs, err := env.svc.ListOwn(ctx, alice)
	if err != nil {
		t.Fatalf("ListOwn(): %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("len(reqs) = %d; want 2", len(reqs))
	}
	if reqs[0].ID != recent.ID || reqs[1].ID != old.ID {
		t.Error("ListOwn() not ordered newest-submission-first")
	}
}

func Test_Service_ListAll(t *testing.T) {
	ctx := context.Background()
	env := setup(t, predictorStub{})

	now := time.Now().UTC()
	alice := testutil.CreateUser(t, env.usrRepo, "Alice Doe", "alice@test.cd", user.RoleStudent, "ST001")
	bob := testutil.CreateUser(t, env.usrRepo, "Bob Roe", "bob@test.cd", user.RoleStudent, "ST002")
	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin@test.cd", user.RoleAdmin, "")

	pending := testutil.CreateRequest(t, env.repo, alice, request.KindGatePass, "Medical", "10:30", request.StatusPending, now.Add(-time.Hour))
	approved := testutil.CreateRequest(t, env.repo, bob, request.KindAppointment, "Family", "14:00", request.StatusApproved, now)

	t.Run("admin only", func(t *testing.T) {
		if _, err := env.svc.ListAll(ctx, alice, nil); errors.Cause(err) != core.ErrPermissionDenied {
			t.Errorf("ListAll() error = %v; want ErrPermissionDenied", err)
		}
	})

	tests := []struct {
		name    string
		filter  *request.QueryFilter
		wantIDs []string
	}{
		{name: "no filter", filter: nil, wantIDs: []string{approved.ID, pending.ID}},
		{name: "status=all", filter: &request.QueryFilter{Status: "all"}, wantIDs: []string{approved.ID, pending.ID}},
		{name: "status=pending", filter: &request.QueryFilter{Status: "pending"}, wantIDs: []string{pending.ID}},
		{name: "search by name fragment", filter: &request.QueryFilter{Search: "aLiCe"}, wantIDs: []string{pending.ID}},
		{name: "search by student ID", filter: &request.QueryFilter{Search: "ST002"}, wantIDs: []string{approved.ID}},
		{name: "status and search combined", filter: &request.QueryFilter{Status: "approved", Search: "roe"}, wantIDs: []string{approved.ID}},
		{name: "no match", filter: &request.QueryFilter{Search: "nobody"}, wantIDs: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs, err := env.svc.ListAll(ctx, admin, tt.filter)
			if err != nil {
				t.Fatalf("ListAll(): %v", err)
			}
			if len(reqs) != len(tt.wantIDs) {
				t.Fatalf("len(reqs) = %d; want %d", len(reqs), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if reqs[i].ID != id {
					t.Errorf("reqs[%d].ID = %s; want %s", i, reqs[i].ID, id)
				}
			}
		})
	}
}

func Test_Service_Disposition(t *testing.T) {
	ctx := context.Background()
	env := setup(t, predictorStub{})

	now := time.Date(2021, 3, 14, 10, 0, 0, 0, time.UTC)
	request.NowFunc = func() time.Time { return now }
	defer func() { request.NowFunc = time.Now }()

	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice@test.cd", user.RoleStudent, "ST001")
	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin@test.cd", user.RoleAdmin, "")
	req := testutil.CreateRequest(t, env.repo, alice, request.KindGatePass, "Medical", "10:30", request.StatusPending)

	t.Run("admin only", func(t *testing.T) {
		_, err := env.svc.Disposition(ctx, alice, req.ID, request.Disposition{Status: request.StatusApproved})
		if errors.Cause(err) != core.ErrPermissionDenied {
			t.Errorf("Disposition() error = %v; want ErrPermissionDenied", err)
		}
	})

	t.Run("unknown request", func(t *testing.T) {
		_, err := env.svc.Disposition(ctx, admin, "not-there", request.Disposition{Status: request.StatusApproved})
		if errors.Cause(err) != request.ErrNotFound {
			t.Errorf("Disposition() error = %v; want ErrNotFound", err)
		}
	})

	t.Run("stamps and notifies", func(t *testing.T) {
		got, err := env.svc.Disposition(ctx, admin, req.ID, request.Disposition{
			Status:        request.StatusApproved,
			AdminFeedback: "Enjoy",
		})
		if err != nil {
			t.Fatalf("Disposition(): %v", err)
		}
		if got.Status != request.StatusApproved || got.AdminFeedback != "Enjoy" {
			t.Errorf("Status/AdminFeedback = %q/%q; want approved/Enjoy", got.Status, got.AdminFeedback)
		}
		if got.ProcessedBy != admin.Name {
			t.Errorf("ProcessedBy = %q; want %q", got.ProcessedBy, admin.Name)
		}
		if !got.ProcessedAt.Equal(now) {
			t.Errorf("ProcessedAt = %v; want %v", got.ProcessedAt, now)
		}

		if len(emailsvc.SentMessages) != 1 {
			t.Fatalf("len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
		}
		msg := emailsvc.SentMessages[0]
		if len(msg.To) != 1 || msg.To[0].Address != alice.Email {
			t.Errorf("To = %v; want %s", msg.To, alice.Email)
		}
	})

	t.Run("re-disposition overwrites", func(t *testing.T) {
		got, err := env.svc.Disposition(ctx, admin, req.ID, request.Disposition{
			Status:        request.StatusRejected,
			AdminFeedback: "Changed our minds",
		})
		if err != nil {
			t.Fatalf("Disposition(): %v", err)
		}
		if got.Status != request.StatusRejected || got.AdminFeedback != "Changed our minds" {
			t.Errorf("Status/AdminFeedback = %q/%q; want rejected overwrite", got.Status, got.AdminFeedback)
		}
	})
}
