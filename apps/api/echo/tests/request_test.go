package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	echoapi "github.com/passify/backend/apps/api/echo"
	"github.com/passify/backend/core/request"
	"github.com/passify/backend/core/user"
	testutil "github.com/passify/backend/tests"
)

func Test_requestApi_create(t *testing.T) {
	env := setup(t, fixedPredictor{pred: request.Prediction{Score: 88, RiskLevel: request.RiskLow}})

	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice@test.cd", user.RoleStudent, "ST001")
	aliceToken := getToken(t, env.conf, alice)

	date := time.Date(2021, 3, 20, 0, 0, 0, 0, time.UTC)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "empty body", token: aliceToken, body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"type":   "this field is required",
				"reason": "this field is required",
				"date":   "this field is required",
				"time":   "this field is required",
			}),
		},
		{
			name: "bad kind", token: aliceToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, request.NewRequest{Kind: "Vacation", Reason: "Medical", Date: date, Time: "10:30"}),
		},
		{
			name: "bad time slot", token: aliceToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, request.NewRequest{Kind: request.KindGatePass, Reason: "Medical", Date: date, Time: "25:99"}),
			wantData: marchallObj(t, map[string]string{"time": "must be a time of day in HH:MM format"}),
		},
		{
			name: "created", token: aliceToken, wantCode: http.StatusCreated,
			body: marchallObj(t, request.NewRequest{
				Kind:        request.KindGatePass,
				Reason:      "Medical",
				Date:        date,
				Time:        "10:30",
				Destination: "Clinic",
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/requests", tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode != http.StatusCreated {
				return
			}
			var resp echoapi.CreateRequestResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if resp.Request.Status != request.StatusPending {
				t.Errorf("Status = %q; want pending", resp.Request.Status)
			}
			if resp.Request.Score != 88 || resp.Request.RiskLevel != request.RiskLow {
				t.Errorf("Score/RiskLevel = %d/%q; want 88/low", resp.Request.Score, resp.Request.RiskLevel)
			}
			if resp.Request.StudentID != alice.StudentID || resp.Request.StudentName != alice.Name {
				t.Errorf("owner = %q/%q; want %q/%q", resp.Request.StudentID, resp.Request.StudentName, alice.StudentID, alice.Name)
			}
			if resp.Prediction.Likelihood != 88 {
				t.Errorf("Prediction.Likelihood = %d; want 88", resp.Prediction.Likelihood)
			}
			if resp.Prediction.ResponseTime == "" {
				t.Error("Prediction.ResponseTime is empty")
			}
		})
	}
}

func Test_requestApi_listOwn(t *testing.T) {
	env := setup(t, fixedPredictor{})

	now := time.Now().UTC()
	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice@test.cd", user.RoleStudent, "ST001")
	bob := testutil.CreateUser(t, env.usrRepo, "Bob", "bob@test.cd", user.RoleStudent, "ST002")

	old := testutil.CreateRequest(t, env.reqRepo, alice, request.KindGatePass, "Medical", "10:30", request.StatusPending, now.Add(-time.Hour))
	recent := testutil.CreateRequest(t, env.reqRepo, alice, request.KindGatePass, "Family", "14:00", request.StatusPending, now)
	testutil.CreateRequest(t, env.reqRepo, bob, request.KindAppointment, "Library", "09:00", request.StatusPending, now)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "own requests, newest first", token: getToken(t, env.conf, alice),
			wantCode: http.StatusOK, wantData: marchallList(t, recent, old),
		},
		{
			name: "no requests", token: getToken(t, env.conf, user.User{ID: "x", StudentID: "ST999"}),
			wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/requests/own", tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_requestApi_listAll(t *testing.T) {
	env := setup(t, fixedPredictor{})

	path := func(status, search string) string {
		v := make(url.Values)
		if status != "" {
			v.Add("status", status)
		}
		if search != "" {
			v.Add("search", search)
		}
		if len(v) == 0 {
			return "/v1/requests"
		}
		return "/v1/requests?" + v.Encode()
	}

	now := time.Now().UTC()
	alice := testutil.CreateUser(t, env.usrRepo, "Alice Doe", "alice@test.cd", user.RoleStudent, "ST001")
	bob := testutil.CreateUser(t, env.usrRepo, "Bob Roe", "bob@test.cd", user.RoleStudent, "ST002")
	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin@test.cd", user.RoleAdmin, "")
	adminToken := getToken(t, env.conf, admin)

	pending := testutil.CreateRequest(t, env.reqRepo, alice, request.KindGatePass, "Medical", "10:30", request.StatusPending, now.Add(-time.Hour))
	approved := testutil.CreateRequest(t, env.reqRepo, bob, request.KindAppointment, "Family", "14:00", request.StatusApproved, now)

	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: path("", ""), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: path("", ""), token: getToken(t, env.conf, alice),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Get all", path: path("", ""), token: adminToken, wantData: marchallList(t, approved, pending)},
		{name: "status=all", path: path("all", ""), token: adminToken, wantData: marchallList(t, approved, pending)},
		{name: "status=pending", path: path("pending", ""), token: adminToken, wantData: marchallList(t, pending)},
		{name: "status=rejected", path: path("rejected", ""), token: adminToken, wantData: empty},
		{name: "search by name", path: path("", "alice"), token: adminToken, wantData: marchallList(t, pending)},
		{name: "search by student ID", path: path("", "st002"), token: adminToken, wantData: marchallList(t, approved)},
		{name: "status & search", path: path("approved", "roe"), token: adminToken, wantData: marchallList(t, approved)},
		{name: "search (unknown)", path: path("", "lol"), token: adminToken, wantData: empty},
	}
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_requestApi_disposition(t *testing.T) {
	env := setup(t, fixedPredictor{})

	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice@test.cd", user.RoleStudent, "ST001")
	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin@test.cd", user.RoleAdmin, "")
	adminToken := getToken(t, env.conf, admin)

	req := testutil.CreateRequest(t, env.reqRepo, alice, request.KindGatePass, "Medical", "10:30", request.StatusPending)

	approve := marchallObj(t, request.Disposition{Status: request.StatusApproved, AdminFeedback: "Enjoy"})

	tests := []httpTest{
		{
			name: "Auth required", path: "/v1/requests/" + req.ID, body: approve,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Admin required", path: "/v1/requests/" + req.ID, body: approve, token: getToken(t, env.conf, alice),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "invalid status", path: "/v1/requests/" + req.ID, token: adminToken,
			body:     marchallObj(t, request.Disposition{Status: "pending"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown request", path: "/v1/requests/nope", body: approve, token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{name: "approved", path: "/v1/requests/" + req.ID, body: approve, token: adminToken, wantCode: http.StatusOK},
		{
			name: "re-disposition overwrites", path: "/v1/requests/" + req.ID, token: adminToken,
			body:     marchallObj(t, request.Disposition{Status: request.StatusRejected, AdminFeedback: "Changed our minds"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpReq, rec := newAuthRequest(http.MethodPatch, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, httpReq)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode != http.StatusOK {
				return
			}
			var got request.Request
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if got.IsPending() {
				t.Error("request still pending after disposition")
			}
			if got.ProcessedBy != admin.Name {
				t.Errorf("ProcessedBy = %q; want %q", got.ProcessedBy, admin.Name)
			}
			if got.ProcessedAt.IsZero() {
				t.Error("ProcessedAt not stamped")
			}
		})
	}
}
