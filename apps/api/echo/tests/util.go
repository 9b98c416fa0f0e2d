package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/passify/backend/apps/api/echo"
	"github.com/passify/backend/core"
	"github.com/passify/backend/core/report"
	"github.com/passify/backend/core/request"
	"github.com/passify/backend/core/user"
	emailsvc "github.com/passify/backend/services/email"
	inmemdb "github.com/passify/backend/storage/database/inmem"
	testutil "github.com/passify/backend/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// fixedPredictor returns a canned prediction or error.
type fixedPredictor struct {
	pred request.Prediction
	err  error
}

func (p fixedPredictor) Predict(ctx context.Context, in request.Intake) (request.Prediction, error) {
	return p.pred, p.err
}

func (p fixedPredictor) Defaults() request.Prediction {
	return request.Prediction{Score: 75, RiskLevel: request.RiskMedium}
}

type env struct {
	conf    *core.Config
	app     echoapi.Server
	usrRepo user.Repository
	reqRepo request.Repository
}

func setup(t *testing.T, predictor request.Predictor) env {
	conf := testutil.NewConfig()

	// set up DB & repos
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	usrRepo := inmemdb.NewUserRepository(db)
	reqRepo := inmemdb.NewRequestRepository(db)

	// set up services
	emailsvc.ClearSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	logger := testutil.NewLogger()

	usrSvc := user.NewService(usrRepo)
	reqSvc := request.NewService(reqRepo, usrRepo, predictor, mailSvc, core.NopMetrics{}, logger)
	repSvc := report.NewService(reqRepo)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	request.InitValidators(validate, translator)

	// set up server
	app := echoapi.NewServer(
		"", /* addr */
		&echoapi.Deps{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    usrSvc,
			RequestSvc: reqSvc,
			ReportSvc:  repSvc,
			Validate:   validate,
			Translator: translator,
		},
	)
	return env{conf: conf, app: app, usrRepo: usrRepo, reqRepo: reqRepo}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := echoapi.GenerateToken(conf, echoapi.GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
