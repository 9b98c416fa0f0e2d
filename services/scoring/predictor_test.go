package scoringsvc

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/passify/backend/core"
	"github.com/passify/backend/core/request"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "scoring")
	if err != nil {
		t.Fatalf("TempDir(): %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	path := filepath.Join(dir, "predict.sh")
	if err := ioutil.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("WriteFile(): %v", err)
	}
	return path
}

func newConf(script string, timeout time.Duration) core.ScoringConfig {
	return core.ScoringConfig{
		Interpreter:      "/bin/sh",
		Script:           script,
		Timeout:          timeout,
		DefaultScore:     75,
		DefaultRiskLevel: request.RiskMedium,
	}
}

var intake = request.Intake{Reason: "Medical Appointment", Kind: request.KindGatePass, Time: "10:00", StudentID: "S1"}

func Test_scriptPredictor_Predict(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		timeout  time.Duration
		want     request.Prediction
		wantFail bool
	}{
		{
			name:   "valid output",
			script: `echo '{"score": 88, "risk_level": "low"}'`,
			want:   request.Prediction{Score: 88, RiskLevel: request.RiskLow},
		},
		{
			name:   "valid output after blank lines",
			script: "echo ''\necho '{\"score\": 42, \"risk_level\": \"high\"}'",
			want:   request.Prediction{Score: 42, RiskLevel: request.RiskHigh},
		},
		{
			name:   "error payload still carrying defaults",
			script: `echo '{"error": "model exploded", "score": 75, "risk_level": "medium"}'`,
			want:   request.Prediction{Score: 75, RiskLevel: request.RiskMedium},
		},
		{name: "garbage output", script: `echo 'lol'`, wantFail: true},
		{name: "empty output", script: `true`, wantFail: true},
		{name: "score out of range", script: `echo '{"score": 150, "risk_level": "low"}'`, wantFail: true},
		{name: "unknown risk level", script: `echo '{"score": 50, "risk_level": "lol"}'`, wantFail: true},
		{name: "non-zero exit", script: `exit 3`, wantFail: true},
		{name: "hung process", script: `sleep 5`, timeout: 100 * time.Millisecond, wantFail: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeout := tt.timeout
			if timeout == 0 {
				timeout = 2 * time.Second
			}
			p := NewScriptPredictor(newConf(writeScript(t, tt.script), timeout))

			pred, err := p.Predict(context.Background(), intake)
			if tt.wantFail {
				if errors.Cause(err) != request.ErrScoringUnavailable {
					t.Fatalf("Predict() error = %v; want ErrScoringUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			if pred != tt.want {
				t.Errorf("Predict() = %+v; want %+v", pred, tt.want)
			}
		})
	}
}

func Test_scriptPredictor_missingScript(t *testing.T) {
	p := NewScriptPredictor(newConf("/nonexistent/predict.py", time.Second))
	if _, err := p.Predict(context.Background(), intake); errors.Cause(err) != request.ErrScoringUnavailable {
		t.Fatalf("Predict() error = %v; want ErrScoringUnavailable", err)
	}
}

func Test_staticPredictor(t *testing.T) {
	p := NewStaticPredictor(newConf("", time.Second))
	pred, err := p.Predict(context.Background(), intake)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if want := (request.Prediction{Score: 75, RiskLevel: request.RiskMedium}); pred != want {
		t.Errorf("Predict() = %+v; want %+v", pred, want)
	}
}
