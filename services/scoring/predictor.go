package scoringsvc

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/passify/backend/core"
	"github.com/passify/backend/core/request"
)

// scriptPredictor shells out to the external predictor script. The script gets
// the intake tuple as arguments and must print a single JSON line:
//
//	{"score": 0-100, "risk_level": "low|medium|high"}
//
// Anything else - spawn failure, timeout, non-zero exit, unparseable or
// out-of-range output - is reported as request.ErrScoringUnavailable.
type scriptPredictor struct {
	conf core.ScoringConfig
}

var _ request.Predictor = (*scriptPredictor)(nil)

func NewScriptPredictor(conf core.ScoringConfig) *scriptPredictor {
	return &scriptPredictor{conf: conf}
}

func (p *scriptPredictor) Predict(ctx context.Context, in request.Intake) (request.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, p.conf.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.conf.Interpreter, p.conf.Script, in.Reason, in.Kind, in.Time, in.StudentID)
	out, err := cmd.Output()
	if err != nil {
		return request.Prediction{}, errors.Wrap(request.ErrScoringUnavailable, "running predictor: "+err.Error())
	}

	pred, err := parseOutput(out)
	if err != nil {
		return request.Prediction{}, errors.Wrap(request.ErrScoringUnavailable, err.Error())
	}
	return pred, nil
}

func (p *scriptPredictor) Defaults() request.Prediction {
	return request.Prediction{Score: p.conf.DefaultScore, RiskLevel: p.conf.DefaultRiskLevel}
}

// parseOutput decodes the first non-empty output line.
func parseOutput(out []byte) (request.Prediction, error) {
	var line string
	for _, l := range strings.Split(string(out), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	if line == "" {
		return request.Prediction{}, errors.New("empty predictor output")
	}

	var pred request.Prediction
	if err := json.Unmarshal([]byte(line), &pred); err != nil {
		return request.Prediction{}, errors.Wrap(err, "decoding predictor output")
	}
	if !pred.Valid() {
		return request.Prediction{}, errors.Errorf("predictor output out of range: %+v", pred)
	}
	return pred, nil
}

// staticPredictor always returns the configured defaults; it stands in for the
// external predictor in dev and tests.
type staticPredictor struct {
	conf core.ScoringConfig
}

var _ request.Predictor = (*staticPredictor)(nil)

func NewStaticPredictor(conf core.ScoringConfig) *staticPredictor {
	return &staticPredictor{conf: conf}
}

func (p *staticPredictor) Predict(ctx context.Context, in request.Intake) (request.Prediction, error) {
	return p.Defaults(), nil
}

func (p *staticPredictor) Defaults() request.Prediction {
	return request.Prediction{Score: p.conf.DefaultScore, RiskLevel: p.conf.DefaultRiskLevel}
}
