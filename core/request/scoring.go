package request

import (
	"context"
	"errors"
)

// ErrScoringUnavailable is the only failure a Predictor may report: the
// external predictor could not produce a usable result (failed to start,
// timed out, exited non-zero, or printed garbage). It never reaches callers;
// the service substitutes the predictor's defaults.
var ErrScoringUnavailable = errors.New("prediction unavailable")

type (
	// Intake is the tuple handed to the external predictor.
	Intake struct {
		Reason    string
		Kind      string
		Time      string
		StudentID string
	}

	Prediction struct {
		Score     int    `json:"score"`
		RiskLevel string `json:"risk_level"`
	}

	// Predictor maps an intake to an approval likelihood and risk level.
	// A single bounded attempt per call; no retries.
	Predictor interface {
		Predict(ctx context.Context, in Intake) (Prediction, error)
		// Defaults returns the fallback used when the predictor is unavailable.
		Defaults() Prediction
	}
)

// Valid reports whether a prediction is usable as stored state.
func (p Prediction) Valid() bool {
	if p.Score < 0 || p.Score > 100 {
		return false
	}
	switch p.RiskLevel {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}
