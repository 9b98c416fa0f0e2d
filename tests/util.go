package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"testing"
	"time"

	"github.com/passify/backend/core"
	"github.com/passify/backend/core/request"
	"github.com/passify/backend/core/user"
	logsvc "github.com/passify/backend/services/logger"
)

// NewConfig returns a config suitable for tests; no env files are read.
func NewConfig() *core.Config {
	return &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Passify",
		SecretKey: "test-secret-key",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
			ShutdownTimeout:    time.Second,
		},
		Scoring: core.ScoringConfig{
			Interpreter:      "python",
			Timeout:          time.Second,
			DefaultScore:     75,
			DefaultRiskLevel: "medium",
		},
	}
}

// NewLogger returns a quiet logger for tests.
func NewLogger() core.Logger {
	return logsvc.NewConsoleLogger(log.New(ioutil.Discard, "", 0))
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, role, studentID string,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		StudentID: studentID,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateRequest(
	t *testing.T,
	repo request.Repository,
	owner user.User,
	kind, reason, timeSlot, status string,
	submittedAt ...time.Time,
) request.Request {
	tstamp := time.Now().UTC()
	if len(submittedAt) > 0 {
		tstamp = submittedAt[0].UTC()
	}
	req, err := repo.CreateRequest(context.Background(), request.Request{
		StudentID:   owner.StudentID,
		StudentName: owner.Name,
		Kind:        kind,
		Reason:      reason,
		Date:        tstamp,
		Time:        timeSlot,
		Status:      status,
		Score:       75,
		RiskLevel:   request.RiskMedium,
		SubmittedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}
	return req
}
