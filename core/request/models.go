package request

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/passify/backend/core"
)

// Request kinds
const (
	KindGatePass    = "Gate Pass"
	KindAppointment = "Appointment"
)

// Lifecycle statuses: pending -> approved | rejected.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Risk levels, set exactly once at creation from the predictor (or its fallback).
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

var (
	AllKinds            = []string{KindGatePass, KindAppointment}
	DispositionStatuses = []string{StatusApproved, StatusRejected}
	AllStatuses         = []string{StatusPending, StatusApproved, StatusRejected}
)

// Request is one gate-pass/appointment submission. The owner's name is
// denormalized at creation time so list views need no identity lookup; it goes
// stale if the owner is later renamed and that is accepted.
type Request struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"student_id"`
	StudentName    string    `json:"student_name"`
	Kind           string    `json:"type"`
	Reason         string    `json:"reason"`
	Date           time.Time `json:"date"`
	Time           string    `json:"time"`
	Destination    string    `json:"destination,omitempty"`
	Duration       string    `json:"duration,omitempty"`
	AdditionalInfo string    `json:"additional_info,omitempty"`
	Status         string    `json:"status"`
	Score          int       `json:"ai_score"`
	RiskLevel      string    `json:"risk_level"`
	AdminFeedback  string    `json:"admin_feedback,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"` // UTC
	ProcessedAt    time.Time `json:"processed_at"` // UTC; zero while pending
	ProcessedBy    string    `json:"processed_by,omitempty"`
}

func (r *Request) IsPending() bool { return r.Status == StatusPending }

// NewRequest is the intake tuple supplied by the caller.
type NewRequest struct {
	Kind           string    `json:"type" validate:"required,requestkind"`
	Reason         string    `json:"reason" validate:"required"`
	Date           time.Time `json:"date" validate:"required"`
	Time           string    `json:"time" validate:"required,timeslot"`
	Destination    string    `json:"destination"`
	Duration       string    `json:"duration"`
	AdditionalInfo string    `json:"additional_info"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.Kind = core.CleanString(nr.Kind)
	nr.Reason = core.CleanString(nr.Reason)
	nr.Time = core.CleanString(nr.Time)
	nr.Destination = core.CleanString(nr.Destination)
	nr.Duration = core.CleanString(nr.Duration)
	nr.AdditionalInfo = core.CleanString(nr.AdditionalInfo)
	return validate.Struct(nr)
}

// Disposition is the admin action closing out (or amending) a request.
type Disposition struct {
	Status        string `json:"status" validate:"required,dispostatus"`
	AdminFeedback string `json:"admin_feedback"`
}

func (d *Disposition) Validate(validate *validator.Validate) error {
	d.Status = core.CleanString(d.Status, true /* lower */)
	d.AdminFeedback = core.CleanString(d.AdminFeedback)
	return validate.Struct(d)
}

// Hint is the cosmetic response-time estimate returned on creation; it is
// never stored.
type Hint struct {
	Likelihood   int    `json:"likelihood"`
	ResponseTime string `json:"response_time"`
}

type QueryFilter struct {
	Status string `query:"status"`
	Search string `query:"search"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Status == "" && qf.Search == ""
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	if qf.Status == "all" {
		qf.Status = ""
	}
	qf.Search = core.CleanString(qf.Search)
}
