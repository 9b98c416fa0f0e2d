package user

import (
	"context"
	"errors"
	"time"

	"github.com/passify/backend/core"
)

var (
	// errors
	ErrNotFound        = errors.New("user not found")
	ErrEmailExists     = errors.New("a user with this email already exists")
	ErrStudentIDExists = errors.New("a user with this student ID already exists")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CheckUniqueness fails with ErrEmailExists or ErrStudentIDExists on a
		// collision; an empty studentID is never considered a collision.
		CheckUniqueness(ctx context.Context, email, studentID string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByStudentID(ctx context.Context, studentID string) (User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckUniqueness(email, studentID string) error {
	if err := svc.repo.CheckUniqueness(context.Background(), email, studentID); err != nil {
		var field string
		switch err {
		case ErrEmailExists:
			field = "email"
		case ErrStudentIDExists:
			field = "student_id"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	role := nu.Role
	if role == "" {
		role = RoleStudent
	}
	usr := User{
		Email:      nu.Email,
		Name:       nu.Name,
		Role:       role,
		StudentID:  nu.StudentID,
		Department: nu.Department,
		CreatedAt:  NowFunc().UTC(),
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) GetByStudentID(ctx context.Context, studentID string) (User, error) {
	return svc.repo.GetUserByStudentID(ctx, core.CleanString(studentID))
}
