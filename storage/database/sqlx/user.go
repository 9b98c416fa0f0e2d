package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/passify/backend/core/user"
)

type dbUser struct {
	ID         string      `db:"id"`
	Email      string      `db:"email"`
	Name       string      `db:"name"`
	Role       string      `db:"role"`
	StudentID  null.String `db:"student_id"`
	Department null.String `db:"department"`
	CreatedAt  time.Time   `db:"created_at"`
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) pack(usr user.User) dbUser {
	return dbUser{
		ID:         usr.ID,
		Email:      usr.Email,
		Name:       usr.Name,
		Role:       usr.Role,
		StudentID:  null.NewString(usr.StudentID, usr.StudentID != ""),
		Department: null.NewString(usr.Department, usr.Department != ""),
		CreatedAt:  usr.CreatedAt.UTC(),
	}
}

func (repo userRepository) unpack(u dbUser) user.User {
	return user.User{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       u.Role,
		StudentID:  u.StudentID.String,
		Department: u.Department.String,
		CreatedAt:  u.CreatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUniqueness(ctx context.Context, email, studentID string) error {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM "user" WHERE email = $1)`
	if err := repo.db.GetContext(ctx, &exists, q, email); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}

	if studentID != "" {
		q = `SELECT EXISTS (SELECT 1 FROM "user" WHERE student_id = $1)`
		if err := repo.db.GetContext(ctx, &exists, q, studentID); err != nil {
			return errors.Wrap(err, "checking student ID uniqueness")
		}
		if exists {
			return user.ErrStudentIDExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	u := repo.pack(usr)

	q := `
	INSERT INTO "user" (id, email, name, role, student_id, department, created_at)
	VALUES (:id, :email, :name, :role, :student_id, :department, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, u); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.unpack(u), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}

	var u dbUser
	q := `SELECT * FROM "user" WHERE id = $1`
	if err := repo.db.GetContext(ctx, &u, q, id); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return repo.unpack(u), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var u dbUser
	q := `SELECT * FROM "user" WHERE email = $1`
	if err := repo.db.GetContext(ctx, &u, q, email); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by email")
	}
	return repo.unpack(u), nil
}

func (repo userRepository) GetUserByStudentID(ctx context.Context, studentID string) (user.User, error) {
	var u dbUser
	q := `SELECT * FROM "user" WHERE student_id = $1`
	if err := repo.db.GetContext(ctx, &u, q, studentID); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by student ID")
	}
	return repo.unpack(u), nil
}
