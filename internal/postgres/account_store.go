package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"libracore/internal/accounts"
	"libracore/internal/errs"
)

// AccountStore persists user accounts.
type AccountStore struct {
	db *DB
}

var _ accounts.Store = (*AccountStore)(nil)

func NewAccountStore(db *DB) *AccountStore {
	return &AccountStore{db: db}
}

const userColumns = `id, name, email, password_hash, password_salt, role, mobile, otp, otp_generated_at, created_at, updated_at`

func (s *AccountStore) Insert(ctx context.Context, user *accounts.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, password_salt, role, mobile, otp, otp_generated_at, created_at, updated_at)
		VALUES (:id, :name, :email, :password_hash, :password_salt, :role, :mobile, :otp, :otp_generated_at, :created_at, :updated_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, s.db.ext(ctx), query, user); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email or mobile: %w", errs.ErrAlreadyExists)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *AccountStore) Get(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*accounts.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *AccountStore) FindByMobile(ctx context.Context, mobile string) (*accounts.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE mobile = $1`, mobile)
}

func (s *AccountStore) findOne(ctx context.Context, query string, arg interface{}) (*accounts.User, error) {
	user := &accounts.User{}
	if err := sqlx.GetContext(ctx, s.db.ext(ctx), user, query, arg); err != nil {
		if noRows(err) {
			return nil, fmt.Errorf("user: %w", errs.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *AccountStore) Save(ctx context.Context, user *accounts.User) error {
	query := `
		UPDATE users
		SET name = :name, email = :email, password_hash = :password_hash, password_salt = :password_salt,
		    role = :role, mobile = :mobile, otp = :otp, otp_generated_at = :otp_generated_at,
		    updated_at = :updated_at
		WHERE id = :id
	`
	res, err := sqlx.NamedExecContext(ctx, s.db.ext(ctx), query, user)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email or mobile: %w", errs.ErrAlreadyExists)
		}
		return fmt.Errorf("save user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %s: %w", user.ID, errs.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
