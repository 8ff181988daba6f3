package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Roles a user account can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered library member or admin.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	PasswordSalt string    `json:"-" db:"password_salt"`
	Role         string    `json:"role" db:"role"`
	Mobile       string    `json:"mobile" db:"mobile"`

	// OTP is a single-slot recovery challenge: at most one outstanding code,
	// overwritten by each new request and cleared on successful verification.
	OTP            *string    `json:"-" db:"otp"`
	OTPGeneratedAt *time.Time `json:"-" db:"otp_generated_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Store is the persistence port for user accounts. Email and mobile are
// unique; Insert reports errs.ErrAlreadyExists on a collision.
type Store interface {
	Insert(ctx context.Context, user *User) error
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByMobile(ctx context.Context, mobile string) (*User, error)
	Save(ctx context.Context, user *User) error
}
