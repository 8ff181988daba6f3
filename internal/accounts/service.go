package accounts

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for account management and credential recovery.
type Service interface {
	Register(ctx context.Context, name, email, mobile, password, role string) (*User, error)
	Login(ctx context.Context, email, password, role string) (*User, string, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)

	// RequestOTP generates a 6-digit code for the account holding mobile,
	// overwriting any outstanding code, and dispatches it by SMS.
	RequestOTP(ctx context.Context, mobile string) error

	// VerifyOTP reports whether candidate matches the outstanding code within
	// its validity window. A match consumes the code. Unknown accounts, absent
	// codes, expired windows and wrong guesses all yield false.
	VerifyOTP(ctx context.Context, mobile, candidate string) (bool, error)

	// ResetPassword replaces the credential for the account holding mobile.
	// Callers are responsible for sequencing this after a successful VerifyOTP.
	ResetPassword(ctx context.Context, mobile, newPassword string) error
}
