package accounts

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"libracore/internal/clock"
	"libracore/internal/errs"
	"libracore/internal/notify"
)

// service implements the Service interface.
type service struct {
	store      Store
	notifier   notify.Notifier
	clk        clock.Clock
	jwtKey     []byte
	jwtTTL     time.Duration
	otpWindow  time.Duration
	otpLimiter *rate.Limiter
	logger     *zap.Logger
}

// NewService creates a new accounts service instance.
func NewService(store Store, notifier notify.Notifier, clk clock.Clock, jwtKey []byte, jwtTTL, otpWindow time.Duration, logger *zap.Logger) Service {
	return &service{
		store:      store,
		notifier:   notifier,
		clk:        clk,
		jwtKey:     jwtKey,
		jwtTTL:     jwtTTL,
		otpWindow:  otpWindow,
		otpLimiter: rate.NewLimiter(rate.Every(1*time.Minute), 5), // 5 requests per minute
		logger:     logger,
	}
}

// Register creates a new user with a hashed credential. Role defaults to
// "user" when empty.
func (s *service) Register(ctx context.Context, name, email, mobile, password, role string) (*User, error) {
	if email == "" || mobile == "" || password == "" {
		return nil, fmt.Errorf("email, mobile and password are required")
	}
	if role == "" {
		role = RoleUser
	}
	if role != RoleUser && role != RoleAdmin {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	passwordHash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clk.Now()
	user := &User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		Mobile:       mobile,
		PasswordHash: passwordHash,
		PasswordSalt: salt,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Insert(ctx, user); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role),
	)
	return user, nil
}

// Login verifies the credential and, when role is non-empty, that the account
// holds that role. On success it returns the user and a signed token.
func (s *service) Login(ctx context.Context, email, password, role string) (*User, string, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, "", errs.ErrUnauthorized
		}
		return nil, "", err
	}

	ok, err := verifyPassword(password, user.PasswordSalt, user.PasswordHash)
	if err != nil || !ok {
		return nil, "", errs.ErrUnauthorized
	}
	if role != "" && !strings.EqualFold(user.Role, role) {
		return nil, "", errs.ErrUnauthorized
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// issueToken creates a signed HS256 JWT for the given user.
func (s *service) issueToken(user *User) (string, error) {
	now := s.clk.Now()
	claims := tokenClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtKey)
}

// GetUser retrieves a user by ID.
func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.Get(ctx, id)
}

// RequestOTP generates and dispatches a recovery code for the account holding
// mobile. A new request overwrites any outstanding code.
func (s *service) RequestOTP(ctx context.Context, mobile string) error {
	if !s.otpLimiter.Allow() {
		return errs.ErrRateLimited
	}

	user, err := s.store.FindByMobile(ctx, mobile)
	if err != nil {
		return err
	}

	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	now := s.clk.Now()
	user.OTP = &code
	user.OTPGeneratedAt = &now
	user.UpdatedAt = now
	if err := s.store.Save(ctx, user); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}

	if err := s.notifier.Send(ctx, user.Mobile, "Your Library OTP is: "+code); err != nil {
		return fmt.Errorf("dispatch otp: %w", err)
	}

	s.logger.Info("otp dispatched", zap.String("user_id", user.ID.String()))
	return nil
}

// VerifyOTP checks candidate against the outstanding code. A match inside the
// validity window consumes the code; everything else leaves state untouched so
// the correct code stays usable until expiry.
func (s *service) VerifyOTP(ctx context.Context, mobile, candidate string) (bool, error) {
	user, err := s.store.FindByMobile(ctx, mobile)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if user.OTP == nil || user.OTPGeneratedAt == nil {
		return false, nil
	}

	now := s.clk.Now()
	if !now.Before(user.OTPGeneratedAt.Add(s.otpWindow)) {
		return false, nil
	}
	if *user.OTP != candidate {
		return false, nil
	}

	user.OTP = nil
	user.OTPGeneratedAt = nil
	user.UpdatedAt = now
	if err := s.store.Save(ctx, user); err != nil {
		return false, fmt.Errorf("clear otp: %w", err)
	}
	return true, nil
}

// ResetPassword replaces the credential for the account holding mobile.
func (s *service) ResetPassword(ctx context.Context, mobile, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("password is required")
	}

	user, err := s.store.FindByMobile(ctx, mobile)
	if err != nil {
		return err
	}

	passwordHash, salt, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = passwordHash
	user.PasswordSalt = salt
	user.UpdatedAt = s.clk.Now()
	if err := s.store.Save(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	s.logger.Info("password reset", zap.String("user_id", user.ID.String()))
	return nil
}

// generateOTP draws a uniform 6-digit decimal code in [100000, 999999].
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
