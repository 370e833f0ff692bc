package ports

import (
	"context"

	"github.com/agent007moss/MLT/internal/core/domain"
)

// LoginMode tells the caller what Authenticate produced.
type LoginMode string

const (
	LoginModeOTPRequired LoginMode = "otp_required"
	LoginModeTokens      LoginMode = "tokens"
)

// TokenPair is a freshly issued access/refresh pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// LoginOutcome is the result of a successful password check.
// DebugCode is only set when debug OTP exposure is enabled.
type LoginOutcome struct {
	Mode      LoginMode
	Tokens    *TokenPair
	DebugCode string
	Message   string
}

// Principal is the authenticated caller resolved from an access token.
// Role comes from the stored user, not from the token claim.
type Principal struct {
	UserID int64
	Role   domain.Role
	User   *domain.User
}

// RegisterInput carries a self-service sign-up.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// BootstrapSeed describes an account created at start-up when missing.
type BootstrapSeed struct {
	Email    string
	Username string
	Password string
	Role     domain.Role
}

// AuthService is the session manager: credential checks, second factor,
// token issuance, rotation and revocation.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	VerifyEmail(ctx context.Context, email string) (bool, error)
	Authenticate(ctx context.Context, identifier, password string) (*LoginOutcome, error)
	VerifySecondFactor(ctx context.Context, identifier, code string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, userID int64) error
	Authorize(ctx context.Context, accessToken string) (*Principal, error)
	EnsureBootstrapUsers(ctx context.Context, seeds []BootstrapSeed) error
}

// Authorizer is the slice of AuthService the HTTP middleware depends on.
type Authorizer interface {
	Authorize(ctx context.Context, accessToken string) (*Principal, error)
}
