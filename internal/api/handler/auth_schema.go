package handler

import (
	"github.com/agent007moss/MLT/internal/core/domain"
	"github.com/agent007moss/MLT/internal/core/ports"
)

// ── Requests ──────────────────────────────────────────────────────────────────

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=120"`
	Password string `json:"password" validate:"required,min=10,max=128"`
}

type verifyEmailRequest struct {
	Email string `query:"email" validate:"required"`
}

type loginRequest struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required"`
	Password        string `json:"password"          validate:"required"`
}

type verify2FARequest struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required"`
	Code            string `json:"code"              validate:"required,len=6,numeric"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

type registerResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type verifyEmailResponse struct {
	Verified bool `json:"verified"`
}

// loginResponse carries either a token pair (mode "tokens") or the notice
// that a code was sent (mode "otp_required").
type loginResponse struct {
	Mode         string `json:"mode"`
	Message      string `json:"message,omitempty"`
	DebugOTP     string `json:"debug_otp,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type meResponse struct {
	ID           int64  `json:"id"`
	PublicUserID string `json:"public_user_id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	Role         string `json:"role"`
}

func toLoginResponse(out *ports.LoginOutcome) loginResponse {
	resp := loginResponse{Mode: string(out.Mode), Message: out.Message, DebugOTP: out.DebugCode}
	if out.Tokens != nil {
		resp.AccessToken = out.Tokens.AccessToken
		resp.RefreshToken = out.Tokens.RefreshToken
		resp.TokenType = out.Tokens.TokenType
	}
	return resp
}

func toTokenPairResponse(p *ports.TokenPair) tokenPairResponse {
	return tokenPairResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, TokenType: p.TokenType}
}

func toMeResponse(u *domain.User) meResponse {
	return meResponse{
		ID:           u.ID,
		PublicUserID: u.PublicID,
		Email:        u.Email,
		Username:     u.Username,
		Role:         string(u.Role),
	}
}

// errorResponse documents the envelope rendered by the API error handler.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
