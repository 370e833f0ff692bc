package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/agent007moss/MLT/internal/api/middleware"
	"github.com/agent007moss/MLT/internal/core/domain"
	"github.com/agent007moss/MLT/internal/core/ports"
)

type stubAuthService struct {
	registerFn     func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	verifyEmailFn  func(ctx context.Context, email string) (bool, error)
	authenticateFn func(ctx context.Context, identifier, password string) (*ports.LoginOutcome, error)
	verify2FAFn    func(ctx context.Context, identifier, code string) (*ports.TokenPair, error)
	refreshFn      func(ctx context.Context, refreshToken string) (*ports.TokenPair, error)
	logoutFn       func(ctx context.Context, userID int64) error
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) VerifyEmail(ctx context.Context, email string) (bool, error) {
	return s.verifyEmailFn(ctx, email)
}

func (s *stubAuthService) Authenticate(ctx context.Context, identifier, password string) (*ports.LoginOutcome, error) {
	return s.authenticateFn(ctx, identifier, password)
}

func (s *stubAuthService) VerifySecondFactor(ctx context.Context, identifier, code string) (*ports.TokenPair, error) {
	return s.verify2FAFn(ctx, identifier, code)
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (*ports.TokenPair, error) {
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubAuthService) Logout(ctx context.Context, userID int64) error {
	return s.logoutFn(ctx, userID)
}

func (s *stubAuthService) Authorize(context.Context, string) (*ports.Principal, error) {
	return nil, domain.ErrInvalidToken
}

func (s *stubAuthService) EnsureBootstrapUsers(context.Context, []ports.BootstrapSeed) error {
	return nil
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func postJSON(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// run invokes h and renders a returned error through echo's default
// handler, as the router would.
func run(e *echo.Echo, c echo.Context, h echo.HandlerFunc) {
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*domain.User, error) {
			if in.Username != "alice" || in.Email != "alice@example.com" || in.Password != "long-enough-pw" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: 3, Email: in.Email, Username: in.Username, Role: domain.RoleUser}, nil
		},
	}

	c, rec := postJSON(e, "/auth/register", `{"email":"alice@example.com","username":"alice","password":"long-enough-pw"}`)
	run(e, c, NewAuthHandler(stub).Register)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	resp := decode(t, rec)
	if resp["id"] != float64(3) || resp["username"] != "alice" || resp["email"] != "alice@example.com" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if _, ok := resp["password_hash"]; ok {
		t.Fatalf("password hash must never be rendered")
	}
}

func TestAuthHandler_Register_ValidationFailure(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.User, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}

	cases := map[string]string{
		"short password": `{"email":"a@example.com","username":"alice","password":"short"}`,
		"bad email":      `{"email":"nope","username":"alice","password":"long-enough-pw"}`,
		"short username": `{"email":"a@example.com","username":"al","password":"long-enough-pw"}`,
	}
	for name, body := range cases {
		c, rec := postJSON(e, "/auth/register", body)
		run(e, c, NewAuthHandler(stub).Register)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", name, rec.Code)
		}
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.User, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}

	c, rec := postJSON(e, "/auth/register", "not-json")
	run(e, c, NewAuthHandler(stub).Register)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthHandler_Register_ServiceError(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.User, error) {
			return nil, domain.ErrUserExists
		},
	}

	c, _ := postJSON(e, "/auth/register", `{"email":"a@example.com","username":"alice","password":"long-enough-pw"}`)
	if err := NewAuthHandler(stub).Register(c); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists to propagate, got %v", err)
	}
}

func TestAuthHandler_VerifyEmail(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		verifyEmailFn: func(_ context.Context, email string) (bool, error) {
			return email == "alice@example.com", nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/verify-email?email=alice@example.com", nil)
	rec := httptest.NewRecorder()
	run(e, e.NewContext(req, rec), NewAuthHandler(stub).VerifyEmail)

	if rec.Code != http.StatusOK || decode(t, rec)["verified"] != true {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/verify-email", nil)
	rec = httptest.NewRecorder()
	run(e, e.NewContext(req, rec), NewAuthHandler(stub).VerifyEmail)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without email, got %d", rec.Code)
	}
}

func TestAuthHandler_Login_OTPRequired(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		authenticateFn: func(_ context.Context, identifier, password string) (*ports.LoginOutcome, error) {
			if identifier != "alice" || password != "secret-password" {
				t.Fatalf("unexpected args: %s %s", identifier, password)
			}
			return &ports.LoginOutcome{Mode: ports.LoginModeOTPRequired, Message: "OTP sent via email", DebugCode: "123456"}, nil
		},
	}

	c, rec := postJSON(e, "/auth/login", `{"username_or_email":"alice","password":"secret-password"}`)
	run(e, c, NewAuthHandler(stub).Login)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode(t, rec)
	if resp["mode"] != "otp_required" || resp["debug_otp"] != "123456" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if _, ok := resp["access_token"]; ok {
		t.Fatalf("no tokens before the second factor")
	}
}

func TestAuthHandler_Login_Tokens(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		authenticateFn: func(context.Context, string, string) (*ports.LoginOutcome, error) {
			return &ports.LoginOutcome{
				Mode:   ports.LoginModeTokens,
				Tokens: &ports.TokenPair{AccessToken: "a", RefreshToken: "r", TokenType: "bearer"},
			}, nil
		},
	}

	c, rec := postJSON(e, "/auth/login", `{"username_or_email":"root","password":"secret-password"}`)
	run(e, c, NewAuthHandler(stub).Login)

	resp := decode(t, rec)
	if resp["mode"] != "tokens" || resp["access_token"] != "a" || resp["refresh_token"] != "r" || resp["token_type"] != "bearer" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if _, ok := resp["debug_otp"]; ok {
		t.Fatalf("debug_otp must be omitted")
	}
}

func TestAuthHandler_Login_Errors(t *testing.T) {
	e := newTestEcho()
	for _, want := range []error{domain.ErrInvalidCredentials, domain.ErrAccountLocked} {
		stub := &stubAuthService{
			authenticateFn: func(context.Context, string, string) (*ports.LoginOutcome, error) {
				return nil, want
			},
		}
		c, _ := postJSON(e, "/auth/login", `{"username_or_email":"alice","password":"bad"}`)
		if err := NewAuthHandler(stub).Login(c); err != want {
			t.Fatalf("expected %v, got %v", want, err)
		}
	}
}

func TestAuthHandler_VerifyTwoFactor(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		verify2FAFn: func(_ context.Context, identifier, code string) (*ports.TokenPair, error) {
			if identifier != "alice@example.com" || code != "012345" {
				t.Fatalf("unexpected args: %s %s", identifier, code)
			}
			return &ports.TokenPair{AccessToken: "a", RefreshToken: "r", TokenType: "bearer"}, nil
		},
	}

	c, rec := postJSON(e, "/auth/verify-2fa", `{"username_or_email":"alice@example.com","code":"012345"}`)
	run(e, c, NewAuthHandler(stub).VerifyTwoFactor)
	if rec.Code != http.StatusOK || decode(t, rec)["access_token"] != "a" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	for _, body := range []string{
		`{"username_or_email":"alice","code":"12345"}`,
		`{"username_or_email":"alice","code":"12345a"}`,
		`{"code":"123456"}`,
	} {
		c, rec := postJSON(e, "/auth/verify-2fa", body)
		run(e, c, NewAuthHandler(stub).VerifyTwoFactor)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected 422, got %d", body, rec.Code)
		}
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		refreshFn: func(_ context.Context, rt string) (*ports.TokenPair, error) {
			if rt == "replayed" {
				return nil, domain.ErrSessionRevoked
			}
			return &ports.TokenPair{AccessToken: "a2", RefreshToken: "r2", TokenType: "bearer"}, nil
		},
	}

	c, rec := postJSON(e, "/auth/refresh", `{"refresh_token":"fresh"}`)
	run(e, c, NewAuthHandler(stub).Refresh)
	if rec.Code != http.StatusOK || decode(t, rec)["refresh_token"] != "r2" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	c, _ = postJSON(e, "/auth/refresh", `{"refresh_token":"replayed"}`)
	if err := NewAuthHandler(stub).Refresh(c); err != domain.ErrSessionRevoked {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestAuthHandler_LogoutAndMe(t *testing.T) {
	e := newTestEcho()
	var loggedOut int64
	stub := &stubAuthService{
		logoutFn: func(_ context.Context, userID int64) error {
			loggedOut = userID
			return nil
		},
	}
	principal := &ports.Principal{
		UserID: 11,
		Role:   domain.RoleUser,
		User:   &domain.User{ID: 11, PublicID: "pub-11", Email: "u@example.com", Username: "u11", Role: domain.RoleUser},
	}

	c, rec := postJSON(e, "/auth/logout", "")
	c.Set(middleware.ContextPrincipal, principal)
	run(e, c, NewAuthHandler(stub).Logout)
	if rec.Code != http.StatusOK || loggedOut != 11 {
		t.Fatalf("logout failed: %d user=%d", rec.Code, loggedOut)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set(middleware.ContextPrincipal, principal)
	run(e, c, NewAuthHandler(stub).Me)

	resp := decode(t, rec)
	if resp["public_user_id"] != "pub-11" || resp["role"] != "USER" || resp["username"] != "u11" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAuthHandler_MeWithoutPrincipal(t *testing.T) {
	e := newTestEcho()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/me", nil), rec)

	run(e, c, NewAuthHandler(&stubAuthService{}).Me)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
