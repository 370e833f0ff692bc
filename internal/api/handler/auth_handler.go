package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agent007moss/MLT/internal/api/metrics"
	"github.com/agent007moss/MLT/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new USER account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, registerResponse{ID: user.ID, Email: user.Email, Username: user.Username})
}

// VerifyEmail marks the account using the given email as verified.
//
// @Summary      Verify an email address
// @Tags         auth
// @Produce      json
// @Param        email  query     string  true  "Account email"
// @Success      200    {object}  verifyEmailResponse
// @Failure      422    {object}  errorResponse
// @Router       /auth/verify-email [get]
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ok, err := h.authService.VerifyEmail(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, verifyEmailResponse{Verified: ok})
}

// Login checks the password and either sends an OTP or, for privileged
// accounts with the non-production bypass enabled, returns tokens.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      401   {object}  errorResponse
// @Failure      423   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	out, err := h.authService.Authenticate(c.Request().Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.Result(err)).Inc()
		return err
	}
	metrics.LoginAttemptsTotal.WithLabelValues(string(out.Mode)).Inc()

	return c.JSON(http.StatusOK, toLoginResponse(out))
}

// VerifyTwoFactor answers the pending OTP challenge and returns tokens.
//
// @Summary      Verify the second factor
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verify2FARequest  true  "OTP submission"
// @Success      200   {object}  tokenPairResponse
// @Failure      401   {object}  errorResponse
// @Failure      423   {object}  errorResponse
// @Router       /auth/verify-2fa [post]
func (h *AuthHandler) VerifyTwoFactor(c echo.Context) error {
	var req verify2FARequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.authService.VerifySecondFactor(c.Request().Context(), req.UsernameOrEmail, req.Code)
	metrics.OTPVerificationsTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTokenPairResponse(pair))
}

// Refresh rotates a refresh token.
//
// @Summary      Rotate a refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh token"
// @Success      200   {object}  tokenPairResponse
// @Failure      401   {object}  errorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	metrics.TokenRefreshesTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTokenPairResponse(pair))
}

// Logout revokes every session of the caller.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  okResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	if err := h.authService.Logout(c.Request().Context(), p.UserID); err != nil {
		return err
	}
	metrics.LogoutsTotal.Inc()
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

// Me returns the authenticated account.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMeResponse(p.User))
}

// bindAndValidate binds the request and runs the registered validator.
// Malformed payloads are 400, well-formed but invalid ones are 422.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}
