package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/services"
	"github.com/yigit/schoolportal/internal/middleware"
	"github.com/yigit/schoolportal/internal/pkg/auth"
)

// CookieConfig controls the session cookies written on login
type CookieConfig struct {
	Secure bool
	Domain string
}

// AuthController handles authentication related operations
type AuthController struct {
	authService *services.AuthService
	jwtService  *auth.JWTService
	csrf        *auth.CSRFService
	cookies     CookieConfig
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService *services.AuthService, jwtService *auth.JWTService, csrf *auth.CSRFService, cookies CookieConfig, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		jwtService:  jwtService,
		csrf:        csrf,
		cookies:     cookies,
		logger:      logger,
	}
}

func (c *AuthController) setCookie(ctx *gin.Context, name, value string, ttl time.Duration, httpOnly bool) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(name, value, int(ttl.Seconds()), "/", c.cookies.Domain, c.cookies.Secure, httpOnly)
}

func (c *AuthController) setSessionCookies(ctx *gin.Context, token dto.TokenResponse) {
	c.setCookie(ctx, middleware.AccessTokenCookie, token.AccessToken, c.jwtService.AccessTokenTTL(), true)
	c.setCookie(ctx, middleware.RefreshTokenCookie, token.RefreshToken, c.jwtService.RefreshTokenTTL(), true)
}

func (c *AuthController) clearSessionCookies(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie, middleware.CSRFCookie} {
		ctx.SetCookie(name, "", -1, "/", c.cookies.Domain, c.cookies.Secure, name != middleware.CSRFCookie)
	}
}

// Register handles student sign-up
// @Summary Register a new student
// @Description Creates a student account and e-mails a verification code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration form"
// @Success 201 {object} dto.APIResponse{data=dto.RegisterResponse}
// @Failure 400 {object} dto.ErrorResponse "Validation failed or weak password"
// @Failure 409 {object} dto.ErrorResponse "Email already exists"
// @Router /auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.authService.Register(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Warn().Err(err).Str("email", req.Email).Msg("Registration failed")
		middleware.HandleAPIError(ctx, err)
		return
	}
	created(ctx, resp, resp.Message)
}

// CheckEmail reports whether an address is still available
// @Summary Check email availability
// @Tags auth
// @Produce json
// @Param email query string true "Email address"
// @Success 200 {object} dto.APIResponse{data=dto.CheckEmailResponse}
// @Router /auth/check-email [get]
func (c *AuthController) CheckEmail(ctx *gin.Context) {
	var req dto.EmailRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}
	resp, err := c.authService.CheckEmail(ctx.Request.Context(), req.Email)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, resp, "")
}

// Login handles user login
// @Summary User login
// @Description Authenticates a user, returns tokens and sets the session cookies
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse}
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 403 {object} dto.ErrorResponse "Account disabled"
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.authService.Login(ctx.Request.Context(), &req)
	if err != nil {
		c.logger.Warn().Err(err).Str("email", req.Email).Str("ip", ctx.ClientIP()).Msg("Login failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.setSessionCookies(ctx, resp.Token)
	c.logger.Info().Int64("userID", resp.User.ID).Msg("User logged in")
	ok(ctx, resp, "Login successful")
}

// refreshTokenFrom prefers the JSON body and falls back to the cookie
func refreshTokenFrom(ctx *gin.Context) string {
	var req dto.RefreshTokenRequest
	if ctx.Request.ContentLength > 0 {
		_ = ctx.ShouldBindJSON(&req)
	}
	if req.RefreshToken != "" {
		return req.RefreshToken
	}
	token, _ := ctx.Cookie(middleware.RefreshTokenCookie)
	return token
}

// RefreshToken rotates the refresh token
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest false "Refresh token, when the cookie is not used"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse}
// @Failure 401 {object} dto.ErrorResponse "Invalid, revoked or expired refresh token"
// @Router /auth/refresh [post]
func (c *AuthController) RefreshToken(ctx *gin.Context) {
	resp, err := c.authService.RefreshToken(ctx.Request.Context(), refreshTokenFrom(ctx))
	if err != nil {
		c.logger.Warn().Err(err).Msg("Refresh token failed")
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.setSessionCookies(ctx, resp.Token)
	ok(ctx, resp, "Token refreshed")
}

// Logout revokes the refresh token and clears the cookies
// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Router /auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	if err := c.authService.Logout(ctx.Request.Context(), refreshTokenFrom(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.clearSessionCookies(ctx)
	ok(ctx, nil, "Logged out")
}

// CSRFToken issues a token for the X-CSRF-Token header
// @Summary Issue a CSRF token
// @Tags auth
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CSRFTokenResponse}
// @Router /auth/csrf-token [get]
func (c *AuthController) CSRFToken(ctx *gin.Context) {
	token := c.csrf.Issue(middleware.CurrentUserID(ctx))
	c.setCookie(ctx, middleware.CSRFCookie, token, c.csrf.TTL(), false)
	ok(ctx, dto.CSRFTokenResponse{Token: token, ExpiresIn: int64(c.csrf.TTL().Seconds())}, "")
}

// Me returns the authenticated user
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Router /auth/me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	user, err := c.authService.Me(ctx.Request.Context(), middleware.CurrentUserID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, user, "")
}

// ChangePassword changes the caller's password and ends every session
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} dto.APIResponse
// @Failure 401 {object} dto.ErrorResponse "Current password is wrong"
// @Router /auth/change-password [post]
func (c *AuthController) ChangePassword(ctx *gin.Context) {
	var req dto.ChangePasswordRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	if err := c.authService.ChangePassword(ctx.Request.Context(), middleware.CurrentUserID(ctx), &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.clearSessionCookies(ctx)
	ok(ctx, nil, "Password changed, please log in again")
}

// VerifyEmail confirms an address with the e-mailed code
// @Summary Verify email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.VerifyEmailRequest true "Email and code"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid or expired code"
// @Router /auth/verify-email [post]
func (c *AuthController) VerifyEmail(ctx *gin.Context) {
	var req dto.VerifyEmailRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	if err := c.authService.VerifyEmail(ctx.Request.Context(), &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, nil, "Email verified")
}

// ResendVerification sends a fresh verification code
// @Summary Resend verification code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.EmailRequest true "Email"
// @Success 200 {object} dto.APIResponse
// @Failure 429 {object} dto.ErrorResponse "Too many requests"
// @Router /auth/resend-verification [post]
func (c *AuthController) ResendVerification(ctx *gin.Context) {
	var req dto.EmailRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	if err := c.authService.ResendVerification(ctx.Request.Context(), req.Email); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, nil, "Verification code sent")
}

// ForgotPassword always answers with the same message
// @Summary Request a password reset code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.EmailRequest true "Email"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Router /auth/forgot-password [post]
func (c *AuthController) ForgotPassword(ctx *gin.Context) {
	var req dto.EmailRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	if err := c.authService.ForgotPassword(ctx.Request.Context(), req.Email); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, nil, "If the address is registered, a reset code has been sent")
}

// ResetPassword sets a new password with a reset code
// @Summary Reset password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Email, code and new password"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid code or weak password"
// @Router /auth/reset-password [post]
func (c *AuthController) ResetPassword(ctx *gin.Context) {
	var req dto.ResetPasswordRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	if err := c.authService.ResetPassword(ctx.Request.Context(), &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, nil, "Password has been reset")
}
