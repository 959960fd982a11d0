package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/repositories"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"github.com/yigit/schoolportal/internal/pkg/auth"
)

// Cookie and header names shared with the auth controller
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	CSRFCookie         = "csrf_token"
	CSRFHeader         = "X-CSRF-Token"
)

// Context keys set by JWTAuth
const (
	ContextUserID        = "userID"
	ContextEmail         = "email"
	ContextRoleType      = "roleType"
	ContextAuthViaCookie = "authViaCookie"
)

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService *auth.JWTService
	csrf       *auth.CSRFService
	userRepo   repositories.IUserRepository
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *auth.JWTService, csrf *auth.CSRFService, userRepo repositories.IUserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		csrf:       csrf,
		userRepo:   userRepo,
	}
}

// identify reads the access token from the Authorization header or, failing
// that, from the access_token cookie.
func (m *AuthMiddleware) identify(c *gin.Context) (*auth.Claims, bool, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		token, err := auth.ExtractBearerToken(header)
		if err != nil {
			return nil, false, err
		}
		claims, err := m.jwtService.ValidateAndExtractClaims(token)
		return claims, false, err
	}

	token, err := c.Cookie(AccessTokenCookie)
	if err != nil || token == "" {
		return nil, false, apperrors.ErrUnauthenticated
	}
	claims, err := m.jwtService.ValidateAndExtractClaims(token)
	return claims, true, err
}

func setIdentity(c *gin.Context, claims *auth.Claims, viaCookie bool) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextEmail, claims.Email)
	c.Set(ContextRoleType, claims.RoleType)
	c.Set(ContextAuthViaCookie, viaCookie)
}

// JWTAuth middleware for JWT token validation
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, viaCookie, err := m.identify(c)
		if err != nil {
			errorCode := dto.ErrorCodeInvalidToken
			details := "Invalid token"
			switch {
			case errors.Is(err, apperrors.ErrUnauthenticated):
				errorCode = dto.ErrorCodeUnauthorized
				details = "Authorization header or session cookie missing"
			case errors.Is(err, auth.ErrExpiredToken):
				errorCode = dto.ErrorCodeExpiredToken
				details = "Token has expired"
			case errors.Is(err, auth.ErrInvalidFormat):
				details = "Invalid token format"
			}

			errorDetail := dto.NewErrorDetail(errorCode, "Authentication required").WithDetails(details)
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		setIdentity(c, claims, viaCookie)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and never aborts
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, viaCookie, err := m.identify(c); err == nil {
			setIdentity(c, claims, viaCookie)
		}
		c.Next()
	}
}

// EmailVerificationRequired blocks accounts that have not confirmed their address
func (m *AuthMiddleware) EmailVerificationRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64(ContextUserID)
		if userID == 0 {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required").
				WithDetails("User information not found")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		user, err := m.userRepo.GetByID(c.Request.Context(), userID)
		if err != nil {
			HandleAPIError(c, err)
			c.Abort()
			return
		}
		if !user.IsActive {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeAccountDisabled, "Account is disabled")
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
			return
		}
		if !user.EmailVerified {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeEmailNotVerified, "Email not verified").
				WithDetails("Please verify your email address before accessing this resource")
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
			return
		}

		c.Next()
	}
}

// RoleRequired middleware to check if user has one of the required roles
func (m *AuthMiddleware) RoleRequired(roles ...models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.RoleType(c.GetString(ContextRoleType))
		if role == "" {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required").
				WithDetails("User role not found")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied").
			WithDetails("You don't have sufficient permissions for this operation")
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
	}
}

// CSRFProtection requires a valid X-CSRF-Token on unsafe requests that
// authenticate through cookies. Bearer requests are exempt.
func (m *AuthMiddleware) CSRFProtection() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "" || !hasSessionCookie(c) {
			c.Next()
			return
		}

		userID := c.GetInt64(ContextUserID)
		if userID == 0 {
			if claims, viaCookie, err := m.identify(c); err == nil && viaCookie {
				userID = claims.UserID
			}
		}

		token := c.GetHeader(CSRFHeader)
		if token == "" || m.csrf.Verify(token, userID) != nil {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeInvalidCSRFToken, "Invalid or missing CSRF token").
				WithDetails("Send the token from GET /api/v1/auth/csrf-token in the " + CSRFHeader + " header")
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
			return
		}
		c.Next()
	}
}

func hasSessionCookie(c *gin.Context) bool {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		if v, err := c.Cookie(name); err == nil && v != "" {
			return true
		}
	}
	return false
}

// CurrentUserID returns the authenticated user's ID, or 0
func CurrentUserID(c *gin.Context) int64 {
	return c.GetInt64(ContextUserID)
}

// CurrentRole returns the authenticated user's role
func CurrentRole(c *gin.Context) models.RoleType {
	return models.RoleType(c.GetString(ContextRoleType))
}
