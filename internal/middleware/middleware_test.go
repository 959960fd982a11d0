package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/repositories/inmem"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"github.com/yigit/schoolportal/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	store *inmem.Store
	jwt   *auth.JWTService
	csrf  *auth.CSRFService
	mw    *AuthMiddleware
}

func newFixture() *fixture {
	store := inmem.NewStore()
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "middleware-test-secret-key",
		AccessTokenExp:  15 * time.Minute,
		RefreshTokenExp: time.Hour,
		TokenIssuer:     "schoolportal-test",
	})
	csrf := auth.NewCSRFService("csrf-test-secret", time.Hour)
	return &fixture{
		store: store,
		jwt:   jwtService,
		csrf:  csrf,
		mw:    NewAuthMiddleware(jwtService, csrf, store.Users()),
	}
}

func (f *fixture) user(t *testing.T, email string, role models.RoleType, active, verified bool) (*models.User, string) {
	t.Helper()
	u := &models.User{
		Email:         email,
		Password:      "x",
		FirstName:     "Test",
		LastName:      "User",
		RoleType:      role,
		IsActive:      active,
		EmailVerified: verified,
	}
	_, err := f.store.Users().Create(context.Background(), u)
	require.NoError(t, err)
	pair, err := f.jwt.GenerateTokenPair(u)
	require.NoError(t, err)
	return u, pair.AccessToken
}

func whoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"userID": CurrentUserID(c), "role": CurrentRole(c)})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	f := newFixture()
	u, token := f.user(t, "teacher@school.test", models.RoleTeacher, true, true)

	r := gin.New()
	r.GET("/me", f.mw.JWTAuth(), whoAmI)

	t.Run("missing credentials", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrorCodeUnauthorized, decodeError(t, w).Error.Code)
	})

	t.Run("bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := serve(r, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, fmt.Sprintf(`{"userID":%d,"role":"TEACHER"}`, u.ID), w.Body.String())
	})

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
		w := serve(r, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := serve(r, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrorCodeInvalidToken, decodeError(t, w).Error.Code)
	})
}

func TestOptionalAuthNeverAborts(t *testing.T) {
	f := newFixture()
	r := gin.New()
	r.GET("/open", f.mw.OptionalAuth(), whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer broken")
	w := serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userID":0,"role":""}`, w.Body.String())
}

func TestRoleRequired(t *testing.T) {
	f := newFixture()
	_, studentToken := f.user(t, "student@school.test", models.RoleStudent, true, true)
	_, adminToken := f.user(t, "admin@school.test", models.RoleAdmin, true, true)

	r := gin.New()
	r.GET("/admin", f.mw.JWTAuth(), f.mw.RoleRequired(models.RoleAdmin), whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+studentToken)
	w := serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrorCodeForbidden, decodeError(t, w).Error.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}

func TestEmailVerificationRequired(t *testing.T) {
	f := newFixture()
	_, unverified := f.user(t, "new@school.test", models.RoleStudent, true, false)
	_, disabled := f.user(t, "gone@school.test", models.RoleStudent, false, true)
	_, ok := f.user(t, "ok@school.test", models.RoleStudent, true, true)

	r := gin.New()
	r.GET("/portal", f.mw.JWTAuth(), f.mw.EmailVerificationRequired(), whoAmI)

	cases := []struct {
		name   string
		token  string
		status int
		code   dto.ErrorCode
	}{
		{"unverified", unverified, http.StatusForbidden, dto.ErrorCodeEmailNotVerified},
		{"disabled", disabled, http.StatusForbidden, dto.ErrorCodeAccountDisabled},
		{"verified", ok, http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/portal", nil)
			req.Header.Set("Authorization", "Bearer "+tc.token)
			w := serve(r, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.code != "" {
				assert.Equal(t, tc.code, decodeError(t, w).Error.Code)
			}
		})
	}
}

func TestCSRFProtection(t *testing.T) {
	f := newFixture()
	u, token := f.user(t, "student@school.test", models.RoleStudent, true, true)
	other, _ := f.user(t, "other@school.test", models.RoleStudent, true, true)

	r := gin.New()
	r.Use(f.mw.CSRFProtection())
	r.POST("/change", f.mw.JWTAuth(), whoAmI)
	r.GET("/change", f.mw.JWTAuth(), whoAmI)

	cookieRequest := func(method, csrfToken string) *http.Request {
		req := httptest.NewRequest(method, "/change", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
		if csrfToken != "" {
			req.Header.Set(CSRFHeader, csrfToken)
		}
		return req
	}

	t.Run("missing header", func(t *testing.T) {
		w := serve(r, cookieRequest(http.MethodPost, ""))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, dto.ErrorCodeInvalidCSRFToken, decodeError(t, w).Error.Code)
	})

	t.Run("token of another user", func(t *testing.T) {
		w := serve(r, cookieRequest(http.MethodPost, f.csrf.Issue(other.ID)))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := serve(r, cookieRequest(http.MethodPost, f.csrf.Issue(u.ID)))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("safe method", func(t *testing.T) {
		w := serve(r, cookieRequest(http.MethodGet, ""))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("bearer clients are exempt", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/change", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		assert.Equal(t, http.StatusOK, serve(r, req).Code)
	})
}

func TestHandleAPIError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		code    dto.ErrorCode
		message string
	}{
		{"section full", apperrors.ErrSectionFull, http.StatusConflict, dto.ErrorCodeConflict, "Section is full"},
		{"wrapped not found", fmt.Errorf("lookup: %w", apperrors.ErrGradeNotFound), http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Grade not found"},
		{"custom message", apperrors.NewResourceNotFoundError("No such region"), http.StatusNotFound, dto.ErrorCodeResourceNotFound, "No such region"},
		{"transition", apperrors.ErrInvalidGradeTransition, http.StatusConflict, dto.ErrorCodeInvalidTransition, "Grade status does not allow this action"},
		{"file too large", apperrors.ErrFileTooLarge, http.StatusRequestEntityTooLarge, dto.ErrorCodeFileTooLarge, "File too large"},
		{"rate limited", apperrors.ErrTooManyRequests, http.StatusTooManyRequests, dto.ErrorCodeTooManyRequests, "Too many requests, try again later"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleAPIError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			resp := decodeError(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tc.code, resp.Error.Code)
			assert.Equal(t, tc.message, resp.Error.Message)
		})
	}
}

func TestHandleAPIErrorKeepsDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	err := (&apperrors.CustomError{Err: apperrors.ErrValidationFailed, Message: "Capacity too small"}).
		WithDetails(map[string]interface{}{"approved": 3})
	HandleAPIError(c, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"approved":3`)
}

func TestBindJSONWritesValidationError(t *testing.T) {
	type payload struct {
		Email string `json:"email" binding:"required,email"`
	}
	r := gin.New()
	r.POST("/bind", func(c *gin.Context) {
		var p payload
		if !BindJSON(c, &p) {
			return
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/bind", nil)
	req.Header.Set("Content-Type", "application/json")
	req.Body = http.NoBody
	w := serve(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrorCodeValidationFailed, decodeError(t, w).Error.Code)
}

func TestRecoveryReturnsEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, dto.ErrorCodeInternalServer, decodeError(t, w).Error.Code)
}
