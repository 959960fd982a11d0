package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/schoolportal/internal/app/controllers"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/repositories/inmem"
	"github.com/yigit/schoolportal/internal/app/services"
	"github.com/yigit/schoolportal/internal/middleware"
	"github.com/yigit/schoolportal/internal/pkg/auth"
	"github.com/yigit/schoolportal/internal/pkg/backup"
	"github.com/yigit/schoolportal/internal/pkg/email"
	"github.com/yigit/schoolportal/internal/pkg/filestorage"
	"github.com/yigit/schoolportal/internal/pkg/validation"
)

const testPassword = "Passw0rd123"

type apiEnv struct {
	router *gin.Engine
	store  *inmem.Store
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, validation.RegisterGinValidators())

	lg := zerolog.Nop()
	store := inmem.NewStore()
	tx := store.TxManager()
	mailer := email.NewEmailService(email.NewLogSender(lg), "School Portal", "http://localhost")

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "routes-test-secret-key",
		AccessTokenExp:  15 * time.Minute,
		RefreshTokenExp: time.Hour,
		TokenIssuer:     "schoolportal-test",
	})
	csrf := auth.NewCSRFService("routes-csrf-secret", time.Hour)

	storage, err := filestorage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	runner, err := backup.NewRunner(backup.Config{Dir: t.TempDir()})
	require.NoError(t, err)

	audit := services.NewAuditService(store.AdminLogs(), lg)
	otp := services.NewOTPService(store.OTPCodes(), mailer, services.OTPSettings{
		Length: 6, TTL: 10 * time.Minute, MaxAttempts: 5, MaxRequests: 3, RequestWindow: time.Hour,
	}, lg)
	addresses := services.NewAddressService(store.Addresses())
	grades := services.NewGradeService(store.Grades(), store.Schedules(), store.Students(), audit, tx, 0, lg)

	c := Controllers{
		Auth: controllers.NewAuthController(
			services.NewAuthService(store.Users(), store.Students(), store.Tokens(), otp, tx, jwtService, lg),
			jwtService, csrf, controllers.CookieConfig{}, lg),
		User:    controllers.NewUserController(services.NewUserService(store.Users(), store.Students(), store.Tokens(), audit, mailer, tx, lg)),
		Address: controllers.NewAddressController(addresses),
		Student: controllers.NewStudentController(services.NewStudentService(store.Students(), store.Applications(), store.Courses(), addresses, audit, tx, lg)),
		Catalog: controllers.NewCatalogController(services.NewCatalogService(store.Courses(), store.Subjects(), store.Sections(),
			store.Schedules(), store.Enrollments(), store.Grades(), store.Users(), audit, tx, lg)),
		Enrollment: controllers.NewEnrollmentController(services.NewEnrollmentService(store.Enrollments(), store.Students(),
			store.Applications(), store.Sections(), store.Schedules(), store.Grades(), audit, tx, lg)),
		Grade:    controllers.NewGradeController(grades),
		Document: controllers.NewDocumentController(services.NewDocumentService(store.Documents(), store.Students(), storage, audit, tx, lg)),
		Admin: controllers.NewAdminController(
			services.NewDashboardService(store.Dashboard()),
			audit,
			services.NewExportService(store.Students(), store.Enrollments(), grades, audit),
			services.NewBackupService(runner, audit, lg),
			lg,
		),
	}

	router := gin.New()
	SetupRouter(router, c, middleware.NewAuthMiddleware(jwtService, csrf, store.Users()))
	return &apiEnv{router: router, store: store}
}

func (e *apiEnv) createUser(t *testing.T, email string, role models.RoleType) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	u := &models.User{
		Email: email, Password: hash, FirstName: "Test", LastName: string(role),
		RoleType: role, IsActive: true, EmailVerified: true,
	}
	_, err = e.store.Users().Create(context.Background(), u)
	require.NoError(t, err)
	if role == models.RoleStudent {
		_, err = e.store.Students().Create(context.Background(), &models.Student{UserID: u.ID})
		require.NoError(t, err)
	}
	return u
}

func (e *apiEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// login returns the bearer token and the cookies set by the server
func (e *apiEnv) login(t *testing.T, email string) (string, []*http.Cookie) {
	t.Helper()
	w := e.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Email: email, Password: testPassword}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data dto.AuthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token.AccessToken)
	return resp.Data.Token.AccessToken, w.Result().Cookies()
}

func bearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorCode {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}

func TestHealthAndPublicAddresses(t *testing.T) {
	e := newAPIEnv(t)
	e.store.SeedAddresses(
		models.Region{Code: "04", Name: "CALABARZON"},
		models.Province{Code: "0421", RegionCode: "04", Name: "Cavite"},
		models.City{Code: "042103", ProvinceCode: "0421", Name: "Bacoor"},
		models.Barangay{Code: "042103001", CityCode: "042103", Name: "Habay I"},
	)

	w := e.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(httptest.NewRequest(http.MethodGet, "/api/v1/addresses/regions/04/provinces", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cavite")
}

func TestLoginSetsSessionCookies(t *testing.T) {
	e := newAPIEnv(t)
	e.createUser(t, "admin@school.test", models.RoleAdmin)

	token, cookies := e.login(t, "admin@school.test")
	names := map[string]bool{}
	for _, c := range cookies {
		names[c.Name] = c.HttpOnly
	}
	assert.True(t, names[middleware.AccessTokenCookie])
	assert.True(t, names[middleware.RefreshTokenCookie])

	w := e.do(bearer(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin@school.test")

	w = e.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Email: "admin@school.test", Password: "wrong-pass1"}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrorCodeInvalidCredentials, errorCode(t, w))
}

func TestRoleGating(t *testing.T) {
	e := newAPIEnv(t)
	e.createUser(t, "teacher@school.test", models.RoleTeacher)
	e.createUser(t, "student@school.test", models.RoleStudent)
	teacherToken, _ := e.login(t, "teacher@school.test")
	studentToken, _ := e.login(t, "student@school.test")

	w := e.do(bearer(httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil), teacherToken))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(bearer(httptest.NewRequest(http.MethodGet, "/api/v1/student/profile", nil), teacherToken))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(bearer(httptest.NewRequest(http.MethodGet, "/api/v1/documents/1/download", nil), teacherToken))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(bearer(httptest.NewRequest(http.MethodGet, "/api/v1/student/profile", nil), studentToken))
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(httptest.NewRequest(http.MethodGet, "/api/v1/student/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminCatalogAndExport(t *testing.T) {
	e := newAPIEnv(t)
	e.createUser(t, "admin@school.test", models.RoleAdmin)
	e.createUser(t, "student@school.test", models.RoleStudent)
	token, _ := e.login(t, "admin@school.test")

	w := e.do(bearer(jsonRequest(http.MethodPost, "/api/v1/admin/courses", dto.CourseRequest{Code: "BSIT", Name: "Information Technology"}), token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(bearer(jsonRequest(http.MethodPost, "/api/v1/admin/courses", dto.CourseRequest{Code: "BSIT", Name: "Duplicate"}), token))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(bearer(jsonRequest(http.MethodPost, "/api/v1/admin/subjects", dto.SubjectRequest{Code: "IT101", Name: "Computing", Units: 0}), token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrorCodeValidationFailed, errorCode(t, w))

	w = e.do(bearer(httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil), token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalItems":1`)

	w = e.do(bearer(httptest.NewRequest(http.MethodGet, "/api/v1/admin/exports/students?format=csv", nil), token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, strings.HasPrefix(strings.TrimPrefix(w.Body.String(), "\xEF\xBB\xBF"), "Student Number,"), w.Body.String())

	w = e.do(bearer(httptest.NewRequest(http.MethodGet, "/api/v1/admin/exports/students?format=pdf", nil), token))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(bearer(httptest.NewRequest(http.MethodGet, "/api/v1/admin/backups", nil), token))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCookieSessionRequiresCSRFToken(t *testing.T) {
	e := newAPIEnv(t)
	e.createUser(t, "admin@school.test", models.RoleAdmin)
	_, cookies := e.login(t, "admin@school.test")

	withCookies := func(req *http.Request) *http.Request {
		for _, c := range cookies {
			req.AddCookie(c)
		}
		return req
	}
	body := dto.CourseRequest{Code: "BSCS", Name: "Computer Science"}

	w := e.do(withCookies(jsonRequest(http.MethodPost, "/api/v1/admin/courses", body)))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrorCodeInvalidCSRFToken, errorCode(t, w))

	w = e.do(withCookies(httptest.NewRequest(http.MethodGet, "/api/v1/auth/csrf-token", nil)))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data dto.CSRFTokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)

	req := withCookies(jsonRequest(http.MethodPost, "/api/v1/admin/courses", body))
	req.Header.Set(middleware.CSRFHeader, resp.Data.Token)
	w = e.do(req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}
