package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/yigit/schoolportal/internal/app/controllers"
	appMigrations "github.com/yigit/schoolportal/internal/app/migrations"
	appRepos "github.com/yigit/schoolportal/internal/app/repositories"
	appRoutes "github.com/yigit/schoolportal/internal/app/routes"
	appServices "github.com/yigit/schoolportal/internal/app/services"
	"github.com/yigit/schoolportal/internal/config"
	"github.com/yigit/schoolportal/internal/db"
	appMiddleware "github.com/yigit/schoolportal/internal/middleware"
	pkgAuth "github.com/yigit/schoolportal/internal/pkg/auth"
	"github.com/yigit/schoolportal/internal/pkg/backup"
	"github.com/yigit/schoolportal/internal/pkg/email"
	"github.com/yigit/schoolportal/internal/pkg/filestorage"
	"github.com/yigit/schoolportal/internal/pkg/helpers"
	"github.com/yigit/schoolportal/internal/pkg/logger"
	"github.com/yigit/schoolportal/internal/pkg/validation"
	"github.com/yigit/schoolportal/internal/seed"
)

// DefaultConfigPath is where the YAML config is looked up
var DefaultConfigPath = filepath.Join("configs", "config.yaml")

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos       *appRepos.Repositories
	JWTService  *pkgAuth.JWTService
	CSRFService *pkgAuth.CSRFService
	FileStorage *filestorage.LocalStorage
	Mailer      email.EmailService

	AuditService      *appServices.AuditService
	OTPService        *appServices.OTPService
	AuthService       *appServices.AuthService
	UserService       appServices.UserService
	AddressService    *appServices.AddressService
	StudentService    *appServices.StudentService
	CatalogService    *appServices.CatalogService
	EnrollmentService *appServices.EnrollmentService
	GradeService      *appServices.GradeService
	DocumentService   *appServices.DocumentService
	DashboardService  *appServices.DashboardService
	ExportService     *appServices.ExportService
	BackupService     *appServices.BackupService

	Controllers    appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	host, _ := os.Hostname()
	environment := cfg.Logging.Environment
	if environment == "" {
		environment = cfg.Server.Mode
	}
	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
		Hooks: []zerolog.Hook{logger.NewRollbarHook(logger.RollbarConfig{
			Token:       cfg.Logging.RollbarToken,
			Environment: environment,
			CodeVersion: cfg.Logging.CodeVersion,
			ServerHost:  host,
		})},
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// ConnectDatabase opens the pool and checks that the server answers.
func ConnectDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.Pool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		database.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")
	return database, nil
}

// RunMigrations applies the embedded migrations that are still pending.
func RunMigrations(ctx context.Context, database *db.PostgresDB, lgr zerolog.Logger) (int, error) {
	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(database.Pool, appMigrations.Files())
	applied, err := migrator.Up(ctx)
	if err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return applied, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Int("applied", applied).Msg("Database migrations successfully applied.")
	return applied, nil
}

// SetupDatabase connects, migrates and seeds the database.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	database, err := ConnectDatabase(cfg, lgr)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if _, err := RunMigrations(ctx, database, lgr); err != nil {
		database.Close()
		return nil, err
	}

	if err := seed.CreateDefaultData(ctx, database, seed.Options{}, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return database, nil
}

// NewEmailSender picks the delivery backend named by the configuration
func NewEmailSender(cfg *config.Config, lgr zerolog.Logger) email.Sender {
	switch cfg.Email.Provider {
	case config.EmailProviderSMTP:
		return email.NewSMTPSender(email.SMTPConfig{
			Host:      cfg.Email.SMTPHost,
			Port:      cfg.Email.SMTPPort,
			Username:  cfg.Email.SMTPUsername,
			Password:  cfg.Email.SMTPPassword,
			FromName:  cfg.Email.FromName,
			FromEmail: cfg.Email.FromEmail,
			UseTLS:    cfg.Email.SMTPUseTLS,
		}, lgr)
	case config.EmailProviderSendGrid:
		return email.NewSendGridSender(cfg.Email.SendGridAPIKey, cfg.Email.FromName, cfg.Email.FromEmail, lgr)
	default:
		lgr.Warn().Msg("E-mail provider is 'log'; messages are written to the log only")
		return email.NewLogSender(lgr)
	}
}

// NewBackupRunner builds the pg_dump/psql runner from the configuration
func NewBackupRunner(cfg *config.Config) (*backup.Runner, error) {
	return backup.NewRunner(backup.Config{
		Dir:        cfg.Server.BackupPath,
		PgDumpPath: cfg.Database.PgDumpPath,
		PsqlPath:   cfg.Database.PsqlPath,
		Timeout:    helpers.ParseDuration(cfg.Database.BackupTimeout, 10*time.Minute),
		Host:       cfg.Database.Host,
		Port:       cfg.Database.Port,
		User:       cfg.Database.User,
		Password:   cfg.Database.Password,
		DBName:     cfg.Database.DBName,
	})
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}
	deps.Repos = appRepos.NewRepositories(database)
	repos := deps.Repos

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	runner, err := NewBackupRunner(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize backup runner")
		return nil, fmt.Errorf("failed to initialize backup runner: %w", err)
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 15*time.Minute),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 168*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})
	deps.CSRFService = pkgAuth.NewCSRFService(cfg.CSRFSecret(), helpers.ParseDuration(cfg.Security.CSRFTokenTTL, 2*time.Hour))
	deps.Mailer = email.NewEmailService(NewEmailSender(cfg, lgr), cfg.Email.AppName, cfg.Server.BaseURL)

	deps.AuditService = appServices.NewAuditService(repos.AdminLogRepository, lgr)
	deps.OTPService = appServices.NewOTPService(repos.OTPRepository, deps.Mailer, appServices.OTPSettings{
		Length:        cfg.OTP.Length,
		TTL:           helpers.ParseDuration(cfg.OTP.TTL, 10*time.Minute),
		MaxAttempts:   cfg.OTP.MaxAttempts,
		MaxRequests:   cfg.OTP.MaxRequests,
		RequestWindow: helpers.ParseDuration(cfg.OTP.RequestWindow, 15*time.Minute),
	}, lgr)
	deps.AuthService = appServices.NewAuthService(
		repos.UserRepository,
		repos.StudentRepository,
		repos.TokenRepository,
		deps.OTPService,
		database,
		deps.JWTService,
		lgr,
	)
	deps.UserService = appServices.NewUserService(
		repos.UserRepository,
		repos.StudentRepository,
		repos.TokenRepository,
		deps.AuditService,
		deps.Mailer,
		database,
		lgr,
	)
	deps.AddressService = appServices.NewAddressService(repos.AddressRepository)
	deps.StudentService = appServices.NewStudentService(
		repos.StudentRepository,
		repos.ApplicationRepository,
		repos.CourseRepository,
		deps.AddressService,
		deps.AuditService,
		database,
		lgr,
	)
	deps.CatalogService = appServices.NewCatalogService(
		repos.CourseRepository,
		repos.SubjectRepository,
		repos.SectionRepository,
		repos.ScheduleRepository,
		repos.EnrollmentRepository,
		repos.GradeRepository,
		repos.UserRepository,
		deps.AuditService,
		database,
		lgr,
	)
	deps.EnrollmentService = appServices.NewEnrollmentService(
		repos.EnrollmentRepository,
		repos.StudentRepository,
		repos.ApplicationRepository,
		repos.SectionRepository,
		repos.ScheduleRepository,
		repos.GradeRepository,
		deps.AuditService,
		database,
		lgr,
	)
	deps.GradeService = appServices.NewGradeService(
		repos.GradeRepository,
		repos.ScheduleRepository,
		repos.StudentRepository,
		deps.AuditService,
		database,
		cfg.Grading.PassingGrade,
		lgr,
	)
	deps.DocumentService = appServices.NewDocumentService(
		repos.DocumentRepository,
		repos.StudentRepository,
		deps.FileStorage,
		deps.AuditService,
		database,
		lgr,
	)
	deps.DashboardService = appServices.NewDashboardService(repos.DashboardRepository)
	deps.ExportService = appServices.NewExportService(repos.StudentRepository, repos.EnrollmentRepository, deps.GradeService, deps.AuditService)
	deps.BackupService = appServices.NewBackupService(runner, deps.AuditService, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.CSRFService, repos.UserRepository)

	deps.Controllers = appRoutes.Controllers{
		Auth: appControllers.NewAuthController(deps.AuthService, deps.JWTService, deps.CSRFService, appControllers.CookieConfig{
			Secure: cfg.Security.CookieSecure,
			Domain: cfg.Security.CookieDomain,
		}, lgr),
		User:       appControllers.NewUserController(deps.UserService),
		Address:    appControllers.NewAddressController(deps.AddressService),
		Student:    appControllers.NewStudentController(deps.StudentService),
		Catalog:    appControllers.NewCatalogController(deps.CatalogService),
		Enrollment: appControllers.NewEnrollmentController(deps.EnrollmentService),
		Grade:      appControllers.NewGradeController(deps.GradeService),
		Document:   appControllers.NewDocumentController(deps.DocumentService),
		Admin:      appControllers.NewAdminController(deps.DashboardService, deps.AuditService, deps.ExportService, deps.BackupService, lgr),
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := validation.RegisterGinValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(appMiddleware.Recovery(), appMiddleware.RequestLogger())
	router.MaxMultipartMemory = 8 << 20

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router, nil
}
