package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/repositories"
	"github.com/yigit/schoolportal/internal/db"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
	"github.com/yigit/schoolportal/internal/pkg/auth"
)

// DefaultAdminEmail is used when no admin e-mail is configured
const DefaultAdminEmail = "admin@school.test"

// Options controls what CreateDefaultData inserts
type Options struct {
	AdminEmail    string
	AdminPassword string
	SkipAdmin     bool
}

type region struct {
	code, name string
	provinces  []province
}

type province struct {
	code, name string
	cities     []city
}

type city struct {
	code, name string
	barangays  [][2]string
}

// addressData is a starter subset of the PSGC hierarchy
var addressData = []region{
	{code: "130000000", name: "National Capital Region (NCR)", provinces: []province{
		{code: "137400000", name: "NCR, Second District", cities: []city{
			{code: "137404000", name: "Quezon City", barangays: [][2]string{
				{"137404001", "Alicia"},
				{"137404002", "Bagong Pag-asa"},
				{"137404003", "Batasan Hills"},
				{"137404004", "Commonwealth"},
			}},
			{code: "137401000", name: "City of Mandaluyong", barangays: [][2]string{
				{"137401001", "Addition Hills"},
				{"137401002", "Barangka Drive"},
				{"137401003", "Plainview"},
			}},
		}},
		{code: "137500000", name: "NCR, Third District", cities: []city{
			{code: "137502000", name: "City of Malabon", barangays: [][2]string{
				{"137502001", "Acacia"},
				{"137502002", "Concepcion"},
				{"137502003", "Tonsuya"},
			}},
		}},
	}},
	{code: "040000000", name: "Region IV-A (CALABARZON)", provinces: []province{
		{code: "042100000", name: "Cavite", cities: []city{
			{code: "042103000", name: "City of Bacoor", barangays: [][2]string{
				{"042103001", "Habay I"},
				{"042103002", "Molino III"},
				{"042103003", "Niog I"},
			}},
			{code: "042106000", name: "City of Dasmariñas", barangays: [][2]string{
				{"042106001", "Burol"},
				{"042106002", "Salitran I"},
				{"042106003", "Paliparan I"},
			}},
		}},
		{code: "043400000", name: "Laguna", cities: []city{
			{code: "043404000", name: "City of Calamba", barangays: [][2]string{
				{"043404001", "Canlubang"},
				{"043404002", "Parian"},
				{"043404003", "Real"},
			}},
		}},
	}},
	{code: "070000000", name: "Region VII (Central Visayas)", provinces: []province{
		{code: "072200000", name: "Cebu", cities: []city{
			{code: "072217000", name: "Cebu City", barangays: [][2]string{
				{"072217001", "Apas"},
				{"072217002", "Guadalupe"},
				{"072217003", "Lahug"},
			}},
		}},
	}},
}

var defaultCourses = []models.Course{
	{Code: "BSIT", Name: "Bachelor of Science in Information Technology", IsActive: true},
	{Code: "BSCS", Name: "Bachelor of Science in Computer Science", IsActive: true},
	{Code: "BSBA", Name: "Bachelor of Science in Business Administration", IsActive: true},
	{Code: "BSED", Name: "Bachelor of Secondary Education", IsActive: true},
}

var defaultSubjects = []models.Subject{
	{Code: "GE101", Name: "Understanding the Self", Units: 3},
	{Code: "GE102", Name: "Readings in Philippine History", Units: 3},
	{Code: "GE103", Name: "Mathematics in the Modern World", Units: 3},
	{Code: "IT101", Name: "Introduction to Computing", Units: 3},
	{Code: "IT102", Name: "Computer Programming 1", Units: 3},
	{Code: "PE101", Name: "Physical Fitness", Units: 2},
	{Code: "NSTP1", Name: "National Service Training Program 1", Units: 3},
}

// CreateDefaultData inserts reference addresses, a starter catalogue and the
// first admin account. Existing rows are left untouched, so it is safe to rerun.
func CreateDefaultData(ctx context.Context, database *db.PostgresDB, opts Options, lgr zerolog.Logger) error {
	repos := repositories.NewRepositories(database)
	var finalErr error

	lgr.Info().Msg("Checking/Creating reference address data...")
	if err := seedAddresses(ctx, database.Conn(ctx)); err != nil {
		lgr.Error().Err(err).Msg("Error creating address data")
		finalErr = errors.Join(finalErr, err)
	}

	lgr.Info().Msg("Checking/Creating default catalogue...")
	for i := range defaultCourses {
		course := defaultCourses[i]
		if _, err := repos.CourseRepository.Create(ctx, &course); err != nil && !errors.Is(err, apperrors.ErrConflict) {
			lgr.Error().Err(err).Str("code", course.Code).Msg("Error creating course")
			finalErr = errors.Join(finalErr, err)
		}
	}
	for i := range defaultSubjects {
		subject := defaultSubjects[i]
		if _, err := repos.SubjectRepository.Create(ctx, &subject); err != nil && !errors.Is(err, apperrors.ErrConflict) {
			lgr.Error().Err(err).Str("code", subject.Code).Msg("Error creating subject")
			finalErr = errors.Join(finalErr, err)
		}
	}

	if !opts.SkipAdmin {
		if err := ensureAdmin(ctx, repos.UserRepository, opts, lgr); err != nil {
			finalErr = errors.Join(finalErr, err)
		}
	}

	lgr.Info().Msg("Default data check/creation finished.")
	return finalErr
}

func ensureAdmin(ctx context.Context, userRepo repositories.IUserRepository, opts Options, lgr zerolog.Logger) error {
	email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	if email == "" {
		email = DefaultAdminEmail
	}

	exists, err := userRepo.EmailExists(ctx, email)
	if err != nil {
		lgr.Error().Err(err).Msg("Error checking if admin user exists")
		return err
	}
	if exists {
		lgr.Info().Str("email", email).Msg("Admin user already exists, skipping creation")
		return nil
	}

	password := opts.AdminPassword
	generated := password == ""
	if generated {
		if password, err = auth.GenerateTemporaryPassword(16); err != nil {
			return fmt.Errorf("failed to generate admin password: %w", err)
		}
	}

	_, err = CreateAdmin(ctx, userRepo, email, password, "System", "Administrator")
	if err != nil {
		lgr.Error().Err(err).Msg("Error creating admin user")
		return err
	}
	event := lgr.Info().Str("email", email)
	if generated {
		// printed once so the operator can log in and change it
		event = lgr.Warn().Str("email", email).Str("password", password)
	}
	event.Msg("Default admin user created")
	return nil
}

// CreateAdmin stores a verified, active admin account
func CreateAdmin(ctx context.Context, userRepo repositories.IUserRepository, email, password, firstName, lastName string) (*models.User, error) {
	if err := auth.ValidatePasswordStrength(password); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	admin := &models.User{
		Email:         strings.ToLower(strings.TrimSpace(email)),
		Password:      hash,
		FirstName:     firstName,
		LastName:      lastName,
		RoleType:      models.RoleAdmin,
		IsActive:      true,
		EmailVerified: true,
	}
	if _, err := userRepo.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

func seedAddresses(ctx context.Context, conn db.DBTX) error {
	for _, r := range addressData {
		if _, err := conn.Exec(ctx, `INSERT INTO regions (code, name) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`, r.code, r.name); err != nil {
			return fmt.Errorf("failed to insert region %s: %w", r.code, err)
		}
		for _, p := range r.provinces {
			if _, err := conn.Exec(ctx, `INSERT INTO provinces (code, region_code, name) VALUES ($1, $2, $3) ON CONFLICT (code) DO NOTHING`, p.code, r.code, p.name); err != nil {
				return fmt.Errorf("failed to insert province %s: %w", p.code, err)
			}
			for _, c := range p.cities {
				if _, err := conn.Exec(ctx, `INSERT INTO cities (code, province_code, name) VALUES ($1, $2, $3) ON CONFLICT (code) DO NOTHING`, c.code, p.code, c.name); err != nil {
					return fmt.Errorf("failed to insert city %s: %w", c.code, err)
				}
				for _, b := range c.barangays {
					if _, err := conn.Exec(ctx, `INSERT INTO barangays (code, city_code, name) VALUES ($1, $2, $3) ON CONFLICT (code) DO NOTHING`, b[0], c.code, b[1]); err != nil {
						return fmt.Errorf("failed to insert barangay %s: %w", b[0], err)
					}
				}
			}
		}
	}
	return nil
}
