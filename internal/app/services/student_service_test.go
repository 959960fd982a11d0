package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
)

func strPtr(s string) *string { return &s }

func seedCavite(env *testEnv) {
	env.store.SeedAddresses(
		models.Region{Code: "04", Name: "CALABARZON"},
		models.Province{Code: "0421", RegionCode: "04", Name: "Cavite"},
		models.City{Code: "042103", ProvinceCode: "0421", Name: "Bacoor"},
		models.Barangay{Code: "042103001", CityCode: "042103", Name: "Alima"},
	)
	env.store.SeedAddresses(
		models.Region{Code: "13", Name: "NCR"},
		models.Province{Code: "1339", RegionCode: "13", Name: "Manila"},
		models.City{Code: "133901", ProvinceCode: "1339", Name: "Tondo"},
	)
}

func TestAddressValidation(t *testing.T) {
	env := newTestEnv(t)
	seedCavite(env)
	ctx := context.Background()

	tests := []struct {
		name    string
		addr    models.Address
		wantErr bool
	}{
		{"empty", models.Address{}, false},
		{"full chain", models.Address{RegionCode: strPtr("04"), ProvinceCode: strPtr("0421"), CityCode: strPtr("042103"), BarangayCode: strPtr("042103001")}, false},
		{"region only", models.Address{RegionCode: strPtr("13")}, false},
		{"unknown region", models.Address{RegionCode: strPtr("99")}, true},
		{"province of another region", models.Address{RegionCode: strPtr("13"), ProvinceCode: strPtr("0421")}, true},
		{"city without province", models.Address{RegionCode: strPtr("04"), CityCode: strPtr("042103")}, true},
		{"unknown barangay", models.Address{RegionCode: strPtr("04"), ProvinceCode: strPtr("0421"), CityCode: strPtr("042103"), BarangayCode: strPtr("000")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.addresses.Validate(ctx, tt.addr)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidAddress)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	seedCavite(env)
	ctx := context.Background()
	user := env.createUser(t, "profile@school.test", models.RoleStudent)

	student, err := env.students.UpdateProfile(ctx, user.ID, &dto.UpdateStudentProfileRequest{
		BirthDate:    strPtr("2007-05-14"),
		Phone:        strPtr("09171234567"),
		RegionCode:   strPtr("04"),
		ProvinceCode: strPtr("0421"),
		CityCode:     strPtr("042103"),
	})
	require.NoError(t, err)
	require.NotNil(t, student.BirthDate)
	assert.Equal(t, "2007-05-14", student.BirthDate.Format("2006-01-02"))
	assert.Equal(t, "042103", *student.CityCode)

	// omitted fields are kept
	student, err = env.students.UpdateProfile(ctx, user.ID, &dto.UpdateStudentProfileRequest{GuardianName: strPtr("Rosa")})
	require.NoError(t, err)
	assert.Equal(t, "09171234567", *student.Phone)
	assert.Equal(t, "Rosa", *student.GuardianName)

	_, err = env.students.UpdateProfile(ctx, user.ID, &dto.UpdateStudentProfileRequest{ProvinceCode: strPtr("1339")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAddress)

	_, err = env.students.UpdateProfile(ctx, user.ID, &dto.UpdateStudentProfileRequest{BirthDate: strPtr("2999-01-01")})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestApplicationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.seedCatalog(t, 40)
	user := env.createUser(t, "applicant@school.test", models.RoleStudent)
	req := &dto.CreateApplicationRequest{CourseID: f.course.ID, SchoolYear: "2025-2026", YearLevel: 1}

	app, err := env.students.SubmitApplication(ctx, user.ID, req)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, app.Status)

	_, err = env.students.SubmitApplication(ctx, user.ID, req)
	assert.ErrorIs(t, err, apperrors.ErrApplicationPending)

	rejected, err := env.students.ReviewApplication(ctx, env.admin, app.ID, &dto.ReviewRequest{Status: "rejected", Remarks: "missing form 138"})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationRejected, rejected.Status)

	_, err = env.students.ReviewApplication(ctx, env.admin, app.ID, &dto.ReviewRequest{Status: "APPROVED"})
	assert.ErrorIs(t, err, apperrors.ErrApplicationNotPending)

	second, err := env.students.SubmitApplication(ctx, user.ID, req)
	require.NoError(t, err)
	_, err = env.students.ReviewApplication(ctx, env.admin, second.ID, &dto.ReviewRequest{Status: "APPROVED"})
	require.NoError(t, err)

	profile, err := env.students.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.StudentNumber)
	assert.Equal(t, fmt.Sprintf("%d-00001", time.Now().Year()), *profile.StudentNumber)

	_, err = env.students.SubmitApplication(ctx, user.ID, req)
	assert.ErrorIs(t, err, apperrors.ErrApplicationAlreadyApproved)

	apps, err := env.students.MyApplications(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, apps, 2)
}

func TestStudentNumbersAreSequential(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.seedCatalog(t, 40)

	a := env.admittedStudent(t, 1, f)
	b := env.admittedStudent(t, 2, f)

	pa, err := env.students.GetProfile(ctx, a.ID)
	require.NoError(t, err)
	pb, err := env.students.GetProfile(ctx, b.ID)
	require.NoError(t, err)

	year := time.Now().Year()
	assert.Equal(t, FormatStudentNumber(year, 1), *pa.StudentNumber)
	assert.Equal(t, FormatStudentNumber(year, 2), *pb.StudentNumber)
}

func TestFormatStudentNumber(t *testing.T) {
	assert.Equal(t, "2025-00042", FormatStudentNumber(2025, 42))
	assert.Equal(t, "2025-123456", FormatStudentNumber(2025, 123456))
}

func TestApplicationForInactiveCourse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := &models.Course{Code: "OLD", Name: "Retired", IsActive: false}
	_, err := env.store.Courses().Create(ctx, course)
	require.NoError(t, err)
	user := env.createUser(t, "late@school.test", models.RoleStudent)

	_, err = env.students.SubmitApplication(ctx, user.ID, &dto.CreateApplicationRequest{CourseID: course.ID, SchoolYear: "2025-2026", YearLevel: 1})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}
