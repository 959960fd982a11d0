package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSchoolYear(t *testing.T) {
	assert.True(t, IsSchoolYear("2025-2026"))
	assert.False(t, IsSchoolYear("2025-2027"))
	assert.False(t, IsSchoolYear("2025/2026"))
	assert.False(t, IsSchoolYear("25-26"))
}

func TestPatterns(t *testing.T) {
	assert.True(t, IsStudentNumber("2025-00001"))
	assert.False(t, IsStudentNumber("2025-1"))

	assert.True(t, IsPhone("09171234567"))
	assert.True(t, IsPhone("+639171234567"))
	assert.True(t, IsPhone("0917 123 4567"))
	assert.False(t, IsPhone("12345"))

	assert.True(t, IsCourseCode("BSIT"))
	assert.True(t, IsCourseCode("IT101"))
	assert.False(t, IsCourseCode("bsit"))
	assert.False(t, IsCourseCode("BS-IT"))

	assert.True(t, IsTimeOfDay("08:30"))
	assert.True(t, IsTimeOfDay("23:59"))
	assert.False(t, IsTimeOfDay("24:00"))
	assert.False(t, IsTimeOfDay("8:30"))
}

func TestRegister(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	type form struct {
		SchoolYear string `json:"schoolYear" validate:"schoolyear"`
		Start      string `json:"startTime" validate:"hhmm"`
	}

	err := v.Struct(form{SchoolYear: "2025-2026", Start: "07:00"})
	assert.NoError(t, err)

	err = v.Struct(form{SchoolYear: "2025", Start: "07:00"})
	require.Error(t, err)
	verrs := err.(validator.ValidationErrors)
	assert.Equal(t, "schoolYear", verrs[0].Field())
	assert.Equal(t, "schoolyear", verrs[0].Tag())
}
