package validation

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	StudentNumberPattern = regexp.MustCompile(`^\d{4}-\d{5}$`)
	SchoolYearPattern    = regexp.MustCompile(`^(\d{4})-(\d{4})$`)
	PhonePattern         = regexp.MustCompile(`^(\+63|0)9\d{9}$`)
	CourseCodePattern    = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)
	TimeOfDayPattern     = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// IsStudentNumber checks the YYYY-NNNNN format
func IsStudentNumber(s string) bool {
	return StudentNumberPattern.MatchString(s)
}

// IsSchoolYear checks YYYY-YYYY where the second year follows the first
func IsSchoolYear(s string) bool {
	m := SchoolYearPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return end == start+1
}

// IsPhone checks a Philippine mobile number
func IsPhone(s string) bool {
	return PhonePattern.MatchString(strings.ReplaceAll(s, " ", ""))
}

// IsCourseCode checks an uppercase alphanumeric code
func IsCourseCode(s string) bool {
	return CourseCodePattern.MatchString(s)
}

// IsTimeOfDay checks a 24h HH:MM string
func IsTimeOfDay(s string) bool {
	return TimeOfDayPattern.MatchString(s)
}

func stringRule(fn func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return fn(fl.Field().String())
	}
}

// Register adds the custom tags and JSON field naming to v
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	rules := map[string]func(string) bool{
		"studentnumber": IsStudentNumber,
		"schoolyear":    IsSchoolYear,
		"phone":         IsPhone,
		"coursecode":    IsCourseCode,
		"hhmm":          IsTimeOfDay,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, stringRule(fn)); err != nil {
			return err
		}
	}
	return nil
}

// RegisterGinValidators installs the custom rules on gin's binding engine
func RegisterGinValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return Register(v)
}
