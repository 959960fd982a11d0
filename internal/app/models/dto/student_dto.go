package dto

// UpdateStudentProfileRequest edits the caller's student profile
type UpdateStudentProfileRequest struct {
	BirthDate     *string `json:"birthDate" binding:"omitempty,datetime=2006-01-02"`
	Gender        *string `json:"gender" binding:"omitempty,oneof=MALE FEMALE OTHER"`
	Phone         *string `json:"phone" binding:"omitempty,phone"`
	GuardianName  *string `json:"guardianName" binding:"omitempty,max=150"`
	GuardianPhone *string `json:"guardianPhone" binding:"omitempty,phone"`
	Street        *string `json:"street" binding:"omitempty,max=255"`
	RegionCode    *string `json:"regionCode" binding:"omitempty,max=20"`
	ProvinceCode  *string `json:"provinceCode" binding:"omitempty,max=20"`
	CityCode      *string `json:"cityCode" binding:"omitempty,max=20"`
	BarangayCode  *string `json:"barangayCode" binding:"omitempty,max=20"`
}

// CreateApplicationRequest submits an admission application
type CreateApplicationRequest struct {
	CourseID   int64  `json:"courseId" binding:"required,min=1"`
	SchoolYear string `json:"schoolYear" binding:"required,schoolyear"`
	YearLevel  int    `json:"yearLevel" binding:"required,min=1,max=6"`
}

// ReviewRequest approves or rejects an application, enrollment or document
type ReviewRequest struct {
	Status  string `json:"status" binding:"required"`
	Remarks string `json:"remarks" binding:"max=500"`
}
