package dto

// UpdateGradeRequest sets quarter scores; omitted quarters stay unchanged
type UpdateGradeRequest struct {
	Q1 *float64 `json:"q1" binding:"omitempty,gte=0,lte=100"`
	Q2 *float64 `json:"q2" binding:"omitempty,gte=0,lte=100"`
	Q3 *float64 `json:"q3" binding:"omitempty,gte=0,lte=100"`
	Q4 *float64 `json:"q4" binding:"omitempty,gte=0,lte=100"`
}

// RejectGradeRequest sends a grade back to its teacher
type RejectGradeRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// BulkSkip explains why a grade was left out of a bulk action
type BulkSkip struct {
	GradeID int64  `json:"gradeId"`
	Reason  string `json:"reason"`
}

// BulkGradeResult reports a bulk submit or lock
type BulkGradeResult struct {
	Processed []int64    `json:"processed"`
	Skipped   []BulkSkip `json:"skipped"`
}
