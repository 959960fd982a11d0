package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestGradeStatus_Next(t *testing.T) {
	tests := []struct {
		from   GradeStatus
		action GradeAction
		want   GradeStatus
		ok     bool
	}{
		{GradeDraft, GradeActionSubmit, GradeSubmitted, true},
		{GradeRejected, GradeActionSubmit, GradeSubmitted, true},
		{GradeSubmitted, GradeActionApprove, GradeApproved, true},
		{GradeSubmitted, GradeActionReject, GradeRejected, true},
		{GradeApproved, GradeActionLock, GradeLocked, true},
		{GradeLocked, GradeActionUnlock, GradeApproved, true},

		{GradeDraft, GradeActionApprove, "", false},
		{GradeDraft, GradeActionLock, "", false},
		{GradeSubmitted, GradeActionSubmit, "", false},
		{GradeSubmitted, GradeActionLock, "", false},
		{GradeApproved, GradeActionReject, "", false},
		{GradeApproved, GradeActionSubmit, "", false},
		{GradeLocked, GradeActionSubmit, "", false},
		{GradeLocked, GradeActionReject, "", false},
		{GradeRejected, GradeActionApprove, "", false},
	}

	for _, tt := range tests {
		got, ok := tt.from.Next(tt.action)
		assert.Equal(t, tt.ok, ok, "%s + %s", tt.from, tt.action)
		assert.Equal(t, tt.want, got, "%s + %s", tt.from, tt.action)
	}
}

func TestGradeStatus_Flags(t *testing.T) {
	assert.True(t, GradeDraft.IsEditable())
	assert.True(t, GradeRejected.IsEditable())
	assert.False(t, GradeSubmitted.IsEditable())
	assert.False(t, GradeLocked.IsEditable())

	assert.True(t, GradeApproved.IsFinal())
	assert.True(t, GradeLocked.IsFinal())
	assert.False(t, GradeSubmitted.IsFinal())
}

func TestComputeFinalGrade(t *testing.T) {
	final, remarks := ComputeFinalGrade(f(80), f(85), f(90), f(78), 75)
	require.NotNil(t, final)
	assert.Equal(t, 83.25, *final)
	assert.Equal(t, RemarksPassed, remarks)

	final, remarks = ComputeFinalGrade(f(70), f(74), f(75), f(76), 75)
	require.NotNil(t, final)
	assert.Equal(t, 73.75, *final)
	assert.Equal(t, RemarksFailed, remarks)

	final, remarks = ComputeFinalGrade(f(75), f(75), f(75), f(75), 75)
	assert.Equal(t, 75.0, *final)
	assert.Equal(t, RemarksPassed, remarks)

	final, remarks = ComputeFinalGrade(f(90), nil, f(90), f(90), 75)
	assert.Nil(t, final)
	assert.Equal(t, RemarksIncomplete, remarks)
}

func TestComputeFinalGrade_Rounding(t *testing.T) {
	final, _ := ComputeFinalGrade(f(88.33), f(91.17), f(79.5), f(85.01), 75)
	require.NotNil(t, final)
	assert.Equal(t, 86.0, *final)

	final, _ = ComputeFinalGrade(f(70.5), f(80.25), f(90), f(85), 75)
	assert.Equal(t, 81.44, *final)
}

func TestGrade_Recompute(t *testing.T) {
	g := &Grade{Q1: f(90), Q2: f(90), Q3: f(90)}
	g.Recompute(75)
	assert.Nil(t, g.FinalGrade)
	assert.Equal(t, RemarksIncomplete, g.Remarks)
	assert.True(t, g.HasScores())
	assert.False(t, g.IsComplete())

	g.Q4 = f(60)
	g.Recompute(75)
	assert.Equal(t, 82.5, *g.FinalGrade)
	assert.True(t, g.IsComplete())
}
