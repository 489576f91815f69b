package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func int64Ptr(v int64) *int64 { return &v }

func TestAssignment_PersonID(t *testing.T) {
	tests := []struct {
		name       string
		assignment Assignment
		want       int64
	}{
		{
			name:       "staff reference",
			assignment: Assignment{StaffID: int64Ptr(7)},
			want:       7,
		},
		{
			name:       "freelancer reference",
			assignment: Assignment{FreelancerID: int64Ptr(12)},
			want:       12,
		},
		{
			name:       "unset slot",
			assignment: Assignment{},
			want:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.assignment.PersonID())
		})
	}
}

func TestAssignment_Validate(t *testing.T) {
	tests := []struct {
		name       string
		assignment Assignment
		wantErr    error
	}{
		{
			name:       "staff only is valid",
			assignment: Assignment{StaffID: int64Ptr(1), Role: RolePhotographer},
			wantErr:    nil,
		},
		{
			name:       "freelancer only is valid",
			assignment: Assignment{FreelancerID: int64Ptr(2), Role: RoleEditor},
			wantErr:    nil,
		},
		{
			name:       "neither reference set",
			assignment: Assignment{Role: RolePhotographer},
			wantErr:    ErrNoPersonRef,
		},
		{
			name:       "both references set",
			assignment: Assignment{StaffID: int64Ptr(1), FreelancerID: int64Ptr(2)},
			wantErr:    ErrAmbiguousPersonRef,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.assignment.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestAssignmentWithEvent_EventRange(t *testing.T) {
	a := AssignmentWithEvent{
		Assignment:     Assignment{EventID: 5, StaffID: int64Ptr(1)},
		EventStartDate: day(2026, 1, 10),
		EventTotalDays: 3,
	}
	assert.Equal(t, DateRange{Start: day(2026, 1, 10), End: day(2026, 1, 12)}, a.EventRange())

	a.EventEndDate = dayPtr(2026, 1, 14)
	assert.Equal(t, DateRange{Start: day(2026, 1, 10), End: day(2026, 1, 14)}, a.EventRange())
}
