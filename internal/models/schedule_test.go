package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func booking(id, start, end string, status ScheduleStatus) ScheduleDetail {
	return ScheduleDetail{
		Schedule: Schedule{
			ID:        id,
			LabID:     "lab-1",
			StartTime: start,
			EndTime:   end,
			TimeSlot:  start + "-" + end,
			Status:    status,
			Date:      time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC),
		},
		LabName:       "Chemistry",
		ProfessorName: "prof.ada",
	}
}

func window(t *testing.T, start, end string) TimeWindow {
	t.Helper()
	w, err := NewTimeWindow(start, end)
	require.NoError(t, err)
	return w
}

func TestOverlapBoundaries(t *testing.T) {
	existing := booking("s1", "09:00", "10:00", ScheduleStatusScheduled)

	cases := []struct {
		name     string
		start    string
		end      string
		conflict bool
	}{
		{"touching end boundary", "10:00", "12:00", true},
		{"touching start boundary", "08:00", "09:00", true},
		{"partial overlap", "09:30", "11:00", true},
		{"contained", "09:15", "09:45", true},
		{"enclosing", "08:00", "11:00", true},
		{"strictly after", "10:01", "11:00", false},
		{"strictly before", "07:00", "08:59", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.conflict, existing.ConflictsWith(window(t, tc.start, tc.end)))
		})
	}
}

func TestCancelledNeverConflicts(t *testing.T) {
	existing := booking("s1", "09:00", "10:00", ScheduleStatusCancelled)
	assert.False(t, existing.ConflictsWith(window(t, "09:00", "10:00")))
}

func TestTimeSlotMatchConflicts(t *testing.T) {
	existing := booking("s1", "bogus", "bogus", ScheduleStatusScheduled)
	existing.TimeSlot = "13:00-14:00"
	assert.True(t, existing.ConflictsWith(window(t, "13:00", "14:00")))
}

func TestFindConflictsScenario(t *testing.T) {
	existing := []ScheduleDetail{booking("s1", "14:00", "16:00", ScheduleStatusScheduled)}

	conflicts := FindConflicts(existing, window(t, "15:00", "17:00"), "")
	require.Len(t, conflicts, 1)
	assert.Equal(t, "s1", conflicts[0].ScheduleID)
	assert.Equal(t, "14:00-16:00", conflicts[0].TimeSlot)
	assert.Equal(t, "prof.ada", conflicts[0].ProfessorName)
	assert.Equal(t, "Chemistry", conflicts[0].LabName)
	assert.Equal(t, "2026-02-15", conflicts[0].Date)

	assert.Len(t, FindConflicts(existing, window(t, "16:00", "18:00"), ""), 1)
	assert.Empty(t, FindConflicts(existing, window(t, "16:01", "18:00"), ""))
	assert.Empty(t, FindConflicts(existing, window(t, "15:00", "17:00"), "s1"))
}

func TestFindConflictsReturnsAll(t *testing.T) {
	existing := []ScheduleDetail{
		booking("s1", "08:00", "09:00", ScheduleStatusScheduled),
		booking("s2", "10:00", "11:00", ScheduleStatusScheduled),
		booking("s3", "12:00", "13:00", ScheduleStatusScheduled),
	}
	conflicts := FindConflicts(existing, window(t, "08:30", "10:30"), "")
	require.Len(t, conflicts, 2)
	assert.Equal(t, "s1", conflicts[0].ScheduleID)
	assert.Equal(t, "s2", conflicts[1].ScheduleID)
}

func TestNewTimeWindow(t *testing.T) {
	w, err := NewTimeWindow("9:05", "10:30")
	require.NoError(t, err)
	assert.Equal(t, "09:05", w.Start)
	assert.Equal(t, "09:05-10:30", w.Slot())

	_, err = NewTimeWindow("10:00", "10:00")
	assert.Error(t, err)
	_, err = NewTimeWindow("11:00", "10:00")
	assert.Error(t, err)
	_, err = NewTimeWindow("24:00", "25:00")
	assert.Error(t, err)
	_, err = NewTimeWindow("", "10:00")
	assert.Error(t, err)
}

func TestParseTimeSlot(t *testing.T) {
	w, err := ParseTimeSlot("14:00-16:00")
	require.NoError(t, err)
	assert.Equal(t, TimeWindow{Start: "14:00", End: "16:00"}, w)

	_, err = ParseTimeSlot("14:00")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-02-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2026-02-15T18:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-15", FormatDate(d))

	_, err = ParseDate("15/02/2026")
	assert.Error(t, err)
}

func TestActorOwns(t *testing.T) {
	claims := &JWTClaims{UserID: "u1", Role: RoleProfessor}
	actor := claims.Actor()
	assert.True(t, actor.Owns("u1"))
	assert.False(t, actor.Owns("u2"))
	assert.False(t, ActingUser{}.Owns(""))
}
