package models

import (
	"time"
)

// ScheduleStatus is the lifecycle state of a lab booking.
type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
	// ScheduleStatusCompleted is reserved; no operation transitions into it yet.
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// Schedule is a reservation of a lab for a date and time range by a professor.
type Schedule struct {
	ID               string         `db:"id" json:"id"`
	LabID            string         `db:"lab_id" json:"lab_id"`
	ProfessorID      string         `db:"professor_id" json:"professor_id"`
	Date             time.Time      `db:"date" json:"date"`
	StartTime        string         `db:"start_time" json:"start_time"`
	EndTime          string         `db:"end_time" json:"end_time"`
	TimeSlot         string         `db:"time_slot" json:"time_slot"`
	CourseName       string         `db:"course_name" json:"course_name"`
	ClassName        string         `db:"class_name" json:"class_name"`
	ExpectedStudents int            `db:"expected_students" json:"expected_students"`
	Purpose          string         `db:"purpose" json:"purpose,omitempty"`
	Status           ScheduleStatus `db:"status" json:"status"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// Window returns the booking's time window.
func (s Schedule) Window() TimeWindow {
	return TimeWindow{Start: s.StartTime, End: s.EndTime}
}

// Active reports whether the booking still occupies the lab.
func (s Schedule) Active() bool {
	return s.Status != ScheduleStatusCancelled
}

// ConflictsWith reports whether the booking blocks the candidate window on the
// same lab and date. An identical time slot string always conflicts, which
// also catches rows whose times could not be compared.
func (s Schedule) ConflictsWith(candidate TimeWindow) bool {
	if !s.Active() {
		return false
	}
	return s.Window().Overlaps(candidate) || s.TimeSlot == candidate.Slot()
}

// ScheduleDetail is a schedule joined with the lab and professor display fields.
type ScheduleDetail struct {
	Schedule
	LabName        string `db:"lab_name" json:"lab_name"`
	LabSlug        string `db:"lab_slug" json:"lab_slug"`
	ProfessorName  string `db:"professor_name" json:"professor_name"`
	ProfessorEmail string `db:"professor_email" json:"professor_email,omitempty"`
}

// Conflict projects the detail into the fields a conflict report renders.
func (d ScheduleDetail) Conflict() ConflictingBooking {
	return ConflictingBooking{
		ScheduleID:    d.ID,
		LabID:         d.LabID,
		LabName:       d.LabName,
		ProfessorID:   d.ProfessorID,
		ProfessorName: d.ProfessorName,
		CourseName:    d.CourseName,
		ClassName:     d.ClassName,
		Date:          FormatDate(d.Date),
		StartTime:     d.StartTime,
		EndTime:       d.EndTime,
		TimeSlot:      d.TimeSlot,
	}
}

// ConflictingBooking is an existing booking that blocks a candidate.
type ConflictingBooking struct {
	ScheduleID    string `json:"schedule_id"`
	LabID         string `json:"lab_id"`
	LabName       string `json:"lab_name"`
	ProfessorID   string `json:"professor_id"`
	ProfessorName string `json:"professor_name"`
	CourseName    string `json:"course_name"`
	ClassName     string `json:"class_name"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	TimeSlot      string `json:"time_slot"`
}

// FindConflicts returns the bookings among existing that block candidate,
// skipping the booking identified by ignoreID.
func FindConflicts(existing []ScheduleDetail, candidate TimeWindow, ignoreID string) []ConflictingBooking {
	conflicts := make([]ConflictingBooking, 0)
	for _, item := range existing {
		if ignoreID != "" && item.ID == ignoreID {
			continue
		}
		if item.ConflictsWith(candidate) {
			conflicts = append(conflicts, item.Conflict())
		}
	}
	return conflicts
}

// Availability answers a check-availability query.
type Availability struct {
	Available bool                 `json:"available"`
	Conflicts []ConflictingBooking `json:"conflicts"`
}

// ScheduleFilter describes query params for listing active schedules.
type ScheduleFilter struct {
	LabID       string
	ProfessorID string
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}
