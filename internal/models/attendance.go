package models

import "time"

// AttendanceStatus represents the status recorded for one student on one day.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLeave   AttendanceStatus = "leave"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLeave:
		return true
	default:
		return false
	}
}

// AttendanceRecord is a single daily attendance row for a student.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Remarks   *string          `db:"remarks" json:"remarks,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	CreatedBy string    `db:"created_by" json:"created_by"`

	SyncEnvelope
}

// AttendanceFilter scopes local and remote attendance queries.
type AttendanceFilter struct {
	StudentID string
	Date      *time.Time
}
