package models

import "time"

// Student represents a learner registered in the institution. The id is
// generated locally at creation time and is the join key between the local
// cache and the remote store.
type Student struct {
	ID                   string   `db:"id" json:"id"`
	StudentID            string   `db:"student_id" json:"student_id"`
	Name                 string   `db:"name" json:"name"`
	RollNumber           string   `db:"roll_number" json:"roll_number"`
	Class                string   `db:"class" json:"class"`
	Section              *string  `db:"section" json:"section,omitempty"`
	Contact              *string  `db:"contact" json:"contact,omitempty"`
	Address              *string  `db:"address" json:"address,omitempty"`
	TotalFee             *float64 `db:"total_fee" json:"total_fee,omitempty"`
	FeePaid              *float64 `db:"fee_paid" json:"fee_paid,omitempty"`
	AttendancePercentage *float64 `db:"attendance_percentage" json:"attendance_percentage,omitempty"`
	Remarks              *string  `db:"remarks" json:"remarks,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	CreatedBy string    `db:"created_by" json:"created_by"`

	SyncEnvelope
}
