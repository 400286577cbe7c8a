package models

import "time"

// FeePayment records a single fee installment paid by a student.
type FeePayment struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	Amount        float64   `db:"amount" json:"amount"`
	PaymentDate   time.Time `db:"payment_date" json:"payment_date"`
	PaymentMethod *string   `db:"payment_method" json:"payment_method,omitempty"`
	Remarks       *string   `db:"remarks" json:"remarks,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	CreatedBy string    `db:"created_by" json:"created_by"`

	SyncEnvelope
}

// FeePaymentFilter scopes local and remote payment queries.
type FeePaymentFilter struct {
	StudentID string
}
