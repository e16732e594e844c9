package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentCanceled  EnrollmentStatus = "canceled"
)

// Enrollment links a user to a course. At most one non-canceled row exists
// per (user, course).
type Enrollment struct {
	ID                uuid.UUID        `json:"id"`
	UserID            uuid.UUID        `json:"user_id"`
	CourseID          uuid.UUID        `json:"course_id"`
	Status            EnrollmentStatus `json:"status"`
	PaymentMethod     *string          `json:"payment_method,omitempty"`
	AmountPaid        decimal.Decimal  `json:"amount_paid"`
	ExternalReference *string          `json:"external_reference,omitempty"`
	EnrolledAt        time.Time        `json:"enrolled_at"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
}

// ProductMapping ties a partner product id to an internal course.
type ProductMapping struct {
	ID                uuid.UUID `json:"id"`
	ExternalProductID string    `json:"external_product_id"`
	CourseID          uuid.UUID `json:"course_id"`
	CreatedAt         time.Time `json:"created_at"`
}

// PartnerCustomer is the buyer block of a partner sale payload.
type PartnerCustomer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// PartnerSale is the `data` object of a partner sales event.
type PartnerSale struct {
	ProductID     string          `json:"product_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Customer      PartnerCustomer `json:"customer"`
}

// PartnerAction is what a partner event asks the reconciler to do.
type PartnerAction int

const (
	PartnerActionIgnore PartnerAction = iota
	PartnerActionEnroll
	PartnerActionCancel
)

// PartnerActionFor maps a partner event type to a reconciler action.
func PartnerActionFor(eventType string) PartnerAction {
	switch eventType {
	case EventSaleCompleted, EventSaleApproved, EventPaymentApproved:
		return PartnerActionEnroll
	case EventSaleRefunded, EventPaymentRefunded, EventSaleChargeback:
		return PartnerActionCancel
	}
	return PartnerActionIgnore
}
