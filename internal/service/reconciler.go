package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EnrollmentReconciler implements ports.Reconciler.
type EnrollmentReconciler struct {
	mappingRepo    ports.ProductMappingRepository
	enrollmentRepo ports.EnrollmentRepository
	users          ports.UserService
	transactor     ports.DBTransactor
	publisher      ports.EventPublisher
	log            zerolog.Logger
}

// NewEnrollmentReconciler creates a new EnrollmentReconciler.
// publisher may be nil, in which case no internal events are emitted.
func NewEnrollmentReconciler(
	mappingRepo ports.ProductMappingRepository,
	enrollmentRepo ports.EnrollmentRepository,
	users ports.UserService,
	transactor ports.DBTransactor,
	publisher ports.EventPublisher,
	log zerolog.Logger,
) *EnrollmentReconciler {
	return &EnrollmentReconciler{
		mappingRepo:    mappingRepo,
		enrollmentRepo: enrollmentRepo,
		users:          users,
		transactor:     transactor,
		publisher:      publisher,
		log:            log,
	}
}

// HandlePartnerEvent applies a sales partner event to enrollments.
func (r *EnrollmentReconciler) HandlePartnerEvent(ctx context.Context, eventType string, data json.RawMessage) error {
	action := domain.PartnerActionFor(eventType)
	if action == domain.PartnerActionIgnore {
		r.log.Info().Str("event_type", eventType).Msg("reconciler: partner event ignored")
		return nil
	}

	var sale domain.PartnerSale
	if err := json.Unmarshal(data, &sale); err != nil {
		return apperror.ErrMalformedPayload(err)
	}

	switch action {
	case domain.PartnerActionEnroll:
		return r.enroll(ctx, eventType, sale)
	case domain.PartnerActionCancel:
		return r.cancel(ctx, eventType, sale.TransactionID)
	}
	return nil
}

// enroll upserts the (user, course) enrollment under an advisory lock.
func (r *EnrollmentReconciler) enroll(ctx context.Context, eventType string, sale domain.PartnerSale) error {
	logger := r.log.With().
		Str("event_type", eventType).
		Str("product_id", sale.ProductID).
		Str("transaction_id", sale.TransactionID).
		Logger()

	email := strings.ToLower(strings.TrimSpace(sale.Customer.Email))
	if email == "" {
		return apperror.Validation("data.customer.email is required")
	}

	mapping, err := r.mappingRepo.GetByExternalID(ctx, sale.ProductID)
	if err != nil {
		return fmt.Errorf("lookup product mapping: %w", err)
	}
	if mapping == nil {
		logger.Warn().Msg("reconciler: no course mapped to product, skipping")
		return nil
	}

	profile, provisioned, err := r.users.FindOrProvision(ctx, email, sale.Customer.Name)
	if err != nil {
		return fmt.Errorf("find or provision profile: %w", err)
	}
	if provisioned {
		logger.Info().Str("user_id", profile.ID.String()).Msg("reconciler: provisioned profile for buyer")
	}

	dbTx, err := r.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := r.enrollmentRepo.LockPair(ctx, dbTx, profile.ID, mapping.CourseID); err != nil {
		return fmt.Errorf("lock enrollment pair: %w", err)
	}

	existing, err := r.enrollmentRepo.FindByUserCourse(ctx, dbTx, profile.ID, mapping.CourseID)
	if err != nil {
		return fmt.Errorf("find enrollment: %w", err)
	}

	var (
		enrollment *domain.Enrollment
		published  string
	)
	if existing == nil {
		enrollment = &domain.Enrollment{
			ID:                uuid.New(),
			UserID:            profile.ID,
			CourseID:          mapping.CourseID,
			Status:            domain.EnrollmentActive,
			PaymentMethod:     optionalString(sale.PaymentMethod),
			AmountPaid:        sale.Amount,
			ExternalReference: optionalString(sale.TransactionID),
			EnrolledAt:        time.Now().UTC(),
		}
		if err := r.enrollmentRepo.Create(ctx, dbTx, enrollment); err != nil {
			return fmt.Errorf("create enrollment: %w", err)
		}
		published = domain.EventEnrollmentCreated
	} else {
		enrollment = existing
		enrollment.Status = domain.EnrollmentActive
		enrollment.AmountPaid = sale.Amount
		if ref := optionalString(sale.TransactionID); ref != nil {
			enrollment.ExternalReference = ref
		}
		if pm := optionalString(sale.PaymentMethod); pm != nil {
			enrollment.PaymentMethod = pm
		}
		if err := r.enrollmentRepo.Update(ctx, dbTx, enrollment); err != nil {
			return fmt.Errorf("update enrollment: %w", err)
		}
		published = domain.EventEnrollmentUpdated
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	logger.Info().
		Str("enrollment_id", enrollment.ID.String()).
		Str("user_id", enrollment.UserID.String()).
		Str("course_id", enrollment.CourseID.String()).
		Str("outcome", published).
		Msg("reconciler: enrollment active")

	r.publish(published, enrollment)
	return nil
}

// cancel marks the enrollment carrying reference as canceled. An unknown
// reference is a no-op.
func (r *EnrollmentReconciler) cancel(ctx context.Context, eventType, reference string) error {
	logger := r.log.With().Str("event_type", eventType).Str("transaction_id", reference).Logger()

	if strings.TrimSpace(reference) == "" {
		logger.Warn().Msg("reconciler: refund without transaction id, skipping")
		return nil
	}

	enrollment, err := r.enrollmentRepo.CancelByReference(ctx, reference)
	if err != nil {
		return fmt.Errorf("cancel enrollment: %w", err)
	}
	if enrollment == nil {
		logger.Info().Msg("reconciler: no enrollment for reference, nothing to cancel")
		return nil
	}

	logger.Info().Str("enrollment_id", enrollment.ID.String()).Msg("reconciler: enrollment canceled")
	r.publish(domain.EventEnrollmentCanceled, enrollment)
	return nil
}

type genericProfileEvent struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// HandleGenericEvent handles events from non-partner sources.
func (r *EnrollmentReconciler) HandleGenericEvent(ctx context.Context, eventType string, data json.RawMessage) error {
	switch eventType {
	case domain.EventProfileCreated, domain.EventUserCreated:
		var evt genericProfileEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return apperror.ErrMalformedPayload(err)
		}
		email := strings.ToLower(strings.TrimSpace(evt.Email))
		if email == "" {
			return apperror.Validation("data.email is required")
		}
		profile, provisioned, err := r.users.FindOrProvision(ctx, email, evt.Name)
		if err != nil {
			return fmt.Errorf("find or provision profile: %w", err)
		}
		r.log.Info().
			Str("event_type", eventType).
			Str("user_id", profile.ID.String()).
			Bool("provisioned", provisioned).
			Msg("reconciler: profile event handled")
	default:
		r.log.Info().Str("event_type", eventType).Msg("reconciler: generic event acknowledged")
	}
	return nil
}

func (r *EnrollmentReconciler) publish(eventType string, e *domain.Enrollment) {
	if r.publisher == nil {
		return
	}
	if !r.publisher.Publish(eventType, e) {
		r.log.Warn().Str("event_type", eventType).Str("enrollment_id", e.ID.String()).Msg("reconciler: internal event dropped")
	}
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
