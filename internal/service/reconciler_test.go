package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports/mocks"
	"course-admin-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type reconcilerTestDeps struct {
	svc            *EnrollmentReconciler
	mappingRepo    *mocks.MockProductMappingRepository
	enrollmentRepo *mocks.MockEnrollmentRepository
	users          *mocks.MockUserService
	transactor     *mocks.MockDBTransactor
	publisher      *mocks.MockEventPublisher
}

func setupReconciler(t *testing.T) *reconcilerTestDeps {
	ctrl := gomock.NewController(t)
	d := &reconcilerTestDeps{
		mappingRepo:    mocks.NewMockProductMappingRepository(ctrl),
		enrollmentRepo: mocks.NewMockEnrollmentRepository(ctrl),
		users:          mocks.NewMockUserService(ctrl),
		transactor:     mocks.NewMockDBTransactor(ctrl),
		publisher:      mocks.NewMockEventPublisher(ctrl),
	}
	d.svc = NewEnrollmentReconciler(d.mappingRepo, d.enrollmentRepo, d.users, d.transactor, d.publisher, newTestLogger())
	return d
}

func saleData(t *testing.T, productID, txID, email string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"product_id":     productID,
		"transaction_id": txID,
		"amount":         "97.50",
		"payment_method": "pix",
		"customer":       map[string]string{"email": email, "name": "Ana"},
	})
	require.NoError(t, err)
	return raw
}

func TestReconciler_Sale_CreatesEnrollment(t *testing.T) {
	d := setupReconciler(t)
	ctx := context.Background()
	tx := &mockTx{}
	courseID := uuid.New()
	profile := &domain.Profile{ID: uuid.New(), Email: "ana@example.com"}

	d.mappingRepo.EXPECT().GetByExternalID(ctx, "prod-1").Return(&domain.ProductMapping{CourseID: courseID}, nil)
	d.users.EXPECT().FindOrProvision(ctx, "ana@example.com", "Ana").Return(profile, true, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.enrollmentRepo.EXPECT().LockPair(ctx, tx, profile.ID, courseID).Return(nil)
	d.enrollmentRepo.EXPECT().FindByUserCourse(ctx, tx, profile.ID, courseID).Return(nil, nil)
	d.enrollmentRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, e *domain.Enrollment) error {
			assert.Equal(t, domain.EnrollmentActive, e.Status)
			assert.True(t, decimal.RequireFromString("97.50").Equal(e.AmountPaid))
			require.NotNil(t, e.ExternalReference)
			assert.Equal(t, "tx-1", *e.ExternalReference)
			require.NotNil(t, e.PaymentMethod)
			assert.Equal(t, "pix", *e.PaymentMethod)
			return nil
		})
	d.publisher.EXPECT().Publish(domain.EventEnrollmentCreated, gomock.Any()).Return(true)

	err := d.svc.HandlePartnerEvent(ctx, domain.EventSaleCompleted, saleData(t, "prod-1", "tx-1", "Ana@Example.com"))
	require.NoError(t, err)
	assert.True(t, tx.committed)
}

func TestReconciler_Sale_UpdatesExistingEnrollment(t *testing.T) {
	d := setupReconciler(t)
	ctx := context.Background()
	tx := &mockTx{}
	courseID := uuid.New()
	profile := &domain.Profile{ID: uuid.New()}
	existing := &domain.Enrollment{
		ID:       uuid.New(),
		UserID:   profile.ID,
		CourseID: courseID,
		Status:   domain.EnrollmentCanceled,
	}

	d.mappingRepo.EXPECT().GetByExternalID(ctx, "prod-1").Return(&domain.ProductMapping{CourseID: courseID}, nil)
	d.users.EXPECT().FindOrProvision(ctx, "ana@example.com", "Ana").Return(profile, false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.enrollmentRepo.EXPECT().LockPair(ctx, tx, profile.ID, courseID).Return(nil)
	d.enrollmentRepo.EXPECT().FindByUserCourse(ctx, tx, profile.ID, courseID).Return(existing, nil)
	d.enrollmentRepo.EXPECT().Update(ctx, tx, existing).DoAndReturn(
		func(_ context.Context, _ any, e *domain.Enrollment) error {
			assert.Equal(t, existing.ID, e.ID)
			assert.Equal(t, domain.EnrollmentActive, e.Status)
			assert.Equal(t, "tx-2", *e.ExternalReference)
			return nil
		})
	d.publisher.EXPECT().Publish(domain.EventEnrollmentUpdated, existing).Return(true)

	err := d.svc.HandlePartnerEvent(ctx, domain.EventPaymentApproved, saleData(t, "prod-1", "tx-2", "ana@example.com"))
	require.NoError(t, err)
}

func TestReconciler_Sale_UnmappedProductIsNoop(t *testing.T) {
	d := setupReconciler(t)
	ctx := context.Background()

	d.mappingRepo.EXPECT().GetByExternalID(ctx, "unknown").Return(nil, nil)

	err := d.svc.HandlePartnerEvent(ctx, domain.EventSaleApproved, saleData(t, "unknown", "tx", "a@b.c"))
	assert.NoError(t, err)
}

func TestReconciler_Sale_MissingEmail(t *testing.T) {
	d := setupReconciler(t)

	err := d.svc.HandlePartnerEvent(context.Background(), domain.EventSaleCompleted, saleData(t, "prod-1", "tx", ""))
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_001", appErr.Code)
}

func TestReconciler_Sale_CreateFailureRollsBack(t *testing.T) {
	d := setupReconciler(t)
	ctx := context.Background()
	tx := &mockTx{}
	courseID := uuid.New()
	profile := &domain.Profile{ID: uuid.New()}

	d.mappingRepo.EXPECT().GetByExternalID(ctx, "prod-1").Return(&domain.ProductMapping{CourseID: courseID}, nil)
	d.users.EXPECT().FindOrProvision(ctx, "a@b.c", "Ana").Return(profile, false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.enrollmentRepo.EXPECT().LockPair(ctx, tx, profile.ID, courseID).Return(nil)
	d.enrollmentRepo.EXPECT().FindByUserCourse(ctx, tx, profile.ID, courseID).Return(nil, nil)
	d.enrollmentRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(errors.New("unique violation"))

	err := d.svc.HandlePartnerEvent(ctx, domain.EventSaleCompleted, saleData(t, "prod-1", "tx", "a@b.c"))
	assert.ErrorContains(t, err, "unique violation")
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestReconciler_Refund_CancelsByReference(t *testing.T) {
	d := setupReconciler(t)
	ctx := context.Background()
	canceled := &domain.Enrollment{ID: uuid.New(), Status: domain.EnrollmentCanceled}

	d.enrollmentRepo.EXPECT().CancelByReference(ctx, "tx-1").Return(canceled, nil)
	d.publisher.EXPECT().Publish(domain.EventEnrollmentCanceled, canceled).Return(false)

	err := d.svc.HandlePartnerEvent(ctx, domain.EventSaleRefunded, json.RawMessage(`{"transaction_id":"tx-1"}`))
	assert.NoError(t, err)
}

func TestReconciler_Refund_UnknownReferenceIsNoop(t *testing.T) {
	d := setupReconciler(t)
	ctx := context.Background()

	d.enrollmentRepo.EXPECT().CancelByReference(ctx, "never-sold").Return(nil, nil)

	err := d.svc.HandlePartnerEvent(ctx, domain.EventSaleChargeback, json.RawMessage(`{"transaction_id":"never-sold"}`))
	assert.NoError(t, err)
}

func TestReconciler_Refund_EmptyReferenceIsNoop(t *testing.T) {
	d := setupReconciler(t)

	err := d.svc.HandlePartnerEvent(context.Background(), domain.EventPaymentRefunded, json.RawMessage(`{}`))
	assert.NoError(t, err)
}

func TestReconciler_UnknownPartnerEventIgnored(t *testing.T) {
	d := setupReconciler(t)

	err := d.svc.HandlePartnerEvent(context.Background(), "sale.created", json.RawMessage(`not json`))
	assert.NoError(t, err)
}

func TestReconciler_MalformedPartnerData(t *testing.T) {
	d := setupReconciler(t)

	err := d.svc.HandlePartnerEvent(context.Background(), domain.EventSaleCompleted, json.RawMessage(`"oops"`))
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VAL_002", appErr.Code)
}

func TestReconciler_GenericProfileEvent(t *testing.T) {
	d := setupReconciler(t)
	ctx := context.Background()

	d.users.EXPECT().FindOrProvision(ctx, "new@example.com", "New").Return(&domain.Profile{ID: uuid.New()}, true, nil)

	err := d.svc.HandleGenericEvent(ctx, domain.EventProfileCreated, json.RawMessage(`{"email":"New@example.com","name":"New"}`))
	assert.NoError(t, err)
}

func TestReconciler_GenericOtherEventAcknowledged(t *testing.T) {
	d := setupReconciler(t)

	err := d.svc.HandleGenericEvent(context.Background(), "lesson.viewed", nil)
	assert.NoError(t, err)
}

func TestReconciler_NilPublisher(t *testing.T) {
	ctrl := gomock.NewController(t)
	enrollmentRepo := mocks.NewMockEnrollmentRepository(ctrl)
	svc := NewEnrollmentReconciler(nil, enrollmentRepo, nil, nil, nil, newTestLogger())

	enrollmentRepo.EXPECT().CancelByReference(gomock.Any(), "tx").Return(&domain.Enrollment{ID: uuid.New()}, nil)

	assert.NoError(t, svc.HandlePartnerEvent(context.Background(), domain.EventSaleRefunded, json.RawMessage(`{"transaction_id":"tx"}`)))
}
