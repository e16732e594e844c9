package postgres

import (
	"context"
	"errors"
	"fmt"

	"course-admin-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const enrollmentColumns = `id, user_id, course_id, status, payment_method, amount_paid, external_reference, enrolled_at, completed_at`

// EnrollmentRepo implements ports.EnrollmentRepository.
type EnrollmentRepo struct {
	pool Pool
}

// NewEnrollmentRepo creates a new EnrollmentRepo.
func NewEnrollmentRepo(pool Pool) *EnrollmentRepo {
	return &EnrollmentRepo{pool: pool}
}

// LockPair serializes reconciliation of one (user, course) pair until the
// surrounding transaction ends.
func (r *EnrollmentRepo) LockPair(ctx context.Context, tx pgx.Tx, userID, courseID uuid.UUID) error {
	key := "enrollment:" + userID.String() + ":" + courseID.String()
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("lock enrollment pair: %w", err)
	}
	return nil
}

// FindByUserCourse returns the live enrollment for the pair, falling back to
// the most recent canceled one.
func (r *EnrollmentRepo) FindByUserCourse(ctx context.Context, tx pgx.Tx, userID, courseID uuid.UUID) (*domain.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM course_enrollments
		WHERE user_id = $1 AND course_id = $2
		ORDER BY (status <> 'canceled') DESC, enrolled_at DESC
		LIMIT 1`

	e, err := scanEnrollment(tx.QueryRow(ctx, query, userID, courseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return e, nil
}

// Create inserts an enrollment.
func (r *EnrollmentRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.Enrollment) error {
	query := `INSERT INTO course_enrollments (` + enrollmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.UserID, e.CourseID, e.Status, e.PaymentMethod,
		e.AmountPaid, e.ExternalReference, e.EnrolledAt, e.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// Update refreshes status and payment details.
func (r *EnrollmentRepo) Update(ctx context.Context, tx pgx.Tx, e *domain.Enrollment) error {
	query := `UPDATE course_enrollments
		SET status = $1, payment_method = $2, amount_paid = $3, external_reference = $4, completed_at = $5
		WHERE id = $6`

	tag, err := tx.Exec(ctx, query,
		e.Status, e.PaymentMethod, e.AmountPaid, e.ExternalReference, e.CompletedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("enrollment not found: %s", e.ID)
	}
	return nil
}

// CancelByReference cancels the enrollment carrying the partner reference.
func (r *EnrollmentRepo) CancelByReference(ctx context.Context, reference string) (*domain.Enrollment, error) {
	query := `UPDATE course_enrollments SET status = 'canceled'
		WHERE id = (
			SELECT id FROM course_enrollments WHERE external_reference = $1
			ORDER BY enrolled_at DESC LIMIT 1
		)
		RETURNING ` + enrollmentColumns

	e, err := scanEnrollment(r.pool.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("cancel enrollment by reference: %w", err)
	}
	return e, nil
}

// ListByCourse pages through a course's enrollments, newest first.
func (r *EnrollmentRepo) ListByCourse(ctx context.Context, courseID uuid.UUID, page, pageSize int) ([]domain.Enrollment, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM course_enrollments WHERE course_id = $1`, courseID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}

	query := `SELECT ` + enrollmentColumns + ` FROM course_enrollments
		WHERE course_id = $1 ORDER BY enrolled_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, courseID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	out := []domain.Enrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan enrollment row: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate enrollment rows: %w", err)
	}
	return out, total, nil
}

func scanEnrollment(row pgx.Row) (*domain.Enrollment, error) {
	e := &domain.Enrollment{}
	err := row.Scan(
		&e.ID, &e.UserID, &e.CourseID, &e.Status, &e.PaymentMethod,
		&e.AmountPaid, &e.ExternalReference, &e.EnrolledAt, &e.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}
