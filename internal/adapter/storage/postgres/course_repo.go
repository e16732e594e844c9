package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"course-admin-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CourseRepo implements ports.CourseRepository.
type CourseRepo struct {
	pool Pool
}

// NewCourseRepo creates a new CourseRepo.
func NewCourseRepo(pool Pool) *CourseRepo {
	return &CourseRepo{pool: pool}
}

// Create inserts a course.
func (r *CourseRepo) Create(ctx context.Context, c *domain.Course) error {
	query := `INSERT INTO courses (id, title, description, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query, c.ID, c.Title, c.Description, c.Published, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

// GetByID fetches a course by id.
func (r *CourseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	query := `SELECT id, title, description, published, created_at, updated_at FROM courses WHERE id = $1`

	c := &domain.Course{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Title, &c.Description, &c.Published, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get course by id: %w", err)
	}
	return c, nil
}

// List pages through courses, newest first.
func (r *CourseRepo) List(ctx context.Context, page, pageSize int) ([]domain.Course, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM courses`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, published, created_at, updated_at
		FROM courses ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	courses := []domain.Course{}
	for rows.Next() {
		var c domain.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Published, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan course row: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate course rows: %w", err)
	}
	return courses, total, nil
}

// Update writes title, description and published flag.
func (r *CourseRepo) Update(ctx context.Context, c *domain.Course) error {
	c.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx,
		`UPDATE courses SET title = $1, description = $2, published = $3, updated_at = $4 WHERE id = $5`,
		c.Title, c.Description, c.Published, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("course not found: %s", c.ID)
	}
	return nil
}

// Delete removes a course. Topics, questions and enrollments cascade.
func (r *CourseRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete course: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
