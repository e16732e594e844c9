package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// Pagination bounds shared by list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type courseService struct {
	courseRepo     ports.CourseRepository
	enrollmentRepo ports.EnrollmentRepository
}

// NewCourseService creates a new course management service.
func NewCourseService(
	courseRepo ports.CourseRepository,
	enrollmentRepo ports.EnrollmentRepository,
) ports.CourseService {
	return &courseService{
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

func (s *courseService) Create(ctx context.Context, c *domain.Course) (*domain.Course, error) {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return nil, apperror.Validation("title is required")
	}

	now := time.Now().UTC()
	c.ID = uuid.New()
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.courseRepo.Create(ctx, c); err != nil {
		return nil, apperror.InternalError(err)
	}
	return c, nil
}

func (s *courseService) Get(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if course == nil {
		return nil, apperror.ErrNotFound("Course")
	}
	return course, nil
}

func (s *courseService) List(ctx context.Context, page, pageSize int) ([]domain.Course, int64, error) {
	page, pageSize = NormalizePage(page, pageSize)
	courses, total, err := s.courseRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return courses, total, nil
}

func (s *courseService) Update(ctx context.Context, id uuid.UUID, patch domain.CoursePatch) (*domain.Course, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(course)
	course.Title = strings.TrimSpace(course.Title)
	if course.Title == "" {
		return nil, apperror.Validation("title must not be empty")
	}
	course.UpdatedAt = time.Now().UTC()

	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, apperror.InternalError(err)
	}
	return course, nil
}

// Delete removes the course; topics, questions and enrollments cascade.
func (s *courseService) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.courseRepo.Delete(ctx, id)
	if err != nil {
		return apperror.InternalError(err)
	}
	if !deleted {
		return apperror.ErrNotFound("Course")
	}
	return nil
}

func (s *courseService) ListEnrollments(ctx context.Context, courseID uuid.UUID, page, pageSize int) ([]domain.Enrollment, int64, error) {
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, 0, err
	}
	page, pageSize = NormalizePage(page, pageSize)
	items, total, err := s.enrollmentRepo.ListByCourse(ctx, courseID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list enrollments: %w", err))
	}
	return items, total, nil
}

// NormalizePage clamps pagination input to sane bounds.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
