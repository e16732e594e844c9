package service

import (
	"context"
	"errors"
	"testing"

	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCourseService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockCourseRepository(ctrl)
	svc := NewCourseService(mockRepo, mocks.NewMockEnrollmentRepository(ctrl))

	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	c, err := svc.Create(context.Background(), &domain.Course{Title: "  Go 101 ", Description: "intro"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.Equal(t, "Go 101", c.Title)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestCourseService_Create_EmptyTitle(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewCourseService(mocks.NewMockCourseRepository(ctrl), nil)

	_, err := svc.Create(context.Background(), &domain.Course{Title: "   "})
	assertAppCode(t, err, "VAL_001")
}

func TestCourseService_Get_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockCourseRepository(ctrl)
	svc := NewCourseService(mockRepo, nil)

	id := uuid.New()
	mockRepo.EXPECT().GetByID(gomock.Any(), id).Return(nil, nil)

	_, err := svc.Get(context.Background(), id)
	assertAppCode(t, err, "NF_001")
}

func TestCourseService_Get_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockCourseRepository(ctrl)
	svc := NewCourseService(mockRepo, nil)

	mockRepo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(nil, errors.New("db"))

	_, err := svc.Get(context.Background(), uuid.New())
	assertAppCode(t, err, "SYS_000")
}

func TestCourseService_List_NormalizesPaging(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockCourseRepository(ctrl)
	svc := NewCourseService(mockRepo, nil)

	mockRepo.EXPECT().List(gomock.Any(), 1, MaxPageSize).Return([]domain.Course{{Title: "a"}}, int64(1), nil)

	items, total, err := svc.List(context.Background(), 0, 500)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(1), total)
}

func TestCourseService_Update_AppliesPatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockCourseRepository(ctrl)
	svc := NewCourseService(mockRepo, nil)

	id := uuid.New()
	published := true
	title := "New title"
	mockRepo.EXPECT().GetByID(gomock.Any(), id).Return(&domain.Course{ID: id, Title: "Old", Description: "keep"}, nil)
	mockRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

	c, err := svc.Update(context.Background(), id, domain.CoursePatch{Title: &title, Published: &published})
	require.NoError(t, err)
	assert.Equal(t, "New title", c.Title)
	assert.Equal(t, "keep", c.Description)
	assert.True(t, c.Published)
}

func TestCourseService_Update_BlankTitleRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockCourseRepository(ctrl)
	svc := NewCourseService(mockRepo, nil)

	id := uuid.New()
	blank := " "
	mockRepo.EXPECT().GetByID(gomock.Any(), id).Return(&domain.Course{ID: id, Title: "Old"}, nil)

	_, err := svc.Update(context.Background(), id, domain.CoursePatch{Title: &blank})
	assertAppCode(t, err, "VAL_001")
}

func TestCourseService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockCourseRepository(ctrl)
	svc := NewCourseService(mockRepo, nil)

	id := uuid.New()
	mockRepo.EXPECT().Delete(gomock.Any(), id).Return(true, nil)
	require.NoError(t, svc.Delete(context.Background(), id))

	mockRepo.EXPECT().Delete(gomock.Any(), id).Return(false, nil)
	assertAppCode(t, svc.Delete(context.Background(), id), "NF_001")
}

func TestCourseService_ListEnrollments(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockCourseRepository(ctrl)
	enrollRepo := mocks.NewMockEnrollmentRepository(ctrl)
	svc := NewCourseService(mockRepo, enrollRepo)

	id := uuid.New()
	mockRepo.EXPECT().GetByID(gomock.Any(), id).Return(&domain.Course{ID: id}, nil)
	enrollRepo.EXPECT().ListByCourse(gomock.Any(), id, 2, 10).Return([]domain.Enrollment{{CourseID: id}}, int64(11), nil)

	items, total, err := svc.ListEnrollments(context.Background(), id, 2, 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(11), total)
}

func TestNormalizePage(t *testing.T) {
	p, s := NormalizePage(-1, 0)
	assert.Equal(t, 1, p)
	assert.Equal(t, DefaultPageSize, s)

	p, s = NormalizePage(3, 50)
	assert.Equal(t, 3, p)
	assert.Equal(t, 50, s)
}
