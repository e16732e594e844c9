package postgres

import (
	"context"
	"testing"
	"time"

	"course-admin-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTopic(courseID uuid.UUID, parentID *uuid.UUID) *domain.Topic {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Topic{
		ID:         uuid.New(),
		CourseID:   courseID,
		ParentID:   parentID,
		Title:      "Goroutines",
		Content:    "<p>go func()</p>",
		Level:      1,
		OrderIndex: 2,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func topicColumnNames() []string {
	return []string{"id", "course_id", "parent_id", "title", "content", "level", "order_index", "created_at", "updated_at"}
}

func beginMockTx(t *testing.T, mock pgxmock.PgxPoolIface) pgx.Tx {
	t.Helper()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	return tx
}

func TestTopicRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTopicRepo(mock)
	parent := uuid.New()
	topic := newTestTopic(uuid.New(), &parent)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO topics").
		WithArgs(topic.ID, topic.CourseID, topic.ParentID, topic.Title, topic.Content,
			topic.Level, topic.OrderIndex, topic.CreatedAt, topic.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx := beginMockTx(t, mock)
	assert.NoError(t, repo.Create(context.Background(), tx, topic))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTopicRepo(mock)
	topic := newTestTopic(uuid.New(), nil)

	mock.ExpectQuery("SELECT .+ FROM topics WHERE id").
		WithArgs(topic.ID).
		WillReturnRows(pgxmock.NewRows(topicColumnNames()).AddRow(
			topic.ID, topic.CourseID, topic.ParentID, topic.Title, topic.Content,
			topic.Level, topic.OrderIndex, topic.CreatedAt, topic.UpdatedAt,
		))

	got, err := repo.GetByID(context.Background(), topic.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsRoot())
	assert.Equal(t, topic.Title, got.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepo_MaxOrderIndex_RootGroup(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTopicRepo(mock)
	group := domain.SiblingGroup{CourseID: uuid.New()}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COALESCE\\(MAX\\(order_index\\), 0\\) FROM topics WHERE course_id = \\$1 AND parent_id IS NOT DISTINCT FROM \\$2").
		WithArgs(group.CourseID, group.ParentID).
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(4))

	tx := beginMockTx(t, mock)
	got, err := repo.MaxOrderIndex(context.Background(), tx, group)
	require.NoError(t, err)
	assert.Equal(t, 4, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepo_LockGroup(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTopicRepo(mock)
	group := domain.SiblingGroup{CourseID: uuid.New()}

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(group.LockKey()).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	tx := beginMockTx(t, mock)
	assert.NoError(t, repo.LockGroup(context.Background(), tx, group))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepo_ListSiblingIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTopicRepo(mock)
	parent := uuid.New()
	group := domain.SiblingGroup{CourseID: uuid.New(), ParentID: &parent}
	a, b := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM topics WHERE course_id").
		WithArgs(group.CourseID, group.ParentID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(a).AddRow(b))

	tx := beginMockTx(t, mock)
	ids, err := repo.ListSiblingIDs(context.Background(), tx, group)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepo_Move(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTopicRepo(mock)
	id, parent := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE topics SET parent_id").
		WithArgs(&parent, 2, 5, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx := beginMockTx(t, mock)
	assert.NoError(t, repo.Move(context.Background(), tx, id, &parent, 2, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepo_ShiftDescendantLevels(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTopicRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("WITH RECURSIVE sub AS .+ UPDATE topics SET level = level \\+ \\$2").
		WithArgs(id, -1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	tx := beginMockTx(t, mock)
	assert.NoError(t, repo.ShiftDescendantLevels(context.Background(), tx, id, -1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepo_IsDescendant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTopicRepo(mock)
	ancestor, node := uuid.New(), uuid.New()

	mock.ExpectQuery("WITH RECURSIVE sub AS .+ SELECT EXISTS").
		WithArgs(ancestor, node).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	found, err := repo.IsDescendant(context.Background(), ancestor, node)
	require.NoError(t, err)
	assert.True(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepo_CountChildrenAndDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTopicRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM topics WHERE parent_id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("DELETE FROM topics").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	tx := beginMockTx(t, mock)
	n, err := repo.CountChildren(context.Background(), tx, id)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, repo.Delete(context.Background(), tx, id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepo_SetOrderIndex_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTopicRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE topics SET order_index").
		WithArgs(1, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx := beginMockTx(t, mock)
	err = repo.SetOrderIndex(context.Background(), tx, id, 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "topic not found")
}

func TestQuestionRepo_DeleteByTopic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewQuestionRepo()
	topicID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM questions WHERE topic_id").
		WithArgs(topicID).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	tx := beginMockTx(t, mock)
	n, err := repo.DeleteByTopic(context.Background(), tx, topicID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
