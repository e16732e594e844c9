package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionRepo_DeleteByTopic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewQuestionRepo()
	topicID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM questions WHERE topic_id").
		WithArgs(topicID).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	tx := beginMockTx(t, mock)
	n, err := repo.DeleteByTopic(context.Background(), tx, topicID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuestionRepo_DeleteByTopic_NoQuestions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewQuestionRepo()
	topicID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM questions").
		WithArgs(topicID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	tx := beginMockTx(t, mock)
	n, err := repo.DeleteByTopic(context.Background(), tx, topicID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQuestionRepo_DeleteByTopic_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewQuestionRepo()
	lockErr := errors.New("lock timeout")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM questions").
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(lockErr)

	tx := beginMockTx(t, mock)
	_, err = repo.DeleteByTopic(context.Background(), tx, uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, lockErr)
	assert.Contains(t, err.Error(), "delete questions by topic")
}
