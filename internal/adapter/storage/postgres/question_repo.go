package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// QuestionRepo implements ports.QuestionRepository.
type QuestionRepo struct{}

// NewQuestionRepo creates a new QuestionRepo. Every method runs on a caller's tx.
func NewQuestionRepo() *QuestionRepo {
	return &QuestionRepo{}
}

// DeleteByTopic removes the questions attached to a topic.
func (r *QuestionRepo) DeleteByTopic(ctx context.Context, tx pgx.Tx, topicID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM questions WHERE topic_id = $1`, topicID)
	if err != nil {
		return 0, fmt.Errorf("delete questions by topic: %w", err)
	}
	return tag.RowsAffected(), nil
}
