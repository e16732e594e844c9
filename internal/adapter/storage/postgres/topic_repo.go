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

const topicColumns = `id, course_id, parent_id, title, content, level, order_index, created_at, updated_at`

// descendantsCTE yields the ids of every topic below $1.
const descendantsCTE = `WITH RECURSIVE sub AS (
		SELECT id FROM topics WHERE parent_id = $1
		UNION ALL
		SELECT t.id FROM topics t JOIN sub s ON t.parent_id = s.id
	)`

// TopicRepo implements ports.TopicRepository.
type TopicRepo struct {
	pool Pool
}

// NewTopicRepo creates a new TopicRepo.
func NewTopicRepo(pool Pool) *TopicRepo {
	return &TopicRepo{pool: pool}
}

// Create inserts a topic inside tx.
func (r *TopicRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Topic) error {
	query := `INSERT INTO topics (` + topicColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.CourseID, t.ParentID, t.Title, t.Content,
		t.Level, t.OrderIndex, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert topic: %w", err)
	}
	return nil
}

// GetByID fetches a topic by id.
func (r *TopicRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Topic, error) {
	t, err := scanTopic(r.pool.QueryRow(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get topic by id: %w", err)
	}
	return t, nil
}

// ListByCourse returns a course's topics ordered for tree rendering.
func (r *TopicRepo) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]domain.Topic, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+topicColumns+` FROM topics WHERE course_id = $1 ORDER BY level, parent_id NULLS FIRST, order_index`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	topics := []domain.Topic{}
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan topic row: %w", err)
		}
		topics = append(topics, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topic rows: %w", err)
	}
	return topics, nil
}

// UpdateContent writes title and content.
func (r *TopicRepo) UpdateContent(ctx context.Context, t *domain.Topic) error {
	t.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx,
		`UPDATE topics SET title = $1, content = $2, updated_at = $3 WHERE id = $4`,
		t.Title, t.Content, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update topic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("topic not found: %s", t.ID)
	}
	return nil
}

// IsDescendant walks the subtree of ancestorID looking for nodeID.
func (r *TopicRepo) IsDescendant(ctx context.Context, ancestorID, nodeID uuid.UUID) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx,
		descendantsCTE+` SELECT EXISTS (SELECT 1 FROM sub WHERE id = $2)`,
		ancestorID, nodeID,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check topic descendant: %w", err)
	}
	return found, nil
}

// LockGroup serializes order-index writes for one sibling group until the
// transaction ends.
func (r *TopicRepo) LockGroup(ctx context.Context, tx pgx.Tx, g domain.SiblingGroup) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, g.LockKey()); err != nil {
		return fmt.Errorf("lock sibling group: %w", err)
	}
	return nil
}

// MaxOrderIndex returns the highest order index in the group, 0 when empty.
func (r *TopicRepo) MaxOrderIndex(ctx context.Context, tx pgx.Tx, g domain.SiblingGroup) (int, error) {
	var maxIdx int
	err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(order_index), 0) FROM topics WHERE course_id = $1 AND parent_id IS NOT DISTINCT FROM $2`,
		g.CourseID, g.ParentID,
	).Scan(&maxIdx)
	if err != nil {
		return 0, fmt.Errorf("max order index: %w", err)
	}
	return maxIdx, nil
}

// ListSiblingIDs returns the ids in the group in current order.
func (r *TopicRepo) ListSiblingIDs(ctx context.Context, tx pgx.Tx, g domain.SiblingGroup) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx,
		`SELECT id FROM topics WHERE course_id = $1 AND parent_id IS NOT DISTINCT FROM $2 ORDER BY order_index`,
		g.CourseID, g.ParentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sibling ids: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan sibling id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetOrderIndex writes one topic's order index.
func (r *TopicRepo) SetOrderIndex(ctx context.Context, tx pgx.Tx, id uuid.UUID, orderIndex int) error {
	tag, err := tx.Exec(ctx, `UPDATE topics SET order_index = $1, updated_at = NOW() WHERE id = $2`, orderIndex, id)
	if err != nil {
		return fmt.Errorf("set order index: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("topic not found: %s", id)
	}
	return nil
}

// Move sets parent, level and order index in one write.
func (r *TopicRepo) Move(ctx context.Context, tx pgx.Tx, id uuid.UUID, parentID *uuid.UUID, level, orderIndex int) error {
	tag, err := tx.Exec(ctx,
		`UPDATE topics SET parent_id = $1, level = $2, order_index = $3, updated_at = NOW() WHERE id = $4`,
		parentID, level, orderIndex, id,
	)
	if err != nil {
		return fmt.Errorf("move topic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("topic not found: %s", id)
	}
	return nil
}

// ShiftDescendantLevels keeps levels consistent after a subtree moves.
func (r *TopicRepo) ShiftDescendantLevels(ctx context.Context, tx pgx.Tx, rootID uuid.UUID, delta int) error {
	_, err := tx.Exec(ctx,
		descendantsCTE+` UPDATE topics SET level = level + $2, updated_at = NOW() WHERE id IN (SELECT id FROM sub)`,
		rootID, delta,
	)
	if err != nil {
		return fmt.Errorf("shift descendant levels: %w", err)
	}
	return nil
}

// CountChildren counts direct children.
func (r *TopicRepo) CountChildren(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int, error) {
	var n int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM topics WHERE parent_id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count topic children: %w", err)
	}
	return n, nil
}

// Delete removes a topic row.
func (r *TopicRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("topic not found: %s", id)
	}
	return nil
}

func scanTopic(row pgx.Row) (*domain.Topic, error) {
	t := &domain.Topic{}
	err := row.Scan(
		&t.ID, &t.CourseID, &t.ParentID, &t.Title, &t.Content,
		&t.Level, &t.OrderIndex, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
