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
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// TopicServiceImpl implements ports.TopicService.
//
// Every write that assigns order indices runs in one transaction holding the
// advisory lock of the target sibling group, so max+1 and renumbering never
// interleave with another writer of the same group.
type TopicServiceImpl struct {
	courseRepo   ports.CourseRepository
	topicRepo    ports.TopicRepository
	questionRepo ports.QuestionRepository
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewTopicService creates a new TopicServiceImpl.
func NewTopicService(
	courseRepo ports.CourseRepository,
	topicRepo ports.TopicRepository,
	questionRepo ports.QuestionRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *TopicServiceImpl {
	return &TopicServiceImpl{
		courseRepo:   courseRepo,
		topicRepo:    topicRepo,
		questionRepo: questionRepo,
		transactor:   transactor,
		log:          log,
	}
}

// Create appends a topic at the end of its sibling group.
func (s *TopicServiceImpl) Create(ctx context.Context, req ports.CreateTopicRequest) (*domain.Topic, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperror.Validation("title is required")
	}

	course, err := s.courseRepo.GetByID(ctx, req.CourseID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get course: %w", err))
	}
	if course == nil {
		return nil, apperror.ErrNotFound("Course")
	}

	parent, err := s.resolveParent(ctx, req.CourseID, req.ParentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	topic := &domain.Topic{
		ID:        uuid.New(),
		CourseID:  req.CourseID,
		ParentID:  req.ParentID,
		Title:     title,
		Content:   req.Content,
		Level:     domain.ChildLevel(parent),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		next, err := s.nextOrderIndex(ctx, tx, domain.GroupOf(topic))
		if err != nil {
			return err
		}
		topic.OrderIndex = next
		if err := s.topicRepo.Create(ctx, tx, topic); err != nil {
			return fmt.Errorf("create topic: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}
	return topic, nil
}

// Get returns the topic when it belongs to courseID.
func (s *TopicServiceImpl) Get(ctx context.Context, courseID, topicID uuid.UUID) (*domain.Topic, error) {
	topic, err := s.topicRepo.GetByID(ctx, topicID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get topic: %w", err))
	}
	if topic == nil || topic.CourseID != courseID {
		return nil, apperror.ErrNotFound("Topic")
	}
	return topic, nil
}

func (s *TopicServiceImpl) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]domain.Topic, error) {
	topics, err := s.topicRepo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list topics: %w", err))
	}
	return topics, nil
}

func (s *TopicServiceImpl) Update(ctx context.Context, courseID, topicID uuid.UUID, title, content *string) (*domain.Topic, error) {
	topic, err := s.Get(ctx, courseID, topicID)
	if err != nil {
		return nil, err
	}
	if title != nil {
		t := strings.TrimSpace(*title)
		if t == "" {
			return nil, apperror.Validation("title must not be empty")
		}
		topic.Title = t
	}
	if content != nil {
		topic.Content = *content
	}
	topic.UpdatedAt = time.Now().UTC()

	if err := s.topicRepo.UpdateContent(ctx, topic); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update topic: %w", err))
	}
	return topic, nil
}

// Reparent moves a topic under newParentID (nil means root), places it last
// among its new siblings and shifts the levels of its subtree.
func (s *TopicServiceImpl) Reparent(ctx context.Context, courseID, topicID uuid.UUID, newParentID *uuid.UUID) (*domain.Topic, error) {
	topic, err := s.Get(ctx, courseID, topicID)
	if err != nil {
		return nil, err
	}

	if newParentID != nil {
		if *newParentID == topicID {
			return nil, apperror.ErrInvalidParent("a topic cannot be its own parent")
		}
		below, err := s.topicRepo.IsDescendant(ctx, topicID, *newParentID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("check descendant: %w", err))
		}
		if below {
			return nil, apperror.ErrInvalidParent("cannot move a topic under its own descendant")
		}
	}
	parent, err := s.resolveParent(ctx, courseID, newParentID)
	if err != nil {
		return nil, err
	}

	newLevel := domain.ChildLevel(parent)
	delta := newLevel - topic.Level
	group := domain.SiblingGroup{CourseID: courseID, ParentID: newParentID}

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		next, err := s.nextOrderIndex(ctx, tx, group)
		if err != nil {
			return err
		}
		if err := s.topicRepo.Move(ctx, tx, topicID, newParentID, newLevel, next); err != nil {
			return fmt.Errorf("move topic: %w", err)
		}
		if delta != 0 {
			if err := s.topicRepo.ShiftDescendantLevels(ctx, tx, topicID, delta); err != nil {
				return fmt.Errorf("shift descendant levels: %w", err)
			}
		}
		topic.ParentID = newParentID
		topic.Level = newLevel
		topic.OrderIndex = next
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}

	s.log.Info().
		Str("topic_id", topicID.String()).
		Int("level", newLevel).
		Int("order_index", topic.OrderIndex).
		Msg("topic reparented")
	return topic, nil
}

// Reorder renumbers a sibling group to match orderedIDs, 1-based. The list
// must be exactly the group's current members.
func (s *TopicServiceImpl) Reorder(ctx context.Context, courseID uuid.UUID, parentID *uuid.UUID, orderedIDs []uuid.UUID) error {
	if len(orderedIDs) == 0 {
		return apperror.ErrReorderMismatch()
	}
	seen := make(map[uuid.UUID]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		if _, dup := seen[id]; dup {
			return apperror.ErrReorderMismatch()
		}
		seen[id] = struct{}{}
	}

	if parentID != nil {
		if _, err := s.resolveParent(ctx, courseID, parentID); err != nil {
			return err
		}
	}
	group := domain.SiblingGroup{CourseID: courseID, ParentID: parentID}

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if err := s.topicRepo.LockGroup(ctx, tx, group); err != nil {
			return fmt.Errorf("lock sibling group: %w", err)
		}
		current, err := s.topicRepo.ListSiblingIDs(ctx, tx, group)
		if err != nil {
			return fmt.Errorf("list siblings: %w", err)
		}
		if len(current) != len(orderedIDs) {
			return apperror.ErrReorderMismatch()
		}
		for _, id := range current {
			if _, ok := seen[id]; !ok {
				return apperror.ErrReorderMismatch()
			}
		}
		for i, id := range orderedIDs {
			if err := s.topicRepo.SetOrderIndex(ctx, tx, id, i+1); err != nil {
				return fmt.Errorf("set order index: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return asAppError(err)
	}
	return nil
}

// Duplicate copies title and content into a new last sibling under the same
// or the requested parent. Children are not copied.
func (s *TopicServiceImpl) Duplicate(ctx context.Context, req ports.DuplicateTopicRequest) (*domain.Topic, error) {
	src, err := s.Get(ctx, req.CourseID, req.TopicID)
	if err != nil {
		return nil, err
	}

	parentID := src.ParentID
	if req.MoveParent {
		parentID = req.ParentID
	}
	parent, err := s.resolveParent(ctx, req.CourseID, parentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dup := &domain.Topic{
		ID:        uuid.New(),
		CourseID:  src.CourseID,
		ParentID:  parentID,
		Title:     src.Title + domain.CopySuffix,
		Content:   src.Content,
		Level:     domain.ChildLevel(parent),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		next, err := s.nextOrderIndex(ctx, tx, domain.GroupOf(dup))
		if err != nil {
			return err
		}
		dup.OrderIndex = next
		if err := s.topicRepo.Create(ctx, tx, dup); err != nil {
			return fmt.Errorf("create duplicate: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err)
	}
	return dup, nil
}

// Delete removes a leaf topic and its questions. A topic with children is
// rejected before anything is written.
func (s *TopicServiceImpl) Delete(ctx context.Context, courseID, topicID uuid.UUID) error {
	if _, err := s.Get(ctx, courseID, topicID); err != nil {
		return err
	}

	// Locking the child group keeps a concurrent create from adding a child
	// between the count and the delete.
	children := domain.SiblingGroup{CourseID: courseID, ParentID: &topicID}

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if err := s.topicRepo.LockGroup(ctx, tx, children); err != nil {
			return fmt.Errorf("lock child group: %w", err)
		}
		n, err := s.topicRepo.CountChildren(ctx, tx, topicID)
		if err != nil {
			return fmt.Errorf("count children: %w", err)
		}
		if n > 0 {
			return apperror.ErrTopicHasChildren()
		}
		removed, err := s.questionRepo.DeleteByTopic(ctx, tx, topicID)
		if err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		if err := s.topicRepo.Delete(ctx, tx, topicID); err != nil {
			return fmt.Errorf("delete topic: %w", err)
		}
		s.log.Info().Str("topic_id", topicID.String()).Int64("questions", removed).Msg("topic deleted")
		return nil
	})
	return asAppError(err)
}

// resolveParent loads parentID and checks it belongs to courseID. A nil id
// yields a nil parent (root).
func (s *TopicServiceImpl) resolveParent(ctx context.Context, courseID uuid.UUID, parentID *uuid.UUID) (*domain.Topic, error) {
	if parentID == nil {
		return nil, nil
	}
	parent, err := s.topicRepo.GetByID(ctx, *parentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get parent topic: %w", err))
	}
	if parent == nil || parent.CourseID != courseID {
		return nil, apperror.ErrInvalidParent("parent topic not found in this course")
	}
	return parent, nil
}

// nextOrderIndex locks group and returns max(order_index)+1.
func (s *TopicServiceImpl) nextOrderIndex(ctx context.Context, tx pgx.Tx, group domain.SiblingGroup) (int, error) {
	if err := s.topicRepo.LockGroup(ctx, tx, group); err != nil {
		return 0, fmt.Errorf("lock sibling group: %w", err)
	}
	maxIdx, err := s.topicRepo.MaxOrderIndex(ctx, tx, group)
	if err != nil {
		return 0, fmt.Errorf("max order index: %w", err)
	}
	return maxIdx + 1, nil
}

func (s *TopicServiceImpl) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := fn(dbTx); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// asAppError keeps domain errors and wraps everything else as internal.
func asAppError(err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*apperror.AppError); ok {
		return appErr
	}
	return apperror.InternalError(err)
}
