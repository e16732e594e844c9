package domain

import (
	"time"

	"github.com/google/uuid"
)

// RootLevel is the depth of a topic without a parent.
const RootLevel = 0

// CopySuffix is appended to the title of a duplicated topic.
const CopySuffix = " (Copy)"

// Topic is a node in a course's content forest.
type Topic struct {
	ID         uuid.UUID  `json:"id"`
	CourseID   uuid.UUID  `json:"course_id"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Level      int        `json:"level"`
	OrderIndex int        `json:"order_index"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsRoot reports whether the topic has no parent.
func (t *Topic) IsRoot() bool {
	return t.ParentID == nil
}

// ChildLevel returns the level a direct child of parent must have.
// A nil parent yields RootLevel.
func ChildLevel(parent *Topic) int {
	if parent == nil {
		return RootLevel
	}
	return parent.Level + 1
}

// SiblingGroup identifies topics sharing order indices.
type SiblingGroup struct {
	CourseID uuid.UUID
	ParentID *uuid.UUID
}

// GroupOf returns the sibling group t belongs to.
func GroupOf(t *Topic) SiblingGroup {
	return SiblingGroup{CourseID: t.CourseID, ParentID: t.ParentID}
}

// LockKey is a stable string used for advisory locking of the group.
func (g SiblingGroup) LockKey() string {
	parent := "root"
	if g.ParentID != nil {
		parent = g.ParentID.String()
	}
	return "topics:" + g.CourseID.String() + ":" + parent
}
