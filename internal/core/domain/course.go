package domain

import (
	"time"

	"github.com/google/uuid"
)

// Course is a unit of content students enroll in.
type Course struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CoursePatch carries the fields an update may change.
type CoursePatch struct {
	Title       *string
	Description *string
	Published   *bool
}

// Apply copies non-nil fields onto c.
func (p CoursePatch) Apply(c *Course) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Published != nil {
		c.Published = *p.Published
	}
}
