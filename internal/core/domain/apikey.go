package domain

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Permission is one capability an API key may hold. The set is closed.
type Permission uint8

const (
	PermCoursesRead Permission = iota
	PermCoursesWrite
	PermTopicsRead
	PermTopicsWrite
	PermEnrollmentsRead

	permissionCount
)

// AllPermissions lists every known permission in declaration order.
func AllPermissions() []Permission {
	out := make([]Permission, 0, permissionCount)
	for p := Permission(0); p < permissionCount; p++ {
		out = append(out, p)
	}
	return out
}

func (p Permission) String() string {
	switch p {
	case PermCoursesRead:
		return "courses:read"
	case PermCoursesWrite:
		return "courses:write"
	case PermTopicsRead:
		return "topics:read"
	case PermTopicsWrite:
		return "topics:write"
	case PermEnrollmentsRead:
		return "enrollments:read"
	}
	return fmt.Sprintf("permission(%d)", uint8(p))
}

// ParsePermission maps the stored string form back to a Permission.
func ParsePermission(s string) (Permission, error) {
	switch strings.TrimSpace(s) {
	case "courses:read":
		return PermCoursesRead, nil
	case "courses:write":
		return PermCoursesWrite, nil
	case "topics:read":
		return PermTopicsRead, nil
	case "topics:write":
		return PermTopicsWrite, nil
	case "enrollments:read":
		return PermEnrollmentsRead, nil
	}
	return 0, fmt.Errorf("unknown permission %q", s)
}

// PermissionSet is a bitset of permissions.
type PermissionSet uint32

// NewPermissionSet builds a set from permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		s |= 1 << p
	}
	return s
}

// ParsePermissionSet parses stored strings. Unknown entries are an error so
// a typo in the database cannot silently grant or drop access.
func ParsePermissionSet(values []string) (PermissionSet, error) {
	var s PermissionSet
	for _, v := range values {
		p, err := ParsePermission(v)
		if err != nil {
			return 0, err
		}
		s |= 1 << p
	}
	return s, nil
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	return p < permissionCount && s&(1<<p) != 0
}

// Strings returns the stored form of every permission in the set.
func (s PermissionSet) Strings() []string {
	out := []string{}
	for _, p := range AllPermissions() {
		if s.Has(p) {
			out = append(out, p.String())
		}
	}
	return out
}

// RequiredPermission returns the permission needed for an HTTP method on a
// resource guarded by the read/write pair.
func RequiredPermission(method string, read, write Permission) Permission {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return read
	default:
		return write
	}
}

// RequiredCoursePermission is RequiredPermission for the course API.
func RequiredCoursePermission(method string) Permission {
	return RequiredPermission(method, PermCoursesRead, PermCoursesWrite)
}

// RequiredTopicPermission is RequiredPermission for topic routes.
func RequiredTopicPermission(method string) Permission {
	return RequiredPermission(method, PermTopicsRead, PermTopicsWrite)
}

// APIKey is a programmatic credential. Only the SHA-256 hash is stored.
type APIKey struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	KeyHash     string        `json:"-"`
	KeyPrefix   string        `json:"key_prefix"`
	Permissions PermissionSet `json:"-"`
	RateLimit   int           `json:"rate_limit"` // requests per gateway window, 0 = unlimited
	Active      bool          `json:"active"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time    `json:"last_used_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// IsExpired reports whether the key has passed its expiry at now.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// APILog is one access-log row for a gateway-protected call.
type APILog struct {
	ID         uuid.UUID  `json:"id"`
	APIKeyID   *uuid.UUID `json:"api_key_id,omitempty"`
	Endpoint   string     `json:"endpoint"`
	Method     string     `json:"method"`
	StatusCode int        `json:"status_code"`
	DurationMS int64      `json:"duration_ms"`
	IPAddress  string     `json:"ip_address"`
	UserAgent  string     `json:"user_agent"`
	CreatedAt  time.Time  `json:"created_at"`
}
