package domain

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySource(t *testing.T) {
	tests := []struct {
		name    string
		signals SourceSignals
		kind    SourceKind
		signal  Signal
		source  string
	}{
		{
			name:    "declared partner source",
			signals: SourceSignals{PartnerName: "kwify", DeclaredSource: "Kwify", EventType: "profile.created"},
			kind:    SourcePartner,
			signal:  SignalDeclaredSource,
			source:  "kwify",
		},
		{
			name:    "source header",
			signals: SourceSignals{PartnerName: "kwify", SourceHeader: "kwify", EventType: "custom.event"},
			kind:    SourcePartner,
			signal:  SignalSourceHeader,
			source:  "kwify",
		},
		{
			name:    "partner signature header",
			signals: SourceSignals{PartnerName: "kwify", HasPartnerSigHeader: true, EventType: "custom.event"},
			kind:    SourcePartner,
			signal:  SignalPartnerSignatureHeader,
			source:  "kwify",
		},
		{
			name:    "sale prefix",
			signals: SourceSignals{PartnerName: "kwify", EventType: "sale.completed"},
			kind:    SourcePartner,
			signal:  SignalEventPrefix,
			source:  "kwify",
		},
		{
			name:    "payment prefix",
			signals: SourceSignals{PartnerName: "kwify", EventType: "payment.refunded"},
			kind:    SourcePartner,
			signal:  SignalEventPrefix,
			source:  "kwify",
		},
		{
			name:    "declared source wins over prefix",
			signals: SourceSignals{PartnerName: "kwify", DeclaredSource: "kwify", HasPartnerSigHeader: true, EventType: "sale.completed"},
			kind:    SourcePartner,
			signal:  SignalDeclaredSource,
			source:  "kwify",
		},
		{
			name:    "generic keeps declared source",
			signals: SourceSignals{PartnerName: "kwify", DeclaredSource: "crm", EventType: "profile.created"},
			kind:    SourceGeneric,
			signal:  SignalNone,
			source:  "crm",
		},
		{
			name:    "generic falls back to header",
			signals: SourceSignals{PartnerName: "kwify", SourceHeader: "Zapier", EventType: "user.created"},
			kind:    SourceGeneric,
			signal:  SignalNone,
			source:  "zapier",
		},
		{
			name:    "generic default",
			signals: SourceSignals{PartnerName: "kwify", EventType: "user.created"},
			kind:    SourceGeneric,
			signal:  SignalNone,
			source:  "generic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifySource(tt.signals)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.signal, got.Signal)
			assert.Equal(t, tt.source, got.Source)
			assert.Equal(t, tt.kind == SourcePartner, got.IsPartner())
		})
	}
}

func TestSourceKind_String(t *testing.T) {
	assert.Equal(t, "partner", SourcePartner.String())
	assert.Equal(t, "generic", SourceGeneric.String())
	assert.Equal(t, "unknown", SourceKind(42).String())
}

func TestPartnerActionFor(t *testing.T) {
	tests := []struct {
		event string
		want  PartnerAction
	}{
		{EventSaleCompleted, PartnerActionEnroll},
		{EventSaleApproved, PartnerActionEnroll},
		{EventPaymentApproved, PartnerActionEnroll},
		{EventSaleRefunded, PartnerActionCancel},
		{EventPaymentRefunded, PartnerActionCancel},
		{EventSaleChargeback, PartnerActionCancel},
		{"sale.pending", PartnerActionIgnore},
		{"", PartnerActionIgnore},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			assert.Equal(t, tt.want, PartnerActionFor(tt.event))
		})
	}
}

func TestWebhookConfig_Subscribes(t *testing.T) {
	cfg := &WebhookConfig{Events: []string{EventEnrollmentCreated, EventEnrollmentCanceled}}
	assert.True(t, cfg.Subscribes(EventEnrollmentCreated))
	assert.False(t, cfg.Subscribes(EventEnrollmentUpdated))

	all := &WebhookConfig{Events: []string{"*"}}
	assert.True(t, all.Subscribes("anything.at.all"))

	none := &WebhookConfig{}
	assert.False(t, none.Subscribes(EventEnrollmentCreated))
}

func TestWebhookConfig_HasSecret(t *testing.T) {
	empty := ""
	secret := "s3cret"
	assert.False(t, (&WebhookConfig{}).HasSecret())
	assert.False(t, (&WebhookConfig{Secret: &empty}).HasSecret())
	assert.True(t, (&WebhookConfig{Secret: &secret}).HasSecret())
}

func TestChildLevel(t *testing.T) {
	assert.Equal(t, RootLevel, ChildLevel(nil))
	assert.Equal(t, 3, ChildLevel(&Topic{Level: 2}))
}

func TestSiblingGroup_LockKey(t *testing.T) {
	course := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	parent := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	root := GroupOf(&Topic{CourseID: course})
	assert.Equal(t, "topics:11111111-1111-1111-1111-111111111111:root", root.LockKey())

	nested := GroupOf(&Topic{CourseID: course, ParentID: &parent})
	assert.Equal(t, "topics:11111111-1111-1111-1111-111111111111:22222222-2222-2222-2222-222222222222", nested.LockKey())
	assert.NotEqual(t, root.LockKey(), nested.LockKey())
}

func TestCoursePatch_Apply(t *testing.T) {
	c := &Course{Title: "Go", Description: "basics", Published: false}
	title := "Go in Practice"
	published := true

	CoursePatch{Title: &title, Published: &published}.Apply(c)

	assert.Equal(t, "Go in Practice", c.Title)
	assert.Equal(t, "basics", c.Description)
	assert.True(t, c.Published)
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleStudent.Valid())
	assert.True(t, RoleInstructor.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("owner").Valid())
}

func TestPermission_RoundTrip(t *testing.T) {
	for _, p := range AllPermissions() {
		parsed, err := ParsePermission(p.String())
		require.NoError(t, err, p.String())
		assert.Equal(t, p, parsed)
	}
	assert.Len(t, AllPermissions(), 5)

	_, err := ParsePermission("courses:*")
	assert.Error(t, err)
}

func TestPermissionSet(t *testing.T) {
	set, err := ParsePermissionSet([]string{"courses:read", "topics:write"})
	require.NoError(t, err)

	assert.True(t, set.Has(PermCoursesRead))
	assert.True(t, set.Has(PermTopicsWrite))
	assert.False(t, set.Has(PermCoursesWrite))
	assert.False(t, set.Has(permissionCount))
	assert.Equal(t, []string{"courses:read", "topics:write"}, set.Strings())
	assert.Equal(t, NewPermissionSet(PermCoursesRead, PermTopicsWrite), set)

	_, err = ParsePermissionSet([]string{"courses:read", "admin"})
	assert.Error(t, err)

	assert.Equal(t, []string{}, PermissionSet(0).Strings())
}

func TestRequiredCoursePermission(t *testing.T) {
	tests := []struct {
		method string
		want   Permission
	}{
		{http.MethodGet, PermCoursesRead},
		{http.MethodHead, PermCoursesRead},
		{http.MethodPost, PermCoursesWrite},
		{http.MethodPut, PermCoursesWrite},
		{http.MethodPatch, PermCoursesWrite},
		{http.MethodDelete, PermCoursesWrite},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiredCoursePermission(tt.method))
		})
	}

	assert.Equal(t, PermTopicsRead, RequiredTopicPermission(http.MethodGet))
	assert.Equal(t, PermTopicsWrite, RequiredTopicPermission(http.MethodPost))
}

func TestAPIKey_IsExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	assert.False(t, (&APIKey{}).IsExpired(now))
	assert.True(t, (&APIKey{ExpiresAt: &past}).IsExpired(now))
	assert.True(t, (&APIKey{ExpiresAt: &now}).IsExpired(now))
	assert.False(t, (&APIKey{ExpiresAt: &future}).IsExpired(now))
}
