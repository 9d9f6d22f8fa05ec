package moderation

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/extmarket/modgate/models"
	"github.com/extmarket/modgate/moderation/notify"
	"github.com/extmarket/modgate/moderation/schema"
)

// PredicateFunc inspects a candidate subject and the editing user, returning
// a human-readable reason to act, or the empty string to pass.
type PredicateFunc func(s schema.Subject, user string) string

// ConflictFunc checks a subject about to be approved against the rest of
// the data set (duplicate keys, redundant entries). A non-empty reason
// refuses the approval and converts it into a rejection; it runs before any
// reconciliation write.
type ConflictFunc func(ctx context.Context, s schema.Subject) (string, error)

// Moderator configures how one subject type is moderated. Bound one-to-one
// with a subject type through a Registry at startup.
type Moderator struct {
	// FieldsExcluded are never shown or diffed.
	FieldsExcluded []string

	// VisibilityColumn optionally names a boolean field on the subject set
	// to true on approval, for subjects carrying their own publish flag.
	VisibilityColumn string

	// VisibleUntilRejected publishes edits immediately and rolls them back
	// on rejection, instead of holding them until approval.
	VisibleUntilRejected bool

	// AutoReject and AutoApprove are evaluated in that order during
	// auto-moderation; the first non-empty reason wins.
	AutoReject  PredicateFunc
	AutoApprove PredicateFunc

	// DetectConflict guards approval.
	DetectConflict ConflictFunc

	// Notifier overrides the engine-wide notifier for this type.
	Notifier notify.Notifier
}

func (m *Moderator) autoDecision(s schema.Subject, user string) (models.DecisionStatus, string) {
	if m.AutoReject != nil {
		if reason := m.AutoReject(s, user); reason != "" {
			return models.DecisionRejected, reason
		}
	}
	if m.AutoApprove != nil {
		if reason := m.AutoApprove(s, user); reason != "" {
			return models.DecisionApproved, reason
		}
	}
	return models.DecisionPending, ""
}

// Registry maps subject types to their moderator policies. Populate at
// startup; lookups are read-only afterwards. Inject a Registry rather than
// sharing ambient global state so tests can run isolated policies.
type Registry struct {
	policies *xsync.MapOf[string, *Moderator]
}

func NewRegistry() *Registry {
	return &Registry{
		policies: xsync.NewMapOf[string, *Moderator](),
	}
}

func (r *Registry) Register(subjectType string, m *Moderator) {
	r.policies.Store(subjectType, m)
}

func (r *Registry) Lookup(subjectType string) (*Moderator, bool) {
	return r.policies.Load(subjectType)
}
