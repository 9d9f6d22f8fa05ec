package models

import (
	"fmt"
	"time"
)

// DecisionStatus is the outcome of one moderation cycle.
type DecisionStatus string

const (
	DecisionPending  DecisionStatus = "pending"
	DecisionApproved DecisionStatus = "approved"
	DecisionRejected DecisionStatus = "rejected"
)

func (s DecisionStatus) Valid() bool {
	switch s {
	case DecisionPending, DecisionApproved, DecisionRejected:
		return true
	}
	return false
}

// LifecycleState marks whether a captured edit is ready for review. Draft
// records are skipped by auto-moderation and excluded from review queues.
type LifecycleState string

const (
	LifecycleReady LifecycleState = "ready"
	LifecycleDraft LifecycleState = "draft"
)

// ModerationRecord is one captured edit of a tracked subject, together with
// the decision made about it. The subject itself lives in the application's
// own tables; SubjectType plus SubjectID is a weak reference to it. There is
// at most one row per subject: a new edit re-opens the existing row back to
// pending with a fresh snapshot.
type ModerationRecord struct {
	ID        uint64    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time

	SubjectType string `gorm:"not null;uniqueIndex:idx_moderation_subject,priority:1"`
	SubjectID   string `gorm:"not null;uniqueIndex:idx_moderation_subject,priority:2"`

	LifecycleState LifecycleState `gorm:"not null;default:ready"`
	DecisionStatus DecisionStatus `gorm:"not null;index"`

	DecidedBy      *string
	DecidedAt      *time.Time
	DecisionReason *string

	// Snapshot holds the serialized subject state captured when the edit was
	// submitted. Which side of the edit it holds depends on the policy's
	// visibility mode.
	Snapshot []byte `gorm:"not null"`

	ChangedBy string
}

func (r *ModerationRecord) SubjectKey() string {
	return fmt.Sprintf("%s/%s", r.SubjectType, r.SubjectID)
}

// Decided reports whether the current cycle has reached a terminal status.
func (r *ModerationRecord) Decided() bool {
	return r.DecisionStatus == DecisionApproved || r.DecisionStatus == DecisionRejected
}

// Reason returns the decision reason, or the empty string when none was
// recorded.
func (r *ModerationRecord) Reason() string {
	if r.DecisionReason == nil {
		return ""
	}
	return *r.DecisionReason
}
