package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/extmarket/modgate/models"
	"github.com/extmarket/modgate/moderation/diff"
	"github.com/extmarket/modgate/moderation/eventbus"
	"github.com/extmarket/modgate/moderation/notify"
	"github.com/extmarket/modgate/moderation/schema"
	"github.com/extmarket/modgate/moderation/snapshot"
	"github.com/extmarket/modgate/moderation/store"
)

// Engine runs the moderation state machine against a store. All decision
// operations are synchronous and run their persistence inside one store
// transaction, so a status check-and-set is atomic with the live-record
// write; the backing store's locking serializes concurrent reviewers.
type Engine struct {
	Logger   *slog.Logger
	Stores   store.Stores
	Types    *schema.Types
	Policies *Registry
	Differ   *diff.Differ
	Bus      *eventbus.Bus
	Notifier notify.Notifier
}

func (eng *Engine) policyFor(subjectType string) (*Moderator, error) {
	pol, ok := eng.Policies.Lookup(subjectType)
	if !ok {
		return nil, fmt.Errorf("subject type %q is not registered for moderation", subjectType)
	}
	return pol, nil
}

// decodeSnapshot materializes the record's stored snapshot as a fresh
// subject instance.
func (eng *Engine) decodeSnapshot(rec *models.ModerationRecord) (schema.Subject, error) {
	subj, ok := eng.Types.New(rec.SubjectType)
	if !ok {
		return nil, fmt.Errorf("unregistered subject type %q", rec.SubjectType)
	}
	if err := snapshot.Unmarshal(rec.Snapshot, subj); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	return subj, nil
}

// editedSubject returns the version of the subject the current edit
// produced: the snapshot under hide-until-approved, the live record under
// visible-until-rejected.
func (eng *Engine) editedSubject(ctx context.Context, rec *models.ModerationRecord, pol *Moderator) (schema.Subject, error) {
	if !pol.VisibleUntilRejected {
		return eng.decodeSnapshot(rec)
	}
	live, err := eng.Stores.Subjects().GetByTypeAndID(ctx, rec.SubjectType, rec.SubjectID)
	if errors.Is(err, store.ErrNotFound) {
		return eng.decodeSnapshot(rec)
	}
	if err != nil {
		return nil, err
	}
	return live, nil
}

// Approve closes the record's cycle as approved and reconciles the edit
// into the live record. When the policy's conflict check refuses the
// subject, the call converts into a rejection with the generated reason
// before anything is written. Returns a human-readable result message.
func (eng *Engine) Approve(ctx context.Context, rec *models.ModerationRecord, decidedBy, reason string) (string, error) {
	defer observeDecision("approve")()

	pol, err := eng.policyFor(rec.SubjectType)
	if err != nil {
		return "", err
	}
	if rec.Decided() {
		return "", fmt.Errorf("%s: %w", rec.SubjectKey(), ErrAlreadyDecided)
	}
	edited, err := eng.editedSubject(ctx, rec, pol)
	if err != nil {
		return "", err
	}

	if pol.DetectConflict != nil {
		conflictReason, err := pol.DetectConflict(ctx, edited)
		if err != nil {
			return "", fmt.Errorf("conflict check for %s: %w", rec.SubjectKey(), err)
		}
		if conflictReason != "" {
			eng.Logger.Info("approval refused, converting to rejection",
				"subject", rec.SubjectKey(), "reason", conflictReason)
			return eng.Reject(ctx, rec, decidedBy, conflictReason)
		}
	}

	eng.Bus.EmitPre(eventbus.Decision{
		SubjectType: rec.SubjectType,
		Subject:     edited,
		Status:      models.DecisionApproved,
	})

	var live schema.Subject
	err = eng.Stores.Transact(ctx, func(tx store.Stores) error {
		if pol.VisibleUntilRejected {
			// The edit is already live; approval pins it and re-bases the
			// snapshot so later diffs compare against the approved state.
			cur, err := tx.Subjects().GetByTypeAndID(ctx, rec.SubjectType, rec.SubjectID)
			if err != nil {
				return err
			}
			if pol.VisibilityColumn != "" {
				if err := schema.SetBool(cur, pol.VisibilityColumn, true); err != nil {
					return err
				}
			}
			if err := tx.Subjects().Save(ctx, cur); err != nil {
				return err
			}
			snap, err := snapshot.Marshal(cur)
			if err != nil {
				return err
			}
			rec.Snapshot = snap
			live = cur
		} else {
			// Write the held snapshot onto the live record, then keep the
			// pre-change state as the new snapshot base.
			var pre schema.Subject
			cur, err := tx.Subjects().GetByTypeAndID(ctx, rec.SubjectType, rec.SubjectID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if err == nil {
				pre = cur
			}
			next, err := eng.decodeSnapshot(rec)
			if err != nil {
				return err
			}
			if pol.VisibilityColumn != "" {
				if err := schema.SetBool(next, pol.VisibilityColumn, true); err != nil {
					return err
				}
			}
			if err := tx.Subjects().Save(ctx, next); err != nil {
				return err
			}
			if pre != nil {
				snap, err := snapshot.Marshal(pre)
				if err != nil {
					return err
				}
				rec.Snapshot = snap
			}
			live = next
		}
		applyDecision(rec, models.DecisionApproved, decidedBy, reason)
		return tx.Records().Update(ctx, rec)
	})
	if err != nil {
		return "", err
	}

	eng.Bus.EmitPost(eventbus.Decision{
		SubjectType: rec.SubjectType,
		Subject:     live,
		Status:      models.DecisionApproved,
	})
	eng.notifyDecision(ctx, pol, live, rec)
	decisionCount.WithLabelValues(rec.SubjectType, string(models.DecisionApproved)).Inc()

	return decisionMessage("approved", rec), nil
}

// Reject closes the record's cycle as rejected. A reason is required. Under
// visible-until-rejected the live record is reverted to the pre-change
// snapshot; otherwise the live record is left untouched.
func (eng *Engine) Reject(ctx context.Context, rec *models.ModerationRecord, decidedBy, reason string) (string, error) {
	defer observeDecision("reject")()

	pol, err := eng.policyFor(rec.SubjectType)
	if err != nil {
		return "", err
	}
	if reason == "" {
		return "", fmt.Errorf("rejection of %s requires a reason: %w", rec.SubjectKey(), ErrValidation)
	}
	if rec.Decided() {
		return "", fmt.Errorf("%s: %w", rec.SubjectKey(), ErrAlreadyDecided)
	}
	snapSubject, err := eng.decodeSnapshot(rec)
	if err != nil {
		return "", err
	}

	eng.Bus.EmitPre(eventbus.Decision{
		SubjectType: rec.SubjectType,
		Subject:     snapSubject,
		Status:      models.DecisionRejected,
	})

	live := snapSubject
	err = eng.Stores.Transact(ctx, func(tx store.Stores) error {
		if pol.VisibleUntilRejected {
			// revert the published edit
			if err := tx.Subjects().Save(ctx, snapSubject); err != nil {
				return err
			}
		} else {
			cur, err := tx.Subjects().GetByTypeAndID(ctx, rec.SubjectType, rec.SubjectID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if err == nil {
				live = cur
			}
		}
		applyDecision(rec, models.DecisionRejected, decidedBy, reason)
		return tx.Records().Update(ctx, rec)
	})
	if err != nil {
		return "", err
	}

	eng.Bus.EmitPost(eventbus.Decision{
		SubjectType: rec.SubjectType,
		Subject:     live,
		Status:      models.DecisionRejected,
	})
	eng.notifyDecision(ctx, pol, live, rec)
	decisionCount.WithLabelValues(rec.SubjectType, string(models.DecisionRejected)).Inc()

	return decisionMessage("rejected", rec), nil
}

// SetPending forces the record back to pending regardless of its current
// status. Administrative override; no reconciliation is performed.
func (eng *Engine) SetPending(ctx context.Context, rec *models.ModerationRecord, decidedBy, reason string) (string, error) {
	defer observeDecision("set_pending")()

	pol, err := eng.policyFor(rec.SubjectType)
	if err != nil {
		return "", err
	}
	snapSubject, err := eng.decodeSnapshot(rec)
	if err != nil {
		return "", err
	}

	eng.Bus.EmitPre(eventbus.Decision{
		SubjectType: rec.SubjectType,
		Subject:     snapSubject,
		Status:      models.DecisionPending,
	})

	err = eng.Stores.Transact(ctx, func(tx store.Stores) error {
		applyDecision(rec, models.DecisionPending, decidedBy, reason)
		return tx.Records().Update(ctx, rec)
	})
	if err != nil {
		return "", err
	}

	eng.Bus.EmitPost(eventbus.Decision{
		SubjectType: rec.SubjectType,
		Subject:     snapSubject,
		Status:      models.DecisionPending,
	})
	eng.notifyDecision(ctx, pol, snapSubject, rec)
	decisionCount.WithLabelValues(rec.SubjectType, string(models.DecisionPending)).Inc()

	return decisionMessage("set pending", rec), nil
}

// AutoModerate is the unattended entry point invoked on every tracked save.
// It asks the policy for a reject reason, then an approve reason, and
// leaves the record pending when neither fires. The resulting status is
// returned. Draft records are never auto-moderated.
func (eng *Engine) AutoModerate(ctx context.Context, rec *models.ModerationRecord, user string) (models.DecisionStatus, error) {
	pol, err := eng.policyFor(rec.SubjectType)
	if err != nil {
		return "", err
	}
	if rec.LifecycleState == models.LifecycleDraft {
		return rec.DecisionStatus, nil
	}
	if user == "" {
		user = rec.ChangedBy
	} else {
		rec.ChangedBy = user
	}

	candidate, err := eng.editedSubject(ctx, rec, pol)
	if err != nil {
		return "", err
	}
	status, reason := pol.autoDecision(candidate, user)
	switch status {
	case models.DecisionRejected:
		if _, err := eng.Reject(ctx, rec, "", reason); err != nil {
			return "", err
		}
	case models.DecisionApproved:
		if _, err := eng.Approve(ctx, rec, "", reason); err != nil {
			return "", err
		}
	}
	// approval may have converted into a rejection; report what actually
	// got persisted
	return rec.DecisionStatus, nil
}

// HasBeenChanged reports whether the captured edit differs from the given
// original version. A nil excluded list falls back to the policy's
// excluded-field set.
func (eng *Engine) HasBeenChanged(ctx context.Context, rec *models.ModerationRecord, original schema.Subject, excluded []string) (bool, error) {
	pol, err := eng.policyFor(rec.SubjectType)
	if err != nil {
		return false, err
	}
	if excluded == nil {
		excluded = pol.FieldsExcluded
	}
	changed, err := eng.decodeSnapshot(rec)
	if err != nil {
		return false, err
	}
	return eng.Differ.Changed(ctx, original, changed, excluded)
}

func (eng *Engine) notifyDecision(ctx context.Context, pol *Moderator, subject schema.Subject, rec *models.ModerationRecord) {
	if rec.ChangedBy == "" {
		return
	}
	n := pol.Notifier
	if n == nil {
		n = eng.Notifier
	}
	if n == nil {
		return
	}
	if err := n.InformUser(ctx, subject, rec.ChangedBy, rec.DecisionStatus, rec.Reason()); err != nil {
		notifyErrorCount.WithLabelValues(rec.SubjectType).Inc()
		eng.Logger.Warn("user notification failed",
			"subject", rec.SubjectKey(), "user", rec.ChangedBy, "err", err)
	}
}

func applyDecision(rec *models.ModerationRecord, status models.DecisionStatus, decidedBy, reason string) {
	now := time.Now()
	rec.DecisionStatus = status
	rec.DecidedAt = &now
	rec.DecidedBy = nil
	if decidedBy != "" {
		rec.DecidedBy = &decidedBy
	}
	rec.DecisionReason = nil
	if reason != "" {
		rec.DecisionReason = &reason
	}
}

func decisionMessage(verb string, rec *models.ModerationRecord) string {
	if reason := rec.Reason(); reason != "" {
		return fmt.Sprintf("%s %s: %s", verb, rec.SubjectKey(), reason)
	}
	return fmt.Sprintf("%s %s", verb, rec.SubjectKey())
}

func observeDecision(op string) func() {
	start := time.Now()
	return func() {
		decisionDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}
