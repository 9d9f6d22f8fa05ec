package moderation

import (
	"context"
	"errors"

	"github.com/extmarket/modgate/models"
	"github.com/extmarket/modgate/moderation/schema"
	"github.com/extmarket/modgate/moderation/snapshot"
	"github.com/extmarket/modgate/moderation/store"
)

// SubmitOptions tune how an edit is captured.
type SubmitOptions struct {
	// Draft captures the edit without queueing it for review or running
	// auto-moderation.
	Draft bool
}

// Submit captures a tracked edit: it snapshots the subject according to the
// policy's visibility mode, creates or re-opens the subject's moderation
// record as pending, and runs auto-moderation. The save-interception hook
// of the surrounding application calls this on every tracked save.
//
// Under hide-until-approved the snapshot holds the edited state and the
// live record is left untouched. Under visible-until-rejected the edit is
// written to the live record immediately and the snapshot holds the
// pre-change state.
func (eng *Engine) Submit(ctx context.Context, edited schema.Subject, editedBy string, opts SubmitOptions) (*models.ModerationRecord, models.DecisionStatus, error) {
	pol, err := eng.policyFor(edited.SubjectType())
	if err != nil {
		return nil, "", err
	}

	rec := &models.ModerationRecord{
		SubjectType:    edited.SubjectType(),
		SubjectID:      edited.SubjectID(),
		ChangedBy:      editedBy,
		LifecycleState: models.LifecycleReady,
	}
	if opts.Draft {
		rec.LifecycleState = models.LifecycleDraft
	}

	err = eng.Stores.Transact(ctx, func(tx store.Stores) error {
		if pol.VisibleUntilRejected {
			snapSrc := edited
			pre, err := tx.Subjects().GetByTypeAndID(ctx, edited.SubjectType(), edited.SubjectID())
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if err == nil {
				snapSrc = pre
			}
			snap, err := snapshot.Marshal(snapSrc)
			if err != nil {
				return err
			}
			rec.Snapshot = snap
			// publish the edit immediately
			if err := tx.Subjects().Save(ctx, edited); err != nil {
				return err
			}
		} else {
			snap, err := snapshot.Marshal(edited)
			if err != nil {
				return err
			}
			rec.Snapshot = snap
		}
		return tx.Records().Upsert(ctx, rec)
	})
	if err != nil {
		return nil, "", err
	}
	captureCount.WithLabelValues(rec.SubjectType).Inc()
	eng.Logger.Debug("edit captured", "subject", rec.SubjectKey(), "editedBy", editedBy, "draft", opts.Draft)

	status := models.DecisionPending
	if !opts.Draft {
		status, err = eng.AutoModerate(ctx, rec, editedBy)
		if err != nil {
			return rec, "", err
		}
	}
	return rec, status, nil
}
