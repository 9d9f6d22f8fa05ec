package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/extmarket/modgate/models"
	"github.com/extmarket/modgate/moderation/diff"
	"github.com/extmarket/modgate/moderation/schema"
	"github.com/extmarket/modgate/moderation/store"
)

// Review is the payload handed to the review surface: the old and new
// versions of the subject plus the per-field change set between them. Which
// side counts as "old" is mode-aware: under visible-until-rejected the
// snapshot holds the original and the live record the edit.
type Review struct {
	Record  *models.ModerationRecord
	Old     schema.Subject
	New     schema.Subject
	Changes map[string]*diff.Change
}

func (eng *Engine) ReviewFor(ctx context.Context, rec *models.ModerationRecord) (*Review, error) {
	pol, err := eng.policyFor(rec.SubjectType)
	if err != nil {
		return nil, err
	}
	snapSubject, err := eng.decodeSnapshot(rec)
	if err != nil {
		return nil, err
	}
	live, err := eng.Stores.Subjects().GetByTypeAndID(ctx, rec.SubjectType, rec.SubjectID)
	if errors.Is(err, store.ErrNotFound) {
		live = snapSubject
	} else if err != nil {
		return nil, err
	}

	old, new := live, snapSubject
	if pol.VisibleUntilRejected {
		old, new = snapSubject, live
	}
	changes, err := eng.Differ.Changes(ctx, old, new, pol.FieldsExcluded)
	if err != nil {
		return nil, err
	}
	return &Review{Record: rec, Old: old, New: new, Changes: changes}, nil
}

// StatusMessage renders the record's current standing for display next to
// the subject's edit form.
func (eng *Engine) StatusMessage(rec *models.ModerationRecord) string {
	pol, ok := eng.Policies.Lookup(rec.SubjectType)
	if !ok {
		return "This record is not registered with the moderation system."
	}
	switch rec.DecisionStatus {
	case models.DecisionPending:
		if pol.VisibleUntilRejected {
			return "Record is visible on the site; it will be removed if a moderator rejects it."
		}
		return "Record is not visible on the site; it will become visible if a moderator approves it."
	case models.DecisionRejected:
		return fmt.Sprintf("Record was rejected by a moderator, reason: %s", rec.Reason())
	case models.DecisionApproved:
		return "Record was approved by a moderator and is visible on the site."
	default:
		return ""
	}
}
