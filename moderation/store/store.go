// Package store defines the persistence boundary of the moderation core:
// lookup and save of live subject records, and the moderation record table
// itself. Decisions run inside Transact so the status check-and-set is
// atomic with the live-record write.
package store

import (
	"context"
	"errors"

	"github.com/extmarket/modgate/models"
	"github.com/extmarket/modgate/moderation/schema"
)

var ErrNotFound = errors.New("record not found")

// SubjectStore reads and writes live application records by type tag and
// primary key.
type SubjectStore interface {
	GetByTypeAndID(ctx context.Context, subjectType, id string) (schema.Subject, error)
	Save(ctx context.Context, s schema.Subject) error
}

// QueueQuery selects moderation records for review listings. Zero value
// means "all statuses, drafts excluded".
type QueueQuery struct {
	SubjectType   string
	Statuses      []models.DecisionStatus
	IncludeDrafts bool
	Limit         int
	Offset        int
}

type RecordStore interface {
	Get(ctx context.Context, id uint64) (*models.ModerationRecord, error)
	GetForSubject(ctx context.Context, subjectType, subjectID string) (*models.ModerationRecord, error)
	// Upsert captures a new edit: it creates the record, or re-opens the
	// subject's existing record back to pending with the fresh snapshot.
	Upsert(ctx context.Context, rec *models.ModerationRecord) error
	Update(ctx context.Context, rec *models.ModerationRecord) error
	Queue(ctx context.Context, q QueueQuery) ([]models.ModerationRecord, error)
}

// Stores bundles both stores behind one transaction boundary.
type Stores interface {
	Subjects() SubjectStore
	Records() RecordStore
	// Transact runs fn against transaction-bound stores; fn returning an
	// error rolls every write back.
	Transact(ctx context.Context, fn func(tx Stores) error) error
}
