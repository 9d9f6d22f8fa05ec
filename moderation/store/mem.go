package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/extmarket/modgate/models"
	"github.com/extmarket/modgate/moderation/schema"
)

// MemStores is an in-memory Stores twin, used in tests and for trying out
// policies without a database. Subjects are stored serialized so reads
// return independent copies, matching real store semantics.
type MemStores struct {
	mu       sync.Mutex
	types    *schema.Types
	subjects map[string][]byte
	records  map[uint64]*models.ModerationRecord
	nextID   uint64
}

var _ Stores = (*MemStores)(nil)

func NewMemStores(types *schema.Types) *MemStores {
	return &MemStores{
		types:    types,
		subjects: make(map[string][]byte),
		records:  make(map[uint64]*models.ModerationRecord),
		nextID:   1,
	}
}

func (s *MemStores) Subjects() SubjectStore { return (*memSubjectStore)(s) }
func (s *MemStores) Records() RecordStore   { return (*memRecordStore)(s) }

// Transact runs fn directly; rollback-on-error is not simulated.
func (s *MemStores) Transact(ctx context.Context, fn func(tx Stores) error) error {
	return fn(s)
}

func subjectKey(subjectType, id string) string {
	return subjectType + "/" + id
}

type memSubjectStore MemStores

func (s *memSubjectStore) GetByTypeAndID(ctx context.Context, subjectType, id string) (schema.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.subjects[subjectKey(subjectType, id)]
	if !ok {
		return nil, fmt.Errorf("subject %s/%s: %w", subjectType, id, ErrNotFound)
	}
	subj, ok := s.types.New(subjectType)
	if !ok {
		return nil, fmt.Errorf("unregistered subject type %q", subjectType)
	}
	if err := json.Unmarshal(data, subj); err != nil {
		return nil, err
	}
	return subj, nil
}

func (s *memSubjectStore) Save(ctx context.Context, subj schema.Subject) error {
	data, err := json.Marshal(subj)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[subjectKey(subj.SubjectType(), subj.SubjectID())] = data
	return nil
}

type memRecordStore MemStores

func (s *memRecordStore) Get(ctx context.Context, id uint64) (*models.ModerationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("moderation record %d: %w", id, ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (s *memRecordStore) GetForSubject(ctx context.Context, subjectType, subjectID string) (*models.ModerationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.SubjectType == subjectType && rec.SubjectID == subjectID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("moderation record for %s/%s: %w", subjectType, subjectID, ErrNotFound)
}

func (s *memRecordStore) Upsert(ctx context.Context, rec *models.ModerationRecord) error {
	existing, err := s.GetForSubject(ctx, rec.SubjectType, rec.SubjectID)
	if err == nil {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == 0 {
		rec.ID = s.nextID
		s.nextID++
	}
	rec.DecisionStatus = models.DecisionPending
	rec.DecidedBy = nil
	rec.DecidedAt = nil
	rec.DecisionReason = nil
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *memRecordStore) Update(ctx context.Context, rec *models.ModerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return fmt.Errorf("moderation record %d: %w", rec.ID, ErrNotFound)
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *memRecordStore) Queue(ctx context.Context, q QueueQuery) ([]models.ModerationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ModerationRecord
	for _, rec := range s.records {
		if q.SubjectType != "" && rec.SubjectType != q.SubjectType {
			continue
		}
		if !q.IncludeDrafts && rec.LifecycleState == models.LifecycleDraft {
			continue
		}
		if len(q.Statuses) > 0 {
			ok := false
			for _, st := range q.Statuses {
				if rec.DecisionStatus == st {
					ok = true
					break
				}
			}
			if !ok {
				continue
			}
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return recordLess(out[i], out[j]) })
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func recordLess(a, b models.ModerationRecord) bool {
	if a.DecisionStatus != b.DecisionStatus {
		return a.DecisionStatus < b.DecisionStatus
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
