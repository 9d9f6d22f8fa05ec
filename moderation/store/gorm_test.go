package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extmarket/modgate/models"
	"github.com/extmarket/modgate/moderation/schema"
)

type note struct {
	ID    string `gorm:"primarykey" moderate:"identity"`
	Title string
	Body  string
}

func (n *note) SubjectType() string { return "note" }
func (n *note) SubjectID() string   { return n.ID }

func testGormStores(t *testing.T) *GormStores {
	t.Helper()
	db, err := Open("sqlite://:memory:", 1)
	require.NoError(t, err)

	types := schema.NewTypes()
	types.Register("note", func() schema.Subject { return &note{} })

	stores := NewGormStores(db, types)
	require.NoError(t, stores.Migrate())
	require.NoError(t, db.AutoMigrate(&note{}))
	return stores
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open("mysql://localhost/whatever", 1)
	assert.Error(t, err)
}

func TestSubjectRoundTrip(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	stores := testGormStores(t)
	subjects := stores.Subjects()

	require.NoError(subjects.Save(ctx, &note{ID: "n1", Title: "hello", Body: "world"}))

	got, err := subjects.GetByTypeAndID(ctx, "note", "n1")
	require.NoError(err)
	n, ok := got.(*note)
	require.True(ok)
	assert.Equal("hello", n.Title)
	assert.Equal("world", n.Body)

	_, err = subjects.GetByTypeAndID(ctx, "note", "missing")
	assert.ErrorIs(err, ErrNotFound)

	_, err = subjects.GetByTypeAndID(ctx, "ghost", "n1")
	assert.Error(err)
	assert.False(errors.Is(err, ErrNotFound))
}

func TestUpsertReopensExistingRecord(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	stores := testGormStores(t)
	records := stores.Records()

	first := &models.ModerationRecord{
		SubjectType:    "note",
		SubjectID:      "n1",
		LifecycleState: models.LifecycleReady,
		Snapshot:       []byte(`{"ID":"n1","Title":"v1"}`),
		ChangedBy:      "alice",
	}
	require.NoError(records.Upsert(ctx, first))
	require.NotZero(first.ID)

	// decide it
	by := "mod"
	first.DecisionStatus = models.DecisionApproved
	first.DecidedBy = &by
	require.NoError(records.Update(ctx, first))

	// a fresh edit re-opens the same row back to pending
	second := &models.ModerationRecord{
		SubjectType:    "note",
		SubjectID:      "n1",
		LifecycleState: models.LifecycleReady,
		Snapshot:       []byte(`{"ID":"n1","Title":"v2"}`),
		ChangedBy:      "bob",
	}
	require.NoError(records.Upsert(ctx, second))
	assert.Equal(first.ID, second.ID)

	got, err := records.Get(ctx, first.ID)
	require.NoError(err)
	assert.Equal(models.DecisionPending, got.DecisionStatus)
	assert.Nil(got.DecidedBy)
	assert.Nil(got.DecidedAt)
	assert.Nil(got.DecisionReason)
	assert.Equal("bob", got.ChangedBy)
	assert.JSONEq(`{"ID":"n1","Title":"v2"}`, string(got.Snapshot))

	queue, err := records.Queue(ctx, QueueQuery{SubjectType: "note"})
	require.NoError(err)
	assert.Len(queue, 1)
}

func TestQueueFiltering(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	stores := testGormStores(t)
	records := stores.Records()

	seed := []*models.ModerationRecord{
		{SubjectType: "note", SubjectID: "n1", LifecycleState: models.LifecycleReady},
		{SubjectType: "note", SubjectID: "n2", LifecycleState: models.LifecycleDraft},
		{SubjectType: "comment", SubjectID: "c1", LifecycleState: models.LifecycleReady},
	}
	for _, rec := range seed {
		require.NoError(records.Upsert(ctx, rec))
	}
	by := "mod"
	seed[2].DecisionStatus = models.DecisionRejected
	seed[2].DecidedBy = &by
	require.NoError(records.Update(ctx, seed[2]))

	// drafts excluded by default
	queue, err := records.Queue(ctx, QueueQuery{})
	require.NoError(err)
	assert.Len(queue, 2)

	queue, err = records.Queue(ctx, QueueQuery{IncludeDrafts: true})
	require.NoError(err)
	assert.Len(queue, 3)

	queue, err = records.Queue(ctx, QueueQuery{SubjectType: "note"})
	require.NoError(err)
	require.Len(queue, 1)
	assert.Equal("n1", queue[0].SubjectID)

	queue, err = records.Queue(ctx, QueueQuery{Statuses: []models.DecisionStatus{models.DecisionRejected}})
	require.NoError(err)
	require.Len(queue, 1)
	assert.Equal("c1", queue[0].SubjectID)

	queue, err = records.Queue(ctx, QueueQuery{Limit: 1})
	require.NoError(err)
	assert.Len(queue, 1)
}

func TestTransactRollsBack(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	stores := testGormStores(t)
	boom := errors.New("boom")

	err := stores.Transact(ctx, func(tx Stores) error {
		if err := tx.Subjects().Save(ctx, &note{ID: "n1", Title: "ephemeral"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(err, boom)

	_, err = stores.Subjects().GetByTypeAndID(ctx, "note", "n1")
	assert.ErrorIs(err, ErrNotFound)
}
