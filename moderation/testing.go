package moderation

import (
	"log/slog"

	"github.com/extmarket/modgate/moderation/diff"
	"github.com/extmarket/modgate/moderation/eventbus"
	"github.com/extmarket/modgate/moderation/schema"
	"github.com/extmarket/modgate/moderation/store"
)

// TestArticle is a small moderated subject used in tests and examples.
type TestArticle struct {
	ID         string         `json:"id" moderate:"identity"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Author     schema.Ref     `json:"author"`
	Cover      schema.FileRef `json:"cover" moderate:"kind=image"`
	Attachment schema.FileRef `json:"attachment"`
	Published  bool           `json:"published"`
}

func (a *TestArticle) SubjectType() string { return "article" }
func (a *TestArticle) SubjectID() string   { return a.ID }

// EngineTestFixture builds an engine over in-memory stores with the given
// policy registered for TestArticle. A nil policy registers an empty one.
func EngineTestFixture(pol *Moderator) (*Engine, *store.MemStores) {
	logger := slog.Default()
	types := schema.NewTypes()
	types.Register("article", func() schema.Subject { return &TestArticle{} })
	stores := store.NewMemStores(types)
	if pol == nil {
		pol = &Moderator{}
	}
	registry := NewRegistry()
	registry.Register("article", pol)
	return &Engine{
		Logger:   logger,
		Stores:   stores,
		Types:    types,
		Policies: registry,
		Differ:   diff.NewDiffer(logger),
		Bus:      eventbus.New(),
	}, stores
}
