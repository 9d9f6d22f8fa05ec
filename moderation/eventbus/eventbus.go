// Package eventbus carries the pre/post decision signals fired around every
// moderation state transition. Dispatch is synchronous and in subscription
// order: the pre signal fires before any state is mutated, the post signal
// after the transition has been persisted, so collaborators (audit logging,
// cache invalidation) observe exact ordering within the caller's
// transaction.
package eventbus

import (
	"github.com/extmarket/modgate/models"
	"github.com/extmarket/modgate/moderation/schema"
)

// Decision is the payload of both signals.
type Decision struct {
	SubjectType string
	Subject     schema.Subject
	Status      models.DecisionStatus
}

type HandlerFunc func(Decision)

// Bus fans decisions out to subscribers. Subscribe during startup; emission
// is read-only over the handler lists.
type Bus struct {
	pre  []HandlerFunc
	post []HandlerFunc
}

func New() *Bus {
	return &Bus{}
}

func (b *Bus) SubscribePre(fn HandlerFunc) {
	b.pre = append(b.pre, fn)
}

func (b *Bus) SubscribePost(fn HandlerFunc) {
	b.post = append(b.post, fn)
}

func (b *Bus) EmitPre(d Decision) {
	for _, fn := range b.pre {
		fn(d)
	}
}

func (b *Bus) EmitPost(d Decision) {
	for _, fn := range b.post {
		fn(d)
	}
}
