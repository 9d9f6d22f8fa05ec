package schema

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Types maps subject type tags to constructors, so stored snapshots and
// subject rows can be materialized back into concrete structs. Populated at
// startup, read for the life of the process.
type Types struct {
	factories *xsync.MapOf[string, func() Subject]
}

func NewTypes() *Types {
	return &Types{
		factories: xsync.NewMapOf[string, func() Subject](),
	}
}

func (t *Types) Register(subjectType string, fn func() Subject) {
	t.factories.Store(subjectType, fn)
}

// New returns a fresh zero-valued subject of the named type.
func (t *Types) New(subjectType string) (Subject, bool) {
	fn, ok := t.factories.Load(subjectType)
	if !ok {
		return nil, false
	}
	return fn(), true
}
