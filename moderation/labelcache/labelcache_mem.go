package labelcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type MemStore struct {
	Data *expirable.LRU[string, string]
}

func NewMemStore(capacity int, ttl time.Duration) MemStore {
	return MemStore{
		Data: expirable.NewLRU[string, string](capacity, nil, ttl),
	}
}

func (s MemStore) Get(ctx context.Context, subjectType, id string) (string, error) {
	v, ok := s.Data.Get(subjectType + "/" + id)
	if !ok {
		return "", nil
	}
	return v, nil
}

func (s MemStore) Set(ctx context.Context, subjectType, id, label string) error {
	s.Data.Add(subjectType+"/"+id, label)
	return nil
}

func (s MemStore) Purge(ctx context.Context, subjectType, id string) error {
	s.Data.Remove(subjectType + "/" + id)
	return nil
}
