package memstore

import (
	"context"
	"slices"
	"time"

	cache "github.com/patrickmn/go-cache"

	"jan-server/services/dm-api/internal/domain/conversation"
)

type entry struct {
	messages  []conversation.Message
	updatedAt time.Time
}

// MemoryStore keeps transcripts in process memory. Entries expire after ttl of inactivity
// when ttl is positive; everything is lost on restart.
type MemoryStore struct {
	items *cache.Cache
	ttl   time.Duration
}

var _ conversation.Store = (*MemoryStore)(nil)

func New(ttl time.Duration) *MemoryStore {
	expiration := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl / 4
		if cleanup < time.Minute {
			cleanup = time.Minute
		}
	}
	return &MemoryStore{items: cache.New(expiration, cleanup), ttl: expiration}
}

// Load implements conversation.Store.
func (s *MemoryStore) Load(_ context.Context, key conversation.Key) ([]conversation.Message, error) {
	cached, found := s.items.Get(key.String())
	if !found {
		return []conversation.Message{}, nil
	}
	return slices.Clone(cached.(entry).messages), nil
}

// Save implements conversation.Store.
func (s *MemoryStore) Save(_ context.Context, key conversation.Key, messages []conversation.Message) error {
	stored := slices.Clone(messages)
	if stored == nil {
		stored = []conversation.Message{}
	}
	s.items.Set(key.String(), entry{messages: stored, updatedAt: time.Now()}, cache.DefaultExpiration)
	return nil
}

// Delete implements conversation.Store.
func (s *MemoryStore) Delete(_ context.Context, key conversation.Key) error {
	s.items.Delete(key.String())
	return nil
}

// Purge implements conversation.Store.
func (s *MemoryStore) Purge(_ context.Context, cutoff time.Time) (int, error) {
	removed := 0
	for k, item := range s.items.Items() {
		if e, ok := item.Object.(entry); ok && e.updatedAt.Before(cutoff) {
			s.items.Delete(k)
			removed++
		}
	}
	return removed, nil
}
