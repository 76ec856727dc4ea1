package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PendingIntent is the payment intent created for a user's cart and not
// confirmed yet.  At most one is pending per user; creating a new intent
// replaces the previous one.
type PendingIntent struct {
	IntentID    string    `json:"intent_id"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

// IntentStore keeps pending intents in Redis with a TTL.  Without a Redis
// client it keeps them in process memory, which is enough for a single
// instance.
type IntentStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string

	mu  sync.Mutex
	mem map[uint64]memIntent
	now func() time.Time
}

type memIntent struct {
	intent  PendingIntent
	expires time.Time
}

// NewIntentStore returns a store; rdb may be nil.
func NewIntentStore(rdb *redis.Client, ttl time.Duration) *IntentStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &IntentStore{rdb: rdb, ttl: ttl, prefix: "intent:user:", mem: map[uint64]memIntent{}, now: time.Now}
}

func (s *IntentStore) key(userID uint64) string {
	return s.prefix + strconv.FormatUint(userID, 10)
}

// Put records the user's pending intent.
func (s *IntentStore) Put(ctx context.Context, userID uint64, in PendingIntent) error {
	if s.rdb == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.mem[userID] = memIntent{intent: in, expires: s.now().Add(s.ttl)}
		return nil
	}
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(userID), body, s.ttl).Err()
}

// Get returns ErrNotFound when the user has no live pending intent.
func (s *IntentStore) Get(ctx context.Context, userID uint64) (*PendingIntent, error) {
	if s.rdb == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		m, ok := s.mem[userID]
		if !ok || !s.now().Before(m.expires) {
			delete(s.mem, userID)
			return nil, ErrNotFound
		}
		in := m.intent
		return &in, nil
	}
	body, err := s.rdb.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var in PendingIntent
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// Delete forgets the user's pending intent.
func (s *IntentStore) Delete(ctx context.Context, userID uint64) error {
	if s.rdb == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.mem, userID)
		return nil
	}
	return s.rdb.Del(ctx, s.key(userID)).Err()
}
