package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Sandbox is an in-process gateway for local runs and tests.  Intents are
// confirmed unless they were marked declined with Decline.
type Sandbox struct {
	mu       sync.Mutex
	intents  map[string]int64
	declined map[string]bool
}

func NewSandbox() *Sandbox {
	return &Sandbox{intents: map[string]int64{}, declined: map[string]bool{}}
}

func (s *Sandbox) CreateIntent(_ context.Context, amountCents int64, _, _ string) (Intent, error) {
	id := "pi_" + uuid.NewString()
	s.mu.Lock()
	s.intents[id] = amountCents
	s.mu.Unlock()
	return Intent{ClientSecret: id + "_secret", IntentID: id}, nil
}

func (s *Sandbox) ConfirmIntent(_ context.Context, intentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.intents[intentID]; !ok {
		return false, nil
	}
	return !s.declined[intentID], nil
}

// Decline makes later confirmations of the intent fail.
func (s *Sandbox) Decline(intentID string) {
	s.mu.Lock()
	s.declined[intentID] = true
	s.mu.Unlock()
}
