package flow

import (
	"sync"

	"agendazap/models"
)

// StageMenu is the initial stage every new conversation starts in.
const StageMenu = "menu"

// Store keeps one ConversationState per (tenant, chat) in process memory,
// plus a lock per entry so messages from the same chat are handled strictly
// one at a time while different chats proceed in parallel.
//
// State is intentionally unbounded: idle conversations are cheap and keeping
// them lets a customer resume a dialog hours later.
type Store struct {
	mu     sync.Mutex
	states map[string]*models.ConversationState
	locks  map[string]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		states: make(map[string]*models.ConversationState),
		locks:  make(map[string]*sync.Mutex),
	}
}

func stateKey(tenantID, chatID string) string {
	return tenantID + "|" + chatID
}

// Acquire locks the (tenant, chat) entry and returns its state plus the
// unlock function. The state is created at the menu stage on first contact.
func (s *Store) Acquire(tenantID, chatID string) (*models.ConversationState, func()) {
	key := stateKey(tenantID, chatID)

	s.mu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	state, ok := s.states[key]
	if !ok {
		state = models.NewConversationState(StageMenu)
		s.states[key] = state
	}
	s.mu.Unlock()

	lock.Lock()
	return state, lock.Unlock
}

// Peek returns the state without locking, or nil when the chat is unknown.
// Used by tests and diagnostics only.
func (s *Store) Peek(tenantID, chatID string) *models.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[stateKey(tenantID, chatID)]
}

// Len reports how many conversations are tracked.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
