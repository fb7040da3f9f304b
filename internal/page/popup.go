package page

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// PopupType selects the popup styling.
type PopupType string

const (
	PopupSuccess PopupType = "success"
	PopupError   PopupType = "error"
)

// PopupTTL is how long an undelivered popup is kept.
const PopupTTL = 30 * time.Second

// Popup is a one-shot message shown after an action.
type Popup struct {
	Type    PopupType `json:"type"`
	Message string    `json:"message"`
}

type popupEntry struct {
	popup   Popup
	expires time.Time
}

// PopupStore keeps popups between a POST and the page render that follows it.
type PopupStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]popupEntry
}

// NewPopupStore creates a store whose entries expire after ttl.
func NewPopupStore(ttl time.Duration) *PopupStore {
	if ttl <= 0 {
		ttl = PopupTTL
	}
	return &PopupStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]popupEntry),
	}
}

// Put stores p and returns its id.
func (s *PopupStore) Put(p Popup) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, id)
		}
	}

	id := uuid.NewString()
	s.entries[id] = popupEntry{popup: p, expires: now.Add(s.ttl)}
	return id
}

// Take returns the popup stored under id and removes it.
func (s *PopupStore) Take(id string) (Popup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Popup{}, false
	}
	delete(s.entries, id)
	if s.now().After(e.expires) {
		return Popup{}, false
	}
	return e.popup, true
}

// Len reports how many popups are pending.
func (s *PopupStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
