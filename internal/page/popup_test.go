package page

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPopupStoreDeliversOnce(t *testing.T) {
	store := NewPopupStore(PopupTTL)
	id := store.Put(Popup{Type: PopupError, Message: MsgCredentialInUse})

	p, ok := store.Take(id)
	assert.True(t, ok)
	assert.Equal(t, Popup{Type: PopupError, Message: MsgCredentialInUse}, p)

	_, ok = store.Take(id)
	assert.False(t, ok)
}

func TestPopupStoreExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewPopupStore(30 * time.Second)
	store.now = func() time.Time { return now }

	stale := store.Put(Popup{Type: PopupSuccess, Message: "old"})
	now = now.Add(31 * time.Second)

	_, ok := store.Take(stale)
	assert.False(t, ok)

	store.Put(Popup{Type: PopupSuccess, Message: "a"})
	expired := store.Put(Popup{Type: PopupSuccess, Message: "b"})
	now = now.Add(time.Minute)
	store.Put(Popup{Type: PopupSuccess, Message: "c"})

	assert.Equal(t, 1, store.Len())
	_, ok = store.Take(expired)
	assert.False(t, ok)
}

func TestPopupStoreUnknownID(t *testing.T) {
	_, ok := NewPopupStore(0).Take("missing")
	assert.False(t, ok)
}
