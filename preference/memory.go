package preference

import (
	"context"
	"sync"

	"github.com/ZaguanLabs/chatlai"
)

// MemoryStore is a thread-safe in-memory preference store.
type MemoryStore struct {
	mu    sync.RWMutex
	prefs map[storeKey]chatlai.UserLanguage
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prefs: make(map[storeKey]chatlai.UserLanguage),
	}
}

// Set validates pref and inserts or overwrites its record.
func (s *MemoryStore) Set(ctx context.Context, pref chatlai.UserLanguage) (chatlai.UserLanguage, error) {
	pref, err := normalize(pref)
	if err != nil {
		return chatlai.UserLanguage{}, err
	}
	pref.UpdatedAt = now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs[storeKey{pref.UserID, pref.ChatID}] = pref
	return pref, nil
}

// Get returns the chat-scoped record, else the global one, else chatlai.ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, userID int64, chat chatlai.ChatID) (chatlai.UserLanguage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if chat.IsSet() {
		if pref, ok := s.prefs[storeKey{userID, chat}]; ok {
			return pref, nil
		}
	}
	if pref, ok := s.prefs[storeKey{userID, chatlai.NoChat()}]; ok {
		return pref, nil
	}
	return chatlai.UserLanguage{}, chatlai.ErrNotFound
}

// Clear deletes the exact (userID, chat) record.
func (s *MemoryStore) Clear(ctx context.Context, userID int64, chat chatlai.ChatID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.prefs, storeKey{userID, chat})
	return nil
}

// ClearUser deletes every record of userID.
func (s *MemoryStore) ClearUser(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.prefs {
		if k.userID == userID {
			delete(s.prefs, k)
		}
	}
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prefs)
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var _ chatlai.PreferenceStore = (*MemoryStore)(nil)
