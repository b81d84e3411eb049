package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/access-refresh/internal/model"
	"github.com/iliyamo/access-refresh/internal/queue"
	"github.com/iliyamo/access-refresh/internal/repository"
)

// In-memory stand-ins for the SQL repositories. They mirror the repository
// contracts closely enough that the orchestrator cannot tell the difference,
// including the cap-eviction ordering and the owner scoping.

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	byName map[string]model.User
	byID   map[int64]model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byName: map[string]model.User{}, byID: map[int64]model.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, username, passwordHash string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	username = strings.ToLower(strings.TrimSpace(username))
	if _, ok := f.byName[username]; ok {
		return model.User{}, repository.ErrUserExists
	}
	f.nextID++
	u := model.User{
		ID:           f.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         model.RoleUser,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.byName[username] = u
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) GetByUsername(_ context.Context, username string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byName[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	f.byID[id] = u
	f.byName[u.Username] = u
	return nil
}

func (f *fakeUserStore) setRole(id int64, role model.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[id]
	u.Role = role
	f.byID[id] = u
	f.byName[u.Username] = u
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	order    map[string]int // insertion sequence, the fake's "storage order"
	seq      int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]model.Session{}, order: map[string]int{}}
}

func (f *fakeSessionStore) Add(_ context.Context, s model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.sessions[s.SessionID] = s
	f.order[s.SessionID] = f.seq
	return nil
}

func (f *fakeSessionStore) Update(_ context.Context, s model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.SessionID] = s
	return nil
}

func (f *fakeSessionStore) Delete(_ context.Context, sessionID string, ownerID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok || s.UserID != ownerID {
		return false, nil
	}
	delete(f.sessions, sessionID)
	return true, nil
}

func (f *fakeSessionStore) DeleteAllForUser(_ context.Context, ownerID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sessions {
		if s.UserID == ownerID {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionStore) FindByIDForUser(_ context.Context, sessionID string, userID int64) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok || s.UserID != userID {
		return model.Session{}, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) ListByUser(_ context.Context, userID int64) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt > out[j].IssuedAt })
	return out, nil
}

func (f *fakeSessionStore) ListIDsByUser(_ context.Context, userID int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, s := range f.sessions {
		if s.UserID == userID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeSessionStore) EnsureSessionLimit(_ context.Context, userID int64, max int) error {
	if max < 1 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var own []model.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			own = append(own, s)
		}
	}
	// Newest-expiring first, storage order as the tie-break.
	sort.Slice(own, func(i, j int) bool {
		if own[i].ExpiresAt != own[j].ExpiresAt {
			return own[i].ExpiresAt > own[j].ExpiresAt
		}
		return f.order[own[i].SessionID] < f.order[own[j].SessionID]
	})
	for i := max - 1; i < len(own); i++ {
		delete(f.sessions, own[i].SessionID)
	}
	return nil
}

// setExpiry gives a session a distinct lifetime so cap-eviction tests can
// control the ordering.
func (f *fakeSessionStore) setExpiry(sessionID string, expiresAt int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[sessionID]
	s.ExpiresAt = expiresAt
	f.sessions[sessionID] = s
}

type fakeGeolocator struct {
	loc  Geolocation
	fail bool
}

func (g *fakeGeolocator) Lookup(_ context.Context, _ string) (Geolocation, error) {
	if g.fail {
		return Geolocation{}, context.DeadlineExceeded
	}
	return g.loc, nil
}

type recordingNotifier struct {
	mu            sync.Mutex
	verifications []queue.AccountVerificationMessage
	resets        []queue.PasswordResetMessage
}

func (n *recordingNotifier) AccountVerification(_ context.Context, msg queue.AccountVerificationMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifications = append(n.verifications, msg)
	return nil
}

func (n *recordingNotifier) PasswordReset(_ context.Context, msg queue.PasswordResetMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, msg)
	return nil
}

func (n *recordingNotifier) lastReset() (queue.PasswordResetMessage, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.resets) == 0 {
		return queue.PasswordResetMessage{}, false
	}
	return n.resets[len(n.resets)-1], true
}
