package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/model/chat"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side state of one live voice connection. Profile and
// Window belong to the connection that owns the session; nothing else
// mutates them.
type Session struct {
	ID         string
	RemoteAddr string
	CreatedAt  time.Time
	Profile    chat.Profile
	Window     *Window
}

type entry struct {
	session *Session
	cancel  func()
	once    sync.Once
}

// Registry tracks the sessions of every open connection for the lifetime of
// the process. It is constructed once at start-up and handed to the
// transport listener.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*entry
	windowLimit int
	wg          sync.WaitGroup
}

// NewRegistry bootstraps an empty in-memory registry. windowLimit bounds the
// conversation window of every session it creates.
func NewRegistry(windowLimit int) *Registry {
	return &Registry{
		sessions:    make(map[string]*entry),
		windowLimit: windowLimit,
	}
}

// Open provisions a session with default attributes for a newly accepted
// connection. cancel is invoked by CloseAll to tear the connection down.
func (r *Registry) Open(remoteAddr string, cancel func()) *Session {
	session := &Session{
		ID:         uuid.NewString(),
		RemoteAddr: remoteAddr,
		CreatedAt:  time.Now().UTC(),
		Profile:    chat.DefaultProfile(),
		Window:     NewWindow(r.windowLimit),
	}

	r.mu.Lock()
	r.sessions[session.ID] = &entry{session: session, cancel: cancel}
	r.wg.Add(1)
	r.mu.Unlock()

	return session
}

// Get retrieves a live session by identifier.
func (r *Registry) Get(_ context.Context, sessionID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.session, nil
}

// Close discards the session. Closing an unknown or already closed session is a no-op.
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	e, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
	}
	r.mu.Unlock()

	if ok {
		e.once.Do(r.wg.Done)
	}
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll cancels every live session and returns how many were signalled.
// Entries are removed by their own connections as they shut down.
func (r *Registry) CloseAll() int {
	var cancels []func()
	r.mu.RLock()
	for _, e := range r.sessions {
		if e.cancel != nil {
			cancels = append(cancels, e.cancel)
		}
	}
	r.mu.RUnlock()

	for _, cancel := range cancels {
		cancel()
	}
	return len(cancels)
}

// Wait blocks until every opened session has been closed or ctx is done.
func (r *Registry) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
