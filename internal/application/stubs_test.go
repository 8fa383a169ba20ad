package application

import (
	"context"
	"sync"
	"time"

	"github.com/example/attendance-engine/internal/persistence"
)

type userStoreStub struct {
	mu    sync.Mutex
	users map[string]persistence.User
	err   error

	setStatusAllCalls int
}

func newUserStoreStub(users ...persistence.User) *userStoreStub {
	stub := &userStoreStub{users: make(map[string]persistence.User)}
	for _, user := range users {
		stub.users[user.UID] = user
	}
	return stub
}

func (s *userStoreStub) CreateUser(ctx context.Context, user persistence.User) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.UID]; ok {
		return persistence.ErrDuplicate
	}
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return persistence.ErrDuplicate
		}
	}
	s.users[user.UID] = user
	return nil
}

func (s *userStoreStub) UpdateUser(ctx context.Context, user persistence.User) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.UID]; !ok {
		return persistence.ErrNotFound
	}
	s.users[user.UID] = user
	return nil
}

func (s *userStoreStub) GetUserByUID(ctx context.Context, uid string) (persistence.User, error) {
	if s.err != nil {
		return persistence.User{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[uid]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (s *userStoreStub) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	if s.err != nil {
		return persistence.User{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (s *userStoreStub) ListUsers(ctx context.Context) ([]persistence.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]persistence.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) DeleteUser(ctx context.Context, uid string) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[uid]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.users, uid)
	return nil
}

func (s *userStoreStub) SetStatus(ctx context.Context, uid string, status persistence.Status, at time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[uid]
	if !ok {
		return persistence.ErrNotFound
	}
	user.Status = status
	user.UpdatedAt = at
	s.users[uid] = user
	return nil
}

func (s *userStoreStub) SetStatusAll(ctx context.Context, status persistence.Status, at time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatusAllCalls++
	for uid, user := range s.users {
		user.Status = status
		user.UpdatedAt = at
		s.users[uid] = user
	}
	return nil
}

func (s *userStoreStub) SetIgnoreLimit(ctx context.Context, uid string, ignore bool, at time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[uid]
	if !ok {
		return persistence.ErrNotFound
	}
	user.IgnoreLimit = ignore
	user.UpdatedAt = at
	s.users[uid] = user
	return nil
}

func (s *userStoreStub) get(uid string) persistence.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[uid]
}

type eventStoreStub struct {
	mu     sync.Mutex
	events []persistence.Event
	err    error
}

func (s *eventStoreStub) AppendEvent(ctx context.Context, event persistence.Event) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *eventStoreStub) ListEventsForUser(ctx context.Context, uid string, filter persistence.EventFilter) ([]persistence.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []persistence.Event
	for _, event := range s.events {
		if event.UID != uid {
			continue
		}
		if filter.From != nil && event.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !event.Timestamp.Before(*filter.To) {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

func (s *eventStoreStub) CountEventsForUser(ctx context.Context, uid string) (int, error) {
	events, err := s.ListEventsForUser(ctx, uid, persistence.EventFilter{})
	return len(events), err
}

func (s *eventStoreStub) DeleteEventsForUser(ctx context.Context, uid string, filter persistence.EventFilter) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	for _, event := range s.events {
		drop := event.UID == uid &&
			(filter.From == nil || !event.Timestamp.Before(*filter.From)) &&
			(filter.To == nil || event.Timestamp.Before(*filter.To))
		if !drop {
			kept = append(kept, event)
		}
	}
	s.events = kept
	return nil
}

func (s *eventStoreStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type notifierStub struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *notifierStub) MarkUpdated(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return nil
}

func (s *notifierStub) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stateStoreStub struct {
	mu    sync.Mutex
	state persistence.SystemState
	saves int
	err   error
}

func (s *stateStoreStub) LoadSystemState(ctx context.Context) (persistence.SystemState, error) {
	if s.err != nil {
		return persistence.SystemState{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *stateStoreStub) SaveSystemState(ctx context.Context, state persistence.SystemState) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.saves++
	return nil
}

type sessionStoreStub struct {
	mu       sync.Mutex
	sessions map[string]persistence.Session
	err      error
}

func newSessionStoreStub() *sessionStoreStub {
	return &sessionStoreStub{sessions: make(map[string]persistence.Session)}
}

func (s *sessionStoreStub) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if s.err != nil {
		return persistence.Session{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session
	return session, nil
}

func (s *sessionStoreStub) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	if s.err != nil {
		return persistence.Session{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *sessionStoreStub) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if s.err != nil {
		return persistence.Session{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, existing := range s.sessions {
		if existing.ID == session.ID {
			delete(s.sessions, token)
			s.sessions[session.Token] = session
			return session, nil
		}
	}
	return persistence.Session{}, persistence.ErrNotFound
}

func (s *sessionStoreStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	if s.err != nil {
		return persistence.Session{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	session.RevokedAt = &revokedAt
	s.sessions[token] = session
	return session, nil
}

func (s *sessionStoreStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.sessions {
		if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}
