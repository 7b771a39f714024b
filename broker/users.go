package broker

import (
	"errors"
	"sync"
)

var (
	// ErrWrongPassword occurs when a CONNECT carries the wrong password for
	// a registered user.
	ErrWrongPassword = errors.New("broker: wrong password")

	// ErrAlreadyActive occurs when a CONNECT names a user that already has a
	// live session elsewhere.
	ErrAlreadyActive = errors.New("broker: user already logged in")
)

// UserStore is the directory of registered users and their active sessions.
//
// A username has at most one active session at any time; Login evaluates the
// whole login-or-register decision under one critical section so concurrent
// CONNECTs for the same username cannot both succeed.
type UserStore struct {
	mu     sync.Mutex
	users  map[string]string // username -> password
	active map[string]bool   // username -> has a live session
}

// NewUserStore returns an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		users:  map[string]string{},
		active: map[string]bool{},
	}
}

// IsRegistered returns true if username has been registered.
func (s *UserStore) IsRegistered(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[username]
	return ok
}

// Register stores or overwrites the password for username.
func (s *UserStore) Register(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// IsValidPassword returns true if password matches username's registration.
func (s *UserStore) IsValidPassword(username, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[username] == password
}

// IsActive returns true if username currently has a live session.
func (s *UserStore) IsActive(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[username]
}

// SetActive marks username as having a live session.
func (s *UserStore) SetActive(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[username] = true
}

// SetInactive clears username's live session flag.
func (s *UserStore) SetInactive(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[username] = false
}

// Login performs the composite connect decision atomically: an unseen
// username is registered with the supplied password; a known username must
// present its registered password; a username with a live session is
// rejected.  On success the username is marked active.
func (s *UserStore) Login(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if registered, ok := s.users[username]; ok {
		if registered != password {
			return ErrWrongPassword
		}
	} else {
		s.users[username] = password
	}
	if s.active[username] {
		return ErrAlreadyActive
	}
	s.active[username] = true
	return nil
}
