// Package auth gates the admin pages behind one configured account.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid login id or password")

// SessionTTL bounds how long a login stays valid.
const SessionTTL = 12 * time.Hour

// Authenticator checks the admin login id and bcrypt password hash.
type Authenticator struct {
	user string
	hash []byte
}

func NewAuthenticator(user string, passwordHash []byte) (*Authenticator, error) {
	if _, err := bcrypt.Cost(passwordHash); err != nil {
		return nil, fmt.Errorf("invalid admin password hash: %w", err)
	}
	return &Authenticator{user: user, hash: passwordHash}, nil
}

// HashPassword returns a bcrypt hash suitable for NewAuthenticator.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func (a *Authenticator) Check(user, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.user)) == 1
	// bcrypt runs even for a wrong id; timing must not reveal which part failed.
	passErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

type session struct {
	user      string
	createdAt time.Time
}

// Sessions is an in-memory token store. Tokens do not survive a restart.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]session
	now      func() time.Time
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]session), now: time.Now}
}

func (s *Sessions) Create(user string) string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{user: user, createdAt: s.now()}
	return token
}

// Lookup returns the user for a live token. Expired tokens are dropped.
func (s *Sessions) Lookup(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return "", false
	}
	if s.now().Sub(sess.createdAt) > SessionTTL {
		delete(s.sessions, token)
		return "", false
	}
	return sess.user, true
}

func (s *Sessions) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}
