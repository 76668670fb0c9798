package core

import (
	"context"
	"io"

	"github.com/satvision/eurosat-api/internal/classify"
	"github.com/satvision/eurosat-api/internal/store"
)

// Session tracks one caller's authentication state. It starts anonymous;
// classify and history require a successful Login (or Resume from a verified
// token) first. Logout returns it to anonymous.
type Session struct {
	svc      *SessionService
	username string // empty while anonymous
}

// NewSession returns an anonymous session.
func NewSession(svc *SessionService) *Session {
	return &Session{svc: svc}
}

// Resume returns an authenticated session for an identity that was already
// verified out of band (a validated bearer token).
func Resume(svc *SessionService, username string) *Session {
	return &Session{svc: svc, username: username}
}

// Login verifies the credentials and authenticates the session. On failure
// the session stays in its previous state.
func (s *Session) Login(username, password string) error {
	if err := s.svc.Verify(username, password); err != nil {
		return err
	}
	s.username = username
	return nil
}

// Logout drops the authenticated identity.
func (s *Session) Logout() {
	s.username = ""
}

// Authenticated reports whether a login has succeeded.
func (s *Session) Authenticated() bool {
	return s.username != ""
}

// Username returns the authenticated identity, or "" while anonymous.
func (s *Session) Username() string {
	return s.username
}

// Classify runs the classifier for the authenticated identity. While
// anonymous it fails with ErrNotAuthenticated and has no side effect.
func (s *Session) Classify(ctx context.Context, imageName string, image io.Reader) (*classify.Result, *store.PredictionRecord, error) {
	if !s.Authenticated() {
		return nil, nil, ErrNotAuthenticated
	}
	return s.svc.Classify(ctx, s.username, imageName, image)
}

// History returns the authenticated identity's records newest first.
func (s *Session) History() ([]store.PredictionRecord, error) {
	if !s.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	return s.svc.History(s.username), nil
}
