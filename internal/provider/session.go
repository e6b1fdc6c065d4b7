package provider

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Flow performs the provider-specific credential exchanges. Interactive opens
// the system browser against the loopback redirect; Silent exchanges a
// refresh token without user involvement.
type Flow interface {
	Interactive(ctx context.Context) (Credential, error)
	Silent(ctx context.Context, refreshToken string) (Credential, error)
}

// Session owns the volatile credential for one provider. Reads are shared;
// writes happen only through the login/refresh sequence, and concurrent
// callers of Token share a single in-flight refresh instead of racing to
// open duplicate browser prompts.
type Session struct {
	kind   Kind
	flow   Flow
	logger *logrus.Logger

	mu      sync.RWMutex
	cred    Credential
	profile Profile

	group singleflight.Group
}

func NewSession(kind Kind, flow Flow, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	return &Session{kind: kind, flow: flow, logger: logger}
}

func (s *Session) Kind() Kind { return s.kind }

// Authenticated reports whether a credential is present. An expired token
// still counts; it is renewed transparently on the next Token call.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred.AccessToken != ""
}

// Profile returns the signed-in account identity, if the provider issued an
// ID token during login.
func (s *Session) Profile() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// Authenticate runs the interactive flow and installs the credential.
func (s *Session) Authenticate(ctx context.Context) (Profile, error) {
	cred, err := s.flow.Interactive(ctx)
	if err != nil {
		s.logger.WithField("provider", s.kind).WithError(err).Warn("interactive sign-in failed")
		return Profile{}, err
	}
	profile := decodeProfile(cred.IDToken)
	s.mu.Lock()
	s.cred = cred
	s.profile = profile
	s.mu.Unlock()
	s.logger.WithField("provider", s.kind).Info("signed in")
	return profile, nil
}

// Token returns a usable access token. A valid cached token is returned
// as-is; otherwise a silent renewal runs first, then one interactive
// fallback. If both fail the session is invalidated and the caller must
// re-authenticate. Concurrent callers piggyback on one refresh.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	cred := s.cred
	s.mu.RUnlock()
	if cred.AccessToken == "" {
		return "", ErrNotAuthenticated
	}
	if cred.Valid() {
		return cred.AccessToken, nil
	}

	token, err, _ := s.group.Do("refresh", func() (any, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (s *Session) refresh(ctx context.Context) (string, error) {
	// Another caller may have finished the refresh while this one waited.
	s.mu.RLock()
	cred := s.cred
	s.mu.RUnlock()
	if cred.Valid() {
		return cred.AccessToken, nil
	}

	renewed, err := s.flow.Silent(ctx, cred.RefreshToken)
	if err != nil {
		s.logger.WithField("provider", s.kind).WithError(err).Debug("silent renewal failed; trying interactive")
		renewed, err = s.flow.Interactive(ctx)
	}
	if err != nil {
		s.logger.WithField("provider", s.kind).WithError(err).Warn("token refresh failed; session invalidated")
		s.mu.Lock()
		s.cred = Credential{}
		s.profile = Profile{}
		s.mu.Unlock()
		return "", err
	}
	if renewed.RefreshToken == "" {
		renewed.RefreshToken = cred.RefreshToken
	}
	if renewed.IDToken == "" {
		renewed.IDToken = cred.IDToken
	}
	s.mu.Lock()
	s.cred = renewed
	s.mu.Unlock()
	return renewed.AccessToken, nil
}

// Logout discards the credential and profile.
func (s *Session) Logout() {
	s.mu.Lock()
	s.cred = Credential{}
	s.profile = Profile{}
	s.mu.Unlock()
	s.logger.WithField("provider", s.kind).Info("signed out")
}
