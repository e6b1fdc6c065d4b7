package provider

import (
	"context"
	"errors"
	"time"
)

// Kind identifies which mail/calendar provider a session talks to.
type Kind string

const (
	KindGoogle    Kind = "google"
	KindMicrosoft Kind = "microsoft"
)

// Sentinel errors for the interactive auth flow. ErrConsentRequired is kept
// distinct from ErrAuthDismissed because recovery needs an administrator to
// pre-approve the app out-of-band; a retry cannot help.
var (
	ErrMissingConfiguration = errors.New("provider client id not configured")
	ErrAuthDismissed        = errors.New("sign-in dismissed by user")
	ErrConsentRequired      = errors.New("organizational consent required")
	ErrNotAuthenticated     = errors.New("provider session not authenticated")
)

// Message is the normalized shape of an unread mail item. Messages are never
// persisted; each sync replaces the previous snapshot wholesale.
type Message struct {
	ID        string
	From      string
	Subject   string
	Snippet   string
	Received  time.Time
	Important bool
}

// Event is the normalized shape of a calendar entry.
type Event struct {
	ID       string
	Summary  string
	Start    time.Time
	End      time.Time
	Location string
}

// Profile describes the signed-in account, decoded from the ID token when
// the provider issues one.
type Profile struct {
	Name  string
	Email string
}

// Credential is the volatile session token. It is never written to disk.
type Credential struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Expiry       time.Time
}

// Valid reports whether the access token can still be used, with a small
// safety margin so a token does not expire mid-request.
func (c Credential) Valid() bool {
	if c.AccessToken == "" {
		return false
	}
	return time.Now().Add(30 * time.Second).Before(c.Expiry)
}

// TokenSource yields a usable access token, refreshing as needed.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
