package provider

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Endpoints describes one provider's OAuth2 surface. Scopes stay read-only:
// mail read, calendar read, and the identity claims for the profile line.
type Endpoints struct {
	AuthURL  string
	TokenURL string
	Scopes   []string
}

func GoogleEndpoints() Endpoints {
	return Endpoints{
		AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL: "https://oauth2.googleapis.com/token",
		Scopes: []string{
			"https://www.googleapis.com/auth/gmail.readonly",
			"https://www.googleapis.com/auth/calendar.events.readonly",
			"openid", "email", "profile",
		},
	}
}

func MicrosoftEndpoints() Endpoints {
	return Endpoints{
		AuthURL:  "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
		TokenURL: "https://login.microsoftonline.com/common/oauth2/v2.0/token",
		Scopes: []string{
			"User.Read", "Mail.Read", "Calendars.Read",
			"openid", "email", "profile", "offline_access",
		},
	}
}

const interactiveTimeout = 3 * time.Minute

// BrowserFlow implements Flow with the native-app PKCE dance: a loopback
// listener receives the authorization code while the system browser handles
// the provider's sign-in page.
type BrowserFlow struct {
	mu        sync.RWMutex
	clientID  string
	endpoints Endpoints
	client    *http.Client
	logger    *logrus.Logger

	// openBrowser is swappable for tests.
	openBrowser func(url string) error
}

func NewBrowserFlow(clientID string, endpoints Endpoints, logger *logrus.Logger) *BrowserFlow {
	if logger == nil {
		logger = logrus.New()
	}
	return &BrowserFlow{
		clientID:    strings.TrimSpace(clientID),
		endpoints:   endpoints,
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
		openBrowser: launchBrowser,
	}
}

// SetClientID swaps the operator-supplied client identifier at runtime, so
// saving the settings form takes effect without a restart.
func (f *BrowserFlow) SetClientID(id string) {
	f.mu.Lock()
	f.clientID = strings.TrimSpace(id)
	f.mu.Unlock()
}

// ClientID returns the configured client identifier, empty when unset.
func (f *BrowserFlow) ClientID() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.clientID
}

type callbackResult struct {
	code string
	err  error
}

// Interactive runs the full PKCE authorization-code exchange.
func (f *BrowserFlow) Interactive(ctx context.Context) (Credential, error) {
	if f.ClientID() == "" {
		return Credential{}, ErrMissingConfiguration
	}

	verifier, challenge, err := pkcePair()
	if err != nil {
		return Credential{}, err
	}
	state, err := randomToken()
	if err != nil {
		return Credential{}, err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return Credential{}, fmt.Errorf("unable to open loopback listener: %w", err)
	}
	defer listener.Close()
	redirectURI := fmt.Sprintf("http://%s/callback", listener.Addr().String())

	results := make(chan callbackResult, 1)
	server := &http.Server{Handler: callbackHandler(state, results)}
	go server.Serve(listener)
	defer server.Close()

	authURL := f.buildAuthURL(redirectURI, state, challenge)
	if err := f.openBrowser(authURL); err != nil {
		f.logger.WithError(err).Warnf("could not launch browser; open manually: %s", authURL)
	}

	ctx, cancel := context.WithTimeout(ctx, interactiveTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		// The user navigated away or never completed the page.
		return Credential{}, ErrAuthDismissed
	case result := <-results:
		if result.err != nil {
			return Credential{}, result.err
		}
		return f.exchange(ctx, url.Values{
			"grant_type":    {"authorization_code"},
			"code":          {result.code},
			"redirect_uri":  {redirectURI},
			"code_verifier": {verifier},
		})
	}
}

// Silent exchanges a refresh token without user interaction.
func (f *BrowserFlow) Silent(ctx context.Context, refreshToken string) (Credential, error) {
	if f.ClientID() == "" {
		return Credential{}, ErrMissingConfiguration
	}
	if refreshToken == "" {
		return Credential{}, fmt.Errorf("no refresh token held")
	}
	return f.exchange(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

func (f *BrowserFlow) buildAuthURL(redirectURI, state, challenge string) string {
	values := url.Values{
		"response_type":         {"code"},
		"client_id":             {f.ClientID()},
		"redirect_uri":          {redirectURI},
		"scope":                 {strings.Join(f.endpoints.Scopes, " ")},
		"state":                 {state},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
		"access_type":           {"offline"},
	}
	return f.endpoints.AuthURL + "?" + values.Encode()
}

func (f *BrowserFlow) exchange(ctx context.Context, form url.Values) (Credential, error) {
	form.Set("client_id", f.ClientID())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoints.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return Credential{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Credential{}, err
	}

	var parsed struct {
		AccessToken      string `json:"access_token"`
		RefreshToken     string `json:"refresh_token"`
		IDToken          string `json:"id_token"`
		ExpiresIn        int    `json:"expires_in"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Credential{}, fmt.Errorf("token endpoint returned malformed payload: %s", resp.Status)
	}
	if parsed.Error != "" || resp.StatusCode >= 400 {
		return Credential{}, classifyAuthError(parsed.Error, parsed.ErrorDescription)
	}
	if parsed.AccessToken == "" {
		return Credential{}, fmt.Errorf("token endpoint returned no access token")
	}
	return Credential{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		IDToken:      parsed.IDToken,
		Expiry:       time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second),
	}, nil
}

func callbackHandler(expectedState string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		deliver := func(result callbackResult, message string) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, "<html><body><p>%s You can close this tab.</p></body></html>", message)
			select {
			case results <- result:
			default:
			}
		}
		if errCode := query.Get("error"); errCode != "" {
			deliver(callbackResult{err: classifyAuthError(errCode, query.Get("error_description"))}, "Sign-in was not completed.")
			return
		}
		if query.Get("state") != expectedState {
			deliver(callbackResult{err: fmt.Errorf("state mismatch in oauth callback")}, "Sign-in was not completed.")
			return
		}
		code := query.Get("code")
		if code == "" {
			deliver(callbackResult{err: ErrAuthDismissed}, "Sign-in was not completed.")
			return
		}
		deliver(callbackResult{code: code}, "Signed in.")
	})
}

// classifyAuthError folds provider error codes into the session taxonomy.
// Microsoft reports missing admin approval as AADSTS65001/AADSTS90094.
func classifyAuthError(code, description string) error {
	lower := strings.ToLower(code + " " + description)
	switch {
	case strings.Contains(lower, "access_denied") && (strings.Contains(lower, "aadsts65001") || strings.Contains(lower, "aadsts90094")):
		return ErrConsentRequired
	case strings.Contains(lower, "consent_required") || strings.Contains(lower, "admin_consent"):
		return ErrConsentRequired
	case strings.Contains(lower, "access_denied"):
		return ErrAuthDismissed
	case code == "":
		return fmt.Errorf("authorization failed")
	default:
		return fmt.Errorf("authorization failed: %s (%s)", code, strings.TrimSpace(description))
	}
}

func pkcePair() (verifier, challenge string, err error) {
	verifier, err = randomToken()
	if err != nil {
		return "", "", err
	}
	sum := sha256.Sum256([]byte(verifier))
	return verifier, base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func launchBrowser(target string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	default:
		return exec.Command("xdg-open", target).Start()
	}
}
