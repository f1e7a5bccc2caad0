// Package auth signs users in with the remote workspace's OAuth flow and
// tracks them with server-side sessions.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/claude/wlog/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	SessionCookie = "wlog_session"
	StateCookie   = "wlog_oauth_state"

	DefaultSessionTTL = 30 * 24 * time.Hour
	stateTTL          = 10 * time.Minute
	defaultBaseURL    = "https://api.notion.com"
)

// ErrUnauthorized is returned when a request carries no live session.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvalidState is returned when the OAuth callback state does not match.
var ErrInvalidState = errors.New("invalid oauth state")

// Config holds OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// BaseURL of the remote API; the authorize and token endpoints live under it.
	BaseURL string
	// SecureCookies marks cookies Secure; set in production.
	SecureCookies bool
	SessionTTL    time.Duration
}

// Grant is the outcome of a successful code exchange.
type Grant struct {
	AccessToken   string
	WorkspaceID   string
	WorkspaceName string
	BotID         string
}

// Authenticator runs the OAuth flow and manages sessions.
type Authenticator struct {
	oauth    *oauth2.Config
	sessions storage.Sessions
	secure   bool
	ttl      time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// New creates an Authenticator storing sessions in sessions.
func New(cfg Config, sessions storage.Sessions, log *slog.Logger) *Authenticator {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Authenticator{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/v1/oauth/authorize",
				TokenURL:  base + "/v1/oauth/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		sessions: sessions,
		secure:   cfg.SecureCookies,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
	}
}

// LoginURL returns the authorize URL the browser is sent to.
func (a *Authenticator) LoginURL(state string) string {
	return a.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("owner", "user"))
}

// Exchange trades an authorization code for an access token.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*Grant, error) {
	if code == "" {
		return nil, errors.New("missing code")
	}
	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}
	return &Grant{
		AccessToken:   tok.AccessToken,
		WorkspaceID:   extraString(tok, "workspace_id"),
		WorkspaceName: extraString(tok, "workspace_name"),
		BotID:         extraString(tok, "bot_id"),
	}, nil
}

func extraString(tok *oauth2.Token, key string) string {
	s, _ := tok.Extra(key).(string)
	return s
}

// StartSession stores a session for g and sets its cookie on w.
func (a *Authenticator) StartSession(ctx context.Context, w http.ResponseWriter, g *Grant) (*storage.Session, error) {
	now := a.now()
	sess := &storage.Session{
		ID:            uuid.NewString(),
		AccessToken:   g.AccessToken,
		WorkspaceID:   g.WorkspaceID,
		WorkspaceName: g.WorkspaceName,
		BotID:         g.BotID,
		CreatedAt:     now,
		ExpiresAt:     now.Add(a.ttl),
	}
	if err := a.sessions.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	http.SetCookie(w, a.cookie(SessionCookie, sess.ID, a.ttl))
	a.log.Info("session started", "workspace", g.WorkspaceName, "expires", sess.ExpiresAt)
	return sess, nil
}

// Session returns the live session the request's cookie points to.
func (a *Authenticator) Session(r *http.Request) (*storage.Session, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil, ErrUnauthorized
	}
	sess, err := a.sessions.GetSession(r.Context(), c.Value)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// EndSession deletes the request's session and expires its cookie.
func (a *Authenticator) EndSession(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, a.cookie(SessionCookie, "", -1))
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	return a.sessions.DeleteSession(r.Context(), c.Value)
}

// NewState sets a fresh OAuth state cookie on w and returns its value.
func (a *Authenticator) NewState(w http.ResponseWriter) (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(b)
	http.SetCookie(w, a.cookie(StateCookie, state, stateTTL))
	return state, nil
}

// CheckState compares the callback state with the cookie and clears it.
func (a *Authenticator) CheckState(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, a.cookie(StateCookie, "", -1))
	c, err := r.Cookie(StateCookie)
	if err != nil || c.Value == "" || c.Value != r.URL.Query().Get("state") {
		return ErrInvalidState
	}
	return nil
}

// HomeURL is where the browser lands after signing in: the root of the
// redirect URL's origin, or "/" without one.
func (a *Authenticator) HomeURL() string {
	redirect := a.oauth.RedirectURL
	if i := strings.Index(redirect, "://"); i >= 0 {
		if j := strings.Index(redirect[i+3:], "/"); j >= 0 {
			return redirect[:i+3+j] + "/"
		}
		return redirect + "/"
	}
	return "/"
}

// cookie builds an httpOnly, SameSite=Lax cookie. A negative ttl deletes it.
func (a *Authenticator) cookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(ttl.Seconds())
	}
	return c
}
