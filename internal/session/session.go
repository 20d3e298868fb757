// Package session keeps the browser session in a signed cookie. The cookie
// holds only the signed-in username and the CSRF token for the authorize
// form; nothing is stored server-side.
package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.sr.ht/~jakintosh/civid/pkg/signer"
)

const (
	CookieName = "civid_session"
	Salt       = "civid.session"
	MaxAge     = 30 * 24 * time.Hour
)

var ErrNoSession = errors.New("no session")

// Session is the decoded cookie contents.
type Session struct {
	Username string `json:"username,omitempty"`
	CSRF     string `json:"csrf_token,omitempty"`
	modified bool
}

// SignedIn reports whether the session carries a username.
func (s *Session) SignedIn() bool {
	return s.Username != ""
}

// SetUsername signs the session in as username.
func (s *Session) SetUsername(username string) {
	s.Username = username
	s.modified = true
}

// CSRFToken returns the session's CSRF token, creating one on first use.
func (s *Session) CSRFToken() string {
	if s.CSRF == "" {
		s.CSRF = strings.ReplaceAll(uuid.NewString(), "-", "")
		s.modified = true
	}
	return s.CSRF
}

// Modified reports whether the session needs to be written back.
func (s *Session) Modified() bool {
	return s.modified
}

// Store reads and writes session cookies.
type Store struct {
	signer *signer.Signer
	secure bool
	now    func() time.Time
}

func NewStore(
	secretKey []byte,
	secure bool,
	now func() time.Time,
) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		signer: signer.New(secretKey, Salt),
		secure: secure,
		now:    now,
	}
}

// Load returns the request's session. A missing, forged, or expired cookie
// yields an empty session and an error describing why, which callers may
// log and otherwise ignore.
func (s *Store) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return &Session{}, ErrNoSession
	}

	payload, err := s.signer.Unsign(cookie.Value, MaxAge, s.now())
	if err != nil {
		return &Session{}, fmt.Errorf("session cookie rejected: %w", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return &Session{}, fmt.Errorf("session cookie undecodable: %v", err)
	}

	sess := &Session{}
	if err := json.Unmarshal(raw, sess); err != nil {
		return &Session{}, fmt.Errorf("session cookie unparsable: %v", err)
	}
	return sess, nil
}

// Save writes the session cookie.
func (s *Store) Save(w http.ResponseWriter, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %v", err)
	}

	value := s.signer.Sign(base64.RawURLEncoding.EncodeToString(raw), s.now())
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(MaxAge / time.Second),
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	sess.modified = false
	return nil
}

// SaveIfModified writes the cookie only when the session changed.
func (s *Store) SaveIfModified(w http.ResponseWriter, sess *Session) error {
	if !sess.modified {
		return nil
	}
	return s.Save(w, sess)
}

// Clear expires the session cookie.
func (s *Store) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
