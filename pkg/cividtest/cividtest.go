// Package cividtest provides a stand-in civid server for testing relying
// parties.
//
// The Server answers /authorize immediately, as if a signed-in user had
// pressed Identify (or Decline), and serves /userinfo with real identity
// codes, so a relying party's callback handling runs unchanged against it:
//
//	srv := cividtest.NewServer()
//	defer srv.Close()
//	srv.SignIn("Rykleos")
//
//	idc, _ := client.New(client.Config{
//	    ServerURL:   srv.URL,
//	    RedirectURL: "https://myapp.test/callback",
//	})
//
// For unit tests that never touch the network, use Identifier.
package cividtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"git.sr.ht/~jakintosh/civid/internal/api"
	"git.sr.ht/~jakintosh/civid/internal/service"
	"git.sr.ht/~jakintosh/civid/pkg/client"
	"git.sr.ht/~jakintosh/civid/pkg/tokens"
)

// SigningKey is the key test servers sign with unless told otherwise.
const SigningKey = "cividtest-signing-key"

// Server is an httptest.Server speaking civid's relying-party protocol.
type Server struct {
	*httptest.Server
	Engine *tokens.Engine

	service *service.Service

	mu       sync.Mutex
	username string
	decline  bool
	now      time.Time
}

type Option func(*Server)

// WithSigningKey replaces SigningKey.
func WithSigningKey(key string) Option {
	return func(s *Server) { s.Engine = tokens.New([]byte(key)) }
}

// WithTime freezes the server clock at now.
func WithTime(now time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer starts a server. Call Close when done.
func NewServer(opts ...Option) *Server {
	s := &Server{Engine: tokens.New([]byte(SigningKey))}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	s.Server = httptest.NewServer(r)

	svc, err := service.New(s.Engine, nil, s.URL, service.PasswordModeProduction, s.Now, nil)
	if err != nil {
		s.Close()
		panic("cividtest: " + err.Error())
	}
	s.service = svc

	// no request can arrive before NewServer returns the URL
	r.HandleFunc("/authorize", s.authorize).Methods(http.MethodGet)
	r.Handle("/userinfo", api.New(svc, nil).UserInfo()).Methods(http.MethodGet)
	return s
}

// Now returns the frozen clock, or the wall clock when none was set.
func (s *Server) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now.IsZero() {
		return time.Now()
	}
	return s.now
}

// SetTime freezes the server clock.
func (s *Server) SetTime(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SignIn makes /authorize identify username.
func (s *Server) SignIn(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
	s.decline = false
}

// SignOut makes /authorize fail as if no one were signed in.
func (s *Server) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = ""
}

// Decline makes /authorize answer error=declined.
func (s *Server) Decline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decline = true
}

// MintCode returns an identity code for username, valid at the server clock.
func (s *Server) MintCode(username string) string {
	return s.Engine.CreateIdentityCode(username, s.Now())
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	redirect, err := service.ParseRedirectURI(query.Get("redirect_uri"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	username, decline := s.username, s.decline
	s.mu.Unlock()

	_, hasState := query["state"]
	target, err := s.service.Authorize(service.AuthorizeRequest{
		Username: username,
		Redirect: redirect,
		State:    query.Get("state"),
		HasState: hasState,
		Identify: !decline,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// Identifier is a client.Identifier that resolves codes from a fixed table.
type Identifier struct {
	mu    sync.Mutex
	codes map[string]client.Identity
}

var _ client.Identifier = (*Identifier)(nil)

func NewIdentifier() *Identifier {
	return &Identifier{codes: make(map[string]client.Identity)}
}

// Add registers code as identifying displayName.
func (i *Identifier) Add(code string, displayName string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.codes[code] = client.Identity{
		User:        strings.ToLower(displayName),
		DisplayName: displayName,
	}
}

func (i *Identifier) UserInfo(
	ctx context.Context,
	code string,
) (
	*client.Identity,
	error,
) {
	if code == "" {
		return nil, client.ErrMissingCode
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	id, ok := i.codes[code]
	if !ok {
		return nil, client.ErrInvalidCode
	}
	return &id, nil
}
