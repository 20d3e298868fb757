// Package service implements the business logic layer for the civid identity server.
// It issues login links, signs users in, answers authorization requests from
// relying parties, and manages the registry of trusted link issuers.
package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"git.sr.ht/~jakintosh/civid/internal/observability"
	"git.sr.ht/~jakintosh/civid/pkg/tokens"
)

var (
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidToken       = errors.New("invalid or expired login code")
	ErrInvalidCode        = errors.New("invalid or expired identity code")
	ErrMissingCode        = errors.New("no login code provided")
	ErrMissingRedirect    = errors.New("missing required redirect URI")
	ErrMalformedRedirect  = errors.New("malformed redirect URI")
	ErrRedirectScheme     = errors.New("redirect URI must be http or https")
	ErrNotSignedIn        = errors.New("no authenticated user to identify")
	ErrInvalidIssuer      = errors.New("invalid issuer")
	ErrIssuerExists       = errors.New("issuer already exists")
	ErrIssuerNotFound     = errors.New("issuer not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInternal           = errors.New("internal error")
)

// PasswordMode controls bcrypt cost for issuer secret hashing.
// Use PasswordModeProduction for real deployments and PasswordModeTesting only in tests.
type PasswordMode int

const (
	// PasswordModeProduction uses bcrypt.DefaultCost (10).
	PasswordModeProduction PasswordMode = iota
	// PasswordModeTesting uses bcrypt.MinCost (4) for fast test execution.
	// WARNING: This mode will panic if used outside of go test.
	PasswordModeTesting
)

// Cost returns the bcrypt cost for this mode.
// Panics if PasswordModeTesting is used outside of a test binary.
func (m PasswordMode) Cost() int {
	switch m {
	case PasswordModeTesting:
		if !testing.Testing() {
			panic("service: PasswordModeTesting used outside of test environment")
		}
		return bcrypt.MinCost
	default:
		return bcrypt.DefaultCost
	}
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// Service coordinates credential issuing and validation. It depends on the
// IssuerStore for persistence and holds no other mutable state.
type Service struct {
	engine       *tokens.Engine
	issuerStore  IssuerStore
	baseURL      *url.URL
	passwordMode PasswordMode
	now          Clock
	metrics      *observability.Metrics
}

func New(
	engine *tokens.Engine,
	issuerStore IssuerStore,
	baseURL string,
	passwordMode PasswordMode,
	clock Clock,
	metrics *observability.Metrics,
) (
	*Service,
	error,
) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url '%s'", baseURL)
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		engine:       engine,
		issuerStore:  issuerStore,
		baseURL:      base,
		passwordMode: passwordMode,
		now:          clock,
		metrics:      metrics,
	}, nil
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// Healthy reports whether the issuer store is reachable.
func (s *Service) Healthy() error {
	if p, ok := s.issuerStore.(interface{ Ping() error }); ok {
		if err := p.Ping(); err != nil {
			return fmt.Errorf("%w: issuer store unreachable: %v", ErrInternal, err)
		}
	}
	return nil
}
