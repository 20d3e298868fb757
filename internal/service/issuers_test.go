package service_test

import (
	"errors"
	"strings"
	"testing"

	"git.sr.ht/~jakintosh/civid/internal/service"
	"git.sr.ht/~jakintosh/civid/internal/testutil"
)

func TestRegisterIssuer_Success(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// register then authenticate
	if err := env.Service.RegisterIssuer("edsgar", "bot-secret"); err != nil {
		t.Fatalf("RegisterIssuer failed: %v", err)
	}
	if err := env.Service.AuthenticateIssuer("edsgar", "bot-secret"); err != nil {
		t.Errorf("AuthenticateIssuer failed: %v", err)
	}
}

func TestRegisterIssuer_StoresHash(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	env.RegisterTestIssuer(t, "edsgar", "bot-secret")

	// the stored secret is not the plaintext
	stored, err := env.DB.GetIssuerSecret("edsgar")
	if err != nil {
		t.Fatalf("GetIssuerSecret failed: %v", err)
	}
	if string(stored) == "bot-secret" {
		t.Error("secret stored in plaintext")
	}
}

func TestRegisterIssuer_Duplicate(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	env.RegisterTestIssuer(t, "edsgar", "bot-secret")

	// duplicate registration returns ErrIssuerExists
	err := env.Service.RegisterIssuer("edsgar", "other-secret")
	if !errors.Is(err, service.ErrIssuerExists) {
		t.Errorf("expected ErrIssuerExists, got %v", err)
	}
}

func TestRegisterIssuer_Invalid(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	tests := []struct {
		name   string
		issuer string
		secret string
	}{
		{"empty name", "", "secret"},
		{"empty secret", "edsgar", ""},
		{"secret too long", "edsgar", strings.Repeat("x", 73)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.Service.RegisterIssuer(tt.issuer, tt.secret)
			if !errors.Is(err, service.ErrInvalidIssuer) {
				t.Errorf("expected ErrInvalidIssuer, got %v", err)
			}
		})
	}
}

func TestAuthenticateIssuer_WrongSecret(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	env.RegisterTestIssuer(t, "edsgar", "bot-secret")

	// wrong secret returns ErrInvalidCredentials
	err := env.Service.AuthenticateIssuer("edsgar", "guess")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateIssuer_Unknown(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// unknown issuer returns ErrIssuerNotFound
	err := env.Service.AuthenticateIssuer("nobody", "secret")
	if !errors.Is(err, service.ErrIssuerNotFound) {
		t.Errorf("expected ErrIssuerNotFound, got %v", err)
	}
}

func TestListAndRemoveIssuers(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	env.RegisterTestIssuer(t, "edsgar", "bot-secret")
	env.RegisterTestIssuer(t, "cli", "cli-secret")

	issuers, err := env.Service.ListIssuers()
	if err != nil {
		t.Fatalf("ListIssuers failed: %v", err)
	}
	if len(issuers) != 2 || issuers[0].Name != "cli" || issuers[1].Name != "edsgar" {
		t.Fatalf("unexpected issuers: %+v", issuers)
	}

	// creation time comes from the service clock
	if !issuers[0].Created.Equal(env.Clock.Now()) {
		t.Errorf("created = %v, want %v", issuers[0].Created, env.Clock.Now())
	}

	// removed issuers can no longer authenticate
	if err := env.Service.RemoveIssuer("edsgar"); err != nil {
		t.Fatalf("RemoveIssuer failed: %v", err)
	}
	if err := env.Service.AuthenticateIssuer("edsgar", "bot-secret"); !errors.Is(err, service.ErrIssuerNotFound) {
		t.Errorf("expected ErrIssuerNotFound, got %v", err)
	}

	// removing twice reports not found
	if err := env.Service.RemoveIssuer("edsgar"); !errors.Is(err, service.ErrIssuerNotFound) {
		t.Errorf("expected ErrIssuerNotFound, got %v", err)
	}
}
