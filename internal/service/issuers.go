package service

import (
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// RegisterIssuer stores a new link issuer with a bcrypt hash of its secret.
func (s *Service) RegisterIssuer(
	name string,
	secret string,
) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidIssuer)
	}
	if secret == "" {
		return fmt.Errorf("%w: empty secret", ErrInvalidIssuer)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.passwordMode.Cost())
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return fmt.Errorf("%w: %v", ErrInvalidIssuer, err)
		}
		return fmt.Errorf("%w: failed to hash secret: %v", ErrInternal, err)
	}

	err = s.issuerStore.InsertIssuer(name, hash, s.now())
	if err != nil {
		if errors.Is(err, ErrIssuerExists) {
			return err
		}
		return fmt.Errorf("%w: failed to insert issuer: %v", ErrInternal, err)
	}

	return nil
}

// AuthenticateIssuer checks an issuer's credentials.
func (s *Service) AuthenticateIssuer(
	name string,
	secret string,
) error {
	hash, err := s.issuerStore.GetIssuerSecret(name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrIssuerNotFound, name)
		}
		return fmt.Errorf("%w: failed to retrieve secret: %v", ErrInternal, err)
	}

	err = bcrypt.CompareHashAndPassword(hash, []byte(secret))
	if err != nil {
		return ErrInvalidCredentials
	}

	return nil
}

func (s *Service) ListIssuers() (
	[]Issuer,
	error,
) {
	issuers, err := s.issuerStore.ListIssuers()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return issuers, nil
}

func (s *Service) RemoveIssuer(
	name string,
) error {
	deleted, err := s.issuerStore.DeleteIssuer(name)
	if err != nil {
		return fmt.Errorf("%w: failed to delete issuer: %v", ErrInternal, err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrIssuerNotFound, name)
	}
	return nil
}
