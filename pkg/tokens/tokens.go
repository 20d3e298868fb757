package tokens

import (
	"errors"
	"fmt"

	"git.sr.ht/~jakintosh/civid/pkg/signer"
)

type validateError struct {
	context string
	err     error
}

func (e *validateError) Context() string {
	return e.context
}
func (e *validateError) Error() string {
	return fmt.Sprintf("%v", e.err)
}
func (e *validateError) Unwrap() error {
	return e.err
}

var (
	errInvalidToken = errors.New("invalid or expired login token")
	errInvalidCode  = errors.New("invalid or expired identity code")
)

func ErrInvalidToken() error { return errInvalidToken }
func ErrInvalidCode() error  { return errInvalidCode }

// ErrorContext returns the private cause attached to a validation error,
// or the error text for any other error. It is meant for server logs only.
func ErrorContext(err error) string {
	var ve *validateError
	if errors.As(err, &ve) {
		return ve.context
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Engine creates and validates login tokens and identity codes. Create one
// with New; the zero value is not usable.
type Engine struct {
	key    []byte
	signer *signer.Signer
}

// New returns an engine bound to signingKey. The key is copied.
func New(signingKey []byte) *Engine {
	key := make([]byte, len(signingKey))
	copy(key, signingKey)
	return &Engine{
		key:    key,
		signer: signer.New(key, signer.DefaultSalt),
	}
}
