package tokens

import (
	"fmt"
	"time"
)

// IdentityCodeMaxAge is how long an identity code stays valid.
const IdentityCodeMaxAge = 30 * time.Second

// CreateIdentityCode signs the scrambled username together with now.
func (e *Engine) CreateIdentityCode(username string, now time.Time) string {
	return e.signer.Sign(Scramble(username), now)
}

// ValidateIdentityCode is ValidateIdentityCodeMaxAge with
// IdentityCodeMaxAge.
func (e *Engine) ValidateIdentityCode(code string, now time.Time) (string, error) {
	return e.ValidateIdentityCodeMaxAge(code, IdentityCodeMaxAge, now)
}

// ValidateIdentityCodeMaxAge returns the username asserted by code if the
// signature holds and the code is at most maxAge old at now.
func (e *Engine) ValidateIdentityCodeMaxAge(
	code string,
	maxAge time.Duration,
	now time.Time,
) (
	string,
	error,
) {
	scrambled, err := e.signer.Unsign(code, maxAge, now)
	if err != nil {
		return "", &validateError{
			context: fmt.Sprintf("identity code rejected: %v", err),
			err:     errInvalidCode,
		}
	}
	return Unscramble(scrambled), nil
}
