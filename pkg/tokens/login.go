package tokens

import (
	"fmt"
	"time"
)

const (
	// LoginWindow is the granularity login token signatures are bound to.
	LoginWindow = 60 * time.Second

	// MinUsernameLength is the shortest username a login token can carry.
	MinUsernameLength = 3
)

// CreateLoginToken returns signature ++ username, where the signature binds
// the username to the login window containing now.
func (e *Engine) CreateLoginToken(username string, now time.Time) string {
	tag := WindowTag(now, LoginWindow)
	return e.shortSignature(username+windowMarker(tag)) + username
}

// ValidateLoginToken returns the username carried by token if its signature
// matches the current or the previous login window. A token is therefore
// accepted for at least one and at most two windows after creation.
func (e *Engine) ValidateLoginToken(token string, now time.Time) (string, error) {
	if len(token) < SignatureLength+MinUsernameLength {
		return "", &validateError{
			context: fmt.Sprintf("login token malformed: length %d", len(token)),
			err:     errInvalidToken,
		}
	}

	signature := token[:SignatureLength]
	username := token[SignatureLength:]

	tag := WindowTag(now, LoginWindow)
	current := e.shortSignature(username + windowMarker(tag))
	previous := e.shortSignature(username + windowMarker(tag-1))

	// evaluate both so timing does not reveal which window matched
	matchesCurrent := signaturesEqual(signature, current)
	matchesPrevious := signaturesEqual(signature, previous)
	if !matchesCurrent && !matchesPrevious {
		return "", &validateError{
			context: fmt.Sprintf("login token for '%s' expired or invalid", username),
			err:     errInvalidToken,
		}
	}

	return username, nil
}
