package client

import (
	"context"
	"net/http"
)

// Identifier exchanges identity codes for identities.
// Consuming projects should depend on this interface rather than *Client
// to enable testing with mock implementations.
type Identifier interface {
	UserInfo(ctx context.Context, code string) (*Identity, error)
}

// CallbackHandler completes the authorization flow on the redirect back.
type CallbackHandler interface {
	HandleCallback(w http.ResponseWriter, r *http.Request) (*Identity, error)
}

// RelyingParty exposes both the code exchange and the callback handling.
type RelyingParty interface {
	Identifier
	CallbackHandler
}

// Compile-time check that *Client implements Identifier.
var _ Identifier = (*Client)(nil)
var _ CallbackHandler = (*Client)(nil)
var _ RelyingParty = (*Client)(nil)
