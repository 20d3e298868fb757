package service

import (
	"fmt"
	"net/url"
	"strings"

	"git.sr.ht/~jakintosh/civid/internal/observability"
	"git.sr.ht/~jakintosh/civid/pkg/tokens"
)

// AuthorizeRequest is a signed-in user's answer to a relying party.
type AuthorizeRequest struct {
	Username string
	Redirect *url.URL
	State    string
	HasState bool
	Identify bool
}

// UserInfo is what a relying party learns from an identity code.
type UserInfo struct {
	User        string `json:"user"`
	DisplayName string `json:"display_name"`
}

// ParseRedirectURI validates a relying party's redirect_uri parameter.
func ParseRedirectURI(
	raw string,
) (
	*url.URL,
	error,
) {
	if raw == "" {
		return nil, ErrMissingRedirect
	}

	redirect, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRedirect, err)
	}
	if redirect.Scheme != "http" && redirect.Scheme != "https" {
		return nil, fmt.Errorf("%w: got '%s'", ErrRedirectScheme, redirect.Scheme)
	}
	if redirect.Host == "" {
		return nil, fmt.Errorf("%w: no host", ErrMalformedRedirect)
	}
	return redirect, nil
}

// Authorize builds the redirect back to the relying party. The target keeps
// the redirect's scheme, host, and path; its query and fragment are replaced
// by state (when the request carried one) followed by either a fresh
// identity code or error=declined.
func (s *Service) Authorize(
	req AuthorizeRequest,
) (
	*url.URL,
	error,
) {
	if req.Username == "" {
		return nil, ErrNotSignedIn
	}
	if req.Redirect == nil {
		return nil, ErrMissingRedirect
	}

	params := make([]string, 0, 2)
	if req.HasState {
		params = append(params, "state="+url.QueryEscape(req.State))
	}
	if req.Identify {
		code := s.engine.CreateIdentityCode(req.Username, s.now())
		s.metrics.RecordCredential(observability.KindIdentityCode, observability.OutcomeIssued)
		params = append(params, "code="+url.QueryEscape(code))
	} else {
		params = append(params, "error=declined")
	}

	target := &url.URL{
		Scheme:   req.Redirect.Scheme,
		User:     req.Redirect.User,
		Host:     req.Redirect.Host,
		Path:     req.Redirect.Path,
		RawPath:  req.Redirect.RawPath,
		RawQuery: strings.Join(params, "&"),
	}
	return target, nil
}

// UserInfo exchanges an identity code for the user it identifies.
func (s *Service) UserInfo(
	code string,
) (
	*UserInfo,
	error,
) {
	if code == "" {
		return nil, ErrMissingCode
	}

	username, err := s.engine.ValidateIdentityCode(code, s.now())
	if err != nil {
		s.metrics.RecordCredential(observability.KindIdentityCode, observability.OutcomeRejected)
		return nil, fmt.Errorf("%w: %s", ErrInvalidCode, tokens.ErrorContext(err))
	}

	s.metrics.RecordCredential(observability.KindIdentityCode, observability.OutcomeAccepted)
	return &UserInfo{
		User:        strings.ToLower(username),
		DisplayName: username,
	}, nil
}
