package service

import (
	"fmt"
	"net/url"
	"regexp"

	"git.sr.ht/~jakintosh/civid/internal/observability"
	"git.sr.ht/~jakintosh/civid/pkg/tokens"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,}$`)

// ValidUsername reports whether username can be carried by a login token.
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// IssueLoginLink returns BASE_URL/in/<token> for username, valid for one to
// two login windows.
func (s *Service) IssueLoginLink(
	username string,
) (
	*url.URL,
	string,
	error,
) {
	if !ValidUsername(username) {
		return nil, "", fmt.Errorf("%w: '%s'", ErrInvalidUsername, username)
	}

	token := s.engine.CreateLoginToken(username, s.now())
	s.metrics.RecordCredential(observability.KindLoginToken, observability.OutcomeIssued)

	link := *s.baseURL
	link.Path = s.baseURL.Path + "/in/" + token
	link.RawPath = ""
	return &link, token, nil
}

// Login validates a login token and returns the username it carries.
func (s *Service) Login(
	token string,
) (
	string,
	error,
) {
	username, err := s.engine.ValidateLoginToken(token, s.now())
	if err != nil {
		s.metrics.RecordCredential(observability.KindLoginToken, observability.OutcomeRejected)
		return "", fmt.Errorf("%w: %s", ErrInvalidToken, tokens.ErrorContext(err))
	}

	s.metrics.RecordCredential(observability.KindLoginToken, observability.OutcomeAccepted)
	return username, nil
}
