// Package tokens provides the credential engine of the civid identity
// server.
//
// The engine issues and validates two kinds of short-lived, signed,
// stateless credentials:
//
//   - Login tokens: prove that a browser recently received a login link for
//     a username. A login token is an 18 character signature followed by the
//     username in clear text. No timestamp is embedded; instead the
//     signature is bound to a 60 second time window and validation accepts
//     the current and the previous window.
//   - Identity codes: prove to a relying party that the identity provider
//     vouches for a username right now. A code carries a creation timestamp
//     and a scrambled username, and is valid for 30 seconds.
//
// The engine holds only the signing key. Every operation is a pure function
// of the key, its input and the instant passed in, so an Engine is safe to
// share between goroutines and tests can pin the clock.
//
// # Issuing
//
//	engine := tokens.New([]byte(signingKey))
//
//	// sent to the user by a chat bot as https://id.example.com/in/<token>
//	token := engine.CreateLoginToken("gatzy", time.Now())
//
//	// handed to a relying party after the user approves
//	code := engine.CreateIdentityCode("gatzy", time.Now())
//
// # Validating
//
//	username, err := engine.ValidateLoginToken(token, time.Now())
//	if err != nil {
//	    // errors.Is(err, tokens.ErrInvalidToken())
//	}
//
//	username, err = engine.ValidateIdentityCode(code, time.Now())
//	if err != nil {
//	    // errors.Is(err, tokens.ErrInvalidCode())
//	}
//
// # Error Handling
//
// Validation fails with exactly one of two errors, ErrInvalidToken or
// ErrInvalidCode, whatever the cause. A malformed, forged or expired
// credential all look the same to callers so responses cannot be used as
// an oracle. The cause is kept for server-side logs and can be read with
// ErrorContext:
//
//	if _, err := engine.ValidateIdentityCode(code, now); err != nil {
//	    logger.Debug("rejected code", zap.String("cause", tokens.ErrorContext(err)))
//	    http.Error(w, "Invalid or expired identity code", http.StatusBadRequest)
//	}
//
// # Scrambling
//
// Usernames inside identity codes are passed through a fixed substitution
// cipher (Scramble) so relying parties are not tempted to parse them out
// instead of calling back to validate the code. It is not a security
// control; the signature is.
package tokens
