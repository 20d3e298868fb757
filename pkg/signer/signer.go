// Package signer implements a timestamping HMAC signer whose output is
// compatible with the itsdangerous TimestampSigner (django-concat key
// derivation, HMAC-SHA1, epoch 2011-01-01).
//
// A signed value has the form
//
//	value "." base64(timestamp) "." base64(mac)
//
// where base64 is the URL-safe alphabet without padding and the mac covers
// everything before the last separator.
package signer

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultSalt is the salt used when none is configured.
const DefaultSalt = "itsdangerous.Signer"

// epoch is subtracted from unix timestamps before encoding.
const epoch = 1293840000

const separator = "."

// MaxClockSkew is how far ahead of now a timestamp may be and still be
// accepted, so instances with slightly different clocks agree.
const MaxClockSkew = 5 * time.Second

var (
	errMalformed    = errors.New("signed value malformed")
	errBadSignature = errors.New("signature does not match")
	errExpired      = errors.New("signature expired")
	errNotYetValid  = errors.New("signature timestamp in the future")
)

func ErrMalformed() error    { return errMalformed }
func ErrBadSignature() error { return errBadSignature }
func ErrExpired() error      { return errExpired }
func ErrNotYetValid() error  { return errNotYetValid }

// Signer signs and verifies timestamped values. It holds only the derived
// key and is safe for concurrent use.
type Signer struct {
	key []byte
}

func New(secret []byte, salt string) *Signer {
	if salt == "" {
		salt = DefaultSalt
	}
	h := sha1.New()
	h.Write([]byte(salt))
	h.Write([]byte("signer"))
	h.Write(secret)
	return &Signer{key: h.Sum(nil)}
}

// Sign returns value with the timestamp of now and a signature appended.
func (s *Signer) Sign(value string, now time.Time) string {
	message := value + separator + encode(timestampBytes(now))
	return message + separator + s.signature(message)
}

// Unsign verifies signed and returns the original value. The signature is
// checked before the timestamp is decoded, and the value is rejected when
// it is older than maxAge or stamped later than now.
func (s *Signer) Unsign(
	signed string,
	maxAge time.Duration,
	now time.Time,
) (
	string,
	error,
) {
	value, _, err := s.UnsignTimestamp(signed, maxAge, now)
	return value, err
}

// UnsignTimestamp is Unsign that also returns the embedded timestamp.
func (s *Signer) UnsignTimestamp(
	signed string,
	maxAge time.Duration,
	now time.Time,
) (
	string,
	time.Time,
	error,
) {
	message, sig, ok := cutLast(signed)
	if !ok {
		return "", time.Time{}, fmt.Errorf("%w: no signature separator", errMalformed)
	}

	if !hmac.Equal([]byte(sig), []byte(s.signature(message))) {
		return "", time.Time{}, errBadSignature
	}

	value, encTimestamp, ok := cutLast(message)
	if !ok {
		return "", time.Time{}, fmt.Errorf("%w: no timestamp separator", errMalformed)
	}

	timestamp, err := decodeTimestamp(encTimestamp)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", errMalformed, err)
	}

	// ages are compared in whole seconds, like the timestamps themselves
	age := time.Duration(now.Unix()-timestamp.Unix()) * time.Second
	if age < -MaxClockSkew {
		return "", time.Time{}, fmt.Errorf("%w: %s ahead", errNotYetValid, -age)
	}
	if age > maxAge {
		return "", time.Time{}, fmt.Errorf("%w: age %s > %s", errExpired, age, maxAge)
	}

	return value, timestamp, nil
}

func (s *Signer) signature(message string) string {
	mac := hmac.New(sha1.New, s.key)
	mac.Write([]byte(message))
	return encode(mac.Sum(nil))
}

func cutLast(str string) (before string, after string, ok bool) {
	i := strings.LastIndex(str, separator)
	if i < 0 {
		return "", "", false
	}
	return str[:i], str[i+len(separator):], true
}

func encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// timestampBytes is the big-endian encoding of the timestamp with leading
// zero bytes stripped.
func timestampBytes(now time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(now.Unix()-epoch))
	i := 0
	for i < len(buf) && buf[i] == 0 {
		i++
	}
	return buf[i:]
}

func decodeTimestamp(str string) (time.Time, error) {
	b, err := base64.RawURLEncoding.DecodeString(str)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid base64 timestamp: %v", err)
	}
	if len(b) > 8 {
		return time.Time{}, fmt.Errorf("timestamp too long: %d bytes", len(b))
	}
	buf := make([]byte, 8)
	copy(buf[8-len(b):], b)
	seconds := int64(binary.BigEndian.Uint64(buf))
	return time.Unix(seconds+epoch, 0), nil
}
