package tokens

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"time"
)

// SignatureLength is the number of characters of a short signature.
const SignatureLength = 18

// shortSignature hashes key ++ message and keeps the first SignatureLength
// characters of the URL-safe base64 digest.
func (e *Engine) shortSignature(message string) string {
	h := sha256.New()
	h.Write(e.key)
	h.Write([]byte(message))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))[:SignatureLength]
}

func signaturesEqual(a string, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// WindowTag returns the index of the window of the given size that contains
// instant, counted from the unix epoch.
func WindowTag(instant time.Time, window time.Duration) int64 {
	size := int64(window / time.Second)
	if size <= 0 {
		size = 1
	}
	seconds := instant.Unix()
	tag := seconds / size
	if seconds%size != 0 && seconds < 0 {
		tag--
	}
	return tag
}

func windowMarker(tag int64) string {
	return "@" + strconv.FormatInt(tag, 10)
}
