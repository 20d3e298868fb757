package tokens_test

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/civid/pkg/tokens"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

// tamper returns token with the character at i replaced by a different one.
func tamper(token string, i int) string {
	replacement := "A"
	if token[i] == 'A' {
		replacement = "B"
	}
	return token[:i] + replacement + token[i+1:]
}

func TestNew_CopiesKey(t *testing.T) {
	t.Parallel()
	key := []byte("sekrit")
	engine := tokens.New(key)
	now := at(t, "2015-10-17T14:00:01Z")
	token := engine.CreateLoginToken("SomeUser__123456", now)

	// mutating the caller's slice does not change the engine's key
	key[0] = 'X'
	_, err := engine.ValidateLoginToken(token, now)
	assert.NoError(t, err)
}

func TestErrorContext(t *testing.T) {
	t.Parallel()
	engine := tokens.New([]byte("sekrit"))
	now := at(t, "2015-10-17T14:00:01Z")

	// validation errors carry a private cause
	_, err := engine.ValidateLoginToken("short", now)
	require.Error(t, err)
	assert.Contains(t, tokens.ErrorContext(err), "malformed")

	// client-visible text is generic
	assert.NotContains(t, err.Error(), "malformed")

	// other errors fall back to their text
	assert.Equal(t, "boom", tokens.ErrorContext(errors.New("boom")))
	assert.Equal(t, "", tokens.ErrorContext(nil))
}

func TestEngine_ConcurrentUse(t *testing.T) {
	t.Parallel()
	engine := tokens.New([]byte("sekrit"))
	now := at(t, "2015-10-17T14:00:01Z")

	// a shared engine gives the same results from many goroutines
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token := engine.CreateLoginToken("SomeUser__123456", now)
			code := engine.CreateIdentityCode("SomeUser__123456", now)
			if user, err := engine.ValidateLoginToken(token, now); err != nil || user != "SomeUser__123456" {
				t.Errorf("login token: user=%q err=%v", user, err)
			}
			if user, err := engine.ValidateIdentityCode(code, now); err != nil || user != "SomeUser__123456" {
				t.Errorf("identity code: user=%q err=%v", user, err)
			}
		}()
	}
	wg.Wait()
}

func TestWindowTag(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		instant time.Time
		window  time.Duration
		want    int64
	}{
		{"epoch", time.Unix(0, 0), time.Minute, 0},
		{"end of first window", time.Unix(59, 999), time.Minute, 0},
		{"start of second window", time.Unix(60, 0), time.Minute, 1},
		{"reference instant", at(t, "2015-10-17T14:00:01Z"), time.Minute, 24084840},
		{"thirty second window", time.Unix(95, 0), 30 * time.Second, 3},
		{"before epoch floors down", time.Unix(-1, 0), time.Minute, -1},
		{"exact negative boundary", time.Unix(-60, 0), time.Minute, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokens.WindowTag(tt.instant, tt.window))
		})
	}
}

func TestScramble_KnownValues(t *testing.T) {
	t.Parallel()
	tests := []struct {
		plain     string
		scrambled string
	}{
		{"lgp30", "nXRlB"},
		{"Rykleos", "DYmnMVE"},
		{"SomeUser__123456", "eVfM8EMkww40l3F9"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.plain, func(t *testing.T) {
			assert.Equal(t, tt.scrambled, tokens.Scramble(tt.plain))
			assert.Equal(t, tt.plain, tokens.Unscramble(tt.scrambled))
		})
	}
}

func TestScramble_PassesThroughOtherBytes(t *testing.T) {
	t.Parallel()

	// characters outside the username alphabet are unchanged
	assert.Equal(t, "nXRlB-.@ é", tokens.Scramble("lgp30-.@ é"))
	assert.Equal(t, "lgp30-.@ é", tokens.Unscramble("nXRlB-.@ é"))
}

func TestScramble_IsInjective(t *testing.T) {
	t.Parallel()
	alphabet := "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_"

	seen := make(map[string]string)
	for _, c := range alphabet {
		scrambled := tokens.Scramble(string(c))
		if prev, ok := seen[scrambled]; ok {
			t.Fatalf("%q and %q both scramble to %q", prev, string(c), scrambled)
		}
		seen[scrambled] = string(c)
		assert.True(t, strings.Contains(alphabet, scrambled), "%q left the alphabet", scrambled)
	}
}
