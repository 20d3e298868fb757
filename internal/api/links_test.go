package api_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"git.sr.ht/~jakintosh/civid/internal/api"
	"git.sr.ht/~jakintosh/civid/internal/testutil"
)

func TestCreateLink_Success(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)
	env.Clock.Set(testutil.At(t, "2015-09-30T00:00:00Z"))

	// setup env
	env.RegisterTestIssuer(t, "edsgar", "bot-secret")

	// authenticated issuer gets a link
	var resp api.CreateLinkResponse
	result := testutil.PostJSON(env.Router, "/api/links", `{"username": "0ptixs"}`, &resp,
		testutil.BasicAuth("edsgar", "bot-secret"))
	testutil.ExpectStatus(t, http.StatusOK, result)
	assert.Equal(t, "Vnthii-2D3jPp-Ownf0ptixs", resp.Token)
	assert.Equal(t, testutil.BaseURL+"/in/Vnthii-2D3jPp-Ownf0ptixs", resp.URL)
}

func TestCreateLink_LinkSignsIn(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	env.RegisterTestIssuer(t, "edsgar", "bot-secret")

	var resp api.CreateLinkResponse
	result := testutil.PostJSON(env.Router, "/api/links", `{"username": "karst1"}`, &resp,
		testutil.BasicAuth("edsgar", "bot-secret"))
	testutil.ExpectStatus(t, http.StatusOK, result)

	// the minted link works on the web app
	path := strings.TrimPrefix(resp.URL, testutil.BaseURL)
	login := testutil.Get(env.Router, path, nil)
	testutil.ExpectRedirect(t, login)
	assert.Equal(t, "karst1", env.LoadSession(t, login).Username)
}

func TestCreateLink_MissingCredentials(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	result := testutil.PostJSON(env.Router, "/api/links", `{"username": "karst1"}`, nil)
	testutil.ExpectStatus(t, http.StatusUnauthorized, result)
	assert.Contains(t, result.Headers.Get("WWW-Authenticate"), "Basic")
}

func TestCreateLink_InvalidCredentials(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	env.RegisterTestIssuer(t, "edsgar", "bot-secret")

	tests := []struct {
		name   string
		issuer string
		secret string
	}{
		{"wrong secret", "edsgar", "guess"},
		{"unknown issuer", "mallory", "bot-secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp api.ErrorResponse
			result := testutil.PostJSON(env.Router, "/api/links", `{"username": "karst1"}`, &resp,
				testutil.BasicAuth(tt.issuer, tt.secret))
			testutil.ExpectStatus(t, http.StatusUnauthorized, result)

			// both failures look the same
			assert.Equal(t, "Invalid issuer credentials", resp.Error)
		})
	}
}

func TestCreateLink_InvalidUsername(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	env.RegisterTestIssuer(t, "edsgar", "bot-secret")

	for _, body := range []string{`{"username": "ab"}`, `{"username": "no spaces"}`, `{}`} {
		result := testutil.PostJSON(env.Router, "/api/links", body, nil,
			testutil.BasicAuth("edsgar", "bot-secret"))
		testutil.ExpectStatus(t, http.StatusBadRequest, result)
	}
}

func TestCreateLink_BadJSON(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	env.RegisterTestIssuer(t, "edsgar", "bot-secret")

	result := testutil.PostJSON(env.Router, "/api/links", `{"username":`, nil,
		testutil.BasicAuth("edsgar", "bot-secret"))
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
}

func TestCreateLink_UnsupportedContentType(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	env.RegisterTestIssuer(t, "edsgar", "bot-secret")

	// non-JSON content type is rejected
	result := testutil.Post(env.Router, "/api/links", "username=karst1", nil,
		testutil.ContentTypeForm(),
		testutil.BasicAuth("edsgar", "bot-secret"))
	testutil.ExpectStatus(t, http.StatusUnsupportedMediaType, result)
}

func TestCreateLink_WrongMethod(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	result := testutil.Get(env.Router, "/api/links", nil)
	testutil.ExpectStatus(t, http.StatusMethodNotAllowed, result)
}
