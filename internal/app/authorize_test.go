package app_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/civid/internal/testutil"
)

func TestGetAuthorize_MissingRedirectURI(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	result := testutil.Get(env.Router, "/authorize", nil)
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
	testutil.ExpectBodyContains(t, result, "Missing required redirect URI")
}

func TestGetAuthorize_InvalidRedirectURIs(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	for _, redirect := range []string{
		"gopher://localhost",
		"ahhp://test.com",
		"/relative/only",
		"http://",
	} {
		result := testutil.Get(env.Router, "/authorize?redirect_uri="+url.QueryEscape(redirect), nil)
		if result.Code != http.StatusBadRequest {
			t.Errorf("redirect_uri %q: expected 400, got %d", redirect, result.Code)
		}
	}
}

func TestGetAuthorize_WithoutSession(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// anonymous visitors are told how to sign in
	result := testutil.Get(env.Router, "/authorize?redirect_uri=http://localhost", nil)
	testutil.ExpectStatus(t, http.StatusOK, result)
	testutil.ExpectBodyContains(t, result, "You are not logged in")
	assert.NotContains(t, string(result.Body), "Identify")
}

func TestGetAuthorize_WithSession(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// signed-in user is asked to identify
	cookie := env.SessionCookie(t, "karst1", "")
	result := testutil.Get(env.Router, "/authorize?redirect_uri=http%3A%2F%2Fcivballroom.io%2Fabc", nil,
		testutil.Cookie(cookie))
	testutil.ExpectStatus(t, http.StatusOK, result)
	testutil.ExpectBodyContains(t, result,
		"The application at <strong>civballroom.io</strong>",
		"username <strong>karst1</strong>",
		"Identify",
		"Decline",
	)

	// a CSRF token is stored in the session and embedded in the form
	sess := env.LoadSession(t, result)
	require.NotEmpty(t, sess.CSRF)
	assert.Equal(t, "karst1", sess.Username)
	testutil.ExpectBodyContains(t, result, sess.CSRF)
}

func TestGetAuthorize_ReusesCSRFToken(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// an existing token is not rotated
	cookie := env.SessionCookie(t, "karst1", "csrftok")
	result := testutil.Get(env.Router, "/authorize?redirect_uri=http://localhost", nil,
		testutil.Cookie(cookie))
	testutil.ExpectStatus(t, http.StatusOK, result)
	testutil.ExpectBodyContains(t, result, `value="csrftok"`)
	assert.Empty(t, result.Headers.Values("Set-Cookie"))
}

func TestGetAuthorize_FormPostsBackToSameQuery(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	cookie := env.SessionCookie(t, "karst1", "csrftok")
	result := testutil.Get(env.Router, "/authorize?redirect_uri=http%3A%2F%2Ftest.com&state=12345", nil,
		testutil.Cookie(cookie))
	testutil.ExpectStatus(t, http.StatusOK, result)
	testutil.ExpectBodyContains(t, result, `action="/authorize?redirect_uri=http%3A%2F%2Ftest.com&amp;state=12345"`)
}

func postAuthorize(
	env *testutil.TestEnv,
	query string,
	form url.Values,
	cookie *http.Cookie,
) testutil.HTTPResult {
	var headers []testutil.Header
	if cookie != nil {
		headers = append(headers, testutil.Cookie(cookie))
	}
	return testutil.PostForm(env.Router, "/authorize?"+query, form, nil, headers...)
}

func TestPostAuthorize_IdentifyWithSession(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)
	env.Clock.Set(testutil.At(t, "2015-10-28T10:28:22Z"))

	// identify sends the code back with the state
	cookie := env.SessionCookie(t, "Rykleos", "csrftok")
	result := postAuthorize(env,
		"redirect_uri=http%3A%2F%2Fcivballroom.io%2Fabc&state=12345",
		url.Values{"csrf_token": {"csrftok"}, "action": {"identify"}},
		cookie,
	)
	testutil.ExpectStatus(t, http.StatusFound, result)
	assert.Equal(t,
		"http://civballroom.io/abc?state=12345&code=DYmnMVE.CRI0xg.G82dK66f-zNNKGuHQ1LCsDPU63w",
		result.Headers.Get("Location"),
	)
}

func TestPostAuthorize_IdentifyWithoutSession(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// a valid CSRF token without a user is still rejected
	cookie := env.SessionCookie(t, "", "csrftok")
	result := postAuthorize(env,
		"redirect_uri=http%3A%2F%2Ftest.com",
		url.Values{"csrf_token": {"csrftok"}, "action": {"identify"}},
		cookie,
	)
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
	testutil.ExpectBodyContains(t, result, "No authenticated user to identify")
}

func TestPostAuthorize_InvalidRedirectURI(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	cookie := env.SessionCookie(t, "Rykleos", "csrftok")
	result := postAuthorize(env,
		"redirect_uri=ahhp%3A%2F%2Ftest.com",
		url.Values{"csrf_token": {"csrftok"}, "action": {"identify"}},
		cookie,
	)
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
	testutil.ExpectBodyContains(t, result, "Redirect URI must be http or https")
}

func TestPostAuthorize_InvalidOrMissingCSRFToken(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)
	cookie := env.SessionCookie(t, "Rykleos", "csrftok")

	// wrong token
	result := postAuthorize(env,
		"redirect_uri=http%3A%2F%2Ftest.com",
		url.Values{"csrf_token": {"csrftok2"}, "action": {"identify"}},
		cookie,
	)
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
	testutil.ExpectBodyContains(t, result, "Invalid CSRF token")

	// missing token
	result = postAuthorize(env,
		"redirect_uri=http%3A%2F%2Ftest.com",
		url.Values{"action": {"identify"}},
		cookie,
	)
	testutil.ExpectStatus(t, http.StatusBadRequest, result)

	// no session at all
	result = postAuthorize(env,
		"redirect_uri=http%3A%2F%2Ftest.com",
		url.Values{"csrf_token": {"csrftok"}, "action": {"identify"}},
		nil,
	)
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
}

func TestPostAuthorize_ForgedSessionCookie(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// a tampered cookie counts as no session
	cookie := env.SessionCookie(t, "Rykleos", "csrftok")
	cookie.Value = strings.Replace(cookie.Value, ".", "x.", 1)
	result := postAuthorize(env,
		"redirect_uri=http%3A%2F%2Ftest.com",
		url.Values{"csrf_token": {"csrftok"}, "action": {"identify"}},
		cookie,
	)
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
}

func TestPostAuthorize_MissingAction(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	cookie := env.SessionCookie(t, "Rykleos", "csrftok")
	result := postAuthorize(env,
		"redirect_uri=http%3A%2F%2Ftest.com",
		url.Values{"csrf_token": {"csrftok"}},
		cookie,
	)
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
}

func TestPostAuthorize_Decline(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	cookie := env.SessionCookie(t, "Rykleos", "csrftok")
	result := postAuthorize(env,
		"redirect_uri=http%3A%2F%2Ftest.com&state=12345",
		url.Values{"csrf_token": {"csrftok"}, "action": {"decline"}},
		cookie,
	)
	testutil.ExpectStatus(t, http.StatusFound, result)
	assert.Equal(t, "http://test.com?state=12345&error=declined", result.Headers.Get("Location"))
}

func TestPostAuthorize_ReformatsRedirectURI(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// the relying party's own query is dropped
	cookie := env.SessionCookie(t, "Rykleos", "csrftok")
	result := postAuthorize(env,
		"redirect_uri=http%3A%2F%2Fabc.xyz%2Fpath%2Fpage%3Fsomething%3Dblah",
		url.Values{"csrf_token": {"csrftok"}, "action": {"decline"}},
		cookie,
	)
	testutil.ExpectStatus(t, http.StatusFound, result)
	assert.Equal(t, "http://abc.xyz/path/page?error=declined", result.Headers.Get("Location"))
}

func TestAuthorize_EndToEnd(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// sign in through a login link
	link, _, err := env.Service.IssueLoginLink("Rykleos")
	require.NoError(t, err)
	login := testutil.Get(env.Router, link.Path, nil)
	testutil.ExpectRedirect(t, login)
	cookie := sessionCookie(login)
	require.NotNil(t, cookie)

	// open the prompt to get a CSRF token
	query := "redirect_uri=" + url.QueryEscape("https://app.example/cb") + "&state=xyz"
	prompt := testutil.Get(env.Router, "/authorize?"+query, nil, testutil.Cookie(cookie))
	testutil.ExpectStatus(t, http.StatusOK, prompt)
	if c := sessionCookie(prompt); c != nil {
		cookie = c
	}
	csrf := env.LoadSession(t, prompt).CSRF
	require.NotEmpty(t, csrf)

	// identify
	answer := postAuthorize(env, query,
		url.Values{"csrf_token": {csrf}, "action": {"identify"}},
		cookie,
	)
	testutil.ExpectStatus(t, http.StatusFound, answer)
	target, err := url.Parse(answer.Headers.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "app.example", target.Host)
	assert.Equal(t, "xyz", target.Query().Get("state"))

	// the relying party redeems the code
	var info struct {
		User        string `json:"user"`
		DisplayName string `json:"display_name"`
	}
	result := testutil.Get(env.Router, "/userinfo?code="+url.QueryEscape(target.Query().Get("code")), &info)
	testutil.ExpectStatus(t, http.StatusOK, result)
	assert.Equal(t, "rykleos", info.User)
	assert.Equal(t, "Rykleos", info.DisplayName)
}
