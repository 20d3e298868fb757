package testutil

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// HTTPResult captures HTTP response details for test assertions
type HTTPResult struct {
	Code    int
	Error   error
	Headers http.Header
	Body    []byte
}

// Header represents an HTTP header key-value pair. Helpers that change
// the request itself rather than its headers set apply instead.
type Header struct {
	Key   string
	Value string
	apply func(*http.Request)
}

// ContentTypeJSON returns a header for JSON content type
func ContentTypeJSON() Header {
	return Header{
		Key:   "Content-Type",
		Value: "application/json",
	}
}

// ContentTypeForm returns a header for form-urlencoded content type
func ContentTypeForm() Header {
	return Header{
		Key:   "Content-Type",
		Value: "application/x-www-form-urlencoded",
	}
}

// Cookie returns a header sending c
func Cookie(c *http.Cookie) Header {
	return Header{
		Key:   "Cookie",
		Value: c.Name + "=" + c.Value,
	}
}

// BasicAuth returns an Authorization header for name and secret
func BasicAuth(name string, secret string) Header {
	creds := base64.StdEncoding.EncodeToString([]byte(name + ":" + secret))
	return Header{
		Key:   "Authorization",
		Value: "Basic " + creds,
	}
}

// RemoteAddr sets the request's socket peer address
func RemoteAddr(ip string) Header {
	return Header{
		apply: func(req *http.Request) {
			req.RemoteAddr = ip + ":40000"
		},
	}
}

// ForwardedFor sets an X-Forwarded-For header
func ForwardedFor(ip string) Header {
	return Header{
		Key:   "X-Forwarded-For",
		Value: ip,
	}
}

// ExpectStatus validates the HTTP status code and fails the test if it doesn't match
func ExpectStatus(
	t *testing.T,
	expected int,
	result HTTPResult,
) {
	t.Helper()
	if result.Error != nil {
		t.Fatalf("request error: %v", result.Error)
	}
	if result.Code != expected {
		t.Fatalf("expected status %d, got %d. Body: %s", expected, result.Code, string(result.Body))
	}
}

// ExpectRedirect validates a redirect response (302 or 303) and returns the Location header
func ExpectRedirect(
	t *testing.T,
	result HTTPResult,
) string {
	t.Helper()
	if result.Code != http.StatusFound && result.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect (302/303), got %d. Body: %s", result.Code, string(result.Body))
	}
	location := result.Headers.Get("Location")
	if location == "" {
		t.Fatal("expected Location header in redirect")
	}
	return location
}

// ExpectBodyContains fails the test unless every needle is in the body
func ExpectBodyContains(
	t *testing.T,
	result HTTPResult,
	needles ...string,
) {
	t.Helper()
	body := string(result.Body)
	for _, needle := range needles {
		if !strings.Contains(body, needle) {
			t.Errorf("body missing %q. Body: %s", needle, body)
		}
	}
}

// Get performs a GET request and optionally decodes JSON response
func Get(
	router http.Handler,
	url string,
	response any,
	headers ...Header,
) HTTPResult {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	return serve(router, req, response, headers)
}

// Post performs a POST request and optionally decodes JSON response
func Post(
	router http.Handler,
	url string,
	body string,
	response any,
	headers ...Header,
) HTTPResult {
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	return serve(router, req, response, headers)
}

// PostForm performs a POST with form-urlencoded body
func PostForm(
	router http.Handler,
	urlPath string,
	values url.Values,
	response any,
	headers ...Header,
) HTTPResult {
	return Post(router, urlPath, values.Encode(), response, append([]Header{ContentTypeForm()}, headers...)...)
}

// PostJSON performs a POST with JSON body
func PostJSON(
	router http.Handler,
	urlPath string,
	body string,
	response any,
	headers ...Header,
) HTTPResult {
	return Post(router, urlPath, body, response, append([]Header{ContentTypeJSON()}, headers...)...)
}

func serve(
	router http.Handler,
	req *http.Request,
	response any,
	headers []Header,
) HTTPResult {
	res := httptest.NewRecorder()
	for _, h := range headers {
		if h.apply != nil {
			h.apply(req)
			continue
		}
		req.Header.Set(h.Key, h.Value)
	}
	router.ServeHTTP(res, req)

	if response != nil && res.Body.Len() > 0 {
		if err := json.Unmarshal(res.Body.Bytes(), response); err != nil {
			return HTTPResult{
				Code:    res.Code,
				Error:   fmt.Errorf("failed to decode JSON: %v\n%s", err, res.Body.String()),
				Headers: res.Header(),
				Body:    res.Body.Bytes(),
			}
		}
	}

	return HTTPResult{Code: res.Code, Headers: res.Header(), Body: res.Body.Bytes()}
}
