package server_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/miniblog/internal/config"
	"github.com/sakif/miniblog/internal/server"
)

// newTestServer boots the full application against an in-memory database
// and returns the base URL.
func newTestServer(t *testing.T) string {
	t.Helper()

	cfg := config.Config{
		Addr:         ":0",
		DBPath:       ":memory:",
		SecretKey:    "integration-test-secret-key",
		PostsPerPage: 5,
		TemplateDir:  "../../web/templates",
		StaticDir:    "../../web/static",
		LogLevel:     slog.LevelError,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := server.New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return ts.URL
}

// newBrowser returns a client with a cookie jar, so sessions and flashes
// survive across requests the way they do in a real browser.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func get(t *testing.T, client *http.Client, url string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func postForm(t *testing.T, client *http.Client, url string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := client.PostForm(url, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func register(t *testing.T, client *http.Client, base, username, password string) string {
	t.Helper()
	_, body := postForm(t, client, base+"/auth/register", url.Values{
		"username": {username},
		"password": {password},
	})
	return body
}

func login(t *testing.T, client *http.Client, base, username, password string) string {
	t.Helper()
	_, body := postForm(t, client, base+"/auth/login", url.Values{
		"username": {username},
		"password": {password},
	})
	return body
}

func TestBlogFlow(t *testing.T) {
	base := newTestServer(t)
	alice := newBrowser(t)

	// The empty index renders for an anonymous visitor.
	resp, body := get(t, alice, base+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Register")
	assert.Contains(t, body, "Log In")

	// Register lands on the login page with a confirmation flash.
	body = register(t, alice, base, "alice", "secret123")
	assert.Contains(t, body, "successfully registered")

	// Login redirects home; the nav now shows the username.
	body = login(t, alice, base, "alice", "secret123")
	assert.Contains(t, body, "Welcome back, alice!")
	assert.Contains(t, body, "Log Out")

	// Create a post; the redirect target shows it with the author's name.
	resp, body = postForm(t, alice, base+"/create", url.Values{
		"title": {"Hello World"},
		"body":  {"My first post."},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Post created successfully!")
	assert.Contains(t, body, "Hello World")
	assert.Contains(t, body, "by alice")

	// The author sees an edit link; the single-post page renders too.
	assert.Contains(t, body, "/1/update")
	resp, body = get(t, alice, base+"/1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Hello World")

	// Another account can read the post but not touch it.
	bob := newBrowser(t)
	register(t, bob, base, "bob", "hunter22")
	login(t, bob, base, "bob", "hunter22")

	_, body = get(t, bob, base+"/")
	assert.Contains(t, body, "Hello World")
	assert.NotContains(t, body, "/1/update", "non-author must not see an edit link")

	resp, _ = get(t, bob, base+"/1/update")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = postForm(t, bob, base+"/1/update", url.Values{
		"title": {"Hijacked"}, "body": {"mine now"},
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = postForm(t, bob, base+"/1/delete", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The refused edit changed nothing.
	_, body = get(t, bob, base+"/1")
	assert.Contains(t, body, "Hello World")
	assert.NotContains(t, body, "Hijacked")

	// The author edits and then deletes.
	_, body = postForm(t, alice, base+"/1/update", url.Values{
		"title": {"Hello Again"}, "body": {"Edited body."},
	})
	assert.Contains(t, body, "Post updated successfully!")
	assert.Contains(t, body, "Hello Again")

	_, body = postForm(t, alice, base+"/1/delete", nil)
	assert.Contains(t, body, "Post deleted successfully!")
	assert.NotContains(t, body, "Hello Again")

	resp, _ = get(t, alice, base+"/1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnonymousIsRedirectedToLogin(t *testing.T) {
	base := newTestServer(t)
	visitor := newBrowser(t)

	// GET /create redirects to the login page with a warning flash.
	resp, body := get(t, visitor, base+"/create")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/auth/login", resp.Request.URL.Path)
	assert.Contains(t, body, "You need to be logged in")

	// Posting directly, without the form, hits the same wall.
	resp, _ = postForm(t, visitor, base+"/create", url.Values{
		"title": {"sneaky"}, "body": {"post"},
	})
	assert.Equal(t, "/auth/login", resp.Request.URL.Path)
}

func TestRegistrationValidation(t *testing.T) {
	base := newTestServer(t)
	visitor := newBrowser(t)

	// Empty password re-renders the form with the message, keeping the username.
	resp, body := postForm(t, visitor, base+"/auth/register", url.Values{
		"username": {"carol"}, "password": {""},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "password is required")
	assert.Contains(t, body, `value="carol"`)

	// Taking a username twice is rejected with a useful message.
	register(t, visitor, base, "carol", "secret123")
	resp, body = postForm(t, visitor, base+"/auth/register", url.Values{
		"username": {"carol"}, "password": {"other-pass"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "already taken")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	base := newTestServer(t)
	visitor := newBrowser(t)

	register(t, visitor, base, "dave", "secret123")

	resp, body := postForm(t, visitor, base+"/auth/login", url.Values{
		"username": {"dave"}, "password": {"wrong"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "incorrect username or password")

	// Unknown usernames read identically — nothing to enumerate.
	resp, body = postForm(t, visitor, base+"/auth/login", url.Values{
		"username": {"nobody"}, "password": {"whatever"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "incorrect username or password")
}

func TestLogoutEndsSession(t *testing.T) {
	base := newTestServer(t)
	client := newBrowser(t)

	register(t, client, base, "erin", "secret123")
	login(t, client, base, "erin", "secret123")

	_, body := get(t, client, base+"/auth/logout")
	assert.Contains(t, body, "You have been logged out.")
	assert.Contains(t, body, "Log In")

	// The session is gone: protected pages bounce to login again.
	resp, _ := get(t, client, base+"/create")
	assert.Equal(t, "/auth/login", resp.Request.URL.Path)
}

func TestPostValidationKeepsInput(t *testing.T) {
	base := newTestServer(t)
	client := newBrowser(t)

	register(t, client, base, "frank", "secret123")
	login(t, client, base, "frank", "secret123")

	resp, body := postForm(t, client, base+"/create", url.Values{
		"title": {"   "}, "body": {"a body worth keeping"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "title is required")
	assert.Contains(t, body, "a body worth keeping")
}

func TestIndexPagination(t *testing.T) {
	base := newTestServer(t)
	client := newBrowser(t)

	register(t, client, base, "grace", "secret123")
	login(t, client, base, "grace", "secret123")

	for _, title := range []string{"one", "two", "three", "four", "five", "six"} {
		postForm(t, client, base+"/create", url.Values{
			"title": {"Post " + title}, "body": {"body"},
		})
	}

	// Six posts at five per page: page 1 shows the newest five.
	_, body := get(t, client, base+"/?page=1")
	assert.Contains(t, body, "Post six")
	assert.NotContains(t, body, "Post one")

	// Page 2 has the remainder.
	_, body = get(t, client, base+"/?page=2")
	assert.Contains(t, body, "Post one")
	assert.NotContains(t, body, "Post six")

	// Past-the-end clamps to the last page instead of rendering nothing.
	_, body = get(t, client, base+"/?page=99")
	assert.Contains(t, body, "Post one")

	// A nonsense page parameter reads as page 1.
	resp, body := get(t, client, base+"/?page=banana")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Post six")
}

func TestNotFoundPages(t *testing.T) {
	base := newTestServer(t)
	client := newBrowser(t)

	for _, path := range []string{"/9999", "/0", "/not-a-number"} {
		resp, _ := get(t, client, base+path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, "GET %s", path)
	}
}

func TestMarkdownRendering(t *testing.T) {
	base := newTestServer(t)
	client := newBrowser(t)

	register(t, client, base, "heidi", "secret123")
	login(t, client, base, "heidi", "secret123")

	postForm(t, client, base+"/create", url.Values{
		"title": {"Formatting"},
		"body":  {"Some **bold** text."},
	})

	_, body := get(t, client, base+"/1")
	assert.Contains(t, body, "<strong>bold</strong>")
}

func TestSessionSurvivesButTamperedCookieDoesNot(t *testing.T) {
	base := newTestServer(t)
	client := newBrowser(t)

	register(t, client, base, "ivan", "secret123")
	login(t, client, base, "ivan", "secret123")

	// Sanity: logged in.
	resp, _ := get(t, client, base+"/create")
	assert.Equal(t, "/create", resp.Request.URL.Path)

	// Replace the session cookie with garbage; the next request is anonymous.
	u, err := url.Parse(base)
	require.NoError(t, err)
	client.Jar.SetCookies(u, []*http.Cookie{{Name: "session", Value: "forged.token.value"}})

	resp, _ = get(t, client, base+"/create")
	assert.Equal(t, "/auth/login", resp.Request.URL.Path)
}

func TestStaticFilesServed(t *testing.T) {
	base := newTestServer(t)
	client := newBrowser(t)

	resp, body := get(t, client, base+"/static/style.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(body, "nav"), "stylesheet should come back")
}
