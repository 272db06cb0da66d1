package demoapp

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gotrs-io/boardcheck/internal/config"
	"github.com/gotrs-io/boardcheck/internal/dataset"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var sample = dataset.Dataset{
	{ID: "T1", App: "Planner", Task: "Design review", Column: "In Progress", Tags: []string{"design", "urgent"}},
	{ID: "T2", App: "Planner", Task: "Write docs", Column: "To Do", Tags: []string{"docs"}},
	{ID: "T3", App: "Tracker", Task: "Triage", Column: "Backlog", Tags: nil},
}

func TestFromDataset(t *testing.T) {
	b := FromDataset(sample)

	assert.Equal(t, []string{"Planner", "Tracker"}, b.AppNames())

	planner := b.App("Planner")
	require.NotNil(t, planner)
	require.Len(t, planner.Columns, 3)
	assert.Equal(t, "To Do (1)", planner.Columns[0].Heading())
	assert.Equal(t, "In Progress (1)", planner.Columns[1].Heading())
	assert.Equal(t, "Done (0)", planner.Columns[2].Heading())
	assert.Equal(t, 2, planner.CardCount())
	assert.Equal(t, []string{"design", "urgent"}, planner.Columns[1].Cards[0].Tags)

	tracker := b.App("Tracker")
	require.NotNil(t, tracker)
	require.Len(t, tracker.Columns, 4)
	assert.Equal(t, "Backlog (1)", tracker.Columns[3].Heading())

	assert.Nil(t, b.App("Missing"))
}

func TestFromDatasetOmission(t *testing.T) {
	b := FromDataset(sample, Omission{ScenarioID: "T1", Tag: "urgent"})
	card := b.App("Planner").Columns[1].Cards[0]
	assert.Equal(t, []string{"design"}, card.Tags)
	assert.Equal(t, []string{"urgent"}, sample[0].Tags[1:], "dataset must not be modified")
}

func TestParseOmission(t *testing.T) {
	o, err := ParseOmission("T1:urgent")
	require.NoError(t, err)
	assert.Equal(t, Omission{ScenarioID: "T1", Tag: "urgent"}, o)

	o, err = ParseOmission(" T2 : needs review ")
	require.NoError(t, err)
	assert.Equal(t, Omission{ScenarioID: "T2", Tag: "needs review"}, o)

	for _, bad := range []string{"", "T1", "T1:", ":urgent"} {
		_, err := ParseOmission(bad)
		assert.ErrorIs(t, err, errBadOmission, bad)
	}
}

func TestSessionManager(t *testing.T) {
	m := NewSessionManager("secret", time.Hour)

	token, err := m.Issue("alice")
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice", claims.Subject)

	_, err = NewSessionManager("other", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = m.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidSession)

	expired, err := NewSessionManager("secret", -time.Minute).Issue("alice")
	require.NoError(t, err)
	_, err = m.Validate(expired)
	assert.ErrorIs(t, err, ErrExpiredSession)
}

func TestUsers(t *testing.T) {
	users, err := NewUsers(bcrypt.MinCost, config.Credentials{Username: "Alice", Password: "pw"})
	require.NoError(t, err)

	assert.NoError(t, users.Authenticate("alice", "pw"))
	assert.NoError(t, users.Authenticate(" ALICE ", "pw"))
	assert.ErrorIs(t, users.Authenticate("alice", "PW"), ErrInvalidCredentials)
	assert.ErrorIs(t, users.Authenticate("bob", "pw"), ErrInvalidCredentials)

	_, err = NewUsers(bcrypt.MinCost, config.Credentials{Username: " ", Password: "pw"})
	assert.Error(t, err)
}

func newTestServer(t *testing.T, ds dataset.Dataset) *httptest.Server {
	t.Helper()
	srv, err := New(FromDataset(ds), Options{
		Accounts:   []config.Credentials{{Username: "alice", Password: "pw"}},
		BcryptCost: bcrypt.MinCost,
	}, zap.NewNop())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T, follow bool) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c := &http.Client{Jar: jar}
	if !follow {
		c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	}
	return c
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func signIn(t *testing.T, c *http.Client, base, password string) *http.Response {
	t.Helper()
	resp, err := c.PostForm(base+"/login", url.Values{"username": {"alice"}, "password": {password}})
	require.NoError(t, err)
	return resp
}

func TestServerHealth(t *testing.T) {
	ts := newTestServer(t, sample)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.JSONEq(t, `{"status":"ok","apps":2}`, body(t, resp))
}

func TestServerKeepsClientRequestID(t *testing.T) {
	ts := newTestServer(t, sample)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
}

func TestServerRequiresSession(t *testing.T) {
	ts := newTestServer(t, sample)
	c := newClient(t, false)

	for _, path := range []string{"/", "/projects", "/board?app=Planner"} {
		resp, err := c.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}
}

func TestServerLoginPageHasNoLandmark(t *testing.T) {
	ts := newTestServer(t, sample)
	resp, err := http.Get(ts.URL + "/login")
	require.NoError(t, err)
	html := body(t, resp)

	assert.Contains(t, html, `id="username"`)
	assert.Contains(t, html, `id="password"`)
	assert.Contains(t, html, `type="submit"`)
	assert.NotContains(t, html, "Projects")
}

func TestServerRejectsWrongPassword(t *testing.T) {
	ts := newTestServer(t, sample)
	c := newClient(t, true)

	resp := signIn(t, c, ts.URL, "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	html := body(t, resp)
	assert.Contains(t, html, `id="error-message"`)
	assert.NotContains(t, html, "Projects")
}

func TestServerBoard(t *testing.T) {
	ts := newTestServer(t, sample)
	c := newClient(t, true)

	resp := signIn(t, c, ts.URL, "pw")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/projects", resp.Request.URL.Path)
	assert.Contains(t, body(t, resp), "Projects")

	resp, err := c.Get(ts.URL + "/board?app=" + url.QueryEscape("Planner"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc, err := htmlquery.Parse(strings.NewReader(body(t, resp)))
	require.NoError(t, err)

	h1 := htmlquery.FindOne(doc, "//header/h1")
	require.NotNil(t, h1)
	assert.Equal(t, "Planner", htmlquery.InnerText(h1))

	entries := htmlquery.Find(doc, "//nav//button/h2")
	require.Len(t, entries, 2)
	assert.Equal(t, "Planner", htmlquery.InnerText(entries[0]))
	assert.Equal(t, "Tracker", htmlquery.InnerText(entries[1]))

	var headings []string
	for _, n := range htmlquery.Find(doc, "//main//div[contains(@class, 'w-80')]/h2") {
		headings = append(headings, htmlquery.InnerText(n))
	}
	assert.Equal(t, []string{"To Do (1)", "In Progress (1)", "Done (0)"}, headings)

	var tags []string
	for _, n := range htmlquery.Find(doc, "//div[@data-id='T1']//span") {
		tags = append(tags, htmlquery.InnerText(n))
	}
	assert.Equal(t, []string{"design", "urgent"}, tags)
}

func TestServerUnknownApp(t *testing.T) {
	ts := newTestServer(t, sample)
	c := newClient(t, true)
	signIn(t, c, ts.URL, "pw").Body.Close()

	resp, err := c.Get(ts.URL + "/board?app=Nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body(t, resp), "There is no application called Nope.")
}

func TestServerLogout(t *testing.T) {
	ts := newTestServer(t, sample)
	c := newClient(t, true)
	signIn(t, c, ts.URL, "pw").Body.Close()

	resp, err := c.PostForm(ts.URL+"/logout", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "/login", resp.Request.URL.Path)

	resp, err = c.Get(ts.URL + "/projects")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "/login", resp.Request.URL.Path)
}
