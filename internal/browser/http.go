package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/gotrs-io/boardcheck/internal/locator"
)

// HTTPEngine is a browserless engine for server-rendered applications. It
// fetches documents over HTTP, keeps cookies per session and evaluates
// selectors against the parsed HTML. Scripts are not executed, so documents
// never change on their own and waits do not poll.
type HTTPEngine struct {
	opts      Options
	logger    *zap.Logger
	transport *http.Transport
}

// NewHTTPEngine creates an engine with its own connection pool.
func NewHTTPEngine(opts Options, logger *zap.Logger) *HTTPEngine {
	return &HTTPEngine{
		opts:      opts,
		logger:    logger,
		transport: http.DefaultTransport.(*http.Transport).Clone(),
	}
}

// NewSession returns a session with an empty cookie jar.
func (e *HTTPEngine) NewSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &httpSession{
		client: &http.Client{
			Jar:       jar,
			Transport: e.transport,
			Timeout:   e.opts.ActionTimeout,
		},
		logger: e.logger,
	}, nil
}

// Close drops idle connections.
func (e *HTTPEngine) Close() error {
	e.transport.CloseIdleConnections()
	return nil
}

type httpSession struct {
	client *http.Client
	logger *zap.Logger
	url    *url.URL
	doc    *html.Node
	closed bool
}

func (s *httpSession) check(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	return ctx.Err()
}

func (s *httpSession) Navigate(ctx context.Context, rawURL string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	u, err := s.resolve(rawURL)
	if err != nil {
		return err
	}
	return s.load(ctx, http.MethodGet, u, nil)
}

func (s *httpSession) resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", ref, err)
	}
	if s.url != nil {
		u = s.url.ResolveReference(u)
	}
	return u, nil
}

func (s *httpSession) load(ctx context.Context, method string, u *url.URL, form url.Values) error {
	var req *http.Request
	var err error
	switch method {
	case http.MethodPost:
		req, err = http.NewRequestWithContext(ctx, method, u.String(), strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		target := *u
		if form != nil {
			target.RawQuery = form.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	}
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", u, err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("failed to navigate to %s: server responded %s", u, resp.Status)
	}

	doc, err := htmlquery.Parse(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", u, err)
	}

	s.doc = doc
	s.url = resp.Request.URL
	s.logger.Debug("document loaded",
		zap.String("method", method),
		zap.String("url", s.url.String()),
		zap.Int("status", resp.StatusCode))
	return nil
}

func (s *httpSession) query(sel locator.Selector) ([]*html.Node, error) {
	if s.doc == nil {
		return nil, nil
	}
	nodes, err := htmlquery.QueryAll(s.doc, sel.String())
	if err != nil {
		return nil, fmt.Errorf("invalid selector %s: %w", sel, err)
	}
	return nodes, nil
}

func (s *httpSession) visible(sel locator.Selector) ([]*html.Node, error) {
	nodes, err := s.query(sel)
	if err != nil {
		return nil, err
	}
	out := nodes[:0]
	for _, n := range nodes {
		if isVisible(n) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *httpSession) firstVisible(sel locator.Selector) (*html.Node, error) {
	nodes, err := s.visible(sel)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sel)
	}
	return nodes[0], nil
}

func (s *httpSession) WaitVisible(ctx context.Context, sel locator.Selector, timeout time.Duration) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	nodes, err := s.visible(sel)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return timeoutError(sel, timeout)
	}
	return nil
}

func (s *httpSession) Count(ctx context.Context, sel locator.Selector) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	nodes, err := s.visible(sel)
	return len(nodes), err
}

func (s *httpSession) Matches(ctx context.Context, sel locator.Selector) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	nodes, err := s.query(sel)
	return len(nodes), err
}

func (s *httpSession) Fill(ctx context.Context, sel locator.Selector, value string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	n, err := s.firstVisible(sel)
	if err != nil {
		return err
	}
	switch n.Data {
	case "input":
		setAttr(n, "value", value)
	case "textarea":
		for c := n.FirstChild; c != nil; c = n.FirstChild {
			n.RemoveChild(c)
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
	default:
		return fmt.Errorf("cannot fill <%s> element: %s", n.Data, sel)
	}
	return nil
}

func (s *httpSession) Click(ctx context.Context, sel locator.Selector) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	n, err := s.firstVisible(sel)
	if err != nil {
		return err
	}

	if link := closest(n, "a"); link != nil && hasAttr(link, "href") {
		u, err := s.resolve(attr(link, "href"))
		if err != nil {
			return err
		}
		return s.load(ctx, http.MethodGet, u, nil)
	}

	// Without scripts only links and form submission do anything.
	submitter := closest(n, "button", "input")
	if submitter == nil || !isSubmitControl(submitter) {
		return fmt.Errorf("%w: <%s> is neither a link nor a submit control: %s", ErrUnsupported, n.Data, sel)
	}
	form := closest(submitter, "form")
	if form == nil {
		return fmt.Errorf("%w: submit control outside a form: %s", ErrUnsupported, sel)
	}
	return s.submit(ctx, form, submitter)
}

func (s *httpSession) submit(ctx context.Context, form, submitter *html.Node) error {
	method := strings.ToUpper(attr(form, "method"))
	if method != http.MethodPost {
		method = http.MethodGet
	}
	u, err := s.resolve(attr(form, "action"))
	if err != nil {
		return err
	}
	values := formValues(form)
	if name := attr(submitter, "name"); name != "" {
		values.Add(name, attr(submitter, "value"))
	}
	return s.load(ctx, method, u, values)
}

func (s *httpSession) Text(ctx context.Context, sel locator.Selector) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	nodes, err := s.query(sel)
	if err != nil {
		return "", err
	}
	if len(nodes) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, sel)
	}
	return normalizeSpace(htmlquery.InnerText(nodes[0])), nil
}

func (s *httpSession) Screenshot(context.Context, string) error {
	return ErrUnsupported
}

func (s *httpSession) Close() error {
	s.closed = true
	s.doc = nil
	return nil
}

// formValues collects the successful controls of form.
func formValues(form *html.Node) url.Values {
	values := url.Values{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && !hasAttr(n, "disabled") {
			name := attr(n, "name")
			switch {
			case name == "":
			case n.Data == "input":
				switch strings.ToLower(attr(n, "type")) {
				case "submit", "button", "image", "reset", "file":
				case "checkbox", "radio":
					if hasAttr(n, "checked") {
						v := attr(n, "value")
						if v == "" {
							v = "on"
						}
						values.Add(name, v)
					}
				default:
					values.Add(name, attr(n, "value"))
				}
			case n.Data == "textarea":
				values.Add(name, htmlquery.InnerText(n))
			case n.Data == "select":
				values.Add(name, selectedOption(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(form)
	return values
}

func selectedOption(sel *html.Node) string {
	options := htmlquery.Find(sel, ".//option")
	if len(options) == 0 {
		return ""
	}
	chosen := options[0]
	for _, o := range options {
		if hasAttr(o, "selected") {
			chosen = o
			break
		}
	}
	if hasAttr(chosen, "value") {
		return attr(chosen, "value")
	}
	return normalizeSpace(htmlquery.InnerText(chosen))
}

func isSubmitControl(n *html.Node) bool {
	typ := strings.ToLower(attr(n, "type"))
	switch n.Data {
	case "button":
		return typ == "" || typ == "submit"
	case "input":
		return typ == "submit" || typ == "image"
	}
	return false
}

var hiddenTags = map[string]bool{
	"head": true, "script": true, "style": true, "template": true,
	"title": true, "noscript": true,
}

// isVisible approximates rendering: an element is hidden when it or an
// ancestor is a non-rendered tag, carries the hidden attribute, or is styled
// display:none or visibility:hidden.
func isVisible(n *html.Node) bool {
	if n.Type == html.ElementNode && n.Data == "input" && strings.EqualFold(attr(n, "type"), "hidden") {
		return false
	}
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if hiddenTags[p.Data] || hasAttr(p, "hidden") {
			return false
		}
		style := strings.ReplaceAll(strings.ToLower(attr(p, "style")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

func closest(n *html.Node, tags ...string) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		for _, t := range tags {
			if p.Data == t {
				return p
			}
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
