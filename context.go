package mak

import (
	"log/slog"
	"net/http"
	"net/textproto"
	"net/url"
)

// Query returns the first value of a query parameter.
func (c *Ctx) Query(name string) string {
	return c.QueryParams().Get(name)
}

// QueryParams returns the parsed query. Pairs split on '&' only, so
// ?callback=a;b keeps "a;b" whole.
func (c *Ctx) QueryParams() url.Values {
	if c.query == nil {
		c.query = parseQuery(c.R.URL.RawQuery)
	}
	return c.query
}

// QueryString is the raw query, without the '?'.
func (c *Ctx) QueryString() string {
	return c.R.URL.RawQuery
}

// Cookie returns a request cookie's value, "" when it is absent.
func (c *Ctx) Cookie(name string) string {
	if cookie := c.GetCookie(name); cookie != nil {
		return cookie.Value
	}
	return ""
}

// GetCookie returns a request cookie, nil when it is absent.
func (c *Ctx) GetCookie(name string) *Cookie {
	cookie, err := c.R.Cookie(name)
	if err != nil {
		return nil
	}
	return cookie
}

func (c *Ctx) Cookies() []*Cookie {
	return c.R.Cookies()
}

// SetStatus chooses the response status.
func (c *Ctx) SetStatus(code int) {
	c.Status = code
	c.statusSet = true
}

// StatusSet reports whether a status was chosen for the response, as
// opposed to the instance's 404 default.
func (c *Ctx) StatusSet() bool {
	return c.statusSet
}

// Logger returns the serving instance's logger.
func (c *Ctx) Logger() *slog.Logger {
	if c.instance == nil || c.instance.Logger == nil {
		return slog.Default()
	}
	return c.instance.Logger
}

// Header reads a request header.
func (c *Ctx) Header(name string) string {
	return c.R.Header.Get(name)
}

// Headers are the request headers.
func (c *Ctx) Headers() http.Header {
	return c.R.Header
}

// GetHeader reads a response header set so far.
func (c *Ctx) GetHeader(name string) string {
	return c.W.Header().Get(name)
}

func (c *Ctx) SetHeader(name, value string) {
	c.W.Header().Set(name, value)
}

// SetHeaderValues replaces a response header with values. An empty list
// leaves the header alone.
func (c *Ctx) SetHeaderValues(name string, values []string) {
	if len(values) > 0 {
		c.W.Header()[textproto.CanonicalMIMEHeaderKey(name)] = values
	}
}

func (c *Ctx) DelHeader(name string) {
	c.W.Header().Del(name)
}

// ContentType is the response Content-Type set so far.
func (c *Ctx) ContentType() string {
	return c.GetHeader("Content-Type")
}

func (c *Ctx) SetContentType(ct string) {
	c.SetHeader("Content-Type", ct)
}
