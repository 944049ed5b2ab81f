package mak

import (
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// Param is one value captured from the request path.
type Param struct {
	Name  string
	Value string
}

// Params are the captured values in pattern order. A trailing * is
// captured under the name "*".
type Params []Param

// Get returns the named value, "" when there is none.
func (ps Params) Get(name string) string {
	v, _ := ps.Lookup(name)
	return v
}

// Lookup returns the named value and whether it was captured.
func (ps Params) Lookup(name string) (string, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Map keys the values by name.
func (ps Params) Map() map[string]string {
	m := make(map[string]string, len(ps))
	for _, p := range ps {
		m[p.Name] = p.Value
	}
	return m
}

// Route returns the pattern the router matched, "" before routing or when
// nothing matched.
func (c *Ctx) Route() string {
	return c.route
}

// Params returns the values captured by the matched route.
func (c *Ctx) Params() Params {
	return c.params
}

// Param returns a captured route value, "" when the route has none by
// that name.
func (c *Ctx) Param(name string) string {
	return c.params.Get(name)
}

// maxFormMemory is what multipart parsing keeps in memory before spilling
// file parts to disk.
const maxFormMemory = 32 << 20

// Form returns the fields of an urlencoded or multipart request body,
// parsed on first use. Uploaded files stay on c.R.MultipartForm.
func (c *Ctx) Form() url.Values {
	if c.form != nil {
		return c.form
	}

	c.form = url.Values{}
	if c.R.Body == nil || c.R.Method == http.MethodGet || c.R.Method == http.MethodHead {
		return c.form
	}

	mt, _, _ := mime.ParseMediaType(c.Header("Content-Type"))
	switch mt {
	case "application/x-www-form-urlencoded":
		if err := c.R.ParseForm(); err == nil {
			c.form = c.R.PostForm
		}
	case "multipart/form-data":
		if err := c.R.ParseMultipartForm(maxFormMemory); err == nil {
			c.form = url.Values(c.R.MultipartForm.Value)
		}
	}
	return c.form
}

// Inputs merges the route params, the query and the form body. Values
// keep that order, so the route's value comes first for a shared name.
func (c *Ctx) Inputs() url.Values {
	in := url.Values{}
	for _, p := range c.params {
		in.Add(p.Name, p.Value)
	}
	for _, vals := range []url.Values{c.QueryParams(), c.Form()} {
		for name, vs := range vals {
			in[name] = append(in[name], vs...)
		}
	}
	return in
}

// parseQuery splits a raw query on '&' alone, so a ';' stays part of the
// value it sits in. Pairs that do not unescape are skipped.
func parseQuery(raw string) url.Values {
	vals := url.Values{}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		name, err := url.QueryUnescape(name)
		if err != nil {
			continue
		}
		if value, err = url.QueryUnescape(value); err != nil {
			continue
		}
		vals.Add(name, value)
	}
	return vals
}
