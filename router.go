package mak

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// Router matches request paths against patterns made of /-separated
// segments. A segment is literal text, a :name param or, in last place, a
// * that takes the rest of the path. Literal segments are tried before
// params and params before *, backing out of branches that dead-end.
type Router struct {
	root *node
}

type node struct {
	static   map[string]*node
	param    *node
	wildcard *node
	routes   map[string]*route
}

type route struct {
	pattern string
	names   []string
	handler Handler
}

// MakeRouter returns an empty Router.
func MakeRouter() *Router {
	return &Router{root: &node{}}
}

// Register adds h, behind wares, for method requests matching pattern.
// Malformed patterns and a second registration of the same method and
// shape panic.
func (r *Router) Register(method, pattern string, h Handler, wares ...Middleware) {
	segs, names, err := parsePattern(pattern)
	if err != nil {
		panic("mak: route " + pattern + ": " + err.Error())
	}

	n := r.root
	for _, seg := range segs {
		n = n.child(seg)
	}

	if n.routes == nil {
		n.routes = map[string]*route{}
	}
	if prev, dup := n.routes[method]; dup {
		panic("mak: route " + method + " " + pattern + " clashes with " + prev.pattern)
	}
	n.routes[method] = &route{pattern: pattern, names: names, handler: chain(h, wares)}
}

func (n *node) child(seg string) *node {
	switch {
	case seg == "*":
		if n.wildcard == nil {
			n.wildcard = &node{}
		}
		return n.wildcard
	case seg[0] == ':':
		if n.param == nil {
			n.param = &node{}
		}
		return n.param
	}

	if n.static == nil {
		n.static = map[string]*node{}
	}
	c, ok := n.static[seg]
	if !ok {
		c = &node{}
		n.static[seg] = c
	}
	return c
}

func parsePattern(pattern string) (segs, names []string, err error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, nil, errors.New("must start with /")
	}
	if strings.Contains(pattern, "//") {
		return nil, nil, errors.New("empty segment")
	}

	segs = splitPath(pattern)
	for i, seg := range segs {
		switch {
		case seg == "*":
			if i != len(segs)-1 {
				return nil, nil, errors.New("* must be the last segment")
			}
			names = append(names, "*")
		case seg[0] == ':':
			name := seg[1:]
			if name == "" || strings.ContainsAny(name, ":*") {
				return nil, nil, errors.New("bad param " + seg)
			}
			for _, seen := range names {
				if seen == name {
					return nil, nil, errors.New("param " + name + " used twice")
				}
			}
			names = append(names, name)
		case strings.ContainsAny(seg, ":*"):
			return nil, nil, errors.New("params and * take a whole segment")
		}
	}
	return segs, names, nil
}

// Route picks the handler for c's request and records the matched pattern
// and params on c. A path nothing matches gets ErrNotFound and a path
// matched for other methods ErrMethodNotAllowed, both through Envoy. HEAD
// falls back to a GET route.
func (r *Router) Route(c *Ctx) Handler {
	n, values := r.root.match(splitPath(c.R.URL.EscapedPath()), nil)
	if n == nil {
		return ErrNotFound.Envoy
	}

	rt := n.routes[c.R.Method]
	if rt == nil && c.R.Method == http.MethodHead {
		rt = n.routes[http.MethodGet]
	}
	if rt == nil {
		return ErrMethodNotAllowed.Envoy
	}

	c.route = rt.pattern
	c.params = make(Params, len(values))
	for i, v := range values {
		c.params[i] = Param{Name: rt.names[i], Value: v}
	}
	return rt.handler
}

func (n *node) match(segs, values []string) (*node, []string) {
	if len(segs) == 0 {
		if len(n.routes) > 0 {
			return n, values
		}
		if n.wildcard != nil && len(n.wildcard.routes) > 0 {
			return n.wildcard, append(values, "")
		}
		return nil, nil
	}

	seg, err := url.PathUnescape(segs[0])
	if err != nil {
		return nil, nil
	}

	if c := n.static[seg]; c != nil {
		if found, vs := c.match(segs[1:], values); found != nil {
			return found, vs
		}
	}
	if n.param != nil {
		if found, vs := n.param.match(segs[1:], append(values, seg)); found != nil {
			return found, vs
		}
	}
	if n.wildcard != nil && len(n.wildcard.routes) > 0 {
		if rest, err := url.PathUnescape(strings.Join(segs, "/")); err == nil {
			return n.wildcard, append(values, rest)
		}
	}
	return nil, nil
}

// splitPath drops empty segments, so doubled and trailing slashes do not
// change what a path matches.
func splitPath(p string) []string {
	segs := []string{}
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// StripPrefix matches p against prefix segment by segment, the way the
// router does, and returns what follows it rooted at "/". A trailing slash
// on p is kept.
func StripPrefix(prefix, p string) (string, bool) {
	pre, segs := splitPath(prefix), splitPath(p)
	if len(segs) < len(pre) {
		return p, false
	}
	for i, seg := range pre {
		if segs[i] != seg {
			return p, false
		}
	}

	rest := "/" + strings.Join(segs[len(pre):], "/")
	if rest != "/" && strings.HasSuffix(p, "/") {
		rest += "/"
	}
	return rest, true
}
