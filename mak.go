package mak

import (
	"net/http"
	"net/url"
)

// Ctx carries one request through the pre-middleware, the middleware and
// the routed handler.
type Ctx struct {
	R *http.Request
	W http.ResponseWriter

	// Status is sent by the first write. It stays the implicit 404 until
	// something sets it or writes content.
	Status        int
	ContentLength int64
	Written       bool

	// Respond is cleared by code that writes to W on its own, after which
	// the instance will not emit a response for this request.
	Respond bool

	// State is the per-request bag shared with views and downstream
	// handlers.
	State map[string]interface{}

	// BaseURL is the path prefix a mounted handler was matched under.
	BaseURL string

	instance  *Instance
	statusSet bool
	route     string
	params    Params
	query     url.Values
	form      url.Values
	values    map[interface{}]interface{}
}

// Cookie is http.Cookie.
type Cookie = http.Cookie

// Handler serves a request.
type Handler func(c *Ctx) error

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// NewCtx prepares a context for the request/response pair. Instance.ServeHTTP
// does this for every request; in may be nil for bare use.
func NewCtx(in *Instance, w http.ResponseWriter, r *http.Request) *Ctx {
	return &Ctx{
		R:        r,
		W:        w,
		Status:   http.StatusNotFound,
		Respond:  true,
		State:    map[string]interface{}{},
		instance: in,
	}
}

// Instance returns the instance serving the c, nil for a bare context.
func (c *Ctx) Instance() *Instance {
	return c.instance
}

// Config returns the serving instance's config, or the defaults when there
// is no instance.
func (c *Ctx) Config() *Config {
	if c.instance == nil || c.instance.Config == nil {
		return defaultConfig
	}
	return c.instance.Config
}

// Value returns a value stored on the c with SetValue.
func (c *Ctx) Value(key interface{}) interface{} {
	return c.values[key]
}

// SetValue stores a request scoped value on the c.
func (c *Ctx) SetValue(key, value interface{}) {
	if c.values == nil {
		c.values = map[interface{}]interface{}{}
	}
	c.values[key] = value
}

// chain puts h behind wares, the first ware outermost.
func chain(h Handler, wares []Middleware) Handler {
	for i := len(wares) - 1; i >= 0; i-- {
		h = wares[i](h)
	}
	return h
}

// HTTPMiddleware adapts net/http middleware. A request or writer it swaps
// in is carried on through c for the rest of the chain.
func HTTPMiddleware(m func(http.Handler) http.Handler) Middleware {
	return func(next Handler) Handler {
		return func(c *Ctx) (err error) {
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.W, c.R = w, r
				err = next(c)
			})
			m(inner).ServeHTTP(c.W, c.R)
			return err
		}
	}
}
