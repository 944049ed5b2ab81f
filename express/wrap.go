// Package express runs handlers written against the express req/res API
// on a mak instance.
//
//	in.Use(express.Wrap(func(req *express.Request, res *express.Response, next func(error)) {
//		res.Set("X-Powered-By", "mak")
//		next(nil)
//	}))
package express

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/SaulDoesCode/makexpress"
)

// Handler answers a request without handing it on.
type Handler func(req *Request, res *Response)

// NextHandler may hand the request on with next(nil) or fail it with
// next(err).
type NextHandler func(req *Request, res *Response, next func(error))

type facadeKey struct{}

type facades struct {
	req *Request
	res *Response
}

// Inject returns the Request and Response of c, making them on first use.
// Every bridge layer on the same request shares the pair.
func Inject(c *mak.Ctx) (*Request, *Response) {
	if f, ok := c.Value(facadeKey{}).(*facades); ok {
		return f.req, f.res
	}

	req := &Request{Ctx: c}
	res := &Response{Ctx: c, Req: req}
	req.Res = res

	c.SetValue(facadeKey{}, &facades{req: req, res: res})
	return req, res
}

// Wrap turns a Handler or NextHandler into mak middleware. Anything else
// panics.
//
// While the host still holds its implicit 404 the status becomes 200 before
// the handler runs. A Handler ends the chain. A NextHandler is waited on
// until it calls next or the request's context is done, unless it already
// answered the request, in which case the chain ends there. next(nil) runs
// the rest of the chain and next(err) returns err to the host. Errors kept by
// the Response and panics in the handler are returned the same way.
func Wrap(fn interface{}) mak.Middleware {
	switch h := fn.(type) {
	case Handler:
		return wrapHandler(h)
	case func(*Request, *Response):
		return wrapHandler(h)
	case NextHandler:
		return wrapNextHandler(h)
	case func(*Request, *Response, func(error)):
		return wrapNextHandler(h)
	}
	panic(argumentError("express.Wrap", "unsupported handler type %T", fn))
}

// Handle is Wrap for use as a route handler.
func Handle(fn interface{}) mak.Handler {
	return Wrap(fn)(func(*mak.Ctx) error { return nil })
}

func wrapHandler(h Handler) mak.Middleware {
	return func(next mak.Handler) mak.Handler {
		return func(c *mak.Ctx) error {
			req, res := prepare(c)
			if err := run(func() { h(req, res) }); err != nil {
				return err
			}
			return res.Err()
		}
	}
}

func wrapNextHandler(h NextHandler) mak.Middleware {
	return func(next mak.Handler) mak.Handler {
		return func(c *mak.Ctx) error {
			req, res := prepare(c)

			done := make(chan error, 1)
			once := sync.Once{}
			resume := func(err error) {
				once.Do(func() { done <- err })
			}

			if err := run(func() { h(req, res, resume) }); err != nil {
				return err
			}

			select {
			case err := <-done:
				if err != nil {
					return err
				}
			default:
				// Answered without calling next: the request is finished.
				if res.Written || !res.Respond {
					return res.Err()
				}
				select {
				case err := <-done:
					if err != nil {
						return err
					}
				case <-c.R.Context().Done():
					return c.R.Context().Err()
				}
			}

			if err := res.Err(); err != nil {
				return err
			}
			return next(c)
		}
	}
}

func prepare(c *mak.Ctx) (*Request, *Response) {
	if !c.StatusSet() && c.Status == http.StatusNotFound {
		c.Status = http.StatusOK
	}
	return Inject(c)
}

// run calls f, turning a panic into an error.
func run(f func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if r == http.ErrAbortHandler {
			panic(r)
		}
		err = toError(r)
	}()

	f()
	return nil
}

// Mount runs a Handler or NextHandler only for paths under prefix, matched
// segment-wise as the router does. Inside it the request path is relative to prefix and BaseURL carries the prefix;
// both are restored before the chain moves on.
func Mount(prefix string, fn interface{}) mak.Middleware {
	prefix = "/" + strings.Trim(prefix, "/")
	wrapped := Wrap(fn)

	return func(next mak.Handler) mak.Handler {
		return func(c *mak.Ctx) error {
			rest, ok := mak.StripPrefix(prefix, c.R.URL.Path)
			if !ok {
				return next(c)
			}

			path, rawPath, base := c.R.URL.Path, c.R.URL.RawPath, c.BaseURL
			restore := func() {
				c.R.URL.Path, c.R.URL.RawPath, c.BaseURL = path, rawPath, base
			}

			if prefix != "/" {
				c.R.URL.Path = rest
				c.R.URL.RawPath = ""
				c.BaseURL = base + prefix
			}

			err := wrapped(func(c *mak.Ctx) error {
				restore()
				return next(c)
			})(c)

			restore()
			return err
		}
	}
}

// IsArgumentError reports whether err is a caller input error raised by a
// Request or Response method.
func IsArgumentError(err error) bool {
	var ae *ArgumentError
	return errors.As(err, &ae)
}
