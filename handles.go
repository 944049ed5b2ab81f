package mak

import (
	"net/http"
	"os"
	"strings"

	"github.com/SaulDoesCode/makexpress/transplacer"
)

// Handle routes method requests matching pattern to h, behind wares.
func (in *Instance) Handle(method, pattern string, h Handler, wares ...Middleware) {
	in.Router.Register(method, pattern, h, wares...)
}

func (in *Instance) GET(pattern string, h Handler, wares ...Middleware) {
	in.Handle(http.MethodGet, pattern, h, wares...)
}

func (in *Instance) HEAD(pattern string, h Handler, wares ...Middleware) {
	in.Handle(http.MethodHead, pattern, h, wares...)
}

func (in *Instance) POST(pattern string, h Handler, wares ...Middleware) {
	in.Handle(http.MethodPost, pattern, h, wares...)
}

func (in *Instance) PUT(pattern string, h Handler, wares ...Middleware) {
	in.Handle(http.MethodPut, pattern, h, wares...)
}

func (in *Instance) PATCH(pattern string, h Handler, wares ...Middleware) {
	in.Handle(http.MethodPatch, pattern, h, wares...)
}

func (in *Instance) DELETE(pattern string, h Handler, wares ...Middleware) {
	in.Handle(http.MethodDelete, pattern, h, wares...)
}

func (in *Instance) OPTIONS(pattern string, h Handler, wares ...Middleware) {
	in.Handle(http.MethodOptions, pattern, h, wares...)
}

// STATIC serves the files under root below prefix. When root is the
// configured asset directory the asset cache answers instead of the disk.
func (in *Instance) STATIC(prefix, root string, wares ...Middleware) {
	cached := in.Assets != nil && root == in.Config.Assets

	h := func(c *Ctx) error {
		file := c.Param("*")
		if !cached {
			return in.missing(c, c.WriteFile(transplacer.PrepPath(root, file)))
		}

		err := in.Assets.ServeFile(c.W, c.R, file)
		if err == nil {
			c.Written = true
			return nil
		}
		if err == in.Assets.NotFoundError {
			err = os.ErrNotExist
		}
		return in.missing(c, err)
	}

	pattern := strings.TrimSuffix(prefix, "/") + "/*"
	in.GET(pattern, h, wares...)
	in.HEAD(pattern, h, wares...)
}

// FILE serves one file at pattern.
func (in *Instance) FILE(pattern, filename string, wares ...Middleware) {
	h := func(c *Ctx) error {
		return in.missing(c, c.WriteFile(filename))
	}

	in.GET(pattern, h, wares...)
	in.HEAD(pattern, h, wares...)
}

// missing turns a file that does not exist into the NotFoundHandler's
// answer, or ErrNotFound without one.
func (in *Instance) missing(c *Ctx, err error) error {
	if !os.IsNotExist(err) {
		return err
	}
	if in.NotFoundHandler != nil {
		return in.NotFoundHandler(c)
	}
	return ErrNotFound.Envoy(c)
}
