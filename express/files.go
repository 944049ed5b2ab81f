package express

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SaulDoesCode/makexpress/transplacer"
)

// SendFileOptions tune SendFile.
type SendFileOptions struct {
	// Root makes relative paths resolve under it. Paths cannot climb out.
	Root string

	// Headers are set on the response before the file goes out.
	Headers map[string]string

	// MaxAge sets a public Cache-Control unless one is already set.
	MaxAge time.Duration
}

// SendFile responds with a file. Without a Root the path must be absolute,
// which is checked with a panic. Files under the instance's asset root are
// served from its asset cache, the rest straight off the disk.
//
// cb gets the outcome, including client aborts. Without cb a failure is
// kept as the response's error and reaches the host's error handling.
func (res *Response) SendFile(file string, opts *SendFileOptions, cb func(error)) {
	if file == "" {
		panic(argumentError("res.SendFile", "path argument is required"))
	}

	if opts == nil {
		opts = &SendFileOptions{}
	}

	if opts.Root == "" && !filepath.IsAbs(file) {
		panic(argumentError("res.SendFile", "path must be absolute or specify root"))
	}

	if opts.Root != "" {
		file = transplacer.PrepPath(opts.Root, file)
	}

	for name, v := range opts.Headers {
		res.SetHeader(name, v)
	}

	if opts.MaxAge > 0 && res.GetHeader("Cache-Control") == "" {
		res.SetHeader("Cache-Control", fmt.Sprintf("public, max-age=%d", int64(opts.MaxAge/time.Second)))
	}

	res.settle(res.sendFile(file), cb)
}

func (res *Response) sendFile(file string) error {
	if in := res.Instance(); in != nil && in.Assets != nil && in.Assets.Dir != "" &&
		strings.HasPrefix(file, in.Assets.Dir+string(filepath.Separator)) {
		err := in.Assets.ServeFile(res.W, res.R, file)
		if err == nil {
			res.Written = true
			return res.R.Context().Err()
		}
		if err != in.Assets.NotFoundError {
			return err
		}
		return os.ErrNotExist
	}

	if err := res.WriteFile(file); err != nil {
		return err
	}

	// The host stops copying when the client goes away; the request
	// context is what tells the two apart.
	return res.R.Context().Err()
}

func (res *Response) settle(err error, cb func(error)) {
	if cb != nil {
		cb(err)
		return
	}

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			res.Logger().Debug("file to send does not exist", "path", res.R.URL.Path, "err", err)
		}
		res.fail(err)
	}
}

// Download sends a file as an attachment named filename, or by its base
// name when filename is empty. Relative paths resolve against the working
// directory.
func (res *Response) Download(file, filename string, cb func(error)) {
	if filename == "" {
		filename = file
	}
	res.SetHeader("Content-Disposition", contentDisposition(filepath.Base(filename)))

	abs, err := filepath.Abs(file)
	if err != nil {
		res.settle(err, cb)
		return
	}
	res.SendFile(abs, nil, cb)
}

// Render renders a view with the response locals under locals. cb gets the
// output instead of it being sent; without cb the output is sent as html
// and a failure becomes the response's error.
func (res *Response) Render(view string, locals map[string]interface{}, cb func(string, error)) {
	out, err := res.RenderString(view, locals)
	if cb != nil {
		cb(out, err)
		return
	}

	if err != nil {
		res.fail(err)
		return
	}
	res.Send(out)
}
