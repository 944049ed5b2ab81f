package mak

import (
	"crypto/sha256"
	"fmt"
	"html/template"
	"io"
	"io/ioutil"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/SaulDoesCode/makexpress/transplacer"
)

// WriteFile answers with a file off the disk. Content-Type comes from the
// extension, and a sha256 ETag and Last-Modified are added unless already
// set. A directory answers with its index.html once the request path ends
// in a slash, and is redirected there otherwise.
func (c *Ctx) WriteFile(name string) error {
	name, err := filepath.Abs(name)
	if err != nil {
		return err
	}
	fi, err := os.Stat(name)
	if err != nil {
		return err
	}

	if fi.IsDir() {
		if p := c.R.URL.Path; !strings.HasSuffix(p, "/") {
			target := path.Base(p) + "/"
			if q := c.R.URL.RawQuery; q != "" {
				target += "?" + q
			}
			c.SetStatus(http.StatusMovedPermanently)
			return c.Redirect(target)
		}
		name = filepath.Join(name, "index.html")
	}

	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if fi, err = f.Stat(); err != nil {
		return err
	}

	h := c.W.Header()
	if h.Get("Content-Type") == "" {
		if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
			h.Set("Content-Type", ct)
		}
	}
	if h.Get("Last-Modified") == "" {
		h.Set("Last-Modified", fi.ModTime().UTC().Format(http.TimeFormat))
	}
	if h.Get("ETag") == "" {
		sum := sha256.New()
		if _, err := io.Copy(sum, f); err != nil {
			return err
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		h.Set("ETag", fmt.Sprintf(`"%x"`, sum.Sum(nil)))
		if h.Get("Cache-Control") == "" {
			h.Set("Cache-Control", "private, must-revalidate")
		}
	}

	if filepath.Ext(name) == ".html" && c.autoPush() {
		page, err := ioutil.ReadAll(f)
		if err != nil {
			return err
		}
		return c.WriteHTML(string(page))
	}
	return c.WriteContent(f)
}

func (c *Ctx) autoPush() bool {
	return c.instance != nil && c.instance.Config.AutoPush
}

// WriteHTML answers with the page h. With Config.AutoPush on, HTTP/2
// clients are pushed the page's absolute links first.
func (c *Ctx) WriteHTML(h string) error {
	if c.autoPush() && c.R.ProtoMajor == 2 {
		targets, err := transplacer.Pushables(h)
		if err != nil {
			return err
		}
		for _, target := range targets {
			if err := c.Push(target, nil); err != nil {
				c.Logger().Debug("http2 push failed", "target", target, "err", err)
			}
		}
	}

	c.SetContentType("text/html; charset=utf-8")
	return c.WriteBlob([]byte(h))
}

// Redirect sends the client to url, used as given. A 3xx status already
// chosen is kept, anything else becomes 302. The short body is html when
// the client prefers it and plain text otherwise.
func (c *Ctx) Redirect(url string) error {
	if c.Status/100 != 3 {
		c.SetStatus(http.StatusFound)
	}
	c.SetHeader("Location", url)
	if c.R.Method == http.MethodHead {
		return c.WriteContent(nil)
	}

	msg := http.StatusText(c.Status) + ". Redirecting to "
	if c.Accepts("text/plain", "text/html") == "text/html" {
		u := template.HTMLEscapeString(url)
		c.SetContentType("text/html; charset=utf-8")
		return c.WriteBlob([]byte("<p>" + msg + `<a href="` + u + `">` + u + "</a></p>"))
	}

	c.SetContentType("text/plain; charset=utf-8")
	return c.WriteBlob([]byte(msg + url))
}

// Push promises target to an HTTP/2 client. Writers that cannot push make
// it a no-op.
func (c *Ctx) Push(target string, headers http.Header) error {
	c.Logger().Debug("http2 push", "target", target)
	return transplacer.HTTP2Push(c.W, target, headers)
}
