package mak

import (
	"bytes"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cornelk/hashmap"
	"github.com/fsnotify/fsnotify"
)

// Views renders html/template files from a directory. With caching on,
// compiled templates are kept until their file changes.
type Views struct {
	Dir   string
	Ext   string
	Cache *hashmap.HashMap

	Watcher *fsnotify.Watcher

	logger *slog.Logger
}

// MakeViews prepares a view directory. When cache is false every render
// parses its template again.
func MakeViews(dir string, cache bool, logger *slog.Logger) *Views {
	if logger == nil {
		logger = slog.Default()
	}

	v := &Views{
		Dir:    dir,
		Ext:    ".html",
		logger: logger,
	}

	if !cache {
		return v
	}

	v.Cache = hashmap.New(32)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("view watcher unavailable, cached views will not reload", "err", err)
		return v
	}
	v.Watcher = w

	go func() {
		for {
			select {
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				v.logger.Debug("view changed", "file", e.Name, "op", e.Op.String())
				v.Cache.Del(e.Name)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				v.logger.Warn("view watcher error", "err", err)
			}
		}
	}()

	return v
}

// Lookup resolves a view name to its file, adding Ext when the name has no
// extension.
func (v *Views) Lookup(name string) (string, error) {
	file := name
	if filepath.Ext(file) == "" {
		file += v.Ext
	}

	if !filepath.IsAbs(file) {
		file = filepath.Join(v.Dir, filepath.Clean("/"+file))
	}

	if _, err := os.Stat(file); err != nil {
		return "", err
	}
	return file, nil
}

func (v *Views) template(file string) (*template.Template, error) {
	if v.Cache != nil {
		if t, ok := v.Cache.GetStringKey(file); ok {
			return t.(*template.Template), nil
		}
	}

	t, err := template.ParseFiles(file)
	if err != nil {
		return nil, err
	}

	if v.Cache != nil {
		v.Cache.Set(file, t)
		if v.Watcher != nil {
			v.Watcher.Add(file)
		}
	}
	return t, nil
}

// Render executes the named view with data.
func (v *Views) Render(name string, data interface{}) (string, error) {
	file, err := v.Lookup(name)
	if err != nil {
		return "", err
	}

	t, err := v.template(file)
	if err != nil {
		return "", err
	}

	buf := &bytes.Buffer{}
	if err := t.Execute(buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Close stops watching view files.
func (v *Views) Close() error {
	if v.Watcher != nil {
		return v.Watcher.Close()
	}
	return nil
}

// RenderString renders a view with the c's State merged under locals.
func (c *Ctx) RenderString(name string, locals map[string]interface{}) (string, error) {
	if c.instance == nil || c.instance.Views == nil {
		return "", ErrNoViews
	}

	data := make(map[string]interface{}, len(c.State)+len(locals))
	for k, val := range c.State {
		data[k] = val
	}
	for k, val := range locals {
		data[k] = val
	}

	return c.instance.Views.Render(strings.TrimPrefix(name, "/"), data)
}

// Render renders a view and responds with it as html.
func (c *Ctx) Render(name string, locals map[string]interface{}) error {
	out, err := c.RenderString(name, locals)
	if err != nil {
		return err
	}
	return c.WriteHTML(out)
}
