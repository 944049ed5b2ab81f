package express

import (
	"fmt"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/SaulDoesCode/makexpress"
	"github.com/deckarep/golang-set"
)

// Cookie sets a cookie. Strings and numbers are stored as text, anything
// else as "j:" followed by its JSON; either way the value is URI component
// encoded. Unlike the host's cookie jar, HTTPOnly is off unless opts turns
// it on. Signing without Config.Keys panics with mak.ErrNoSigningKeys.
func (res *Response) Cookie(name string, value interface{}, opts ...*mak.CookieOptions) *Response {
	o := &mak.CookieOptions{}
	if len(opts) > 0 && opts[0] != nil {
		copied := *opts[0]
		o = &copied
	}

	if err := res.SetCookieOptions(name, encodeURIComponent(cookieValue(value)), o); err != nil {
		panic(err)
	}
	return res
}

func cookieValue(v interface{}) string {
	if v == nil {
		return "j:null"
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Ptr, reflect.Interface:
		b, err := jsonAPI.Marshal(v)
		if err != nil {
			panic(argumentError("res.Cookie", "value cannot be encoded: %v", err))
		}
		return "j:" + string(b)
	}
	return fmt.Sprint(v)
}

// ClearCookie expires a cookie at once. Path defaults to "/".
func (res *Response) ClearCookie(name string, opts ...*mak.CookieOptions) *Response {
	o := &mak.CookieOptions{}
	if len(opts) > 0 && opts[0] != nil {
		copied := *opts[0]
		o = &copied
	}

	o.Expires = time.Unix(0, 0).UTC()
	o.MaxAge = 0
	if o.Path == "" {
		o.Path = "/"
	}
	return res.Cookie(name, "", o)
}

// Location sets the Location header. "back" means the request's referrer,
// or "/" without one. The url is percent-encoded without touching escapes
// already in it.
func (res *Response) Location(url string) *Response {
	if url == "back" {
		url = res.Ctx.Get("Referrer")
		if url == "" {
			url = "/"
		}
	}

	res.SetHeader("Location", encodeURL(url))
	return res
}

// Redirect redirects to a url, with 302 Found unless a status is given.
//
//	Redirect(url)
//	Redirect(status, url)
//	Redirect(url, status)
func (res *Response) Redirect(args ...interface{}) *Response {
	code := http.StatusFound
	var target interface{}

	switch len(args) {
	case 1:
		target = args[0]
	case 2:
		target, code = splitStatus("res.Redirect", args, false)
	default:
		panic(argumentError("res.Redirect", "expected a url and an optional status"))
	}

	url, ok := target.(string)
	if !ok {
		panic(argumentError("res.Redirect", "url must be a string, got %T", target))
	}

	res.Location(url)
	res.SetStatus(code)
	res.fail(res.Ctx.Redirect(res.GetHeader("Location")))
	return res
}

// Attachment marks the response as a download. With a filename the
// Content-Type follows its extension and the name is put in the
// Content-Disposition.
func (res *Response) Attachment(filename ...string) *Response {
	name := ""
	if len(filename) > 0 && filename[0] != "" {
		name = filepath.Base(filename[0])
		res.Type(filepath.Ext(name))
	}

	res.SetHeader("Content-Disposition", contentDisposition(name))
	return res
}

// Vary adds fields to the Vary header, skipping those already there.
func (res *Response) Vary(fields ...string) *Response {
	current := res.GetHeader("Vary")
	if current == "*" {
		return res
	}

	seen := mapset.NewThreadUnsafeSet()
	list := []string{}
	add := func(header string) bool {
		for _, f := range strings.Split(header, ",") {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			if f == "*" {
				return false
			}
			if seen.Add(strings.ToLower(f)) {
				list = append(list, f)
			}
		}
		return true
	}

	add(current)
	for _, f := range fields {
		if !add(f) {
			res.SetHeader("Vary", "*")
			return res
		}
	}

	if len(list) > 0 {
		res.SetHeader("Vary", strings.Join(list, ", "))
	}
	return res
}

// Link is one entry of a Link header.
type Link struct {
	Rel string
	URL string
}

// Links adds entries to the Link header.
func (res *Response) Links(links ...Link) *Response {
	parts := []string{}
	if current := res.GetHeader("Link"); current != "" {
		parts = append(parts, current)
	}

	for _, l := range links {
		parts = append(parts, fmt.Sprintf(`<%s>; rel="%s"`, l.URL, l.Rel))
	}

	if len(parts) > 0 {
		res.SetHeader("Link", strings.Join(parts, ", "))
	}
	return res
}

// Formatter handles one representation for Format. Type "default" handles
// requests that accept none of the others.
type Formatter struct {
	Type   string
	Handle func()
}

// Format runs the formatter whose type the request accepts best and sets
// Content-Type to it. Without a match or a default the response fails with
// a 406 that lists the supported types.
func (res *Response) Format(formatters ...Formatter) *Response {
	offers := []string{}
	seen := mapset.NewThreadUnsafeSet()
	handlers := map[string]func(){}
	var fallback func()

	for _, f := range formatters {
		if f.Type == "default" {
			fallback = f.Handle
			continue
		}
		if seen.Add(f.Type) {
			offers = append(offers, f.Type)
			handlers[f.Type] = f.Handle
		}
	}

	res.Vary("Accept")

	if len(offers) > 0 {
		if key := res.Ctx.Accepts(offers...); key != "" {
			res.Type(key)
			handlers[key]()
			return res
		}
	}

	if fallback != nil {
		fallback()
		return res
	}

	supported := make([]string, 0, len(offers))
	for _, o := range offers {
		if !strings.Contains(o, "/") {
			if ct := mimeByExt(o); ct != "" {
				o = strings.SplitN(ct, ";", 2)[0]
			}
		}
		supported = append(supported, o)
	}

	res.fail(mak.ErrNotAcceptable.With("Not Acceptable. Supports: %s", strings.Join(supported, ", ")))
	return res
}
