package express

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SaulDoesCode/makexpress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handled(conf *mak.Config, h Handler) (*mak.Instance, *[]error) {
	in, errs := app(conf)
	in.Use(Wrap(h))
	return in, errs
}

func TestResponseSet(t *testing.T) {
	cases := []struct {
		name   string
		set    func(res *Response)
		header string
		want   []string
	}{
		{"plain", func(res *Response) { res.Set("X-Number", 123) }, "X-Number", []string{"123"}},
		{"multi", func(res *Response) { res.Set("X-Multi", []string{"a", "b"}) }, "X-Multi", []string{"a", "b"}},
		{"charset added", func(res *Response) { res.Set("Content-Type", "text/x-foo") }, "Content-Type", []string{"text/x-foo; charset=utf-8"}},
		{"charset kept", func(res *Response) { res.Set("Content-Type", "text/plain; charset=iso-8859-1") }, "Content-Type", []string{"text/plain; charset=iso-8859-1"}},
		{"no charset for binary", func(res *Response) { res.Set("Content-Type", "image/png") }, "Content-Type", []string{"image/png"}},
		{"map", func(res *Response) { res.SetHeaders(map[string]interface{}{"X-Foo": "bar", "X-Bar": "baz"}) }, "X-Foo", []string{"bar"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, _ := handled(nil, func(req *Request, res *Response) {
				tc.set(res)
				res.End()
			})

			res := get(in, "/")
			assert.Equal(t, tc.want, res.Header.Values(tc.header))
		})
	}
}

func TestResponseSetContentTypeArray(t *testing.T) {
	in, errs := handled(nil, func(req *Request, res *Response) {
		res.Set("Content-Type", []string{"text/html"})
	})

	res := get(in, "/")
	assert.Equal(t, 500, res.StatusCode)
	require.Len(t, *errs, 1)
	assert.True(t, IsArgumentError((*errs)[0]))
}

func TestResponseGet(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.Set("Content-Type", "text/x-foo")
		res.End(res.Get("content-type") + "|" + res.Get("X-Missing"))
	})

	assert.Equal(t, "text/x-foo; charset=utf-8|", readBody(t, get(in, "/")))
}

func TestResponseSendString(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.Send("<p>hey</p>")
	})

	res := get(in, "/")
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", res.Header.Get("Content-Type"))
	assert.Equal(t, "<p>hey</p>", readBody(t, res))
}

func TestResponseSendOverridesCharset(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.Set("Content-Type", "text/plain; charset=iso-8859-1").Send("hey")
	})

	res := get(in, "/")
	assert.Equal(t, "text/plain; charset=utf-8", res.Header.Get("Content-Type"))
	assert.Equal(t, "hey", readBody(t, res))
}

func TestResponseSendBytes(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.Send([]byte("hello"))
	})

	res := get(in, "/")
	assert.Equal(t, "application/octet-stream", res.Header.Get("Content-Type"))
	assert.Equal(t, "hello", readBody(t, res))

	in, _ = handled(nil, func(req *Request, res *Response) {
		res.Set("Content-Type", "text/plain; charset=iso-8859-1").Send([]byte("hi"))
	})

	res = get(in, "/")
	assert.Equal(t, "text/plain; charset=iso-8859-1", res.Header.Get("Content-Type"))
	assert.Equal(t, "hi", readBody(t, res))
}

func TestResponseSendEmpty(t *testing.T) {
	for _, body := range []interface{}{nil, "", []byte{}} {
		in, _ := handled(nil, func(req *Request, res *Response) {
			res.Send(body)
		})

		res := get(in, "/")
		assert.Equal(t, 200, res.StatusCode)
		assert.Equal(t, "0", res.Header.Get("Content-Length"))
		assert.Equal(t, "", readBody(t, res))
	}
}

func TestResponseSendStatus(t *testing.T) {
	cases := []struct {
		name string
		args []interface{}
		code int
		body string
	}{
		{"status only", []interface{}{201}, 201, "Created"},
		{"status first", []interface{}{201, "made"}, 201, "made"},
		{"status last", []interface{}{"made", 201}, 201, "made"},
		{"float status", []interface{}{202.0}, 202, "Accepted"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, _ := handled(nil, func(req *Request, res *Response) {
				res.Send(tc.args...)
			})

			res := get(in, "/")
			assert.Equal(t, tc.code, res.StatusCode)
			assert.Equal(t, tc.body, readBody(t, res))
		})
	}
}

func TestResponseSendStatusText(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.Send(201)
	})

	res := get(in, "/")
	assert.Equal(t, "text/plain; charset=utf-8", res.Header.Get("Content-Type"))
}

func TestResponseSendJSON(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.Send(map[string]string{"name": "tobi"})
	})

	res := get(in, "/")
	assert.Equal(t, "application/json; charset=utf-8", res.Header.Get("Content-Type"))
	assert.Equal(t, `{"name":"tobi"}`, readBody(t, res))
}

func TestResponseSendETag(t *testing.T) {
	cases := []struct {
		name string
		body interface{}
		want string
	}{
		{"string", "kajdslfkasdf", `W/"c-IgR/L5SF7CJQff4wxKGF/vfPuZ0"`},
		{"long string", strings.Repeat("-", 999), `W/"3e7-qPnkJ3CVdVhFJQvUBfF10TmVA7g"`},
		{"bytes", []byte(strings.Repeat("-", 999)), `W/"3e7-qPnkJ3CVdVhFJQvUBfF10TmVA7g"`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, _ := handled(&mak.Config{ETag: true}, func(req *Request, res *Response) {
				res.Send(tc.body)
			})
			assert.Equal(t, tc.want, get(in, "/").Header.Get("ETag"))
		})
	}

	in, _ := handled(nil, func(req *Request, res *Response) {
		res.Send("kajdslfkasdf")
	})
	assert.Empty(t, get(in, "/").Header.Get("ETag"))

	in, _ = handled(&mak.Config{ETag: true}, func(req *Request, res *Response) {
		res.Set("ETag", `"custom"`).Send("kajdslfkasdf")
	})
	assert.Equal(t, `"custom"`, get(in, "/").Header.Get("ETag"))
}

func TestResponseSendBodilessStatus(t *testing.T) {
	for _, code := range []int{204, 304} {
		in, _ := handled(nil, func(req *Request, res *Response) {
			res.Status(code).Set("Transfer-Encoding", "chunked").Send("foo")
		})

		res := get(in, "/")
		assert.Equal(t, code, res.StatusCode)
		assert.Empty(t, res.Header.Get("Content-Type"))
		assert.Empty(t, res.Header.Get("Content-Length"))
		assert.Empty(t, res.Header.Get("Transfer-Encoding"))
		assert.Equal(t, "", readBody(t, res))
	}
}

func TestResponseSendFresh(t *testing.T) {
	const tag = `W/"c-IgR/L5SF7CJQff4wxKGF/vfPuZ0"`

	in, _ := handled(&mak.Config{ETag: true}, func(req *Request, res *Response) {
		res.Send("kajdslfkasdf")
	})

	res := get(in, "/", "If-None-Match", tag)
	assert.Equal(t, 304, res.StatusCode)
	assert.Equal(t, "", readBody(t, res))

	in, _ = handled(&mak.Config{ETag: true}, func(req *Request, res *Response) {
		res.Status(500).Send("kajdslfkasdf")
	})

	res = get(in, "/", "If-None-Match", tag)
	assert.Equal(t, 500, res.StatusCode)
	assert.Equal(t, "kajdslfkasdf", readBody(t, res))
}

func TestResponseSendHead(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.Send("yay")
	})

	res := serve(in, newRequest("HEAD", "/", nil))
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "3", res.Header.Get("Content-Length"))
	assert.Equal(t, "", readBody(t, res))
}

func TestResponseJSON(t *testing.T) {
	cases := []struct {
		name string
		args []interface{}
		code int
		body string
	}{
		{"nil", []interface{}{nil}, 200, `null`},
		{"number", []interface{}{300}, 200, `300`},
		{"string", []interface{}{"str"}, 200, `"str"`},
		{"array", []interface{}{[]string{"foo", "bar", "baz"}}, 200, `["foo","bar","baz"]`},
		{"sorted keys", []interface{}{map[string]int{"b": 2, "a": 1}}, 200, `{"a":1,"b":2}`},
		{"status first", []interface{}{201, map[string]string{"id": "1"}}, 201, `{"id":"1"}`},
		{"status last", []interface{}{map[string]string{"id": "1"}, 201}, 201, `{"id":"1"}`},
		{"two numbers", []interface{}{200, 201}, 201, `200`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, _ := handled(nil, func(req *Request, res *Response) {
				res.JSON(tc.args...)
			})

			res := get(in, "/")
			assert.Equal(t, tc.code, res.StatusCode)
			assert.Equal(t, "application/json; charset=utf-8", res.Header.Get("Content-Type"))
			assert.Equal(t, tc.body, readBody(t, res))
		})
	}
}

func TestResponseJSONKeepsContentType(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.Set("Content-Type", "application/vnd.example+json").JSON(map[string]string{"hello": "world"})
	})

	res := get(in, "/")
	assert.Equal(t, "application/vnd.example+json", res.Header.Get("Content-Type"))
	assert.Equal(t, `{"hello":"world"}`, readBody(t, res))
}

func TestResponseJSONSettings(t *testing.T) {
	in, _ := handled(&mak.Config{JSONEscape: true}, func(req *Request, res *Response) {
		res.JSON(map[string]string{"html": "<script>&"})
	})
	assert.Equal(t, `{"html":"\u003cscript\u003e\u0026"}`, readBody(t, get(in, "/")))

	in, _ = handled(&mak.Config{JSONSpaces: 2}, func(req *Request, res *Response) {
		res.JSON(map[string]string{"name": "tobi"})
	})
	assert.Contains(t, readBody(t, get(in, "/")), "\n  \"name\"")
}

func TestResponseJSONTooManyArgs(t *testing.T) {
	in, errs := handled(nil, func(req *Request, res *Response) {
		res.JSON(1, 2, 3)
	})

	assert.Equal(t, 500, get(in, "/").StatusCode)
	require.Len(t, *errs, 1)
	assert.True(t, IsArgumentError((*errs)[0]))
}

func TestResponseJSONP(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.JSONP(map[string]int{"count": 1})
	})

	res := get(in, "/?callback=something")
	assert.Equal(t, "text/javascript; charset=utf-8", res.Header.Get("Content-Type"))
	assert.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, `/**/ typeof something === 'function' && something({"count":1});`, readBody(t, res))

	res = get(in, "/?callback=window.info.callback")
	assert.Contains(t, readBody(t, res), "typeof window.info.callback === 'function'")

	res = get(in, "/?callback=foo;bar()")
	assert.Contains(t, readBody(t, res), "typeof foobar === 'function'")

	res = get(in, "/")
	assert.Equal(t, "application/json; charset=utf-8", res.Header.Get("Content-Type"))
	assert.Equal(t, `{"count":1}`, readBody(t, res))
}

func TestResponseJSONMaps(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.JSON(map[string]interface{}{
			"b": map[string]int{"y": 2, "x": 1},
			"a": []interface{}{map[string]bool{"ok": true}},
		})
	})

	res := get(in, "/")
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, `{"a":[{"ok":true}],"b":{"x":1,"y":2}}`, readBody(t, res))

	res = get(in, "/?callback=cb;alert(1)")
	assert.Equal(t, `/**/ typeof cbalert1 === 'function' && cbalert1({"a":[{"ok":true}],"b":{"x":1,"y":2}});`, readBody(t, res))
}

func TestResponseJSONPEscapesSeparators(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.JSONP(map[string]string{"str": "\u2028 \u2029 woot"})
	})

	body := readBody(t, get(in, "/?callback=foo"))
	assert.Contains(t, body, `\u2028 \u2029 woot`)
	assert.NotContains(t, body, "\u2028")
	assert.NotContains(t, body, "\u2029")
}

func TestResponseJSONPCallbackName(t *testing.T) {
	in, _ := handled(&mak.Config{JSONPCallbackName: "clb"}, func(req *Request, res *Response) {
		res.JSONP(map[string]int{"count": 1})
	})

	assert.Equal(t, `/**/ typeof thing === 'function' && thing({"count":1});`, readBody(t, get(in, "/?clb=thing")))
}

func TestResponseEnd(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.Status(202).End("done")
		res.Send("ignored")
	})

	res := get(in, "/")
	assert.Equal(t, 202, res.StatusCode)
	assert.Equal(t, "4", res.Header.Get("Content-Length"))
	assert.Equal(t, "done", readBody(t, res))
}

func TestResponseType(t *testing.T) {
	cases := map[string]string{
		"json":                         "application/json",
		".png":                         "image/png",
		"html":                         "text/html; charset=utf-8",
		"file.txt":                     "text/plain; charset=utf-8",
		"application/vnd.amazon.ebook": "application/vnd.amazon.ebook",
		"bogus":                        "application/octet-stream",
	}

	for in, want := range cases {
		_, res := Inject(mak.NewCtx(nil, httptest.NewRecorder(), newRequest("GET", "/", nil)))

		res.Type(in)
		assert.True(t, strings.HasPrefix(res.Get("Content-Type"), want), "%s gave %s", in, res.Get("Content-Type"))
	}
}

func TestResponseSendStatusHelper(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.SendStatus(http.StatusTeapot)
	})

	res := get(in, "/")
	assert.Equal(t, 418, res.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", res.Header.Get("Content-Type"))
	assert.Equal(t, "I'm a teapot", readBody(t, res))

	in, _ = handled(nil, func(req *Request, res *Response) {
		res.SendStatus(599)
	})
	assert.Equal(t, "599", readBody(t, get(in, "/")))
}

func TestResponseCookie(t *testing.T) {
	cases := []struct {
		name  string
		set   func(res *Response)
		wants []string
	}{
		{"string", func(res *Response) { res.Cookie("name", "tobi") }, []string{"name=tobi; Path=/"}},
		{"object", func(res *Response) { res.Cookie("user", map[string]string{"name": "tobi"}) }, []string{"user=j%3A%7B%22name%22%3A%22tobi%22%7D; Path=/"}},
		{"number", func(res *Response) { res.Cookie("n", 7) }, []string{"n=7; Path=/"}},
		{"options", func(res *Response) {
			res.Cookie("name", "tobi", &mak.CookieOptions{Secure: true, HTTPOnly: true})
		}, []string{"name=tobi; Path=/; HttpOnly; Secure"}},
		{"clear", func(res *Response) { res.ClearCookie("sid") }, []string{"sid=; Path=/; Expires=Thu, 01 Jan 1970 00:00:00 GMT"}},
		{"clear with path", func(res *Response) {
			res.ClearCookie("sid", &mak.CookieOptions{Path: "/admin"})
		}, []string{"sid=; Path=/admin; Expires=Thu, 01 Jan 1970 00:00:00 GMT"}},
		{"several", func(res *Response) { res.Cookie("a", "1").Cookie("b", "2") }, []string{"a=1; Path=/", "b=2; Path=/"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, _ := handled(nil, func(req *Request, res *Response) {
				tc.set(res)
				res.End()
			})
			assert.Equal(t, tc.wants, get(in, "/").Header.Values("Set-Cookie"))
		})
	}
}

func TestResponseCookieMaxAge(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.Cookie("name", "tobi", &mak.CookieOptions{MaxAge: time.Second})
		res.End()
	})

	cookie := get(in, "/").Header.Get("Set-Cookie")
	assert.Contains(t, cookie, "Max-Age=1")
	assert.Contains(t, cookie, "Expires=")
}

func TestResponseCookieOptionsNotMutated(t *testing.T) {
	opts := &mak.CookieOptions{}
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.ClearCookie("a", opts)
		res.End()
	})

	get(in, "/")
	assert.Equal(t, "", opts.Path)
	assert.True(t, opts.Expires.IsZero())
}

func TestResponseSignedCookie(t *testing.T) {
	in, _ := handled(&mak.Config{Keys: []string{"tobiiscool"}}, func(req *Request, res *Response) {
		if v, ok := req.SignedCookie("name"); ok {
			res.End("verified " + v)
			return
		}
		res.Cookie("name", "tobi", &mak.CookieOptions{Signed: true})
		res.End()
	})

	cookies := get(in, "/").Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "name", cookies[0].Name)
	assert.Equal(t, "name.sig", cookies[1].Name)

	req := newRequest("GET", "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	assert.Equal(t, "verified tobi", readBody(t, serve(in, req)))

	req = newRequest("GET", "/", nil)
	req.AddCookie(cookies[0])
	req.AddCookie(&http.Cookie{Name: "name.sig", Value: "forged"})
	assert.NotContains(t, readBody(t, serve(in, req)), "verified")
}

func TestResponseSignedCookieWithoutKeys(t *testing.T) {
	in, errs := handled(nil, func(req *Request, res *Response) {
		res.Cookie("name", "tobi", &mak.CookieOptions{Signed: true})
		res.End()
	})

	res := get(in, "/")
	assert.Equal(t, 500, res.StatusCode)
	assert.Contains(t, readBody(t, res), "Config.Keys")
	require.Len(t, *errs, 1)
	assert.Equal(t, mak.ErrNoSigningKeys, (*errs)[0])
}

func TestResponseLocation(t *testing.T) {
	cases := []struct {
		url     string
		headers []string
		want    string
	}{
		{"http://google.com", nil, "http://google.com"},
		{"https://google.com?q=☃ §10", nil, "https://google.com?q=%E2%98%83%20%C2%A710"},
		{"https://google.com?q=%A710", nil, "https://google.com?q=%A710"},
		{"back", nil, "/"},
		{"back", []string{"Referer", "/some/page.html"}, "/some/page.html"},
		{"back", []string{"Referrer", "/other/page.html"}, "/other/page.html"},
	}

	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			in, _ := handled(nil, func(req *Request, res *Response) {
				res.Location(tc.url).End()
			})
			assert.Equal(t, tc.want, get(in, "/", tc.headers...).Header.Get("Location"))
		})
	}
}

func TestResponseRedirect(t *testing.T) {
	cases := []struct {
		name   string
		args   []interface{}
		accept string
		code   int
		body   string
	}{
		{"text", []interface{}{"http://google.com"}, "", 302, "Found. Redirecting to http://google.com"},
		{"html", []interface{}{"http://google.com"}, "text/html", 302,
			`<p>Found. Redirecting to <a href="http://google.com">http://google.com</a></p>`},
		{"status first", []interface{}{301, "http://google.com"}, "text/html", 301,
			`<p>Moved Permanently. Redirecting to <a href="http://google.com">http://google.com</a></p>`},
		{"status last", []interface{}{"http://google.com", 301}, "text/plain", 301, "Moved Permanently. Redirecting to http://google.com"},
		{"escaped", []interface{}{"<la'me>"}, "text/html", 302,
			`<p>Found. Redirecting to <a href="%3Cla&#39;me%3E">%3Cla&#39;me%3E</a></p>`},
		{"encoded text", []interface{}{`http://example.com/?param=<script>alert("hax");</script>`}, "text/plain", 302,
			`Found. Redirecting to http://example.com/?param=%3Cscript%3Ealert(%22hax%22);%3C/script%3E`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, _ := handled(nil, func(req *Request, res *Response) {
				res.Redirect(tc.args...)
			})

			var headers []string
			if tc.accept != "" {
				headers = []string{"Accept", tc.accept}
			}

			res := get(in, "/", headers...)
			assert.Equal(t, tc.code, res.StatusCode)
			assert.NotEmpty(t, res.Header.Get("Location"))
			assert.Equal(t, tc.body, readBody(t, res))
		})
	}
}

func TestResponseRedirectHead(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.Redirect("http://google.com")
	})

	res := serve(in, newRequest("HEAD", "/", nil))
	assert.Equal(t, 302, res.StatusCode)
	assert.Equal(t, "http://google.com", res.Header.Get("Location"))
	assert.Equal(t, "0", res.Header.Get("Content-Length"))
	assert.Empty(t, res.Header.Get("Content-Type"))
	assert.Equal(t, "", readBody(t, res))
}

func TestResponseRedirectBadArgs(t *testing.T) {
	for _, args := range [][]interface{}{{}, {"a", "b"}, {301}} {
		in, errs := handled(nil, func(req *Request, res *Response) {
			res.Redirect(args...)
		})

		assert.Equal(t, 500, get(in, "/").StatusCode)
		require.Len(t, *errs, 1)
		assert.True(t, IsArgumentError((*errs)[0]))
	}
}

func TestResponseVary(t *testing.T) {
	cases := []struct {
		name   string
		fields [][]string
		want   string
	}{
		{"single", [][]string{{"Origin"}}, "Origin"},
		{"deduped", [][]string{{"Accept"}, {"Accept-Encoding, accept"}}, "Accept, Accept-Encoding"},
		{"star", [][]string{{"Origin"}, {"*"}}, "*"},
		{"after star", [][]string{{"*"}, {"Origin"}}, "*"},
		{"nothing", [][]string{{}}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, _ := handled(nil, func(req *Request, res *Response) {
				for _, f := range tc.fields {
					res.Vary(f...)
				}
				res.End()
			})
			assert.Equal(t, tc.want, get(in, "/").Header.Get("Vary"))
		})
	}
}

func TestResponseLinks(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.Links(
			Link{Rel: "next", URL: "http://api.example.com/users?page=2"},
			Link{Rel: "last", URL: "http://api.example.com/users?page=5"},
		).Links(Link{Rel: "prev", URL: "http://api.example.com/users?page=1"})
		res.End()
	})

	assert.Equal(t, `<http://api.example.com/users?page=2>; rel="next", `+
		`<http://api.example.com/users?page=5>; rel="last", `+
		`<http://api.example.com/users?page=1>; rel="prev"`,
		get(in, "/").Header.Get("Link"))
}

func TestResponseAppend(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.Append("Link", "<http://localhost/>").
			Append("Link", []string{"<http://localhost:80/>", "<http://localhost:8080/>"})
		res.Cookie("foo", "bar").Append("Set-Cookie", "bar=baz")
		res.End()
	})

	res := get(in, "/")
	assert.Equal(t, []string{"<http://localhost/>", "<http://localhost:80/>", "<http://localhost:8080/>"}, res.Header.Values("Link"))
	assert.Equal(t, []string{"foo=bar; Path=/", "bar=baz"}, res.Header.Values("Set-Cookie"))
}

func TestResponseAttachment(t *testing.T) {
	cases := []struct {
		name        string
		filename    []string
		disposition string
		contentType string
	}{
		{"bare", nil, "attachment", ""},
		{"named", []string{"/path/to/image.png"}, `attachment; filename="image.png"`, "image/png"},
		{"unicode", []string{"/locales/日本語.txt"},
			`attachment; filename="???.txt"; filename*=UTF-8''%E6%97%A5%E6%9C%AC%E8%AA%9E.txt`,
			"text/plain; charset=utf-8"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, _ := handled(nil, func(req *Request, res *Response) {
				res.Attachment(tc.filename...)
				res.End()
			})

			res := get(in, "/")
			assert.Equal(t, tc.disposition, res.Header.Get("Content-Disposition"))
			assert.Equal(t, tc.contentType, res.Header.Get("Content-Type"))
		})
	}
}

func TestResponseFormat(t *testing.T) {
	handler := func(req *Request, res *Response) {
		res.Format(
			Formatter{Type: "text/plain", Handle: func() { res.Send("hey") }},
			Formatter{Type: "text/html", Handle: func() { res.Send("<p>hey</p>") }},
			Formatter{Type: "application/json", Handle: func() { res.Send(map[string]string{"message": "hey"}) }},
		)
	}

	in, errs := handled(nil, handler)

	res := get(in, "/", "Accept", "text/html; q=.5, application/json, */*; q=.1")
	assert.Equal(t, "application/json; charset=utf-8", res.Header.Get("Content-Type"))
	assert.Equal(t, "Accept", res.Header.Get("Vary"))
	assert.Equal(t, `{"message":"hey"}`, readBody(t, res))

	res = get(in, "/", "Accept", "text/html")
	assert.Equal(t, "text/html; charset=utf-8", res.Header.Get("Content-Type"))
	assert.Equal(t, "<p>hey</p>", readBody(t, res))

	res = get(in, "/", "Accept", "*/*")
	assert.Equal(t, "hey", readBody(t, res))

	res = get(in, "/", "Accept", "foo/bar")
	assert.Equal(t, 406, res.StatusCode)
	assert.Equal(t, "Not Acceptable. Supports: text/plain, text/html, application/json", readBody(t, res))
	require.Len(t, *errs, 1)
	assert.ErrorIs(t, (*errs)[0], mak.ErrNotAcceptable)
}

func TestResponseFormatExtensions(t *testing.T) {
	in, _ := handled(nil, func(req *Request, res *Response) {
		res.Format(
			Formatter{Type: "json", Handle: func() { res.Send(map[string]bool{"ok": true}) }},
			Formatter{Type: "default", Handle: func() { res.Type("txt").Send("fallback") }},
		)
	})

	res := get(in, "/", "Accept", "application/json")
	assert.Equal(t, `{"ok":true}`, readBody(t, res))

	res = get(in, "/", "Accept", "image/png")
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", res.Header.Get("Content-Type"))
	assert.Equal(t, "fallback", readBody(t, res))
}

func TestResponseLocals(t *testing.T) {
	in, _ := app(nil)
	in.Use(Wrap(func(req *Request, res *Response, next func(error)) {
		res.Locals()["user"] = "tobi"
		next(nil)
	}))
	in.Use(Wrap(func(req *Request, res *Response) {
		res.JSON(res.Locals())
	}))

	assert.Equal(t, `{"user":"tobi"}`, readBody(t, get(in, "/")))
}
