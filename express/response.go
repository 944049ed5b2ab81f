package express

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/SaulDoesCode/makexpress"
	"github.com/json-iterator/go"
)

var (
	jsonAPI        = jsoniter.Config{SortMapKeys: true}.Froze()
	jsonEscapedAPI = jsoniter.Config{SortMapKeys: true, EscapeHTML: true}.Froze()
)

// Response is the legacy shaped, chainable view of a response. Methods it
// does not define are the embedded *mak.Ctx's.
//
// Terminal writes do not return errors. The first failure is kept and
// reported by Err, and the bridge hands it to the host's error handling.
type Response struct {
	*mak.Ctx

	// Req is the request paired with this response.
	Req *Request

	err error
}

// Err returns the first error a terminal write ran into.
func (res *Response) Err() error {
	return res.err
}

func (res *Response) fail(err error) {
	if err != nil && res.err == nil {
		res.err = err
	}
}

// Set sets a response header. Values are formatted with fmt and slices
// give a multi-valued header. Content-Type takes exactly one value and
// gets a default charset when it names none; anything else panics with an
// *ArgumentError.
func (res *Response) Set(name string, values ...interface{}) *Response {
	strs, multi := headerValues(values)

	if strings.EqualFold(name, "Content-Type") {
		if multi || len(strs) != 1 {
			panic(argumentError("res.Set", "Content-Type cannot be set to an array"))
		}

		ct := strs[0]
		if !strings.Contains(strings.ToLower(ct), "charset=") {
			if cs := charsetFor(ct); cs != "" {
				ct = withCharset(ct, cs)
			}
		}
		res.SetHeader("Content-Type", ct)
		return res
	}

	res.SetHeaderValues(name, strs)
	return res
}

// SetHeaders sets every header of the map as Set would.
func (res *Response) SetHeaders(headers map[string]interface{}) *Response {
	for name, v := range headers {
		res.Set(name, v)
	}
	return res
}

// Header is Set.
func (res *Response) Header(name string, values ...interface{}) *Response {
	return res.Set(name, values...)
}

// Get returns a response header set so far.
func (res *Response) Get(name string) string {
	return res.GetHeader(name)
}

// Append adds values to a response header, keeping those already set.
func (res *Response) Append(name string, values ...interface{}) *Response {
	strs, _ := headerValues(values)
	for _, v := range strs {
		res.W.Header().Add(name, v)
	}
	return res
}

// headerValues flattens header values into strings. multi reports whether a
// slice was among them.
func headerValues(values []interface{}) (strs []string, multi bool) {
	for _, v := range values {
		switch vv := v.(type) {
		case []string:
			strs = append(strs, vv...)
			multi = true
		case []interface{}:
			for _, e := range vv {
				strs = append(strs, fmt.Sprint(e))
			}
			multi = true
		default:
			strs = append(strs, fmt.Sprint(v))
		}
	}
	return strs, multi
}

// Status sets the response status.
func (res *Response) Status(code int) *Response {
	res.SetStatus(code)
	return res
}

// Type sets Content-Type from a media type, an extension ("json", ".json")
// or a file name. Unknown types become application/octet-stream.
func (res *Response) Type(t string) *Response {
	ct := t
	if !strings.Contains(t, "/") {
		if ct = mimeByExt(t); ct == "" {
			ct = "application/octet-stream"
		}
	}
	return res.Set("Content-Type", ct)
}

// mimeByExt looks up the content type of an extension or file name.
func mimeByExt(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		ext = "." + name
	}
	return mime.TypeByExtension(strings.ToLower(ext))
}

// Send responds with a body, a status or both.
//
//	Send()                  empty body
//	Send(body)              string as html, []byte as octet-stream, anything else as JSON
//	Send(status)            the status with its reason phrase as plain text
//	Send(status, body)
//	Send(body, status)      kept for older callers
//
// Empty bodies go straight to End.
func (res *Response) Send(args ...interface{}) *Response {
	var body interface{}
	switch len(args) {
	case 0:
	case 1:
		if code, ok := statusOf(args[0]); ok {
			if res.GetHeader("Content-Type") == "" {
				res.Type("txt")
			}
			res.SetStatus(code)
			body = statusText(code)
		} else {
			body = args[0]
		}
	default:
		var code int
		body, code = splitStatus("res.Send", args, false)
		res.SetStatus(code)
	}

	return res.send(body)
}

func (res *Response) send(body interface{}) *Response {
	switch v := body.(type) {
	case nil:
		return res.End()
	case string:
		if v == "" {
			return res.End()
		}

		ct := res.GetHeader("Content-Type")
		if ct == "" {
			ct = "text/html"
		}
		res.SetHeader("Content-Type", withCharset(ct, "utf-8"))
		return res.emit([]byte(v))
	case []byte:
		if len(v) == 0 {
			return res.End()
		}

		if res.GetHeader("Content-Type") == "" {
			res.SetHeader("Content-Type", "application/octet-stream")
		}
		return res.emit(v)
	}

	return res.JSON(body)
}

// emit writes a complete body through the host, which takes care of
// conditional requests, HEAD and bodiless statuses.
func (res *Response) emit(b []byte) *Response {
	if res.Config().ETag && res.GetHeader("ETag") == "" {
		res.SetHeader("ETag", weakETag(b))
	}

	res.fail(res.WriteBlob(b))
	return res
}

// JSON responds with v encoded as JSON. A status may come before or after
// the body; a trailing number is always the status. Content-Type is only
// set when none is.
func (res *Response) JSON(args ...interface{}) *Response {
	body := res.jsonArgs("res.JSON", args)

	b, err := res.marshal(body)
	if err != nil {
		res.fail(err)
		return res
	}

	if res.GetHeader("Content-Type") == "" {
		res.SetHeader("Content-Type", "application/json; charset=utf-8")
	}
	return res.emit(b)
}

// JSONP is JSON wrapped in a call to the function named by the
// Config.JSONPCallbackName query parameter. Without a usable name it is
// plain JSON.
func (res *Response) JSONP(args ...interface{}) *Response {
	body := res.jsonArgs("res.JSONP", args)

	callback := sanitizeCallback(res.Query(res.Config().JSONPCallbackName))
	if callback == "" {
		return res.JSON(body)
	}

	b, err := res.marshal(body)
	if err != nil {
		res.fail(err)
		return res
	}

	text := strings.NewReplacer("\u2028", `\u2028`, "\u2029", `\u2029`).Replace(string(b))

	res.SetHeader("X-Content-Type-Options", "nosniff")
	res.SetHeader("Content-Type", "text/javascript; charset=utf-8")
	return res.emit([]byte(fmt.Sprintf(
		"/**/ typeof %s === 'function' && %s(%s);",
		callback, callback, text,
	)))
}

func (res *Response) jsonArgs(op string, args []interface{}) interface{} {
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args[0]
	}

	body, code := splitStatus(op, args, true)
	res.SetStatus(code)
	return body
}

func (res *Response) marshal(v interface{}) ([]byte, error) {
	conf := res.Config()

	api := jsonAPI
	if conf.JSONEscape {
		api = jsonEscapedAPI
	}

	if conf.JSONSpaces > 0 {
		return api.MarshalIndent(v, "", strings.Repeat(" ", conf.JSONSpaces))
	}
	return api.Marshal(v)
}

// End writes the status, headers and data straight to the
// http.ResponseWriter. The host will not emit a response of its own
// afterwards.
func (res *Response) End(data ...interface{}) *Response {
	res.Respond = false
	if res.Written {
		return res
	}

	var b []byte
	if len(data) > 0 {
		switch v := data[0].(type) {
		case nil:
		case string:
			b = []byte(v)
		case []byte:
			b = v
		default:
			b = []byte(fmt.Sprint(v))
		}
	}

	status := res.Ctx.Status
	noBody := status == http.StatusNoContent || status == http.StatusNotModified ||
		(status >= 100 && status < 200)

	if !noBody {
		res.SetHeader("Content-Length", strconv.Itoa(len(b)))
	}

	res.W.WriteHeader(status)
	res.Written = true

	if noBody || res.R.Method == "HEAD" || len(b) == 0 {
		return res
	}

	n, err := res.W.Write(b)
	res.ContentLength += int64(n)
	res.fail(err)
	return res
}

// SendStatus responds with the status and its reason phrase as plain text.
func (res *Response) SendStatus(code int) *Response {
	res.SetStatus(code)
	res.Type("txt")
	return res.Send(statusText(code))
}

// Locals is the per-request bag shared with views.
func (res *Response) Locals() map[string]interface{} {
	return res.State
}

// SetLocals replaces the per-request bag.
func (res *Response) SetLocals(locals map[string]interface{}) *Response {
	if locals == nil {
		locals = map[string]interface{}{}
	}
	res.State = locals
	return res
}

// statusOf reports whether v is a number usable as a status code.
func statusOf(v interface{}) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == float64(int(f)) {
			return int(f), true
		}
	}
	return 0, false
}

// splitStatus picks the status and body out of a two argument call. With
// trailing set a numeric second argument is the status even when the first
// one is numeric too.
func splitStatus(op string, args []interface{}, trailing bool) (body interface{}, code int) {
	if len(args) != 2 {
		panic(argumentError(op, "expected at most two arguments, got %d", len(args)))
	}

	_, firstIsNum := statusOf(args[0])
	if code, ok := statusOf(args[1]); ok && (trailing || !firstIsNum) {
		return args[0], code
	}

	if code, ok := statusOf(args[0]); ok {
		return args[1], code
	}

	panic(argumentError(op, "one of two arguments must be a status code"))
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return strconv.Itoa(code)
}
