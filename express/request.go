package express

import (
	"github.com/SaulDoesCode/makexpress"
)

// Request is the legacy shaped view of a request. Anything it does not
// define itself is the embedded *mak.Ctx's: Query, Route (the matched
// pattern), Param and Params (the values it captured), Protocol, Secure,
// XHR, Subdomains, Fresh, Stale, Range, the BaseURL field and the rest
// behave exactly as they do on the host.
type Request struct {
	*mak.Ctx

	// Res is the response paired with this request.
	Res *Response
}

// Accepts returns the best of the offered types for the Accept header, ""
// when none of them is acceptable.
func (req *Request) Accepts(types ...string) string {
	return req.Ctx.Accepts(types...)
}

// AcceptsCharset returns the best offered charset.
func (req *Request) AcceptsCharset(charsets ...string) string {
	return req.Ctx.AcceptsCharsets(charsets...)
}

// AcceptsEncoding returns the best offered content coding.
func (req *Request) AcceptsEncoding(encodings ...string) string {
	return req.Ctx.AcceptsEncodings(encodings...)
}

// AcceptsLanguage returns the best offered language.
func (req *Request) AcceptsLanguage(langs ...string) string {
	return req.Ctx.AcceptsLanguages(langs...)
}

// Get returns a request header by case-insensitive name. ok is false when
// the request does not carry the header, which is not the same as carrying
// it empty. An empty name panics with an *ArgumentError.
func (req *Request) Get(name string) (value string, ok bool) {
	if name == "" {
		panic(argumentError("req.Get", "name argument is required"))
	}

	if !req.Ctx.HasHeader(name) {
		return "", false
	}
	return req.Ctx.Get(name), true
}

// Header is Get.
func (req *Request) Header(name string) (string, bool) {
	return req.Get(name)
}

// Host is Hostname: the resolved host name without its port.
func (req *Request) Host() string {
	return req.Ctx.Hostname()
}
