package mak

import (
	"fmt"
	"net/http"
)

// Err is an error that knows the status it should be answered with.
type Err struct {
	Code  int
	Value string

	kind *Err
}

func (err *Err) Error() string {
	return err.Value
}

// Send answers the request with err as plain text.
func (err *Err) Send(c *Ctx) error {
	c.SetStatus(err.Code)
	return c.WriteString(err.Value)
}

// Envoy sets the status and hands err back, leaving the answer to the
// error handler.
func (err *Err) Envoy(c *Ctx) error {
	c.SetStatus(err.Code)
	return err
}

// With is err with another message. errors.Is still matches the result
// against err.
func (err *Err) With(format string, args ...interface{}) *Err {
	kind := err
	if err.kind != nil {
		kind = err.kind
	}
	return &Err{Code: err.Code, Value: fmt.Sprintf(format, args...), kind: kind}
}

// Is reports whether err was made from target by With.
func (err *Err) Is(target error) bool {
	return err.kind != nil && err.kind == target
}

var (
	ErrNotFound             = &Err{Code: http.StatusNotFound, Value: "not found"}
	ErrMethodNotAllowed     = &Err{Code: http.StatusMethodNotAllowed, Value: "method not allowed"}
	ErrIndeterminateData    = &Err{Code: http.StatusBadRequest, Value: "unparsible or malformed data"}
	ErrUnsupportedMediaType = &Err{Code: http.StatusUnsupportedMediaType, Value: "unsupported media type"}
	ErrRequestBodyEmpty     = &Err{Code: http.StatusBadRequest, Value: "request body empty, cannot proceed"}
	ErrBadRange             = &Err{Code: http.StatusRequestedRangeNotSatisfiable, Value: "unsatisfiable range"}
	ErrPreConditionFail     = &Err{Code: http.StatusPreconditionFailed, Value: "precondition failed"}

	// ErrNotAcceptable is for content negotiation that found nothing the
	// client takes.
	ErrNotAcceptable = &Err{Code: http.StatusNotAcceptable, Value: "not acceptable"}

	// ErrNoSigningKeys is returned for signed cookies when Config.Keys is empty.
	ErrNoSigningKeys = &Err{Code: http.StatusInternalServerError, Value: "cookie signing requires Config.Keys"}
	ErrNoViews       = &Err{Code: http.StatusInternalServerError, Value: "no views configured"}
)
