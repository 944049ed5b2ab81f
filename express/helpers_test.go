package express

import (
	"io"
	"io/ioutil"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SaulDoesCode/makexpress"
	"github.com/stretchr/testify/require"
)

// app makes a quiet instance. Errors leaving the chain are recorded in
// *errs before the instance handles them.
func app(conf *mak.Config) (*mak.Instance, *[]error) {
	if conf == nil {
		conf = &mak.Config{}
	}

	in := mak.Make(conf)
	in.Logger = slog.New(slog.NewTextHandler(ioutil.Discard, nil))

	errs := &[]error{}
	in.AddPreWare(func(next mak.Handler) mak.Handler {
		return func(c *mak.Ctx) error {
			err := next(c)
			if err != nil {
				*errs = append(*errs, err)
			}
			return err
		}
	})
	return in, errs
}

// newRequest builds a request; headers come in name, value pairs and a
// "Host" pair sets the request's host.
func newRequest(method, target string, body io.Reader, headers ...string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	for i := 0; i+1 < len(headers); i += 2 {
		if headers[i] == "Host" {
			req.Host = headers[i+1]
			continue
		}
		req.Header.Set(headers[i], headers[i+1])
	}
	return req
}

func serve(h http.Handler, req *http.Request) *http.Response {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Result()
}

func get(h http.Handler, target string, headers ...string) *http.Response {
	return serve(h, newRequest("GET", target, nil, headers...))
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	b, err := ioutil.ReadAll(res.Body)
	require.NoError(t, err)
	return string(b)
}
