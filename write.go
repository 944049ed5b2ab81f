package mak

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
)

// WriteContent answers with content under c.Status. Below 300 the request's
// conditional headers are checked against the ETag and Last-Modified set so
// far, and a 200 GET or HEAD honours Range. A nil content sends the headers
// alone.
//
// A failed precondition returns ErrPreConditionFail and an unsatisfiable
// range ErrBadRange, both without writing, for the error handler to answer.
func (c *Ctx) WriteContent(content io.ReadSeeker) error {
	if c.Written {
		return nil
	}
	if content != nil && !c.statusSet && c.Status == http.StatusNotFound {
		c.Status = http.StatusOK
	}

	if c.Status < 300 {
		switch c.precondition() {
		case http.StatusPreconditionFailed:
			return ErrPreConditionFail.Envoy(c)
		case http.StatusNotModified:
			c.Status = http.StatusNotModified
		}
	}

	if content == nil || bodiless(c.Status) {
		return c.commit(nil, 0)
	}

	ct := c.ContentType()
	if ct == "" {
		var sniff [512]byte
		n, _ := io.ReadFull(content, sniff[:])
		ct = http.DetectContentType(sniff[:n])
		c.SetContentType(ct)
	}

	size, err := content.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if c.Status != http.StatusOK || (c.R.Method != http.MethodGet && c.R.Method != http.MethodHead) || !c.ifRange() {
		return c.commit(content, size)
	}

	ranges := c.Range(size)
	switch {
	case ranges == nil:
		return c.commit(content, size)
	case len(ranges) == 0:
		c.SetHeader("Content-Range", fmt.Sprintf("bytes */%d", size))
		return ErrBadRange.Envoy(c)
	case len(ranges) == 1:
		r := ranges[0]
		if _, err := content.Seek(r.Start, io.SeekStart); err != nil {
			return err
		}
		c.Status = http.StatusPartialContent
		c.SetHeader("Content-Range", r.contentRange(size))
		return c.commit(content, r.length())
	}

	body, boundary, err := byteRanges(content, ranges, ct, size)
	if err != nil {
		return err
	}
	c.Status = http.StatusPartialContent
	c.SetContentType("multipart/byteranges; boundary=" + boundary)
	return c.commit(bytes.NewReader(body), int64(len(body)))
}

// precondition evaluates If-Match, If-Unmodified-Since, If-None-Match and
// If-Modified-Since in RFC 7232 order. It returns 412, 304 or 0 to go on.
func (c *Ctx) precondition() int {
	etag := c.GetHeader("ETag")
	modified, _ := http.ParseTime(c.GetHeader("Last-Modified"))

	if im := c.Header("If-Match"); im != "" {
		if !etagListMatch(im, etag, true) {
			return http.StatusPreconditionFailed
		}
	} else if t, err := http.ParseTime(c.Header("If-Unmodified-Since")); err == nil && !modified.IsZero() && modified.After(t) {
		return http.StatusPreconditionFailed
	}

	safe := c.R.Method == http.MethodGet || c.R.Method == http.MethodHead
	if inm := c.Header("If-None-Match"); inm != "" {
		if etagListMatch(inm, etag, false) {
			if safe {
				return http.StatusNotModified
			}
			return http.StatusPreconditionFailed
		}
	} else if t, err := http.ParseTime(c.Header("If-Modified-Since")); err == nil && safe && !modified.IsZero() && !modified.After(t) {
		return http.StatusNotModified
	}
	return 0
}

// ifRange reports whether an If-Range header, when there is one, still
// names the current representation.
func (c *Ctx) ifRange() bool {
	ir := c.Header("If-Range")
	if ir == "" {
		return true
	}
	if strings.HasPrefix(ir, `"`) || strings.HasPrefix(ir, "W/") {
		return etagListMatch(ir, c.GetHeader("ETag"), true)
	}

	t, err := http.ParseTime(ir)
	modified, merr := http.ParseTime(c.GetHeader("Last-Modified"))
	return err == nil && merr == nil && t.Equal(modified)
}

// etagListMatch reports whether an If-Match or If-None-Match list names
// etag. Strong comparison rejects weak tags on either side.
func etagListMatch(list, etag string, strong bool) bool {
	for _, tag := range strings.Split(list, ",") {
		tag = strings.TrimSpace(tag)
		switch {
		case tag == "":
		case tag == "*":
			return true
		case etag == "":
			return false
		case strong:
			if tag == etag && !strings.HasPrefix(etag, "W/") {
				return true
			}
		case strings.TrimPrefix(tag, "W/") == strings.TrimPrefix(etag, "W/"):
			return true
		}
	}
	return false
}

func byteRanges(content io.ReadSeeker, ranges []ByteRange, ct string, size int64) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, r := range ranges {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Range": {r.contentRange(size)},
			"Content-Type":  {ct},
		})
		if err != nil {
			return nil, "", err
		}
		if _, err := content.Seek(r.Start, io.SeekStart); err != nil {
			return nil, "", err
		}
		if _, err := io.CopyN(part, content, r.length()); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.Boundary(), nil
}

// commit sends the status and headers, then n bytes of body. A negative n
// leaves Content-Length off for a streamed body.
func (c *Ctx) commit(body io.Reader, n int64) error {
	h := c.W.Header()
	if c.R.TLS != nil && h.Get("Strict-Transport-Security") == "" {
		h.Set("Strict-Transport-Security", "max-age=31536000")
	}

	switch {
	case bodiless(c.Status):
		h.Del("Content-Type")
		h.Del("Content-Length")
		h.Del("Transfer-Encoding")
		body, n = nil, 0
	case n >= 0 && h.Get("Transfer-Encoding") == "":
		h.Set("Content-Length", strconv.FormatInt(n, 10))
	}
	if body != nil && c.Status/100 == 2 && h.Get("Accept-Ranges") == "" {
		h.Set("Accept-Ranges", "bytes")
	}

	c.W.WriteHeader(c.Status)
	c.Written = true
	c.ContentLength = 0
	if body == nil || c.R.Method == http.MethodHead {
		return nil
	}

	written, err := io.CopyN(c.W, body, n)
	c.ContentLength = written
	return err
}

// Write streams b as body, sending the headers first if that has not
// happened yet.
func (c *Ctx) Write(b []byte) (int, error) {
	if !c.Written {
		if !c.statusSet && c.Status == http.StatusNotFound {
			c.Status = http.StatusOK
		}
		if err := c.commit(nil, -1); err != nil {
			return 0, err
		}
	}

	n, err := c.W.Write(b)
	c.ContentLength += int64(n)
	return n, err
}

// WriteBlob answers with b.
func (c *Ctx) WriteBlob(b []byte) error {
	return c.WriteContent(bytes.NewReader(b))
}

// WriteString answers with s as plain text.
func (c *Ctx) WriteString(s string) error {
	c.SetContentType("text/plain; charset=utf-8")
	return c.WriteBlob([]byte(s))
}

func bodiless(status int) bool {
	return status == http.StatusNoContent || status == http.StatusNotModified || status/100 == 1
}
