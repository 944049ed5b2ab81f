package mak

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Get returns a request header, "" when it is absent. Referer and Referrer
// are interchangeable.
func (c *Ctx) Get(name string) string {
	switch strings.ToLower(name) {
	case "referer", "referrer":
		if v := c.R.Header.Get("Referrer"); v != "" {
			return v
		}
		return c.R.Header.Get("Referer")
	}
	return c.R.Header.Get(name)
}

// HasHeader reports whether the request carries the header at all.
func (c *Ctx) HasHeader(name string) bool {
	switch strings.ToLower(name) {
	case "referer", "referrer":
		return len(c.R.Header.Values("Referrer")) > 0 || len(c.R.Header.Values("Referer")) > 0
	}
	return len(c.R.Header.Values(name)) > 0
}

func (c *Ctx) trustProxy() bool {
	return c.Config().TrustProxy
}

// Protocol returns "https" for TLS requests and "http" otherwise. Behind a
// trusted proxy the first X-Forwarded-Proto value wins.
func (c *Ctx) Protocol() string {
	if c.trustProxy() {
		if protos := splitList(c.R.Header.Get("X-Forwarded-Proto")); len(protos) > 0 {
			return protos[0]
		}
	}

	if c.R.TLS != nil {
		return "https"
	}
	return "http"
}

// Secure is Protocol() == "https".
func (c *Ctx) Secure() bool {
	return c.Protocol() == "https"
}

// Host returns the request host including the port.
func (c *Ctx) Host() string {
	if c.trustProxy() {
		if hosts := splitList(c.R.Header.Get("X-Forwarded-Host")); len(hosts) > 0 {
			return hosts[0]
		}
	}
	return c.R.Host
}

// Hostname returns the request host without the port. IPv6 hosts keep
// their brackets.
func (c *Ctx) Hostname() string {
	host := c.Host()
	if host == "" {
		return ""
	}

	offset := 0
	if host[0] == '[' {
		offset = strings.IndexByte(host, ']') + 1
		if offset == 0 {
			return host
		}
	}

	if i := strings.IndexByte(host[offset:], ':'); i >= 0 {
		return host[:offset+i]
	}
	return host
}

// IP returns the client address. Behind a trusted proxy that is the first
// hop named by Forwarded or X-Forwarded-For, otherwise the peer.
func (c *Ctx) IP() string {
	if c.trustProxy() {
		if ip := forwardedFor(c.R.Header); ip != "" {
			return ip
		}
	}

	if host, _, err := net.SplitHostPort(c.R.RemoteAddr); err == nil {
		return host
	}
	return c.R.RemoteAddr
}

// forwardedFor reads the client off the first Forwarded element's for=
// (RFC 7239), falling back to the head of X-Forwarded-For.
func forwardedFor(h http.Header) string {
	if f := h.Get("Forwarded"); f != "" {
		first, _, _ := strings.Cut(f, ",")
		for _, pair := range strings.Split(first, ";") {
			key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok || !strings.EqualFold(key, "for") {
				continue
			}
			value = strings.Trim(value, `"`)
			if strings.HasPrefix(value, "[") {
				if end := strings.IndexByte(value, ']'); end > 0 {
					return value[1:end]
				}
			}
			return value
		}
	}

	if hops := splitList(h.Get("X-Forwarded-For")); len(hops) > 0 {
		return hops[0]
	}
	return ""
}

// splitList splits a comma separated header value, dropping blanks.
func splitList(v string) []string {
	items := []string{}
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// IPs returns the X-Forwarded-For chain, client first, when the proxy is
// trusted. It is empty otherwise.
func (c *Ctx) IPs() []string {
	if !c.trustProxy() {
		return []string{}
	}
	return splitList(c.R.Header.Get("X-Forwarded-For"))
}

// Subdomains returns the host labels left of the Config.SubdomainOffset
// last ones, nearest label first. IP hosts have no subdomains.
func (c *Ctx) Subdomains() []string {
	hostname := c.Hostname()
	if hostname == "" {
		return []string{}
	}

	offset := c.Config().SubdomainOffset
	if net.ParseIP(strings.Trim(hostname, "[]")) != nil {
		if offset < 0 {
			return []string{hostname}
		}
		return []string{}
	}

	labels := strings.Split(hostname, ".")
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(labels) {
		return []string{}
	}
	return labels[offset:]
}

// XHR reports whether X-Requested-With is XMLHttpRequest.
func (c *Ctx) XHR() bool {
	return strings.EqualFold(c.R.Header.Get("X-Requested-With"), "xmlhttprequest")
}

// Fresh reports whether the client's cached copy matches the response
// validators set so far. Only GET and HEAD with a 2xx or 304 status can be
// fresh.
func (c *Ctx) Fresh() bool {
	if c.R.Method != "GET" && c.R.Method != "HEAD" {
		return false
	}

	if s := c.Status; (s < 200 || s >= 300) && s != 304 && c.statusSet {
		return false
	}

	inm := c.R.Header.Get("If-None-Match")
	ims := c.R.Header.Get("If-Modified-Since")
	if inm == "" && ims == "" {
		return false
	}

	if strings.Contains(c.R.Header.Get("Cache-Control"), "no-cache") {
		return false
	}

	if inm != "" && !etagListMatch(inm, c.GetHeader("ETag"), false) {
		return false
	}

	if ims != "" {
		lm, err := http.ParseTime(c.GetHeader("Last-Modified"))
		if err != nil {
			return false
		}
		t, err := http.ParseTime(ims)
		if err != nil || lm.After(t) {
			return false
		}
	}

	return true
}

// Stale is !Fresh().
func (c *Ctx) Stale() bool {
	return !c.Fresh()
}

// ByteRange is an inclusive range of a representation of some size.
type ByteRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Range parses the Range header against a representation of size bytes.
// It returns nil without a usable bytes= Range header and an empty slice
// when no range can be satisfied. Ends beyond size are capped.
func (c *Ctx) Range(size int64) []ByteRange {
	rh := c.R.Header.Get("Range")
	const b = "bytes="
	if !strings.HasPrefix(rh, b) {
		return nil
	}

	ranges := []ByteRange{}
	for _, ra := range strings.Split(rh[len(b):], ",") {
		ra = strings.TrimSpace(ra)
		i := strings.Index(ra, "-")
		if i < 0 {
			return nil
		}

		start, errStart := strconv.ParseInt(strings.TrimSpace(ra[:i]), 10, 64)
		end, errEnd := strconv.ParseInt(strings.TrimSpace(ra[i+1:]), 10, 64)

		switch {
		case errStart != nil && errEnd == nil: // suffix range, "-500"
			start = size - end
			end = size - 1
		case errStart == nil && errEnd != nil: // open ended, "500-"
			end = size - 1
		case errStart != nil:
			return nil
		}

		if end > size-1 {
			end = size - 1
		}
		if start < 0 {
			start = 0
		}

		if start > end {
			continue
		}

		ranges = append(ranges, ByteRange{Start: start, End: end})
	}

	return ranges
}

func (r ByteRange) length() int64 {
	return r.End - r.Start + 1
}

func (r ByteRange) contentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}
