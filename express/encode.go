package express

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
)

const upperhex = "0123456789ABCDEF"

func isAlnum(b byte) bool {
	return 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z' || '0' <= b && b <= '9'
}

func isHex(b byte) bool {
	return '0' <= b && b <= '9' || 'a' <= b && b <= 'f' || 'A' <= b && b <= 'F'
}

// percentEncode escapes every byte of s that keep rejects.
func percentEncode(s string, keep func(s string, i int) bool) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if keep(s, i) {
			sb.WriteByte(s[i])
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[s[i]>>4])
		sb.WriteByte(upperhex[s[i]&15])
	}
	return sb.String()
}

// encodeURIComponent escapes everything but unreserved URI characters.
func encodeURIComponent(s string) string {
	return percentEncode(s, func(s string, i int) bool {
		return isAlnum(s[i]) || strings.IndexByte("-_.!~*'()", s[i]) >= 0
	})
}

// encodeURL escapes characters that may not appear in a URL while leaving
// existing %XX escapes alone.
func encodeURL(s string) string {
	return percentEncode(s, func(s string, i int) bool {
		b := s[i]
		switch {
		case b == '%':
			return i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2])
		case isAlnum(b):
			return true
		}
		return strings.IndexByte("!#$&'()*+,-./:;=?@[]_~", b) >= 0
	})
}

// encodeRFC5987 escapes a value for an ext-value parameter such as
// filename*.
func encodeRFC5987(s string) string {
	return percentEncode(s, func(s string, i int) bool {
		return isAlnum(s[i]) || strings.IndexByte("-_.!~", s[i]) >= 0
	})
}

// contentDisposition builds an attachment disposition. Names outside
// printable ASCII get a "?" substituted fallback plus a filename* parameter.
func contentDisposition(filename string) string {
	if filename == "" {
		return "attachment"
	}

	ascii := true
	fallback := []rune{}
	for _, r := range filename {
		if r < 0x20 || r > 0x7e {
			ascii = false
			r = '?'
		}
		fallback = append(fallback, r)
	}

	out := "attachment; filename=" + quote(string(fallback))
	if !ascii {
		out += "; filename*=UTF-8''" + encodeRFC5987(filename)
	}
	return out
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

// weakETag derives a weak validator from the body length and its sha1.
func weakETag(body []byte) string {
	sum := sha1.Sum(body)
	hash := base64.StdEncoding.EncodeToString(sum[:])
	return fmt.Sprintf(`W/"%x-%s"`, len(body), hash[:27])
}

// sanitizeCallback keeps only characters valid in a dotted or indexed
// function reference.
func sanitizeCallback(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 && (isAlnum(byte(r)) || strings.ContainsRune("[]_$.", r)) {
			return r
		}
		return -1
	}, name)
}

// charsetFor is the default charset of a media type, "" when it has none.
func charsetFor(mediaType string) string {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return ""
	}

	switch {
	case strings.HasPrefix(mt, "text/"),
		mt == "application/json",
		mt == "application/javascript":
		return "utf-8"
	}
	return ""
}

// withCharset sets or replaces the charset parameter of a content type.
func withCharset(contentType, charset string) string {
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	params["charset"] = charset
	return mime.FormatMediaType(mt, params)
}
