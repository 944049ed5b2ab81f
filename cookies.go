package mak

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"time"
)

// CookieOptions describes a cookie written through SetCookieOptions.
type CookieOptions struct {
	Path     string
	Domain   string
	Expires  time.Time
	MaxAge   time.Duration
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
	// Signed adds a name.sig companion cookie keyed with Config.Keys[0].
	Signed bool
}

// DefaultCookieOptions are what SetCookieOptions uses for nil options.
func DefaultCookieOptions() *CookieOptions {
	return &CookieOptions{Path: "/", HTTPOnly: true}
}

// SetCookieOptions writes a Set-Cookie header for the name and value.
// Path defaults to "/". MaxAge sets Max-Age and an Expires in step with it.
// Signed cookies need Config.Keys, ErrNoSigningKeys is returned otherwise.
func (c *Ctx) SetCookieOptions(name, value string, opts *CookieOptions) error {
	if opts == nil {
		opts = DefaultCookieOptions()
	}

	cookie := &Cookie{
		Name:     name,
		Value:    value,
		Path:     opts.Path,
		Domain:   opts.Domain,
		Expires:  opts.Expires,
		Secure:   opts.Secure,
		HttpOnly: opts.HTTPOnly,
		SameSite: opts.SameSite,
	}

	if cookie.Path == "" {
		cookie.Path = "/"
	}

	if opts.MaxAge > 0 {
		cookie.MaxAge = int(opts.MaxAge / time.Second)
		cookie.Expires = time.Now().Add(opts.MaxAge).UTC()
	} else if opts.MaxAge < 0 {
		cookie.MaxAge = -1
	}

	var sig *Cookie
	if opts.Signed {
		keys := c.Config().Keys
		if len(keys) == 0 {
			return ErrNoSigningKeys
		}

		s := *cookie
		s.Name = name + ".sig"
		s.Value = signCookie(keys[0], name+"="+value)
		sig = &s
	}

	http.SetCookie(c.W, cookie)
	if sig != nil {
		http.SetCookie(c.W, sig)
	}
	return nil
}

// SignedCookie returns a request cookie's value when its name.sig
// companion verifies against one of Config.Keys.
func (c *Ctx) SignedCookie(name string) (string, bool) {
	cookie := c.GetCookie(name)
	sig := c.GetCookie(name + ".sig")
	if cookie == nil || sig == nil {
		return "", false
	}

	data := name + "=" + cookie.Value
	for _, key := range c.Config().Keys {
		if hmac.Equal([]byte(signCookie(key, data)), []byte(sig.Value)) {
			return cookie.Value, true
		}
	}
	return "", false
}

// SignedCookies returns every request cookie whose signature verifies.
func (c *Ctx) SignedCookies() map[string]string {
	out := map[string]string{}
	for _, cookie := range c.Cookies() {
		if v, ok := c.SignedCookie(cookie.Name); ok {
			out[cookie.Name] = v
		}
	}
	return out
}

func signCookie(key, data string) string {
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
