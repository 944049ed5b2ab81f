package mak

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/SaulDoesCode/makexpress/transplacer"
	"github.com/json-iterator/go"
	"golang.org/x/crypto/acme/autocert"
	"gopkg.in/yaml.v3"
)

// Instance routes requests through its middleware to the router, and owns
// the servers, the asset cache and the views.
type Instance struct {
	Config    *Config
	RawConfig map[string]interface{}

	Server *http.Server

	// Redirector listens on TLSConfig.RedirectAddress. It answers ACME
	// challenges and sends everything else to https.
	Redirector *http.Server
	AutoCert   *autocert.Manager

	Router *Router

	// PreMiddleware runs before routing, Middleware after it, so the
	// latter sees the matched route and params.
	PreMiddleware []Middleware
	Middleware    []Middleware

	// Assets serves Config.Assets when it points at a directory.
	Assets *transplacer.AssetCache
	Views  *Views

	Logger *slog.Logger

	// ErrorHandler replaces the plain text error answer.
	ErrorHandler    func(*Ctx, error) error
	NotFoundHandler func(*Ctx) error
}

// Config describes an Instance. LoadConfig reads it from json, toml or yaml.
type Config struct {
	AppName string `json:"appname" toml:"appname" yaml:"appname"`
	DevMode bool   `json:"devmode" toml:"devmode" yaml:"devmode"`

	// Address is where Run listens. DevAddress replaces it in DevMode.
	Address    string    `json:"address" toml:"address" yaml:"address"`
	DevAddress string    `json:"dev_address" toml:"dev_address" yaml:"dev_address"`
	TLS        TLSConfig `json:"tls" toml:"tls" yaml:"tls"`

	Assets    string `json:"assets" toml:"assets" yaml:"assets"`
	AutoPush  bool   `json:"autopush" toml:"autopush" yaml:"autopush"`
	Views     string `json:"views" toml:"views" yaml:"views"`
	ViewCache bool   `json:"view_cache" toml:"view_cache" yaml:"view_cache"`

	// TrustProxy makes Forwarded and X-Forwarded-* headers authoritative
	// for protocol, host and client address.
	TrustProxy bool `json:"trust_proxy" toml:"trust_proxy" yaml:"trust_proxy"`

	// SubdomainOffset is how many trailing host labels Subdomains drops.
	SubdomainOffset int `json:"subdomain_offset" toml:"subdomain_offset" yaml:"subdomain_offset"`

	// Keys sign cookies. The first one signs, all of them verify.
	Keys []string `json:"keys" toml:"keys" yaml:"keys"`

	JSONSpaces        int    `json:"json_spaces" toml:"json_spaces" yaml:"json_spaces"`
	JSONEscape        bool   `json:"json_escape" toml:"json_escape" yaml:"json_escape"`
	JSONPCallbackName string `json:"jsonp_callback_name" toml:"jsonp_callback_name" yaml:"jsonp_callback_name"`

	// ETag turns on weak ETags for bodies sent through the express facade.
	ETag bool `json:"etag" toml:"etag" yaml:"etag"`
}

// TLSConfig switches Run to https, with certificate files or with
// certificates fetched from Let's Encrypt for Domains.
type TLSConfig struct {
	Cert string `json:"cert" toml:"cert" yaml:"cert"`
	Key  string `json:"key" toml:"key" yaml:"key"`

	// AutoCert is ignored in DevMode.
	AutoCert bool     `json:"autocert" toml:"autocert" yaml:"autocert"`
	Domains  []string `json:"domains" toml:"domains" yaml:"domains"`
	Email    string   `json:"email" toml:"email" yaml:"email"`
	CacheDir string   `json:"cache_dir" toml:"cache_dir" yaml:"cache_dir"`

	RedirectAddress string `json:"redirect_address" toml:"redirect_address" yaml:"redirect_address"`
}

var defaultConfig = digestConfig(&Config{})

func digestConfig(conf *Config) *Config {
	if conf.SubdomainOffset == 0 {
		conf.SubdomainOffset = 2
	}
	if conf.JSONPCallbackName == "" {
		conf.JSONPCallbackName = "callback"
	}
	if conf.TLS.AutoCert && conf.TLS.CacheDir == "" {
		conf.TLS.CacheDir = filepath.Join("private", "cache")
	}
	return conf
}

// Make builds an Instance from conf, nil meaning all defaults.
func Make(conf *Config) *Instance {
	if conf == nil {
		conf = &Config{}
	}
	digestConfig(conf)

	level := slog.LevelInfo
	if conf.DevMode {
		level = slog.LevelDebug
	}

	in := &Instance{
		Config: conf,
		Router: MakeRouter(),
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}

	addr := conf.Address
	if conf.DevMode && conf.DevAddress != "" {
		addr = conf.DevAddress
	}
	in.Server = &http.Server{Addr: addr, Handler: in}

	in.setupTLS()
	in.setupAssets()
	if conf.Views != "" {
		in.Views = MakeViews(conf.Views, conf.ViewCache, in.Logger)
	}
	return in
}

func (in *Instance) setupTLS() {
	t := in.Config.TLS
	if t.AutoCert && !in.Config.DevMode {
		in.AutoCert = &autocert.Manager{
			Prompt: autocert.AcceptTOS,
			Cache:  autocert.DirCache(t.CacheDir),
			Email:  t.Email,
		}
		if len(t.Domains) > 0 {
			in.AutoCert.HostPolicy = autocert.HostWhitelist(t.Domains...)
		}
		in.Server.TLSConfig = in.AutoCert.TLSConfig()
	}

	if t.RedirectAddress == "" || (in.AutoCert == nil && t.Cert == "") {
		return
	}
	var h http.Handler = http.HandlerFunc(redirectToHTTPS)
	if in.AutoCert != nil {
		h = in.AutoCert.HTTPHandler(h)
	}
	in.Redirector = &http.Server{Addr: t.RedirectAddress, Handler: h}
}

func redirectToHTTPS(w http.ResponseWriter, r *http.Request) {
	u := *r.URL
	u.Scheme = "https"
	u.Host = r.Host
	if host, _, err := net.SplitHostPort(r.Host); err == nil {
		u.Host = host
	}
	http.Redirect(w, r, u.String(), http.StatusMovedPermanently)
}

func (in *Instance) setupAssets() {
	dir := in.Config.Assets
	if dir == "" {
		return
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return
	}

	assets, err := transplacer.Make(&transplacer.AssetCache{
		Dir:     dir,
		Expire:  30 * time.Minute,
		DevMode: in.Config.DevMode,
		Logger:  in.Logger,
	})
	if err != nil {
		in.Logger.Warn("asset cache disabled", "dir", dir, "err", err)
		return
	}
	in.Assets = assets
}

// Use appends wares to the Middleware.
func (in *Instance) Use(wares ...Middleware) {
	in.Middleware = append(in.Middleware, wares...)
}

// AddWare is Use.
func (in *Instance) AddWare(wares ...Middleware) {
	in.Use(wares...)
}

// AddPreWare appends wares to the PreMiddleware.
func (in *Instance) AddPreWare(wares ...Middleware) {
	in.PreMiddleware = append(in.PreMiddleware, wares...)
}

// AddHTTPWare appends net/http middleware to the Middleware.
func (in *Instance) AddHTTPWare(wares ...func(http.Handler) http.Handler) {
	for _, w := range wares {
		in.Use(HTTPMiddleware(w))
	}
}

func (in *Instance) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := NewCtx(in, w, r)

	routed := func(c *Ctx) error {
		return chain(in.Router.Route(c), in.Middleware)(c)
	}
	if err := chain(routed, in.PreMiddleware)(c); err != nil {
		in.fail(c, err)
	}

	if c.Respond && !c.Written {
		if err := c.respond(); err != nil {
			in.Logger.Debug("response emission failed", "path", r.URL.Path, "err", err)
		}
	}

	if c.R.MultipartForm != nil {
		c.R.MultipartForm.RemoveAll()
	}
}

func (in *Instance) fail(c *Ctx, err error) {
	if in.ErrorHandler == nil {
		in.handleError(c, err)
		return
	}
	if herr := in.ErrorHandler(c, err); herr != nil {
		in.Logger.Error("error handler failed", "path", c.R.URL.Path, "err", herr)
	}
}

// handleError answers err with its status and a plain text body unless
// the response is already out. *Err carries its own status and message,
// missing files are 404 and anything else is a 500.
func (in *Instance) handleError(c *Ctx, err error) {
	code, msg := http.StatusInternalServerError, ""

	var merr *Err
	switch {
	case errors.As(err, &merr):
		code, msg = merr.Code, merr.Value
	case errors.Is(err, os.ErrNotExist):
		code = http.StatusNotFound
	}
	if msg == "" {
		msg = http.StatusText(code)
	}

	if code != http.StatusNotFound {
		in.Logger.Error("request failed", "method", c.R.Method, "path", c.R.URL.Path, "status", code, "err", err)
	}
	if c.Written || !c.Respond {
		return
	}

	for name := range c.W.Header() {
		c.W.Header().Del(name)
	}
	c.SetStatus(code)
	c.WriteString(msg)
}

// respond answers a chain that wrote nothing with the status text.
func (c *Ctx) respond() error {
	if bodiless(c.Status) || c.R.Method == http.MethodHead {
		return c.WriteContent(nil)
	}

	body := http.StatusText(c.Status)
	if body == "" {
		body = fmt.Sprint(c.Status)
	}
	if c.ContentType() == "" {
		c.SetContentType("text/plain; charset=utf-8")
	}
	return c.WriteBlob([]byte(body))
}

// Run serves until the server stops, over TLS when the config asks for it.
func (in *Instance) Run() error {
	if in.Redirector != nil {
		go func() {
			if err := in.Redirector.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				in.Logger.Error("https redirector stopped", "addr", in.Redirector.Addr, "err", err)
			}
		}()
	}

	t := in.Config.TLS
	switch {
	case in.AutoCert != nil:
		return in.Server.ListenAndServeTLS("", "")
	case t.Cert != "":
		return in.Server.ListenAndServeTLS(t.Cert, t.Key)
	}
	return in.Server.ListenAndServe()
}

// Shutdown stops the servers gracefully, waiting for open requests until
// ctx ends, then releases the asset cache and the views.
func (in *Instance) Shutdown(ctx context.Context) error {
	if in.Redirector != nil {
		in.Redirector.Shutdown(ctx)
	}
	err := in.Server.Shutdown(ctx)
	in.release()
	return err
}

// Stop closes the servers at once.
func (in *Instance) Stop() error {
	if in.Redirector != nil {
		in.Redirector.Close()
	}
	err := in.Server.Close()
	in.release()
	return err
}

func (in *Instance) release() {
	if in.Assets != nil {
		in.Assets.Close()
	}
	if in.Views != nil {
		in.Views.Close()
	}
}

var configDecoders = map[string]func([]byte, interface{}) error{
	".json": jsoniter.Unmarshal,
	".toml": toml.Unmarshal,
	".yaml": yaml.Unmarshal,
	".yml":  yaml.Unmarshal,
}

// LoadConfig reads a json, toml or yaml config file, picked by extension.
// The raw map holds every key, including ones Config does not know.
func LoadConfig(location string) (*Config, map[string]interface{}, error) {
	ext := strings.ToLower(filepath.Ext(location))
	decode, ok := configDecoders[ext]
	if !ok {
		return nil, nil, fmt.Errorf("mak: unknown config format %q", ext)
	}

	data, err := ioutil.ReadFile(location)
	if err != nil {
		return nil, nil, err
	}

	conf := &Config{}
	raw := map[string]interface{}{}
	if err := decode(data, conf); err != nil {
		return nil, nil, fmt.Errorf("mak: config %s: %w", location, err)
	}
	if err := decode(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("mak: config %s: %w", location, err)
	}
	return conf, raw, nil
}

// MakeFromConf is LoadConfig followed by Make.
func MakeFromConf(location string) (*Instance, error) {
	conf, raw, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	in := Make(conf)
	in.RawConfig = raw
	return in, nil
}
