// Package transplacer keeps static files in memory, gzipped where it pays,
// and serves them with validators and HTTP/2 pushes for html pages.
package transplacer

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/fsnotify/fsnotify"
)

// ErrAssetNotFound is the default NotFoundError.
var ErrAssetNotFound = errors.New("no asset/file found, cannot serve")

// Compressable lists the extensions worth gzipping, append to it if needed.
var Compressable = []string{
	"", ".txt", ".htm", ".html", ".css", ".toml", ".js", ".json", ".md",
	".mdown", ".xml", ".svg", ".yaml", ".yml", ".csv", ".map",
}

// AssetCache is a store for the files under Dir.
type AssetCache struct {
	Dir string

	// Index is served for "/" unless NoIndex is set.
	Index   string
	NoIndex bool

	Cache *hashmap.HashMap

	// Assets older than Expire are dropped every Interval.
	Expire   time.Duration
	Interval time.Duration

	CacheControl string

	DevMode bool

	// Watch reloads assets when their files change.
	Watch   bool
	Watcher *fsnotify.Watcher

	Logger *slog.Logger

	NotFoundHandler func(http.ResponseWriter, *http.Request)
	NotFoundError   error

	mu     sync.Mutex
	ticker *time.Ticker
	stop   chan struct{}
}

// Make fills in a's defaults, starts its expiry loop and, when asked, its
// file watcher.
func Make(a *AssetCache) (*AssetCache, error) {
	dir, err := filepath.Abs(a.Dir)
	if err != nil {
		return nil, err
	}
	a.Dir = dir

	if a.Index == "" {
		a.Index = PrepPath(a.Dir, "index.html")
	}
	if a.Cache == nil {
		a.Cache = hashmap.New(64)
	}
	if a.CacheControl == "" {
		a.CacheControl = "private, must-revalidate"
	}
	if a.NotFoundError == nil {
		a.NotFoundError = ErrAssetNotFound
	}
	if a.NotFoundHandler == nil {
		a.NotFoundHandler = func(res http.ResponseWriter, req *http.Request) {
			http.Error(res, a.NotFoundError.Error(), http.StatusNotFound)
		}
	}
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	if a.Expire == 0 {
		a.Expire = 30 * time.Minute
	}
	if a.Interval == 0 {
		a.Interval = 30 * time.Second
	}

	if a.Watch {
		if a.Watcher, err = fsnotify.NewWatcher(); err != nil {
			return nil, fmt.Errorf("transplacer: failed to build file watcher: %v", err)
		}
		go a.watch(a.Watcher)
	}

	a.SetExpiryCheckInterval(a.Interval)
	return a, nil
}

func (a *AssetCache) watch(w *fsnotify.Watcher) {
	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			a.Logger.Debug("asset changed", "file", e.Name, "op", e.Op.String())
			if !a.Update(e.Name) {
				a.Logger.Debug("changed asset dropped", "file", e.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			a.Logger.Warn("asset watcher error", "err", err)
		}
	}
}

// SetExpiryCheckInterval restarts the expiry loop with a new interval.
func (a *AssetCache) SetExpiryCheckInterval(interval time.Duration) {
	a.StopExpiryCheckInterval()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.Interval = interval
	a.ticker = time.NewTicker(interval)
	a.stop = make(chan struct{})

	go a.expire(a.ticker, a.stop)
}

func (a *AssetCache) expire(t *time.Ticker, stop chan struct{}) {
	for {
		select {
		case now := <-t.C:
			for kv := range a.Cache.Iter() {
				if now.After(kv.Value.(*Asset).Loaded.Add(a.Expire)) {
					a.Del(kv.Key.(string))
				}
			}
		case <-stop:
			return
		}
	}
}

// StopExpiryCheckInterval stops asset expiration checks.
func (a *AssetCache) StopExpiryCheckInterval() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ticker != nil {
		a.ticker.Stop()
		close(a.stop)
		a.ticker, a.stop = nil, nil
	}
}

// Close stops the background work and empties the cache.
func (a *AssetCache) Close() error {
	a.StopExpiryCheckInterval()
	a.Cache = hashmap.New(64)
	if a.Watcher != nil {
		return a.Watcher.Close()
	}
	return nil
}

// Get returns the asset for name, loading it on a miss.
func (a *AssetCache) Get(name string) (*Asset, bool) {
	name = PrepPath(a.Dir, name)

	if raw, ok := a.Cache.GetStringKey(name); ok {
		return raw.(*Asset), true
	}

	asset, err := a.Gen(name)
	if err != nil {
		a.Logger.Debug("asset unavailable", "name", name, "err", err)
		return nil, false
	}
	return asset, true
}

// Gen loads the file for name and caches it. Directories resolve to their
// index.html.
func (a *AssetCache) Gen(name string) (*Asset, error) {
	name = PrepPath(a.Dir, name)

	asset, err := LoadAsset(name)
	if err != nil {
		return nil, err
	}
	asset.CacheControl = a.CacheControl

	if a.Watch && a.Watcher != nil {
		a.Watcher.Add(asset.Path)
	}
	a.Cache.Set(asset.Path, asset)
	if asset.Path != name {
		a.Cache.Set(name, asset)
	}
	return asset, nil
}

// Del forgets the cached asset for name. The file stays on disk.
func (a *AssetCache) Del(name string) {
	name = PrepPath(a.Dir, name)
	a.Cache.Del(name)
	if a.Watch && a.Watcher != nil {
		a.Watcher.Remove(name)
	}
}

// Update drops an asset and loads it again, reporting whether it could be.
func (a *AssetCache) Update(name string) bool {
	name = PrepPath(a.Dir, name)
	a.Cache.Del(name)
	_, ok := a.Get(name)
	return ok
}

// ServeFileDirect serves the asset stored under key, NotFoundError when
// there is none.
func (a *AssetCache) ServeFileDirect(res http.ResponseWriter, req *http.Request, key string) error {
	asset, ok := a.Get(key)
	if !ok {
		return a.NotFoundError
	}
	asset.Serve(res, req)
	return nil
}

// ServeFile serves a file under Dir, NotFoundError when there is none.
func (a *AssetCache) ServeFile(res http.ResponseWriter, req *http.Request, file string) error {
	return a.ServeFileDirect(res, req, PrepPath(a.Dir, file))
}

// Serve serves the asset the request's path names and returns the failure
// instead of calling NotFoundHandler.
func (a *AssetCache) Serve(res http.ResponseWriter, req *http.Request) error {
	if req.URL.Path == "/" && !a.NoIndex {
		return a.ServeFileDirect(res, req, a.Index)
	}
	return a.ServeFile(res, req, req.URL.Path)
}

// ServeHTTP answers GET and HEAD from the cache and 405 otherwise.
func (a *AssetCache) ServeHTTP(res http.ResponseWriter, req *http.Request) {
	if req.Method != "GET" && req.Method != "HEAD" {
		res.Header().Set("Allow", "GET, HEAD")
		http.Error(res, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	if err := a.Serve(res, req); err != nil && a.NotFoundHandler != nil {
		a.NotFoundHandler(res, req)
	}
}

// Middleware serves assets for GET and HEAD requests and hands everything
// else, misses included, to h.
func (a *AssetCache) Middleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		if req.Method != "GET" && req.Method != "HEAD" {
			h.ServeHTTP(res, req)
			return
		}

		if err := a.Serve(res, req); err != nil {
			h.ServeHTTP(res, req)
		}
	})
}

// PrepPath joins a host path with a clean file path. Paths already under
// host are kept, everything else is rooted at host so it cannot climb out.
func PrepPath(host, file string) string {
	sep := string(filepath.Separator)
	if clean := filepath.Clean(file); host != "" && (clean == host || strings.HasPrefix(clean, strings.TrimSuffix(host, sep)+sep)) {
		file = clean
	} else {
		file = filepath.Join(host, filepath.FromSlash(path.Clean("/"+filepath.ToSlash(file))))
	}

	if strings.HasSuffix(file, sep) {
		return filepath.Join(file, "index.html")
	}
	return file
}

// containsFold reports whether list holds match under case folding.
func containsFold(list []string, match string) bool {
	for _, item := range list {
		if strings.EqualFold(item, match) {
			return true
		}
	}
	return false
}
