package transplacer

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"fmt"
	"io/ioutil"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Asset is a file held in memory, ready to be served.
type Asset struct {
	Path string
	Name string
	Ext  string

	ContentType  string
	CacheControl string

	Loaded  time.Time
	ModTime time.Time

	Content []byte
	Etag    string

	// Compressed assets also carry a gzipped copy with its own validator.
	Compressed        bool
	ContentCompressed []byte
	EtagCompressed    string

	// PushList holds the absolute links of an html asset.
	PushList []string
}

// LoadAsset reads the file at name, or the index.html of the directory at
// name.
func LoadAsset(name string) (*Asset, error) {
	fi, err := os.Stat(name)
	if err != nil {
		return nil, err
	}

	if fi.IsDir() {
		name = filepath.Join(name, "index.html")
		if fi, err = os.Stat(name); err != nil {
			return nil, err
		}
	}

	content, err := ioutil.ReadFile(name)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(name)
	asset := &Asset{
		Path:        name,
		Name:        fi.Name(),
		Ext:         ext,
		ContentType: mime.TypeByExtension(ext),
		Loaded:      time.Now(),
		ModTime:     fi.ModTime(),
		Content:     content,
		Etag:        etag(content),
		Compressed:  containsFold(Compressable, ext),
	}

	if asset.ContentType == "" {
		asset.ContentType = http.DetectContentType(content)
	}

	if asset.Compressed {
		if asset.ContentCompressed, err = gzipBytes(content, gzip.BestCompression); err != nil {
			return nil, err
		}
		asset.EtagCompressed = etag(asset.ContentCompressed)
	}

	if ext == ".html" || ext == ".htm" {
		if list, err := Pushables(string(content)); err == nil {
			asset.PushList = list
		}
	}

	return asset, nil
}

func etag(b []byte) string {
	return fmt.Sprintf(`"%x"`, sha256.Sum256(b))
}

// Serve writes the asset with http.ServeContent, gzipped when the client
// takes it. Each call reads through its own reader.
func (as *Asset) Serve(res http.ResponseWriter, req *http.Request) {
	h := res.Header()
	h.Set("Content-Type", as.ContentType)
	if as.CacheControl != "" {
		h.Set("Cache-Control", as.CacheControl)
	}

	if req.TLS != nil {
		if h.Get("Strict-Transport-Security") == "" {
			h.Set("Strict-Transport-Security", "max-age=31536000")
		}
		if req.ProtoMajor >= 2 && len(as.PushList) > 0 {
			pushWithHeaders(res, req, as.PushList)
		}
	}

	content, tag := as.Content, as.Etag
	if as.Compressed {
		h.Add("Vary", "Accept-Encoding")
		if strings.Contains(req.Header.Get("Accept-Encoding"), "gzip") {
			content, tag = as.ContentCompressed, as.EtagCompressed
			h.Set("Content-Encoding", "gzip")
		}
	}

	h.Set("Etag", tag)
	http.ServeContent(res, req, as.Name, as.ModTime, bytes.NewReader(content))
}

func gzipBytes(content []byte, level int) ([]byte, error) {
	var b bytes.Buffer

	gz, err := gzip.NewWriterLevel(&b, level)
	if err != nil {
		return nil, err
	}

	if _, err := gz.Write(content); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}
