package transplacer

import (
	"net/http"
	"net/textproto"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// HTTP2Push pushes target over w when it supports server push and does
// nothing otherwise. headers become the promised request's headers.
func HTTP2Push(w http.ResponseWriter, target string, headers http.Header) error {
	p, ok := w.(http.Pusher)
	if !ok {
		return nil
	}

	var opts *http.PushOptions
	if len(headers) > 0 {
		opts = &http.PushOptions{Header: make(http.Header, len(headers))}
		for name, values := range headers {
			opts.Header[textproto.CanonicalMIMEHeaderKey(name)] = values
		}
		opts.Header.Set("Cache-Control", "private, must-revalidate")
	}

	return p.Push(target, opts)
}

// pushWithHeaders pushes every target with the request's headers, minus
// the conditional ones that belong to the page itself.
func pushWithHeaders(w http.ResponseWriter, req *http.Request, targets []string) {
	headers := make(http.Header, len(req.Header))
	for name, values := range req.Header {
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, "if-") || lower == "etag" || lower == "range" {
			continue
		}
		headers[name] = append([]string(nil), values...)
	}

	for _, target := range targets {
		HTTP2Push(w, target, headers)
	}
}

// Pushables lists the absolute link, img and script targets of an html
// document, in document order.
func Pushables(doc string) ([]string, error) {
	list := []string{}

	tree, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return list, err
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			attr := ""
			switch n.Data {
			case "link":
				attr = "href"
			case "img", "script":
				attr = "src"
			}

			for _, a := range n.Attr {
				if attr != "" && a.Key == attr && path.IsAbs(a.Val) {
					list = append(list, a.Val)
					break
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(tree)
	return list, nil
}
