package mak

import (
	"mime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

func init() {
	// Plain text has no entry in Go's builtin table; keep "txt"/"text"
	// lookups stable across hosts.
	mime.AddExtensionType(".txt", "text/plain; charset=utf-8")
	mime.AddExtensionType(".text", "text/plain; charset=utf-8")
}

// acceptSpec is one entry of an Accept* header.
type acceptSpec struct {
	value  string
	params map[string]string
	q      float64
	index  int
}

// offerPriority ranks an offer against the header that accepted it.
type offerPriority struct {
	offer string
	q     float64
	s     int
	o     int
	i     int
}

// parseAccept splits an Accept* header into its specs.
func parseAccept(header string) []acceptSpec {
	specs := []acceptSpec{}
	for i, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		fields := strings.Split(part, ";")
		spec := acceptSpec{
			value:  strings.ToLower(strings.TrimSpace(fields[0])),
			params: map[string]string{},
			q:      1,
			index:  i,
		}

		for _, f := range fields[1:] {
			kv := strings.SplitN(strings.TrimSpace(f), "=", 2)
			if len(kv) != 2 {
				continue
			}

			k := strings.ToLower(strings.TrimSpace(kv[0]))
			v := strings.Trim(strings.TrimSpace(kv[1]), `"`)
			if k == "q" {
				if q, err := strconv.ParseFloat(v, 64); err == nil {
					spec.q = q
				}
				continue
			}
			spec.params[k] = v
		}

		specs = append(specs, spec)
	}
	return specs
}

// pickOffers orders the acceptable offers, best first. match scores an offer
// against a spec; ok is false when they do not match.
func pickOffers(offers []string, specs []acceptSpec, match func(offer string, spec acceptSpec) (s int, ok bool)) []string {
	ranked := []offerPriority{}
	for i, offer := range offers {
		best := offerPriority{offer: offer, o: -1, i: i}
		found := false
		for _, spec := range specs {
			s, ok := match(offer, spec)
			if !ok {
				continue
			}

			if !found || s > best.s || (s == best.s && spec.q > best.q) ||
				(s == best.s && spec.q == best.q && spec.index > best.o) {
				best.s, best.q, best.o = s, spec.q, spec.index
				found = true
			}
		}

		if found && best.q > 0 {
			ranked = append(ranked, best)
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		x, y := ranked[a], ranked[b]
		if x.q != y.q {
			return x.q > y.q
		}
		if x.s != y.s {
			return x.s > y.s
		}
		if x.o != y.o {
			return x.o < y.o
		}
		return x.i < y.i
	})

	out := make([]string, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.offer)
	}
	return out
}

// mimeOf turns "json", ".json" or "application/json" into a bare media type.
func mimeOf(t string) string {
	if strings.Contains(t, "/") {
		mt, _, err := mime.ParseMediaType(t)
		if err != nil {
			return strings.ToLower(t)
		}
		return mt
	}

	ct := mime.TypeByExtension("." + strings.TrimPrefix(t, "."))
	if ct == "" {
		return ""
	}
	mt, _, _ := mime.ParseMediaType(ct)
	return mt
}

// Accepts returns the offer that best suits the Accept header, "" when none
// does. Offers may be media types or extensions such as "json". Without an
// Accept header the first offer wins.
func (c *Ctx) Accepts(offers ...string) string {
	if len(offers) == 0 {
		return ""
	}

	header := c.R.Header.Get("Accept")
	if header == "" {
		return offers[0]
	}

	types := map[string]string{}
	valid := []string{}
	for _, offer := range offers {
		if mt := mimeOf(offer); mt != "" {
			types[offer] = mt
			valid = append(valid, offer)
		}
	}

	best := pickOffers(valid, parseAccept(header), func(offer string, spec acceptSpec) (int, bool) {
		parts := strings.SplitN(types[offer], "/", 2)
		want := strings.SplitN(spec.value, "/", 2)
		if len(parts) != 2 || len(want) != 2 {
			return 0, false
		}

		s := 0
		if want[0] == parts[0] {
			s |= 4
		} else if want[0] != "*" {
			return 0, false
		}

		if want[1] == parts[1] {
			s |= 2
		} else if want[1] != "*" {
			return 0, false
		}

		if len(spec.params) > 0 {
			s |= 1
		}
		return s, true
	})

	if len(best) == 0 {
		return ""
	}
	return best[0]
}

// AcceptedTypes lists the media types of the Accept header, most preferred
// first.
func (c *Ctx) AcceptedTypes() []string {
	specs := parseAccept(c.R.Header.Get("Accept"))
	sort.SliceStable(specs, func(a, b int) bool { return specs[a].q > specs[b].q })

	types := []string{}
	for _, spec := range specs {
		if spec.q > 0 {
			types = append(types, spec.value)
		}
	}
	return types
}

// tokenMatch scores plain token specs, as used by charsets and encodings.
func tokenMatch(offer string, spec acceptSpec) (int, bool) {
	switch {
	case strings.EqualFold(offer, spec.value):
		return 1, true
	case spec.value == "*":
		return 0, true
	}
	return 0, false
}

// AcceptsCharsets returns the best offered charset, "" when none fits.
func (c *Ctx) AcceptsCharsets(offers ...string) string {
	if len(offers) == 0 {
		return ""
	}

	header := c.R.Header.Get("Accept-Charset")
	if header == "" {
		return offers[0]
	}

	if best := pickOffers(offers, parseAccept(header), tokenMatch); len(best) > 0 {
		return best[0]
	}
	return ""
}

// AcceptsEncodings returns the best offered content coding, "" when none
// fits. identity is acceptable unless the header rules it out.
func (c *Ctx) AcceptsEncodings(offers ...string) string {
	if len(offers) == 0 {
		return ""
	}

	specs := parseAccept(c.R.Header.Get("Accept-Encoding"))

	hasIdentity := false
	minQ := 1.0
	for _, spec := range specs {
		if spec.value == "identity" || spec.value == "*" {
			hasIdentity = true
		}
		if spec.q < minQ {
			minQ = spec.q
		}
	}

	if !hasIdentity {
		specs = append(specs, acceptSpec{value: "identity", q: minQ, index: len(specs)})
	}

	if best := pickOffers(offers, specs, tokenMatch); len(best) > 0 {
		return best[0]
	}
	return ""
}

// AcceptsLanguages returns the best offered language, "" when none fits.
// "en" in the header accepts "en-US" and the other way around, with exact
// matches preferred.
func (c *Ctx) AcceptsLanguages(offers ...string) string {
	if len(offers) == 0 {
		return ""
	}

	header := c.R.Header.Get("Accept-Language")
	if header == "" {
		return offers[0]
	}

	tags, qs, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return ""
	}

	specs := make([]acceptSpec, 0, len(tags))
	for i, tag := range tags {
		specs = append(specs, acceptSpec{
			value: strings.ToLower(tag.String()),
			q:     float64(qs[i]),
			index: i,
		})
	}

	best := pickOffers(offers, specs, func(offer string, spec acceptSpec) (int, bool) {
		if spec.value == "und" {
			return 0, true
		}

		tag, err := language.Parse(offer)
		if err != nil {
			return 0, false
		}

		full := strings.ToLower(tag.String())
		base, _ := tag.Base()
		prefix := strings.ToLower(base.String())
		specPrefix := strings.SplitN(spec.value, "-", 2)[0]

		switch {
		case full == spec.value:
			return 4, true
		case specPrefix == full:
			return 2, true
		case spec.value == prefix:
			return 1, true
		}
		return 0, false
	})

	if len(best) == 0 {
		return ""
	}
	return best[0]
}

// Is reports which of the types matches the request's Content-Type. Types
// may be extensions ("json"), media types, wildcards ("text/*", "*/json")
// or suffixes ("+json"). Requests without a body match nothing; without
// types the request's media type is returned.
func (c *Ctx) Is(types ...string) string {
	if !c.hasBody() {
		return ""
	}

	actual, _, err := mime.ParseMediaType(c.R.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}

	if len(types) == 0 {
		return actual
	}

	for _, t := range types {
		want := normalizeIsType(t)
		if want == "" || !mimeMatch(want, actual) {
			continue
		}

		if t[0] == '+' || strings.Contains(t, "*") {
			return actual
		}
		return t
	}

	return ""
}

func (c *Ctx) hasBody() bool {
	return c.R.ContentLength > 0 || len(c.R.TransferEncoding) > 0 ||
		c.R.Header.Get("Transfer-Encoding") != ""
}

func normalizeIsType(t string) string {
	switch {
	case t == "urlencoded":
		return "application/x-www-form-urlencoded"
	case t == "multipart":
		return "multipart/*"
	case t[0] == '+':
		return "*/*" + t
	case strings.Contains(t, "/"):
		return strings.ToLower(t)
	}
	return mimeOf(t)
}

func mimeMatch(want, actual string) bool {
	w := strings.SplitN(want, "/", 2)
	a := strings.SplitN(actual, "/", 2)
	if len(w) != 2 || len(a) != 2 {
		return false
	}

	if w[0] != "*" && w[0] != a[0] {
		return false
	}

	if strings.HasPrefix(w[1], "*+") {
		return len(a[1]) > len(w[1])-1 && strings.HasSuffix(a[1], w[1][1:])
	}

	return w[1] == "*" || w[1] == a[1]
}
