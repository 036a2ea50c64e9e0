package htmlsanitizer

import (
	"net/url"
	"strings"
)

// URLEvaluator decides the fate of a relative URL under [RelativeCustom]:
// returning false drops the attribute, otherwise the returned string
// replaces the URL.
type URLEvaluator func(url string) (string, bool)

type relativeMode int

const (
	relativeDeny relativeMode = iota
	relativePassThrough
	relativeRewrite
	relativeCustom
)

// URLRelative selects how relative URLs in URL attributes are handled. The
// zero value denies them.
type URLRelative struct {
	mode     relativeMode
	base     *url.URL
	evaluate URLEvaluator
}

// RelativeDeny drops every URL attribute whose value is a relative URL.
func RelativeDeny() URLRelative {
	return URLRelative{mode: relativeDeny}
}

// RelativePassThrough keeps relative URLs as they are.
func RelativePassThrough() URLRelative {
	return URLRelative{mode: relativePassThrough}
}

// RelativeRewriteWithBase resolves relative URLs against base, which must be
// absolute.
func RelativeRewriteWithBase(base *url.URL) URLRelative {
	return URLRelative{mode: relativeRewrite, base: base}
}

// RelativeCustom hands every relative URL to f.
func RelativeCustom(f URLEvaluator) URLRelative {
	return URLRelative{mode: relativeCustom, evaluate: f}
}

// Base returns the base URL of a rewrite mode, or nil.
func (r URLRelative) Base() *url.URL {
	return r.base
}

func (r URLRelative) String() string {
	switch r.mode {
	case relativePassThrough:
		return "passthrough"
	case relativeRewrite:
		if r.base == nil {
			return "rewrite()"
		}
		return "rewrite(" + r.base.String() + ")"
	case relativeCustom:
		return "custom"
	default:
		return "deny"
	}
}

// isURLAttr reports whether attr on element carries a URL.
func isURLAttr(element, attr string) bool {
	switch {
	case attr == "href", attr == "src", attr == "xlink:href":
		return true
	case element == "form" && attr == "action",
		element == "object" && attr == "data",
		element == "button" && attr == "formaction",
		element == "input" && attr == "formaction",
		element == "a" && attr == "ping",
		element == "video" && attr == "poster":
		return true
	}
	return false
}

// urlAllowed reports whether a URL attribute value may be kept: an absolute
// URL needs a whitelisted scheme, a relative one needs a relative mode other
// than deny.
func (p *Policy) urlAllowed(value string) bool {
	scheme, ok := urlScheme(normalizeURL(value))
	if !ok {
		return p.urlRelative.mode != relativeDeny
	}
	return contains(p.urlSchemes, strings.ToLower(scheme))
}

// rewriteRelativeURL applies the relative URL mode to value. Absolute URLs
// are returned unchanged.
func (p *Policy) rewriteRelativeURL(value string) (string, bool) {
	if _, ok := urlScheme(normalizeURL(value)); ok {
		return value, true
	}
	switch p.urlRelative.mode {
	case relativeRewrite:
		u, err := parseRelativeURL(normalizeURL(value))
		if err != nil {
			return "", false
		}
		return p.urlRelative.base.ResolveReference(u).String(), true
	case relativeCustom:
		return p.urlRelative.evaluate(value)
	}
	return value, true
}

// urlScheme returns the scheme of s if s starts with one:
// ALPHA *( ALPHA / DIGIT / "+" / "-" / "." ) ":".
func urlScheme(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9', c == '+', c == '-', c == '.':
			if i == 0 {
				return "", false
			}
		case c == ':':
			return s[:i], i > 0
		default:
			return "", false
		}
	}
	return "", false
}

// parseRelativeURL parses a URL reference without a scheme the way browsers
// do: a '%' that does not start an escape is literal, and a colon in the
// first path segment does not make a scheme.
func parseRelativeURL(s string) (*url.URL, error) {
	s = escapeBarePercent(s)
	u, err := url.Parse(s)
	if err != nil && s != "" && !strings.ContainsAny(s[:1], "/?#") {
		u, err = url.Parse("./" + s)
	}
	return u, err
}

func escapeBarePercent(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && (i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2])) {
			sb.WriteString("%25")
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// normalizeURL strips what browsers ignore before parsing a URL: leading
// and trailing C0 controls and spaces, and every tab or newline.
func normalizeURL(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool { return r <= ' ' })
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}
