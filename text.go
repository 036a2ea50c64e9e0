package htmlsanitizer

import (
	"strings"
	"sync"

	"golang.org/x/net/html"
)

var textEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
	"`", "&grave;",
	"/", "&#47;",
	"&", "&amp;",
	"=", "&#61;",
	" ", "&#32;",
	"\t", "&#9;",
	"\n", "&#10;",
	"\f", "&#12;",
	"\r", "&#13;",
	"\x00", "&#65533;",
)

// CleanText escapes s so that it can be used verbatim as element text or as
// an attribute value, quoted or not. Unlike Sanitize it keeps no markup: the
// browser shows exactly s.
func CleanText(s string) string {
	return textEscaper.Replace(s)
}

var textPolicy = sync.OnceValue(func() *Policy {
	return EmptyPolicy().SetCleanContentTags("script", "style")
})

// StripTags returns the text content of fragment with every tag removed and
// entities decoded. The content of script and style elements is dropped.
// The result is plain text, not HTML.
func StripTags(fragment string) string {
	doc := textPolicy().Sanitize(fragment)
	var sb strings.Builder
	for c := doc.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}
