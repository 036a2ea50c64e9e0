package htmlsanitizer

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a sanitized HTML fragment.
//
// A Document does not carry the policy it was produced with; it is safe to
// keep after the policy changes.
type Document struct {
	root *html.Node
}

// String serializes the fragment as HTML.
func (d *Document) String() string {
	var sb strings.Builder
	// Rendering only fails for trees the rewriter never builds, such as a
	// void element with children.
	_, _ = d.WriteTo(&sb)
	return sb.String()
}

// GoString makes %#v print the serialized fragment.
func (d *Document) GoString() string {
	return "Document(" + d.String() + ")"
}

// WriteTo serializes the fragment to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := html.Render(cw, d.root)
	return cw.n, err
}

// Clone returns an independent Document parsed from the serialization of d.
// Trees the parser would never build, such as a <p> nested in a <p> after
// unwrapping, come back the way the parser reads them.
func (d *Document) Clone() *Document {
	root := &html.Node{Type: html.DocumentNode}
	nodes, err := html.ParseFragment(strings.NewReader(d.String()), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		// reading a strings.Reader cannot fail
		panic(err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Document{root: root}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
