package htmlsanitizer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var defaultPolicy = sync.OnceValue(NewPolicy)

// Sanitize cleans fragment with the policy returned by [NewPolicy].
func Sanitize(fragment string) string {
	return defaultPolicy().Sanitize(fragment).String()
}

// SanitizeReader reads a fragment from r and cleans it with the policy
// returned by [NewPolicy].
func SanitizeReader(r io.Reader) (string, error) {
	doc, err := defaultPolicy().SanitizeReader(r)
	if err != nil {
		return "", err
	}
	return doc.String(), nil
}

// Sanitize parses fragment as the content of a <div> element and returns
// the sanitized tree.
//
// It panics if the policy does not pass [Policy.Validate].
func (p *Policy) Sanitize(fragment string) *Document {
	doc, err := p.SanitizeReader(strings.NewReader(fragment))
	if err != nil {
		// reading a strings.Reader cannot fail
		panic(err)
	}
	return doc
}

// SanitizeReader is like Sanitize but reads the fragment from r. Invalid
// UTF-8 is replaced with U+FFFD rather than reported; the only errors
// returned are those of r.
//
// It panics if the policy does not pass [Policy.Validate].
func (p *Policy) SanitizeReader(r io.Reader) (*Document, error) {
	if err := p.Validate(); err != nil {
		if p.logger != nil {
			p.logger.Error("refusing to sanitize with invalid policy", "error", err)
		}
		panic(err)
	}

	nodes, err := html.ParseFragment(transform.NewReader(r, unicode.UTF8.NewDecoder()), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return nil, fmt.Errorf("htmlsanitizer: read input: %w", err)
	}

	rw := &rewriter{
		policy: p,
		debug:  p.logger != nil && p.logger.Enabled(context.Background(), slog.LevelDebug),
	}
	return &Document{root: rw.rewrite(nodes)}, nil
}

type pending struct {
	node   *html.Node
	parent *html.Node // where node goes in the output tree
}

// rewriter holds the state of one Sanitize call.
type rewriter struct {
	policy *Policy
	debug  bool
}

// rewrite moves the accepted nodes of a parsed fragment under a new
// document root. Rejected elements are unwrapped; elements in the
// content-removal set are dropped with everything below them. The walk uses
// explicit stacks, so arbitrarily deep input does not grow the call stack.
func (r *rewriter) rewrite(nodes []*html.Node) *html.Node {
	root := &html.Node{Type: html.DocumentNode}

	stack := make([]pending, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, pending{node: nodes[i], parent: root})
	}

	var removed []*html.Node
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := item.node

		if n.Type == html.ElementNode && contains(r.policy.cleanContentTags, tagName(n)) {
			r.dropped(n, "removed with content")
			removed = append(removed, n)
			continue
		}

		parent := item.parent
		if r.accept(n) {
			item.parent.AppendChild(n)
			parent = n
		}

		for c := n.LastChild; c != nil; {
			prev := c.PrevSibling
			n.RemoveChild(c)
			stack = append(stack, pending{node: c, parent: parent})
			c = prev
		}
	}

	for len(removed) > 0 {
		n := removed[len(removed)-1]
		removed = removed[:len(removed)-1]
		for c := n.FirstChild; c != nil; c = n.FirstChild {
			n.RemoveChild(c)
			removed = append(removed, c)
		}
	}

	return root
}

// accept reports whether n is kept, filtering and adjusting the attributes
// of kept elements.
func (r *rewriter) accept(n *html.Node) bool {
	switch n.Type {
	case html.TextNode:
		return true
	case html.CommentNode:
		if r.policy.stripComments {
			r.dropped(n, "comment")
			return false
		}
		return true
	case html.ElementNode:
		tag := tagName(n)
		if !contains(r.policy.tags, tag) {
			r.dropped(n, "unwrapped")
			return false
		}
		r.filterAttributes(n, tag)
		r.adjustAttributes(n, tag)
		return true
	default:
		r.dropped(n, "unsupported node")
		return false
	}
}

func tagName(n *html.Node) string {
	return strings.ToLower(n.Data)
}

func (r *rewriter) dropped(n *html.Node, reason string) {
	if !r.debug {
		return
	}
	element := ""
	if n.Type == html.ElementNode {
		element = tagName(n)
	}
	r.policy.logger.Debug("dropped node", "element", element, "reason", reason)
}

func (r *rewriter) droppedAttr(element, attribute, reason string) {
	if !r.debug {
		return
	}
	r.policy.logger.Debug("dropped attribute", "element", element, "attribute", attribute, "reason", reason)
}
