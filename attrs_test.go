package htmlsanitizer_test

import (
	"testing"

	"golang.org/x/net/html"

	"github.com/njchilds90/htmlsanitizer/v2"
)

func TestSetGetRemoveAttr(t *testing.T) {
	n := &html.Node{Type: html.ElementNode, Data: "a"}
	htmlsanitizer.SetAttr(n, "href", "https://example.com")
	if v := htmlsanitizer.GetAttr(n, "href"); v != "https://example.com" {
		t.Errorf("GetAttr got %q want https://example.com", v)
	}
	htmlsanitizer.SetAttr(n, "href", "https://other.com")
	if v := htmlsanitizer.GetAttr(n, "href"); v != "https://other.com" {
		t.Errorf("SetAttr update got %q", v)
	}
	if len(n.Attr) != 1 {
		t.Errorf("SetAttr update should not append, got %d attributes", len(n.Attr))
	}
	htmlsanitizer.RemoveAttr(n, "href")
	if v := htmlsanitizer.GetAttr(n, "href"); v != "" {
		t.Errorf("RemoveAttr should leave empty, got %q", v)
	}
}

func TestAttrHelpers_IgnoreNamespacedAttributes(t *testing.T) {
	n := &html.Node{
		Type: html.ElementNode,
		Data: "a",
		Attr: []html.Attribute{{Namespace: "xlink", Key: "href", Val: "x"}},
	}
	if v := htmlsanitizer.GetAttr(n, "href"); v != "" {
		t.Errorf("GetAttr matched a namespaced attribute: %q", v)
	}
	htmlsanitizer.RemoveAttr(n, "href")
	if len(n.Attr) != 1 {
		t.Errorf("RemoveAttr removed a namespaced attribute")
	}
	htmlsanitizer.SetAttr(n, "href", "y")
	if len(n.Attr) != 2 || htmlsanitizer.GetAttr(n, "href") != "y" {
		t.Errorf("SetAttr should append a plain href, got %v", n.Attr)
	}
}
