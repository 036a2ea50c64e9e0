package htmlsanitizer

import (
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/njchilds90/htmlsanitizer/v2/internal/style"
)

// SetAttr sets (or adds) the attribute key=val on node n.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// GetAttr returns the value of the named attribute on n, or "" if not
// present.
func GetAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// RemoveAttr removes the named attribute from n if present.
func RemoveAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}

// attrName is the name an attribute is whitelisted under. Attributes of
// foreign content keep their namespace prefix, e.g. "xlink:href".
func attrName(a html.Attribute) string {
	if a.Namespace != "" {
		return a.Namespace + ":" + a.Key
	}
	return a.Key
}

// filterAttributes drops every attribute of n that the policy does not
// whitelist, and every URL attribute whose URL is rejected.
func (r *rewriter) filterAttributes(n *html.Node, tag string) {
	p := r.policy
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		name := attrName(a)
		switch {
		case !p.attrAllowed(tag, name, a.Val):
			r.droppedAttr(tag, name, "not allowed")
		case isURLAttr(tag, name) && !p.urlAllowed(a.Val):
			r.droppedAttr(tag, name, "url rejected")
		default:
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func (p *Policy) attrAllowed(tag, name, value string) bool {
	if contains(p.genericAttributes, name) || contains(p.tagAttributes[tag], name) {
		return true
	}
	if contains(p.allowedAttributeValues[tag][name], strings.ToLower(value)) {
		return true
	}
	for prefix := range p.genericAttributePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	if name == "class" {
		_, ok := p.allowedClasses[tag]
		return ok
	}
	return false
}

// adjustAttributes rewrites the attributes that survived filterAttributes.
// The stages run in a fixed order; each sees the result of the previous one.
func (r *rewriter) adjustAttributes(n *html.Node, tag string) {
	p := r.policy

	if forced, ok := p.forcedAttributeValues[tag]; ok {
		for _, attr := range sortedKeys(forced) {
			SetAttr(n, attr, forced[attr])
		}
	}

	if p.linkRel != "" && tag == "a" {
		SetAttr(n, "rel", p.linkRel)
	}

	if p.idPrefix != "" {
		for i, a := range n.Attr {
			if a.Namespace == "" && a.Key == "id" && !strings.HasPrefix(a.Val, p.idPrefix) {
				n.Attr[i].Val = p.idPrefix + a.Val
			}
		}
	}

	if p.attributeFilter != nil {
		var drop []int
		for i, a := range n.Attr {
			name := attrName(a)
			val, ok := p.attributeFilter(tag, name, a.Val)
			if !ok {
				r.droppedAttr(tag, name, "attribute filter")
				drop = append(drop, i)
				continue
			}
			n.Attr[i].Val = val
		}
		for i := len(drop) - 1; i >= 0; i-- {
			n.Attr = slices.Delete(n.Attr, drop[i], drop[i]+1)
		}
	}

	if m := p.urlRelative.mode; m == relativeRewrite || m == relativeCustom {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			if name := attrName(a); isURLAttr(tag, name) {
				val, ok := p.rewriteRelativeURL(a.Val)
				if !ok {
					r.droppedAttr(tag, name, "relative url rejected")
					continue
				}
				a.Val = val
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	}

	if classes, ok := p.allowedClasses[tag]; ok {
		for i, a := range n.Attr {
			if a.Namespace == "" && a.Key == "class" {
				n.Attr[i].Val = filterClasses(a.Val, classes)
			}
		}
	}

	if p.styleProperties != nil {
		for i, a := range n.Attr {
			if a.Namespace == "" && a.Key == "style" {
				n.Attr[i].Val = style.Filter(a.Val, p.styleProperties)
			}
		}
	}
}

// filterClasses keeps the space separated tokens of value found in allowed.
func filterClasses(value string, allowed map[string]struct{}) string {
	var kept []string
	for _, class := range strings.Split(value, " ") {
		if contains(allowed, class) {
			kept = append(kept, class)
		}
	}
	return strings.Join(kept, " ")
}
