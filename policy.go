package htmlsanitizer

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// ErrInvalidPolicy is wrapped by every error returned from [Policy.Validate]
// and carried by the panic raised when an invalid Policy is used to sanitize.
var ErrInvalidPolicy = errors.New("htmlsanitizer: invalid policy")

// AttributeFilter is called once for every attribute that survives the
// whitelist on an accepted element. Returning false drops the attribute;
// otherwise the returned string replaces its value.
type AttributeFilter func(element, attribute, value string) (string, bool)

// Policy defines what HTML is considered safe.
//
// A Policy is built once, with the chaining setters below, and may then be
// shared by any number of goroutines calling Sanitize concurrently. It must
// not be mutated while a Sanitize call is running.
//
// Use [NewPolicy] or [EmptyPolicy]; the zero value allows nothing and keeps
// comments.
type Policy struct {
	tags             map[string]struct{}
	cleanContentTags map[string]struct{}

	genericAttributes        map[string]struct{}
	genericAttributePrefixes map[string]struct{}
	tagAttributes            map[string]map[string]struct{}

	// tag -> attribute -> lower-cased allowed values
	allowedAttributeValues map[string]map[string]map[string]struct{}
	// tag -> attribute -> value written onto every accepted element
	forcedAttributeValues map[string]map[string]string

	urlSchemes  map[string]struct{}
	urlRelative URLRelative

	linkRel        string
	allowedClasses map[string]map[string]struct{}
	stripComments  bool
	idPrefix       string

	attributeFilter AttributeFilter

	// nil disables filtering of style attribute values
	styleProperties map[string]struct{}

	logger *slog.Logger
}

// NewPolicy returns a Policy with conservative defaults suitable for
// editorial content: text-level and structural tags, tables, links and
// images, absolute URLs with common schemes only, rel="noopener noreferrer"
// on every link, comments stripped, and script/style removed with their
// content.
func NewPolicy() *Policy {
	return &Policy{
		tags:              toSet(defaultTags),
		cleanContentTags:  toSet(defaultCleanContentTags),
		genericAttributes: toSet(defaultGenericAttributes),
		tagAttributes:     toNestedSet(defaultTagAttributes, true),
		urlSchemes:        toSet(defaultURLSchemes),
		urlRelative:       RelativeDeny(),
		linkRel:           defaultLinkRel,
		stripComments:     true,
	}
}

// EmptyPolicy returns a Policy that allows nothing: every element is
// unwrapped, every attribute dropped. Comments are stripped.
func EmptyPolicy() *Policy {
	return &Policy{
		urlRelative:   RelativeDeny(),
		stripComments: true,
	}
}

// SetTags replaces the set of allowed element names.
func (p *Policy) SetTags(tags ...string) *Policy {
	p.tags = toSet(tags)
	return p
}

// AddTags allows the given element names in addition to the current ones.
func (p *Policy) AddTags(tags ...string) *Policy {
	p.tags = addToSet(p.tags, tags, true)
	return p
}

// RemoveTags disallows the given element names.
func (p *Policy) RemoveTags(tags ...string) *Policy {
	removeFromSet(p.tags, tags, true)
	return p
}

// Tags returns the allowed element names, sorted.
func (p *Policy) Tags() []string {
	return sortedKeys(p.tags)
}

// SetCleanContentTags replaces the set of elements that are removed
// together with everything they contain, text included.
//
// A tag listed here must not also be allowed by SetTags or appear in
// SetTagAttributes.
func (p *Policy) SetCleanContentTags(tags ...string) *Policy {
	p.cleanContentTags = toSet(tags)
	return p
}

// AddCleanContentTags adds to the set of elements removed with their content.
func (p *Policy) AddCleanContentTags(tags ...string) *Policy {
	p.cleanContentTags = addToSet(p.cleanContentTags, tags, true)
	return p
}

// RemoveCleanContentTags removes elements from the content-removal set.
func (p *Policy) RemoveCleanContentTags(tags ...string) *Policy {
	removeFromSet(p.cleanContentTags, tags, true)
	return p
}

// CleanContentTags returns the elements removed with their content, sorted.
func (p *Policy) CleanContentTags() []string {
	return sortedKeys(p.cleanContentTags)
}

// SetGenericAttributes replaces the set of attributes allowed on every
// element.
func (p *Policy) SetGenericAttributes(attrs ...string) *Policy {
	p.genericAttributes = toSet(attrs)
	return p
}

// AddGenericAttributes allows the given attributes on every element.
func (p *Policy) AddGenericAttributes(attrs ...string) *Policy {
	p.genericAttributes = addToSet(p.genericAttributes, attrs, true)
	return p
}

// RemoveGenericAttributes removes attributes from the generic set.
func (p *Policy) RemoveGenericAttributes(attrs ...string) *Policy {
	removeFromSet(p.genericAttributes, attrs, true)
	return p
}

// GenericAttributes returns the attributes allowed on every element, sorted.
func (p *Policy) GenericAttributes() []string {
	return sortedKeys(p.genericAttributes)
}

// SetGenericAttributePrefixes replaces the set of attribute name prefixes
// allowed on every element, e.g. "data-".
func (p *Policy) SetGenericAttributePrefixes(prefixes ...string) *Policy {
	p.genericAttributePrefixes = toSet(prefixes)
	return p
}

// AddGenericAttributePrefixes adds attribute name prefixes.
func (p *Policy) AddGenericAttributePrefixes(prefixes ...string) *Policy {
	p.genericAttributePrefixes = addToSet(p.genericAttributePrefixes, prefixes, true)
	return p
}

// RemoveGenericAttributePrefixes removes attribute name prefixes.
func (p *Policy) RemoveGenericAttributePrefixes(prefixes ...string) *Policy {
	removeFromSet(p.genericAttributePrefixes, prefixes, true)
	return p
}

// GenericAttributePrefixes returns the allowed attribute name prefixes, sorted.
func (p *Policy) GenericAttributePrefixes() []string {
	return sortedKeys(p.genericAttributePrefixes)
}

// SetTagAttributes replaces the per-element attribute whitelist. The map is
// keyed by element name. Entries for elements that are not themselves
// allowed have no effect.
func (p *Policy) SetTagAttributes(attrs map[string][]string) *Policy {
	p.tagAttributes = toNestedSet(attrs, true)
	return p
}

// AddTagAttributes allows attrs on the element tag.
func (p *Policy) AddTagAttributes(tag string, attrs ...string) *Policy {
	p.tagAttributes = addToNestedSet(p.tagAttributes, strings.ToLower(tag), attrs, true)
	return p
}

// RemoveTagAttributes disallows attrs on the element tag.
func (p *Policy) RemoveTagAttributes(tag string, attrs ...string) *Policy {
	removeFromNestedSet(p.tagAttributes, strings.ToLower(tag), attrs, true)
	return p
}

// TagAttributes returns a copy of the per-element attribute whitelist with
// sorted attribute lists.
func (p *Policy) TagAttributes() map[string][]string {
	return nestedSetToMap(p.tagAttributes)
}

// SetAllowedAttributeValues replaces the per-element, per-attribute value
// whitelist. An attribute that is not otherwise whitelisted is kept when its
// value matches one of the listed values, compared case-insensitively.
func (p *Policy) SetAllowedAttributeValues(values map[string]map[string][]string) *Policy {
	p.allowedAttributeValues = nil
	for tag, attrs := range values {
		for attr, vals := range attrs {
			p.AddAllowedAttributeValues(tag, attr, vals...)
		}
	}
	return p
}

// AddAllowedAttributeValues allows attr on tag when its value is one of values.
func (p *Policy) AddAllowedAttributeValues(tag, attr string, values ...string) *Policy {
	tag, attr = strings.ToLower(tag), strings.ToLower(attr)
	if p.allowedAttributeValues == nil {
		p.allowedAttributeValues = make(map[string]map[string]map[string]struct{})
	}
	p.allowedAttributeValues[tag] = addToNestedSet(p.allowedAttributeValues[tag], attr, values, true)
	return p
}

// RemoveAllowedAttributeValues removes values from the whitelist for attr on tag.
func (p *Policy) RemoveAllowedAttributeValues(tag, attr string, values ...string) *Policy {
	tag, attr = strings.ToLower(tag), strings.ToLower(attr)
	attrs, ok := p.allowedAttributeValues[tag]
	if !ok {
		return p
	}
	removeFromNestedSet(attrs, attr, values, true)
	if len(attrs) == 0 {
		delete(p.allowedAttributeValues, tag)
	}
	return p
}

// AllowedAttributeValues returns a copy of the value whitelist. Values are
// reported lower-cased.
func (p *Policy) AllowedAttributeValues() map[string]map[string][]string {
	out := make(map[string]map[string][]string, len(p.allowedAttributeValues))
	for tag, attrs := range p.allowedAttributeValues {
		out[tag] = nestedSetToMap(attrs)
	}
	return out
}

// SetForcedAttributeValues replaces the set of attribute values written onto
// accepted elements: for each element name, attribute name and value, the
// attribute is overwritten if present and appended otherwise.
func (p *Policy) SetForcedAttributeValues(values map[string]map[string]string) *Policy {
	p.forcedAttributeValues = nil
	for tag, attrs := range values {
		for attr, val := range attrs {
			p.ForceAttributeValue(tag, attr, val)
		}
	}
	return p
}

// ForceAttributeValue sets attr to value on every accepted tag element.
func (p *Policy) ForceAttributeValue(tag, attr, value string) *Policy {
	tag, attr = strings.ToLower(tag), strings.ToLower(attr)
	if p.forcedAttributeValues == nil {
		p.forcedAttributeValues = make(map[string]map[string]string)
	}
	if p.forcedAttributeValues[tag] == nil {
		p.forcedAttributeValues[tag] = make(map[string]string)
	}
	p.forcedAttributeValues[tag][attr] = value
	return p
}

// RemoveForcedAttributeValue stops forcing attr on tag.
func (p *Policy) RemoveForcedAttributeValue(tag, attr string) *Policy {
	tag, attr = strings.ToLower(tag), strings.ToLower(attr)
	attrs, ok := p.forcedAttributeValues[tag]
	if !ok {
		return p
	}
	delete(attrs, attr)
	if len(attrs) == 0 {
		delete(p.forcedAttributeValues, tag)
	}
	return p
}

// ForcedAttributeValue reports the value forced onto attr of tag, if any.
func (p *Policy) ForcedAttributeValue(tag, attr string) (string, bool) {
	v, ok := p.forcedAttributeValues[strings.ToLower(tag)][strings.ToLower(attr)]
	return v, ok
}

// ForcedAttributeValues returns a copy of all forced attribute values.
func (p *Policy) ForcedAttributeValues() map[string]map[string]string {
	out := make(map[string]map[string]string, len(p.forcedAttributeValues))
	for tag, attrs := range p.forcedAttributeValues {
		out[tag] = maps.Clone(attrs)
	}
	return out
}

// SetURLSchemes replaces the set of schemes allowed in URL attributes.
func (p *Policy) SetURLSchemes(schemes ...string) *Policy {
	p.urlSchemes = toSet(schemes)
	return p
}

// AddURLSchemes allows more URL schemes.
func (p *Policy) AddURLSchemes(schemes ...string) *Policy {
	p.urlSchemes = addToSet(p.urlSchemes, schemes, true)
	return p
}

// RemoveURLSchemes disallows URL schemes.
func (p *Policy) RemoveURLSchemes(schemes ...string) *Policy {
	removeFromSet(p.urlSchemes, schemes, true)
	return p
}

// URLSchemes returns the allowed URL schemes, sorted.
func (p *Policy) URLSchemes() []string {
	return sortedKeys(p.urlSchemes)
}

// SetURLRelative configures how relative URLs are treated.
func (p *Policy) SetURLRelative(mode URLRelative) *Policy {
	p.urlRelative = mode
	return p
}

// URLRelative returns the relative URL mode.
func (p *Policy) URLRelative() URLRelative {
	return p.urlRelative
}

// SetLinkRel sets the rel value added to every accepted <a> element. The
// empty string disables it.
//
// While a value is set, "rel" must not be whitelisted for <a>, neither
// generically nor per element.
func (p *Policy) SetLinkRel(rel string) *Policy {
	p.linkRel = rel
	return p
}

// LinkRel returns the rel value forced onto links, or "" when disabled.
func (p *Policy) LinkRel() string {
	return p.linkRel
}

// SetAllowedClasses replaces the per-element class whitelist. For every
// listed element the class attribute is kept and reduced to the listed
// tokens.
//
// An element listed here must not also allow "class" through
// SetGenericAttributes or SetTagAttributes.
func (p *Policy) SetAllowedClasses(classes map[string][]string) *Policy {
	p.allowedClasses = nil
	for tag, cls := range classes {
		p.AddAllowedClasses(tag, cls...)
	}
	return p
}

// AddAllowedClasses allows class tokens on tag. Class tokens are case-sensitive.
func (p *Policy) AddAllowedClasses(tag string, classes ...string) *Policy {
	p.allowedClasses = addToNestedSet(p.allowedClasses, strings.ToLower(tag), classes, false)
	return p
}

// RemoveAllowedClasses removes class tokens from the whitelist of tag. When
// none remain, tag no longer has a class whitelist.
func (p *Policy) RemoveAllowedClasses(tag string, classes ...string) *Policy {
	removeFromNestedSet(p.allowedClasses, strings.ToLower(tag), classes, false)
	return p
}

// AllowedClasses returns a copy of the class whitelist.
func (p *Policy) AllowedClasses() map[string][]string {
	return nestedSetToMap(p.allowedClasses)
}

// StripComments controls whether comments are removed. It defaults to true.
func (p *Policy) StripComments(strip bool) *Policy {
	p.stripComments = strip
	return p
}

// WillStripComments reports whether comments are removed.
func (p *Policy) WillStripComments() bool {
	return p.stripComments
}

// SetIDPrefix makes every surviving id attribute start with prefix. The
// empty string disables prefixing.
func (p *Policy) SetIDPrefix(prefix string) *Policy {
	p.idPrefix = prefix
	return p
}

// IDPrefix returns the id prefix, or "" when disabled.
func (p *Policy) IDPrefix() string {
	return p.idPrefix
}

// SetAttributeFilter installs a callback that may rewrite or drop every
// attribute surviving the whitelist. Pass nil to remove it.
func (p *Policy) SetAttributeFilter(f AttributeFilter) *Policy {
	p.attributeFilter = f
	return p
}

// SetStyleProperties enables filtering of style attribute values: only
// declarations of the given CSS properties are kept. Calling it with no
// arguments keeps no declaration at all; see ClearStyleProperties to turn
// filtering off.
//
// This only applies where the style attribute itself is allowed.
func (p *Policy) SetStyleProperties(props ...string) *Policy {
	p.styleProperties = toSet(props)
	return p
}

// AddStyleProperties adds CSS properties to the style whitelist, enabling
// style filtering if it was off.
func (p *Policy) AddStyleProperties(props ...string) *Policy {
	p.styleProperties = addToSet(p.styleProperties, props, true)
	return p
}

// RemoveStyleProperties removes CSS properties from the style whitelist.
func (p *Policy) RemoveStyleProperties(props ...string) *Policy {
	removeFromSet(p.styleProperties, props, true)
	return p
}

// ClearStyleProperties turns style filtering off; allowed style attributes
// are then kept verbatim.
func (p *Policy) ClearStyleProperties() *Policy {
	p.styleProperties = nil
	return p
}

// StyleProperties returns the CSS property whitelist, sorted. It returns nil
// when style filtering is off.
func (p *Policy) StyleProperties() []string {
	if p.styleProperties == nil {
		return nil
	}
	return sortedKeys(p.styleProperties)
}

// SetLogger makes the sanitizer report its decisions to l at debug level.
// A nil logger disables logging.
func (p *Policy) SetLogger(l *slog.Logger) *Policy {
	p.logger = l
	return p
}

// Validate checks the policy for contradictory settings:
//
//   - a forced link rel while "rel" is whitelisted for <a>,
//   - a class whitelist for an element that also allows "class" outright,
//   - a content-removal tag that is also allowed or has attributes listed,
//   - a relative URL rewrite base that is missing or not absolute,
//   - a custom relative URL mode without an evaluator.
//
// Sanitize panics with the returned error, so calling Validate first is the
// way to find out without a panic.
func (p *Policy) Validate() error {
	var errs []error
	violation := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidPolicy}, args...)...))
	}

	if p.linkRel != "" {
		if contains(p.genericAttributes, "rel") {
			violation("rel is a generic attribute while link rel is forced to %q", p.linkRel)
		}
		if contains(p.tagAttributes["a"], "rel") {
			violation("rel is allowed on <a> while link rel is forced to %q", p.linkRel)
		}
	}

	if len(p.allowedClasses) > 0 && contains(p.genericAttributes, "class") {
		violation("class is a generic attribute while a class whitelist is configured")
	}
	for _, tag := range sortedKeys(p.allowedClasses) {
		if contains(p.tagAttributes[tag], "class") {
			violation("class is allowed on <%s> while it has a class whitelist", tag)
		}
	}

	for _, tag := range sortedKeys(p.cleanContentTags) {
		if contains(p.tags, tag) {
			violation("<%s> is both allowed and removed with its content", tag)
		}
		if _, ok := p.tagAttributes[tag]; ok {
			violation("<%s> has allowed attributes but is removed with its content", tag)
		}
	}

	switch p.urlRelative.mode {
	case relativeRewrite:
		if p.urlRelative.base == nil || !p.urlRelative.base.IsAbs() {
			violation("relative URL rewrite needs an absolute base")
		}
	case relativeCustom:
		if p.urlRelative.evaluate == nil {
			violation("custom relative URL mode without an evaluator")
		}
	}

	return errors.Join(errs...)
}

// --- set helpers -------------------------------------------------------

func toSet(s []string) map[string]struct{} {
	m := make(map[string]struct{}, len(s))
	for _, v := range s {
		m[strings.ToLower(v)] = struct{}{}
	}
	return m
}

func addToSet(m map[string]struct{}, s []string, fold bool) map[string]struct{} {
	if m == nil {
		m = make(map[string]struct{}, len(s))
	}
	for _, v := range s {
		if fold {
			v = strings.ToLower(v)
		}
		m[v] = struct{}{}
	}
	return m
}

func removeFromSet(m map[string]struct{}, s []string, fold bool) {
	for _, v := range s {
		if fold {
			v = strings.ToLower(v)
		}
		delete(m, v)
	}
}

func contains(m map[string]struct{}, v string) bool {
	_, ok := m[v]
	return ok
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func toNestedSet(m map[string][]string, fold bool) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(m))
	for k, vs := range m {
		out = addToNestedSet(out, strings.ToLower(k), vs, fold)
	}
	return out
}

func addToNestedSet(m map[string]map[string]struct{}, key string, s []string, fold bool) map[string]map[string]struct{} {
	if m == nil {
		m = make(map[string]map[string]struct{})
	}
	m[key] = addToSet(m[key], s, fold)
	return m
}

func removeFromNestedSet(m map[string]map[string]struct{}, key string, s []string, fold bool) {
	set, ok := m[key]
	if !ok {
		return
	}
	removeFromSet(set, s, fold)
	if len(set) == 0 {
		delete(m, key)
	}
}

func nestedSetToMap(m map[string]map[string]struct{}) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, set := range m {
		out[k] = sortedKeys(set)
	}
	return out
}
