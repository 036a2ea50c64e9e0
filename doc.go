// Package htmlsanitizer is a whitelist-based HTML sanitizer.
//
// # Overview
//
// htmlsanitizer parses untrusted markup as an HTML fragment with
// golang.org/x/net/html, the same HTML5 parsing algorithm browsers use, and
// rebuilds the tree keeping only what a [Policy] allows. The result is a
// [Document] that serializes to markup which cannot run script, load
// content from disallowed URL schemes, or break out of its container.
//
// # Policies
//
// A [Policy] controls:
//   - which elements are kept ([Policy.SetTags]); any other element is
//     unwrapped, its allowed children taking its place
//   - which elements are removed together with their content
//     ([Policy.SetCleanContentTags]), script and style by default
//   - which attributes are kept, generically, by name prefix, per element
//     or per value
//   - which URL schemes are allowed in URL attributes, and what happens to
//     relative URLs ([Policy.SetURLRelative])
//   - attribute values forced onto elements, including the rel of links
//   - per-element class whitelists, an id prefix, and a whitelist of CSS
//     properties inside style attributes
//   - an [AttributeFilter] callback for anything else
//
// [NewPolicy] returns conservative defaults meant for editorial content;
// [EmptyPolicy] allows nothing and is the starting point for strict
// policies.
//
// Contradictory settings, such as forcing rel on links while also allowing
// rel through the whitelist, are programming errors: [Policy.Validate]
// reports them, and Sanitize panics on them before looking at any input.
//
// # Thread Safety
//
// A Policy may be shared by concurrent Sanitize calls once it is built. It
// must not be mutated while in use.
//
// # Example
//
//	p := htmlsanitizer.NewPolicy().
//		AddTagAttributes("img", "loading").
//		SetURLRelative(htmlsanitizer.RelativePassThrough())
//	clean := p.Sanitize(userInput).String()
package htmlsanitizer
