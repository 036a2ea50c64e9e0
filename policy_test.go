package htmlsanitizer_test

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/htmlsanitizer/v2"
)

func TestNewPolicy_Defaults(t *testing.T) {
	p := htmlsanitizer.NewPolicy()

	assert.Contains(t, p.Tags(), "a")
	assert.Contains(t, p.Tags(), "wbr")
	assert.NotContains(t, p.Tags(), "script")
	assert.Equal(t, []string{"script", "style"}, p.CleanContentTags())
	assert.Equal(t, []string{"lang", "title"}, p.GenericAttributes())
	assert.Empty(t, p.GenericAttributePrefixes())
	assert.Equal(t, []string{"href", "hreflang"}, p.TagAttributes()["a"])
	assert.Contains(t, p.URLSchemes(), "https")
	assert.NotContains(t, p.URLSchemes(), "javascript")
	assert.Equal(t, "deny", p.URLRelative().String())
	assert.Equal(t, "noopener noreferrer", p.LinkRel())
	assert.True(t, p.WillStripComments())
	assert.Empty(t, p.IDPrefix())
	assert.Nil(t, p.StyleProperties())
	assert.NoError(t, p.Validate())
}

func TestEmptyPolicy(t *testing.T) {
	p := htmlsanitizer.EmptyPolicy()

	assert.Empty(t, p.Tags())
	assert.Empty(t, p.CleanContentTags())
	assert.Empty(t, p.GenericAttributes())
	assert.Empty(t, p.TagAttributes())
	assert.Empty(t, p.URLSchemes())
	assert.Empty(t, p.LinkRel())
	assert.True(t, p.WillStripComments())
	assert.NoError(t, p.Validate())
}

func TestPolicy_SetAddRemove(t *testing.T) {
	p := htmlsanitizer.EmptyPolicy()

	p.SetTags("P", "b").AddTags("I").RemoveTags("b")
	assert.Equal(t, []string{"i", "p"}, p.Tags())

	p.AddTags("b").RemoveTags("b")
	assert.Equal(t, []string{"i", "p"}, p.Tags())

	p.SetGenericAttributes("title").AddGenericAttributes("LANG").RemoveGenericAttributes("title")
	assert.Equal(t, []string{"lang"}, p.GenericAttributes())

	p.SetGenericAttributePrefixes("data-").AddGenericAttributePrefixes("aria-").RemoveGenericAttributePrefixes("data-")
	assert.Equal(t, []string{"aria-"}, p.GenericAttributePrefixes())

	p.SetURLSchemes("http").AddURLSchemes("HTTPS", "ftp").RemoveURLSchemes("ftp")
	assert.Equal(t, []string{"http", "https"}, p.URLSchemes())

	p.SetCleanContentTags("script").AddCleanContentTags("style", "object").RemoveCleanContentTags("script")
	assert.Equal(t, []string{"object", "style"}, p.CleanContentTags())

	p.SetStyleProperties("color").AddStyleProperties("Font-Weight").RemoveStyleProperties("color")
	assert.Equal(t, []string{"font-weight"}, p.StyleProperties())
	p.RemoveStyleProperties("font-weight")
	assert.NotNil(t, p.StyleProperties())
	p.ClearStyleProperties()
	assert.Nil(t, p.StyleProperties())
}

func TestPolicy_TagKeyedSets(t *testing.T) {
	p := htmlsanitizer.EmptyPolicy().
		SetTagAttributes(map[string][]string{"IMG": {"SRC", "alt"}}).
		AddTagAttributes("img", "width").
		AddTagAttributes("a", "href").
		RemoveTagAttributes("img", "alt")

	want := map[string][]string{
		"a":   {"href"},
		"img": {"src", "width"},
	}
	if diff := cmp.Diff(want, p.TagAttributes()); diff != "" {
		t.Errorf("TagAttributes() mismatch (-want +got):\n%s", diff)
	}

	p.RemoveTagAttributes("a", "href")
	assert.NotContains(t, p.TagAttributes(), "a")

	p.SetAllowedClasses(map[string][]string{"p": {"Lead", "note"}}).
		AddAllowedClasses("div", "box").
		RemoveAllowedClasses("p", "note")
	if diff := cmp.Diff(map[string][]string{"p": {"Lead"}, "div": {"box"}}, p.AllowedClasses()); diff != "" {
		t.Errorf("AllowedClasses() mismatch (-want +got):\n%s", diff)
	}

	p.SetAllowedAttributeValues(map[string]map[string][]string{
		"input": {"type": {"Checkbox", "radio"}},
	}).RemoveAllowedAttributeValues("input", "type", "RADIO")
	if diff := cmp.Diff(map[string]map[string][]string{"input": {"type": {"checkbox"}}}, p.AllowedAttributeValues()); diff != "" {
		t.Errorf("AllowedAttributeValues() mismatch (-want +got):\n%s", diff)
	}
	p.RemoveAllowedAttributeValues("input", "type", "checkbox")
	assert.Empty(t, p.AllowedAttributeValues())
}

func TestPolicy_ForcedAttributeValues(t *testing.T) {
	p := htmlsanitizer.EmptyPolicy().
		SetForcedAttributeValues(map[string]map[string]string{"a": {"target": "_blank"}}).
		ForceAttributeValue("IMG", "Loading", "lazy")

	v, ok := p.ForcedAttributeValue("img", "loading")
	assert.True(t, ok)
	assert.Equal(t, "lazy", v)

	p.RemoveForcedAttributeValue("a", "target")
	_, ok = p.ForcedAttributeValue("a", "target")
	assert.False(t, ok)
	assert.Equal(t, map[string]map[string]string{"img": {"loading": "lazy"}}, p.ForcedAttributeValues())
}

func TestPolicy_GettersReturnCopies(t *testing.T) {
	p := htmlsanitizer.NewPolicy()
	p.TagAttributes()["a"][0] = "onclick"
	p.Tags()[0] = "script"
	assert.Equal(t, []string{"href", "hreflang"}, p.TagAttributes()["a"])
	assert.NotContains(t, p.Tags(), "script")
}

func TestPolicy_Validate(t *testing.T) {
	relativeBase, err := url.Parse("/relative")
	require.NoError(t, err)

	tests := []struct {
		name    string
		policy  *htmlsanitizer.Policy
		message string
	}{
		{
			"generic rel with link rel",
			htmlsanitizer.NewPolicy().AddGenericAttributes("rel"),
			"rel is a generic attribute",
		},
		{
			"a rel with link rel",
			htmlsanitizer.NewPolicy().AddTagAttributes("a", "rel"),
			"rel is allowed on <a>",
		},
		{
			"generic class with allowed classes",
			htmlsanitizer.NewPolicy().AddGenericAttributes("class").AddAllowedClasses("p", "x"),
			"class is a generic attribute",
		},
		{
			"tag class with allowed classes",
			htmlsanitizer.NewPolicy().AddTagAttributes("p", "class").AddAllowedClasses("p", "x"),
			"class is allowed on <p>",
		},
		{
			"clean content tag allowed",
			htmlsanitizer.NewPolicy().AddTags("script"),
			"<script> is both allowed and removed",
		},
		{
			"clean content tag with attributes",
			htmlsanitizer.NewPolicy().AddTagAttributes("style", "media"),
			"<style> has allowed attributes",
		},
		{
			"rewrite without base",
			htmlsanitizer.NewPolicy().SetURLRelative(htmlsanitizer.RelativeRewriteWithBase(nil)),
			"absolute base",
		},
		{
			"rewrite with relative base",
			htmlsanitizer.NewPolicy().SetURLRelative(htmlsanitizer.RelativeRewriteWithBase(relativeBase)),
			"absolute base",
		},
		{
			"custom without evaluator",
			htmlsanitizer.NewPolicy().SetURLRelative(htmlsanitizer.RelativeCustom(nil)),
			"without an evaluator",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, htmlsanitizer.ErrInvalidPolicy)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestPolicy_ValidateAllowsRelWithoutLinkRel(t *testing.T) {
	p := htmlsanitizer.NewPolicy().SetLinkRel("").AddTagAttributes("a", "rel")
	require.NoError(t, p.Validate())
	assert.Equal(t, `<a rel="next">n</a>`, p.Sanitize(`<a rel="next">n</a>`).String())
}

func TestPolicy_ValidateJoinsViolations(t *testing.T) {
	err := htmlsanitizer.NewPolicy().AddGenericAttributes("rel").AddTags("style").Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rel is a generic attribute")
	assert.Contains(t, err.Error(), "<style> is both allowed")
}
