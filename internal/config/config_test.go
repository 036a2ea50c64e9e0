package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/htmlsanitizer/v2"
	"github.com/njchilds90/htmlsanitizer/v2/internal/config"
)

const yamlPolicy = `
base: default
tags:
  add: [input]
  remove: [img]
tag_attributes:
  input:
    add: [name]
allowed_attribute_values:
  input:
    type: [checkbox]
forced_attribute_values:
  input:
    disabled: ""
allowed_classes:
  p: [lead]
url_relative: rewrite
url_base: https://example.com/docs/
link_rel: nofollow
strip_comments: false
id_prefix: "user-"
`

const tomlPolicy = `
base = "empty"
url_relative = "passthrough"
style_properties = ["color"]

[tags]
set = ["a", "p", "span"]

[tag_attributes.a]
set = ["href"]

[tag_attributes.span]
add = ["style"]

[url_schemes]
set = ["https"]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := config.Load(writeFile(t, "policy.yaml", yamlPolicy))
	require.NoError(t, err)

	p, err := cfg.Policy()
	require.NoError(t, err)

	assert.Contains(t, p.Tags(), "input")
	assert.NotContains(t, p.Tags(), "img")
	assert.Equal(t, "nofollow", p.LinkRel())
	assert.False(t, p.WillStripComments())
	assert.Equal(t, "user-", p.IDPrefix())
	assert.Equal(t, "rewrite(https://example.com/docs/)", p.URLRelative().String())

	got := p.Sanitize(`<p class="lead x"><a href="intro">i</a><img src="x.png"></p>` +
		`<input type="checkbox" name="n" value="v"><!-- c -->`).String()
	want := `<p class="lead"><a href="https://example.com/docs/intro" rel="nofollow">i</a></p>` +
		`<input type="checkbox" name="n" disabled=""/><!-- c -->`
	assert.Equal(t, want, got)
}

func TestLoad_TOML(t *testing.T) {
	cfg, err := config.Load(writeFile(t, "policy.toml", tomlPolicy))
	require.NoError(t, err)

	p, err := cfg.Policy()
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "p", "span"}, p.Tags())
	assert.Equal(t, []string{"https"}, p.URLSchemes())
	assert.Equal(t, []string{"color"}, p.StyleProperties())
	assert.Empty(t, p.LinkRel())

	got := p.Sanitize(`<p><a href="/x" title="t">x</a><span style="color: red; top: 0">s</span><b>b</b></p>`).String()
	assert.Equal(t, `<p><a href="/x">x</a><span style="color:red">s</span>b</p>`, got)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := config.Load(writeFile(t, "policy.yml", ""))
	require.NoError(t, err)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, htmlsanitizer.NewPolicy().Tags(), p.Tags())
}

func TestLoad_Errors(t *testing.T) {
	t.Run("unknown extension", func(t *testing.T) {
		_, err := config.Load(writeFile(t, "policy.json", "{}"))
		assert.ErrorIs(t, err, config.ErrUnknownFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unknown yaml key", func(t *testing.T) {
		_, err := config.Load(writeFile(t, "policy.yaml", "tagz: {add: [p]}\n"))
		assert.ErrorContains(t, err, "decode yaml")
	})

	t.Run("unknown toml key", func(t *testing.T) {
		_, err := config.Load(writeFile(t, "policy.toml", "tagz = 1\n"))
		assert.ErrorContains(t, err, "unknown key")
	})

	t.Run("bad base", func(t *testing.T) {
		_, err := config.Load(writeFile(t, "policy.yaml", "base: strict\n"))
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "base", verrs[0].Field())
	})

	t.Run("rewrite without base", func(t *testing.T) {
		_, err := config.Load(writeFile(t, "policy.yaml", "url_relative: rewrite\n"))
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "url_base", verrs[0].Field())
		assert.Equal(t, "required_if", verrs[0].Tag())
	})

	t.Run("rewrite with relative base", func(t *testing.T) {
		_, err := config.Load(writeFile(t, "policy.yaml", "url_relative: rewrite\nurl_base: /docs\n"))
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "url", verrs[0].Tag())
	})
}

func TestConfig_EmptyTagAttributeSet(t *testing.T) {
	cfg, err := config.Parse([]byte("clean_content_tags:\n  add: [iframe]\ntag_attributes:\n  iframe:\n    set: []\n  img:\n    set: []\n"), config.YAML)
	require.NoError(t, err)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.NotContains(t, p.TagAttributes(), "iframe")
	assert.NotContains(t, p.TagAttributes(), "img")
}

func TestConfig_PolicyInvalid(t *testing.T) {
	cfg, err := config.Parse([]byte("tag_attributes:\n  a:\n    add: [rel]\n"), config.YAML)
	require.NoError(t, err)

	_, err = cfg.Policy()
	assert.ErrorIs(t, err, htmlsanitizer.ErrInvalidPolicy)
}

func TestParse_UnknownFormat(t *testing.T) {
	_, err := config.Parse(nil, config.Format("ini"))
	assert.ErrorIs(t, err, config.ErrUnknownFormat)
}
