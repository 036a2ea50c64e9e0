// Package config loads sanitizer policies from YAML or TOML files.
//
// A file starts from one of the built-in policies and edits it:
//
//	base: default          # or "empty"
//	tags:
//	  add: [input]
//	  remove: [img]
//	tag_attributes:
//	  input:
//	    add: [type]
//	allowed_attribute_values:
//	  input:
//	    type: [checkbox]
//	url_relative: rewrite
//	url_base: https://example.com/
//	link_rel: nofollow
//
// Every set-valued field takes set (replace), add and remove lists, applied
// in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/njchilds90/htmlsanitizer/v2"
)

// ErrUnknownFormat is returned for files that are neither YAML nor TOML.
var ErrUnknownFormat = errors.New("config: unknown file format")

// Format is a policy file syntax.
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// SetOps edits one set of a policy.
type SetOps struct {
	Set    []string `yaml:"set" toml:"set"`
	Add    []string `yaml:"add" toml:"add"`
	Remove []string `yaml:"remove" toml:"remove"`
}

// Config describes a policy relative to a base policy. Unset fields leave
// the base untouched.
type Config struct {
	Base string `yaml:"base" toml:"base" validate:"omitempty,oneof=default empty"`

	Tags                     SetOps            `yaml:"tags" toml:"tags"`
	CleanContentTags         SetOps            `yaml:"clean_content_tags" toml:"clean_content_tags"`
	GenericAttributes        SetOps            `yaml:"generic_attributes" toml:"generic_attributes"`
	GenericAttributePrefixes SetOps            `yaml:"generic_attribute_prefixes" toml:"generic_attribute_prefixes"`
	TagAttributes            map[string]SetOps `yaml:"tag_attributes" toml:"tag_attributes"`
	URLSchemes               SetOps            `yaml:"url_schemes" toml:"url_schemes"`

	AllowedClasses         map[string][]string            `yaml:"allowed_classes" toml:"allowed_classes"`
	AllowedAttributeValues map[string]map[string][]string `yaml:"allowed_attribute_values" toml:"allowed_attribute_values"`
	ForcedAttributeValues  map[string]map[string]string   `yaml:"forced_attribute_values" toml:"forced_attribute_values"`

	URLRelative string `yaml:"url_relative" toml:"url_relative" validate:"omitempty,oneof=deny passthrough rewrite"`
	URLBase     string `yaml:"url_base" toml:"url_base" validate:"required_if=URLRelative rewrite,omitempty,url"`

	LinkRel       *string `yaml:"link_rel" toml:"link_rel"`
	StripComments *bool   `yaml:"strip_comments" toml:"strip_comments"`
	IDPrefix      *string `yaml:"id_prefix" toml:"id_prefix"`

	// nil leaves style filtering off
	StyleProperties []string `yaml:"style_properties" toml:"style_properties" validate:"omitempty,dive,required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads the policy file at path. The format follows the extension:
// .yaml or .yml for YAML, .toml for TOML.
func Load(path string) (*Config, error) {
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = YAML
	case ".toml":
		format = TOML
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a policy file.
func Parse(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: decode yaml: %w", err)
		}
	case TOML:
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config: decode toml: unknown key %q", undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field values, e.g. that a rewrite mode has an absolute
// base URL. Errors wrap [validator.ValidationErrors].
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// Policy builds the sanitizer policy described by c and checks it with
// [htmlsanitizer.Policy.Validate].
func (c *Config) Policy() (*htmlsanitizer.Policy, error) {
	p := htmlsanitizer.NewPolicy()
	if c.Base == "empty" {
		p = htmlsanitizer.EmptyPolicy()
	}

	c.Tags.apply(p.SetTags, p.AddTags, p.RemoveTags)
	c.CleanContentTags.apply(p.SetCleanContentTags, p.AddCleanContentTags, p.RemoveCleanContentTags)
	c.GenericAttributes.apply(p.SetGenericAttributes, p.AddGenericAttributes, p.RemoveGenericAttributes)
	c.GenericAttributePrefixes.apply(p.SetGenericAttributePrefixes, p.AddGenericAttributePrefixes, p.RemoveGenericAttributePrefixes)
	c.URLSchemes.apply(p.SetURLSchemes, p.AddURLSchemes, p.RemoveURLSchemes)

	for tag, ops := range c.TagAttributes {
		ops.apply(
			func(attrs ...string) *htmlsanitizer.Policy {
				p.RemoveTagAttributes(tag, p.TagAttributes()[strings.ToLower(tag)]...)
				if len(attrs) == 0 {
					return p
				}
				return p.AddTagAttributes(tag, attrs...)
			},
			func(attrs ...string) *htmlsanitizer.Policy { return p.AddTagAttributes(tag, attrs...) },
			func(attrs ...string) *htmlsanitizer.Policy { return p.RemoveTagAttributes(tag, attrs...) },
		)
	}

	if c.AllowedClasses != nil {
		p.SetAllowedClasses(c.AllowedClasses)
	}
	if c.AllowedAttributeValues != nil {
		p.SetAllowedAttributeValues(c.AllowedAttributeValues)
	}
	if c.ForcedAttributeValues != nil {
		p.SetForcedAttributeValues(c.ForcedAttributeValues)
	}

	switch c.URLRelative {
	case "deny":
		p.SetURLRelative(htmlsanitizer.RelativeDeny())
	case "passthrough":
		p.SetURLRelative(htmlsanitizer.RelativePassThrough())
	case "rewrite":
		base, err := url.Parse(c.URLBase)
		if err != nil {
			return nil, fmt.Errorf("config: url_base: %w", err)
		}
		p.SetURLRelative(htmlsanitizer.RelativeRewriteWithBase(base))
	}

	if c.LinkRel != nil {
		p.SetLinkRel(*c.LinkRel)
	}
	if c.StripComments != nil {
		p.StripComments(*c.StripComments)
	}
	if c.IDPrefix != nil {
		p.SetIDPrefix(*c.IDPrefix)
	}
	if c.StyleProperties != nil {
		p.SetStyleProperties(c.StyleProperties...)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return p, nil
}

type setFunc func(...string) *htmlsanitizer.Policy

func (o SetOps) apply(set, add, remove setFunc) {
	if o.Set != nil {
		set(o.Set...)
	}
	if len(o.Add) > 0 {
		add(o.Add...)
	}
	if len(o.Remove) > 0 {
		remove(o.Remove...)
	}
}
