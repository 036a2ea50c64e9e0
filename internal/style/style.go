// Package style filters the value of an HTML style attribute down to a
// whitelist of CSS properties.
//
// The value is read as a CSS declaration list without the enclosing braces.
// Malformed declarations and at-rules are skipped with the recovery rules of
// CSS forward-compatible parsing, so one broken declaration never discards
// the ones that follow it.
package style

import (
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Filter returns the declarations of style whose property name is in
// properties, rendered as name:value and joined with ";". Property names in
// properties must be lower-case. Duplicate properties are all kept, in input
// order.
func Filter(style string, properties map[string]struct{}) string {
	t := newTokenizer(style)
	var decls []string
	for {
		tt, name := t.next()
		switch tt {
		case css.ErrorToken:
			return strings.Join(decls, ";")
		case css.SemicolonToken:
			continue
		case css.IdentToken, css.CustomPropertyNameToken:
		default:
			// at-rules and stray tokens
			t.advance()
			continue
		}

		name = strings.ToLower(name)
		if _, ok := properties[name]; !ok {
			t.advance()
			continue
		}

		switch tt, _ := t.next(); tt {
		case css.ColonToken:
		case css.ErrorToken:
			return strings.Join(decls, ";")
		case css.SemicolonToken:
			continue
		default:
			t.advance()
			continue
		}

		value, ok := t.value()
		if !ok {
			t.advance()
			continue
		}
		if value != "" {
			decls = append(decls, name+":"+value)
		}
	}
}

// tokenizer wraps the css lexer with the block semantics of a CSS parser:
// whitespace and comments are skipped, and a block whose opening token was
// returned but not entered is skipped as a whole by the following call to
// next.
type tokenizer struct {
	lexer *css.Lexer

	unentered bool
	closer    css.TokenType
}

func newTokenizer(s string) *tokenizer {
	return &tokenizer{lexer: css.NewLexer(parse.NewInputString(s))}
}

func (t *tokenizer) next() (css.TokenType, string) {
	if t.unentered {
		t.unentered = false
		t.skipBlock(t.closer)
	}
	for {
		tt, data := t.lexer.Next()
		switch tt {
		case css.WhitespaceToken, css.CommentToken:
			continue
		}
		if closer, ok := closerOf(tt); ok {
			t.unentered, t.closer = true, closer
		}
		return tt, string(data)
	}
}

// enter makes the tokens of the block just opened visible to next.
func (t *tokenizer) enter() {
	t.unentered = false
}

func (t *tokenizer) skipBlock(closer css.TokenType) {
	stack := []css.TokenType{closer}
	for len(stack) > 0 {
		tt, _ := t.lexer.Next()
		switch {
		case tt == css.ErrorToken:
			return
		case tt == stack[len(stack)-1]:
			stack = stack[:len(stack)-1]
		default:
			if c, ok := closerOf(tt); ok {
				stack = append(stack, c)
			}
		}
	}
}

// advance skips to the end of the current declaration: past the next
// top-level semicolon, past the next {} block, or to the end of input.
func (t *tokenizer) advance() {
	for {
		switch tt, _ := t.next(); tt {
		case css.ErrorToken, css.SemicolonToken:
			return
		case css.LeftBraceToken:
			t.skipBlock(css.RightBraceToken)
			t.enter()
			return
		}
	}
}

type frame struct {
	closer css.TokenType
	first  bool
}

// value reads a declaration value up to a top-level semicolon or the end of
// input. Tokens are separated by a single space; inside functions and
// brackets no space precedes a comma. It returns false on a token that makes
// the declaration invalid.
func (t *tokenizer) value() (string, bool) {
	var b strings.Builder
	var frames []frame
	for {
		tt, text := t.next()
		if n := len(frames); n > 0 {
			f := &frames[n-1]
			switch {
			case tt == css.ErrorToken:
				for i := n - 1; i >= 0; i-- {
					b.WriteString(closerText(frames[i].closer))
				}
				return b.String(), true
			case tt == f.closer:
				b.WriteString(text)
				frames = frames[:n-1]
				continue
			case invalid(tt):
				return "", false
			}
			if !f.first && tt != css.CommaToken {
				b.WriteByte(' ')
			}
			f.first = false
		} else {
			switch {
			case tt == css.ErrorToken, tt == css.SemicolonToken:
				return b.String(), true
			case invalid(tt):
				return "", false
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
		}

		b.WriteString(serialize(tt, text))
		if closer, ok := closerOf(tt); ok {
			t.enter()
			frames = append(frames, frame{closer: closer, first: true})
		}
	}
}

func invalid(tt css.TokenType) bool {
	switch tt {
	case css.BadStringToken, css.BadURLToken,
		css.LeftBraceToken, css.RightBraceToken,
		css.RightParenthesisToken, css.RightBracketToken:
		return true
	}
	return false
}

func closerOf(tt css.TokenType) (css.TokenType, bool) {
	switch tt {
	case css.FunctionToken, css.LeftParenthesisToken:
		return css.RightParenthesisToken, true
	case css.LeftBracketToken:
		return css.RightBracketToken, true
	case css.LeftBraceToken:
		return css.RightBraceToken, true
	}
	return css.ErrorToken, false
}

func closerText(tt css.TokenType) string {
	if tt == css.RightBracketToken {
		return "]"
	}
	return ")"
}

func serialize(tt css.TokenType, text string) string {
	if tt == css.StringToken {
		return doubleQuote(text)
	}
	return text
}

// doubleQuote rewrites a single-quoted CSS string token with double quotes.
// Double-quoted tokens are returned as they are.
func doubleQuote(s string) string {
	if s == "" || s[0] != '\'' {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 1; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 == len(s) {
				// a backslash at the end of input is dropped
				break
			}
			i++
			if s[i] != '\'' {
				b.WriteByte('\\')
			}
			b.WriteByte(s[i])
		case '\'':
			i = len(s)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
