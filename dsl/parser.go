package dsl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	dslLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `-?(?:\d+\.\d+|\d+)`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[,;]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	scriptParser = participle.MustBuild[Script](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Script is the root AST node of a layout script:
//
//	meme 2 {
//	  display 400
//	  text "Hello, ${user.name}!" at 10, 10 size 200, 60 font 24 selected
//	}
type Script struct {
	Pos        lexer.Position `parser:"" json:"-"`
	Template   int            `parser:"Newline* 'meme' @Number Newline*"`
	Statements []*Statement   `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}' Newline*"`
}

// Statement inside the script block.
type Statement struct {
	Display *Display       `parser:"  @@"`
	Text    *TextStatement `parser:"| @@"`
}

// Kind returns the human-readable statement type.
func (s *Statement) Kind() string {
	switch {
	case s == nil:
		return "unknown"
	case s.Display != nil:
		return "display"
	case s.Text != nil:
		return "text"
	default:
		return "unknown"
	}
}

// Display declares the edge length of the on-screen canvas the coordinates refer to.
type Display struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Size float64        `parser:"'display' @Number"`
}

// TextStatement adds one annotation.
type TextStatement struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Content StringLiteral  `parser:"'text' @String"`
	Props   []*Property    `parser:"@@*"`
}

// Property is a trailing modifier of a text statement.
type Property struct {
	At       *Pair    `parser:"  'at' @@"`
	Size     *Pair    `parser:"| 'size' @@"`
	Font     *float64 `parser:"| 'font' @Number"`
	Selected bool     `parser:"| @'selected'"`
}

// Pair is two numbers separated by an optional comma.
type Pair struct {
	A float64 `parser:"@Number ','?"`
	B float64 `parser:"@Number"`
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse parses a script from an io.Reader.
func Parse(r io.Reader) (*Script, error) {
	return scriptParser.Parse("", r)
}

// ParseString parses a script from a string.
func ParseString(input string) (*Script, error) {
	return scriptParser.ParseString("", input)
}
