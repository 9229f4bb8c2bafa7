package ps1parser

import (
	"strconv"
	"strings"
)

// Kind identifies the variant of an Element.
type Kind int

// Element kinds, one per grammar rule.
const (
	KindCharacter        Kind = iota // Any character not consumed by another rule
	KindEscape                       // %n, %r, %% ...
	KindNumericEscape                // %~, %-3~, %2c ...
	KindDateFormat                   // %D{%H:%M}
	KindNamedColor                   // %F{red}, %0K{black}
	KindPathPrefix                   // %d{:~:/home/user}
	KindLiteralBlock                 // %{...%}
	KindConditional                  // %(x.true.false)
	KindMultiConditional             // %(o.a.b.c)
	KindTruncation                   // %10<..<
)

// Element is one indivisible rendering unit of a parsed prompt.
// String returns the prompt source the element was parsed from.
type Element interface {
	Kind() Kind
	String() string
}

// Arg is the optional signed numeric argument that follows a '%'.
// Raw keeps the exact source digits so pass-through output is byte-identical.
type Arg struct {
	Value int
	Raw   string
}

// IsSet reports whether the argument was present in the source.
func (a Arg) IsSet() bool {
	return a.Raw != ""
}

// Or returns the argument value, or def when it was not given.
func (a Arg) Or(def int) int {
	if !a.IsSet() {
		return def
	}
	return a.Value
}

// NewArg builds an Arg from an integer, as if it had been written in decimal.
func NewArg(v int) Arg {
	return Arg{Value: v, Raw: strconv.Itoa(v)}
}

// Character is a single source character, kept as raw bytes.
type Character struct {
	Text string
}

// Escape is a no-argument escape like %n or %r.
type Escape struct {
	Code byte
}

// NumericEscape is an escape taking an optional numeric argument like %-2~.
type NumericEscape struct {
	Arg  Arg
	Code byte
}

// DateFormat is %D{format}.
type DateFormat struct {
	Format string
}

// NamedColor is %F{name} or %K{name}.
type NamedColor struct {
	Arg  Arg
	Code byte
	Name string
}

// Substitution replaces a leading Prefix of the working directory with Alias.
type Substitution struct {
	Alias  string
	Prefix string
}

// PathPrefix is the extended directory escape %d{...} or %/{...}.
// Substitutions hold unescaped values; Raw is the source text.
type PathPrefix struct {
	Arg           Arg
	Code          byte
	Delim         string
	Substitutions []Substitution
	Raw           string
}

// LiteralBlock is %{...%}. Its content is never parsed.
type LiteralBlock struct {
	Text string
}

// Conditional is the two-armed %N(c.true.false).
type Conditional struct {
	Arg   Arg
	Code  byte
	Delim string
	True  []Element
	False []Element
}

// MultiConditional is %(c.b0.b1...bn). The last branch is the default.
type MultiConditional struct {
	Code     byte
	Delim    string
	Branches [][]Element
}

// Truncation is %N<text< or %N>text>. Replacement is kept raw.
type Truncation struct {
	Arg         Arg
	Code        byte
	Replacement string
}

func (Character) Kind() Kind        { return KindCharacter }
func (Escape) Kind() Kind           { return KindEscape }
func (NumericEscape) Kind() Kind    { return KindNumericEscape }
func (DateFormat) Kind() Kind       { return KindDateFormat }
func (NamedColor) Kind() Kind       { return KindNamedColor }
func (PathPrefix) Kind() Kind       { return KindPathPrefix }
func (LiteralBlock) Kind() Kind     { return KindLiteralBlock }
func (Conditional) Kind() Kind      { return KindConditional }
func (MultiConditional) Kind() Kind { return KindMultiConditional }
func (Truncation) Kind() Kind       { return KindTruncation }

func (c Character) String() string { return c.Text }

func (e Escape) String() string { return "%" + string(e.Code) }

func (e NumericEscape) String() string { return "%" + e.Arg.Raw + string(e.Code) }

func (d DateFormat) String() string { return "%D{" + d.Format + "}" }

func (c NamedColor) String() string {
	return "%" + c.Arg.Raw + string(c.Code) + "{" + c.Name + "}"
}

func (p PathPrefix) String() string { return p.Raw }

func (l LiteralBlock) String() string { return "%{" + l.Text + "%}" }

func (t Truncation) String() string {
	code := string(t.Code)
	return "%" + t.Arg.Raw + code + t.Replacement + code
}

func (c Conditional) String() string {
	var b strings.Builder
	b.WriteString("%" + c.Arg.Raw + "(" + string(c.Code) + c.Delim)
	b.WriteString(Format(c.True))
	b.WriteString(c.Delim)
	b.WriteString(Format(c.False))
	b.WriteByte(')')
	return b.String()
}

func (m MultiConditional) String() string {
	var b strings.Builder
	b.WriteString("%(" + string(m.Code) + m.Delim)
	for i, branch := range m.Branches {
		if i > 0 {
			b.WriteString(m.Delim)
		}
		b.WriteString(Format(branch))
	}
	b.WriteByte(')')
	return b.String()
}

// IsExtension reports whether the escape is backed by repository state.
func (e Escape) IsExtension() bool {
	return strings.IndexByte(extensionEscapes, e.Code) >= 0
}

// IsExtension reports whether the predicate is evaluated against repository
// state rather than passed through to the shell.
func (c Conditional) IsExtension() bool {
	return strings.IndexByte(extensionPredicates, c.Code) >= 0
}

// Diagnostic describes a '%' that could not be read as any escape and was
// emitted literally instead.
type Diagnostic struct {
	Offset  int    // Byte offset of the '%' in the prompt
	Text    string // The '%' and the character following it, if any
	Message string
}

// Parser turns prompt strings into element sequences.
type Parser struct {
	options ParserOptions
}

// ParserOptions controls parsing behavior.
type ParserOptions struct {
	// MaxDepth caps conditional nesting. Deeper conditionals are emitted
	// literally. Zero means no limit.
	MaxDepth int
}
