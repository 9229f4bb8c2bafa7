// Package ps1parser parses zsh prompt strings, extended with git-aware
// escapes, into a tree of elements.
//
// The grammar is a superset of zsh prompt expansion:
//   - Basic escapes (%n, %m, %#, %%, ...) and numeric escapes (%~, %-2d, %3c)
//   - Date formats (%D{format}) and named colors (%F{red}, %K{black})
//   - Literal blocks (%{...%}) and truncation (%10<..<)
//   - Conditionals (%(?.ok.fail)), nested to any depth
//   - Git escapes %r %p %q %x and conditional tests G y m s o p q x
//   - Multi-armed conditionals (%(o.git.github.gitlab.bitbucket.azure))
//   - Directory prefix substitution (%/{:~:/home/user})
//
// Parsing is total: malformed or unknown sequences become literal characters,
// so Format(Parse(s)) == s for every input.
//
// Example usage:
//
//	elems := ps1parser.Parse("%(G.%r.) %~ %# ")
//	fmt.Println(ps1parser.Format(elems))
package ps1parser

import (
	"fmt"
	"strings"
)

// Parse parses a prompt with default options.
func Parse(ps1 string) []Element {
	return NewParser(ParserOptions{}).Parse(ps1)
}

// ParseWithDiagnostics parses a prompt with default options and reports
// every '%' that was kept literally.
func ParseWithDiagnostics(ps1 string) ([]Element, []Diagnostic) {
	return NewParser(ParserOptions{}).ParseWithDiagnostics(ps1)
}

// Format turns elements back into prompt source.
func Format(elems []Element) string {
	var b strings.Builder
	for _, elem := range elems {
		b.WriteString(elem.String())
	}
	return b.String()
}

// String returns a human-readable name for a kind
func (k Kind) String() string {
	switch k {
	case KindCharacter:
		return "Character"
	case KindEscape:
		return "Escape"
	case KindNumericEscape:
		return "NumericEscape"
	case KindDateFormat:
		return "DateFormat"
	case KindNamedColor:
		return "NamedColor"
	case KindPathPrefix:
		return "PathPrefix"
	case KindLiteralBlock:
		return "LiteralBlock"
	case KindConditional:
		return "Conditional"
	case KindMultiConditional:
		return "MultiConditional"
	case KindTruncation:
		return "Truncation"
	default:
		return "Unknown"
	}
}

// String returns a string representation of a diagnostic
func (d Diagnostic) String() string {
	return fmt.Sprintf("offset %d: %s", d.Offset, d.Message)
}
