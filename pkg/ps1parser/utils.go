package ps1parser

import (
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Escape code sets of the grammar

const (
	// escapeCodes take no argument. '%' and ')' are the quoted percent and paren.
	escapeCodes = "%)lMny#?eh!iIjLTt@*wWBbEUuSsDrpqx"
	// numericCodes take an optional signed numeric argument.
	numericCodes = "m_^d/~Nc.CvFfKkG"
	// predicateCodes may appear as the test of a conditional.
	predicateCodes = "!#?_C/c.~DdegjLlSTtvVwGymsopqx"
	// multiCodes select a branch of a multi-conditional by index.
	multiCodes = "opqx"

	extensionEscapes    = "rpqx"
	extensionPredicates = "Gymsopqx"
)

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// byteIn reports whether c is one of the bytes in set.
func byteIn(set string, c byte) bool {
	return strings.IndexByte(set, c) >= 0
}

// charAt returns the character starting at pos as its raw source text.
// Invalid UTF-8 yields a single byte.
func charAt(s string, pos int) (string, bool) {
	if pos >= len(s) {
		return "", false
	}
	_, size := utf8.DecodeRuneInString(s[pos:])
	return s[pos : pos+size], true
}

// number reads an optional sign followed by at least one digit. On no match
// or overflow it returns the zero Arg and pos unchanged.
func number(s string, pos int) (Arg, int) {
	end := pos
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == digits {
		return Arg{}, pos
	}
	v, err := strconv.Atoi(s[pos:end])
	if err != nil {
		return Arg{}, pos
	}
	return Arg{Value: v, Raw: s[pos:end]}, end
}

// escapedRun scans from pos until a character in stop, treating a backslash
// as protecting the next character. It fails when input ends inside the run
// or right after a backslash.
func escapedRun(s string, pos int, stop []string) (int, bool) {
	for pos < len(s) {
		if s[pos] == '\\' {
			next, ok := charAt(s, pos+1)
			if !ok {
				return pos, false
			}
			pos += 1 + len(next)
			continue
		}
		c, _ := charAt(s, pos)
		if slices.Contains(stop, c) {
			return pos, true
		}
		pos += len(c)
	}
	return pos, false
}

// unescape drops the backslash in front of every protected character.
func unescape(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
