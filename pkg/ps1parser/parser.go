package ps1parser

import (
	"fmt"
	"slices"
	"strings"
)

// NewParser creates a new prompt parser with the given options.
func NewParser(options ParserOptions) *Parser {
	return &Parser{
		options: options,
	}
}

// Parse parses a prompt string into elements. It never fails: anything that
// is not a well-formed escape is kept as literal characters.
func (p *Parser) Parse(ps1 string) []Element {
	elems, _ := p.ParseWithDiagnostics(ps1)
	return elems
}

// ParseWithDiagnostics is like Parse but also reports every '%' that could
// not start an escape and was therefore kept literally.
func (p *Parser) ParseWithDiagnostics(ps1 string) ([]Element, []Diagnostic) {
	s := newState(ps1, p.options.MaxDepth)

	var elems []Element
	pos := 0
	for pos < len(ps1) {
		elem, next, _ := s.element(pos)
		elems = append(elems, elem)
		pos = next
	}

	return elems, s.diags
}

// rule tries to read one element at pos. On failure it returns ok == false
// and must leave no trace in the state.
type rule func(pos int) (elem Element, next int, ok bool)

type state struct {
	src      string
	diags    []Diagnostic
	depth    int
	maxDepth int
	rules    []rule
	memo     map[memoKey]memoEntry
}

// memoKey identifies an element read. Depth only matters under a nesting cap.
type memoKey struct {
	pos   int
	depth int
}

// memoEntry is a finished element read together with the diagnostics it
// recorded, replayed on every later read at the same key.
type memoEntry struct {
	elem  Element
	next  int
	diags []Diagnostic
}

func newState(src string, maxDepth int) *state {
	s := &state{src: src, maxDepth: maxDepth, memo: make(map[memoKey]memoEntry)}
	// Most specific first; the character fallback is applied in element.
	s.rules = []rule{
		s.truncation,
		s.multiConditional,
		s.conditional,
		s.dateFormat,
		s.namedColor,
		s.pathPrefix,
		s.literalBlock,
		s.numericEscape,
		s.escape,
	}
	return s
}

// element reads the next element. It only fails at end of input.
//
// The result at a position is fixed for a given depth and is computed once;
// unterminated nested conditionals would otherwise be re-read by every
// enclosing rule.
func (s *state) element(pos int) (Element, int, bool) {
	if pos >= len(s.src) {
		return nil, pos, false
	}

	key := memoKey{pos: pos}
	if s.maxDepth > 0 {
		key.depth = s.depth
	}
	if m, ok := s.memo[key]; ok {
		s.diags = append(s.diags, m.diags...)
		return m.elem, m.next, true
	}

	start := len(s.diags)
	elem, next := s.read(pos)
	s.memo[key] = memoEntry{elem: elem, next: next, diags: slices.Clone(s.diags[start:])}
	return elem, next, true
}

// read tries every rule at pos, falling back to a single character.
func (s *state) read(pos int) (Element, int) {
	if s.src[pos] == '%' {
		mark := len(s.diags)
		for _, r := range s.rules {
			if elem, next, ok := r(pos); ok {
				return elem, next
			}
			// diagnostics of an abandoned attempt are not ours to report
			s.diags = s.diags[:mark]
		}
		s.diags = append(s.diags, s.diagnose(pos))
	}

	c, _ := charAt(s.src, pos)
	return Character{Text: c}, pos + len(c)
}

// elementsUntil reads elements until a Character in stop, which is consumed
// but not returned. Reaching end of input is a failure.
func (s *state) elementsUntil(pos int, stop ...string) ([]Element, string, int, bool) {
	var elems []Element
	for {
		elem, next, ok := s.element(pos)
		if !ok {
			return nil, "", pos, false
		}
		pos = next

		if c, isChar := elem.(Character); isChar && slices.Contains(stop, c.Text) {
			return elems, c.Text, pos, true
		}
		elems = append(elems, elem)
	}
}

func (s *state) enter() bool {
	if s.maxDepth > 0 && s.depth >= s.maxDepth {
		return false
	}
	s.depth++
	return true
}

func (s *state) leave() {
	s.depth--
}

// truncation parses %N<text< and %N>text>
func (s *state) truncation(pos int) (Element, int, bool) {
	arg, p := number(s.src, pos+1)
	if p >= len(s.src) || !byteIn("<>", s.src[p]) {
		return nil, pos, false
	}

	code := s.src[p]
	start := p + 1
	end, ok := escapedRun(s.src, start, []string{string(code)})
	if !ok {
		return nil, pos, false
	}

	return Truncation{
		Arg:         arg,
		Code:        code,
		Replacement: s.src[start:end],
	}, end + 1, true
}

// multiConditional parses %(c.b0.b1...bn) for the branch-selecting codes
func (s *state) multiConditional(pos int) (Element, int, bool) {
	if !strings.HasPrefix(s.src[pos:], "%(") || pos+2 >= len(s.src) || !byteIn(multiCodes, s.src[pos+2]) {
		return nil, pos, false
	}

	code := s.src[pos+2]
	delim, ok := charAt(s.src, pos+3)
	if !ok || !s.enter() {
		return nil, pos, false
	}
	defer s.leave()

	var branches [][]Element
	p := pos + 3 + len(delim)
	for {
		branch, found, next, ok := s.elementsUntil(p, delim, ")")
		if !ok {
			return nil, pos, false
		}
		branches = append(branches, branch)
		p = next
		if found == ")" {
			break
		}
	}

	return MultiConditional{
		Code:     code,
		Delim:    delim,
		Branches: branches,
	}, p, true
}

// conditional parses %N(c.true.false)
func (s *state) conditional(pos int) (Element, int, bool) {
	arg, p := number(s.src, pos+1)
	if p+1 >= len(s.src) || s.src[p] != '(' || !byteIn(predicateCodes, s.src[p+1]) {
		return nil, pos, false
	}

	code := s.src[p+1]
	delim, ok := charAt(s.src, p+2)
	if !ok || !s.enter() {
		return nil, pos, false
	}
	defer s.leave()

	trueBranch, _, p, ok := s.elementsUntil(p+2+len(delim), delim)
	if !ok {
		return nil, pos, false
	}
	falseBranch, _, p, ok := s.elementsUntil(p, ")")
	if !ok {
		return nil, pos, false
	}

	return Conditional{
		Arg:   arg,
		Code:  code,
		Delim: delim,
		True:  trueBranch,
		False: falseBranch,
	}, p, true
}

// dateFormat parses %D{format}
func (s *state) dateFormat(pos int) (Element, int, bool) {
	if !strings.HasPrefix(s.src[pos:], "%D{") {
		return nil, pos, false
	}

	start := pos + 3
	end := strings.IndexByte(s.src[start:], '}')
	if end <= 0 {
		return nil, pos, false
	}

	return DateFormat{Format: s.src[start : start+end]}, start + end + 1, true
}

// namedColor parses %F{name} and %K{name}
func (s *state) namedColor(pos int) (Element, int, bool) {
	arg, p := number(s.src, pos+1)
	if p+1 >= len(s.src) || !byteIn("FK", s.src[p]) || s.src[p+1] != '{' {
		return nil, pos, false
	}

	code := s.src[p]
	start := p + 2
	end := strings.IndexByte(s.src[start:], '}')
	if end <= 0 {
		return nil, pos, false
	}

	return NamedColor{
		Arg:  arg,
		Code: code,
		Name: s.src[start : start+end],
	}, start + end + 1, true
}

// pathPrefix parses %d{:alias:prefix...} and %/{:alias:prefix...}
func (s *state) pathPrefix(pos int) (Element, int, bool) {
	arg, p := number(s.src, pos+1)
	if p+1 >= len(s.src) || !byteIn("d/", s.src[p]) || s.src[p+1] != '{' {
		return nil, pos, false
	}

	code := s.src[p]
	delim, ok := charAt(s.src, p+2)
	if !ok {
		return nil, pos, false
	}

	subs, p := s.substitutions(p+2+len(delim), delim)
	if p >= len(s.src) || s.src[p] != '}' {
		return nil, pos, false
	}

	return PathPrefix{
		Arg:           arg,
		Code:          code,
		Delim:         delim,
		Substitutions: subs,
		Raw:           s.src[pos : p+1],
	}, p + 1, true
}

// substitutions reads delim-separated alias/prefix pairs. It stops in front
// of the first separator that is not followed by a complete pair.
func (s *state) substitutions(pos int, delim string) ([]Substitution, int) {
	var subs []Substitution
	for {
		start := pos
		if len(subs) > 0 {
			if !strings.HasPrefix(s.src[pos:], delim) {
				return subs, pos
			}
			start += len(delim)
		}

		sub, next, ok := s.substitution(start, delim)
		if !ok {
			return subs, pos
		}
		subs = append(subs, sub)
		pos = next
	}
}

func (s *state) substitution(pos int, delim string) (Substitution, int, bool) {
	stop := []string{delim, "}"}

	aliasEnd, ok := escapedRun(s.src, pos, stop)
	if !ok || !strings.HasPrefix(s.src[aliasEnd:], delim) {
		return Substitution{}, pos, false
	}

	prefixStart := aliasEnd + len(delim)
	prefixEnd, ok := escapedRun(s.src, prefixStart, stop)
	if !ok || prefixEnd == prefixStart {
		return Substitution{}, pos, false
	}

	return Substitution{
		Alias:  unescape(s.src[pos:aliasEnd]),
		Prefix: unescape(s.src[prefixStart:prefixEnd]),
	}, prefixEnd, true
}

// literalBlock parses %{...%}, ending at the first %}
func (s *state) literalBlock(pos int) (Element, int, bool) {
	if !strings.HasPrefix(s.src[pos:], "%{") {
		return nil, pos, false
	}

	start := pos + 2
	end := strings.Index(s.src[start:], "%}")
	if end < 0 {
		return nil, pos, false
	}

	return LiteralBlock{Text: s.src[start : start+end]}, start + end + 2, true
}

// numericEscape parses %N~, %-1d, %m ...
func (s *state) numericEscape(pos int) (Element, int, bool) {
	arg, p := number(s.src, pos+1)
	if p >= len(s.src) || !byteIn(numericCodes, s.src[p]) {
		return nil, pos, false
	}
	return NumericEscape{Arg: arg, Code: s.src[p]}, p + 1, true
}

// escape parses %n, %r, %% ...
func (s *state) escape(pos int) (Element, int, bool) {
	if pos+1 >= len(s.src) || !byteIn(escapeCodes, s.src[pos+1]) {
		return nil, pos, false
	}
	return Escape{Code: s.src[pos+1]}, pos + 2, true
}

// diagnose explains why the '%' at pos was kept literally.
func (s *state) diagnose(pos int) Diagnostic {
	next, ok := charAt(s.src, pos+1)
	if !ok {
		return Diagnostic{Offset: pos, Text: "%", Message: "trailing %"}
	}

	d := Diagnostic{
		Offset:  pos,
		Text:    "%" + next,
		Message: fmt.Sprintf("unknown escape %q", "%"+next),
	}

	_, end := number(s.src, pos+1)
	switch {
	case end < len(s.src) && s.src[end] == '(':
		if s.maxDepth > 0 && s.depth >= s.maxDepth {
			d.Message = fmt.Sprintf("conditional nested deeper than %d", s.maxDepth)
		} else {
			d.Message = "malformed or unterminated conditional"
		}
	case end < len(s.src) && (s.src[end] == '<' || s.src[end] == '>'):
		d.Message = "unterminated truncation"
	case next == "{":
		d.Message = "unterminated literal block"
	}

	return d
}
