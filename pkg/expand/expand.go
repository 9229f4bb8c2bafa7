// Package expand renders parsed prompts, evaluating the git-aware escapes
// against an Info provider and passing every other escape through unchanged.
//
// Supported extensions:
//
//   - %r  short name of the current branch, empty outside a repository
//   - %p  commits ahead of the upstream, 0 without one
//   - %q  commits behind the upstream, 0 without one
//   - %x  number of stashes
//
// Conditional tests, %N(c.true.false):
//
//   - G  inside a repository
//   - y  repository is dirty
//   - m  repository has unstaged changes or untracked files
//   - s  repository has staged changes
//   - o  remote domain equals N (see Domain)
//   - p  at least N commits ahead
//   - q  at least N commits behind
//   - x  at least N stashes
//
// Without a number, %(o...), %(p...), %(q...) and %(x...) select one of any
// number of branches by the domain or count; the last branch is the default.
//
// %d{:alias:prefix...} and %/{:alias:prefix...} print the working directory
// with the first matching prefix replaced by its alias.
package expand

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Hanaasagi/shibuichi/pkg/ps1parser"
)

// Expand parses prompt and writes its expansion to w.
// The only possible error is a failing writer.
func Expand(prompt string, info Info, w io.Writer) error {
	return ExpandWith(defaultParser, prompt, info, w)
}

var defaultParser = ps1parser.NewParser(ps1parser.ParserOptions{})

// ExpandWith is like Expand but parses prompt with p, e.g. one that caps
// conditional nesting.
func ExpandWith(p *ps1parser.Parser, prompt string, info Info, w io.Writer) error {
	if err := Render(p.Parse(prompt), info, w); err != nil {
		return fmt.Errorf("writing prompt: %w", err)
	}
	return nil
}

// ExpandString returns the expansion of prompt.
func ExpandString(prompt string, info Info) string {
	var b strings.Builder
	_ = Expand(prompt, info, &b) // strings.Builder never fails
	return b.String()
}

// Render writes the expansion of already parsed elements to w.
func Render(elems []ps1parser.Element, info Info, w io.Writer) error {
	for _, elem := range elems {
		if err := render(elem, info, w); err != nil {
			return err
		}
	}
	return nil
}

func render(elem ps1parser.Element, info Info, w io.Writer) error {
	switch e := elem.(type) {
	case ps1parser.Escape:
		return renderEscape(e, info, w)
	case ps1parser.PathPrefix:
		_, err := io.WriteString(w, ResolvePath(info.CurrentPath(), e))
		return err
	case ps1parser.Conditional:
		return renderConditional(e, info, w)
	case ps1parser.MultiConditional:
		return Render(selectBranch(e, info), info, w)
	default:
		_, err := io.WriteString(w, elem.String())
		return err
	}
}

func renderEscape(e ps1parser.Escape, info Info, w io.Writer) error {
	var s string
	switch e.Code {
	case 'r':
		s = info.GitBranch()
	case 'p':
		s = strconv.Itoa(info.GitRemoteAhead())
	case 'q':
		s = strconv.Itoa(info.GitRemoteBehind())
	case 'x':
		s = strconv.Itoa(info.GitStashes())
	default:
		s = e.String()
	}
	_, err := io.WriteString(w, s)
	return err
}

func renderConditional(c ps1parser.Conditional, info Info, w io.Writer) error {
	if c.IsExtension() {
		if test(c, info) {
			return Render(c.True, info, w)
		}
		return Render(c.False, info, w)
	}

	// Not ours to evaluate: rebuild it around the rendered branches so that
	// extensions inside either branch still expand.
	if _, err := io.WriteString(w, "%"+c.Arg.Raw+"("+string(c.Code)+c.Delim); err != nil {
		return err
	}
	if err := Render(c.True, info, w); err != nil {
		return err
	}
	if _, err := io.WriteString(w, c.Delim); err != nil {
		return err
	}
	if err := Render(c.False, info, w); err != nil {
		return err
	}
	_, err := io.WriteString(w, ")")
	return err
}

// test evaluates an extension predicate.
func test(c ps1parser.Conditional, info Info) bool {
	n := c.Arg.Or(0)
	switch c.Code {
	case 'G':
		return info.GitExists()
	case 'y':
		return info.GitDirty()
	case 'm':
		return info.GitModified()
	case 's':
		return info.GitStaged()
	case 'o':
		return int(info.GitRemoteDomain()) == n
	case 'p':
		return info.GitRemoteAhead() >= n
	case 'q':
		return info.GitRemoteBehind() >= n
	case 'x':
		return info.GitStashes() >= n
	}
	return false
}

// selectBranch picks the branch indexed by the predicate's value, falling
// back to the last branch when the index is out of range.
func selectBranch(m ps1parser.MultiConditional, info Info) []ps1parser.Element {
	var index int
	switch m.Code {
	case 'o':
		index = int(info.GitRemoteDomain())
	case 'p':
		index = info.GitRemoteAhead()
	case 'q':
		index = info.GitRemoteBehind()
	case 'x':
		index = info.GitStashes()
	}

	if index >= 0 && index < len(m.Branches) {
		return m.Branches[index]
	}
	return m.Branches[len(m.Branches)-1]
}
