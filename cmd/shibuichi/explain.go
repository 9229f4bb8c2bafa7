package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	ansi "github.com/leaanthony/go-ansi-parser"
	"github.com/mattn/go-runewidth"

	"github.com/Hanaasagi/shibuichi/pkg/expand"
	"github.com/Hanaasagi/shibuichi/pkg/ps1parser"
)

const (
	explainIndent    = "  "
	maxSourceWidth   = 48
	truncationMarker = "…"
)

var (
	escapeNotes = map[byte]string{
		'r': "git branch",
		'p': "commits ahead of upstream",
		'q': "commits behind upstream",
		'x': "stash count",
	}
	predicateNotes = map[byte]string{
		'G': "inside a repository",
		'y': "repository is dirty",
		'm': "unstaged or untracked changes",
		's': "staged changes",
		'o': "remote domain is N",
		'p': "at least N commits ahead",
		'q': "at least N commits behind",
		'x': "at least N stashes",
	}
	selectorNotes = map[byte]string{
		'o': "remote domain",
		'p': "commits ahead",
		'q': "commits behind",
		'x': "stash count",
	}
)

type palette struct {
	title *color.Color
	kind  *color.Color
	ext   *color.Color
	note  *color.Color
	warn  *color.Color
}

func newPalette(colored bool) palette {
	p := palette{
		title: color.New(color.Bold, color.FgHiWhite),
		kind:  color.New(color.FgHiGreen),
		ext:   color.New(color.FgHiYellow),
		note:  color.New(color.FgHiBlack),
		warn:  color.New(color.FgHiRed),
	}
	for _, c := range []*color.Color{p.title, p.kind, p.ext, p.note, p.warn} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// row is one line of the element tree
type row struct {
	label     string
	source    string
	note      string
	extension bool
}

// explainer renders the parse tree of a prompt next to its expansion
type explainer struct {
	info   expand.Info
	colors palette
	rows   []row
}

func explain(w io.Writer, parser *ps1parser.Parser, prompt string, info expand.Info, colored bool) error {
	e := &explainer{info: info, colors: newPalette(colored)}

	elems, diags := parser.ParseWithDiagnostics(prompt)
	e.walk(elems, 1)

	var out strings.Builder
	e.colors.title.Fprint(&out, "prompt:")
	fmt.Fprintf(&out, " %s\n", strconv.Quote(prompt))

	width := 0
	for _, r := range e.rows {
		width = max(width, runewidth.StringWidth(r.label))
	}
	for _, r := range e.rows {
		style := e.colors.kind
		if r.extension {
			style = e.colors.ext
		}
		style.Fprint(&out, runewidth.FillRight(r.label, width))
		if r.source != "" {
			out.WriteString("  ")
			out.WriteString(r.source)
		}
		if r.note != "" {
			out.WriteString("  ")
			e.colors.note.Fprint(&out, r.note)
		}
		out.WriteByte('\n')
	}

	if len(diags) > 0 {
		e.colors.title.Fprint(&out, "diagnostics:")
		out.WriteByte('\n')
		for _, d := range diags {
			out.WriteString(explainIndent)
			e.colors.warn.Fprint(&out, d.String())
			out.WriteByte('\n')
		}
	}

	var expanded strings.Builder
	if err := expand.Render(elems, info, &expanded); err != nil {
		return err
	}
	e.colors.title.Fprint(&out, "expansion:")
	fmt.Fprintf(&out, " %s\n", strconv.Quote(expanded.String()))

	_, err := io.WriteString(w, out.String())
	return err
}

func (e *explainer) add(depth int, label, source, note string, extension bool) {
	e.rows = append(e.rows, row{
		label:     strings.Repeat(explainIndent, depth) + label,
		source:    source,
		note:      note,
		extension: extension,
	})
}

// walk adds rows for elems, merging runs of characters into one text row
func (e *explainer) walk(elems []ps1parser.Element, depth int) {
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			e.add(depth, "Text", quote(text.String()), "", false)
			text.Reset()
		}
	}

	for _, elem := range elems {
		if c, ok := elem.(ps1parser.Character); ok {
			text.WriteString(c.Text)
			continue
		}
		flush()
		e.element(elem, depth)
	}
	flush()
}

func (e *explainer) element(elem ps1parser.Element, depth int) {
	label := elem.Kind().String()
	source := clip(display(elem.String()))

	switch el := elem.(type) {
	case ps1parser.Escape:
		if el.IsExtension() {
			e.add(depth, label, source, escapeNotes[el.Code], true)
			return
		}
		e.add(depth, label, source, "", false)

	case ps1parser.PathPrefix:
		note := fmt.Sprintf("%d substitutions, resolves to %s", len(el.Substitutions),
			quote(expand.ResolvePath(e.info.CurrentPath(), el)))
		e.add(depth, label, source, note, true)

	case ps1parser.LiteralBlock:
		e.add(depth, label, source, literalNote(el.Text), false)

	case ps1parser.Truncation:
		e.add(depth, label, source, fmt.Sprintf("width %d", el.Arg.Or(0)), false)

	case ps1parser.Conditional:
		note := "evaluated by the shell"
		if el.IsExtension() {
			note = strings.Replace(predicateNotes[el.Code], "N", strconv.Itoa(el.Arg.Or(0)), 1)
		}
		e.add(depth, label, "test "+string(el.Code), note, el.IsExtension())
		e.add(depth+1, "true:", "", "", false)
		e.walk(el.True, depth+2)
		e.add(depth+1, "false:", "", "", false)
		e.walk(el.False, depth+2)

	case ps1parser.MultiConditional:
		note := fmt.Sprintf("select by %s, %d branches", selectorNotes[el.Code], len(el.Branches))
		e.add(depth, label, "test "+string(el.Code), note, true)
		for i, branch := range el.Branches {
			branchLabel := fmt.Sprintf("[%d]:", i)
			if i == len(el.Branches)-1 {
				branchLabel = fmt.Sprintf("[%d+]:", i)
			}
			e.add(depth+1, branchLabel, "", "", false)
			e.walk(branch, depth+2)
		}

	default:
		e.add(depth, label, source, "", false)
	}
}

// literalNote describes the payload of a %{...%} block with escape codes removed
func literalNote(payload string) string {
	if !strings.Contains(payload, "\x1b") {
		return ""
	}
	plain, err := ansi.Cleanse(payload, ansi.WithIgnoreInvalidCodes())
	if err != nil {
		return "unparsable escape codes"
	}
	return "escape codes, text " + quote(plain)
}

func quote(s string) string {
	return clip(strconv.Quote(s))
}

// display escapes control characters so raw sequences never reach the terminal
func display(s string) string {
	q := strconv.Quote(s)
	return q[1 : len(q)-1]
}

// clip shortens s to the source column width
func clip(s string) string {
	return runewidth.Truncate(s, maxSourceWidth, truncationMarker)
}
