// Package indenter renders the locals/memory listing in
// context.Context.String(), indenting and line-wrapping the entries the
// way the donor's own lattice/Context dumps do. The donor's original
// also nests arbitrary fmt.Stringer trees and thunked (lazily computed)
// entries, for pretty-printing recursive lattice elements it doesn't
// want to fully stringify unless asked. This pass's Context only ever
// dumps two flat lists of already-stringified entries (locals, memory),
// so the fluent builder here is specialized down to exactly that: start
// a brace, nest a list of strings one per line, close the brace.
package indenter

import "strings"

// Builder accumulates one bracketed, indented listing. The zero value
// is not usable; construct one with Indenter().
type Builder struct {
	buf   string
	level int
}

// Indenter starts a fresh Builder.
func Indenter() *Builder {
	return &Builder{}
}

func (b *Builder) indent() string {
	return strings.Repeat("  ", b.level)
}

// Start opens the listing with str (typically an opening brace).
func (b *Builder) Start(str string) *Builder {
	b.buf = str
	return b
}

// NestStrings appends entries one per line, indented one level deeper
// than the current one. A single entry is appended inline instead,
// matching how a one-element locals or memory map prints as
// "{entry}" rather than a multi-line block.
func (b *Builder) NestStrings(entries ...string) *Builder {
	if len(entries) == 1 {
		b.buf += entries[0]
		return b
	}

	b.level++
	for _, e := range entries {
		b.buf += "\n" + b.indent() + e
	}
	b.level--
	b.buf += "\n"
	return b
}

// End closes the listing with str (typically a closing brace) and
// returns the full rendered text.
func (b *Builder) End(str string) string {
	if len(b.buf) > 0 && b.buf[len(b.buf)-1] == '\n' {
		return b.buf + b.indent() + str
	}
	return b.buf + str
}
