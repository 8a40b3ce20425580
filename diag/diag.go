// Package diag implements the DiagnosticSet consumed interface named in
// spec.md §6, and the five diagnostic kinds of §6's diagnostic surface.
// Styling follows the donor's colorized, kind-tagged printer convention
// (analysis/location's colorize table, fatih/color throughout).
package diag

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/ownlang/objnorm/ir"
	"github.com/ownlang/objnorm/utils"
)

// Kind is one of the five fixed diagnostic kinds spec.md §6 names.
type Kind int

const (
	IllegalMove Kind = iota
	UseOfUninitializedObject
	UseOfConsumedObject
	UseOfPartiallyInitializedObject
	UseOfPartiallyConsumedObject
)

func (k Kind) String() string {
	switch k {
	case IllegalMove:
		return "illegal-move"
	case UseOfUninitializedObject:
		return "use-of-uninitialized-object"
	case UseOfConsumedObject:
		return "use-of-consumed-object"
	case UseOfPartiallyInitializedObject:
		return "use-of-partially-initialized-object"
	case UseOfPartiallyConsumedObject:
		return "use-of-partially-consumed-object"
	default:
		return "?diagnostic"
	}
}

var kindColor = utils.CanColorize(color.New(color.FgHiRed, color.Bold).SprintFunc())

// Diagnostic carries a kind, the instruction that triggered it, the
// source range (§6: "each carries a source range"), and a free-form
// human-readable description. The external wording is deliberately an
// implementation choice per §6; Describe below is only one rendering.
type Diagnostic struct {
	Kind    Kind
	At      ir.InstrID
	Pos     ir.Position
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, kindColor(d.Kind.String()), d.Message)
}

// dedupKey is the (instruction, site, kind) triple spec.md §9's open
// question on diagnostic duplication names as the unit of
// deduplication. "site" is folded into Pos since a single instruction
// carries one source range here.
type dedupKey struct {
	at   ir.InstrID
	pos  ir.Position
	kind Kind
}

// Set is the append-only, insertion-ordered, self-deduplicating
// diagnostic sink spec.md §6 calls DiagnosticSet. Deduplication resolves
// spec.md §9's open question in favor of "deduplicate at the sink": the
// fixed-point driver may revisit a block and re-run a transfer function
// that already reported an error on an earlier iteration; without this,
// the same user mistake would be reported once per revisit.
type Set struct {
	items []Diagnostic
	seen  map[dedupKey]struct{}
}

func NewSet() *Set {
	return &Set{seen: make(map[dedupKey]struct{})}
}

// Insert appends d unless an equal (instruction, site, kind) triple was
// already recorded. Returns true iff it was newly inserted.
func (s *Set) Insert(d Diagnostic) bool {
	key := dedupKey{at: d.At, pos: d.Pos, kind: d.Kind}
	if _, dup := s.seen[key]; dup {
		return false
	}
	s.seen[key] = struct{}{}
	s.items = append(s.items, d)
	return true
}

// Items returns the diagnostics in the order they were first inserted.
func (s *Set) Items() []Diagnostic { return s.items }

// HasErrors reports whether any diagnostic was recorded. All five kinds
// are errors; there are no warning-level diagnostics in this pass.
func (s *Set) HasErrors() bool { return len(s.items) > 0 }

// CountOfKind is a small test/inspection helper.
func (s *Set) CountOfKind(k Kind) (n int) {
	for _, d := range s.items {
		if d.Kind == k {
			n++
		}
	}
	return
}
