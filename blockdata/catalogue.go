// Package blockdata defines the external block-data catalogue interface the
// parser consumes to bind macro call arguments: for each macro name, its
// ordered positional argument names, keyword set, and whether the trailing
// positional is variadic.
package blockdata

import "strings"

// ArraySuffix marks a macro's trailing positional argument name as
// variadic, exactly as NStaticConf::ARRAY_SUFFIX does in the original.
const ArraySuffix = "..."

// MacroProps describes one macro's calling convention, as looked up from an
// external module/configuration subsystem outside this core's scope.
type MacroProps struct {
	// ArgNames lists every argument name in catalogue order: keyword
	// arguments first, then positional arguments, matching the ordering
	// CollectArgs in the original relies on.
	ArgNames []string
	// Keywords is the subset of ArgNames that are named buckets rather
	// than positional slots.
	Keywords map[string]struct{}
	// HasConditional marks macros whose body contains conditional
	// expansion; consumed by callers outside this core (module assembly),
	// kept here only because the catalogue record carries it.
	HasConditional bool
}

// HasKeyword reports whether name is one of the macro's keyword arguments.
func (p *MacroProps) HasKeyword(name string) bool {
	_, ok := p.Keywords[name]
	return ok
}

// Variadic reports whether the macro's trailing positional argument is
// variadic (its catalogue name ends in ArraySuffix).
func (p *MacroProps) Variadic() bool {
	if len(p.ArgNames) == 0 {
		return false
	}
	return strings.HasSuffix(p.ArgNames[len(p.ArgNames)-1], ArraySuffix)
}

// PositionalCount returns how many of ArgNames are positional (as opposed to
// keyword) slots.
func (p *MacroProps) PositionalCount() int {
	return len(p.ArgNames) - len(p.Keywords)
}

// KeyIndex returns the index into ArgNames (and therefore into a bound
// Call's Arguments) of the keyword named key.
func (p *MacroProps) KeyIndex(key string) int {
	for i, name := range p.ArgNames {
		if name == key {
			return i
		}
	}
	return -1
}

// Catalogue resolves a macro name to its calling convention. Unknown macros
// are a parse error.
type Catalogue interface {
	Lookup(name string) (*MacroProps, bool)
}

// Map is the simplest Catalogue: a plain name-to-MacroProps table, suitable
// for tests and for callers that load block data eagerly.
type Map map[string]*MacroProps

// Lookup implements Catalogue.
func (m Map) Lookup(name string) (*MacroProps, bool) {
	p, ok := m[name]
	return p, ok
}
