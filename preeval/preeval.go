// Package preeval implements the pre-evaluator: it walks the inlined syntax
// tree, classifying boundary-modifier terms as inputs, outputs, or tools
// (populating order-preserving, uniquing tables keyed by name), and
// resolving the flags co-present modifiers attach to each classified entry.
package preeval

import (
	"fmt"
	"strings"

	"github.com/jcorbin/cmdlang/syntax"
	"github.com/jcorbin/cmdlang/values"
)

// OutputMode selects how output declarations are accounted for, in the
// shape of EOutputAccountingMode from a build command store.
type OutputMode int

const (
	// Default performs full enumeration of every output term, the mode
	// used e.g. by nodes originating from a SRCS-like macro.
	Default OutputMode = iota
	// Module expects a single implicit main output; a second declaration
	// in this mode is an error.
	Module
)

// Flags are the boolean properties a boundary modifier chain can attach to
// a classified input/output entry.
type Flags struct {
	Glob            bool
	Temp            bool
	NoAutoSource    bool
	NoRelative      bool
	ResolveToBinDir bool
}

// Entry is one input/output/tool table row.
type Entry struct {
	Name  string
	Flags Flags
	// Base is the starting index at which this entry's elements appear in
	// the rendered pipeline: this entry's ordinal position within its
	// table, since the renderer interleaves per-input and per-output
	// expansion in declaration order.
	Base int
}

// Table is an order-preserving, uniquing (by Name) container of Entry.
type Table struct {
	Entries []Entry
	byName  map[string]int
}

// Add records name with flags, returning its Base. A repeated name merges
// flags into the existing entry (logical OR) rather than creating a
// duplicate, matching the "uniquing containers keyed by name" data model.
func (t *Table) Add(name string, flags Flags) int {
	if t.byName == nil {
		t.byName = make(map[string]int)
	}
	if i, ok := t.byName[name]; ok {
		t.Entries[i].Flags = orFlags(t.Entries[i].Flags, flags)
		return t.Entries[i].Base
	}
	base := len(t.Entries)
	t.byName[name] = base
	t.Entries = append(t.Entries, Entry{Name: name, Flags: flags, Base: base})
	return base
}

func orFlags(a, b Flags) Flags {
	return Flags{
		Glob:            a.Glob || b.Glob,
		Temp:            a.Temp || b.Temp,
		NoAutoSource:    a.NoAutoSource || b.NoAutoSource,
		NoRelative:      a.NoRelative || b.NoRelative,
		ResolveToBinDir: a.ResolveToBinDir || b.ResolveToBinDir,
	}
}

// MultipleOutputsError reports a second output declaration while in
// Module accounting mode.
type MultipleOutputsError struct{ Name string }

func (e *MultipleOutputsError) Error() string {
	return fmt.Sprintf("preeval: multiple outputs declared in Module mode (second: %q)", e.Name)
}

// PreEvaluator walks an inlined Script, populating Inputs/Outputs/Tools.
type PreEvaluator struct {
	Values *values.Store
	Mode   OutputMode
	Shower *Shower

	Inputs  Table
	Outputs Table
	Tools   Table
}

// Run walks s, classifying every boundary-modifier transformation it finds.
// The tree itself is returned unchanged: pre-evaluation's effect here is
// entirely the side-tables it populates plus whatever the Shower
// accumulated, matching the invariant that "inputs/outputs declared during
// pre-evaluation are exactly those whose name contributes to the rendered
// script via an input/output boundary modifier" without requiring the
// compiled expression to differ from what the polish compiler would
// otherwise produce from the inlined tree.
func (pe *PreEvaluator) Run(s syntax.Script) syntax.Script {
	pe.walkScript(s, 0)
	return s
}

func (pe *PreEvaluator) walkScript(s syntax.Script, depth int) {
	for _, cmd := range s.Commands {
		for _, arg := range cmd.Arguments {
			for _, t := range arg.Terms {
				pe.walkTerm(t, depth)
			}
		}
	}
}

func (pe *PreEvaluator) walkTerm(t syntax.Term, depth int) {
	switch t.Kind {
	case syntax.KindXfm:
		pe.walkXfm(t.Xfm, depth)
	case syntax.KindCall:
		for _, arg := range t.Call.Arguments {
			pe.walkScript(arg, depth+1)
		}
	}
}

func (pe *PreEvaluator) walkXfm(x *syntax.Transformation, depth int) {
	var flags Flags
	var role values.FuncKind
	hasRole := false
	for _, m := range x.Mods {
		switch m.Name {
		case values.FuncInput, values.FuncOutput, values.FuncTool:
			role, hasRole = m.Name, true
		case values.FuncGlob:
			flags.Glob = true
		case values.FuncNoAutoSource:
			flags.NoAutoSource = true
		case values.FuncNoRelative:
			flags.NoRelative = true
		case values.FuncResolveToBinDir:
			flags.ResolveToBinDir = true
		}
	}

	pe.walkScript(x.Body, depth+1)

	if !hasRole {
		return
	}

	name := pe.staticText(x.Body)
	switch role {
	case values.FuncInput:
		pe.Inputs.Add(name, flags)
	case values.FuncOutput:
		if pe.Mode == Module && len(pe.Outputs.Entries) >= 1 {
			if pe.Shower != nil {
				pe.Shower.Report(depth, &MultipleOutputsError{Name: name})
			}
			return
		}
		pe.Outputs.Add(name, flags)
	case values.FuncTool:
		pe.Tools.Add(name, flags)
	}
}

// staticText returns a best-effort display name for an entry: the literal
// text if the body is fully constant, otherwise the referenced variable's
// own name (since its value is only known at render time, from the
// renderer's bindings or its per-input value spans).
func (pe *PreEvaluator) staticText(body syntax.Script) string {
	var b strings.Builder
	for _, cmd := range body.Commands {
		for _, arg := range cmd.Arguments {
			for _, t := range arg.Terms {
				switch t.Kind {
				case syntax.KindConst:
					s, _ := pe.Values.String(t.Const)
					b.WriteString(s)
				case syntax.KindVar, syntax.KindUnexpanded:
					id := t.Var
					if t.Kind == syntax.KindUnexpanded {
						id = t.Unexpanded
					}
					name, _ := pe.Values.VariableName(id)
					b.WriteString(name)
				}
			}
		}
	}
	return b.String()
}
