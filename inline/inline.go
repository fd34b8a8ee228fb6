// Package inline implements the recursive inliner: it replaces variable and
// macro references by their definitions, binding macro arguments into a
// locally-built scope stacked on top of two inherited variable tables, and
// bounds recursion so that cyclic or unknown references cannot diverge
// compilation.
package inline

import (
	"fmt"

	"github.com/jcorbin/cmdlang/blockdata"
	"github.com/jcorbin/cmdlang/internal/panicerr"
	"github.com/jcorbin/cmdlang/parser"
	"github.com/jcorbin/cmdlang/syntax"
	"github.com/jcorbin/cmdlang/values"
)

// MaxDepth bounds both the per-name recursion counter and the global
// call-chain depth counter.
const MaxDepth = 32

// LegacyMode distinguishes the three shapes a name lookup may return: an
// already-parsed syntax tree, a raw string to be re-parsed as a plain
// expression, or a raw string plus the macro's formal parameters (in
// this implementation, formal parameter names come from the block-data
// catalogue rather than being duplicated on Definition, and the inliner
// resolves LegacyMacro and LegacyExpr identically: both are re-parsed
// through the parser cache, and the result is inlined inside a
// macro-argument scope only when the name is reached through a macro call).
type LegacyMode int

const (
	LegacyNone LegacyMode = iota
	LegacyExpr
	LegacyMacro
)

// Definition is what Definitions.Lookup returns for a resolvable name.
type Definition struct {
	Legacy LegacyMode
	Script syntax.Script // valid when Legacy == LegacyNone
	Raw    string        // valid when Legacy != LegacyNone
}

// Definitions is the inherited variable table the inliner consults once a
// reference isn't bound in the current macro-argument scope. Two distinct
// instances are supplied to Inliner: InlineVisible (what a macro body may
// see) and AllVisible (what top-level expansion may see), made explicit
// inputs rather than collapsed into a single shared view.
type Definitions interface {
	Lookup(name string) (Definition, bool)
}

// RecursionTooDeepError reports that a single name's per-variable
// recursion counter exceeded MaxDepth.
type RecursionTooDeepError struct{ Name string }

func (e *RecursionTooDeepError) Error() string {
	return fmt.Sprintf("inline: recursion too deep for %q", e.Name)
}

// InlineDepthExceededError reports that the global call-chain depth
// counter exceeded MaxDepth, guarding against mutual recursion the
// per-name counter alone wouldn't catch.
type InlineDepthExceededError struct{}

func (e *InlineDepthExceededError) Error() string {
	return "inline: call-chain depth exceeded"
}

// Inliner replaces variable and macro references by their definitions.
type Inliner struct {
	Values        *values.Store
	Cat           blockdata.Catalogue
	Cache         *parser.Cache
	InlineVisible Definitions
	AllVisible    Definitions

	recursionDepth map[string]int
	callChainDepth int
}

// scope is the locally-built macro-argument layer: a map from formal
// parameter name to the (still uninlined) argument subtree plus the
// (scope, visibility) pair it must be inlined under once referenced. The
// argument is evaluated in the calling context, not the callee's.
type scope struct {
	binding map[string]boundArg
}

type boundArg struct {
	arg         syntax.Script
	callerScope *scope
	inMacroBody bool
}

func (sc *scope) lookup(name string) (boundArg, bool) {
	if sc == nil {
		return boundArg{}, false
	}
	ba, ok := sc.binding[name]
	return ba, ok
}

// Inline returns a new script in which every resolvable reference has been
// recursively expanded; unresolved references are preserved as
// unexpanded-placeholder terms. A RecursionTooDeepError or
// InlineDepthExceededError aborts the whole call, propagating fast rather
// than returning a partially-expanded tree.
func (in *Inliner) Inline(s syntax.Script) (out syntax.Script, err error) {
	if in.recursionDepth == nil {
		in.recursionDepth = make(map[string]int)
	}
	rerr := panicerr.Recover("inline", func() (rerr error) {
		defer func() {
			if r := recover(); r != nil {
				if e, ok := r.(error); ok {
					rerr = e
					return
				}
				panic(r)
			}
		}()
		out = in.inlineScript(s, nil, false)
		return nil
	})
	return out, rerr
}

func (in *Inliner) inlineScript(s syntax.Script, sc *scope, inMacroBody bool) syntax.Script {
	out := syntax.Script{Commands: make([]syntax.Command, len(s.Commands))}
	for i, cmd := range s.Commands {
		out.Commands[i] = in.inlineCommand(cmd, sc, inMacroBody)
	}
	return out
}

func (in *Inliner) inlineCommand(cmd syntax.Command, sc *scope, inMacroBody bool) syntax.Command {
	out := syntax.Command{Arguments: make([]syntax.Argument, len(cmd.Arguments))}
	for i, arg := range cmd.Arguments {
		out.Arguments[i] = in.inlineArgument(arg, sc, inMacroBody)
	}
	return out
}

// inlineArgument inlines every term of arg, splicing in multi-term
// substitutions (a variable or macro argument whose own definition is
// itself several terms wide) in place, rather than replacing one term with
// exactly one term.
func (in *Inliner) inlineArgument(arg syntax.Argument, sc *scope, inMacroBody bool) syntax.Argument {
	out := syntax.Argument{Terms: make([]syntax.Term, 0, len(arg.Terms))}
	for _, t := range arg.Terms {
		out.Terms = append(out.Terms, in.inlineTerm(t, sc, inMacroBody)...)
	}
	return out
}

func (in *Inliner) inlineTerm(t syntax.Term, sc *scope, inMacroBody bool) []syntax.Term {
	switch t.Kind {
	case syntax.KindVar:
		return in.resolveName(t.Var, sc, inMacroBody)
	case syntax.KindUnexpanded:
		return in.resolveName(t.Unexpanded, sc, inMacroBody)
	case syntax.KindCall:
		return in.resolveCall(t.Call, sc, inMacroBody)
	case syntax.KindXfm:
		nx := &syntax.Transformation{
			Mods: t.Xfm.Mods,
			Body: in.inlineScript(t.Xfm.Body, sc, inMacroBody),
		}
		return []syntax.Term{syntax.XfmTerm(nx)}
	default:
		return []syntax.Term{t}
	}
}

// resolveName substitutes a variable reference: first against the current
// macro-argument scope, then against the inherited table appropriate for
// the current visibility. Unresolved references are preserved verbatim.
func (in *Inliner) resolveName(id values.VarId, sc *scope, inMacroBody bool) []syntax.Term {
	name, _ := in.Values.VariableName(id)

	if ba, ok := sc.lookup(name); ok {
		return in.expandBound(name, ba)
	}

	table := in.AllVisible
	if inMacroBody {
		table = in.InlineVisible
	}
	if table == nil {
		return []syntax.Term{syntax.UnexpandedTerm(id)}
	}
	def, ok := table.Lookup(name)
	if !ok {
		return []syntax.Term{syntax.UnexpandedTerm(id)}
	}

	in.enterDepth(name)
	defer in.leaveDepth(name)

	resolved, ok := in.resolveDefinition(name, def)
	if !ok {
		return []syntax.Term{syntax.UnexpandedTerm(id)}
	}
	return in.inlineScriptFlatten(resolved, nil, true)
}

func (in *Inliner) expandBound(name string, ba boundArg) []syntax.Term {
	in.enterDepth(name)
	defer in.leaveDepth(name)
	return in.inlineScriptFlatten(ba.arg, ba.callerScope, ba.inMacroBody)
}

// resolveCall substitutes a macro call by binding its arguments into a new
// scope and inlining the macro's own body definition under that scope.
func (in *Inliner) resolveCall(call *syntax.Call, sc *scope, inMacroBody bool) []syntax.Term {
	name, _ := in.Values.VariableName(call.Macro)

	props, ok := in.Cat.Lookup(name)
	if !ok {
		return []syntax.Term{syntax.UnexpandedTerm(call.Macro)}
	}

	table := in.AllVisible
	if inMacroBody {
		table = in.InlineVisible
	}
	var def Definition
	if table != nil {
		def, ok = table.Lookup(name)
	}
	if !ok {
		return []syntax.Term{syntax.UnexpandedTerm(call.Macro)}
	}

	in.enterDepth(name)
	defer in.leaveDepth(name)

	newScope := &scope{binding: make(map[string]boundArg, len(props.ArgNames))}
	for i, argName := range props.ArgNames {
		if i < len(call.Arguments) {
			newScope.binding[argName] = boundArg{arg: call.Arguments[i], callerScope: sc, inMacroBody: inMacroBody}
		}
	}

	resolved, ok := in.resolveDefinition(name, def)
	if !ok {
		return []syntax.Term{syntax.UnexpandedTerm(call.Macro)}
	}
	return in.inlineScriptFlatten(resolved, newScope, true)
}

// resolveDefinition turns a Definition into a Script, re-parsing legacy raw
// text through the shared parser cache when needed. It reports false when
// the definition cannot be turned into a Script.
func (in *Inliner) resolveDefinition(name string, def Definition) (syntax.Script, bool) {
	switch def.Legacy {
	case LegacyNone:
		return def.Script, true
	case LegacyExpr, LegacyMacro:
		s, err := in.Cache.Parse(in.Values, in.Cat, name, def.Raw)
		if err != nil {
			// A malformed legacy definition cannot be expanded further;
			// the caller preserves the reference rather than failing the
			// whole compilation, matching the "fail fast only at parse
			// time of the top-level expression" propagation policy.
			return syntax.Script{}, false
		}
		return s, true
	default:
		return syntax.Script{}, false
	}
}

// inlineScriptFlatten inlines s and, if it reduces to exactly one command
// with exactly one argument, returns that argument's terms directly so the
// substitution splices cleanly into the caller's argument; otherwise it
// collapses to a single nested term representing the remaining structure is
// not representable inline and is dropped to its first argument, which is
// the documented limit of this implementation (see DESIGN.md).
func (in *Inliner) inlineScriptFlatten(s syntax.Script, sc *scope, inMacroBody bool) []syntax.Term {
	inlined := in.inlineScript(s, sc, inMacroBody)
	if len(inlined.Commands) >= 1 && len(inlined.Commands[0].Arguments) >= 1 {
		return inlined.Commands[0].Arguments[0].Terms
	}
	return nil
}

func (in *Inliner) enterDepth(name string) {
	in.recursionDepth[name]++
	in.callChainDepth++
	if in.recursionDepth[name] > MaxDepth {
		panic(&RecursionTooDeepError{Name: name})
	}
	if in.callChainDepth > MaxDepth {
		panic(&InlineDepthExceededError{})
	}
}

func (in *Inliner) leaveDepth(name string) {
	in.recursionDepth[name]--
	in.callChainDepth--
}
