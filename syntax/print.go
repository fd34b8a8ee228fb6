package syntax

import (
	"strings"

	"github.com/jcorbin/cmdlang/values"
)

// Printer resolves the names PrettyPrint needs to render a Script as
// source text; values.Store satisfies it directly.
type Printer interface {
	String(values.ConstId) (string, bool)
	VariableName(values.VarId) (string, bool)
}

// PrettyPrint renders s back to source syntax. Constants are printed bare,
// with only ', ", \ and / backslash-escaped, and a macro call prints its
// bound argument slots without keyword names. Re-parsing the result
// therefore does not yield a structurally equal tree for a constant
// containing whitespace, '|' or '$', for a call with keyword arguments, or
// for any transformation: its body prints in argument syntax ("$X", or a
// bare constant), which the parser reads back as a variable named by that
// text.
func PrettyPrint(p Printer, s Script) string {
	var b strings.Builder
	printScript(&b, p, s)
	return b.String()
}

func printScript(b *strings.Builder, p Printer, s Script) {
	for i, cmd := range s.Commands {
		if i > 0 {
			b.WriteString(" | ")
		}
		printCommand(b, p, cmd)
	}
}

func printCommand(b *strings.Builder, p Printer, cmd Command) {
	for i, arg := range cmd.Arguments {
		if i > 0 {
			b.WriteByte(' ')
		}
		printArgument(b, p, arg)
	}
}

func printArgument(b *strings.Builder, p Printer, arg Argument) {
	for _, t := range arg.Terms {
		printTerm(b, p, t)
	}
}

func printTerm(b *strings.Builder, p Printer, t Term) {
	switch t.Kind {
	case KindConst:
		s, _ := p.String(t.Const)
		b.WriteString(escape(s))
	case KindVar:
		name, _ := p.VariableName(t.Var)
		b.WriteByte('$')
		b.WriteString(name)
	case KindUnexpanded:
		name, _ := p.VariableName(t.Unexpanded)
		b.WriteByte('$')
		b.WriteString(name)
	case KindXfm:
		printXfm(b, p, t.Xfm)
	case KindCall:
		printCall(b, p, t.Call)
	}
}

func printXfm(b *strings.Builder, p Printer, x *Transformation) {
	b.WriteString("${")
	for i, m := range x.Mods {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(m.Name.String())
		for j, v := range m.Values {
			if j == 0 {
				b.WriteByte('=')
			} else {
				b.WriteByte(',')
			}
			printModValue(b, p, v)
		}
	}
	b.WriteByte(':')
	printScript(b, p, x.Body)
	b.WriteByte('}')
}

func printModValue(b *strings.Builder, p Printer, v ModValue) {
	for _, leaf := range v {
		if leaf.IsVar {
			name, _ := p.VariableName(leaf.Var)
			b.WriteByte('$')
			b.WriteString(name)
		} else {
			s, _ := p.String(leaf.Const)
			b.WriteString(escape(s))
		}
	}
}

func printCall(b *strings.Builder, p Printer, c *Call) {
	name, _ := p.VariableName(c.Macro)
	b.WriteByte('$')
	b.WriteString(name)
	b.WriteByte('(')
	for i, arg := range c.Arguments {
		if i > 0 {
			b.WriteByte(' ')
		}
		printScript(b, p, arg)
	}
	b.WriteByte(')')
}

func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\'', '"', '\\', '/':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Visitor receives every literal-id, variable-id, modifier, and call found
// during a depth-first, pre-order walk of a Script.
type Visitor interface {
	VisitConst(values.ConstId)
	VisitVar(values.VarId)
	VisitModifier(Modifier)
	VisitCall(*Call)
}

// Visit walks s depth-first, pre-order, calling v for every term it finds.
func Visit(v Visitor, s Script) {
	for _, cmd := range s.Commands {
		for _, arg := range cmd.Arguments {
			for _, t := range arg.Terms {
				visitTerm(v, t)
			}
		}
	}
}

func visitTerm(v Visitor, t Term) {
	switch t.Kind {
	case KindConst:
		v.VisitConst(t.Const)
	case KindVar, KindUnexpanded:
		id := t.Var
		if t.Kind == KindUnexpanded {
			id = t.Unexpanded
		}
		v.VisitVar(id)
	case KindXfm:
		for _, m := range t.Xfm.Mods {
			v.VisitModifier(m)
			for _, val := range m.Values {
				for _, leaf := range val {
					if leaf.IsVar {
						v.VisitVar(leaf.Var)
					} else {
						v.VisitConst(leaf.Const)
					}
				}
			}
		}
		Visit(v, t.Xfm.Body)
	case KindCall:
		v.VisitCall(t.Call)
		for _, arg := range t.Call.Arguments {
			Visit(v, arg)
		}
	}
}

// ReplaceFunc decides, for one term, whether Replace substitutes it: it
// returns the replacement term and true, or false to keep the term.
type ReplaceFunc func(Term) (Term, bool)

// Replace returns a copy of s with every term for which replace returns
// (newTerm, true) substituted by newTerm. Transformation bodies and call
// arguments are recursed into. The input is never mutated.
func Replace(s Script, replace ReplaceFunc) Script {
	out := Script{Commands: make([]Command, len(s.Commands))}
	for i, cmd := range s.Commands {
		out.Commands[i] = Command{Arguments: make([]Argument, len(cmd.Arguments))}
		for j, arg := range cmd.Arguments {
			na := Argument{Terms: make([]Term, 0, len(arg.Terms))}
			for _, t := range arg.Terms {
				na.Terms = append(na.Terms, replaceTerm(t, replace))
			}
			out.Commands[i].Arguments[j] = na
		}
	}
	return out
}

func replaceTerm(t Term, replace ReplaceFunc) Term {
	if nt, ok := replace(t); ok {
		return nt
	}
	switch t.Kind {
	case KindXfm:
		nx := *t.Xfm
		nx.Body = Replace(t.Xfm.Body, replace)
		return XfmTerm(&nx)
	case KindCall:
		nc := *t.Call
		nc.Arguments = make([]Script, len(t.Call.Arguments))
		for i, a := range t.Call.Arguments {
			nc.Arguments[i] = Replace(a, replace)
		}
		return CallTerm(&nc)
	default:
		return t
	}
}

// Equal reports whether a and b are structurally identical scripts, for the
// pretty-print round-trip property.
func Equal(a, b Script) bool {
	if len(a.Commands) != len(b.Commands) {
		return false
	}
	for i := range a.Commands {
		if !equalCommand(a.Commands[i], b.Commands[i]) {
			return false
		}
	}
	return true
}

func equalCommand(a, b Command) bool {
	if len(a.Arguments) != len(b.Arguments) {
		return false
	}
	for i := range a.Arguments {
		if !equalArgument(a.Arguments[i], b.Arguments[i]) {
			return false
		}
	}
	return true
}

func equalArgument(a, b Argument) bool {
	if len(a.Terms) != len(b.Terms) {
		return false
	}
	for i := range a.Terms {
		if !equalTerm(a.Terms[i], b.Terms[i]) {
			return false
		}
	}
	return true
}

func equalTerm(a, b Term) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindConst:
		return a.Const == b.Const
	case KindVar:
		return a.Var == b.Var
	case KindUnexpanded:
		return a.Unexpanded == b.Unexpanded
	case KindXfm:
		return equalXfm(a.Xfm, b.Xfm)
	case KindCall:
		return equalCall(a.Call, b.Call)
	}
	return true
}

func equalXfm(a, b *Transformation) bool {
	if len(a.Mods) != len(b.Mods) {
		return false
	}
	for i := range a.Mods {
		if a.Mods[i].Name != b.Mods[i].Name || len(a.Mods[i].Values) != len(b.Mods[i].Values) {
			return false
		}
		for j := range a.Mods[i].Values {
			if !equalModValue(a.Mods[i].Values[j], b.Mods[i].Values[j]) {
				return false
			}
		}
	}
	return Equal(a.Body, b.Body)
}

func equalModValue(a, b ModValue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalCall(a, b *Call) bool {
	if a.Macro != b.Macro || len(a.Arguments) != len(b.Arguments) {
		return false
	}
	for i := range a.Arguments {
		if !Equal(a.Arguments[i], b.Arguments[i]) {
			return false
		}
	}
	return true
}
