// Package polish compiles an inlined syntax tree into a postfix ("polish")
// expression: a flat, content-addressable stream of operations that the
// render package evaluates against concrete variable bindings.
//
// The compiled shape follows the tree structurally: a script of N commands
// compiles to Script(N) wrapping N Command(1) units; a command of M
// arguments compiles to Arguments(M); an argument of K terms compiles to
// Terms(K) if K>1, collapsing to the bare term when K==1 (the
// single-term/single-body collapse, so `${VAR}` compiles identically to
// `$VAR`). Multi-value modifier operands compile through Cat the same way.
package polish

import (
	"encoding/binary"

	"github.com/jcorbin/cmdlang/syntax"
	"github.com/jcorbin/cmdlang/values"
)

// OpKind discriminates the three shapes a postfix Op can take: push a
// constant, push a variable reference, or call a function (consuming its
// arity worth of operands already on the stack).
type OpKind uint8

const (
	OpConst OpKind = iota
	OpVar
	OpCall
)

// Op is one postfix stream element.
type Op struct {
	Kind  OpKind
	Const values.ConstId
	Var   values.VarId
	Func  values.FuncId
}

// Expr is a compiled postfix expression: evaluating it left to right against
// a value stack reproduces the original tree's structure and semantics.
type Expr []Op

// Compile compiles an inlined script into its postfix form. s is assumed to
// already have every resolvable reference expanded; any remaining
// KindUnexpanded terms compile to OpVar, to be resolved at render time
// against the renderer's bindings.
func Compile(store *values.Store, s syntax.Script) Expr {
	c := &compiler{store: store}
	c.script(s)
	return c.out
}

type compiler struct {
	store *values.Store
	out   Expr
}

func (c *compiler) emit(op Op) { c.out = append(c.out, op) }

func (c *compiler) script(s syntax.Script) {
	for _, cmd := range s.Commands {
		c.command(cmd)
		c.emit(Op{Kind: OpCall, Func: values.StructFuncId(values.FuncCommand, 1)})
	}
	c.emit(Op{Kind: OpCall, Func: values.StructFuncId(values.FuncScript, len(s.Commands))})
}

func (c *compiler) command(cmd syntax.Command) {
	for _, arg := range cmd.Arguments {
		c.argument(arg)
	}
	c.emit(Op{Kind: OpCall, Func: values.StructFuncId(values.FuncArguments, len(cmd.Arguments))})
}

// argument compiles one argument's terms, collapsing a lone term to itself
// rather than wrapping it in a width-1 Terms call.
func (c *compiler) argument(arg syntax.Argument) {
	for _, t := range arg.Terms {
		c.term(t)
	}
	if len(arg.Terms) != 1 {
		c.emit(Op{Kind: OpCall, Func: values.StructFuncId(values.FuncTerms, len(arg.Terms))})
	}
}

func (c *compiler) term(t syntax.Term) {
	switch t.Kind {
	case syntax.KindConst:
		c.emit(Op{Kind: OpConst, Const: t.Const})
	case syntax.KindVar:
		c.emit(Op{Kind: OpVar, Var: t.Var})
	case syntax.KindUnexpanded:
		c.emit(Op{Kind: OpVar, Var: t.Unexpanded})
	case syntax.KindXfm:
		c.transformation(t.Xfm)
	case syntax.KindCall:
		// An inlined tree should contain no remaining Call terms (every
		// resolvable macro invocation was expanded, and an unresolvable one
		// becomes KindUnexpanded instead); compile it as its arguments
		// concatenated, the closest representable fallback, so a partially
		// inlined tree still produces a well-formed expression.
		for _, arg := range t.Call.Arguments {
			c.script(arg)
		}
		if n := len(t.Call.Arguments); n != 1 {
			c.emit(Op{Kind: OpCall, Func: values.StructFuncId(values.FuncConcat, n)})
		}
	}
}

// transformation compiles `${mod1;mod2:BODY}`: BODY's value, then each
// modifier in chain order, each consuming the running value plus its own
// operands and producing the value the next modifier (or the caller) sees.
// BODY's value is its arguments compiled as terms, joined by Cat when there
// is more than one, so a single-term, single-argument body collapses to its
// sole operand.
func (c *compiler) transformation(x *syntax.Transformation) {
	n := 0
	for _, cmd := range x.Body.Commands {
		for _, arg := range cmd.Arguments {
			c.argument(arg)
			n++
		}
	}
	if n != 1 {
		c.emit(Op{Kind: OpCall, Func: values.StructFuncId(values.FuncConcat, n)})
	}
	for _, m := range x.Mods {
		for _, v := range m.Values {
			c.modValue(v)
		}
		c.emit(Op{Kind: OpCall, Func: c.store.FuncId(m.Name)})
	}
}

// modValue compiles one comma-separated modifier operand, collapsing a
// single leaf the same way a single-term argument does.
func (c *compiler) modValue(v syntax.ModValue) {
	for _, leaf := range v {
		if leaf.IsVar {
			c.emit(Op{Kind: OpVar, Var: leaf.Var})
		} else {
			c.emit(Op{Kind: OpConst, Const: leaf.Const})
		}
	}
	if len(v) != 1 {
		c.emit(Op{Kind: OpCall, Func: values.StructFuncId(values.FuncConcat, len(v))})
	}
}

// wordsPerOp is the fixed-width encoding of one Op: a tag word identifying
// OpKind, followed by the relevant 32-bit id (Const/Var/Func.Repr(), zero
// for the fields an op doesn't use).
const wordsPerOp = 2

// Bytes serializes e as a flat stream of tagged 4-byte little-endian words,
// two words per Op, suitable for hashing into a command store fingerprint
// or writing to a persistent image.
func (e Expr) Bytes() []byte {
	buf := make([]byte, len(e)*wordsPerOp*4)
	for i, op := range e {
		off := i * wordsPerOp * 4
		binary.LittleEndian.PutUint32(buf[off:], uint32(op.Kind))
		var id uint32
		switch op.Kind {
		case OpConst:
			id = uint32(op.Const)
		case OpVar:
			id = uint32(op.Var)
		case OpCall:
			id = op.Func.Repr()
		}
		binary.LittleEndian.PutUint32(buf[off+4:], id)
	}
	return buf
}

// FromBytes deserializes a byte stream produced by Bytes back into an Expr.
func FromBytes(buf []byte) Expr {
	n := len(buf) / (wordsPerOp * 4)
	out := make(Expr, n)
	for i := range out {
		off := i * wordsPerOp * 4
		kind := OpKind(binary.LittleEndian.Uint32(buf[off:]))
		id := binary.LittleEndian.Uint32(buf[off+4:])
		op := Op{Kind: kind}
		switch kind {
		case OpConst:
			op.Const = values.ConstId(id)
		case OpVar:
			op.Var = values.VarId(id)
		case OpCall:
			op.Func = values.FuncIdFromRepr(id)
		}
		out[i] = op
	}
	return out
}
