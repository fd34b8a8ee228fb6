// Package syntax defines the intermediate representation shared by the
// parser, inliner, pre-evaluator and polish compiler: scripts, commands,
// arguments, terms, transformations and macro calls.
package syntax

import "github.com/jcorbin/cmdlang/values"

// Script is an ordered sequence of commands (pipeline stages separated by
// "|" in source).
type Script struct {
	Commands []Command
}

// Command is an ordered sequence of arguments: one pipeline stage.
type Command struct {
	Arguments []Argument
}

// Argument is an ordered sequence of terms that concatenate to form one
// word of a command line.
type Argument struct {
	Terms []Term
}

// Term is one of literal-id, variable-id, Transformation, Call, or an
// Unexpanded placeholder; exactly one of the pointer/value fields is set.
// A tagged-union struct (rather than an interface) is used so that passes
// can switch on Kind without a type assertion per node, matching the
// "tagged sum type with an exhaustive visitor" design note.
type Term struct {
	Kind Kind

	Const values.ConstId
	Var   values.VarId
	Xfm   *Transformation
	Call  *Call
	// Unexpanded names a variable or macro reference that must survive
	// inlining verbatim (e.g. because it denotes an input bound only at
	// render time).
	Unexpanded values.VarId
}

// Kind discriminates the variant held by a Term.
type Kind int

const (
	KindConst Kind = iota
	KindVar
	KindXfm
	KindCall
	KindUnexpanded
)

// ConstTerm builds a literal-id term.
func ConstTerm(id values.ConstId) Term { return Term{Kind: KindConst, Const: id} }

// VarTerm builds a variable-id term.
func VarTerm(id values.VarId) Term { return Term{Kind: KindVar, Var: id} }

// XfmTerm builds a transformation term.
func XfmTerm(x *Transformation) Term { return Term{Kind: KindXfm, Xfm: x} }

// CallTerm builds a macro-call term.
func CallTerm(c *Call) Term { return Term{Kind: KindCall, Call: c} }

// UnexpandedTerm builds a placeholder term for a reference that survived
// inlining unresolved.
func UnexpandedTerm(id values.VarId) Term { return Term{Kind: KindUnexpanded, Unexpanded: id} }

// Transformation is `${mod1;mod2:BODY}`: an ordered list of modifiers
// applied to a body that is itself a small script (almost always a single
// command with a single argument with a single term, but the grammar
// allows the general case).
type Transformation struct {
	Mods []Modifier
	Body Script
}

// Modifier is one `name` or `name=value[,value]...` piece of a
// transformation's modifier chain.
type Modifier struct {
	Name   values.FuncKind
	Values []ModValue
}

// ModValue is one comma-separated value of a modifier argument; its leaves
// are literal-ids or variable-ids (never nested transformations or calls,
// per the grammar).
type ModValue []ModLeaf

// ModLeaf is a single leaf of a ModValue: either a constant or a variable.
type ModLeaf struct {
	IsVar bool
	Const values.ConstId
	Var   values.VarId
}

// ConstLeaf builds a constant ModLeaf.
func ConstLeaf(id values.ConstId) ModLeaf { return ModLeaf{Const: id} }

// VarLeaf builds a variable ModLeaf.
func VarLeaf(id values.VarId) ModLeaf { return ModLeaf{IsVar: true, Var: id} }

// Call is a macro call: a function identifier (the macro's interned name)
// together with a positional vector of sub-scripts, one per declared
// argument of the macro, bound according to the block-data catalogue.
type Call struct {
	Macro     values.VarId
	Arguments []Script
}
