package syntax_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cmdlang/syntax"
	"github.com/jcorbin/cmdlang/values"
)

func scriptOf(terms ...syntax.Term) syntax.Script {
	return syntax.Script{Commands: []syntax.Command{{Arguments: []syntax.Argument{{Terms: terms}}}}}
}

func TestPrettyPrint_AdjacentTerms(t *testing.T) {
	st := values.NewStore()
	hello, err := st.InternString("hello")
	require.NoError(t, err)
	xVar := st.InternVariable("X")

	s := scriptOf(syntax.ConstTerm(hello), syntax.VarTerm(xVar))
	out := syntax.PrettyPrint(st, s)
	require.Equal(t, "hello$X", out)
}

func TestEqual(t *testing.T) {
	st := values.NewStore()
	a, err := st.InternString("a")
	require.NoError(t, err)

	s1 := scriptOf(syntax.ConstTerm(a))
	s2 := scriptOf(syntax.ConstTerm(a))
	require.True(t, syntax.Equal(s1, s2))

	xVar := st.InternVariable("X")
	s3 := scriptOf(syntax.VarTerm(xVar))
	require.False(t, syntax.Equal(s1, s3))
}

func TestVisit(t *testing.T) {
	st := values.NewStore()
	a, err := st.InternString("a")
	require.NoError(t, err)
	xVar := st.InternVariable("X")

	s := scriptOf(syntax.ConstTerm(a), syntax.VarTerm(xVar))

	var consts []values.ConstId
	var vars []values.VarId
	syntax.Visit(visitorFuncs{
		onConst: func(id values.ConstId) { consts = append(consts, id) },
		onVar:   func(id values.VarId) { vars = append(vars, id) },
	}, s)

	require.Equal(t, []values.ConstId{a}, consts)
	require.Equal(t, []values.VarId{xVar}, vars)
}

func TestReplace(t *testing.T) {
	st := values.NewStore()
	xVar := st.InternVariable("X")
	yConst, err := st.InternString("y")
	require.NoError(t, err)

	s := scriptOf(syntax.VarTerm(xVar))
	out := syntax.Replace(s, func(t syntax.Term) (syntax.Term, bool) {
		if t.Kind == syntax.KindVar && t.Var == xVar {
			return syntax.ConstTerm(yConst), true
		}
		return t, false
	})

	require.True(t, syntax.Equal(out, scriptOf(syntax.ConstTerm(yConst))))
}

type visitorFuncs struct {
	onConst func(values.ConstId)
	onVar   func(values.VarId)
}

func (v visitorFuncs) VisitConst(id values.ConstId)   { v.onConst(id) }
func (v visitorFuncs) VisitVar(id values.VarId)       { v.onVar(id) }
func (v visitorFuncs) VisitModifier(syntax.Modifier)  {}
func (v visitorFuncs) VisitCall(*syntax.Call)         {}
