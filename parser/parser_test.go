package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cmdlang/blockdata"
	"github.com/jcorbin/cmdlang/parser"
	"github.com/jcorbin/cmdlang/syntax"
	"github.com/jcorbin/cmdlang/values"
)

func TestParse_PlainCommand(t *testing.T) {
	st := values.NewStore()
	s, err := parser.Parse(st, nil, "t", "echo hello")
	require.NoError(t, err)
	require.Len(t, s.Commands, 1)
	require.Len(t, s.Commands[0].Arguments, 2)

	out := syntax.PrettyPrint(st, s)
	require.Equal(t, "echo hello", out)
}

func TestParse_Pipeline(t *testing.T) {
	st := values.NewStore()
	s, err := parser.Parse(st, nil, "t", "a | b | c")
	require.NoError(t, err)
	require.Len(t, s.Commands, 3)
}

func TestParse_VarRef(t *testing.T) {
	st := values.NewStore()
	s, err := parser.Parse(st, nil, "t", "echo $X ${Y}")
	require.NoError(t, err)
	arg1 := s.Commands[0].Arguments[1]
	require.Equal(t, syntax.KindVar, arg1.Terms[0].Kind)
	arg2 := s.Commands[0].Arguments[2]
	require.Equal(t, syntax.KindVar, arg2.Terms[0].Kind)

	name1, _ := st.VariableName(arg1.Terms[0].Var)
	name2, _ := st.VariableName(arg2.Terms[0].Var)
	require.Equal(t, "X", name1)
	require.Equal(t, "Y", name2)
}

func TestParse_Transformation(t *testing.T) {
	st := values.NewStore()
	s, err := parser.Parse(st, nil, "t", "cc ${input:SRC} -o ${output:OBJ}")
	require.NoError(t, err)

	require.Len(t, s.Commands[0].Arguments, 4)
	xfm := s.Commands[0].Arguments[1].Terms[0]
	require.Equal(t, syntax.KindXfm, xfm.Kind)
	require.Len(t, xfm.Xfm.Mods, 1)
	require.Equal(t, values.FuncInput, xfm.Xfm.Mods[0].Name)
}

func TestParse_QuotedLiteral(t *testing.T) {
	st := values.NewStore()
	s, err := parser.Parse(st, nil, "t", `echo "a b"`)
	require.NoError(t, err)
	term := s.Commands[0].Arguments[1].Terms[0]
	require.Equal(t, syntax.KindConst, term.Kind)
	str, _ := st.String(term.Const)
	require.Equal(t, "a b", str)
}

func TestParse_MacroCall(t *testing.T) {
	st := values.NewStore()
	cat := blockdata.Map{
		"M": &blockdata.MacroProps{ArgNames: []string{"a", "b"}},
	}
	s, err := parser.Parse(st, cat, "t", "$M(foo bar)")
	require.NoError(t, err)

	term := s.Commands[0].Arguments[0].Terms[0]
	require.Equal(t, syntax.KindCall, term.Kind)
	require.Len(t, term.Call.Arguments, 2)
}

func TestParse_UnknownMacro(t *testing.T) {
	st := values.NewStore()
	_, err := parser.Parse(st, blockdata.Map{}, "t", "$NOPE(x)")
	require.Error(t, err)
}

func TestParse_KeywordMacroArgs(t *testing.T) {
	st := values.NewStore()
	cat := blockdata.Map{
		"M": &blockdata.MacroProps{
			ArgNames: []string{"FLAG", "a"},
			Keywords: map[string]struct{}{"FLAG": {}},
		},
	}
	s, err := parser.Parse(st, cat, "t", "$M(FLAG value)")
	require.NoError(t, err)
	call := s.Commands[0].Arguments[0].Terms[0].Call
	require.Len(t, call.Arguments[0].Commands[0].Arguments, 1)
	require.Len(t, call.Arguments[1].Commands[0].Arguments, 0)
}

func TestCache_MemoizesBySource(t *testing.T) {
	st := values.NewStore()
	cache := parser.NewCache()
	s1, err := cache.Parse(st, nil, "t", "echo hi")
	require.NoError(t, err)
	s2, err := cache.Parse(st, nil, "t", "echo hi")
	require.NoError(t, err)
	require.True(t, syntax.Equal(s1, s2))
}
