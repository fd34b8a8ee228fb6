package polish_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cmdlang/parser"
	"github.com/jcorbin/cmdlang/polish"
	"github.com/jcorbin/cmdlang/values"
)

func TestCompile_BytesRoundTrip(t *testing.T) {
	st := values.NewStore()
	s, err := parser.Parse(st, nil, "t", "echo hello $X")
	require.NoError(t, err)

	expr := polish.Compile(st, s)
	require.NotEmpty(t, expr)

	b := expr.Bytes()
	back := polish.FromBytes(b)
	require.Equal(t, expr, back)
}

func TestCompile_Deterministic(t *testing.T) {
	st := values.NewStore()
	s, err := parser.Parse(st, nil, "t", "cc ${input:SRC} -o ${output:OBJ}")
	require.NoError(t, err)

	e1 := polish.Compile(st, s)
	e2 := polish.Compile(st, s)
	require.Equal(t, e1.Bytes(), e2.Bytes())
}

func TestCompile_EndsWithScriptOp(t *testing.T) {
	st := values.NewStore()
	s, err := parser.Parse(st, nil, "t", "a | b")
	require.NoError(t, err)

	expr := polish.Compile(st, s)
	last := expr[len(expr)-1]
	require.Equal(t, polish.OpCall, last.Kind)
	require.Equal(t, values.FuncScript, values.FuncKind(last.Func.Idx()))
	require.Equal(t, uint16(2), last.Func.Arity())
}
