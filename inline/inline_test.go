package inline_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cmdlang/blockdata"
	"github.com/jcorbin/cmdlang/inline"
	"github.com/jcorbin/cmdlang/parser"
	"github.com/jcorbin/cmdlang/syntax"
	"github.com/jcorbin/cmdlang/values"
)

type defMap map[string]string

func (d defMap) Lookup(name string) (inline.Definition, bool) {
	raw, ok := d[name]
	if !ok {
		return inline.Definition{}, false
	}
	return inline.Definition{Legacy: inline.LegacyExpr, Raw: raw}, true
}

func TestInline_SimpleVariable(t *testing.T) {
	st := values.NewStore()
	cache := parser.NewCache()
	defs := defMap{"GREETING": "hello world"}

	s, err := parser.Parse(st, nil, "t", "echo $GREETING")
	require.NoError(t, err)

	in := &inline.Inliner{Values: st, Cat: blockdata.Map{}, Cache: cache, InlineVisible: defs, AllVisible: defs}
	out, err := in.Inline(s)
	require.NoError(t, err)

	text := syntax.PrettyPrint(st, out)
	require.Equal(t, "echo hello world", text)
}

func TestInline_UnresolvedStaysUnexpanded(t *testing.T) {
	st := values.NewStore()
	cache := parser.NewCache()
	defs := defMap{}

	s, err := parser.Parse(st, nil, "t", "echo $UNKNOWN")
	require.NoError(t, err)

	in := &inline.Inliner{Values: st, Cat: blockdata.Map{}, Cache: cache, InlineVisible: defs, AllVisible: defs}
	out, err := in.Inline(s)
	require.NoError(t, err)
	require.Equal(t, syntax.KindUnexpanded, out.Commands[0].Arguments[1].Terms[0].Kind)
}

func TestInline_MacroCall(t *testing.T) {
	st := values.NewStore()
	cache := parser.NewCache()
	cat := blockdata.Map{
		"M": &blockdata.MacroProps{ArgNames: []string{"a", "b"}},
	}
	defs := defMap{"M": "$a $b"}

	s, err := parser.Parse(st, cat, "t", "$M(foo bar)")
	require.NoError(t, err)

	in := &inline.Inliner{Values: st, Cat: cat, Cache: cache, InlineVisible: defs, AllVisible: defs}
	out, err := in.Inline(s)
	require.NoError(t, err)

	text := syntax.PrettyPrint(st, out)
	require.Equal(t, "foo bar", text)
}

func TestInline_RecursionTooDeep(t *testing.T) {
	st := values.NewStore()
	cache := parser.NewCache()
	defs := defMap{"A": "$A"}

	s, err := parser.Parse(st, nil, "t", "$A")
	require.NoError(t, err)

	in := &inline.Inliner{Values: st, Cat: blockdata.Map{}, Cache: cache, InlineVisible: defs, AllVisible: defs}
	_, err = in.Inline(s)
	require.Error(t, err)
}
