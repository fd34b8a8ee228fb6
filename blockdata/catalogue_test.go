package blockdata_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cmdlang/blockdata"
)

func TestMacroProps_HasKeyword(t *testing.T) {
	p := &blockdata.MacroProps{
		ArgNames: []string{"FLAG", "a"},
		Keywords: map[string]struct{}{"FLAG": {}},
	}
	require.True(t, p.HasKeyword("FLAG"))
	require.False(t, p.HasKeyword("a"))
}

func TestMacroProps_Variadic(t *testing.T) {
	p := &blockdata.MacroProps{ArgNames: []string{"a", "b" + blockdata.ArraySuffix}}
	require.True(t, p.Variadic())

	p2 := &blockdata.MacroProps{ArgNames: []string{"a", "b"}}
	require.False(t, p2.Variadic())

	p3 := &blockdata.MacroProps{}
	require.False(t, p3.Variadic())
}

func TestMacroProps_PositionalCount(t *testing.T) {
	p := &blockdata.MacroProps{
		ArgNames: []string{"FLAG", "a", "b"},
		Keywords: map[string]struct{}{"FLAG": {}},
	}
	require.Equal(t, 2, p.PositionalCount())
}

func TestMacroProps_KeyIndex(t *testing.T) {
	p := &blockdata.MacroProps{ArgNames: []string{"FLAG", "a", "b"}}
	require.Equal(t, 0, p.KeyIndex("FLAG"))
	require.Equal(t, 2, p.KeyIndex("b"))
	require.Equal(t, -1, p.KeyIndex("nope"))
}

func TestMap_Lookup(t *testing.T) {
	m := blockdata.Map{"M": &blockdata.MacroProps{ArgNames: []string{"a"}}}
	p, ok := m.Lookup("M")
	require.True(t, ok)
	require.Equal(t, []string{"a"}, p.ArgNames)

	_, ok = m.Lookup("nope")
	require.False(t, ok)
}
