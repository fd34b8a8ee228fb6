package values_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cmdlang/values"
)

func TestStore_InternString(t *testing.T) {
	st := values.NewStore()

	id1, err := st.InternString("hello")
	require.NoError(t, err)
	id2, err := st.InternString("hello")
	require.NoError(t, err)
	require.Equal(t, id1, id2, "interning the same string twice must return the same id")

	id3, err := st.InternString("world")
	require.NoError(t, err)
	require.NotEqual(t, id1, id3)

	s, ok := st.String(id1)
	require.True(t, ok)
	require.Equal(t, "hello", s)
}

func TestStore_InternString_LimitExceeded(t *testing.T) {
	// A Limit of 1 permits arena addresses 0 and 1 (two distinct
	// literals); a third distinct literal lands at address 2 and fails.
	st := values.NewStoreWithLimit(1)

	_, err := st.InternString("a")
	require.NoError(t, err)
	_, err = st.InternString("b")
	require.NoError(t, err)

	_, err = st.InternString("c")
	require.Error(t, err, "a third distinct literal must exceed the configured limit")

	// Re-interning an already-seen string must still succeed: it never
	// touches the arena, so it isn't subject to the limit.
	_, err = st.InternString("a")
	require.NoError(t, err)
}

func TestStore_InternVariable(t *testing.T) {
	st := values.NewStore()

	id1 := st.InternVariable("X")
	id2 := st.InternVariable("X")
	require.Equal(t, id1, id2)

	name, ok := st.VariableName(id1)
	require.True(t, ok)
	require.Equal(t, "X", name)

	_, ok = st.LookupVariable("Y")
	require.False(t, ok, "Y was never interned")

	id3 := st.InternVariable("Y")
	y, ok := st.LookupVariable("Y")
	require.True(t, ok)
	require.Equal(t, id3, y)
}

func TestFuncId_Arity(t *testing.T) {
	st := values.NewStore()

	id := st.FuncId(values.FuncPrefix)
	require.Equal(t, uint16(2), id.Arity())

	kind, ok := values.FuncKindByName("prefix")
	require.True(t, ok)
	require.Equal(t, values.FuncPrefix, kind)
}

func TestStructFuncId(t *testing.T) {
	id := values.StructFuncId(values.FuncArguments, 3)
	require.Equal(t, uint16(3), id.Arity())
	require.Equal(t, uint32(values.FuncArguments), id.Idx())

	require.Panics(t, func() {
		values.StructFuncId(values.FuncPrefix, 2)
	}, "StructFuncId must reject non-structural kinds")
}

func TestConstId_Repr_RoundTrip(t *testing.T) {
	id := values.NewConstId(values.StorageString, 42)
	require.Equal(t, id, values.ConstIdFromRepr(id.Repr()))
	require.Equal(t, values.StorageString, id.Storage())
	require.Equal(t, uint32(42), id.Idx())
}
