package store_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"

	"github.com/jcorbin/cmdlang/parser"
	"github.com/jcorbin/cmdlang/polish"
	"github.com/jcorbin/cmdlang/store"
	"github.com/jcorbin/cmdlang/values"
)

func compile(t *testing.T, st *values.Store, src string) polish.Expr {
	t.Helper()
	s, err := parser.Parse(st, nil, "t", src)
	require.NoError(t, err)
	return polish.Compile(st, s)
}

func TestStore_AddDeduplicates(t *testing.T) {
	st := values.NewStore()
	e1 := compile(t, st, "echo hello")
	e2 := compile(t, st, "echo hello")

	s := store.New()
	id1 := s.Add(e1)
	id2 := s.Add(e2)
	require.Equal(t, id1, id2)
	require.Equal(t, 1, s.Len())

	e3 := compile(t, st, "echo world")
	id3 := s.Add(e3)
	require.NotEqual(t, id1, id3)
	require.Equal(t, 2, s.Len())
}

func TestStore_ElementBinding(t *testing.T) {
	st := values.NewStore()
	e := compile(t, st, "echo hi")
	s := store.New()
	id := s.Add(e)
	s.BindElement(store.ElementId(7), id)

	got, ok := s.ByElement(store.ElementId(7))
	require.True(t, ok)
	require.Equal(t, id, got)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	st := values.NewStore()
	e := compile(t, st, "cc ${input:SRC} -o ${output:OBJ}")
	s := store.New()
	id := s.Add(e)
	s.BindElement(store.ElementId(1), id)

	var buf bytes.Buffer
	require.NoError(t, s.Save(&buf))

	loaded, err := store.Load(&buf)
	require.NoError(t, err)
	require.Equal(t, s.Len(), loaded.Len())

	got, ok := loaded.Get(id)
	require.True(t, ok)
	require.Equal(t, e.Bytes(), got.Bytes())

	el, ok := loaded.ByElement(store.ElementId(1))
	require.True(t, ok)
	require.Equal(t, id, el)
}

func TestStore_FingerprintCollision(t *testing.T) {
	st := values.NewStore()
	e1 := compile(t, st, "echo hello")
	e2 := compile(t, st, "echo world")
	require.NotEqual(t, e1.Bytes(), e2.Bytes())

	// A constant hash forces every expression into the same fingerprint
	// bucket, exercising the byte-equality fallback rather than the hash.
	s := store.NewWithHash(func([]byte) uint64 { return 42 })

	id1 := s.Add(e1)
	id2 := s.Add(e2)
	require.NotEqual(t, id1, id2)
	require.Equal(t, 2, s.Len())

	got1, ok := s.Get(id1)
	require.True(t, ok)
	require.Equal(t, e1.Bytes(), got1.Bytes())

	got2, ok := s.Get(id2)
	require.True(t, ok)
	require.Equal(t, e2.Bytes(), got2.Bytes())

	// Re-adding e1 must still dedupe to id1 despite the shared fingerprint.
	require.Equal(t, id1, s.Add(e1))
	require.Equal(t, 2, s.Len())
}

func TestStore_Warm(t *testing.T) {
	st := values.NewStore()
	srcs := map[string]string{
		"a": "echo a",
		"b": "echo b",
	}
	s := store.New()
	err := s.Warm(context.Background(), srcs, func(name, src string) (polish.Expr, error) {
		return compile(t, st, src), nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
}
