package modeval_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cmdlang/modeval"
)

func TestQuote(t *testing.T) {
	require.Equal(t, `"a b"`, modeval.Quote("a b"))
}

func TestPrefixSuffix(t *testing.T) {
	require.Equal(t, []string{"-Ifoo", "-Ibar"}, modeval.Prefix("-I", []string{"foo", "bar"}))
	require.Equal(t, []string{"foo.o", "bar.o"}, modeval.Suffix(".o", []string{"foo", "bar"}))
}

func TestCutExtension(t *testing.T) {
	require.Equal(t, []string{"foo", "bar"}, modeval.CutExtension([]string{"foo.c", "bar.cpp"}))
}

func TestLastExtension(t *testing.T) {
	require.Equal(t, []string{".c", ".cpp"}, modeval.LastExtension([]string{"foo.c", "bar.cpp"}))
}

func TestExtensionFilter(t *testing.T) {
	got := modeval.ExtensionFilter(".c", []string{"foo.c", "bar.cpp", "baz.c"})
	require.Equal(t, []string{"foo.c", "baz.c"}, got)

	got2 := modeval.ExtensionFilter("c", []string{"foo.c", "bar.cpp"})
	require.Equal(t, []string{"foo.c"}, got2)
}

func TestSetEnvKeyValue(t *testing.T) {
	require.Equal(t, "FOO=bar", modeval.SetEnv("FOO", "bar"))
	require.Equal(t, "foo=bar", modeval.KeyValue("foo", "bar"))
}
