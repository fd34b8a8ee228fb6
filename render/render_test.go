package render_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cmdlang/config"
	"github.com/jcorbin/cmdlang/parser"
	"github.com/jcorbin/cmdlang/polish"
	"github.com/jcorbin/cmdlang/render"
	"github.com/jcorbin/cmdlang/values"
)

type recordWriter struct {
	commands [][]string
	cur      []string

	info     render.CommandInfo
	bindings render.Bindings
}

func (w *recordWriter) BeginScript() error { return nil }
func (w *recordWriter) BeginCommand() error {
	w.cur = nil
	return nil
}
func (w *recordWriter) WriteArgument(word string) error {
	w.cur = append(w.cur, word)
	return nil
}
func (w *recordWriter) EndCommand() error {
	w.commands = append(w.commands, w.cur)
	return nil
}
func (w *recordWriter) EndScript(info render.CommandInfo, bindings render.Bindings) error {
	w.info = info
	w.bindings = bindings
	return nil
}

func compile(t *testing.T, st *values.Store, src string) polish.Expr {
	t.Helper()
	s, err := parser.Parse(st, nil, "t", src)
	require.NoError(t, err)
	return polish.Compile(st, s)
}

func TestRenderer_SubstitutesBindings(t *testing.T) {
	st := values.NewStore()
	expr := compile(t, st, "echo $X")

	r := &render.Renderer{Values: st, Bindings: render.Bindings{"X": {"hello"}}}
	var w recordWriter
	require.NoError(t, r.Render(expr, &w))
	require.Equal(t, [][]string{{"echo", "hello"}}, w.commands)
}

func TestRenderer_FallsBackToConfig(t *testing.T) {
	st := values.NewStore()
	expr := compile(t, st, "echo $X")

	r := &render.Renderer{Values: st, Config: config.Map{"X": "fromcfg"}}
	var w recordWriter
	require.NoError(t, r.Render(expr, &w))
	require.Equal(t, [][]string{{"echo", "fromcfg"}}, w.commands)
}

func TestRenderer_HideDropsValue(t *testing.T) {
	st := values.NewStore()
	expr := compile(t, st, "echo ${hide:X}")

	r := &render.Renderer{Values: st, Bindings: render.Bindings{"X": {"secret"}}}
	var w recordWriter
	require.NoError(t, r.Render(expr, &w))
	require.Equal(t, [][]string{{"echo"}}, w.commands)
}

func TestRenderer_Quote(t *testing.T) {
	st := values.NewStore()
	expr := compile(t, st, "echo ${quote:X}")

	r := &render.Renderer{Values: st, Bindings: render.Bindings{"X": {"a b"}}}
	var w recordWriter
	require.NoError(t, r.Render(expr, &w))
	require.Equal(t, [][]string{{"echo", `"a b"`}}, w.commands)
}

func TestRenderer_ResolveToBinDir(t *testing.T) {
	st := values.NewStore()
	expr := compile(t, st, "${tobindir:TOOL}")

	r := &render.Renderer{
		Values:   st,
		Bindings: render.Bindings{"TOOL": {"cc"}},
		Config:   config.Map{"BINDIR": "/usr/bin"},
	}
	var w recordWriter
	require.NoError(t, r.Render(expr, &w))
	require.Equal(t, [][]string{{"/usr/bin/cc"}}, w.commands)
}

func TestRenderer_Pipeline(t *testing.T) {
	st := values.NewStore()
	expr := compile(t, st, "a | b")

	r := &render.Renderer{Values: st}
	var w recordWriter
	require.NoError(t, r.Render(expr, &w))
	require.Equal(t, [][]string{{"a"}, {"b"}}, w.commands)
}

func TestRenderer_SpansOverrideBindings(t *testing.T) {
	st := values.NewStore()
	expr := compile(t, st, "echo $SRC")

	r := &render.Renderer{
		Values:   st,
		Bindings: render.Bindings{"SRC": {"fallback.c"}},
		BaseOf:   map[string]int{"SRC": 0},
		Spans:    render.ValueSpans{0: {"a.c", "b.c"}},
	}
	var w recordWriter
	require.NoError(t, r.Render(expr, &w))
	require.Equal(t, [][]string{{"echo", "a.c", "b.c"}}, w.commands)
}

func TestRenderer_EndScriptInfoAndBindings(t *testing.T) {
	st := values.NewStore()
	expr := compile(t, st, "echo $X ${hide:Y} | tail")

	r := &render.Renderer{Values: st, Bindings: render.Bindings{"X": {"hello"}, "Y": {"secret"}}}
	var w recordWriter
	require.NoError(t, r.Render(expr, &w))

	require.Equal(t, 2, w.info.Commands)
	require.Equal(t, 1, w.info.Hidden)
	require.Equal(t, render.Bindings{"X": {"hello"}, "Y": {"secret"}}, w.bindings)
}

func TestStreamWriter(t *testing.T) {
	st := values.NewStore()
	expr := compile(t, st, "echo hi")

	r := &render.Renderer{Values: st}
	var buf strings.Builder
	sw := render.NewStreamWriter(&buf)
	require.NoError(t, r.Render(expr, sw))
	require.Equal(t, "echo\nhi\n\n", buf.String())
}

func TestTeeStreamWriter(t *testing.T) {
	st := values.NewStore()
	expr := compile(t, st, "echo hi")

	r := &render.Renderer{Values: st}
	var primary, mirror strings.Builder
	sw := render.NewTeeStreamWriter(&primary, &mirror)
	require.NoError(t, r.Render(expr, sw))
	require.Equal(t, "echo\nhi\n\n", primary.String())
	require.Equal(t, primary.String(), mirror.String())
}
