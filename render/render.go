// Package render evaluates a compiled polish expression against concrete
// variable bindings, producing the argument vectors of a shell pipeline. It
// is the dynamic counterpart to preeval's static classification: the same
// boundary and pure modifiers are evaluated here for real, against whatever
// bindings and configuration the caller supplies at render time.
package render

import (
	"fmt"
	"io"

	"github.com/jcorbin/cmdlang/config"
	"github.com/jcorbin/cmdlang/internal/flushio"
	"github.com/jcorbin/cmdlang/modeval"
	"github.com/jcorbin/cmdlang/polish"
	"github.com/jcorbin/cmdlang/values"
)

// Bindings is the render-time variable table: a plain name to multi-value
// lookup. A name absent here falls back to the configuration view.
type Bindings map[string][]string

// ValueSpans optionally overrides a classified input/output entry's values
// by its preeval.Table Base index, for callers whose build graph has
// already resolved a declared input to more than one physical file (e.g.
// glob expansion performed upstream of this package).
type ValueSpans map[int][]string

// CommandInfo is a mutable record the renderer fills in while walking a
// compiled expression, handed to Writer.EndScript alongside the variable
// bindings actually resolved during this render (spans/config fallbacks
// included, not just the caller-supplied Bindings table).
type CommandInfo struct {
	// Commands is the number of pipeline stages written.
	Commands int
	// Hidden counts modifier applications (hide/clear) that dropped a
	// value from the rendered output.
	Hidden int
}

// Writer receives a rendered pipeline one command at a time, mirroring the
// original's ICommandSequenceWriter: BeginScript/BeginCommand delimit
// structure, WriteArgument streams one shell word at a time so a caller can
// flush incrementally rather than buffering a whole rendered script.
// EndScript receives the final CommandInfo tally and the effective
// bindings this render resolved, for a caller that persists per-command
// accounting alongside the rendered text.
type Writer interface {
	BeginScript() error
	BeginCommand() error
	WriteArgument(word string) error
	EndCommand() error
	EndScript(info CommandInfo, bindings Bindings) error
}

// Renderer evaluates compiled expressions against a fixed Values store,
// Bindings table and config.View.
type Renderer struct {
	Values   *values.Store
	Bindings Bindings
	Config   config.View

	// Spans and BaseOf together let a caller override a classified
	// input/output/tool entry's rendered values by the preeval.Table Base
	// index it was assigned during classification, keyed here by variable
	// name since that is what a compiled reference carries. Both are nil
	// for callers that never classified first; Bindings/Config apply as
	// usual in that case.
	Spans  ValueSpans
	BaseOf map[string]int
}

// Render evaluates expr and streams the resulting pipeline to w.
func (r *Renderer) Render(expr polish.Expr, w Writer) error {
	ev := &evaluator{r: r, resolved: Bindings{}}
	if err := ev.run(expr); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if err := w.BeginScript(); err != nil {
		return err
	}
	// The Script call moved its operands into ev.commands: one entry per
	// pipeline stage, each the flattened argument words for that stage.
	for _, cmd := range ev.commands {
		if err := w.BeginCommand(); err != nil {
			return err
		}
		for _, arg := range cmd {
			if err := w.WriteArgument(arg); err != nil {
				return err
			}
		}
		if err := w.EndCommand(); err != nil {
			return err
		}
	}
	return w.EndScript(ev.info, ev.resolved)
}

// evaluator runs the postfix stream over a stack of term-level multi-values
// (vals); commands receives the pipeline stages when the Script call is
// reached.
// info and resolved accumulate the CommandInfo tally and the effective
// bindings handed to Writer.EndScript once the walk completes.
type evaluator struct {
	r        *Renderer
	vals     [][]string
	commands [][]string
	info     CommandInfo
	resolved Bindings
}

func (ev *evaluator) push(v []string) { ev.vals = append(ev.vals, v) }

func (ev *evaluator) pop() []string {
	n := len(ev.vals)
	v := ev.vals[n-1]
	ev.vals = ev.vals[:n-1]
	return v
}

func (ev *evaluator) popN(n int) [][]string {
	out := make([][]string, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = ev.pop()
	}
	return out
}

func (ev *evaluator) run(expr polish.Expr) error {
	for _, op := range expr {
		switch op.Kind {
		case polish.OpConst:
			s, _ := ev.r.Values.String(op.Const)
			ev.push([]string{s})
		case polish.OpVar:
			ev.push(ev.lookup(op.Var))
		case polish.OpCall:
			if err := ev.call(op.Func); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ev *evaluator) lookup(id values.VarId) []string {
	name, _ := ev.r.Values.VariableName(id)

	v := ev.lookupValue(name)
	if v != nil {
		ev.resolved[name] = v
	}
	return v
}

func (ev *evaluator) lookupValue(name string) []string {
	if ev.r.Spans != nil && ev.r.BaseOf != nil {
		if base, ok := ev.r.BaseOf[name]; ok {
			if v, ok := ev.r.Spans[base]; ok {
				return v
			}
		}
	}
	if ev.r.Bindings != nil {
		if v, ok := ev.r.Bindings[name]; ok {
			return v
		}
	}
	if ev.r.Config != nil {
		if v, ok := ev.r.Config.Lookup(name); ok {
			return []string{v}
		}
	}
	return nil
}

func (ev *evaluator) call(fn values.FuncId) error {
	kind := values.FuncKind(fn.Idx())
	arity := int(fn.Arity())

	switch kind {
	case values.FuncScript:
		stages := ev.popN(arity)
		for _, s := range stages {
			ev.commands = append(ev.commands, s)
			ev.info.Commands++
		}
		return nil
	case values.FuncCommand:
		// identity: passes its single operand (an already-flattened
		// argument vector) straight through as one pipeline stage.
		v := ev.pop()
		ev.push(v)
		return nil
	case values.FuncArguments:
		parts := ev.popN(arity)
		var out []string
		for _, p := range parts {
			out = append(out, p...)
		}
		ev.push(out)
		return nil
	case values.FuncTerms:
		parts := ev.popN(arity)
		ev.push(broadcastConcat(parts))
		return nil
	case values.FuncConcat:
		parts := ev.popN(arity)
		var out []string
		for _, p := range parts {
			out = append(out, p...)
		}
		ev.push(out)
		return nil
	}

	// Remaining kinds are modifiers: pop arity operands (body first, then
	// any modifier-supplied values, in push order) and apply.
	ops := ev.popN(arity)
	body := ops[0]

	switch kind {
	case values.FuncHide, values.FuncClear:
		// Hidden/cleared values contribute nothing to the rendered
		// command line; their role in the pre-evaluated input/output
		// tables is unaffected since that classification already
		// happened in a separate pass.
		ev.info.Hidden++
		ev.push(nil)
	case values.FuncInput, values.FuncOutput, values.FuncTool:
		ev.push(body)
	case values.FuncNoAutoSource, values.FuncNoRelative:
		ev.push(body)
	case values.FuncGlob:
		// Expansion of a glob pattern against the filesystem is a
		// build-graph concern outside this package's scope; by the time
		// an expression reaches the renderer, a glob input's Values are
		// expected to already be the resolved file list.
		ev.push(body)
	case values.FuncResolveToBinDir:
		ev.push(resolveToBinDir(ev.r.Config, body))
	case values.FuncQuote:
		ev.push(mapStrings(body, modeval.Quote))
	case values.FuncCutExt:
		ev.push(modeval.CutExtension(body))
	case values.FuncLastExt:
		ev.push(modeval.LastExtension(body))
	case values.FuncPrefix:
		ev.push(modeval.Prefix(first(ops[1]), body))
	case values.FuncSuffix:
		ev.push(modeval.Suffix(first(ops[1]), body))
	case values.FuncExtFilter:
		ev.push(modeval.ExtensionFilter(first(ops[1]), body))
	case values.FuncSetEnv:
		ev.push([]string{modeval.SetEnv(first(body), first(ops[1]))})
	case values.FuncKeyValue:
		ev.push([]string{modeval.KeyValue(first(body), first(ops[1]))})
	default:
		return fmt.Errorf("render: unhandled function kind %v", kind)
	}
	return nil
}

func first(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

func mapStrings(vs []string, f func(string) string) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = f(v)
	}
	return out
}

func resolveToBinDir(cfg config.View, vs []string) []string {
	if cfg == nil {
		return vs
	}
	bindir, ok := cfg.Lookup("BINDIR")
	if !ok {
		return vs
	}
	return modeval.Prefix(bindir+"/", vs)
}

// broadcastConcat joins parts into a single word per output position. Parts
// with at most one value broadcast their sole string (or "") across every
// position; a part with more than one value drives the output width. This
// is the renderer's model for embedding a multi-valued reference (e.g. a
// multi-file input) inside a larger concatenated argument: the common case
// of one multi-valued operand among otherwise-singleton literals.
func broadcastConcat(parts [][]string) []string {
	width := 1
	for _, p := range parts {
		if len(p) > width {
			width = len(p)
		}
	}
	out := make([]string, width)
	for i := 0; i < width; i++ {
		var b []byte
		for _, p := range parts {
			switch {
			case len(p) == 0:
			case len(p) == 1:
				b = append(b, p[0]...)
			default:
				b = append(b, p[i%len(p)]...)
			}
		}
		out[i] = string(b)
	}
	return out
}

// StreamWriter adapts an io.Writer into a Writer, writing one shell word per
// line with blank-line command separators, flushed via internal/flushio so
// callers streaming into a pipe see output incrementally rather than only
// at process exit.
type StreamWriter struct {
	fw flushio.WriteFlusher
}

// NewStreamWriter wraps w for use as a Writer, via flushio.NewWriteFlusher.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{fw: flushio.NewWriteFlusher(w)}
}

// NewTeeStreamWriter is like NewStreamWriter but additionally mirrors every
// write into each of extra, via flushio.WriteFlushers, for a caller that
// wants the rendered pipeline echoed somewhere besides its primary
// destination (e.g. into a trace log) without buffering the two
// separately.
func NewTeeStreamWriter(w io.Writer, extra ...io.Writer) *StreamWriter {
	fws := make([]flushio.WriteFlusher, 0, 1+len(extra))
	fws = append(fws, flushio.NewWriteFlusher(w))
	for _, e := range extra {
		fws = append(fws, flushio.NewWriteFlusher(e))
	}
	return &StreamWriter{fw: flushio.WriteFlushers(fws...)}
}

func (s *StreamWriter) BeginScript() error { return nil }

func (s *StreamWriter) BeginCommand() error { return nil }

func (s *StreamWriter) WriteArgument(word string) error {
	_, err := fmt.Fprintln(s.fw, word)
	return err
}

func (s *StreamWriter) EndCommand() error {
	_, err := fmt.Fprintln(s.fw)
	if err != nil {
		return err
	}
	return s.fw.Flush()
}

func (s *StreamWriter) EndScript(CommandInfo, Bindings) error { return s.fw.Flush() }
