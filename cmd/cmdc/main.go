// Command cmdc parses, inlines, pre-evaluates, compiles and renders one or
// more command-language source files, printing the resulting shell pipeline
// to stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jcorbin/cmdlang/blockdata"
	"github.com/jcorbin/cmdlang/config"
	"github.com/jcorbin/cmdlang/inline"
	"github.com/jcorbin/cmdlang/internal/logio"
	"github.com/jcorbin/cmdlang/internal/panicerr"
	"github.com/jcorbin/cmdlang/parser"
	"github.com/jcorbin/cmdlang/polish"
	"github.com/jcorbin/cmdlang/preeval"
	"github.com/jcorbin/cmdlang/render"
	"github.com/jcorbin/cmdlang/store"
	"github.com/jcorbin/cmdlang/values"
)

func main() {
	var (
		trace       bool
		dump        bool
		timeout     time.Duration
		module      bool
		macros      macroFlags
		defines     stringMapFlag
		binds       stringListMapFlag
		cfgVars     stringMapFlag
		storeOut    string
		maxInterned uint
	)
	flag.BoolVar(&trace, "trace", false, "enable trace logging")
	flag.BoolVar(&dump, "dump", false, "print the input/output/tool tables after pre-evaluation")
	flag.DurationVar(&timeout, "timeout", 0, "specify a time limit")
	flag.BoolVar(&module, "module", false, "use single-output (Module) accounting instead of Default")
	flag.Var(&macros, "macro", "declare a macro's block data as name=arg1,arg2,...; repeatable")
	flag.Var(&defines, "define", "define a top-level variable or macro body as name=expr; repeatable")
	flag.Var(&binds, "bind", "bind a render-time variable as name=value; repeatable, may repeat name for multi-value")
	flag.Var(&cfgVars, "config", "set a configuration fallback variable as name=value; repeatable")
	flag.StringVar(&storeOut, "store", "", "path to write a persistent command store image to")
	flag.UintVar(&maxInterned, "max-interned", 0, "cap the number of distinct interned literals; 0 means unlimited")
	flag.Parse()

	log := logio.Logger{}
	log.SetOutput(os.Stderr)
	defer func() { os.Exit(log.ExitCode()) }()

	ctx := context.Background()
	if timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if trace {
		log.Printf("TRACE", "cmdc starting, %d source(s)", len(flag.Args()))
	}

	log.ErrorIf(run(ctx, runOptions{
		sources:     flag.Args(),
		mode:        outputMode(module),
		macros:      blockdata.Map(macros),
		defines:     defines,
		binds:       map[string][]string(binds),
		cfg:         config.Map(cfgVars),
		dump:        dump,
		trace:       trace,
		log:         &log,
		storeOut:    storeOut,
		maxInterned: maxInterned,
	}))
}

func outputMode(module bool) preeval.OutputMode {
	if module {
		return preeval.Module
	}
	return preeval.Default
}

type runOptions struct {
	sources     []string
	mode        preeval.OutputMode
	macros      blockdata.Map
	defines     map[string]string
	binds       map[string][]string
	cfg         config.Map
	dump        bool
	trace       bool
	log         *logio.Logger
	storeOut    string
	maxInterned uint
}

// definitions adapts a flat name->raw-expr map into inline.Definitions,
// every entry treated as a legacy plain expression to be re-parsed on first
// reference.
type definitions map[string]string

func (d definitions) Lookup(name string) (inline.Definition, bool) {
	raw, ok := d[name]
	if !ok {
		return inline.Definition{}, false
	}
	return inline.Definition{Legacy: inline.LegacyExpr, Raw: raw}, true
}

func run(ctx context.Context, opts runOptions) error {
	var vs *values.Store
	if opts.maxInterned > 0 {
		vs = values.NewStoreWithLimit(opts.maxInterned)
	} else {
		vs = values.NewStore()
	}
	cache := parser.NewCache()
	defs := definitions(opts.defines)
	cmdStore := store.New()

	renderer := &render.Renderer{Values: vs, Bindings: render.Bindings(opts.binds), Config: opts.cfg}

	var w render.Writer
	if opts.trace {
		// Mirror the rendered pipeline into the trace log alongside
		// stdout, via flushio's multi-writer combinator.
		w = render.NewTeeStreamWriter(os.Stdout, &logio.Writer{Logf: opts.log.Leveledf("TRACE")})
	} else {
		w = render.NewStreamWriter(os.Stdout)
	}

	for _, path := range opts.sources {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := processSource(vs, cache, defs, renderer, cmdStore, w, opts, path); err != nil {
			return err
		}
	}

	if opts.storeOut != "" {
		f, err := os.Create(opts.storeOut)
		if err != nil {
			return fmt.Errorf("cmdc: %w", err)
		}
		defer f.Close()
		if err := cmdStore.Save(f); err != nil {
			return fmt.Errorf("cmdc: save store: %w", err)
		}
	}

	return nil
}

// processSource runs one source file through parse/inline/pre-eval/compile/
// render. When tracing, the logger's output is temporarily wrapped so every
// log line from this source is prefixed with its path, via logio.Logger's
// Wrap/Unwrap; recovered panics from the parser or inliner additionally
// have their stack logged, via internal/panicerr's recovered-panic
// accessors, to aid debugging failures that aren't ordinary domain errors.
func processSource(
	vs *values.Store, cache *parser.Cache, defs definitions,
	renderer *render.Renderer, cmdStore *store.Store, w render.Writer,
	opts runOptions, path string,
) error {
	if opts.trace {
		opts.log.Wrap(func(wc io.WriteCloser) io.WriteCloser {
			return &sourcePrefixWriter{prefix: path + ": ", under: wc}
		})
		defer opts.log.Unwrap()
	}

	src, err := parser.ReadSourceFile(path)
	if err != nil {
		return fmt.Errorf("cmdc: %w", err)
	}

	script, err := cache.Parse(vs, opts.macros, path, src)
	if err != nil {
		logPanicStack(opts, err)
		return fmt.Errorf("cmdc: parse %s: %w", path, err)
	}

	inl := &inline.Inliner{
		Values:        vs,
		Cat:           opts.macros,
		Cache:         cache,
		InlineVisible: defs,
		AllVisible:    defs,
	}
	inlined, err := inl.Inline(script)
	if err != nil {
		logPanicStack(opts, err)
		return fmt.Errorf("cmdc: inline %s: %w", path, err)
	}

	shower := preeval.NewShower(preeval.ShowerAll)
	pe := &preeval.PreEvaluator{Values: vs, Mode: opts.mode, Shower: shower}
	pe.Run(inlined)
	if shower.Count() > 0 {
		for _, e := range shower.Errors {
			opts.log.ErrorIf(fmt.Errorf("cmdc: %s: %w", path, e))
		}
	}
	if opts.dump {
		dumpTables(opts.log, path, pe)
	}
	renderer.BaseOf = baseOf(pe)

	expr := polish.Compile(vs, inlined)
	cmdStore.Add(expr)

	if err := renderer.Render(expr, w); err != nil {
		return fmt.Errorf("cmdc: render %s: %w", path, err)
	}
	return nil
}

// logPanicStack logs the stack trace of a recovered unexpected panic (as
// opposed to an ordinary domain error like RecursionTooDeepError) when
// tracing is enabled, to aid debugging parser/inliner bugs that
// panicerr.Recover caught rather than letting crash the process. A
// *parser.ParseError built from such a panic carries the stack in its own
// Stack field; an inline error that is itself the recovered panic is
// checked directly via panicerr.PanicStack.
func logPanicStack(opts runOptions, err error) {
	if !opts.trace {
		return
	}
	var pe *parser.ParseError
	if errors.As(err, &pe) && pe.Stack != "" {
		opts.log.Printf("TRACE", "recovered panic:\n%s", pe.Stack)
		return
	}
	if stack := panicerr.PanicStack(err); stack != "" {
		opts.log.Printf("TRACE", "recovered panic:\n%s", stack)
	}
}

// sourcePrefixWriter prepends a fixed prefix to every write, used to tag
// trace log lines with the source path they came from while several
// sources share one Logger.
type sourcePrefixWriter struct {
	prefix string
	under  io.Writer
}

func (w *sourcePrefixWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(w.under, w.prefix); err != nil {
		return 0, err
	}
	return w.under.Write(p)
}

func (w *sourcePrefixWriter) Close() error { return nil }

// baseOf flattens a PreEvaluator's classified tables into the name-to-Base
// index that render.Renderer.BaseOf expects, letting a caller that resolves
// glob expansion or similar out-of-band supply those values via
// render.Renderer.Spans keyed by the same Base index.
func baseOf(pe *preeval.PreEvaluator) map[string]int {
	out := make(map[string]int)
	for _, t := range []preeval.Table{pe.Inputs, pe.Outputs, pe.Tools} {
		for _, e := range t.Entries {
			out[e.Name] = e.Base
		}
	}
	return out
}

func dumpTables(log *logio.Logger, path string, pe *preeval.PreEvaluator) {
	dumpTable(log, path, "input", pe.Inputs)
	dumpTable(log, path, "output", pe.Outputs)
	dumpTable(log, path, "tool", pe.Tools)
}

func dumpTable(log *logio.Logger, path, kind string, t preeval.Table) {
	for _, e := range t.Entries {
		log.Printf("DUMP", "%s: %s#%d %s flags=%+v", path, kind, e.Base, e.Name, e.Flags)
	}
}

// macroFlags accumulates -macro name=arg1,arg2,... flags into a
// blockdata.Map; "..." as the final argument name marks the macro
// variadic, a leading "kw:" on an argument name marks it keyword-only,
// mirroring blockdata.MacroProps's fields.
type macroFlags blockdata.Map

func (m *macroFlags) String() string { return "" }

func (m *macroFlags) Set(s string) error {
	name, rest, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("cmdc: -macro expects name=arg1,arg2,...")
	}
	var props blockdata.MacroProps
	props.Keywords = make(map[string]struct{})
	for _, arg := range strings.Split(rest, ",") {
		switch {
		case arg == blockdata.ArraySuffix:
			// Mark the previously declared argument as variadic by
			// appending the suffix to its name, matching how
			// MacroProps.Variadic reads it.
			if n := len(props.ArgNames); n > 0 {
				props.ArgNames[n-1] += blockdata.ArraySuffix
			}
		case strings.HasPrefix(arg, "kw:"):
			kw := strings.TrimPrefix(arg, "kw:")
			props.Keywords[kw] = struct{}{}
			props.ArgNames = append(props.ArgNames, kw)
		default:
			props.ArgNames = append(props.ArgNames, arg)
		}
	}
	if *m == nil {
		*m = make(macroFlags)
	}
	(*m)[name] = &props
	return nil
}

// stringMapFlag accumulates -flag name=value flags into a map.
type stringMapFlag map[string]string

func (f *stringMapFlag) String() string { return "" }

func (f *stringMapFlag) Set(s string) error {
	name, val, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("cmdc: expected name=value")
	}
	if *f == nil {
		*f = make(stringMapFlag)
	}
	(*f)[name] = val
	return nil
}

// stringListMapFlag accumulates -flag name=value flags into a
// map-to-slice, appending on repeated names so one variable can be bound to
// several values.
type stringListMapFlag map[string][]string

func (f *stringListMapFlag) String() string { return "" }

func (f *stringListMapFlag) Set(s string) error {
	name, val, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("cmdc: expected name=value")
	}
	if *f == nil {
		*f = make(stringListMapFlag)
	}
	(*f)[name] = append((*f)[name], val)
	return nil
}
