// Command gen_modifiers verifies that values/funckind.go's fixedArity table
// agrees with the `// mods:name(n)` / `// struct:name(n)` arity comments
// documenting each FuncKind constant, failing if a kind's declared arity
// comment and its fixedArity entry disagree. Run via `go generate` from
// within the values package.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"log"
	"os"
	"regexp"
	"strconv"

	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"
)

var arityComment = regexp.MustCompile(`^(?:mods|struct):(\w+)\((\d+|n)\)$`)

type kindArity struct {
	name string
	// arity is the comment-declared arity; meaningless when variadic.
	arity int
	// variadic is true for struct:name(n) comments, whose arity is a
	// per-call-site property rather than a fixed one.
	variadic bool
}

func main() {
	flag.Parse()
	files := flag.Args()
	if len(files) == 0 {
		files = []string{"funckind.go"}
	}

	ctx := context.Background()
	g, _ := errgroup.WithContext(ctx)

	comments := make([][]kindArity, len(files))
	fixed := make([]map[string]int, len(files))
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			ks, fx, err := scanFile(f)
			if err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			comments[i] = ks
			fixed[i] = fx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}

	var mismatches int
	for i, f := range files {
		for _, k := range comments[i] {
			if k.variadic {
				continue
			}
			got, ok := fixed[i][k.name]
			if !ok {
				fmt.Fprintf(os.Stderr, "%s: %s: no fixedArity entry for a non-variadic arity comment\n", f, k.name)
				mismatches++
				continue
			}
			if got != k.arity {
				fmt.Fprintf(os.Stderr, "%s: %s: comment says arity %d, fixedArity says %d\n", f, k.name, k.arity, got)
				mismatches++
			}
		}
	}
	if mismatches > 0 {
		log.Fatalf("gen_modifiers: %d mismatch(es) between arity comments and fixedArity", mismatches)
	}
}

// scanFile walks a FuncKind const block, pairing each constant's trailing
// line comment against arityComment, and separately reads the fixedArity
// composite literal's per-key entries for comparison.
func scanFile(path string) ([]kindArity, map[string]int, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, nil, err
	}

	var out []kindArity
	fixed := make(map[string]int)

	ast.Inspect(f, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.ValueSpec:
			if n.Comment == nil {
				return true
			}
			for _, name := range n.Names {
				for _, c := range n.Comment.List {
					text := c.Text[2:] // strip "// "
					if len(text) > 0 && text[0] == ' ' {
						text = text[1:]
					}
					m := arityComment.FindStringSubmatch(text)
					if m == nil {
						continue
					}
					if m[2] == "n" {
						out = append(out, kindArity{name: name.Name, variadic: true})
						continue
					}
					arity, err := strconv.Atoi(m[2])
					if err != nil {
						continue
					}
					out = append(out, kindArity{name: name.Name, arity: arity})
				}
			}
		case *ast.CompositeLit:
			parseFixedArity(n, fixed)
		}
		return true
	})
	return out, fixed, nil
}

// parseFixedArity recognizes `FuncHide: 1,`-style keyed elements of the
// fixedArity array literal and records each key's integer value.
func parseFixedArity(lit *ast.CompositeLit, fixed map[string]int) {
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		key, ok := kv.Key.(*ast.Ident)
		if !ok {
			continue
		}
		val, ok := kv.Value.(*ast.BasicLit)
		if !ok || val.Kind != token.INT {
			continue
		}
		n, err := strconv.Atoi(val.Value)
		if err != nil {
			continue
		}
		fixed[key.Name] = n
	}
}
