// Package parser turns a command-language source string into a
// syntax.Script. It is a small hand-rolled recursive-descent
// parser: no token stream is materialized up front, since the grammar's
// only real lookahead need (deciding whether "${...}" is a bare variable
// reference or a transformation) is resolved by scanning the matching brace
// span once.
package parser

import (
	"strings"

	"github.com/jcorbin/cmdlang/blockdata"
	"github.com/jcorbin/cmdlang/internal/panicerr"
	"github.com/jcorbin/cmdlang/syntax"
	"github.com/jcorbin/cmdlang/values"
)

// Parse compiles src into a Script, querying cat for macro calling
// conventions and values for literal/name interning. Any lexical or
// grammatical error yields a non-nil error with no partial tree returned.
func Parse(values *values.Store, cat blockdata.Catalogue, name, src string) (syntax.Script, error) {
	p := &parser{
		values: values,
		cat:    cat,
		name:   name,
		src:    src,
	}

	var result syntax.Script
	err := panicerr.Recover("parse "+name, func() (rerr error) {
		defer func() {
			if r := recover(); r != nil {
				if pe, ok := r.(*ParseError); ok {
					rerr = pe
					return
				}
				panic(r)
			}
		}()
		result = p.parseScript(0)
		p.expectEOF()
		return nil
	})
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			return syntax.Script{}, pe
		}
		return syntax.Script{}, &ParseError{
			Source: src,
			Pos:    p.positionOf(p.pos),
			Reason: err.Error(),
			Stack:  panicerr.PanicStack(err),
		}
	}
	return result, nil
}

type parser struct {
	values *values.Store
	cat    blockdata.Catalogue
	name   string
	src    string
	pos    int

	// macroDepth tracks nesting inside a macro call's raw argument list;
	// while > 0, plain-text runs are kept as raw strings (not interned)
	// until CollectArgs binds them to a slot, exactly mirroring
	// TCmdParserVisitor_Polexpr::MacroCallDepth in the original.
	macroDepth int
}

func (p *parser) fail(reason string) {
	panic(&ParseError{Source: p.src, Pos: p.positionOf(p.pos), Reason: reason})
}

func (p *parser) positionOf(at int) Position {
	line, col := 1, 1
	for i := 0; i < at && i < len(p.src); i++ {
		if p.src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return Position{Name: p.name, Line: line, Col: col}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) expectEOF() {
	p.skipSpace()
	if !p.eof() {
		p.fail("unexpected trailing input")
	}
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

// --- raw (pre-bind) argument representation, used only while parsing
// inside a macro call's argument list, mirroring TSyntax::TIdOrString. ---

type rawTerm struct {
	isID bool
	id   string // set when isID; the raw, unescaped-at-bind-time text
	term syntax.Term
}

type rawArg []rawTerm
type rawCommand []rawArg

// --- top level structural parse, mirroring visitCmd/visitArg ---

// parseScript parses commands separated by "|" until a stop byte (0 means
// "until EOF") is reached at depth 0.
func (p *parser) parseScript(stop byte) syntax.Script {
	var s syntax.Script
	for {
		s.Commands = append(s.Commands, p.parseCommand(stop))
		p.skipSpace()
		if p.eof() || (stop != 0 && p.peek() == stop) {
			return s
		}
		if p.peek() != '|' {
			p.fail("expected '|' or end of script")
		}
		p.pos++ // consume '|'
	}
}

func (p *parser) parseCommand(stop byte) syntax.Command {
	var cmd syntax.Command
	p.skipSpace()
	for {
		if p.eof() || p.peek() == '|' || (stop != 0 && p.peek() == stop) {
			return cmd
		}
		cmd.Arguments = append(cmd.Arguments, p.parseArgument(stop))
		p.skipSpace()
	}
}

func (p *parser) parseArgument(stop byte) syntax.Argument {
	var arg syntax.Argument
	for {
		if p.eof() || isSpace(p.peek()) || p.peek() == '|' || (stop != 0 && p.peek() == stop) {
			return arg
		}
		arg.Terms = append(arg.Terms, p.parseTerm())
	}
}

func (p *parser) parseTerm() syntax.Term {
	switch p.peek() {
	case '$':
		return p.parseDollar()
	case '\'':
		return p.parseQuoted('\'')
	case '"':
		return p.parseQuoted('"')
	default:
		return p.parsePlainRun()
	}
}

// parsePlainRun consumes a run of plain text up to the next special byte,
// applying backslash escaping (only \' \" \\ \/ are true escapes; any other
// backslash is preserved verbatim).
func (p *parser) parsePlainRun() syntax.Term {
	s := p.scanPlainRun(0)
	id, err := p.values.InternString(s)
	if err != nil {
		p.fail(err.Error())
	}
	return syntax.ConstTerm(id)
}

func (p *parser) scanPlainRun(quote byte) string {
	var b strings.Builder
	for !p.eof() {
		c := p.peek()
		if quote == 0 {
			if isSpace(c) || c == '|' || c == '$' || c == '\'' || c == '"' {
				break
			}
		} else {
			if c == quote || c == '$' {
				break
			}
		}
		if c == '\\' {
			p.pos++
			if p.eof() {
				p.fail("incomplete escape sequence")
			}
			e := p.peek()
			if e != '\'' && e != '"' && e != '\\' && e != '/' {
				b.WriteByte('\\')
			}
			b.WriteByte(e)
			p.pos++
			continue
		}
		b.WriteByte(c)
		p.pos++
	}
	return b.String()
}

// parseQuoted parses a ' or " delimited string context. Its content may
// itself contain variable references and transformations (TermSQV/TermSQX,
// TermDQV/TermDQX in the original), so a quoted argument is really a
// sub-argument whose plain runs stop early at '$' as well as at the closing
// quote.
func (p *parser) parseQuoted(quote byte) syntax.Term {
	p.pos++ // consume opening quote
	var terms []syntax.Term
	for {
		if p.eof() {
			p.fail("unterminated quoted string")
		}
		if p.peek() == quote {
			p.pos++
			break
		}
		if p.peek() == '$' {
			terms = append(terms, p.parseDollar())
			continue
		}
		s := p.scanPlainRun(quote)
		id, err := p.values.InternString(s)
		if err != nil {
			p.fail(err.Error())
		}
		terms = append(terms, syntax.ConstTerm(id))
	}
	if len(terms) == 1 {
		return terms[0]
	}
	// A multi-term quoted literal (mixing text and variable references)
	// collapses to a single modifier-less transformation whose body is one
	// argument holding its pieces, so downstream passes see one term and
	// the polish compiler joins the pieces into one word via Terms.
	return syntax.XfmTerm(&syntax.Transformation{
		Body: syntax.Script{Commands: []syntax.Command{{Arguments: []syntax.Argument{{Terms: terms}}}}},
	})
}

// parseDollar parses "$NAME", "${NAME}", "${mods:BODY}" or "$NAME(args)".
func (p *parser) parseDollar() syntax.Term {
	p.pos++ // consume '$'
	if p.peek() == '{' {
		return p.parseBraced()
	}
	name := p.scanIdent()
	if name == "" {
		p.fail("expected variable name after '$'")
	}
	if p.peek() == '(' {
		return p.parseMacroCall(name)
	}
	if p.macroDepth > 0 {
		// Inside a raw macro argument a bare "$NAME" is still a genuine
		// variable reference, never a raw string (only plain text is
		// deferred), matching doVisitTermV in the original.
	}
	return syntax.VarTerm(p.values.InternVariable(name))
}

func (p *parser) scanIdent() string {
	start := p.pos
	for !p.eof() && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// parseBraced handles everything starting at "${": either a bare
// "${NAME}" variable reference or a "${mod1;mod2:BODY}" transformation.
// It scans the matching closing brace first (respecting nested braces so a
// modifier value like ${env=K:${V}} parses), then decides which shape it
// saw by looking for a top-level ':'.
func (p *parser) parseBraced() syntax.Term {
	p.pos++ // consume '{'
	start := p.pos
	depth := 1
	colonAt := -1
	inSingle, inDouble := false, false
	for p.pos < len(p.src) && depth > 0 {
		c := p.src[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(p.src):
			p.pos++
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case inSingle || inDouble:
			// skip: quote contents don't affect brace/colon scanning
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				continue
			}
		case c == ':' && depth == 1 && colonAt < 0:
			colonAt = p.pos
		}
		p.pos++
	}
	if depth != 0 {
		p.fail("unterminated '${'")
	}
	end := p.pos    // index of the matching '}'
	p.pos = end + 1 // consume '}'

	if colonAt < 0 {
		// "${NAME}" == "$NAME"
		name := strings.TrimSpace(p.src[start:end])
		return syntax.VarTerm(p.values.InternVariable(name))
	}

	modsSrc := p.src[start:colonAt]
	bodySrc := p.src[colonAt+1 : end]
	return p.parseTransformation(modsSrc, bodySrc)
}

func (p *parser) parseTransformation(modsSrc, bodySrc string) syntax.Term {
	x := &syntax.Transformation{}
	for _, modSrc := range strings.Split(modsSrc, ";") {
		if modSrc == "" {
			continue
		}
		x.Mods = append(x.Mods, p.parseModifier(modSrc))
	}

	body := strings.TrimSpace(bodySrc)
	if len(body) >= 2 && body[0] == '"' && body[len(body)-1] == '"' {
		sub := &parser{values: p.values, cat: p.cat, name: p.name, src: body[1 : len(body)-1]}
		inner := sub.scanPlainRun(0)
		id, err := p.values.InternString(inner)
		if err != nil {
			p.fail(err.Error())
		}
		x.Body = syntax.Script{Commands: []syntax.Command{{Arguments: []syntax.Argument{{Terms: []syntax.Term{syntax.ConstTerm(id)}}}}}}
	} else {
		x.Body = syntax.Script{Commands: []syntax.Command{{Arguments: []syntax.Argument{{Terms: []syntax.Term{syntax.VarTerm(p.values.InternVariable(body))}}}}}}
	}
	return syntax.XfmTerm(x)
}

func (p *parser) parseModifier(src string) syntax.Modifier {
	name, rest, hasValue := strings.Cut(src, "=")
	name = strings.TrimSpace(name)
	kind, ok := values.FuncKindByName(name)
	if !ok {
		p.fail("unknown modifier " + name)
	}
	m := syntax.Modifier{Name: kind}
	if hasValue {
		for _, valSrc := range strings.Split(rest, ",") {
			m.Values = append(m.Values, p.parseModValue(valSrc))
		}
	}
	return m
}

func (p *parser) parseModValue(src string) syntax.ModValue {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "${") && strings.HasSuffix(src, "}") {
		inner := src[2 : len(src)-1]
		return syntax.ModValue{syntax.VarLeaf(p.values.InternVariable(inner))}
	}
	if strings.HasPrefix(src, "$") {
		return syntax.ModValue{syntax.VarLeaf(p.values.InternVariable(src[1:]))}
	}
	id, err := p.values.InternString(unescapePlain(src))
	if err != nil {
		p.fail(err.Error())
	}
	return syntax.ModValue{syntax.ConstLeaf(id)}
}

func unescapePlain(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			i++
			e := s[i]
			if e != '\'' && e != '"' && e != '\\' && e != '/' {
				b.WriteByte('\\')
			}
			b.WriteByte(e)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// parseMacroCall parses "(args)" following an already-scanned macro name,
// binding raw arguments to the macro's formal parameters via the
// block-data catalogue.
func (p *parser) parseMacroCall(name string) syntax.Term {
	props, ok := p.cat.Lookup(name)
	if !ok {
		p.fail((&UnknownMacroError{Name: name}).Error())
	}
	p.pos++ // consume '('

	p.macroDepth++
	raw := p.parseRawCommand()
	p.macroDepth--

	if p.eof() || p.peek() != ')' {
		p.fail("expected ')' to close macro call")
	}
	p.pos++ // consume ')'

	bound := p.bindArguments(name, props, raw)
	return syntax.CallTerm(&syntax.Call{
		Macro:     p.values.InternVariable(name),
		Arguments: bound,
	})
}

// parseRawCommand parses a macro call's argument list: arguments separated
// by whitespace, up to the matching ')'. Nested macro calls and
// transformations parse fully (so their own parens/braces are balanced);
// everything else accumulates as rawTerm.
func (p *parser) parseRawCommand() rawCommand {
	var cmd rawCommand
	p.skipSpace()
	for !p.eof() && p.peek() != ')' {
		cmd = append(cmd, p.parseRawArg())
		p.skipSpace()
	}
	return cmd
}

func (p *parser) parseRawArg() rawArg {
	var arg rawArg
	for !p.eof() && !isSpace(p.peek()) && p.peek() != ')' {
		switch p.peek() {
		case '$':
			arg = append(arg, rawTerm{term: p.parseDollar()})
		case '\'':
			arg = append(arg, rawTerm{term: p.parseQuoted('\'')})
		case '"':
			arg = append(arg, rawTerm{term: p.parseQuoted('"')})
		default:
			s := p.scanRawPlainRun()
			arg = append(arg, rawTerm{isID: true, id: s})
		}
	}
	return arg
}

func (p *parser) scanRawPlainRun() string {
	var b strings.Builder
	for !p.eof() {
		c := p.peek()
		if isSpace(c) || c == ')' || c == '$' || c == '\'' || c == '"' {
			break
		}
		if c == '\\' {
			p.pos++
			if p.eof() {
				p.fail("incomplete escape sequence")
			}
			e := p.peek()
			if e != '\'' && e != '"' && e != '\\' && e != '/' {
				b.WriteByte('\\')
			}
			b.WriteByte(e)
			p.pos++
			continue
		}
		b.WriteByte(c)
		p.pos++
	}
	return b.String()
}

// bindArguments implements CollectArgs from the original cmd_parser.cpp:
// raw arguments are routed to named keyword buckets or to the next
// unfilled positional slot (overflowing into a trailing variadic slot if
// the catalogue declares one), left to right.
func (p *parser) bindArguments(macroName string, props *blockdata.MacroProps, raw rawCommand) []syntax.Script {
	slots := make([]syntax.Script, len(props.ArgNames))
	for i := range slots {
		slots[i] = syntax.Script{Commands: []syntax.Command{{}}}
	}

	kwCount := len(props.Keywords)
	posCount := props.PositionalCount()
	hasVarArg := props.Variadic()

	namedSlot := -1
	rawPos := 0
	for _, a := range raw {
		if len(a) == 1 && a[0].isID {
			if props.HasKeyword(a[0].id) {
				namedSlot = props.KeyIndex(a[0].id)
				continue
			}
		}

		boundArg := p.bindRawArg(a)

		if namedSlot >= 0 {
			appendArg(&slots[namedSlot], boundArg)
			continue
		}

		if rawPos < posCount {
			appendArg(&slots[kwCount+rawPos], boundArg)
		} else if hasVarArg {
			appendArg(&slots[kwCount+posCount-1], boundArg)
		} else {
			p.fail((&TooManyArgumentsError{Macro: macroName, Expected: posCount}).Error())
		}
		rawPos++
	}

	return slots
}

func appendArg(s *syntax.Script, arg syntax.Argument) {
	cmd := &s.Commands[len(s.Commands)-1]
	cmd.Arguments = append(cmd.Arguments, arg)
}

// bindRawArg converts a rawArg's deferred raw-string terms into interned
// constant terms now that it's known not to be a keyword.
func (p *parser) bindRawArg(a rawArg) syntax.Argument {
	arg := syntax.Argument{Terms: make([]syntax.Term, 0, len(a))}
	for _, t := range a {
		if t.isID {
			id, err := p.values.InternString(t.id)
			if err != nil {
				p.fail(err.Error())
			}
			arg.Terms = append(arg.Terms, syntax.ConstTerm(id))
		} else {
			arg.Terms = append(arg.Terms, t.term)
		}
	}
	return arg
}
