package values

//go:generate go run ../scripts/gen_modifiers.go funckind.go

// FuncKind is the closed enumeration of modifier/structural operations a
// compiled expression can call. Each kind has a fixed arity and a
// classification (pure, boundary, or structural) used by the pre-evaluator
// and renderer to decide what a call does besides producing a value.
//
// Arity documents the call's operand count as `mods:name(n)`, read by
// scripts/gen_modifiers.go to check it against fixedArity; keep the comment
// format if you add a kind.
type FuncKind int

const (
	// Boundary modifiers: declare a role for the surrounding term and, for
	// Input/Output/Tool, contribute a name to the corresponding table.

	FuncHide   FuncKind = iota // mods:hide(1)
	FuncClear                  // mods:clear(1)
	FuncInput                  // mods:input(1)
	FuncOutput                 // mods:output(1)
	FuncTool                   // mods:tool(1)

	// Pure string-transform modifiers.

	FuncPrefix    // mods:prefix(2)
	FuncSuffix    // mods:suffix(2)
	FuncQuote     // mods:quote(1)
	FuncCutExt    // mods:cutext(1)
	FuncLastExt   // mods:lastext(1)
	FuncExtFilter // mods:extfilter(2)
	FuncSetEnv    // mods:setenv(2)
	FuncKeyValue  // mods:keyvalue(2)

	// Boundary flag modifiers: co-present with Input/Output to set flags.

	FuncNoAutoSource    // mods:noautosource(1)
	FuncNoRelative      // mods:norelative(1)
	FuncResolveToBinDir // mods:resolvetobindir(1)
	FuncGlob            // mods:glob(1)

	// Structural operations shaping the expression tree; arity is
	// variadic and encoded per call site (see values.FuncId for structural
	// kinds, which carries the call's actual child count rather than a
	// fixed one).

	FuncScript    // struct:script(n)
	FuncCommand   // struct:command(n)
	FuncArguments // struct:arguments(n)
	FuncTerms     // struct:terms(n)
	FuncConcat    // struct:concat(n)

	numFuncKinds
)

// FuncClass classifies a FuncKind's effect on the surrounding expression.
type FuncClass int

const (
	// ClassPure functions depend only on their arguments.
	ClassPure FuncClass = iota
	// ClassBoundary functions affect the surrounding argument/term
	// boundary (e.g. declaring an input, or hiding a value).
	ClassBoundary
	// ClassStructural functions shape the expression tree itself.
	ClassStructural
)

// fixedArity gives the arity for every FuncKind except the structural ones,
// whose arity varies per call site and is therefore carried directly in the
// FuncId minted for that call (see StructFuncId).
var fixedArity = [numFuncKinds]uint16{
	FuncHide:   1,
	FuncClear:  1,
	FuncInput:  1,
	FuncOutput: 1,
	FuncTool:   1,

	FuncPrefix:    2,
	FuncSuffix:    2,
	FuncQuote:     1,
	FuncCutExt:    1,
	FuncLastExt:   1,
	FuncExtFilter: 2,
	FuncSetEnv:    2,
	FuncKeyValue:  2,

	FuncNoAutoSource:    1,
	FuncNoRelative:      1,
	FuncResolveToBinDir: 1,
	FuncGlob:            1,
}

var funcClass = [numFuncKinds]FuncClass{
	FuncHide:   ClassBoundary,
	FuncClear:  ClassBoundary,
	FuncInput:  ClassBoundary,
	FuncOutput: ClassBoundary,
	FuncTool:   ClassBoundary,

	FuncPrefix:    ClassPure,
	FuncSuffix:    ClassPure,
	FuncQuote:     ClassPure,
	FuncCutExt:    ClassPure,
	FuncLastExt:   ClassPure,
	FuncExtFilter: ClassPure,
	FuncSetEnv:    ClassPure,
	FuncKeyValue:  ClassPure,

	FuncNoAutoSource:    ClassBoundary,
	FuncNoRelative:      ClassBoundary,
	FuncResolveToBinDir: ClassBoundary,
	FuncGlob:            ClassBoundary,

	FuncScript:    ClassStructural,
	FuncCommand:   ClassStructural,
	FuncArguments: ClassStructural,
	FuncTerms:     ClassStructural,
	FuncConcat:    ClassStructural,
}

// Class reports how a FuncKind affects its surroundings.
func (k FuncKind) Class() FuncClass { return funcClass[k] }

// modifierNames gives the source-level spelling of every non-structural
// FuncKind, taken verbatim from the original grammar's modifier names.
var modifierNames = [numFuncKinds]string{
	FuncHide:   "hide",
	FuncClear:  "clear",
	FuncInput:  "input",
	FuncOutput: "output",
	FuncTool:   "tool",

	FuncPrefix:    "prefix",
	FuncSuffix:    "suffix",
	FuncQuote:     "quote",
	FuncCutExt:    "noext",
	FuncLastExt:   "lastext",
	FuncExtFilter: "ext",
	FuncSetEnv:    "env",
	FuncKeyValue:  "kv",

	FuncNoAutoSource:    "noauto",
	FuncNoRelative:      "norel",
	FuncResolveToBinDir: "tobindir",
	FuncGlob:            "glob",
}

var funcNameIdx map[string]FuncKind

var funcTable [numFuncKinds]FuncId

func init() {
	funcNameIdx = make(map[string]FuncKind, len(modifierNames))
	for k, name := range modifierNames {
		if name == "" {
			continue
		}
		funcNameIdx[name] = FuncKind(k)
	}
	for k := FuncKind(0); k < numFuncKinds; k++ {
		funcTable[k] = NewFuncId(fixedArity[k], uint32(k))
	}
}

// StructFuncId mints the FuncId for a structural call with the given arity
// (the number of children actually present at this call site), since
// structural arity is a property of the call, not of the FuncKind.
func StructFuncId(kind FuncKind, arity int) FuncId {
	if funcClass[kind] != ClassStructural {
		panic("values: StructFuncId called on non-structural kind")
	}
	return NewFuncId(uint16(arity), uint32(kind))
}

func (k FuncKind) String() string {
	if int(k) >= 0 && int(k) < len(modifierNames) && modifierNames[k] != "" {
		return modifierNames[k]
	}
	switch k {
	case FuncScript:
		return "Script"
	case FuncCommand:
		return "Command"
	case FuncArguments:
		return "Args"
	case FuncTerms:
		return "Terms"
	case FuncConcat:
		return "Cat"
	default:
		return "?"
	}
}
