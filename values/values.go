// Package values implements the command language's value store: interning
// of scalar literals and variable names, and the closed enumeration of
// modifier/structural function kinds together with their fixed arities.
package values

import (
	"fmt"

	"github.com/jcorbin/cmdlang/internal/mem"
)

// ConstId is a 32-bit tagged identifier for an interned scalar literal. The
// low IdxBits bits hold an index into a storage-kind-specific arena; the
// remaining high bits select which storage kind that arena is.
type ConstId uint32

const (
	// IdxBits is the width of a ConstId's index field.
	IdxBits = 24
	// StorageBits is the width of a ConstId's storage-selector field.
	StorageBits = 5
)

// StorageKind selects which arena a ConstId's index is resolved against.
// Only StorageString is populated by this implementation; the remaining
// values of the 5-bit field are reserved the way the original left room for
// additional constant-pool kinds (e.g. pre-evaluated compound values)
// without perturbing StorageString's id space.
type StorageKind uint32

// StorageString is the only storage kind interned today: a plain string
// literal taken verbatim from source text or produced by pre-evaluation.
const StorageString StorageKind = 0

// NewConstId packs a storage kind and index into a ConstId.
func NewConstId(storage StorageKind, idx uint32) ConstId {
	if idx >= 1<<IdxBits {
		panic("values: const index out of range")
	}
	if uint32(storage) >= 1<<StorageBits {
		panic("values: const storage out of range")
	}
	return ConstId(uint32(storage)<<IdxBits | idx)
}

// Storage returns the storage-kind field of id.
func (id ConstId) Storage() StorageKind { return StorageKind(uint32(id) >> IdxBits) }

// Idx returns the index field of id.
func (id ConstId) Idx() uint32 { return uint32(id) & (1<<IdxBits - 1) }

// Repr returns the raw 32-bit representation, for serialization.
func (id ConstId) Repr() uint32 { return uint32(id) }

// ConstIdFromRepr reconstructs a ConstId from a raw 32-bit representation.
func ConstIdFromRepr(repr uint32) ConstId { return ConstId(repr) }

func (id ConstId) String() string { return fmt.Sprintf("const#%d.%d", id.Storage(), id.Idx()) }

// VarId is an opaque handle assigned on first interning of a variable name.
// Equal names always yield equal ids.
type VarId uint32

func (id VarId) String() string { return fmt.Sprintf("var#%d", uint32(id)) }

// FuncId is a 32-bit handle carrying an inline arity and an index into the
// closed FuncKind enumeration. For modifier kinds the arity is fixed per
// kind; for structural kinds it is the child count of the particular call
// site (see StructFuncId).
type FuncId uint32

const (
	funcIdxBits   = 19
	funcArityBits = 10
)

// NewFuncId packs an arity and index into a FuncId.
func NewFuncId(arity uint16, idx uint32) FuncId {
	if idx >= 1<<funcIdxBits {
		panic("values: func index out of range")
	}
	if arity >= 1<<funcArityBits {
		panic("values: func arity out of range")
	}
	return FuncId(uint32(arity)<<funcIdxBits | idx)
}

// Arity returns the embedded arity of id.
func (id FuncId) Arity() uint16 { return uint16(uint32(id) >> funcIdxBits) }

// Idx returns the index field of id.
func (id FuncId) Idx() uint32 { return uint32(id) & (1<<funcIdxBits - 1) }

// Repr returns the raw 32-bit representation, for serialization.
func (id FuncId) Repr() uint32 { return uint32(id) }

// FuncIdFromRepr reconstructs a FuncId from a raw 32-bit representation.
func FuncIdFromRepr(repr uint32) FuncId { return FuncId(repr) }

// ErrCapacityExceeded is returned by InternString when a storage kind's
// 24-bit index space is exhausted.
type ErrCapacityExceeded struct{ Storage StorageKind }

func (e ErrCapacityExceeded) Error() string {
	return fmt.Sprintf("values: capacity exceeded for storage kind %d", e.Storage)
}

// Store interns string literals and variable names and resolves function
// kinds to their fixed-arity FuncId. It is append-only: every id it returns
// remains valid and stable for the lifetime of the Store.
type Store struct {
	strArena mem.Strings
	strIdx   map[string]ConstId

	varNames []string
	varIdx   map[string]VarId
}

// NewStore returns an empty, ready to use Store with no interning limit.
func NewStore() *Store {
	return &Store{
		strIdx: make(map[string]ConstId),
		varIdx: make(map[string]VarId),
	}
}

// NewStoreWithLimit returns an empty Store whose string arena rejects a new
// distinct literal once its arena address would exceed maxStrings, so at
// most maxStrings+1 distinct literals are interned (addresses 0 through
// maxStrings); maxStrings of 0 means no limit. This guards against a pathological macro expansion producing
// unbounded distinct constants: the inliner's recursion-depth counters
// bound call-chain depth, not the number of distinct literals a single
// legal-depth expansion can produce, so a caller processing untrusted or
// generated command text can use this to cap memory independently.
func NewStoreWithLimit(maxStrings uint) *Store {
	st := NewStore()
	st.strArena.Limit = maxStrings
	return st
}

// InternString interns s, returning a stable ConstId. Interning the same
// string twice returns the same id.
func (st *Store) InternString(s string) (ConstId, error) {
	if id, ok := st.strIdx[s]; ok {
		return id, nil
	}
	addr, err := st.strArena.Append(s)
	if err != nil {
		return 0, fmt.Errorf("values: %w", err)
	}
	if addr >= 1<<IdxBits {
		return 0, ErrCapacityExceeded{StorageString}
	}
	id := NewConstId(StorageString, uint32(addr))
	st.strIdx[s] = id
	return id, nil
}

// String resolves a ConstId back to its literal value. Only StorageString
// ids currently resolve to anything; any other storage kind returns "",
// false, the same way an out-of-range index does.
func (st *Store) String(id ConstId) (string, bool) {
	if id.Storage() != StorageString {
		return "", false
	}
	return st.strArena.Load(uint(id.Idx()))
}

// InternVariable interns a variable name, returning a stable VarId. Interning
// the same name twice returns the same id.
func (st *Store) InternVariable(name string) VarId {
	if id, ok := st.varIdx[name]; ok {
		return id
	}
	id := VarId(len(st.varNames))
	st.varNames = append(st.varNames, name)
	st.varIdx[name] = id
	return id
}

// LookupVariable returns the VarId already assigned to name, if any, without
// interning it.
func (st *Store) LookupVariable(name string) (VarId, bool) {
	id, ok := st.varIdx[name]
	return id, ok
}

// VariableName resolves a VarId back to the name it was interned from.
func (st *Store) VariableName(id VarId) (string, bool) {
	i := int(id)
	if i < 0 || i >= len(st.varNames) {
		return "", false
	}
	return st.varNames[i], true
}

// FuncId returns the FuncId for a function kind, a constant-time lookup over
// the closed FuncKind enumeration.
func (st *Store) FuncId(kind FuncKind) FuncId {
	return funcTable[kind]
}

// FuncKindByName resolves a modifier/structural name (as it appears in
// source, e.g. "hide" or "input") to its FuncKind, for the parser.
func FuncKindByName(name string) (FuncKind, bool) {
	k, ok := funcNameIdx[name]
	return k, ok
}

// Arity reports the arity of a FuncId, trusting the embedded field rather
// than re-deriving it, so that renderer and compiler agree even if fed a
// FuncId reconstructed from a serialized expression.
func Arity(id FuncId) uint16 { return id.Arity() }
