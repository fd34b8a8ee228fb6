// Package store implements the content-addressed command store:
// deduplicated compiled expressions keyed by a 64-bit fingerprint of their
// byte encoding, plus a reverse index from build-graph element id to
// compiled command, and a persistent image format for both.
package store

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"

	"github.com/jcorbin/cmdlang/polish"
)

// CmdId is a stable, dense handle to one compiled expression held by a
// Store.
type CmdId uint32

// Fingerprint is a 64-bit content hash of a compiled expression's byte
// encoding (polish.Expr.Bytes), used to deduplicate structurally identical
// commands compiled from different call sites. Two distinct byte streams
// may share a Fingerprint; Store resolves that by keeping every byte
// stream seen under a given fingerprint and falling back to a byte
// comparison, rather than trusting the hash alone.
type Fingerprint uint64

// HashFunc computes a Fingerprint from a compiled expression's byte
// encoding. New uses xxhash.Sum64; NewWithHash lets a caller substitute a
// different function, e.g. a constant one that forces fingerprint
// collisions for testing the byte-equality fallback below.
type HashFunc func([]byte) uint64

// ElementId identifies a build-graph node a compiled command is attached to;
// it is opaque to this package, supplied by the caller.
type ElementId uint64

// fpEntry is one byte stream known to hash to a given Fingerprint.
type fpEntry struct {
	bytes []byte
	id    CmdId
}

// Store deduplicates compiled expressions by fingerprint, falling back to a
// byte-equality check within a fingerprint's bucket so that a hash
// collision never silently merges two distinct expressions. It also
// indexes expressions by the graph element they were compiled for. All
// methods are safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	hash HashFunc

	exprs         []polish.Expr
	byFingerprint map[Fingerprint][]fpEntry
	byElement     map[ElementId]CmdId
}

// New returns an empty, ready to use Store, fingerprinting with xxhash.Sum64.
func New() *Store {
	return NewWithHash(xxhash.Sum64)
}

// NewWithHash returns an empty Store using hash instead of the default
// xxhash fingerprint function.
func NewWithHash(hash HashFunc) *Store {
	return &Store{
		hash:          hash,
		byFingerprint: make(map[Fingerprint][]fpEntry),
		byElement:     make(map[ElementId]CmdId),
	}
}

func (s *Store) fingerprint(b []byte) Fingerprint {
	return Fingerprint(s.hash(b))
}

// Add interns e, returning the existing CmdId if an expression with
// identical bytes was already added, or a freshly minted one otherwise. A
// shared Fingerprint between e and some other previously-added expression
// is not by itself enough to dedupe: only a byte-equal match does.
func (s *Store) Add(e polish.Expr) CmdId {
	b := e.Bytes()
	fp := s.fingerprint(b)

	s.mu.RLock()
	if id, ok := lookupFpBucket(s.byFingerprint[fp], b); ok {
		s.mu.RUnlock()
		return id
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := lookupFpBucket(s.byFingerprint[fp], b); ok {
		return id
	}
	id := CmdId(len(s.exprs))
	s.exprs = append(s.exprs, e)
	s.byFingerprint[fp] = append(s.byFingerprint[fp], fpEntry{bytes: b, id: id})
	return id
}

func lookupFpBucket(bucket []fpEntry, b []byte) (CmdId, bool) {
	for _, c := range bucket {
		if bytes.Equal(c.bytes, b) {
			return c.id, true
		}
	}
	return 0, false
}

// Get returns the compiled expression for id.
func (s *Store) Get(id CmdId) (polish.Expr, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(s.exprs) {
		return nil, false
	}
	return s.exprs[id], true
}

// BindElement records that elem's compiled command is id, overwriting any
// prior binding.
func (s *Store) BindElement(elem ElementId, id CmdId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byElement[elem] = id
}

// ByElement returns the CmdId bound to elem, if any.
func (s *Store) ByElement(elem ElementId) (CmdId, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byElement[elem]
	return id, ok
}

// Len reports the number of distinct compiled expressions held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.exprs)
}

// CompileFunc compiles one source string (keyed by name, for error
// reporting) into a polish expression, the shape of the full
// parse→inline→preeval→compile pipeline assembled by callers.
type CompileFunc func(name, src string) (polish.Expr, error)

// Warm compiles every (name, src) pair concurrently via compile, adding each
// successfully compiled expression to the store. It returns the first error
// encountered, cancelling the remaining work via ctx, built on
// golang.org/x/sync/errgroup.
func (s *Store) Warm(ctx context.Context, srcs map[string]string, compile CompileFunc) error {
	g, gctx := errgroup.WithContext(ctx)
	for name, src := range srcs {
		name, src := name, src
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			e, err := compile(name, src)
			if err != nil {
				return fmt.Errorf("store: warm %q: %w", name, err)
			}
			s.Add(e)
			return nil
		})
	}
	return g.Wait()
}

// imageMagic and imageVersion identify the persistent image format's header
// with a 64-bit image version.
const (
	imageMagic   uint64 = 0x636d646c616e6731 // "cmdlang1"
	imageVersion uint64 = 1
)

// Save writes a persistent image of s to w: a header, every compiled
// expression in id order length-prefixed, a fingerprint to id table sorted
// by fingerprint, and an element to id table sorted by element id, all
// little-endian with lengths as unsigned 32-bit words.
func (s *Store) Save(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bw := bufio.NewWriter(w)

	if err := writeUint64(bw, imageMagic); err != nil {
		return err
	}
	if err := writeUint64(bw, imageVersion); err != nil {
		return err
	}
	if err := writeUint32(bw, uint32(len(s.exprs))); err != nil {
		return err
	}
	for _, e := range s.exprs {
		b := e.Bytes()
		if err := writeUint32(bw, uint32(len(b))); err != nil {
			return err
		}
		if _, err := bw.Write(b); err != nil {
			return err
		}
	}

	type fpRecord struct {
		fp Fingerprint
		id CmdId
	}
	var fprecs []fpRecord
	for fp, bucket := range s.byFingerprint {
		for _, e := range bucket {
			fprecs = append(fprecs, fpRecord{fp, e.id})
		}
	}
	sort.Slice(fprecs, func(i, j int) bool {
		if fprecs[i].fp != fprecs[j].fp {
			return fprecs[i].fp < fprecs[j].fp
		}
		return fprecs[i].id < fprecs[j].id
	})
	if err := writeUint32(bw, uint32(len(fprecs))); err != nil {
		return err
	}
	for _, r := range fprecs {
		if err := writeUint64(bw, uint64(r.fp)); err != nil {
			return err
		}
		if err := writeUint32(bw, uint32(r.id)); err != nil {
			return err
		}
	}

	elems := make([]ElementId, 0, len(s.byElement))
	for e := range s.byElement {
		elems = append(elems, e)
	}
	sort.Slice(elems, func(i, j int) bool { return elems[i] < elems[j] })
	if err := writeUint32(bw, uint32(len(elems))); err != nil {
		return err
	}
	for _, e := range elems {
		if err := writeUint64(bw, uint64(e)); err != nil {
			return err
		}
		if err := writeUint32(bw, uint32(s.byElement[e])); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load reads an image written by Save from r and returns a new Store holding
// it, fingerprinting with xxhash.Sum64.
func Load(r io.Reader) (*Store, error) {
	br := bufio.NewReader(r)

	magic, err := readUint64(br)
	if err != nil {
		return nil, fmt.Errorf("store: load: %w", err)
	}
	if magic != imageMagic {
		return nil, fmt.Errorf("store: load: bad magic %#x", magic)
	}
	ver, err := readUint64(br)
	if err != nil {
		return nil, fmt.Errorf("store: load: %w", err)
	}
	if ver != imageVersion {
		return nil, fmt.Errorf("store: load: unsupported image version %d", ver)
	}

	s := New()

	n, err := readUint32(br)
	if err != nil {
		return nil, fmt.Errorf("store: load: %w", err)
	}
	s.exprs = make([]polish.Expr, n)
	for i := range s.exprs {
		l, err := readUint32(br)
		if err != nil {
			return nil, fmt.Errorf("store: load: expr %d: %w", i, err)
		}
		buf := make([]byte, l)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("store: load: expr %d: %w", i, err)
		}
		s.exprs[i] = polish.FromBytes(buf)
	}

	nfp, err := readUint32(br)
	if err != nil {
		return nil, fmt.Errorf("store: load: %w", err)
	}
	for i := uint32(0); i < nfp; i++ {
		fp, err := readUint64(br)
		if err != nil {
			return nil, fmt.Errorf("store: load: fingerprint %d: %w", i, err)
		}
		id, err := readUint32(br)
		if err != nil {
			return nil, fmt.Errorf("store: load: fingerprint %d: %w", i, err)
		}
		cid := CmdId(id)
		var b []byte
		if int(cid) < len(s.exprs) {
			b = s.exprs[cid].Bytes()
		}
		fpv := Fingerprint(fp)
		s.byFingerprint[fpv] = append(s.byFingerprint[fpv], fpEntry{bytes: b, id: cid})
	}

	nel, err := readUint32(br)
	if err != nil {
		return nil, fmt.Errorf("store: load: %w", err)
	}
	for i := uint32(0); i < nel; i++ {
		el, err := readUint64(br)
		if err != nil {
			return nil, fmt.Errorf("store: load: element %d: %w", i, err)
		}
		id, err := readUint32(br)
		if err != nil {
			return nil, fmt.Errorf("store: load: element %d: %w", i, err)
		}
		s.byElement[ElementId(el)] = CmdId(id)
	}

	return s, nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}
