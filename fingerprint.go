package resultshape

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Fingerprinter provides structure canonicalization and hashing with caching.
// Structures are immutable once matched, so results are cached per node. At
// most size trees are remembered.
type Fingerprinter struct {
	cache *lru.Cache[*Structure, uint64]
}

// NewFingerprinter creates a fingerprinter remembering up to size trees
// (at least one).
func NewFingerprinter(size int) *Fingerprinter {
	cache, err := lru.New[*Structure, uint64](max(size, 1))
	if err != nil {
		panic(err)
	}
	return &Fingerprinter{cache: cache}
}

// Fingerprint returns a deterministic hash of a structure tree. Trees that
// agree on labels, bindings, list flags, computations and child order hash
// the same, whatever signatures their edges carry.
func (fp *Fingerprinter) Fingerprint(s *Structure) uint64 {
	if s == nil {
		return 0
	}
	if sum, ok := fp.cache.Get(s); ok {
		return sum
	}
	sum := Fingerprint(s)
	fp.cache.Add(s, sum)
	return sum
}

// Len returns the number of remembered trees.
func (fp *Fingerprinter) Len() int {
	return fp.cache.Len()
}

// Reset clears the cache.
func (fp *Fingerprinter) Reset() {
	fp.cache.Purge()
}

// Fingerprint hashes a structure tree without caching.
func Fingerprint(s *Structure) uint64 {
	d := xxhash.New()
	w := &canonWriter{d: d}
	encodeStructure(s, w)
	return d.Sum64()
}

// canonWriter writes length-prefixed tokens so adjacent fields cannot run
// into each other.
type canonWriter struct {
	d   *xxhash.Digest
	buf []byte
}

func (w *canonWriter) token(s string) {
	w.buf = strconv.AppendInt(w.buf[:0], int64(len(s)), 10)
	w.buf = append(w.buf, ':')
	_, _ = w.d.Write(w.buf)
	_, _ = w.d.WriteString(s)
}

func (w *canonWriter) mark(b byte) {
	_, _ = w.d.Write([]byte{b})
}

func encodeStructure(s *Structure, w *canonWriter) {
	w.mark('{')
	w.token(s.Label)
	w.token(s.Binding.String())
	if s.IsList {
		w.mark('L')
	}
	for _, c := range s.computations {
		w.mark('c')
		w.token(c.String())
	}
	for _, e := range s.children {
		w.mark('e')
		encodeStructure(e.node, w)
	}
	w.mark('}')
}
