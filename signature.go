package resultshape

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Signature is an ordered path of atomic morphism ids. A negative id walks a
// morphism against its direction (the dual). Signatures key the edges of a
// Structure and order its children.
type Signature struct {
	ids []int
}

const emptySignatureString = "EMPTY"

// EmptySignature returns the signature of the empty path.
func EmptySignature() Signature {
	return Signature{}
}

// NewSignature builds a signature from atomic ids. Zero ids are rejected.
func NewSignature(ids ...int) (Signature, error) {
	for _, id := range ids {
		if id == 0 {
			return Signature{}, fmt.Errorf("signature base cannot be 0")
		}
	}
	return Signature{ids: slices.Clone(ids)}, nil
}

// BaseSignature returns the atomic signature for id. It panics on 0.
func BaseSignature(id int) Signature {
	if id == 0 {
		panic("signature base cannot be 0")
	}
	return Signature{ids: []int{id}}
}

// IsEmpty reports whether the signature is the empty path.
func (s Signature) IsEmpty() bool {
	return len(s.ids) == 0
}

// IsBase reports whether the signature consists of exactly one atomic id.
func (s Signature) IsBase() bool {
	return len(s.ids) == 1
}

// Len returns the number of atomic segments.
func (s Signature) Len() int {
	return len(s.ids)
}

// IDs returns a copy of the atomic ids.
func (s Signature) IDs() []int {
	return slices.Clone(s.ids)
}

// Bases splits the signature into its atomic segments, in path order.
func (s Signature) Bases() []Signature {
	out := make([]Signature, len(s.ids))
	for i, id := range s.ids {
		out[i] = Signature{ids: []int{id}}
	}
	return out
}

// Concat appends the given signatures after s.
func (s Signature) Concat(others ...Signature) Signature {
	return ConcatSignatures(append([]Signature{s}, others...)...)
}

// ConcatSignatures joins signatures in order.
func ConcatSignatures(sigs ...Signature) Signature {
	n := 0
	for _, sig := range sigs {
		n += len(sig.ids)
	}
	if n == 0 {
		return Signature{}
	}
	ids := make([]int, 0, n)
	for _, sig := range sigs {
		ids = append(ids, sig.ids...)
	}
	return Signature{ids: ids}
}

// Dual returns the reversed path with every segment flipped.
func (s Signature) Dual() Signature {
	if s.IsEmpty() {
		return s
	}
	ids := make([]int, len(s.ids))
	for i, id := range s.ids {
		ids[len(ids)-1-i] = -id
	}
	return Signature{ids: ids}
}

// Compare orders signatures lexicographically by id; a proper prefix sorts first.
func (s Signature) Compare(other Signature) int {
	return slices.Compare(s.ids, other.ids)
}

// Equal reports whether both signatures denote the same path.
func (s Signature) Equal(other Signature) bool {
	return slices.Equal(s.ids, other.ids)
}

func (s Signature) String() string {
	if s.IsEmpty() {
		return emptySignatureString
	}
	parts := make([]string, len(s.ids))
	for i, id := range s.ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ".")
}

// ParseSignature parses the String form ("1.-2.3" or "EMPTY").
func ParseSignature(str string) (Signature, error) {
	str = strings.TrimSpace(str)
	if str == "" || str == emptySignatureString {
		return Signature{}, nil
	}
	parts := strings.Split(str, ".")
	ids := make([]int, len(parts))
	for i, part := range parts {
		id, err := strconv.Atoi(part)
		if err != nil {
			return Signature{}, fmt.Errorf("invalid signature %q: %w", str, err)
		}
		if id == 0 {
			return Signature{}, fmt.Errorf("invalid signature %q: base cannot be 0", str)
		}
		ids[i] = id
	}
	return Signature{ids: ids}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Signature) UnmarshalText(text []byte) error {
	parsed, err := ParseSignature(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SignatureGenerator hands out fresh base signatures. Safe for concurrent use.
type SignatureGenerator struct {
	mu   sync.Mutex
	last int
}

// NewSignatureGenerator creates a generator whose first signature is 1.
func NewSignatureGenerator() *SignatureGenerator {
	return &SignatureGenerator{}
}

// Next returns a base signature not returned before by this generator.
func (g *SignatureGenerator) Next() Signature {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last++
	return BaseSignature(g.last)
}
