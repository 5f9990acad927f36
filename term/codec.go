package term

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Kind tags the first byte of a term's canonical encoding.
type kind byte

const (
	kindIRI     kind = 0x01
	kindBlank   kind = 0x02
	kindLiteral kind = 0x03
)

// Encode produces the canonical, self-describing byte encoding of a term:
// one kind byte, followed by length-prefixed fields. Two terms are
// value-equal iff their canonical encodings are byte-equal, and
// Decode(Encode(t)) reproduces t exactly (the round-trip property HashKey
// and the term dictionary depend on).
//
// Layout:
//
//	IRI:     0x01 | uvarint(len(lexical)) | lexical
//	Blank:   0x02 | uvarint(len(id))       | id
//	Literal: 0x03 | tag | uvarint(len(lexical)) | lexical | [uvarint(len(aux)) | aux]
//
// where tag is 0x00 (xsd:string, no aux), 0x01 (language tag follows as
// aux) or 0x02 (datatype IRI follows as aux).
func Encode(t Term) []byte {
	switch v := t.(type) {
	case IRI:
		return encodeTagged(kindIRI, 0, string(v), "")
	case Blank:
		return encodeTagged(kindBlank, 0, string(v), "")
	case Literal:
		switch {
		case v.language != "":
			return encodeTagged(kindLiteral, 1, v.lexical, v.language)
		case v.datatype != "" && v.datatype != XSDstring:
			return encodeTagged(kindLiteral, 2, v.lexical, string(v.datatype))
		default:
			return encodeTagged(kindLiteral, 0, v.lexical, "")
		}
	default:
		panic(fmt.Sprintf("term: unencodable type %T", t))
	}
}

func encodeTagged(k kind, subtag byte, primary, aux string) []byte {
	size := 1 + uvarintLen(uint64(len(primary))) + len(primary)
	if k == kindLiteral {
		size++ // subtag byte
	}
	if aux != "" {
		size += uvarintLen(uint64(len(aux))) + len(aux)
	}
	b := make([]byte, 0, size)
	b = append(b, byte(k))
	if k == kindLiteral {
		b = append(b, subtag)
	}
	b = appendUvarintBytes(b, uint64(len(primary)))
	b = append(b, primary...)
	if aux != "" {
		b = appendUvarintBytes(b, uint64(len(aux)))
		b = append(b, aux...)
	}
	return b
}

// ErrDecode is returned by Decode when the given bytes are not a valid
// canonical term encoding. It indicates either storage corruption or a
// term-hash seed mismatch between the reader and the store that wrote it.
type ErrDecode struct{ Reason string }

func (e *ErrDecode) Error() string { return "term: decode failed: " + e.Reason }

// Decode parses the canonical encoding produced by Encode back into a Term.
func Decode(b []byte) (Term, error) {
	if len(b) == 0 {
		return nil, &ErrDecode{"empty input"}
	}
	k := kind(b[0])
	rest := b[1:]

	var subtag byte
	if k == kindLiteral {
		if len(rest) == 0 {
			return nil, &ErrDecode{"truncated literal subtag"}
		}
		subtag = rest[0]
		rest = rest[1:]
	}

	primary, rest, err := readUvarintBytes(rest)
	if err != nil {
		return nil, &ErrDecode{"primary field: " + err.Error()}
	}

	switch k {
	case kindIRI:
		return IRI(primary), nil
	case kindBlank:
		return Blank(primary), nil
	case kindLiteral:
		switch subtag {
		case 0:
			return NewTypedLiteral(string(primary), XSDstring), nil
		case 1:
			aux, _, err := readUvarintBytes(rest)
			if err != nil {
				return nil, &ErrDecode{"language tag: " + err.Error()}
			}
			return NewLangLiteral(string(primary), string(aux)), nil
		case 2:
			aux, _, err := readUvarintBytes(rest)
			if err != nil {
				return nil, &ErrDecode{"datatype: " + err.Error()}
			}
			return NewTypedLiteral(string(primary), IRI(aux)), nil
		default:
			return nil, &ErrDecode{fmt.Sprintf("unknown literal subtag %d", subtag)}
		}
	default:
		return nil, &ErrDecode{fmt.Sprintf("unknown kind tag %d", k)}
	}
}

func uvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

func appendUvarintBytes(b []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(b, tmp[:n]...)
}

func readUvarintBytes(b []byte) (field, rest []byte, err error) {
	v, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, nil, fmt.Errorf("malformed length prefix")
	}
	b = b[n:]
	if uint64(len(b)) < v {
		return nil, nil, fmt.Errorf("field length %d exceeds remaining %d bytes", v, len(b))
	}
	return b[:v], b[v:], nil
}

// Seed is the process-lifetime, 16-byte constant that parameterizes
// HashKey. It is configuration (term.hash_seed_hex), not a compiled-in
// literal: changing it after a store is bootstrapped invalidates every
// key already written to disk, since the same term would hash differently.
type Seed [16]byte

// HashKey computes the 64-bit key a term's canonical encoding maps to.
// SpookyHash-64 is the hash named by the storage engine's design; this
// implementation uses xxhash (the closest widely-used non-cryptographic
// 64-bit hash available to the module) seeded from the same 16-byte
// configuration value, which serves the identical role: a stable,
// collision-resistant-in-practice, unkeyed-by-insertion-order identifier.
func HashKey(seed Seed, encoded []byte) Key {
	return Key(xxhash.Sum64(append(seedPrefix(seed), encoded...)))
}

// seedPrefix turns the seed into a prefix mixed into every hash input,
// rather than using xxhash's single uint64 seed parameter directly, so
// that all 16 configured bytes influence the digest.
func seedPrefix(seed Seed) []byte {
	b := make([]byte, 16)
	copy(b, seed[:])
	return b
}

// ParseSeedHex decodes a 32-hex-character term.hash_seed_hex config value.
func ParseSeedHex(hexstr string) (Seed, error) {
	var s Seed
	if len(hexstr) != 32 {
		return s, fmt.Errorf("term: hash seed must be 32 hex characters, got %d", len(hexstr))
	}
	for i := 0; i < 16; i++ {
		hi, err := hexNibble(hexstr[i*2])
		if err != nil {
			return s, err
		}
		lo, err := hexNibble(hexstr[i*2+1])
		if err != nil {
			return s, err
		}
		s[i] = hi<<4 | lo
	}
	return s, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("term: invalid hex digit %q", c)
	}
}
