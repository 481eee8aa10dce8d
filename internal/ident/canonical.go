package ident

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"golang.org/x/text/unicode/norm"
)

// domainIdentity versions the key derivation. Bump the suffix if the
// encoding ever changes so old and new keys can never collide.
const domainIdentity = "calcgraph/identity/v1"

// Type tags for the canonical encoding. Each argument is encoded as a
// one-byte tag followed by a fixed-width or length-prefixed payload, which
// makes the encoding injective: no two distinct (name, args) pairs share
// an encoding.
const (
	tagString byte = 's'
	tagInt    byte = 'i'
	tagFloat  byte = 'f'
	tagBool   byte = 'b'
)

// encodeCanonical produces the canonical byte encoding of an identity.
// Strings are NFC normalized so visually identical names compare equal
// regardless of the Unicode composition the caller happened to use.
func encodeCanonical(name string, args []Value) []byte {
	buf := make([]byte, 0, 64)
	buf = appendString(buf, name)
	for _, arg := range args {
		buf = appendValue(buf, arg)
	}
	return buf
}

func appendValue(buf []byte, v Value) []byte {
	switch val := v.(type) {
	case String:
		buf = append(buf, tagString)
		return appendString(buf, string(val))
	case Int:
		buf = append(buf, tagInt)
		return binary.BigEndian.AppendUint64(buf, uint64(val))
	case Float:
		buf = append(buf, tagFloat)
		return binary.BigEndian.AppendUint64(buf, math.Float64bits(float64(val)))
	case Bool:
		buf = append(buf, tagBool)
		if val {
			return append(buf, 1)
		}
		return append(buf, 0)
	default:
		// Value is sealed; unreachable unless a new kind forgets its case.
		panic("ident: unknown value kind")
	}
}

func appendString(buf []byte, s string) []byte {
	normalized := norm.NFC.String(s)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(normalized)))
	return append(buf, normalized...)
}

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
