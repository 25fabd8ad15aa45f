package core

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"math"
	"strconv"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Fingerprinter accumulates labels and values into a SHA-256 digest.
// It is used to tag reports with the exact inputs they were computed from.
type Fingerprinter struct {
	h hash.Hash
}

// NewFingerprinter starts an empty digest
func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{h: sha256.New()}
}

// Label adds a length-prefixed string
func (f *Fingerprinter) Label(s string) *Fingerprinter {
	f.h.Write([]byte(strconv.Itoa(len(s))))
	f.h.Write([]byte{':'})
	f.h.Write([]byte(s))
	return f
}

// Value adds the exact bit pattern of v
func (f *Fingerprinter) Value(v float64) *Fingerprinter {
	f.h.Write([]byte(strconv.FormatUint(math.Float64bits(v), 16)))
	f.h.Write([]byte{';'})
	return f
}

// Sum returns the digest
func (f *Fingerprinter) Sum() Hash {
	return Hash(hex.EncodeToString(f.h.Sum(nil)))
}
