// Package cache stores pipeline results keyed by a fingerprint of their
// inputs. Entries live in an in-memory LRU in front of snappy-compressed
// files on disk.
package cache

import (
	"encoding/binary"
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint is a blake2b-256 digest identifying a set of inputs.
type Fingerprint [blake2b.Size256]byte

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Hasher builds a Fingerprint from named parts. Each part is length-prefixed
// so that adjacent parts cannot be shifted into one another.
type Hasher struct {
	h hash.Hash
}

// NewHasher returns an empty Hasher.
func NewHasher() *Hasher {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only fails for keys longer than 64 bytes
		panic(err)
	}
	return &Hasher{h: h}
}

func (h *Hasher) writeLen(n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	h.h.Write(buf[:])
}

// Part adds a named byte slice.
func (h *Hasher) Part(name string, data []byte) *Hasher {
	h.writeLen(len(name))
	h.h.Write([]byte(name))
	h.writeLen(len(data))
	h.h.Write(data)
	return h
}

// Text adds a named string.
func (h *Hasher) Text(name, value string) *Hasher {
	return h.Part(name, []byte(value))
}

// Strings adds a named list of strings, preserving order.
func (h *Hasher) Strings(name string, values []string) *Hasher {
	h.writeLen(len(values))
	for _, v := range values {
		h.Text(name, v)
	}
	return h
}

// Sum returns the fingerprint of everything added so far.
func (h *Hasher) Sum() Fingerprint {
	var f Fingerprint
	copy(f[:], h.h.Sum(nil))
	return f
}
