// Copyright (c) 2023 The Decred developers
// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package prng provides a deterministic ChaCha20 keystream usable as a
// math/rand/v2 source. Every random decision of the decomposition engine is
// drawn from one of these so that a round can be replayed from its seed.
package prng

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
	"strconv"

	"golang.org/x/crypto/chacha20"
)

// SeedSize is the required length of seeds for New.
const SeedSize = 32

// Source is a ChaCha20 PRNG keyed by a 32-byte seed and a run number. It
// implements math/rand/v2.Source. The source is not safe for concurrent
// access.
type Source struct {
	cipher *chacha20.Cipher
	buf    [8]byte
}

// A compile time check to ensure Source implements rand.Source.
var _ mrand.Source = (*Source)(nil)

// New creates a ChaCha20 PRNG seeded by a 32-byte key and a run number.
// Different runs of the same seed produce independent streams. This will
// panic if the length of seed is not SeedSize bytes.
func New(seed []byte, run uint32) *Source {
	if l := len(seed); l != SeedSize {
		panic("prng: bad seed length " + strconv.Itoa(l))
	}

	nonce := make([]byte, chacha20.NonceSize)
	binary.LittleEndian.PutUint32(nonce[:4], run)

	cipher, _ := chacha20.NewUnauthenticatedCipher(seed, nonce)

	return &Source{cipher: cipher}
}

// Uint64 returns the next 8 bytes of keystream as a uint64.
func (s *Source) Uint64() uint64 {
	// Zero the buffer such that it is written with just the keystream.
	s.buf = [8]byte{}
	s.cipher.XORKeyStream(s.buf[:], s.buf[:])

	return binary.LittleEndian.Uint64(s.buf[:])
}

// NewRand returns a *rand.Rand drawing from a Source for the seed and run.
func NewRand(seed []byte, run uint32) *mrand.Rand {
	return mrand.New(New(seed, run))
}

// SeedFromUint64 expands a small integer seed into a full size seed. It is
// meant for tests and reproducible simulations.
func SeedFromUint64(v uint64) []byte {
	seed := make([]byte, SeedSize)
	binary.LittleEndian.PutUint64(seed, v)

	return seed
}

// RandomSeed reads a fresh seed from the operating system's CSPRNG.
func RandomSeed() ([]byte, error) {
	seed := make([]byte, SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}

	return seed, nil
}

// SeedFrom draws a full size seed from the parent generator.
func SeedFrom(parent *mrand.Rand) []byte {
	seed := make([]byte, SeedSize)
	for i := 0; i < SeedSize; i += 8 {
		binary.LittleEndian.PutUint64(seed[i:], parent.Uint64())
	}

	return seed
}

// FromRand returns a generator for the given run keyed by a seed drawn from
// the parent. Callers holding one parent can hand out independent, replayable
// streams to concurrent workers.
func FromRand(parent *mrand.Rand, run uint32) *mrand.Rand {
	return NewRand(SeedFrom(parent), run)
}
