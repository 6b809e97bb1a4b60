// Package checksum implements an incremental, streaming, algorithm-tagged
// checksum engine. No full-file-at-once entry point is exposed: drivers
// must feed the exact same byte stream they transmit.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"

	"github.com/pkg/errors"
)

// Algo identifies a supported checksum algorithm.
type Algo string

// Supported algorithms.
const (
	MD5    Algo = "MD5"
	SHA1   Algo = "SHA-1"
	SHA256 Algo = "SHA-256"
	SHA512 Algo = "SHA-512"
)

func (a Algo) newHash() (hash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, errors.Errorf("unsupported checksum algorithm: %q", a)
	}
}

// State is the opaque running state of an in-progress checksum. It accepts
// byte chunks via Update and finalizes once, via Finalize.
type State struct {
	algo     Algo
	hash     hash.Hash
	final    bool
	finalHex string
}

// New creates a fresh checksum state for algo.
func New(algo Algo) (*State, error) {
	h, err := algo.newHash()
	if err != nil {
		return nil, err
	}
	return &State{algo: algo, hash: h}, nil
}

// Algo returns the algorithm this state was created for.
func (s *State) Algo() Algo { return s.algo }

// Update feeds bytes into the running checksum. Update after Finalize
// panics, since Finalize is terminal.
func (s *State) Update(p []byte) {
	if s.final {
		panic("checksum: Update called after Finalize")
	}
	// hash.Hash.Write never returns an error.
	s.hash.Write(p)
}

// Write implements io.Writer so a State can be used directly as a tee
// target for the exact byte stream being transmitted.
func (s *State) Write(p []byte) (int, error) {
	s.Update(p)
	return len(p), nil
}

// Finalize computes the hex digest and marks the state terminal. Calling
// Finalize more than once returns the same value without recomputing.
func (s *State) Finalize() string {
	if !s.final {
		s.finalHex = hex.EncodeToString(s.hash.Sum(nil))
		s.final = true
	}
	return s.finalHex
}

// Finalized reports whether Finalize has been called.
func (s *State) Finalized() bool { return s.final }
