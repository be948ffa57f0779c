// Package random draws seeds for the reproducible generators of a session.
package random

import (
	crand "crypto/rand"
	"encoding/binary"

	"github.com/m-mizutani/goerr/v2"
)

// NewSeed returns a seed read from crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, goerr.Wrap(err, "failed to read random seed")
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
