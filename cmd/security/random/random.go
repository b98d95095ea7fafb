// Package random is the secure byte source used for token ids, password salts and link keys.
package random

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrShortRead is returned when a source cannot fill the requested buffer.
var ErrShortRead = errors.New("random: short read")

// Source yields cryptographically secure bytes. Tests swap in deterministic readers.
type Source interface {
	Read(p []byte) (int, error)
}

// Reader is the process-wide crypto/rand source.
var Reader Source = rand.Reader

// OrDefault returns src, or Reader when src is nil.
func OrDefault(src Source) Source {
	if src == nil {
		return Reader
	}
	return src
}

// Bytes returns n bytes read from src.
func Bytes(src Source, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("random: invalid length %d", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(OrDefault(src), b); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrShortRead
		}
		return nil, fmt.Errorf("random: %w", err)
	}
	return b, nil
}

// Hex returns a hex string of 2*nBytes characters.
func Hex(src Source, nBytes int) (string, error) {
	b, err := Bytes(src, nBytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
