package uniuri

import (
	"crypto/rand"
	"errors"
)

// StdLen gives ~95 bits of entropy with StdChars.
const StdLen = 16

var (
	// StdChars is the alphanumeric alphabet.
	StdChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")

	// PasswordChars leaves out characters that are easily confused when a password is read
	// from a terminal: 0 O o 1 l I.
	PasswordChars = []byte("ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789-_.")
)

// ErrBadAlphabet is returned for alphabets with fewer than 2 or more than 256 characters.
var ErrBadAlphabet = errors.New("uniuri: alphabet must hold 2 to 256 characters")

// New returns a random string of StdLen standard characters.
func New() (string, error) {
	return NewLenChars(StdLen, StdChars)
}

// Password returns a random password of length characters from PasswordChars.
func Password(length int) (string, error) {
	return NewLenChars(length, PasswordChars)
}

// NewLenChars returns a random string of length characters from chars.
func NewLenChars(length int, chars []byte) (string, error) {
	n := len(chars)
	if n < 2 || n > 256 {
		return "", ErrBadAlphabet
	}

	// bytes at or above limit would make the low characters more likely
	limit := 256 - 256%n
	out := make([]byte, 0, length)
	buf := make([]byte, length+length/2+1)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err //nolint:wrapcheck
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}

			out = append(out, chars[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
