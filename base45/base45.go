// Package base45 implements the Base45 encoding used by EU health certificate QR codes.
package base45

import (
	"github.com/minvws/base45-go/eubase45"
	"github.com/minvws/greenpass-hcert/common"
)

const ALPHABET = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ $%*+-./:"

var decodeTable = buildDecodeTable()

func buildDecodeTable() (table [256]int8) {
	for i := range table {
		table[i] = -1
	}

	for i := 0; i < len(ALPHABET); i++ {
		table[ALPHABET[i]] = int8(i)
	}

	return table
}

// Decode decodes the whole of s, or fails with common.ErrInvalidBase45
func Decode(s string) ([]byte, error) {
	err := validate(s)
	if err != nil {
		return nil, err
	}

	decoded, err := eubase45.EUBase45Decode([]byte(s))
	if err != nil {
		return nil, common.Errorf(common.ErrInvalidBase45, "Could not base45 decode QR (%s)", err.Error())
	}

	return decoded, nil
}

// validate rejects what eubase45 would otherwise truncate into a byte: groups
// above 0xffff and trailing pairs above 0xff
func validate(s string) error {
	if len(s)%3 == 1 {
		return common.Errorf(common.ErrInvalidBase45, "Could not decode trailing group of length 1 at position %d", len(s)-1)
	}

	for i := 0; i < len(s); i += 3 {
		n := len(s) - i
		if n > 3 {
			n = 3
		}

		// Groups are little endian: c0 + 45*c1 (+ 2025*c2)
		v := 0
		for j := n - 1; j >= 0; j-- {
			c := decodeTable[s[i+j]]
			if c < 0 {
				return common.Errorf(common.ErrInvalidBase45, "Could not decode character %q at position %d", s[i+j], i+j)
			}

			v = v*45 + int(c)
		}

		if n == 3 && v > 0xffff {
			return common.Errorf(common.ErrInvalidBase45, "Group at position %d overflows two bytes", i)
		}

		if n == 2 && v > 0xff {
			return common.Errorf(common.ErrInvalidBase45, "Trailing group at position %d overflows one byte", i)
		}
	}

	return nil
}

func Encode(b []byte) string {
	return string(eubase45.EUBase45Encode(b))
}
