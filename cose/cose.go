// Package cose unwraps the COSE_Sign1 envelope (RFC 8152) around a CWT. The
// signature is exposed as opaque data and never verified.
package cose

import (
	_cbor "github.com/fxamacker/cbor/v2"
	"github.com/go-errors/errors"
	"github.com/minvws/greenpass-hcert/cbor"
	"github.com/minvws/greenpass-hcert/common"
)

const (
	COSE_SIGN1_LENGTH = 4

	HEADER_ALG = 1
	HEADER_KID = 4

	ALG_ES256 = -7
	ALG_PS256 = -37
)

// Sign1 holds the four elements of a COSE_Sign1 structure. Only the payload
// must have its COSE type. Protected, Unprotected and Signature stay unset
// when their element has another type, Elements keeps all four as decoded.
type Sign1 struct {
	Protected   []byte
	Unprotected cbor.Map
	Payload     []byte
	Signature   []byte

	Elements cbor.Array
}

type Header struct {
	Alg int    `cbor:"1,keyasint,omitempty"`
	KID []byte `cbor:"4,keyasint,omitempty"`
}

var headerDecMode _cbor.DecMode

func init() {
	var err error
	headerDecMode, err = _cbor.DecOptions{
		DupMapKey:         _cbor.DupMapKeyQuiet,
		IndefLength:       _cbor.IndefLengthForbidden,
		MaxNestedLevels:   16,
		ExtraReturnErrors: _cbor.ExtraDecErrorNone,
	}.DecMode()
	if err != nil {
		panic("Could not create COSE header decode mode: " + err.Error())
	}
}

// Unwrap returns the payload byte string of a, possibly tagged, COSE_Sign1 envelope
func Unwrap(v cbor.Value) ([]byte, error) {
	sign1, err := Parse(v)
	if err != nil {
		return nil, err
	}

	return sign1.Payload, nil
}

func Parse(v cbor.Value) (*Sign1, error) {
	if tag, ok := v.(cbor.Tag); ok {
		v = tag.Content
	}

	arr, err := cbor.AsArray(v, "COSE_Sign1 envelope")
	if err != nil {
		return nil, err
	}

	if len(arr) != COSE_SIGN1_LENGTH {
		return nil, common.Errorf(common.ErrUnexpectedType, "Expected COSE_Sign1 envelope to have %d elements, got %d", COSE_SIGN1_LENGTH, len(arr))
	}

	payload, err := cbor.AsBytes(arr[2], "payload")
	if err != nil {
		return nil, err
	}

	sign1 := &Sign1{
		Payload:  payload,
		Elements: arr,
	}

	if protected, ok := arr[0].(cbor.Bytes); ok {
		sign1.Protected = protected
	}

	// An empty unprotected header is sometimes encoded as null
	if unprotected, ok := arr[1].(cbor.Map); ok {
		sign1.Unprotected = unprotected
	}

	if signature, ok := arr[3].(cbor.Bytes); ok {
		sign1.Signature = signature
	}

	return sign1, nil
}

// Header decodes the protected header. When it carries no key identifier, the
// one from the unprotected header is used.
func (s *Sign1) Header() (*Header, error) {
	if len(s.Elements) == COSE_SIGN1_LENGTH && s.Protected == nil {
		return nil, common.Errorf(common.ErrUnexpectedType, "Could not decode protected header: expected a byte string, got %s", cbor.TypeName(s.Elements[0]))
	}

	header := &Header{}
	if len(s.Protected) > 0 {
		err := headerDecMode.Unmarshal(s.Protected, header)
		if err != nil {
			return nil, errors.WrapPrefix(err, "Could not CBOR unmarshal protected header", 0)
		}
	}

	if header.Alg == 0 {
		if alg, ok := s.Unprotected.Int(HEADER_ALG); ok {
			if i, isInt := alg.(cbor.Int); isInt {
				header.Alg = int(i)
			}
		}
	}

	if header.KID == nil {
		if kid, ok := s.Unprotected.Int(HEADER_KID); ok {
			if b, isBytes := kid.(cbor.Bytes); isBytes {
				header.KID = []byte(b)
			}
		}
	}

	return header, nil
}

func AlgName(alg int) string {
	switch alg {
	case ALG_ES256:
		return "ES256"
	case ALG_PS256:
		return "PS256"
	case 0:
		return "none"
	}

	return "unknown"
}
