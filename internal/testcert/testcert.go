// Package testcert builds unsigned health certificates for tests. Signatures
// are filled with placeholder bytes, as nothing in this module verifies them.
package testcert

import (
	"bytes"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-errors/errors"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"github.com/minvws/greenpass-hcert/base45"
)

const (
	COSE_SIGN1_TAG = 18
	ALG_ES256      = -7

	CLAIM_ISSUER          = 1
	CLAIM_EXPIRATION_TIME = 4
	CLAIM_ISSUED_AT       = 6
	CLAIM_HCERT           = -260
)

type header struct {
	Alg int    `cbor:"1,keyasint,omitempty"`
	KID []byte `cbor:"4,keyasint,omitempty"`
}

type signedCWT struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected map[int]interface{}
	Payload     []byte
	Signature   []byte
}

// Certificate describes a certificate to serialize. Nil timestamps and an
// empty issuer are left out of the claims.
type Certificate struct {
	KeyIdentifier []byte

	Issuer         string
	IssuedAt       interface{}
	ExpirationTime interface{}

	// DCC is stored under schema version 1 of the HCERT claim
	DCC interface{}
}

func (c *Certificate) Claims() map[int]interface{} {
	claims := map[int]interface{}{}
	if c.Issuer != "" {
		claims[CLAIM_ISSUER] = c.Issuer
	}

	if c.IssuedAt != nil {
		claims[CLAIM_ISSUED_AT] = c.IssuedAt
	}

	if c.ExpirationTime != nil {
		claims[CLAIM_EXPIRATION_TIME] = c.ExpirationTime
	}

	if c.DCC != nil {
		claims[CLAIM_HCERT] = map[int]interface{}{1: c.DCC}
	}

	return claims
}

// CWT serializes the certificate as a tagged COSE_Sign1 structure
func (c *Certificate) CWT() ([]byte, error) {
	payloadCbor, err := cbor.Marshal(c.Claims())
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not CBOR marshal CWT payload", 0)
	}

	return Envelope(c.KeyIdentifier, payloadCbor)
}

// Base45 returns the certificate as it appears after the HC1: prefix
func (c *Certificate) Base45() (string, error) {
	cwt, err := c.CWT()
	if err != nil {
		return "", err
	}

	compressed, err := Compress(cwt)
	if err != nil {
		return "", err
	}

	return base45.Encode(compressed), nil
}

func (c *Certificate) QREncoded() ([]byte, error) {
	proofEUBase45, err := c.Base45()
	if err != nil {
		return nil, err
	}

	return append([]byte("HC1:"), proofEUBase45...), nil
}

// Envelope wraps a payload in a tagged COSE_Sign1 structure with a fake
// ES256 signature
func Envelope(kid []byte, payloadCbor []byte) ([]byte, error) {
	headerCbor, err := cbor.Marshal(&header{Alg: ALG_ES256, KID: kid})
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not CBOR marshal CWT header", 0)
	}

	signedCWTCbor, err := cbor.Marshal(cbor.Tag{
		Number: COSE_SIGN1_TAG,
		Content: &signedCWT{
			Protected:   headerCbor,
			Unprotected: map[int]interface{}{},
			Payload:     payloadCbor,
			Signature:   bytes.Repeat([]byte{0x5a}, 64),
		},
	})
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not CBOR serialize signed CWT", 0)
	}

	return signedCWTCbor, nil
}

// Compress zlib compresses data the way issuers do
func Compress(data []byte) ([]byte, error) {
	var compressed bytes.Buffer
	zw, err := zlib.NewWriterLevel(&compressed, flate.BestCompression)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not create zlib writer", 0)
	}

	_, err = zw.Write(data)
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not write to zlib writer", 0)
	}

	err = zw.Close()
	if err != nil {
		return nil, errors.WrapPrefix(err, "Could not close zlib writer", 0)
	}

	return compressed.Bytes(), nil
}

// Vaccination is a complete single dose vaccination certificate
func Vaccination() *Certificate {
	return &Certificate{
		KeyIdentifier:  []byte{217, 25, 55, 95, 193, 231, 182, 178},
		Issuer:         "AT",
		IssuedAt:       int64(1625270337),
		ExpirationTime: int64(1656806337),
		DCC: map[string]interface{}{
			"ver": "1.0.0",
			"dob": "1998-02-26",
			"nam": map[string]interface{}{
				"fn":  "Musterfrau-Gößinger",
				"gn":  "Gabriele",
				"fnt": "MUSTERFRAU<GOESSINGER",
				"gnt": "GABRIELE",
			},
			"v": []interface{}{
				map[string]interface{}{
					"tg": "840539006",
					"vp": "1119349007",
					"mp": "EU/1/20/1528",
					"ma": "ORG-100030215",
					"dn": 1,
					"sd": 2,
					"dt": "2021-02-18",
					"co": "AT",
					"is": "Ministry of Health, Austria",
					"ci": "URN:UVCI:01:AT:10807843F94AEE0EE5093FBC254BD813#B",
				},
			},
		},
	}
}
