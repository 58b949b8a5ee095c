// Package cwt extracts the claims of a CBOR Web Token (RFC 8392) carrying an
// EU health certificate.
package cwt

import (
	_cbor "github.com/fxamacker/cbor/v2"
	"github.com/go-errors/errors"
	"github.com/minvws/greenpass-hcert/cbor"
	"github.com/minvws/greenpass-hcert/common"
	"time"
)

const (
	CLAIM_ISSUER          = 1
	CLAIM_EXPIRATION_TIME = 4
	CLAIM_ISSUED_AT       = 6
	CLAIM_HCERT           = -260

	HCERT_DCC_V1 = 1
)

type Claims struct {
	Issuer    *string
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Payloads holds one entry per distinct HCERT key, in order of first
	// appearance
	Payloads []cbor.Map
}

func Extract(payloadCbor []byte) (*Claims, error) {
	v, err := cbor.Decode(payloadCbor)
	if err != nil {
		return nil, err
	}

	claims, err := cbor.AsMap(v, "CWT payload")
	if err != nil {
		return nil, err
	}

	registered, err := registeredClaims(payloadCbor)
	if err != nil {
		return nil, err
	}

	issuer, err := issuerClaim(registered)
	if err != nil {
		return nil, err
	}

	expiresAt, err := timeClaim(registered, CLAIM_EXPIRATION_TIME, "expiration time")
	if err != nil {
		return nil, err
	}

	issuedAt, err := timeClaim(registered, CLAIM_ISSUED_AT, "issued at")
	if err != nil {
		return nil, err
	}

	payloads, err := hcertPayloads(claims)
	if err != nil {
		return nil, err
	}

	return &Claims{
		Issuer:    issuer,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		Payloads:  payloads,
	}, nil
}

// registeredClaims indexes the integer keyed claims. Go map assignment keeps
// the last of repeated keys.
func registeredClaims(payloadCbor []byte) (map[int64]_cbor.RawMessage, error) {
	registered := map[int64]_cbor.RawMessage{}
	err := cbor.Unmarshal(payloadCbor, &registered)

	// Claims under other key types are skipped, only their keys fail to decode
	if err != nil && !errors.Is(err, common.ErrUnexpectedType) {
		return nil, err
	}

	return registered, nil
}

func issuerClaim(registered map[int64]_cbor.RawMessage) (*string, error) {
	raw, ok := registered[CLAIM_ISSUER]
	if !ok {
		return nil, nil
	}

	var issuer *string
	err := cbor.Unmarshal(raw, &issuer)
	if err != nil {
		return nil, common.Errorf(common.ErrSchemaViolation, "Expected issuer claim to be a text string: %s", err.Error())
	}

	if issuer == nil {
		return nil, common.Errorf(common.ErrSchemaViolation, "Expected issuer claim to be a text string, got null")
	}

	return issuer, nil
}

func timeClaim(registered map[int64]_cbor.RawMessage, key int64, name string) (time.Time, error) {
	raw, ok := registered[key]
	if !ok {
		return time.Time{}, common.Errorf(common.ErrMissingClaim, "Could not find %s claim %d", name, key)
	}

	var v cbor.Value = cbor.Null{}
	var seconds *int64
	err := cbor.Unmarshal(raw, &seconds)
	if err != nil {
		// Some issuers encode timestamps as floats
		var floatSeconds *float64
		altErr := cbor.Unmarshal(raw, &floatSeconds)
		if altErr != nil {
			return time.Time{}, common.Errorf(common.ErrSchemaViolation, "Expected %s claim to be a timestamp: %s", name, err.Error())
		}

		if floatSeconds != nil {
			v = cbor.Float(*floatSeconds)
		}
	} else if seconds != nil {
		v = cbor.Int(*seconds)
	}

	t, ok := cbor.TimeOf(v)
	if !ok {
		return time.Time{}, common.Errorf(common.ErrSchemaViolation, "Expected %s claim to be a timestamp within years 0 to 9999, got %s", name, cbor.TypeName(v))
	}

	return t, nil
}

func hcertPayloads(claims cbor.Map) ([]cbor.Map, error) {
	v, ok := claims.Int(CLAIM_HCERT)
	if !ok {
		return nil, common.Errorf(common.ErrMissingClaim, "Could not find hcert claim %d", CLAIM_HCERT)
	}

	hcert, ok := v.(cbor.Map)
	if !ok {
		return nil, common.Errorf(common.ErrSchemaViolation, "Expected hcert claim to be a map, got %s", cbor.TypeName(v))
	}

	if _, ok := hcert.Int(HCERT_DCC_V1); !ok {
		return nil, common.Errorf(common.ErrSchemaViolation, "Could not find DCC schema version %d in hcert claim", HCERT_DCC_V1)
	}

	entries := hcert.Distinct()
	payloads := make([]cbor.Map, 0, len(entries))
	for _, pair := range entries {
		payload, ok := pair.Value.(cbor.Map)
		if !ok {
			return nil, common.Errorf(common.ErrSchemaViolation, "Expected hcert entry to be a map, got %s", cbor.TypeName(pair.Value))
		}

		payloads = append(payloads, payload)
	}

	return payloads, nil
}
