// Package holder decodes the text of a health certificate QR code into the
// certificate model, running the Base45, inflate, CBOR, COSE, CWT and HCERT
// stages in order.
package holder

import (
	"github.com/minvws/greenpass-hcert/base45"
	"github.com/minvws/greenpass-hcert/cbor"
	"github.com/minvws/greenpass-hcert/common"
	"github.com/minvws/greenpass-hcert/cose"
	"github.com/minvws/greenpass-hcert/cwt"
	"github.com/minvws/greenpass-hcert/dcc"
	"github.com/minvws/greenpass-hcert/inflate"
)

// Smaller inputs cannot hold a signed COSE_Sign1 envelope
const MIN_ENVELOPE_SIZE = 10

type Holder struct {
	inflateLimit int64
}

type Option func(h *Holder)

// WithInflateLimit caps the decompressed size of a certificate
func WithInflateLimit(limit int64) Option {
	return func(h *Holder) {
		h.inflateLimit = limit
	}
}

func New(opts ...Option) *Holder {
	h := &Holder{
		inflateLimit: inflate.DefaultLimit,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Decode decodes Base45 text without the HC1: prefix. Errors are
// *common.StageError values.
func (h *Holder) Decode(proofEUBase45 string) (*common.HealthCert, error) {
	hcert, _, err := h.Inspect(proofEUBase45)
	return hcert, err
}

// ReadQREncoded decodes the full QR content, including the HC1: prefix
func (h *Holder) ReadQREncoded(proofPrefixed []byte) (*common.HealthCert, error) {
	_, proofEUBase45, err := common.StripPrefix(proofPrefixed)
	if err != nil {
		return nil, common.WithStage(common.STAGE_PREFIX, err)
	}

	return h.Decode(string(proofEUBase45))
}

// Inspect is Decode, but also returns the COSE envelope so its header and
// signature can be shown. The signature is not verified.
func (h *Holder) Inspect(proofEUBase45 string) (*common.HealthCert, *cose.Sign1, error) {
	compressed, err := base45.Decode(proofEUBase45)
	if err != nil {
		return nil, nil, common.WithStage(common.STAGE_BASE45, err)
	}

	cwtCbor, err := inflate.Decompress(compressed, h.inflateLimit)
	if err != nil {
		return nil, nil, common.WithStage(common.STAGE_INFLATE, err)
	}

	if len(cwtCbor) < MIN_ENVELOPE_SIZE {
		err = common.Errorf(common.ErrTruncated, "Expected at least %d bytes of COSE_Sign1 envelope, got %d", MIN_ENVELOPE_SIZE, len(cwtCbor))
		return nil, nil, common.WithStage(common.STAGE_CBOR, err)
	}

	envelope, err := cbor.Decode(cwtCbor)
	if err != nil {
		return nil, nil, common.WithStage(common.STAGE_CBOR, err)
	}

	sign1, err := cose.Parse(envelope)
	if err != nil {
		return nil, nil, common.WithStage(common.STAGE_COSE, err)
	}

	claims, err := cwt.Extract(sign1.Payload)
	if err != nil {
		return nil, nil, common.WithStage(common.STAGE_CWT, err)
	}

	passes := make([]common.GreenPass, 0, len(claims.Payloads))
	for _, payload := range claims.Payloads {
		gp, err := dcc.Map(payload)
		if err != nil {
			return nil, nil, common.WithStage(common.STAGE_HCERT, err)
		}

		passes = append(passes, *gp)
	}

	return &common.HealthCert{
		Issuer:    claims.Issuer,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
		Passes:    passes,
	}, sign1, nil
}
