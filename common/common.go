package common

import (
	"fmt"
	"github.com/go-errors/errors"
)

// Kind identifies one class of decode failure. Kinds are compared by identity,
// so callers use errors.Is(err, common.ErrTruncated) and the like.
type Kind struct {
	name  string
	group *Kind
}

func (k *Kind) Error() string {
	return k.name
}

// Is reports whether the kind belongs to target's group, which lets every CBOR
// kind match ErrCBOR.
func (k *Kind) Is(target error) bool {
	return k.group != nil && target == error(k.group)
}

func (k *Kind) String() string {
	return k.name
}

var (
	ErrMissingPrefix = &Kind{name: "missing HC1 prefix"}
	ErrInvalidBase45 = &Kind{name: "invalid base45"}
	ErrInflate       = &Kind{name: "inflate error"}

	ErrCBOR           = &Kind{name: "cbor error"}
	ErrTruncated      = &Kind{name: "truncated cbor", group: ErrCBOR}
	ErrMalformed      = &Kind{name: "malformed cbor", group: ErrCBOR}
	ErrUnexpectedType = &Kind{name: "unexpected cbor type", group: ErrCBOR}

	ErrMissingClaim    = &Kind{name: "missing claim"}
	ErrSchemaViolation = &Kind{name: "schema violation"}
)

// Most specific kinds first, ErrCBOR would otherwise shadow its members
var kinds = []*Kind{
	ErrMissingPrefix,
	ErrInvalidBase45,
	ErrInflate,
	ErrTruncated,
	ErrMalformed,
	ErrUnexpectedType,
	ErrCBOR,
	ErrMissingClaim,
	ErrSchemaViolation,
}

// Errorf builds a stack-carrying error of the given kind, prefixed with a
// formatted description of what went wrong
func Errorf(kind *Kind, format string, a ...interface{}) error {
	return errors.WrapPrefix(kind, fmt.Sprintf(format, a...), 1)
}

// KindOf returns the kind of a decode error, or nil if err is not one
func KindOf(err error) *Kind {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return nil
}

type Stage string

const (
	STAGE_PREFIX  Stage = "prefix"
	STAGE_BASE45  Stage = "base45"
	STAGE_INFLATE Stage = "inflate"
	STAGE_CBOR    Stage = "cbor"
	STAGE_COSE    Stage = "cose"
	STAGE_CWT     Stage = "cwt"
	STAGE_HCERT   Stage = "hcert"
)

// StageError records which pipeline stage produced err
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %s", e.Stage, e.Err.Error())
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func WithStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}

	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage recorded on err, if any
func StageOf(err error) (Stage, bool) {
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		return "", false
	}

	return stageErr.Stage, true
}
