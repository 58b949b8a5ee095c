// Package cbor is a strict decoder for the subset of CBOR (RFC 8949) used by
// COSE_Sign1 envelopes and CWT claims in health certificates.
package cbor

import (
	"encoding/binary"
	_cbor "github.com/fxamacker/cbor/v2"
	"github.com/go-errors/errors"
	"github.com/minvws/greenpass-hcert/common"
	"io"
	"math"
)

const (
	CBOR_TYPE_UNSIGNED    uint8 = 0
	CBOR_TYPE_NEGATIVE    uint8 = 1
	CBOR_TYPE_BYTE_STRING uint8 = 2
	CBOR_TYPE_TEXT_STRING uint8 = 3
	CBOR_TYPE_ARRAY       uint8 = 4
	CBOR_TYPE_MAP         uint8 = 5
	CBOR_TYPE_TAG         uint8 = 6
	CBOR_TYPE_SIMPLE      uint8 = 7

	CBOR_INFO_MASK uint8 = 0x1f

	CBOR_INFO_UINT8  uint8 = 24
	CBOR_INFO_UINT16 uint8 = 25
	CBOR_INFO_UINT32 uint8 = 26
	CBOR_INFO_UINT64 uint8 = 27

	CBOR_SIMPLE_FALSE     = 20
	CBOR_SIMPLE_TRUE      = 21
	CBOR_SIMPLE_NULL      = 22
	CBOR_SIMPLE_UNDEFINED = 23

	COSE_SIGN1_TAG = 18
)

// MaxDepth bounds nesting of arrays, maps and tags
const MaxDepth = 64

// Counts are bounded by the input length instead
const maxItems = math.MaxInt32

var decMode _cbor.DecMode

func init() {
	var err error
	decMode, err = _cbor.DecOptions{
		DupMapKey:        _cbor.DupMapKeyQuiet,
		IndefLength:      _cbor.IndefLengthForbidden,
		MaxNestedLevels:  MaxDepth,
		MaxArrayElements: maxItems,
		MaxMapPairs:      maxItems,
		UTF8:             _cbor.UTF8RejectInvalid,
	}.DecMode()
	if err != nil {
		panic("Could not build CBOR decoding mode: " + err.Error())
	}
}

// Decode decodes exactly one data item spanning all of data
func Decode(data []byte) (Value, error) {
	err := decMode.Wellformed(data)
	if err != nil {
		return nil, decodeError(err)
	}

	return walk(data)
}

// Unmarshal decodes one data item into a Go value, under the same limits as
// Decode
func Unmarshal(data []byte, v interface{}) error {
	err := decMode.Unmarshal(data, v)
	if err == nil {
		return nil
	}

	var typeErr *_cbor.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return common.Errorf(common.ErrUnexpectedType, "Could not CBOR unmarshal %T: %s", v, err.Error())
	}

	return decodeError(err)
}

func decodeError(err error) error {
	var arrayErr *_cbor.MaxArrayElementsError
	var mapErr *_cbor.MaxMapPairsError

	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return common.Errorf(common.ErrTruncated, "Could not CBOR decode data item: %s", err.Error())

	// Every item takes at least one byte, so such counts never fit the input
	case errors.As(err, &arrayErr), errors.As(err, &mapErr):
		return common.Errorf(common.ErrTruncated, "Could not CBOR decode data item: %s", err.Error())
	}

	return common.Errorf(common.ErrMalformed, "Could not CBOR decode data item: %s", err.Error())
}

// head reads the initial byte and argument of a well-formed item
func head(raw []byte) (major, info uint8, arg uint64, size int) {
	major, info = raw[0]>>5, raw[0]&CBOR_INFO_MASK

	switch info {
	case CBOR_INFO_UINT8:
		return major, info, uint64(raw[1]), 2
	case CBOR_INFO_UINT16:
		return major, info, uint64(binary.BigEndian.Uint16(raw[1:3])), 3
	case CBOR_INFO_UINT32:
		return major, info, uint64(binary.BigEndian.Uint32(raw[1:5])), 5
	case CBOR_INFO_UINT64:
		return major, info, binary.BigEndian.Uint64(raw[1:9]), 9
	}

	return major, info, uint64(info), 1
}

// walk turns one well-formed item into a Value
func walk(raw []byte) (Value, error) {
	major, info, arg, size := head(raw)

	switch major {
	case CBOR_TYPE_UNSIGNED, CBOR_TYPE_NEGATIVE:
		var i int64
		err := decMode.Unmarshal(raw, &i)
		if err != nil {
			return nil, common.Errorf(common.ErrMalformed, "Integer overflows int64: %s", err.Error())
		}

		return Int(i), nil

	case CBOR_TYPE_BYTE_STRING:
		var b []byte
		err := decMode.Unmarshal(raw, &b)
		if err != nil {
			return nil, decodeError(err)
		}

		// Copy, so decoded values never alias the input buffer
		return append(Bytes{}, b...), nil

	case CBOR_TYPE_TEXT_STRING:
		var s string
		err := decMode.Unmarshal(raw, &s)
		if err != nil {
			return nil, common.Errorf(common.ErrMalformed, "Text string is not valid UTF-8: %s", err.Error())
		}

		return Text(s), nil

	case CBOR_TYPE_ARRAY:
		items, err := split(raw[size:], arg)
		if err != nil {
			return nil, err
		}

		arr := make(Array, 0, len(items))
		for _, item := range items {
			v, err := walk(item)
			if err != nil {
				return nil, err
			}

			arr = append(arr, v)
		}

		return arr, nil

	case CBOR_TYPE_MAP:
		items, err := split(raw[size:], 2*arg)
		if err != nil {
			return nil, err
		}

		m := make(Map, 0, arg)
		for i := 0; i < len(items); i += 2 {
			key, err := walk(items[i])
			if err != nil {
				return nil, err
			}

			val, err := walk(items[i+1])
			if err != nil {
				return nil, err
			}

			m = append(m, Pair{Key: key, Value: val})
		}

		return m, nil

	case CBOR_TYPE_TAG:
		content, err := walk(raw[size:])
		if err != nil {
			return nil, err
		}

		if arg == COSE_SIGN1_TAG {
			return Tag{Number: arg, Content: content}, nil
		}

		return content, nil
	}

	return simple(raw, info, arg)
}

// split cuts n consecutive items off data
func split(data []byte, n uint64) ([]_cbor.RawMessage, error) {
	items := make([]_cbor.RawMessage, 0, n)
	for i := uint64(0); i < n; i++ {
		var item _cbor.RawMessage
		rest, err := decMode.UnmarshalFirst(data, &item)
		if err != nil {
			return nil, decodeError(err)
		}

		items = append(items, item)
		data = rest
	}

	return items, nil
}

func simple(raw []byte, info uint8, arg uint64) (Value, error) {
	switch info {
	case CBOR_SIMPLE_FALSE:
		return Bool(false), nil
	case CBOR_SIMPLE_TRUE:
		return Bool(true), nil
	case CBOR_SIMPLE_NULL, CBOR_SIMPLE_UNDEFINED:
		return Null{}, nil
	case CBOR_INFO_UINT16, CBOR_INFO_UINT32, CBOR_INFO_UINT64:
		var f float64
		err := decMode.Unmarshal(raw, &f)
		if err != nil {
			return nil, decodeError(err)
		}

		return Float(f), nil
	}

	return nil, common.Errorf(common.ErrMalformed, "Unassigned simple value %d", arg)
}
