package cbor

import (
	"github.com/minvws/greenpass-hcert/common"
	"math"
	"time"
)

func unexpected(what, expected string, v Value) error {
	return common.Errorf(common.ErrUnexpectedType, "Expected %s to be %s, got %s", what, expected, TypeName(v))
}

func AsArray(v Value, what string) (Array, error) {
	a, ok := v.(Array)
	if !ok {
		return nil, unexpected(what, "an array", v)
	}

	return a, nil
}

func AsMap(v Value, what string) (Map, error) {
	m, ok := v.(Map)
	if !ok {
		return nil, unexpected(what, "a map", v)
	}

	return m, nil
}

func AsBytes(v Value, what string) ([]byte, error) {
	b, ok := v.(Bytes)
	if !ok {
		return nil, unexpected(what, "a byte string", v)
	}

	return b, nil
}

func AsText(v Value, what string) (string, error) {
	s, ok := v.(Text)
	if !ok {
		return "", unexpected(what, "a text string", v)
	}

	return string(s), nil
}

func AsInt(v Value, what string) (int64, error) {
	i, ok := v.(Int)
	if !ok {
		return 0, unexpected(what, "an integer", v)
	}

	return int64(i), nil
}

// AsTime reads seconds since the epoch, encoded either as an integer or a float
func AsTime(v Value, what string) (time.Time, error) {
	t, ok := TimeOf(v)
	if !ok {
		return time.Time{}, unexpected(what, "a timestamp", v)
	}

	return t, nil
}

// Instants outside years 0 to 9999 have no RFC 3339 form
var (
	minSeconds = time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxSeconds = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC).Unix()
)

// TimeOf converts epoch seconds to a UTC instant, keeping fractional seconds
func TimeOf(v Value) (time.Time, bool) {
	switch v := v.(type) {
	case Int:
		if int64(v) < minSeconds || int64(v) > maxSeconds {
			return time.Time{}, false
		}

		return time.Unix(int64(v), 0).UTC(), true

	case Float:
		f := float64(v)
		if math.IsNaN(f) || f < float64(minSeconds) || f >= float64(maxSeconds+1) {
			return time.Time{}, false
		}

		sec := math.Floor(f)
		nsec := int64(math.Round((f - sec) * 1e9))
		if nsec == 1e9 {
			sec, nsec = sec+1, 0
		}
		if int64(sec) > maxSeconds {
			return time.Time{}, false
		}

		return time.Unix(int64(sec), nsec).UTC(), true
	}

	return time.Time{}, false
}
