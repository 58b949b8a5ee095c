// Package inflate decompresses the DEFLATE stream carried in a health certificate QR.
package inflate

import (
	"bytes"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"github.com/minvws/greenpass-hcert/common"
	"io"
)

// DefaultLimit caps decompressed output. Real certificates inflate to well
// under 4 KiB.
const DefaultLimit int64 = 1 << 20

// Decompress inflates data, consuming a zlib container when one is present
// and treating data as a raw DEFLATE stream otherwise. Output larger than limit
// bytes is refused; a limit <= 0 selects DefaultLimit.
func Decompress(data []byte, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	if !HasZlibHeader(data) {
		return readLimited(flate.NewReader(bytes.NewReader(data)), limit)
	}

	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err == nil {
		var out []byte
		out, err = readLimited(zr, limit)
		if err == nil {
			return out, nil
		}
	} else {
		err = common.Errorf(common.ErrInflate, "Could not create zlib reader (%s)", err)
	}

	// A raw stream opening with a stored block can pass for a zlib header
	out, rawErr := readLimited(flate.NewReader(bytes.NewReader(data)), limit)
	if rawErr != nil {
		return nil, err
	}

	return out, nil
}

func readLimited(r io.ReadCloser, limit int64) ([]byte, error) {
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, common.Errorf(common.ErrInflate, "Could not decompress QR (%s)", err)
	}

	if int64(len(out)) > limit {
		return nil, common.Errorf(common.ErrInflate, "Decompressed QR exceeds %d bytes", limit)
	}

	return out, nil
}

// HasZlibHeader reports whether data starts with a valid RFC 1950 header for
// DEFLATE without a preset dictionary
func HasZlibHeader(data []byte) bool {
	if len(data) < 2 {
		return false
	}

	cmf, flg := data[0], data[1]
	return cmf&0x0f == 8 && cmf>>4 <= 7 && flg&0x20 == 0 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}
