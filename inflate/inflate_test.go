package inflate

import (
	"bytes"
	"github.com/go-errors/errors"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"github.com/minvws/greenpass-hcert/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

var plain = []byte("d2 84 4d a2 01 26 04 48 d9 19 37 5f c1 e7 b6 b2 a0 59 01 0b a4 04 1a 62 c0 ea 21 06 1a 60 df 7d 21 01 62 41 54")

func zlibCompress(t *testing.T, data []byte) []byte {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	require.NoError(t, err)
	_, err = zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

func rawCompress(t *testing.T, data []byte) []byte {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestCompression)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	return buf.Bytes()
}

func TestDecompressZlib(t *testing.T) {
	compressed := zlibCompress(t, plain)
	require.True(t, HasZlibHeader(compressed))

	out, err := Decompress(compressed, 0)
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestDecompressRawDeflate(t *testing.T) {
	compressed := rawCompress(t, plain)

	out, err := Decompress(compressed, 0)
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestDecompressRawDeflateWithZlibLookingStart(t *testing.T) {
	// Stored block of one byte, then an empty final block
	compressed := []byte{0x78, 0x01, 0x00, 0xfe, 0xff, 'X', 0x03, 0x00}
	require.True(t, HasZlibHeader(compressed))

	out, err := Decompress(compressed, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("X"), out)
}

func TestDecompressTruncated(t *testing.T) {
	compressed := zlibCompress(t, plain)

	for n := 0; n < len(compressed); n++ {
		_, err := Decompress(compressed[:n], 0)
		require.Error(t, err, "length %d", n)
		assert.True(t, errors.Is(err, common.ErrInflate), "length %d", n)
	}
}

func TestDecompressBadChecksum(t *testing.T) {
	compressed := zlibCompress(t, plain)
	compressed[len(compressed)-1] ^= 0xff

	_, err := Decompress(compressed, 0)
	assert.True(t, errors.Is(err, common.ErrInflate))
}

func TestDecompressGarbage(t *testing.T) {
	_, err := Decompress([]byte{0xff, 0xff, 0xff, 0xff}, 0)
	assert.True(t, errors.Is(err, common.ErrInflate))
}

func TestDecompressLimit(t *testing.T) {
	bomb := zlibCompress(t, make([]byte, 64*1024))

	_, err := Decompress(bomb, 1024)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInflate))
	assert.Contains(t, err.Error(), "exceeds 1024 bytes")

	out, err := Decompress(bomb, 64*1024)
	require.NoError(t, err)
	assert.Len(t, out, 64*1024)
}

func TestHasZlibHeader(t *testing.T) {
	assert.True(t, HasZlibHeader([]byte{0x78, 0xda}))
	assert.True(t, HasZlibHeader([]byte{0x78, 0x9c}))
	assert.True(t, HasZlibHeader([]byte{0x78, 0x01}))
	assert.False(t, HasZlibHeader([]byte{0x78}))
	assert.False(t, HasZlibHeader([]byte{0x78, 0xdb}))
	// Preset dictionary
	assert.False(t, HasZlibHeader([]byte{0x78, 0xbb}))
}

func FuzzDecompress(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x78, 0xda})
	f.Add([]byte{0x78, 0xda, 0x01, 0x00, 0x00, 0xff, 0xff})
	f.Add([]byte{0x03, 0x00})

	f.Fuzz(func(t *testing.T, data []byte) {
		out, err := Decompress(data, 4096)
		if err != nil {
			if !errors.Is(err, common.ErrInflate) {
				t.Fatalf("unexpected error kind: %v", err)
			}
			return
		}

		if len(out) > 4096 {
			t.Fatalf("output of %d bytes exceeds limit", len(out))
		}
	})
}
