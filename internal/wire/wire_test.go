package wire

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, "sub/dir/a.txt", 12345))

	path, size, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, "sub/dir/a.txt", path)
	assert.Equal(t, uint64(12345), size)
}

func TestTokenRoundTrip(t *testing.T) {
	for _, tok := range []string{AllGood, Rejected, ReqCRC32, Resume, SameCopy, DiffFile, ReqOverwrite, KeepBoth, SkipFile} {
		var buf bytes.Buffer
		require.NoError(t, WriteToken(&buf, tok))
		got, err := ReadToken(&buf)
		require.NoError(t, err)
		assert.Equal(t, tok, got)
	}
}

func TestReadHeaderTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint32(&buf, 10))
	buf.WriteString("short")
	_, _, err := ReadHeader(&buf)
	assert.ErrorIs(t, err, ErrHeaderTruncated)
}

func TestCRC32MatchesKnownVector(t *testing.T) {
	// zlib.crc32(b"hello\n") == 0x363a3020
	got := CRC32([]byte("hello\n"))
	assert.Equal(t, uint32(0x363a3020), got)
}

func TestPartialCRC32MatchesFullPrefix(t *testing.T) {
	data := strings.Repeat("lanxfer", 1000)
	full := CRC32([]byte(data)[:100])
	partial, err := PartialCRC32(strings.NewReader(data), 100)
	require.NoError(t, err)
	assert.Equal(t, full, partial)
}
