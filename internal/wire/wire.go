// Package wire implements the length-prefixed binary framing used on the
// TCP transfer socket (spec.md §6): the file header, the control-token
// dialogue, and the CRC32 helpers used for the resume handshake.
package wire

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// Control tokens are opaque, case-sensitive UTF-8 byte strings. Their
// values are part of the wire format and must not change independently
// on either side of a connection.
const (
	AllGood      = "0xB00B1E5"
	Rejected     = "0xD6EC7ED"
	ReqCRC32     = "AC710271BE"
	Resume       = "0x7E50BE"
	SameCopy     = "0x5ABEC097"
	DiffFile     = "0xD1FFF1113"
	ReqOverwrite = "0x0B37717E"
	KeepBoth     = "0x4EE9B074"
	SkipFile     = "0x5419F111E"
)

// ErrProtocolViolation means a peer sent a token we didn't expect at this
// point in the state machine.
var ErrProtocolViolation = errors.New("wire: unexpected control token")

// ErrHeaderTruncated means the connection closed mid-header.
var ErrHeaderTruncated = errors.New("wire: header truncated")

// WriteUint32 writes v as a 32-bit little-endian integer.
func WriteUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// ReadUint32 reads a 32-bit little-endian integer.
func ReadUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return 0, ErrHeaderTruncated
		}
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// WriteUint64 writes v as a 64-bit little-endian integer.
func WriteUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// ReadUint64 reads a 64-bit little-endian integer.
func ReadUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return 0, ErrHeaderTruncated
		}
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// WriteHeader writes the file header: uint32 pathLen, the UTF-8 relative
// path, and a uint64 declared size, all little-endian (spec.md §6).
func WriteHeader(w io.Writer, relPath string, declaredSize uint64) error {
	p := []byte(relPath)
	if err := WriteUint32(w, uint32(len(p))); err != nil {
		return err
	}
	if _, err := w.Write(p); err != nil {
		return err
	}
	return WriteUint64(w, declaredSize)
}

// ReadHeader reads the file header written by WriteHeader.
func ReadHeader(r io.Reader) (relPath string, declaredSize uint64, err error) {
	pathLen, err := ReadUint32(r)
	if err != nil {
		return "", 0, err
	}
	buf := make([]byte, pathLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", 0, ErrHeaderTruncated
	}
	size, err := ReadUint64(r)
	if err != nil {
		return "", 0, err
	}
	return string(buf), size, nil
}

// WriteToken writes a control token as uint32 length + UTF-8 bytes.
func WriteToken(w io.Writer, token string) error {
	b := []byte(token)
	if err := WriteUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadToken reads a control token written by WriteToken.
func ReadToken(r io.Reader) (string, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", ErrHeaderTruncated
	}
	return string(buf), nil
}

// CRC32 computes the IEEE-polynomial checksum, compatible with Python's
// zlib.crc32 (spec.md §4.D).
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// PartialCRC32 computes the CRC32 of the first n bytes read from r.
func PartialCRC32(r io.Reader, n int64) (uint32, error) {
	h := crc32.NewIEEE()
	if _, err := io.CopyN(h, r, n); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}

// FullCRC32 computes the CRC32 of everything read from r.
func FullCRC32(r io.Reader) (uint32, error) {
	h := crc32.NewIEEE()
	if _, err := io.Copy(h, r); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}
