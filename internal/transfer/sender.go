// Package transfer implements the per-file send/receive state machine
// that is the heart of the system (spec.md §4.D, §4.E), grounded on
// original_source/fileTransfer.py's send_file/send_directory and the
// teacher's atomic-counter, Callbacks, and cancellation-channel shapes
// from internal/clientudp (see DESIGN.md).
package transfer

import (
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/qcent/lanxfer/internal/config"
	"github.com/qcent/lanxfer/internal/conflict"
	"github.com/qcent/lanxfer/internal/counters"
	"github.com/qcent/lanxfer/internal/logging"
	"github.com/qcent/lanxfer/internal/wire"
)

// Sender drains a batch of Requests one TCP connection at a time
// (spec.md §5 "one-at-a-time per sender").
type Sender struct {
	Counters *counters.Sent
	Resolver conflict.Resolver
	Log      *logging.Logger

	// Dial defaults to net.Dial but can be swapped in tests.
	Dial func(network, addr string) (net.Conn, error)
}

// NewSender builds a Sender with the standard net.Dial.
func NewSender(c *counters.Sent, resolver conflict.Resolver, log *logging.Logger) *Sender {
	if log == nil {
		log = logging.Default
	}
	return &Sender{Counters: c, Resolver: resolver, Log: log, Dial: net.Dial}
}

// SendDirectory walks dir in pre-order file-system order and sends every
// regular file, prefixing the wire path with dir's basename. It does not
// stop on a per-file error; it returns every error encountered.
func (s *Sender) SendDirectory(dir, host string, port int) []error {
	base := filepath.Base(dir)
	var errs []error
	filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if s.Counters.Canceled.Load() {
			return filepath.SkipAll
		}
		req := Request{AbsPath: p, Root: dir, Base: base}
		if err := s.SendFile(req, host, port); err != nil {
			errs = append(errs, err)
		}
		return nil
	})
	return errs
}

// SendFile drives the full per-file state machine described in
// spec.md §4.D for one Request.
func (s *Sender) SendFile(req Request, host string, port int) error {
	relPath, err := req.RelPath()
	if err != nil {
		s.Counters.MarkProcessed(true)
		return err
	}

	f, err := os.Open(req.AbsPath)
	if err != nil {
		s.Counters.MarkProcessed(true)
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.Counters.MarkProcessed(true)
		return err
	}
	size := uint64(info.Size())

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := s.Dial("tcp", addr)
	if err != nil {
		s.Counters.MarkProcessed(true)
		return fmt.Errorf("%w: %v", ErrConnectRefused, err)
	}
	defer conn.Close()

	if err := wire.WriteHeader(conn, relPath, size); err != nil {
		s.Counters.MarkProcessed(true)
		return fmt.Errorf("%w: %v", ErrTransportLost, err)
	}

	token, err := wire.ReadToken(conn)
	if err != nil {
		s.Counters.MarkProcessed(true)
		return fmt.Errorf("%w: %v", ErrTransportLost, err)
	}

	switch token {
	case wire.AllGood:
		return s.stream(conn, f, 0, size, relPath)

	case wire.Rejected:
		s.Counters.MarkProcessed(true)
		s.Log.Warn("rejected by receiver: %s", relPath)
		return ErrRejected

	case wire.ReqCRC32:
		return s.handleReqCRC32(conn, f, size, relPath)

	case wire.DiffFile:
		return s.handleDiffFile(conn, f, size, relPath)

	default:
		s.Counters.MarkProcessed(true)
		return fmt.Errorf("%w: %q", ErrProtocolViolation, token)
	}
}

func (s *Sender) handleReqCRC32(conn net.Conn, f *os.File, size uint64, relPath string) error {
	localSize, err := wire.ReadUint64(conn)
	if err != nil {
		s.Counters.MarkProcessed(true)
		return fmt.Errorf("%w: %v", ErrTransportLost, err)
	}

	crc, err := wire.PartialCRC32(f, int64(localSize))
	if err != nil {
		s.Counters.MarkProcessed(true)
		return fmt.Errorf("%w: %v", ErrTransportLost, err)
	}
	if err := wire.WriteUint32(conn, crc); err != nil {
		s.Counters.MarkProcessed(true)
		return fmt.Errorf("%w: %v", ErrTransportLost, err)
	}

	reply, err := wire.ReadToken(conn)
	if err != nil {
		s.Counters.MarkProcessed(true)
		return fmt.Errorf("%w: %v", ErrTransportLost, err)
	}

	switch reply {
	case wire.SameCopy:
		// counted as success per spec.md §4.D, even though the receiver
		// logs it against rejected-files (see DESIGN.md).
		s.Counters.MarkProcessed(false)
		return nil
	case wire.Resume:
		if _, err := f.Seek(int64(localSize), io.SeekStart); err != nil {
			s.Counters.MarkProcessed(true)
			return err
		}
		return s.stream(conn, f, localSize, size, relPath)
	case wire.DiffFile:
		// Prefix CRCs differ: rewind past the CRC read and negotiate the conflict.
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			s.Counters.MarkProcessed(true)
			return err
		}
		return s.handleDiffFile(conn, f, size, relPath)
	default:
		s.Counters.MarkProcessed(true)
		return fmt.Errorf("%w: %q", ErrProtocolViolation, reply)
	}
}

func (s *Sender) handleDiffFile(conn net.Conn, f *os.File, size uint64, relPath string) error {
	localSize, err := wire.ReadUint64(conn)
	if err != nil {
		s.Counters.MarkProcessed(true)
		return fmt.Errorf("%w: %v", ErrTransportLost, err)
	}

	decision, err := s.Resolver.Resolve(relPath, size, localSize)
	if err != nil {
		s.Counters.MarkProcessed(true)
		return err
	}

	switch decision {
	case counters.Overwrite:
		if err := wire.WriteToken(conn, wire.ReqOverwrite); err != nil {
			s.Counters.MarkProcessed(true)
			return fmt.Errorf("%w: %v", ErrTransportLost, err)
		}
		final, err := wire.ReadToken(conn)
		if err != nil {
			s.Counters.MarkProcessed(true)
			return fmt.Errorf("%w: %v", ErrTransportLost, err)
		}
		switch final {
		case wire.AllGood:
			return s.stream(conn, f, 0, size, relPath)
		case wire.Rejected:
			s.Counters.MarkProcessed(true)
			return ErrRejected
		default:
			s.Counters.MarkProcessed(true)
			return fmt.Errorf("%w: %q", ErrProtocolViolation, final)
		}

	case counters.KeepBoth:
		if err := wire.WriteToken(conn, wire.KeepBoth); err != nil {
			s.Counters.MarkProcessed(true)
			return fmt.Errorf("%w: %v", ErrTransportLost, err)
		}
		final, err := wire.ReadToken(conn)
		if err != nil {
			s.Counters.MarkProcessed(true)
			return fmt.Errorf("%w: %v", ErrTransportLost, err)
		}
		if final != wire.AllGood {
			s.Counters.MarkProcessed(true)
			return fmt.Errorf("%w: %q", ErrProtocolViolation, final)
		}
		return s.stream(conn, f, 0, size, relPath)

	case counters.Skip:
		wire.WriteToken(conn, wire.SkipFile)
		s.Counters.MarkProcessed(true)
		return ErrUserSkipped

	default:
		s.Counters.MarkProcessed(true)
		return fmt.Errorf("%w: unknown decision %q", ErrProtocolViolation, decision)
	}
}

// stream sends f's bytes from offset to size across conn in ChunkSize
// pieces, checking the canceled flag before every chunk (spec.md §5).
func (s *Sender) stream(conn net.Conn, f *os.File, offset, size uint64, relPath string) error {
	buf := make([]byte, config.ChunkSize)
	for {
		if s.Counters.Canceled.Load() {
			s.Counters.MarkProcessed(true)
			s.Log.Info("canceled mid-stream: %s", relPath)
			return ErrUserCanceled
		}
		n, rerr := f.Read(buf)
		if n > 0 {
			if _, werr := conn.Write(buf[:n]); werr != nil {
				s.Counters.MarkProcessed(true)
				return fmt.Errorf("%w: %v", ErrTransportLost, werr)
			}
			s.Counters.AddBytesSent(uint64(n))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			s.Counters.MarkProcessed(true)
			return fmt.Errorf("%w: %v", ErrTransportLost, rerr)
		}
	}
	s.Counters.MarkProcessed(false)
	s.Log.Info("sent %s (%d bytes)", relPath, size-offset)
	return nil
}
