package transfer

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qcent/lanxfer/internal/config"
	"github.com/qcent/lanxfer/internal/counters"
	"github.com/qcent/lanxfer/internal/logging"
	"github.com/qcent/lanxfer/internal/wire"
)

// Receiver accepts one connection at a time and drives the negotiation
// and write loop described in spec.md §4.E.
type Receiver struct {
	SaveDir  string
	Counters *counters.Received
	Log      *logging.Logger
}

// NewReceiver builds a Receiver writing into saveDir.
func NewReceiver(saveDir string, c *counters.Received, log *logging.Logger) *Receiver {
	if log == nil {
		log = logging.Default
	}
	return &Receiver{SaveDir: saveDir, Counters: c, Log: log}
}

// Serve accepts connections on ln until the canceled flag is set. The
// accept wait is bounded to 1s so cancellation is observed promptly
// (spec.md §4.E, §5).
func (r *Receiver) Serve(ln *net.TCPListener) error {
	for {
		if r.Counters.Canceled.Load() {
			return nil
		}
		ln.SetDeadline(time.Now().Add(time.Second))
		conn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if r.Counters.Canceled.Load() {
				return nil
			}
			r.Log.Warn("accept error: %v", err)
			continue
		}
		if err := r.handleConn(conn); err != nil {
			r.Log.Warn("connection failed: %v", err)
		}
	}
}

func (r *Receiver) handleConn(conn net.Conn) error {
	defer conn.Close()

	relPath, declaredSize, err := wire.ReadHeader(conn)
	if err != nil {
		r.Counters.MarkFailed()
		return fmt.Errorf("%w: %v", ErrHeaderTruncated, err)
	}

	localPath := filepath.Join(r.SaveDir, filepath.FromSlash(relPath))

	info, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		if err := wire.WriteToken(conn, wire.AllGood); err != nil {
			r.Counters.MarkFailed()
			return fmt.Errorf("%w: %v", ErrTransportLost, err)
		}
		return r.writeStream(conn, localPath, os.O_TRUNC)

	case err != nil:
		r.Counters.MarkFailed()
		return fmt.Errorf("%w: %v", ErrTargetUnwritable, err)

	default:
		return r.negotiateExisting(conn, localPath, declaredSize, uint64(info.Size()))
	}
}

func (r *Receiver) negotiateExisting(conn net.Conn, localPath string, declaredSize, localSize uint64) error {
	if declaredSize < localSize {
		if err := wire.WriteToken(conn, wire.DiffFile); err != nil {
			r.Counters.MarkFailed()
			return fmt.Errorf("%w: %v", ErrTransportLost, err)
		}
		if err := wire.WriteUint64(conn, localSize); err != nil {
			r.Counters.MarkFailed()
			return fmt.Errorf("%w: %v", ErrTransportLost, err)
		}
		return r.handleDecision(conn, localPath)
	}

	// declaredSize >= localSize: resume candidate.
	if err := wire.WriteToken(conn, wire.ReqCRC32); err != nil {
		r.Counters.MarkFailed()
		return fmt.Errorf("%w: %v", ErrTransportLost, err)
	}
	if err := wire.WriteUint64(conn, localSize); err != nil {
		r.Counters.MarkFailed()
		return fmt.Errorf("%w: %v", ErrTransportLost, err)
	}

	senderCRC, err := wire.ReadUint32(conn)
	if err != nil {
		r.Counters.MarkFailed()
		return fmt.Errorf("%w: %v", ErrTransportLost, err)
	}

	localCRC, err := fullFileCRC32(localPath)
	if err != nil {
		r.Counters.MarkFailed()
		return fmt.Errorf("%w: %v", ErrTargetUnwritable, err)
	}

	if localCRC == senderCRC {
		if declaredSize == localSize {
			wire.WriteToken(conn, wire.SameCopy)
			// Deliberately counted as rejected, not received (spec.md §9 open
			// question; see DESIGN.md).
			r.Counters.MarkRejected()
			return nil
		}
		if err := wire.WriteToken(conn, wire.Resume); err != nil {
			r.Counters.MarkFailed()
			return fmt.Errorf("%w: %v", ErrTransportLost, err)
		}
		return r.writeStream(conn, localPath, os.O_APPEND)
	}

	// Unequal CRCs: the prefixes diverge, escalate to a conflict decision.
	if err := wire.WriteToken(conn, wire.DiffFile); err != nil {
		r.Counters.MarkFailed()
		return fmt.Errorf("%w: %v", ErrTransportLost, err)
	}
	if err := wire.WriteUint64(conn, localSize); err != nil {
		r.Counters.MarkFailed()
		return fmt.Errorf("%w: %v", ErrTransportLost, err)
	}
	return r.handleDecision(conn, localPath)
}

func (r *Receiver) handleDecision(conn net.Conn, localPath string) error {
	token, err := wire.ReadToken(conn)
	if err != nil {
		r.Counters.MarkFailed()
		return fmt.Errorf("%w: %v", ErrTransportLost, err)
	}
	switch token {
	case wire.ReqOverwrite:
		if !r.Counters.Overwrite.Load() {
			wire.WriteToken(conn, wire.Rejected)
			r.Counters.MarkRejected()
			return nil
		}
		if err := wire.WriteToken(conn, wire.AllGood); err != nil {
			r.Counters.MarkFailed()
			return fmt.Errorf("%w: %v", ErrTransportLost, err)
		}
		return r.writeStream(conn, localPath, os.O_TRUNC)

	case wire.KeepBoth:
		sibling := nextSiblingName(localPath)
		if err := wire.WriteToken(conn, wire.AllGood); err != nil {
			r.Counters.MarkFailed()
			return fmt.Errorf("%w: %v", ErrTransportLost, err)
		}
		return r.writeStream(conn, sibling, os.O_TRUNC)

	case wire.SkipFile:
		r.Counters.MarkFailed()
		return nil

	default:
		r.Counters.MarkFailed()
		return fmt.Errorf("%w: %q", ErrProtocolViolation, token)
	}
}

// writeStream creates any missing parent directories, opens path with
// the given extra flag (os.O_TRUNC or os.O_APPEND), and copies chunks
// from conn until EOF or cancellation (spec.md §4.E step 5, §5). Any
// failure to create or write the target surfaces as ErrTargetUnwritable.
func (r *Receiver) writeStream(conn net.Conn, path string, extraFlag int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		r.Counters.MarkFailed()
		return fmt.Errorf("%w: %v", ErrTargetUnwritable, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|extraFlag, 0644)
	if err != nil {
		r.Counters.MarkFailed()
		return fmt.Errorf("%w: %v", ErrTargetUnwritable, err)
	}
	defer f.Close()

	buf := make([]byte, config.ChunkSize)
	for {
		if r.Counters.Canceled.Load() {
			r.Counters.MarkFailed()
			return ErrUserCanceled
		}
		n, rerr := conn.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				r.Counters.MarkFailed()
				return fmt.Errorf("%w: %v", ErrTargetUnwritable, werr)
			}
			r.Counters.AddDataReceived(uint64(n))
		}
		if rerr == io.EOF {
			r.Counters.MarkReceived()
			r.Log.Info("received %s", path)
			return nil
		}
		if rerr != nil {
			r.Counters.MarkFailed()
			return fmt.Errorf("%w: %v", ErrTransportLost, rerr)
		}
	}
}

func fullFileCRC32(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return wire.FullCRC32(f)
}

// nextSiblingName finds the smallest n>=1 for which "name(n).ext" does
// not exist next to path (spec.md §4.E "KeepBoth").
func nextSiblingName(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s(%d)%s", base, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
