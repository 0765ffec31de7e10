package transfer

import (
	"crypto/sha256"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qcent/lanxfer/internal/counters"
)

// fixedResolver always returns the same decision, for conflict scenarios.
type fixedResolver struct {
	decision counters.Decision
	asked    chan struct{}
}

func (f *fixedResolver) Resolve(name string, remoteSize, localSize uint64) (counters.Decision, error) {
	if f.asked != nil {
		close(f.asked)
	}
	return f.decision, nil
}

// startReceiver launches a Receiver on a loopback listener and returns its
// address plus a stop function.
func startReceiver(t *testing.T, saveDir string, recvCounters *counters.Received) (string, func()) {
	t.Helper()
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	r := NewReceiver(saveDir, recvCounters, nil)
	go r.Serve(ln)

	stop := func() {
		recvCounters.Canceled.Store(true)
		ln.Close()
	}
	return ln.Addr().String(), stop
}

func hostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestFreshTransfer(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	srcFile := filepath.Join(srcDir, "a.txt")
	require.NoError(t, os.WriteFile(srcFile, []byte("hello\n"), 0644))

	var recvCounters counters.Received
	addr, stop := startReceiver(t, dstDir, &recvCounters)
	defer stop()
	host, port := hostPort(t, addr)

	var sentCounters counters.Sent
	sender := NewSender(&sentCounters, &fixedResolver{decision: counters.Skip}, nil)
	err := sender.SendFile(Request{AbsPath: srcFile, Root: srcDir}, host, port)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	got, err := os.ReadFile(filepath.Join(dstDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(got))

	sentSnap := sentCounters.Snapshot()
	assert.Equal(t, uint64(6), sentSnap.BytesSent)
	assert.Equal(t, uint64(1), sentSnap.ProcessedFiles)
	assert.Zero(t, sentSnap.FailedFiles)

	recvSnap := recvCounters.Snapshot()
	assert.Equal(t, uint64(1), recvSnap.ReceivedFiles)
	assert.Equal(t, uint64(6), recvSnap.DataReceived)
}

func TestSameCopy(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	content := []byte("identical payload present on both sides\n")
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "same.txt"), content, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dstDir, "same.txt"), content, 0644))

	var recvCounters counters.Received
	addr, stop := startReceiver(t, dstDir, &recvCounters)
	defer stop()
	host, port := hostPort(t, addr)

	var sentCounters counters.Sent
	sender := NewSender(&sentCounters, &fixedResolver{decision: counters.Skip}, nil)
	err := sender.SendFile(Request{AbsPath: filepath.Join(srcDir, "same.txt"), Root: srcDir}, host, port)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	recvSnap := recvCounters.Snapshot()
	assert.Equal(t, uint64(1), recvSnap.RejectedFiles)
	assert.Zero(t, recvSnap.DataReceived)

	sentSnap := sentCounters.Snapshot()
	assert.Equal(t, uint64(1), sentSnap.ProcessedFiles)
	assert.Zero(t, sentSnap.FailedFiles)
}

func TestResume(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	full := make([]byte, 256*1024)
	for i := range full {
		full[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "big.bin"), full, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dstDir, "big.bin"), full[:100*1024], 0644))

	var recvCounters counters.Received
	addr, stop := startReceiver(t, dstDir, &recvCounters)
	defer stop()
	host, port := hostPort(t, addr)

	var sentCounters counters.Sent
	sender := NewSender(&sentCounters, &fixedResolver{decision: counters.Skip}, nil)
	err := sender.SendFile(Request{AbsPath: filepath.Join(srcDir, "big.bin"), Root: srcDir}, host, port)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	got, err := os.ReadFile(filepath.Join(dstDir, "big.bin"))
	require.NoError(t, err)
	assert.Equal(t, full, got)

	sentSnap := sentCounters.Snapshot()
	assert.Equal(t, uint64(len(full)-100*1024), sentSnap.BytesSent)
}

func TestConflictOverwriteOff(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "doc.txt"), []byte("new contents, different size"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dstDir, "doc.txt"), []byte("old"), 0644))

	var recvCounters counters.Received
	recvCounters.Overwrite.Store(false)
	addr, stop := startReceiver(t, dstDir, &recvCounters)
	defer stop()
	host, port := hostPort(t, addr)

	var sentCounters counters.Sent
	sender := NewSender(&sentCounters, &fixedResolver{decision: counters.Overwrite}, nil)
	err := sender.SendFile(Request{AbsPath: filepath.Join(srcDir, "doc.txt"), Root: srcDir}, host, port)
	assert.ErrorIs(t, err, ErrRejected)

	time.Sleep(50 * time.Millisecond)

	got, err := os.ReadFile(filepath.Join(dstDir, "doc.txt"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))

	assert.Equal(t, uint64(1), sentCounters.Snapshot().FailedFiles)
	assert.Equal(t, uint64(1), recvCounters.Snapshot().RejectedFiles)
}

func TestConflictKeepBoth(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "doc.txt"), []byte("brand new and longer contents"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dstDir, "doc.txt"), []byte("original"), 0644))

	var recvCounters counters.Received
	addr, stop := startReceiver(t, dstDir, &recvCounters)
	defer stop()
	host, port := hostPort(t, addr)

	var sentCounters counters.Sent
	sender := NewSender(&sentCounters, &fixedResolver{decision: counters.KeepBoth}, nil)
	err := sender.SendFile(Request{AbsPath: filepath.Join(srcDir, "doc.txt"), Root: srcDir}, host, port)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	original, err := os.ReadFile(filepath.Join(dstDir, "doc.txt"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(original))

	sibling, err := os.ReadFile(filepath.Join(dstDir, "doc(1).txt"))
	require.NoError(t, err)
	assert.Equal(t, "brand new and longer contents", string(sibling))
}

func TestCancellationMidStream(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	big := make([]byte, 2*1024*1024)
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "huge.bin"), big, 0644))

	var recvCounters counters.Received
	addr, stop := startReceiver(t, dstDir, &recvCounters)
	defer stop()
	host, port := hostPort(t, addr)

	var sentCounters counters.Sent
	sender := NewSender(&sentCounters, &fixedResolver{decision: counters.Skip}, nil)

	go func() {
		time.Sleep(2 * time.Millisecond)
		sentCounters.Canceled.Store(true)
	}()

	err := sender.SendFile(Request{AbsPath: filepath.Join(srcDir, "huge.bin"), Root: srcDir}, host, port)
	assert.ErrorIs(t, err, ErrUserCanceled)
	assert.Equal(t, uint64(1), sentCounters.Snapshot().FailedFiles)
}

func TestSendDirectoryPrefixesBaseName(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "payload")
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "top.txt"), []byte("top"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "sub", "nested.txt"), []byte("nested"), 0644))

	dstDir := t.TempDir()
	var recvCounters counters.Received
	addr, stop := startReceiver(t, dstDir, &recvCounters)
	defer stop()
	host, port := hostPort(t, addr)

	var sentCounters counters.Sent
	sender := NewSender(&sentCounters, &fixedResolver{decision: counters.Skip}, nil)
	errs := sender.SendDirectory(srcDir, host, port)
	assert.Empty(t, errs)

	time.Sleep(50 * time.Millisecond)

	_, err := os.Stat(filepath.Join(dstDir, "payload", "top.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dstDir, "payload", "sub", "nested.txt"))
	assert.NoError(t, err)
}

func TestRoundTripSHA256Matches(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	name := "odd name with spaces & (parens).bin"
	content := make([]byte, 17*1024+3)
	for i := range content {
		content[i] = byte(i*7 + 13)
	}
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, name), content, 0644))

	var recvCounters counters.Received
	addr, stop := startReceiver(t, dstDir, &recvCounters)
	defer stop()
	host, port := hostPort(t, addr)

	var sentCounters counters.Sent
	sender := NewSender(&sentCounters, &fixedResolver{decision: counters.Skip}, nil)
	err := sender.SendFile(Request{AbsPath: filepath.Join(srcDir, name), Root: srcDir}, host, port)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	got, err := os.ReadFile(filepath.Join(dstDir, name))
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256(content), sha256.Sum256(got))
}

func TestNextSiblingNameSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(base, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc(1).txt"), []byte("x"), 0644))

	got := nextSiblingName(base)
	assert.Equal(t, filepath.Join(dir, "doc(2).txt"), got)
}
