// Package conflict resolves name collisions the receiver surfaces during
// the DIFF_FILE handshake (spec.md §4.E, §4.F): a console prompt for the
// CLI front-ends, and a polling bridge to the counters.Slot for the GUI
// front-ends.
package conflict

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/qcent/lanxfer/internal/counters"
)

// Resolver decides what to do about a file that already exists at the
// destination with contents that differ from the incoming one.
type Resolver interface {
	Resolve(name string, remoteSize, localSize uint64) (counters.Decision, error)
}

// ConsoleResolver prompts on the given reader/writer, grounded on
// original_source/fileTransfer.py's interactive overwrite prompt.
type ConsoleResolver struct {
	In  io.Reader
	Out io.Writer
}

// NewConsoleResolver builds a ConsoleResolver bound to stdin/stdout-style streams.
func NewConsoleResolver(in io.Reader, out io.Writer) *ConsoleResolver {
	return &ConsoleResolver{In: in, Out: out}
}

// Resolve asks the operator to choose overwrite, keep-both, or skip.
func (c *ConsoleResolver) Resolve(name string, remoteSize, localSize uint64) (counters.Decision, error) {
	reader := bufio.NewReader(c.In)
	for {
		fmt.Fprintf(c.Out, "%s already exists (local %d bytes, incoming %d bytes). [O]verwrite / keep [B]oth / [S]kip? ", name, localSize, remoteSize)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return counters.Skip, err
		}
		switch firstRune(line) {
		case 'o', 'O':
			return counters.Overwrite, nil
		case 'b', 'B':
			return counters.KeepBoth, nil
		case 's', 'S':
			return counters.Skip, nil
		}
		fmt.Fprintln(c.Out, "please answer O, B, or S")
	}
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

// UIResolver bridges a GUI front-end's conflict dialog to the sender
// engine via the shared counters.Slot (spec.md §3 "Conflict slot").
// The engine calls Resolve from its own goroutine; a UI goroutine
// observes Pending() and calls Answer once the user responds.
type UIResolver struct {
	Slot         *counters.Slot
	PollInterval time.Duration // must stay <= 1s per spec.md §5 cancellation granularity
	Canceled     func() bool
}

// NewUIResolver builds a UIResolver polling at least 3 times per second.
func NewUIResolver(slot *counters.Slot, canceled func() bool) *UIResolver {
	return &UIResolver{Slot: slot, PollInterval: 300 * time.Millisecond, Canceled: canceled}
}

// Resolve publishes the conflict and polls until the UI answers or the
// transfer is canceled, in which case it returns Skip.
func (u *UIResolver) Resolve(name string, remoteSize, localSize uint64) (counters.Decision, error) {
	u.Slot.Ask(counters.ConflictInfo{Name: name, RemoteSize: remoteSize, LocalSize: localSize})

	interval := u.PollInterval
	if interval <= 0 {
		interval = 300 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if decision, ok := u.Slot.Poll(); ok {
			return decision, nil
		}
		if u.Canceled != nil && u.Canceled() {
			return counters.Skip, nil
		}
		<-ticker.C
	}
}
