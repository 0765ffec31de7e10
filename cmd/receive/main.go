// Command receive is the CLI surface for the receiver engine
// (spec.md §6): positional "receive", --savedir and --port required,
// --overwrite optional.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qcent/lanxfer/internal/config"
	"github.com/qcent/lanxfer/internal/counters"
	"github.com/qcent/lanxfer/internal/discovery"
	"github.com/qcent/lanxfer/internal/logging"
	"github.com/qcent/lanxfer/internal/transfer"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: receive --savedir <dir> --port <port> [--overwrite]")
}

func main() {
	if len(os.Args) < 2 || os.Args[1] != "receive" {
		usage()
		os.Exit(2)
	}

	fs := flag.NewFlagSet("receive", flag.ExitOnError)
	saveDir := fs.String("savedir", "", "directory to write received files into (required)")
	port := fs.Int("port", 0, "TCP service port to listen on (required)")
	overwrite := fs.Bool("overwrite", false, "allow overwriting files whose content differs")
	fs.Parse(os.Args[2:])

	if *saveDir == "" || *port == 0 {
		usage()
		os.Exit(2)
	}
	if err := config.ValidatePort(fmt.Sprint(*port)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logging.New(os.Stdout, logging.Info)

	var recvCounters counters.Received
	recvCounters.Overwrite.Store(*overwrite)
	recvCounters.InProgress.Store(true)

	ln, err := net.ListenTCP("tcp", &net.TCPAddr{Port: *port})
	if err != nil {
		log.Fatal("listen on port %d: %v", *port, err)
	}

	disco := &discovery.Server{ServicePort: *port}
	if err := disco.Start(); err != nil {
		log.Warn("discovery server did not start: %v", err)
	} else {
		defer disco.Stop()
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Info("shutting down")
		recvCounters.Canceled.Store(true)
		ln.Close()
	}()

	go reportProgress(&recvCounters, log)

	log.Info("receiving into %s on port %d (overwrite=%t)", *saveDir, *port, *overwrite)
	receiver := transfer.NewReceiver(*saveDir, &recvCounters, log)
	if err := receiver.Serve(ln); err != nil {
		log.Error("receiver stopped: %v", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// reportProgress mirrors the ≈3Hz stats auto-updater from spec.md §5.
func reportProgress(c *counters.Received, log *logging.Logger) {
	ticker := time.NewTicker(333 * time.Millisecond)
	defer ticker.Stop()
	var lastReceived uint64
	for range ticker.C {
		snap := c.Snapshot()
		if snap.Canceled {
			return
		}
		if snap.ReceivedFiles != lastReceived {
			lastReceived = snap.ReceivedFiles
			log.Info("received=%d rejected=%d failed=%d data=%s",
				snap.ReceivedFiles, snap.RejectedFiles, snap.FailedFiles, counters.FormatBytes(float64(snap.DataReceived)))
		}
	}
}
