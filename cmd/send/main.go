// Command send is the CLI surface for the sender engine (spec.md §6):
// positional "send", --host and --port required, and exactly one of
// --files or --dir.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/qcent/lanxfer/internal/config"
	"github.com/qcent/lanxfer/internal/conflict"
	"github.com/qcent/lanxfer/internal/counters"
	"github.com/qcent/lanxfer/internal/logging"
	"github.com/qcent/lanxfer/internal/transfer"
)

type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }
func (f *fileList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: send --host <host> --port <port> (--files <path>... | --dir <path>)")
}

func main() {
	if len(os.Args) < 2 || os.Args[1] != "send" {
		usage()
		os.Exit(2)
	}

	fs := flag.NewFlagSet("send", flag.ExitOnError)
	host := fs.String("host", "", "receiver host/IP (required)")
	port := fs.Int("port", 0, "receiver TCP port (required)")
	dir := fs.String("dir", "", "directory to send, recursively")
	var files fileList
	fs.Var(&files, "files", "a file to send; repeatable")
	fs.Parse(os.Args[2:])

	if *host == "" || *port == 0 {
		usage()
		os.Exit(2)
	}
	if err := config.ValidateHost(*host); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if (len(files) == 0) == (*dir == "") {
		fmt.Fprintln(os.Stderr, "send: exactly one of --files or --dir is required")
		usage()
		os.Exit(2)
	}

	log := logging.New(os.Stdout, logging.Info)
	var sentCounters counters.Sent
	resolver := conflict.NewConsoleResolver(os.Stdin, os.Stdout)
	sender := transfer.NewSender(&sentCounters, resolver, log)

	var errs []error
	if *dir != "" {
		errs = sender.SendDirectory(*dir, *host, *port)
	} else {
		for _, path := range files {
			info, err := os.Stat(path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			req := transfer.Request{AbsPath: path, Root: dirOrSelf(path, info.IsDir())}
			if err := sender.SendFile(req, *host, *port); err != nil {
				errs = append(errs, err)
			}
		}
	}

	snap := sentCounters.Snapshot()
	log.Info("done: processed=%d failed=%d sent=%s", snap.ProcessedFiles, snap.FailedFiles, counters.FormatBytes(float64(snap.BytesSent)))

	if len(errs) > 0 {
		for _, err := range errs {
			log.Error("%v", err)
		}
		os.Exit(1)
	}
	os.Exit(0)
}

// dirOrSelf returns the directory a single file's relative path should be
// computed against: its own parent, so RelPath() yields just the basename.
func dirOrSelf(path string, isDir bool) string {
	if isDir {
		return path
	}
	return parentDir(path)
}

func parentDir(path string) string {
	idx := strings.LastIndexAny(path, `/\`)
	if idx < 0 {
		return "."
	}
	return path[:idx]
}
