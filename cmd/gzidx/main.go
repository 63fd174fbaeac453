// Command gzidx builds and queries gzip random-access sidecar indexes
// (spec.md §6, the command-line driver external collaborator).
package main

import (
	"fmt"
	"os"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/urfave/cli/v2"

	"github.com/coreos/gzidx"
)

func main() {
	app := &cli.App{
		Name:  "gzidx",
		Usage: "random access into gzip streams via a prebuilt index",
		Commands: []*cli.Command{
			buildCommand,
			extractCommand,
			inspectCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		reportFatal(err)
		os.Exit(1)
	}
}

// reportFatal prints the top-level error to stderr, and mirrors it to the
// systemd journal when gzidx is running under a systemd unit (JOURNAL_STREAM
// set), so a build invoked from a oneshot service shows up in `journalctl`
// without extra plumbing.
func reportFatal(err error) {
	msg := fmt.Sprintf("gzidx: %s (%s)", err, gzidx.KindOf(err))
	fmt.Fprintln(os.Stderr, msg)
	if journalEnabled() {
		_ = journal.Send(msg, journal.PriErr, nil)
	}
}

func journalEnabled() bool {
	return os.Getenv("JOURNAL_STREAM") != ""
}
