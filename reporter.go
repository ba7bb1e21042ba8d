package main

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

// terminalReporter shows a spinner while a step runs and a ✓/✗ line when it
// ends.
type terminalReporter struct {
	out io.Writer
	s   *spinner.Spinner
}

func newTerminalReporter(out io.Writer) *terminalReporter {
	return &terminalReporter{
		out: out,
		s:   spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out)),
	}
}

func (r *terminalReporter) Start(msg string) {
	r.s.Suffix = " " + msg
	r.s.Start()
}

func (r *terminalReporter) Done(msg string) {
	r.s.Stop()
	fmt.Fprintf(r.out, "%s %s\n", green("✓"), msg)
}

func (r *terminalReporter) Fail(msg string) {
	r.s.Stop()
	fmt.Fprintf(r.out, "%s %s\n", red("✗"), msg)
}

func (r *terminalReporter) Warn(msg string) {
	r.s.Stop()
	fmt.Fprintf(r.out, "%s %s\n", yellow("!"), msg)
}
