// Package report renders check results in the Sensu/Nagios plugin
// convention: one "<name> <STATUS>: <message>" line on stdout and an exit
// code derived from the status.
package report

import (
    "fmt"
    "io"
    "os"
    "strings"
)

// Status is a plugin result level; its value is the process exit code.
type Status int

const (
    OK       Status = 0
    Warning  Status = 1
    Critical Status = 2
    Unknown  Status = 3
)

func (s Status) String() string {
    switch s {
    case OK:
        return "OK"
    case Warning:
        return "WARNING"
    case Critical:
        return "CRITICAL"
    default:
        return "UNKNOWN"
    }
}

// Reporter writes result lines for a named check.
type Reporter struct {
    Name string
    Out  io.Writer
}

// New returns a Reporter writing to out (stdout when nil).
func New(name string, out io.Writer) Reporter {
    if out == nil { out = os.Stdout }
    return Reporter{Name: name, Out: out}
}

// Report writes one result line and returns the matching exit code. The
// message is collapsed to a single line.
func (r Reporter) Report(s Status, msg string) int {
    msg = strings.Join(strings.Fields(msg), " ")
    if r.Name != "" {
        fmt.Fprintf(r.Out, "%s %s: %s\n", r.Name, s, msg)
    } else {
        fmt.Fprintf(r.Out, "%s: %s\n", s, msg)
    }
    return int(s)
}

// ExitError carries a non-zero exit code out of a command after its result
// line has already been reported.
type ExitError struct {
    Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }
