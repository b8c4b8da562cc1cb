package engine

import "fmt"

// Severity classifies an operator-facing line.
type Severity string

const (
	SeverityPlain    Severity = ""
	SeveritySuccess  Severity = "success"
	SeverityStatus   Severity = "status"
	SeverityNotice   Severity = "notice"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityInfo     Severity = "info"
	SeverityExecuted Severity = "x"
	SeverityPending  Severity = " "
)

// Output receives operator-facing lines in emission order.
type Output interface {
	Emit(sev Severity, msg string)
}

// OutputFunc adapts a function to Output.
type OutputFunc func(sev Severity, msg string)

// Emit calls f.
func (f OutputFunc) Emit(sev Severity, msg string) { f(sev, msg) }

// Discard drops every line.
var Discard Output = OutputFunc(func(Severity, string) {})

// Line is one recorded Output line.
type Line struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Recorder collects lines in memory.
type Recorder struct {
	Lines []Line
}

// Emit appends a line.
func (r *Recorder) Emit(sev Severity, msg string) {
	r.Lines = append(r.Lines, Line{Severity: sev, Message: msg})
}

// Messages returns the recorded messages of the given severity.
func (r *Recorder) Messages(sev Severity) []string {
	var out []string
	for _, l := range r.Lines {
		if l.Severity == sev {
			out = append(out, l.Message)
		}
	}
	return out
}

// Delimiter frames the output of each runSingle.
const Delimiter = "##############################"

const (
	MsgNothingToExecute = "Nothing to execute."
	MsgEndOfList        = "End of list."
	MsgPreviewAll       = "List of all release instructions:"
	MsgPreviewPending   = "Release instructions to be executed (in order):"
	MsgExecuteFinished  = "Release instruction execution is finished."
	MsgExecuteAllDone   = "Release instructions were executed."
)

func msgRunning(name string) string {
	return fmt.Sprintf("Running %s()", name)
}

func msgExecuted(name string) string {
	return fmt.Sprintf("Release instruction %s() was executed.", name)
}

func msgMissing(name string) string {
	return fmt.Sprintf("Release instruction %s() does not exist.", name)
}

func msgUnpersisted(n int) string {
	return fmt.Sprintf("%d release instruction(s) ran but their status could not be saved; they will run again.", n)
}

func msgFailed(name string) string {
	return fmt.Sprintf("Release instruction %s() failed; remaining instructions were not run.", name)
}
