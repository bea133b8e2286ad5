// Package console keeps the bounded command history and output of the
// workspace console. Both lists are newest first.
package console

import "strings"

// Default bounds.
const (
	DefaultMaxHistory     = 20
	DefaultMaxOutputLines = 120
)

// Buffer holds console history and output.
type Buffer struct {
	history    []string
	output     []string
	maxHistory int
	maxOutput  int
	printed    uint64
}

// NewBuffer returns an empty buffer. Non-positive bounds use the defaults.
func NewBuffer(maxHistory, maxOutput int) *Buffer {
	b := &Buffer{}
	b.SetLimits(maxHistory, maxOutput)
	return b
}

// SetLimits changes the bounds, trimming what no longer fits.
func (b *Buffer) SetLimits(maxHistory, maxOutput int) {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputLines
	}
	b.maxHistory, b.maxOutput = maxHistory, maxOutput
	b.history = bound(b.history, maxHistory)
	b.output = bound(b.output, maxOutput)
}

// Record adds a command to the history. Blank commands are ignored.
func (b *Buffer) Record(command string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return
	}
	b.history = bound(prepend(b.history, command), b.maxHistory)
}

// Print adds an output line.
func (b *Buffer) Print(line string) {
	b.output = bound(prepend(b.output, line), b.maxOutput)
	b.printed++
}

// Printed counts every line ever printed. It survives Clear and Reset, so a
// reader can tell how many lines are new since it last looked.
func (b *Buffer) Printed() uint64 {
	return b.printed
}

// Clear drops all output. History is kept.
func (b *Buffer) Clear() {
	b.output = nil
}

// Reset drops history and output.
func (b *Buffer) Reset() {
	b.history = nil
	b.output = nil
}

// History returns the recorded commands, newest first.
func (b *Buffer) History() []string {
	return append([]string(nil), b.history...)
}

// Output returns the output lines, newest first.
func (b *Buffer) Output() []string {
	return append([]string(nil), b.output...)
}

func prepend(list []string, s string) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, s)
	return append(out, list...)
}

func bound(list []string, max int) []string {
	if len(list) > max {
		return list[:max]
	}
	return list
}
