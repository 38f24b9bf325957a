// Package diagnostics is the compiler's single append-only, single-writer
// diagnostic collector (spec.md §5). It distinguishes user-visible
// diagnostics, which the front end (lexer/parser/resolver) reports before
// the driver ever enters the core pipeline, from core contract violations,
// which are bugs (spec.md §7) and are raised as panics recovered at the
// stage boundary in internal/driver.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

type Level string

const (
	Error   Level = "error"
	Warning Level = "warning"
	Note    Level = "note"
)

// Position is a minimal, front-end-agnostic source location.
type Position struct {
	Filename string
	Line     int
	Column   int
}

// Diagnostic is one reported user-visible problem.
type Diagnostic struct {
	Level    Level
	Message  string
	Position Position
}

// Collector accumulates diagnostics for one compilation. It is append-only
// and meant to be owned by a single goroutine, matching the single-threaded
// synchronous model of spec.md §5.
type Collector struct {
	filename    string
	source      string
	diagnostics []Diagnostic
}

func NewCollector(filename, source string) *Collector {
	return &Collector{filename: filename, source: source}
}

func (c *Collector) Report(level Level, pos Position, format string, args ...interface{}) {
	c.diagnostics = append(c.diagnostics, Diagnostic{
		Level:    level,
		Message:  fmt.Sprintf(format, args...),
		Position: pos,
	})
}

func (c *Collector) HasErrors() bool {
	for _, d := range c.diagnostics {
		if d.Level == Error {
			return true
		}
	}
	return false
}

func (c *Collector) All() []Diagnostic { return c.diagnostics }

// Render prints every diagnostic in a caret-annotated form in the style of
// the teacher's reportParseError, colored by severity.
func (c *Collector) Render() string {
	var b strings.Builder
	lines := strings.Split(c.source, "\n")
	for _, d := range c.diagnostics {
		levelColor := color.New(color.FgRed)
		if d.Level == Warning {
			levelColor = color.New(color.FgYellow)
		} else if d.Level == Note {
			levelColor = color.New(color.FgCyan)
		}
		b.WriteString(levelColor.Sprintf("%s", string(d.Level)))
		b.WriteString(fmt.Sprintf(": %s\n", d.Message))
		b.WriteString(fmt.Sprintf("  --> %s:%d:%d\n", d.Position.Filename, d.Position.Line, d.Position.Column))
		if d.Position.Line > 0 && d.Position.Line <= len(lines) {
			line := lines[d.Position.Line-1]
			b.WriteString(fmt.Sprintf("  %s\n", line))
			if d.Position.Column > 0 {
				b.WriteString("  " + strings.Repeat(" ", d.Position.Column-1) + color.HiRedString("^") + "\n")
			}
		}
	}
	return b.String()
}

// BugError is a core contract violation: spec.md §7 requires the core to
// fail fast naming the function and instruction responsible. Stages panic
// with a BugError; internal/driver recovers it at the stage boundary and
// returns it as Compile's error instead of a partial result.
type BugError struct {
	Function    string
	Instruction string
	Reason      string
}

func (e *BugError) Error() string {
	if e.Instruction != "" {
		return fmt.Sprintf("compiler bug in function %q at instruction %q: %s", e.Function, e.Instruction, e.Reason)
	}
	return fmt.Sprintf("compiler bug in function %q: %s", e.Function, e.Reason)
}

// Bug panics with a BugError wrapped by github.com/pkg/errors so a
// recovered panic retains a stack trace pointing at the violating pass.
func Bug(function, instruction, reason string, args ...interface{}) {
	panic(errors.WithStack(&BugError{
		Function:    function,
		Instruction: instruction,
		Reason:      fmt.Sprintf(reason, args...),
	}))
}

// SpillExhausted signals the back-end resource exhaustion case of spec.md
// §7: a spill rewrite could not make progress.
type SpillExhausted struct {
	Variable string
}

func (e *SpillExhausted) Error() string {
	return fmt.Sprintf("register allocation could not make progress spilling %q", e.Variable)
}
