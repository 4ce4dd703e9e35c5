// Package logging provides the small leveled-prefix wrapper around the
// standard library's log.Logger that the Router, Shover, and Autorouter are
// injected with. The teacher never pulls in a structured/JSON logging
// library anywhere in the pack, so this stays on the standard library by
// the teacher's own precedent (main.go's log.SetFlags/log.Printf,
// internal/app/state.go's fmt.Printf progress messages).
package logging

import (
	"io"
	"log"
	"os"
)

// Logger prefixes every line with a subsystem tag, e.g. "[route]",
// "[shove]", "[undo]".
type Logger struct {
	tag string
	l   *log.Logger
}

// New creates a Logger writing to w (os.Stderr if w is nil) with the given
// subsystem tag.
func New(tag string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{tag: tag, l: log.New(w, "", log.LstdFlags)}
}

// With returns a Logger over the same writer with a different tag, used
// when one subsystem delegates to another (e.g. Router creating a Shover
// logger from its own).
func (lg *Logger) With(tag string) *Logger {
	return &Logger{tag: tag, l: lg.l}
}

func (lg *Logger) Printf(format string, args ...any) {
	lg.l.Printf("[%s] "+format, append([]any{lg.tag}, args...)...)
}

func (lg *Logger) Println(args ...any) {
	lg.l.Println(append([]any{"[" + lg.tag + "]"}, args...)...)
}

// Discard is a Logger that writes nowhere, for tests and callers that don't
// want route/shove chatter.
func Discard() *Logger {
	return New("discard", io.Discard)
}
