// Package output writes the line-oriented console output of extsort.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

const (
	ansiYellow = "\033[33m"
	ansiReset  = "\033[0m"
)

// Config holds output configuration.
type Config struct {
	Verbose   bool      // Enable verbose output
	Writer    io.Writer // Output destination (default: os.Stdout)
	ErrWriter io.Writer // Error output destination (default: os.Stderr)
	IsTTY     bool      // Whether output is a terminal
}

// Output handles formatted console output. It is safe for concurrent use so
// watch mode can report from its event goroutine.
type Output struct {
	config Config
	mu     sync.Mutex
}

// New creates a new Output instance with the given configuration.
func New(config Config) *Output {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ErrWriter == nil {
		config.ErrWriter = os.Stderr
	}
	return &Output{
		config: config,
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Discard returns an Output that drops everything.
func Discard() *Output {
	return New(Config{Writer: io.Discard, ErrWriter: io.Discard})
}

// Verbose prints a message only when verbose mode is enabled.
func (o *Output) Verbose(format string, args ...interface{}) {
	if !o.config.Verbose {
		return
	}
	o.write(o.config.Writer, format, args...)
}

// Info prints an informational message (always shown).
func (o *Output) Info(format string, args ...interface{}) {
	o.write(o.config.Writer, format, args...)
}

// Notice prints a message that should stand out, highlighted on a terminal.
func (o *Output) Notice(format string, args ...interface{}) {
	if !o.config.IsTTY {
		o.write(o.config.Writer, format, args...)
		return
	}
	o.write(o.config.Writer, ansiYellow+strings.TrimSuffix(format, "\n")+ansiReset, args...)
}

// Error prints an error message to stderr.
func (o *Output) Error(format string, args ...interface{}) {
	o.write(o.config.ErrWriter, format, args...)
}

func (o *Output) write(w io.Writer, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprint(w, msg)
}
