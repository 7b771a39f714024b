package stomp

import (
	"fmt"
	"time"

	"github.com/fatih/color"
)

var (
	// NilLogger is an empty or no-op logger.
	NilLogger = Logger((*nilLogger)(nil))

	// StdoutLogger logs to standard output.
	StdoutLogger = Logger(stdoutLogger{})

	// ColorLogger logs to standard output with colored timestamps.
	ColorLogger = Logger(colorLogger{})
)

// Logger is the interface required for logging.
type Logger interface {
	// Infof logs an informational message using a fmt.Sprintf syntax.
	Infof(fmt string, args ...interface{})
}

type nilLogger struct{}

func (l *nilLogger) Infof(f string, args ...interface{}) {}

type stdoutLogger struct{}

func (l stdoutLogger) Infof(f string, args ...interface{}) {
	fmt.Printf(f+"\n", args...)
}

type colorLogger struct{}

func (l colorLogger) Infof(f string, args ...interface{}) {
	fmt.Printf("%s %s\n",
		color.GreenString(time.Now().Format("2006-01-02T15:04:05")),
		color.CyanString(fmt.Sprintf(f, args...)))
}
