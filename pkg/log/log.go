// Package log is a leveled logger. Each entry carries a timestamp, a short
// level tag and the file:line of the call, and message text is only built
// when the level is being printed.
package log

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
)

type Level int32

const (
	Off Level = iota
	Error
	Warn
	Info
	Debug
	Trace
)

// LvlStr holds the names accepted by SetLevelString.
var LvlStr = map[Level]string{
	Off:   "off",
	Error: "error",
	Warn:  "warn",
	Info:  "info",
	Debug: "debug",
	Trace: "trace",
}

var tags = map[Level]string{
	Error: "ERR",
	Warn:  "WRN",
	Info:  "INF",
	Debug: "DBG",
	Trace: "TRC",
}

var (
	writer   io.Writer = os.Stderr
	writerMx sync.Mutex
	logLevel = Info
)

type (
	// LevelPrinter prints at one level.
	LevelPrinter struct {
		Ln func(a ...any)
		F  func(format string, a ...any)
		// S dumps its arguments with spew, a leading string becomes the
		// heading.
		S func(a ...any)
		// Chk logs a non-nil error and reports whether there was one.
		Chk func(e error) bool
	}
	Logger struct {
		E, W, I, D, T LevelPrinter
	}
	// Checker is the set of error checkers for each level, so call sites can
	// write `if chk.E(err) { return }`.
	Checker struct {
		E, W, I, D, T func(e error) bool
	}
)

// GetStd returns the standard logger and the matching error checkers.
func GetStd() (l *Logger, c *Checker) {
	l = GetLogger()
	c = &Checker{E: l.E.Chk, W: l.W.Chk, I: l.I.Chk, D: l.D.Chk, T: l.T.Chk}
	return
}

func GetLogger() *Logger {
	return &Logger{
		E: printer(Error),
		W: printer(Warn),
		I: printer(Info),
		D: printer(Debug),
		T: printer(Trace),
	}
}

// Fail logs a non-nil error at debug level and reports whether it was non-nil.
func (l *Logger) Fail(e error) bool { return l.D.Chk(e) }

func SetLogLevel(l Level) {
	writerMx.Lock()
	defer writerMx.Unlock()
	logLevel = l
}

// SetLevelString sets the level from one of the LvlStr names, unknown names
// are ignored and reported as false.
func SetLevelString(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for lvl, name := range LvlStr {
		if name == s {
			SetLogLevel(lvl)
			return true
		}
	}
	return false
}

func GetLogLevel() (l Level) {
	writerMx.Lock()
	defer writerMx.Unlock()
	l = logLevel
	return
}

func SetWriter(w io.Writer) {
	writerMx.Lock()
	defer writerMx.Unlock()
	writer = w
}

func printer(level Level) LevelPrinter {
	return LevelPrinter{
		Ln: func(a ...any) {
			emit(level, func() string { return unquote(fmt.Sprintln(a...)) })
		},
		F: func(format string, a ...any) {
			emit(level, func() string { return fmt.Sprintf(format, a...) })
		},
		S: func(a ...any) {
			emit(level, func() string {
				head := "spew:"
				if len(a) > 0 {
					if s, ok := a[0].(string); ok {
						head, a = strings.TrimSpace(s), a[1:]
					}
				}
				return unquote(head + "\n" + spew.Sdump(a...))
			})
		},
		Chk: func(e error) bool {
			if e == nil {
				return false
			}
			emit(level, func() string { return "CHECK: " + e.Error() })
			return true
		},
	}
}

// unquote keeps message text from closing the backtick quoting of an entry.
func unquote(s string) string {
	return strings.ReplaceAll(strings.TrimSuffix(s, "\n"), "`", "'")
}

const stamp = "2006-01-02T15:04:05.000000"

// emit writes one entry. The call site is two frames above emit, past the
// printer closure.
func emit(level Level, text func() string) {
	writerMx.Lock()
	defer writerMx.Unlock()
	if level > logLevel {
		return
	}
	_, file, line, _ := runtime.Caller(2)
	fmt.Fprintf(writer, "%s %s `%s` %s:%d\n",
		time.Now().Format(stamp), tags[level], text(), file, line)
}
