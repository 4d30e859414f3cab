// Copyright 2024 The ProbeChain Authors
// This file is part of the ijvm library.
//
// The ijvm library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ijvm library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ijvm library. If not, see <http://www.gnu.org/licenses/>.

// Package log provides structured, leveled logging for the cmd/ijvm CLI:
// call-site context via go-stack, colorized terminal output when attached
// to a tty, and plain key=value output otherwise.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level is a logging severity.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "?????"
	}
}

// ParseLevel maps a config/flag string ("error", "warn" or "warning",
// "info", "debug", case-insensitive) to a Level. It reports false for
// anything else.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(s) {
	case "error":
		return LevelError, true
	case "warn", "warning":
		return LevelWarn, true
	case "info":
		return LevelInfo, true
	case "debug":
		return LevelDebug, true
	default:
		return 0, false
	}
}

var levelColor = map[Level]color.Attribute{
	LevelError: color.FgRed,
	LevelWarn:  color.FgYellow,
	LevelInfo:  color.FgGreen,
	LevelDebug: color.FgBlue,
}

// Logger emits leveled, key=value structured log lines, in the style the
// command-line tool uses for run/disasm/step diagnostics.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	level    Level
}

// New builds a Logger writing to w at the given maximum level. Color is
// enabled automatically when w is a terminal.
func New(w io.Writer, level Level) *Logger {
	colorize := false
	if f, ok := w.(*os.File); ok {
		colorize = isatty.IsTerminal(f.Fd())
		if colorize {
			w = colorable.NewColorable(f)
		}
	}
	return &Logger{out: w, colorize: colorize, level: level}
}

// Root is the package-level default logger, writing to stderr at LevelInfo.
var Root = New(os.Stderr, LevelInfo)

func Error(msg string, ctx ...interface{}) { Root.log(LevelError, msg, ctx) }
func Warn(msg string, ctx ...interface{})  { Root.log(LevelWarn, msg, ctx) }
func Info(msg string, ctx ...interface{})  { Root.log(LevelInfo, msg, ctx) }
func Debug(msg string, ctx ...interface{}) { Root.log(LevelDebug, msg, ctx) }

func (l *Logger) log(lvl Level, msg string, ctx []interface{}) {
	if lvl > l.level {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02T15:04:05.000"))
	b.WriteByte(' ')

	levelStr := fmt.Sprintf("[%-5s]", lvl.String())
	if l.colorize {
		levelStr = color.New(levelColor[lvl]).Sprint(levelStr)
	}
	b.WriteString(levelStr)
	b.WriteByte(' ')
	b.WriteString(msg)

	for i := 0; i+1 < len(ctx); i += 2 {
		fmt.Fprintf(&b, " %v=%v", ctx[i], ctx[i+1])
	}
	if caller, ok := callSite(); ok {
		fmt.Fprintf(&b, " caller=%s", caller)
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, b.String())
}

// callSite returns the file:line of the first frame outside this package,
// for attaching to every log line.
func callSite() (string, bool) {
	trace := stack.Trace().TrimRuntime()
	for _, c := range trace {
		s := fmt.Sprintf("%+v", c)
		if !strings.Contains(s, "internal/log/log.go") {
			return s, true
		}
	}
	return "", false
}
