package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Diagnostics receives the errors and warnings found while parsing.
type Diagnostics interface {
	Error(span Span, msg string)
	Warn(span Span, msg string)
}

type Level int

const (
	LevelError Level = iota
	LevelWarn
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warning"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

type Diagnostic struct {
	Level   Level
	Span    Span
	Message string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Span, d.Level, d.Message)
}

// Render writes d the way a compiler would, followed by the offending
// source line with the span underlined.
func (d Diagnostic) Render(w io.Writer, filename string, src string) error {
	if _, err := fmt.Fprintf(w, "%s:%s: %s: %s\n", filename, d.Span.Start, d.Level, d.Message); err != nil {
		return err
	}

	if d.Span.Start.Line < 1 || d.Span.Start.Offset > len(src) {
		return nil
	}

	lineStart := strings.LastIndexByte(src[:d.Span.Start.Offset], '\n') + 1
	lineEnd := strings.IndexByte(src[lineStart:], '\n')
	if lineEnd < 0 {
		lineEnd = len(src)
	} else {
		lineEnd += lineStart
	}
	line := src[lineStart:lineEnd]

	width := 1
	if end := min(d.Span.End.Offset, lineEnd); end > d.Span.Start.Offset {
		width = utf8.RuneCountInString(src[d.Span.Start.Offset:end])
	}

	gutter := fmt.Sprintf("%d", d.Span.Start.Line)
	pad := strings.Repeat(" ", len(gutter))
	_, err := fmt.Fprintf(w, "%s |\n%s | %s\n%s | %s%s\n",
		pad,
		gutter, line,
		pad, strings.Repeat(" ", d.Span.Start.Col-1), strings.Repeat("^", width))
	return err
}

// DiagnosticList collects diagnostics in the order they were reported.
type DiagnosticList struct {
	Diagnostics []Diagnostic
}

func (l *DiagnosticList) Error(span Span, msg string) {
	l.Diagnostics = append(l.Diagnostics, Diagnostic{Level: LevelError, Span: span, Message: msg})
}

func (l *DiagnosticList) Warn(span Span, msg string) {
	l.Diagnostics = append(l.Diagnostics, Diagnostic{Level: LevelWarn, Span: span, Message: msg})
}

func (l *DiagnosticList) HasErrors() bool {
	for _, d := range l.Diagnostics {
		if d.Level == LevelError {
			return true
		}
	}
	return false
}

// Err joins the error level diagnostics, or returns nil if there are none.
func (l *DiagnosticList) Err() error {
	var errs []error
	for _, d := range l.Diagnostics {
		if d.Level == LevelError {
			errs = append(errs, d)
		}
	}
	return errors.Join(errs...)
}

// SlogDiagnostics logs diagnostics through a structured logger. With Level
// set, every diagnostic is logged at that level and carries its own level as
// a severity attribute.
type SlogDiagnostics struct {
	Logger *slog.Logger
	Level  slog.Leveler
}

func (s SlogDiagnostics) Error(span Span, msg string) {
	s.log(LevelError, span, msg)
}

func (s SlogDiagnostics) Warn(span Span, msg string) {
	s.log(LevelWarn, span, msg)
}

func (s SlogDiagnostics) log(level Level, span Span, msg string) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	args := []any{"line", span.Start.Line, "col", span.Start.Col}
	if s.Level == nil {
		logger.Log(context.TODO(), slogLevels[level], msg, args...)
		return
	}

	logger.Log(context.TODO(), s.Level.Level(), msg, append(args, "severity", level.String())...)
}

var slogLevels = map[Level]slog.Level{
	LevelError: slog.LevelError,
	LevelWarn:  slog.LevelWarn,
}

// Tee reports every diagnostic to each of sinks in turn.
func Tee(sinks ...Diagnostics) Diagnostics {
	return tee(sinks)
}

type tee []Diagnostics

func (t tee) Error(span Span, msg string) {
	for _, d := range t {
		d.Error(span, msg)
	}
}

func (t tee) Warn(span Span, msg string) {
	for _, d := range t {
		d.Warn(span, msg)
	}
}
