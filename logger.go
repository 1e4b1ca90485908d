package jangkau

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger receives the client's debug output. Implementations must be safe
// for concurrent use. keysAndValues alternate key and value.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// SimpleLogger writes leveled lines through the standard log package.
type SimpleLogger struct {
	l *log.Logger
}

// NewSimpleLogger returns a console logger writing to stderr.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{l: log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)}
}

func (s *SimpleLogger) Debug(msg string, keysAndValues ...any) {
	s.print("DEBUG", msg, keysAndValues)
}

func (s *SimpleLogger) Info(msg string, keysAndValues ...any) {
	s.print("INFO", msg, keysAndValues)
}

func (s *SimpleLogger) Warn(msg string, keysAndValues ...any) {
	s.print("WARN", msg, keysAndValues)
}

func (s *SimpleLogger) Error(msg string, keysAndValues ...any) {
	s.print("ERROR", msg, keysAndValues)
}

func (s *SimpleLogger) print(level, msg string, kv []any) {
	var sb strings.Builder
	sb.WriteString(level)
	sb.WriteByte(' ')
	sb.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", kv[i], kv[i+1])
	}
	if len(kv)%2 == 1 {
		fmt.Fprintf(&sb, " %v", kv[len(kv)-1])
	}
	s.l.Print(sb.String())
}

// ZerologLogger adapts a zerolog.Logger to the Logger interface for
// applications already standardized on structured zerolog output.
type ZerologLogger struct {
	l zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog logger.
func NewZerologLogger(l zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{l: l}
}

func (z *ZerologLogger) Debug(msg string, keysAndValues ...any) {
	z.emit(z.l.Debug(), msg, keysAndValues)
}

func (z *ZerologLogger) Info(msg string, keysAndValues ...any) {
	z.emit(z.l.Info(), msg, keysAndValues)
}

func (z *ZerologLogger) Warn(msg string, keysAndValues ...any) {
	z.emit(z.l.Warn(), msg, keysAndValues)
}

func (z *ZerologLogger) Error(msg string, keysAndValues ...any) {
	z.emit(z.l.Error(), msg, keysAndValues)
}

func (z *ZerologLogger) emit(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		ev = ev.Interface(fmt.Sprint(kv[i]), kv[i+1])
	}
	ev.Msg(msg)
}

// DebugConfig selects which client areas emit debug logs and how request
// IDs are generated.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogCache     bool
	LogDedupe    bool
	LogPolls     bool
	LogRetries   bool
	LogRateLimit bool
	RequestIDGen func() string
}

// DefaultDebugConfig selects every area with UUID request IDs but leaves
// logging off until WithDebug switches it on.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		LogRequests:  true,
		LogCache:     true,
		LogDedupe:    true,
		LogPolls:     true,
		LogRetries:   true,
		LogRateLimit: true,
		RequestIDGen: uuid.NewString,
	}
}
