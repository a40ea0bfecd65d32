// Package anlog ports the teacher's ILogger/ILoggerCloser abstraction
// (azcopy's common/logger.go) to this domain, backed by logrus instead
// of a bare *log.Logger so that structured fields (tag, session, job
// id, fingerprint) survive into the rotating log file as key=value
// pairs rather than ad hoc Sprintf text.
package anlog

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Level mirrors the teacher's LogLevel ordering: lower is more severe.
type Level int

const (
	LevelNone Level = iota
	LevelPanic
	LevelError
	LevelWarning
	LevelInfo
	LevelDebug
)

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case LevelPanic:
		return logrus.PanicLevel
	case LevelError:
		return logrus.ErrorLevel
	case LevelWarning:
		return logrus.WarnLevel
	case LevelInfo:
		return logrus.InfoLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger is the interface every component in this module logs through.
// Calls must be safe under concurrent use from many goroutines.
type Logger interface {
	ShouldLog(level Level) bool
	Log(level Level, msg string, fields ...Field)
	Panic(err error)
}

// LoggerCloser additionally owns a file and can be torn down.
type LoggerCloser interface {
	Logger
	Close() error
}

// Field is a single structured key/value attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

func F(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// fileLogger is the concrete implementation: a logrus.Logger writing
// JSON-ish text lines through an io.WriteCloser supplied by the
// caller (normally a rotating writer, see rotate.go).
type fileLogger struct {
	mu       sync.Mutex
	minLevel Level
	entry    *logrus.Entry
	closer   io.Closer
}

// New builds a LoggerCloser that writes to w at minLevel. component is
// attached to every line (e.g. "protocol", "cache", "hashing").
func New(w io.WriteCloser, minLevel Level, component string) LoggerCloser {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(minLevel.logrusLevel())
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
	})
	base := l.WithFields(logrus.Fields{
		"component": component,
		"goos":      runtime.GOOS,
	})
	return &fileLogger{minLevel: minLevel, entry: base, closer: w}
}

func (fl *fileLogger) ShouldLog(level Level) bool {
	if level == LevelNone {
		return false
	}
	return level <= fl.minLevel
}

func (fl *fileLogger) Log(level Level, msg string, fields ...Field) {
	if !fl.ShouldLog(level) {
		return
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()

	lf := make(logrus.Fields, len(fields))
	for _, f := range fields {
		lf[f.Key] = f.Value
	}
	fl.entry.WithFields(lf).Log(level.logrusLevel(), msg)
}

func (fl *fileLogger) Panic(err error) {
	fl.Log(LevelPanic, fmt.Sprintf("panic: %v", err))
	panic(err)
}

func (fl *fileLogger) Close() error {
	if fl.closer != nil {
		return fl.closer.Close()
	}
	return nil
}

// Nop is a Logger that discards everything; the default used wherever
// a caller does not supply one, matching the teacher's "default
// implementation is a no-op" convention for optional collaborators.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) ShouldLog(Level) bool            { return false }
func (nopLogger) Log(Level, string, ...Field)     {}
func (nopLogger) Panic(err error)                 { panic(err) }
