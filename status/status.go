// Basic leveled logging shared by the CLI and the daemon.
//
// Messages go to stderr (if installed) and to an underlying logger (if installed), which is
// normally syslog when running as a daemon.

package status

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"sync"
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
	LogLevelCritical
)

// Implementations of this must be thread-safe.
type Logger interface {
	// Print only messages at level l or above
	SetLevel(l LogLevel)

	// Lower log level at least to l
	LowerLevelTo(l LogLevel)

	// Print on this stream, if installed; nil removes it
	SetStderr(w io.Writer)

	// Print on this underlying (simpler) logger, if installed - often syslog.
	SetUnderlying(w UnderlyingLogger)

	// None of these must exit or panic, the name indicates the log level only.
	Debug(xs ...any)
	Debugf(format string, args ...any)
	Info(xs ...any)
	Infof(format string, args ...any)
	Warning(xs ...any)
	Warningf(format string, args ...any)
	Error(xs ...any)
	Errorf(format string, args ...any)
	Critical(xs ...any)
	Criticalf(format string, args ...any)
}

// log/syslog's *Writer implements UnderlyingLogger.  Must be thread-safe.
type UnderlyingLogger interface {
	Debug(m string) error
	Info(m string) error
	Warning(m string) error
	Err(m string) error
	Crit(m string) error
}

type StandardLogger struct {
	sync.Mutex
	level      LogLevel
	stderr     io.Writer
	underlying UnderlyingLogger
}

// MT: Constant after initialization, thread-safe.
var defaultLogger Logger = New(os.Stderr)

func Default() Logger {
	return defaultLogger
}

// A new logger at level Error writing to stderr.
func New(stderr io.Writer) *StandardLogger {
	return &StandardLogger{
		level:  LogLevelError,
		stderr: stderr,
	}
}

func (sl *StandardLogger) SetLevel(l LogLevel) {
	sl.Lock()
	defer sl.Unlock()

	sl.level = l
}

func (sl *StandardLogger) LowerLevelTo(l LogLevel) {
	sl.Lock()
	defer sl.Unlock()

	if sl.level > l {
		sl.level = l
	}
}

func (sl *StandardLogger) SetStderr(stderr io.Writer) {
	sl.Lock()
	defer sl.Unlock()

	sl.stderr = stderr
}

func (sl *StandardLogger) SetUnderlying(underlying UnderlyingLogger) {
	sl.Lock()
	defer sl.Unlock()

	sl.underlying = underlying
}

func (sl *StandardLogger) emit(l LogLevel, s string) {
	sl.Lock()
	defer sl.Unlock()

	if l < sl.level {
		return
	}
	if sl.stderr != nil {
		fmt.Fprintln(sl.stderr, s)
	}
	if u := sl.underlying; u != nil {
		switch l {
		case LogLevelDebug:
			u.Debug(s)
		case LogLevelInfo:
			u.Info(s)
		case LogLevelWarning:
			u.Warning(s)
		case LogLevelError:
			u.Err(s)
		default:
			u.Crit(s)
		}
	}
}

func (sl *StandardLogger) Debug(xs ...any) { sl.emit(LogLevelDebug, fmt.Sprint(xs...)) }
func (sl *StandardLogger) Debugf(format string, args ...any) {
	sl.emit(LogLevelDebug, fmt.Sprintf(format, args...))
}
func (sl *StandardLogger) Info(xs ...any) { sl.emit(LogLevelInfo, fmt.Sprint(xs...)) }
func (sl *StandardLogger) Infof(format string, args ...any) {
	sl.emit(LogLevelInfo, fmt.Sprintf(format, args...))
}
func (sl *StandardLogger) Warning(xs ...any) { sl.emit(LogLevelWarning, fmt.Sprint(xs...)) }
func (sl *StandardLogger) Warningf(format string, args ...any) {
	sl.emit(LogLevelWarning, fmt.Sprintf(format, args...))
}
func (sl *StandardLogger) Error(xs ...any) { sl.emit(LogLevelError, fmt.Sprint(xs...)) }
func (sl *StandardLogger) Errorf(format string, args ...any) {
	sl.emit(LogLevelError, fmt.Sprintf(format, args...))
}
func (sl *StandardLogger) Critical(xs ...any) { sl.emit(LogLevelCritical, fmt.Sprint(xs...)) }
func (sl *StandardLogger) Criticalf(format string, args ...any) {
	sl.emit(LogLevelCritical, fmt.Sprintf(format, args...))
}

// Attach syslog to the default logger.  The priority given here is a placeholder, every message is
// sent at its own level.
func StartSyslog(logTag string) error {
	logger, err := syslog.New(syslog.LOG_INFO|syslog.LOG_USER, logTag)
	if err != nil {
		return err
	}
	defaultLogger.SetUnderlying(logger)
	return nil
}
