package types

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/journald"
)

// LogDir is where logs end up when journald is not reachable.
var LogDir = "/var/log/kairos/"

// JournalSocket is probed to decide between journald and file logging.
var JournalSocket = "/run/systemd/journal/socket"

// Logger bridges zerolog with the printf style helpers used across the job.
type Logger struct {
	zerolog.Logger
	fileLock *flock.Flock
	logFile  *os.File
	journald bool // Whether we are logging to journald, to avoid the file lock
}

// NewLogger creates a new logger with the given name and level.
// The level defaults to info when it cannot be parsed.
// $NAME_DEBUG and $NAME_TRACE in the environment override the level.
// If quiet is true, nothing is written to the console.
func NewLogger(name, level string, quiet bool) Logger {
	var writers []io.Writer
	var fileLock *flock.Flock
	var logfile *os.File

	useJournald := isJournaldAvailable()
	if useJournald {
		writers = append(writers, journald.NewJournalDWriter())
	} else {
		_ = os.MkdirAll(LogDir, os.ModeDir|os.ModePerm)
		logFileName := filepath.Join(LogDir, fmt.Sprintf("%s.log", name))

		f, err := os.OpenFile(logFileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			logfile = f
			writers = append(writers, zerolog.ConsoleWriter{Out: logfile, TimeFormat: time.RFC3339, NoColor: true})
		}
		fileLock = flock.New(logFileName + ".lock")
	}

	if !quiet {
		writers = append(writers, zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
			w.TimeFormat = time.RFC3339
		}))
	}

	l, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		l = zerolog.InfoLevel
	}
	if os.Getenv(fmt.Sprintf("%s_DEBUG", envName(name))) != "" {
		l = zerolog.DebugLevel
	}
	if os.Getenv(fmt.Sprintf("%s_TRACE", envName(name))) != "" {
		l = zerolog.TraceLevel
	}

	return Logger{
		Logger:   zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Str("job", name).Logger().Level(l),
		fileLock: fileLock,
		logFile:  logfile,
		journald: useJournald,
	}
}

func isJournaldAvailable() bool {
	conn, err := net.Dial("unixgram", JournalSocket)
	if err != nil {
		return false
	}
	defer conn.Close()
	return true
}

// envName turns "zfs-keyfile" into "ZFS_KEYFILE".
func envName(name string) string {
	return strings.ReplaceAll(strings.ToUpper(name), "-", "_")
}

func NewBufferLogger(b *bytes.Buffer) Logger {
	return Logger{
		Logger:   zerolog.New(b).With().Timestamp().Logger(),
		journald: true,
	}
}

func NewNullLogger() Logger {
	return Logger{
		Logger:   zerolog.New(io.Discard).With().Timestamp().Logger(),
		journald: true,
	}
}

// Close releases the log file, if any.
func (m *Logger) Close() {
	if m.logFile != nil {
		m.logFile.Close()
		m.logFile = nil
	}
	if m.fileLock != nil {
		m.fileLock.Unlock() //nolint:errcheck
	}
}

func (m *Logger) SetLevel(level string) {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return
	}
	m.Logger = m.Logger.Level(l)
}

func (m Logger) IsDebug() bool {
	return m.Logger.GetLevel() <= zerolog.DebugLevel
}

// locked runs fn holding the log file lock and returns the pid prefix to use,
// several installer jobs may share the same file.
func (m Logger) locked(fn func(prefix string)) {
	if m.journald || m.fileLock == nil {
		fn("")
		return
	}
	_ = m.fileLock.Lock()
	defer m.fileLock.Unlock() //nolint:errcheck
	fn(fmt.Sprintf("[%v] ", os.Getpid()))
}

func (m Logger) Infof(tpl string, args ...interface{}) {
	m.locked(func(p string) { m.Logger.Info().Msgf(p+tpl, args...) })
}

func (m Logger) Warnf(tpl string, args ...interface{}) {
	m.locked(func(p string) { m.Logger.Warn().Msgf(p+tpl, args...) })
}

func (m Logger) Debugf(tpl string, args ...interface{}) {
	m.locked(func(p string) { m.Logger.Debug().Msgf(p+tpl, args...) })
}

func (m Logger) Errorf(tpl string, args ...interface{}) {
	m.locked(func(p string) { m.Logger.Error().Msgf(p+tpl, args...) })
}

func (m Logger) Tracef(tpl string, args ...interface{}) {
	m.locked(func(p string) { m.Logger.Trace().Msgf(p+tpl, args...) })
}
