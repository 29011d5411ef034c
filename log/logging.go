// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tevino/abool"
)

// concept
/*
- Logging function:
  - check if level is active
  - send data to backend via big buffered channel
- Backend:
  - wait until there is something to write
  - write logs
  - console: write everything to the configured output
- Channel overbuffering protection:
  - if buffer is full, the line is dropped and counted
- Anti-Importing-Loop:
  - everything imports logging
  - logging imports nothing from this module
*/

// Severity describes a log level.
type Severity uint32

type logLine struct {
	msg       string
	tracer    *ContextTracer
	level     Severity
	timestamp time.Time
	file      string
	line      int
}

// Log Levels.
const (
	TraceLevel    Severity = 1
	DebugLevel    Severity = 2
	InfoLevel     Severity = 3
	WarningLevel  Severity = 4
	ErrorLevel    Severity = 5
	CriticalLevel Severity = 6
)

var (
	logBuffer   chan *logLine
	output      io.Writer = os.Stdout
	outputLock  sync.Mutex
	dropped     atomic.Uint64
	logLevelInt = uint32(InfoLevel)
	logLevel    = &logLevelInt

	started      = abool.NewBool(false)
	shutdownSig  chan struct{}
	writerExited chan struct{}

	// ErrAlreadyStarted is returned by Start if logging is running.
	ErrAlreadyStarted = errors.New("logging already started")
)

func init() {
	logBuffer = make(chan *logLine, 1024)
}

// SetLogLevel sets a new log level.
func SetLogLevel(level Severity) {
	atomic.StoreUint32(logLevel, uint32(level))
}

// GetLogLevel returns the current log level.
func GetLogLevel() Severity {
	return Severity(atomic.LoadUint32(logLevel))
}

// ParseLevel returns the level severity of a log level name.
func ParseLevel(level string) Severity {
	switch strings.ToLower(level) {
	case "trace":
		return TraceLevel
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warning":
		return WarningLevel
	case "error":
		return ErrorLevel
	case "critical":
		return CriticalLevel
	}
	return 0
}

// SetOutput sets where log lines are written to. It may be called at any time.
func SetOutput(w io.Writer) {
	outputLock.Lock()
	defer outputLock.Unlock()
	output = w
}

// Start starts the logging system. Lines logged before are kept in the
// buffer and written once started.
func Start() error {
	if !started.SetToIf(false, true) {
		return ErrAlreadyStarted
	}

	if logLevelFlag != "" {
		initialLogLevel := ParseLevel(logLevelFlag)
		if initialLogLevel == 0 {
			fmt.Fprintf(os.Stderr, "log: invalid log level %q, falling back to level info\n", logLevelFlag)
			initialLogLevel = InfoLevel
		}
		SetLogLevel(initialLogLevel)
	}

	shutdownSig = make(chan struct{})
	writerExited = make(chan struct{})
	go writer()
	return nil
}

// Shutdown writes all remaining log lines and stops the logging system.
func Shutdown() {
	if !started.SetToIf(true, false) {
		return
	}
	close(shutdownSig)
	<-writerExited
}

// Dropped returns how many log lines were dropped because the buffer was full.
func Dropped() uint64 {
	return dropped.Load()
}
