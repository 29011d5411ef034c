package log

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// ContextTracerKey is the key used for the context key/value storage.
type ContextTracerKey struct{}

// ContextTracer is attached to a context in order bind logs to a context.
// Its actions are only written when Submit is called.
type ContextTracer struct {
	sync.Mutex
	actions []*action
}

type action struct {
	timestamp time.Time
	level     Severity
	msg       string
	file      string
	line      int
}

var key = ContextTracerKey{}

// AddTracer adds a ContextTracer to the returned Context. It will return a
// nil ContextTracer if one already exists or if trace logging is disabled.
// Will return the given ctx if trace logging is disabled.
func AddTracer(ctx context.Context) (context.Context, *ContextTracer) {
	if ctx != nil && fastcheck(TraceLevel) {
		// check pkg levels
		_, ok := ctx.Value(key).(*ContextTracer)
		if !ok {
			tracer := &ContextTracer{}
			return context.WithValue(ctx, key, tracer), tracer
		}
	}
	return ctx, nil
}

// Tracer returns the ContextTracer previously added to the given Context.
func Tracer(ctx context.Context) *ContextTracer {
	if ctx != nil {
		tracer, ok := ctx.Value(key).(*ContextTracer)
		if ok {
			return tracer
		}
	}
	return nil
}

// Submit collected logs on the context for further processing/outputting. It
// logs the most recent action, with all earlier actions attached.
func (tracer *ContextTracer) Submit() {
	if tracer == nil {
		return
	}

	actions := tracer.snapshot()
	if len(actions) == 0 {
		return
	}

	// use the highest level of all actions for the whole trace
	level := TraceLevel
	for _, a := range actions {
		if a.level > level {
			level = a.level
		}
	}

	last := actions[len(actions)-1]
	submitted := &ContextTracer{actions: actions[:len(actions)-1]}

	select {
	case logBuffer <- &logLine{
		msg:       last.msg,
		tracer:    submitted,
		level:     level,
		timestamp: last.timestamp,
		file:      last.file,
		line:      last.line,
	}:
	default:
		dropped.Add(1)
	}
}

func (tracer *ContextTracer) snapshot() []*action {
	tracer.Lock()
	defer tracer.Unlock()

	actions := make([]*action, len(tracer.actions))
	copy(actions, tracer.actions)
	return actions
}

func (tracer *ContextTracer) log(level Severity, msg string) {
	// get file and line
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = ""
		line = 0
	} else {
		if len(file) > 3 {
			file = file[:len(file)-3]
		} else {
			file = ""
		}
	}

	tracer.Lock()
	defer tracer.Unlock()
	tracer.actions = append(tracer.actions, &action{
		timestamp: time.Now(),
		level:     level,
		msg:       msg,
		file:      file,
		line:      line,
	})
}

// Trace is used to log tiny steps.
func (tracer *ContextTracer) Trace(msg string) {
	if tracer != nil {
		tracer.log(TraceLevel, msg)
	}
}

// Tracef is used to log tiny steps.
func (tracer *ContextTracer) Tracef(format string, things ...interface{}) {
	if tracer != nil {
		tracer.log(TraceLevel, fmt.Sprintf(format, things...))
	}
}

// Warning is used to log (potentially) bad events, but nothing broke.
func (tracer *ContextTracer) Warning(msg string) {
	if tracer != nil {
		tracer.log(WarningLevel, msg)
	}
}

// Warningf is used to log (potentially) bad events, but nothing broke.
func (tracer *ContextTracer) Warningf(format string, things ...interface{}) {
	if tracer != nil {
		tracer.log(WarningLevel, fmt.Sprintf(format, things...))
	}
}

// Errorf is used to log errors that break or impair functionality.
func (tracer *ContextTracer) Errorf(format string, things ...interface{}) {
	if tracer != nil {
		tracer.log(ErrorLevel, fmt.Sprintf(format, things...))
	}
}
