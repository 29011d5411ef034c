// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package log

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	sync.Mutex
	buf bytes.Buffer
}

func (sb *syncBuffer) Write(p []byte) (int, error) {
	sb.Lock()
	defer sb.Unlock()
	return sb.buf.Write(p)
}

func (sb *syncBuffer) String() string {
	sb.Lock()
	defer sb.Unlock()
	return sb.buf.String()
}

// The tests in this package share global logging state and must not run in parallel.
func TestLogging(t *testing.T) {
	out := &syncBuffer{}
	SetOutput(out)

	require.NoError(t, Start())
	assert.ErrorIs(t, Start(), ErrAlreadyStarted)

	// log
	SetLogLevel(TraceLevel)
	Trace("Trace")
	Debug("Debug")
	Info("Info")
	Warning("Warning")
	Error("Error")
	Critical("Critical")

	// logf
	Tracef("Trace %s", "f")
	Debugf("Debug %s", "f")
	Infof("Info %s", "f")
	Warningf("Warning %s", "f")
	Errorf("Error %s", "f")
	Criticalf("Critical %s", "f")

	// play with levels
	SetLogLevel(CriticalLevel)
	Warning("suppressed warning")
	assert.Equal(t, CriticalLevel, GetLogLevel())

	// trace
	SetLogLevel(TraceLevel)
	ctx, tracer := AddTracer(context.Background())
	require.NotNil(t, tracer)
	assert.Same(t, tracer, Tracer(ctx))
	_, nested := AddTracer(ctx)
	assert.Nil(t, nested, "a context holds only one tracer")

	tracer.Trace("ledger: checking existence")
	tracer.Warningf("ledger: %s", "partial failure")
	tracer.Trace("ledger: done")
	tracer.Submit()

	Shutdown()
	SetLogLevel(InfoLevel)

	written := out.String()
	for _, expected := range []string{
		"TRAC", "DEBU", "INFO", "WARN", "ERRO", "CRIT",
		"Trace f", "Critical f",
		"ledger: checking existence", "ledger: partial failure", "ledger: done",
		"LOGGING STOPPED",
	} {
		assert.Contains(t, written, expected)
	}
	assert.NotContains(t, written, "suppressed warning")

	// The submitted trace is logged at the most severe level of its actions.
	for _, line := range strings.Split(written, "\n") {
		if strings.Contains(line, "ledger: done") {
			assert.Contains(t, line, "WARN")
		}
	}
}

func TestDisabledTracer(t *testing.T) {
	SetLogLevel(InfoLevel)

	ctx, tracer := AddTracer(context.Background())
	assert.Nil(t, tracer)
	assert.Nil(t, Tracer(ctx))

	// nil tracers are safe to use
	tracer.Trace("nothing")
	tracer.Errorf("nothing %d", 1)
	tracer.Submit()
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, TraceLevel, ParseLevel("trace"))
	assert.Equal(t, WarningLevel, ParseLevel("WARNING"))
	assert.Equal(t, Severity(0), ParseLevel("loud"))
	assert.Equal(t, "CRIT", CriticalLevel.String())
	assert.Equal(t, "NONE", Severity(0xFF).String())
}
