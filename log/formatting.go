// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package log

import (
	"fmt"
	"strings"
	"time"
)

const rightArrow = "▶"

var counter uint16

const maxCount uint16 = 999

func (s Severity) String() string {
	switch s {
	case TraceLevel:
		return "TRAC"
	case DebugLevel:
		return "DEBU"
	case InfoLevel:
		return "INFO"
	case WarningLevel:
		return "WARN"
	case ErrorLevel:
		return "ERRO"
	case CriticalLevel:
		return "CRIT"
	default:
		return "NONE"
	}
}

func shortFile(file string) string {
	fPartStart := len(file) - 10
	if fPartStart < 0 {
		fPartStart = 0
	}
	return file[fPartStart:]
}

func formatLine(line *logLine, useColor bool) string {
	colorStart := ""
	colorEnd := ""
	if useColor {
		colorStart = line.level.color()
		colorEnd = endColor()
	}

	counter++

	var b strings.Builder
	if line.line == 0 {
		fmt.Fprintf(&b, "%s%s ? %s %s %03d%s %s", colorStart, line.timestamp.Format("060102 15:04:05.000"), rightArrow, line.level.String(), counter, colorEnd, line.msg)
	} else {
		fmt.Fprintf(&b, "%s%s %s:%03d %s %s %03d%s %s", colorStart, line.timestamp.Format("060102 15:04:05.000"), shortFile(line.file), line.line, rightArrow, line.level.String(), counter, colorEnd, line.msg)
	}

	if line.tracer != nil {
		actions := line.tracer.snapshot()

		// append full trace time
		if len(actions) > 0 {
			fmt.Fprintf(&b, " Σ=%s", line.timestamp.Sub(actions[0].timestamp))
		}

		// append all trace actions
		var d time.Duration
		for i, action := range actions {
			if useColor {
				colorStart = action.level.color()
			}
			if i == len(actions)-1 { // last
				d = line.timestamp.Sub(action.timestamp)
			} else {
				d = actions[i+1].timestamp.Sub(action.timestamp)
			}
			fmt.Fprintf(&b, "\n%s%19s %s:%03d %s %s%s     %s", colorStart, d, shortFile(action.file), action.line, rightArrow, action.level.String(), colorEnd, action.msg)
		}
	}

	if counter >= maxCount {
		counter = 0
	}

	return b.String()
}
