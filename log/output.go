// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package log

import (
	"fmt"
	"time"
)

func writeLine(line *logLine) {
	outputLock.Lock()
	defer outputLock.Unlock()

	_, _ = fmt.Fprintln(output, formatLine(line, false))
}

func writer() {
	defer close(writerExited)

	for {
		select {
		case line := <-logBuffer:
			writeLine(line)
		case <-shutdownSig:
			// write all remaining lines
			for {
				select {
				case line := <-logBuffer:
					writeLine(line)
				default:
					writeLine(&logLine{
						msg:       "===== LOGGING STOPPED =====",
						level:     WarningLevel,
						timestamp: time.Now(),
					})
					return
				}
			}
		}
	}
}
