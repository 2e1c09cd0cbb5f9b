// Copyright (c) 2024-2026 The Umbra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package progresslog provides periodic logging of progress towards long
// running header chain operations.
package progresslog

import (
	"sync"
	"time"

	"github.com/decred/slog"
)

// pickNoun returns the singular or plural form of a noun depending on the
// provided count.
func pickNoun(n uint64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// Logger provides periodic logging of progress towards some action involving
// a stream of block headers such as loading the header index from disk.
type Logger struct {
	mtx             sync.Mutex
	subsystemLogger slog.Logger
	progressAction  string

	// lastLogTime tracks the last time a log statement was shown.
	lastLogTime time.Time

	// These fields accumulate information about headers between log
	// statements.
	receivedHeaders uint64
	lastHeight      int64
	lastTimestamp   time.Time
}

// New returns a new header progress logger for the provided action and
// subsystem logger.
func New(progressAction string, logger slog.Logger) *Logger {
	return &Logger{
		lastLogTime:     time.Now(),
		progressAction:  progressAction,
		subsystemLogger: logger,
	}
}

// LogProgress accumulates details for the provided header and periodically
// (every 10 seconds) logs an information message to show progress to the
// user along with duration and totals included.
//
// The force flag may be used to force a log message to be shown regardless of
// the time the last one was shown.
func (l *Logger) LogProgress(height int64, timestamp time.Time, forceLog bool) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.receivedHeaders++
	l.lastHeight = height
	l.lastTimestamp = timestamp
	now := time.Now()
	duration := now.Sub(l.lastLogTime)
	if !forceLog && duration < time.Second*10 {
		return
	}

	l.subsystemLogger.Infof("%s %d %s in the last %0.2fs (height %d, %s)",
		l.progressAction, l.receivedHeaders,
		pickNoun(l.receivedHeaders, "header", "headers"),
		duration.Seconds(), l.lastHeight, l.lastTimestamp)

	l.receivedHeaders = 0
	l.lastLogTime = now
}

// SetLastLogTime updates the last time data was logged to the provided time.
func (l *Logger) SetLastLogTime(time time.Time) {
	l.mtx.Lock()
	l.lastLogTime = time
	l.mtx.Unlock()
}
