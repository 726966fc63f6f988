// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package diag provides the diagnostic log sink for relay.
//
// Discovery and completion failures are absorbed rather than surfaced to the
// user (a transient network error must never interrupt typing or chatting),
// so they all funnel through this one sink where they remain inspectable.
package diag

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

const logFileName = "relay.log"

var (
	mu     sync.Mutex
	logger *log.Logger
)

// Init directs diagnostic output to relay.log under the given data directory.
// Before Init (and after a failed Init) output goes to stderr.
func Init(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(dataDir, logFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open diagnostic log: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	logger = log.New(f, "", log.LstdFlags)
	return nil
}

// SetOutput redirects diagnostic output. Used by tests to capture log lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, "", 0)
}

// Logf writes a formatted diagnostic line.
// Callers must not pass credentials; log API key fingerprints, never keys.
func Logf(format string, args ...interface{}) {
	mu.Lock()
	l := logger
	mu.Unlock()

	if l == nil {
		log.Printf(format, args...)
		return
	}
	l.Printf(format, args...)
}
