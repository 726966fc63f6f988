// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/relay-tui/internal/diag"
)

// =============================================================================
// STORE WATCHER
// =============================================================================

// StoreWatcher reloads provider configuration when the provider store is
// edited outside relay (by hand, or by another relay process persisting a
// discovery run). Events are debounced: editors often emit several writes
// per save.
type StoreWatcher struct {
	dataDir  string
	onReload func([]PersistedProviderConfig)
	debounce time.Duration

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc

	mu      sync.Mutex
	pending bool
}

// NewStoreWatcher creates a watcher for the store under dataDir. onReload is
// called with freshly parsed configs after each settled change.
func NewStoreWatcher(dataDir string, onReload func([]PersistedProviderConfig)) (*StoreWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &StoreWatcher{
		dataDir:  dataDir,
		onReload: onReload,
		debounce: 500 * time.Millisecond,
		watcher:  w,
	}, nil
}

// Watch starts watching until Close is called.
// The data directory itself is watched, not the file: atomic saves replace
// the file by rename, which drops a direct file watch.
func (sw *StoreWatcher) Watch() error {
	if err := sw.watcher.Add(sw.dataDir); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	sw.cancel = cancel

	go sw.loop(ctx)
	return nil
}

// Close stops watching and releases resources.
func (sw *StoreWatcher) Close() error {
	if sw.cancel != nil {
		sw.cancel()
	}
	return sw.watcher.Close()
}

func (sw *StoreWatcher) loop(ctx context.Context) {
	storePath := StorePath(sw.dataDir)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(storePath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			sw.scheduleReload(ctx)

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			diag.Logf("store watcher: %v", err)
		}
	}
}

// scheduleReload coalesces a burst of events into one reload.
func (sw *StoreWatcher) scheduleReload(ctx context.Context) {
	sw.mu.Lock()
	if sw.pending {
		sw.mu.Unlock()
		return
	}
	sw.pending = true
	sw.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(sw.debounce):
		}

		sw.mu.Lock()
		sw.pending = false
		sw.mu.Unlock()

		configs, err := LoadStore(sw.dataDir)
		if err != nil {
			diag.Logf("store watcher: reload failed: %v", err)
			return
		}
		sw.onReload(configs)
	}()
}
