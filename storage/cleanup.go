package storage

import (
	"os"
	"sync"
)

// selfDeleteRegistry records the temp file of every DiskStorage that has not
// been Close()'d yet, so that CleanupTempFiles can remove the ones that were
// abandoned. Close() is the normal path. Nothing in this package deletes the
// registered files at process exit by itself; that happens only if the
// caller runs CleanupTempFiles.
var selfDeleteRegistry struct {
	mu    sync.Mutex
	paths map[string]struct{}
	once  sync.Once
}

func selfDeleteOnExit(path string) {
	selfDeleteRegistry.once.Do(func() {
		selfDeleteRegistry.paths = make(map[string]struct{})
	})
	selfDeleteRegistry.mu.Lock()
	selfDeleteRegistry.paths[path] = struct{}{}
	selfDeleteRegistry.mu.Unlock()
}

func unregisterSelfDelete(path string) {
	selfDeleteRegistry.mu.Lock()
	delete(selfDeleteRegistry.paths, path)
	selfDeleteRegistry.mu.Unlock()
}

// CleanupTempFiles removes every temp file created by a DiskStorage in
// this process that was never Close()'d. Callers that want the process-exit
// backstop described in spec §3 should register this with their own
// shutdown hook (e.g. a deferred call in main, or an os/signal handler);
// the package does not install one itself since that would be a
// surprising side effect for a library import.
func CleanupTempFiles() {
	selfDeleteRegistry.mu.Lock()
	defer selfDeleteRegistry.mu.Unlock()
	for path := range selfDeleteRegistry.paths {
		os.Remove(path)
		delete(selfDeleteRegistry.paths, path)
	}
}
