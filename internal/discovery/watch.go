package discovery

import (
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch starts watching every existing agents/workflows directory visible
// from cwd (workspace and user-level), together with the entry directories
// inside them, and invokes onChange whenever a file under one of them
// changes, letting a long-running workflow host refresh
// its discovery cache without a restart. Returns an io.Closer that stops
// the watch; callers not needing this (one-shot CLI invocations) never call
// it at all.
func Watch(cwd string, onChange func()) (io.Closer, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range watchableDirs(cwd) {
		if err := watcher.Add(dir); err != nil {
			log.Warn("discovery: failed to watch directory", "dir", dir, "error", err)
		}
		entries, _ := os.ReadDir(dir)
		for _, entry := range entries {
			if entry.IsDir() {
				_ = watcher.Add(filepath.Join(dir, entry.Name()))
			}
		}
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = watcher.Add(event.Name)
					}
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					onChange()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher, nil
}

func watchableDirs(cwd string) []string {
	var dirs []string
	if wsRoot := FindWorkspaceRoot(cwd); wsRoot != "" {
		dirs = appendIfDir(dirs, filepath.Join(wsRoot, "agents"))
		dirs = appendIfDir(dirs, filepath.Join(wsRoot, "workflows"))
	}
	if userDir := UserConfigDir(); userDir != "" {
		dirs = appendIfDir(dirs, filepath.Join(userDir, "agents"))
		dirs = appendIfDir(dirs, filepath.Join(userDir, "workflows"))
	}
	return dirs
}

func appendIfDir(dirs []string, path string) []string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return append(dirs, path)
	}
	return dirs
}
