// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jeranaias/parley/internal/logging"
)

// FileSource reads the token from a file. The value is cached until the
// file changes (see Watch) or Refresh is called.
type FileSource struct {
	path           string
	refreshCommand string
	log            *zap.Logger

	mu     sync.Mutex
	cached string

	changed chan struct{}

	// run executes the refresh command; replaced in tests.
	run func(ctx context.Context, command string) error
}

// NewFileSource creates a source for path. refreshCommand may be empty.
func NewFileSource(path, refreshCommand string, log *zap.Logger) *FileSource {
	return &FileSource{
		path:           filepath.Clean(path),
		refreshCommand: strings.TrimSpace(refreshCommand),
		log:            logging.OrNop(log).Named("auth"),
		changed:        make(chan struct{}, 1),
		run:            runShell,
	}
}

// Path returns the token file location.
func (s *FileSource) Path() string {
	return s.path
}

// Token returns the cached token, reading the file on first use.
func (s *FileSource) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != "" {
		return s.cached, nil
	}
	token, err := s.read()
	if err != nil {
		return "", err
	}
	s.cached = token
	return token, nil
}

// Refresh runs the refresh command (if any) and re-reads the file. It fails
// when the file still holds the token that was just rejected.
func (s *FileSource) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.cached
	s.cached = ""

	if s.refreshCommand != "" {
		s.log.Info("running token refresh command")
		if err := s.run(ctx, s.refreshCommand); err != nil {
			return "", fmt.Errorf("%w: refresh command: %v", ErrRefreshUnavailable, err)
		}
	}

	token, err := s.read()
	if err != nil {
		return "", err
	}
	if previous != "" && token == previous {
		return "", fmt.Errorf("%w: token file unchanged", ErrRefreshUnavailable)
	}
	s.cached = token
	return token, nil
}

// invalidate drops the cached token so the next Token call re-reads the file.
func (s *FileSource) invalidate() {
	s.mu.Lock()
	s.cached = ""
	s.mu.Unlock()
}

// Changed delivers a value after Watch sees the token file change.
func (s *FileSource) Changed() <-chan struct{} {
	return s.changed
}

// Watch invalidates the cache whenever the token file is written, replaced
// or removed, until ctx is done. The directory is watched rather than the
// file so atomic replacement is seen.
func (s *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		watcher.Close()
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != s.path {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					s.log.Debug("token file changed", zap.String("op", event.Op.String()))
					s.invalidate()
					select {
					case s.changed <- struct{}{}:
					default:
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn("token watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

// read must be called with mu held.
func (s *FileSource) read() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func runShell(ctx context.Context, command string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
