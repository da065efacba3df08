package realtime

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"shiftmarket/pkg/logger"
)

// Change describes a credential transition. An empty Token means the
// credential was cleared.
type Change struct {
	Token string
}

// CredentialStore holds the session access token and notifies listeners when
// it changes. Changes arrive two ways: in-process SetToken/Clear calls, and
// an optional token file rewritten by another process, picked up through a
// filesystem watcher. Both drive the same listener path so every consumer
// observes the same lifecycle.
type CredentialStore struct {
	log  logger.Logger
	path string

	mu        sync.Mutex
	token     string
	listeners map[int]func(Change)
	nextID    int
	closed    bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewCredentialStore returns an in-memory store with no file backing.
func NewCredentialStore(log logger.Logger) *CredentialStore {
	return &CredentialStore{
		log:       log,
		listeners: make(map[int]func(Change)),
	}
}

// NewFileCredentialStore loads the token from path (if present) and watches
// the containing directory for rewrites by other processes.
func NewFileCredentialStore(path string, log logger.Logger) (*CredentialStore, error) {
	store := NewCredentialStore(log)
	store.path = path

	if token, err := readTokenFile(path); err == nil {
		store.token = token
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors and other writers replace the file rather
	// than updating it in place, which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	store.watcher = watcher
	store.done = make(chan struct{})
	go store.watchLoop()
	return store, nil
}

func readTokenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *CredentialStore) watchLoop() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			s.reloadFromFile()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("credential watcher error", "error", err)
		}
	}
}

func (s *CredentialStore) reloadFromFile() {
	token, err := readTokenFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("failed to reload credential file", "path", s.path, "error", err)
		return
	}
	// Missing file reads as an empty token, which is a clear.
	s.apply(token)
}

// Token returns the current access token, or empty when logged out.
func (s *CredentialStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SetToken stores a new token, persists it when file-backed, and notifies
// listeners.
func (s *CredentialStore) SetToken(token string) error {
	token = strings.TrimSpace(token)
	if s.path != "" && token != "" {
		if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
			return err
		}
	}
	s.apply(token)
	return nil
}

// Clear removes the token and the backing file.
func (s *CredentialStore) Clear() error {
	if s.path != "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	s.apply("")
	return nil
}

func (s *CredentialStore) apply(token string) {
	s.mu.Lock()
	if s.closed || s.token == token {
		s.mu.Unlock()
		return
	}
	s.token = token
	listeners := make([]func(Change), 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(Change{Token: token})
	}
}

// OnChange registers a listener for credential transitions and returns a
// cancel function.
func (s *CredentialStore) OnChange(listener func(Change)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close stops the file watcher and drops all listeners.
func (s *CredentialStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.listeners = make(map[int]func(Change))
	s.mu.Unlock()

	if s.done != nil {
		close(s.done)
	}
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
