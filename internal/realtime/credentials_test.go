package realtime

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"shiftmarket/pkg/logger"
)

func TestCredentialStore_SetAndClearNotifyListeners(t *testing.T) {
	store := NewCredentialStore(logger.NewNop())
	t.Cleanup(func() { store.Close() })

	var changes []string
	cancel := store.OnChange(func(change Change) {
		changes = append(changes, change.Token)
	})

	if err := store.SetToken("abc"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if err := store.SetToken("abc"); err != nil { // unchanged, no event
		t.Fatalf("SetToken: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if len(changes) != 2 || changes[0] != "abc" || changes[1] != "" {
		t.Fatalf("changes = %v, want [abc \"\"]", changes)
	}

	cancel()
	store.SetToken("after-cancel")
	if len(changes) != 2 {
		t.Fatalf("listener fired after cancel: %v", changes)
	}
}

func TestFileCredentialStore_LoadsExistingToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("stored-token\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	store, err := NewFileCredentialStore(path, logger.NewNop())
	if err != nil {
		t.Fatalf("NewFileCredentialStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if got := store.Token(); got != "stored-token" {
		t.Fatalf("Token() = %q, want stored-token", got)
	}
}

func TestFileCredentialStore_PersistsAndRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	store, err := NewFileCredentialStore(path, logger.NewNop())
	if err != nil {
		t.Fatalf("NewFileCredentialStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.SetToken("persisted"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "persisted\n" {
		t.Fatalf("file contents = %q", string(data))
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("token file still exists after Clear")
	}
}

func TestFileCredentialStore_ExternalRewriteNotifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	store, err := NewFileCredentialStore(path, logger.NewNop())
	if err != nil {
		t.Fatalf("NewFileCredentialStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	var mu sync.Mutex
	var seen []string
	store.OnChange(func(change Change) {
		mu.Lock()
		seen = append(seen, change.Token)
		mu.Unlock()
	})

	// Another process logging in: it writes the token file directly.
	if err := os.WriteFile(path, []byte("external-token\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	waitFor(t, 3*time.Second, "external token pickup", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1 && seen[0] == "external-token"
	})

	// And logging out: it removes the file.
	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	waitFor(t, 3*time.Second, "external token clear", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2 && seen[1] == ""
	})
}
