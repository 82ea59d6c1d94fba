package watch

import (
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
	"time"
)

func TestShouldIgnoreWatchPath(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{".git/index.lock", true},
		{".git/HEAD.LOCK", true},
		{".git/fsmonitor.ipc", true},
		{".git/index", false},
		{".git/refs/heads/main", false},
	}
	for _, tt := range tests {
		if got := shouldIgnoreWatchPath(tt.name); got != tt.want {
			t.Fatalf("shouldIgnoreWatchPath(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWatchPaths(t *testing.T) {
	plain := t.TempDir()
	if got := slices.Collect(watchPaths(plain)); !slices.Equal(got, []string{plain}) {
		t.Fatalf("expected worktree root, got %v", got)
	}

	repo := t.TempDir()
	gitDir := filepath.Join(repo, ".git")
	if err := os.Mkdir(gitDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if got := slices.Collect(watchPaths(repo)); !slices.Equal(got, []string{gitDir}) {
		t.Fatalf("expected .git dir, got %v", got)
	}

	if got := slices.Collect(watchPaths("")); len(got) != 0 {
		t.Fatalf("expected nothing for empty root, got %v", got)
	}
}

func TestWatcherCoalescesEvents(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w, err := Start(dir, 30*time.Millisecond, func() { calls.Add(1) })
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Close()

	for i := range 3 {
		name := filepath.Join(dir, "f"+string(rune('a'+i)))
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.lock"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if calls.Load() == 0 {
		t.Fatal("watcher never reported a change")
	}
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single coalesced callback, got %d", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	w, err := Start(t.TempDir(), 0, func() {})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
