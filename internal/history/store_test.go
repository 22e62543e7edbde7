package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ajay-arram0101/web-search-agent/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func record(t *testing.T, store *Store, sessionID, question, answer string, tools []string) {
	t.Helper()
	if err := store.Record(context.Background(), sessionID, question, answer, tools); err != nil {
		t.Fatalf("Record: %v", err)
	}
	// Keep created_at values distinct so ordering is deterministic.
	time.Sleep(2 * time.Millisecond)
}

func TestRecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record(t, store, "s1", "first?", "one", []string{"add"})
	record(t, store, "s1", "second?", "two", nil)
	record(t, store, "other", "elsewhere?", "three", nil)

	turns, err := store.Recent(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].Question != "first?" || turns[1].Question != "second?" {
		t.Errorf("turns out of order: %q, %q", turns[0].Question, turns[1].Question)
	}
	if len(turns[0].ToolsUsed) != 1 || turns[0].ToolsUsed[0] != "add" {
		t.Errorf("turns[0].ToolsUsed = %v", turns[0].ToolsUsed)
	}
	// nil tools round-trips as empty, not nil-decode garbage.
	if turns[1].ToolsUsed == nil || len(turns[1].ToolsUsed) != 0 {
		t.Errorf("turns[1].ToolsUsed = %#v", turns[1].ToolsUsed)
	}
}

func TestRecentLimitKeepsNewest(t *testing.T) {
	store := newTestStore(t)

	for _, q := range []string{"a", "b", "c", "d"} {
		record(t, store, "s1", q, "ans", nil)
	}

	turns, err := store.Recent(context.Background(), "s1", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	// The newest two, still oldest-first.
	if turns[0].Question != "c" || turns[1].Question != "d" {
		t.Errorf("turns = %q, %q", turns[0].Question, turns[1].Question)
	}
}

func TestRecentUnknownSession(t *testing.T) {
	store := newTestStore(t)
	turns, err := store.Recent(context.Background(), "missing", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("got %d turns, want 0", len(turns))
	}
}

func TestRestore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record(t, store, "s1", "what is 2+3?", "5", []string{"add"})
	record(t, store, "s1", "and doubled?", "10", []string{"multiply"})

	session := models.NewSession("s1")
	if err := store.Restore(ctx, session, 10); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	history := session.History()
	if len(history) != 4 {
		t.Fatalf("history length = %d, want 4", len(history))
	}
	if history[0].Role != models.RoleUser || history[0].Content != "what is 2+3?" {
		t.Errorf("history[0] = %+v", history[0])
	}
	if history[1].Role != models.RoleAssistant || history[1].Content != "5" {
		t.Errorf("history[1] = %+v", history[1])
	}
	if history[3].Content != "10" {
		t.Errorf("history[3] = %+v", history[3])
	}
}

func TestNewStoreRequiresPath(t *testing.T) {
	if _, err := NewStore(""); err == nil {
		t.Error("expected error for empty path")
	}
}
