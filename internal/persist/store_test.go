package persist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/winnow-sh/winnow/internal/hashreg"
	"github.com/winnow-sh/winnow/internal/session"
)

func populatedState(t *testing.T) *session.State {
	t.Helper()
	st := session.NewState("sess-1")
	st.Registry.RegisterTool("call_1", "grep", "output one")
	st.Registry.Register(hashreg.TypeReasoning, "m1:0", "thinking")
	st.MarkOmitted(hashreg.TypeTool, "call_1")
	st.MarkOmitted(hashreg.TypeReasoning, "m1:0")
	st.Replacements["m1:0"] = "[summary]"
	st.Rewrites["call_2"] = "truncated text"
	st.Stats.Record(session.KindDedupe, 40, 2)
	st.Cursors.LastWriteByPath["a.go"] = session.OpRef{CallID: "call_3", Turn: 2}
	st.AppendHistory(session.DiscardRecord{
		ID: "rec-1", Timestamp: time.Now().UTC(), Hashes: []string{"abc123"}, TokensSaved: 40, Reason: "noise",
	}, 50)
	st.Todos = []session.TodoItem{{Content: "finish tests", Status: "pending"}}
	st.CompactedAt = time.Now().UTC().Truncate(time.Second)
	return st
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()
	store := NewStore(t.TempDir())
	st := populatedState(t)

	store.Save(st)

	// Simulate a process restart: fresh state, then load.
	fresh := session.NewState("sess-1")
	require.True(t, store.LoadInto(fresh))

	require.Equal(t, st.Prune.Tools, fresh.Prune.Tools)
	require.Equal(t, st.Prune.Reasoning, fresh.Prune.Reasoning)
	require.Equal(t, st.Prune.Parts, fresh.Prune.Parts)
	require.Equal(t, st.Prune.Segments, fresh.Prune.Segments)

	require.Equal(t, int64(40), fresh.Stats.TokensSaved)
	require.Equal(t, int64(40), fresh.Stats.PerStrategy[session.KindDedupe].TokensSaved)
	require.Equal(t, "[summary]", fresh.Replacements["m1:0"])
	require.Equal(t, "truncated text", fresh.Rewrites["call_2"])
	require.Equal(t, session.OpRef{CallID: "call_3", Turn: 2}, fresh.Cursors.LastWriteByPath["a.go"])
	require.Len(t, fresh.History, 1)
	require.Equal(t, st.Todos, fresh.Todos)
	require.Equal(t, st.CompactedAt, fresh.CompactedAt)

	// The registry resolves the same hashes after reload.
	h, ok := st.Registry.HashFor(hashreg.TypeTool, "call_1")
	require.True(t, ok)
	entry, ok := fresh.Registry.Lookup(h)
	require.True(t, ok)
	require.Equal(t, "call_1", entry.ID)
}

func TestLoad_MissingIsAbsent(t *testing.T) {
	t.Parallel()
	store := NewStore(t.TempDir())
	_, ok := store.Load("nope")
	require.False(t, ok)
}

func TestLoad_CorruptIsAbsent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, os.WriteFile(store.Path("sess-1"), []byte("{not json"), 0o644))

	_, ok := store.Load("sess-1")
	require.False(t, ok)
}

func TestLoad_LegacySchemaIsAbsent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := NewStore(dir)

	// A pre-migration document: version 1, map-shaped prune field.
	legacy := map[string]any{
		"version":     1,
		"session_id":  "sess-1",
		"prunedTools": []string{"call_1"},
		"stats":       map[string]any{"tokens_saved": 10},
	}
	data, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path("sess-1"), data, 0o644))

	_, ok := store.Load("sess-1")
	require.False(t, ok, "legacy shapes are treated as absent, not migrated")
}

func TestLoad_MissingRequiredObjectsIsAbsent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := NewStore(dir)

	doc := map[string]any{"version": SchemaVersion, "session_id": "sess-1"}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path("sess-1"), data, 0o644))

	_, ok := store.Load("sess-1")
	require.False(t, ok)
}

func TestSave_AtomicNoTempLeftovers(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := NewStore(dir)

	store.Save(populatedState(t))
	store.Save(populatedState(t))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the destination file remains")
	require.Equal(t, "sess-1.json", entries[0].Name())
}

func TestSave_FailureIsAbsorbed(t *testing.T) {
	t.Parallel()
	// A directory path that cannot be created (under a file).
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	store := NewStore(filepath.Join(blocker, "sub"))
	store.Save(populatedState(t)) // must not panic
}

func TestSave_ConcurrentWritersSerialized(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := NewStore(dir)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Save(populatedState(t))
		}()
	}
	wg.Wait()

	doc, ok := store.Load("sess-1")
	require.True(t, ok)
	require.Equal(t, []string{"call_1"}, doc.Prune.Tools)
}

func TestPath_SanitizesSessionID(t *testing.T) {
	t.Parallel()
	store := NewStore("/data")
	require.Equal(t, filepath.Join("/data", "a-b-c.json"), store.Path("a/b:c"))
}
