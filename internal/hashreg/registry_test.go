package hashreg

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var hashRe = regexp.MustCompile(`^[0-9a-f]{6}$`)

func TestRegister_Deterministic(t *testing.T) {
	t.Parallel()
	r1 := New()
	r2 := New()

	h1 := r1.RegisterTool("call_1", "grep", "some output")
	h2 := r2.RegisterTool("call_1", "grep", "some output")
	require.Equal(t, h1, h2, "same identity must hash identically across registries")
	require.Regexp(t, hashRe, h1)
}

func TestRegister_Idempotent(t *testing.T) {
	t.Parallel()
	r := New()

	h1 := r.Register(TypeMessage, "msg-1:0", "hello world")
	h2 := r.Register(TypeMessage, "msg-1:0", "hello world")
	require.Equal(t, h1, h2)
	require.Equal(t, 1, r.Len(), "repeated registration must not add entries")

	// Re-registration with different content must not reassign.
	h3 := r.Register(TypeMessage, "msg-1:0", "changed content")
	require.Equal(t, h1, h3)
}

func TestRegister_DistinctCallsDistinctHashes(t *testing.T) {
	t.Parallel()
	r := New()

	// Identical output from two distinct calls stays separately addressable.
	h1 := r.RegisterTool("call_1", "read", "same output")
	h2 := r.RegisterTool("call_2", "read", "same output")
	require.NotEqual(t, h1, h2)
}

func TestRegister_CollisionSuffix(t *testing.T) {
	t.Parallel()
	r := New()

	h1 := r.RegisterTool("call_1", "grep", "output a")

	// Force a collision: seed the registry so call_2's digest is taken.
	colliding := digest(TypeTool, "call_2", "grep", "")
	r.byHash[colliding] = Entry{Type: TypeTool, Hash: colliding, ID: "occupant"}
	r.byID[idKey(TypeTool, "occupant")] = colliding

	h2 := r.RegisterTool("call_2", "grep", "output b")
	require.Equal(t, colliding+"_2", h2, "second id must get a numeric suffix")

	// Both remain independently resolvable.
	e1, ok := r.Lookup(colliding)
	require.True(t, ok)
	require.Equal(t, "occupant", e1.ID)

	e2, ok := r.Lookup(h2)
	require.True(t, ok)
	require.Equal(t, "call_2", e2.ID)

	_, ok = r.Lookup(h1)
	require.True(t, ok)
}

func TestLookup_NotFoundIsNormal(t *testing.T) {
	t.Parallel()
	r := New()
	_, ok := r.Lookup("abcdef")
	require.False(t, ok)
}

func TestHashFor(t *testing.T) {
	t.Parallel()
	r := New()
	h := r.Register(TypeReasoning, "msg-1:2", "thinking...")

	got, ok := r.HashFor(TypeReasoning, "msg-1:2")
	require.True(t, ok)
	require.Equal(t, h, got)

	_, ok = r.HashFor(TypeTool, "msg-1:2")
	require.False(t, ok, "type is part of the identity")
}

func TestEntries_SortedAndComplete(t *testing.T) {
	t.Parallel()
	r := New()
	r.RegisterTool("call_1", "grep", "a")
	r.RegisterTool("call_2", "read", "b")
	r.Register(TypeMessage, "m:0", "c")

	entries := r.Entries()
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		require.Less(t, entries[i-1].Hash, entries[i].Hash)
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	t.Parallel()
	r := New()
	h1 := r.RegisterTool("call_1", "grep", "output")
	h2 := r.Register(TypeReasoning, "m:1", "reasoning text")

	fresh := New()
	fresh.Restore(r.Entries())

	got1, ok := fresh.Lookup(h1)
	require.True(t, ok)
	require.Equal(t, "call_1", got1.ID)
	require.Equal(t, "grep", got1.ToolName)

	got2, ok := fresh.HashFor(TypeReasoning, "m:1")
	require.True(t, ok)
	require.Equal(t, h2, got2)
}

func TestRestore_SkipsConflictsAndJunk(t *testing.T) {
	t.Parallel()
	r := New()
	h := r.RegisterTool("call_1", "grep", "output")

	r.Restore([]Entry{
		{Type: TypeTool, Hash: h, ID: "other"}, // hash taken
		{Type: TypeTool, Hash: "ffffff"},       // no id
		{},                                     // empty
	})

	e, ok := r.Lookup(h)
	require.True(t, ok)
	require.Equal(t, "call_1", e.ID, "first registration wins")
	require.Equal(t, 1, r.Len())
}

func TestPreview_SingleLineAndBounded(t *testing.T) {
	t.Parallel()
	r := New()
	r.RegisterTool("call_1", "bash", "line one\nline two\twith\ttabs")

	e, ok := r.Lookup(mustHash(t, r, TypeTool, "call_1"))
	require.True(t, ok)
	require.NotContains(t, e.Preview, "\n")
	require.NotContains(t, e.Preview, "\t")
}

func mustHash(t *testing.T, r *Registry, typ Type, id string) string {
	t.Helper()
	h, ok := r.HashFor(typ, id)
	require.True(t, ok)
	return h
}
