package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/winnow-sh/winnow/internal/hashreg"
	"github.com/winnow-sh/winnow/internal/message"
)

// fakeClient is a minimal host client for lifecycle tests.
type fakeClient struct {
	info    message.SessionInfo
	infoErr error
}

func (c *fakeClient) ListMessages(context.Context, string) ([]message.Message, error) {
	return nil, nil
}

func (c *fakeClient) SessionInfo(context.Context, string) (message.SessionInfo, error) {
	return c.info, c.infoErr
}

// fakeLoader marks states it touched.
type fakeLoader struct {
	loaded []string
	apply  func(*State)
}

func (l *fakeLoader) LoadInto(st *State) bool {
	l.loaded = append(l.loaded, st.ID)
	if l.apply != nil {
		l.apply(st)
		return true
	}
	return false
}

func stepMsg(id string) message.Message {
	return message.Message{ID: id, Role: message.Assistant, Parts: []message.Part{message.StepBoundaryPart{}}}
}

func TestEnsure_InitializesOnce(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{}
	store := NewStore(&fakeClient{}, loader)

	st := store.Ensure(context.Background(), "s1", nil)
	require.Equal(t, Active, st.Phase)
	require.Equal(t, "s1", st.ID)
	require.Equal(t, []string{"s1"}, loader.loaded)

	again := store.Ensure(context.Background(), "s1", nil)
	require.Same(t, st, again)
	require.Len(t, loader.loaded, 1, "no re-initialization for the same session id")
}

func TestEnsure_ResetsOnSessionChange(t *testing.T) {
	t.Parallel()
	store := NewStore(&fakeClient{}, &fakeLoader{})

	st1 := store.Ensure(context.Background(), "s1", nil)
	st1.MarkOmitted(hashreg.TypeTool, "call_1")

	st2 := store.Ensure(context.Background(), "s2", nil)
	require.NotSame(t, st1, st2)
	require.Equal(t, 0, st2.Prune.Len(), "new session starts from defaults")
}

func TestEnsure_LoadsPersistedState(t *testing.T) {
	t.Parallel()
	loader := &fakeLoader{apply: func(st *State) {
		st.Prune.Tools["call_9"] = struct{}{}
	}}
	store := NewStore(&fakeClient{}, loader)

	st := store.Ensure(context.Background(), "s1", nil)
	require.True(t, st.Prune.Has(hashreg.TypeTool, "call_9"))
}

func TestEnsure_DetectsSubAgent(t *testing.T) {
	t.Parallel()
	client := &fakeClient{info: message.SessionInfo{ID: "child", ParentID: "parent"}}
	store := NewStore(client, &fakeLoader{})

	st := store.Ensure(context.Background(), "child", nil)
	require.True(t, st.SubAgent)
}

func TestEnsure_SessionInfoFailureAssumesTopLevel(t *testing.T) {
	t.Parallel()
	client := &fakeClient{infoErr: errors.New("host down")}
	store := NewStore(client, &fakeLoader{})

	st := store.Ensure(context.Background(), "s1", nil)
	require.False(t, st.SubAgent)
	require.Equal(t, Active, st.Phase)
}

func TestCountTurns(t *testing.T) {
	t.Parallel()
	msgs := []message.Message{
		stepMsg("m1"),
		{ID: "m2", Role: message.User, Parts: []message.Part{message.TextPart{Text: "hi"}}},
		stepMsg("m3"),
		{ID: "sum", Role: message.Assistant, IsSummary: true, Parts: []message.Part{message.StepBoundaryPart{}}},
	}
	require.Equal(t, 2, CountTurns(msgs), "summary messages are skipped")
}

func TestDetectCompaction(t *testing.T) {
	t.Parallel()
	base := time.Now()
	msgs := []message.Message{
		{ID: "sum", Role: message.Assistant, IsSummary: true, CreatedAt: base},
	}

	watermark, compacted := DetectCompaction(msgs, time.Time{})
	require.True(t, compacted)
	require.Equal(t, base, watermark)

	// Same summary again: watermark already seen.
	_, compacted = DetectCompaction(msgs, watermark)
	require.False(t, compacted)

	// A newer summary triggers again.
	msgs = append(msgs, message.Message{
		ID: "sum2", Role: message.Assistant, IsSummary: true, CreatedAt: base.Add(time.Minute),
	})
	newWatermark, compacted := DetectCompaction(msgs, watermark)
	require.True(t, compacted)
	require.Equal(t, base.Add(time.Minute), newWatermark)
}

func TestEnsure_CompactionClearsToolState(t *testing.T) {
	t.Parallel()
	store := NewStore(&fakeClient{}, &fakeLoader{})

	st := store.Ensure(context.Background(), "s1", nil)
	st.MarkOmitted(hashreg.TypeTool, "call_1")
	st.Stats.Record(KindDedupe, 50, 1)

	msgs := []message.Message{
		{ID: "sum", Role: message.Assistant, IsSummary: true, CreatedAt: time.Now()},
	}
	st = store.Ensure(context.Background(), "s1", msgs)

	require.Empty(t, st.Prune.Tools)
	require.Equal(t, int64(50), st.Stats.TokensSaved)
}
