package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/winnow-sh/winnow/internal/message"
)

// Loader restores persisted state for a session id into st. Returns false
// when no usable persisted state exists; st is left at defaults.
type Loader interface {
	LoadInto(st *State) bool
}

// Store owns the single active session state. A session id change resets
// the state and re-initializes it from disk. Callers are expected to
// serialize access per the host's single-event-loop model.
type Store struct {
	client message.Client
	loader Loader
	state  *State
}

// NewStore returns a store with no active session.
func NewStore(client message.Client, loader Loader) *Store {
	return &Store{client: client, loader: loader}
}

// State returns the active session state, or nil before the first Ensure.
func (s *Store) State() *State {
	return s.state
}

// Ensure makes sessionID the active session, initializing it if the
// observed id changed, and refreshes per-update bookkeeping (turn count,
// compaction detection, parameter cache) from the message list.
func (s *Store) Ensure(ctx context.Context, sessionID string, msgs []message.Message) *State {
	if s.state == nil || s.state.ID != sessionID {
		s.initialize(ctx, sessionID, msgs)
	}

	st := s.state
	st.Turn = CountTurns(msgs)
	if watermark, compacted := DetectCompaction(msgs, st.CompactedAt); compacted {
		slog.Info("Host compaction detected, clearing tool cache and tool prune set",
			"session_id", sessionID,
			"watermark", watermark,
		)
		st.ClearCompacted(watermark)
	}
	st.Params = BuildParams(msgs)
	return st
}

// initialize runs the INITIALIZING phase: full reset, sub-agent
// detection, turn counting, and persisted-state load.
func (s *Store) initialize(ctx context.Context, sessionID string, msgs []message.Message) {
	st := NewState(sessionID)
	st.Phase = Initializing

	info, err := s.client.SessionInfo(ctx, sessionID)
	if err != nil {
		slog.Warn("Failed to fetch session info, assuming top-level session",
			"session_id", sessionID,
			"error", err,
		)
	} else {
		st.SubAgent = info.ParentID != ""
	}

	st.Turn = CountTurns(msgs)

	if s.loader != nil && s.loader.LoadInto(st) {
		slog.Info("Restored persisted session state",
			"session_id", sessionID,
			"pruned_units", st.Prune.Len(),
		)
	}

	st.Phase = Active
	s.state = st
}

// CountTurns walks the message list counting step-boundary markers.
// Synthetic compaction summaries are skipped.
func CountTurns(msgs []message.Message) int {
	turns := 0
	for _, m := range msgs {
		if m.IsSummary {
			continue
		}
		for _, p := range m.Parts {
			if _, ok := p.(message.StepBoundaryPart); ok {
				turns++
			}
		}
	}
	return turns
}

// DetectCompaction compares the newest synthetic summary message against
// the stored watermark. A newer summary means the host compacted history
// since we last looked.
func DetectCompaction(msgs []message.Message, watermark time.Time) (time.Time, bool) {
	var newest time.Time
	for _, m := range msgs {
		if m.IsSummary && m.Role == message.Assistant && m.CreatedAt.After(newest) {
			newest = m.CreatedAt
		}
	}
	if newest.IsZero() || !newest.After(watermark) {
		return watermark, false
	}
	return newest, true
}
