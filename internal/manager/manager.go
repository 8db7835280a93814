// Package manager wires the pruning engine together: it owns the session
// store, hash registration, the strategy pipeline, and persistence, and
// exposes the tool-facing discard/distill/restore operations.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/winnow-sh/winnow/internal/cache"
	"github.com/winnow-sh/winnow/internal/config"
	"github.com/winnow-sh/winnow/internal/hashreg"
	"github.com/winnow-sh/winnow/internal/message"
	"github.com/winnow-sh/winnow/internal/persist"
	"github.com/winnow-sh/winnow/internal/prune"
	"github.com/winnow-sh/winnow/internal/session"
)

// Manager drives the pruning pipeline for conversation updates and
// serves manual operations. A single Manager serves one host process;
// caches are owned here, never package globals.
type Manager struct {
	client  message.Client
	store   *session.Store
	persist *persist.Store
	engine  *prune.Engine
	opts    config.Options

	files *cache.FileCache
	ops   *cache.OpCache

	sessionMu sync.Map // sessionID -> *sync.Mutex
}

// New returns a manager persisting state under opts.DataDir.
func New(client message.Client, opts config.Options) *Manager {
	store := persist.NewStore(opts.DataDir)
	return &Manager{
		client:  client,
		store:   session.NewStore(client, store),
		persist: store,
		engine:  prune.NewEngine(),
		opts:    opts,
		files:   cache.NewFileCache(0, 0),
		ops:     cache.NewOpCache(0, 0),
	}
}

// sessionMutex returns the per-session mutex, creating it lazily.
func (m *Manager) sessionMutex(sessionID string) *sync.Mutex {
	actual, _ := m.sessionMu.LoadOrStore(sessionID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// HandleUpdate processes one conversation-update event: ensure the
// session is initialized, register new content, run the automatic
// strategies in order, and save. Failures are logged and the update is
// abandoned; the next natural trigger retries from scratch.
func (m *Manager) HandleUpdate(ctx context.Context, sessionID string) {
	mu := m.sessionMutex(sessionID)
	mu.Lock()
	defer mu.Unlock()

	msgs, err := m.fetchMessages(ctx, sessionID)
	if err != nil {
		slog.Warn("Failed to fetch messages, abandoning update",
			"session_id", sessionID,
			"error", err,
		)
		return
	}

	st := m.store.Ensure(ctx, sessionID, msgs)
	if st.SubAgent {
		// Sub-agent sessions are exempt from context management.
		return
	}

	// Skip strategy work when an identical update was just processed.
	sig := updateSignature(sessionID, msgs)
	if m.ops.Seen(sig) {
		return
	}

	registerUnits(st, msgs)
	m.engine.Run(st, m.opts, msgs)
	m.persist.Save(st)
}

// HandleUpdate is a nil-safe wrapper: it is a no-op when mgr is nil.
func HandleUpdate(ctx context.Context, mgr *Manager, sessionID string) {
	if mgr != nil {
		mgr.HandleUpdate(ctx, sessionID)
	}
}

// State returns the active session state, ensuring the session first.
func (m *Manager) State(ctx context.Context, sessionID string) (*session.State, error) {
	st, _, err := m.ensure(ctx, sessionID)
	return st, err
}

// Stats returns a savings snapshot for the active session.
func (m *Manager) Stats(ctx context.Context, sessionID string) (session.Stats, error) {
	st, _, err := m.ensure(ctx, sessionID)
	if err != nil {
		return session.Stats{}, err
	}
	return st.Stats.Snapshot(), nil
}

// fetchMessages lists messages with the configured timeout. The timeout
// is the only cancellation boundary in the pipeline.
func (m *Manager) fetchMessages(ctx context.Context, sessionID string) ([]message.Message, error) {
	if timeout := m.opts.FetchTimeout.Std(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	msgs, err := m.client.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}

// ensure fetches messages and makes sessionID the active session.
func (m *Manager) ensure(ctx context.Context, sessionID string) (*session.State, []message.Message, error) {
	msgs, err := m.fetchMessages(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	st := m.store.Ensure(ctx, sessionID, msgs)
	registerUnits(st, msgs)
	return st, msgs, nil
}

// registerUnits assigns identifiers to newly-appeared content: tool
// outputs, assistant text segments, and reasoning blocks. Registration
// is idempotent; re-seen content keeps its hash.
func registerUnits(st *session.State, msgs []message.Message) {
	for _, m := range msgs {
		if m.IsSummary {
			continue
		}
		for i, p := range m.Parts {
			switch part := p.(type) {
			case message.ToolPart:
				if part.Status == message.ToolCompleted || part.Status == message.ToolError {
					st.Registry.RegisterTool(part.CallID, part.Name, part.Output)
				}
			case message.TextPart:
				if m.Role == message.Assistant && part.Text != "" {
					st.Registry.Register(hashreg.TypeMessage, message.PartID(m.ID, i), part.Text)
				}
			case message.ReasoningPart:
				if part.Text != "" {
					st.Registry.Register(hashreg.TypeReasoning, message.PartID(m.ID, i), part.Text)
				}
			}
		}
	}
}

// updateSignature summarizes an update for the short-window dedup cache.
func updateSignature(sessionID string, msgs []message.Message) string {
	lastID := ""
	parts := 0
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		lastID = last.ID
		parts = len(last.Parts)
	}
	return fmt.Sprintf("update\x00%s\x00%d\x00%s\x00%d", sessionID, len(msgs), lastID, parts)
}
