package manager

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/winnow-sh/winnow/internal/hashreg"
	"github.com/winnow-sh/winnow/internal/message"
	"github.com/winnow-sh/winnow/internal/session"
)

// Render returns the message list as it should be shown to the agent:
// pruned units collapse to an elision note (or their distill
// replacement), rewritten units carry their rewritten text, and file
// attachments are inlined through the file-content cache. The underlying
// records are never mutated; pruning is a view concern.
func (m *Manager) Render(ctx context.Context, sessionID string) ([]message.Message, error) {
	mu := m.sessionMutex(sessionID)
	mu.Lock()
	defer mu.Unlock()

	st, msgs, err := m.ensure(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return m.renderLocked(st, msgs), nil
}

func (m *Manager) renderLocked(st *session.State, msgs []message.Message) []message.Message {
	out := make([]message.Message, len(msgs))
	for mi, msg := range msgs {
		rendered := msg
		rendered.Parts = make([]message.Part, len(msg.Parts))
		for pi, p := range msg.Parts {
			rendered.Parts[pi] = m.renderPart(st, msg, pi, p)
		}
		out[mi] = rendered
	}
	return out
}

func (m *Manager) renderPart(st *session.State, msg message.Message, idx int, p message.Part) message.Part {
	switch part := p.(type) {
	case message.ToolPart:
		if st.Prune.Has(hashreg.TypeTool, part.CallID) {
			part.Output = m.elision(st, hashreg.TypeTool, part.CallID)
			return part
		}
		if text, ok := st.Rewrites[part.CallID]; ok {
			part.Output = text
		}
		return part

	case message.TextPart:
		id := message.PartID(msg.ID, idx)
		if st.Prune.Has(hashreg.TypeMessage, id) || st.Prune.Has(hashreg.TypeSegment, id) {
			part.Text = m.elision(st, hashreg.TypeMessage, id)
		}
		return part

	case message.ReasoningPart:
		id := message.PartID(msg.ID, idx)
		if st.Prune.Has(hashreg.TypeReasoning, id) {
			part.Text = m.elision(st, hashreg.TypeReasoning, id)
			return part
		}
		if text, ok := st.Rewrites[id]; ok {
			part.Text = text
		}
		return part

	case message.FilePart:
		content, err := m.files.Get(part.Path)
		if err != nil {
			slog.Warn("Failed to inline file attachment", "path", part.Path, "error", err)
			return part
		}
		return message.TextPart{Text: fmt.Sprintf("Contents of %s:\n%s", part.Path, content)}

	default:
		return p
	}
}

// elision renders the text shown in place of a pruned unit: its distill
// replacement when one exists, otherwise a note carrying the unit's hash
// so the agent can ask for it back.
func (m *Manager) elision(st *session.State, t hashreg.Type, id string) string {
	if text, ok := st.Replacements[id]; ok {
		return text
	}
	if hash, ok := st.Registry.HashFor(t, id); ok {
		return fmt.Sprintf("[content pruned, restore with %s]", hashreg.WrapMarker(t, hash))
	}
	return "[content pruned]"
}
