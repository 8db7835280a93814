// Package persist saves and loads per-session pruning state as a single
// JSON document per session id, written atomically via temp file plus
// rename. I/O failures are logged and absorbed; neither path surfaces
// errors to callers.
package persist

import (
	"sort"
	"time"

	"github.com/winnow-sh/winnow/internal/hashreg"
	"github.com/winnow-sh/winnow/internal/session"
)

// SchemaVersion is the current on-disk document version. Documents with
// an older (or missing) version are treated as absent rather than
// migrated; the session starts fresh.
const SchemaVersion = 2

// PruneDoc is the serialized form of the prune sets.
type PruneDoc struct {
	Tools     []string `json:"tools"`
	Parts     []string `json:"parts"`
	Reasoning []string `json:"reasoning"`
	Segments  []string `json:"segments"`
}

// Document is the persisted shape of a session's pruning state.
type Document struct {
	Version      int                     `json:"version"`
	SessionID    string                  `json:"session_id"`
	Prune        *PruneDoc               `json:"prune"`
	Stats        *session.Stats          `json:"stats"`
	Registry     []hashreg.Entry         `json:"registry,omitempty"`
	Cursors      session.Cursors         `json:"cursors"`
	History      []session.DiscardRecord `json:"history,omitempty"`
	Todos        []session.TodoItem      `json:"todos,omitempty"`
	Rewrites     map[string]string       `json:"rewrites,omitempty"`
	Replacements map[string]string       `json:"replacements,omitempty"`
	CompactedAt  time.Time               `json:"compacted_at,omitempty"`
}

// valid reports whether the document has the minimal required shape for
// the current schema. Anything else is a legacy or corrupt file.
func (d *Document) valid() bool {
	return d.Version == SchemaVersion && d.Prune != nil && d.Stats != nil
}

// snapshot captures a state into its persisted form.
func snapshot(st *session.State) Document {
	stats := st.Stats.Snapshot()
	return Document{
		Version:   SchemaVersion,
		SessionID: st.ID,
		Prune: &PruneDoc{
			Tools:     sortedKeys(st.Prune.Tools),
			Parts:     sortedKeys(st.Prune.Parts),
			Reasoning: sortedKeys(st.Prune.Reasoning),
			Segments:  sortedKeys(st.Prune.Segments),
		},
		Stats:        &stats,
		Registry:     st.Registry.Entries(),
		Cursors:      st.Cursors,
		History:      st.History,
		Todos:        st.Todos,
		Rewrites:     st.Rewrites,
		Replacements: st.Replacements,
		CompactedAt:  st.CompactedAt,
	}
}

// apply restores a persisted document into a freshly reset state.
func apply(doc *Document, st *session.State) {
	for _, id := range doc.Prune.Tools {
		st.Prune.Tools[id] = struct{}{}
	}
	for _, id := range doc.Prune.Parts {
		st.Prune.Parts[id] = struct{}{}
	}
	for _, id := range doc.Prune.Reasoning {
		st.Prune.Reasoning[id] = struct{}{}
	}
	for _, id := range doc.Prune.Segments {
		st.Prune.Segments[id] = struct{}{}
	}

	st.Stats = doc.Stats.Snapshot()
	if st.Stats.PerStrategy == nil {
		st.Stats.PerStrategy = make(map[session.StrategyKind]session.StrategyStats)
	}
	st.Registry.Restore(doc.Registry)

	if doc.Cursors.LastWriteByPath != nil {
		st.Cursors = doc.Cursors
	}
	if st.Cursors.LastWriteByPath == nil {
		st.Cursors.LastWriteByPath = make(map[string]session.OpRef)
	}
	if st.Cursors.LastQueryByNorm == nil {
		st.Cursors.LastQueryByNorm = make(map[string]session.OpRef)
	}

	st.History = doc.History
	st.Todos = doc.Todos
	for id, text := range doc.Rewrites {
		st.Rewrites[id] = text
	}
	for id, text := range doc.Replacements {
		st.Replacements[id] = text
	}
	st.CompactedAt = doc.CompactedAt
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
