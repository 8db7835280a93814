// Package session holds the per-session source of truth for pruning:
// prune sets, savings stats, cursors, the tool-parameter cache, discard
// history, and the session lifecycle state machine.
package session

import (
	"time"

	"github.com/winnow-sh/winnow/internal/hashreg"
)

// Phase is the lifecycle phase of a session state.
type Phase int

const (
	Uninitialized Phase = iota
	Initializing
	Active
)

// PruneSets are the four disjoint-by-purpose sets of omitted unit ids.
// Membership is idempotent and monotonic except on restore or reset.
type PruneSets struct {
	Tools     map[string]struct{}
	Parts     map[string]struct{}
	Reasoning map[string]struct{}
	Segments  map[string]struct{}
}

// NewPruneSets returns empty prune sets.
func NewPruneSets() PruneSets {
	return PruneSets{
		Tools:     make(map[string]struct{}),
		Parts:     make(map[string]struct{}),
		Reasoning: make(map[string]struct{}),
		Segments:  make(map[string]struct{}),
	}
}

func (p PruneSets) setFor(t hashreg.Type) map[string]struct{} {
	switch t {
	case hashreg.TypeTool:
		return p.Tools
	case hashreg.TypeReasoning:
		return p.Reasoning
	case hashreg.TypeSegment:
		return p.Segments
	default:
		return p.Parts
	}
}

// Has reports whether the id is pruned under the given type.
func (p PruneSets) Has(t hashreg.Type, id string) bool {
	_, ok := p.setFor(t)[id]
	return ok
}

// Len returns the total number of pruned ids across all sets.
func (p PruneSets) Len() int {
	return len(p.Tools) + len(p.Parts) + len(p.Reasoning) + len(p.Segments)
}

// OpRef locates a tool operation for supersede bookkeeping.
type OpRef struct {
	CallID string `json:"call_id"`
	Turn   int    `json:"turn"`
}

// Cursors are the per-strategy bookkeeping needed to detect supersede
// relationships without rescanning full history.
type Cursors struct {
	LastWriteByPath map[string]OpRef `json:"last_write_by_path"`
	LastQueryByNorm map[string]OpRef `json:"last_query_by_norm"`
	LastTodoWrite   OpRef            `json:"last_todo_write"`

	// Automata-mode turn bookkeeping.
	AutomataActivatedTurn int `json:"automata_activated_turn"`
	AutomataReflectTurn   int `json:"automata_reflect_turn"`
}

// NewCursors returns empty cursors.
func NewCursors() Cursors {
	return Cursors{
		LastWriteByPath: make(map[string]OpRef),
		LastQueryByNorm: make(map[string]OpRef),
	}
}

// DiscardRecord is one entry in the bounded discard-history log.
type DiscardRecord struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Hashes      []string  `json:"hashes"`
	TokensSaved int64     `json:"tokens_saved"`
	Reason      string    `json:"reason"`
}

// TodoItem is one entry of the session's todo snapshot.
type TodoItem struct {
	Content string `json:"content"`
	Status  string `json:"status"`
}

// State is the aggregate root for one session.
type State struct {
	ID       string
	Phase    Phase
	SubAgent bool
	Turn     int

	// CompactedAt is the watermark of the newest host compaction summary
	// seen so far.
	CompactedAt time.Time

	Prune    PruneSets
	Stats    Stats
	Registry *hashreg.Registry
	Params   map[string]ToolParameterEntry
	Cursors  Cursors
	History  []DiscardRecord
	Todos    []TodoItem

	// Rewrites maps unit ids to in-place rewritten text (truncation,
	// reasoning compression). Distinct from omission: a rewritten unit is
	// still rendered.
	Rewrites map[string]string

	// Replacements maps pruned unit ids to distill replacement text
	// rendered instead of the original content.
	Replacements map[string]string
}

// NewState returns an empty state for a session id, in the
// Uninitialized phase.
func NewState(sessionID string) *State {
	return &State{
		ID:           sessionID,
		Phase:        Uninitialized,
		Prune:        NewPruneSets(),
		Stats:        NewStats(),
		Registry:     hashreg.New(),
		Params:       make(map[string]ToolParameterEntry),
		Cursors:      NewCursors(),
		Rewrites:     make(map[string]string),
		Replacements: make(map[string]string),
	}
}

// MarkOmitted adds an id to the prune set for its type. Returns false if
// the id was already pruned; re-adding is a no-op and must not be counted
// twice by callers.
func (s *State) MarkOmitted(t hashreg.Type, id string) bool {
	set := s.Prune.setFor(t)
	if _, ok := set[id]; ok {
		return false
	}
	set[id] = struct{}{}
	return true
}

// Rewrite stores the in-place rewritten text for a unit. This is the
// content-edit primitive; it never touches the prune sets.
func (s *State) Rewrite(id, newText string) {
	s.Rewrites[id] = newText
}

// Rewritten reports whether a unit already has an in-place rewrite.
func (s *State) Rewritten(id string) bool {
	_, ok := s.Rewrites[id]
	return ok
}

// Restore removes an id from the prune set for its type, along with any
// distill replacement. Returns false if the id was not pruned.
func (s *State) Restore(t hashreg.Type, id string) bool {
	set := s.Prune.setFor(t)
	if _, ok := set[id]; !ok {
		return false
	}
	delete(set, id)
	delete(s.Replacements, id)
	return true
}

// AppendHistory appends a discard record, trimming the log to limit.
func (s *State) AppendHistory(rec DiscardRecord, limit int) {
	s.History = append(s.History, rec)
	if limit > 0 && len(s.History) > limit {
		s.History = s.History[len(s.History)-limit:]
	}
}

// ClearCompacted clears the tool-parameter cache and the tool prune set
// after a host compaction: both are meaningless once the model has
// compacted history. Stats and the hash registry are left intact.
func (s *State) ClearCompacted(watermark time.Time) {
	s.Params = make(map[string]ToolParameterEntry)
	s.Prune.Tools = make(map[string]struct{})
	s.CompactedAt = watermark
}
