// Package hashreg assigns short content-addressable identifiers to tool
// outputs, message parts, and reasoning blocks, and recognizes those
// identifiers when they are embedded in rendered text.
package hashreg

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/winnow-sh/winnow/internal/tokens"
)

// HashLen is the number of hex characters in a base hash.
const HashLen = 6

// previewRunes is the number of leading runes kept in an entry preview.
const previewRunes = 80

// identityRunes is the number of leading content runes mixed into a part
// hash. Tool hashes use the call ID instead, so re-running the same tool
// never collapses two distinct calls.
const identityRunes = 256

// Type categorizes a registered content unit.
type Type string

const (
	TypeTool      Type = "tool"
	TypeMessage   Type = "message"
	TypeReasoning Type = "reasoning"
	TypeSegment   Type = "segment"
)

// Entry is a content unit's identity record.
type Entry struct {
	Type     Type   `json:"type"`
	Hash     string `json:"hash"`
	ID       string `json:"id"` // call ID, or messageID:partIndex
	ToolName string `json:"tool_name,omitempty"`
	Preview  string `json:"preview,omitempty"`
}

// Registry maps ids to hashes and back. Within a session a given id maps
// to exactly one hash and vice versa; colliding 6-character digests get a
// numeric suffix so both ids stay independently resolvable.
type Registry struct {
	byHash map[string]Entry
	byID   map[string]string // type+"\x00"+id -> hash
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byHash: make(map[string]Entry),
		byID:   make(map[string]string),
	}
}

func idKey(t Type, id string) string {
	return string(t) + "\x00" + id
}

// Register assigns a hash to (t, id) derived from content, or returns the
// previously assigned hash. Registration never reassigns: the first hash
// for a given (type, id) pair is permanent for the session.
func (r *Registry) Register(t Type, id, content string) string {
	return r.register(t, id, "", content)
}

// RegisterTool registers a tool call. The hash identity is the tool name
// plus call ID, so identical outputs from distinct calls get distinct
// hashes.
func (r *Registry) RegisterTool(callID, toolName, output string) string {
	return r.register(TypeTool, callID, toolName, output)
}

func (r *Registry) register(t Type, id, toolName, content string) string {
	key := idKey(t, id)
	if h, ok := r.byID[key]; ok {
		return h
	}

	base := digest(t, id, toolName, content)
	hash := base
	// Resolve accidental collisions with a numeric suffix.
	for n := 2; ; n++ {
		existing, taken := r.byHash[hash]
		if !taken {
			break
		}
		if existing.Type == t && existing.ID == id {
			break
		}
		hash = fmt.Sprintf("%s_%d", base, n)
	}

	r.byHash[hash] = Entry{
		Type:     t,
		Hash:     hash,
		ID:       id,
		ToolName: toolName,
		Preview:  preview(content),
	}
	r.byID[key] = hash
	return hash
}

// Lookup resolves a hash to its entry. Absence is a normal result, not an
// error; callers decide whether a missing hash matters.
func (r *Registry) Lookup(hash string) (Entry, bool) {
	e, ok := r.byHash[hash]
	return e, ok
}

// HashFor returns the hash previously assigned to (t, id), if any.
func (r *Registry) HashFor(t Type, id string) (string, bool) {
	h, ok := r.byID[idKey(t, id)]
	return h, ok
}

// Entries returns all entries ordered by hash, for persistence and display.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.byHash))
	for _, e := range r.byHash {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	return len(r.byHash)
}

// Restore repopulates the registry from persisted entries. Entries whose
// hash or id is already taken are skipped; the first registration wins,
// matching live behavior.
func (r *Registry) Restore(entries []Entry) {
	for _, e := range entries {
		if e.Hash == "" || e.ID == "" || e.Type == "" {
			continue
		}
		key := idKey(e.Type, e.ID)
		if _, ok := r.byID[key]; ok {
			continue
		}
		if _, ok := r.byHash[e.Hash]; ok {
			continue
		}
		r.byHash[e.Hash] = e
		r.byID[key] = e.Hash
	}
}

// digest derives the 6-hex-character base hash for a unit. Tool identity
// is (toolName, callID); part identity mixes in a content prefix so two
// parts of the same message stay distinct even if ids ever repeat.
func digest(t Type, id, toolName, content string) string {
	var input string
	if t == TypeTool {
		input = toolName + "\x00" + id
	} else {
		input = id + "\x00" + tokens.Truncate(content, identityRunes)
	}
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])[:HashLen]
}

// preview returns a single-line preview of content.
func preview(content string) string {
	p := tokens.Truncate(content, previewRunes)
	p = strings.Join(strings.Fields(p), " ")
	return p
}
