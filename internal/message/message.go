// Package message defines the conversation data model shared by the
// pruning engine: ordered messages made of typed parts, addressed by
// (messageID, partIndex), plus the minimal host capability interface
// the engine consumes.
package message

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	User      Role = "user"
	Assistant Role = "assistant"
	System    Role = "system"
)

// ToolStatus is the execution status of a tool call.
type ToolStatus string

const (
	ToolPending   ToolStatus = "pending"
	ToolCompleted ToolStatus = "completed"
	ToolError     ToolStatus = "error"
)

// Message is an ordered conversation unit with a stable ID and typed parts.
type Message struct {
	ID        string
	Role      Role
	CreatedAt time.Time
	Parts     []Part

	// IsSummary marks a synthetic assistant message injected by the host
	// after it compacted history. Summary messages are skipped for turn
	// counting and drive compaction detection.
	IsSummary bool
}

// Part is one addressable unit inside a message.
type Part interface {
	isPart()
}

// TextPart is plain assistant or user text.
type TextPart struct {
	Text string
}

// ReasoningPart is an assistant reasoning (thinking) block.
type ReasoningPart struct {
	Text string
}

// ToolPart is a tool call together with its result.
type ToolPart struct {
	CallID string
	Name   string
	Input  string // raw JSON parameters
	Output string
	Status ToolStatus
}

// StepBoundaryPart marks an agent action boundary. Turn counting counts
// these markers.
type StepBoundaryPart struct{}

// FilePart is a file attachment reference.
type FilePart struct {
	Path string
	MIME string
}

// SnapshotPart carries a host-side state snapshot identifier.
type SnapshotPart struct {
	Snapshot string
}

// SourceURLPart is a source-url citation.
type SourceURLPart struct {
	URL   string
	Title string
}

func (TextPart) isPart()         {}
func (ReasoningPart) isPart()    {}
func (ToolPart) isPart()         {}
func (StepBoundaryPart) isPart() {}
func (FilePart) isPart()         {}
func (SnapshotPart) isPart()     {}
func (SourceURLPart) isPart()    {}

// PartID returns the stable address of a part within a message.
func PartID(messageID string, partIndex int) string {
	return messageID + ":" + strconv.Itoa(partIndex)
}

// SplitPartID splits a part address back into message ID and part index.
func SplitPartID(id string) (messageID string, partIndex int, err error) {
	i := strings.LastIndexByte(id, ':')
	if i < 0 {
		return "", 0, fmt.Errorf("malformed part id %q", id)
	}
	idx, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed part id %q: %w", id, err)
	}
	return id[:i], idx, nil
}

// Text concatenates all plain-text content of a message.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}

// FindToolPart returns the tool part with the given call ID, if present.
func FindToolPart(msgs []Message, callID string) (ToolPart, bool) {
	for _, m := range msgs {
		for _, p := range m.Parts {
			if tp, ok := p.(ToolPart); ok && tp.CallID == callID {
				return tp, true
			}
		}
	}
	return ToolPart{}, false
}

// FindPart resolves a part address against a message list.
func FindPart(msgs []Message, partID string) (Part, bool) {
	msgID, idx, err := SplitPartID(partID)
	if err != nil {
		return nil, false
	}
	for _, m := range msgs {
		if m.ID != msgID {
			continue
		}
		if idx < 0 || idx >= len(m.Parts) {
			return nil, false
		}
		return m.Parts[idx], true
	}
	return nil, false
}
