package prune

import (
	"fmt"
	"strings"

	"github.com/winnow-sh/winnow/internal/config"
	"github.com/winnow-sh/winnow/internal/hashreg"
	"github.com/winnow-sh/winnow/internal/message"
	"github.com/winnow-sh/winnow/internal/session"
)

// spanSeparator splits a literal text-span target into start and end.
const spanSeparator = "..."

// ExpandTargets resolves the targets of a bulk context operation into
// hashes. Supported forms:
//
//   - a literal hash ("a1b2c3", optionally suffixed)
//   - bulk category patterns: [tools], [messages], [*], [all]
//   - a literal text span "start...end" matched against message text
//
// Bulk patterns expand to every currently-eligible, non-protected id of
// the category; categories that expand to nothing are not an error, but a
// malformed pattern or an unmatched text span is.
func ExpandTargets(st *session.State, opts config.Options, msgs []message.Message, targets []string) ([]string, error) {
	var hashes []string
	seen := make(map[string]struct{})

	add := func(h string) {
		if _, dup := seen[h]; !dup {
			seen[h] = struct{}{}
			hashes = append(hashes, h)
		}
	}

	for _, target := range targets {
		switch {
		case strings.HasPrefix(target, "[") && strings.HasSuffix(target, "]"):
			expanded, err := expandCategory(st, opts, target)
			if err != nil {
				return nil, err
			}
			for _, h := range expanded {
				add(h)
			}
		case strings.Contains(target, spanSeparator):
			h, err := resolveSpan(st, msgs, target)
			if err != nil {
				return nil, err
			}
			add(h)
		default:
			add(target)
		}
	}
	return hashes, nil
}

func expandCategory(st *session.State, opts config.Options, pattern string) ([]string, error) {
	var types []hashreg.Type
	switch pattern {
	case "[tools]":
		types = []hashreg.Type{hashreg.TypeTool}
	case "[messages]":
		types = []hashreg.Type{hashreg.TypeMessage, hashreg.TypeSegment}
	case "[*]", "[all]":
		types = []hashreg.Type{hashreg.TypeTool, hashreg.TypeMessage, hashreg.TypeReasoning, hashreg.TypeSegment}
	default:
		return nil, fmt.Errorf("%w: %q (expected [tools], [messages], [*], or [all])", ErrBadPattern, pattern)
	}

	var hashes []string
	for _, entry := range st.Registry.Entries() {
		if !containsType(types, entry.Type) {
			continue
		}
		if st.Prune.Has(entry.Type, entry.ID) {
			continue
		}
		if entry.Type == hashreg.TypeTool {
			if opts.IsProtectedTool(entry.ToolName) {
				continue
			}
			if param, cached := st.Params[entry.ID]; cached {
				if path := session.ParamPath(param.Params); path != "" && opts.IsProtectedPath(path) {
					continue
				}
			}
		}
		hashes = append(hashes, entry.Hash)
	}
	return hashes, nil
}

// resolveSpan finds the message or reasoning part whose text contains the
// literal start and, after it, the literal end, and returns that part's
// hash. The span addresses the containing unit, not a sub-range.
func resolveSpan(st *session.State, msgs []message.Message, target string) (string, error) {
	i := strings.Index(target, spanSeparator)
	start := target[:i]
	end := target[i+len(spanSeparator):]
	if start == "" || end == "" {
		return "", fmt.Errorf("%w: %q (expected \"start...end\" with non-empty ends)", ErrBadPattern, target)
	}

	for _, m := range msgs {
		for idx, p := range m.Parts {
			var text string
			var t hashreg.Type
			switch part := p.(type) {
			case message.TextPart:
				text, t = part.Text, hashreg.TypeMessage
			case message.ReasoningPart:
				text, t = part.Text, hashreg.TypeReasoning
			default:
				continue
			}
			si := strings.Index(text, start)
			if si < 0 {
				continue
			}
			if !strings.Contains(text[si+len(start):], end) {
				continue
			}
			partID := message.PartID(m.ID, idx)
			return st.Registry.Register(t, partID, text), nil
		}
	}
	return "", fmt.Errorf("%w: text span %q matched no message content", ErrBadPattern, target)
}

func containsType(types []hashreg.Type, t hashreg.Type) bool {
	for _, v := range types {
		if v == t {
			return true
		}
	}
	return false
}
