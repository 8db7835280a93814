package prune

import (
	"fmt"
	"strings"

	"github.com/winnow-sh/winnow/internal/config"
	"github.com/winnow-sh/winnow/internal/hashreg"
	"github.com/winnow-sh/winnow/internal/message"
	"github.com/winnow-sh/winnow/internal/session"
	"github.com/winnow-sh/winnow/internal/tokens"
)

// headSummaryRunes bounds the leading excerpt kept by compression.
const headSummaryRunes = 500

// keyLineMarkers flag lines worth extracting from a reasoning block:
// decisions, conclusions, and failures.
var keyLineMarkers = []string{
	"decided", "decision", "conclusion", "conclude", "therefore",
	"will ", "must ", "should ", "error", "fail", "instead",
}

// CompressReasoning rewrites old, large assistant reasoning blocks to a
// head excerpt plus extracted key lines and an explicit compression
// marker. Blocks are never fully deleted by this strategy; full omission
// is what discard is for.
type CompressReasoning struct{}

func (CompressReasoning) Kind() session.StrategyKind { return session.KindReasoning }
func (CompressReasoning) Primitive() Primitive       { return PrimitiveRewrite }

func (CompressReasoning) Apply(st *session.State, opts config.Options, msgs []message.Message) error {
	turn := 0
	for _, m := range msgs {
		if m.IsSummary {
			continue
		}
		for i, p := range m.Parts {
			if _, ok := p.(message.StepBoundaryPart); ok {
				turn++
				continue
			}
			rp, ok := p.(message.ReasoningPart)
			if !ok || m.Role != message.Assistant {
				continue
			}

			partID := message.PartID(m.ID, i)
			if st.Prune.Has(hashreg.TypeReasoning, partID) || st.Rewritten(partID) {
				continue
			}
			if st.Turn-turn < opts.ReasoningTurnThreshold {
				continue
			}
			size := tokens.Estimate(rp.Text)
			if size <= opts.ReasoningTokenThreshold {
				continue
			}

			hash := st.Registry.Register(hashreg.TypeReasoning, partID, rp.Text)
			compressed := compressReasoningText(rp.Text, hash, opts.ReasoningKeyLines)

			st.Rewrite(partID, compressed)
			saved := size - tokens.Estimate(compressed)
			if saved < 0 {
				saved = 0
			}
			st.Stats.Record(session.KindReasoning, saved, 1)
		}
	}
	return nil
}

// compressReasoningText builds the head-summary + key-line rendition.
func compressReasoningText(text, hash string, maxKeyLines int) string {
	head := firstParagraph(text)
	head = tokens.Truncate(head, headSummaryRunes)

	var sb strings.Builder
	sb.WriteString(head)

	keys := keyLines(text, head, maxKeyLines)
	if len(keys) > 0 {
		sb.WriteString("\n\nKey points:")
		for _, line := range keys {
			sb.WriteString("\n- ")
			sb.WriteString(line)
		}
	}

	fmt.Fprintf(&sb, "\n[reasoning compressed, full text at %s]",
		hashreg.WrapMarker(hashreg.TypeReasoning, hash))
	return sb.String()
}

func firstParagraph(text string) string {
	if i := strings.Index(text, "\n\n"); i >= 0 {
		return text[:i]
	}
	return text
}

// keyLines extracts up to max lines containing a decision or failure
// marker, skipping lines already present in the head excerpt.
func keyLines(text, head string, max int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.Contains(head, trimmed) {
			continue
		}
		lower := strings.ToLower(trimmed)
		for _, marker := range keyLineMarkers {
			if strings.Contains(lower, marker) {
				out = append(out, trimmed)
				break
			}
		}
		if len(out) >= max {
			break
		}
	}
	return out
}
