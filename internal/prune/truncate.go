package prune

import (
	"fmt"

	"github.com/winnow-sh/winnow/internal/config"
	"github.com/winnow-sh/winnow/internal/hashreg"
	"github.com/winnow-sh/winnow/internal/message"
	"github.com/winnow-sh/winnow/internal/session"
	"github.com/winnow-sh/winnow/internal/tokens"
)

// Truncate rewrites oversized tool outputs in place: head and tail are
// retained around an elision marker carrying the output's hash, so the
// agent can still reference the unit. Error outputs keep only their first
// line. This is a content edit; the unit is never pruned at the id level.
type Truncate struct{}

func (Truncate) Kind() session.StrategyKind { return session.KindTruncate }
func (Truncate) Primitive() Primitive       { return PrimitiveRewrite }

func (Truncate) Apply(st *session.State, opts config.Options, msgs []message.Message) error {
	for _, m := range msgs {
		if m.IsSummary {
			continue
		}
		for _, p := range m.Parts {
			tp, ok := p.(message.ToolPart)
			if !ok || tp.Output == "" {
				continue
			}
			if st.Prune.Has(hashreg.TypeTool, tp.CallID) || st.Rewritten(tp.CallID) {
				continue
			}
			size := tokens.Estimate(tp.Output)
			if size <= opts.TruncateTokenThreshold {
				continue
			}

			hash := st.Registry.RegisterTool(tp.CallID, tp.Name, tp.Output)
			marker := hashreg.WrapMarker(hashreg.TypeTool, hash)

			var rewritten string
			if tp.Status == message.ToolError {
				rewritten = fmt.Sprintf("%s\n[error output truncated, full output at %s]",
					tokens.FirstLine(tp.Output), marker)
			} else {
				head := tokens.Truncate(tp.Output, opts.TruncateHeadRunes)
				tail := tokens.Tail(tp.Output, opts.TruncateTailRunes)
				rewritten = fmt.Sprintf("%s\n[... truncated, full output at %s ...]\n%s",
					head, marker, tail)
			}

			st.Rewrite(tp.CallID, rewritten)
			saved := size - tokens.Estimate(rewritten)
			if saved < 0 {
				saved = 0
			}
			st.Stats.Record(session.KindTruncate, saved, 1)
		}
	}
	return nil
}
