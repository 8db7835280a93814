package prune

import (
	"github.com/winnow-sh/winnow/internal/config"
	"github.com/winnow-sh/winnow/internal/hashreg"
	"github.com/winnow-sh/winnow/internal/message"
	"github.com/winnow-sh/winnow/internal/session"
	"github.com/winnow-sh/winnow/internal/tokens"
)

// PurgeErrors fully prunes tool calls whose result status is "error" once
// their age in turns exceeds the configured threshold. No replacement
// text is left behind.
type PurgeErrors struct{}

func (PurgeErrors) Kind() session.StrategyKind { return session.KindPurge }
func (PurgeErrors) Primitive() Primitive       { return PrimitiveMarkOmitted }

func (PurgeErrors) Apply(st *session.State, opts config.Options, msgs []message.Message) error {
	for callID, entry := range st.Params {
		if entry.Status != message.ToolError {
			continue
		}
		if opts.IsPurgeProtectedTool(entry.Name) {
			continue
		}
		if st.Turn-entry.Turn <= opts.ErrorTurnThreshold {
			continue
		}
		if st.MarkOmitted(hashreg.TypeTool, callID) {
			var saved int64
			if tp, ok := message.FindToolPart(msgs, callID); ok {
				saved = tokens.Estimate(tp.Output)
			}
			st.Stats.Record(session.KindPurge, saved, 1)
		}
	}
	return nil
}
