package prune

import (
	"github.com/zeebo/xxh3"

	"github.com/winnow-sh/winnow/internal/config"
	"github.com/winnow-sh/winnow/internal/hashreg"
	"github.com/winnow-sh/winnow/internal/message"
	"github.com/winnow-sh/winnow/internal/session"
	"github.com/winnow-sh/winnow/internal/tokens"
)

// Dedupe prunes repeated tool calls: calls sharing (toolName, normalized
// parameters) and identical output keep only the most recent occurrence
// in conversation order.
type Dedupe struct{}

func (Dedupe) Kind() session.StrategyKind { return session.KindDedupe }
func (Dedupe) Primitive() Primitive       { return PrimitiveMarkOmitted }

type dedupeCall struct {
	callID string
	output string
}

func (Dedupe) Apply(st *session.State, opts config.Options, msgs []message.Message) error {
	// Group completed calls by a stable hash of (toolName, params) plus
	// output content, walking in conversation order so ties always break
	// the same way regardless of scan arrival.
	groups := make(map[uint64][]dedupeCall)
	var order []uint64

	for _, m := range msgs {
		if m.IsSummary {
			continue
		}
		for _, p := range m.Parts {
			tp, ok := p.(message.ToolPart)
			if !ok || tp.Status != message.ToolCompleted {
				continue
			}
			if opts.IsProtectedTool(tp.Name) {
				continue
			}
			entry, cached := st.Params[tp.CallID]
			params := entry.Params
			if !cached {
				params = session.NormalizeParams(tp.Input)
			}
			key := xxh3.HashString(tp.Name + "\x00" + params + "\x00" + tp.Output)
			if _, seen := groups[key]; !seen {
				order = append(order, key)
			}
			groups[key] = append(groups[key], dedupeCall{callID: tp.CallID, output: tp.Output})
		}
	}

	for _, key := range order {
		calls := groups[key]
		if len(calls) < 2 {
			continue
		}
		// All but the most recent member are redundant.
		for _, call := range calls[:len(calls)-1] {
			if st.MarkOmitted(hashreg.TypeTool, call.callID) {
				st.Stats.Record(session.KindDedupe, tokens.Estimate(call.output), 1)
			}
		}
	}
	return nil
}
