// Package prune implements the strategy engine: automatic transforms
// that mark conversation units for omission or rewrite their text in
// place, and the manual discard/distill/restore operations.
package prune

import (
	"fmt"
	"log/slog"

	"github.com/winnow-sh/winnow/internal/config"
	"github.com/winnow-sh/winnow/internal/hashreg"
	"github.com/winnow-sh/winnow/internal/message"
	"github.com/winnow-sh/winnow/internal/session"
)

// Primitive is the single effect a strategy is allowed to perform.
// Omission and rewrite are deliberately distinct primitives; a strategy
// never silently does the other's job.
type Primitive int

const (
	// PrimitiveMarkOmitted adds unit ids to a prune set.
	PrimitiveMarkOmitted Primitive = iota
	// PrimitiveRewrite replaces a unit's text in place, never its identity.
	PrimitiveRewrite
)

// Strategy is one automatic pruning transform.
type Strategy interface {
	// Kind names the strategy for savings accounting.
	Kind() session.StrategyKind

	// Primitive declares the one effect this strategy performs.
	Primitive() Primitive

	// Apply runs the strategy against the current state and messages.
	Apply(st *session.State, opts config.Options, msgs []message.Message) error
}

// Engine runs the automatic strategies in a fixed order, each observing
// the cumulative prune-set effects of its predecessors.
type Engine struct {
	strategies []Strategy
}

// NewEngine returns an engine with the standard strategy order:
// deduplication, write/read supersede, error purge, truncation, and
// reasoning compression.
func NewEngine() *Engine {
	return &Engine{
		strategies: []Strategy{
			&Dedupe{},
			&Supersede{},
			&PurgeErrors{},
			&Truncate{},
			&CompressReasoning{},
		},
	}
}

// Run applies every strategy in order. A failure inside one strategy is
// caught and logged and that strategy's effect is skipped; the remaining
// strategies still run.
func (e *Engine) Run(st *session.State, opts config.Options, msgs []message.Message) {
	for _, strat := range e.strategies {
		if err := runOne(strat, st, opts, msgs); err != nil {
			slog.Warn("Pruning strategy failed, skipping",
				"strategy", strat.Kind(),
				"session_id", st.ID,
				"error", err,
			)
		}
	}
}

func runOne(strat Strategy, st *session.State, opts config.Options, msgs []message.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in strategy %s: %v", strat.Kind(), r)
		}
	}()
	return strat.Apply(st, opts, msgs)
}

// unitContent resolves the text content of a registered unit against the
// message list.
func unitContent(msgs []message.Message, entry hashreg.Entry) (string, bool) {
	if entry.Type == hashreg.TypeTool {
		tp, ok := message.FindToolPart(msgs, entry.ID)
		if !ok {
			return "", false
		}
		return tp.Output, true
	}
	part, ok := message.FindPart(msgs, entry.ID)
	if !ok {
		return "", false
	}
	switch p := part.(type) {
	case message.TextPart:
		return p.Text, true
	case message.ReasoningPart:
		return p.Text, true
	default:
		return "", false
	}
}
