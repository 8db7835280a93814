package session

// StrategyKind names a savings source for per-strategy accounting.
type StrategyKind string

const (
	KindDedupe    StrategyKind = "dedupe"
	KindSupersede StrategyKind = "supersede"
	KindPurge     StrategyKind = "purge"
	KindTruncate  StrategyKind = "truncate"
	KindReasoning StrategyKind = "reasoning"
	KindDiscard   StrategyKind = "discard"
	KindDistill   StrategyKind = "distill"
)

// StrategyStats are the savings attributed to one strategy.
type StrategyStats struct {
	TokensSaved int64 `json:"tokens_saved"`
	UnitsSaved  int64 `json:"units_saved"`
}

// Stats are monotonically non-decreasing savings counters. They survive
// host compaction events and are only cleared on a full session reset.
type Stats struct {
	TokensSaved int64                          `json:"tokens_saved"`
	UnitsSaved  int64                          `json:"units_saved"`
	PerStrategy map[StrategyKind]StrategyStats `json:"per_strategy"`
}

// NewStats returns zeroed stats.
func NewStats() Stats {
	return Stats{PerStrategy: make(map[StrategyKind]StrategyStats)}
}

// Record adds savings for a strategy.
func (s *Stats) Record(kind StrategyKind, tokens, units int64) {
	s.TokensSaved += tokens
	s.UnitsSaved += units
	ps := s.PerStrategy[kind]
	ps.TokensSaved += tokens
	ps.UnitsSaved += units
	s.PerStrategy[kind] = ps
}

// Snapshot returns a copy safe to hand to callers.
func (s Stats) Snapshot() Stats {
	out := Stats{
		TokensSaved: s.TokensSaved,
		UnitsSaved:  s.UnitsSaved,
		PerStrategy: make(map[StrategyKind]StrategyStats, len(s.PerStrategy)),
	}
	for k, v := range s.PerStrategy {
		out.PerStrategy[k] = v
	}
	return out
}
