package prune

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/winnow-sh/winnow/internal/config"
	"github.com/winnow-sh/winnow/internal/hashreg"
	"github.com/winnow-sh/winnow/internal/message"
	"github.com/winnow-sh/winnow/internal/session"
	"github.com/winnow-sh/winnow/internal/tokens"
)

// Reason is the closed enum of manual discard reasons.
type Reason string

const (
	ReasonNoise       Reason = "noise"
	ReasonCompletion  Reason = "completion"
	ReasonSuperseded  Reason = "superseded"
	ReasonExploration Reason = "exploration"
	ReasonDuplicate   Reason = "duplicate"
)

// ValidReasons lists every accepted discard reason.
var ValidReasons = []Reason{
	ReasonNoise, ReasonCompletion, ReasonSuperseded, ReasonExploration, ReasonDuplicate,
}

// distillHistoryReason labels distill operations in the history log.
const distillHistoryReason = "distill"

// Result summarizes a successful manual prune.
type Result struct {
	Hashes      []string
	TokensSaved int64
	Distilled   int // units converted to distill (reasoning placeholder policy)
}

// DistillEntry pairs a hash with its replacement text.
type DistillEntry struct {
	Hash        string
	Replacement string
}

// RestoreResult reports the per-id outcome of a restore batch. Individual
// failures never abort the batch.
type RestoreResult struct {
	Restored  []string
	NotFound  []string
	NotPruned []string
}

// Discard manually prunes the units named by hashes. Every hash is
// validated before any mutation occurs: unknown and already-pruned
// hashes, protected tools, and protected file paths are all rejected
// with an error naming the violated rule.
//
// When Options.ReasoningPlaceholder is set, discarding a reasoning block
// is converted into a distill with the placeholder text, keeping the
// reasoning field non-empty for hosts whose API requires it.
func Discard(st *session.State, opts config.Options, msgs []message.Message, hashes []string, reason Reason) (Result, error) {
	if !validReason(reason) {
		return Result{}, fmt.Errorf("%w: %q (valid: noise, completion, superseded, exploration, duplicate)", ErrBadReason, reason)
	}

	entries, err := validateHashes(st, opts, hashes)
	if err != nil {
		return Result{}, err
	}

	res := Result{Hashes: hashes}
	for _, entry := range entries {
		saved := markManual(st, msgs, entry, opts.ReasoningPlaceholder, &res)
		res.TokensSaved += saved
	}

	st.AppendHistory(session.DiscardRecord{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		Hashes:      hashes,
		TokensSaved: res.TokensSaved,
		Reason:      string(reason),
	}, opts.HistoryLimit)

	return res, nil
}

// Distill manually prunes units while storing replacement text that is
// rendered instead of the original content. Validation matches Discard.
func Distill(st *session.State, opts config.Options, msgs []message.Message, entries []DistillEntry) (Result, error) {
	hashes := make([]string, len(entries))
	for i, e := range entries {
		if e.Replacement == "" {
			return Result{}, fmt.Errorf("%w for hash %q", ErrEmptyText, e.Hash)
		}
		hashes[i] = e.Hash
	}

	resolved, err := validateHashes(st, opts, hashes)
	if err != nil {
		return Result{}, err
	}

	res := Result{Hashes: hashes}
	for i, entry := range resolved {
		content, _ := unitContent(msgs, entry)
		st.MarkOmitted(entry.Type, entry.ID)
		st.Replacements[entry.ID] = entries[i].Replacement

		saved := tokens.Estimate(content) - tokens.Estimate(entries[i].Replacement)
		if saved < 0 {
			saved = 0
		}
		st.Stats.Record(session.KindDistill, saved, 1)
		res.TokensSaved += saved
		res.Distilled++
	}

	st.AppendHistory(session.DiscardRecord{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		Hashes:      hashes,
		TokensSaved: res.TokensSaved,
		Reason:      distillHistoryReason,
	}, opts.HistoryLimit)

	return res, nil
}

// Restore removes the named units from their prune sets. Unknown hashes
// and hashes that were never pruned are reported individually; the rest
// of the batch proceeds. A restored id is indistinguishable from one that
// was never pruned.
func Restore(st *session.State, hashes []string) RestoreResult {
	var res RestoreResult
	for _, h := range hashes {
		entry, ok := st.Registry.Lookup(h)
		if !ok {
			res.NotFound = append(res.NotFound, h)
			continue
		}
		if !st.Restore(entry.Type, entry.ID) {
			res.NotPruned = append(res.NotPruned, h)
			continue
		}
		res.Restored = append(res.Restored, h)
	}
	return res
}

// validateHashes resolves every hash and checks protection rules. No
// mutation happens unless the whole batch validates.
func validateHashes(st *session.State, opts config.Options, hashes []string) ([]hashreg.Entry, error) {
	entries := make([]hashreg.Entry, 0, len(hashes))
	for _, h := range hashes {
		entry, ok := st.Registry.Lookup(h)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a registered content hash", ErrUnknownHash, h)
		}
		if st.Prune.Has(entry.Type, entry.ID) {
			return nil, fmt.Errorf("%w: %q (%s)", ErrAlreadyPruned, h, entry.ID)
		}
		if entry.Type == hashreg.TypeTool {
			if opts.IsProtectedTool(entry.ToolName) {
				return nil, fmt.Errorf("%w: %q belongs to tool %q, which the protected-tools configuration forbids pruning", ErrProtectedTool, h, entry.ToolName)
			}
			if param, cached := st.Params[entry.ID]; cached {
				if path := session.ParamPath(param.Params); path != "" && opts.IsProtectedPath(path) {
					return nil, fmt.Errorf("%w: %q operates on %q, which matches a protected path pattern", ErrProtectedPath, h, path)
				}
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// markManual applies the discard mutation for one validated entry,
// applying the reasoning placeholder policy when configured.
func markManual(st *session.State, msgs []message.Message, entry hashreg.Entry, placeholder string, res *Result) int64 {
	content, _ := unitContent(msgs, entry)
	size := tokens.Estimate(content)

	if entry.Type == hashreg.TypeReasoning && placeholder != "" {
		st.MarkOmitted(entry.Type, entry.ID)
		st.Replacements[entry.ID] = placeholder
		saved := size - tokens.Estimate(placeholder)
		if saved < 0 {
			saved = 0
		}
		st.Stats.Record(session.KindDistill, saved, 1)
		res.Distilled++
		return saved
	}

	st.MarkOmitted(entry.Type, entry.ID)
	st.Stats.Record(session.KindDiscard, size, 1)
	return size
}

func validReason(r Reason) bool {
	for _, v := range ValidReasons {
		if r == v {
			return true
		}
	}
	return false
}
