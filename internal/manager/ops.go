package manager

import (
	"context"
	"fmt"
	"strings"

	"github.com/winnow-sh/winnow/internal/prune"
)

// Discard manually prunes the units named by hashes. Returns a summary
// string for the calling tool; validation failures are returned as
// descriptive errors and leave state untouched.
func (m *Manager) Discard(ctx context.Context, sessionID string, hashes []string, reason prune.Reason) (string, error) {
	mu := m.sessionMutex(sessionID)
	mu.Lock()
	defer mu.Unlock()

	st, msgs, err := m.ensure(ctx, sessionID)
	if err != nil {
		return "", err
	}

	res, err := prune.Discard(st, m.opts, msgs, hashes, reason)
	if err != nil {
		return "", err
	}
	m.persist.Save(st)

	summary := fmt.Sprintf("Discarded %d unit(s), ~%d tokens reclaimed (reason: %s).",
		len(res.Hashes), res.TokensSaved, reason)
	if res.Distilled > 0 {
		summary += fmt.Sprintf(" %d reasoning block(s) kept a placeholder.", res.Distilled)
	}
	return summary, nil
}

// Distill prunes units while substituting the provided replacement text.
func (m *Manager) Distill(ctx context.Context, sessionID string, entries []prune.DistillEntry) (string, error) {
	mu := m.sessionMutex(sessionID)
	mu.Lock()
	defer mu.Unlock()

	st, msgs, err := m.ensure(ctx, sessionID)
	if err != nil {
		return "", err
	}

	res, err := prune.Distill(st, m.opts, msgs, entries)
	if err != nil {
		return "", err
	}
	m.persist.Save(st)

	return fmt.Sprintf("Distilled %d unit(s), ~%d tokens reclaimed.",
		len(res.Hashes), res.TokensSaved), nil
}

// Restore removes units from their prune sets. Per-hash failures are
// reported in the summary rather than aborting the batch.
func (m *Manager) Restore(ctx context.Context, sessionID string, hashes []string) (string, error) {
	mu := m.sessionMutex(sessionID)
	mu.Lock()
	defer mu.Unlock()

	st, _, err := m.ensure(ctx, sessionID)
	if err != nil {
		return "", err
	}

	res := prune.Restore(st, hashes)
	m.persist.Save(st)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Restored %d unit(s).", len(res.Restored))
	if len(res.NotFound) > 0 {
		fmt.Fprintf(&sb, " Unknown: %s.", strings.Join(res.NotFound, ", "))
	}
	if len(res.NotPruned) > 0 {
		fmt.Fprintf(&sb, " Not pruned: %s.", strings.Join(res.NotPruned, ", "))
	}
	return sb.String(), nil
}

// ContextOp is a unified bulk operation request. Targets may be hashes,
// category patterns ([tools], [messages], [*], [all]), or literal
// "start...end" text spans.
type ContextOp struct {
	Action      string // "discard", "distill", or "restore"
	Targets     []string
	Reason      prune.Reason // discard only; defaults to "noise"
	Replacement string       // distill only; applied to every target
}

// Context executes a unified context operation.
func (m *Manager) Context(ctx context.Context, sessionID string, op ContextOp) (string, error) {
	mu := m.sessionMutex(sessionID)
	mu.Lock()
	defer mu.Unlock()

	st, msgs, err := m.ensure(ctx, sessionID)
	if err != nil {
		return "", err
	}

	hashes, err := prune.ExpandTargets(st, m.opts, msgs, op.Targets)
	if err != nil {
		return "", err
	}
	if len(hashes) == 0 {
		return "No eligible units matched the given targets.", nil
	}

	switch op.Action {
	case "discard":
		reason := op.Reason
		if reason == "" {
			reason = prune.ReasonNoise
		}
		res, err := prune.Discard(st, m.opts, msgs, hashes, reason)
		if err != nil {
			return "", err
		}
		m.persist.Save(st)
		return fmt.Sprintf("Discarded %d unit(s), ~%d tokens reclaimed.", len(res.Hashes), res.TokensSaved), nil

	case "distill":
		entries := make([]prune.DistillEntry, len(hashes))
		for i, h := range hashes {
			entries[i] = prune.DistillEntry{Hash: h, Replacement: op.Replacement}
		}
		res, err := prune.Distill(st, m.opts, msgs, entries)
		if err != nil {
			return "", err
		}
		m.persist.Save(st)
		return fmt.Sprintf("Distilled %d unit(s), ~%d tokens reclaimed.", len(res.Hashes), res.TokensSaved), nil

	case "restore":
		res := prune.Restore(st, hashes)
		m.persist.Save(st)
		return fmt.Sprintf("Restored %d unit(s), %d unresolved.",
			len(res.Restored), len(res.NotFound)+len(res.NotPruned)), nil

	default:
		return "", fmt.Errorf("%w: unknown action %q", prune.ErrBadPattern, op.Action)
	}
}
