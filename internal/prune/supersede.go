package prune

import (
	"strings"

	"github.com/winnow-sh/winnow/internal/config"
	"github.com/winnow-sh/winnow/internal/hashreg"
	"github.com/winnow-sh/winnow/internal/message"
	"github.com/winnow-sh/winnow/internal/session"
	"github.com/winnow-sh/winnow/internal/tokens"
)

// writeTools and readTools classify file operations for the
// one-file-one-view rule.
var (
	writeTools = map[string]struct{}{
		"write": {}, "edit": {}, "multiedit": {}, "create": {}, "patch": {},
	}
	readTools = map[string]struct{}{
		"read": {}, "view": {}, "cat": {}, "open": {},
	}
	queryTools = map[string]struct{}{
		"grep": {}, "glob": {}, "search": {}, "websearch": {},
	}
)

// todoWriteTool is the todo-list write; only the newest snapshot matters.
const todoWriteTool = "todowrite"

// Supersede implements one-file-one-view: a write to a path followed
// later by any read or write of the same path is stale and pruned. The
// same applies to repeated identical queries and todo-list writes. The
// most recent operation on a path or query is never pruned by this rule.
type Supersede struct{}

func (Supersede) Kind() session.StrategyKind { return session.KindSupersede }
func (Supersede) Primitive() Primitive       { return PrimitiveMarkOmitted }

type fileOp struct {
	callID  string
	isWrite bool
	turn    int
	output  string
}

func (Supersede) Apply(st *session.State, opts config.Options, msgs []message.Message) error {
	opsByPath := make(map[string][]fileOp)
	opsByQuery := make(map[string][]fileOp)
	var todoOps []fileOp

	turn := 0
	for _, m := range msgs {
		if m.IsSummary {
			continue
		}
		for _, p := range m.Parts {
			if _, ok := p.(message.StepBoundaryPart); ok {
				turn++
				continue
			}
			tp, ok := p.(message.ToolPart)
			if !ok || tp.Status != message.ToolCompleted {
				continue
			}
			if opts.IsProtectedTool(tp.Name) {
				continue
			}

			name := strings.ToLower(tp.Name)
			params := session.NormalizeParams(tp.Input)
			op := fileOp{callID: tp.CallID, turn: turn, output: tp.Output}

			if name == todoWriteTool {
				todoOps = append(todoOps, op)
				continue
			}

			_, isWrite := writeTools[name]
			_, isRead := readTools[name]
			if isWrite || isRead {
				path := session.ParamPath(params)
				if path == "" || opts.IsProtectedPath(path) {
					continue
				}
				op.isWrite = isWrite
				opsByPath[path] = append(opsByPath[path], op)
				continue
			}

			if _, isQuery := queryTools[name]; isQuery {
				query := session.ParamQuery(params)
				if query == "" {
					continue
				}
				opsByQuery[name+"\x00"+query] = append(opsByQuery[name+"\x00"+query], op)
			}
		}
	}

	// One-file-one-view: any write with a later operation on the same
	// path is stale.
	for path, ops := range opsByPath {
		for i, op := range ops {
			if !op.isWrite || i == len(ops)-1 {
				continue
			}
			if st.MarkOmitted(hashreg.TypeTool, op.callID) {
				st.Stats.Record(session.KindSupersede, tokens.Estimate(op.output), 1)
			}
		}
		last := ops[len(ops)-1]
		if last.isWrite {
			st.Cursors.LastWriteByPath[path] = session.OpRef{CallID: last.callID, Turn: last.turn}
		}
	}

	// Same query re-run later: the earlier result is stale.
	for key, ops := range opsByQuery {
		for _, op := range ops[:len(ops)-1] {
			if st.MarkOmitted(hashreg.TypeTool, op.callID) {
				st.Stats.Record(session.KindSupersede, tokens.Estimate(op.output), 1)
			}
		}
		last := ops[len(ops)-1]
		st.Cursors.LastQueryByNorm[key] = session.OpRef{CallID: last.callID, Turn: last.turn}
	}

	// Todo list: only the newest snapshot is live.
	if len(todoOps) > 0 {
		for _, op := range todoOps[:len(todoOps)-1] {
			if st.MarkOmitted(hashreg.TypeTool, op.callID) {
				st.Stats.Record(session.KindSupersede, tokens.Estimate(op.output), 1)
			}
		}
		last := todoOps[len(todoOps)-1]
		st.Cursors.LastTodoWrite = session.OpRef{CallID: last.callID, Turn: last.turn}
	}

	return nil
}
