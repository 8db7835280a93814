package session

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/winnow-sh/winnow/internal/message"
)

// volatileParamKeys are parameters that vary between otherwise-identical
// calls and are stripped before normalization.
var volatileParamKeys = []string{"timeout", "description"}

// ToolParameterEntry is the cached view of one tool call, built by
// scanning messages once per update. Entries are invalidated wholesale on
// host compaction.
type ToolParameterEntry struct {
	CallID string             `json:"call_id"`
	Name   string             `json:"name"`
	Params string             `json:"params"` // normalized parameter JSON
	Status message.ToolStatus `json:"status"`
	Turn   int                `json:"turn"`
}

// NormalizeParams canonicalizes a raw parameter JSON document: volatile
// keys are removed and the remainder is re-marshaled with sorted keys so
// equivalent parameter sets compare equal as strings.
func NormalizeParams(raw string) string {
	if raw == "" || !gjson.Valid(raw) {
		return raw
	}
	for _, key := range volatileParamKeys {
		if gjson.Get(raw, key).Exists() {
			if out, err := sjson.Delete(raw, key); err == nil {
				raw = out
			}
		}
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return string(out)
}

// BuildParams scans the message list and rebuilds the tool-parameter
// cache, assigning each call the turn it occurred in. Summary messages
// are skipped, matching turn counting.
func BuildParams(msgs []message.Message) map[string]ToolParameterEntry {
	params := make(map[string]ToolParameterEntry)
	turn := 0
	for _, m := range msgs {
		if m.IsSummary {
			continue
		}
		for _, p := range m.Parts {
			switch part := p.(type) {
			case message.StepBoundaryPart:
				turn++
			case message.ToolPart:
				params[part.CallID] = ToolParameterEntry{
					CallID: part.CallID,
					Name:   part.Name,
					Params: NormalizeParams(part.Input),
					Status: part.Status,
					Turn:   turn,
				}
			}
		}
	}
	return params
}

// ParamPath extracts the file path argument of a tool call, trying the
// common parameter names.
func ParamPath(normalizedParams string) string {
	for _, key := range []string{"file_path", "path", "filename", "file"} {
		if v := gjson.Get(normalizedParams, key); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}

// ParamQuery extracts the query argument of a search-like tool call.
func ParamQuery(normalizedParams string) string {
	for _, key := range []string{"query", "pattern", "q"} {
		if v := gjson.Get(normalizedParams, key); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}
