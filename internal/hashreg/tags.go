package hashreg

import (
	"regexp"
	"sort"
	"strings"
)

// AttrName is the attribute carrying a hash in attribute-form markers.
const AttrName = "prunable_hash"

// Tag is an identifier marker found in rendered text.
type Tag struct {
	Type     Type
	Hash     string
	Position int // byte offset of the marker in the scanned text
}

const hashPattern = `[0-9a-f]{6}(?:_[0-9]+)?`

var (
	// Wrapping element form: <TOOL_hash>a1b2c3</TOOL_hash>.
	wrapRe = regexp.MustCompile(`<([A-Z]+)_hash>(` + hashPattern + `)</([A-Z]+)_hash>`)

	// Namespaced wrapping form: <acp:tool prunable_hash="a1b2c3">...</acp:tool>.
	acpOpenRe = regexp.MustCompile(`<acp:([a-z]+)\s+` + AttrName + `="(` + hashPattern + `)"\s*>`)

	// Attribute form on an ordinary tag: <output prunable_hash="a1b2c3">...</output>.
	attrRe = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9_-]*)([^<>]*?)\s+` + AttrName + `="(` + hashPattern + `)"([^<>]*)>`)
)

// markerTypes maps marker names (wrapping form uses uppercase, acp form
// lowercase) to content types.
var markerTypes = map[string]Type{
	"TOOL":      TypeTool,
	"MESSAGE":   TypeMessage,
	"REASONING": TypeReasoning,
	"SEGMENT":   TypeSegment,
	"tool":      TypeTool,
	"message":   TypeMessage,
	"reasoning": TypeReasoning,
	"segment":   TypeSegment,
}

// MarkerName returns the wrapping-form marker name for a type.
func MarkerName(t Type) string {
	return strings.ToUpper(string(t))
}

// WrapMarker renders the wrapping-form marker for a hash.
func WrapMarker(t Type, hash string) string {
	name := MarkerName(t)
	return "<" + name + "_hash>" + hash + "</" + name + "_hash>"
}

// ExtractTags returns every identifier marker embedded in text, ordered by
// position. Unknown marker names and mismatched open/close pairs are
// ignored rather than reported.
func ExtractTags(text string) []Tag {
	var tags []Tag

	for _, m := range wrapRe.FindAllStringSubmatchIndex(text, -1) {
		open := text[m[2]:m[3]]
		clos := text[m[6]:m[7]]
		if open != clos {
			continue
		}
		t, ok := markerTypes[open]
		if !ok {
			continue
		}
		tags = append(tags, Tag{Type: t, Hash: text[m[4]:m[5]], Position: m[0]})
	}

	for _, m := range acpOpenRe.FindAllStringSubmatchIndex(text, -1) {
		t, ok := markerTypes[text[m[2]:m[3]]]
		if !ok {
			continue
		}
		tags = append(tags, Tag{Type: t, Hash: text[m[4]:m[5]], Position: m[0]})
	}

	for _, m := range attrRe.FindAllStringSubmatchIndex(text, -1) {
		if strings.HasPrefix(text[m[0]:], "<acp:") {
			continue // already handled as the namespaced form
		}
		name := text[m[2]:m[3]]
		t, ok := markerTypes[strings.ToLower(name)]
		if !ok {
			t = TypeSegment
		}
		tags = append(tags, Tag{Type: t, Hash: text[m[6]:m[7]], Position: m[0]})
	}

	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Position < tags[j].Position })
	return tags
}

// Strip removes identifier markers from text, keeping markers whose type
// is in keep. Wrapping markers are unwrapped with their inner content
// preserved verbatim; attribute markers lose only the hash attribute.
// Stripping never deletes underlying content.
func Strip(text string, keep ...Type) string {
	keepSet := make(map[Type]struct{}, len(keep))
	for _, t := range keep {
		keepSet[t] = struct{}{}
	}

	text = stripWrap(text, keepSet)
	text = stripACP(text, keepSet)
	text = stripAttr(text, keepSet)
	return text
}

func stripWrap(text string, keep map[Type]struct{}) string {
	matches := wrapRe.FindAllStringSubmatchIndex(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		open := text[m[2]:m[3]]
		if open != text[m[6]:m[7]] {
			continue
		}
		t, ok := markerTypes[open]
		if !ok {
			continue
		}
		if _, kept := keep[t]; kept {
			continue
		}
		inner := text[m[4]:m[5]]
		text = text[:m[0]] + inner + text[m[1]:]
	}
	return text
}

func stripACP(text string, keep map[Type]struct{}) string {
	matches := acpOpenRe.FindAllStringSubmatchIndex(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		name := text[m[2]:m[3]]
		t, ok := markerTypes[name]
		if !ok {
			continue
		}
		if _, kept := keep[t]; kept {
			continue
		}
		closeTag := "</acp:" + name + ">"
		rest := text[m[1]:]
		end := strings.Index(rest, closeTag)
		if end < 0 {
			continue // unterminated marker, leave as-is
		}
		inner := rest[:end]
		text = text[:m[0]] + inner + text[m[1]+end+len(closeTag):]
	}
	return text
}

func stripAttr(text string, keep map[Type]struct{}) string {
	matches := attrRe.FindAllStringSubmatchIndex(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		if strings.HasPrefix(text[m[0]:], "<acp:") {
			continue
		}
		name := text[m[2]:m[3]]
		t, ok := markerTypes[strings.ToLower(name)]
		if !ok {
			t = TypeSegment
		}
		if _, kept := keep[t]; kept {
			continue
		}
		// Remove only the attribute: splice the pieces of the tag back
		// together without ` prunable_hash="..."`.
		tag := "<" + name + text[m[4]:m[5]] + text[m[8]:m[9]] + ">"
		text = text[:m[0]] + tag + text[m[1]:]
	}
	return text
}
