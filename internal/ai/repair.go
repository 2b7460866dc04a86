// internal/ai/repair.go
//
// Recovering a strict JSON contract from free-form completion text. Every
// stage is total: all failure modes come back as typed errors, never panics.
package ai

import (
	"encoding/json"
	"strings"

	"pulsefit/plan-engine/internal/domain"
)

// scanner states for boundary extraction and syntax repair. Brace depth is
// tracked only while outside string literals; a "{" inside a quoted meal
// note must not affect the balance.
type scanState int

const (
	outsideString scanState = iota
	inString
	escaped
)

// stripFences removes one leading and one trailing markdown code fence,
// with or without a language tag. Anything else is left untouched.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// Drop the opening fence line ("```" or "```json").
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	// Drop a closing fence if one exists; trailing prose after it is cut too,
	// which is fine because the boundary scan discards trailing text anyway.
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// ExtractJSONObject locates the first balanced top-level JSON object in raw
// completion text, after removing surrounding code fences. Trailing prose
// the model appended after the object is discarded. Returns ErrEmptyResponse
// when there is no content at all, ErrTruncated when the object never closes.
func ExtractJSONObject(raw string) (string, error) {
	s := stripFences(raw)
	if s == "" {
		return "", ErrEmptyResponse
	}
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", &MalformedJSONError{Pos: 0, Snippet: snippetAt(s, 0), Err: ErrTruncated}
	}

	depth := 0
	state := outsideString
	for i := start; i < len(s); i++ {
		c := s[i]
		switch state {
		case outsideString:
			switch c {
			case '"':
				state = inString
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[start : i+1], nil
				}
			}
		case inString:
			switch c {
			case '\\':
				state = escaped
			case '"':
				state = outsideString
			}
		case escaped:
			state = inString
		}
	}
	return "", ErrTruncated
}

// repairSyntax fixes the two malformations models produce most often:
// trailing commas before "}" or "]", and bare (unquoted) object keys.
// Quoted string content is never altered.
func repairSyntax(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	state := outsideString
	// prevSig is the last significant byte emitted outside strings; bare
	// identifiers are only keys when they follow "{" or ",".
	var prevSig byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch state {
		case inString:
			b.WriteByte(c)
			if c == '\\' {
				state = escaped
			} else if c == '"' {
				state = outsideString
			}
			continue
		case escaped:
			b.WriteByte(c)
			state = inString
			continue
		}

		switch {
		case c == '"':
			b.WriteByte(c)
			state = inString
			prevSig = c
		case c == ',':
			// Drop the comma when the next significant byte closes a scope.
			if next := nextSignificant(s, i+1); next == '}' || next == ']' {
				continue
			}
			b.WriteByte(c)
			prevSig = c
		case isIdentStart(c) && (prevSig == '{' || prevSig == ','):
			// A bare identifier in key position: quote it if a colon follows.
			j := i
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			if nextSignificant(s, j) == ':' {
				b.WriteByte('"')
				b.WriteString(s[i:j])
				b.WriteByte('"')
				i = j - 1
				prevSig = '"'
				continue
			}
			b.WriteByte(c)
			prevSig = c
		default:
			b.WriteByte(c)
			if !isSpace(c) {
				prevSig = c
			}
		}
	}
	return b.String()
}

func nextSignificant(s string, from int) byte {
	for i := from; i < len(s); i++ {
		if !isSpace(s[i]) {
			return s[i]
		}
	}
	return 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// snippetAt returns a short window of s around pos for error messages.
func snippetAt(s string, pos int) string {
	const radius = 30
	lo := pos - radius
	if lo < 0 {
		lo = 0
	}
	hi := pos + radius
	if hi > len(s) {
		hi = len(s)
	}
	return s[lo:hi]
}

func malformed(src string, err error) *MalformedJSONError {
	var pos int64
	if syn, ok := err.(*json.SyntaxError); ok {
		pos = syn.Offset
	} else if typ, ok := err.(*json.UnmarshalTypeError); ok {
		pos = typ.Offset
	}
	return &MalformedJSONError{Pos: pos, Snippet: snippetAt(src, int(pos)), Err: err}
}

// DecodeWeeklyPlan runs the full repair pipeline on raw completion text and
// decodes the {"days": {...}} wrapper of a base plan. Structural checks
// beyond decoding belong to ValidateWeek.
func DecodeWeeklyPlan(raw string) (map[domain.Weekday]domain.DayPlan, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}
	obj = repairSyntax(obj)

	var wrapper struct {
		Days map[domain.Weekday]domain.DayPlan `json:"days"`
	}
	if err := json.Unmarshal([]byte(obj), &wrapper); err != nil {
		return nil, malformed(obj, err)
	}
	if wrapper.Days == nil {
		return nil, &SchemaError{Reason: "missing top-level \"days\" object"}
	}
	return wrapper.Days, nil
}

// DecodeDayPlan is the titration counterpart: same pipeline, single day
// object without the "days" wrapper.
func DecodeDayPlan(raw string) (*domain.DayPlan, error) {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, err
	}
	obj = repairSyntax(obj)

	var day domain.DayPlan
	if err := json.Unmarshal([]byte(obj), &day); err != nil {
		return nil, malformed(obj, err)
	}
	return &day, nil
}
