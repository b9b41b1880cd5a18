// Package structured pulls typed JSON values out of free-form model replies.
//
// Models wrap JSON in prose or code fences and sometimes emit slightly broken
// syntax. Extract scans the reply for balanced array or object candidates in
// order of appearance and returns the first one that decodes into the target
// type, trying a repaired form of each candidate before moving on. When none
// fits, the error wraps core.ErrParse.
package structured

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/lectern/core"
)

// Extract decodes the first balanced JSON array or object in text that fits T.
func Extract[T any](text string) (T, error) {
	return ExtractValid[T](text, nil)
}

// ExtractValid is Extract with an additional shape check. A candidate that
// decodes but fails valid is skipped.
func ExtractValid[T any](text string, valid func(T) error) (T, error) {
	var zero T
	var decodeErr, shapeErr error

	for _, candidate := range candidates(stripFences(text)) {
		for _, raw := range []string{candidate, repairJSON(candidate)} {
			var value T
			if err := json.Unmarshal([]byte(raw), &value); err != nil {
				decodeErr = err
				continue
			}
			if valid != nil {
				if err := valid(value); err != nil {
					shapeErr = err
					break
				}
			}
			return value, nil
		}
	}

	switch {
	case shapeErr != nil:
		return zero, fmt.Errorf("%w: %w", core.ErrParse, shapeErr)
	case decodeErr != nil:
		return zero, fmt.Errorf("%w: %w", core.ErrParse, decodeErr)
	}
	return zero, fmt.Errorf("%w: no JSON value found", core.ErrParse)
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// candidates returns every balanced [...] or {...} span, ordered by start
// offset, followed by the outermost first-opener-to-last-closer spans. The
// outer spans catch replies whose quoting is too broken to balance.
func candidates(text string) []string {
	var out []string
	for start := 0; start < len(text); start++ {
		if text[start] != '[' && text[start] != '{' {
			continue
		}
		if end := balancedEnd(text, start); end > start {
			out = append(out, text[start:end+1])
		}
	}
	for _, pair := range [][2]string{{"[", "]"}, {"{", "}"}} {
		start, end := strings.Index(text, pair[0]), strings.LastIndex(text, pair[1])
		if start >= 0 && end > start {
			out = append(out, text[start:end+1])
		}
	}
	return out
}

// balancedEnd returns the index of the bracket closing the one at start,
// or -1 when brackets are unbalanced or mismatched.
func balancedEnd(text string, start int) int {
	stack := make([]byte, 0, 8)
	inString, escaped := false, false

	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}
