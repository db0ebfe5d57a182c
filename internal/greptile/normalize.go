package greptile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizeResponse extracts the answer from a query response.
//
// The key holding the answer varies between "message", "changelog",
// "messages" and others, so the value of the first key in document order
// is used: a string is returned as is, a list is joined with newlines
// (non-string items as compact JSON), and anything else yields "".
func NormalizeResponse(body []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))

	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("parsing query response: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return "", nil
	}

	tok, err = dec.Token()
	if err != nil {
		return "", fmt.Errorf("parsing query response: %w", err)
	}
	if _, isKey := tok.(string); !isKey {
		// empty object
		return "", nil
	}

	var first json.RawMessage
	if err := dec.Decode(&first); err != nil {
		return "", fmt.Errorf("parsing query response: %w", err)
	}

	return flatten(first), nil
}

func flatten(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		lines := make([]string, 0, len(items))
		for _, item := range items {
			lines = append(lines, itemString(item))
		}
		return strings.Join(lines, "\n")
	}

	return ""
}

func itemString(item json.RawMessage) string {
	if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
		return "null"
	}
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, item); err != nil {
		return string(item)
	}
	return buf.String()
}
