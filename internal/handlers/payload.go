package handlers

import (
	"encoding/json"
	"fmt"
	"strings"

	"ragagent/internal/agent"
)

// payload is a request either delivered raw or wrapped by API Gateway with
// the JSON document as a string (or object) under "body".
type payload map[string]any

func decodePayload(raw json.RawMessage) (payload, error) {
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		return payload{}, nil
	}
	var top map[string]any
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, &agent.ValidationError{Field: "body", Message: fmt.Sprintf("invalid json: %v", err)}
	}
	switch b := top["body"].(type) {
	case string:
		if strings.TrimSpace(b) == "" {
			return payload{}, nil
		}
		var inner map[string]any
		if err := json.Unmarshal([]byte(b), &inner); err != nil {
			return nil, &agent.ValidationError{Field: "body", Message: fmt.Sprintf("invalid json: %v", err)}
		}
		return inner, nil
	case map[string]any:
		return b, nil
	}
	return top, nil
}

// str returns the first key holding a non-empty value. Non-string scalars
// are formatted; objects and arrays are re-encoded as JSON.
func (p payload) str(keys ...string) string {
	for _, k := range keys {
		v, ok := p[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case map[string]any, []any:
			b, _ := json.Marshal(t)
			s = string(b)
		default:
			s = fmt.Sprint(t)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
