package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Response holds the fields of a Responses API reply that carry text. Fields
// with unexpected types decode as empty.
type Response struct {
	Status     string
	OutputText string
	Output     []OutputItem
}

type OutputItem struct {
	Content []ContentPart
}

type ContentPart struct {
	Text       string
	OutputText string
}

// ParseResponse decodes raw leniently. A body that is not a JSON object yields
// an empty Response; only malformed JSON is an error.
func ParseResponse(raw []byte) (*Response, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		if json.Valid(raw) {
			return &Response{}, nil
		}
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}

	out := &Response{
		Status:     looseString(top["status"]),
		OutputText: looseString(top["output_text"]),
	}
	for _, rawItem := range looseArray(top["output"]) {
		var item map[string]json.RawMessage
		if json.Unmarshal(rawItem, &item) != nil {
			continue
		}
		var oi OutputItem
		for _, rawPart := range looseArray(item["content"]) {
			var part map[string]json.RawMessage
			if json.Unmarshal(rawPart, &part) != nil {
				continue
			}
			oi.Content = append(oi.Content, ContentPart{
				Text:       looseString(part["text"]),
				OutputText: looseString(part["output_text"]),
			})
		}
		out.Output = append(out.Output, oi)
	}
	return out, nil
}

// Text returns the trimmed output_text if non-empty, else every non-empty
// content text joined by newlines.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	if t := strings.TrimSpace(r.OutputText); t != "" {
		return t
	}

	var chunks []string
	for _, item := range r.Output {
		for _, part := range item.Content {
			if t := strings.TrimSpace(part.Text); t != "" {
				chunks = append(chunks, t)
			}
			if t := strings.TrimSpace(part.OutputText); t != "" {
				chunks = append(chunks, t)
			}
		}
	}
	return strings.TrimSpace(strings.Join(chunks, "\n"))
}

func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func looseArray(raw json.RawMessage) []json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var arr []json.RawMessage
	if json.Unmarshal(raw, &arr) != nil {
		return nil
	}
	return arr
}
