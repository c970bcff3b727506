package chatmode

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---"

// Parse decodes a chatmode document. The document must open with a ---
// fence line; the header between the fences is a flat key: value mapping.
// Recognized keys are description (required), tools, and model; anything
// else is preserved opaquely in Extra.
//
// The returned warnings are non-fatal findings (duplicate tool names, a
// non-string model value). Parsing never mutates data.
func Parse(p string, data []byte) (*Document, []string, error) {
	header, body, err := splitHeader(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", p, err)
	}

	fm := decodeHeader(header)

	tools, warnings, err := extractTools(fm)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", p, err)
	}

	if strings.TrimSpace(body) == "" {
		return nil, nil, fmt.Errorf("%s: %w", p, ErrEmptyBody)
	}

	desc, ok := fm["description"].(string)
	if !ok || desc == "" {
		return nil, nil, fmt.Errorf("%s: %w", p, ErrMissingDescription)
	}

	model := ""
	if raw, present := fm["model"]; present {
		if s, isStr := raw.(string); isStr {
			model = s
		} else {
			warnings = append(warnings, fmt.Sprintf("model is not a string (%T), ignored", raw))
		}
	}

	extra := make(map[string]any)
	for k, v := range fm {
		switch k {
		case "description", "tools", "model":
		default:
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		extra = nil
	}

	return &Document{
		Path:        p,
		Description: desc,
		Tools:       tools,
		Model:       model,
		Extra:       extra,
		Body:        body,
	}, warnings, nil
}

// splitHeader separates the fenced header block from the body. A document
// whose first line is a fence must contain a second fence line; the body is
// everything after it. A document with no opening fence has no header at
// all, which surfaces later as a missing description.
func splitHeader(data []byte) (header string, body string, err error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	if len(lines) == 0 || lines[0] != fence {
		return "", text, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if lines[i] == fence {
			end = i
			break
		}
	}
	if end < 0 {
		return "", "", ErrUnterminatedHeader
	}

	header = strings.Join(lines[1:end], "\n")
	body = strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n")
	return header, body, nil
}

// decodeHeader parses the header block into a flat mapping. An undecodable
// header yields an empty mapping; the required-description check then
// reports the document, so the error taxonomy stays closed.
func decodeHeader(header string) map[string]any {
	if strings.TrimSpace(header) == "" {
		return map[string]any{}
	}
	var fm map[string]any
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil || fm == nil {
		return map[string]any{}
	}
	return fm
}

// extractTools validates the tools value: absent means empty, otherwise it
// must be a sequence of strings. Duplicates are kept in order and reported
// as warnings.
func extractTools(fm map[string]any) ([]string, []string, error) {
	raw, present := fm["tools"]
	if !present {
		return []string{}, nil, nil
	}

	seq, ok := raw.([]any)
	if !ok {
		return nil, nil, ErrInvalidToolsList
	}

	tools := make([]string, 0, len(seq))
	var warnings []string
	seen := make(map[string]struct{}, len(seq))
	for _, item := range seq {
		s, isStr := item.(string)
		if !isStr {
			return nil, nil, ErrInvalidToolsList
		}
		if _, dup := seen[s]; dup {
			warnings = append(warnings, fmt.Sprintf("duplicate tool %q", s))
		}
		seen[s] = struct{}{}
		tools = append(tools, s)
	}
	return tools, warnings, nil
}
