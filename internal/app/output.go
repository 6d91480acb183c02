package app

import "strings"

// extractOutputText pulls the text payload out of an inference response.
// The service returns one of several shapes depending on API version:
// a direct output_text string, a list of output_text strings, or a list
// of output blocks whose content items carry text. The first text found
// wins; absence is signalled by nil, never by an error.
func extractOutputText(response any) *string {
	obj, ok := response.(map[string]any)
	if !ok || obj == nil {
		return nil
	}

	switch direct := obj["output_text"].(type) {
	case string:
		return &direct
	case []any:
		parts := make([]string, 0, len(direct))
		for _, item := range direct {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		joined := strings.TrimSpace(strings.Join(parts, "\n"))
		if joined == "" {
			return nil
		}
		return &joined
	}

	blocks, ok := obj["output"].([]any)
	if !ok {
		return nil
	}
	for _, block := range blocks {
		blockObj, ok := block.(map[string]any)
		if !ok {
			continue
		}
		content, ok := blockObj["content"].([]any)
		if !ok {
			continue
		}
		for _, item := range content {
			itemObj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := itemObj["text"].(string); ok {
				return &text
			}
		}
	}
	return nil
}
