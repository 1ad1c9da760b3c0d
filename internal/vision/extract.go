package vision

import "strings"

// extractJSON pulls the first balanced {...} object out of raw model text,
// stripping code-fence markers first. Models wrap JSON in ```json fences or
// prepend prose more often than not.
func extractJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrMalformedResponse
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		}
	}

	return "", ErrMalformedResponse
}

// stripMarkup removes literal bold/italic markers from chat answers. The
// consuming surface renders plain text only.
func stripMarkup(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	s = strings.ReplaceAll(s, "_", "")
	return strings.TrimSpace(s)
}
