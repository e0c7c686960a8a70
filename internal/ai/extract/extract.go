// Package extract turns raw model output into the structured chat response.
// Models are told to answer in pure JSON but routinely wrap it in fences,
// leak prose around it, or emit broken string escapes; Parse absorbs all of
// that and always produces something usable.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// FallbackMessage is returned when the model produced nothing at all.
const FallbackMessage = "I could not generate a response. Please try again."

// CodeDiff is one code change the assistant proposes.
type CodeDiff struct {
	FileID string `json:"file_id,omitempty"`
	Diff   string `json:"diff"`
}

// Changes groups proposed code changes by asset type.
type Changes struct {
	Javascript *CodeDiff `json:"javascript,omitempty"`
	CSS        *CodeDiff `json:"css,omitempty"`
}

// Response is the structured assistant reply.
type Response struct {
	Message string   `json:"message"`
	Changes *Changes `json:"changes,omitempty"`
}

// HasChanges reports whether any code change is present.
func (r *Response) HasChanges() bool {
	return r.Changes != nil && (r.Changes.Javascript != nil || r.Changes.CSS != nil)
}

var (
	jsonFenceRe = regexp.MustCompile("(?s)```json\\s*\\n(.*?)```")
	anyFenceRe  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n(.*?)```")
	codeFenceRe = regexp.MustCompile("(?s)```(javascript|js|css)\\s*\\n(.*?)```")
)

// Parse extracts a Response from raw model output. It never fails: when no
// JSON can be recovered the raw text becomes the message, and empty input
// yields the fixed fallback message.
func Parse(raw string) *Response {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return &Response{Message: FallbackMessage}
	}

	// Tagged ```json fence first, then any fenced block, then the first
	// balanced object in the text, then the text as-is.
	candidates := []string{}
	if m := jsonFenceRe.FindStringSubmatch(trimmed); m != nil {
		candidates = append(candidates, m[1])
	}
	for _, m := range anyFenceRe.FindAllStringSubmatch(trimmed, -1) {
		body := strings.TrimSpace(m[1])
		if strings.HasPrefix(body, "{") {
			candidates = append(candidates, body)
		}
	}
	if obj := firstBalancedObject(trimmed); obj != "" {
		candidates = append(candidates, obj)
	}
	candidates = append(candidates, trimmed)

	for _, cand := range candidates {
		if resp := tryDecode(cand); resp != nil {
			// An object with changes but no message field still needs a
			// displayable body; the raw text is the best we have.
			if strings.TrimSpace(resp.Message) == "" {
				resp.Message = trimmed
			}
			return resp
		}
	}

	// No recoverable JSON. If the model answered with fenced code blocks,
	// promote them to changes and keep the surrounding prose as the message.
	if resp := fromCodeFences(trimmed); resp != nil {
		return resp
	}
	return &Response{Message: trimmed}
}

func tryDecode(s string) *Response {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil
	}
	if resp := decode(s); resp != nil {
		return resp
	}
	return decode(repairEscapes(s))
}

func decode(s string) *Response {
	var resp Response
	if err := json.Unmarshal([]byte(s), &resp); err != nil {
		return nil
	}
	if strings.TrimSpace(resp.Message) == "" && !resp.HasChanges() {
		return nil
	}
	normalizeChanges(&resp)
	return &resp
}

func normalizeChanges(resp *Response) {
	if resp.Changes == nil {
		return
	}
	if resp.Changes.Javascript != nil && strings.TrimSpace(resp.Changes.Javascript.Diff) == "" {
		resp.Changes.Javascript = nil
	}
	if resp.Changes.CSS != nil && strings.TrimSpace(resp.Changes.CSS.Diff) == "" {
		resp.Changes.CSS = nil
	}
	if resp.Changes.Javascript == nil && resp.Changes.CSS == nil {
		resp.Changes = nil
	}
}

// firstBalancedObject scans for the first top-level {...} via brace depth,
// ignoring braces inside JSON strings.
func firstBalancedObject(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, r := range s {
		if inString {
			if escaped {
				escaped = false
			} else if r == '\\' {
				escaped = true
			} else if r == '"' {
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

// repairEscapes fixes the two escape bugs models actually produce inside
// JSON strings: a backslash at end of line used as a continuation, and bare
// backslashes that are not a valid JSON escape.
func repairEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	i := 0
	for i < len(s) {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			i++
			continue
		}
		switch c {
		case '"':
			inString = false
			b.WriteByte(c)
			i++
		case '\\':
			if i+1 >= len(s) {
				b.WriteString(`\\`)
				i++
				continue
			}
			next := s[i+1]
			if next == '\n' {
				// Line continuation: drop the backslash and encode the
				// newline properly.
				b.WriteString(`\n`)
				i += 2
				continue
			}
			if strings.IndexByte(`"\/bfnrtu`, next) >= 0 {
				b.WriteByte(c)
				b.WriteByte(next)
				i += 2
				continue
			}
			b.WriteString(`\\`)
			i++
		case '\n':
			b.WriteString(`\n`)
			i++
		case '\t':
			b.WriteString(`\t`)
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// fromCodeFences builds a Response out of ```javascript/```css blocks when
// the model ignored the JSON format entirely. Same-type blocks concatenate
// in document order.
func fromCodeFences(s string) *Response {
	matches := codeFenceRe.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return nil
	}
	var jsParts, cssParts []string
	for _, m := range matches {
		lang := s[m[2]:m[3]]
		body := strings.TrimSpace(s[m[4]:m[5]])
		if body == "" {
			continue
		}
		switch strings.ToLower(lang) {
		case "javascript", "js":
			jsParts = append(jsParts, body)
		case "css":
			cssParts = append(cssParts, body)
		}
	}
	if len(jsParts) == 0 && len(cssParts) == 0 {
		return nil
	}
	changes := &Changes{}
	if len(jsParts) > 0 {
		changes.Javascript = &CodeDiff{Diff: strings.Join(jsParts, "\n\n")}
	}
	if len(cssParts) > 0 {
		changes.CSS = &CodeDiff{Diff: strings.Join(cssParts, "\n\n")}
	}
	message := strings.TrimSpace(codeFenceRe.ReplaceAllString(s, ""))
	if message == "" {
		message = "Here are the code changes."
	}
	return &Response{Message: message, Changes: changes}
}
