package extract

import (
	"strings"
	"testing"
)

func TestParsePureJSON(t *testing.T) {
	raw := `{"message": "Changed the banner color.", "changes": {"css": {"diff": ".banner { background: red; }"}}}`
	resp := Parse(raw)
	if resp.Message != "Changed the banner color." {
		t.Fatalf("message = %q", resp.Message)
	}
	if !resp.HasChanges() || resp.Changes.CSS == nil {
		t.Fatalf("css change missing: %+v", resp.Changes)
	}
	if resp.Changes.Javascript != nil {
		t.Fatalf("unexpected javascript change")
	}
}

func TestParseJSONFence(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"message\": \"Done.\", \"changes\": {\"javascript\": {\"diff\": \"console.log('hi')\"}}}\n```\nLet me know."
	resp := Parse(raw)
	if resp.Message != "Done." {
		t.Fatalf("message = %q", resp.Message)
	}
	if resp.Changes == nil || resp.Changes.Javascript == nil {
		t.Fatalf("javascript change missing")
	}
}

func TestParseUntaggedFence(t *testing.T) {
	raw := "```\n{\"message\": \"untagged fence\"}\n```"
	resp := Parse(raw)
	if resp.Message != "untagged fence" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestParseEmbeddedObject(t *testing.T) {
	raw := `The model says: {"message": "embedded", "changes": null} hope that helps`
	resp := Parse(raw)
	if resp.Message != "embedded" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestParseRepairsBrokenEscapes(t *testing.T) {
	// A windows path escape and a backslash line continuation, both invalid
	// JSON as written.
	raw := "{\"message\": \"path is C:\\Users\\web and \\\nthat is all\"}"
	resp := Parse(raw)
	if resp.Changes != nil {
		t.Fatalf("unexpected changes")
	}
	if !strings.Contains(resp.Message, `C:\Users\web`) {
		t.Fatalf("backslashes not recovered: %q", resp.Message)
	}
	if !strings.Contains(resp.Message, "that is all") {
		t.Fatalf("continuation lost: %q", resp.Message)
	}
}

func TestParseRawNewlineInsideString(t *testing.T) {
	raw := "{\"message\": \"first line\nsecond line\"}"
	resp := Parse(raw)
	if resp.Message != "first line\nsecond line" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestParseCodeFenceFallback(t *testing.T) {
	raw := "I changed the button handler.\n" +
		"```javascript\ndocument.querySelector('#go').onclick = run;\n```\n" +
		"and styled it:\n" +
		"```css\n#go { color: white; }\n```"
	resp := Parse(raw)
	if resp.Changes == nil || resp.Changes.Javascript == nil || resp.Changes.CSS == nil {
		t.Fatalf("fenced code not promoted to changes: %+v", resp.Changes)
	}
	if !strings.Contains(resp.Changes.Javascript.Diff, "onclick") {
		t.Fatalf("javascript diff = %q", resp.Changes.Javascript.Diff)
	}
	if !strings.Contains(resp.Message, "button handler") {
		t.Fatalf("prose lost: %q", resp.Message)
	}
}

func TestParseMultipleSameTypeFencesConcatenate(t *testing.T) {
	raw := "```js\nlet a = 1;\n```\nmiddle\n```js\nlet b = 2;\n```"
	resp := Parse(raw)
	if resp.Changes == nil || resp.Changes.Javascript == nil {
		t.Fatalf("javascript change missing")
	}
	diff := resp.Changes.Javascript.Diff
	if !strings.Contains(diff, "let a = 1;") || !strings.Contains(diff, "let b = 2;") {
		t.Fatalf("blocks not concatenated: %q", diff)
	}
	if strings.Index(diff, "let a = 1;") > strings.Index(diff, "let b = 2;") {
		t.Fatalf("blocks out of document order: %q", diff)
	}
}

func TestParseMissingMessageFallsBackToRaw(t *testing.T) {
	raw := `{"changes": {"javascript": {"diff": "console.log(1)"}}}`
	resp := Parse(raw)
	if resp.Message != raw {
		t.Fatalf("message should fall back to the raw text, got %q", resp.Message)
	}
	if !resp.HasChanges() || resp.Changes.Javascript == nil {
		t.Fatalf("javascript change missing: %+v", resp.Changes)
	}
}

func TestParsePlainTextPassesThrough(t *testing.T) {
	raw := "Your site looks great, nothing to change."
	resp := Parse(raw)
	if resp.Message != raw {
		t.Fatalf("message = %q", resp.Message)
	}
	if resp.HasChanges() {
		t.Fatalf("unexpected changes")
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t\n"} {
		resp := Parse(raw)
		if resp.Message != FallbackMessage {
			t.Fatalf("Parse(%q).Message = %q", raw, resp.Message)
		}
		if resp.HasChanges() {
			t.Fatalf("unexpected changes for empty input")
		}
	}
}

func TestParseEmptyDiffsDropped(t *testing.T) {
	raw := `{"message": "nothing to do", "changes": {"javascript": {"diff": "  "}, "css": {"diff": ""}}}`
	resp := Parse(raw)
	if resp.HasChanges() {
		t.Fatalf("empty diffs should drop the changes block: %+v", resp.Changes)
	}
	if resp.Message != "nothing to do" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestParseFileIDPreserved(t *testing.T) {
	raw := `{"message": "ok", "changes": {"javascript": {"file_id": "main.js", "diff": "x()"}}}`
	resp := Parse(raw)
	if resp.Changes == nil || resp.Changes.Javascript == nil {
		t.Fatalf("javascript change missing")
	}
	if resp.Changes.Javascript.FileID != "main.js" {
		t.Fatalf("file_id = %q", resp.Changes.Javascript.FileID)
	}
}
