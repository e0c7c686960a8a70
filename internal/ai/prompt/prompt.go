// Package prompt assembles the system prompt for the site assistant.
package prompt

import (
	"fmt"
	"strings"
)

// FileRef identifies one editable script file shown to the model.
type FileRef struct {
	ID   string
	Name string
}

// Context carries everything the assistant needs to know about the site and
// the conversation so far.
type Context struct {
	PageURL       string
	SiteName      string
	CurrentJS     string
	CurrentCSS    string
	SelectedFiles []FileRef
	PrimaryFileID string
	PageContext   string
	History       string
	ImageCount    int
}

// BuildSystem renders the full system prompt. The response format section is
// load-bearing: the extractor downstream expects the JSON shape described
// here.
func BuildSystem(c Context) string {
	var b strings.Builder

	b.WriteString(`You are "Bren", an AI assistant that helps store owners write JavaScript and CSS for their websites.

The user edits code in a web editor, previews changes live on their page, and can deploy code permanently to their connected site.

`)
	pageURL := c.PageURL
	if pageURL == "" {
		pageURL = "a website"
	}
	fmt.Fprintf(&b, "# Site Context:\n- Current page: %s\n", pageURL)
	if c.SiteName != "" {
		fmt.Fprintf(&b, "- Site name: %s\n", c.SiteName)
	}
	b.WriteString("\n")

	writeCodeSection(&b, c)
	writeFileSection(&b, c)

	if c.PageContext != "" {
		b.WriteString("# Page Structure & Context:\n")
		b.WriteString(c.PageContext)
		b.WriteString("\n\n")
	}

	b.WriteString(`# Your Role:
- Analyze the user's existing code and provide context-aware modifications
- Extend existing functions and selectors instead of replacing working code
- Follow the naming conventions and patterns already present
- Explain what the code does and how to use it
- Respond in the same language as the user's request
- If the user greets you or asks a non-coding question, return only a brief friendly message in JSON. Do not invent code changes or reference elements that are not in the provided context.

`)

	if c.History != "" {
		b.WriteString("# Conversation History:\n")
		b.WriteString(c.History)
		b.WriteString("\n\n")
	}

	if c.ImageCount > 0 {
		fmt.Fprintf(&b, "# Attached Images:\nThe user has attached %d image(s). Analyze them to understand the request.\n\n", c.ImageCount)
	}

	b.WriteString(`# Response Format:
Return pure JSON only. Do not include code fences, language tags, or any text outside the JSON.
Allowed keys:
- message (string, required)
- changes (object, optional) containing:
    - javascript.diff (string)
    - css.diff (string)

{
    "message": "Explain what you're doing and why",
    "changes": {
        "javascript": { "diff": "@@ -startLine,count +startLine,count @@\n- old line\n+ new line" },
        "css": { "diff": "@@ -startLine,count +startLine,count @@\n- old line\n+ new line" }
    }
}

Rules:
- Return only the JSON object. No code fences, no prose.
- Include only the language that needs changes (javascript or css or both)
- Use unified diff format for precise modifications
- If no changes are needed for a language, omit that field entirely
`)

	return b.String()
}

func writeCodeSection(b *strings.Builder, c Context) {
	if c.CurrentJS == "" && c.CurrentCSS == "" {
		return
	}
	b.WriteString("# User's Current Code:\n")
	if c.CurrentJS != "" {
		b.WriteString("## JavaScript:\n```javascript\n")
		b.WriteString(c.CurrentJS)
		b.WriteString("\n```\n\n")
	}
	if c.CurrentCSS != "" {
		b.WriteString("## CSS:\n```css\n")
		b.WriteString(c.CurrentCSS)
		b.WriteString("\n```\n\n")
	}
}

func writeFileSection(b *strings.Builder, c Context) {
	if len(c.SelectedFiles) == 0 {
		return
	}
	b.WriteString("# Selected Files For Editing:\n")
	for _, f := range c.SelectedFiles {
		name := f.Name
		if name == "" {
			name = f.ID
		}
		fmt.Fprintf(b, "- %s (id: %s)\n", name, f.ID)
	}
	if c.PrimaryFileID != "" {
		fmt.Fprintf(b, "- Primary target file id: %s\n", c.PrimaryFileID)
	}
	b.WriteString("- Only modify these files. Do not touch other file IDs.\n\n")
}
