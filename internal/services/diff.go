package services

import (
	"fmt"
	"strconv"
	"strings"
)

// applyUnifiedDiff applies an assistant-produced unified diff to content.
// Text without hunk headers is treated as full replacement content. Hunks
// verify their context and removal lines against the input; a mismatch is an
// error rather than a silent bad merge.
func applyUnifiedDiff(content, diff string) (string, error) {
	diff = strings.TrimSpace(diff)
	if diff == "" {
		return content, nil
	}
	if !strings.Contains(diff, "@@") {
		return diff, nil
	}

	lines := strings.Split(content, "\n")
	var out []string
	cursor := 0 // index into lines, 0-based

	for _, hunk := range parseHunks(diff) {
		start := hunk.oldStart - 1
		if start < 0 {
			start = 0
		}
		if start > len(lines) {
			return "", fmt.Errorf("hunk start %d beyond content (%d lines)", hunk.oldStart, len(lines))
		}
		if start < cursor {
			return "", fmt.Errorf("overlapping hunks at line %d", hunk.oldStart)
		}
		out = append(out, lines[cursor:start]...)
		cursor = start

		for _, hl := range hunk.lines {
			switch {
			case strings.HasPrefix(hl, "-"):
				if cursor >= len(lines) || lines[cursor] != hl[1:] {
					return "", fmt.Errorf("removal mismatch at line %d", cursor+1)
				}
				cursor++
			case strings.HasPrefix(hl, "+"):
				out = append(out, hl[1:])
			default:
				text := strings.TrimPrefix(hl, " ")
				if cursor >= len(lines) || lines[cursor] != text {
					return "", fmt.Errorf("context mismatch at line %d", cursor+1)
				}
				out = append(out, lines[cursor])
				cursor++
			}
		}
	}
	out = append(out, lines[cursor:]...)
	return strings.Join(out, "\n"), nil
}

type hunk struct {
	oldStart int
	lines    []string
}

func parseHunks(diff string) []hunk {
	var hunks []hunk
	var current *hunk
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "@@") {
			if current != nil {
				hunks = append(hunks, *current)
			}
			current = &hunk{oldStart: parseOldStart(line)}
			continue
		}
		if current == nil {
			continue
		}
		if strings.HasPrefix(line, "---") || strings.HasPrefix(line, "+++") {
			continue
		}
		current.lines = append(current.lines, line)
	}
	if current != nil {
		hunks = append(hunks, *current)
	}
	return hunks
}

// parseOldStart reads the a in "@@ -a,b +c,d @@". Malformed headers fall
// back to line 1.
func parseOldStart(header string) int {
	fields := strings.Fields(header)
	for _, f := range fields {
		if strings.HasPrefix(f, "-") {
			numPart := strings.TrimPrefix(f, "-")
			if i := strings.Index(numPart, ","); i >= 0 {
				numPart = numPart[:i]
			}
			if n, err := strconv.Atoi(numPart); err == nil && n > 0 {
				return n
			}
		}
	}
	return 1
}
