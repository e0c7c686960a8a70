package services

import (
	"strings"
	"testing"
)

func TestApplyUnifiedDiffFullReplacement(t *testing.T) {
	got, err := applyUnifiedDiff("old content", "console.log('new');")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got != "console.log('new');" {
		t.Fatalf("got %q", got)
	}
}

func TestApplyUnifiedDiffEmptyDiffKeepsContent(t *testing.T) {
	got, err := applyUnifiedDiff("keep me", "  ")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got != "keep me" {
		t.Fatalf("got %q", got)
	}
}

func TestApplyUnifiedDiffSingleHunk(t *testing.T) {
	content := "line one\nline two\nline three"
	diff := "@@ -2,1 +2,1 @@\n-line two\n+line 2"
	got, err := applyUnifiedDiff(content, diff)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := "line one\nline 2\nline three"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestApplyUnifiedDiffWithContextLines(t *testing.T) {
	content := "a\nb\nc\nd"
	diff := "@@ -1,3 +1,4 @@\n a\n b\n+b2\n c"
	got, err := applyUnifiedDiff(content, diff)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := "a\nb\nb2\nc\nd"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestApplyUnifiedDiffMultipleHunks(t *testing.T) {
	content := strings.Join([]string{"1", "2", "3", "4", "5", "6"}, "\n")
	diff := "@@ -1,1 +1,1 @@\n-1\n+one\n@@ -5,1 +5,1 @@\n-5\n+five"
	got, err := applyUnifiedDiff(content, diff)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := strings.Join([]string{"one", "2", "3", "4", "five", "6"}, "\n")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestApplyUnifiedDiffMismatchFails(t *testing.T) {
	content := "alpha\nbeta"
	diff := "@@ -1,1 +1,1 @@\n-gamma\n+delta"
	if _, err := applyUnifiedDiff(content, diff); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestApplyUnifiedDiffHunkBeyondContentFails(t *testing.T) {
	diff := "@@ -10,1 +10,1 @@\n-x\n+y"
	if _, err := applyUnifiedDiff("only one line", diff); err == nil {
		t.Fatalf("expected out of range error")
	}
}
