package linediff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLines_Replacement(t *testing.T) {
	got := Lines([]string{"a", "b", "c"}, []string{"a", "x", "c"})
	want := []Line{
		{KindContext, "a"},
		{KindRemove, "b"},
		{KindAdd, "x"},
		{KindContext, "c"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lines() mismatch (-want +got):\n%s", diff)
	}
}

func TestLines_Identical(t *testing.T) {
	got := Lines([]string{"one", "two"}, []string{"one", "two"})
	for _, l := range got {
		if l.Kind != KindContext {
			t.Fatalf("expected only context lines, got %+v", got)
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got))
	}
}

func TestLines_EmptySides(t *testing.T) {
	if got := Lines(nil, nil); len(got) != 0 {
		t.Fatalf("expected no lines, got %+v", got)
	}

	got := Lines(nil, []string{"new"})
	if diff := cmp.Diff([]Line{{KindAdd, "new"}}, got); diff != "" {
		t.Errorf("add-only mismatch:\n%s", diff)
	}

	got = Lines([]string{"old"}, nil)
	if diff := cmp.Diff([]Line{{KindRemove, "old"}}, got); diff != "" {
		t.Errorf("remove-only mismatch:\n%s", diff)
	}
}

// Interleaved insertions and deletions must still reconstruct both sides.
func TestLines_ReconstructsBothSides(t *testing.T) {
	oldLines := []string{"intro", "alpha", "beta", "gamma", "outro", "beta"}
	newLines := []string{"intro", "beta", "delta", "gamma", "alpha", "outro"}

	lines := Lines(oldLines, newLines)

	var gotOld, gotNew []string
	for _, l := range lines {
		switch l.Kind {
		case KindContext:
			gotOld = append(gotOld, l.Text)
			gotNew = append(gotNew, l.Text)
		case KindRemove:
			gotOld = append(gotOld, l.Text)
		case KindAdd:
			gotNew = append(gotNew, l.Text)
		}
	}
	if diff := cmp.Diff(oldLines, gotOld); diff != "" {
		t.Errorf("old side mismatch:\n%s", diff)
	}
	if diff := cmp.Diff(newLines, gotNew); diff != "" {
		t.Errorf("new side mismatch:\n%s", diff)
	}
}

func TestSplitHTML(t *testing.T) {
	got := SplitHTML("<h1>Day</h1><p>Walked.</p><p>Slept<br>early</p>\n\n")
	want := []string{"<h1>Day</h1>", "<p>Walked.</p>", "<p>Slept<br>", "early</p>"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SplitHTML() mismatch (-want +got):\n%s", diff)
	}
}

func TestHTMLAndStats(t *testing.T) {
	lines := HTML("<p>a</p><p>b</p>", "<p>a</p><p>c</p><p>d</p>")
	added, removed := Stats(lines)
	if added != 2 || removed != 1 {
		t.Errorf("Stats() = (%d, %d), want (2, 1)", added, removed)
	}
}
