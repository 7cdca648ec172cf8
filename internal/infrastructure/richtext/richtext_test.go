package richtext

import (
	"strings"
	"testing"
)

func TestToEditorHTML_Markdown(t *testing.T) {
	got, err := ToEditorHTML("# Day\n\nWent **hiking** today.")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<h1", "Day</h1>", "<strong>hiking</strong>", "<p>"} {
		if !strings.Contains(got, want) {
			t.Errorf("ToEditorHTML() = %q, missing %q", got, want)
		}
	}
}

func TestToEditorHTML_HTMLIsSanitized(t *testing.T) {
	got, err := ToEditorHTML(`<p onclick="x()">hi<script>alert(1)</script></p>`)
	if err != nil {
		t.Fatal(err)
	}
	if got != "<p>hi</p>" {
		t.Errorf("ToEditorHTML() = %q, want %q", got, "<p>hi</p>")
	}
}

func TestToEditorHTML_Empty(t *testing.T) {
	got, err := ToEditorHTML("   ")
	if err != nil || got != "" {
		t.Errorf("ToEditorHTML(blank) = %q, %v", got, err)
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText("<h1>Day</h1><p>Rain &amp; wind</p><p>Slept<br>early</p>")
	want := "Day\nRain & wind\nSlept\nearly"
	if got != want {
		t.Errorf("PlainText() = %q, want %q", got, want)
	}
}
