package subtitles

import (
	"strings"
	"testing"
)

func proseDocument() *Document {
	return &Document{Cues: []Cue{
		NewCue(0, ms(2000), "Hello <b>world</b>. This is"),
		NewCue(ms(2000), ms(4000), "a test! Is it\nworking?"),
		NewCue(ms(4000), ms(6000), "Yes. Done."),
	}}
}

func TestRenderProsePlain(t *testing.T) {
	got, err := RenderProse(proseDocument(), ProseOptions{Format: ProsePlain})
	if err != nil {
		t.Fatal(err)
	}
	if want := "Hello world. This is a test! Is it working? Yes. Done.\n"; string(got) != want {
		t.Fatalf("plain = %q, want %q", got, want)
	}
	empty, err := RenderProse(&Document{}, ProseOptions{})
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty document = %q, %v", empty, err)
	}
}

func TestRenderProseTutorial(t *testing.T) {
	got, err := RenderProse(proseDocument(), ProseOptions{Format: ProseTutorial, ChunkSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"Hello world. This is a test!",
		"",
		"[IMAGE PLACEHOLDER - Approx Time: N/A]",
		placeholderRule,
		"",
		"Is it working? Yes.",
		"",
		"[IMAGE PLACEHOLDER - Approx Time: 00:00:04.000]",
		placeholderRule,
		"",
		"Done.",
		"",
		"[IMAGE PLACEHOLDER - Approx Time: 00:00:04.000]",
		placeholderRule,
		"",
	}, "\n")
	if string(got) != want {
		t.Fatalf("tutorial =\n%s\nwant\n%s", got, want)
	}

	bare, err := RenderProse(proseDocument(), ProseOptions{Format: ProseTutorial, OmitTimestamps: true})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(bare), "Approx Time") || strings.Count(string(bare), "[IMAGE PLACEHOLDER]") != 2 {
		t.Fatalf("tutorial without timestamps =\n%s", bare)
	}
}

func TestRenderProseHTML(t *testing.T) {
	doc := proseDocument()
	doc.Cues = append(doc.Cues, NewCue(ms(6000), ms(7000), "Fish & chips."))
	got, err := RenderProse(doc, ProseOptions{Format: ProseHTML})
	if err != nil {
		t.Fatal(err)
	}
	out := string(got)
	for _, want := range []string{
		"<article class='tutorial'>\n",
		"  <p>Hello world. This is a test! Is it working?</p>\n",
		"  <p>Yes. Done. Fish &amp; chips.</p>\n",
		"alt='Tutorial step 2'",
		"</article>\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("html missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "<figure class='tutorial-image'>") != 2 {
		t.Fatalf("expected two figures:\n%s", out)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One. Two!  Three? v1.2 stays whole")
	want := []string{"One.", "Two!", "Three?", "v1.2 stays whole"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("splitSentences = %q", got)
	}
}

func TestProseFormatsAndPaths(t *testing.T) {
	if _, err := ParseProseFormat("markdown"); err == nil {
		t.Fatal("expected error for unknown format")
	}
	f, err := ParseProseFormat(" HTML ")
	if err != nil || f != ProseHTML {
		t.Fatalf("ParseProseFormat = %q, %v", f, err)
	}
	if got := ProsePath("/media/talk.en.vtt", ProseHTML); got != "/media/talk.en_html.html" {
		t.Fatalf("ProsePath html = %q", got)
	}
	if got := ProsePath("talk.srt", ProseTutorial); got != "talk_tutorial.txt" {
		t.Fatalf("ProsePath tutorial = %q", got)
	}
	if _, err := RenderProse(proseDocument(), ProseOptions{Format: ProsePlain, ChunkSize: -1}); err == nil {
		t.Fatal("expected error for negative chunk size")
	}
}
