package subtitles

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Cue is one timed unit of text. Times are held at millisecond precision.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Duration returns End - Start.
func (c Cue) Duration() time.Duration {
	return c.End - c.Start
}

// Validate checks the per-cue invariants. Times must be whole milliseconds
// and text must already be in NormalizeText form, so every cue that passes
// encodes and decodes back unchanged.
func (c Cue) Validate() error {
	if c.Start%time.Millisecond != 0 || c.End%time.Millisecond != 0 {
		return fmt.Errorf("cue times %d..%d are not whole milliseconds", c.Start, c.End)
	}
	if c.Start < 0 {
		return fmt.Errorf("cue start %s is negative", FormatTimestamp(c.Start, '.'))
	}
	if c.End <= c.Start {
		return fmt.Errorf("cue end %s must be after start %s", FormatTimestamp(c.End, '.'), FormatTimestamp(c.Start, '.'))
	}
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("cue text is empty")
	}
	if c.Text != NormalizeText(c.Text) {
		return fmt.Errorf("cue text %q is not normalized", c.Text)
	}
	return nil
}

// NewCue builds a cue with times truncated to milliseconds and normalized text.
func NewCue(start, end time.Duration, text string) Cue {
	return Cue{
		Start: start.Truncate(time.Millisecond),
		End:   end.Truncate(time.Millisecond),
		Text:  NormalizeText(text),
	}
}

// NormalizeText applies the canonical text form used by every codec: NFC,
// LF line endings, trimmed lines and no blank lines inside a cue.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(norm.NFC.String(text), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// Document is an ordered sequence of cues. Overlaps and duplicates are allowed;
// cues are ordered by start time.
type Document struct {
	Cues     []Cue
	Language string
}

// Len returns the number of cues.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Cues)
}

// Clone returns a deep copy that shares no backing storage with d.
func (d *Document) Clone() *Document {
	if d == nil {
		return &Document{}
	}
	out := &Document{Language: d.Language}
	if len(d.Cues) > 0 {
		out.Cues = make([]Cue, len(d.Cues))
		copy(out.Cues, d.Cues)
	}
	return out
}

// Validate checks every cue and the start ordering.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("document is nil")
	}
	for i, cue := range d.Cues {
		if err := cue.Validate(); err != nil {
			return fmt.Errorf("cue %d: %w", i+1, err)
		}
		if i > 0 && cue.Start < d.Cues[i-1].Start {
			return fmt.Errorf("cue %d: start %s precedes previous cue start %s",
				i+1, FormatTimestamp(cue.Start, '.'), FormatTimestamp(d.Cues[i-1].Start, '.'))
		}
	}
	return nil
}

// Texts returns cue texts in order.
func (d *Document) Texts() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.Cues))
	for i, cue := range d.Cues {
		out[i] = cue.Text
	}
	return out
}

// End returns the latest cue end time.
func (d *Document) End() time.Duration {
	var last time.Duration
	if d == nil {
		return last
	}
	for _, cue := range d.Cues {
		if cue.End > last {
			last = cue.End
		}
	}
	return last
}

// Equal reports whether two documents carry the same language and cues.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.Language != other.Language || len(d.Cues) != len(other.Cues) {
		return false
	}
	for i := range d.Cues {
		if d.Cues[i] != other.Cues[i] {
			return false
		}
	}
	return true
}
