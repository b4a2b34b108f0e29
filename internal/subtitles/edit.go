package subtitles

import (
	"fmt"
	"sort"
	"time"
)

// ReplaceText returns a copy of d with cue i's text replaced.
func (d *Document) ReplaceText(i int, text string) (*Document, error) {
	if err := d.checkIndex(i); err != nil {
		return nil, err
	}
	out := d.Clone()
	out.Cues[i].Text = NormalizeText(text)
	if err := out.Cues[i].Validate(); err != nil {
		return nil, fmt.Errorf("replace cue %d: %w", i+1, err)
	}
	return out, nil
}

// Retime returns a copy of d with cue i moved to [start, end). The cue is
// re-positioned so the document stays ordered by start time.
func (d *Document) Retime(i int, start, end time.Duration) (*Document, error) {
	if err := d.checkIndex(i); err != nil {
		return nil, err
	}
	cue := d.Cues[i]
	cue.Start = start.Truncate(time.Millisecond)
	cue.End = end.Truncate(time.Millisecond)
	if err := cue.Validate(); err != nil {
		return nil, fmt.Errorf("retime cue %d: %w", i+1, err)
	}
	out := d.Clone()
	out.Cues = append(out.Cues[:i], out.Cues[i+1:]...)
	return out.insertSorted(cue), nil
}

// Delete returns a copy of d without cue i.
func (d *Document) Delete(i int) (*Document, error) {
	if err := d.checkIndex(i); err != nil {
		return nil, err
	}
	out := d.Clone()
	out.Cues = append(out.Cues[:i], out.Cues[i+1:]...)
	return out, nil
}

// Insert returns a copy of d with cue added after every cue that starts at or
// before it.
func (d *Document) Insert(cue Cue) (*Document, error) {
	cue = NewCue(cue.Start, cue.End, cue.Text)
	if err := cue.Validate(); err != nil {
		return nil, fmt.Errorf("insert cue: %w", err)
	}
	return d.Clone().insertSorted(cue), nil
}

// Shift returns a copy of d with every cue moved by offset. Shifting a cue
// before zero is an error.
func (d *Document) Shift(offset time.Duration) (*Document, error) {
	out := d.Clone()
	offset = offset.Truncate(time.Millisecond)
	for i := range out.Cues {
		out.Cues[i].Start += offset
		out.Cues[i].End += offset
		if out.Cues[i].Start < 0 {
			return nil, fmt.Errorf("shift by %s moves cue %d before zero", offset, i+1)
		}
	}
	return out, nil
}

func (d *Document) checkIndex(i int) error {
	if i < 0 || i >= d.Len() {
		return fmt.Errorf("cue index %d out of range [0, %d)", i, d.Len())
	}
	return nil
}

func (d *Document) insertSorted(cue Cue) *Document {
	pos := sort.Search(len(d.Cues), func(j int) bool { return d.Cues[j].Start > cue.Start })
	d.Cues = append(d.Cues, Cue{})
	copy(d.Cues[pos+1:], d.Cues[pos:])
	d.Cues[pos] = cue
	return d
}
