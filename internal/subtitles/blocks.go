package subtitles

import (
	"bytes"
	"strings"
	"time"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type textLine struct {
	num  int
	text string
}

type block []textLine

func normalizeInput(data []byte) string {
	s := string(bytes.TrimPrefix(data, utf8BOM))
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// splitBlocks groups non-blank lines into blank-line separated blocks while
// keeping 1-based source line numbers for error reporting.
func splitBlocks(data []byte) []block {
	var blocks []block
	var cur block
	for i, line := range strings.Split(normalizeInput(data), "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, textLine{num: i + 1, text: line})
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}

func (b block) texts(from int) []string {
	out := make([]string, 0, len(b)-from)
	for _, l := range b[from:] {
		out = append(out, l.text)
	}
	return out
}

// timedBlock parses the shared identifier/timing/text block layout of SRT and
// VTT. The identifier line is optional.
func timedBlock(format Format, b block, prev *Cue) (Cue, error) {
	timing := 0
	if !strings.Contains(b[0].text, "-->") {
		if len(b) < 2 || !strings.Contains(b[1].text, "-->") {
			return Cue{}, &ParseError{Format: format, Line: b[0].num, Msg: "missing timing line"}
		}
		timing = 1
	}
	start, end, err := parseTimingLine(b[timing].text)
	if err != nil {
		return Cue{}, &ParseError{Format: format, Line: b[timing].num, Msg: err.Error()}
	}
	return finishCue(format, b[timing].num, start, end, b.texts(timing+1), prev)
}

func finishCue(format Format, line int, start, end time.Duration, text []string, prev *Cue) (Cue, error) {
	cue := NewCue(start, end, strings.Join(text, "\n"))
	switch {
	case cue.Text == "":
		return Cue{}, &ParseError{Format: format, Line: line, Msg: "empty cue text"}
	case cue.End <= cue.Start:
		return Cue{}, &ParseError{Format: format, Line: line, Msg: "end time must be after start time"}
	case prev != nil && cue.Start < prev.Start:
		return Cue{}, &ParseError{Format: format, Line: line, Msg: "cue starts before the previous cue"}
	}
	return cue, nil
}
