package subtitles

import (
	"bytes"
	"fmt"
)

type srtCodec struct{}

func (srtCodec) Format() Format { return FormatSRT }

func (srtCodec) Decode(data []byte) (*Document, error) {
	doc := &Document{}
	for _, b := range splitBlocks(data) {
		var prev *Cue
		if n := len(doc.Cues); n > 0 {
			prev = &doc.Cues[n-1]
		}
		cue, err := timedBlock(FormatSRT, b, prev)
		if err != nil {
			return nil, err
		}
		doc.Cues = append(doc.Cues, cue)
	}
	return doc, nil
}

// Encode renumbers cues from 1..N. SRT has no language field.
func (srtCodec) Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	for i, cue := range doc.Cues {
		fmt.Fprintf(&buf, "%d\n%s --> %s\n%s\n\n",
			i+1, FormatTimestamp(cue.Start, ','), FormatTimestamp(cue.End, ','), NormalizeText(cue.Text))
	}
	return buf.Bytes(), nil
}
