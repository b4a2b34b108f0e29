package subtitles

import (
	"bytes"
	"strings"
	"time"
)

// txtCodec stores text only. Decoding assigns each line a synthetic one
// second slot so the result is still a valid document.
type txtCodec struct{}

func (txtCodec) Format() Format { return FormatTXT }

func (txtCodec) Decode(data []byte) (*Document, error) {
	doc := &Document{}
	for _, line := range strings.Split(normalizeInput(data), "\n") {
		text := NormalizeText(line)
		if text == "" {
			continue
		}
		k := time.Duration(len(doc.Cues))
		doc.Cues = append(doc.Cues, Cue{Start: k * time.Second, End: (k + 1) * time.Second, Text: text})
	}
	return doc, nil
}

func (txtCodec) Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	for _, cue := range doc.Cues {
		buf.WriteString(strings.ReplaceAll(NormalizeText(cue.Text), "\n", " "))
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
