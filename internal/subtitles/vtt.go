package subtitles

import (
	"bytes"
	"fmt"
	"strings"
)

type vttCodec struct{}

func (vttCodec) Format() Format { return FormatVTT }

func (vttCodec) Decode(data []byte) (*Document, error) {
	blocks := splitBlocks(data)
	if len(blocks) == 0 || !isVTTSignature(blocks[0][0].text) {
		return nil, &ParseError{Format: FormatVTT, Line: 1, Msg: "missing WEBVTT header"}
	}

	doc := &Document{}
	for _, line := range blocks[0][1:] {
		if strings.Contains(line.text, "-->") {
			return nil, &ParseError{Format: FormatVTT, Line: line.num, Msg: "cue must be separated from the header by a blank line"}
		}
		key, value, ok := strings.Cut(line.text, ":")
		if ok && strings.EqualFold(strings.TrimSpace(key), "language") {
			doc.Language = strings.TrimSpace(value)
		}
	}

	for _, b := range blocks[1:] {
		if isVTTMetadataBlock(b[0].text) {
			continue
		}
		var prev *Cue
		if n := len(doc.Cues); n > 0 {
			prev = &doc.Cues[n-1]
		}
		cue, err := timedBlock(FormatVTT, b, prev)
		if err != nil {
			return nil, err
		}
		doc.Cues = append(doc.Cues, cue)
	}
	return doc, nil
}

func (vttCodec) Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("WEBVTT\n")
	if lang := strings.TrimSpace(doc.Language); lang != "" {
		fmt.Fprintf(&buf, "Language: %s\n", lang)
	}
	buf.WriteByte('\n')
	for i, cue := range doc.Cues {
		fmt.Fprintf(&buf, "%d\n%s --> %s\n%s\n\n",
			i+1, FormatTimestamp(cue.Start, '.'), FormatTimestamp(cue.End, '.'), NormalizeText(cue.Text))
	}
	return buf.Bytes(), nil
}

func isVTTSignature(line string) bool {
	if !strings.HasPrefix(line, "WEBVTT") {
		return false
	}
	rest := line[len("WEBVTT"):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

func isVTTMetadataBlock(first string) bool {
	for _, keyword := range []string{"NOTE", "STYLE", "REGION"} {
		if first == keyword || strings.HasPrefix(first, keyword+" ") || strings.HasPrefix(first, keyword+"\t") {
			return true
		}
	}
	return false
}
