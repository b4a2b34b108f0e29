package subtitles

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{"start", "end", "text"}

type csvCodec struct{}

func (csvCodec) Format() Format { return FormatCSV }

func (csvCodec) Decode(data []byte) (*Document, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.FieldsPerRecord = len(csvHeader)

	doc := &Document{}
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &ParseError{Format: FormatCSV, Line: perr.Line, Msg: perr.Err.Error()}
			}
			return nil, &ParseError{Format: FormatCSV, Msg: err.Error()}
		}
		line, _ := reader.FieldPos(0)
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(record[0]), csvHeader[0]) {
				continue
			}
		}
		start, err := parseCSVTime(record[0])
		if err != nil {
			return nil, &ParseError{Format: FormatCSV, Line: line, Msg: "start time: " + err.Error()}
		}
		end, err := parseCSVTime(record[1])
		if err != nil {
			return nil, &ParseError{Format: FormatCSV, Line: line, Msg: "end time: " + err.Error()}
		}
		var prev *Cue
		if n := len(doc.Cues); n > 0 {
			prev = &doc.Cues[n-1]
		}
		cue, err := finishCue(FormatCSV, line, start, end, []string{record[2]}, prev)
		if err != nil {
			return nil, err
		}
		doc.Cues = append(doc.Cues, cue)
	}
	return doc, nil
}

func (csvCodec) Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, cue := range doc.Cues {
		row := []string{FormatTimestamp(cue.Start, '.'), FormatTimestamp(cue.End, '.'), NormalizeText(cue.Text)}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

// parseCSVTime accepts a clock timestamp or plain decimal seconds.
func parseCSVTime(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if strings.Contains(value, ":") {
		return ParseTimestamp(value)
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond, nil
}
