package subtitles

import (
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// ProseFormat names a non-timed export of a document.
type ProseFormat string

const (
	// ProsePlain is the whole transcript as one paragraph.
	ProsePlain ProseFormat = "plain"
	// ProseTutorial groups sentences into blocks separated by image
	// placeholders.
	ProseTutorial ProseFormat = "tutorial"
	// ProseHTML is the tutorial layout as an HTML article.
	ProseHTML ProseFormat = "html"
)

// DefaultChunkSize is the number of sentences per tutorial block.
const DefaultChunkSize = 3

const placeholderRule = "----------------------------------------"

var markupTag = regexp.MustCompile(`<[^>]+>`)

// ParseProseFormat resolves an export format name.
func ParseProseFormat(name string) (ProseFormat, error) {
	switch f := ProseFormat(strings.ToLower(strings.TrimSpace(name))); f {
	case ProsePlain, ProseTutorial, ProseHTML:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (want plain, tutorial or html)", name)
}

// Extension returns ".html" for HTML and ".txt" otherwise.
func (f ProseFormat) Extension() string {
	if f == ProseHTML {
		return ".html"
	}
	return ".txt"
}

// ProsePath returns <dir>/<stem>_<format><ext> beside source.
func ProsePath(source string, format ProseFormat) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(source), stem+"_"+string(format)+format.Extension())
}

// ProseOptions configures RenderProse.
type ProseOptions struct {
	Format ProseFormat
	// ChunkSize is the number of sentences per block; 0 means DefaultChunkSize.
	ChunkSize int
	// OmitTimestamps drops the approximate time from tutorial placeholders.
	OmitTimestamps bool
}

type proseBlock struct {
	start time.Duration
	text  string
}

// RenderProse flattens doc into continuous text. Markup tags are removed and
// the lines of each cue are joined with spaces.
func RenderProse(doc *Document, opts ProseOptions) ([]byte, error) {
	if opts.ChunkSize < 0 {
		return nil, fmt.Errorf("chunk size %d must not be negative", opts.ChunkSize)
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	blocks := make([]proseBlock, 0, doc.Len())
	parts := make([]string, 0, doc.Len())
	for _, cue := range doc.Cues {
		text := strings.Join(strings.Fields(markupTag.ReplaceAllString(cue.Text, "")), " ")
		if text == "" {
			continue
		}
		blocks = append(blocks, proseBlock{start: cue.Start, text: text})
		parts = append(parts, text)
	}
	full := strings.Join(parts, " ")

	switch opts.Format {
	case ProsePlain, "":
		if full == "" {
			return []byte{}, nil
		}
		return []byte(full + "\n"), nil
	case ProseTutorial:
		return renderTutorial(blocks, chunkSentences(full, opts.ChunkSize), !opts.OmitTimestamps), nil
	case ProseHTML:
		return renderHTML(chunkSentences(full, opts.ChunkSize)), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", opts.Format)
	}
}

// sentenceChunk is up to ChunkSize sentences; last is the final sentence.
type sentenceChunk struct {
	text string
	last string
}

func chunkSentences(text string, size int) []sentenceChunk {
	sentences := splitSentences(text)
	var chunks []sentenceChunk
	for start := 0; start < len(sentences); start += size {
		end := min(start+size, len(sentences))
		chunks = append(chunks, sentenceChunk{
			text: strings.Join(sentences[start:end], " "),
			last: sentences[end-1],
		})
	}
	return chunks
}

// splitSentences breaks after '.', '!' or '?' when whitespace follows.
func splitSentences(text string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if !strings.ContainsRune(".!?", runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		out = append(out, string(runes[start:i+1]))
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

func renderTutorial(blocks []proseBlock, chunks []sentenceChunk, timestamps bool) []byte {
	var b strings.Builder
	for _, chunk := range chunks {
		b.WriteString(chunk.text)
		b.WriteString("\n\n")
		if timestamps {
			fmt.Fprintf(&b, "[IMAGE PLACEHOLDER - Approx Time: %s]\n", approxTime(blocks, chunk.last))
		} else {
			b.WriteString("[IMAGE PLACEHOLDER]\n")
		}
		b.WriteString(placeholderRule)
		b.WriteString("\n\n")
	}
	return []byte(strings.TrimSuffix(b.String(), "\n"))
}

// approxTime returns the start of the first cue containing the opening of
// sentence, or "N/A".
func approxTime(blocks []proseBlock, sentence string) string {
	opening := []rune(sentence)
	if len(opening) > 20 {
		opening = opening[:20]
	}
	for _, block := range blocks {
		if strings.Contains(block.text, string(opening)) {
			return FormatTimestamp(block.start, '.')
		}
	}
	return "N/A"
}

func renderHTML(chunks []sentenceChunk) []byte {
	var b strings.Builder
	b.WriteString("<article class='tutorial'>\n")
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "  <p>%s</p>\n", html.EscapeString(chunk.text))
		b.WriteString("  <!-- Insert Image Here -->\n")
		b.WriteString("  <figure class='tutorial-image'>\n")
		fmt.Fprintf(&b, "    <img src='placeholder.jpg' alt='Tutorial step %d'>\n", i+1)
		b.WriteString("  </figure>\n")
	}
	b.WriteString("</article>\n")
	return []byte(b.String())
}
