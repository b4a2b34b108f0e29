package subtitles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"textifier/internal/fileutil"
)

// Format names a subtitle file format.
type Format string

const (
	FormatVTT Format = "vtt"
	FormatSRT Format = "srt"
	FormatTXT Format = "txt"
	FormatCSV Format = "csv"
)

// Formats lists every supported format in emission order.
var Formats = []Format{FormatVTT, FormatSRT, FormatTXT, FormatCSV}

// Extension returns the file extension including the leading dot.
func (f Format) Extension() string { return "." + string(f) }

// Codec converts between a Document and one on-disk format.
type Codec interface {
	Format() Format
	Decode(data []byte) (*Document, error)
	Encode(doc *Document) ([]byte, error)
}

var codecs = map[Format]Codec{
	FormatVTT: vttCodec{},
	FormatSRT: srtCodec{},
	FormatTXT: txtCodec{},
	FormatCSV: csvCodec{},
}

// ParseFormat resolves a format name such as "srt" or ".VTT".
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")))
	if _, ok := codecs[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	return f, nil
}

// ParseFormats resolves a list of format names, dropping duplicates.
func ParseFormats(names []string) ([]Format, error) {
	out := make([]Format, 0, len(names))
	seen := make(map[Format]struct{}, len(names))
	for _, name := range names {
		f, err := ParseFormat(name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out, nil
}

// FormatFromPath selects the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, filepath.Base(path))
	}
	return ParseFormat(ext)
}

// IsSubtitlePath reports whether path carries a supported subtitle extension.
func IsSubtitlePath(path string) bool {
	_, err := FormatFromPath(path)
	return err == nil
}

// CodecFor returns the codec registered for format.
func CodecFor(format Format) (Codec, error) {
	codec, ok := codecs[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return codec, nil
}

// Decode parses data in the given format.
func Decode(data []byte, format Format) (*Document, error) {
	codec, err := CodecFor(format)
	if err != nil {
		return nil, err
	}
	return codec.Decode(data)
}

// Encode renders doc in the given format after validating it.
func Encode(doc *Document, format Format) ([]byte, error) {
	codec, err := CodecFor(format)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return codec.Encode(doc)
}

// Load reads path without modifying it and decodes it by extension.
func Load(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitles: %w", err)
	}
	doc, err := Decode(data, format)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, err
	}
	return doc, nil
}

// WriteAll emits doc once per format as <dir>/<base>.<ext> and returns the
// written paths in format order.
func WriteAll(doc *Document, dir, base string, formats []Format) ([]string, error) {
	if len(formats) == 0 {
		return nil, fmt.Errorf("no output formats requested")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		data, err := Encode(doc, format)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, base+format.Extension())
		if err := fileutil.WriteAtomic(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
