// Package versions implements non-destructive saving of edited subtitle
// documents. Edits never overwrite their source: each save lands in a new
// sibling named <stem>_editNN<ext> using the first unused counter.
package versions

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"textifier/internal/fileutil"
	"textifier/internal/subtitles"
)

const (
	DefaultSuffix       = "_edit"
	DefaultCounterWidth = 2
	maxSaveAttempts     = 1000
)

// Options configures version naming.
type Options struct {
	Suffix       string
	CounterWidth int
}

// Manager hands out unique save paths. Paths returned by NextSavePath stay
// reserved for the life of the Manager, so two calls never collide even
// before either file is created.
type Manager struct {
	suffix  string
	width   int
	pattern *regexp.Regexp
	exists  func(string) (bool, error)

	mu       sync.Mutex
	reserved map[string]struct{}
}

// NewManager builds a Manager, filling unset options with defaults.
func NewManager(opts Options) *Manager {
	suffix := strings.TrimSpace(opts.Suffix)
	if suffix == "" {
		suffix = DefaultSuffix
	}
	width := opts.CounterWidth
	if width <= 0 {
		width = DefaultCounterWidth
	}
	return &Manager{
		suffix:   suffix,
		width:    width,
		pattern:  regexp.MustCompile(regexp.QuoteMeta(suffix) + `\d+$`),
		exists:   fileutil.Exists,
		reserved: make(map[string]struct{}),
	}
}

// BaseStem strips the extension and any existing version suffix from path.
func (m *Manager) BaseStem(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if loc := m.pattern.FindStringIndex(stem); loc != nil && loc[0] > 0 {
		stem = stem[:loc[0]]
	}
	return stem
}

// NextSavePath returns the first <stem><suffix>NN<ext> beside original that
// neither exists on disk nor was handed out earlier. It never returns
// original itself.
func (m *Manager) NextSavePath(original string) (string, error) {
	if strings.TrimSpace(original) == "" {
		return "", errors.New("next save path: original path is empty")
	}
	dir := filepath.Dir(original)
	ext := filepath.Ext(original)
	stem := m.BaseStem(original)
	cleanOriginal := filepath.Clean(original)

	m.mu.Lock()
	defer m.mu.Unlock()
	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s%s%0*d%s", stem, m.suffix, m.width, n, ext))
		if candidate == cleanOriginal {
			continue
		}
		if _, taken := m.reserved[candidate]; taken {
			continue
		}
		present, err := m.exists(candidate)
		if err != nil {
			return "", fmt.Errorf("next save path: probe %s: %w", candidate, err)
		}
		if present {
			continue
		}
		m.reserved[candidate] = struct{}{}
		return candidate, nil
	}
}

// Save encodes doc in the original's format and writes it to a fresh version
// path with exclusive create. The original file is never opened. A path
// claimed by another process between probe and create is skipped.
func (m *Manager) Save(original string, doc *subtitles.Document) (string, error) {
	format, err := subtitles.FormatFromPath(original)
	if err != nil {
		return "", err
	}
	data, err := subtitles.Encode(doc, format)
	if err != nil {
		return "", err
	}
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		path, err := m.NextSavePath(original)
		if err != nil {
			return "", err
		}
		err = fileutil.WriteExclusive(path, data, 0o644)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fileutil.ErrExists) {
			m.release(path)
			return "", fmt.Errorf("save version %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("save version: no free path after %d attempts", maxSaveAttempts)
}

func (m *Manager) release(path string) {
	m.mu.Lock()
	delete(m.reserved, path)
	m.mu.Unlock()
}
