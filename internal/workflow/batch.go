package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"textifier/internal/logging"
	"textifier/internal/services"
	"textifier/internal/subtitles"
	"textifier/internal/translation"
)

// MediaExtensions lists the file types TranscribeAll picks up.
var MediaExtensions = map[string]struct{}{
	".mp4": {}, ".avi": {}, ".mkv": {}, ".mov": {}, ".wmv": {}, ".webm": {},
	".mp3": {}, ".wav": {}, ".m4a": {}, ".aac": {}, ".flac": {}, ".ogg": {}, ".opus": {},
}

// IsMediaPath reports whether path has a media extension.
func IsMediaPath(path string) bool {
	_, ok := MediaExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// TranscribeAll transcribes every media file directly inside dir, in name
// order. req supplies shared settings; its MediaPath is ignored. The device is
// resolved once for the whole batch.
func (m *Manager) TranscribeAll(ctx context.Context, dir string, req TranscriptionRequest) ([]Outcome, error) {
	items, err := listDir(dir, IsMediaPath)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	if req.Device == nil && m.deps.Resolver != nil {
		profile, err := m.deps.Resolver.Resolve(ctx)
		if err != nil {
			outcomes := []Outcome{m.batchFailure(KindTranscription, items[0], err)}
			return append(outcomes, skipped(KindTranscription, items[1:])...), nil
		}
		req.Device = &profile
	}

	return m.runBatch(ctx, KindTranscription, items, func(path string) *Job {
		item := req
		item.MediaPath = path
		return m.SubmitTranscription(ctx, item)
	}), nil
}

// TranslateAll translates every subtitle file directly inside dir. The pair
// is checked once up front; files already carrying the target suffix are
// outputs of an earlier run and are left alone.
func (m *Manager) TranslateAll(ctx context.Context, dir string, req TranslationRequest) ([]Outcome, error) {
	source, target := req.Source, req.Target
	if m.cfg != nil {
		source = firstNonEmpty(source, m.cfg.Translation.SourceLanguage)
		target = firstNonEmpty(target, m.cfg.Translation.TargetLanguage)
	}
	pair, err := translation.CheckPair(source, target)
	if err != nil {
		return nil, err
	}
	suffix := "_" + pair.Target
	items, err := listDir(dir, func(path string) bool {
		return subtitles.IsSubtitlePath(path) && !strings.HasSuffix(stem(path), suffix)
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	if req.Device == nil && m.deps.Resolver != nil {
		profile, err := m.deps.Resolver.Resolve(ctx)
		if err != nil {
			outcomes := []Outcome{m.batchFailure(KindTranslation, items[0], err)}
			return append(outcomes, skipped(KindTranslation, items[1:])...), nil
		}
		req.Device = &profile
	}

	return m.runBatch(ctx, KindTranslation, items, func(path string) *Job {
		item := req
		item.SourcePath = path
		item.Document = nil
		item.Source, item.Target = pair.Source, pair.Target
		return m.SubmitTranslation(ctx, item)
	}), nil
}

// runBatch runs items one at a time. Format failures affect only their item;
// environment and model failures mark every remaining item skipped.
func (m *Manager) runBatch(ctx context.Context, kind Kind, items []string, submit func(string) *Job) []Outcome {
	outcomes := make([]Outcome, 0, len(items))
	for i, path := range items {
		if ctx.Err() != nil {
			for _, rest := range items[i:] {
				outcomes = append(outcomes, Outcome{Kind: kind, Source: rest, Status: StatusCanceled})
			}
			break
		}
		outcome := submit(path).Wait()
		outcomes = append(outcomes, outcome)
		if outcome.Status == StatusFailed && stopsBatch(outcome.Category) {
			logging.WarnWithContext(m.logger, "batch stopped", "batch_stopped",
				logging.String(logging.FieldPath, path),
				logging.String("error_kind", string(outcome.Category)),
				logging.Int("skipped_items", len(items)-i-1),
				logging.String(logging.FieldImpact, "remaining items were not processed"),
				logging.String(logging.FieldErrorHint, errorHint(outcome.Category)),
			)
			outcomes = append(outcomes, skipped(kind, items[i+1:])...)
			break
		}
	}
	return outcomes
}

func stopsBatch(category services.Category) bool {
	return category == services.CategoryEnvironment || category == services.CategoryModel
}

func (m *Manager) batchFailure(kind Kind, path string, err error) Outcome {
	o := failed(err)
	o.Kind = kind
	o.Source = path
	return o
}

func skipped(kind Kind, paths []string) []Outcome {
	outcomes := make([]Outcome, 0, len(paths))
	for _, path := range paths {
		outcomes = append(outcomes, Outcome{Kind: kind, Source: path, Status: StatusSkipped})
	}
	return outcomes
}

func listDir(dir string, match func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "batch", "list directory", dir, err)
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if match(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}
