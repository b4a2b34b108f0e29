package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"textifier/internal/config"
	"textifier/internal/deps"
	"textifier/internal/language"
	"textifier/internal/models"
	"textifier/internal/translation"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckDirectoryReadable verifies that the directory exists and can be listed.
func CheckDirectoryReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckSystemDeps evaluates the external binaries cfg needs. FFmpeg is run
// once to confirm it executes; the rest are resolved on PATH.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := deps.Requirements(cfg)
	statuses := deps.CheckBinaries(requirements[1:])
	return append([]deps.Status{deps.CheckFFmpeg(ctx, cfg.FFmpegBinary())}, statuses...)
}

// CheckModel verifies that a model is installed.
func CheckModel(checker ModelChecker, kind models.Kind, name string) Result {
	label := "Transcription model"
	if kind == models.KindTranslation {
		label = "Translation model"
	}
	if strings.TrimSpace(name) == "" {
		return Result{Name: label, Detail: "not configured"}
	}
	if err := checker.Check(kind, name); err != nil {
		return Result{Name: label, Detail: err.Error()}
	}
	return Result{Name: label, Passed: true, Detail: name}
}

// CheckLanguages validates the configured default languages.
func CheckLanguages(cfg *config.Config) []Result {
	var results []Result

	lang := strings.TrimSpace(cfg.Transcription.Language)
	switch {
	case lang == "" || language.IsAuto(lang):
		results = append(results, Result{Name: "Transcription language", Passed: true, Detail: "auto-detect"})
	case language.SupportsTranscription(lang):
		results = append(results, Result{Name: "Transcription language", Passed: true, Detail: language.DisplayName(lang)})
	default:
		results = append(results, Result{Name: "Transcription language", Detail: fmt.Sprintf("%q is not supported", lang)})
	}

	pair, err := translation.CheckPair(cfg.Translation.SourceLanguage, cfg.Translation.TargetLanguage)
	if err != nil {
		results = append(results, Result{Name: "Translation pair", Detail: err.Error(), Optional: true})
	} else {
		results = append(results, Result{Name: "Translation pair", Passed: true, Detail: pair.String()})
	}
	return results
}
