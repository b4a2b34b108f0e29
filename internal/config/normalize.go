package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if value := strings.TrimSpace(os.Getenv("TEXTIFIER_FFMPEG")); value != "" {
		c.FFmpeg.Binary = value
	}
	c.normalizeHardware()
	c.normalizeTranscription()
	c.normalizeTranslation()
	c.normalizeWorkers()
	c.normalizeEditing()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
			return fmt.Errorf("paths.output_dir: %w", err)
		}
	}
	if value := strings.TrimSpace(os.Getenv("TEXTIFIER_MODELS_DIR")); value != "" {
		c.Paths.ModelsDir = value
	}
	if strings.TrimSpace(c.Paths.ModelsDir) == "" {
		c.Paths.ModelsDir = defaultModelsDir
	}
	if c.Paths.ModelsDir, err = expandPath(c.Paths.ModelsDir); err != nil {
		return fmt.Errorf("paths.models_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Metrics.TextfilePath) != "" {
		if c.Metrics.TextfilePath, err = expandPath(c.Metrics.TextfilePath); err != nil {
			return fmt.Errorf("metrics.textfile_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeHardware() {
	cleaned := make([]string, 0, len(c.Hardware.Candidates))
	for _, candidate := range c.Hardware.Candidates {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate != "" {
			cleaned = append(cleaned, candidate)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, defaultCandidates...)
	}
	c.Hardware.Candidates = cleaned
	c.Hardware.ProbeModel = strings.TrimSpace(c.Hardware.ProbeModel)
	if c.Hardware.ProbeModel == "" {
		c.Hardware.ProbeModel = defaultProbeModel
	}
	if c.Hardware.LockTimeoutSeconds <= 0 {
		c.Hardware.LockTimeoutSeconds = defaultLockTimeoutSeconds
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultTranscriptionModel
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	formats := make([]string, 0, len(c.Transcription.Formats))
	seen := make(map[string]struct{}, len(c.Transcription.Formats))
	for _, format := range c.Transcription.Formats {
		format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
		if format == "" {
			continue
		}
		if _, dup := seen[format]; dup {
			continue
		}
		seen[format] = struct{}{}
		formats = append(formats, format)
	}
	if len(formats) == 0 {
		formats = append(formats, defaultFormats...)
	}
	c.Transcription.Formats = formats
	if len(c.Transcription.Temperatures) == 0 {
		c.Transcription.Temperatures = append([]float64(nil), defaultTemperatures...)
	}
}

func (c *Config) normalizeTranslation() {
	c.Translation.Model = strings.TrimSpace(c.Translation.Model)
	if c.Translation.Model == "" {
		c.Translation.Model = defaultTranslationModel
	}
	c.Translation.SourceLanguage = strings.ToLower(strings.TrimSpace(c.Translation.SourceLanguage))
	c.Translation.TargetLanguage = strings.ToLower(strings.TrimSpace(c.Translation.TargetLanguage))
	if c.Translation.MaxBatchSize <= 0 {
		c.Translation.MaxBatchSize = defaultMaxBatchSize
	}
	if c.Translation.BeamSize <= 0 {
		c.Translation.BeamSize = defaultTranslationBeamSize
	}
	if c.Translation.MaxLength <= 0 {
		c.Translation.MaxLength = defaultTranslationMaxLength
	}
}

func (c *Config) normalizeWorkers() {
	if strings.TrimSpace(c.Workers.TranscriptionCommand) == "" {
		c.Workers.TranscriptionCommand = defaultWorkerCommand
		if len(c.Workers.TranscriptionArgs) == 0 {
			c.Workers.TranscriptionArgs = append([]string(nil), defaultWorkerASRArgs...)
		}
	}
	if strings.TrimSpace(c.Workers.TranslationCommand) == "" {
		c.Workers.TranslationCommand = defaultWorkerCommand
		if len(c.Workers.TranslationArgs) == 0 {
			c.Workers.TranslationArgs = append([]string(nil), defaultWorkerMTArgs...)
		}
	}
	if c.Workers.StartupTimeoutSeconds <= 0 {
		c.Workers.StartupTimeoutSeconds = defaultWorkerStartupSeconds
	}
	c.Workers.HuggingFaceToken = strings.TrimSpace(c.Workers.HuggingFaceToken)
	if c.Workers.HuggingFaceToken == "" {
		for _, key := range []string{"HF_TOKEN", "HUGGING_FACE_HUB_TOKEN"} {
			if value := strings.TrimSpace(os.Getenv(key)); value != "" {
				c.Workers.HuggingFaceToken = value
				break
			}
		}
	}
}

func (c *Config) normalizeEditing() {
	if strings.TrimSpace(c.Editing.Suffix) == "" {
		c.Editing.Suffix = defaultEditSuffix
	}
	if c.Editing.CounterWidth <= 0 {
		c.Editing.CounterWidth = defaultEditCounterWidth
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if value := strings.TrimSpace(os.Getenv("TEXTIFIER_LOG_LEVEL")); value != "" {
		c.Logging.Level = strings.ToLower(value)
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}
