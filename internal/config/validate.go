package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var knownFormats = map[string]struct{}{
	"vtt": {},
	"srt": {},
	"txt": {},
	"csv": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateHardware(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateEditing(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateHardware() error {
	for _, candidate := range c.Hardware.Candidates {
		backend, precision, ok := strings.Cut(candidate, ":")
		if !ok || backend == "" || precision == "" {
			return fmt.Errorf("hardware.candidates entry %q must be backend:precision", candidate)
		}
		switch backend {
		case "cuda", "cpu":
		default:
			return fmt.Errorf("hardware.candidates entry %q has unsupported backend %q", candidate, backend)
		}
		switch precision {
		case "float16", "int8_float16", "int8", "float32":
		default:
			return fmt.Errorf("hardware.candidates entry %q has unsupported precision %q", candidate, precision)
		}
		if backend == "cpu" && strings.Contains(precision, "float16") {
			return fmt.Errorf("hardware.candidates entry %q: cpu does not support %s", candidate, precision)
		}
	}
	return nil
}

func (c *Config) validateTranscription() error {
	t := c.Transcription
	for _, format := range t.Formats {
		if _, ok := knownFormats[format]; !ok {
			return fmt.Errorf("transcription.formats contains unsupported format %q", format)
		}
	}
	if t.BeamSize < 1 {
		return errors.New("transcription.beam_size must be at least 1")
	}
	if t.BestOf < 1 {
		return errors.New("transcription.best_of must be at least 1")
	}
	if t.Patience <= 0 {
		return errors.New("transcription.patience must be positive")
	}
	for _, temp := range t.Temperatures {
		if temp < 0 || temp > 1 || math.IsNaN(temp) {
			return fmt.Errorf("transcription.temperatures entry %v must be between 0 and 1", temp)
		}
	}
	if t.RepetitionPenalty <= 0 {
		return errors.New("transcription.repetition_penalty must be positive")
	}
	if t.NoRepeatNgramSize < 0 {
		return errors.New("transcription.no_repeat_ngram_size must be >= 0")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if c.Translation.LengthPenalty <= 0 {
		return errors.New("translation.length_penalty must be positive")
	}
	if c.Translation.NoRepeatNgramSize < 0 {
		return errors.New("translation.no_repeat_ngram_size must be >= 0")
	}
	return nil
}

func (c *Config) validateEditing() error {
	if strings.ContainsAny(c.Editing.Suffix, "/\\") {
		return errors.New("editing.suffix must not contain path separators")
	}
	if c.Editing.CounterWidth > 6 {
		return errors.New("editing.counter_width must be between 1 and 6")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}
