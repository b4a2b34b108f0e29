package config

const (
	defaultModelsDir                 = "~/.local/share/textifier/models"
	defaultStateDir                  = "~/.local/share/textifier/state"
	defaultLogDir                    = "~/.local/share/textifier/logs"
	defaultFFmpegBinary              = "ffmpeg"
	defaultProbeModel                = "tiny"
	defaultLockTimeoutSeconds        = 600
	defaultTranscriptionModel        = "large-v3"
	defaultBeamSize                  = 5
	defaultBestOf                    = 5
	defaultPatience                  = 1.0
	defaultRepetitionPenalty         = 1.0
	defaultCompressionRatioThreshold = 2.4
	defaultLogProbThreshold          = -1.0
	defaultNoSpeechThreshold         = 0.6
	defaultTranslationModel          = "mbart-large-50-many-to-many-mmt"
	defaultSourceLanguage            = "en"
	defaultTargetLanguage            = "fr"
	defaultMaxBatchSize              = 8
	defaultTranslationBeamSize       = 5
	defaultTranslationMaxLength      = 512
	defaultLengthPenalty             = 1.0
	defaultNoRepeatNgramSize         = 3
	defaultWorkerCommand             = "uvx"
	defaultWorkerStartupSeconds      = 300
	defaultEditSuffix                = "_edit"
	defaultEditCounterWidth          = 2
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultNtfyTimeoutSeconds        = 10
)

var (
	defaultCandidates    = []string{"cuda:float16", "cuda:int8", "cpu:int8"}
	defaultFormats       = []string{"vtt", "srt", "txt", "csv"}
	defaultTemperatures  = []float64{0.0, 0.2, 0.4, 0.6, 0.8, 1.0}
	defaultWorkerASRArgs = []string{"--from", "textifier-workers", "textifier-asr-worker"}
	defaultWorkerMTArgs  = []string{"--from", "textifier-workers", "textifier-mt-worker"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ModelsDir: defaultModelsDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		FFmpeg: FFmpeg{
			Binary: defaultFFmpegBinary,
		},
		Hardware: Hardware{
			Candidates:         append([]string(nil), defaultCandidates...),
			ProbeModel:         defaultProbeModel,
			LockTimeoutSeconds: defaultLockTimeoutSeconds,
		},
		Transcription: Transcription{
			Model:                     defaultTranscriptionModel,
			Formats:                   append([]string(nil), defaultFormats...),
			BeamSize:                  defaultBeamSize,
			BestOf:                    defaultBestOf,
			Patience:                  defaultPatience,
			Temperatures:              append([]float64(nil), defaultTemperatures...),
			RepetitionPenalty:         defaultRepetitionPenalty,
			CompressionRatioThreshold: defaultCompressionRatioThreshold,
			LogProbThreshold:          defaultLogProbThreshold,
			NoSpeechThreshold:         defaultNoSpeechThreshold,
			ConditionOnPreviousText:   true,
		},
		Translation: Translation{
			Model:             defaultTranslationModel,
			SourceLanguage:    defaultSourceLanguage,
			TargetLanguage:    defaultTargetLanguage,
			MaxBatchSize:      defaultMaxBatchSize,
			BeamSize:          defaultTranslationBeamSize,
			MaxLength:         defaultTranslationMaxLength,
			EarlyStopping:     true,
			LengthPenalty:     defaultLengthPenalty,
			NoRepeatNgramSize: defaultNoRepeatNgramSize,
		},
		Workers: Workers{
			TranscriptionCommand:  defaultWorkerCommand,
			TranscriptionArgs:     append([]string(nil), defaultWorkerASRArgs...),
			TranslationCommand:    defaultWorkerCommand,
			TranslationArgs:       append([]string(nil), defaultWorkerMTArgs...),
			StartupTimeoutSeconds: defaultWorkerStartupSeconds,
		},
		Editing: Editing{
			Suffix:       defaultEditSuffix,
			CounterWidth: defaultEditCounterWidth,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
	}
}
