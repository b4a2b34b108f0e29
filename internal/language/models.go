package language

// Language is one selectable language for a model.
type Language struct {
	Code string // ISO 639-1
	Name string
}

// TranscriptionLanguages lists the languages accepted as a transcription hint,
// in menu order. Auto detection is expressed by an empty hint (see IsAuto).
func TranscriptionLanguages() []Language {
	out := make([]Language, 0, 40)
	for _, e := range languages {
		if e.whisper {
			out = append(out, Language{Code: e.code2, Name: e.display})
		}
	}
	return out
}

// TranslationLanguages lists the languages the mBART-50 model can translate
// between, in menu order.
func TranslationLanguages() []Language {
	out := make([]Language, 0, 50)
	for _, e := range languages {
		if e.mbart != "" {
			out = append(out, Language{Code: e.code2, Name: e.display})
		}
	}
	return out
}

// SupportsTranscription reports whether code is a usable transcription hint.
// Auto detection always qualifies.
func SupportsTranscription(code string) bool {
	if IsAuto(code) {
		return true
	}
	e := lookup(code)
	return e != nil && e.whisper
}

// MBARTCode returns the mBART-50 language token (e.g. "fr_XX") for code.
func MBARTCode(code string) (string, bool) {
	e := lookup(code)
	if e == nil || e.mbart == "" {
		return "", false
	}
	return e.mbart, true
}
