package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	whisper bool     // accepted as a transcription hint
	mbart   string   // mBART-50 language token, empty when untranslatable
	words   []string // Full word forms (e.g. "english")
}

// Ordering matters: Whisper and MBART list entries in table order.
var languages = []entry{
	{"en", "eng", "", "English", true, "en_XX", []string{"english"}},
	{"es", "spa", "", "Spanish", true, "es_XX", []string{"spanish"}},
	{"fr", "fra", "fre", "French", true, "fr_XX", []string{"french"}},
	{"de", "deu", "ger", "German", true, "de_DE", []string{"german"}},
	{"it", "ita", "", "Italian", true, "it_IT", []string{"italian"}},
	{"pt", "por", "", "Portuguese", true, "pt_XX", []string{"portuguese"}},
	{"nl", "nld", "dut", "Dutch", true, "nl_XX", []string{"dutch"}},
	{"ru", "rus", "", "Russian", true, "ru_RU", []string{"russian"}},
	{"zh", "zho", "chi", "Chinese", true, "zh_CN", []string{"chinese", "mandarin"}},
	{"ja", "jpn", "", "Japanese", true, "ja_XX", []string{"japanese"}},
	{"ko", "kor", "", "Korean", true, "ko_KR", []string{"korean"}},
	{"ar", "ara", "", "Arabic", true, "ar_AR", []string{"arabic"}},
	{"hi", "hin", "", "Hindi", true, "hi_IN", []string{"hindi"}},
	{"tr", "tur", "", "Turkish", true, "tr_TR", []string{"turkish"}},
	{"pl", "pol", "", "Polish", true, "pl_PL", []string{"polish"}},
	{"uk", "ukr", "", "Ukrainian", true, "uk_UA", []string{"ukrainian"}},
	{"vi", "vie", "", "Vietnamese", true, "vi_VN", []string{"vietnamese"}},
	{"th", "tha", "", "Thai", true, "th_TH", []string{"thai"}},
	{"sv", "swe", "", "Swedish", true, "sv_SE", []string{"swedish"}},
	{"id", "ind", "", "Indonesian", true, "id_ID", []string{"indonesian"}},
	{"he", "heb", "", "Hebrew", true, "he_IL", []string{"hebrew"}},
	{"el", "ell", "gre", "Greek", true, "", []string{"greek"}},
	{"cs", "ces", "cze", "Czech", true, "cs_CZ", []string{"czech"}},
	{"fi", "fin", "", "Finnish", true, "fi_FI", []string{"finnish"}},
	{"ro", "ron", "rum", "Romanian", true, "ro_RO", []string{"romanian"}},
	{"da", "dan", "", "Danish", true, "", []string{"danish"}},
	{"hu", "hun", "", "Hungarian", true, "", []string{"hungarian"}},
	{"ta", "tam", "", "Tamil", true, "ta_IN", []string{"tamil"}},
	{"no", "nor", "", "Norwegian", true, "", []string{"norwegian"}},
	{"gu", "guj", "", "Gujarati", true, "gu_IN", []string{"gujarati"}},
	{"mr", "mar", "", "Marathi", true, "mr_IN", []string{"marathi"}},
	{"te", "tel", "", "Telugu", true, "te_IN", []string{"telugu"}},
	{"bn", "ben", "", "Bengali", true, "bn_IN", []string{"bengali"}},
	{"ur", "urd", "", "Urdu", true, "ur_PK", []string{"urdu"}},
	{"pa", "pan", "", "Punjabi", true, "", []string{"punjabi"}},
	{"fa", "fas", "per", "Persian", false, "fa_IR", []string{"persian", "farsi"}},
	{"sw", "swa", "", "Swahili", false, "sw_KE", []string{"swahili"}},
	{"tl", "tgl", "", "Tagalog", false, "tl_XX", []string{"tagalog"}},
	{"af", "afr", "", "Afrikaans", false, "af_ZA", []string{"afrikaans"}},
	{"az", "aze", "", "Azerbaijani", false, "az_AZ", []string{"azerbaijani"}},
	{"my", "mya", "bur", "Burmese", false, "my_MM", []string{"burmese"}},
	{"hr", "hrv", "", "Croatian", false, "hr_HR", []string{"croatian"}},
	{"et", "est", "", "Estonian", false, "et_EE", []string{"estonian"}},
	{"ka", "kat", "geo", "Georgian", false, "ka_GE", []string{"georgian"}},
	{"kk", "kaz", "", "Kazakh", false, "kk_KZ", []string{"kazakh"}},
	{"km", "khm", "", "Khmer", false, "km_KH", []string{"khmer"}},
	{"lv", "lav", "", "Latvian", false, "lv_LV", []string{"latvian"}},
	{"lt", "lit", "", "Lithuanian", false, "lt_LT", []string{"lithuanian"}},
	{"mk", "mkd", "mac", "Macedonian", false, "mk_MK", []string{"macedonian"}},
	{"ml", "mal", "", "Malayalam", false, "ml_IN", []string{"malayalam"}},
	{"mn", "mon", "", "Mongolian", false, "mn_MN", []string{"mongolian"}},
	{"ne", "nep", "", "Nepali", false, "ne_NP", []string{"nepali"}},
	{"ps", "pus", "", "Pashto", false, "ps_AF", []string{"pashto"}},
	{"si", "sin", "", "Sinhala", false, "si_LK", []string{"sinhala", "sinhalese"}},
	{"xh", "xho", "", "Xhosa", false, "xh_ZA", []string{"xhosa"}},
}

// Index maps built at init time.
var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
	byMBART map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	byMBART = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		if e.mbart != "" {
			byMBART[strings.ToLower(e.mbart)] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	if e, ok := byMBART[code]; ok {
		return e
	}
	// BCP 47 tags such as "pt-BR" or "zh_Hant" resolve by their base language.
	if strings.ContainsAny(code, "-_") {
		if tag, err := language.Parse(strings.ReplaceAll(code, "_", "-")); err == nil {
			base, _ := tag.Base()
			if e, ok := byCode2[base.String()]; ok {
				return e
			}
		}
	}
	return nil
}

// IsAuto reports whether code requests automatic language detection.
func IsAuto(code string) bool {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "", "auto", "auto-detect", "detect":
		return true
	}
	return false
}

// ToISO2 converts any recognized language code or word to ISO 639-1 (2-letter).
// Returns empty string for unrecognized input.
// If the input is already a 2-letter code (even if unknown), it passes through.
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// ToISO3 converts any recognized language code to ISO 639-2 (3-letter).
// Returns "und" for unrecognized 2-letter codes, passes through 3-letter codes.
func ToISO3(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "und"
	}
	if e := lookup(code); e != nil {
		return e.code3
	}
	if len(code) == 3 {
		return code
	}
	return "und"
}

// DisplayName returns a human-readable language name for any recognized code.
// Codes outside the table are named from CLDR data when x/text knows them;
// otherwise the uppercased code is returned. Empty input yields "Unknown".
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	if base, err := language.ParseBase(strings.ToLower(code)); err == nil {
		if name := display.English.Languages().Name(base); name != "" {
			return name
		}
	}
	return strings.ToUpper(code)
}

// NativeName returns the language's name in its own language, e.g. "français".
func NativeName(code string) string {
	e := lookup(code)
	if e == nil {
		return ""
	}
	tag, err := language.Parse(e.code2)
	if err != nil {
		return ""
	}
	return display.Self.Name(tag)
}

// NormalizeList deduplicates and normalizes a list of language codes to ISO 639-1.
func NormalizeList(languages []string) []string {
	if len(languages) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		trimmed := strings.ToLower(strings.TrimSpace(lang))
		if trimmed == "" {
			continue
		}
		if len(trimmed) > 2 {
			if mapped := ToISO2(trimmed); mapped != "" {
				trimmed = mapped
			}
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
