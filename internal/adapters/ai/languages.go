package ai

import "fmt"

// languageNames maps ISO 639-1 codes to native language names used in
// prompts. Unknown codes pass through unchanged.
var languageNames = map[string]string{
	"en": "English",
	"he": "עברית",
	"es": "Español",
	"fr": "Français",
	"de": "Deutsch",
	"it": "Italiano",
	"pt": "Português",
	"ru": "Русский",
	"ar": "العربية",
	"zh": "中文",
	"ja": "日本語",
	"ko": "한국어",
}

// LanguageName resolves a language code to its native name, falling
// back to the code itself.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

// languageDirective builds the instruction that pins the response
// language, for prepending to a prompt.
func languageDirective(code string) string {
	return fmt.Sprintf(
		"IMPORTANT: Respond in %s (%s). All generated content must be in this language.",
		LanguageName(code), code,
	)
}
