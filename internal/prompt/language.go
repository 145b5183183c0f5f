package prompt

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/futig/uiprime-backend/internal/entity"
)

var languageNames = map[string]string{
	"en": "English",
	"ro": "Romanian",
	"fr": "French",
	"de": "German",
	"es": "Spanish",
	"it": "Italian",
	"ru": "Russian",
	"uk": "Ukrainian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"pl": "Polish",
}

// LanguageName returns the English name of an ISO 639-1 code, or English for
// unknown codes.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return languageNames["en"]
}

// Resolver picks the response language of a request: a supported explicit
// hint first, then a confident detection over the query, then the fallback.
type Resolver struct {
	supported map[string]struct{}
	fallback  string
}

func NewResolver(supported []string, fallback string) *Resolver {
	set := make(map[string]struct{}, len(supported))
	for _, code := range supported {
		if code = normalizeCode(code); code != "" {
			set[code] = struct{}{}
		}
	}

	fallback = normalizeCode(fallback)
	if fallback == "" {
		fallback = "en"
	}
	set[fallback] = struct{}{}

	return &Resolver{supported: set, fallback: fallback}
}

// Fallback returns the configured default language.
func (r *Resolver) Fallback() string {
	return r.fallback
}

// Resolve never fails. Undetectable input always yields the fallback.
func (r *Resolver) Resolve(explicit, query string) (string, entity.LanguageSource) {
	if code := normalizeCode(explicit); r.isSupported(code) {
		return code, entity.LanguageExplicit
	}

	if code, ok := r.detect(query); ok {
		return code, entity.LanguageDetected
	}

	return r.fallback, entity.LanguageFallback
}

func (r *Resolver) detect(query string) (string, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", false
	}

	info := whatlanggo.Detect(query)
	if !info.IsReliable() {
		return "", false
	}

	code := info.Lang.Iso6391()
	if !r.isSupported(code) {
		return "", false
	}

	return code, true
}

func (r *Resolver) isSupported(code string) bool {
	if code == "" {
		return false
	}
	_, ok := r.supported[code]
	return ok
}

// normalizeCode reduces "en-US" or "EN_gb" to "en".
func normalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}
