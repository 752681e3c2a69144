package agents

import (
	"slices"
	"strings"

	"github.com/civicchat/orchestra/pkg/domain"
)

// EffectiveQuestion returns the text an agent should work on: the most recent user
// message, else the question carried by the request context.
func EffectiveQuestion(state domain.WorkflowState) (string, bool) {
	if msg, ok := state.LastUserMessage(); ok {
		if q := strings.TrimSpace(msg); q != "" {
			return q, true
		}
	}
	if q := strings.TrimSpace(state.Context.Question); q != "" {
		return q, true
	}
	return "", false
}

// language resolves the response language of a run: the request language when it
// is supported, else the detected one, else the default.
func (o options) language(state domain.WorkflowState) string {
	if lang, ok := o.supportedLanguage(state.Context.Language); ok {
		return lang
	}
	if lang, ok := o.supportedLanguage(state.LanguageDetected); ok {
		return lang
	}
	return o.defaultLanguage
}

// supportedLanguage normalizes lang and reports whether it may be answered in.
func (o options) supportedLanguage(lang string) (string, bool) {
	lang = normalizeLanguage(lang)
	if lang == "" {
		return "", false
	}
	if len(o.supported) > 0 && !slices.Contains(o.supported, lang) {
		return "", false
	}
	return lang, true
}

// normalizeLanguage reduces tags such as "es-MX" or " EN " to their primary subtag.
func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if primary, _, ok := strings.Cut(lang, "-"); ok {
		return primary
	}
	if primary, _, ok := strings.Cut(lang, "_"); ok {
		return primary
	}
	return lang
}
