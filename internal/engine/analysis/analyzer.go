// Package analysis extracts shallow lexical signals from a single user
// utterance: intent, keyword categories, sentiment, and complexity. It
// performs no natural-language understanding beyond fixed word lists.
package analysis

import (
	"strings"
	"unicode"
)

type Intent string

const (
	IntentGeneral   Intent = "general"
	IntentQuestion  Intent = "question"
	IntentConfused  Intent = "confused"
	IntentAgreement Intent = "agreement"
	IntentConcern   Intent = "concern"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentConfused Sentiment = "confused"
)

type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// Word count thresholds for the complexity buckets.
const (
	simpleWordLimit = 20
	mediumWordLimit = 50
)

// Result is the best-effort analysis of one utterance. Analyze always
// returns a Result; unmatched input degrades to general/neutral/simple.
type Result struct {
	Intent     Intent     `json:"intent"`
	Categories []string   `json:"categories,omitempty"`
	Sentiment  Sentiment  `json:"sentiment"`
	Complexity Complexity `json:"complexity"`
	WordCount  int        `json:"word_count"`
}

// HasCategory reports whether the given taxonomy category matched.
func (r Result) HasCategory(category string) bool {
	for _, c := range r.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Fixed taxonomy of keyword categories. The conversation is bilingual
// in practice, so each list carries Spanish and English cues.
var categoryWords = map[string][]string{
	"scope":     {"mvp", "alcance", "scope", "básico", "esencial", "minimum", "funcionalidad", "feature"},
	"scaling":   {"escalar", "escala", "scaling", "crecer", "growth", "usuarios concurrentes", "carga"},
	"security":  {"seguridad", "security", "autenticación", "auth", "privacidad", "cifrado", "permisos"},
	"budget":    {"presupuesto", "budget", "costo", "coste", "cost", "precio", "inversión", "dinero"},
	"team":      {"equipo", "team", "desarrolladores", "developers", "contratar", "freelance"},
	"timeline":  {"tiempo", "plazo", "deadline", "timeline", "semanas", "meses", "cronograma", "fecha"},
	"technical": {"api", "base de datos", "database", "backend", "frontend", "stack", "tecnología", "servidor", "nube", "cloud"},
	"business":  {"negocio", "business", "clientes", "mercado", "ventas", "revenue", "monetización", "competencia"},
}

// categoryOrder keeps Result.Categories deterministic.
var categoryOrder = []string{"scope", "scaling", "security", "budget", "team", "timeline", "technical", "business"}

var confusionPhrases = []string{
	"no entiendo", "no estoy seguro", "no estoy segura", "no sé", "no se ",
	"confundido", "confundida", "qué significa", "que significa",
	"not sure", "don't understand", "dont understand", "confused", "no idea",
}

var agreementPhrases = []string{
	"perfecto", "de acuerdo", "vamos", "adelante", "me parece bien", "genial",
	"claro", "exacto", "correcto", "está bien", "esta bien", "dale",
	"sounds good", "agreed", "let's go", "lets go", "go ahead",
}

var agreementWords = []string{"sí", "si", "ok", "okay", "yes", "yep", "listo"}

var concernPhrases = []string{
	"me preocupa", "preocupado", "preocupada", "riesgo", "problema", "miedo",
	"duda sobre", "no me convence", "worried", "concern", "risk", "issue",
}

var positiveWords = []string{
	"perfecto", "genial", "excelente", "increíble", "me gusta", "me encanta",
	"buenísimo", "gracias", "great", "perfect", "awesome", "love it", "nice",
}

// Analyze runs the full lexical analysis. It is pure and deterministic;
// the same input always yields the same Result.
func Analyze(text string) Result {
	lower := strings.ToLower(strings.TrimSpace(text))
	words := strings.Fields(lower)

	res := Result{
		Intent:     IntentGeneral,
		Sentiment:  SentimentNeutral,
		Complexity: complexityFor(len(words)),
		WordCount:  len(words),
	}

	tokens := tokenSet(words)
	for _, category := range categoryOrder {
		if matchesAny(lower, tokens, categoryWords[category]) {
			res.Categories = append(res.Categories, category)
		}
	}

	// Intent heuristics in fixed priority order.
	switch {
	case strings.Contains(lower, "?") || strings.Contains(lower, "¿"):
		res.Intent = IntentQuestion
	case matchesAny(lower, tokens, confusionPhrases):
		res.Intent = IntentConfused
	case matchesAny(lower, tokens, agreementPhrases) || matchesAny(lower, tokens, agreementWords):
		res.Intent = IntentAgreement
	case matchesAny(lower, tokens, concernPhrases):
		res.Intent = IntentConcern
	}

	switch {
	case matchesAny(lower, tokens, confusionPhrases):
		res.Sentiment = SentimentConfused
	case matchesAny(lower, tokens, positiveWords):
		res.Sentiment = SentimentPositive
	}

	return res
}

func complexityFor(wordCount int) Complexity {
	switch {
	case wordCount < simpleWordLimit:
		return ComplexitySimple
	case wordCount <= mediumWordLimit:
		return ComplexityMedium
	default:
		return ComplexityComplex
	}
}

// tokenSet strips surrounding punctuation so short cues like "sí" or
// "ok" match as whole words instead of substrings.
func tokenSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if trimmed != "" {
			set[trimmed] = true
		}
	}
	return set
}

// matchesAny uses substring matching for multi-word phrases and
// whole-token matching for single short words.
func matchesAny(lower string, tokens map[string]bool, cues []string) bool {
	for _, cue := range cues {
		if strings.ContainsAny(cue, " '") || len(cue) > 4 {
			if strings.Contains(lower, cue) {
				return true
			}
			continue
		}
		if tokens[cue] {
			return true
		}
	}
	return false
}
