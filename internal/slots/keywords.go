package slots

import (
	"strings"

	"quote-orchestrator/internal/textnorm"
)

// ClientType is the outcome of classifying the client-type answer.
type ClientType string

const (
	ClientExisting ClientType = "EXISTING"
	ClientManual   ClientType = "MANUAL"
	ClientUnknown  ClientType = "UNKNOWN"
)

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

var (
	affirmativeWords   = set("si", "sip", "dale", "ok", "okay", "oka", "claro", "yes", "yep", "yeah", "afirmativo", "correcto", "bueno", "obvio", "perfecto", "exacto", "sure")
	affirmativePhrases = set("de una", "por supuesto", "esta bien", "me parece bien", "of course")
	negativeWords      = set("no", "nop", "nope", "nah", "negativo", "nada", "ninguno", "ninguna", "tampoco")
	negativePhrases    = set("para nada", "no gracias", "todavia no", "not now")

	confirmWords   = set("confirmar", "confirmo", "confirm", "confirmado", "confirmed")
	confirmPhrases = set("i confirm", "lo confirmo", "yo confirmo", "si confirmo", "confirmo la cotizacion")

	finishWords   = set("finalizar", "finalizo", "terminar", "termine", "terminado", "listo", "lista", "fin", "cerrar", "resumen", "finish", "done", "close", "ready", "summary")
	finishPhrases = set("nada mas", "eso es todo", "ya esta", "no mas", "es todo", "that s all", "thats all")

	// fillerWords may accompany a short answer without changing its meaning.
	fillerWords = set("gracias", "che", "porfa")

	existingWords = set("existente", "existe", "existing", "registrado", "registrada", "cargado", "cargada", "buscar", "base")
	manualWords   = set("manual", "nuevo", "nueva", "new", "particular", "walk", "walkin", "consumidor", "ocasional")
)

const shortAnswerWords = 3

// IsAffirmative reports an unambiguous yes: a yes phrase, or a short answer made
// only of yes words and fillers. Anything else, questions included, is not yes.
func IsAffirmative(text string) bool {
	return matches(text, affirmativeWords, affirmativePhrases)
}

// IsNegative reports an unambiguous no, under the same rules as IsAffirmative.
func IsNegative(text string) bool {
	return matches(text, negativeWords, negativePhrases)
}

// IsConfirmation reports an explicit confirmation such as "confirmar" or "sí, confirmo".
// Every word must be a confirmation, a yes or a filler.
func IsConfirmation(text string) bool {
	tokens := textnorm.Fields(text)
	if _, ok := confirmPhrases[strings.Join(tokens, " ")]; ok {
		return true
	}
	if len(tokens) == 0 || len(tokens) > 2 || !containsAny(tokens, confirmWords) {
		return false
	}
	return onlyWords(tokens, confirmWords, affirmativeWords, fillerWords)
}

// IsFinish reports the end-of-category utterance of an item sub-flow. The whole
// message must be a finish word or phrase, optionally with fillers.
func IsFinish(text string) bool {
	tokens := textnorm.Fields(text)
	if _, ok := finishPhrases[strings.Join(tokens, " ")]; ok {
		return true
	}
	if len(tokens) == 0 || len(tokens) > shortAnswerWords || !containsAny(tokens, finishWords) {
		return false
	}
	return onlyWords(tokens, finishWords, fillerWords)
}

// ClassifyClientType classifies the client-type answer by keyword. An ObjectId-shaped
// token is a strong signal for an existing client.
func ClassifyClientType(text string) ClientType {
	if _, ok := ParseObjectID(text); ok {
		return ClientExisting
	}
	words := textnorm.Fields(text)
	existing := containsAny(words, existingWords)
	manual := containsAny(words, manualWords)
	switch {
	case existing && !manual:
		return ClientExisting
	case manual && !existing:
		return ClientManual
	default:
		return ClientUnknown
	}
}

// IsKeyword reports whether the whole normalized text equals one of the keywords.
func IsKeyword(text string, keywords ...string) bool {
	n := textnorm.Normalize(text)
	for _, k := range keywords {
		if n == k {
			return true
		}
	}
	return false
}

func matches(text string, words, phrases map[string]struct{}) bool {
	tokens := textnorm.Fields(text)
	if len(tokens) == 0 {
		return false
	}
	if _, ok := phrases[strings.Join(tokens, " ")]; ok {
		return true
	}
	if len(tokens) > shortAnswerWords || !containsAny(tokens, words) {
		return false
	}
	return onlyWords(tokens, words, fillerWords)
}

// onlyWords reports whether every token belongs to one of the sets.
func onlyWords(tokens []string, sets ...map[string]struct{}) bool {
	for _, tok := range tokens {
		found := false
		for _, s := range sets {
			if _, ok := s[tok]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsAny(words []string, keywords map[string]struct{}) bool {
	for _, w := range words {
		if _, ok := keywords[w]; ok {
			return true
		}
	}
	return false
}
