package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Verdict classifies a raw model response.
type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictSentinel
	VerdictRefusal
)

// sentinelNoFace is the fixed token the analysis prompt instructs the model
// to answer with when the photos contain no analyzable face.
const sentinelNoFace = "НЕТ"

// minUsableLength is the rune count below which a non-sentinel response is
// treated as unusable and handled like a refusal.
const minUsableLength = 80

var upperCaser = cases.Upper(language.Russian)

// refusalPatterns are lowercase substrings of the apology/decline phrasings
// the model produces in either language when it declines the task.
var refusalPatterns = []string{
	"извините",
	"к сожалению",
	"я не могу",
	"не могу помочь",
	"не могу выполнить",
	"i'm sorry",
	"i am sorry",
	"i can't",
	"i cannot",
	"unable to",
	"cannot assist",
	"as an ai",
}

// Classify decides whether a raw response is the no-face sentinel, a refusal,
// or a usable analysis. The sentinel wins over the length heuristic: a bare
// "НЕТ" is an answer, not an unusably short one.
func Classify(text string) Verdict {
	trimmed := strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	if upperCaser.String(trimmed) == sentinelNoFace {
		return VerdictSentinel
	}

	lowered := strings.ToLower(text)
	for _, pattern := range refusalPatterns {
		if strings.Contains(lowered, pattern) {
			return VerdictRefusal
		}
	}

	if utf8.RuneCountInString(strings.TrimSpace(text)) < minUsableLength {
		return VerdictRefusal
	}

	return VerdictOK
}
