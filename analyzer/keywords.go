package analyzer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// minKeywordLength is the shortest token kept, in runes.
const minKeywordLength = 3

// nonWordRun matches anything that is not a letter, mark, digit, underscore,
// hyphen or apostrophe.
var nonWordRun = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_'\-]+`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "he": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "that": {}, "the": {}, "to": {},
	"was": {}, "were": {}, "will": {}, "with": {},
}

// IsStopword reports whether word is ignored by keyword extraction.
func IsStopword(word string) bool {
	_, ok := stopwords[strings.ToLower(word)]
	return ok
}

// ExtractKeywords normalizes text into lowercase keyword tokens in their original
// order. Repeated words are kept so callers can count them.
func ExtractKeywords(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var keywords []string
	for _, word := range strings.Fields(nonWordRun.ReplaceAllString(text, " ")) {
		word = strings.ToLower(word)
		if utf8.RuneCountInString(word) < minKeywordLength {
			continue
		}
		if IsStopword(word) {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}
