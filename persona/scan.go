package persona

import (
	"regexp"
	"strings"
	"unicode"
)

// PatternMatcher returns every match of some pattern in text, in positional order.
// The regexp-backed implementation is the default; any scanner with the same contract works.
type PatternMatcher interface {
	FindAll(text string) []string
}

// RegexpMatcher adapts a compiled regular expression to PatternMatcher.
type RegexpMatcher struct {
	re *regexp.Regexp
}

// NewRegexpMatcher compiles pattern.
func NewRegexpMatcher(pattern string) (RegexpMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return RegexpMatcher{}, err
	}
	return RegexpMatcher{re: re}, nil
}

// FindAll implements PatternMatcher.
func (m RegexpMatcher) FindAll(text string) []string {
	if m.re == nil {
		return nil
	}
	return m.re.FindAllString(text, -1)
}

// ExtractPatternMatches returns all matches of m in text; nil matcher yields nil.
func ExtractPatternMatches(text string, m PatternMatcher) []string {
	if m == nil || text == "" {
		return nil
	}
	return m.FindAll(text)
}

var defaultPetNameMatcher = RegexpMatcher{re: regexp.MustCompile(petNamePattern)}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func countPresent(lower string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}

// isEmoji reports whether r falls into the pictograph/dingbat ranges counted as emoji.
func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	}
	return false
}

func countEmoji(s string) int {
	n := 0
	for _, r := range s {
		if isEmoji(r) {
			n++
		}
	}
	return n
}

// phraseAround returns the trimmed window of phraseWindow runes on either side of the first
// case-insensitive occurrence of word in text. ok is false when word is absent.
func phraseAround(text, word string) (phrase string, ok bool) {
	runes := []rune(text)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}
	needle := []rune(strings.ToLower(word))
	idx := indexRunes(lower, needle)
	if idx < 0 {
		return "", false
	}
	start := idx - phraseWindow
	if start < 0 {
		start = 0
	}
	end := idx + len(needle) + phraseWindow
	if end > len(runes) {
		end = len(runes)
	}
	return strings.TrimSpace(string(runes[start:end])), true
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

// importanceOf scores a memory: 1 plus 2 for each importance word present in the text.
func importanceOf(lower string) int {
	return 1 + 2*countPresent(lower, importantWords)
}

func limitStrings(in []string, max int) []string {
	if max <= 0 || len(in) <= max {
		return in
	}
	return in[:max]
}
