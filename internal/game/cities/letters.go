package cities

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// skipLetters are never used as the required letter: when a name ends
// with one of these the scan moves further back.
var skipLetters = map[rune]struct{}{
	'Ь': {},
	'Ъ': {},
	'Ы': {},
	'Й': {},
}

var titleCaser = cases.Title(language.Russian)

// Normalize prepares a raw city name for storage and comparison:
// surrounding whitespace is trimmed and each word is title-cased.
func Normalize(name string) string {
	return titleCaser.String(strings.TrimSpace(name))
}

// normKey is the case-insensitive key used for the used-entries set.
func normKey(name string) string {
	return strings.ToLower(Normalize(name))
}

// RequiredLetter derives the letter the next city must start with.
// Spaces and hyphens are stripped, the name is uppercased, and the scan
// runs from the last character backward skipping Ь, Ъ, Ы and Й. When
// every character is skippable the literal last character is used.
func RequiredLetter(name string) string {
	clean := strings.ToUpper(strings.NewReplacer(" ", "", "-", "").Replace(name))
	runes := []rune(clean)
	if len(runes) == 0 {
		return ""
	}

	for i := len(runes) - 1; i >= 0; i-- {
		if _, skip := skipLetters[runes[i]]; !skip {
			return string(runes[i])
		}
	}
	return string(runes[len(runes)-1])
}

// FirstLetter returns the uppercased first character of the trimmed name.
func FirstLetter(name string) string {
	trimmed := strings.TrimSpace(name)
	runes := []rune(trimmed)
	if len(runes) == 0 {
		return ""
	}
	return strings.ToUpper(string(runes[0]))
}
