package repositorycache

import (
	"strings"
	"unicode"
)

// regionName derives a cache region from a record type name: the snake_case
// words with the last one pluralized, so Admin maps to "admins" like the
// regions the services use. Punctuation from reflected names (pointers,
// package qualifiers) only separates words, since regions are matched by
// substring on invalidation.
func regionName(typeName string) string {
	words := splitWords(typeName)
	if len(words) == 0 {
		return ""
	}
	last := len(words) - 1
	words[last] = plural(words[last])
	return strings.Join(words, "_")
}

func splitWords(s string) []string {
	runes := []rune(s)
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if len(cur) > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || nextLower {
					flush()
				}
			}
			cur = append(cur, r)
		case unicode.IsLower(r):
			cur = append(cur, r)
		case unicode.IsDigit(r):
			if len(cur) > 0 && !unicode.IsDigit(runes[i-1]) {
				flush()
			}
			cur = append(cur, r)
		default:
			flush()
		}
	}
	flush()
	return words
}

func plural(w string) string {
	n := len(w)
	switch {
	case n == 0 || unicode.IsDigit(rune(w[n-1])):
		return w
	case strings.HasSuffix(w, "s"), strings.HasSuffix(w, "x"), strings.HasSuffix(w, "z"),
		strings.HasSuffix(w, "ch"), strings.HasSuffix(w, "sh"):
		return w + "es"
	case n > 1 && w[n-1] == 'y' && !strings.ContainsRune("aeiou", rune(w[n-2])):
		return w[:n-1] + "ies"
	}
	return w + "s"
}
