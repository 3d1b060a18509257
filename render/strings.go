package render

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/iancoleman/strcase"
	"golang.org/x/mod/semver"
)

// textFuncMap holds the text helpers of DefaultFuncMap. Like the rest of
// the map, the piped value is the last argument.
func textFuncMap() map[string]any {
	return map[string]any{
		"plural":         pluralize,
		"singular":       singularize,
		"humanize":       humanize,
		"indent":         indentLines,
		"comment":        comment,
		"wrap":           wrapText,
		"truncate":       truncateString,
		"regexReplace":   regexReplace,
		"sha256":         checksum,
		"versionMajor":   versionMajor,
		"versionMinor":   versionMinor,
		"versionCompare": versionCompare,
	}
}

var irregularPlurals = map[string]string{
	"person":    "people",
	"child":     "children",
	"datum":     "data",
	"medium":    "media",
	"criterion": "criteria",
	"index":     "indices",
	"matrix":    "matrices",
	"analysis":  "analyses",
}

func pluralize(word string) string {
	if word == "" {
		return ""
	}
	lower := strings.ToLower(word)
	if plural, ok := irregularPlurals[lower]; ok {
		return plural
	}
	for _, suffix := range []string{"s", "x", "z", "ch", "sh"} {
		if strings.HasSuffix(lower, suffix) {
			return word + "es"
		}
	}
	if strings.HasSuffix(lower, "y") && len(lower) > 1 && !strings.ContainsRune("aeiou", rune(lower[len(lower)-2])) {
		return word[:len(word)-1] + "ies"
	}
	return word + "s"
}

func singularize(word string) string {
	lower := strings.ToLower(word)
	for singular, plural := range irregularPlurals {
		if lower == plural {
			return singular
		}
	}
	switch {
	case strings.HasSuffix(lower, "ies") && len(lower) > 3:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(lower, "es") && len(lower) > 2:
		base := lower[:len(lower)-2]
		for _, suffix := range []string{"s", "x", "z", "ch", "sh"} {
			if strings.HasSuffix(base, suffix) {
				return word[:len(word)-2]
			}
		}
		return word[:len(word)-1]
	case strings.HasSuffix(lower, "s") && !strings.HasSuffix(lower, "ss") && len(lower) > 1:
		return word[:len(word)-1]
	}
	return word
}

// humanize turns identifiers such as raw_data or rawData into "Raw data".
func humanize(s string) string {
	words := strings.ReplaceAll(strcase.ToSnake(s), "_", " ")
	if words == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(words)
	return strings.ToUpper(string(r)) + words[size:]
}

// indentLines prefixes every non-blank line of text with n spaces.
func indentLines(n int, text string) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

// comment prefixes every line of text with prefix and a space; blank
// lines get the bare prefix.
func comment(prefix, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = prefix
		} else {
			lines[i] = prefix + " " + line
		}
	}
	return strings.Join(lines, "\n")
}

// wrapText reflows text so no line is longer than width runes, except for
// single words that are longer on their own.
func wrapText(width int, text string) string {
	words := strings.Fields(text)
	if width <= 0 || len(words) == 0 {
		return text
	}

	var b strings.Builder
	lineLen := 0
	for _, word := range words {
		n := utf8.RuneCountInString(word)
		if lineLen > 0 && lineLen+1+n > width {
			b.WriteByte('\n')
			lineLen = 0
		} else if lineLen > 0 {
			b.WriteByte(' ')
			lineLen++
		}
		b.WriteString(word)
		lineLen += n
	}
	return b.String()
}

func truncateString(length int, s string) string {
	if length <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	if length <= 3 {
		return string(runes[:length])
	}
	return string(runes[:length-3]) + "..."
}

func regexReplace(pattern, repl, s string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", err
	}
	return re.ReplaceAllString(s, repl), nil
}

func checksum(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// canonicalVersion accepts versions with or without a leading v, such as
// 3.12 or v1.4.2. Invalid versions yield "".
func canonicalVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

func versionMajor(v string) string {
	return strings.TrimPrefix(semver.Major(canonicalVersion(v)), "v")
}

// versionMinor returns major.minor, e.g. 3.12 for 3.12.1.
func versionMinor(v string) string {
	return strings.TrimPrefix(semver.MajorMinor(canonicalVersion(v)), "v")
}

// versionCompare returns -1, 0 or +1. Invalid versions sort before valid
// ones.
func versionCompare(a, b string) int {
	return semver.Compare(canonicalVersion(a), canonicalVersion(b))
}
