package htmlutil

import (
	"regexp"
	"strconv"
	"strings"
)

var countPattern = regexp.MustCompile(`(?i)([\d][\d,.]*)\s*([kmb])?\b`)

// ParseCount parses abbreviated counts such as "1,204", "3.4K" or "2M". It returns 0
// when no number is present.
func ParseCount(s string) int {
	m := countPattern.FindStringSubmatch(strings.TrimSpace(s))
	if len(m) < 2 {
		return 0
	}
	num := strings.ReplaceAll(m[1], ",", "")
	num = strings.TrimRight(num, ".")
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	switch strings.ToLower(m[2]) {
	case "k":
		f *= 1_000
	case "m":
		f *= 1_000_000
	case "b":
		f *= 1_000_000_000
	}
	return int(f)
}

// CountBefore finds the first number immediately preceding word (for example
// "12.5K followers") in text and parses it.
func CountBefore(text, word string) int {
	re, err := regexp.Compile(`(?i)([\d][\d,.]*\s*[kmb]?)\s+` + regexp.QuoteMeta(word))
	if err != nil {
		return 0
	}
	if m := re.FindStringSubmatch(text); len(m) > 1 {
		return ParseCount(m[1])
	}
	return 0
}
