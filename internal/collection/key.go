package collection

import (
	"strconv"
	"strings"
)

// keyDigits is the width numeric leading words are padded to.
const keyDigits = 8

// Key derives the sort key for a title and year.
//
// The title is lower-cased and a leading "a ", "an " or "the " is dropped.
// A leading word made only of digits is zero-padded to eight places so
// numeric titles sort by value. Spaces are then removed and the year is
// appended after a tab as the final tie-break.
//
// Example:
//
//	Key("The Matrix", 1999)            // "matrix\t1999"
//	Key("300", 2006)                   // "00000300\t2006"
//	Key("2001: A Space Odyssey", 1968) // "2001:aspaceodyssey\t1968"
func Key(title string, year int) string {
	text := strings.ToLower(title)
	for _, article := range []string{"a ", "an ", "the "} {
		if strings.HasPrefix(text, article) {
			text = text[len(article):]
			break
		}
	}

	first, rest, hasRest := strings.Cut(text, " ")
	if isDigits(first) {
		text = padNumber(first) + " "
		if hasRest {
			text += rest
		}
	}

	return strings.ReplaceAll(text, " ", "") + "\t" + strconv.Itoa(year)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// padNumber renders a digit string as its value padded to keyDigits places.
// Works on the text so arbitrarily long numbers never overflow.
func padNumber(s string) string {
	s = strings.TrimLeft(s, "0")
	if len(s) >= keyDigits {
		return s
	}
	return strings.Repeat("0", keyDigits-len(s)) + s
}
