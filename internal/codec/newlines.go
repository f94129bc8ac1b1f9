package codec

import "strings"

const (
	// ParagraphSeparator stands in for a blank line ("\n\n") inside notes.
	ParagraphSeparator = "\u2029"

	// LineSeparator stands in for a single "\n" inside notes.
	LineSeparator = "\u2028"
)

var (
	newlineEncoder = strings.NewReplacer("\n\n", ParagraphSeparator, "\n", LineSeparator)
	newlineDecoder = strings.NewReplacer(ParagraphSeparator, "\n\n", LineSeparator, "\n")
)

// EncodeNewlines folds notes onto a single line.
//
// Pairs of newlines become ParagraphSeparator, remaining newlines become
// LineSeparator. Replacement scans left to right, so "\n\n\n" encodes as
// ParagraphSeparator followed by LineSeparator.
func EncodeNewlines(text string) string {
	return newlineEncoder.Replace(text)
}

// DecodeNewlines reverses EncodeNewlines.
func DecodeNewlines(text string) string {
	return newlineDecoder.Replace(text)
}
