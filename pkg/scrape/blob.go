package scrape

import "strings"

// Line is one labelled hint in a Blob.
type Line struct {
	Label string
	Value string
}

// Blob is the redundant, multi-labelled text handed to field extraction.
// Several lines may carry conflicting hints for the same field; consumers
// decide which to trust.
type Blob struct {
	Lines []Line
}

func (b *Blob) add(label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	b.Lines = append(b.Lines, Line{Label: label, Value: value})
}

// Get returns the first value with the given label.
func (b Blob) Get(label string) (string, bool) {
	for _, l := range b.Lines {
		if l.Label == label {
			return l.Value, true
		}
	}
	return "", false
}

// Empty reports whether nothing was extracted.
func (b Blob) Empty() bool {
	return len(b.Lines) == 0
}

// String renders the blob as "Label: value" lines.
func (b Blob) String() string {
	var sb strings.Builder
	for _, l := range b.Lines {
		sb.WriteString(l.Label)
		sb.WriteString(": ")
		sb.WriteString(l.Value)
		sb.WriteString("\n")
	}
	return sb.String()
}
