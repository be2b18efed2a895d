package article

import "strings"

// SplitWords cuts text into windows of at most size whitespace-separated
// words, each window starting size-overlap words after the previous one.
// Whitespace-only input yields nil; text of at most size words yields one
// window. overlap is clamped to size-1.
func SplitWords(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}
	if overlap >= size {
		overlap = size - 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if len(words) <= size {
		return []string{strings.Join(words, " ")}
	}

	stride := size - overlap
	var windows []string
	for start := 0; ; start += stride {
		end := min(start+size, len(words))
		windows = append(windows, strings.Join(words[start:end], " "))
		if end == len(words) {
			return windows
		}
	}
}
