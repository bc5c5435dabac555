package utils

import (
	"math"
	"strconv"
	"strings"
)

// ParseValue infers the type of a raw text cell: an int, then a float, else
// the trimmed string. Spellings such as "NaN" or "inf" stay strings.
func ParseValue(s string) interface{} {
	s = strings.TrimSpace(s)

	// try int
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	// try float
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

// Chunk splits items into consecutive slices of at most size elements.
// A non-positive size yields a single chunk.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]T{items}
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
