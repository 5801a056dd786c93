// Package internal holds small helpers shared between the machine packages.
package internal

import (
	"fmt"
	"iter"
	"maps"
)

// IterSeq2Concat concatenates multiple dual-return iterators into a single iterator sequence.
func IterSeq2Concat[T1 any, T2 any](seqs ...iter.Seq2[T1, T2]) iter.Seq2[T1, T2] {
	return func(yield func(T1, T2) bool) {
		for _, seq := range seqs {
			for val1, val2 := range seq {
				if !yield(val1, val2) {
					return // Stop if the consumer stops
				}
			}
		}
	}
}

// Defines converts a table of numeric symbols into a define sequence,
// formatting each value in hexadecimal.
func Defines[V ~int | ~uint8 | ~uint16 | ~uint32](table map[string]V) iter.Seq2[string, string] {
	defines := make(map[string]string, len(table))
	for key, value := range table {
		defines[key] = fmt.Sprintf("0x%x", value)
	}

	return maps.All(defines)
}
