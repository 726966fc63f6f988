// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package suggest turns a partial model-name fragment into a ranked list of
// likely model identifiers while the user is mid-keystroke.
package suggest

// =============================================================================
// JARO-WINKLER SIMILARITY
// =============================================================================

// jaroWinklerPrefixScale is the standard Winkler prefix bonus weight.
const jaroWinklerPrefixScale = 0.1

// jaroWinklerMaxPrefix caps the common prefix counted by the Winkler bonus.
const jaroWinklerMaxPrefix = 4

// JaroWinkler returns the Jaro-Winkler similarity of two strings in [0, 1].
//
// The inputs are compared as-is; callers normalize case beforehand. Isolated
// here as a pure function so the ranking and truncation logic above it can
// swap metrics without change.
func JaroWinkler(a, b string) float64 {
	j := jaro(a, b)
	if j == 0 {
		return 0
	}

	// Winkler bonus: common prefixes push near-matches higher, which is
	// what makes "4o" rank gpt-4o above a candidate that merely contains
	// "4o" somewhere in the middle.
	prefix := 0
	ra, rb := []rune(a), []rune(b)
	for prefix < len(ra) && prefix < len(rb) && prefix < jaroWinklerMaxPrefix {
		if ra[prefix] != rb[prefix] {
			break
		}
		prefix++
	}

	return j + float64(prefix)*jaroWinklerPrefixScale*(1-j)
}

// jaro returns the Jaro similarity of two strings in [0, 1].
func jaro(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	if la == 0 && lb == 0 {
		return 1
	}
	if la == 0 || lb == 0 {
		return 0
	}

	// Characters match if equal and within half the longer length.
	window := max(la, lb)/2 - 1
	if window < 0 {
		window = 0
	}

	matchedA := make([]bool, la)
	matchedB := make([]bool, lb)

	matches := 0
	for i := 0; i < la; i++ {
		lo := max(0, i-window)
		hi := min(lb-1, i+window)
		for j := lo; j <= hi; j++ {
			if matchedB[j] || ra[i] != rb[j] {
				continue
			}
			matchedA[i] = true
			matchedB[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	// Count transpositions among the matched characters.
	transpositions := 0
	j := 0
	for i := 0; i < la; i++ {
		if !matchedA[i] {
			continue
		}
		for !matchedB[j] {
			j++
		}
		if ra[i] != rb[j] {
			transpositions++
		}
		j++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(la) + m/float64(lb) + (m-t)/m) / 3
}
