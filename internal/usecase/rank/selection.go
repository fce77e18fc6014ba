package rank

import "slices"

// selectTop rearranges s so that its first k elements are the k elements
// that precede all others under less (unordered among themselves).
// Average O(len(s)); 0 < k < len(s).
func selectTop[E any](s []E, k int, less func(a, b E) bool) {
	lo, hi := 0, len(s)-1
	target := k - 1
	for lo < hi {
		p := partition(s, lo, hi, less)
		switch {
		case p == target:
			return
		case p < target:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
}

// partition places a median-of-three pivot at its final position within
// s[lo..hi] and returns that position.
func partition[E any](s []E, lo, hi int, less func(a, b E) bool) int {
	mid := lo + (hi-lo)/2
	if less(s[mid], s[lo]) {
		s[mid], s[lo] = s[lo], s[mid]
	}
	if less(s[hi], s[lo]) {
		s[hi], s[lo] = s[lo], s[hi]
	}
	if less(s[hi], s[mid]) {
		s[hi], s[mid] = s[mid], s[hi]
	}
	s[mid], s[hi] = s[hi], s[mid]
	pivot := s[hi]

	i := lo
	for j := lo; j < hi; j++ {
		if less(s[j], pivot) {
			s[i], s[j] = s[j], s[i]
			i++
		}
	}
	s[i], s[hi] = s[hi], s[i]
	return i
}

// topK returns the k best elements of s in order. s is reordered.
func topK[E any](s []E, k int, less func(a, b E) bool) []E {
	if k <= 0 {
		return s[:0]
	}
	if k < len(s) {
		selectTop(s, k, less)
		s = s[:k]
	}
	slices.SortFunc(s, func(a, b E) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		}
		return 0
	})
	return s
}
