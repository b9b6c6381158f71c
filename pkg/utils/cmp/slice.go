package cmp

func SliceEq[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for nth, va := range a {
		if va != b[nth] {
			return false
		}
	}
	return true
}

func SliceEqWith[T any, U any](a []T, b []U, pred func(a T, b U) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for nth := range a {
		if !pred(a[nth], b[nth]) {
			return false
		}
	}
	return true
}

// check haystack contains needle as a continuous subsequence.
func SliceContains[T comparable](haystack []T, needle []T) bool {
	if len(haystack) < len(needle) {
		return false
	}
	for start := 0; start+len(needle) <= len(haystack); start++ {
		if SliceEq(haystack[start:start+len(needle)], needle) {
			return true
		}
	}
	return false
}

// Check A and B have the same content, ignoring ordering.
//
// Elements are matched one-to-one: {1, 1, 2} and {1, 2, 2} are different.
func SliceContentEq[T comparable](a, b []T) bool {
	return SliceContentEqWith(a, b, func(a, b T) bool { return a == b })
}

// SliceContentEq in some equivalency given by equiv.
func SliceContentEqWith[S, T any](a []S, b []T, equiv func(S, T) bool) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
aloop:
	for _, va := range a {
		for nth, vb := range b {
			if used[nth] || !equiv(va, vb) {
				continue
			}
			used[nth] = true
			continue aloop
		}
		return false
	}
	return true
}
