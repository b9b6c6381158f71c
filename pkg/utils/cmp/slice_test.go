package cmp_test

import (
	"testing"

	"github.com/granary-project/granary/pkg/utils/cmp"
)

func TestSliceEq(t *testing.T) {
	t.Run("it detects two slices are equal", func(t *testing.T) {
		a := []string{"a", "b", "c"}
		b := []string{"a", "b", "c"}
		if !cmp.SliceEq(a, b) {
			t.Error("two slices are not equal, unexpectedly.")
		}
		if !cmp.SliceEq(b, a) {
			t.Error("two slices are not equal, unexpectedly.")
		}
	})
	t.Run("it detects two slices with different content are not equal", func(t *testing.T) {
		a := []string{"a", "b", "c"}
		b := []string{"a", "b", "d"}
		if cmp.SliceEq(a, b) {
			t.Error("two slices are equal, unexpectedly.")
		}
	})
	t.Run("it detects two slices with different length are not equal", func(t *testing.T) {
		a := []string{"a", "b", "c"}
		b := []string{"a", "b"}
		if cmp.SliceEq(a, b) {
			t.Error("two slices are equal, unexpectedly.")
		}
		if cmp.SliceEq(b, a) {
			t.Error("two slices are equal, unexpectedly.")
		}
	})
}

func TestSliceEqWith(t *testing.T) {
	equalInLen := func(a string, b int) bool { return len(a) == b }

	t.Run("it compares two slices in some comparing rule", func(t *testing.T) {
		a := []string{"foobar", "", "baz"}
		b := []int{6, 0, 3}
		if !cmp.SliceEqWith(a, b, equalInLen) {
			t.Error("two slices are not equal, unexpectedly.")
		}
	})
	t.Run("it detects two slices with different content are not equal", func(t *testing.T) {
		a := []string{"foobar", "", "baz"}
		b := []int{6, 1, 3}
		if cmp.SliceEqWith(a, b, equalInLen) {
			t.Error("two slices are equal, unexpectedly.")
		}
	})
}

func TestSliceContains(t *testing.T) {
	t.Run("it detects a pattern in haystack", func(t *testing.T) {
		haystack := []string{"foo", "bar", "baz", "quux", "whoop"}

		for l := range haystack {
			length := l + 1
			for nth := range haystack[:len(haystack)-l] {
				needle := haystack[nth : nth+length]
				if !cmp.SliceContains(haystack, needle) {
					t.Errorf("needle %v is not found in haystack %v", needle, haystack)
				}
			}
		}
	})
	t.Run("it does not detect a pattern not in haystack", func(t *testing.T) {
		haystack := []string{"foo", "bar", "baz", "quux", "whoop"}
		if cmp.SliceContains(haystack, []string{"bar", "quux"}) {
			t.Error("gappy needle is found, unexpectedly.")
		}
		if cmp.SliceContains(haystack, []string{"missing"}) {
			t.Error("unknown needle is found, unexpectedly.")
		}
	})
}

func TestSliceContentEq(t *testing.T) {
	t.Run("it ignores ordering", func(t *testing.T) {
		a := []int{3, 1, 2}
		b := []int{1, 2, 3}
		if !cmp.SliceContentEq(a, b) {
			t.Error("two slices do not have same content, unexpectedly.")
		}
	})
	t.Run("it matches elements one-to-one", func(t *testing.T) {
		a := []int{1, 1, 2}
		b := []int{1, 2, 2}
		if cmp.SliceContentEq(a, b) {
			t.Error("two slices have same content, unexpectedly.")
		}
	})
}
