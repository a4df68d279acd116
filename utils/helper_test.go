package utils

import "testing"

func TestUniqueSliceKeepsFirstSeenOrder(t *testing.T) {
	got := UniqueSlice([]string{"c1", "c2", "c1", "c3", "c2"})
	expected := []string{"c1", "c2", "c3"}
	if len(got) != len(expected) {
		t.Fatalf("got %v, expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("got %v, expected %v", got, expected)
		}
	}
}

func TestUniqueSliceEmpty(t *testing.T) {
	if got := UniqueSlice([]int(nil)); len(got) != 0 {
		t.Fatalf("got %v, expected empty", got)
	}
}
