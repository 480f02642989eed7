package slab

import "testing"

func TestObjectPoolSmallestFitDispatch(t *testing.T) {
	r := NewRegistry()
	cases := []struct {
		size int
		want *Pool
	}{
		{1, r.Object32},
		{32, r.Object32},
		{33, r.Object64},
		{128, r.Object128},
		{513, r.Object1024},
		{1024, r.Object1024},
	}
	for _, c := range cases {
		got, ok := r.ObjectPool(c.size)
		if !ok {
			t.Fatalf("ObjectPool(%d) not ok, want a pool", c.size)
		}
		if got != c.want {
			t.Fatalf("ObjectPool(%d) = %p, want %p", c.size, got, c.want)
		}
	}
}

func TestObjectPoolOverflowAboveLargestClass(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.ObjectPool(1025); ok {
		t.Fatalf("ObjectPool(1025) reported ok, want overflow (false)")
	}
}
