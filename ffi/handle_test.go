package ffi

import "testing"

func TestRegistryHandlesAreNeverZeroOrReused(t *testing.T) {
	r := newRegistry()
	h1 := r.register("a")
	h2 := r.register("b")
	if h1 == 0 || h2 == 0 {
		t.Fatalf("handles must never be zero: h1=%d h2=%d", h1, h2)
	}
	if h1 == h2 {
		t.Fatalf("distinct registrations must get distinct handles")
	}
	r.free(h1)
	h3 := r.register("c")
	if h3 == h1 {
		t.Fatalf("freed handle %d must not be reissued, got %d again", h1, h3)
	}
}

func TestRegistryLookupAfterFree(t *testing.T) {
	r := newRegistry()
	h := r.register(42)
	if _, ok := r.lookup(h); !ok {
		t.Fatalf("expected lookup to find freshly registered object")
	}
	if !r.free(h) {
		t.Fatalf("expected free of live handle to report true")
	}
	if _, ok := r.lookup(h); ok {
		t.Fatalf("expected lookup after free to fail")
	}
	if r.free(h) {
		t.Fatalf("expected double free to report false")
	}
}

func TestRegistryLookupZeroHandleAlwaysFails(t *testing.T) {
	r := newRegistry()
	if _, ok := r.lookup(0); ok {
		t.Fatalf("handle 0 must never resolve to an object")
	}
}
