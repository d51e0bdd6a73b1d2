package digest

import "testing"

type record struct {
	Name string
	Tags []string
}

func TestOfValue_DeterministicAcrossCalls(t *testing.T) {
	r := record{Name: "etcd", Tags: []string{"a", "b"}}
	d1, err := OfValue(r)
	if err != nil {
		t.Fatalf("OfValue: %v", err)
	}
	d2, err := OfValue(r)
	if err != nil {
		t.Fatalf("OfValue: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("digest not deterministic: %s != %s", d1, d2)
	}
	if len(d1) != 64 {
		t.Fatalf("expected 64 hex chars (sha256), got %d: %q", len(d1), d1)
	}
}

func TestOfValue_DiffersOnContentChange(t *testing.T) {
	a, err := OfValue(record{Name: "etcd", Tags: []string{"a"}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := OfValue(record{Name: "etcd", Tags: []string{"b"}})
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("expected digests to differ when content differs")
	}
}

func TestOfValue_MapKeyOrderDoesNotAffectDigest(t *testing.T) {
	m1 := map[string]int{"a": 1, "b": 2, "c": 3}
	m2 := map[string]int{"c": 3, "b": 2, "a": 1}
	d1, err := OfValue(m1)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := OfValue(m2)
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Fatal("expected map digest to be independent of iteration order")
	}
}
