package joinerr

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestCollector_EmptyReturnsNilError(t *testing.T) {
	c := New()
	if err := c.Err(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected Len() 0, got %d", c.Len())
	}
}

func TestCollector_NilErrorsAreIgnored(t *testing.T) {
	c := New()
	c.Add("foundation-a", nil)
	if c.Len() != 0 {
		t.Fatalf("expected nil errors to be ignored, Len()=%d", c.Len())
	}
}

func TestCollector_JoinsAndPrefixesNames(t *testing.T) {
	c := New()
	c.Add("foundation-a", errors.New("boom"))
	c.Add("foundation-b", errors.New("kaboom"))

	err := c.Err()
	if err == nil {
		t.Fatal("expected joined error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "foundation-a: boom") || !strings.Contains(msg, "foundation-b: kaboom") {
		t.Fatalf("joined message missing a constituent error: %q", msg)
	}
}

func TestCollector_UnwrapExposesIndividualErrors(t *testing.T) {
	target := errors.New("specific sentinel")
	c := New()
	c.Add("x", fmt.Errorf("wrapped: %w", target))

	err := c.Err()
	if !errors.Is(err, target) {
		t.Fatal("expected errors.Is to find the wrapped sentinel via Unwrap")
	}
}

func TestCollector_SafeForConcurrentAdd(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(fmt.Sprintf("item-%d", i), errors.New("failed"))
		}()
	}
	wg.Wait()

	if c.Len() != 50 {
		t.Fatalf("expected 50 recorded errors, got %d", c.Len())
	}
}

func TestCollector_NilCollectorDiscardsAdds(t *testing.T) {
	var c *Collector
	c.Add("x", errors.New("boom"))
	if err := c.Err(); err != nil {
		t.Fatalf("expected nil *Collector to discard adds, got %v", err)
	}
}
