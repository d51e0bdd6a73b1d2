// Package joinerr aggregates per-item errors from a bounded fan-out
// (Registrar over foundations, Tracker over repositories) into a single
// joined error. The joined error implements Unwrap() []error so callers
// can still classify individual failures with errors.As against the
// internal/errors taxonomy (*errors.TransportError, *errors.ParseError,
// ...), without pulling in a multierror dependency for what is a small,
// fixed concatenation.
package joinerr

import (
	"fmt"
	"strings"
	"sync"
)

// Collector accumulates named errors from concurrent workers and joins
// them into a single error once the fan-out completes. A nil *Collector
// is valid and discards everything added to it.
type Collector struct {
	mu     sync.Mutex
	errs   []error
}

// New returns an empty Collector.
func New() *Collector { return &Collector{} }

// Add records err under name if err is non-nil. Safe for concurrent use.
func (c *Collector) Add(name string, err error) {
	if c == nil || err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, fmt.Errorf("%s: %w", name, err))
}

// Err returns a single joined error if anything was added, else nil.
func (c *Collector) Err() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errs) == 0 {
		return nil
	}
	msgs := make([]string, len(c.errs))
	for i, e := range c.errs {
		msgs[i] = e.Error()
	}
	return &joined{errs: append([]error(nil), c.errs...), msg: strings.Join(msgs, "; ")}
}

// Len reports how many errors have been recorded so far.
func (c *Collector) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

type joined struct {
	errs []error
	msg  string
}

func (j *joined) Error() string { return j.msg }

// Unwrap exposes the individual errors for errors.Is/As traversal.
func (j *joined) Unwrap() []error { return j.errs }
