package github

import (
	"context"
	"fmt"
)

// Pool is an unmanaged, FIFO credential pool of GitHub tokens. Capacity
// is fixed at construction and must be at least 1.
type Pool struct {
	tokens chan string
}

// NewPool returns a Pool seeded with tokens. It is an error to pass an
// empty slice.
func NewPool(tokens []string) (*Pool, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("github credential pool requires at least one token")
	}
	ch := make(chan string, len(tokens))
	for _, t := range tokens {
		ch <- t
	}
	return &Pool{tokens: ch}, nil
}

// Acquire blocks until a credential is available or ctx is done. The
// returned release func must be called exactly once, on every exit
// path (success, error, or timeout), to return the credential.
func (p *Pool) Acquire(ctx context.Context) (token string, release func(), err error) {
	select {
	case tok := <-p.tokens:
		return tok, func() { p.tokens <- tok }, nil
	case <-ctx.Done():
		return "", func() {}, ctx.Err()
	}
}

// Len reports how many credentials are currently idle in the pool.
func (p *Pool) Len() int { return len(p.tokens) }
