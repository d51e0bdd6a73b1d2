// Package errors provides the clomonitor-go error taxonomy:
// typed, wrapped errors for the kinds a caller actually needs to tell
// apart — Transport, Parse and Fatal. DB-transaction failures are left
// as the store's own wrapped *sql errors (they only bubble up, get
// logged, and retry next cycle; no call site branches on them), and a
// timeout is detected via context.DeadlineExceeded rather
// than re-boxed into a type of its own; IsTimeout below classifies it
// without inventing a struct nobody would construct.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error for callers that want to log or count
// failures by category without caring about the concrete type; KindOf
// also classifies the joined error a joinerr.Collector returns.
type Kind string

const (
	KindTransport     Kind = "transport"
	KindParse         Kind = "parse"
	KindDBTransaction Kind = "db_transaction"
	KindTimeout       Kind = "timeout"
	KindFatal         Kind = "fatal"
)

// TransportError wraps a failed network call: an HTTP/GraphQL request or
// a git-over-HTTPS operation (ls-remote, clone). It aborts only the item it occurred for — one repository's tracking pass, or one
// foundation's reconciliation — never the whole run.
type TransportError struct {
	Op     string // e.g. "git ls-remote", "git clone", "fetch catalogue"
	Target string // URL the call was against
	Err    error
}

func (e *TransportError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Kind() Kind { return KindTransport }

// NewTransportError builds a TransportError for the given operation and
// target.
func NewTransportError(op, target string, err error) *TransportError {
	return &TransportError{Op: op, Target: target, Err: err}
}

// NewGitError is NewTransportError specialised for the Tracker's two git
// operations.
func NewGitError(op, repo string, err error) *TransportError {
	return NewTransportError("git "+op, repo, err)
}

// ParseError wraps a failure to deserialise or validate an externally
// supplied document: a foundation's YAML catalogue record, a
// `.clomonitor.yml`, or a `SECURITY-INSIGHTS.yml`. It aborts only the input it occurred for — one catalogue entry, or (for
// `.clomonitor.yml`) the whole repository pass, since its exemption
// semantics can no longer be trusted.
type ParseError struct {
	Input string // what failed to parse, e.g. a file name or record identity
	Err   error
}

func (e *ParseError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("parse %s: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Kind() Kind { return KindParse }

// NewParseError builds a ParseError for the given input identity.
func NewParseError(input string, err error) *ParseError {
	return &ParseError{Input: input, Err: err}
}

// FatalError wraps a process-start failure — configuration loading, a
// missing required environment variable — that must exit the process
// non-zero before any loop is entered.
type FatalError struct {
	Op   string // operation that failed, e.g. "read"
	Path string // file path involved, if any
	Err  error
}

func (e *FatalError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func (e *FatalError) Kind() Kind { return KindFatal }

// NewFatalError builds a FatalError for a process-start failure.
func NewFatalError(op, path string, err error) *FatalError {
	return &FatalError{Op: op, Path: path, Err: err}
}

// IsTransportError reports whether err is, or wraps (including through a
// joinerr.Collector's joined error), a *TransportError.
func IsTransportError(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}

// IsParseError reports whether err is, or wraps, a *ParseError.
func IsParseError(err error) bool {
	var e *ParseError
	return errors.As(err, &e)
}

// IsFatalError reports whether err is, or wraps, a *FatalError.
func IsFatalError(err error) bool {
	var e *FatalError
	return errors.As(err, &e)
}

// IsTimeout reports whether err is, or wraps, a context deadline
// expiring. Unlike the other kinds this one
// is never constructed here: it is whatever context.DeadlineExceeded
// looks like once wrapped by the operation that observed it.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// KindOf classifies err by kind, walking through wrapped
// and joined errors (errors.As/Is both traverse a joinerr.Collector's
// joined error, since it implements Unwrap() []error). The second return
// value is false if err doesn't match any known kind.
func KindOf(err error) (Kind, bool) {
	switch {
	case err == nil:
		return "", false
	case IsTimeout(err):
		return KindTimeout, true
	case IsTransportError(err):
		return KindTransport, true
	case IsParseError(err):
		return KindParse, true
	case IsFatalError(err):
		return KindFatal, true
	default:
		return "", false
	}
}
