package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cncf/clomonitor-go/internal/platform/joinerr"
)

// Test TransportError creation and methods
func TestTransportError_Creation(t *testing.T) {
	underlyingErr := errors.New("connection refused")

	transportErr := &TransportError{
		Op:     "git clone",
		Target: "https://github.com/owner/repo",
		Err:    underlyingErr,
	}

	if transportErr.Op != "git clone" {
		t.Errorf("Expected Op to be 'git clone', got %s", transportErr.Op)
	}
	if transportErr.Target != "https://github.com/owner/repo" {
		t.Errorf("Expected Target to be the repo URL, got %s", transportErr.Target)
	}
	if transportErr.Err != underlyingErr {
		t.Errorf("Expected Err to be the underlying error, got %v", transportErr.Err)
	}
}

func TestTransportError_Error_WithTarget(t *testing.T) {
	underlyingErr := errors.New("connection refused")
	transportErr := &TransportError{
		Op:     "git clone",
		Target: "https://github.com/owner/repo",
		Err:    underlyingErr,
	}

	expected := "git clone https://github.com/owner/repo: connection refused"
	if transportErr.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, transportErr.Error())
	}
}

func TestTransportError_Error_WithoutTarget(t *testing.T) {
	underlyingErr := errors.New("dns lookup failed")
	transportErr := &TransportError{
		Op:  "fetch catalogue",
		Err: underlyingErr,
	}

	expected := "fetch catalogue: dns lookup failed"
	if transportErr.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, transportErr.Error())
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	underlyingErr := errors.New("original error")
	transportErr := &TransportError{Op: "git clone", Err: underlyingErr}

	if transportErr.Unwrap() != underlyingErr {
		t.Errorf("Expected Unwrap() to return the underlying error")
	}
	if !errors.Is(transportErr, underlyingErr) {
		t.Error("Expected errors.Is to find the underlying error")
	}
}

func TestTransportError_Kind(t *testing.T) {
	e := &TransportError{Op: "git clone", Err: errors.New("x")}
	if e.Kind() != KindTransport {
		t.Errorf("Expected Kind() to be %q, got %q", KindTransport, e.Kind())
	}
}

func TestNewGitError_PrefixesOperation(t *testing.T) {
	underlyingErr := errors.New("repository not found")
	e := NewGitError("ls-remote", "https://github.com/owner/repo", underlyingErr)

	if e.Op != "git ls-remote" {
		t.Errorf("Expected Op to be 'git ls-remote', got %q", e.Op)
	}
	if e.Target != "https://github.com/owner/repo" {
		t.Errorf("Expected Target to be the repo URL, got %q", e.Target)
	}
	if e.Kind() != KindTransport {
		t.Errorf("Expected NewGitError to produce a Transport-kind error")
	}
}

// Test ParseError creation and methods
func TestParseError_Creation(t *testing.T) {
	underlyingErr := errors.New("yaml: line 3: mapping values are not allowed")

	parseErr := &ParseError{
		Input: ".clomonitor.yml",
		Err:   underlyingErr,
	}

	if parseErr.Input != ".clomonitor.yml" {
		t.Errorf("Expected Input to be '.clomonitor.yml', got %s", parseErr.Input)
	}
	if parseErr.Err != underlyingErr {
		t.Errorf("Expected Err to be the underlying error, got %v", parseErr.Err)
	}
}

func TestParseError_Error_WithInput(t *testing.T) {
	underlyingErr := errors.New("invalid format")
	parseErr := &ParseError{
		Input: ".clomonitor.yml",
		Err:   underlyingErr,
	}

	expected := "parse .clomonitor.yml: invalid format"
	if parseErr.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, parseErr.Error())
	}
}

func TestParseError_Error_WithoutInput(t *testing.T) {
	underlyingErr := errors.New("invalid format")
	parseErr := &ParseError{Err: underlyingErr}

	expected := "parse: invalid format"
	if parseErr.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, parseErr.Error())
	}
}

func TestParseError_Unwrap(t *testing.T) {
	underlyingErr := errors.New("original error")
	parseErr := &ParseError{Input: "catalogue", Err: underlyingErr}

	if parseErr.Unwrap() != underlyingErr {
		t.Errorf("Expected Unwrap() to return the underlying error")
	}
}

func TestParseError_Kind(t *testing.T) {
	e := &ParseError{Input: "catalogue", Err: errors.New("x")}
	if e.Kind() != KindParse {
		t.Errorf("Expected Kind() to be %q, got %q", KindParse, e.Kind())
	}
}

// Test FatalError creation and methods
func TestFatalError_Creation(t *testing.T) {
	underlyingErr := errors.New("file not found")

	fatalErr := &FatalError{
		Op:   "read",
		Path: "/etc/clomonitor/clomonitor.yaml",
		Err:  underlyingErr,
	}

	if fatalErr.Op != "read" {
		t.Errorf("Expected Op to be 'read', got %s", fatalErr.Op)
	}
	if fatalErr.Path != "/etc/clomonitor/clomonitor.yaml" {
		t.Errorf("Expected Path to be the config path, got %s", fatalErr.Path)
	}
	if fatalErr.Err != underlyingErr {
		t.Errorf("Expected Err to be the underlying error, got %v", fatalErr.Err)
	}
}

func TestFatalError_Error_WithPath(t *testing.T) {
	underlyingErr := errors.New("file not found")
	fatalErr := &FatalError{
		Op:   "read",
		Path: "/path/to/config.yaml",
		Err:  underlyingErr,
	}

	expected := "config read /path/to/config.yaml: file not found"
	if fatalErr.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, fatalErr.Error())
	}
}

func TestFatalError_Error_WithoutPath(t *testing.T) {
	underlyingErr := errors.New("invalid format")
	fatalErr := &FatalError{
		Op:  "parse",
		Err: underlyingErr,
	}

	expected := "config parse: invalid format"
	if fatalErr.Error() != expected {
		t.Errorf("Expected error message '%s', got '%s'", expected, fatalErr.Error())
	}
}

func TestFatalError_Unwrap(t *testing.T) {
	underlyingErr := errors.New("original error")
	fatalErr := &FatalError{Op: "read", Err: underlyingErr}

	if fatalErr.Unwrap() != underlyingErr {
		t.Errorf("Expected Unwrap() to return the underlying error")
	}
}

func TestFatalError_Kind(t *testing.T) {
	e := &FatalError{Op: "read", Err: errors.New("x")}
	if e.Kind() != KindFatal {
		t.Errorf("Expected Kind() to be %q, got %q", KindFatal, e.Kind())
	}
}

// Is* classification helpers

func TestIsTransportError(t *testing.T) {
	transportErr := NewTransportError("fetch", "https://example.com", errors.New("x"))
	parseErr := NewParseError("catalogue", errors.New("x"))
	regularErr := errors.New("a plain error")

	if !IsTransportError(transportErr) {
		t.Error("Expected IsTransportError to return true for TransportError")
	}
	if IsTransportError(parseErr) {
		t.Error("Expected IsTransportError to return false for ParseError")
	}
	if IsTransportError(regularErr) {
		t.Error("Expected IsTransportError to return false for a regular error")
	}
}

func TestIsParseError(t *testing.T) {
	parseErr := NewParseError("catalogue", errors.New("x"))
	transportErr := NewTransportError("fetch", "https://example.com", errors.New("x"))
	regularErr := errors.New("a plain error")

	if !IsParseError(parseErr) {
		t.Error("Expected IsParseError to return true for ParseError")
	}
	if IsParseError(transportErr) {
		t.Error("Expected IsParseError to return false for TransportError")
	}
	if IsParseError(regularErr) {
		t.Error("Expected IsParseError to return false for a regular error")
	}
}

func TestIsFatalError(t *testing.T) {
	fatalErr := NewFatalError("read", "/path", errors.New("x"))
	parseErr := NewParseError("catalogue", errors.New("x"))
	regularErr := errors.New("a plain error")

	if !IsFatalError(fatalErr) {
		t.Error("Expected IsFatalError to return true for FatalError")
	}
	if IsFatalError(parseErr) {
		t.Error("Expected IsFatalError to return false for ParseError")
	}
	if IsFatalError(regularErr) {
		t.Error("Expected IsFatalError to return false for a regular error")
	}
}

func TestIsTimeout(t *testing.T) {
	wrapped := fmt.Errorf("git ls-remote: %w", context.DeadlineExceeded)
	if !IsTimeout(wrapped) {
		t.Error("Expected IsTimeout to find a wrapped context.DeadlineExceeded")
	}
	if IsTimeout(errors.New("some other failure")) {
		t.Error("Expected IsTimeout to return false for an unrelated error")
	}
}

// Classification must still work once an error has been wrapped further
// (e.g. by a call site's fmt.Errorf) or joined by joinerr.Collector,
// since both errors.As and errors.Is traverse Unwrap()/Unwrap() []error.

func TestIsTransportError_ThroughAdditionalWrapping(t *testing.T) {
	transportErr := NewTransportError("fetch catalogue", "https://example.com/data.yaml", errors.New("refused"))
	wrapped := fmt.Errorf("processing foundation cncf: %w", transportErr)

	if !IsTransportError(wrapped) {
		t.Error("Expected IsTransportError to see through an additional fmt.Errorf wrap")
	}
}

func TestKindOf_ThroughJoinerrCollector(t *testing.T) {
	c := joinerr.New()
	c.Add("foundation-a", NewTransportError("fetch catalogue", "https://a.example.com", errors.New("refused")))
	c.Add("foundation-b", NewParseError("catalogue", errors.New("bad yaml")))

	joined := c.Err()
	if joined == nil {
		t.Fatal("expected a non-nil joined error")
	}

	if kind, ok := KindOf(joined); !ok || kind != KindTransport {
		t.Errorf("expected KindOf(joined) = %q, got %q (ok=%v)", KindTransport, kind, ok)
	}

	var transportErr *TransportError
	if !errors.As(joined, &transportErr) {
		t.Error("expected errors.As to find the TransportError inside the joined error")
	}
	var parseErr *ParseError
	if !errors.As(joined, &parseErr) {
		t.Error("expected errors.As to find the ParseError inside the joined error")
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"transport", NewGitError("clone", "https://example.com", errors.New("x")), KindTransport},
		{"parse", NewParseError("catalogue", errors.New("x")), KindParse},
		{"fatal", NewFatalError("read", "/path", errors.New("x")), KindFatal},
		{"timeout", fmt.Errorf("tracking: %w", context.DeadlineExceeded), KindTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := KindOf(tc.err)
			if !ok {
				t.Fatalf("expected KindOf to classify %v", tc.err)
			}
			if got != tc.want {
				t.Errorf("expected kind %q, got %q", tc.want, got)
			}
		})
	}

	if _, ok := KindOf(errors.New("unclassified")); ok {
		t.Error("expected an unrelated error to not match any kind")
	}
	if _, ok := KindOf(nil); ok {
		t.Error("expected nil to not match any kind")
	}
}
