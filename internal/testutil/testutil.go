// Package testutil provides common testing utilities shared across
// package test suites.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// SkipIfGitNotAvailable skips the test if the git binary can't be found.
func SkipIfGitNotAvailable(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available, skipping test")
	}
}

// CreateRealGitRepo initialises a real git repository with one commit,
// for tests that exercise checks walking actual commit history (e.g.
// the DCO check) or cloning from a local path.
func CreateRealGitRepo(t testing.TB, repoDir string) {
	t.Helper()

	if err := exec.Command("git", "init", repoDir).Run(); err != nil {
		t.Skip("git not available, skipping test")
	}

	_ = exec.Command("git", "-C", repoDir, "config", "user.email", "test@example.com").Run()
	_ = exec.Command("git", "-C", repoDir, "config", "user.name", "Test User").Run()

	testFile := filepath.Join(repoDir, "README.md")
	if err := os.WriteFile(testFile, []byte("# Test Repository"), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	_ = exec.Command("git", "-C", repoDir, "add", "README.md").Run()
	_ = exec.Command("git", "-C", repoDir, "commit", "-m", "initial commit").Run()
}
