package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateRealGitRepo(t *testing.T) {
	SkipIfGitNotAvailable(t)

	repoDir := filepath.Join(t.TempDir(), "real-repo")
	CreateRealGitRepo(t, repoDir)

	gitDir := filepath.Join(repoDir, ".git")
	if _, err := os.Stat(gitDir); os.IsNotExist(err) {
		t.Error(".git directory should exist")
	}

	readmePath := filepath.Join(repoDir, "README.md")
	content, err := os.ReadFile(readmePath)
	if err != nil {
		t.Fatalf("Failed to read README: %v", err)
	}
	if string(content) != "# Test Repository" {
		t.Errorf("README content mismatch, got: %s", string(content))
	}
}

func TestSkipIfGitNotAvailable(t *testing.T) {
	t.Run("git_availability", func(t *testing.T) {
		SkipIfGitNotAvailable(t)
		t.Log("Git is available on this system")
	})
}
