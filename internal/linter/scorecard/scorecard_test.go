package scorecard

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStubBinary writes a shell script masquerading as the scorecard
// binary, so the subprocess plumbing is exercised without the real tool.
func writeStubBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub binary is a shell script")
	}
	path := filepath.Join(t.TempDir(), "scorecard-stub.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0700))
	return path
}

func TestRun_ParsesChecksAndSetsToken(t *testing.T) {
	bin := writeStubBinary(t, `
if [ "$GITHUB_TOKEN" != "secret-token" ]; then
  echo "missing token" >&2
  exit 1
fi
cat <<'JSON'
{"checks":[
  {"name":"Maintained","score":8.5,"reason":"repo is maintained","documentation":{"url":"https://example.com/maintained"}},
  {"name":"Signed-Releases","score":0.5,"reason":"no signed releases","documentation":{"url":"https://example.com/signed"}}
]}
JSON
`)

	result, err := Run(context.Background(), bin, "https://github.com/owner/repo", "secret-token")
	require.NoError(t, err)
	require.NotNil(t, result)

	maintained, ok := result.Checks["Maintained"]
	require.True(t, ok)
	assert.Equal(t, 8.5, maintained.Score)
	assert.Equal(t, "repo is maintained", maintained.Reason)
	assert.Equal(t, "https://example.com/maintained", maintained.DocumentationURL)

	signed, ok := result.Checks["Signed-Releases"]
	require.True(t, ok)
	assert.Equal(t, 0.5, signed.Score)
}

func TestRun_NonZeroExitReturnsStderr(t *testing.T) {
	bin := writeStubBinary(t, `echo "boom" >&2; exit 1`)

	_, err := Run(context.Background(), bin, "https://github.com/owner/repo", "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRun_InheritsEnvironment(t *testing.T) {
	// cmd.Env must start from os.Environ(), not nil, or the subprocess
	// loses PATH/HOME and scorecard's own git invocations break.
	t.Setenv("SCORECARD_TEST_MARKER", "present")
	bin := writeStubBinary(t, `
if [ "$SCORECARD_TEST_MARKER" != "present" ]; then
  echo "marker missing" >&2
  exit 1
fi
echo '{"checks":[]}'
`)

	_, err := Run(context.Background(), bin, "https://github.com/owner/repo", "tok")
	require.NoError(t, err)
}
