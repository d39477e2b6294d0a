package differ

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestAddLocalFileMissingWithoutFlagPassesThrough(t *testing.T) {
	c := NewComparison(Options{})
	path, err := c.addLocalFile("/no/such/file-xyz", 1)
	require.NoError(t, err)
	assert.Equal(t, "/no/such/file-xyz", path)
	assert.Empty(t, c.rules)
}

func TestAddLocalFileMissingWithNewAsEmptySubstitutesDevNull(t *testing.T) {
	c := NewComparison(Options{NewAsEmpty1: true, Mode: ModeUnified})
	path, err := c.addLocalFile("/no/such/file-xyz", 1)
	require.NoError(t, err)
	assert.Equal(t, "/dev/null", path)
	require.Len(t, c.rules, 1)
}

func TestAddLocalFileDirectoryRejected(t *testing.T) {
	dir := t.TempDir()
	c := NewComparison(Options{})
	_, err := c.addLocalFile(dir, 1)
	var dirErr *IsDirectoryError
	require.ErrorAs(t, err, &dirErr)
}

func TestAddLocalFileOrdinaryPathUnchanged(t *testing.T) {
	dir := t.TempDir()
	f := writeTemp(t, dir, "a.txt", "hello\n")
	c := NewComparison(Options{})
	path, err := c.addLocalFile(f, 1)
	require.NoError(t, err)
	assert.Equal(t, f, path)
	assert.Empty(t, c.rules)
}

func TestCompareFilesIdenticalLocalFilesExitZero(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.txt", "same\ncontent\n")
	b := writeTemp(t, dir, "b.txt", "same\ncontent\n")

	stdout := captureStdout(t, func() {
		c := NewComparison(Options{Mode: ModeNormal})
		rc, err := c.CompareFiles(a, b)
		require.NoError(t, err)
		assert.Equal(t, 0, rc)
	})
	assert.Empty(t, stdout)
}

func TestCompareFilesDifferingLocalFilesExitOne(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.txt", "one\n")
	b := writeTemp(t, dir, "b.txt", "two\n")

	stdout := captureStdout(t, func() {
		c := NewComparison(Options{Mode: ModeNormal})
		rc, err := c.CompareFiles(a, b)
		require.NoError(t, err)
		assert.Equal(t, 1, rc)
	})
	assert.Contains(t, stdout, "one")
	assert.Contains(t, stdout, "two")
}

func TestCompareFilesUnifiedModeRewritesMissingOperandHeader(t *testing.T) {
	dir := t.TempDir()
	b := writeTemp(t, dir, "b.txt", "line\n")
	missing := filepath.Join(dir, "gone.txt")

	stdout := captureStdout(t, func() {
		c := NewComparison(Options{Mode: ModeUnified, NewAsEmpty1: true})
		rc, err := c.CompareFiles(missing, b)
		require.NoError(t, err)
		assert.Equal(t, 1, rc)
	})
	assert.Contains(t, stdout, "--- "+missing)
	assert.NotContains(t, stdout, "/dev/null")
}

func TestCompareFilesIsDirectoryErrorOnDirectory(t *testing.T) {
	dir := t.TempDir()
	f := writeTemp(t, dir, "a.txt", "x\n")
	c := NewComparison(Options{Mode: ModeNormal})
	rc, err := c.CompareFiles(dir, f)
	assert.Equal(t, 2, rc)
	var dirErr *IsDirectoryError
	require.ErrorAs(t, err, &dirErr)
}

// captureStdout redirects os.Stdout for the duration of fn and returns
// everything written to it. Comparison.proxyOutput writes straight to
// os.Stdout, matching the production CLI's own stream, so tests observe
// it this way rather than threading a writer through CompareFiles.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	saved := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = saved }()

	done := make(chan []byte, 1)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	fn()
	require.NoError(t, w.Close())
	return string(<-done)
}
