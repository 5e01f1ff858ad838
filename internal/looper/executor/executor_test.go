package executor

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopercore/looper/internal/looper/model"
)

func TestTable_BindsAllFiveInternalKinds(t *testing.T) {
	t.Parallel()
	table := Table(t.TempDir())
	for _, kind := range []model.InternalKind{
		model.InternalChat, model.InternalGlob, model.InternalGrep,
		model.InternalShell, model.InternalWebSearch,
	} {
		_, ok := table[kind]
		assert.True(t, ok, "missing binding for %s", kind)
	}
}

func TestChatExecutor_EchoesMessage(t *testing.T) {
	t.Parallel()
	out, err := chatExecutor{}.Execute(model.NewChatResponse("hello there"))
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
}

func TestWebSearchExecutor_FixedAcknowledgementFormat(t *testing.T) {
	t.Parallel()
	out, err := webSearchExecutor{}.Execute(model.NewWebSearch("go idioms"))
	require.NoError(t, err)
	assert.Equal(t, "web search request accepted for query: 'go idioms' (provider integration pending)", out)
}

func TestGlobExecutor_MatchesFilesUnderWorkspace(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("y"), 0o644))

	out, err := globExecutor{workspace: dir}.Execute(model.NewGlob("*.txt", "."))
	require.NoError(t, err)
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "b.txt")
}

func TestGlobExecutor_NoMatches(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	out, err := globExecutor{workspace: dir}.Execute(model.NewGlob("*.nope", "."))
	require.NoError(t, err)
	assert.Equal(t, "no files matched", out)
}

func TestGrepExecutor_FindsMatchingLinesWithPathAndLineNumber(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("one\ntwo match\nthree"), 0o644))

	out, err := grepExecutor{workspace: dir}.Execute(model.NewGrep("match", "."))
	require.NoError(t, err)
	assert.Contains(t, out, "f.txt:2:two match")
}

func TestGrepExecutor_NoMatches(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("nothing here"), 0o644))

	out, err := grepExecutor{workspace: dir}.Execute(model.NewGrep("absent", "."))
	require.NoError(t, err)
	assert.Equal(t, "no matches found", out)
}

func TestGrepExecutor_InvalidRegex(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, err := grepExecutor{workspace: dir}.Execute(model.NewGrep("(unclosed", "."))
	assert.Error(t, err)
}

func TestShellExecutor_CapturesStdoutAndStatus(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("shell command uses sh -c on non-windows only")
	}
	dir := t.TempDir()
	out, err := shellExecutor{workspace: dir}.Execute(model.NewShell("echo hi"))
	require.NoError(t, err)
	assert.Contains(t, out, "status: 0")
	assert.Contains(t, out, "stdout:\nhi")
}

func TestShellExecutor_NonZeroExitStatus(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("shell command uses sh -c on non-windows only")
	}
	dir := t.TempDir()
	out, err := shellExecutor{workspace: dir}.Execute(model.NewShell("exit 3"))
	require.NoError(t, err)
	assert.Contains(t, out, "status: 3")
}

func TestNormalizeRootedPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/root/workspace", normalizeRootedPath("/root/workspace", ""))
	assert.Equal(t, filepath.Join("/root/workspace", "sub"), normalizeRootedPath("/root/workspace", "sub"))
	assert.Equal(t, "/etc/passwd", normalizeRootedPath("/root/workspace", "/etc/passwd"))
}

func TestIsLikelyText(t *testing.T) {
	t.Parallel()
	assert.True(t, isLikelyText([]byte("plain ascii text")))
	assert.False(t, isLikelyText([]byte{0xff, 0xfe, 0xfd}))
}
