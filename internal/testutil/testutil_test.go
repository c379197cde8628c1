package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempGitRepo(t *testing.T) {
	dir := TempGitRepo(t)

	assert.DirExists(t, filepath.Join(dir, ".git"))
	assert.FileExists(t, filepath.Join(dir, ".git", "config"))
	assert.True(t, IsClean(t, dir))
}

func TestCreateTestFile(t *testing.T) {
	dir := t.TempDir()
	content := "package main\n\nfunc main() {}\n"

	filePath := CreateTestFile(t, dir, filepath.Join("cmd", "main.go"), content)

	data, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestGitCommit(t *testing.T) {
	dir := TempGitRepo(t)
	CreateTestFile(t, dir, "test.txt", "test content")
	assert.False(t, IsClean(t, dir))

	hash := GitCommit(t, dir, "Test commit")

	assert.GreaterOrEqual(t, len(hash), 7)
	assert.Equal(t, "Test commit", LastCommitMessage(t, dir))
	assert.True(t, IsClean(t, dir))
}

func TestWriteConfig(t *testing.T) {
	dir := t.TempDir()
	path := WriteConfig(t, dir, "profile: basic\n")

	assert.Equal(t, filepath.Join(dir, ".claude", "cchook.yaml"), path)
	assert.FileExists(t, path)
}

func TestHookInputAndReadJSONLines(t *testing.T) {
	input := HookInput(t, map[string]interface{}{"tool_name": "Bash"})
	assert.JSONEq(t, `{"tool_name":"Bash"}`, input)

	path := CreateTestFile(t, t.TempDir(), "usage.log", input+"\n\n"+`{"tool_name":"Read"}`+"\n")
	records := ReadJSONLines(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, "Read", records[1]["tool_name"])
}

func TestEnv(t *testing.T) {
	getenv := Env(map[string]string{"A": "1"})
	assert.Equal(t, "1", getenv("A"))
	assert.Empty(t, getenv("B"))
}
