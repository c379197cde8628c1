// Package testutil はテスト用の共通ヘルパーを提供する
package testutil

import (
	"bufio"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TempGitRepo はテスト用のgitリポジトリを作成する
// gitが無い環境ではテストをスキップする
func TempGitRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	dir := t.TempDir()
	for _, args := range [][]string{
		{"init"},
		{"config", "user.name", "Test User"},
		{"config", "user.email", "test@example.com"},
		{"config", "commit.gpgsign", "false"},
	} {
		runGit(t, dir, args...)
	}
	return dir
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return string(out)
}

// CreateTestFile はディレクトリにファイルを作成し、そのパスを返す
func CreateTestFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	filePath := filepath.Join(dir, filename)
	require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
	require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	return filePath
}

// GitCommit はすべての変更をコミットし、短いハッシュを返す
func GitCommit(t *testing.T, dir, message string) string {
	t.Helper()
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", message)
	return strings.TrimSpace(runGit(t, dir, "rev-parse", "--short", "HEAD"))
}

// LastCommitMessage は最新コミットのメッセージを返す
func LastCommitMessage(t *testing.T, dir string) string {
	t.Helper()
	return strings.TrimSpace(runGit(t, dir, "log", "-1", "--format=%B"))
}

// IsClean は作業ツリーに未コミットの変更が無いかを返す
func IsClean(t *testing.T, dir string) bool {
	t.Helper()
	return strings.TrimSpace(runGit(t, dir, "status", "--porcelain")) == ""
}

// WriteConfig はプロジェクトの .claude/cchook.yaml を書き込み、そのパスを返す
func WriteConfig(t *testing.T, projectDir, content string) string {
	t.Helper()
	return CreateTestFile(t, projectDir, filepath.Join(".claude", "cchook.yaml"), content)
}

// Env はマップから環境変数の取得関数を作る
func Env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

// HookInput はフックに渡すJSONを作る
func HookInput(t *testing.T, payload map[string]interface{}) string {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(data)
}

// ReadJSONLines はJSON Lines形式のファイルを読み込む
func ReadJSONLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var records []map[string]interface{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		var record map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record), "line: %s", scanner.Text())
		records = append(records, record)
	}
	require.NoError(t, scanner.Err())
	return records
}
