package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cherrors "github.com/y-hirakaw/cchook/internal/errors"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad_Defaults(t *testing.T) {
	project := t.TempDir()

	cfg, err := Load(LoadOptions{
		ProjectDir: project,
		HomeDir:    t.TempDir(),
		Getenv:     envFrom(nil),
	})
	require.NoError(t, err)

	assert.Equal(t, ProfileEnhanced, cfg.Profile)
	assert.Equal(t, filepath.Join(project, ".claude", "logs"), cfg.LogDir)
	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, "Glass", cfg.Notifications.DefaultSound)
	assert.Equal(t, DefaultCheckpointTriggers, cfg.Checkpoint.Triggers)
	assert.Empty(t, cfg.Checkpoint.Trailers)
	assert.Equal(t, 50, cfg.History.MaxSessions)
	assert.Equal(t, BackendJSONL, cfg.Storage.Backend)
	assert.Empty(t, cfg.Path)
}

func TestLoad_SearchOrder(t *testing.T) {
	project := t.TempDir()
	home := t.TempDir()

	writeFile(t, UserConfigPath(home), "profile: basic\n")

	cfg, err := Load(LoadOptions{ProjectDir: project, HomeDir: home, Getenv: envFrom(nil)})
	require.NoError(t, err)
	assert.Equal(t, ProfileBasic, cfg.Profile)
	assert.Equal(t, UserConfigPath(home), cfg.Path)

	// プロジェクト設定がユーザー設定より優先される
	writeFile(t, ProjectConfigPath(project), "history:\n  max_sessions: 10\n")

	cfg, err = Load(LoadOptions{ProjectDir: project, HomeDir: home, Getenv: envFrom(nil)})
	require.NoError(t, err)
	assert.Equal(t, ProfileEnhanced, cfg.Profile)
	assert.Equal(t, 10, cfg.History.MaxSessions)

	// CCHOOK_CONFIG がさらに優先される
	envPath := filepath.Join(t.TempDir(), "env.yaml")
	writeFile(t, envPath, "storage:\n  backend: sqlite\n")

	cfg, err = Load(LoadOptions{
		ProjectDir: project,
		HomeDir:    home,
		Getenv:     envFrom(map[string]string{EnvConfig: envPath}),
	})
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, 50, cfg.History.MaxSessions)

	// --config が最優先
	flagPath := filepath.Join(t.TempDir(), "flag.yaml")
	writeFile(t, flagPath, "log_level: debug\n")

	cfg, err = Load(LoadOptions{
		ConfigPath: flagPath,
		ProjectDir: project,
		HomeDir:    home,
		Getenv:     envFrom(map[string]string{EnvConfig: envPath}),
	})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, BackendJSONL, cfg.Storage.Backend)
}

func TestLoad_ProjectDirFromEnv(t *testing.T) {
	project := t.TempDir()

	cfg, err := Load(LoadOptions{
		HomeDir: t.TempDir(),
		Getenv:  envFrom(map[string]string{EnvProjectDir: project}),
		Getwd:   func() (string, error) { return "/should/not/be/used", nil },
	})
	require.NoError(t, err)
	assert.Equal(t, project, cfg.ProjectDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	project := t.TempDir()
	logDir := filepath.Join(t.TempDir(), "custom-logs")

	cfg, err := Load(LoadOptions{
		ProjectDir: project,
		HomeDir:    t.TempDir(),
		Getenv: envFrom(map[string]string{
			EnvLogDir:     logDir,
			EnvNoNotify:   "1",
			EnvLang:       "JA",
			EnvPassphrase: "secret",
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, logDir, cfg.LogDir)
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, "ja", cfg.Language)
	assert.Equal(t, "secret", cfg.Passphrase)
	assert.Equal(t, filepath.Join(logDir, ".cchook.key"), cfg.KeyFilePath())
}

func TestLoad_RelativeLogDir(t *testing.T) {
	project := t.TempDir()
	writeFile(t, ProjectConfigPath(project), "log_dir: var/hook-logs\n")

	cfg, err := Load(LoadOptions{ProjectDir: project, HomeDir: t.TempDir(), Getenv: envFrom(nil)})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(project, "var", "hook-logs"), cfg.LogDir)
}

func TestLoad_EmptyFile(t *testing.T) {
	project := t.TempDir()
	writeFile(t, ProjectConfigPath(project), "")

	cfg, err := Load(LoadOptions{ProjectDir: project, HomeDir: t.TempDir(), Getenv: envFrom(nil)})
	require.NoError(t, err)
	assert.Equal(t, ProfileEnhanced, cfg.Profile)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errType cherrors.ErrorType
	}{
		{"Unknown key", "profil: basic\n", cherrors.ErrorTypeConfig},
		{"Bad enum", "profile: paranoid\n", cherrors.ErrorTypeConfig},
		{"Wrong type", "history:\n  max_sessions: many\n", cherrors.ErrorTypeConfig},
		{"Broken YAML", "profile: [basic\n", cherrors.ErrorTypeConfig},
		{"Bad regex", "policy:\n  extend:\n    dangerous: ['(unclosed']\n", cherrors.ErrorTypeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := t.TempDir()
			writeFile(t, ProjectConfigPath(project), tt.content)

			_, err := Load(LoadOptions{ProjectDir: project, HomeDir: t.TempDir(), Getenv: envFrom(nil)})
			require.Error(t, err)

			friendly, ok := cherrors.AsFriendly(err)
			require.True(t, ok)
			assert.Equal(t, tt.errType, friendly.Type)
		})
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		ProjectDir: t.TempDir(),
		HomeDir:    t.TempDir(),
		Getenv:     envFrom(nil),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_InvalidRegexStillReturnsConfig(t *testing.T) {
	project := t.TempDir()
	writeFile(t, ProjectConfigPath(project), "policy:\n  override:\n    safe: ['[']\n")

	cfg, err := Load(LoadOptions{ProjectDir: project, HomeDir: t.TempDir(), Getenv: envFrom(nil)})
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, []string{"["}, cfg.Policy.Override.Safe)
}

func TestLoadOrDefault_BrokenFile(t *testing.T) {
	project := t.TempDir()
	writeFile(t, ProjectConfigPath(project), "profile: [basic\n")

	cfg, err := LoadOrDefault(LoadOptions{
		ProjectDir: project,
		HomeDir:    t.TempDir(),
		Getenv:     envFrom(map[string]string{EnvNoNotify: "1"}),
	})
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, ProfileEnhanced, cfg.Profile)
	assert.Equal(t, filepath.Join(project, ".claude", "logs"), cfg.LogDir)
	assert.False(t, cfg.Notifications.Enabled)
}

func TestProblems(t *testing.T) {
	cfg := Default()
	cfg.Profile = "strict"
	cfg.Storage.Backend = "duckdb"
	cfg.History.MaxSessions = 0
	cfg.Checkpoint.Triggers = []string{"npm install", " "}

	problems := cfg.Problems()
	assert.Len(t, problems, 4)

	assert.Empty(t, Default().Problems())
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claude", FileName)

	backup, err := Save(Default(), path)
	require.NoError(t, err)
	assert.Empty(t, backup)

	cfg := Default()
	cfg.Profile = ProfileBasic
	backup, err = Save(cfg, path)
	require.NoError(t, err)
	assert.Equal(t, path+".backup", backup)

	loaded, err := Load(LoadOptions{ConfigPath: path, ProjectDir: t.TempDir(), HomeDir: t.TempDir(), Getenv: envFrom(nil)})
	require.NoError(t, err)
	assert.Equal(t, ProfileBasic, loaded.Profile)
	assert.Equal(t, path, loaded.Path)
}

func TestValidateSchema(t *testing.T) {
	assert.NoError(t, ValidateSchema(map[string]interface{}{
		"profile":       "basic",
		"notifications": map[string]interface{}{"enabled": false, "long_command_ms": 2500},
	}))
	assert.Error(t, ValidateSchema(map[string]interface{}{"dashboard": map[string]interface{}{"port": 80}}))
	assert.Error(t, ValidateSchema([]interface{}{"not", "an", "object"}))
}
