// Package config はcchookの設定ファイルの読み込み・検証・保存を扱う
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/y-hirakaw/cchook/internal/errors"
	"github.com/y-hirakaw/cchook/internal/utils"
)

const (
	// ProfileEnhanced は拡張ルールセット
	ProfileEnhanced = "enhanced"
	// ProfileBasic は従来のルールセット
	ProfileBasic = "basic"

	// BackendJSONL はJSONLファイルのみのストレージ
	BackendJSONL = "jsonl"
	// BackendSQLite はJSONLに加えてSQLiteへミラーするストレージ
	BackendSQLite = "sqlite"

	// FileName はプロジェクト・ユーザー設定のファイル名
	FileName = "cchook.yaml"
)

// 環境変数名
const (
	EnvConfig     = "CCHOOK_CONFIG"
	EnvLogDir     = "CCHOOK_LOG_DIR"
	EnvNoNotify   = "CCHOOK_NO_NOTIFY"
	EnvLang       = "CCHOOK_LANG"
	EnvPassphrase = "CCHOOK_ENCRYPTION_PASSPHRASE"
	EnvProjectDir = "CLAUDE_PROJECT_DIR"
)

// DefaultCheckpointTriggers はチェックポイントを作成するBashコマンドの部分文字列
var DefaultCheckpointTriggers = []string{
	"npm install",
	"pip install",
	"cargo build",
	"mvn install",
	"git add",
	"npm run build",
}

// Config はcchookの設定
type Config struct {
	Profile       string              `yaml:"profile" json:"profile"`
	LogDir        string              `yaml:"log_dir" json:"log_dir"`
	LogLevel      string              `yaml:"log_level" json:"log_level"`
	Language      string              `yaml:"language,omitempty" json:"language,omitempty"`
	Notifications NotificationsConfig `yaml:"notifications" json:"notifications"`
	Checkpoint    CheckpointConfig    `yaml:"checkpoint" json:"checkpoint"`
	Policy        PolicyConfig        `yaml:"policy" json:"policy"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
	Privacy       PrivacyConfig       `yaml:"privacy" json:"privacy"`
	Audit         AuditConfig         `yaml:"audit" json:"audit"`
	History       HistoryConfig       `yaml:"history" json:"history"`
	Dashboard     DashboardConfig     `yaml:"dashboard" json:"dashboard"`

	// 以下は実行時に決まる値でファイルには保存しない
	ProjectDir string `yaml:"-" json:"-"`
	Path       string `yaml:"-" json:"-"`
	Passphrase string `yaml:"-" json:"-"`
}

// NotificationsConfig はデスクトップ通知の設定
type NotificationsConfig struct {
	Enabled        bool    `yaml:"enabled" json:"enabled"`
	DefaultSound   string  `yaml:"default_sound" json:"default_sound"`
	LongCommandMS  float64 `yaml:"long_command_ms" json:"long_command_ms"`
	TimeoutSeconds int     `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// CheckpointConfig は自動コミットの設定
type CheckpointConfig struct {
	Enabled    bool     `yaml:"enabled" json:"enabled"`
	SessionEnd bool     `yaml:"session_end" json:"session_end"`
	Triggers   []string `yaml:"triggers" json:"triggers"`
	Trailers   []string `yaml:"trailers,omitempty" json:"trailers,omitempty"`
}

// RuleLists はポリシーの各リスト
type RuleLists struct {
	Safe           []string `yaml:"safe,omitempty" json:"safe,omitempty"`
	Dangerous      []string `yaml:"dangerous,omitempty" json:"dangerous,omitempty"`
	Dev            []string `yaml:"dev,omitempty" json:"dev,omitempty"`
	BlockedTools   []string `yaml:"blocked_tools,omitempty" json:"blocked_tools,omitempty"`
	ProtectedPaths []string `yaml:"protected_paths,omitempty" json:"protected_paths,omitempty"`
	ImportantFiles []string `yaml:"important_files,omitempty" json:"important_files,omitempty"`
}

// PolicyConfig はプロファイルのリストを置き換え（override）または追加（extend）する
type PolicyConfig struct {
	Override RuleLists `yaml:"override,omitempty" json:"override,omitempty"`
	Extend   RuleLists `yaml:"extend,omitempty" json:"extend,omitempty"`
}

// StorageConfig はストレージバックエンドの設定
type StorageConfig struct {
	Backend string `yaml:"backend" json:"backend"`
}

// PrivacyConfig はパラメータのマスク・暗号化の設定
type PrivacyConfig struct {
	RedactSensitive   bool     `yaml:"redact_sensitive" json:"redact_sensitive"`
	EncryptParameters bool     `yaml:"encrypt_parameters" json:"encrypt_parameters"`
	SensitiveKeys     []string `yaml:"sensitive_keys,omitempty" json:"sensitive_keys,omitempty"`
	KeyFile           string   `yaml:"key_file,omitempty" json:"key_file,omitempty"`
}

// AuditConfig は監査ログの設定
type AuditConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// HistoryConfig はセッション履歴の設定
type HistoryConfig struct {
	MaxSessions int `yaml:"max_sessions" json:"max_sessions"`
}

// DashboardConfig はダッシュボードの設定
type DashboardConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Profile:  ProfileEnhanced,
		LogDir:   filepath.Join(".claude", "logs"),
		LogLevel: "info",
		Notifications: NotificationsConfig{
			Enabled:        true,
			DefaultSound:   "Glass",
			LongCommandMS:  5000,
			TimeoutSeconds: 5,
		},
		Checkpoint: CheckpointConfig{
			Enabled:    true,
			SessionEnd: true,
			Triggers:   append([]string(nil), DefaultCheckpointTriggers...),
		},
		Storage: StorageConfig{Backend: BackendJSONL},
		Privacy: PrivacyConfig{RedactSensitive: true},
		Audit:   AuditConfig{Enabled: true},
		History: HistoryConfig{MaxSessions: 50},
		Dashboard: DashboardConfig{
			Addr: "127.0.0.1:8765",
		},
	}
}

// LoadOptions は設定読み込み時の入力
type LoadOptions struct {
	// ConfigPath は --config で指定されたパス
	ConfigPath string
	// ProjectDir は --project-dir で指定されたディレクトリ
	ProjectDir string
	// Getenv は環境変数の取得関数（nilの場合は os.Getenv）
	Getenv func(string) string
	// HomeDir はユーザー設定の探索に使うホームディレクトリ（空の場合は自動取得）
	HomeDir string
	// Getwd はカレントディレクトリの取得関数（nilの場合は os.Getwd）
	Getwd func() (string, error)
}

func (o *LoadOptions) getenv(key string) string {
	if o.Getenv != nil {
		return o.Getenv(key)
	}
	return os.Getenv(key)
}

// Load は設定ファイルを探索して読み込み、環境変数を適用して検証する
// 探索順: --config, CCHOOK_CONFIG, <project>/.claude/cchook.yaml, ~/.claude/cchook.yaml
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	projectDir, err := resolveProjectDir(&opts)
	if err != nil {
		return nil, err
	}
	cfg.ProjectDir = projectDir

	path, explicit := findConfigFile(&opts, projectDir)
	if path != "" {
		if err := cfg.loadFile(path, explicit); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv(&opts)
	cfg.resolvePaths()

	if problems := cfg.Problems(); len(problems) > 0 {
		return cfg, errors.ConfigInvalid(strings.Join(problems, "; "))
	}

	return cfg, nil
}

// LoadOrDefault は Load と同じだが、設定ファイルが読めない場合でもデフォルト設定を返す
// フックは設定の問題があっても動作を止めないためにこれを使う
func LoadOrDefault(opts LoadOptions) (*Config, error) {
	cfg, err := Load(opts)
	if cfg != nil {
		return cfg, err
	}

	cfg = Default()
	projectDir, dirErr := resolveProjectDir(&opts)
	if dirErr != nil {
		projectDir = "."
	}
	cfg.ProjectDir = projectDir
	cfg.applyEnv(&opts)
	cfg.resolvePaths()
	return cfg, err
}

// resolveProjectDir は --project-dir, CLAUDE_PROJECT_DIR, カレントディレクトリの順に決定する
func resolveProjectDir(opts *LoadOptions) (string, error) {
	dir := opts.ProjectDir
	if dir == "" {
		dir = opts.getenv(EnvProjectDir)
	}
	if dir == "" {
		getwd := opts.Getwd
		if getwd == nil {
			getwd = os.Getwd
		}
		wd, err := getwd()
		if err != nil {
			return "", fmt.Errorf("カレントディレクトリの取得に失敗: %w", err)
		}
		dir = wd
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("プロジェクトディレクトリの解決に失敗: %w", err)
	}
	return abs, nil
}

// findConfigFile は読み込む設定ファイルを探す
// 明示指定（--config, CCHOOK_CONFIG）の場合は存在しなくてもそのパスを返す
func findConfigFile(opts *LoadOptions, projectDir string) (string, bool) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, true
	}
	if env := opts.getenv(EnvConfig); env != "" {
		return env, true
	}

	candidates := []string{ProjectConfigPath(projectDir)}

	home := opts.HomeDir
	if home == "" {
		home, _ = utils.GetHomeDirectory()
	}
	if home != "" {
		candidates = append(candidates, UserConfigPath(home))
	}

	for _, candidate := range candidates {
		if utils.FileExists(candidate) {
			return candidate, false
		}
	}
	return "", false
}

// ProjectConfigPath はプロジェクト設定ファイルのパスを返す
func ProjectConfigPath(projectDir string) string {
	return filepath.Join(projectDir, ".claude", FileName)
}

// UserConfigPath はユーザー設定ファイルのパスを返す
func UserConfigPath(homeDir string) string {
	return filepath.Join(homeDir, ".claude", FileName)
}

// loadFile はYAMLを読み込み、スキーマ検証した上でデフォルト値に上書きする
func (c *Config) loadFile(path string, explicit bool) error {
	var node yaml.Node
	found, err := NewManager(path).LoadConfig(&node)
	if err != nil {
		if found {
			return errors.ConfigParseFailed(path, err)
		}
		return errors.ConfigReadFailed(path, err)
	}
	if !found {
		if explicit {
			return errors.ConfigReadFailed(path, os.ErrNotExist)
		}
		return nil
	}
	c.Path = path

	// 空ファイルはデフォルトのまま
	if node.Kind == 0 {
		return nil
	}

	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return errors.ConfigParseFailed(path, err)
	}
	if err := ValidateSchema(raw); err != nil {
		return errors.ConfigInvalid(err.Error())
	}

	if err := node.Decode(c); err != nil {
		return errors.ConfigParseFailed(path, err)
	}
	return nil
}

// applyEnv は環境変数による上書きを適用する
func (c *Config) applyEnv(opts *LoadOptions) {
	if dir := opts.getenv(EnvLogDir); dir != "" {
		c.LogDir = dir
	}
	if v := opts.getenv(EnvNoNotify); v == "1" || strings.EqualFold(v, "true") {
		c.Notifications.Enabled = false
	}
	if lang := opts.getenv(EnvLang); lang != "" {
		c.Language = strings.ToLower(lang)
	}
	c.Passphrase = opts.getenv(EnvPassphrase)
}

// resolvePaths は相対パスをプロジェクトディレクトリ基準の絶対パスにする
func (c *Config) resolvePaths() {
	if c.LogDir != "" && !filepath.IsAbs(c.LogDir) {
		c.LogDir = filepath.Join(c.ProjectDir, c.LogDir)
	}
	if c.Privacy.KeyFile != "" && !filepath.IsAbs(c.Privacy.KeyFile) {
		c.Privacy.KeyFile = filepath.Join(c.ProjectDir, c.Privacy.KeyFile)
	}
}

// KeyFilePath は暗号鍵ファイルのパスを返す
func (c *Config) KeyFilePath() string {
	if c.Privacy.KeyFile != "" {
		return c.Privacy.KeyFile
	}
	return filepath.Join(c.LogDir, ".cchook.key")
}

// NewManager はYAML用のConfigManagerを作成する
func NewManager(path string) *utils.ConfigManager {
	return utils.NewConfigManager(path, utils.Codec{
		Marshal:   yaml.Marshal,
		Unmarshal: yaml.Unmarshal,
	})
}

// Save は設定をYAMLで保存する（既存ファイルはバックアップする）
// バックアップを作成した場合はそのパスを返す
func Save(cfg *Config, path string) (string, error) {
	manager := NewManager(path)

	backup, err := manager.BackupConfig()
	if err != nil {
		return "", errors.ConfigWriteFailed(path, err)
	}
	if err := manager.SaveConfig(cfg); err != nil {
		return "", errors.ConfigWriteFailed(path, err)
	}
	return backup, nil
}

// Marshal は設定をYAMLに変換する
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
