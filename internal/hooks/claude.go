// Package hooks はClaude Codeのsettings.jsonへcchookのフックを設定・削除する
package hooks

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/y-hirakaw/cchook/internal/errors"
	"github.com/y-hirakaw/cchook/internal/templates"
	"github.com/y-hirakaw/cchook/internal/utils"
)

// SettingsFileName はClaude Codeの設定ファイル名
const SettingsFileName = "settings.json"

// ProjectSettingsPath はプロジェクト単位のsettings.jsonのパスを返す
func ProjectSettingsPath(projectDir string) string {
	return filepath.Join(projectDir, ".claude", SettingsFileName)
}

// UserSettingsPath はユーザー単位のsettings.jsonのパスを返す
// homeDir が空の場合はホームディレクトリを自動取得する
func UserSettingsPath(homeDir string) (string, error) {
	if homeDir == "" {
		home, err := utils.GetHomeDirectory()
		if err != nil {
			return "", err
		}
		homeDir = home
	}
	return filepath.Join(homeDir, ".claude", SettingsFileName), nil
}

// HookManager はsettings.jsonのhooksブロックを管理する
type HookManager struct {
	config *utils.ConfigManager
}

// NewHookManager は新しいHookManagerを作成する
func NewHookManager(settingsPath string) *HookManager {
	return &HookManager{
		config: utils.NewConfigManager(settingsPath, utils.JSONCodec),
	}
}

// Path はsettings.jsonのパスを返す
func (m *HookManager) Path() string {
	return m.config.GetConfigPath()
}

// InstallOptions はフック設定時のオプション
type InstallOptions struct {
	// ProjectType が空でなければ、存在しないトップレベルキーを生成したsettingsで補う
	ProjectType string
}

// InstallResult はフック設定の結果
type InstallResult struct {
	Path   string `json:"path"`
	Backup string `json:"backup,omitempty"`
}

// Status はフックの設定状況
type Status struct {
	Path      string   `json:"path"`
	Exists    bool     `json:"exists"`
	Installed bool     `json:"installed"`
	Events    []string `json:"events"`
	Backup    bool     `json:"backup"`
}

// load は現在の設定を読み込む。ファイルが無い場合は空の設定を返す
func (m *HookManager) load() (map[string]interface{}, bool, error) {
	settings := make(map[string]interface{})
	found, err := m.config.LoadConfig(&settings)
	if err != nil {
		if found {
			return nil, true, errors.SettingsInvalidJSON(m.Path(), err)
		}
		return nil, false, err
	}
	if settings == nil {
		// "null" だけのファイル
		settings = make(map[string]interface{})
	}
	return settings, found, nil
}

func (m *HookManager) save(settings map[string]interface{}) (string, error) {
	backup, err := m.config.BackupConfig()
	if err != nil {
		return "", errors.SettingsWriteFailed(m.Path(), err)
	}
	if err := m.config.SaveConfig(settings); err != nil {
		return "", errors.SettingsWriteFailed(m.Path(), err)
	}
	return backup, nil
}

// hooksSection は設定からhooksオブジェクトを取り出す
func (m *HookManager) hooksSection(settings map[string]interface{}) (map[string]interface{}, error) {
	raw, ok := settings["hooks"]
	if !ok || raw == nil {
		return make(map[string]interface{}), nil
	}
	section, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.SettingsInvalidJSON(m.Path(), fmt.Errorf("hooks はオブジェクトである必要があります"))
	}
	return section, nil
}

// Install はcchookのフックをsettings.jsonにマージする
// 既存のcchook以外のフックと他のキーは保持し、書き込み前にバックアップを作成する
func (m *HookManager) Install(opts InstallOptions) (*InstallResult, error) {
	settings, _, err := m.load()
	if err != nil {
		return nil, err
	}

	section, err := m.hooksSection(settings)
	if err != nil {
		return nil, err
	}

	for event, matchers := range templates.Hooks() {
		kept, _ := stripOwn(section[event])
		for _, matcher := range matchers {
			kept = append(kept, toGeneric(matcher))
		}
		section[event] = kept
	}
	settings["hooks"] = section

	if opts.ProjectType != "" {
		generated, ok := toGeneric(templates.NewSettings(opts.ProjectType)).(map[string]interface{})
		if ok {
			for key, value := range generated {
				if _, exists := settings[key]; !exists {
					settings[key] = value
				}
			}
		}
	}

	backup, err := m.save(settings)
	if err != nil {
		return nil, err
	}
	return &InstallResult{Path: m.Path(), Backup: backup}, nil
}

// Remove はcchookが登録したフックだけを削除し、削除した件数を返す
func (m *HookManager) Remove() (int, error) {
	settings, found, err := m.load()
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}

	section, err := m.hooksSection(settings)
	if err != nil {
		return 0, err
	}

	total := 0
	for event, raw := range section {
		kept, removed := stripOwn(raw)
		total += removed
		if removed == 0 {
			continue
		}
		if len(kept) == 0 {
			delete(section, event)
		} else {
			section[event] = kept
		}
	}
	if total == 0 {
		return 0, nil
	}

	if len(section) == 0 {
		delete(settings, "hooks")
	} else {
		settings["hooks"] = section
	}

	if _, err := m.save(settings); err != nil {
		return 0, err
	}
	return total, nil
}

// Status はsettings.jsonの設定状況を返す
func (m *HookManager) Status() (*Status, error) {
	status := &Status{
		Path:   m.Path(),
		Exists: m.config.ConfigExists(),
		Backup: utils.FileExists(m.config.BackupPath()),
		Events: []string{},
	}

	settings, _, err := m.load()
	if err != nil {
		return status, err
	}
	section, err := m.hooksSection(settings)
	if err != nil {
		return status, err
	}

	for _, ev := range templates.HookEvents {
		if hasCommand(section[ev.Event], templates.Command(ev.Subcommand)) {
			status.Events = append(status.Events, ev.Event)
		}
	}
	status.Installed = len(status.Events) == len(templates.HookEvents)
	return status, nil
}

// Restore は直前のバックアップからsettings.jsonを戻す
func (m *HookManager) Restore() error {
	if !utils.FileExists(m.config.BackupPath()) {
		return errors.SettingsBackupMissing(m.config.BackupPath())
	}
	if err := m.config.RestoreConfig(); err != nil {
		return errors.SettingsWriteFailed(m.Path(), err)
	}
	return nil
}

// toGeneric は構造体をJSON経由で map/slice の汎用表現に変換する
func toGeneric(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// commandsOf はmatcherエントリ内のフックコマンドを返す
func commandsOf(entry interface{}) ([]interface{}, bool) {
	m, ok := entry.(map[string]interface{})
	if !ok {
		return nil, false
	}
	hooks, ok := m["hooks"].([]interface{})
	return hooks, ok
}

func commandString(hook interface{}) string {
	m, ok := hook.(map[string]interface{})
	if !ok {
		return ""
	}
	cmd, _ := m["command"].(string)
	return cmd
}

// stripOwn はイベントのmatcher一覧からcchookのコマンドを取り除く
// cchookのコマンドだけを持っていたmatcherはエントリごと削除する
func stripOwn(raw interface{}) ([]interface{}, int) {
	entries, ok := raw.([]interface{})
	if !ok {
		return []interface{}{}, 0
	}

	kept := make([]interface{}, 0, len(entries))
	removed := 0
	for _, entry := range entries {
		hooks, ok := commandsOf(entry)
		if !ok {
			kept = append(kept, entry)
			continue
		}

		remaining := make([]interface{}, 0, len(hooks))
		for _, hook := range hooks {
			if templates.IsOwnCommand(commandString(hook)) {
				removed++
				continue
			}
			remaining = append(remaining, hook)
		}

		switch {
		case len(remaining) == len(hooks):
			kept = append(kept, entry)
		case len(remaining) > 0:
			m := entry.(map[string]interface{})
			m["hooks"] = remaining
			kept = append(kept, m)
		}
	}
	return kept, removed
}

func hasCommand(raw interface{}, command string) bool {
	entries, ok := raw.([]interface{})
	if !ok {
		return false
	}
	for _, entry := range entries {
		hooks, _ := commandsOf(entry)
		for _, hook := range hooks {
			if commandString(hook) == command {
				return true
			}
		}
	}
	return false
}
