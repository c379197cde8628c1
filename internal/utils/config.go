package utils

import (
	"encoding/json"
	"fmt"
	"os"
)

// Codec は設定ファイルのエンコード方式
type Codec struct {
	Marshal   func(v interface{}) ([]byte, error)
	Unmarshal func(data []byte, v interface{}) error
}

// JSONCodec はインデント付きJSONのCodec
var JSONCodec = Codec{
	Marshal: func(v interface{}) ([]byte, error) {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	},
	Unmarshal: json.Unmarshal,
}

// ConfigManager は設定ファイルの読み書きとバックアップを管理する
type ConfigManager struct {
	configPath string
	codec      Codec
}

// NewConfigManager は新しいConfigManagerを作成する
func NewConfigManager(configPath string, codec Codec) *ConfigManager {
	return &ConfigManager{
		configPath: configPath,
		codec:      codec,
	}
}

// LoadConfig は設定を読み込む
// ファイルが存在しない場合は何もせず false を返す
func (c *ConfigManager) LoadConfig(config interface{}) (bool, error) {
	data, err := os.ReadFile(c.configPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("設定の読み込みに失敗 %s: %w", c.configPath, err)
	}

	if err := c.codec.Unmarshal(data, config); err != nil {
		return true, fmt.Errorf("設定の解析に失敗 %s: %w", c.configPath, err)
	}

	return true, nil
}

// SaveConfig は設定をアトミックに保存する
func (c *ConfigManager) SaveConfig(config interface{}) error {
	data, err := c.codec.Marshal(config)
	if err != nil {
		return fmt.Errorf("設定の変換に失敗: %w", err)
	}

	return WriteFileAtomic(c.configPath, data, 0644)
}

// BackupConfig は設定ファイルを <path>.backup にコピーする
// バックアップを作成した場合はそのパスを返す
func (c *ConfigManager) BackupConfig() (string, error) {
	data, err := os.ReadFile(c.configPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("バックアップ元の読み込みに失敗: %w", err)
	}

	backupPath := c.BackupPath()
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return "", fmt.Errorf("バックアップの書き込みに失敗: %w", err)
	}

	return backupPath, nil
}

// RestoreConfig はバックアップから設定を復元する
func (c *ConfigManager) RestoreConfig() error {
	data, err := os.ReadFile(c.BackupPath())
	if err != nil {
		return fmt.Errorf("バックアップの読み込みに失敗: %w", err)
	}

	return WriteFileAtomic(c.configPath, data, 0644)
}

// BackupPath はバックアップファイルのパスを返す
func (c *ConfigManager) BackupPath() string {
	return c.configPath + ".backup"
}

// ConfigExists は設定ファイルが存在するかチェックする
func (c *ConfigManager) ConfigExists() bool {
	return FileExists(c.configPath)
}

// GetConfigPath は設定ファイルのパスを取得する
func (c *ConfigManager) GetConfigPath() string {
	return c.configPath
}
