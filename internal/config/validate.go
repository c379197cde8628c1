package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

var (
	compiledSchema *jsonschema.Schema
	schemaErr      error
	schemaOnce     sync.Once
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("スキーマの解析に失敗: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("cchook.schema.json", doc); err != nil {
			schemaErr = fmt.Errorf("スキーマの登録に失敗: %w", err)
			return
		}

		compiledSchema, schemaErr = c.Compile("cchook.schema.json")
	})
	return compiledSchema, schemaErr
}

// ValidateSchema はYAMLから読み込んだ値を埋め込みJSON Schemaで検証する
// YAMLの値はJSONを経由してjsonschemaの期待する型に揃える
func ValidateSchema(raw interface{}) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("設定をJSONに変換できません: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("設定をJSONに変換できません: %w", err)
	}

	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("スキーマ違反: %w", err)
	}
	return nil
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Problems は設定の意味的な問題をすべて返す
func (c *Config) Problems() []string {
	var problems []string

	switch c.Profile {
	case ProfileBasic, ProfileEnhanced:
	default:
		problems = append(problems, fmt.Sprintf("profile: 不明なプロファイル %q", c.Profile))
	}

	switch c.Storage.Backend {
	case BackendJSONL, BackendSQLite:
	default:
		problems = append(problems, fmt.Sprintf("storage.backend: 不明なバックエンド %q", c.Storage.Backend))
	}

	if !validLogLevels[c.LogLevel] {
		problems = append(problems, fmt.Sprintf("log_level: 不明なレベル %q", c.LogLevel))
	}

	if c.LogDir == "" {
		problems = append(problems, "log_dir: 空にできません")
	}

	if c.History.MaxSessions < 1 {
		problems = append(problems, "history.max_sessions: 1以上を指定してください")
	}

	if c.Notifications.LongCommandMS < 0 {
		problems = append(problems, "notifications.long_command_ms: 負の値にできません")
	}

	problems = append(problems, checkPatterns("policy.override", c.Policy.Override)...)
	problems = append(problems, checkPatterns("policy.extend", c.Policy.Extend)...)

	for i, trigger := range c.Checkpoint.Triggers {
		if strings.TrimSpace(trigger) == "" {
			problems = append(problems, fmt.Sprintf("checkpoint.triggers[%d]: 空文字列は指定できません", i))
		}
	}

	return problems
}

// checkPatterns は正規表現リストがコンパイルできるか確認する
func checkPatterns(prefix string, lists RuleLists) []string {
	var problems []string
	check := func(name string, patterns []string) {
		for i, pattern := range patterns {
			if _, err := regexp.Compile(pattern); err != nil {
				problems = append(problems, fmt.Sprintf("%s.%s[%d]: 正規表現が不正です: %v", prefix, name, i, err))
			}
		}
	}

	check("safe", lists.Safe)
	check("dangerous", lists.Dangerous)
	check("dev", lists.Dev)
	check("blocked_tools", lists.BlockedTools)
	return problems
}
