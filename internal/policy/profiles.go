package policy

import (
	"fmt"

	"github.com/y-hirakaw/cchook/internal/config"
)

// Rules はプロファイルを構成するパターンのリスト
type Rules struct {
	// Safe はコマンド先頭に一致する許可パターン
	Safe []string
	// Dangerous はコマンドのどこかに一致するとブロックするパターン
	Dangerous []string
	// Dev はコマンドのどこかに一致すると通知付きで許可するパターン
	Dev []string
	// BlockedTools はツール名（小文字）に一致するとブロックするパターン
	BlockedTools []string
	// ProtectedPaths は書き込みを禁止するディレクトリ（末尾スラッシュ付き）
	ProtectedPaths []string
	// ImportantFiles は変更時に通知するファイル名
	ImportantFiles []string
}

var defaultProtectedPaths = []string{"/etc/", "/usr/", "/var/", "/sys/", "/proc/"}

var defaultImportantFiles = []string{"package.json", "requirements.txt", "Cargo.toml", ".gitignore"}

// enhancedRules は拡張ルールセット
func enhancedRules() Rules {
	return Rules{
		Safe: []string{
			`^ls(\s|$)`,
			`^cat\s+[^|>;&]+$`,
			`^grep\s+[^|>;&]+$`,
			`^find\s+.*-name`,
			`^git\s+(status|log|diff|show)(\s|$)`,
			`^python.*--help`,
			`^npm\s+(list|info|view)`,
			`^echo\s+`,
			`^pwd$`,
			`^whoami$`,
			`^date$`,
		},
		Dev: []string{
			`^git\s+(add|commit|push)`,
			`^npm\s+(install|update|run)`,
			`^pip\s+(install|update)`,
			`^python\s+[^;|>&]+\.py`,
			`^node\s+[^;|>&]+\.js`,
			`^cargo\s+(build|run|test)`,
			`^mvn\s+(compile|test|package)`,
		},
		Dangerous: []string{
			`rm\s.*-rf`,
			`sudo\s`,
			`chmod\s777`,
			`>\s*/dev/`,
			`curl.*\|\s*(sh|bash)`,
			`wget.*\|\s*(sh|bash)`,
			`eval\s`,
			`exec\s`,
		},
		ProtectedPaths: append([]string(nil), defaultProtectedPaths...),
		ImportantFiles: append([]string(nil), defaultImportantFiles...),
	}
}

// basicRules は従来のルールセット
func basicRules() Rules {
	return Rules{
		Safe: []string{
			`^ls`,
			`^cat`,
			`^grep`,
			`^find`,
			`^git (status|log|diff)`,
		},
		Dangerous: []string{
			`rm.*-rf`,
			`sudo`,
			`chmod 777`,
		},
		BlockedTools: []string{
			`\brm\b`,
			`delete`,
		},
		ProtectedPaths: append([]string(nil), defaultProtectedPaths...),
		ImportantFiles: append([]string(nil), defaultImportantFiles...),
	}
}

// ProfileRules は名前に対応する組み込みルールを返す
func ProfileRules(profile string) (Rules, error) {
	switch profile {
	case config.ProfileEnhanced, "":
		return enhancedRules(), nil
	case config.ProfileBasic:
		return basicRules(), nil
	default:
		return Rules{}, fmt.Errorf("不明なプロファイル: %s", profile)
	}
}

// Apply は設定のoverride（置き換え）とextend（追加）を適用したルールを返す
func (r Rules) Apply(cfg config.PolicyConfig) Rules {
	merge := func(base, override, extend []string) []string {
		result := base
		if override != nil {
			result = override
		}
		return append(append([]string(nil), result...), extend...)
	}

	return Rules{
		Safe:           merge(r.Safe, cfg.Override.Safe, cfg.Extend.Safe),
		Dangerous:      merge(r.Dangerous, cfg.Override.Dangerous, cfg.Extend.Dangerous),
		Dev:            merge(r.Dev, cfg.Override.Dev, cfg.Extend.Dev),
		BlockedTools:   merge(r.BlockedTools, cfg.Override.BlockedTools, cfg.Extend.BlockedTools),
		ProtectedPaths: merge(r.ProtectedPaths, cfg.Override.ProtectedPaths, cfg.Extend.ProtectedPaths),
		ImportantFiles: merge(r.ImportantFiles, cfg.Override.ImportantFiles, cfg.Extend.ImportantFiles),
	}
}
