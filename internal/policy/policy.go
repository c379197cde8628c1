// Package policy はBashコマンドとファイル操作の許可・ブロック判定を行う
package policy

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/y-hirakaw/cchook/internal/config"
	"github.com/y-hirakaw/cchook/internal/hookio"
)

// Level はコマンドの分類結果
type Level string

const (
	// LevelSafe は常に許可されるコマンド
	LevelSafe Level = "safe"
	// LevelDev は通知付きで許可される開発コマンド
	LevelDev Level = "dev"
	// LevelStandard はどのリストにも一致しないコマンド
	LevelStandard Level = "standard"
	// LevelBlocked はブロックされるコマンド
	LevelBlocked Level = "blocked"
)

// Decision はコマンド・ツールの判定結果
type Decision struct {
	Level   Level
	Reason  string
	Pattern string
}

// Blocked はブロック判定かどうかを返す
func (d Decision) Blocked() bool {
	return d.Level == LevelBlocked
}

// FileCheck はファイル操作の判定結果
type FileCheck struct {
	Path      string
	Blocked   bool
	Reason    string
	Important bool
}

// PatternError はコンパイルできなかったパターン
type PatternError struct {
	List    string
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("%s: 正規表現 %q をスキップしました: %v", e.List, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Policy はコンパイル済みのルール
type Policy struct {
	safe           []*regexp.Regexp
	dangerous      []*regexp.Regexp
	dev            []*regexp.Regexp
	blockedTools   []*regexp.Regexp
	protectedPaths []string
	importantFiles []string
}

// Compile はルールをコンパイルする
// 不正なパターンはスキップし、PatternErrorとして返す
func Compile(rules Rules) (*Policy, []error) {
	var problems []error
	compile := func(list string, patterns []string, anchor bool) []*regexp.Regexp {
		compiled := make([]*regexp.Regexp, 0, len(patterns))
		for _, pattern := range patterns {
			expr := pattern
			if anchor && !strings.HasPrefix(expr, "^") {
				expr = "^(?:" + expr + ")"
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				problems = append(problems, &PatternError{List: list, Pattern: pattern, Err: err})
				continue
			}
			compiled = append(compiled, re)
		}
		return compiled
	}

	p := &Policy{
		safe:           compile("safe", rules.Safe, true),
		dangerous:      compile("dangerous", rules.Dangerous, false),
		dev:            compile("dev", rules.Dev, false),
		blockedTools:   compile("blocked_tools", rules.BlockedTools, false),
		protectedPaths: normalizeDirs(rules.ProtectedPaths),
		importantFiles: append([]string(nil), rules.ImportantFiles...),
	}
	return p, problems
}

// FromConfig は設定のプロファイルとoverride/extendからポリシーを作成する
func FromConfig(cfg *config.Config) (*Policy, []error) {
	rules, err := ProfileRules(cfg.Profile)
	if err != nil {
		rules = enhancedRules()
		p, problems := Compile(rules.Apply(cfg.Policy))
		return p, append([]error{err}, problems...)
	}
	return Compile(rules.Apply(cfg.Policy))
}

// normalizeDirs はディレクトリを末尾スラッシュ付きの形に揃える
func normalizeDirs(dirs []string) []string {
	result := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		cleaned := path.Clean(filepath.ToSlash(dir))
		if !strings.HasSuffix(cleaned, "/") {
			cleaned += "/"
		}
		result = append(result, cleaned)
	}
	return result
}

// ClassifyCommand はBashコマンドを分類する
// 判定順: safe → dangerous → dev → standard
func (p *Policy) ClassifyCommand(command string) Decision {
	for _, re := range p.safe {
		if re.MatchString(command) {
			return Decision{Level: LevelSafe, Pattern: re.String()}
		}
	}

	for _, re := range p.dangerous {
		if re.MatchString(command) {
			return Decision{
				Level:   LevelBlocked,
				Reason:  "Blocked dangerous command: " + command,
				Pattern: re.String(),
			}
		}
	}

	for _, re := range p.dev {
		if re.MatchString(command) {
			return Decision{Level: LevelDev, Pattern: re.String()}
		}
	}

	return Decision{Level: LevelStandard}
}

// CheckTool はツール名がブロック対象かどうかを判定する
func (p *Policy) CheckTool(toolName string) Decision {
	lower := strings.ToLower(toolName)
	for _, re := range p.blockedTools {
		if re.MatchString(lower) {
			return Decision{
				Level:   LevelBlocked,
				Reason:  "Blocked dangerous tool use: " + toolName,
				Pattern: re.String(),
			}
		}
	}
	return Decision{Level: LevelStandard}
}

// CheckFile はファイル操作ツールの対象パスを判定する
// パスは正規化してから保護ディレクトリと比較する（/tmp/../etc/x も検出）
func (p *Policy) CheckFile(toolName, filePath string) FileCheck {
	check := FileCheck{Path: filePath}
	if !hookio.IsFileModifyingTool(toolName) || filePath == "" {
		return check
	}

	cleaned := path.Clean(filepath.ToSlash(filePath))
	for _, dir := range p.protectedPaths {
		if strings.HasPrefix(cleaned+"/", dir) {
			check.Blocked = true
			check.Reason = "Blocked write to system directory: " + filePath
			return check
		}
	}

	base := path.Base(cleaned)
	for _, name := range p.importantFiles {
		if base == name {
			check.Important = true
			break
		}
	}

	return check
}
