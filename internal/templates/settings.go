// Package templates はClaude Code用のsettings.jsonとCLAUDE.mdを生成する
package templates

import (
	"encoding/json"
	"strings"
)

// BinaryName はフックとして登録するコマンド名
const BinaryName = "cchook"

// HookEvent はsettings.jsonのイベント名とcchookのサブコマンドの対応
type HookEvent struct {
	Event      string
	Subcommand string
}

// HookEvents は登録するフックイベント（settings.jsonでの並び順）
var HookEvents = []HookEvent{
	{Event: "PreToolUse", Subcommand: "pre-tool-use"},
	{Event: "PostToolUse", Subcommand: "post-tool-use"},
	{Event: "Notification", Subcommand: "notification"},
	{Event: "SessionStart", Subcommand: "session-start"},
	{Event: "Stop", Subcommand: "stop"},
}

// HookCommand は個別のhook定義を表す
type HookCommand struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// HookMatcher はmatcherとhook定義の組を表す
type HookMatcher struct {
	Matcher string        `json:"matcher"`
	Hooks   []HookCommand `json:"hooks"`
}

// Permissions は許可するツールの一覧
type Permissions struct {
	Allow []string `json:"allow"`
}

// MCPServer はMCPサーバーの起動設定
type MCPServer struct {
	Command   string            `json:"command"`
	Args      []string          `json:"args"`
	Transport string            `json:"transport"`
	Env       map[string]string `json:"env,omitempty"`
}

// Settings はsettings.json全体を表す
type Settings struct {
	Permissions Permissions              `json:"permissions"`
	Hooks       map[string][]HookMatcher `json:"hooks"`
	Env         map[string]string        `json:"env"`
	MCPServers  map[string]MCPServer     `json:"mcpServers,omitempty"`
}

// AllowedTools はデフォルトで許可するツール
var AllowedTools = []string{"Bash", "Read", "Write", "Edit", "MultiEdit", "Grep", "Glob"}

// Command はサブコマンドに対応するフックコマンド文字列を返す
func Command(subcommand string) string {
	return BinaryName + " " + subcommand
}

// IsOwnCommand はフックコマンドがcchookの登録したものか判定する
func IsOwnCommand(command string) bool {
	return strings.HasPrefix(strings.TrimSpace(command), BinaryName+" ")
}

// Hooks はcchookのhooksブロックを作成する
func Hooks() map[string][]HookMatcher {
	hooks := make(map[string][]HookMatcher, len(HookEvents))
	for _, ev := range HookEvents {
		hooks[ev.Event] = []HookMatcher{
			{
				Matcher: "",
				Hooks: []HookCommand{
					{Type: "command", Command: Command(ev.Subcommand)},
				},
			},
		}
	}
	return hooks
}

func npxServer(pkg string, args ...string) MCPServer {
	return MCPServer{
		Command:   "npx",
		Args:      append([]string{pkg}, args...),
		Transport: "stdio",
	}
}

// MCPServers はプロジェクト種別に応じたMCPサーバー設定を返す
// sqliteとgithubはすべての種別に含まれる
func MCPServers(projectType string) map[string]MCPServer {
	servers := make(map[string]MCPServer)

	switch projectType {
	case "node":
		servers["filesystem"] = npxServer("@modelcontextprotocol/server-filesystem", "./src")
		servers["npm"] = npxServer("@modelcontextprotocol/server-npm")
	case "python":
		servers["filesystem"] = npxServer("@modelcontextprotocol/server-filesystem", "./")
		servers["pip"] = MCPServer{Command: "python", Args: []string{"-m", "pip_server"}, Transport: "stdio"}
	case "rust":
		servers["filesystem"] = npxServer("@modelcontextprotocol/server-filesystem", "./src")
	}

	servers["sqlite"] = npxServer("@modelcontextprotocol/server-sqlite")
	github := npxServer("@modelcontextprotocol/server-github")
	github.Env = map[string]string{"GITHUB_PERSONAL_ACCESS_TOKEN": "${GITHUB_TOKEN}"}
	servers["github"] = github

	return servers
}

// NewSettings はプロジェクト種別に応じたsettings.jsonを作成する
func NewSettings(projectType string) *Settings {
	return &Settings{
		Permissions: Permissions{Allow: append([]string(nil), AllowedTools...)},
		Hooks:       Hooks(),
		Env: map[string]string{
			"DISABLE_NON_ESSENTIAL_MODEL_CALLS":  "true",
			"CLAUDE_CODE_DISABLE_TERMINAL_TITLE": "true",
		},
		MCPServers: MCPServers(projectType),
	}
}

// RenderSettings はsettings.jsonをインデント付きJSONで返す
func RenderSettings(projectType string) ([]byte, error) {
	data, err := json.MarshalIndent(NewSettings(projectType), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
