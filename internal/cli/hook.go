package cli

import (
	"context"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/y-hirakaw/cchook/internal/config"
	"github.com/y-hirakaw/cchook/internal/hookio"
	"github.com/y-hirakaw/cchook/internal/lifecycle"
	"github.com/y-hirakaw/cchook/internal/logging"
)

var hookDescriptions = map[string]string{
	"pre-tool-use":  "PreToolUse hook: validate a tool call before it runs",
	"post-tool-use": "PostToolUse hook: record usage, notify and checkpoint",
	"notification":  "Notification hook: route events to desktop notifications",
	"session-start": "SessionStart hook: log the session start",
	"stop":          "Stop hook: write the session report and final checkpoint",
}

// newHookCommands はフックイベントごとのサブコマンドを作成する
func (a *App) newHookCommands() []*cobra.Command {
	names := make([]string, 0, len(lifecycle.Handlers))
	for name := range lifecycle.Handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	commands := make([]*cobra.Command, 0, len(names))
	for _, name := range names {
		name, handler := name, lifecycle.Handlers[name]
		commands = append(commands, &cobra.Command{
			Use:     name,
			Short:   hookDescriptions[name],
			GroupID: groupHooks,
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a.exitCode = a.runHook(cmd.Context(), name, handler)
				return nil
			},
		})
	}
	return commands
}

// runHook は標準入力のJSONをハンドラに渡し、結果を標準出力に書く
// 設定やストレージに問題があってもフックのプロトコルは守る
func (a *App) runHook(ctx context.Context, name string, handler lifecycle.HandlerFunc) int {
	cfg, cfgErr := config.LoadOrDefault(a.loadOptions())
	a.applyLocale(cfg)

	logger := logging.ForHook(cfg.LogDir, cfg.LogLevel, a.verbose).With(zap.String("hook", name))
	defer func() { _ = logger.Sync() }()

	if cfgErr != nil {
		logger.Warn("設定に問題があるため読み込めた値で続行", zap.Error(cfgErr))
	}

	env, err := lifecycle.NewEnv(cfg, logger)
	if err != nil {
		logger.Error("フック環境の初期化に失敗", zap.Error(err))
	}
	defer func() {
		if err := env.Close(); err != nil {
			logger.Warn("ストレージのクローズに失敗", zap.Error(err))
		}
	}()

	logger.Debug("フックを実行")
	out, code := handler(ctx, env, a.Stdin)

	if err := hookio.Write(a.Stdout, out); err != nil {
		logger.Error("フック出力の書き込みに失敗", zap.Error(err))
	}
	logger.Debug("フックが完了", zap.Int("exit_code", code))
	return code
}
