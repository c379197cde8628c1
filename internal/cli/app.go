// Package cli はcchookのコマンドラインインターフェースを実装する
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/y-hirakaw/cchook/internal/config"
	"github.com/y-hirakaw/cchook/internal/errors"
	"github.com/y-hirakaw/cchook/internal/i18n"
	"github.com/y-hirakaw/cchook/internal/logging"
	"github.com/y-hirakaw/cchook/internal/storage"
)

const (
	// Version はアプリケーションのバージョン
	Version = "0.3.0"
	// AppName はアプリケーション名
	AppName = "cchook"
)

// App はCLIアプリケーションを表す
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Getenv は環境変数の取得関数
	Getenv func(string) string
	// HomeDir はユーザー設定の探索に使うホームディレクトリ（空の場合は自動取得）
	HomeDir string
	Now     func() time.Time

	configPath string
	projectDir string
	verbose    bool
	noColor    bool
	exitCode   int
}

// NewApp は新しいCLIアプリケーションを作成する
func NewApp() *App {
	i18n.Initialize()
	errors.InitializeFormatter()

	return &App{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getenv: os.Getenv,
		Now:    time.Now,
	}
}

// Run はCLIアプリケーションを実行し、終了コードを返す
// args は os.Args と同じく先頭がプログラム名
func (a *App) Run(args []string) int {
	return a.RunContext(context.Background(), args)
}

// RunContext はコンテキスト付きで Run を実行する
func (a *App) RunContext(ctx context.Context, args []string) int {
	a.exitCode = 0

	root := a.newRootCommand()
	if len(args) > 1 {
		root.SetArgs(args[1:])
	} else {
		root.SetArgs([]string{})
	}

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(a.Stderr, errors.FormatError(a.translate(err, args)))
		if a.exitCode == 0 {
			return 1
		}
	}
	return a.exitCode
}

// translate はcobraが返す素のエラーをFriendlyErrorに置き換える
func (a *App) translate(err error, args []string) error {
	if _, ok := errors.AsFriendly(err); ok {
		return err
	}
	if strings.HasPrefix(err.Error(), "unknown command") && len(args) > 1 {
		return errors.UnknownCommand(args[1])
	}
	return err
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           AppName,
		Short:         "Lifecycle hooks for Claude Code",
		Long:          "cchook validates commands, records tool usage, sends desktop notifications and creates git checkpoints from Claude Code hooks.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.Stdin)
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to cchook.yaml")
	flags.StringVar(&a.projectDir, "project-dir", "", "project directory (defaults to $CLAUDE_PROJECT_DIR or the current directory)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddGroup(
		&cobra.Group{ID: groupHooks, Title: "Hook Commands:"},
		&cobra.Group{ID: groupTools, Title: "Commands:"},
	)

	root.AddCommand(a.newHookCommands()...)
	root.AddCommand(
		a.newGenerateCommand(),
		a.newSetupCommand(),
		a.newStatsCommand(),
		a.newHistoryCommand(),
		a.newLogsCommand(),
		a.newAuditCommand(),
		a.newConfigCommand(),
		a.newDashboardCommand(),
		a.newVersionCommand(),
	)
	return root
}

const (
	groupHooks = "hooks"
	groupTools = "tools"
)

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Print the cchook version",
		GroupID: groupTools,
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			a.println(AppName + " " + Version)
		},
	}
}

func (a *App) getenv(key string) string {
	if a.Getenv == nil {
		return os.Getenv(key)
	}
	return a.Getenv(key)
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		ConfigPath: a.configPath,
		ProjectDir: a.projectDir,
		Getenv:     a.getenv,
		HomeDir:    a.HomeDir,
	}
}

// checkProjectDir は --project-dir が存在するディレクトリか確認する
func (a *App) checkProjectDir() error {
	if a.projectDir == "" {
		return nil
	}
	info, err := os.Stat(a.projectDir)
	if err != nil || !info.IsDir() {
		return errors.ProjectDirNotFound(a.projectDir)
	}
	return nil
}

// loadConfig は対話コマンド用に設定を読み込む
// 設定に問題がある場合はエラーにする
func (a *App) loadConfig() (*config.Config, error) {
	if err := a.checkProjectDir(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(a.loadOptions())
	if err != nil {
		return nil, err
	}
	a.applyLocale(cfg)
	return cfg, nil
}

// applyLocale は設定の言語を反映する
func (a *App) applyLocale(cfg *config.Config) {
	if cfg != nil && cfg.Language != "" {
		i18n.SetLocale(i18n.Locale(cfg.Language))
	}
}

func (a *App) cliLogger(cfg *config.Config) *zap.Logger {
	level := ""
	if cfg != nil {
		level = cfg.LogLevel
	}
	return logging.ForCLI(level, a.verbose)
}

// openStore は設定に従ってストレージを開く
func (a *App) openStore(cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	store, err := storage.NewStoreByType(storage.StorageConfig{
		Type:        storage.StorageType(cfg.Storage.Backend),
		Dir:         cfg.LogDir,
		MaxSessions: cfg.History.MaxSessions,
		Logger:      logger,
	})
	if err != nil {
		return nil, errors.StorageFailed(err)
	}
	return store, nil
}

func (a *App) color() bool {
	return !a.noColor && a.getenv("NO_COLOR") == ""
}

func (a *App) println(args ...interface{}) {
	fmt.Fprintln(a.Stdout, args...)
}

// notice は補足メッセージを標準エラーに出す
func (a *App) notice(key string, args ...interface{}) {
	fmt.Fprintln(a.Stderr, i18n.T(key, args...))
}
