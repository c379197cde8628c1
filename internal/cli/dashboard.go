package cli

import (
	"net"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/y-hirakaw/cchook/internal/errors"
	"github.com/y-hirakaw/cchook/internal/security"
	"github.com/y-hirakaw/cchook/internal/utils"
	"github.com/y-hirakaw/cchook/internal/web"
	"github.com/y-hirakaw/cchook/internal/web/handlers"
)

func (a *App) newDashboardCommand() *cobra.Command {
	var (
		addr string
		open bool
	)
	cmd := &cobra.Command{
		Use:     "dashboard",
		Short:   "Serve a local dashboard with a live feed of the hook logs",
		GroupID: groupTools,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Dashboard.Addr
			}

			logger := a.cliLogger(cfg)
			defer func() { _ = logger.Sync() }()

			// 監視対象のディレクトリはフック実行前でも存在させておく
			if err := utils.EnsureDirectory(cfg.LogDir); err != nil {
				return errors.LogDirFailed(cfg.LogDir, err)
			}
			store, err := a.openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			hub := web.NewHub()
			api := handlers.NewAPIHandler(store, security.NewAuditManager(cfg.LogDir, cfg.Audit.Enabled), hub, logger)
			server := &web.Server{
				Addr:    addr,
				Handler: handlers.NewRouter(api, logger),
				Watcher: web.NewLogWatcher(cfg.LogDir, hub, logger),
				Hub:     hub,
				Logger:  logger,
				Listening: func(listen net.Addr) {
					a.notice("dashboard_listening", listen.String())
					if open {
						openBrowser("http://"+listen.String(), logger)
					}
				},
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := server.Run(ctx); err != nil {
				return errors.DashboardFailed(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to dashboard.addr)")
	cmd.Flags().BoolVar(&open, "open", false, "open the dashboard in a browser")
	return cmd
}

// openBrowser は既定のブラウザでURLを開く。失敗してもダッシュボードは続行する
func openBrowser(url string, logger *zap.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logger.Warn("ブラウザを開けません", zap.Error(err))
		return
	}
	go func() { _ = cmd.Wait() }()
}
