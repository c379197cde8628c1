package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Server はダッシュボードのHTTPサーバーとログ監視をまとめて動かす
type Server struct {
	Addr    string
	Handler http.Handler
	Watcher *LogWatcher
	Hub     *Hub
	Logger  *zap.Logger

	// Listening はリッスン開始時に実際のアドレスを受け取る（テスト用）
	Listening func(addr net.Addr)
}

// Run はcontextがキャンセルされるまでサーバーを動かす
// いずれかが失敗した場合は残りも停止してそのエラーを返す
func (s *Server) Run(ctx context.Context) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("%s でリッスンできません: %w", s.Addr, err)
	}
	if s.Listening != nil {
		s.Listening(listener.Addr())
	}

	srv := &http.Server{
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("ダッシュボードを起動", zap.String("addr", listener.Addr().String()))
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTPサーバーが停止: %w", err)
		}
		return nil
	})

	if s.Watcher != nil {
		g.Go(func() error {
			return s.Watcher.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		// WebSocketの送信ループを終わらせてから接続を閉じる
		if s.Hub != nil {
			s.Hub.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTPサーバーの停止に失敗", zap.Error(err))
			return srv.Close()
		}
		logger.Info("ダッシュボードを停止")
		return nil
	})

	return g.Wait()
}
