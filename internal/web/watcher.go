package web

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/y-hirakaw/cchook/internal/storage"
	"github.com/y-hirakaw/cchook/internal/utils"
	"github.com/y-hirakaw/cchook/pkg/types"
)

// logEvents はログ種別と配信するイベント種別の対応
var logEvents = map[types.LogKind]string{
	types.LogKindUsage:         EventUsage,
	types.LogKindNotifications: EventNotification,
	types.LogKindSessions:      EventSession,
}

// LogWatcher はログディレクトリに追記された行を読み取り、Hubに配信する
type LogWatcher struct {
	dir    string
	hub    *Hub
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	positions map[string]int64

	ready chan struct{}
}

// NewLogWatcher は新しいLogWatcherを作成する
func NewLogWatcher(dir string, hub *Hub, logger *zap.Logger) *LogWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogWatcher{
		dir:       dir,
		hub:       hub,
		logger:    logger,
		now:       time.Now,
		positions: make(map[string]int64),
		ready:     make(chan struct{}),
	}
}

// Ready は監視を開始すると閉じられるチャネルを返す
func (w *LogWatcher) Ready() <-chan struct{} {
	return w.ready
}

// eventType はファイル名から配信するイベント種別を返す
func eventType(name string) (string, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, ".log") {
		return "", false
	}
	for kind, event := range logEvents {
		if strings.HasPrefix(base, kind.String()+"_") {
			return event, true
		}
	}
	return "", false
}

// Run はcontextがキャンセルされるまでログディレクトリを監視する
func (w *LogWatcher) Run(ctx context.Context) error {
	if err := utils.EnsureDirectory(w.dir); err != nil {
		return err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ファイル監視の初期化に失敗: %w", err)
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(w.dir); err != nil {
		return fmt.Errorf("ディレクトリの監視に失敗 %s: %w", w.dir, err)
	}

	w.seedPositions()
	close(w.ready)
	w.logger.Info("ログディレクトリの監視を開始", zap.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("ファイル監視のエラー", zap.Error(err))
		}
	}
}

// seedPositions は既存のログファイルの末尾を読み取り位置にする
// 監視開始後に追記された行だけを配信する
func (w *LogWatcher) seedPositions() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, entry := range entries {
		if _, ok := eventType(entry.Name()); !ok || entry.IsDir() {
			continue
		}
		if info, err := entry.Info(); err == nil {
			w.positions[filepath.Join(w.dir, entry.Name())] = info.Size()
		}
	}
}

func (w *LogWatcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.mu.Lock()
		delete(w.positions, event.Name)
		w.mu.Unlock()
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	if filepath.Base(event.Name) == storage.StatsFileName {
		w.broadcastStats(event.Name)
		return
	}

	if kind, ok := eventType(event.Name); ok {
		w.readNewLines(event.Name, kind)
	}
}

// readNewLines は前回の位置から改行で終わる行を読み取って配信する
func (w *LogWatcher) readNewLines(path, kind string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	start := w.positions[path]
	if info, err := file.Stat(); err == nil && info.Size() < start {
		// 切り詰められたファイルは先頭から読み直す
		start = 0
	}
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return
	}

	reader := bufio.NewReader(file)
	pos := start
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			// 書き込み途中の行は次のイベントで読む
			break
		}
		pos += int64(len(line))

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var data map[string]interface{}
		if err := json.Unmarshal([]byte(line), &data); err != nil {
			w.logger.Debug("ログ行を解析できません", zap.String("file", path), zap.Error(err))
			continue
		}
		w.hub.Broadcast(&UpdateEvent{Type: kind, Timestamp: w.now(), Data: data})
	}
	w.positions[path] = pos
}

func (w *LogWatcher) broadcastStats(path string) {
	stats := types.NewUsageStats()
	if err := utils.ReadJSON(path, stats); err != nil {
		// リネーム直後など読めない場合は次の更新を待つ
		w.logger.Debug("統計を読み込めません", zap.Error(err))
		return
	}
	w.hub.Broadcast(&UpdateEvent{Type: EventStats, Timestamp: w.now(), Data: stats})
}
