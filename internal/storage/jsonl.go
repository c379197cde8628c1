package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/y-hirakaw/cchook/internal/utils"
	"github.com/y-hirakaw/cchook/pkg/types"
)

const (
	// StatsFileName は累積統計ファイル
	StatsFileName = "stats.json"
	// HistoryFileName はセッション履歴ファイル
	HistoryFileName = "session_history.json"
	// ReportFilePrefix はセッションレポートファイルの接頭辞
	ReportFilePrefix = "session_report_"
)

// JSONLStore implements Store on top of dated JSONL files in the log directory.
type JSONLStore struct {
	dir         string
	maxSessions int
	logger      *zap.Logger
	now         func() time.Time
	mu          sync.Mutex
}

// NewJSONLStore creates the log directory if needed and returns a store rooted there.
func NewJSONLStore(config StorageConfig) (*JSONLStore, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("ログディレクトリが指定されていません")
	}
	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("ログディレクトリの作成に失敗: %w", err)
	}

	s := &JSONLStore{
		dir:         config.Dir,
		maxSessions: config.MaxSessions,
		logger:      config.Logger,
		now:         config.Now,
	}
	if s.maxSessions <= 0 {
		s.maxSessions = DefaultMaxSessions
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Dir returns the log directory.
func (s *JSONLStore) Dir() string {
	return s.dir
}

// LogPath returns the dated log file for kind.
func (s *JSONLStore) LogPath(kind types.LogKind, date time.Time) string {
	return filepath.Join(s.dir, kind.FileName(date))
}

func (s *JSONLStore) statsPath() string {
	return filepath.Join(s.dir, StatsFileName)
}

func (s *JSONLStore) historyPath() string {
	return filepath.Join(s.dir, HistoryFileName)
}

func (s *JSONLStore) appendJSON(kind types.LogKind, date time.Time, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%sログのシリアライズに失敗: %w", kind, err)
	}
	if err := utils.AppendLine(s.LogPath(kind, date), data); err != nil {
		return fmt.Errorf("%sログの書き込みに失敗: %w", kind, err)
	}
	return nil
}

// RecordUsage appends the entry to the usage log and folds it into stats.json.
func (s *JSONLStore) RecordUsage(entry *types.UsageEntry) (*types.UsageStats, error) {
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("無効な使用ログ: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.appendJSON(types.LogKindUsage, entry.Timestamp, entry); err != nil {
		return nil, err
	}

	stats := s.loadStatsLocked()
	stats.Record(entry, s.now())
	if err := s.saveStatsLocked(stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// RecordNotification appends a notification log line.
func (s *JSONLStore) RecordNotification(record *types.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendJSON(types.LogKindNotifications, record.Timestamp, record)
}

// RecordSession appends a session_start/session_end log line.
func (s *JSONLStore) RecordSession(event *types.SessionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendJSON(types.LogKindSessions, event.Timestamp, event)
}

// LoadStats returns the cumulative statistics. A missing or corrupt file yields empty stats.
func (s *JSONLStore) LoadStats() (*types.UsageStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadStatsLocked(), nil
}

func (s *JSONLStore) loadStatsLocked() *types.UsageStats {
	stats := types.NewUsageStats()
	if err := utils.ReadJSON(s.statsPath(), stats); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("統計ファイルが壊れているため空として扱います",
				zap.String("path", s.statsPath()), zap.Error(err))
		}
		return types.NewUsageStats()
	}
	if stats.ToolCounts == nil {
		stats.ToolCounts = make(map[string]int)
	}
	if stats.Sessions == nil {
		stats.Sessions = make(map[string]map[string]int)
	}
	return stats
}

func (s *JSONLStore) saveStatsLocked(stats *types.UsageStats) error {
	if err := utils.WriteJSONAtomic(s.statsPath(), stats); err != nil {
		return fmt.Errorf("統計ファイルの保存に失敗: %w", err)
	}
	return nil
}

// SessionBreakdown returns a copy of the per-session tool counts, or nil when none were recorded.
func (s *JSONLStore) SessionBreakdown(sessionID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, ok := s.loadStatsLocked().Sessions[sessionID]
	if !ok || len(counts) == 0 {
		return nil, nil
	}
	result := make(map[string]int, len(counts))
	for name, count := range counts {
		result[name] = count
	}
	return result, nil
}

// ForgetSession drops the per-session counts so stats.json does not grow without bound.
func (s *JSONLStore) ForgetSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.loadStatsLocked()
	if _, ok := stats.Sessions[sessionID]; !ok {
		return nil
	}
	delete(stats.Sessions, sessionID)
	return s.saveStatsLocked(stats)
}

// SaveReport writes session_report_YYYYMMDD_HHMMSS.json and appends it to the history.
func (s *JSONLStore) SaveReport(report *types.SessionReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	end := report.SessionEnd
	if end.IsZero() {
		end = s.now()
	}
	reportPath := filepath.Join(s.dir, ReportFilePrefix+end.Format("20060102_150405")+".json")
	if err := utils.WriteJSONAtomic(reportPath, report); err != nil {
		return "", fmt.Errorf("セッションレポートの保存に失敗: %w", err)
	}

	history := s.loadHistoryLocked()
	history.Append(report, s.maxSessions)
	if err := utils.WriteJSONAtomic(s.historyPath(), history); err != nil {
		return reportPath, fmt.Errorf("セッション履歴の保存に失敗: %w", err)
	}
	return reportPath, nil
}

// LoadHistory returns the session history, empty when the file is missing or corrupt.
func (s *JSONLStore) LoadHistory() (*types.SessionHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadHistoryLocked(), nil
}

func (s *JSONLStore) loadHistoryLocked() *types.SessionHistory {
	history := &types.SessionHistory{}
	if err := utils.ReadJSON(s.historyPath(), history); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("セッション履歴が壊れているため空として扱います",
				zap.String("path", s.historyPath()), zap.Error(err))
		}
		history = &types.SessionHistory{}
	}
	if history.Sessions == nil {
		history.Sessions = []types.HistoryEntry{}
	}
	return history
}

// ReadLog returns the raw lines of a dated log. A missing file yields no lines.
func (s *JSONLStore) ReadLog(kind types.LogKind, date time.Time) ([]string, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("不明なログ種別: %s", kind)
	}

	file, err := os.Open(s.LogPath(kind, date))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("ログファイルを開けません: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("ログファイルの読み込みに失敗: %w", err)
	}
	return lines, nil
}

// ReadUsage decodes the usage log for date, skipping lines that do not parse.
func (s *JSONLStore) ReadUsage(date time.Time) ([]*types.UsageEntry, error) {
	lines, err := s.ReadLog(types.LogKindUsage, date)
	if err != nil {
		return nil, err
	}

	entries := make([]*types.UsageEntry, 0, len(lines))
	for i, line := range lines {
		var entry types.UsageEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			s.logger.Debug("壊れた使用ログ行をスキップ", zap.Int("line", i+1), zap.Error(err))
			continue
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

// Close is a no-op for the file backend.
func (s *JSONLStore) Close() error {
	return nil
}
