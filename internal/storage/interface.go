package storage

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/y-hirakaw/cchook/pkg/types"
)

// Store はフックが書き込むログと統計の統一インターフェース
type Store interface {
	// RecordUsage は使用ログを追記し、更新後の累積統計を返す
	RecordUsage(entry *types.UsageEntry) (*types.UsageStats, error)
	RecordNotification(record *types.NotificationRecord) error
	RecordSession(event *types.SessionEvent) error

	LoadStats() (*types.UsageStats, error)
	// SessionBreakdown はセッション別のツール使用回数を返す（未記録ならnil）
	SessionBreakdown(sessionID string) (map[string]int, error)
	ForgetSession(sessionID string) error

	// SaveReport はレポートファイルを書き出して履歴を更新し、レポートのパスを返す
	SaveReport(report *types.SessionReport) (string, error)
	LoadHistory() (*types.SessionHistory, error)

	ReadUsage(date time.Time) ([]*types.UsageEntry, error)
	ReadLog(kind types.LogKind, date time.Time) ([]string, error)

	Dir() string
	Close() error
}

// StorageType はストレージタイプを表す
type StorageType string

const (
	StorageTypeJSONL  StorageType = "jsonl"
	StorageTypeSQLite StorageType = "sqlite"
)

// DefaultMaxSessions は履歴に保持するセッション数の既定値
const DefaultMaxSessions = 50

// StorageConfig はストレージ設定
type StorageConfig struct {
	Type        StorageType
	Dir         string
	MaxSessions int
	Logger      *zap.Logger
	Now         func() time.Time
}

// NewStoreByType はタイプに応じたストレージを作成
func NewStoreByType(config StorageConfig) (Store, error) {
	switch config.Type {
	case StorageTypeSQLite:
		return NewSQLiteStore(config)
	case StorageTypeJSONL, "":
		return NewJSONLStore(config)
	default:
		return nil, fmt.Errorf("不明なストレージタイプ: %s", config.Type)
	}
}
