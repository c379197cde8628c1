package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/y-hirakaw/cchook/pkg/types"
)

// SQLiteFileName は使用ログのSQLiteミラー
const SQLiteFileName = "usage.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS usage (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	recorded_at TEXT NOT NULL,
	tool_name TEXT NOT NULL,
	exit_code INTEGER,
	duration_ms REAL NOT NULL DEFAULT 0,
	success INTEGER NOT NULL,
	session_id TEXT NOT NULL,
	session_active INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_usage_session ON usage(session_id, session_active);
CREATE INDEX IF NOT EXISTS idx_usage_tool ON usage(tool_name);
`

// SQLiteStore keeps the JSONL files and mirrors every usage entry into usage.db.
// Stats and per-session breakdowns are answered from SQL.
type SQLiteStore struct {
	*JSONLStore
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (or creates) usage.db inside the log directory.
func NewSQLiteStore(config StorageConfig) (*SQLiteStore, error) {
	base, err := NewJSONLStore(config)
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(base.dir, SQLiteFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("SQLiteのオープンに失敗: %w", err)
	}
	// busy_timeout is per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("SQLiteの設定に失敗: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("スキーマの初期化に失敗: %w", err)
	}

	return &SQLiteStore{JSONLStore: base, db: db, dbPath: dbPath}, nil
}

// DBPath returns the path of usage.db.
func (s *SQLiteStore) DBPath() string {
	return s.dbPath
}

// RecordUsage writes the JSONL files first, then inserts the mirror row.
func (s *SQLiteStore) RecordUsage(entry *types.UsageEntry) (*types.UsageStats, error) {
	if _, err := s.JSONLStore.RecordUsage(entry); err != nil {
		return nil, err
	}

	var exitCode interface{}
	if entry.ExitCode != nil {
		exitCode = *entry.ExitCode
	}
	success := 0
	if entry.Success {
		success = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO usage (timestamp, recorded_at, tool_name, exit_code, duration_ms, success, session_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.Format(time.RFC3339Nano),
		s.now().Format(time.RFC3339Nano),
		entry.ToolName,
		exitCode,
		entry.DurationMS,
		success,
		entry.SessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("使用ログのミラーに失敗: %w", err)
	}

	return s.LoadStats()
}

// LoadStats aggregates the usage table.
func (s *SQLiteStore) LoadStats() (*types.UsageStats, error) {
	stats := types.NewUsageStats()

	var lastUpdated sql.NullString
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(success), 0), MAX(recorded_at) FROM usage`,
	).Scan(&stats.TotalTools, &stats.SuccessfulTools, &lastUpdated)
	if err != nil {
		return nil, fmt.Errorf("統計の集計に失敗: %w", err)
	}
	if lastUpdated.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, lastUpdated.String); err == nil {
			stats.LastUpdated = &ts
		}
	}

	toolCounts, err := s.queryCounts(`SELECT tool_name, COUNT(*) FROM usage GROUP BY tool_name`)
	if err != nil {
		return nil, fmt.Errorf("ツール別集計に失敗: %w", err)
	}
	if toolCounts != nil {
		stats.ToolCounts = toolCounts
	}

	if err := s.loadSessionCounts(stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *SQLiteStore) loadSessionCounts(stats *types.UsageStats) error {
	rows, err := s.db.Query(
		`SELECT session_id, tool_name, COUNT(*) FROM usage
		 WHERE session_active = 1 AND session_id != '' AND session_id != ?
		 GROUP BY session_id, tool_name`,
		types.UnknownSessionID,
	)
	if err != nil {
		return fmt.Errorf("セッション別集計に失敗: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sessionID, name string
		var count int
		if err := rows.Scan(&sessionID, &name, &count); err != nil {
			return fmt.Errorf("セッション別集計の読み込みに失敗: %w", err)
		}
		counts, ok := stats.Sessions[sessionID]
		if !ok {
			counts = make(map[string]int)
			stats.Sessions[sessionID] = counts
		}
		counts[name] = count
	}
	return rows.Err()
}

// queryCounts runs a "name, count" query. No rows yields nil.
func (s *SQLiteStore) queryCounts(query string, args ...interface{}) (map[string]int, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts map[string]int
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		if counts == nil {
			counts = make(map[string]int)
		}
		counts[name] = count
	}
	return counts, rows.Err()
}

// SessionBreakdown returns the tool counts of an active session, or nil.
func (s *SQLiteStore) SessionBreakdown(sessionID string) (map[string]int, error) {
	counts, err := s.queryCounts(
		`SELECT tool_name, COUNT(*) FROM usage
		 WHERE session_id = ? AND session_active = 1
		 GROUP BY tool_name`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("セッション別集計に失敗: %w", err)
	}
	return counts, nil
}

// ForgetSession deactivates the session's rows and drops it from stats.json.
func (s *SQLiteStore) ForgetSession(sessionID string) error {
	if _, err := s.db.Exec(`UPDATE usage SET session_active = 0 WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("セッションの破棄に失敗: %w", err)
	}
	return s.JSONLStore.ForgetSession(sessionID)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		s.logger.Warn("SQLiteのクローズに失敗", zap.Error(err))
		return err
	}
	return nil
}
