package security

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/y-hirakaw/cchook/pkg/types"
)

// AuditFileName は監査ログのファイル名
const AuditFileName = "audit.jsonl"

// AuditManager はブロックした操作の監査ログを管理する
type AuditManager struct {
	enabled bool
	logFile string
	user    string
	now     func() time.Time
}

// NewAuditManager は新しい監査マネージャーを作成する
func NewAuditManager(logDir string, enabled bool) *AuditManager {
	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME")
	}
	if user == "" {
		user = "unknown"
	}

	return &AuditManager{
		enabled: enabled,
		logFile: filepath.Join(logDir, AuditFileName),
		user:    user,
		now:     time.Now,
	}
}

// IsEnabled は監査ログが有効かどうかを返す
func (am *AuditManager) IsEnabled() bool {
	return am.enabled
}

// LogFile は監査ログのパスを返す
func (am *AuditManager) LogFile() string {
	return am.logFile
}

// LogBlocked はブロックした操作を記録する
func (am *AuditManager) LogBlocked(event, sessionID, toolName, reason string, details map[string]interface{}) error {
	if !am.enabled {
		return nil
	}

	return am.write(types.AuditRecord{
		Timestamp: am.now(),
		Event:     event,
		User:      am.user,
		SessionID: sessionID,
		ToolName:  toolName,
		Reason:    reason,
		Details:   details,
	})
}

// write は監査ログをJSONLとして追記する
func (am *AuditManager) write(record types.AuditRecord) error {
	if err := os.MkdirAll(filepath.Dir(am.logFile), 0700); err != nil {
		return fmt.Errorf("監査ログディレクトリの作成に失敗: %w", err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("監査ログのシリアライズに失敗: %w", err)
	}

	file, err := os.OpenFile(am.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("監査ログファイルのオープンに失敗: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("監査ログの書き込みに失敗: %w", err)
	}
	return nil
}

// AuditFilter は監査ログの絞り込み条件
type AuditFilter struct {
	Event string
	Since time.Time
}

func (f AuditFilter) matches(record types.AuditRecord) bool {
	if f.Event != "" && record.Event != f.Event {
		return false
	}
	if !f.Since.IsZero() && record.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// GetAuditLogs は監査ログを新しい順に取得する（limit が0以下なら全件）
func (am *AuditManager) GetAuditLogs(limit int, filter AuditFilter) ([]types.AuditRecord, error) {
	file, err := os.Open(am.logFile)
	if err != nil {
		if os.IsNotExist(err) {
			return []types.AuditRecord{}, nil
		}
		return nil, fmt.Errorf("監査ログファイルのオープンに失敗: %w", err)
	}
	defer file.Close()

	records := []types.AuditRecord{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var record types.AuditRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue // 不正な行はスキップ
		}
		if filter.matches(record) {
			records = append(records, record)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("監査ログの読み込みに失敗: %w", err)
	}

	// 新しい順
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}
