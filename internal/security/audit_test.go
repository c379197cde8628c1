package security

import (
	"os"
	"testing"
	"time"
)

func TestAuditManager_LogBlocked(t *testing.T) {
	dir := t.TempDir()
	am := NewAuditManager(dir, true)

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	am.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	if err := am.LogBlocked("command_blocked", "s1", "bash", "Blocked dangerous command: sudo ls", map[string]interface{}{"command": "sudo ls"}); err != nil {
		t.Fatalf("監査ログの記録に失敗: %v", err)
	}
	if err := am.LogBlocked("path_blocked", "s1", "write", "Blocked write to system directory: /etc/hosts", nil); err != nil {
		t.Fatalf("監査ログの記録に失敗: %v", err)
	}

	info, err := os.Stat(am.LogFile())
	if err != nil {
		t.Fatalf("監査ログファイルが作成されていません: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("監査ログの権限が期待値と異なります: %v", info.Mode().Perm())
	}

	records, err := am.GetAuditLogs(0, AuditFilter{})
	if err != nil {
		t.Fatalf("監査ログの取得に失敗: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("監査ログの件数が期待値と異なります: %d", len(records))
	}
	if records[0].Event != "path_blocked" {
		t.Errorf("新しい順に並んでいません: %s", records[0].Event)
	}
	if records[1].Details["command"] != "sudo ls" {
		t.Errorf("詳細が記録されていません: %v", records[1].Details)
	}

	filtered, _ := am.GetAuditLogs(0, AuditFilter{Event: "command_blocked"})
	if len(filtered) != 1 {
		t.Errorf("イベントでの絞り込みが機能していません: %d", len(filtered))
	}

	since, _ := am.GetAuditLogs(0, AuditFilter{Since: base.Add(90 * time.Second)})
	if len(since) != 1 {
		t.Errorf("日時での絞り込みが機能していません: %d", len(since))
	}

	limited, _ := am.GetAuditLogs(1, AuditFilter{})
	if len(limited) != 1 {
		t.Errorf("件数制限が機能していません: %d", len(limited))
	}
}

func TestAuditManager_Disabled(t *testing.T) {
	am := NewAuditManager(t.TempDir(), false)

	if err := am.LogBlocked("command_blocked", "s1", "bash", "x", nil); err != nil {
		t.Fatalf("無効時にエラー: %v", err)
	}
	if _, err := os.Stat(am.LogFile()); !os.IsNotExist(err) {
		t.Error("無効時に監査ログが作成されています")
	}

	records, err := am.GetAuditLogs(0, AuditFilter{})
	if err != nil || len(records) != 0 {
		t.Errorf("空の結果が期待されます: %v, %v", records, err)
	}
}

func TestAuditManager_SkipsBrokenLines(t *testing.T) {
	am := NewAuditManager(t.TempDir(), true)
	if err := am.LogBlocked("command_blocked", "s1", "bash", "x", nil); err != nil {
		t.Fatal(err)
	}

	file, err := os.OpenFile(am.LogFile(), os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		t.Fatal(err)
	}
	file.WriteString("{broken\n")
	file.Close()

	records, err := am.GetAuditLogs(0, AuditFilter{})
	if err != nil {
		t.Fatalf("監査ログの取得に失敗: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("不正な行がスキップされていません: %d", len(records))
	}
}
