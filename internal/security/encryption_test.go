package security

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptionManager_InitializeWithPassphrase(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), ".cchook.key")
	em := NewEncryptionManager(true, "from-env", keyFile)

	if err := em.Initialize(true); err != nil {
		t.Fatalf("暗号化の初期化に失敗: %v", err)
	}

	// パスフレーズが渡されている場合はキーファイルを作らない
	if _, err := os.Stat(keyFile); !os.IsNotExist(err) {
		t.Errorf("キーファイルが作成されるべきではありません: %v", err)
	}
}

func TestEncryptionManager_InitializeGeneratesKeyFile(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "logs", ".cchook.key")
	em := NewEncryptionManager(true, "", keyFile)

	if err := em.Initialize(true); err != nil {
		t.Fatalf("暗号化の初期化に失敗: %v", err)
	}

	info, err := os.Stat(keyFile)
	if err != nil {
		t.Fatalf("キーファイルが作成されていません: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("キーファイルの権限が期待値と異なります: %v", info.Mode().Perm())
	}

	// 同じキーファイルから読み込めば復号できる
	encrypted, err := em.EncryptString([]byte(`{"command":"ls"}`))
	if err != nil {
		t.Fatalf("暗号化に失敗: %v", err)
	}

	reader := NewEncryptionManager(true, "", keyFile)
	if err := reader.Initialize(false); err != nil {
		t.Fatalf("キーファイルの読み込みに失敗: %v", err)
	}
	decrypted, err := reader.DecryptString(encrypted)
	if err != nil {
		t.Fatalf("復号化に失敗: %v", err)
	}
	if string(decrypted) != `{"command":"ls"}` {
		t.Errorf("復号化結果が異なります: %s", decrypted)
	}
}

func TestEncryptionManager_InitializeWithoutCreate(t *testing.T) {
	em := NewEncryptionManager(true, "", filepath.Join(t.TempDir(), ".cchook.key"))

	err := em.Initialize(false)
	if !errors.Is(err, ErrNoPassphrase) {
		t.Errorf("ErrNoPassphrase が期待されます: %v", err)
	}
}

func TestEncryptionManager_Disabled(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), ".cchook.key")
	em := NewEncryptionManager(false, "", keyFile)

	if err := em.Initialize(true); err != nil {
		t.Fatalf("無効時の初期化でエラー: %v", err)
	}
	if em.IsEnabled() {
		t.Error("暗号化は無効であるべきです")
	}
	if _, err := os.Stat(keyFile); !os.IsNotExist(err) {
		t.Error("無効時にキーファイルが作成されています")
	}
}

func TestEncryptionManager_EncryptDecryptData(t *testing.T) {
	em := NewEncryptionManager(true, "test-passphrase", "")
	plaintext := []byte("これは暗号化テスト用のデータです")

	encrypted, err := em.EncryptData(plaintext)
	if err != nil {
		t.Fatalf("暗号化に失敗: %v", err)
	}
	if bytes.Equal(encrypted, plaintext) {
		t.Error("暗号化されたデータが元のデータと同じです")
	}

	// 同じ平文でもソルトとナンスが異なるため結果は毎回変わる
	again, _ := em.EncryptData(plaintext)
	if bytes.Equal(encrypted, again) {
		t.Error("同じ暗号文が生成されました")
	}

	decrypted, err := em.DecryptData(encrypted)
	if err != nil {
		t.Fatalf("復号化に失敗: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("復号化されたデータが元のデータと異なります: %s", decrypted)
	}
}

func TestEncryptionManager_WrongPassphrase(t *testing.T) {
	encrypted, err := NewEncryptionManager(true, "right", "").EncryptString([]byte("data"))
	if err != nil {
		t.Fatalf("暗号化に失敗: %v", err)
	}

	if _, err := NewEncryptionManager(true, "wrong", "").DecryptString(encrypted); err == nil {
		t.Error("誤ったパスフレーズで復号化できてしまいました")
	}
}

func TestEncryptionManager_InvalidData(t *testing.T) {
	em := NewEncryptionManager(true, "pass", "")

	tests := []struct {
		name  string
		input string
	}{
		{"Not base64", "%%%"},
		{"Too short", "AAAA"},
		{"Salt only", "AAAAAAAAAAAAAAAAAAAAAA=="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := em.DecryptString(tt.input); err == nil {
				t.Error("不正なデータでエラーになりませんでした")
			}
		})
	}
}

func TestEncryptionManager_NoPassphrase(t *testing.T) {
	em := NewEncryptionManager(true, "", "")
	if _, err := em.EncryptData([]byte("x")); !errors.Is(err, ErrNoPassphrase) {
		t.Errorf("ErrNoPassphrase が期待されます: %v", err)
	}
}
