package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize         = 16
	keySize          = 32
	pbkdf2Iterations = 10000
)

// ErrNoPassphrase はパスフレーズが設定されていない場合のエラー
var ErrNoPassphrase = errors.New("暗号化が有効ですが、パスフレーズが設定されていません")

// EncryptionManager は使用ログのパラメータ暗号化を管理する
type EncryptionManager struct {
	enabled    bool
	passphrase string
	keyFile    string
}

// NewEncryptionManager は新しい暗号化マネージャーを作成する
// passphrase が空の場合は Initialize でキーファイルから読み込む
func NewEncryptionManager(enabled bool, passphrase, keyFile string) *EncryptionManager {
	return &EncryptionManager{
		enabled:    enabled,
		passphrase: passphrase,
		keyFile:    keyFile,
	}
}

// IsEnabled は暗号化が有効かどうかを返す
func (em *EncryptionManager) IsEnabled() bool {
	return em.enabled
}

// Initialize はパスフレーズを準備する
// 環境変数で渡されたパスフレーズ、キーファイルの順に探し、
// create が true ならどちらも無い場合に新しいキーファイルを生成する
func (em *EncryptionManager) Initialize(create bool) error {
	if !em.enabled || em.passphrase != "" {
		return nil
	}

	if data, err := os.ReadFile(em.keyFile); err == nil {
		em.passphrase = strings.TrimSpace(string(data))
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("キーファイルの読み込みに失敗: %w", err)
	}

	if !create {
		return ErrNoPassphrase
	}

	passphrase, err := generatePassphrase()
	if err != nil {
		return fmt.Errorf("パスフレーズの生成に失敗: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(em.keyFile), 0700); err != nil {
		return fmt.Errorf("キーファイルのディレクトリ作成に失敗: %w", err)
	}
	if err := os.WriteFile(em.keyFile, []byte(passphrase), 0600); err != nil {
		return fmt.Errorf("キーファイルの保存に失敗: %w", err)
	}

	em.passphrase = passphrase
	return nil
}

// generatePassphrase はランダムなパスフレーズを生成する
func generatePassphrase() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// deriveKey はパスフレーズから暗号化キーを導出する
func (em *EncryptionManager) deriveKey(salt []byte) []byte {
	return pbkdf2.Key([]byte(em.passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
}

func (em *EncryptionManager) newGCM(salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(em.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("AES暗号化ブロックの作成に失敗: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("GCMモードの作成に失敗: %w", err)
	}
	return gcm, nil
}

// EncryptData はデータを暗号化する
// 出力はソルト(16バイト) + ナンス + 暗号文
func (em *EncryptionManager) EncryptData(data []byte) ([]byte, error) {
	if em.passphrase == "" {
		return nil, ErrNoPassphrase
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("ソルトの生成に失敗: %w", err)
	}

	gcm, err := em.newGCM(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("ナンスの生成に失敗: %w", err)
	}

	encrypted := gcm.Seal(nonce, nonce, data, nil)

	result := make([]byte, len(salt)+len(encrypted))
	copy(result, salt)
	copy(result[len(salt):], encrypted)

	return result, nil
}

// DecryptData はデータを復号化する
func (em *EncryptionManager) DecryptData(encryptedData []byte) ([]byte, error) {
	if em.passphrase == "" {
		return nil, ErrNoPassphrase
	}

	if len(encryptedData) < saltSize {
		return nil, errors.New("暗号化データが短すぎます")
	}

	salt := encryptedData[:saltSize]
	encrypted := encryptedData[saltSize:]

	gcm, err := em.newGCM(salt)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(encrypted) < nonceSize {
		return nil, errors.New("暗号化データが短すぎます")
	}

	nonce, ciphertext := encrypted[:nonceSize], encrypted[nonceSize:]

	data, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("データの復号化に失敗: %w", err)
	}

	return data, nil
}

// EncryptString はデータを暗号化してbase64文字列で返す
func (em *EncryptionManager) EncryptString(data []byte) (string, error) {
	encrypted, err := em.EncryptData(data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// DecryptString はbase64文字列を復号化する
func (em *EncryptionManager) DecryptString(encoded string) ([]byte, error) {
	encrypted, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64のデコードに失敗: %w", err)
	}
	return em.DecryptData(encrypted)
}
