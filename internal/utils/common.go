package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileExists はファイルが存在するかチェックする
func FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return !os.IsNotExist(err)
}

// EnsureDirectory はディレクトリが存在しない場合作成する
func EnsureDirectory(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("ディレクトリの作成に失敗 %s: %w", dirPath, err)
	}
	return nil
}

// WriteFileAtomic は一時ファイルに書き込んでからリネームする
// 書き込み途中でプロセスが終了しても既存ファイルは壊れない
func WriteFileAtomic(filePath string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filePath)
	if err := EnsureDirectory(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("一時ファイルへの書き込みに失敗: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("一時ファイルのクローズに失敗: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("権限の設定に失敗: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ファイルの置き換えに失敗: %w", err)
	}
	return nil
}

// WriteJSONAtomic はインデント付きJSONをアトミックに書き込む
func WriteJSONAtomic(filePath string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("JSON変換に失敗: %w", err)
	}
	return WriteFileAtomic(filePath, append(data, '\n'), 0644)
}

// ReadJSON はJSONファイルを読み込む
// ファイルが存在しない場合は os.ErrNotExist をラップして返す
func ReadJSON(filePath string, v interface{}) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("ファイルの読み込みに失敗 %s: %w", filePath, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("JSONの解析に失敗 %s: %w", filePath, err)
	}
	return nil
}

// AppendLine はファイル末尾に1行追記する
func AppendLine(filePath string, line []byte) error {
	if err := EnsureDirectory(filepath.Dir(filePath)); err != nil {
		return err
	}

	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("ファイルのオープンに失敗 %s: %w", filePath, err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("ファイルへの追記に失敗 %s: %w", filePath, err)
	}
	return nil
}

// GetHomeDirectory はユーザーのホームディレクトリを取得する
func GetHomeDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("ホームディレクトリの取得に失敗: %w", err)
	}
	return homeDir, nil
}
