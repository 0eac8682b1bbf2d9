// Package media はプロジェクト画像の保存・取り込み・削除を提供する。
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/portfolio/internal/model"
)

// importUserAgent はリモート画像取得時のUser-Agent。
const importUserAgent = "Portfolio/1.0 ImageImporter"

// ErrInvalidPath はメディアルート外を指す相対パスを表す。
var ErrInvalidPath = errors.New("media path outside upload directory")

// extensions は受け付ける画像のMIMEタイプと保存時の拡張子。
var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// URLValidator はリモートURLの安全性を検証するインターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// FileInfo はアップロードディレクトリ内のファイル情報。
type FileInfo struct {
	Path    string // メディアルートからの相対パス（portfolio/xxx.png）
	ModTime time.Time
}

// StorageService は画像ストレージのインターフェース。
type StorageService interface {
	// Save は画像を保存し、メディアルートからの相対パスを返す。
	Save(r io.Reader) (string, error)
	// Import はリモートURLの画像を取得して保存する。
	Import(ctx context.Context, rawURL string) (string, error)
	// Delete は相対パスの画像を削除する。存在しない場合は何もしない。
	Delete(relPath string) error
	// ListFiles はアップロードディレクトリ内のファイルを返す。
	ListFiles() ([]FileInfo, error)
}

// Storage はローカルファイルシステムに画像を保存する。
// ファイルは MEDIA_ROOT/portfolio/<uuid><ext> に配置する。
type Storage struct {
	root    string
	maxSize int64
	guard   URLValidator
	client  *http.Client
	newID   func() string
}

// NewStorage はStorageを生成する。
// clientはSSRF対策済みのHTTPクライアントを渡す。
func NewStorage(root string, maxSize int64, guard URLValidator, client *http.Client) *Storage {
	return &Storage{
		root:    root,
		maxSize: maxSize,
		guard:   guard,
		client:  client,
		newID:   uuid.NewString,
	}
}

// Root はメディアルートのパスを返す。
func (s *Storage) Root() string {
	return s.root
}

// Save は画像を保存し、メディアルートからの相対パスを返す。
// MIMEタイプは内容から判定し、拡張子やContent-Typeヘッダーは信用しない。
func (s *Storage) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("画像の読み込みに失敗しました: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return "", model.NewImageTooLargeError(s.maxSize)
	}
	if len(data) == 0 {
		return "", model.NewInvalidImageError("empty file")
	}

	mimeType := http.DetectContentType(data)
	ext, ok := extensions[mimeType]
	if !ok {
		return "", model.NewInvalidImageError("unsupported content type " + mimeType)
	}

	relPath := model.ProjectMainImageUploadTo + s.newID() + ext
	absPath := filepath.Join(s.root, filepath.FromSlash(relPath))
	if err := writeFileAtomic(absPath, data); err != nil {
		return "", err
	}
	return relPath, nil
}

// writeFileAtomic は一時ファイルに書き込んでからリネームする。
func writeFileAtomic(absPath string, data []byte) error {
	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("アップロードディレクトリの作成に失敗しました: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("画像の書き込みに失敗しました: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("画像の書き込みに失敗しました: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("画像の権限設定に失敗しました: %w", err)
	}
	if err := os.Rename(tmpName, absPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("画像の保存に失敗しました: %w", err)
	}
	return nil
}

// Import はリモートURLの画像を取得して保存する。
// SSRF検証に失敗した場合はSSRF_BLOCKED、取得に失敗した場合はIMAGE_FETCH_FAILEDを返す。
func (s *Storage) Import(ctx context.Context, rawURL string) (string, error) {
	if err := s.guard.ValidateURL(rawURL); err != nil {
		slog.Warn("画像取り込み: SSRFブロック", "url", rawURL, "error", err)
		return "", model.NewSSRFBlockedError()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", model.NewImageFetchFailedError("invalid url")
	}
	req.Header.Set("User-Agent", importUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Warn("画像取り込み: HTTPリクエスト失敗", "url", rawURL, "error", err)
		return "", model.NewImageFetchFailedError("request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("画像取り込み: HTTPステータス異常", "url", rawURL, "status", resp.StatusCode)
		return "", model.NewImageFetchFailedError(fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
	if resp.ContentLength > s.maxSize {
		return "", model.NewImageTooLargeError(s.maxSize)
	}

	return s.Save(resp.Body)
}

// Delete は相対パスの画像を削除する。存在しない場合は何もしない。
func (s *Storage) Delete(relPath string) error {
	absPath, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(absPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("画像の削除に失敗しました: %w", err)
	}
	return nil
}

// resolve は相対パスを検証し、メディアルート配下の絶対パスに変換する。
func (s *Storage) resolve(relPath string) (string, error) {
	clean := path.Clean(relPath)
	if !strings.HasPrefix(clean, model.ProjectMainImageUploadTo) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, relPath)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// ListFiles はアップロードディレクトリ内のファイルを返す。
// ディレクトリが存在しない場合は空のスライスを返す。書き込み途中の一時ファイルは含めない。
func (s *Storage) ListFiles() ([]FileInfo, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(model.ProjectMainImageUploadTo))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []FileInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アップロードディレクトリの読み取りに失敗しました: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// 走査中に削除されたファイルは無視する
			continue
		}
		files = append(files, FileInfo{
			Path:    model.ProjectMainImageUploadTo + e.Name(),
			ModTime: info.ModTime(),
		})
	}
	return files, nil
}

// compile-time interface check
var _ StorageService = (*Storage)(nil)
